package extractors

import (
	"strings"
	"time"
)

// dedupe оставляет первое вхождение каждого ключа и возвращает число удалённых записей
func dedupe[T any](items []T, key func(T) string) ([]T, int) {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	dropped := 0
	for _, item := range items {
		k := key(item)
		if _, dup := seen[k]; dup {
			dropped++
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out, dropped
}

func contentKey(parts ...string) string {
	return strings.Join(parts, "\x1f")
}

func timeKey(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
