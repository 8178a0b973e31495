package extractors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
	"github.com/LilVoxy/fabric_activity_etl/processor"
)

// SourceKind определяет тип страницы экстрактора по имени файла
type SourceKind string

const (
	SourceActivities SourceKind = "activities"
	SourceJobs       SourceKind = "jobs"
	SourceWorkspaces SourceKind = "workspaces"
	SourceEnriched   SourceKind = "enriched"
)

// Префиксы имён файлов для каждого типа страниц
var pagePrefixes = []struct {
	prefix string
	kind   SourceKind
}{
	{"enriched_activities", SourceEnriched},
	{"activity_events", SourceActivities},
	{"activities", SourceActivities},
	{"job_history", SourceJobs},
	{"job_instances", SourceJobs},
	{"jobs", SourceJobs},
	{"workspaces", SourceWorkspaces},
}

var pageExtensions = []string{".jsonl", ".ndjson", ".json"}

// Ключи конвертов, в которых API возвращает массив записей
var envelopeKeys = []string{"activityEventEntities", "value"}

// ClassifyPage возвращает тип страницы по имени файла
func ClassifyPage(name string) (SourceKind, bool) {
	base := strings.ToLower(processor.TrimCompressedExt(filepath.Base(name)))

	validExt := false
	for _, ext := range pageExtensions {
		if strings.HasSuffix(base, ext) {
			validExt = true
			break
		}
	}
	if !validExt {
		return "", false
	}

	for _, p := range pagePrefixes {
		if strings.HasPrefix(base, p.prefix) {
			return p.kind, true
		}
	}
	return "", false
}

// DiscoverPages возвращает страницы входного каталога, сгруппированные по типу.
// Внутри группы файлы отсортированы по имени.
func DiscoverPages(dir string) (map[SourceKind][]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения входного каталога %s: %w", dir, err)
	}

	pages := make(map[SourceKind][]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		kind, ok := ClassifyPage(entry.Name())
		if !ok {
			continue
		}
		pages[kind] = append(pages[kind], filepath.Join(dir, entry.Name()))
	}
	for kind := range pages {
		sort.Strings(pages[kind])
	}
	return pages, nil
}

// ReadPage читает все JSON-объекты страницы. Поддерживаются JSON Lines,
// массив объектов и конверты API с массивом записей.
func ReadPage(path string) ([]models.Record, error) {
	r, err := processor.OpenPage(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	dec := json.NewDecoder(r)
	dec.UseNumber()

	var records []models.Record
	for {
		var v any
		if err := dec.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("ошибка разбора страницы %s (смещение %d): %w", path, dec.InputOffset(), err)
		}
		records = appendRecords(records, v)
	}
	return records, nil
}

func appendRecords(records []models.Record, v any) []models.Record {
	switch x := v.(type) {
	case map[string]any:
		for _, key := range envelopeKeys {
			if items, ok := x[key].([]any); ok {
				return appendRecords(records, items)
			}
		}
		return append(records, models.Record(x))
	case []any:
		for _, item := range x {
			if m, ok := item.(map[string]any); ok {
				records = append(records, models.Record(m))
			}
		}
	}
	return records
}
