package transform

import (
	"encoding/json"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
)

const skSuffix = "_sk"

// CoerceSurrogateKeys приводит все колонки *_sk к int64.
// nil и NaN остаются nil, дробные значения и значения другого типа
// возвращают *models.SchemaError.
func CoerceSurrogateKeys(table string, rows []models.Record) error {
	for _, row := range rows {
		for col, v := range row {
			if !strings.HasSuffix(col, skSuffix) {
				continue
			}
			sk, err := toInt64(table, col, v)
			if err != nil {
				return err
			}
			if sk == nil {
				row[col] = nil
				continue
			}
			row[col] = *sk
		}
	}
	return nil
}

// CoerceMeasures приводит record_count к int64 (по умолчанию 1)
// и duration_seconds к float64 или nil
func CoerceMeasures(table string, rows []models.Record) error {
	for _, row := range rows {
		if v, ok := row["record_count"]; ok && v != nil {
			n, err := toInt64(table, "record_count", v)
			if err != nil {
				return err
			}
			if n == nil {
				row["record_count"] = int64(1)
			} else {
				row["record_count"] = *n
			}
		} else {
			row["record_count"] = int64(1)
		}

		if v, ok := row["duration_seconds"]; ok && v != nil {
			f, isNumber := numeric(v)
			if !isNumber {
				return &models.SchemaError{Table: table, Column: "duration_seconds", Value: v, Reason: "ожидалось число"}
			}
			if math.IsNaN(f) {
				row["duration_seconds"] = nil
			} else {
				row["duration_seconds"] = f
			}
		}
	}
	return nil
}

func toInt64(table, col string, v any) (*int64, error) {
	if v == nil {
		return nil, nil
	}
	switch x := v.(type) {
	case int64:
		return &x, nil
	case int:
		n := int64(x)
		return &n, nil
	case int32:
		n := int64(x)
		return &n, nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return &n, nil
		}
	}

	f, ok := numeric(v)
	if !ok {
		return nil, &models.SchemaError{Table: table, Column: col, Value: v, Reason: "ожидалось целое число"}
	}
	if math.IsNaN(f) {
		return nil, nil
	}
	if math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, &models.SchemaError{Table: table, Column: col, Value: v, Reason: "дробное значение суррогатного ключа"}
	}
	// 1<<63 уже не помещается в int64
	if f >= 1<<63 || f < -(1<<63) {
		return nil, &models.SchemaError{Table: table, Column: col, Value: v, Reason: "значение суррогатного ключа вне диапазона int64"}
	}
	n := int64(f)
	return &n, nil
}

// numeric принимает только числовые JSON-значения, строки не допускаются
func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

// TruncateToMicros отбрасывает точность ниже микросекунды
func TruncateToMicros(t time.Time) time.Time {
	return t.Truncate(time.Microsecond)
}

// TimestampParser разбирает метки времени из страниц экстрактора.
// Неразобранные и усечённые значения не логируются построчно, а считаются.
type TimestampParser struct {
	formats []string

	mu        sync.Mutex
	malformed int
	truncated int
}

// NewTimestampParser создает новый экземпляр TimestampParser
func NewTimestampParser(formats []string) *TimestampParser {
	return &TimestampParser{formats: formats}
}

// Parse возвращает время в UTC с точностью до микросекунды или nil
func (p *TimestampParser) Parse(v any) *time.Time {
	t, ok := p.parse(v)
	if !ok {
		return nil
	}
	t = t.UTC()
	if t.Nanosecond()%int(time.Microsecond) != 0 {
		p.mu.Lock()
		p.truncated++
		p.mu.Unlock()
		t = TruncateToMicros(t)
	}
	return &t
}

func (p *TimestampParser) parse(v any) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range p.formats {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		if n := json.Number(s); isNumber(n) {
			return p.parse(n)
		}
	default:
		// числа трактуются как миллисекунды Unix
		if ms, ok := numeric(x); ok {
			if math.IsNaN(ms) {
				return time.Time{}, false
			}
			if !math.IsInf(ms, 0) {
				return time.UnixMicro(int64(math.Round(ms * 1000))), true
			}
		}
	}
	p.mu.Lock()
	p.malformed++
	p.mu.Unlock()
	return time.Time{}, false
}

func isNumber(n json.Number) bool {
	_, err := n.Float64()
	return err == nil
}

// Malformed возвращает число неразобранных значений
func (p *TimestampParser) Malformed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.malformed
}

// Truncated возвращает число значений, усечённых до микросекунд
func (p *TimestampParser) Truncated() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.truncated
}

// WorkspaceResolution показывает, как была разрешена рабочая область
type WorkspaceResolution int

const (
	WorkspaceUnresolved WorkspaceResolution = iota
	WorkspaceByID
	WorkspaceByName
)

// SafeWorkspaceLookup разрешает workspace_sk: точное совпадение идентификатора,
// затем точное совпадение имени, иначе UnknownSK
func SafeWorkspaceLookup(id, name string, idx *WorkspaceIndex) (int64, WorkspaceResolution) {
	if idx == nil {
		return models.UnknownSK, WorkspaceUnresolved
	}
	if id != "" {
		if sk, ok := idx.byID[id]; ok {
			return sk, WorkspaceByID
		}
	}
	if name != "" {
		if sk, ok := idx.byName[name]; ok {
			return sk, WorkspaceByName
		}
	}
	return models.UnknownSK, WorkspaceUnresolved
}
