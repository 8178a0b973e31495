package extractors

import (
	"fmt"

	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
	"github.com/LilVoxy/fabric_activity_etl/ETL/transform"
)

const enrichedTable = "enriched_activities"

// EnrichedExtractor читает результат слияния, сохранённый режимом merge
type EnrichedExtractor struct {
	parser *transform.TimestampParser
	known  map[string]bool
}

// NewEnrichedExtractor создает новый экземпляр EnrichedExtractor
func NewEnrichedExtractor(parser *transform.TimestampParser) *EnrichedExtractor {
	known := make(map[string]bool)
	f := models.EnrichedFields
	for _, field := range []models.Field{f.ActivityID, f.JobID, f.Source, f.EntityID, f.EntityType, f.EntityName,
		f.ActivityType, f.StartTime, f.EndTime, f.Status, f.SubmittedBy, f.WorkspaceID, f.WorkspaceName,
		f.DurationSeconds, f.FailureReason, f.RecordCount} {
		for _, name := range field.Names() {
			known[name] = true
		}
	}
	return &EnrichedExtractor{parser: parser, known: known}
}

// ExtractEnriched читает страницы и проверяет типы ключей и мер.
// Нарушение типов возвращает *models.SchemaError.
func (e *EnrichedExtractor) ExtractEnriched(paths []string) ([]models.EnrichedActivity, error) {
	var rows []models.EnrichedActivity
	for _, path := range paths {
		records, err := ReadPage(path)
		if err != nil {
			return nil, err
		}
		if err := transform.CoerceSurrogateKeys(enrichedTable, records); err != nil {
			return nil, fmt.Errorf("ошибка проверки ключей в %s: %w", path, err)
		}
		if err := transform.CoerceMeasures(enrichedTable, records); err != nil {
			return nil, fmt.Errorf("ошибка проверки мер в %s: %w", path, err)
		}
		for _, rec := range records {
			rows = append(rows, e.FromRecord(rec))
		}
	}
	return rows, nil
}

// FromRecord преобразует проверенный JSON-объект в EnrichedActivity
func (e *EnrichedExtractor) FromRecord(rec models.Record) models.EnrichedActivity {
	f := models.EnrichedFields
	startRaw, _ := rec.Raw(f.StartTime)
	endRaw, _ := rec.Raw(f.EndTime)

	row := models.EnrichedActivity{
		ActivityID:    rec.OptString(f.ActivityID),
		JobID:         rec.OptString(f.JobID),
		Source:        rec.String(f.Source),
		EntityID:      rec.String(f.EntityID),
		EntityType:    rec.String(f.EntityType),
		EntityName:    rec.String(f.EntityName),
		ActivityType:  rec.String(f.ActivityType),
		StartTime:     e.parser.Parse(startRaw),
		EndTime:       e.parser.Parse(endRaw),
		Status:        models.NormalizeStatus(rec.String(f.Status)),
		SubmittedBy:   rec.String(f.SubmittedBy),
		WorkspaceID:   rec.String(f.WorkspaceID),
		WorkspaceName: rec.String(f.WorkspaceName),
		FailureReason: rec.OptString(f.FailureReason),
		RecordCount:   1,
	}
	if d, ok := rec["duration_seconds"].(float64); ok {
		row.DurationSeconds = &d
	}
	if n, ok := rec["record_count"].(int64); ok {
		row.RecordCount = n
	}
	if row.Source == "" {
		switch {
		case row.ActivityID != nil && row.JobID != nil:
			row.Source = models.SourceMerged
		case row.JobID != nil:
			row.Source = models.SourceJob
		default:
			row.Source = models.SourceActivity
		}
	}

	for key := range rec {
		if e.known[key] {
			continue
		}
		if value := rec.String(models.Field{Name: key}); value != "" {
			if row.Metadata == nil {
				row.Metadata = make(map[string]string)
			}
			row.Metadata[key] = value
		}
	}
	return row
}
