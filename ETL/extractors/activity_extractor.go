package extractors

import (
	"sort"

	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
	"github.com/LilVoxy/fabric_activity_etl/ETL/transform"
)

// ActivityExtractor строит записи журнала активности из страниц
type ActivityExtractor struct {
	parser *transform.TimestampParser
	known  map[string]bool
}

// NewActivityExtractor создает новый экземпляр ActivityExtractor
func NewActivityExtractor(parser *transform.TimestampParser) *ActivityExtractor {
	return &ActivityExtractor{
		parser: parser,
		known:  models.KnownActivityFieldNames(),
	}
}

// FromRecord преобразует JSON-объект в ActivityEvent.
// Поля, которых нет в схеме, сохраняются в Metadata.
func (e *ActivityExtractor) FromRecord(rec models.Record) models.ActivityEvent {
	f := models.ActivityEventFields
	startRaw, _ := rec.Raw(f.StartTime)

	event := models.ActivityEvent{
		ActivityID:    rec.OptString(f.ActivityID),
		EntityID:      rec.String(f.EntityID),
		EntityType:    rec.String(f.EntityType),
		EntityName:    rec.String(f.EntityName),
		ActivityType:  rec.String(f.ActivityType),
		StartTime:     e.parser.Parse(startRaw),
		Status:        models.NormalizeStatus(rec.String(f.Status)),
		SubmittedBy:   rec.String(f.SubmittedBy),
		WorkspaceID:   rec.String(f.WorkspaceID),
		WorkspaceName: rec.String(f.WorkspaceName),
	}

	for key := range rec {
		if e.known[key] {
			continue
		}
		if value := rec.String(models.Field{Name: key}); value != "" {
			if event.Metadata == nil {
				event.Metadata = make(map[string]string)
			}
			event.Metadata[key] = value
		}
	}
	return event
}

// ExtractActivities читает страницы журнала активности и удаляет дубликаты
func (e *ActivityExtractor) ExtractActivities(paths []string) ([]models.ActivityEvent, int, error) {
	var events []models.ActivityEvent
	for _, path := range paths {
		records, err := ReadPage(path)
		if err != nil {
			return nil, 0, err
		}
		for _, rec := range records {
			events = append(events, e.FromRecord(rec))
		}
	}
	events, dropped := dedupe(events, activityKey)
	return events, dropped, nil
}

func activityKey(a models.ActivityEvent) string {
	if a.ActivityID != nil {
		return "id:" + *a.ActivityID
	}
	return contentKey(a.EntityID, a.ActivityType, timeKey(a.StartTime), a.SubmittedBy, a.Status, a.WorkspaceID, a.WorkspaceName, metadataKey(a.Metadata))
}

func metadataKey(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		parts = append(parts, k, m[k])
	}
	return contentKey(parts...)
}
