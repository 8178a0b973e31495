package models

import "time"

// Источник обогащённой записи
const (
	SourceActivity = "activity"
	SourceJob      = "job"
	SourceMerged   = "merged"
)

// EnrichedActivity - результат Smart Merge, основная единица системы.
// RecordCount всегда равен 1: activity_id чаще всего пуст и не может
// использоваться для подсчёта.
type EnrichedActivity struct {
	ActivityID      *string
	JobID           *string
	Source          string
	EntityID        string
	EntityType      string
	EntityName      string
	ActivityType    string
	StartTime       *time.Time
	EndTime         *time.Time
	Status          string
	SubmittedBy     string
	WorkspaceID     string
	WorkspaceName   string
	DurationSeconds *float64
	FailureReason   *string
	RecordCount     int64
	Metadata        map[string]string
}

// EffectiveTime возвращает start_time, а при его отсутствии end_time
func (e EnrichedActivity) EffectiveTime() *time.Time {
	if e.StartTime != nil {
		return e.StartTime
	}
	return e.EndTime
}

// EnrichedFields перечисляет колонки уже обогащённого входа
var EnrichedFields = struct {
	ActivityID      Field
	JobID           Field
	Source          Field
	EntityID        Field
	EntityType      Field
	EntityName      Field
	ActivityType    Field
	StartTime       Field
	EndTime         Field
	Status          Field
	SubmittedBy     Field
	WorkspaceID     Field
	WorkspaceName   Field
	DurationSeconds Field
	FailureReason   Field
	RecordCount     Field
}{
	ActivityID:      Field{"activity_id", nil},
	JobID:           Field{"job_id", nil},
	Source:          Field{"source", nil},
	EntityID:        Field{"entity_id", []string{"item_id"}},
	EntityType:      Field{"entity_type", []string{"item_type"}},
	EntityName:      Field{"entity_name", []string{"item_name"}},
	ActivityType:    Field{"activity_type", nil},
	StartTime:       Field{"start_time", nil},
	EndTime:         Field{"end_time", nil},
	Status:          Field{"status", nil},
	SubmittedBy:     Field{"submitted_by", nil},
	WorkspaceID:     Field{"workspace_id", nil},
	WorkspaceName:   Field{"workspace_name", nil},
	DurationSeconds: Field{"duration_seconds", nil},
	FailureReason:   Field{"failure_reason", nil},
	RecordCount:     Field{"record_count", nil},
}

// ToRecord преобразует обогащённую запись в JSON-объект для режима merge
func (e EnrichedActivity) ToRecord() Record {
	rec := Record{
		"source":         e.Source,
		"entity_id":      e.EntityID,
		"entity_type":    e.EntityType,
		"entity_name":    e.EntityName,
		"activity_type":  e.ActivityType,
		"status":         e.Status,
		"submitted_by":   e.SubmittedBy,
		"workspace_id":   e.WorkspaceID,
		"workspace_name": e.WorkspaceName,
		"record_count":   e.RecordCount,
	}
	if e.ActivityID != nil {
		rec["activity_id"] = *e.ActivityID
	}
	if e.JobID != nil {
		rec["job_id"] = *e.JobID
	}
	if e.StartTime != nil {
		rec["start_time"] = e.StartTime.UTC().Format(time.RFC3339Nano)
	}
	if e.EndTime != nil {
		rec["end_time"] = e.EndTime.UTC().Format(time.RFC3339Nano)
	}
	if e.DurationSeconds != nil {
		rec["duration_seconds"] = *e.DurationSeconds
	}
	if e.FailureReason != nil {
		rec["failure_reason"] = *e.FailureReason
	}
	for k, v := range e.Metadata {
		if _, taken := rec[k]; !taken {
			rec[k] = v
		}
	}
	return rec
}
