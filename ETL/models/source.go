package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record представляет один JSON-объект из страницы экстрактора.
// Набор полей зависит от источника, поэтому доступ к ним идёт только через
// типизированные методы с явным списком псевдонимов.
type Record map[string]any

// Field описывает поле источника и его альтернативные имена
type Field struct {
	Name    string
	Aliases []string
}

// Names возвращает основное имя и все псевдонимы поля
func (f Field) Names() []string {
	return append([]string{f.Name}, f.Aliases...)
}

// Raw возвращает первое непустое значение поля среди его имён
func (r Record) Raw(f Field) (any, bool) {
	for _, name := range f.Names() {
		if v, ok := r[name]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// String возвращает значение поля в виде строки ("" если поле отсутствует)
func (r Record) String(f Field) string {
	v, ok := r.Raw(f)
	if !ok {
		return ""
	}
	return stringify(v)
}

// OptString возвращает nil для отсутствующего или пустого поля
func (r Record) OptString(f Field) *string {
	s := r.String(f)
	if s == "" {
		return nil
	}
	return &s
}

// OptFloat читает числовое поле. Второй результат равен false, если поле
// присутствует, но не является числом.
func (r Record) OptFloat(f Field) (*float64, bool) {
	v, ok := r.Raw(f)
	if !ok {
		return nil, true
	}
	n, ok := ToFloat(v)
	if !ok {
		return nil, false
	}
	if math.IsNaN(n) {
		return nil, true
	}
	return &n, true
}

// ToFloat приводит JSON-значение к float64
func ToFloat(v any) (float64, bool) {
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
		n, err := x.Float64()
		return n, err == nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return math.NaN(), true
		}
		n, err := strconv.ParseFloat(s, 64)
		return n, err == nil
	}
	return 0, false
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Схемы полей для каждого типа источника

// ActivityEventFields перечисляет поля записи журнала активности
var ActivityEventFields = struct {
	ActivityID    Field
	EntityID      Field
	EntityType    Field
	EntityName    Field
	ActivityType  Field
	StartTime     Field
	Status        Field
	SubmittedBy   Field
	WorkspaceID   Field
	WorkspaceName Field
}{
	ActivityID:    Field{"activity_id", []string{"Id", "ActivityId"}},
	EntityID:      Field{"entity_id", []string{"item_id", "ItemId", "ObjectId", "ArtifactId"}},
	EntityType:    Field{"entity_type", []string{"item_type", "ItemType", "ObjectType", "ArtifactKind"}},
	EntityName:    Field{"entity_name", []string{"item_name", "ItemName", "ObjectDisplayName", "ArtifactName"}},
	ActivityType:  Field{"activity_type", []string{"activity", "Activity", "Operation"}},
	StartTime:     Field{"start_time", []string{"creation_time", "CreationTime"}},
	Status:        Field{"status", []string{"Status"}},
	SubmittedBy:   Field{"submitted_by", []string{"user_id", "UserId", "UserKey"}},
	WorkspaceID:   Field{"workspace_id", []string{"WorkspaceId", "WorkSpaceId"}},
	WorkspaceName: Field{"workspace_name", []string{"WorkspaceName", "WorkSpaceName"}},
}

// JobRecordFields перечисляет поля записи истории запусков
var JobRecordFields = struct {
	JobID           Field
	EntityID        Field
	EntityType      Field
	EntityName      Field
	JobType         Field
	StartTime       Field
	EndTime         Field
	Status          Field
	FailureReason   Field
	DurationSeconds Field
	SubmittedBy     Field
	WorkspaceID     Field
	WorkspaceName   Field
}{
	JobID:           Field{"job_id", []string{"id", "jobInstanceId"}},
	EntityID:        Field{"entity_id", []string{"item_id", "itemId"}},
	EntityType:      Field{"entity_type", []string{"item_type", "itemType"}},
	EntityName:      Field{"entity_name", []string{"item_name", "itemName"}},
	JobType:         Field{"job_type", []string{"jobType", "invoke_type", "invokeType"}},
	StartTime:       Field{"start_time", []string{"startTimeUtc"}},
	EndTime:         Field{"end_time", []string{"endTimeUtc"}},
	Status:          Field{"status", []string{"Status"}},
	FailureReason:   Field{"failure_reason", []string{"failureReason"}},
	DurationSeconds: Field{"duration_seconds", []string{"durationSeconds"}},
	SubmittedBy:     Field{"submitted_by", []string{"executing_principal_id", "executingPrincipalId"}},
	WorkspaceID:     Field{"workspace_id", []string{"workspaceId"}},
	WorkspaceName:   Field{"workspace_name", []string{"workspaceName"}},
}

// WorkspaceFields перечисляет поля инвентаря рабочих областей
var WorkspaceFields = struct {
	WorkspaceID   Field
	WorkspaceName Field
	WorkspaceType Field
	CapacityID    Field
}{
	WorkspaceID:   Field{"workspace_id", []string{"id"}},
	WorkspaceName: Field{"workspace_name", []string{"name", "displayName"}},
	WorkspaceType: Field{"workspace_type", []string{"type"}},
	CapacityID:    Field{"capacity_id", []string{"capacityId"}},
}

// KnownActivityFieldNames возвращает множество имён, которые не попадают в Metadata
func KnownActivityFieldNames() map[string]bool {
	f := ActivityEventFields
	known := make(map[string]bool)
	for _, field := range []Field{f.ActivityID, f.EntityID, f.EntityType, f.EntityName, f.ActivityType,
		f.StartTime, f.Status, f.SubmittedBy, f.WorkspaceID, f.WorkspaceName} {
		for _, name := range field.Names() {
			known[name] = true
		}
	}
	return known
}

// ActivityEvent представляет запись журнала аудита
type ActivityEvent struct {
	ActivityID    *string
	EntityID      string
	EntityType    string
	EntityName    string
	ActivityType  string
	StartTime     *time.Time
	Status        string
	SubmittedBy   string
	WorkspaceID   string
	WorkspaceName string
	Metadata      map[string]string
}

// JobRecord представляет запись истории выполнения задания
type JobRecord struct {
	JobID           *string
	EntityID        string
	EntityType      string
	EntityName      string
	JobType         string
	StartTime       *time.Time
	EndTime         *time.Time
	Status          string
	FailureReason   *string
	DurationSeconds *float64
	SubmittedBy     string
	WorkspaceID     string
	WorkspaceName   string
}

// MatchTime возвращает время сопоставления: start_time, а для
// упавших заданий без start_time - end_time
func (j JobRecord) MatchTime() (*time.Time, bool) {
	if j.StartTime != nil {
		return j.StartTime, false
	}
	return j.EndTime, j.EndTime != nil
}

// WorkspaceInfo представляет запись инвентаря рабочих областей
type WorkspaceInfo struct {
	WorkspaceID   string
	WorkspaceName string
	WorkspaceType string
	CapacityID    string
}

// ExtractedData содержит данные, прочитанные из входного каталога
type ExtractedData struct {
	Activities []ActivityEvent
	Jobs       []JobRecord
	Workspaces []WorkspaceInfo

	// Enriched заполняется, если во входном каталоге уже лежит результат слияния
	Enriched []EnrichedActivity

	DuplicatesDropped int
	Files             []string
}

// Статусы, которые считаются неуспешными
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
	StatusError     = "error"
)

var statusAliases = map[string]string{
	"completed": StatusSucceeded,
	"success":   StatusSucceeded,
	"canceled":  StatusCancelled,
}

// NormalizeStatus приводит статус к нижнему регистру и каноническому написанию
func NormalizeStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	if alias, ok := statusAliases[s]; ok {
		return alias
	}
	return s
}

// IsFailedStatus возвращает true только для failed, cancelled и error
func IsFailedStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusFailed, StatusCancelled, StatusError:
		return true
	}
	return false
}
