package load

import (
	"time"

	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
)

// Строки parquet-файлов. Суррогатные ключи - OPTIONAL INT64, метки времени -
// TIMESTAMP_MICROS: так колонка ключа никогда не становится вещественной.

// DimDateRow - строка dim_date.parquet
type DimDateRow struct {
	DateSK     *int64 `parquet:"name=date_sk, type=INT64, repetitiontype=OPTIONAL"`
	FullDate   *int32 `parquet:"name=full_date, type=INT32, convertedtype=DATE, repetitiontype=OPTIONAL"`
	Year       int32  `parquet:"name=year, type=INT32"`
	Quarter    int32  `parquet:"name=quarter, type=INT32"`
	Month      int32  `parquet:"name=month, type=INT32"`
	MonthName  string `parquet:"name=month_name, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	WeekOfYear int32  `parquet:"name=week_of_year, type=INT32"`
	DayOfMonth int32  `parquet:"name=day_of_month, type=INT32"`
	DayOfWeek  int32  `parquet:"name=day_of_week, type=INT32"`
	DayName    string `parquet:"name=day_name, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	IsWeekend  bool   `parquet:"name=is_weekend, type=BOOLEAN"`
}

// DimTimeRow - строка dim_time.parquet
type DimTimeRow struct {
	TimeSK    *int64 `parquet:"name=time_sk, type=INT64, repetitiontype=OPTIONAL"`
	Hour      int32  `parquet:"name=hour, type=INT32"`
	Minute    int32  `parquet:"name=minute, type=INT32"`
	TimeLabel string `parquet:"name=time_label, type=BYTE_ARRAY, convertedtype=UTF8"`
	DayPeriod string `parquet:"name=day_period, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
}

// DimWorkspaceRow - строка dim_workspace.parquet
type DimWorkspaceRow struct {
	WorkspaceSK   *int64 `parquet:"name=workspace_sk, type=INT64, repetitiontype=OPTIONAL"`
	WorkspaceID   string `parquet:"name=workspace_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	WorkspaceName string `parquet:"name=workspace_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	WorkspaceType string `parquet:"name=workspace_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	CapacityID    string `parquet:"name=capacity_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	FirstSeenAt   *int64 `parquet:"name=first_seen_at, type=INT64, convertedtype=TIMESTAMP_MICROS, repetitiontype=OPTIONAL"`
}

// DimItemRow - строка dim_item.parquet
type DimItemRow struct {
	ItemSK       *int64 `parquet:"name=item_sk, type=INT64, repetitiontype=OPTIONAL"`
	ItemID       string `parquet:"name=item_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ItemName     string `parquet:"name=item_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	ItemType     string `parquet:"name=item_type, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ItemCategory string `parquet:"name=item_category, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	WorkspaceID  string `parquet:"name=workspace_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	FirstSeenAt  *int64 `parquet:"name=first_seen_at, type=INT64, convertedtype=TIMESTAMP_MICROS, repetitiontype=OPTIONAL"`
}

// DimUserRow - строка dim_user.parquet
type DimUserRow struct {
	UserSK        *int64 `parquet:"name=user_sk, type=INT64, repetitiontype=OPTIONAL"`
	UserPrincipal string `parquet:"name=user_principal, type=BYTE_ARRAY, convertedtype=UTF8"`
	UserType      string `parquet:"name=user_type, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	UserDomain    string `parquet:"name=user_domain, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	FirstSeenAt   *int64 `parquet:"name=first_seen_at, type=INT64, convertedtype=TIMESTAMP_MICROS, repetitiontype=OPTIONAL"`
}

// DimActivityTypeRow - строка dim_activity_type.parquet
type DimActivityTypeRow struct {
	ActivityTypeSK   *int64 `parquet:"name=activity_type_sk, type=INT64, repetitiontype=OPTIONAL"`
	ActivityType     string `parquet:"name=activity_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	ActivityCategory string `parquet:"name=activity_category, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// DimStatusRow - строка dim_status.parquet
type DimStatusRow struct {
	StatusSK       *int64 `parquet:"name=status_sk, type=INT64, repetitiontype=OPTIONAL"`
	Status         string `parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8"`
	StatusCategory string `parquet:"name=status_category, type=BYTE_ARRAY, convertedtype=UTF8"`
	IsFailure      bool   `parquet:"name=is_failure, type=BOOLEAN"`
}

// FactActivityRow - строка fact_activity.parquet
type FactActivityRow struct {
	DateSK          *int64   `parquet:"name=date_sk, type=INT64, repetitiontype=OPTIONAL"`
	TimeSK          *int64   `parquet:"name=time_sk, type=INT64, repetitiontype=OPTIONAL"`
	WorkspaceSK     *int64   `parquet:"name=workspace_sk, type=INT64, repetitiontype=OPTIONAL"`
	ItemSK          *int64   `parquet:"name=item_sk, type=INT64, repetitiontype=OPTIONAL"`
	UserSK          *int64   `parquet:"name=user_sk, type=INT64, repetitiontype=OPTIONAL"`
	ActivityTypeSK  *int64   `parquet:"name=activity_type_sk, type=INT64, repetitiontype=OPTIONAL"`
	StatusSK        *int64   `parquet:"name=status_sk, type=INT64, repetitiontype=OPTIONAL"`
	DurationSeconds *float64 `parquet:"name=duration_seconds, type=DOUBLE, repetitiontype=OPTIONAL"`
	RecordCount     int64    `parquet:"name=record_count, type=INT64"`
	IsFailed        bool     `parquet:"name=is_failed, type=BOOLEAN"`
}

// FactDailyMetricsRow - строка fact_daily_metrics.parquet
type FactDailyMetricsRow struct {
	DateSK               *int64   `parquet:"name=date_sk, type=INT64, repetitiontype=OPTIONAL"`
	WorkspaceSK          *int64   `parquet:"name=workspace_sk, type=INT64, repetitiontype=OPTIONAL"`
	ActivityTypeSK       *int64   `parquet:"name=activity_type_sk, type=INT64, repetitiontype=OPTIONAL"`
	TotalActivities      int64    `parquet:"name=total_activities, type=INT64"`
	FailedActivities     int64    `parquet:"name=failed_activities, type=INT64"`
	SucceededActivities  int64    `parquet:"name=succeeded_activities, type=INT64"`
	SuccessRate          float64  `parquet:"name=success_rate, type=DOUBLE"`
	DistinctUsers        int64    `parquet:"name=distinct_users, type=INT64"`
	DistinctItems        int64    `parquet:"name=distinct_items, type=INT64"`
	DurationCount        int64    `parquet:"name=duration_count, type=INT64"`
	TotalDurationSeconds float64  `parquet:"name=total_duration_seconds, type=DOUBLE"`
	AvgDurationSeconds   *float64 `parquet:"name=avg_duration_seconds, type=DOUBLE, repetitiontype=OPTIONAL"`
	MaxDurationSeconds   *float64 `parquet:"name=max_duration_seconds, type=DOUBLE, repetitiontype=OPTIONAL"`
}

func skPtr(v int64) *int64 {
	return &v
}

// requireSK возвращает ключ или SchemaError, если в сохранённой колонке null
func requireSK(table, column string, v *int64) (int64, error) {
	if v == nil {
		return 0, &models.SchemaError{Table: table, Column: column, Value: nil, Reason: "null в колонке суррогатного ключа"}
	}
	return *v, nil
}

func toMicros(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.UnixMicro()
	return &v
}

func fromMicros(v *int64) *time.Time {
	if v == nil {
		return nil
	}
	t := time.UnixMicro(*v).UTC()
	return &t
}

func toEpochDays(t time.Time) *int32 {
	if t.IsZero() {
		return nil
	}
	days := int32(t.UTC().Unix() / 86400)
	return &days
}

func fromEpochDays(v *int32) time.Time {
	if v == nil {
		return time.Time{}
	}
	return time.Unix(int64(*v)*86400, 0).UTC()
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}
