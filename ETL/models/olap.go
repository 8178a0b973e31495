package models

import (
	"time"
)

// UnknownSK - зарезервированный суррогатный ключ для неразрешённых ссылок
const UnknownSK int64 = -1

// UnknownMember - значение атрибутов у строки измерения с ключом UnknownSK
const UnknownMember = "Unknown"

// DateDimension представляет измерение дат (ключ YYYYMMDD)
type DateDimension struct {
	DateSK     int64
	FullDate   time.Time
	Year       int
	Quarter    int
	Month      int
	MonthName  string
	WeekOfYear int
	DayOfMonth int
	DayOfWeek  int
	DayName    string
	IsWeekend  bool
}

// TimeDimension представляет измерение времени суток с точностью до минуты (ключ HHMM)
type TimeDimension struct {
	TimeSK    int64
	Hour      int
	Minute    int
	TimeLabel string
	DayPeriod string
}

// WorkspaceDimension представляет измерение рабочих областей
type WorkspaceDimension struct {
	WorkspaceSK   int64
	WorkspaceID   string
	WorkspaceName string
	WorkspaceType string
	CapacityID    string
	FirstSeenAt   *time.Time
}

// ItemDimension представляет измерение элементов (ноутбуки, пайплайны, отчёты)
type ItemDimension struct {
	ItemSK       int64
	ItemID       string
	ItemName     string
	ItemType     string
	ItemCategory string
	WorkspaceID  string
	FirstSeenAt  *time.Time
}

// UserDimension представляет измерение пользователей и сервисных принципалов
type UserDimension struct {
	UserSK        int64
	UserPrincipal string
	UserType      string
	UserDomain    string
	FirstSeenAt   *time.Time
}

// ActivityTypeDimension представляет измерение типов активности
type ActivityTypeDimension struct {
	ActivityTypeSK   int64
	ActivityType     string
	ActivityCategory string
}

// StatusDimension представляет измерение статусов
type StatusDimension struct {
	StatusSK       int64
	Status         string
	StatusCategory string
	IsFailure      bool
}

// ActivityFact представляет строку fact_activity: только ключи и меры
type ActivityFact struct {
	DateSK          int64
	TimeSK          int64
	WorkspaceSK     int64
	ItemSK          int64
	UserSK          int64
	ActivityTypeSK  int64
	StatusSK        int64
	DurationSeconds *float64
	RecordCount     int64
	IsFailed        bool
}

// DailyMetricsFact представляет предагрегат по (дата, рабочая область, тип активности)
type DailyMetricsFact struct {
	DateSK               int64
	WorkspaceSK          int64
	ActivityTypeSK       int64
	TotalActivities      int64
	FailedActivities     int64
	SucceededActivities  int64
	SuccessRate          float64
	DistinctUsers        int64
	DistinctItems        int64
	DurationCount        int64
	TotalDurationSeconds float64
	AvgDurationSeconds   *float64
	MaxDurationSeconds   *float64
}
