package models

// Имена таблиц в выходном каталоге
const (
	TableDimDate          = "dim_date"
	TableDimTime          = "dim_time"
	TableDimWorkspace     = "dim_workspace"
	TableDimItem          = "dim_item"
	TableDimUser          = "dim_user"
	TableDimActivityType  = "dim_activity_type"
	TableDimStatus        = "dim_status"
	TableFactActivity     = "fact_activity"
	TableFactDailyMetrics = "fact_daily_metrics"
)

// AllTables перечисляет таблицы в порядке записи: сначала измерения, потом факты
var AllTables = []string{
	TableDimDate,
	TableDimTime,
	TableDimWorkspace,
	TableDimItem,
	TableDimUser,
	TableDimActivityType,
	TableDimStatus,
	TableFactActivity,
	TableFactDailyMetrics,
}

// StarSchema содержит все таблицы звезды
type StarSchema struct {
	// Измерения
	Dates         []DateDimension
	Times         []TimeDimension
	Workspaces    []WorkspaceDimension
	Items         []ItemDimension
	Users         []UserDimension
	ActivityTypes []ActivityTypeDimension
	Statuses      []StatusDimension

	// Факты
	Activities   []ActivityFact
	DailyMetrics []DailyMetricsFact
}

// RowCounts возвращает количество строк по каждой таблице
func (s *StarSchema) RowCounts() map[string]int {
	return map[string]int{
		TableDimDate:          len(s.Dates),
		TableDimTime:          len(s.Times),
		TableDimWorkspace:     len(s.Workspaces),
		TableDimItem:          len(s.Items),
		TableDimUser:          len(s.Users),
		TableDimActivityType:  len(s.ActivityTypes),
		TableDimStatus:        len(s.Statuses),
		TableFactActivity:     len(s.Activities),
		TableFactDailyMetrics: len(s.DailyMetrics),
	}
}
