package models

import (
	"time"
)

// BuildRunLog представляет запись о запуске сборки
type BuildRunLog struct {
	ID                   int64      `json:"id"`
	RunID                string     `json:"run_id"`
	StartTime            time.Time  `json:"start_time"`
	EndTime              *time.Time `json:"end_time,omitempty"`
	Mode                 string     `json:"mode"`
	Status               string     `json:"status"` // "success", "failed", "in_progress"
	InputRows            int        `json:"input_rows"`
	LoadedRows           int        `json:"loaded_rows"`
	FactRowsWritten      int        `json:"fact_rows_written"`
	HighWaterMark        *time.Time `json:"high_water_mark,omitempty"`
	ErrorMessage         string     `json:"error_message,omitempty"`
	ExecutionTimeSeconds float64    `json:"execution_time_seconds"`
}

// BuildRunRepository представляет репозиторий журнала сборок
type BuildRunRepository interface {
	// CreateRunLogTable создает таблицу журнала, если она не существует
	CreateRunLogTable() error

	// CreateLogEntry создает новую запись о запуске
	CreateLogEntry(runID string, startTime time.Time, mode string) (int64, error)

	// UpdateLogEntrySuccess обновляет запись при успешном завершении сборки
	UpdateLogEntrySuccess(id int64, endTime time.Time, report *BuildReport) error

	// UpdateLogEntryFailure обновляет запись при неудачном завершении сборки
	UpdateLogEntryFailure(id int64, endTime time.Time, report *BuildReport, errorMessage string) error

	// GetLastSuccessfulRun получает последний успешный запуск (nil, если его нет)
	GetLastSuccessfulRun() (*BuildRunLog, error)

	// GetRecentRuns получает последние запуски, новые первыми
	GetRecentRuns(limit int) ([]BuildRunLog, error)

	// GetStateMonitor получает сводку по журналу
	GetStateMonitor() (*BuildStateMonitor, error)
}

// BuildStateMonitor предоставляет информацию о текущем состоянии сборок
type BuildStateMonitor struct {
	LastSuccessfulRun       *BuildRunLog `json:"last_successful_run"`
	LastFailedRun           *BuildRunLog `json:"last_failed_run,omitempty"`
	CurrentRun              *BuildRunLog `json:"current_run,omitempty"`
	TotalSuccessfulRuns     int          `json:"total_successful_runs"`
	TotalFailedRuns         int          `json:"total_failed_runs"`
	AvgExecutionTimeSeconds float64      `json:"avg_execution_time_seconds"`
}
