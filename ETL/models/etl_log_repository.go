package models

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Диалекты журнала сборок
const (
	DialectMySQL  = "mysql"
	DialectSQLite = "sqlite"
)

// SQLBuildRunRepository реализация BuildRunRepository для MySQL и SQLite.
// Время хранится как микросекунды Unix, чтобы оба драйвера читали его одинаково.
type SQLBuildRunRepository struct {
	db      *sql.DB
	dialect string
}

// NewSQLBuildRunRepository создает новый экземпляр SQLBuildRunRepository
func NewSQLBuildRunRepository(db *sql.DB, dialect string) *SQLBuildRunRepository {
	return &SQLBuildRunRepository{
		db:      db,
		dialect: dialect,
	}
}

// CreateRunLogTable создает таблицу журнала сборок, если она не существует
func (r *SQLBuildRunRepository) CreateRunLogTable() error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if r.dialect == DialectMySQL {
		idColumn = "id BIGINT AUTO_INCREMENT PRIMARY KEY"
	}

	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS etl_run_log (
		%s,
		run_id VARCHAR(64) NOT NULL,
		start_time BIGINT NOT NULL,
		end_time BIGINT NULL,
		mode VARCHAR(16) NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'in_progress',
		input_rows INT DEFAULT 0,
		loaded_rows INT DEFAULT 0,
		fact_rows_written INT DEFAULT 0,
		high_water_mark BIGINT NULL,
		error_message TEXT,
		execution_time_seconds DOUBLE DEFAULT 0
	)`, idColumn)

	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("ошибка при создании таблицы etl_run_log: %w", err)
	}
	return nil
}

// CreateLogEntry создает новую запись о запуске сборки
func (r *SQLBuildRunRepository) CreateLogEntry(runID string, startTime time.Time, mode string) (int64, error) {
	result, err := r.db.Exec(
		`INSERT INTO etl_run_log (run_id, start_time, mode, status) VALUES (?, ?, ?, 'in_progress')`,
		runID, startTime.UnixMicro(), mode,
	)
	if err != nil {
		return 0, fmt.Errorf("ошибка при создании записи о запуске сборки: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ошибка при получении ID созданной записи: %w", err)
	}
	return id, nil
}

// UpdateLogEntrySuccess обновляет запись при успешном завершении сборки
func (r *SQLBuildRunRepository) UpdateLogEntrySuccess(id int64, endTime time.Time, report *BuildReport) error {
	executionTime, err := r.executionTime(id, endTime)
	if err != nil {
		return err
	}

	var hwm sql.NullInt64
	if report.HighWaterMark != nil {
		hwm = sql.NullInt64{Int64: report.HighWaterMark.UnixMicro(), Valid: true}
	}

	_, err = r.db.Exec(`
	UPDATE etl_run_log
	SET
		end_time = ?,
		mode = ?,
		status = 'success',
		input_rows = ?,
		loaded_rows = ?,
		fact_rows_written = ?,
		high_water_mark = ?,
		execution_time_seconds = ?
	WHERE id = ?`,
		endTime.UnixMicro(),
		report.Mode,
		report.InputRows,
		report.LoadedRows,
		report.RowsWritten[TableFactActivity],
		hwm,
		executionTime,
		id,
	)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении записи о запуске сборки: %w", err)
	}
	return nil
}

// UpdateLogEntryFailure обновляет запись при неудачном завершении сборки
func (r *SQLBuildRunRepository) UpdateLogEntryFailure(id int64, endTime time.Time, report *BuildReport, errorMessage string) error {
	executionTime, err := r.executionTime(id, endTime)
	if err != nil {
		return err
	}

	mode := ""
	inputRows := 0
	if report != nil {
		mode = report.Mode
		inputRows = report.InputRows
	}

	_, err = r.db.Exec(`
	UPDATE etl_run_log
	SET
		end_time = ?,
		mode = CASE WHEN ? = '' THEN mode ELSE ? END,
		status = 'failed',
		input_rows = ?,
		error_message = ?,
		execution_time_seconds = ?
	WHERE id = ?`,
		endTime.UnixMicro(), mode, mode, inputRows, errorMessage, executionTime, id,
	)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении записи о запуске сборки: %w", err)
	}
	return nil
}

func (r *SQLBuildRunRepository) executionTime(id int64, endTime time.Time) (float64, error) {
	var startMicros int64
	err := r.db.QueryRow("SELECT start_time FROM etl_run_log WHERE id = ?", id).Scan(&startMicros)
	if err != nil {
		return 0, fmt.Errorf("ошибка при получении времени начала сборки: %w", err)
	}
	return endTime.Sub(time.UnixMicro(startMicros)).Seconds(), nil
}

const runLogColumns = `id, run_id, start_time, end_time, mode, status, input_rows, loaded_rows,
	fact_rows_written, high_water_mark, COALESCE(error_message, ''), execution_time_seconds`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunLog(row rowScanner) (*BuildRunLog, error) {
	var (
		log                BuildRunLog
		startMicros        int64
		endMicros, hwmMics sql.NullInt64
	)
	err := row.Scan(
		&log.ID, &log.RunID, &startMicros, &endMicros, &log.Mode, &log.Status,
		&log.InputRows, &log.LoadedRows, &log.FactRowsWritten, &hwmMics,
		&log.ErrorMessage, &log.ExecutionTimeSeconds,
	)
	if err != nil {
		return nil, err
	}
	log.StartTime = time.UnixMicro(startMicros).UTC()
	if endMicros.Valid {
		t := time.UnixMicro(endMicros.Int64).UTC()
		log.EndTime = &t
	}
	if hwmMics.Valid {
		t := time.UnixMicro(hwmMics.Int64).UTC()
		log.HighWaterMark = &t
	}
	return &log, nil
}

func (r *SQLBuildRunRepository) lastRunWithStatus(status string) (*BuildRunLog, error) {
	row := r.db.QueryRow(
		"SELECT "+runLogColumns+" FROM etl_run_log WHERE status = ? ORDER BY id DESC LIMIT 1",
		status,
	)
	log, err := scanRunLog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка при получении запуска со статусом %s: %w", status, err)
	}
	return log, nil
}

// GetLastSuccessfulRun получает информацию о последнем успешном запуске
func (r *SQLBuildRunRepository) GetLastSuccessfulRun() (*BuildRunLog, error) {
	return r.lastRunWithStatus(BuildStatusSuccess)
}

// GetRecentRuns получает последние запуски сборки
func (r *SQLBuildRunRepository) GetRecentRuns(limit int) ([]BuildRunLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query("SELECT "+runLogColumns+" FROM etl_run_log ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении журнала сборок: %w", err)
	}
	defer rows.Close()

	var logs []BuildRunLog
	for rows.Next() {
		log, err := scanRunLog(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка при сканировании записи о запуске: %w", err)
		}
		logs = append(logs, *log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка после итерации по записям о запусках: %w", err)
	}
	return logs, nil
}

// GetStateMonitor получает сводку по журналу сборок
func (r *SQLBuildRunRepository) GetStateMonitor() (*BuildStateMonitor, error) {
	lastSuccessful, err := r.GetLastSuccessfulRun()
	if err != nil {
		return nil, err
	}
	lastFailed, err := r.lastRunWithStatus(BuildStatusFailed)
	if err != nil {
		return nil, err
	}
	current, err := r.lastRunWithStatus(BuildStatusInProgress)
	if err != nil {
		return nil, err
	}

	var (
		totalSuccess, totalFailed sql.NullInt64
		avgExecution              sql.NullFloat64
	)
	err = r.db.QueryRow(`
		SELECT
			SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
			AVG(CASE WHEN status = 'success' THEN execution_time_seconds ELSE NULL END)
		FROM etl_run_log
	`).Scan(&totalSuccess, &totalFailed, &avgExecution)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении статистики сборок: %w", err)
	}

	return &BuildStateMonitor{
		LastSuccessfulRun:       lastSuccessful,
		LastFailedRun:           lastFailed,
		CurrentRun:              current,
		TotalSuccessfulRuns:     int(totalSuccess.Int64),
		TotalFailedRuns:         int(totalFailed.Int64),
		AvgExecutionTimeSeconds: avgExecution.Float64,
	}, nil
}
