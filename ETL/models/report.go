package models

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"
)

// Режимы сборки
const (
	ModeFullRefresh = "full_refresh"
	ModeIncremental = "incremental"
)

// Статусы сборки
const (
	BuildStatusSuccess    = "success"
	BuildStatusFailed     = "failed"
	BuildStatusInProgress = "in_progress"
)

// MergeStats содержит счётчики Smart Merge
type MergeStats struct {
	Activities       int `json:"activities"`
	Jobs             int `json:"jobs"`
	Matched          int `json:"matched"`
	MatchedByEndTime int `json:"matched_by_end_time"`
	ActivityOnly     int `json:"activity_only"`
	JobOnly          int `json:"job_only"`
	UnmatchableJobs  int `json:"unmatchable_jobs"`
}

// QualityStats содержит счётчики проблем качества данных.
// Ни одна из них не прерывает сборку.
type QualityStats struct {
	DuplicatesDropped      int `json:"duplicates_dropped"`
	MalformedTimestamps    int `json:"malformed_timestamps"`
	TruncatedTimestamps    int `json:"truncated_timestamps"`
	WorkspacesByName       int `json:"workspaces_by_name"`
	UnresolvedWorkspaces   int `json:"unresolved_workspaces"`
	UnresolvedItems        int `json:"unresolved_items"`
	UnresolvedUsers        int `json:"unresolved_users"`
	UnknownDates           int `json:"unknown_dates"`
	JobsWithoutCompletion  int `json:"jobs_without_completion"`
	RowsAtOrBelowWatermark int `json:"rows_at_or_below_watermark"`
	UndatedRowsSkipped     int `json:"undated_rows_skipped"`
}

// BuildReport - итог сборки. Формируется всегда, даже если сборка упала.
type BuildReport struct {
	RunID                 string              `json:"run_id"`
	Mode                  string              `json:"mode"`
	Status                string              `json:"status"`
	FallbackToFull        bool                `json:"fallback_to_full"`
	StartedAt             time.Time           `json:"started_at"`
	FinishedAt            time.Time           `json:"finished_at"`
	PreviousHighWaterMark *time.Time          `json:"previous_high_water_mark,omitempty"`
	HighWaterMark         *time.Time          `json:"high_water_mark,omitempty"`
	InputRows             int                 `json:"input_rows"`
	LoadedRows            int                 `json:"loaded_rows"`
	RowsWritten           map[string]int      `json:"rows_written"`
	NewDimensionRows      map[string]int      `json:"new_dimension_rows"`
	Merge                 MergeStats          `json:"merge"`
	Quality               QualityStats        `json:"quality"`
	CoverageGaps          map[string][]string `json:"coverage_gaps,omitempty"`
	Warnings              []string            `json:"warnings,omitempty"`
	Error                 string              `json:"error,omitempty"`
}

// NewBuildReport создает пустой отчёт для запуска
func NewBuildReport(runID string, startedAt time.Time) *BuildReport {
	return &BuildReport{
		RunID:            runID,
		Status:           BuildStatusInProgress,
		StartedAt:        startedAt,
		RowsWritten:      make(map[string]int),
		NewDimensionRows: make(map[string]int),
		CoverageGaps:     make(map[string][]string),
	}
}

// AddCoverageGap запоминает ключ, для которого нет категории в таблице соответствий
func (r *BuildReport) AddCoverageGap(dimension, key string) {
	if r.CoverageGaps == nil {
		r.CoverageGaps = make(map[string][]string)
	}
	for _, existing := range r.CoverageGaps[dimension] {
		if existing == key {
			return
		}
	}
	r.CoverageGaps[dimension] = append(r.CoverageGaps[dimension], key)
	sort.Strings(r.CoverageGaps[dimension])
}

// Clone возвращает независимую копию отчёта
func (r *BuildReport) Clone() *BuildReport {
	if r == nil {
		return nil
	}
	c := *r
	c.PreviousHighWaterMark = cloneTime(r.PreviousHighWaterMark)
	c.HighWaterMark = cloneTime(r.HighWaterMark)
	c.RowsWritten = maps.Clone(r.RowsWritten)
	c.NewDimensionRows = maps.Clone(r.NewDimensionRows)
	if r.CoverageGaps != nil {
		c.CoverageGaps = make(map[string][]string, len(r.CoverageGaps))
		for dimension, keys := range r.CoverageGaps {
			c.CoverageGaps[dimension] = slices.Clone(keys)
		}
	}
	c.Warnings = slices.Clone(r.Warnings)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// AddWarning добавляет предупреждение в отчёт
func (r *BuildReport) AddWarning(format string, v ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, v...))
}

// Summary формирует итоговую сводку для оператора
func (r *BuildReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Сборка %s: режим=%s, статус=%s", r.RunID, r.Mode, r.Status)
	if r.FallbackToFull {
		b.WriteString(" (откат к полной перестройке)")
	}
	b.WriteString("\n")
	if r.HighWaterMark != nil {
		fmt.Fprintf(&b, "  high-water mark: %s\n", r.HighWaterMark.UTC().Format(time.RFC3339Nano))
	}
	fmt.Fprintf(&b, "  входных строк: %d, загружено: %d\n", r.InputRows, r.LoadedRows)

	tables := make([]string, 0, len(r.RowsWritten))
	for name := range r.RowsWritten {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	for _, name := range tables {
		fmt.Fprintf(&b, "  %-20s %d строк (новых в измерении: %d)\n", name, r.RowsWritten[name], r.NewDimensionRows[name])
	}

	m := r.Merge
	fmt.Fprintf(&b, "  merge: активностей=%d, заданий=%d, сопоставлено=%d (по end_time=%d), только задания=%d, без задания=%d, несопоставимых=%d\n",
		m.Activities, m.Jobs, m.Matched, m.MatchedByEndTime, m.JobOnly, m.ActivityOnly, m.UnmatchableJobs)

	q := r.Quality
	fmt.Fprintf(&b, "  качество: дубликатов=%d, битых дат=%d, усечённых дат=%d, workspace по имени=%d, неразрешённых workspace=%d, items=%d, users=%d, неизвестных дат=%d\n",
		q.DuplicatesDropped, q.MalformedTimestamps, q.TruncatedTimestamps, q.WorkspacesByName,
		q.UnresolvedWorkspaces, q.UnresolvedItems, q.UnresolvedUsers, q.UnknownDates)
	if q.RowsAtOrBelowWatermark > 0 || q.UndatedRowsSkipped > 0 {
		fmt.Fprintf(&b, "  пропущено инкрементом: не новее watermark=%d, без даты=%d\n", q.RowsAtOrBelowWatermark, q.UndatedRowsSkipped)
	}

	dims := make([]string, 0, len(r.CoverageGaps))
	for dim := range r.CoverageGaps {
		dims = append(dims, dim)
	}
	sort.Strings(dims)
	for _, dim := range dims {
		fmt.Fprintf(&b, "  пробел в соответствиях %s: %s\n", dim, strings.Join(r.CoverageGaps[dim], ", "))
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "  предупреждение: %s\n", w)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "  ошибка: %s\n", r.Error)
	}
	return b.String()
}

// Типы событий сборки
const (
	EventBuildStarted   = "build_started"
	EventBuildStage     = "build_stage"
	EventBuildCompleted = "build_completed"
	EventBuildFailed    = "build_failed"
)

// BuildEvent - событие, которое рассылается подписчикам во время сборки
type BuildEvent struct {
	Type    string       `json:"type"`
	RunID   string       `json:"run_id"`
	Stage   string       `json:"stage,omitempty"`
	Message string       `json:"message,omitempty"`
	Time    time.Time    `json:"time"`
	Report  *BuildReport `json:"report,omitempty"`
}
