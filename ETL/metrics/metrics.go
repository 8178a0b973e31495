package metrics

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
)

const namespaceMetrics = "fabric_etl"

// BuildMetrics собирает метрики сборок в собственном реестре
type BuildMetrics struct {
	registry *prometheus.Registry

	buildsTotal      *prometheus.CounterVec
	buildDuration    *prometheus.HistogramVec
	rowsWritten      *prometheus.GaugeVec
	newDimensionRows *prometheus.CounterVec
	qualityIssues    *prometheus.CounterVec
	mergeRows        *prometheus.CounterVec
	coverageGaps     *prometheus.GaugeVec
	highWaterMark    prometheus.Gauge
	lastSuccess      prometheus.Gauge
	publishTotal     *prometheus.CounterVec
}

// NewBuildMetrics создает и регистрирует коллекторы
func NewBuildMetrics() *BuildMetrics {
	m := &BuildMetrics{
		registry: prometheus.NewRegistry(),
		buildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespaceMetrics,
				Subsystem: "build",
				Name:      "runs_total",
				Help:      "Количество сборок по режиму и статусу.",
			},
			[]string{"mode", "status"},
		),
		buildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespaceMetrics,
				Subsystem: "build",
				Name:      "duration_seconds",
				Help:      "Длительность сборки.",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"mode"},
		),
		rowsWritten: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespaceMetrics,
				Subsystem: "star",
				Name:      "rows",
				Help:      "Строк в таблице после последней успешной сборки.",
			},
			[]string{"table"},
		),
		newDimensionRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespaceMetrics,
				Subsystem: "star",
				Name:      "new_dimension_rows_total",
				Help:      "Новых строк измерений по таблицам.",
			},
			[]string{"table"},
		),
		qualityIssues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespaceMetrics,
				Subsystem: "quality",
				Name:      "issues_total",
				Help:      "Проблемы качества данных по видам.",
			},
			[]string{"kind"},
		),
		mergeRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespaceMetrics,
				Subsystem: "merge",
				Name:      "rows_total",
				Help:      "Результат Smart Merge по видам строк.",
			},
			[]string{"kind"},
		),
		coverageGaps: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespaceMetrics,
				Subsystem: "quality",
				Name:      "coverage_gaps",
				Help:      "Ключей без категории в таблице соответствий при последней сборке.",
			},
			[]string{"table"},
		),
		highWaterMark: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceMetrics,
			Subsystem: "build",
			Name:      "high_water_mark_timestamp_seconds",
			Help:      "High-water mark последней успешной сборки (unix time).",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceMetrics,
			Subsystem: "build",
			Name:      "last_success_timestamp_seconds",
			Help:      "Время завершения последней успешной сборки (unix time).",
		}),
		publishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespaceMetrics,
				Subsystem: "publish",
				Name:      "runs_total",
				Help:      "Публикации в объектное хранилище по результату.",
			},
			[]string{"result"},
		),
	}

	m.registry.MustRegister(
		m.buildsTotal, m.buildDuration, m.rowsWritten, m.newDimensionRows, m.qualityIssues,
		m.mergeRows, m.coverageGaps, m.highWaterMark, m.lastSuccess, m.publishTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry возвращает реестр метрик
func (m *BuildMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler возвращает HTTP-обработчик для /metrics
func (m *BuildMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveBuild переносит итоги сборки в метрики
func (m *BuildMetrics) ObserveBuild(report *models.BuildReport) {
	if report == nil {
		return
	}
	mode := normalizeLabel(report.Mode, "unknown")
	m.buildsTotal.WithLabelValues(mode, normalizeLabel(report.Status, "unknown")).Inc()
	if !report.FinishedAt.IsZero() {
		m.buildDuration.WithLabelValues(mode).Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	}
	if report.Status != models.BuildStatusSuccess {
		return
	}

	for table, n := range report.RowsWritten {
		m.rowsWritten.WithLabelValues(table).Set(float64(n))
	}
	for table, n := range report.NewDimensionRows {
		m.newDimensionRows.WithLabelValues(table).Add(float64(n))
	}

	q := report.Quality
	for kind, n := range map[string]int{
		"duplicates_dropped":         q.DuplicatesDropped,
		"malformed_timestamps":       q.MalformedTimestamps,
		"truncated_timestamps":       q.TruncatedTimestamps,
		"workspaces_by_name":         q.WorkspacesByName,
		"unresolved_workspaces":      q.UnresolvedWorkspaces,
		"unresolved_items":           q.UnresolvedItems,
		"unresolved_users":           q.UnresolvedUsers,
		"unknown_dates":              q.UnknownDates,
		"jobs_without_completion":    q.JobsWithoutCompletion,
		"rows_at_or_below_watermark": q.RowsAtOrBelowWatermark,
		"undated_rows_skipped":       q.UndatedRowsSkipped,
	} {
		if n > 0 {
			m.qualityIssues.WithLabelValues(kind).Add(float64(n))
		}
	}

	s := report.Merge
	for kind, n := range map[string]int{
		"matched":          s.Matched,
		"activity_only":    s.ActivityOnly,
		"job_only":         s.JobOnly,
		"unmatchable_jobs": s.UnmatchableJobs,
	} {
		if n > 0 {
			m.mergeRows.WithLabelValues(kind).Add(float64(n))
		}
	}

	m.coverageGaps.Reset()
	for table, keys := range report.CoverageGaps {
		m.coverageGaps.WithLabelValues(table).Set(float64(len(keys)))
	}

	if report.HighWaterMark != nil {
		m.highWaterMark.Set(float64(report.HighWaterMark.Unix()))
	}
	m.lastSuccess.Set(float64(report.FinishedAt.Unix()))
}

// ObservePublish учитывает результат публикации
func (m *BuildMetrics) ObservePublish(err error) {
	result := "success"
	if err != nil {
		result = "failed"
	}
	m.publishTotal.WithLabelValues(result).Inc()
}

// WriteTextfile сохраняет метрики в формате textfile-коллектора node_exporter
func (m *BuildMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("ошибка записи метрик в %s: %w", path, err)
	}
	return nil
}

func normalizeLabel(value string, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
