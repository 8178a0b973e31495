package load

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LilVoxy/fabric_activity_etl/ETL/extractors"
	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
	"github.com/LilVoxy/fabric_activity_etl/ETL/transform"
	"github.com/LilVoxy/fabric_activity_etl/ETL/utils"
)

// Этапы сборки, о которых сообщается подписчикам
const (
	StageExtract   = "extract"
	StageMerge     = "merge"
	StageLoadState = "load_state"
	StageTransform = "transform"
	StagePersist   = "persist"
)

// EventSink получает события сборки (websocket-хаб, метрики)
type EventSink interface {
	Publish(event models.BuildEvent)
}

// BuildOptions параметры одной сборки
type BuildOptions struct {
	InputDir    string
	OutputDir   string
	FullRefresh bool
	RunID       string
}

// LoadManager отвечает за управление сборкой звезды: полной или инкрементальной
type LoadManager struct {
	logger           *utils.ETLLogger
	transformer      *transform.Transformer
	timestampFormats []string
	sink             EventSink
	now              func() time.Time
}

// NewLoadManager создает новый экземпляр LoadManager. sink может быть nil.
func NewLoadManager(transformer *transform.Transformer, timestampFormats []string, sink EventSink, logger *utils.ETLLogger) *LoadManager {
	return &LoadManager{
		logger:           logger,
		transformer:      transformer,
		timestampFormats: timestampFormats,
		sink:             sink,
		now:              time.Now,
	}
}

// Build выполняет сборку. Отчёт возвращается всегда, в том числе при ошибке.
func (m *LoadManager) Build(ctx context.Context, opts BuildOptions) (*models.BuildReport, error) {
	startTime := m.now()
	report := models.NewBuildReport(opts.RunID, startTime)
	report.Mode = models.ModeIncremental
	if opts.FullRefresh {
		report.Mode = models.ModeFullRefresh
	}

	m.logger.LogBuildStart(opts.RunID, report.Mode, opts.InputDir, opts.OutputDir)
	m.emit(models.BuildEvent{Type: models.EventBuildStarted, RunID: opts.RunID, Message: report.Mode})

	if err := m.build(ctx, opts, report); err != nil {
		report.Status = models.BuildStatusFailed
		report.Error = err.Error()
		report.FinishedAt = m.now()
		m.logger.Error("Сборка %s завершилась ошибкой: %v", opts.RunID, err)
		m.emit(models.BuildEvent{Type: models.EventBuildFailed, RunID: opts.RunID, Message: err.Error(), Report: report})
		return report, err
	}

	report.Status = models.BuildStatusSuccess
	report.FinishedAt = m.now()
	m.logger.LogBuildComplete(opts.RunID, startTime, report.RowsWritten)
	m.emit(models.BuildEvent{Type: models.EventBuildCompleted, RunID: opts.RunID, Report: report})
	return report, nil
}

func (m *LoadManager) build(ctx context.Context, opts BuildOptions, report *models.BuildReport) error {
	// 1. Extract
	m.stage(opts.RunID, StageExtract, opts.InputDir)
	parser := transform.NewTimestampParser(m.timestampFormats)
	data, err := extractors.NewExtractor(opts.InputDir, parser, m.logger).Extract(ctx)
	if err != nil {
		return err
	}
	report.Quality.DuplicatesDropped = data.DuplicatesDropped
	report.Quality.MalformedTimestamps = parser.Malformed()
	report.Quality.TruncatedTimestamps = parser.Truncated()

	// 2. Smart Merge
	m.stage(opts.RunID, StageMerge, "")
	rows, stats := m.transformer.Enrich(data)
	report.Merge = stats
	report.InputRows = len(rows)

	if err := ctx.Err(); err != nil {
		return err
	}

	// 3. Состояние
	store := NewParquetStore(opts.OutputDir, m.logger)
	var existing *models.StarSchema
	var previousHWM *time.Time
	if !opts.FullRefresh {
		m.stage(opts.RunID, StageLoadState, opts.OutputDir)
		star, manifest, err := store.LoadState()
		switch {
		case err == nil:
			existing = star
			previousHWM = manifest.HighWaterMark
			report.PreviousHighWaterMark = previousHWM
		case errors.Is(err, models.ErrStateNotFound):
			m.fallback(report, "сохранённое состояние не найдено")
		default:
			m.fallback(report, fmt.Sprintf("сохранённое состояние не читается: %v", err))
		}
	}

	if existing != nil {
		rows = FilterAfterWatermark(rows, previousHWM, &report.Quality)
		if skipped := report.Quality.RowsAtOrBelowWatermark + report.Quality.UndatedRowsSkipped; skipped > 0 {
			m.logger.Info("Инкремент: пропущено строк не новее watermark: %d, без даты: %d",
				report.Quality.RowsAtOrBelowWatermark, report.Quality.UndatedRowsSkipped)
		}
	}
	report.LoadedRows = len(rows)

	// 4. Transform
	m.stage(opts.RunID, StageTransform, "")
	star, err := m.transformer.BuildStar(existing, rows, data.Workspaces, report)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// 5. Запись
	m.stage(opts.RunID, StagePersist, opts.OutputDir)
	hwm := AdvanceWatermark(previousHWM, rows)
	report.HighWaterMark = hwm
	manifest := &Manifest{
		RunID:         opts.RunID,
		Mode:          report.Mode,
		HighWaterMark: hwm,
		BuiltAt:       m.now().UTC(),
	}
	if err := store.Save(star, manifest); err != nil {
		return fmt.Errorf("ошибка записи звезды: %w", err)
	}
	report.RowsWritten = star.RowCounts()
	return nil
}

// fallback переводит инкрементальную сборку в полную перестройку
func (m *LoadManager) fallback(report *models.BuildReport, reason string) {
	m.logger.Warn("Инкрементальная сборка невозможна (%s), выполняется полная перестройка", reason)
	report.FallbackToFull = true
	report.Mode = models.ModeFullRefresh
	report.AddWarning("откат к полной перестройке: %s", reason)
}

func (m *LoadManager) stage(runID, stage, message string) {
	m.logger.Debug("Сборка %s: этап %s", runID, stage)
	m.emit(models.BuildEvent{Type: models.EventBuildStage, RunID: runID, Stage: stage, Message: message})
}

func (m *LoadManager) emit(event models.BuildEvent) {
	if m.sink == nil {
		return
	}
	event.Time = m.now()
	// подписчики читают отчёт в своих горутинах, а вызывающий код ещё дополняет его
	event.Report = event.Report.Clone()
	m.sink.Publish(event)
}

// FilterAfterWatermark оставляет строки с эффективным временем строго позже hwm.
// Строки без времени пропускаются всегда: их нельзя отличить от уже загруженных.
// При hwm == nil проходят все датированные строки.
func FilterAfterWatermark(rows []models.EnrichedActivity, hwm *time.Time, quality *models.QualityStats) []models.EnrichedActivity {
	kept := make([]models.EnrichedActivity, 0, len(rows))
	for _, row := range rows {
		t := row.EffectiveTime()
		switch {
		case t == nil:
			quality.UndatedRowsSkipped++
		case hwm != nil && !t.After(*hwm):
			quality.RowsAtOrBelowWatermark++
		default:
			kept = append(kept, row)
		}
	}
	return kept
}

// AdvanceWatermark возвращает max(previous, максимальное эффективное время строк)
func AdvanceWatermark(previous *time.Time, rows []models.EnrichedActivity) *time.Time {
	var hwm *time.Time
	if previous != nil {
		p := previous.UTC()
		hwm = &p
	}
	for _, row := range rows {
		t := row.EffectiveTime()
		if t == nil {
			continue
		}
		if hwm == nil || t.After(*hwm) {
			v := t.UTC()
			hwm = &v
		}
	}
	return hwm
}
