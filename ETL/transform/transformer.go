package transform

import (
	"fmt"
	"time"

	"github.com/LilVoxy/fabric_activity_etl/ETL/config"
	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
	"github.com/LilVoxy/fabric_activity_etl/ETL/utils"
)

// Transformer координирует Smart Merge и построение звезды
type Transformer struct {
	logger        *utils.ETLLogger
	merger        *Merger
	mappings      config.ClassificationMappings
	calendarStart time.Time
	calendarEnd   time.Time
}

// NewTransformer создает новый экземпляр Transformer
func NewTransformer(merger *Merger, mappings config.ClassificationMappings, calendarStart, calendarEnd time.Time, logger *utils.ETLLogger) *Transformer {
	return &Transformer{
		logger:        logger,
		merger:        merger,
		mappings:      mappings,
		calendarStart: calendarStart,
		calendarEnd:   calendarEnd,
	}
}

// Enrich выполняет Smart Merge и добавляет уже обогащённые записи из входного каталога
func (t *Transformer) Enrich(data *models.ExtractedData) ([]models.EnrichedActivity, models.MergeStats) {
	startTime := time.Now()
	t.logger.Info("Smart Merge: активностей=%d, заданий=%d, окно=%v", len(data.Activities), len(data.Jobs), t.merger.Tolerance)

	var (
		rows  []models.EnrichedActivity
		stats models.MergeStats
	)
	if len(data.Activities) > 0 || len(data.Jobs) > 0 {
		rows, stats = t.merger.Merge(data.Activities, data.Jobs)
	}
	if len(data.Enriched) > 0 {
		t.logger.Info("Добавлено обогащённых записей из входного каталога: %d", len(data.Enriched))
		rows = append(rows, data.Enriched...)
		SortEnriched(rows)
	}

	if stats.UnmatchableJobs > 0 {
		t.logger.Warn("Заданий без сущности или метки времени: %d", stats.UnmatchableJobs)
	}
	t.logger.Debug("Smart Merge завершён за %v: сопоставлено=%d, только задания=%d", time.Since(startTime), stats.Matched, stats.JobOnly)
	return rows, stats
}

// BuildStar строит звезду. existing == nil означает полную перестройку;
// иначе измерения дополняются, а факты добавляются к сохранённым.
// Дневные агрегаты всегда пересчитываются по полной таблице фактов.
func (t *Transformer) BuildStar(existing *models.StarSchema, rows []models.EnrichedActivity, inventory []models.WorkspaceInfo, report *models.BuildReport) (*models.StarSchema, error) {
	startTime := time.Now()
	t.logger.Info("Начало фазы Transform: записей=%d", len(rows))

	if existing == nil {
		existing = &models.StarSchema{}
	}
	if report == nil {
		report = models.NewBuildReport("", startTime)
	}
	if t.calendarEnd.Before(t.calendarStart) {
		return nil, fmt.Errorf("ошибка календаря: конец %s раньше начала %s", t.calendarEnd.Format("2006-01-02"), t.calendarStart.Format("2006-01-02"))
	}

	star := &models.StarSchema{}

	// 1. Календарные измерения
	star.Dates = BuildOrExtendDates(existing.Dates, t.calendarStart, t.calendarEnd)
	star.Times = BuildOrExtendTimes(existing.Times)

	// 2. Измерения, производные от данных
	star.Workspaces = BuildOrExtendWorkspaces(existing.Workspaces, rows, inventory)

	var gaps []string
	star.Items, gaps = BuildOrExtendItems(existing.Items, rows, t.mappings)
	t.recordGaps(report, models.TableDimItem, gaps)

	star.Users = BuildOrExtendUsers(existing.Users, rows)

	star.ActivityTypes, gaps = BuildOrExtendActivityTypes(existing.ActivityTypes, rows, t.mappings)
	t.recordGaps(report, models.TableDimActivityType, gaps)

	star.Statuses, gaps = BuildOrExtendStatuses(existing.Statuses, rows, t.mappings)
	t.recordGaps(report, models.TableDimStatus, gaps)

	before := existing.RowCounts()
	after := star.RowCounts()
	for _, table := range []string{models.TableDimDate, models.TableDimTime, models.TableDimWorkspace, models.TableDimItem,
		models.TableDimUser, models.TableDimActivityType, models.TableDimStatus} {
		if n := after[table] - before[table]; n > 0 {
			report.NewDimensionRows[table] = n
		}
	}

	// 3. Факты
	resolver := NewFactResolver(star)
	newFacts := resolver.BuildActivityFacts(rows, &report.Quality)
	star.Activities = make([]models.ActivityFact, 0, len(existing.Activities)+len(newFacts))
	star.Activities = append(star.Activities, existing.Activities...)
	star.Activities = append(star.Activities, newFacts...)

	// 4. Дневные агрегаты
	star.DailyMetrics = BuildDailyMetrics(star.Activities, star.Statuses)

	for _, row := range rows {
		if row.JobID != nil && row.EndTime == nil && row.FailureReason == nil {
			report.Quality.JobsWithoutCompletion++
		}
	}
	t.logQuality(report.Quality)

	t.logger.Info("Фаза Transform завершена. Новых фактов: %d, всего: %d, длительность: %v",
		len(newFacts), len(star.Activities), time.Since(startTime))
	return star, nil
}

// recordGaps переносит пробелы в соответствиях в отчёт и логирует их одним предупреждением
func (t *Transformer) recordGaps(report *models.BuildReport, table string, gaps []string) {
	if len(gaps) == 0 {
		return
	}
	for _, key := range gaps {
		report.AddCoverageGap(table, key)
	}
	t.logger.Warn("Пробел в таблице соответствий %s: %d ключей без категории", table, len(gaps))
}

func (t *Transformer) logQuality(q models.QualityStats) {
	if q.UnresolvedWorkspaces > 0 {
		t.logger.Warn("Неразрешённых рабочих областей: %d (по имени разрешено: %d)", q.UnresolvedWorkspaces, q.WorkspacesByName)
	}
	if q.UnknownDates > 0 {
		t.logger.Warn("Строк без даты или вне календаря: %d", q.UnknownDates)
	}
	if q.UnresolvedItems > 0 || q.UnresolvedUsers > 0 {
		t.logger.Warn("Строк без элемента: %d, без пользователя: %d", q.UnresolvedItems, q.UnresolvedUsers)
	}
	if q.JobsWithoutCompletion > 0 {
		t.logger.Warn("Заданий без end_time и failure_reason: %d", q.JobsWithoutCompletion)
	}
}
