package extractors

import (
	"context"
	"fmt"
	"time"

	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
	"github.com/LilVoxy/fabric_activity_etl/ETL/transform"
	"github.com/LilVoxy/fabric_activity_etl/ETL/utils"
)

// Extractor координирует чтение страниц экстрактора из входного каталога
type Extractor struct {
	inputDir          string
	logger            *utils.ETLLogger
	activityExtractor *ActivityExtractor
	jobExtractor      *JobExtractor
	enrichedExtractor *EnrichedExtractor
}

// NewExtractor создает новый экземпляр Extractor
func NewExtractor(inputDir string, parser *transform.TimestampParser, logger *utils.ETLLogger) *Extractor {
	return &Extractor{
		inputDir:          inputDir,
		logger:            logger,
		activityExtractor: NewActivityExtractor(parser),
		jobExtractor:      NewJobExtractor(parser),
		enrichedExtractor: NewEnrichedExtractor(parser),
	}
}

// Extract читает все страницы входного каталога
func (e *Extractor) Extract(ctx context.Context) (*models.ExtractedData, error) {
	startTime := time.Now()
	e.logger.Info("Начало фазы Extract (каталог %s)", e.inputDir)

	pages, err := DiscoverPages(e.inputDir)
	if err != nil {
		return nil, err
	}

	var data models.ExtractedData
	for _, kind := range []SourceKind{SourceActivities, SourceJobs, SourceWorkspaces, SourceEnriched} {
		data.Files = append(data.Files, pages[kind]...)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	activities, dropped, err := e.activityExtractor.ExtractActivities(pages[SourceActivities])
	if err != nil {
		e.logger.Error("Ошибка при извлечении журнала активности: %v", err)
		return nil, fmt.Errorf("ошибка извлечения журнала активности: %w", err)
	}
	data.Activities = activities
	data.DuplicatesDropped += dropped

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	jobs, dropped, err := e.jobExtractor.ExtractJobs(pages[SourceJobs])
	if err != nil {
		e.logger.Error("Ошибка при извлечении истории запусков: %v", err)
		return nil, fmt.Errorf("ошибка извлечения истории запусков: %w", err)
	}
	data.Jobs = jobs
	data.DuplicatesDropped += dropped

	workspaces, dropped, err := ExtractWorkspaces(pages[SourceWorkspaces])
	if err != nil {
		e.logger.Error("Ошибка при извлечении инвентаря рабочих областей: %v", err)
		return nil, fmt.Errorf("ошибка извлечения инвентаря рабочих областей: %w", err)
	}
	data.Workspaces = workspaces
	data.DuplicatesDropped += dropped

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	enriched, err := e.enrichedExtractor.ExtractEnriched(pages[SourceEnriched])
	if err != nil {
		e.logger.Error("Ошибка при чтении обогащённых записей: %v", err)
		return nil, fmt.Errorf("ошибка чтения обогащённых записей: %w", err)
	}
	data.Enriched = enriched

	if data.DuplicatesDropped > 0 {
		e.logger.Warn("Удалено дубликатов во входных страницах: %d", data.DuplicatesDropped)
	}
	if len(data.Files) == 0 {
		e.logger.Warn("Во входном каталоге %s нет страниц экстрактора", e.inputDir)
	}

	e.logger.LogExtractComplete(len(data.Activities), len(data.Jobs), len(data.Workspaces), len(data.Enriched), time.Since(startTime))
	return &data, nil
}
