package load

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/LilVoxy/fabric_activity_etl/ETL/extractors"
	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
	"github.com/LilVoxy/fabric_activity_etl/ETL/transform"
	"github.com/LilVoxy/fabric_activity_etl/processor"
)

// EnrichedFile - имя результата режима merge; экстрактор распознаёт его как обогащённый вход
const EnrichedFile = "enriched_activities.jsonl" + processor.CompressedExt

// WriteEnriched записывает обогащённые записи в JSON Lines со сжатием Snappy
func WriteEnriched(path string, rows []models.EnrichedActivity) (err error) {
	w, err := processor.CreatePage(path)
	if err != nil {
		return fmt.Errorf("не удалось создать файл %s: %w", path, err)
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("не удалось закрыть файл %s: %w", path, closeErr)
		}
	}()

	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)
	for i, row := range rows {
		if err := enc.Encode(row.ToRecord()); err != nil {
			return fmt.Errorf("ошибка записи строки %d: %w", i, err)
		}
	}
	return buf.Flush()
}

// MergeResult итог режима merge
type MergeResult struct {
	Path  string            `json:"path"`
	Rows  int               `json:"rows"`
	Merge models.MergeStats `json:"merge"`
}

// RunMerge выполняет только Extract и Smart Merge и сохраняет результат в outputDir
func (m *LoadManager) RunMerge(ctx context.Context, inputDir, outputDir string) (*MergeResult, error) {
	startTime := m.now()
	parser := transform.NewTimestampParser(m.timestampFormats)
	data, err := extractors.NewExtractor(inputDir, parser, m.logger).Extract(ctx)
	if err != nil {
		return nil, err
	}

	rows, stats := m.transformer.Enrich(data)
	path := filepath.Join(outputDir, EnrichedFile)
	if err := WriteEnriched(path, rows); err != nil {
		return nil, err
	}

	if n := parser.Malformed(); n > 0 {
		m.logger.Warn("Некорректных меток времени: %d", n)
	}
	m.logger.Info("Режим merge завершён: %d строк записано в %s за %v", len(rows), path, time.Since(startTime))
	return &MergeResult{Path: path, Rows: len(rows), Merge: stats}, nil
}
