package load

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
	"github.com/LilVoxy/fabric_activity_etl/ETL/utils"
)

const (
	// ManifestFile - имя файла состояния сборки в выходном каталоге
	ManifestFile = "_build_state.json"

	// ManifestVersion - версия формата манифеста
	ManifestVersion = 1

	parquetExt = ".parquet"
)

// Manifest описывает последнюю завершённую сборку
type Manifest struct {
	Version       int            `json:"version"`
	RunID         string         `json:"run_id"`
	Mode          string         `json:"mode"`
	HighWaterMark *time.Time     `json:"high_water_mark,omitempty"`
	BuiltAt       time.Time      `json:"built_at"`
	Tables        map[string]int `json:"tables"`
}

// TableFile возвращает имя parquet-файла таблицы
func TableFile(table string) string {
	return table + parquetExt
}

// ParquetStore хранит звезду в виде набора parquet-файлов
type ParquetStore struct {
	dir    string
	logger *utils.ETLLogger
}

// NewParquetStore создает хранилище в каталоге dir
func NewParquetStore(dir string, logger *utils.ETLLogger) *ParquetStore {
	return &ParquetStore{dir: dir, logger: logger}
}

// Dir возвращает выходной каталог
func (s *ParquetStore) Dir() string {
	return s.dir
}

// ReadManifest читает манифест. Отсутствие файла - models.ErrStateNotFound.
func (s *ParquetStore) ReadManifest() (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, ManifestFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.ErrStateNotFound
		}
		return nil, fmt.Errorf("не удалось прочитать манифест: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("манифест повреждён: %w", err)
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("неподдерживаемая версия манифеста: %d", m.Version)
	}
	return &m, nil
}

// LoadState читает манифест и все таблицы звезды
func (s *ParquetStore) LoadState() (*models.StarSchema, *Manifest, error) {
	manifest, err := s.ReadManifest()
	if err != nil {
		return nil, nil, err
	}

	star := &models.StarSchema{}
	path := func(table string) string { return filepath.Join(s.dir, TableFile(table)) }

	if star.Dates, err = readTable(path(models.TableDimDate), datesFromRows); err != nil {
		return nil, nil, err
	}
	if star.Times, err = readTable(path(models.TableDimTime), timesFromRows); err != nil {
		return nil, nil, err
	}
	if star.Workspaces, err = readTable(path(models.TableDimWorkspace), workspacesFromRows); err != nil {
		return nil, nil, err
	}
	if star.Items, err = readTable(path(models.TableDimItem), itemsFromRows); err != nil {
		return nil, nil, err
	}
	if star.Users, err = readTable(path(models.TableDimUser), usersFromRows); err != nil {
		return nil, nil, err
	}
	if star.ActivityTypes, err = readTable(path(models.TableDimActivityType), activityTypesFromRows); err != nil {
		return nil, nil, err
	}
	if star.Statuses, err = readTable(path(models.TableDimStatus), statusesFromRows); err != nil {
		return nil, nil, err
	}
	if star.Activities, err = readTable(path(models.TableFactActivity), activityFactsFromRows); err != nil {
		return nil, nil, err
	}
	if star.DailyMetrics, err = readTable(path(models.TableFactDailyMetrics), dailyMetricsFromRows); err != nil {
		return nil, nil, err
	}

	counts := star.RowCounts()
	for table, expected := range manifest.Tables {
		if counts[table] != expected {
			return nil, nil, fmt.Errorf("таблица %s: в манифесте %d строк, прочитано %d", table, expected, counts[table])
		}
	}

	s.logger.Debug("Состояние прочитано: сборка %s, фактов %d", manifest.RunID, len(star.Activities))
	return star, manifest, nil
}

func readTable[R any, M any](path string, convert func([]R) ([]M, error)) ([]M, error) {
	rows, err := readParquet[R](path)
	if err != nil {
		return nil, err
	}
	return convert(rows)
}

// Save записывает звезду во временный каталог и переносит файлы на место.
// Старый манифест удаляется до переноса таблиц, новый появляется последним.
func (s *ParquetStore) Save(star *models.StarSchema, manifest *Manifest) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("не удалось создать выходной каталог: %w", err)
	}
	staging, err := os.MkdirTemp(s.dir, ".staging-")
	if err != nil {
		return fmt.Errorf("не удалось создать временный каталог: %w", err)
	}
	defer os.RemoveAll(staging)

	writers := []struct {
		table string
		write func(path string) error
	}{
		{models.TableDimDate, func(p string) error { return writeParquet(p, dateRows(star.Dates)) }},
		{models.TableDimTime, func(p string) error { return writeParquet(p, timeRows(star.Times)) }},
		{models.TableDimWorkspace, func(p string) error { return writeParquet(p, workspaceRows(star.Workspaces)) }},
		{models.TableDimItem, func(p string) error { return writeParquet(p, itemRows(star.Items)) }},
		{models.TableDimUser, func(p string) error { return writeParquet(p, userRows(star.Users)) }},
		{models.TableDimActivityType, func(p string) error { return writeParquet(p, activityTypeRows(star.ActivityTypes)) }},
		{models.TableDimStatus, func(p string) error { return writeParquet(p, statusRows(star.Statuses)) }},
		{models.TableFactActivity, func(p string) error { return writeParquet(p, activityFactRows(star.Activities)) }},
		{models.TableFactDailyMetrics, func(p string) error { return writeParquet(p, dailyMetricsRows(star.DailyMetrics)) }},
	}
	for _, w := range writers {
		if err := w.write(filepath.Join(staging, TableFile(w.table))); err != nil {
			return fmt.Errorf("ошибка записи таблицы %s: %w", w.table, err)
		}
	}

	manifest.Version = ManifestVersion
	manifest.Tables = star.RowCounts()
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации манифеста: %w", err)
	}
	stagedManifest := filepath.Join(staging, ManifestFile)
	if err := os.WriteFile(stagedManifest, data, 0o644); err != nil {
		return fmt.Errorf("ошибка записи манифеста: %w", err)
	}

	if err := os.Remove(filepath.Join(s.dir, ManifestFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("не удалось удалить старый манифест: %w", err)
	}
	for _, table := range models.AllTables {
		name := TableFile(table)
		if err := os.Rename(filepath.Join(staging, name), filepath.Join(s.dir, name)); err != nil {
			return fmt.Errorf("не удалось перенести таблицу %s: %w", table, err)
		}
	}
	if err := os.Rename(stagedManifest, filepath.Join(s.dir, ManifestFile)); err != nil {
		return fmt.Errorf("не удалось перенести манифест: %w", err)
	}

	s.logger.Debug("Звезда записана в %s", s.dir)
	return nil
}
