package runner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/LilVoxy/fabric_activity_etl/ETL/config"
	"github.com/LilVoxy/fabric_activity_etl/ETL/load"
	"github.com/LilVoxy/fabric_activity_etl/ETL/metrics"
	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
	"github.com/LilVoxy/fabric_activity_etl/ETL/transform"
	"github.com/LilVoxy/fabric_activity_etl/ETL/utils"
)

// ErrBuildInProgress возвращается, если сборка уже выполняется
var ErrBuildInProgress = errors.New("сборка уже выполняется")

// RunOptions параметры запуска, переопределяющие конфигурацию
type RunOptions struct {
	FullRefresh bool
}

// ETLRunner связывает конфигурацию, сборку, журнал, метрики и публикацию
type ETLRunner struct {
	config      config.ETLConfig
	logger      *utils.ETLLogger
	db          *sql.DB
	runLog      models.BuildRunRepository
	loadManager *load.LoadManager
	metrics     *metrics.BuildMetrics
	publisher   *load.Publisher
	sinks       *sinkGroup

	mu         sync.Mutex
	running    bool
	lastReport *models.BuildReport
}

// NewETLRunner создает новый экземпляр ETLRunner
func NewETLRunner(cfg config.ETLConfig, logger *utils.ETLLogger) (*ETLRunner, error) {
	logger.Info("Инициализация ETL Runner")

	start, end, err := cfg.CalendarRange()
	if err != nil {
		return nil, err
	}
	mappings, err := config.LoadMappings(cfg.MappingsFile)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки таблиц соответствий: %w", err)
	}

	r := &ETLRunner{
		config:  cfg,
		logger:  logger,
		metrics: metrics.NewBuildMetrics(),
		sinks:   &sinkGroup{},
	}

	transformer := transform.NewTransformer(transform.NewMerger(cfg.MergeTolerance), mappings, start, end, logger)
	r.loadManager = load.NewLoadManager(transformer, cfg.TimestampFormats, r.sinks, logger)

	if cfg.RunLog.Enabled() {
		db, err := config.ConnectRunLogDB(cfg.RunLog)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к журналу сборок: %w", err)
		}
		dialect := models.DialectSQLite
		if cfg.RunLog.Driver == "mysql" {
			dialect = models.DialectMySQL
		}
		repo := models.NewSQLBuildRunRepository(db, dialect)
		if err := repo.CreateRunLogTable(); err != nil {
			config.CloseDatabase(db)
			return nil, fmt.Errorf("ошибка при создании таблицы журнала сборок: %w", err)
		}
		r.db = db
		r.runLog = repo
	} else {
		logger.Warn("Журнал сборок отключён")
	}

	if cfg.Publish.Enabled() {
		publisher, err := load.NewPublisher(cfg.Publish, logger)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.publisher = publisher
	}

	return r, nil
}

// Close закрывает соединение с журналом
func (r *ETLRunner) Close() {
	r.logger.Info("Завершение работы ETL Runner")
	if r.db != nil {
		config.CloseDatabase(r.db)
		r.db = nil
	}
	r.logger.Sync()
}

// AddSink подписывает получателя на события сборки
func (r *ETLRunner) AddSink(sink load.EventSink) {
	r.sinks.add(sink)
}

// Metrics возвращает метрики сборок
func (r *ETLRunner) Metrics() *metrics.BuildMetrics {
	return r.metrics
}

// RunLog возвращает журнал сборок (nil, если он отключён)
func (r *ETLRunner) RunLog() models.BuildRunRepository {
	return r.runLog
}

// Config возвращает конфигурацию
func (r *ETLRunner) Config() config.ETLConfig {
	return r.config
}

// LastReport возвращает отчёт последней сборки этого процесса
func (r *ETLRunner) LastReport() *models.BuildReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastReport
}

// Running сообщает, выполняется ли сборка
func (r *ETLRunner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *ETLRunner) acquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	r.running = true
	return true
}

func (r *ETLRunner) release(report *models.BuildReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	if report != nil {
		r.lastReport = report
	}
}

// ExecuteETL выполняет одну сборку. Одновременно выполняется не больше одной сборки.
func (r *ETLRunner) ExecuteETL(ctx context.Context, opts RunOptions) (*models.BuildReport, error) {
	if !r.acquire() {
		return nil, ErrBuildInProgress
	}
	return r.execute(ctx, opts)
}

// StartBuild запускает сборку в фоне и сразу возвращает управление.
// Если сборка уже идёт, возвращает ErrBuildInProgress.
func (r *ETLRunner) StartBuild(ctx context.Context, opts RunOptions) error {
	if !r.acquire() {
		return ErrBuildInProgress
	}
	go func() {
		if _, err := r.execute(ctx, opts); err != nil {
			r.logger.Error("Ошибка фоновой сборки: %v", err)
		}
	}()
	return nil
}

// execute выполняет сборку; вызывающий уже занял runner через acquire
func (r *ETLRunner) execute(ctx context.Context, opts RunOptions) (*models.BuildReport, error) {
	var report *models.BuildReport
	defer func() { r.release(report) }()

	runID := uuid.NewString()
	fullRefresh := opts.FullRefresh || r.config.FullRefresh
	mode := models.ModeIncremental
	if fullRefresh {
		mode = models.ModeFullRefresh
	}
	r.logger.Info("Запуск сборки %s", runID)

	logID := r.createLogEntry(runID, mode)

	report, err := r.loadManager.Build(ctx, load.BuildOptions{
		InputDir:    r.config.InputDir,
		OutputDir:   r.config.OutputDir,
		FullRefresh: fullRefresh,
		RunID:       runID,
	})

	if err == nil && r.publisher != nil {
		_, pubErr := r.publisher.Publish(ctx, r.config.OutputDir, runID)
		r.metrics.ObservePublish(pubErr)
		if pubErr != nil {
			r.logger.Error("Ошибка публикации сборки %s: %v", runID, pubErr)
			report.AddWarning("публикация не выполнена: %v", pubErr)
		}
	}

	r.metrics.ObserveBuild(report)
	if r.config.MetricsTextfile != "" {
		if mErr := r.metrics.WriteTextfile(r.config.MetricsTextfile); mErr != nil {
			r.logger.Warn("%v", mErr)
		}
	}
	r.finishLogEntry(logID, report, err)

	r.logger.Info("%s", report.Summary())
	return report, err
}

func (r *ETLRunner) createLogEntry(runID, mode string) int64 {
	if r.runLog == nil {
		return 0
	}
	id, err := r.runLog.CreateLogEntry(runID, time.Now(), mode)
	if err != nil {
		r.logger.Error("Ошибка при создании записи в журнале сборок: %v", err)
		return 0
	}
	return id
}

func (r *ETLRunner) finishLogEntry(id int64, report *models.BuildReport, buildErr error) {
	if r.runLog == nil || id == 0 {
		return
	}
	var err error
	if buildErr != nil {
		err = r.runLog.UpdateLogEntryFailure(id, report.FinishedAt, report, buildErr.Error())
	} else {
		err = r.runLog.UpdateLogEntrySuccess(id, report.FinishedAt, report)
	}
	if err != nil {
		r.logger.Error("Ошибка при обновлении записи в журнале сборок: %v", err)
	}
}

// RunMerge выполняет только Smart Merge и сохраняет обогащённые записи в выходной каталог
func (r *ETLRunner) RunMerge(ctx context.Context) (*load.MergeResult, error) {
	if !r.acquire() {
		return nil, ErrBuildInProgress
	}
	defer r.release(nil)
	return r.loadManager.RunMerge(ctx, r.config.InputDir, r.config.OutputDir)
}

// StartScheduler запускает сборку по расписанию до отмены ctx
func (r *ETLRunner) StartScheduler(ctx context.Context) error {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.SingletonModeAll()

	r.logger.Info("Запуск планировщика сборок с интервалом %v", r.config.RunInterval)

	_, err := scheduler.Every(r.config.RunInterval).Do(func() {
		r.logger.Info("Запланированный запуск сборки")
		if _, err := r.ExecuteETL(ctx, RunOptions{}); err != nil {
			r.logger.Error("Ошибка при выполнении запланированной сборки: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("ошибка при настройке планировщика: %w", err)
	}

	scheduler.StartAsync()
	<-ctx.Done()
	scheduler.Stop()
	r.logger.Info("Планировщик сборок остановлен")
	return nil
}

// sinkGroup рассылает события всем подписчикам
type sinkGroup struct {
	mu    sync.RWMutex
	sinks []load.EventSink
}

func (g *sinkGroup) add(sink load.EventSink) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sinks = append(g.sinks, sink)
}

// Publish реализует load.EventSink
func (g *sinkGroup) Publish(event models.BuildEvent) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, sink := range g.sinks {
		sink.Publish(event)
	}
}
