package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/LilVoxy/fabric_activity_etl/ETL/config"
	"github.com/LilVoxy/fabric_activity_etl/ETL/load"
	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
	"github.com/LilVoxy/fabric_activity_etl/ETL/utils"
)

const activityPage = `{"activity_id":"a1","item_id":"nb-1","item_type":"Notebook","activity":"RunArtifact","creation_time":"2024-03-01T10:00:00Z","status":"succeeded","user_id":"alice@contoso.com","workspace_id":"ws-1","workspace_name":"Team A"}
`

const jobPage = `{"job_id":"j1","item_id":"nb-1","start_time":"2024-03-01T10:00:30Z","end_time":"2024-03-01T10:04:00Z","status":"succeeded"}
`

type eventCollector struct {
	mu     sync.Mutex
	events []models.BuildEvent
}

func (c *eventCollector) Publish(event models.BuildEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func testConfig(t *testing.T) config.ETLConfig {
	t.Helper()
	root := t.TempDir()
	in := filepath.Join(root, "raw")
	if err := os.MkdirAll(in, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(in, "activity_events.jsonl"), []byte(activityPage), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(in, "job_history.jsonl"), []byte(jobPage), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultETLConfig
	cfg.InputDir = in
	cfg.OutputDir = filepath.Join(root, "star")
	cfg.CalendarStart = "2024-01-01"
	cfg.CalendarEnd = "2024-12-31"
	cfg.RunLog = config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(root, "run_log.db")}
	cfg.MetricsTextfile = filepath.Join(root, "fabric_etl.prom")
	return cfg
}

func newTestRunner(t *testing.T, cfg config.ETLConfig) *ETLRunner {
	t.Helper()
	r, err := NewETLRunner(cfg, utils.NewNopLogger())
	if err != nil {
		t.Fatalf("NewETLRunner: %v", err)
	}
	t.Cleanup(r.Close)
	return r
}

func TestExecuteETLRecordsRun(t *testing.T) {
	cfg := testConfig(t)
	r := newTestRunner(t, cfg)
	events := &eventCollector{}
	r.AddSink(events)

	report, err := r.ExecuteETL(context.Background(), RunOptions{FullRefresh: true})
	if err != nil {
		t.Fatalf("ExecuteETL: %v", err)
	}
	if report.Status != models.BuildStatusSuccess || report.RowsWritten[models.TableFactActivity] != 1 {
		t.Fatalf("report = %+v", report)
	}
	if r.LastReport() != report || r.Running() {
		t.Errorf("состояние runner после сборки неверно")
	}

	runs, err := r.RunLog().GetRecentRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].RunID != report.RunID || runs[0].Status != models.BuildStatusSuccess || runs[0].FactRowsWritten != 1 {
		t.Errorf("журнал = %+v", runs)
	}

	if len(events.events) == 0 || events.events[len(events.events)-1].Type != models.EventBuildCompleted {
		t.Errorf("события = %+v", events.events)
	}
	if _, err := os.Stat(cfg.MetricsTextfile); err != nil {
		t.Errorf("textfile метрик не записан: %v", err)
	}
}

func TestExecuteETLRecordsFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.InputDir = filepath.Join(t.TempDir(), "missing")
	r := newTestRunner(t, cfg)

	report, err := r.ExecuteETL(context.Background(), RunOptions{})
	if err == nil {
		t.Fatal("ожидалась ошибка")
	}
	if report == nil || report.Status != models.BuildStatusFailed {
		t.Fatalf("report = %+v", report)
	}

	last, err := r.RunLog().GetLastSuccessfulRun()
	if err != nil || last != nil {
		t.Errorf("успешных запусков быть не должно: %+v, %v", last, err)
	}
	runs, err := r.RunLog().GetRecentRuns(1)
	if err != nil || len(runs) != 1 || runs[0].Status != models.BuildStatusFailed || runs[0].ErrorMessage == "" {
		t.Errorf("журнал = %+v, %v", runs, err)
	}
}

func TestExecuteETLOneBuildAtATime(t *testing.T) {
	r := newTestRunner(t, testConfig(t))
	if !r.acquire() {
		t.Fatal("не удалось занять runner")
	}
	if _, err := r.ExecuteETL(context.Background(), RunOptions{}); !errors.Is(err, ErrBuildInProgress) {
		t.Errorf("ожидалась ErrBuildInProgress, получено %v", err)
	}
	if _, err := r.RunMerge(context.Background()); !errors.Is(err, ErrBuildInProgress) {
		t.Errorf("ожидалась ErrBuildInProgress, получено %v", err)
	}
	r.release(nil)
	if r.Running() {
		t.Error("runner не освобождён")
	}
}

func TestRunMerge(t *testing.T) {
	cfg := testConfig(t)
	r := newTestRunner(t, cfg)

	result, err := r.RunMerge(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Rows != 1 || result.Path != filepath.Join(cfg.OutputDir, load.EnrichedFile) {
		t.Errorf("result = %+v", result)
	}
}

func TestNewETLRunnerWithoutRunLog(t *testing.T) {
	cfg := testConfig(t)
	cfg.RunLog = config.DatabaseConfig{Driver: "none"}
	r := newTestRunner(t, cfg)
	if r.RunLog() != nil {
		t.Fatal("журнал должен быть отключён")
	}
	if _, err := r.ExecuteETL(context.Background(), RunOptions{}); err != nil {
		t.Fatalf("ExecuteETL: %v", err)
	}
}

func TestNewETLRunnerRejectsBadCalendar(t *testing.T) {
	cfg := testConfig(t)
	cfg.CalendarEnd = "2023-01-01"
	if _, err := NewETLRunner(cfg, utils.NewNopLogger()); err == nil {
		t.Fatal("ожидалась ошибка календаря")
	}
}

func TestStartBuildRunsInBackground(t *testing.T) {
	r := newTestRunner(t, testConfig(t))
	done := make(chan models.BuildEvent, 16)
	r.AddSink(sinkFunc(func(e models.BuildEvent) {
		if e.Type == models.EventBuildCompleted || e.Type == models.EventBuildFailed {
			done <- e
		}
	}))

	if err := r.StartBuild(context.Background(), RunOptions{FullRefresh: true}); err != nil {
		t.Fatal(err)
	}
	if err := r.StartBuild(context.Background(), RunOptions{}); !errors.Is(err, ErrBuildInProgress) {
		t.Errorf("вторая сборка: %v", err)
	}

	select {
	case e := <-done:
		if e.Type != models.EventBuildCompleted {
			t.Fatalf("событие = %+v", e)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("сборка не завершилась")
	}
	// release выполняется после последнего события
	deadline := time.Now().Add(5 * time.Second)
	for r.Running() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if r.Running() || r.LastReport() == nil {
		t.Errorf("runner занят или нет отчёта")
	}
}

type sinkFunc func(models.BuildEvent)

func (f sinkFunc) Publish(e models.BuildEvent) { f(e) }
