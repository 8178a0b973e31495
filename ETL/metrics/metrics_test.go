package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
)

func successReport() *models.BuildReport {
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	hwm := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	report := models.NewBuildReport("run-1", started)
	report.Mode = models.ModeIncremental
	report.Status = models.BuildStatusSuccess
	report.FinishedAt = started.Add(42 * time.Second)
	report.HighWaterMark = &hwm
	report.RowsWritten = map[string]int{models.TableFactActivity: 3, models.TableDimWorkspace: 2}
	report.NewDimensionRows = map[string]int{models.TableDimWorkspace: 1}
	report.Merge = models.MergeStats{Matched: 1, JobOnly: 1, ActivityOnly: 1}
	report.Quality.UnresolvedWorkspaces = 2
	report.AddCoverageGap(models.TableDimItem, "lakehouse")
	return report
}

func TestObserveBuild(t *testing.T) {
	m := NewBuildMetrics()
	m.ObserveBuild(successReport())

	cases := []struct {
		name string
		got  float64
		want float64
	}{
		{"runs_total", testutil.ToFloat64(m.buildsTotal.WithLabelValues(models.ModeIncremental, models.BuildStatusSuccess)), 1},
		{"rows fact_activity", testutil.ToFloat64(m.rowsWritten.WithLabelValues(models.TableFactActivity)), 3},
		{"new dim_workspace", testutil.ToFloat64(m.newDimensionRows.WithLabelValues(models.TableDimWorkspace)), 1},
		{"unresolved_workspaces", testutil.ToFloat64(m.qualityIssues.WithLabelValues("unresolved_workspaces")), 2},
		{"matched", testutil.ToFloat64(m.mergeRows.WithLabelValues("matched")), 1},
		{"coverage dim_item", testutil.ToFloat64(m.coverageGaps.WithLabelValues(models.TableDimItem)), 1},
		{"hwm", testutil.ToFloat64(m.highWaterMark), float64(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC).Unix())},
		{"last success", testutil.ToFloat64(m.lastSuccess), float64(time.Date(2024, 3, 1, 10, 0, 42, 0, time.UTC).Unix())},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("%s = %v, ожидалось %v", tc.name, tc.got, tc.want)
		}
	}
}

func TestObserveFailedBuildKeepsLastSuccess(t *testing.T) {
	m := NewBuildMetrics()
	m.ObserveBuild(successReport())

	failed := models.NewBuildReport("run-2", time.Now())
	failed.Mode = models.ModeFullRefresh
	failed.Status = models.BuildStatusFailed
	failed.FinishedAt = failed.StartedAt.Add(time.Second)
	m.ObserveBuild(failed)
	m.ObserveBuild(nil)

	if got := testutil.ToFloat64(m.buildsTotal.WithLabelValues(models.ModeFullRefresh, models.BuildStatusFailed)); got != 1 {
		t.Errorf("failed runs = %v", got)
	}
	if got := testutil.ToFloat64(m.rowsWritten.WithLabelValues(models.TableFactActivity)); got != 3 {
		t.Errorf("строки fact_activity после неудачной сборки = %v", got)
	}
}

func TestObservePublish(t *testing.T) {
	m := NewBuildMetrics()
	m.ObservePublish(nil)
	m.ObservePublish(errors.New("timeout"))
	m.ObservePublish(nil)

	if got := testutil.ToFloat64(m.publishTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("success = %v", got)
	}
	if got := testutil.ToFloat64(m.publishTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed = %v", got)
	}
}

func TestWriteTextfileAndHandler(t *testing.T) {
	m := NewBuildMetrics()
	m.ObserveBuild(successReport())

	path := filepath.Join(t.TempDir(), "fabric_etl.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := `fabric_etl_star_rows{table="fact_activity"} 3`
	if !strings.Contains(string(data), want) {
		t.Errorf("в textfile нет %q", want)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), want) {
		t.Errorf("/metrics: код %d", rec.Code)
	}
}
