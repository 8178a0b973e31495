package load

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
	"github.com/LilVoxy/fabric_activity_etl/ETL/transform"
	"github.com/LilVoxy/fabric_activity_etl/ETL/utils"
)

func sampleStar() *models.StarSchema {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	seen := time.Date(2024, 3, 1, 10, 0, 0, 123456000, time.UTC)
	duration := 210.5

	return &models.StarSchema{
		Dates: transform.GenerateDateDimension(start, start.AddDate(0, 0, 2)),
		Times: transform.GenerateTimeDimension(),
		Workspaces: []models.WorkspaceDimension{
			{WorkspaceSK: models.UnknownSK, WorkspaceID: models.UnknownMember, WorkspaceName: models.UnknownMember},
			{WorkspaceSK: 5, WorkspaceID: "ws-1", WorkspaceName: "Team A", WorkspaceType: "Workspace", FirstSeenAt: &seen},
		},
		Items: []models.ItemDimension{
			{ItemSK: 1, ItemID: "nb-1", ItemType: "Notebook", ItemCategory: "Data Engineering", WorkspaceID: "ws-1", FirstSeenAt: &seen},
		},
		Users: []models.UserDimension{
			{UserSK: 1, UserPrincipal: "alice@contoso.com", UserType: "User", UserDomain: "contoso.com"},
		},
		ActivityTypes: []models.ActivityTypeDimension{
			{ActivityTypeSK: 1, ActivityType: "RunArtifact", ActivityCategory: "Execute"},
		},
		Statuses: []models.StatusDimension{
			{StatusSK: 1, Status: "failed", StatusCategory: "Failure", IsFailure: true},
		},
		Activities: []models.ActivityFact{
			{DateSK: 20240301, TimeSK: 1000, WorkspaceSK: 5, ItemSK: 1, UserSK: 1, ActivityTypeSK: 1, StatusSK: 1, DurationSeconds: &duration, RecordCount: 1, IsFailed: true},
			{DateSK: models.UnknownSK, TimeSK: models.UnknownSK, WorkspaceSK: models.UnknownSK, ItemSK: models.UnknownSK, UserSK: models.UnknownSK, ActivityTypeSK: 1, StatusSK: 1, RecordCount: 1},
		},
		DailyMetrics: []models.DailyMetricsFact{
			{DateSK: 20240301, WorkspaceSK: 5, ActivityTypeSK: 1, TotalActivities: 1, FailedActivities: 1, DurationCount: 1, TotalDurationSeconds: duration, AvgDurationSeconds: &duration, MaxDurationSeconds: &duration},
		},
	}
}

func TestParquetStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewParquetStore(dir, utils.NewNopLogger())
	hwm := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	star := sampleStar()
	if err := store.Save(star, &Manifest{RunID: "run-1", Mode: models.ModeFullRefresh, HighWaterMark: &hwm}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, manifest, err := store.LoadState()
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if manifest.RunID != "run-1" || manifest.HighWaterMark == nil || !manifest.HighWaterMark.Equal(hwm) {
		t.Errorf("manifest = %+v", manifest)
	}
	for table, n := range star.RowCounts() {
		if got := loaded.RowCounts()[table]; got != n {
			t.Errorf("%s: %d строк, ожидалось %d", table, got, n)
		}
	}

	if got := loaded.Dates[0]; got.DateSK != models.UnknownSK || !got.FullDate.IsZero() {
		t.Errorf("dim_date[0] = %+v", got)
	}
	if got := loaded.Dates[1]; got.DateSK != 20240301 || !got.FullDate.Equal(star.Dates[1].FullDate) || got.DayName != star.Dates[1].DayName {
		t.Errorf("dim_date[1] = %+v", got)
	}
	ws := loaded.Workspaces[1]
	if ws.WorkspaceSK != 5 || ws.FirstSeenAt == nil || !ws.FirstSeenAt.Equal(*star.Workspaces[1].FirstSeenAt) {
		t.Errorf("dim_workspace[1] = %+v", ws)
	}
	if loaded.Workspaces[0].FirstSeenAt != nil {
		t.Errorf("first_seen_at неизвестной строки должен быть nil")
	}

	f := loaded.Activities[0]
	if f.DurationSeconds == nil || *f.DurationSeconds != 210.5 || !f.IsFailed || f.RecordCount != 1 {
		t.Errorf("fact_activity[0] = %+v", f)
	}
	if loaded.Activities[1].DurationSeconds != nil || loaded.Activities[1].DateSK != models.UnknownSK {
		t.Errorf("fact_activity[1] = %+v", loaded.Activities[1])
	}
	m := loaded.DailyMetrics[0]
	if m.AvgDurationSeconds == nil || *m.AvgDurationSeconds != 210.5 {
		t.Errorf("fact_daily_metrics[0] = %+v", m)
	}
}

func TestLoadStateMissing(t *testing.T) {
	store := NewParquetStore(t.TempDir(), utils.NewNopLogger())
	if _, _, err := store.LoadState(); !errors.Is(err, models.ErrStateNotFound) {
		t.Fatalf("ожидалась ErrStateNotFound, получено %v", err)
	}
}

func TestLoadStateNullSurrogateKey(t *testing.T) {
	dir := t.TempDir()
	store := NewParquetStore(dir, utils.NewNopLogger())
	if err := store.Save(sampleStar(), &Manifest{RunID: "run-1"}); err != nil {
		t.Fatal(err)
	}

	broken := []DimStatusRow{{StatusSK: nil, Status: "failed", StatusCategory: "Failure", IsFailure: true}}
	if err := writeParquet(filepath.Join(dir, TableFile(models.TableDimStatus)), broken); err != nil {
		t.Fatal(err)
	}

	_, _, err := store.LoadState()
	if !models.IsSchemaError(err) {
		t.Fatalf("ожидалась SchemaError, получено %v", err)
	}
}

func TestLoadStateRowCountMismatch(t *testing.T) {
	dir := t.TempDir()
	store := NewParquetStore(dir, utils.NewNopLogger())
	if err := store.Save(sampleStar(), &Manifest{RunID: "run-1"}); err != nil {
		t.Fatal(err)
	}
	single := activityFactRows(sampleStar().Activities[:1])
	if err := writeParquet(filepath.Join(dir, TableFile(models.TableFactActivity)), single); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.LoadState(); err == nil {
		t.Fatal("ожидалась ошибка расхождения с манифестом")
	}
}

func TestSaveLeavesNoStagingDirectory(t *testing.T) {
	dir := t.TempDir()
	store := NewParquetStore(dir, utils.NewNopLogger())
	for i := 0; i < 2; i++ {
		if err := store.Save(sampleStar(), &Manifest{RunID: "run"}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	names := make(map[string]bool)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".staging-") {
			t.Errorf("остался временный каталог %s", e.Name())
		}
		names[e.Name()] = true
	}
	for _, table := range models.AllTables {
		if !names[TableFile(table)] {
			t.Errorf("нет файла %s", TableFile(table))
		}
	}
	if !names[ManifestFile] {
		t.Errorf("нет манифеста")
	}
}

func TestReadManifestCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewParquetStore(dir, utils.NewNopLogger()).ReadManifest()
	if err == nil || errors.Is(err, models.ErrStateNotFound) {
		t.Fatalf("ожидалась ошибка разбора манифеста, получено %v", err)
	}
}
