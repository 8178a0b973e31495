package transform

import (
	"reflect"
	"testing"

	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
)

func TestMergeBasic(t *testing.T) {
	activities := []models.ActivityEvent{
		{EntityID: "X", ActivityType: "RunArtifact", StartTime: ts("2024-01-01T10:00:00Z"), Status: models.StatusSucceeded, SubmittedBy: "alice@contoso.com"},
	}
	jobs := []models.JobRecord{
		{JobID: str("j1"), EntityID: "X", StartTime: ts("2024-01-01T10:00:20Z"), EndTime: ts("2024-01-01T10:05:00Z"), Status: models.StatusSucceeded},
	}

	rows, stats := NewMerger(DefaultMergeTolerance).Merge(activities, jobs)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row.Source != models.SourceMerged || row.DurationSeconds == nil || *row.DurationSeconds != 280 {
		t.Fatalf("row = %+v", row)
	}
	if row.Status != models.StatusSucceeded || row.JobID == nil || *row.JobID != "j1" || row.RecordCount != 1 {
		t.Fatalf("row = %+v", row)
	}
	if !row.StartTime.Equal(*activities[0].StartTime) || !row.EndTime.Equal(*jobs[0].EndTime) {
		t.Fatalf("times = %v .. %v", row.StartTime, row.EndTime)
	}
	if stats.Matched != 1 || stats.ActivityOnly != 0 || stats.JobOnly != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestMergeBeyondTolerance(t *testing.T) {
	activities := []models.ActivityEvent{
		{EntityID: "X", StartTime: ts("2024-01-01T10:00:00Z"), Status: models.StatusSucceeded},
	}
	jobs := []models.JobRecord{
		{JobID: str("j1"), EntityID: "X", StartTime: ts("2024-01-01T10:10:00Z"), EndTime: ts("2024-01-01T10:15:00Z"), Status: models.StatusFailed},
	}

	rows, stats := NewMerger(DefaultMergeTolerance).Merge(activities, jobs)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Source != models.SourceActivity || rows[0].DurationSeconds != nil || rows[0].Status != models.StatusSucceeded {
		t.Fatalf("activity row enriched: %+v", rows[0])
	}
	if rows[1].Source != models.SourceJob || rows[1].Status != models.StatusFailed {
		t.Fatalf("job row = %+v", rows[1])
	}
	if stats.Matched != 0 || stats.ActivityOnly != 1 || stats.JobOnly != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestMergeToleranceIsInclusive(t *testing.T) {
	activities := []models.ActivityEvent{{EntityID: "X", StartTime: ts("2024-01-01T10:00:00Z")}}
	jobs := []models.JobRecord{{EntityID: "X", StartTime: ts("2024-01-01T10:05:00Z")}}
	rows, _ := NewMerger(DefaultMergeTolerance).Merge(activities, jobs)
	if len(rows) != 1 || rows[0].Source != models.SourceMerged {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestMergeDifferentEntitiesNeverMatch(t *testing.T) {
	activities := []models.ActivityEvent{{EntityID: "X", StartTime: ts("2024-01-01T10:00:00Z")}}
	jobs := []models.JobRecord{{EntityID: "Y", StartTime: ts("2024-01-01T10:00:00Z")}}
	rows, stats := NewMerger(DefaultMergeTolerance).Merge(activities, jobs)
	if len(rows) != 2 || stats.Matched != 0 {
		t.Fatalf("rows = %+v, stats = %+v", rows, stats)
	}
}

func TestMergeFallsBackToEndTime(t *testing.T) {
	activities := []models.ActivityEvent{{EntityID: "P", StartTime: ts("2024-01-01T09:00:30Z"), Status: models.StatusSucceeded}}
	jobs := []models.JobRecord{
		{JobID: str("j-failed"), EntityID: "P", EndTime: ts("2024-01-01T09:00:00Z"), Status: models.StatusFailed, FailureReason: str("OOM")},
	}
	rows, stats := NewMerger(DefaultMergeTolerance).Merge(activities, jobs)
	if len(rows) != 1 || stats.MatchedByEndTime != 1 {
		t.Fatalf("rows = %+v, stats = %+v", rows, stats)
	}
	row := rows[0]
	if row.Status != models.StatusFailed || row.FailureReason == nil || *row.FailureReason != "OOM" {
		t.Fatalf("row = %+v", row)
	}
	if row.DurationSeconds != nil {
		t.Fatalf("duration must stay nil without job start: %v", *row.DurationSeconds)
	}
}

func TestMergeTieBreak(t *testing.T) {
	activities := []models.ActivityEvent{{EntityID: "X", StartTime: ts("2024-01-01T10:00:00Z")}}

	t.Run("nearest wins", func(t *testing.T) {
		jobs := []models.JobRecord{
			{JobID: str("far"), EntityID: "X", StartTime: ts("2024-01-01T10:03:00Z"), EndTime: ts("2024-01-01T10:04:00Z")},
			{JobID: str("near"), EntityID: "X", StartTime: ts("2024-01-01T10:01:00Z")},
		}
		rows, _ := NewMerger(DefaultMergeTolerance).Merge(activities, jobs)
		merged := findSource(rows, models.SourceMerged)
		if merged == nil || *merged.JobID != "near" {
			t.Fatalf("rows = %+v", rows)
		}
		if len(rows) != 2 {
			t.Fatalf("the other job must be kept as a job-only row, got %d rows", len(rows))
		}
	})

	t.Run("equal distance prefers end_time", func(t *testing.T) {
		jobs := []models.JobRecord{
			{JobID: str("open"), EntityID: "X", StartTime: ts("2024-01-01T09:59:00Z")},
			{JobID: str("closed"), EntityID: "X", StartTime: ts("2024-01-01T10:01:00Z"), EndTime: ts("2024-01-01T10:02:00Z")},
		}
		rows, _ := NewMerger(DefaultMergeTolerance).Merge(activities, jobs)
		merged := findSource(rows, models.SourceMerged)
		if merged == nil || *merged.JobID != "closed" {
			t.Fatalf("rows = %+v", rows)
		}
	})
}

func TestMergeOneToOne(t *testing.T) {
	activities := []models.ActivityEvent{
		{ActivityID: str("a1"), EntityID: "X", StartTime: ts("2024-01-01T10:00:00Z")},
		{ActivityID: str("a2"), EntityID: "X", StartTime: ts("2024-01-01T10:00:10Z")},
	}
	jobs := []models.JobRecord{{JobID: str("j1"), EntityID: "X", StartTime: ts("2024-01-01T10:00:09Z")}}

	rows, stats := NewMerger(DefaultMergeTolerance).Merge(activities, jobs)
	if stats.Matched != 1 || stats.ActivityOnly != 1 || len(rows) != 2 {
		t.Fatalf("rows = %+v, stats = %+v", rows, stats)
	}
	merged := findSource(rows, models.SourceMerged)
	if merged == nil || *merged.ActivityID != "a2" {
		t.Fatalf("job must go to the nearest activity, rows = %+v", rows)
	}
}

func TestMergeEmptyInputs(t *testing.T) {
	activities := []models.ActivityEvent{{EntityID: "X", StartTime: ts("2024-01-01T10:00:00Z"), Status: models.StatusSucceeded}}
	jobs := []models.JobRecord{{EntityID: "Y", EndTime: ts("2024-01-01T10:00:00Z"), Status: models.StatusFailed}}
	m := NewMerger(DefaultMergeTolerance)

	rows, stats := m.Merge(activities, nil)
	if len(rows) != 1 || rows[0].Source != models.SourceActivity || stats.ActivityOnly != 1 {
		t.Fatalf("activities only: %+v %+v", rows, stats)
	}
	rows, stats = m.Merge(nil, jobs)
	if len(rows) != 1 || rows[0].Source != models.SourceJob || stats.JobOnly != 1 {
		t.Fatalf("jobs only: %+v %+v", rows, stats)
	}
	rows, _ = m.Merge(nil, nil)
	if len(rows) != 0 {
		t.Fatalf("empty inputs: %+v", rows)
	}
}

func TestMergeUnmatchableJobsKept(t *testing.T) {
	activities := []models.ActivityEvent{{EntityID: "X", StartTime: ts("2024-01-01T10:00:00Z")}}
	jobs := []models.JobRecord{
		{JobID: str("no-entity"), StartTime: ts("2024-01-01T10:00:00Z")},
		{JobID: str("no-time"), EntityID: "X"},
	}
	rows, stats := NewMerger(DefaultMergeTolerance).Merge(activities, jobs)
	if len(rows) != 3 || stats.UnmatchableJobs != 2 || stats.JobOnly != 2 {
		t.Fatalf("rows = %d, stats = %+v", len(rows), stats)
	}
	if len(rows) < len(activities) {
		t.Fatalf("output shorter than activity input")
	}
}

func TestMergeIdempotent(t *testing.T) {
	activities := []models.ActivityEvent{
		{EntityID: "A", ActivityType: "RunArtifact", StartTime: ts("2024-01-01T10:00:00Z"), SubmittedBy: "u1"},
		{EntityID: "B", ActivityType: "ReadArtifact", StartTime: ts("2024-01-01T10:00:00Z"), SubmittedBy: "u2"},
		{EntityID: "A", ActivityType: "RunArtifact", StartTime: ts("2024-01-01T11:00:00Z"), SubmittedBy: "u1"},
		{EntityID: "C", ActivityType: "ViewReport", SubmittedBy: "u3"},
	}
	jobs := []models.JobRecord{
		{JobID: str("j2"), EntityID: "A", StartTime: ts("2024-01-01T11:01:00Z"), EndTime: ts("2024-01-01T11:03:00Z"), Status: "failed"},
		{JobID: str("j1"), EntityID: "A", StartTime: ts("2024-01-01T10:00:30Z"), EndTime: ts("2024-01-01T10:02:00Z"), Status: "succeeded"},
		{JobID: str("j3"), EntityID: "D", EndTime: ts("2024-01-02T00:00:00Z"), Status: "cancelled"},
	}
	m := NewMerger(DefaultMergeTolerance)
	first, firstStats := m.Merge(activities, jobs)
	second, secondStats := m.Merge(activities, jobs)
	if !reflect.DeepEqual(first, second) || firstStats != secondStats {
		t.Fatalf("merge is not idempotent")
	}

	reversedActivities := make([]models.ActivityEvent, len(activities))
	for i := range activities {
		reversedActivities[len(activities)-1-i] = activities[i]
	}
	reversedJobs := []models.JobRecord{jobs[2], jobs[1], jobs[0]}
	third, _ := m.Merge(reversedActivities, reversedJobs)
	if !reflect.DeepEqual(first, third) {
		t.Fatalf("merge depends on input order:\n%+v\n%+v", first, third)
	}
}

func TestMergeOrderIndependentOnSecondaryFields(t *testing.T) {
	activities := []models.ActivityEvent{
		{EntityID: "X", ActivityType: "Read", StartTime: ts("2024-01-01T10:00:00Z"), SubmittedBy: "u", EntityName: "n1", Metadata: map[string]string{"k": "1"}},
		{EntityID: "X", ActivityType: "Read", StartTime: ts("2024-01-01T10:00:00Z"), SubmittedBy: "u", EntityName: "n2", Metadata: map[string]string{"k": "2"}},
		{EntityID: "X", ActivityType: "Read", StartTime: ts("2024-01-01T10:00:00Z"), SubmittedBy: "u", EntityName: "n1", EntityType: "Notebook"},
	}
	jobs := []models.JobRecord{
		{EntityID: "X", StartTime: ts("2024-01-01T10:00:10Z"), Status: "failed", FailureReason: str("oom")},
		{EntityID: "X", StartTime: ts("2024-01-01T10:00:10Z"), Status: "failed", FailureReason: str("timeout")},
		{EntityID: "X", StartTime: ts("2024-01-01T10:00:10Z"), Status: "failed", DurationSeconds: num(3), WorkspaceID: "ws-1"},
	}

	permutations := [][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	m := NewMerger(DefaultMergeTolerance)
	want, _ := m.Merge(activities, jobs)

	for _, pa := range permutations {
		for _, pj := range permutations {
			a := []models.ActivityEvent{activities[pa[0]], activities[pa[1]], activities[pa[2]]}
			j := []models.JobRecord{jobs[pj[0]], jobs[pj[1]], jobs[pj[2]]}
			got, _ := m.Merge(a, j)
			if !reflect.DeepEqual(want, got) {
				t.Fatalf("activities %v, jobs %v: result depends on input order:\n%+v\n%+v", pa, pj, want, got)
			}
		}
	}
}

func TestMergeFillsWorkspaceFromJob(t *testing.T) {
	activities := []models.ActivityEvent{{EntityID: "X", StartTime: ts("2024-01-01T10:00:00Z")}}
	jobs := []models.JobRecord{{EntityID: "X", StartTime: ts("2024-01-01T10:00:00Z"), WorkspaceName: "Team A", DurationSeconds: num(12.5)}}
	rows, _ := NewMerger(DefaultMergeTolerance).Merge(activities, jobs)
	if rows[0].WorkspaceName != "Team A" || rows[0].WorkspaceID != "" || *rows[0].DurationSeconds != 12.5 {
		t.Fatalf("row = %+v", rows[0])
	}
}

func findSource(rows []models.EnrichedActivity, source string) *models.EnrichedActivity {
	for i := range rows {
		if rows[i].Source == source {
			return &rows[i]
		}
	}
	return nil
}
