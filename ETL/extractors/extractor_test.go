package extractors

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/LilVoxy/fabric_activity_etl/ETL/config"
	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
	"github.com/LilVoxy/fabric_activity_etl/ETL/transform"
	"github.com/LilVoxy/fabric_activity_etl/ETL/utils"
	"github.com/LilVoxy/fabric_activity_etl/processor"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func writeCompressed(t *testing.T, dir, name, content string) {
	t.Helper()
	w, err := processor.CreatePage(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(w, content); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func newTestExtractor(dir string) (*Extractor, *transform.TimestampParser) {
	parser := transform.NewTimestampParser(config.DefaultTimestampFormats)
	return NewExtractor(dir, parser, utils.NewNopLogger()), parser
}

func TestClassifyPage(t *testing.T) {
	cases := []struct {
		name string
		kind SourceKind
		ok   bool
	}{
		{"activity_events_20240101.jsonl", SourceActivities, true},
		{"activity_events_20240101.jsonl.sz", SourceActivities, true},
		{"job_history_p1.json", SourceJobs, true},
		{"workspaces.jsonl", SourceWorkspaces, true},
		{"enriched_activities.jsonl.sz", SourceEnriched, true},
		{"activity_events.csv", "", false},
		{"README.md", "", false},
	}
	for _, tc := range cases {
		kind, ok := ClassifyPage(tc.name)
		if kind != tc.kind || ok != tc.ok {
			t.Errorf("ClassifyPage(%q) = %q, %v; want %q, %v", tc.name, kind, ok, tc.kind, tc.ok)
		}
	}
}

func TestExtractReadsAllSources(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "activity_events_1.jsonl",
		`{"activity_id":"a1","item_id":"nb-1","activity":"RunArtifact","creation_time":"2024-01-01T10:00:00Z","status":"Succeeded","user_id":"alice@contoso.com","workspace_id":"ws-1","ClientIP":"10.0.0.1"}
{"activity_id":"a1","item_id":"nb-1","activity":"RunArtifact","creation_time":"2024-01-01T10:00:00Z","status":"Succeeded","user_id":"alice@contoso.com","workspace_id":"ws-1"}
`)
	writeCompressed(t, dir, "job_history_1.jsonl.sz",
		`{"value":[{"id":"j1","itemId":"nb-1","startTimeUtc":"2024-01-01T10:04:40.1234567Z","endTimeUtc":"2024-01-01T10:10:00Z","status":"Completed","durationSeconds":320}]}`)
	writeFile(t, dir, "workspaces.jsonl", `[{"id":"ws-1","displayName":"Sales","type":"Workspace","capacityId":"cap-1"},{"id":"ws-1","displayName":"Sales"}]`)
	writeFile(t, dir, "notes.txt", "ignored")

	ex, parser := newTestExtractor(dir)
	data, err := ex.Extract(context.Background())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(data.Activities) != 1 || len(data.Jobs) != 1 || len(data.Workspaces) != 1 {
		t.Fatalf("got %d activities, %d jobs, %d workspaces", len(data.Activities), len(data.Jobs), len(data.Workspaces))
	}
	if data.DuplicatesDropped != 2 {
		t.Fatalf("DuplicatesDropped = %d, want 2", data.DuplicatesDropped)
	}
	if len(data.Files) != 3 {
		t.Fatalf("Files = %v", data.Files)
	}

	a := data.Activities[0]
	if a.EntityID != "nb-1" || a.ActivityType != "RunArtifact" || a.Status != models.StatusSucceeded {
		t.Fatalf("activity = %+v", a)
	}
	if a.Metadata["ClientIP"] != "10.0.0.1" {
		t.Fatalf("metadata = %v", a.Metadata)
	}

	j := data.Jobs[0]
	if j.Status != models.StatusSucceeded || j.DurationSeconds == nil || *j.DurationSeconds != 320 {
		t.Fatalf("job = %+v", j)
	}
	if j.StartTime == nil || j.StartTime.Nanosecond() != 123456000 {
		t.Fatalf("job start not truncated to micros: %v", j.StartTime)
	}
	if parser.Truncated() != 1 {
		t.Fatalf("Truncated = %d, want 1", parser.Truncated())
	}
	if data.Workspaces[0].CapacityID != "cap-1" {
		t.Fatalf("workspace = %+v", data.Workspaces[0])
	}
}

func TestExtractEnrichedRejectsFractionalKey(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "enriched_activities.jsonl", `{"entity_id":"nb-1","workspace_sk":5.5,"record_count":1}`+"\n")

	ex, _ := newTestExtractor(dir)
	_, err := ex.Extract(context.Background())
	if err == nil || !models.IsSchemaError(err) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}

func TestExtractEnrichedInfersSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "enriched_activities.jsonl",
		`{"activity_id":"a1","job_id":"j1","entity_id":"nb-1","start_time":"2024-01-01T10:00:00Z","duration_seconds":12,"status":"failed"}
{"job_id":"j2","entity_id":"nb-2","end_time":"2024-01-01T11:00:00Z"}
`)
	ex, _ := newTestExtractor(dir)
	data, err := ex.Extract(context.Background())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(data.Enriched) != 2 {
		t.Fatalf("Enriched = %d rows", len(data.Enriched))
	}
	first, second := data.Enriched[0], data.Enriched[1]
	if first.Source != models.SourceMerged || first.RecordCount != 1 || first.DurationSeconds == nil || *first.DurationSeconds != 12 {
		t.Fatalf("first = %+v", first)
	}
	if second.Source != models.SourceJob || second.EffectiveTime() == nil {
		t.Fatalf("second = %+v", second)
	}
}

func TestExtractMalformedTimestampCounted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "activity_events.jsonl", `{"item_id":"x","creation_time":"yesterday"}`+"\n")

	ex, parser := newTestExtractor(dir)
	data, err := ex.Extract(context.Background())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if data.Activities[0].StartTime != nil || parser.Malformed() != 1 {
		t.Fatalf("start = %v, malformed = %d", data.Activities[0].StartTime, parser.Malformed())
	}
}

func TestExtractMissingDirectory(t *testing.T) {
	ex, _ := newTestExtractor(filepath.Join(t.TempDir(), "absent"))
	if _, err := ex.Extract(context.Background()); err == nil {
		t.Fatalf("expected error for missing input directory")
	}
}

func TestReadPageInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "activity_events.jsonl", "{not json}\n")
	if _, err := ReadPage(filepath.Join(dir, "activity_events.jsonl")); err == nil {
		t.Fatalf("expected parse error")
	}
}
