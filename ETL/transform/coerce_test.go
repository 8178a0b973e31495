package transform

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/LilVoxy/fabric_activity_etl/ETL/config"
	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
)

func TestCoerceSurrogateKeys(t *testing.T) {
	rows := []models.Record{
		{"workspace_sk": float64(5), "item_sk": json.Number("7"), "user_sk": nil, "date_sk": math.NaN(), "name": 1.5},
		{"workspace_sk": int(6), "item_sk": json.Number("8.0")},
	}
	if err := CoerceSurrogateKeys("fact_activity", rows); err != nil {
		t.Fatalf("CoerceSurrogateKeys: %v", err)
	}
	want := []models.Record{
		{"workspace_sk": int64(5), "item_sk": int64(7), "user_sk": nil, "date_sk": nil, "name": 1.5},
		{"workspace_sk": int64(6), "item_sk": int64(8)},
	}
	for i := range want {
		for k, v := range want[i] {
			if rows[i][k] != v {
				t.Errorf("row %d %s = %#v, want %#v", i, k, rows[i][k], v)
			}
		}
	}
}

func TestCoerceSurrogateKeysRejectsFractional(t *testing.T) {
	cases := []models.Record{
		{"workspace_sk": 5.5},
		{"workspace_sk": json.Number("5.25")},
		{"workspace_sk": "5"},
		{"workspace_sk": math.Inf(1)},
		{"workspace_sk": float64(1 << 63)},
		{"workspace_sk": json.Number("9223372036854775808")},
		{"workspace_sk": -float64(1<<63) * 2},
	}
	for _, row := range cases {
		err := CoerceSurrogateKeys("dim_workspace", []models.Record{row})
		if !models.IsSchemaError(err) {
			t.Errorf("%v: expected SchemaError, got %v", row, err)
		}
	}
}

func TestCoerceSurrogateKeysInt64Bounds(t *testing.T) {
	rows := []models.Record{{"workspace_sk": -float64(1 << 63)}}
	if err := CoerceSurrogateKeys("dim_workspace", rows); err != nil {
		t.Fatalf("CoerceSurrogateKeys: %v", err)
	}
	if got := rows[0]["workspace_sk"]; got != int64(math.MinInt64) {
		t.Errorf("workspace_sk = %#v, want %d", got, int64(math.MinInt64))
	}
}

func TestCoerceMeasures(t *testing.T) {
	rows := []models.Record{
		{},
		{"record_count": json.Number("1"), "duration_seconds": json.Number("12.5")},
		{"record_count": nil, "duration_seconds": math.NaN()},
	}
	if err := CoerceMeasures("enriched_activities", rows); err != nil {
		t.Fatalf("CoerceMeasures: %v", err)
	}
	if rows[0]["record_count"] != int64(1) || rows[1]["record_count"] != int64(1) || rows[2]["record_count"] != int64(1) {
		t.Fatalf("record_count not defaulted: %v", rows)
	}
	if rows[1]["duration_seconds"] != 12.5 || rows[2]["duration_seconds"] != nil {
		t.Fatalf("duration_seconds = %v, %v", rows[1]["duration_seconds"], rows[2]["duration_seconds"])
	}

	if err := CoerceMeasures("t", []models.Record{{"duration_seconds": "12"}}); !models.IsSchemaError(err) {
		t.Fatalf("string duration: expected SchemaError, got %v", err)
	}
	if err := CoerceMeasures("t", []models.Record{{"record_count": 1.5}}); !models.IsSchemaError(err) {
		t.Fatalf("fractional record_count: expected SchemaError, got %v", err)
	}
}

func TestTimestampParser(t *testing.T) {
	p := NewTimestampParser(config.DefaultTimestampFormats)

	cases := []struct {
		in   any
		want string
	}{
		{"2024-01-01T09:00:00Z", "2024-01-01T09:00:00Z"},
		{"2024-01-01T09:00:00.123456789Z", "2024-01-01T09:00:00.123456Z"},
		{"2024-01-01T11:00:00+02:00", "2024-01-01T09:00:00Z"},
		{"2024-01-01 09:00:00", "2024-01-01T09:00:00Z"},
		{"01/02/2024 09:00:00", "2024-01-02T09:00:00Z"},
		{"2024-01-01", "2024-01-01T00:00:00Z"},
		{json.Number("1704099600000"), "2024-01-01T09:00:00Z"},
		{float64(1704099600000), "2024-01-01T09:00:00Z"},
	}
	for _, tc := range cases {
		got := p.Parse(tc.in)
		if got == nil {
			t.Errorf("Parse(%v) = nil", tc.in)
			continue
		}
		if s := got.Format(time.RFC3339Nano); s != tc.want {
			t.Errorf("Parse(%v) = %s, want %s", tc.in, s, tc.want)
		}
	}
	if p.Truncated() != 1 {
		t.Errorf("Truncated = %d, want 1", p.Truncated())
	}

	for _, bad := range []any{"not a date", true} {
		if got := p.Parse(bad); got != nil {
			t.Errorf("Parse(%v) = %v, want nil", bad, got)
		}
	}
	for _, empty := range []any{nil, "", math.NaN()} {
		if got := p.Parse(empty); got != nil {
			t.Errorf("Parse(%v) = %v, want nil", empty, got)
		}
	}
	if p.Malformed() != 2 {
		t.Errorf("Malformed = %d, want 2", p.Malformed())
	}
}

func TestSafeWorkspaceLookup(t *testing.T) {
	idx := NewWorkspaceIndex([]models.WorkspaceDimension{
		{WorkspaceSK: models.UnknownSK, WorkspaceName: models.UnknownMember},
		{WorkspaceSK: 5, WorkspaceID: "ws-1", WorkspaceName: "Team A"},
		{WorkspaceSK: 9, WorkspaceName: "Legacy"},
	})

	cases := []struct {
		id, name string
		sk       int64
		res      WorkspaceResolution
	}{
		{"ws-1", "", 5, WorkspaceByID},
		{"ws-1", "Other", 5, WorkspaceByID},
		{"", "Team A", 5, WorkspaceByName},
		{"deleted", "Legacy", 9, WorkspaceByName},
		{"deleted", "", models.UnknownSK, WorkspaceUnresolved},
		{"", models.UnknownMember, models.UnknownSK, WorkspaceUnresolved},
		{"", "", models.UnknownSK, WorkspaceUnresolved},
	}
	for _, tc := range cases {
		sk, res := SafeWorkspaceLookup(tc.id, tc.name, idx)
		if sk != tc.sk || res != tc.res {
			t.Errorf("SafeWorkspaceLookup(%q, %q) = %d, %v; want %d, %v", tc.id, tc.name, sk, res, tc.sk, tc.res)
		}
	}
}
