package load

import (
	"strings"
	"testing"

	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
)

func TestDescribeSchema(t *testing.T) {
	tables := DescribeSchema()
	if len(tables) != len(models.AllTables) {
		t.Fatalf("таблиц: %d", len(tables))
	}

	byName := make(map[string]TableSchema)
	for _, table := range tables {
		byName[table.Name] = table
	}

	fact := byName[models.TableFactActivity]
	if len(fact.Columns) != 10 || fact.File != "fact_activity.parquet" {
		t.Fatalf("fact_activity = %+v", fact)
	}
	for _, col := range fact.Columns {
		if strings.HasSuffix(col.Name, "_sk") && (!col.SurrogateKey || col.PhysicalType != "INT64" || !col.Nullable) {
			t.Errorf("колонка ключа %+v", col)
		}
	}

	ws := byName[models.TableDimWorkspace]
	last := ws.Columns[len(ws.Columns)-1]
	if last.Name != "first_seen_at" || last.LogicalType != "TIMESTAMP_MICROS" {
		t.Errorf("first_seen_at = %+v", last)
	}
}

func TestParseColumnTag(t *testing.T) {
	cases := []struct {
		tag  string
		want ColumnSchema
	}{
		{"name=date_sk, type=INT64, repetitiontype=OPTIONAL", ColumnSchema{Name: "date_sk", PhysicalType: "INT64", Nullable: true, SurrogateKey: true}},
		{"name=item_type, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY", ColumnSchema{Name: "item_type", PhysicalType: "BYTE_ARRAY", LogicalType: "UTF8"}},
		{"name=full_date, type=INT32, convertedtype=DATE, repetitiontype=optional", ColumnSchema{Name: "full_date", PhysicalType: "INT32", LogicalType: "DATE", Nullable: true}},
	}
	for _, tc := range cases {
		if got := parseColumnTag(tc.tag); got != tc.want {
			t.Errorf("parseColumnTag(%q) = %+v, ожидалось %+v", tc.tag, got, tc.want)
		}
	}
}

func TestRenderDDL(t *testing.T) {
	ddl := RenderDDL(DescribeSchema())
	for _, table := range models.AllTables {
		if !strings.Contains(ddl, "CREATE TABLE "+table+" (") {
			t.Errorf("нет CREATE TABLE %s", table)
		}
	}

	columns := make(map[string][]string)
	for _, line := range strings.Split(ddl, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 3 && strings.HasPrefix(line, "    ") {
			columns[fields[0]] = fields[1:]
		}
	}
	cases := []struct {
		column string
		want   []string
	}{
		{"workspace_sk", []string{"BIGINT", "NOT", "NULL,"}},
		{"first_seen_at", []string{"TIMESTAMP(6)", "NULL"}},
		{"full_date", []string{"DATE", "NULL,"}},
		{"is_weekend", []string{"BOOLEAN", "NOT", "NULL"}},
	}
	for _, tc := range cases {
		got := strings.Join(columns[tc.column], " ")
		if got != strings.Join(tc.want, " ") {
			t.Errorf("%s: %q, ожидалось %q", tc.column, got, strings.Join(tc.want, " "))
		}
	}
}
