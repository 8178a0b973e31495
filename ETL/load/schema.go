package load

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
)

// ColumnSchema описывает колонку parquet-таблицы
type ColumnSchema struct {
	Name         string `json:"name"`
	PhysicalType string `json:"physical_type"`
	LogicalType  string `json:"logical_type,omitempty"`
	Nullable     bool   `json:"nullable"`
	SurrogateKey bool   `json:"surrogate_key"`
}

// TableSchema описывает таблицу звезды
type TableSchema struct {
	Name    string         `json:"name"`
	File    string         `json:"file"`
	Columns []ColumnSchema `json:"columns"`
}

var tableRowTypes = map[string]reflect.Type{
	models.TableDimDate:          reflect.TypeOf(DimDateRow{}),
	models.TableDimTime:          reflect.TypeOf(DimTimeRow{}),
	models.TableDimWorkspace:     reflect.TypeOf(DimWorkspaceRow{}),
	models.TableDimItem:          reflect.TypeOf(DimItemRow{}),
	models.TableDimUser:          reflect.TypeOf(DimUserRow{}),
	models.TableDimActivityType:  reflect.TypeOf(DimActivityTypeRow{}),
	models.TableDimStatus:        reflect.TypeOf(DimStatusRow{}),
	models.TableFactActivity:     reflect.TypeOf(FactActivityRow{}),
	models.TableFactDailyMetrics: reflect.TypeOf(FactDailyMetricsRow{}),
}

// DescribeSchema перечисляет таблицы и колонки по тегам parquet-строк
func DescribeSchema() []TableSchema {
	tables := make([]TableSchema, 0, len(models.AllTables))
	for _, name := range models.AllTables {
		rowType := tableRowTypes[name]
		table := TableSchema{Name: name, File: TableFile(name)}
		for i := 0; i < rowType.NumField(); i++ {
			table.Columns = append(table.Columns, parseColumnTag(rowType.Field(i).Tag.Get("parquet")))
		}
		tables = append(tables, table)
	}
	return tables
}

// parseColumnTag разбирает тег вида "name=x, type=INT64, repetitiontype=OPTIONAL"
func parseColumnTag(tag string) ColumnSchema {
	var col ColumnSchema
	for _, part := range strings.Split(tag, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.ToLower(key) {
		case "name":
			col.Name = value
		case "type":
			col.PhysicalType = value
		case "convertedtype":
			col.LogicalType = value
		case "repetitiontype":
			col.Nullable = strings.EqualFold(value, "OPTIONAL")
		}
	}
	col.SurrogateKey = strings.HasSuffix(col.Name, "_sk")
	return col
}

// sqlType сопоставляет тип колонки с типом SQL
func sqlType(col ColumnSchema) string {
	switch col.LogicalType {
	case "UTF8":
		return "VARCHAR"
	case "DATE":
		return "DATE"
	case "TIMESTAMP_MICROS":
		return "TIMESTAMP(6)"
	}
	switch col.PhysicalType {
	case "INT64":
		return "BIGINT"
	case "INT32":
		return "INTEGER"
	case "DOUBLE":
		return "DOUBLE"
	case "BOOLEAN":
		return "BOOLEAN"
	}
	return "VARCHAR"
}

// RenderDDL печатает CREATE TABLE для всех таблиц звезды
func RenderDDL(tables []TableSchema) string {
	var b strings.Builder
	for i, table := range tables {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "-- %s\n", table.File)
		fmt.Fprintf(&b, "CREATE TABLE %s (\n", table.Name)
		for j, col := range table.Columns {
			null := "NOT NULL"
			if col.Nullable && !col.SurrogateKey {
				null = "NULL"
			}
			sep := ","
			if j == len(table.Columns)-1 {
				sep = ""
			}
			fmt.Fprintf(&b, "    %-24s %-13s %s%s\n", col.Name, sqlType(col), null, sep)
		}
		b.WriteString(");\n")
	}
	return b.String()
}
