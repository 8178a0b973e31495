package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ClassificationMappings содержит таблицы соответствий для атрибутов измерений.
// Ключи сравниваются без учета регистра.
type ClassificationMappings struct {
	ActivityTypes map[string]string `yaml:"activity_types"`
	ItemTypes     map[string]string `yaml:"item_types"`
	Statuses      map[string]string `yaml:"statuses"`
}

// DefaultMappings возвращает встроенные таблицы соответствий
func DefaultMappings() ClassificationMappings {
	m := ClassificationMappings{
		ActivityTypes: map[string]string{
			"ReadArtifact":          "Read",
			"ViewReport":            "Read",
			"ViewDashboard":         "Read",
			"ViewArtifact":          "Read",
			"CreateArtifact":        "Manage",
			"UpdateArtifact":        "Manage",
			"DeleteArtifact":        "Manage",
			"RenameArtifact":        "Manage",
			"MoveArtifact":          "Manage",
			"RunArtifact":           "Execute",
			"RunNotebook":           "Execute",
			"Pipeline":              "Execute",
			"ScheduledRun":          "Execute",
			"RefreshDataset":        "Execute",
			"RefreshSemanticModel":  "Execute",
			"CancelRun":             "Execute",
			"ExportReport":          "Export",
			"ExportArtifact":        "Export",
			"DownloadReport":        "Export",
			"ShareArtifact":         "Share",
			"ShareReport":           "Share",
			"UpdateWorkspaceAccess": "Share",
			"CreateWorkspace":       "Workspace Admin",
			"UpdateWorkspace":       "Workspace Admin",
			"DeleteWorkspace":       "Workspace Admin",
		},
		ItemTypes: map[string]string{
			"Notebook":           "Data Engineering",
			"SparkJobDefinition": "Data Engineering",
			"Lakehouse":          "Data Engineering",
			"Environment":        "Data Engineering",
			"DataPipeline":       "Data Integration",
			"Dataflow":           "Data Integration",
			"Warehouse":          "Data Warehouse",
			"SQLEndpoint":        "Data Warehouse",
			"Report":             "Power BI",
			"SemanticModel":      "Power BI",
			"Dataset":            "Power BI",
			"Dashboard":          "Power BI",
			"PaginatedReport":    "Power BI",
			"KQLDatabase":        "Real-Time Intelligence",
			"Eventstream":        "Real-Time Intelligence",
			"Eventhouse":         "Real-Time Intelligence",
			"MLModel":            "Data Science",
			"MLExperiment":       "Data Science",
		},
		Statuses: map[string]string{
			"succeeded":  "Success",
			"failed":     "Failure",
			"cancelled":  "Failure",
			"error":      "Failure",
			"inprogress": "In Progress",
			"running":    "In Progress",
			"notstarted": "In Progress",
			"queued":     "In Progress",
			"deduped":    "Skipped",
		},
	}
	m.normalize()
	return m
}

// LoadMappings читает YAML-файл соответствий поверх встроенных таблиц.
// Пустой путь возвращает встроенные таблицы.
func LoadMappings(path string) (ClassificationMappings, error) {
	m := DefaultMappings()
	if path == "" {
		return m, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("ошибка чтения файла соответствий %s: %w", path, err)
	}

	var override ClassificationMappings
	if err := yaml.Unmarshal(data, &override); err != nil {
		return m, fmt.Errorf("ошибка разбора файла соответствий %s: %w", path, err)
	}

	merge(m.ActivityTypes, override.ActivityTypes)
	merge(m.ItemTypes, override.ItemTypes)
	merge(m.Statuses, override.Statuses)
	return m, nil
}

// ActivityCategory возвращает категорию типа активности.
// false означает, что ключа нет в таблице (пробел в соответствиях).
func (m ClassificationMappings) ActivityCategory(activityType string) (string, bool) {
	return lookup(m.ActivityTypes, activityType)
}

// ItemCategory возвращает категорию типа элемента
func (m ClassificationMappings) ItemCategory(itemType string) (string, bool) {
	return lookup(m.ItemTypes, itemType)
}

// StatusCategory возвращает категорию статуса
func (m ClassificationMappings) StatusCategory(status string) (string, bool) {
	return lookup(m.Statuses, status)
}

func (m *ClassificationMappings) normalize() {
	m.ActivityTypes = lowerKeys(m.ActivityTypes)
	m.ItemTypes = lowerKeys(m.ItemTypes)
	m.Statuses = lowerKeys(m.Statuses)
}

func lowerKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

func merge(dst, src map[string]string) {
	for k, v := range src {
		dst[strings.ToLower(strings.TrimSpace(k))] = v
	}
}

func lookup(table map[string]string, key string) (string, bool) {
	v, ok := table[strings.ToLower(strings.TrimSpace(key))]
	return v, ok && v != ""
}
