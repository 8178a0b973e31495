package transform

import (
	"strings"

	"github.com/LilVoxy/fabric_activity_etl/ETL/config"
	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
)

// BuildOrExtendActivityTypes дополняет dim_activity_type.
// Второй результат - типы активности без категории в таблице соответствий.
func BuildOrExtendActivityTypes(existing []models.ActivityTypeDimension, rows []models.EnrichedActivity, mappings config.ClassificationMappings) ([]models.ActivityTypeDimension, []string) {
	registry := NewKeyRegistry()
	hasUnknown := false
	for _, row := range existing {
		if row.ActivityTypeSK == models.UnknownSK {
			hasUnknown = true
			continue
		}
		registry.Seed(row.ActivityType, row.ActivityTypeSK)
	}

	observed := make(map[string]struct{})
	for _, row := range rows {
		if key := strings.TrimSpace(row.ActivityType); key != "" {
			observed[key] = struct{}{}
		}
	}

	gapSet := make(map[string]struct{})
	result := make([]models.ActivityTypeDimension, 0, len(existing)+len(observed)+1)
	if !hasUnknown {
		result = append(result, models.ActivityTypeDimension{ActivityTypeSK: models.UnknownSK, ActivityType: models.UnknownMember, ActivityCategory: models.UnknownMember})
	}
	result = append(result, existing...)
	for _, key := range sortedKeys(observed) {
		category, ok := mappings.ActivityCategory(key)
		if !ok {
			gapSet[key] = struct{}{}
			category = models.UnknownMember
		}
		sk, created := registry.Register(key)
		if !created {
			continue
		}
		result = append(result, models.ActivityTypeDimension{ActivityTypeSK: sk, ActivityType: key, ActivityCategory: category})
	}
	return result, sortedKeys(gapSet)
}

// BuildOrExtendStatuses дополняет dim_status.
// Второй результат - статусы без категории в таблице соответствий.
func BuildOrExtendStatuses(existing []models.StatusDimension, rows []models.EnrichedActivity, mappings config.ClassificationMappings) ([]models.StatusDimension, []string) {
	registry := NewKeyRegistry()
	hasUnknown := false
	for _, row := range existing {
		if row.StatusSK == models.UnknownSK {
			hasUnknown = true
			continue
		}
		registry.Seed(row.Status, row.StatusSK)
	}

	observed := make(map[string]struct{})
	for _, row := range rows {
		if key := models.NormalizeStatus(row.Status); key != "" {
			observed[key] = struct{}{}
		}
	}

	gapSet := make(map[string]struct{})
	result := make([]models.StatusDimension, 0, len(existing)+len(observed)+1)
	if !hasUnknown {
		result = append(result, models.StatusDimension{StatusSK: models.UnknownSK, Status: models.UnknownMember, StatusCategory: models.UnknownMember})
	}
	result = append(result, existing...)
	for _, key := range sortedKeys(observed) {
		category, ok := mappings.StatusCategory(key)
		if !ok {
			gapSet[key] = struct{}{}
			category = models.UnknownMember
		}
		sk, created := registry.Register(key)
		if !created {
			continue
		}
		result = append(result, models.StatusDimension{
			StatusSK:       sk,
			Status:         key,
			StatusCategory: category,
			IsFailure:      models.IsFailedStatus(key),
		})
	}
	return result, sortedKeys(gapSet)
}

// ClassificationIndex - индекс «естественный ключ → ключ» для измерений без особых правил поиска
type ClassificationIndex struct {
	ActivityTypes *KeyRegistry
	Statuses      *KeyRegistry
	Items         *KeyRegistry
	Users         *KeyRegistry
}

// NewClassificationIndex строит индексы по текущим строкам измерений
func NewClassificationIndex(schema *models.StarSchema) *ClassificationIndex {
	idx := &ClassificationIndex{
		ActivityTypes: NewKeyRegistry(),
		Statuses:      NewKeyRegistry(),
		Items:         NewKeyRegistry(),
		Users:         NewKeyRegistry(),
	}
	for _, row := range schema.ActivityTypes {
		idx.ActivityTypes.Seed(row.ActivityType, row.ActivityTypeSK)
	}
	for _, row := range schema.Statuses {
		idx.Statuses.Seed(row.Status, row.StatusSK)
	}
	for _, row := range schema.Items {
		idx.Items.Seed(row.ItemID, row.ItemSK)
	}
	for _, row := range schema.Users {
		idx.Users.Seed(row.UserPrincipal, row.UserSK)
	}
	return idx
}
