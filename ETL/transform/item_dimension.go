package transform

import (
	"sort"
	"time"

	"github.com/LilVoxy/fabric_activity_etl/ETL/config"
	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
)

type itemCandidate struct {
	name, itemType, workspaceID string
	firstSeen                   *time.Time
}

// BuildOrExtendItems дополняет dim_item элементами, которых ещё нет в измерении.
// Второй результат - типы элементов без категории в таблице соответствий.
func BuildOrExtendItems(existing []models.ItemDimension, rows []models.EnrichedActivity, mappings config.ClassificationMappings) ([]models.ItemDimension, []string) {
	registry := NewKeyRegistry()
	hasUnknown := false
	for _, row := range existing {
		if row.ItemSK == models.UnknownSK {
			hasUnknown = true
			continue
		}
		registry.Seed(row.ItemID, row.ItemSK)
	}

	candidates := make(map[string]*itemCandidate)
	gapSet := make(map[string]struct{})
	for _, row := range rows {
		if row.EntityType != "" {
			if _, ok := mappings.ItemCategory(row.EntityType); !ok {
				gapSet[row.EntityType] = struct{}{}
			}
		}
		if row.EntityID == "" {
			continue
		}
		if _, known := registry.Lookup(row.EntityID); known {
			continue
		}
		c, ok := candidates[row.EntityID]
		if !ok {
			c = &itemCandidate{}
			candidates[row.EntityID] = c
		}
		if c.name == "" {
			c.name = row.EntityName
		}
		if c.itemType == "" {
			c.itemType = row.EntityType
		}
		if c.workspaceID == "" {
			c.workspaceID = row.WorkspaceID
		}
		if seen := row.EffectiveTime(); seen != nil && (c.firstSeen == nil || seen.Before(*c.firstSeen)) {
			t := *seen
			c.firstSeen = &t
		}
	}

	keys := make([]string, 0, len(candidates))
	for key := range candidates {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]models.ItemDimension, 0, len(existing)+len(keys)+1)
	if !hasUnknown {
		result = append(result, models.ItemDimension{ItemSK: models.UnknownSK, ItemName: models.UnknownMember,
			ItemType: models.UnknownMember, ItemCategory: models.UnknownMember})
	}
	result = append(result, existing...)
	for _, key := range keys {
		c := candidates[key]
		sk, _ := registry.Register(key)
		category, ok := mappings.ItemCategory(c.itemType)
		if !ok {
			category = models.UnknownMember
		}
		result = append(result, models.ItemDimension{
			ItemSK:       sk,
			ItemID:       key,
			ItemName:     c.name,
			ItemType:     c.itemType,
			ItemCategory: category,
			WorkspaceID:  c.workspaceID,
			FirstSeenAt:  c.firstSeen,
		})
	}
	return result, sortedKeys(gapSet)
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
