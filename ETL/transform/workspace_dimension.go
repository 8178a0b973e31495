package transform

import (
	"sort"
	"time"

	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
)

// WorkspaceNaturalKey возвращает естественный ключ рабочей области:
// workspace_id, а при его отсутствии имя с префиксом "name:"
func WorkspaceNaturalKey(id, name string) string {
	if id != "" {
		return id
	}
	if name != "" {
		return "name:" + name
	}
	return ""
}

// WorkspaceIndex - индексы dim_workspace по идентификатору и по имени
type WorkspaceIndex struct {
	byID   map[string]int64
	byName map[string]int64
}

// NewWorkspaceIndex строит индексы по строкам измерения.
// При совпадении имён побеждает меньший ключ.
func NewWorkspaceIndex(rows []models.WorkspaceDimension) *WorkspaceIndex {
	idx := &WorkspaceIndex{
		byID:   make(map[string]int64, len(rows)),
		byName: make(map[string]int64, len(rows)),
	}
	for _, row := range rows {
		if row.WorkspaceSK == models.UnknownSK {
			continue
		}
		if row.WorkspaceID != "" {
			idx.byID[row.WorkspaceID] = row.WorkspaceSK
		}
		if row.WorkspaceName != "" {
			if sk, ok := idx.byName[row.WorkspaceName]; !ok || row.WorkspaceSK < sk {
				idx.byName[row.WorkspaceName] = row.WorkspaceSK
			}
		}
	}
	return idx
}

type workspaceCandidate struct {
	id, name, wsType, capacity string
	firstSeen                  *time.Time
}

func (c *workspaceCandidate) absorb(name, wsType, capacity string, seen *time.Time) {
	if c.name == "" {
		c.name = name
	}
	if c.wsType == "" {
		c.wsType = wsType
	}
	if c.capacity == "" {
		c.capacity = capacity
	}
	if seen != nil && (c.firstSeen == nil || seen.Before(*c.firstSeen)) {
		t := *seen
		c.firstSeen = &t
	}
}

// BuildOrExtendWorkspaces дополняет dim_workspace новыми рабочими областями.
// Существующие строки возвращаются без изменений и первыми. Запись без
// идентификатора, чьё имя уже известно измерению, новую строку не создаёт.
func BuildOrExtendWorkspaces(existing []models.WorkspaceDimension, rows []models.EnrichedActivity, inventory []models.WorkspaceInfo) []models.WorkspaceDimension {
	registry := NewKeyRegistry()
	hasUnknown := false
	for _, row := range existing {
		if row.WorkspaceSK == models.UnknownSK {
			hasUnknown = true
			continue
		}
		registry.Seed(WorkspaceNaturalKey(row.WorkspaceID, row.WorkspaceName), row.WorkspaceSK)
	}
	idx := NewWorkspaceIndex(existing)

	candidates := make(map[string]*workspaceCandidate)
	collect := func(id, name, wsType, capacity string, seen *time.Time) {
		key := WorkspaceNaturalKey(id, name)
		if key == "" {
			return
		}
		c, ok := candidates[key]
		if !ok {
			c = &workspaceCandidate{id: id}
			candidates[key] = c
		}
		c.absorb(name, wsType, capacity, seen)
	}
	for _, ws := range inventory {
		collect(ws.WorkspaceID, ws.WorkspaceName, ws.WorkspaceType, ws.CapacityID, nil)
	}
	for _, row := range rows {
		collect(row.WorkspaceID, row.WorkspaceName, "", "", row.EffectiveTime())
	}

	// сначала ключи-идентификаторы, затем ключи по имени
	var idKeys, nameKeys []string
	for key, c := range candidates {
		if _, known := registry.Lookup(key); known {
			continue
		}
		if c.id != "" {
			idKeys = append(idKeys, key)
		} else {
			nameKeys = append(nameKeys, key)
		}
	}
	sort.Strings(idKeys)
	sort.Strings(nameKeys)

	result := make([]models.WorkspaceDimension, 0, len(existing)+len(idKeys)+len(nameKeys)+1)
	if !hasUnknown && len(existing) == 0 {
		result = append(result, unknownWorkspaceRow())
	}
	result = append(result, existing...)
	if !hasUnknown && len(existing) > 0 {
		result = append(result, unknownWorkspaceRow())
	}

	knownNames := make(map[string]bool, len(idx.byName))
	for name := range idx.byName {
		knownNames[name] = true
	}

	for _, key := range idKeys {
		c := candidates[key]
		sk, _ := registry.Register(key)
		result = append(result, models.WorkspaceDimension{
			WorkspaceSK:   sk,
			WorkspaceID:   c.id,
			WorkspaceName: c.name,
			WorkspaceType: c.wsType,
			CapacityID:    c.capacity,
			FirstSeenAt:   c.firstSeen,
		})
		if c.name != "" {
			knownNames[c.name] = true
		}
	}
	for _, key := range nameKeys {
		c := candidates[key]
		if knownNames[c.name] {
			continue
		}
		sk, _ := registry.Register(key)
		result = append(result, models.WorkspaceDimension{
			WorkspaceSK:   sk,
			WorkspaceName: c.name,
			WorkspaceType: c.wsType,
			CapacityID:    c.capacity,
			FirstSeenAt:   c.firstSeen,
		})
		knownNames[c.name] = true
	}
	return result
}

func unknownWorkspaceRow() models.WorkspaceDimension {
	return models.WorkspaceDimension{WorkspaceSK: models.UnknownSK, WorkspaceName: models.UnknownMember}
}
