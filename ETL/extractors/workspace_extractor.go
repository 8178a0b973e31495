package extractors

import (
	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
)

// ExtractWorkspaces читает необязательный инвентарь рабочих областей.
// Записи без идентификатора и без имени пропускаются.
func ExtractWorkspaces(paths []string) ([]models.WorkspaceInfo, int, error) {
	f := models.WorkspaceFields
	var workspaces []models.WorkspaceInfo
	for _, path := range paths {
		records, err := ReadPage(path)
		if err != nil {
			return nil, 0, err
		}
		for _, rec := range records {
			ws := models.WorkspaceInfo{
				WorkspaceID:   rec.String(f.WorkspaceID),
				WorkspaceName: rec.String(f.WorkspaceName),
				WorkspaceType: rec.String(f.WorkspaceType),
				CapacityID:    rec.String(f.CapacityID),
			}
			if ws.WorkspaceID == "" && ws.WorkspaceName == "" {
				continue
			}
			workspaces = append(workspaces, ws)
		}
	}
	workspaces, dropped := dedupe(workspaces, func(w models.WorkspaceInfo) string {
		if w.WorkspaceID != "" {
			return "id:" + w.WorkspaceID
		}
		return "name:" + w.WorkspaceName
	})
	return workspaces, dropped, nil
}
