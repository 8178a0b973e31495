package transform

import (
	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
)

// FactResolver разрешает суррогатные ключи строк факта по текущим измерениям
type FactResolver struct {
	dates      DateIndex
	workspaces *WorkspaceIndex
	keys       *ClassificationIndex
}

// NewFactResolver строит индексы по измерениям звезды
func NewFactResolver(schema *models.StarSchema) *FactResolver {
	return &FactResolver{
		dates:      NewDateIndex(schema.Dates),
		workspaces: NewWorkspaceIndex(schema.Workspaces),
		keys:       NewClassificationIndex(schema),
	}
}

// BuildActivityFacts формирует по одной строке fact_activity на каждую обогащённую запись.
// Неразрешённые ссылки получают UnknownSK и учитываются в quality.
func (r *FactResolver) BuildActivityFacts(rows []models.EnrichedActivity, quality *models.QualityStats) []models.ActivityFact {
	facts := make([]models.ActivityFact, 0, len(rows))
	for _, row := range rows {
		dateSK, timeSK, ok := r.dates.Resolve(row.EffectiveTime())
		if !ok {
			quality.UnknownDates++
		}

		workspaceSK, resolution := SafeWorkspaceLookup(row.WorkspaceID, row.WorkspaceName, r.workspaces)
		switch resolution {
		case WorkspaceByName:
			quality.WorkspacesByName++
		case WorkspaceUnresolved:
			quality.UnresolvedWorkspaces++
		}

		itemSK, ok := r.keys.Items.Resolve(row.EntityID)
		if !ok {
			quality.UnresolvedItems++
		}
		userSK, ok := r.keys.Users.Resolve(UserNaturalKey(row.SubmittedBy))
		if !ok {
			quality.UnresolvedUsers++
		}
		activityTypeSK, _ := r.keys.ActivityTypes.Resolve(row.ActivityType)
		statusSK, _ := r.keys.Statuses.Resolve(models.NormalizeStatus(row.Status))

		var duration *float64
		if row.DurationSeconds != nil {
			d := *row.DurationSeconds
			duration = &d
		}

		facts = append(facts, models.ActivityFact{
			DateSK:          dateSK,
			TimeSK:          timeSK,
			WorkspaceSK:     workspaceSK,
			ItemSK:          itemSK,
			UserSK:          userSK,
			ActivityTypeSK:  activityTypeSK,
			StatusSK:        statusSK,
			DurationSeconds: duration,
			RecordCount:     1,
			IsFailed:        models.IsFailedStatus(row.Status),
		})
	}
	return facts
}
