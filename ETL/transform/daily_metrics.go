package transform

import (
	"sort"

	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
)

type dailyKey struct {
	dateSK, workspaceSK, activityTypeSK int64
}

type dailyAccumulator struct {
	total, failed, succeeded int64
	users, items             map[int64]struct{}
	durationCount            int64
	durationSum              float64
	durationMax              float64
}

// BuildDailyMetrics пересчитывает fact_daily_metrics по полной таблице фактов.
// Строки упорядочены по (date_sk, workspace_sk, activity_type_sk).
func BuildDailyMetrics(facts []models.ActivityFact, statuses []models.StatusDimension) []models.DailyMetricsFact {
	succeededSK := make(map[int64]bool)
	for _, s := range statuses {
		if s.Status == models.StatusSucceeded {
			succeededSK[s.StatusSK] = true
		}
	}

	groups := make(map[dailyKey]*dailyAccumulator)
	for _, f := range facts {
		key := dailyKey{f.DateSK, f.WorkspaceSK, f.ActivityTypeSK}
		acc, ok := groups[key]
		if !ok {
			acc = &dailyAccumulator{users: make(map[int64]struct{}), items: make(map[int64]struct{})}
			groups[key] = acc
		}

		acc.total += f.RecordCount
		if f.IsFailed {
			acc.failed += f.RecordCount
		}
		if succeededSK[f.StatusSK] {
			acc.succeeded += f.RecordCount
		}
		if f.UserSK != models.UnknownSK {
			acc.users[f.UserSK] = struct{}{}
		}
		if f.ItemSK != models.UnknownSK {
			acc.items[f.ItemSK] = struct{}{}
		}
		if f.DurationSeconds != nil {
			d := *f.DurationSeconds
			if acc.durationCount == 0 || d > acc.durationMax {
				acc.durationMax = d
			}
			acc.durationCount++
			acc.durationSum += d
		}
	}

	keys := make([]dailyKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.dateSK != b.dateSK {
			return a.dateSK < b.dateSK
		}
		if a.workspaceSK != b.workspaceSK {
			return a.workspaceSK < b.workspaceSK
		}
		return a.activityTypeSK < b.activityTypeSK
	})

	metrics := make([]models.DailyMetricsFact, 0, len(keys))
	for _, key := range keys {
		acc := groups[key]
		row := models.DailyMetricsFact{
			DateSK:               key.dateSK,
			WorkspaceSK:          key.workspaceSK,
			ActivityTypeSK:       key.activityTypeSK,
			TotalActivities:      acc.total,
			FailedActivities:     acc.failed,
			SucceededActivities:  acc.succeeded,
			DistinctUsers:        int64(len(acc.users)),
			DistinctItems:        int64(len(acc.items)),
			DurationCount:        acc.durationCount,
			TotalDurationSeconds: acc.durationSum,
		}
		if acc.total > 0 {
			row.SuccessRate = float64(acc.total-acc.failed) / float64(acc.total)
		}
		if acc.durationCount > 0 {
			avg := acc.durationSum / float64(acc.durationCount)
			maxDuration := acc.durationMax
			row.AvgDurationSeconds = &avg
			row.MaxDurationSeconds = &maxDuration
		}
		metrics = append(metrics, row)
	}
	return metrics
}
