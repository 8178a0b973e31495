package load

import (
	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
)

func dateRows(dims []models.DateDimension) []DimDateRow {
	rows := make([]DimDateRow, 0, len(dims))
	for _, d := range dims {
		rows = append(rows, DimDateRow{
			DateSK:     skPtr(d.DateSK),
			FullDate:   toEpochDays(d.FullDate),
			Year:       int32(d.Year),
			Quarter:    int32(d.Quarter),
			Month:      int32(d.Month),
			MonthName:  d.MonthName,
			WeekOfYear: int32(d.WeekOfYear),
			DayOfMonth: int32(d.DayOfMonth),
			DayOfWeek:  int32(d.DayOfWeek),
			DayName:    d.DayName,
			IsWeekend:  d.IsWeekend,
		})
	}
	return rows
}

func datesFromRows(rows []DimDateRow) ([]models.DateDimension, error) {
	dims := make([]models.DateDimension, 0, len(rows))
	for _, r := range rows {
		sk, err := requireSK(models.TableDimDate, "date_sk", r.DateSK)
		if err != nil {
			return nil, err
		}
		dims = append(dims, models.DateDimension{
			DateSK:     sk,
			FullDate:   fromEpochDays(r.FullDate),
			Year:       int(r.Year),
			Quarter:    int(r.Quarter),
			Month:      int(r.Month),
			MonthName:  r.MonthName,
			WeekOfYear: int(r.WeekOfYear),
			DayOfMonth: int(r.DayOfMonth),
			DayOfWeek:  int(r.DayOfWeek),
			DayName:    r.DayName,
			IsWeekend:  r.IsWeekend,
		})
	}
	return dims, nil
}

func timeRows(dims []models.TimeDimension) []DimTimeRow {
	rows := make([]DimTimeRow, 0, len(dims))
	for _, d := range dims {
		rows = append(rows, DimTimeRow{
			TimeSK:    skPtr(d.TimeSK),
			Hour:      int32(d.Hour),
			Minute:    int32(d.Minute),
			TimeLabel: d.TimeLabel,
			DayPeriod: d.DayPeriod,
		})
	}
	return rows
}

func timesFromRows(rows []DimTimeRow) ([]models.TimeDimension, error) {
	dims := make([]models.TimeDimension, 0, len(rows))
	for _, r := range rows {
		sk, err := requireSK(models.TableDimTime, "time_sk", r.TimeSK)
		if err != nil {
			return nil, err
		}
		dims = append(dims, models.TimeDimension{
			TimeSK:    sk,
			Hour:      int(r.Hour),
			Minute:    int(r.Minute),
			TimeLabel: r.TimeLabel,
			DayPeriod: r.DayPeriod,
		})
	}
	return dims, nil
}

func workspaceRows(dims []models.WorkspaceDimension) []DimWorkspaceRow {
	rows := make([]DimWorkspaceRow, 0, len(dims))
	for _, d := range dims {
		rows = append(rows, DimWorkspaceRow{
			WorkspaceSK:   skPtr(d.WorkspaceSK),
			WorkspaceID:   d.WorkspaceID,
			WorkspaceName: d.WorkspaceName,
			WorkspaceType: d.WorkspaceType,
			CapacityID:    d.CapacityID,
			FirstSeenAt:   toMicros(d.FirstSeenAt),
		})
	}
	return rows
}

func workspacesFromRows(rows []DimWorkspaceRow) ([]models.WorkspaceDimension, error) {
	dims := make([]models.WorkspaceDimension, 0, len(rows))
	for _, r := range rows {
		sk, err := requireSK(models.TableDimWorkspace, "workspace_sk", r.WorkspaceSK)
		if err != nil {
			return nil, err
		}
		dims = append(dims, models.WorkspaceDimension{
			WorkspaceSK:   sk,
			WorkspaceID:   r.WorkspaceID,
			WorkspaceName: r.WorkspaceName,
			WorkspaceType: r.WorkspaceType,
			CapacityID:    r.CapacityID,
			FirstSeenAt:   fromMicros(r.FirstSeenAt),
		})
	}
	return dims, nil
}

func itemRows(dims []models.ItemDimension) []DimItemRow {
	rows := make([]DimItemRow, 0, len(dims))
	for _, d := range dims {
		rows = append(rows, DimItemRow{
			ItemSK:       skPtr(d.ItemSK),
			ItemID:       d.ItemID,
			ItemName:     d.ItemName,
			ItemType:     d.ItemType,
			ItemCategory: d.ItemCategory,
			WorkspaceID:  d.WorkspaceID,
			FirstSeenAt:  toMicros(d.FirstSeenAt),
		})
	}
	return rows
}

func itemsFromRows(rows []DimItemRow) ([]models.ItemDimension, error) {
	dims := make([]models.ItemDimension, 0, len(rows))
	for _, r := range rows {
		sk, err := requireSK(models.TableDimItem, "item_sk", r.ItemSK)
		if err != nil {
			return nil, err
		}
		dims = append(dims, models.ItemDimension{
			ItemSK:       sk,
			ItemID:       r.ItemID,
			ItemName:     r.ItemName,
			ItemType:     r.ItemType,
			ItemCategory: r.ItemCategory,
			WorkspaceID:  r.WorkspaceID,
			FirstSeenAt:  fromMicros(r.FirstSeenAt),
		})
	}
	return dims, nil
}

func userRows(dims []models.UserDimension) []DimUserRow {
	rows := make([]DimUserRow, 0, len(dims))
	for _, d := range dims {
		rows = append(rows, DimUserRow{
			UserSK:        skPtr(d.UserSK),
			UserPrincipal: d.UserPrincipal,
			UserType:      d.UserType,
			UserDomain:    d.UserDomain,
			FirstSeenAt:   toMicros(d.FirstSeenAt),
		})
	}
	return rows
}

func usersFromRows(rows []DimUserRow) ([]models.UserDimension, error) {
	dims := make([]models.UserDimension, 0, len(rows))
	for _, r := range rows {
		sk, err := requireSK(models.TableDimUser, "user_sk", r.UserSK)
		if err != nil {
			return nil, err
		}
		dims = append(dims, models.UserDimension{
			UserSK:        sk,
			UserPrincipal: r.UserPrincipal,
			UserType:      r.UserType,
			UserDomain:    r.UserDomain,
			FirstSeenAt:   fromMicros(r.FirstSeenAt),
		})
	}
	return dims, nil
}

func activityTypeRows(dims []models.ActivityTypeDimension) []DimActivityTypeRow {
	rows := make([]DimActivityTypeRow, 0, len(dims))
	for _, d := range dims {
		rows = append(rows, DimActivityTypeRow{
			ActivityTypeSK:   skPtr(d.ActivityTypeSK),
			ActivityType:     d.ActivityType,
			ActivityCategory: d.ActivityCategory,
		})
	}
	return rows
}

func activityTypesFromRows(rows []DimActivityTypeRow) ([]models.ActivityTypeDimension, error) {
	dims := make([]models.ActivityTypeDimension, 0, len(rows))
	for _, r := range rows {
		sk, err := requireSK(models.TableDimActivityType, "activity_type_sk", r.ActivityTypeSK)
		if err != nil {
			return nil, err
		}
		dims = append(dims, models.ActivityTypeDimension{
			ActivityTypeSK:   sk,
			ActivityType:     r.ActivityType,
			ActivityCategory: r.ActivityCategory,
		})
	}
	return dims, nil
}

func statusRows(dims []models.StatusDimension) []DimStatusRow {
	rows := make([]DimStatusRow, 0, len(dims))
	for _, d := range dims {
		rows = append(rows, DimStatusRow{
			StatusSK:       skPtr(d.StatusSK),
			Status:         d.Status,
			StatusCategory: d.StatusCategory,
			IsFailure:      d.IsFailure,
		})
	}
	return rows
}

func statusesFromRows(rows []DimStatusRow) ([]models.StatusDimension, error) {
	dims := make([]models.StatusDimension, 0, len(rows))
	for _, r := range rows {
		sk, err := requireSK(models.TableDimStatus, "status_sk", r.StatusSK)
		if err != nil {
			return nil, err
		}
		dims = append(dims, models.StatusDimension{
			StatusSK:       sk,
			Status:         r.Status,
			StatusCategory: r.StatusCategory,
			IsFailure:      r.IsFailure,
		})
	}
	return dims, nil
}

func activityFactRows(facts []models.ActivityFact) []FactActivityRow {
	rows := make([]FactActivityRow, 0, len(facts))
	for _, f := range facts {
		rows = append(rows, FactActivityRow{
			DateSK:          skPtr(f.DateSK),
			TimeSK:          skPtr(f.TimeSK),
			WorkspaceSK:     skPtr(f.WorkspaceSK),
			ItemSK:          skPtr(f.ItemSK),
			UserSK:          skPtr(f.UserSK),
			ActivityTypeSK:  skPtr(f.ActivityTypeSK),
			StatusSK:        skPtr(f.StatusSK),
			DurationSeconds: copyFloat(f.DurationSeconds),
			RecordCount:     f.RecordCount,
			IsFailed:        f.IsFailed,
		})
	}
	return rows
}

func activityFactsFromRows(rows []FactActivityRow) ([]models.ActivityFact, error) {
	facts := make([]models.ActivityFact, 0, len(rows))
	for _, r := range rows {
		keys := []struct {
			column string
			value  *int64
		}{
			{"date_sk", r.DateSK},
			{"time_sk", r.TimeSK},
			{"workspace_sk", r.WorkspaceSK},
			{"item_sk", r.ItemSK},
			{"user_sk", r.UserSK},
			{"activity_type_sk", r.ActivityTypeSK},
			{"status_sk", r.StatusSK},
		}
		resolved := make([]int64, len(keys))
		for i, k := range keys {
			sk, err := requireSK(models.TableFactActivity, k.column, k.value)
			if err != nil {
				return nil, err
			}
			resolved[i] = sk
		}
		facts = append(facts, models.ActivityFact{
			DateSK:          resolved[0],
			TimeSK:          resolved[1],
			WorkspaceSK:     resolved[2],
			ItemSK:          resolved[3],
			UserSK:          resolved[4],
			ActivityTypeSK:  resolved[5],
			StatusSK:        resolved[6],
			DurationSeconds: copyFloat(r.DurationSeconds),
			RecordCount:     r.RecordCount,
			IsFailed:        r.IsFailed,
		})
	}
	return facts, nil
}

func dailyMetricsRows(facts []models.DailyMetricsFact) []FactDailyMetricsRow {
	rows := make([]FactDailyMetricsRow, 0, len(facts))
	for _, f := range facts {
		rows = append(rows, FactDailyMetricsRow{
			DateSK:               skPtr(f.DateSK),
			WorkspaceSK:          skPtr(f.WorkspaceSK),
			ActivityTypeSK:       skPtr(f.ActivityTypeSK),
			TotalActivities:      f.TotalActivities,
			FailedActivities:     f.FailedActivities,
			SucceededActivities:  f.SucceededActivities,
			SuccessRate:          f.SuccessRate,
			DistinctUsers:        f.DistinctUsers,
			DistinctItems:        f.DistinctItems,
			DurationCount:        f.DurationCount,
			TotalDurationSeconds: f.TotalDurationSeconds,
			AvgDurationSeconds:   copyFloat(f.AvgDurationSeconds),
			MaxDurationSeconds:   copyFloat(f.MaxDurationSeconds),
		})
	}
	return rows
}

func dailyMetricsFromRows(rows []FactDailyMetricsRow) ([]models.DailyMetricsFact, error) {
	facts := make([]models.DailyMetricsFact, 0, len(rows))
	for _, r := range rows {
		dateSK, err := requireSK(models.TableFactDailyMetrics, "date_sk", r.DateSK)
		if err != nil {
			return nil, err
		}
		wsSK, err := requireSK(models.TableFactDailyMetrics, "workspace_sk", r.WorkspaceSK)
		if err != nil {
			return nil, err
		}
		typeSK, err := requireSK(models.TableFactDailyMetrics, "activity_type_sk", r.ActivityTypeSK)
		if err != nil {
			return nil, err
		}
		facts = append(facts, models.DailyMetricsFact{
			DateSK:               dateSK,
			WorkspaceSK:          wsSK,
			ActivityTypeSK:       typeSK,
			TotalActivities:      r.TotalActivities,
			FailedActivities:     r.FailedActivities,
			SucceededActivities:  r.SucceededActivities,
			SuccessRate:          r.SuccessRate,
			DistinctUsers:        r.DistinctUsers,
			DistinctItems:        r.DistinctItems,
			DurationCount:        r.DurationCount,
			TotalDurationSeconds: r.TotalDurationSeconds,
			AvgDurationSeconds:   copyFloat(r.AvgDurationSeconds),
			MaxDurationSeconds:   copyFloat(r.MaxDurationSeconds),
		})
	}
	return facts, nil
}
