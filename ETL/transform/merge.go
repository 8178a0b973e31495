package transform

import (
	"cmp"
	"sort"
	"strings"
	"time"

	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
)

// DefaultMergeTolerance - окно сопоставления по умолчанию
const DefaultMergeTolerance = 5 * time.Minute

// Merger сопоставляет записи журнала активности с записями истории запусков
// по сущности и близости во времени (Smart Merge)
type Merger struct {
	Tolerance time.Duration
}

// NewMerger создает новый экземпляр Merger. Отрицательное окно заменяется значением по умолчанию.
func NewMerger(tolerance time.Duration) *Merger {
	if tolerance < 0 {
		tolerance = DefaultMergeTolerance
	}
	return &Merger{Tolerance: tolerance}
}

// кандидат на сопоставление
type matchPair struct {
	activity  int
	job       int
	delta     time.Duration
	hasEnd    bool
	byEndTime bool
}

// Merge возвращает обогащённые записи. Каждая активность и каждое задание
// участвуют не более чем в одной паре; несопоставленные задания сохраняются
// отдельными строками. Результат не зависит от порядка входных записей.
func (m *Merger) Merge(activities []models.ActivityEvent, jobs []models.JobRecord) ([]models.EnrichedActivity, models.MergeStats) {
	stats := models.MergeStats{Activities: len(activities), Jobs: len(jobs)}

	activities = sortedActivities(activities)
	jobs = sortedJobs(jobs)

	jobsByEntity := make(map[string][]int)
	for j, job := range jobs {
		matchTime, _ := job.MatchTime()
		if job.EntityID == "" || matchTime == nil {
			stats.UnmatchableJobs++
			continue
		}
		jobsByEntity[job.EntityID] = append(jobsByEntity[job.EntityID], j)
	}

	var pairs []matchPair
	for i, a := range activities {
		if a.EntityID == "" || a.StartTime == nil {
			continue
		}
		for _, j := range jobsByEntity[a.EntityID] {
			matchTime, byEnd := jobs[j].MatchTime()
			delta := a.StartTime.Sub(*matchTime)
			if delta < 0 {
				delta = -delta
			}
			if delta > m.Tolerance {
				continue
			}
			pairs = append(pairs, matchPair{
				activity:  i,
				job:       j,
				delta:     delta,
				hasEnd:    jobs[j].EndTime != nil,
				byEndTime: byEnd,
			})
		}
	}

	// Ближайшее по времени, затем задание с end_time, затем порядок входа
	sort.Slice(pairs, func(x, y int) bool {
		p, q := pairs[x], pairs[y]
		if p.delta != q.delta {
			return p.delta < q.delta
		}
		if p.hasEnd != q.hasEnd {
			return p.hasEnd
		}
		if p.activity != q.activity {
			return p.activity < q.activity
		}
		return p.job < q.job
	})

	activityMatch := make([]int, len(activities))
	for i := range activityMatch {
		activityMatch[i] = -1
	}
	jobTaken := make([]bool, len(jobs))
	for _, p := range pairs {
		if activityMatch[p.activity] >= 0 || jobTaken[p.job] {
			continue
		}
		activityMatch[p.activity] = p.job
		jobTaken[p.job] = true
		stats.Matched++
		if p.byEndTime {
			stats.MatchedByEndTime++
		}
	}

	rows := make([]models.EnrichedActivity, 0, len(activities)+len(jobs)-stats.Matched)
	for i, a := range activities {
		if j := activityMatch[i]; j >= 0 {
			rows = append(rows, mergedRow(a, jobs[j]))
			continue
		}
		rows = append(rows, activityRow(a))
		stats.ActivityOnly++
	}
	for j, job := range jobs {
		if jobTaken[j] {
			continue
		}
		rows = append(rows, jobRow(job))
		stats.JobOnly++
	}

	SortEnriched(rows)
	return rows, stats
}

func activityRow(a models.ActivityEvent) models.EnrichedActivity {
	return models.EnrichedActivity{
		ActivityID:    a.ActivityID,
		Source:        models.SourceActivity,
		EntityID:      a.EntityID,
		EntityType:    a.EntityType,
		EntityName:    a.EntityName,
		ActivityType:  a.ActivityType,
		StartTime:     a.StartTime,
		Status:        a.Status,
		SubmittedBy:   a.SubmittedBy,
		WorkspaceID:   a.WorkspaceID,
		WorkspaceName: a.WorkspaceName,
		RecordCount:   1,
		Metadata:      a.Metadata,
	}
}

func jobRow(j models.JobRecord) models.EnrichedActivity {
	return models.EnrichedActivity{
		JobID:           j.JobID,
		Source:          models.SourceJob,
		EntityID:        j.EntityID,
		EntityType:      j.EntityType,
		EntityName:      j.EntityName,
		ActivityType:    j.JobType,
		StartTime:       j.StartTime,
		EndTime:         j.EndTime,
		Status:          j.Status,
		SubmittedBy:     j.SubmittedBy,
		WorkspaceID:     j.WorkspaceID,
		WorkspaceName:   j.WorkspaceName,
		DurationSeconds: jobDuration(j),
		FailureReason:   j.FailureReason,
		RecordCount:     1,
	}
}

func mergedRow(a models.ActivityEvent, j models.JobRecord) models.EnrichedActivity {
	row := activityRow(a)
	row.Source = models.SourceMerged
	row.JobID = j.JobID
	row.EndTime = j.EndTime
	row.DurationSeconds = jobDuration(j)
	row.FailureReason = j.FailureReason
	if j.Status != "" {
		row.Status = j.Status
	}
	if row.WorkspaceID == "" {
		row.WorkspaceID = j.WorkspaceID
	}
	if row.WorkspaceName == "" {
		row.WorkspaceName = j.WorkspaceName
	}
	if row.SubmittedBy == "" {
		row.SubmittedBy = j.SubmittedBy
	}
	if row.EntityType == "" {
		row.EntityType = j.EntityType
	}
	if row.EntityName == "" {
		row.EntityName = j.EntityName
	}
	if row.ActivityType == "" {
		row.ActivityType = j.JobType
	}
	return row
}

// jobDuration: duration_seconds задания, иначе end_time - start_time
func jobDuration(j models.JobRecord) *float64 {
	if j.DurationSeconds != nil {
		d := *j.DurationSeconds
		return &d
	}
	if j.StartTime != nil && j.EndTime != nil {
		d := j.EndTime.Sub(*j.StartTime).Seconds()
		return &d
	}
	return nil
}

func sortedActivities(in []models.ActivityEvent) []models.ActivityEvent {
	out := append([]models.ActivityEvent(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		return compareActivities(out[i], out[j]) < 0
	})
	return out
}

// compareActivities сравнивает события по всем полям
func compareActivities(a, b models.ActivityEvent) int {
	return cmp.Or(
		compareTime(a.StartTime, b.StartTime),
		cmp.Compare(a.EntityID, b.EntityID),
		compareString(a.ActivityID, b.ActivityID),
		cmp.Compare(a.ActivityType, b.ActivityType),
		cmp.Compare(a.SubmittedBy, b.SubmittedBy),
		cmp.Compare(a.WorkspaceID, b.WorkspaceID),
		cmp.Compare(a.WorkspaceName, b.WorkspaceName),
		cmp.Compare(a.EntityType, b.EntityType),
		cmp.Compare(a.EntityName, b.EntityName),
		cmp.Compare(a.Status, b.Status),
		cmp.Compare(metadataString(a.Metadata), metadataString(b.Metadata)),
	)
}

func sortedJobs(in []models.JobRecord) []models.JobRecord {
	out := append([]models.JobRecord(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		return compareJobs(out[i], out[j]) < 0
	})
	return out
}

// compareJobs сравнивает задания по всем полям, первым идёт время сопоставления
func compareJobs(a, b models.JobRecord) int {
	ta, _ := a.MatchTime()
	tb, _ := b.MatchTime()
	return cmp.Or(
		compareTime(ta, tb),
		cmp.Compare(a.EntityID, b.EntityID),
		compareString(a.JobID, b.JobID),
		compareTime(a.StartTime, b.StartTime),
		compareTime(a.EndTime, b.EndTime),
		cmp.Compare(a.Status, b.Status),
		cmp.Compare(a.SubmittedBy, b.SubmittedBy),
		cmp.Compare(a.JobType, b.JobType),
		cmp.Compare(a.EntityType, b.EntityType),
		cmp.Compare(a.EntityName, b.EntityName),
		cmp.Compare(a.WorkspaceID, b.WorkspaceID),
		cmp.Compare(a.WorkspaceName, b.WorkspaceName),
		compareString(a.FailureReason, b.FailureReason),
		compareFloat(a.DurationSeconds, b.DurationSeconds),
	)
}

// SortEnriched упорядочивает записи по полному ключу, чтобы результат
// слияния был одинаковым при повторных запусках
func SortEnriched(rows []models.EnrichedActivity) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		return cmp.Or(
			compareTime(a.EffectiveTime(), b.EffectiveTime()),
			cmp.Compare(a.EntityID, b.EntityID),
			cmp.Compare(a.ActivityType, b.ActivityType),
			cmp.Compare(a.SubmittedBy, b.SubmittedBy),
			compareString(a.ActivityID, b.ActivityID),
			compareString(a.JobID, b.JobID),
			cmp.Compare(a.Source, b.Source),
			compareTime(a.StartTime, b.StartTime),
			compareTime(a.EndTime, b.EndTime),
			cmp.Compare(a.Status, b.Status),
			cmp.Compare(a.EntityType, b.EntityType),
			cmp.Compare(a.EntityName, b.EntityName),
			cmp.Compare(a.WorkspaceID, b.WorkspaceID),
			cmp.Compare(a.WorkspaceName, b.WorkspaceName),
			compareString(a.FailureReason, b.FailureReason),
			compareFloat(a.DurationSeconds, b.DurationSeconds),
			cmp.Compare(a.RecordCount, b.RecordCount),
			cmp.Compare(metadataString(a.Metadata), metadataString(b.Metadata)),
		) < 0
	})
}

// metadataString сериализует метаданные в строку key=value, упорядоченную по ключам
func metadataString(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(m[k])
		b.WriteByte(0)
	}
	return b.String()
}

// compareFloat: nil идёт после любого значения
func compareFloat(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(*a, *b)
}

// compareTime: nil идёт после любого значения
func compareTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	}
	return 0
}

func compareString(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}
