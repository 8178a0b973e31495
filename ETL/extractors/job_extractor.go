package extractors

import (
	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
	"github.com/LilVoxy/fabric_activity_etl/ETL/transform"
)

// JobExtractor строит записи истории запусков из страниц
type JobExtractor struct {
	parser *transform.TimestampParser
}

// NewJobExtractor создает новый экземпляр JobExtractor
func NewJobExtractor(parser *transform.TimestampParser) *JobExtractor {
	return &JobExtractor{parser: parser}
}

// FromRecord преобразует JSON-объект в JobRecord.
// Нечисловая длительность считается отсутствующей.
func (e *JobExtractor) FromRecord(rec models.Record) models.JobRecord {
	f := models.JobRecordFields
	startRaw, _ := rec.Raw(f.StartTime)
	endRaw, _ := rec.Raw(f.EndTime)
	duration, _ := rec.OptFloat(f.DurationSeconds)

	return models.JobRecord{
		JobID:           rec.OptString(f.JobID),
		EntityID:        rec.String(f.EntityID),
		EntityType:      rec.String(f.EntityType),
		EntityName:      rec.String(f.EntityName),
		JobType:         rec.String(f.JobType),
		StartTime:       e.parser.Parse(startRaw),
		EndTime:         e.parser.Parse(endRaw),
		Status:          models.NormalizeStatus(rec.String(f.Status)),
		FailureReason:   rec.OptString(f.FailureReason),
		DurationSeconds: duration,
		SubmittedBy:     rec.String(f.SubmittedBy),
		WorkspaceID:     rec.String(f.WorkspaceID),
		WorkspaceName:   rec.String(f.WorkspaceName),
	}
}

// ExtractJobs читает страницы истории запусков и удаляет дубликаты
func (e *JobExtractor) ExtractJobs(paths []string) ([]models.JobRecord, int, error) {
	var jobs []models.JobRecord
	for _, path := range paths {
		records, err := ReadPage(path)
		if err != nil {
			return nil, 0, err
		}
		for _, rec := range records {
			jobs = append(jobs, e.FromRecord(rec))
		}
	}
	jobs, dropped := dedupe(jobs, jobKey)
	return jobs, dropped, nil
}

func jobKey(j models.JobRecord) string {
	if j.JobID != nil {
		return "id:" + *j.JobID
	}
	return contentKey(j.EntityID, j.JobType, timeKey(j.StartTime), timeKey(j.EndTime), j.Status, j.SubmittedBy)
}
