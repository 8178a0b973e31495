package transform

import (
	"fmt"
	"sort"
	"time"

	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
)

// Дни недели и месяцы для атрибутов dim_date
var (
	monthNames = []string{"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"}
	dayNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
)

// DateSK возвращает ключ даты в формате YYYYMMDD (UTC)
func DateSK(t time.Time) int64 {
	t = t.UTC()
	return int64(t.Year()*10000 + int(t.Month())*100 + t.Day())
}

// TimeSK возвращает ключ минуты суток в формате HHMM (UTC)
func TimeSK(t time.Time) int64 {
	t = t.UTC()
	return int64(t.Hour()*100 + t.Minute())
}

// NewDateRow формирует строку dim_date для календарного дня
func NewDateRow(day time.Time) models.DateDimension {
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	month := int(day.Month())
	dayOfWeek := int(day.Weekday()) + 1 // 1=Sunday, 7=Saturday
	_, isoWeek := day.ISOWeek()

	return models.DateDimension{
		DateSK:     DateSK(day),
		FullDate:   day,
		Year:       day.Year(),
		Quarter:    (month-1)/3 + 1,
		Month:      month,
		MonthName:  monthNames[month-1],
		WeekOfYear: isoWeek,
		DayOfMonth: day.Day(),
		DayOfWeek:  dayOfWeek,
		DayName:    dayNames[dayOfWeek-1],
		IsWeekend:  dayOfWeek == 1 || dayOfWeek == 7,
	}
}

// UnknownDateRow - строка dim_date для неразрешённых дат
func UnknownDateRow() models.DateDimension {
	return models.DateDimension{DateSK: models.UnknownSK, MonthName: models.UnknownMember, DayName: models.UnknownMember}
}

// GenerateDateDimension создает dim_date на весь календарь [start, end] независимо от данных
func GenerateDateDimension(start, end time.Time) []models.DateDimension {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	rows := []models.DateDimension{UnknownDateRow()}
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		rows = append(rows, NewDateRow(day))
	}
	return rows
}

// BuildOrExtendDates возвращает dim_date на календарь [start, end].
// Ключи дат вычисляются из самой даты, поэтому существующие строки вне
// календаря сохраняются, а пересекающиеся получают тот же ключ.
func BuildOrExtendDates(existing []models.DateDimension, start, end time.Time) []models.DateDimension {
	generated := GenerateDateDimension(start, end)
	if len(existing) == 0 {
		return generated
	}

	byKey := make(map[int64]models.DateDimension, len(generated)+len(existing))
	for _, row := range generated {
		byKey[row.DateSK] = row
	}
	for _, row := range existing {
		byKey[row.DateSK] = row
	}

	rows := make([]models.DateDimension, 0, len(byKey))
	for _, row := range byKey {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].DateSK < rows[j].DateSK })
	return rows
}

// dayPeriod возвращает часть суток для часа
func dayPeriod(hour int) string {
	switch {
	case hour < 6:
		return "Night"
	case hour < 12:
		return "Morning"
	case hour < 18:
		return "Afternoon"
	default:
		return "Evening"
	}
}

// GenerateTimeDimension создает dim_time на все минуты суток 00:00–23:59
func GenerateTimeDimension() []models.TimeDimension {
	rows := make([]models.TimeDimension, 0, 24*60+1)
	rows = append(rows, models.TimeDimension{TimeSK: models.UnknownSK, Hour: -1, Minute: -1, TimeLabel: models.UnknownMember, DayPeriod: models.UnknownMember})
	for hour := 0; hour < 24; hour++ {
		for minute := 0; minute < 60; minute++ {
			rows = append(rows, models.TimeDimension{
				TimeSK:    int64(hour*100 + minute),
				Hour:      hour,
				Minute:    minute,
				TimeLabel: fmt.Sprintf("%02d:%02d", hour, minute),
				DayPeriod: dayPeriod(hour),
			})
		}
	}
	return rows
}

// BuildOrExtendTimes возвращает dim_time; измерение не зависит от данных
func BuildOrExtendTimes(existing []models.TimeDimension) []models.TimeDimension {
	if len(existing) == 24*60+1 {
		return existing
	}
	return GenerateTimeDimension()
}

// DateIndex - множество ключей dim_date для проверки попадания в календарь
type DateIndex map[int64]struct{}

// NewDateIndex строит индекс по строкам dim_date
func NewDateIndex(rows []models.DateDimension) DateIndex {
	idx := make(DateIndex, len(rows))
	for _, row := range rows {
		if row.DateSK != models.UnknownSK {
			idx[row.DateSK] = struct{}{}
		}
	}
	return idx
}

// Resolve возвращает date_sk и time_sk для момента времени.
// nil и даты вне календаря дают UnknownSK для даты.
func (idx DateIndex) Resolve(t *time.Time) (dateSK, timeSK int64, ok bool) {
	if t == nil {
		return models.UnknownSK, models.UnknownSK, false
	}
	dateSK = DateSK(*t)
	timeSK = TimeSK(*t)
	if _, known := idx[dateSK]; !known {
		return models.UnknownSK, timeSK, false
	}
	return dateSK, timeSK, true
}
