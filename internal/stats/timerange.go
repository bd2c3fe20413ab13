package stats

import (
	"fmt"
	"time"
)

// TimeRange is the half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}

// WeekRangeFrom returns the Monday-to-Sunday week containing ref, shifted by
// offset weeks (-1 is the previous week).
func WeekRangeFrom(ref time.Time, offset int) TimeRange {
	weekday := int(ref.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday is 7 (ISO 8601)
	}
	start := time.Date(ref.Year(), ref.Month(), ref.Day()-weekday+1+offset*7, 0, 0, 0, 0, ref.Location())
	return TimeRange{Start: start, End: start.AddDate(0, 0, 7)}
}

// MonthRangeFrom returns the calendar month containing ref, shifted by offset
// months.
func MonthRangeFrom(ref time.Time, offset int) TimeRange {
	start := time.Date(ref.Year(), ref.Month()+time.Month(offset), 1, 0, 0, 0, 0, ref.Location())
	return TimeRange{Start: start, End: start.AddDate(0, 1, 0)}
}

// ParsePeriod maps "week", "month" or "all" to a range ending after now.
// "all" returns the zero range, which Summarize treats as unbounded.
func ParsePeriod(period string, now time.Time) (TimeRange, error) {
	switch period {
	case "", "all":
		return TimeRange{}, nil
	case "week":
		return WeekRangeFrom(now, 0), nil
	case "month":
		return MonthRangeFrom(now, 0), nil
	case "last-week":
		return WeekRangeFrom(now, -1), nil
	case "last-month":
		return MonthRangeFrom(now, -1), nil
	}
	return TimeRange{}, fmt.Errorf("unknown period %q (want all, week, month, last-week or last-month)", period)
}

// FormatPeriod returns a human-readable description of the time period.
func (tr TimeRange) FormatPeriod() string {
	if tr.Start.IsZero() {
		return "all time"
	}
	// End is exclusive.
	return fmt.Sprintf("%s to %s", tr.Start.Format("2006-01-02"), tr.End.AddDate(0, 0, -1).Format("2006-01-02"))
}
