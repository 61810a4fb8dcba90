package core

import (
	"time"
)

const (
	Daily   Granularity = "daily"
	Monthly Granularity = "monthly"
	Yearly  Granularity = "yearly"
)

// Granularity is the bucketing level of a period summary.
type Granularity string

// Granularities lists every summary bucket level, coarsest last.
func Granularities() []Granularity {
	return []Granularity{Daily, Monthly, Yearly}
}

// PeriodKey maps a date and granularity to the canonical bucket key:
// "2006-01-02" for daily, "2006-01" for monthly, "2006" for yearly.
// Daily keys sort lexicographically in chronological order, which the
// aggregation range scan relies on.
func PeriodKey(d Date, g Granularity) string {
	switch g {
	case Daily:
		return d.Format("2006-01-02")
	case Monthly:
		return d.Format("2006-01")
	case Yearly:
		return d.Format("2006")
	}
	return ""
}

// DateRange is an inclusive calendar interval.
type DateRange struct {
	Start Date
	End   Date
}

// allTimeEpoch is the fixed lower bound for the "all" period selector.
var allTimeEpoch = NewDate(2000, 1, 1)

// ResolveRange maps a period selector to its date interval relative to now.
// Supported: today, week (Monday start), month, quarter, year, all. Anything
// else, including "custom" without explicit dates, falls back to the current
// month to date.
func ResolveRange(period string, now time.Time) DateRange {
	today := NewDate(now.Year(), int(now.Month()), now.Day())

	switch period {
	case "today":
		return DateRange{Start: today, End: today}
	case "week":
		offset := (int(today.Weekday()) + 6) % 7
		start := Date{Time: today.AddDate(0, 0, -offset)}
		return DateRange{Start: start, End: today}
	case "quarter":
		quarterStart := ((int(now.Month())-1)/3)*3 + 1
		return DateRange{Start: NewDate(now.Year(), quarterStart, 1), End: today}
	case "year":
		return DateRange{Start: NewDate(now.Year(), 1, 1), End: today}
	case "all":
		return DateRange{Start: allTimeEpoch, End: today}
	}
	return DateRange{Start: NewDate(now.Year(), int(now.Month()), 1), End: today}
}

// ParseCustomRange builds the range for the "custom" selector. Both dates are
// required and must parse as YYYY-MM-DD.
func ParseCustomRange(start, end string) (DateRange, error) {
	if start == "" || end == "" {
		return DateRange{}, ValidationError("custom period requires both start_date and end_date")
	}
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	return DateRange{Start: s, End: e}, nil
}

// SpansExactMonth reports whether the range covers exactly one calendar
// month: first day through last day of the same month. Such ranges can be
// answered from a single monthly summary row.
func (r DateRange) SpansExactMonth() bool {
	if r.Start.Day() != 1 {
		return false
	}
	if r.Start.Year() != r.End.Year() || r.Start.Month() != r.End.Month() {
		return false
	}
	lastDay := time.Date(r.End.Year(), r.End.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	return r.End.Day() == lastDay
}
