// Package calendar computes month layouts and folds stored events onto them.
package calendar

import (
	"time"

	"github.com/teambition/rrule-go"

	"moncal/internal/model"
)

// MonthDates returns every date of the given month in ascending order,
// from day 1 through the month's last day.
func MonthDates(year int, month time.Month) ([]model.Date, error) {
	if month < time.January || month > time.December {
		return nil, model.NewValidationError("month", "must be 1-12, got %d", int(month))
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	// UNTIL is inclusive, so the rule yields exactly one instance per day.
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: first,
		Until:   last,
	})
	if err != nil {
		return nil, err
	}

	days := r.All()
	out := make([]model.Date, 0, len(days))
	for _, t := range days {
		out = append(out, model.DateOf(t))
	}
	return out, nil
}

// Weeks lays dates out in 7-column rows starting on weekStart. Cells
// before the first and after the last date are zero Dates.
func Weeks(dates []model.Date, weekStart time.Weekday) [][]model.Date {
	if len(dates) == 0 {
		return nil
	}

	lead := (int(dates[0].Weekday()) - int(weekStart) + 7) % 7
	cells := make([]model.Date, lead, lead+len(dates)+6)
	cells = append(cells, dates...)
	for len(cells)%7 != 0 {
		cells = append(cells, model.Date{})
	}

	weeks := make([][]model.Date, 0, len(cells)/7)
	for i := 0; i < len(cells); i += 7 {
		weeks = append(weeks, cells[i:i+7])
	}
	return weeks
}

// WeekdayHeaders returns the seven weekdays in column order.
func WeekdayHeaders(weekStart time.Weekday) []time.Weekday {
	out := make([]time.Weekday, 7)
	for i := range out {
		out[i] = (weekStart + time.Weekday(i)) % 7
	}
	return out
}

// ParseWeekStart maps the config value to a weekday; anything but
// "sunday" means Monday.
func ParseWeekStart(s string) time.Weekday {
	if s == "sunday" {
		return time.Sunday
	}
	return time.Monday
}
