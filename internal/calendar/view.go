package calendar

import (
	"context"
	"fmt"
	"time"

	"moncal/internal/model"
)

// EventQuerier is the slice of the store the view needs.
type EventQuerier interface {
	QueryEvents(ctx context.Context, start, end model.Date) ([]model.Event, error)
}

// MonthView is everything the month page renders.
type MonthView struct {
	Year    int
	Month   time.Month
	Today   model.Date
	Dates   []model.Date
	Weeks   [][]model.Date
	Headers []time.Weekday

	// Events maps a date to every title stored on it, in store order.
	// Dates without events have no key.
	Events map[model.Date][]string

	Prev model.Date
	Next model.Date
}

// EventMap groups event titles by date. Same-day events are all kept.
func EventMap(events []model.Event) map[model.Date][]string {
	m := make(map[model.Date][]string)
	for _, e := range events {
		m[e.Date] = append(m[e.Date], e.Title)
	}
	return m
}

// BuildMonthView derives the month's dates, queries events for
// [first, last] and overlays them.
func BuildMonthView(ctx context.Context, q EventQuerier, year int, month time.Month, today model.Date, weekStart time.Weekday) (*MonthView, error) {
	dates, err := MonthDates(year, month)
	if err != nil {
		return nil, err
	}

	events, err := q.QueryEvents(ctx, dates[0], dates[len(dates)-1])
	if err != nil {
		return nil, fmt.Errorf("build %04d-%02d view: %w", year, int(month), err)
	}

	first := dates[0]
	return &MonthView{
		Year:    year,
		Month:   month,
		Today:   today,
		Dates:   dates,
		Weeks:   Weeks(dates, weekStart),
		Headers: WeekdayHeaders(weekStart),
		Events:  EventMap(events),
		Prev:    model.DateOf(first.Time().AddDate(0, -1, 0)),
		Next:    model.DateOf(first.Time().AddDate(0, 1, 0)),
	}, nil
}

// Days returns the month's dated title lists, ascending, skipping empty days.
func (v *MonthView) Days() []model.DayEvents {
	out := make([]model.DayEvents, 0, len(v.Events))
	for _, date := range v.Dates {
		if titles, ok := v.Events[date]; ok {
			out = append(out, model.DayEvents{Date: date, Titles: titles})
		}
	}
	return out
}

// Title is the human heading, e.g. "March 2024".
func (v *MonthView) Title() string {
	return fmt.Sprintf("%s %d", v.Month, v.Year)
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, model.NewValidationError("month", "must be YYYY-MM, got %q", s)
	}
	return t.Year(), t.Month(), nil
}
