package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moncal/internal/model"
)

type fakeQuerier struct {
	events     []model.Event
	err        error
	start, end model.Date
}

func (f *fakeQuerier) QueryEvents(_ context.Context, start, end model.Date) ([]model.Event, error) {
	f.start, f.end = start, end
	return f.events, f.err
}

func ev(date, title string) model.Event {
	d, err := model.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return model.Event{Date: d, Title: title}
}

func TestBuildMonthView_TwoDistinctDates(t *testing.T) {
	q := &fakeQuerier{events: []model.Event{
		ev("2024-03-05", "Dentist"),
		ev("2024-03-20", "Release"),
	}}
	today := model.NewDate(2024, time.March, 15)

	v, err := BuildMonthView(context.Background(), q, 2024, time.March, today, time.Monday)
	require.NoError(t, err)

	assert.Equal(t, model.NewDate(2024, time.March, 1), q.start)
	assert.Equal(t, model.NewDate(2024, time.March, 31), q.end)

	assert.Equal(t, map[model.Date][]string{
		model.NewDate(2024, time.March, 5):  {"Dentist"},
		model.NewDate(2024, time.March, 20): {"Release"},
	}, v.Events)
	assert.Len(t, v.Dates, 31)
	assert.Equal(t, today, v.Today)
	assert.Equal(t, "March 2024", v.Title())
	assert.Equal(t, model.NewDate(2024, time.February, 1), v.Prev)
	assert.Equal(t, model.NewDate(2024, time.April, 1), v.Next)
}

// Same-day events are all kept under a single key.
func TestBuildMonthView_SameDayKeepsEveryTitle(t *testing.T) {
	q := &fakeQuerier{events: []model.Event{
		ev("2024-03-15", "Meeting"),
		ev("2024-03-15", "Gym"),
	}}

	v, err := BuildMonthView(context.Background(), q, 2024, time.March, model.Date{}, time.Monday)
	require.NoError(t, err)

	require.Len(t, v.Events, 1)
	assert.Equal(t, []string{"Meeting", "Gym"}, v.Events[model.NewDate(2024, time.March, 15)])
}

func TestBuildMonthView_QueryError(t *testing.T) {
	cause := &model.PersistenceError{Op: "query events", Err: errors.New("db down")}
	q := &fakeQuerier{err: cause}

	_, err := BuildMonthView(context.Background(), q, 2024, time.March, model.Date{}, time.Monday)
	assert.ErrorIs(t, err, cause)
	assert.True(t, model.IsPersistence(err))
}

func TestBuildMonthView_InvalidMonth(t *testing.T) {
	_, err := BuildMonthView(context.Background(), &fakeQuerier{}, 2024, 13, model.Date{}, time.Monday)
	assert.True(t, model.IsValidation(err))
}

func TestMonthView_DaysAscending(t *testing.T) {
	v := &MonthView{
		Dates: []model.Date{
			model.NewDate(2024, time.March, 1),
			model.NewDate(2024, time.March, 2),
			model.NewDate(2024, time.March, 3),
		},
		Events: EventMap([]model.Event{
			ev("2024-03-03", "C"),
			ev("2024-03-01", "A"),
			ev("2024-03-01", "B"),
		}),
	}

	assert.Equal(t, []model.DayEvents{
		{Date: model.NewDate(2024, time.March, 1), Titles: []string{"A", "B"}},
		{Date: model.NewDate(2024, time.March, 3), Titles: []string{"C"}},
	}, v.Days())
}

func TestParseMonth(t *testing.T) {
	y, m, err := ParseMonth("2024-02")
	require.NoError(t, err)
	assert.Equal(t, 2024, y)
	assert.Equal(t, time.February, m)

	for _, bad := range []string{"2024-13", "2024", "02-2024", ""} {
		_, _, err := ParseMonth(bad)
		assert.True(t, model.IsValidation(err), "input %q", bad)
	}
}
