package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moncal/internal/model"
)

func TestMonthDates_LengthMatchesMonth(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.January, 31},
		{2024, time.February, 29},
		{2023, time.February, 28},
		{1900, time.February, 28},
		{2000, time.February, 29},
		{2024, time.April, 30},
		{2024, time.December, 31},
	}
	for _, tt := range tests {
		dates, err := MonthDates(tt.year, tt.month)
		require.NoError(t, err)
		assert.Len(t, dates, tt.want, "%d-%02d", tt.year, tt.month)
		assert.Equal(t, tt.want, dates[len(dates)-1].Day)
	}
}

func TestMonthDates_ContiguousAscending(t *testing.T) {
	for year := 1999; year <= 2025; year++ {
		for m := time.January; m <= time.December; m++ {
			dates, err := MonthDates(year, m)
			require.NoError(t, err)

			require.Equal(t, model.NewDate(year, m, 1), dates[0])
			last := dates[len(dates)-1]
			assert.Equal(t, m, last.Month)
			assert.NotEqual(t, m, last.AddDays(1).Month, "last date must end the month")

			for i := 1; i < len(dates); i++ {
				require.Equal(t, dates[i-1].AddDays(1), dates[i], "%d-%02d step %d", year, m, i)
			}
		}
	}
}

func TestMonthDates_InvalidMonth(t *testing.T) {
	for _, m := range []time.Month{0, 13, -1} {
		_, err := MonthDates(2024, m)
		assert.True(t, model.IsValidation(err), "month %d", m)
	}
}

func TestWeeks_MondayStart(t *testing.T) {
	// March 2024 starts on a Friday and has 31 days.
	dates, err := MonthDates(2024, time.March)
	require.NoError(t, err)

	weeks := Weeks(dates, time.Monday)
	require.Len(t, weeks, 5)
	for _, w := range weeks {
		assert.Len(t, w, 7)
	}
	assert.True(t, weeks[0][3].IsZero())
	assert.Equal(t, model.NewDate(2024, time.March, 1), weeks[0][4])
	assert.Equal(t, model.NewDate(2024, time.March, 31), weeks[4][6])
}

func TestWeeks_SundayStart(t *testing.T) {
	// February 2015 starts on a Sunday and fills exactly four rows.
	dates, err := MonthDates(2015, time.February)
	require.NoError(t, err)

	weeks := Weeks(dates, time.Sunday)
	require.Len(t, weeks, 4)
	assert.Equal(t, model.NewDate(2015, time.February, 1), weeks[0][0])
	assert.Equal(t, model.NewDate(2015, time.February, 28), weeks[3][6])

	assert.Nil(t, Weeks(nil, time.Sunday))
}

func TestWeekdayHeaders(t *testing.T) {
	assert.Equal(t, []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
	}, WeekdayHeaders(time.Monday))
	assert.Equal(t, time.Sunday, WeekdayHeaders(time.Sunday)[0])
	assert.Equal(t, time.Saturday, WeekdayHeaders(time.Sunday)[6])
}

func TestParseWeekStart(t *testing.T) {
	assert.Equal(t, time.Sunday, ParseWeekStart("sunday"))
	assert.Equal(t, time.Monday, ParseWeekStart("monday"))
	assert.Equal(t, time.Monday, ParseWeekStart(""))
}
