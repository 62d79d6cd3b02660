package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-03-15 ")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: time.March, Day: 15}, d)
	assert.Equal(t, "2024-03-15", d.String())

	for _, bad := range []string{"", "2024-13-01", "2024-02-30", "15/03/2024", "2024-3-5", "tomorrow"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestNewDateNormalizes(t *testing.T) {
	assert.Equal(t, "2024-03-01", NewDate(2024, time.February, 30).String())
	assert.Equal(t, "2023-03-02", NewDate(2023, time.February, 30).String())
	assert.Equal(t, "2025-01-01", NewDate(2024, time.December, 32).String())
}

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2024, time.February, 28)
	assert.Equal(t, "2024-02-29", d.AddDays(1).String())
	assert.Equal(t, "2024-03-01", d.AddDays(2).String())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.AddDays(1).After(d))
	assert.Equal(t, time.Wednesday, d.Weekday())
	assert.True(t, Date{}.IsZero())
	assert.False(t, d.IsZero())
}

func TestDateScan(t *testing.T) {
	var d Date

	require.NoError(t, d.Scan("2024-03-15"))
	assert.Equal(t, "2024-03-15", d.String())

	require.NoError(t, d.Scan([]byte("2023-01-02")))
	assert.Equal(t, "2023-01-02", d.String())

	require.NoError(t, d.Scan("2022-07-04 00:00:00+00:00"))
	assert.Equal(t, "2022-07-04", d.String())

	require.NoError(t, d.Scan(time.Date(2021, time.May, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2021-05-06", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))
	assert.Error(t, d.Scan("not a date"))

	v, err := NewDate(2024, time.March, 15).Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", v)
}

func TestDateText(t *testing.T) {
	b, err := NewDate(2024, time.March, 15).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", string(b))

	var d Date
	require.NoError(t, d.UnmarshalText([]byte("2024-12-31")))
	assert.Equal(t, NewDate(2024, time.December, 31), d)
	assert.Error(t, d.UnmarshalText([]byte("12/31/2024")))
}

func TestErrorClassification(t *testing.T) {
	ve := NewValidationError("date", "must be YYYY-MM-DD, got %q", "x")
	assert.Equal(t, `date: must be YYYY-MM-DD, got "x"`, ve.Error())
	assert.True(t, IsValidation(fmt.Errorf("wrapped: %w", ve)))
	assert.False(t, IsPersistence(ve))

	cause := errors.New("disk full")
	pe := &PersistenceError{Op: "add event", Err: cause}
	assert.Equal(t, "store add event: disk full", pe.Error())
	assert.True(t, IsPersistence(fmt.Errorf("wrapped: %w", pe)))
	assert.ErrorIs(t, pe, cause)
	assert.False(t, IsValidation(pe))
}
