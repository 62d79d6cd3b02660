package seed_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moncal/internal/model"
	"moncal/internal/seed"
	"moncal/internal/testing/testdb"
)

func TestRun_DefaultTitles(t *testing.T) {
	st := testdb.New(t)
	ctx := context.Background()
	today := model.NewDate(2024, time.March, 10)

	_, err := seed.Run(ctx, st, today, nil)
	require.NoError(t, err)

	events, err := st.QueryEvents(ctx, today, today)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Meeting", events[0].Title)
	assert.Equal(t, "Gym", events[1].Title)
	for _, e := range events {
		assert.Equal(t, today, e.Date)
		assert.Nil(t, e.UID)
	}
}

func TestRun_CustomTitles(t *testing.T) {
	st := testdb.New(t)
	ctx := context.Background()
	d := model.NewDate(2024, time.April, 1)

	got, err := seed.Run(ctx, st, d, []string{" Standup ", "Lunch", "Retro"})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, "Standup", got[0].Title)

	events, err := st.QueryEvents(ctx, d, d)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestRun_RejectsBlankTitleWithoutInserting(t *testing.T) {
	st := testdb.New(t)
	ctx := context.Background()
	d := model.NewDate(2024, time.April, 1)

	_, err := seed.Run(ctx, st, d, []string{"Lunch", "  "})
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))

	events, err := st.QueryEvents(ctx, d, d)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRun_RequiresDate(t *testing.T) {
	_, err := seed.Run(context.Background(), testdb.New(t), model.Date{}, nil)
	assert.True(t, model.IsValidation(err))
}

type brokenStore struct{}

func (brokenStore) AddEvents(context.Context, []model.Event) error {
	return &model.PersistenceError{Op: "add events", Err: errors.New("read-only")}
}

func TestRun_PropagatesStoreError(t *testing.T) {
	_, err := seed.Run(context.Background(), brokenStore{}, model.NewDate(2024, time.May, 5), nil)
	require.Error(t, err)
	assert.True(t, model.IsPersistence(err))
}
