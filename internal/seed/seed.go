// Package seed inserts sample events so a fresh database has something to
// show.
package seed

import (
	"context"
	"fmt"
	"strings"

	appLog "moncal/internal/log"
	"moncal/internal/model"
)

// DefaultTitles are the sample events added when none are given.
var DefaultTitles = []string{"Meeting", "Gym"}

// Inserter is the store method seeding needs.
type Inserter interface {
	AddEvents(ctx context.Context, events []model.Event) error
}

// Run inserts one event per title on date, in a single transaction.
// Empty titles fall back to DefaultTitles.
func Run(ctx context.Context, st Inserter, date model.Date, titles []string) ([]model.Event, error) {
	if date.IsZero() {
		return nil, model.NewValidationError("date", "is required")
	}
	if len(titles) == 0 {
		titles = DefaultTitles
	}

	events := make([]model.Event, 0, len(titles))
	for _, t := range titles {
		t = strings.TrimSpace(t)
		if t == "" {
			return nil, model.NewValidationError("title", "must not be empty")
		}
		events = append(events, model.Event{Date: date, Title: t})
	}

	if err := st.AddEvents(ctx, events); err != nil {
		return nil, fmt.Errorf("seed %s: %w", date, err)
	}
	appLog.Info("seeded sample events", "date", date, "count", len(events))
	return events, nil
}
