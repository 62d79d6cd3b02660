// Package testdb opens isolated, migrated stores for tests.
//
// Each call gets its own named in-memory SQLite database, so tests can run
// in parallel without seeing each other's rows:
//
//	func TestSomething(t *testing.T) {
//	    st := testdb.New(t)
//	    _, err := st.AddEvent(ctx, date, "Standup")
//	}
package testdb

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"moncal/internal/config"
	"moncal/internal/store"
)

// DSN returns a fresh shared-cache in-memory SQLite DSN.
func DSN() string {
	return fmt.Sprintf("file:moncal-%s?mode=memory&cache=shared", uuid.NewString())
}

// Config returns a database config pointing at a fresh in-memory database.
// A single connection keeps the in-memory database alive and serializes
// writers.
func Config() config.DatabaseConfig {
	return config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          DSN(),
		MaxOpenConns: 1,
	}
}

// New opens and migrates a store, closing it when the test ends.
func New(t testing.TB) *store.Store {
	t.Helper()

	st, err := store.Open(Config())
	if err != nil {
		t.Fatalf("testdb: open: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("testdb: close: %v", err)
		}
	})

	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("testdb: migrate: %v", err)
	}
	return st
}
