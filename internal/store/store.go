// Package store persists calendar events through GORM.
//
// A Store is built once at startup and injected into the HTTP server, the
// importer and the CLI commands. Every call runs on a session bound to the
// caller's context, so a pooled connection is acquired per statement and
// returned on every exit path.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"moncal/internal/config"
	appLog "moncal/internal/log"
	"moncal/internal/model"
)

// insertBatchSize keeps multi-row INSERTs under the bind-variable limits
// (32766 in SQLite, 65535 in Postgres).
const insertBatchSize = 500

// Store is the event table accessor.
type Store struct {
	db *gorm.DB
}

// Open connects to the configured database. It does not touch the schema;
// call Migrate for that.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return nil, &model.PersistenceError{Op: "open", Err: err}
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, &model.PersistenceError{Op: "open", Err: err}
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	appLog.Info("store opened", "driver", cfg.Driver)
	return &Store{db: db}, nil
}

// sqliteDSN adds a busy timeout so concurrent writers wait on the file lock
// instead of failing immediately.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)"
}

// Migrate creates or updates the events table. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&model.Event{}); err != nil {
		return &model.PersistenceError{Op: "migrate", Err: err}
	}
	appLog.Info("store schema up to date", "table", model.Event{}.TableName())
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return &model.PersistenceError{Op: "ping", Err: err}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return &model.PersistenceError{Op: "ping", Err: err}
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// QueryEvents returns events dated within [start, end], ordered by date and
// then insertion order.
func (s *Store) QueryEvents(ctx context.Context, start, end model.Date) ([]model.Event, error) {
	if end.Before(start) {
		return nil, model.NewValidationError("range", "end %s is before start %s", end, start)
	}

	var events []model.Event
	err := s.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", start, end).
		Order("date").
		Order("id").
		Find(&events).Error
	if err != nil {
		return nil, &model.PersistenceError{Op: "query events", Err: err}
	}
	return events, nil
}

// AddEvent inserts a single event and commits immediately.
func (s *Store) AddEvent(ctx context.Context, date model.Date, title string) (*model.Event, error) {
	ev, err := newEvent(date, title)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&ev).Error; err != nil {
		return nil, &model.PersistenceError{Op: "add event", Err: err}
	}
	appLog.Debug("event stored", "id", ev.ID, "date", ev.Date, "title", ev.Title)
	return &ev, nil
}

// AddEvents inserts all events in one transaction. Nothing is stored if any
// event is invalid or the insert fails.
func (s *Store) AddEvents(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]model.Event, 0, len(events))
	for _, e := range events {
		ev, err := newEvent(e.Date, e.Title)
		if err != nil {
			return err
		}
		ev.UID = e.UID
		rows = append(rows, ev)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&rows, insertBatchSize).Error
	})
	if err != nil {
		return &model.PersistenceError{Op: "add events", Err: err}
	}
	return nil
}

// ImportEvents inserts events keyed by UID, skipping UIDs already stored.
// Rows are written in batches inside one transaction. It returns the number
// of rows actually inserted.
func (s *Store) ImportEvents(ctx context.Context, events []model.Event) (int64, error) {
	rows := make([]model.Event, 0, len(events))
	for _, e := range events {
		if e.UID == nil || *e.UID == "" {
			return 0, model.NewValidationError("uid", "imported event %q on %s has no uid", e.Title, e.Date)
		}
		ev, err := newEvent(e.Date, e.Title)
		if err != nil {
			return 0, err
		}
		ev.UID = e.UID
		rows = append(rows, ev)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	var inserted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		onConflict := clause.OnConflict{Columns: []clause.Column{{Name: "uid"}}, DoNothing: true}
		for start := 0; start < len(rows); start += insertBatchSize {
			batch := rows[start:min(start+insertBatchSize, len(rows))]
			res := tx.Clauses(onConflict).Create(&batch)
			if res.Error != nil {
				return res.Error
			}
			inserted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, &model.PersistenceError{Op: "import events", Err: err}
	}
	return inserted, nil
}

func newEvent(date model.Date, title string) (model.Event, error) {
	title = strings.TrimSpace(title)
	if date.IsZero() {
		return model.Event{}, model.NewValidationError("date", "is required")
	}
	if title == "" {
		return model.Event{}, model.NewValidationError("title", "is required")
	}
	return model.Event{Date: date, Title: title}, nil
}
