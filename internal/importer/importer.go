// Package importer copies subscribed ICS feeds into the event store.
//
// A run fetches every configured feed, expands recurrences over
// [today-backfill, today+horizon] and inserts one event per occurrence.
// Occurrences are keyed by source, UID and date, so re-running never
// duplicates rows. Scheduled runs use a cron expression.
package importer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"moncal/internal/config"
	"moncal/internal/ics"
	appLog "moncal/internal/log"
	"moncal/internal/model"
)

// EventImporter is the slice of the store the importer writes to.
type EventImporter interface {
	ImportEvents(ctx context.Context, events []model.Event) (int64, error)
}

// Result summarizes one run.
type Result struct {
	Sources     int
	Failed      int
	Occurrences int
	Inserted    int64
}

// Importer runs feed imports, once or on a schedule.
type Importer struct {
	store    EventImporter
	fetcher  *ics.Fetcher
	sources  []ics.Source
	horizon  int
	backfill int
	loc      *time.Location
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

// New builds an Importer from the import section of the config.
func New(st EventImporter, cfg config.ImportConfig, fetcher *ics.Fetcher, loc *time.Location) *Importer {
	if loc == nil {
		loc = time.Local
	}
	if fetcher == nil {
		fetcher = ics.NewFetcher(cfg.CacheDir, nil)
	}
	sources := make([]ics.Source, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		if s.URL == "" {
			continue
		}
		sources = append(sources, ics.Source{ID: s.SourceID(), URL: s.URL})
	}
	return &Importer{
		store:    st,
		fetcher:  fetcher,
		sources:  sources,
		horizon:  cfg.HorizonDays,
		backfill: cfg.BackfillDays,
		loc:      loc,
		now:      time.Now,
	}
}

// Run performs one import. Feed failures are logged and counted; the run
// only fails when the store rejects the batch or every feed failed.
func (im *Importer) Run(ctx context.Context) (Result, error) {
	res := Result{Sources: len(im.sources)}
	if len(im.sources) == 0 {
		return res, nil
	}

	fetched, fetchErrs := im.fetcher.FetchAll(ctx, im.sources)
	res.Failed = len(fetchErrs)

	var parsed []ics.ParsedEvent
	for _, f := range fetched {
		events, err := ics.ParseICS(f.Source, f.Body)
		if err != nil {
			appLog.Error("import: parse failed", err, "id", f.Source.ID)
			res.Failed++
			continue
		}
		parsed = append(parsed, events...)
	}

	if res.Failed == res.Sources {
		return res, errors.Join(append([]error{errors.New("import: every feed failed")}, fetchErrs...)...)
	}

	today := im.now().In(im.loc)
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, im.loc)
	expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation: im.loc,
		RangeStart:      start.AddDate(0, 0, -im.backfill),
		RangeEnd:        start.AddDate(0, 0, im.horizon),
	})
	if err != nil {
		return res, err
	}

	rows := toEvents(expanded.Occurrences)
	res.Occurrences = len(rows)

	inserted, err := im.store.ImportEvents(ctx, rows)
	if err != nil {
		return res, err
	}
	res.Inserted = inserted

	appLog.Info("import finished",
		"sources", res.Sources,
		"failed", res.Failed,
		"occurrences", res.Occurrences,
		"inserted", res.Inserted,
	)
	return res, nil
}

// toEvents converts occurrences to rows, dropping repeated keys (a feed can
// list the same UID twice).
func toEvents(occ []ics.Occurrence) []model.Event {
	seen := make(map[string]struct{}, len(occ))
	out := make([]model.Event, 0, len(occ))
	for _, o := range occ {
		key := o.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, model.Event{Date: o.Date, Title: o.Summary, UID: &key})
	}
	return out
}

// Start schedules Run on spec (5-field cron). Overlapping runs are skipped.
// Stop must be called to release the scheduler.
func (im *Importer) Start(ctx context.Context, spec string) error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.cron != nil {
		return errors.New("importer already started")
	}

	c := cron.New(
		cron.WithLocation(im.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(spec, func() {
		if _, err := im.Run(ctx); err != nil {
			appLog.Error("scheduled import failed", err)
		}
	}); err != nil {
		return err
	}
	c.Start()
	im.cron = c

	appLog.Info("import scheduled", "cron", spec, "sources", len(im.sources))
	return nil
}

// Stop halts the schedule and waits for a running import to finish or ctx
// to expire.
func (im *Importer) Stop(ctx context.Context) {
	im.mu.Lock()
	c := im.cron
	im.cron = nil
	im.mu.Unlock()
	if c == nil {
		return
	}

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		appLog.Warn("import still running at shutdown")
	}
}
