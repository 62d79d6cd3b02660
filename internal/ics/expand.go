package ics

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	appLog "moncal/internal/log"
	"moncal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// DisplayLocation decides the calendar date of timed occurrences.
	// If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd bound occurrence start times (inclusive).
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps runaway rules. Zero means the default.
	MaxOccurrencesPerEvent int
}

// Occurrence is one dated instance of a feed event.
type Occurrence struct {
	SourceID string
	UID      string
	Summary  string
	Date     model.Date
	AllDay   bool
}

// Key identifies the occurrence across re-imports.
func (o Occurrence) Key() string {
	return fmt.Sprintf("%s/%s@%s", o.SourceID, o.UID, o.Date)
}

// ExpandResult holds the occurrences and the UIDs that hit the cap.
type ExpandResult struct {
	Occurrences     []Occurrence
	TruncatedEvents []string
}

// ExpandOccurrences expands single and RRULE events into occurrences inside
// the configured window, honoring EXDATE and RECURRENCE-ID overrides.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Overrides are matched per UID; order of base UIDs follows the feed.
	var order []string
	bases := make(map[string][]ParsedEvent)
	overrides := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		if _, seen := bases[ev.UID]; !seen {
			order = append(order, ev.UID)
		}
		bases[ev.UID] = append(bases[ev.UID], ev)
	}

	for _, uid := range order {
		truncated := false
		for _, ev := range bases[uid] {
			occ, hitCap := expandEvent(ev, overrides[uid], cfg)
			truncated = truncated || hitCap
			result.Occurrences = append(result.Occurrences, occ...)
		}
		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, uid)
			appLog.Warn("expand: occurrences truncated", "uid", uid, "cap", cfg.MaxOccurrencesPerEvent)
		}
	}

	return result, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	if ev.RawRRule == "" {
		if !inRange(ev, cfg) {
			return nil, false
		}
		return []Occurrence{occurrenceFor(applyOverride(ev, overrides, ev.Start), cfg)}, false
	}
	return expandRecurring(ev, overrides, cfg)
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	lo, hi := window(ev, cfg)
	loc := ev.Start.Location()
	starts := set.Between(lo.In(loc), hi.In(loc), true)

	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]Occurrence, 0, len(starts))
	for _, start := range starts {
		inst := ev
		inst.Start = start
		out = append(out, occurrenceFor(applyOverride(inst, overrides, start), cfg))
	}
	return out, hitCap
}

// applyOverride returns the override whose RECURRENCE-ID equals start, or
// ev unchanged.
func applyOverride(ev ParsedEvent, overrides []ParsedEvent, start time.Time) ParsedEvent {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov
		}
	}
	return ev
}

func occurrenceFor(ev ParsedEvent, cfg ExpandConfig) Occurrence {
	date := model.DateOf(ev.Start)
	if !ev.AllDay {
		date = model.DateOf(ev.Start.In(cfg.DisplayLocation))
	}
	return Occurrence{
		SourceID: ev.Source.ID,
		UID:      ev.UID,
		Summary:  ev.Summary,
		Date:     date,
		AllDay:   ev.AllDay,
	}
}

func inRange(ev ParsedEvent, cfg ExpandConfig) bool {
	lo, hi := window(ev, cfg)
	return !ev.Start.Before(lo) && !ev.Start.After(hi)
}

// window returns the bounds to compare ev's starts against. All-day starts
// are UTC midnights, so their bounds are the window's calendar dates in the
// display zone, taken as UTC midnights too.
func window(ev ParsedEvent, cfg ExpandConfig) (time.Time, time.Time) {
	if !ev.AllDay {
		return cfg.RangeStart, cfg.RangeEnd
	}
	lo := model.DateOf(cfg.RangeStart.In(cfg.DisplayLocation))
	hi := model.DateOf(cfg.RangeEnd.In(cfg.DisplayLocation))
	return utcMidnight(lo), utcMidnight(hi)
}

func utcMidnight(d model.Date) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}
