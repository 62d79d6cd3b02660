package ics

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"moncal/internal/model"
)

const ProductID = "-//moncal//Month Calendar//EN"

// WriteCalendar encodes events as all-day VEVENTs. Form-submitted events get
// a UID derived from their row ID; imported events keep their source key.
func WriteCalendar(w io.Writer, name, host string, events []model.Event, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetMethod(ical.MethodPublish)
	cal.SetCalscale("GREGORIAN")
	if name != "" {
		cal.SetXWRCalName(name)
	}

	for _, e := range events {
		ve := cal.AddEvent(exportUID(e, host))
		ve.SetDtStampTime(stamp.UTC())
		ve.SetAllDayStartAt(e.Date.Time())
		ve.SetAllDayEndAt(e.Date.AddDays(1).Time())
		ve.SetSummary(e.Title)
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

func exportUID(e model.Event, host string) string {
	if e.UID != nil && *e.UID != "" {
		return *e.UID
	}
	if host == "" {
		host = "moncal"
	}
	return fmt.Sprintf("event-%d@%s", e.ID, host)
}
