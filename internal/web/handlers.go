package web

import (
	"bytes"
	"net/http"

	"moncal/internal/calendar"
	"moncal/internal/ics"
	appLog "moncal/internal/log"
	"moncal/internal/model"
)

const maxFormBytes = 64 << 10

// handleIndex renders the month grid. Without ?month= it shows the month
// containing today in the configured zone.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view, err := s.monthView(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := s.pages.renderMonth(&buf, view); err != nil {
		writeErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleAdd stores one event from the form fields date (YYYY-MM-DD) and
// title.
func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		writeErr(w, r, model.NewValidationError("", "invalid form body"))
		return
	}

	rawDate := r.PostForm.Get("date")
	date, err := model.ParseDate(rawDate)
	if err != nil {
		writeErr(w, r, model.NewValidationError("date", "must be YYYY-MM-DD, got %q", rawDate))
		return
	}

	ev, err := s.store.AddEvent(r.Context(), date, r.PostForm.Get("title"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	s.metrics.eventsAdded.Inc()
	appLog.Info("event added", "id", ev.ID, "date", ev.Date, "request_id", requestID(r.Context()))

	writeJSON(w, http.StatusOK, messageResponse{Message: "Event added"})
}

type messageResponse struct {
	Message string `json:"message"`
}

// eventsResponse is the JSON shape of /api/events.
type eventsResponse struct {
	Year  int               `json:"year"`
	Month int               `json:"month"`
	Days  []model.DayEvents `json:"days"`
}

// handleEventsAPI returns the month's events grouped by date.
//
// GET /api/events?month=2024-03
func (s *Server) handleEventsAPI(w http.ResponseWriter, r *http.Request) {
	view, err := s.monthView(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{
		Year:  view.Year,
		Month: int(view.Month),
		Days:  view.Days(),
	})
}

// handleICS exports stored events as an iCalendar feed.
//
// GET /calendar.ics?from=2024-03-01&to=2024-03-31
//   - from: first date (default: first day of last month)
//   - to:   last date (default: last day of next month)
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	today := s.today()
	thisMonth := model.NewDate(today.Year, today.Month, 1)
	from := model.DateOf(thisMonth.Time().AddDate(0, -1, 0))
	to := model.DateOf(thisMonth.Time().AddDate(0, 2, -1))

	q := r.URL.Query()
	var err error
	if v := q.Get("from"); v != "" {
		if from, err = model.ParseDate(v); err != nil {
			writeErr(w, r, model.NewValidationError("from", "must be YYYY-MM-DD, got %q", v))
			return
		}
	}
	if v := q.Get("to"); v != "" {
		if to, err = model.ParseDate(v); err != nil {
			writeErr(w, r, model.NewValidationError("to", "must be YYYY-MM-DD, got %q", v))
			return
		}
	}

	events, err := s.store.QueryEvents(r.Context(), from, to)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := ics.WriteCalendar(&buf, "moncal", r.Host, events, s.now()); err != nil {
		writeErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="calendar.ics"`)
	_, _ = buf.WriteTo(w)
}

// handleHealth reports OK when the store answers a ping.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.store.Ping(r.Context()); err != nil {
		appLog.Error("health check failed", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// monthView resolves ?month= (default: today's month) and builds the view.
func (s *Server) monthView(r *http.Request) (*calendar.MonthView, error) {
	today := s.today()
	year, month := today.Year, today.Month
	if v := r.URL.Query().Get("month"); v != "" {
		var err error
		if year, month, err = calendar.ParseMonth(v); err != nil {
			return nil, err
		}
	}
	return calendar.BuildMonthView(r.Context(), s.store, year, month, today, s.weekStart)
}

// monthParam formats a date as the ?month= value of its month.
func monthParam(d model.Date) string {
	return d.Time().Format("2006-01")
}
