package web

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"moncal/internal/calendar"
	"moncal/internal/config"
	appLog "moncal/internal/log"
	"moncal/internal/model"
)

// EventStore is the store surface the handlers use.
type EventStore interface {
	QueryEvents(ctx context.Context, start, end model.Date) ([]model.Event, error)
	AddEvent(ctx context.Context, date model.Date, title string) (*model.Event, error)
	Ping(ctx context.Context) error
}

// Server serves the month page, the add-event form endpoint and the
// supporting JSON, ICS, health and metrics endpoints.
type Server struct {
	cfg       *config.Config
	store     EventStore
	loc       *time.Location
	weekStart time.Weekday
	now       func() time.Time

	mux     *http.ServeMux
	metrics *metrics
	pages   *pages
}

//go:embed static
var embeddedStatic embed.FS

// NewServer constructs a Server. The store is owned by the caller.
func NewServer(cfg *config.Config, st EventStore) (*Server, error) {
	pg, err := loadPages()
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:       cfg,
		store:     st,
		loc:       resolveLocationOrLocal(cfg),
		weekStart: calendar.ParseWeekStart(cfg.WeekStart),
		now:       time.Now,
		mux:       http.NewServeMux(),
		metrics:   newMetrics(),
		pages:     pg,
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the full middleware chain: request logging and metrics
// outermost, then Basic Auth when configured, then the router.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "user", s.cfg.BasicAuth.Username)
		h = s.basicAuthMiddleware(h)
	}
	return s.observe(h)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /add", s.handleAdd)
	s.mux.HandleFunc("GET /api/events", s.handleEventsAPI)
	s.mux.HandleFunc("GET /calendar.ics", s.handleICS)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", s.metrics.handler())
	s.mux.Handle("GET /static/", s.staticFileServer())
}

// staticFileServer serves the embedded stylesheet and assets under /static/.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static assets not available", http.StatusServiceUnavailable)
		})
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// Run listens on cfg.Listen until ctx is cancelled, then drains in-flight
// requests for up to 10 seconds.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

// today is the current date in the configured zone.
func (s *Server) today() model.Date {
	return model.DateOf(s.now().In(s.loc))
}

func resolveLocationOrLocal(cfg *config.Config) *time.Location {
	loc, err := cfg.LoadLocation()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", cfg.Timezone)
		return time.Local
	}
	return loc
}
