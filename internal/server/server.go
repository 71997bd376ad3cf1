package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"edumonitor/internal/models"
	"edumonitor/internal/monitor"
	"edumonitor/internal/settings"
)

const maxSettingsBody = 4 << 10

//go:embed static/*
var embeddedStatic embed.FS

// Checker is the part of the monitor the API drives.
type Checker interface {
	Endpoints() []models.Endpoint
	RunWithDeadline(ctx context.Context, d time.Duration) (models.Report, error)
}

// ConnectivityProbe runs the network precondition on demand.
type ConnectivityProbe interface {
	Probe(ctx context.Context) models.ConnectivityStatus
}

// ReportSource returns the most recently stored report.
type ReportSource interface {
	Latest() (models.Report, bool)
}

// SettingsStore reads and updates scheduling preferences.
type SettingsStore interface {
	Get() settings.Settings
	Update(settings.Settings) error
}

// Options wires a Server.
type Options struct {
	Addr         string
	Checker      Checker
	Connectivity ConnectivityProbe
	Reports      ReportSource
	Settings     SettingsStore
	Gatherer     prometheus.Gatherer
	// CheckRatePerMinute bounds on-demand runs; zero or less disables the limit.
	CheckRatePerMinute int
	// CheckDeadline is how long /api/check waits for a run. Default: 90s
	CheckDeadline time.Duration
	// PushInterval is the websocket refresh period. Default: 30s
	PushInterval time.Duration
	Logger       *slog.Logger
}

// Server wraps HTTP serving of API + static assets.
type Server struct {
	httpServer    *http.Server
	handler       http.Handler
	staticFS      fs.FS
	checker       Checker
	connectivity  ConnectivityProbe
	reports       ReportSource
	settings      SettingsStore
	gatherer      prometheus.Gatherer
	checkLimiter  *rate.Limiter
	checkDeadline time.Duration
	pushInterval  time.Duration
	logger        *slog.Logger
}

// New creates a configured HTTP server for the monitor.
func New(opts Options) *Server {
	staticFS, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		panic("static assets missing: " + err.Error())
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	deadline := opts.CheckDeadline
	if deadline <= 0 {
		deadline = 90 * time.Second
	}
	push := opts.PushInterval
	if push <= 0 {
		push = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.CheckRatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.CheckRatePerMinute)), opts.CheckRatePerMinute)
	}

	s := &Server{
		staticFS:      staticFS,
		checker:       opts.Checker,
		connectivity:  opts.Connectivity,
		reports:       opts.Reports,
		settings:      opts.Settings,
		gatherer:      gatherer,
		checkLimiter:  limiter,
		checkDeadline: deadline,
		pushInterval:  push,
		logger:        logger,
	}
	s.handler = s.routes()
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run blocks and serves HTTP traffic.
func (s *Server) Run() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	fileServer := http.FileServer(http.FS(s.staticFS))
	r.Get("/", s.handleIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/endpoints", s.handleEndpoints)
		r.Get("/check", s.handleCheck)
		r.Get("/status", s.handleStatus)
		r.Get("/connectivity", s.handleConnectivity)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)
		r.Get("/ws", s.handleStatusWS)
	})
	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	data, err := fs.ReadFile(s.staticFS, "index.html")
	if err != nil {
		http.Error(w, "index missing", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}

func (s *Server) handleEndpoints(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.checker.Endpoints())
}

type checkResponse struct {
	NetworkError bool                `json:"network_error"`
	Results      []models.SiteStatus `json:"results"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if !s.checkLimiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "too many check requests, try again later")
		return
	}

	report, err := s.checker.RunWithDeadline(r.Context(), s.checkDeadline)
	switch {
	case errors.Is(err, monitor.ErrCheckDeadline):
		s.logger.Warn("on-demand check exceeded deadline", "deadline", s.checkDeadline)
		writeError(w, http.StatusGatewayTimeout, "check is still running; results will appear in /api/status")
		return
	case err != nil:
		// Client went away.
		return
	}

	writeJSON(w, http.StatusOK, checkResponse{
		NetworkError: report.NetworkError,
		Results:      monitor.Summarize(report, s.checker.Endpoints()),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.buildStatusSnapshot())
}

func (s *Server) handleConnectivity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.connectivity.Probe(r.Context()))
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Get())
}

// settingsPatch leaves absent keys untouched.
type settingsPatch struct {
	IntervalMinutes *int  `json:"interval_minutes"`
	ShowPopup       *bool `json:"show_popup"`
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch settingsPatch
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSettingsBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings payload: "+err.Error())
		return
	}

	next := s.settings.Get()
	if patch.IntervalMinutes != nil {
		next.IntervalMinutes = *patch.IntervalMinutes
	}
	if patch.ShowPopup != nil {
		next.ShowPopup = *patch.ShowPopup
	}

	if err := s.settings.Update(next); err != nil {
		if errors.Is(err, settings.ErrInvalidInterval) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("persist settings failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not save settings")
		return
	}
	s.logger.Info("settings updated", "interval_minutes", next.IntervalMinutes, "show_popup", next.ShowPopup)
	writeJSON(w, http.StatusOK, s.settings.Get())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
