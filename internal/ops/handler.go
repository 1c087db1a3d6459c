// Package ops serves the operator HTTP surface: health, metrics and control
// of the refresh task.
package ops

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"citizenship/internal/platform/middleware"
	"citizenship/internal/scheduler"
	"citizenship/pkg/platform/httputil"
	"citizenship/pkg/platform/middleware/admin"
	"citizenship/pkg/platform/middleware/requesttime"
)

// Task is the refresh scheduler's control surface.
type Task interface {
	RunNow() bool
	Restart(ctx context.Context) error
	Status() scheduler.Status
}

// Check reports one dependency's health; nil is healthy.
type Check func(ctx context.Context) error

type Handler struct {
	task       Task
	logger     *slog.Logger
	adminToken string
	metrics    http.Handler
	checks     map[string]Check
	timeout    time.Duration
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithAdminToken enables the mutating /task routes behind X-Admin-Token.
func WithAdminToken(token string) Option {
	return func(h *Handler) { h.adminToken = token }
}

// WithMetricsHandler overrides the default Prometheus handler.
func WithMetricsHandler(m http.Handler) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithCheck adds a named health check to /healthz.
func WithCheck(name string, check Check) Option {
	return func(h *Handler) { h.checks[name] = check }
}

func New(task Task, opts ...Option) *Handler {
	h := &Handler{
		task:    task,
		logger:  slog.Default(),
		metrics: promhttp.Handler(),
		checks:  make(map[string]Check),
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the operator routes.
func (h *Handler) Register(r chi.Router) {
	opsRouter := chi.NewRouter()
	opsRouter.Use(middleware.RequestID)
	opsRouter.Use(middleware.Recovery(h.logger))
	opsRouter.Use(requesttime.Middleware)
	opsRouter.Use(middleware.Logger(h.logger))

	opsRouter.Get("/healthz", h.handleHealth)
	opsRouter.Method(http.MethodGet, "/metrics", h.metrics)
	opsRouter.Get("/task", h.handleStatus)
	opsRouter.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
		r.Post("/task/run", h.handleRunNow)
		r.Post("/task/restart", h.handleRestart)
	})

	r.Mount("/", opsRouter)
}

// Router returns a fresh router with only the operator routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	status := http.StatusOK
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	httputil.WriteJSON(w, status, resp)
}

type statusResponse struct {
	State      string     `json:"state"`
	Running    bool       `json:"running"`
	Generation string     `json:"generation,omitempty"`
	WakeAt     *time.Time `json:"wake_at,omitempty"`
	LastCycle  *time.Time `json:"last_cycle,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
	Nations    int        `json:"cached_nations"`
}

func toStatusResponse(st scheduler.Status) statusResponse {
	return statusResponse{
		State:      string(st.State),
		Running:    st.Running,
		Generation: st.Generation,
		WakeAt:     optionalTime(st.WakeAt),
		LastCycle:  optionalTime(st.LastCycle),
		LastError:  st.LastError,
		Nations:    st.Nations,
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, toStatusResponse(h.task.Status()))
}

func (h *Handler) handleRunNow(w http.ResponseWriter, r *http.Request) {
	woken := h.task.RunNow()
	h.logger.InfoContext(r.Context(), "manual refresh requested", "woken", woken)
	status := http.StatusAccepted
	if !woken {
		status = http.StatusConflict
	}
	httputil.WriteJSON(w, status, map[string]any{
		"woken":  woken,
		"status": toStatusResponse(h.task.Status()),
	})
}

func (h *Handler) handleRestart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.task.Restart(ctx); err != nil {
		h.logger.ErrorContext(ctx, "refresh task restart failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "refresh task restarted")
	httputil.WriteJSON(w, http.StatusOK, toStatusResponse(h.task.Status()))
}
