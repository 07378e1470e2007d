// Package httpapi exposes the service over HTTP.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"docvault.org/internal/activity"
	"docvault.org/internal/identity"
	"docvault.org/internal/obs"
	"docvault.org/internal/registry"
	"docvault.org/internal/session"
)

// ReadyProbe checks readiness, such as pinging the database.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options carries the middleware settings an API needs beyond its
// collaborators.
type Options struct {
	Version      string
	MaxBodyBytes int64
	RateBurst    int
	RatePerSec   int
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	opts       Options

	users    *identity.Service
	registry *registry.Service
	sessions *session.Manager
	feed     *activity.Stream
}

func New(rp ReadyProbe, opts Options, users *identity.Service, reg *registry.Service, sessions *session.Manager, feed *activity.Stream) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		opts:       opts,
		users:      users,
		registry:   reg,
		sessions:   sessions,
		feed:       feed,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// identity
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/users/me", a.handleMe)
	a.mux.HandleFunc("/v1/users/role", a.handleRole)

	// documents
	a.mux.HandleFunc("/v1/documents", a.handleDocumentsCollection)
	a.mux.HandleFunc("/v1/documents/", a.handleDocumentResource)

	// live activity feed
	a.mux.HandleFunc("/v1/activity", a.handleActivity)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(obs.Instrument(a.mux))
	h = MaxBodyBytes(h, a.opts.MaxBodyBytes)
	h = RateLimit(h, a.opts.RateBurst, a.opts.RatePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	return RequestID(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "docvault-api",
		"version": a.opts.Version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "docvault-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.opts.Version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
