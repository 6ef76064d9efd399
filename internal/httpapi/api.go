// Package httpapi is the HTTP surface of the service. Handlers decode and
// validate requests, enforce authorization, and delegate to the auth and
// pizza services.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"sliceline.app/internal/auth"
	"sliceline.app/internal/factory"
	"sliceline.app/internal/logging"
	"sliceline.app/internal/obs"
	"sliceline.app/internal/pizza"
)

// AuthService is the slice of the authenticator the HTTP layer needs.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*auth.User, string, error)
	Login(ctx context.Context, email, password string) (*auth.User, string, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (auth.Principal, error)
	UpdateUser(ctx context.Context, id int, name, email, password string) (*auth.User, string, error)
	GetUser(ctx context.Context, id int) (*auth.User, error)
	DeleteUser(ctx context.Context, id int) error
	ListUsers(ctx context.Context, page, limit int, name string) ([]*auth.User, bool, error)
}

// OrderVerifier submits stored orders to the fulfillment factory.
type OrderVerifier interface {
	Verify(ctx context.Context, diner factory.Diner, order *pizza.Order) (*factory.Verification, error)
}

// ReadyProbe reports whether downstream dependencies answer.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API wires routes to handlers.
type API struct {
	mux        *http.ServeMux
	auth       AuthService
	pizza      pizza.Service
	verifier   OrderVerifier
	logs       *logging.Logger
	readyProbe ReadyProbe
	version    string
}

// Option configures optional API collaborators.
type Option func(*API)

// WithLogging attaches the shipping log pipeline to the middleware chain.
func WithLogging(l *logging.Logger) Option {
	return func(a *API) { a.logs = l }
}

// WithReadyProbe wires the readiness check.
func WithReadyProbe(rp ReadyProbe) Option {
	return func(a *API) { a.readyProbe = rp }
}

// WithVersion reports the build version on /version and /healthz.
func WithVersion(v string) Option {
	return func(a *API) { a.version = v }
}

// New builds the API and registers every route.
func New(authSvc AuthService, pizzaSvc pizza.Service, verifier OrderVerifier, opts ...Option) *API {
	a := &API{
		mux:      http.NewServeMux(),
		auth:     authSvc,
		pizza:    pizzaSvc,
		verifier: verifier,
		version:  "dev",
	}
	for _, opt := range opts {
		opt(a)
	}

	a.mux.HandleFunc("/api/auth", a.handleAuth)
	a.mux.HandleFunc("/api/user", a.handleUserCollection)
	a.mux.HandleFunc("/api/user/", a.handleUserResource)
	a.mux.HandleFunc("/api/franchise", a.handleFranchiseCollection)
	a.mux.HandleFunc("/api/franchise/", a.handleFranchiseResource)
	a.mux.HandleFunc("/api/order", a.handleOrderCollection)
	a.mux.HandleFunc("/api/order/menu", a.handleMenu)
	a.mux.HandleFunc("/api/docs", a.handleDocs)

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/version", a.Version)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "unknown endpoint")
	})

	return a
}

// Handler assembles the middleware chain around the mux. Order matters:
// security headers and CORS run first, then body and rate limits, then
// request identification, metrics, and the shipping log tap, and finally
// panic recovery and authentication just outside the handlers.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = a.recoverPanics(h)
	if a.logs != nil {
		h = a.logs.HTTP(h)
	}
	h = obs.Instrument(h)
	h = RequestID(h)
	h = RateLimit(h, 50, 25)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	return h
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "sliceline-api",
		"version": a.version,
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

func (a *API) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version": a.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
