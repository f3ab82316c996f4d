// Package webapp is the PayManni web shell: the route table, the session
// guard and the HTML/JSON handlers. It renders server-side views on top of
// the auth and wallet services and never touches the session store directly.
package webapp

import (
	"context"
	"net/http"

	"paymanni.org/internal/auth"
	"paymanni.org/internal/obs"
	"paymanni.org/internal/wallet"
)

type handlerFunc = http.HandlerFunc

// App wires the services into an http.Handler.
type App struct {
	auth    *auth.Service
	wallet  wallet.Service
	version string

	routes  map[string]Route
	ready   func(context.Context) error
	limiter *ipLimiter

	// Auth endpoints are rate limited per client IP.
	ratePerSec float64
	rateBurst  int
}

// Option configures the App.
type Option func(*App)

// WithVersion sets the build version surfaced on /healthz and page footers.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// WithReadiness installs the dependency check behind /readyz, typically the
// session store ping.
func WithReadiness(fn func(context.Context) error) Option {
	return func(a *App) { a.ready = fn }
}

// WithRateLimit tunes the per-IP limiter on auth endpoints.
func WithRateLimit(perSec float64, burst int) Option {
	return func(a *App) {
		if perSec > 0 {
			a.ratePerSec = perSec
		}
		if burst > 0 {
			a.rateBurst = burst
		}
	}
}

// New constructs the web application.
func New(authSvc *auth.Service, walletSvc wallet.Service, opts ...Option) *App {
	a := &App{
		auth:       authSvc,
		wallet:     walletSvc,
		version:    "dev",
		ratePerSec: 5,
		rateBurst:  10,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.limiter = newIPLimiter(a.ratePerSec, a.rateBurst)
	a.routes = make(map[string]Route)
	for _, route := range a.routeTable() {
		a.routes[route.Path] = route
	}
	return a
}

// Handler assembles the middleware chain around the route dispatcher.
// Probe and scrape endpoints sit outside the table: they answer regardless
// of session state.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/readyz", a.handleReadyz)
	mux.Handle("/metrics", obs.Handler())
	mux.HandleFunc("/", a.dispatch)

	var h http.Handler = mux
	h = MaxBodyBytes(h, 1<<20)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// dispatch looks the path up in the route table, runs the guard and invokes
// the matched handler. "/" redirects by auth state; unknown paths render the
// catch-all not-found view.
func (a *App) dispatch(w http.ResponseWriter, r *http.Request) {
	state := a.auth.Resolve(r.Context(), sessionCookie(r))

	if r.URL.Path == "/" {
		if state.Authenticated() {
			http.Redirect(w, r, "/home", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	route, ok := a.routes[r.URL.Path]
	if !ok {
		// The catch-all renders in every auth state, including initializing.
		a.handleNotFound(w, r, state)
		return
	}
	a.guard(route, state, w, r)
}
