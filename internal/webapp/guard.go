package webapp

import (
	"net/http"
	"net/url"
	"strings"

	"paymanni.org/internal/auth"
)

// guard enforces the route's protection flag against the resolved auth state
// before any view logic runs. It fails closed: a protected view is never
// rendered, not even partially, for a request that cannot prove a session.
//
//   - initializing on a protected route answers 503 with a retry hint and no
//     view content. The session verdict is unknown, so nothing is committed:
//     no redirect the user would have to unwind, no flash of gated UI.
//   - anonymous on a protected route redirects HTML clients to /login with
//     the intended path preserved; API paths get a JSON 401 instead.
//   - authenticated requests proceed with identity and upstream token bound
//     into the request context.
func (a *App) guard(route Route, state auth.State, w http.ResponseWriter, r *http.Request) {
	switch state.Kind {
	case auth.StateInitializing:
		if route.Protected {
			w.Header().Set("Retry-After", "1")
			if isAPIPath(route.Path) {
				writeError(w, r, http.StatusServiceUnavailable, "session state unavailable")
				return
			}
			a.render(w, r, "unavailable", http.StatusServiceUnavailable, viewData{Title: "One moment"})
			return
		}
	case auth.StateAnonymous:
		if route.Protected {
			if isAPIPath(route.Path) {
				writeError(w, r, http.StatusUnauthorized, "authentication required")
				return
			}
			http.Redirect(w, r, loginURL(route.Path), http.StatusSeeOther)
			return
		}
	case auth.StateAuthenticated:
		ctx := auth.ContextWithIdentity(r.Context(), state.Identity)
		ctx = auth.ContextWithToken(ctx, state.Token)
		r = r.WithContext(ctx)
	}
	route.Handler(w, r)
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

func loginURL(next string) string {
	return "/login?next=" + url.QueryEscape(next)
}

// nextOrHome validates the post-login redirect target against the route
// table. Unknown or non-view targets collapse to /home.
func (a *App) nextOrHome(raw string) string {
	if a.validNext(raw) {
		return raw
	}
	return "/home"
}
