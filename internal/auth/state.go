package auth

import "paymanni.org/internal/session"

// StateKind is the resolved authentication state for a request.
type StateKind string

const (
	// StateInitializing: the session store could not be reached, so the
	// session is not yet resolvable. The guard withholds rendering; neither
	// protected content nor a login redirect may be emitted in this state.
	StateInitializing StateKind = "initializing"
	// StateAnonymous: no valid session.
	StateAnonymous StateKind = "anonymous"
	// StateAuthenticated: a complete session was loaded.
	StateAuthenticated StateKind = "authenticated"
)

// State is what Resolve hands to the route guard. Token is the upstream
// bearer credential attached to proxied wallet calls; it is never exposed to
// views directly.
type State struct {
	Kind     StateKind
	Identity session.Identity
	Token    string
}

// Authenticated reports whether protected views may render.
func (s State) Authenticated() bool { return s.Kind == StateAuthenticated }
