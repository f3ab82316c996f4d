package session

import (
	"context"
	"errors"

	"paymanni.org/internal/audit"
)

// ErrUnavailable indicates the backing store could not be reached. Callers
// must not treat this as "no session"; the auth layer maps it to the
// initializing state so protected content is withheld rather than leaked or
// prematurely redirected.
var ErrUnavailable = errors.New("session: store unavailable")

// Store persists sessions keyed by an opaque session id.
//
// Save writes identity and token as one record: both-or-neither is visible to
// subsequent loads. Load returns (zero, false, nil) for absent and for corrupt
// records; corruption is logged, never surfaced. Clear is idempotent.
type Store interface {
	Save(ctx context.Context, key string, s Session) error
	Load(ctx context.Context, key string) (Session, bool, error)
	Clear(ctx context.Context, key string) error
}

// decodeOrEmpty applies the fail-closed corruption policy shared by all
// backends: a record that does not decode to a complete session reads as empty.
func decodeOrEmpty(ctx context.Context, key string, data []byte) (Session, bool) {
	s, err := decode(data)
	if err != nil {
		_ = audit.LogEvent(ctx, "session.corrupt", map[string]any{"key": key})
		return Session{}, false
	}
	return s, true
}
