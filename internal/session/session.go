// Package session persists the authenticated client session: the identity
// returned by the PayManni backend together with its bearer token. Identity
// and token live in a single record under a single key, so they are written
// and cleared together and can never desynchronize.
package session

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Identity is the opaque user record representing the signed-in user.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Admin bool   `json:"admin,omitempty"`
}

// Session pairs an identity with the upstream bearer token.
type Session struct {
	Identity  Identity  `json:"identity"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrCorrupt indicates a persisted record that cannot be decoded or is missing
// one half of the identity/token pair. Stores treat such records as empty.
var ErrCorrupt = errors.New("session: corrupt record")

// Valid reports whether the session carries both an identity and a token.
// A half-written session fails closed.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.Identity.ID) != "" && strings.TrimSpace(s.Token) != ""
}

func encode(s Session) ([]byte, error) {
	return json.Marshal(s)
}

func decode(data []byte) (Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, ErrCorrupt
	}
	if !s.Valid() {
		return Session{}, ErrCorrupt
	}
	return s, nil
}
