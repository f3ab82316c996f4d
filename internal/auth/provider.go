package auth

import (
	"context"

	"paymanni.org/internal/session"
)

// Credentials is email/password sign-in input.
type Credentials struct {
	Email    string
	Password string
}

// Registration is the new-account form input. The backend persists the
// account before the client considers the user authenticated.
type Registration struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// FederatedResult is the normalized outcome of a federated popup sign-in
// (e.g. Google OAuth). The provider exchange turns it into the same
// (identity, token) shape every other flow produces.
type FederatedResult struct {
	Provider string
	Subject  string
	Name     string
	Email    string
	IDToken  string
}

// Provider is the external credential source: the PayManni backend REST API
// or an identity provider behind it. Every method returns the identity plus
// the opaque bearer token on success.
type Provider interface {
	Login(ctx context.Context, creds Credentials) (session.Identity, string, error)
	Register(ctx context.Context, reg Registration) (session.Identity, string, error)
	BeginOTP(ctx context.Context, phone string) (challengeID string, err error)
	ConfirmOTP(ctx context.Context, challengeID, code string) (session.Identity, string, error)
	ExchangeFederated(ctx context.Context, res FederatedResult) (session.Identity, string, error)
}

// Mailer delivers the post-registration welcome mail. Best effort; failures
// never affect the registration outcome.
type Mailer interface {
	SendWelcome(ctx context.Context, to session.Identity) error
}
