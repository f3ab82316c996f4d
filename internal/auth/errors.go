package auth

import "errors"

var (
	// ErrInvalidCredentials: the backend or identity provider rejected the
	// login/registration input. Recovered by re-prompting, never retried
	// automatically.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrUnavailable: the provider call could not complete. Local state is
	// unchanged; the user may retry.
	ErrUnavailable = errors.New("auth: provider unavailable")
	// ErrUnauthenticated is the fail-closed classification for absent or
	// ambiguous session state.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	// ErrFlowExpired: an OTP confirmation referenced a flow that does not
	// exist, already failed, or aged out.
	ErrFlowExpired = errors.New("auth: otp flow expired")
	// ErrInvalidInput covers empty or malformed operation input.
	ErrInvalidInput = errors.New("auth: invalid input")
)
