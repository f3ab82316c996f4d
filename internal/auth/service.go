// Package auth is the single source of truth for "who is the current user".
// Service owns the session store exclusively: no other component holds a
// write handle, which is what keeps the single-writer rule structural rather
// than conventional.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"paymanni.org/internal/audit"
	"paymanni.org/internal/ids"
	"paymanni.org/internal/session"
)

const defaultCookieTTL = 30 * 24 * time.Hour

// Service performs login, registration, OTP and federated sign-in against the
// upstream provider and mediates all session store access.
type Service struct {
	sessions session.Store
	provider Provider

	secret    []byte
	cookieTTL time.Duration
	now       func() time.Time
	mailer    Mailer
	flows     *flowRegistry
}

// Grant is the outcome of a successful sign-in: the identity for immediate
// rendering and the signed cookie token the shell sets on the response.
type Grant struct {
	Identity session.Identity
	Cookie   string
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithCookieTTL configures the session cookie lifetime.
func WithCookieTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cookieTTL = ttl
		}
	}
}

// WithMailer enables the post-registration welcome mail.
func WithMailer(m Mailer) Option {
	return func(s *Service) { s.mailer = m }
}

// NewService constructs the auth service. secret signs the session cookie and
// must be non-empty.
func NewService(store session.Store, provider Provider, secret string, opts ...Option) (*Service, error) {
	if store == nil || provider == nil {
		return nil, errors.New("auth: store and provider are required")
	}
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: cookie secret is required")
	}
	svc := &Service{
		sessions:  store,
		provider:  provider,
		secret:    []byte(secret),
		cookieTTL: defaultCookieTTL,
		now:       time.Now,
		flows:     newFlowRegistry(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CookieTTL reports the configured session cookie lifetime so the shell can
// set Max-Age to match the token expiry.
func (s *Service) CookieTTL() time.Duration {
	return s.cookieTTL
}

// Resolve classifies the request's session cookie into the auth state
// machine. It performs no network calls: a pre-populated store resolves to
// authenticated without touching the provider.
//
// Failure classification is deliberate and total:
//   - no/invalid/tampered cookie  -> anonymous (fail closed)
//   - store unreachable           -> initializing (withhold, don't redirect)
//   - record absent or corrupt    -> anonymous
func (s *Service) Resolve(ctx context.Context, cookieToken string) State {
	if strings.TrimSpace(cookieToken) == "" {
		return State{Kind: StateAnonymous}
	}
	key, err := s.parseSessionToken(cookieToken)
	if err != nil {
		_ = audit.LogEvent(ctx, "auth.cookie.rejected", map[string]any{})
		return State{Kind: StateAnonymous}
	}
	sess, ok, err := s.sessions.Load(ctx, key)
	if err != nil {
		return State{Kind: StateInitializing}
	}
	if !ok {
		return State{Kind: StateAnonymous}
	}
	return State{Kind: StateAuthenticated, Identity: sess.Identity, Token: sess.Token}
}

// Login authenticates credentials against the provider. State is mutated only
// after the provider call succeeds; on failure the session store is untouched
// and the classified error is returned to the caller for inline display.
func (s *Service) Login(ctx context.Context, creds Credentials) (Grant, error) {
	creds.Email = strings.TrimSpace(strings.ToLower(creds.Email))
	if creds.Email == "" || creds.Password == "" {
		return Grant{}, ErrInvalidCredentials
	}
	identity, bearer, err := s.provider.Login(ctx, creds)
	if err != nil {
		_ = audit.LogEvent(ctx, "auth.login.failed", map[string]any{"email": creds.Email})
		return Grant{}, err
	}
	return s.establish(ctx, identity, bearer, "auth.login")
}

// Register creates the account upstream, then establishes the session exactly
// like Login. The welcome mail is best effort.
func (s *Service) Register(ctx context.Context, reg Registration) (Grant, error) {
	reg.Email = strings.TrimSpace(strings.ToLower(reg.Email))
	reg.Name = strings.TrimSpace(reg.Name)
	if reg.Email == "" || reg.Password == "" || reg.Name == "" {
		return Grant{}, ErrInvalidInput
	}
	identity, bearer, err := s.provider.Register(ctx, reg)
	if err != nil {
		_ = audit.LogEvent(ctx, "auth.register.failed", map[string]any{"email": reg.Email})
		return Grant{}, err
	}
	grant, err := s.establish(ctx, identity, bearer, "auth.register")
	if err != nil {
		return Grant{}, err
	}
	if s.mailer != nil {
		if err := s.mailer.SendWelcome(ctx, identity); err != nil {
			_ = audit.LogEvent(ctx, "auth.welcome_mail.failed", map[string]any{"user_id": identity.ID})
		}
	}
	return grant, nil
}

// StartOTP begins the phone sign-in flow: Idle -> Challenged. Returns the
// flow id the client echoes back on confirmation.
func (s *Service) StartOTP(ctx context.Context, phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", ErrInvalidInput
	}
	challengeID, err := s.provider.BeginOTP(ctx, phone)
	if err != nil {
		return "", err
	}
	flowID := ids.New()
	s.flows.put(flowID, &otpFlow{
		state:       FlowChallenged,
		phone:       phone,
		challengeID: challengeID,
		expiresAt:   s.now().Add(flowTTL),
	})
	_ = audit.LogEvent(ctx, "auth.otp.challenged", map[string]any{"phone": phone})
	return flowID, nil
}

// ConfirmOTP completes the flow: Challenged -> Confirmed on success,
// Challenged -> Failed otherwise. Either way the flow is consumed; a failed
// confirmation requires a fresh StartOTP.
func (s *Service) ConfirmOTP(ctx context.Context, flowID, code string) (Grant, error) {
	flow, ok := s.flows.take(flowID, s.now())
	if !ok {
		return Grant{}, ErrFlowExpired
	}
	identity, bearer, err := s.provider.ConfirmOTP(ctx, flow.challengeID, code)
	if err != nil {
		flow.state = FlowFailed
		_ = audit.LogEvent(ctx, "auth.otp.failed", map[string]any{"phone": flow.phone})
		return Grant{}, err
	}
	flow.state = FlowConfirmed
	return s.establish(ctx, identity, bearer, "auth.otp.confirmed")
}

// CompleteFederated normalizes a federated popup result into the common
// (identity, token) shape via the provider exchange, then establishes the
// session through the same completion path as every other flow.
func (s *Service) CompleteFederated(ctx context.Context, res FederatedResult) (Grant, error) {
	if strings.TrimSpace(res.Provider) == "" || strings.TrimSpace(res.IDToken) == "" {
		return Grant{}, ErrInvalidInput
	}
	identity, bearer, err := s.provider.ExchangeFederated(ctx, res)
	if err != nil {
		_ = audit.LogEvent(ctx, "auth.federated.failed", map[string]any{"provider": res.Provider})
		return Grant{}, err
	}
	return s.establish(ctx, identity, bearer, "auth.federated")
}

// Logout destroys the session. Always succeeds locally and synchronously: the
// store delete is best effort and no network reachability is required.
func (s *Service) Logout(ctx context.Context, cookieToken string) {
	key, err := s.parseSessionToken(cookieToken)
	if err != nil {
		return
	}
	if err := s.sessions.Clear(ctx, key); err != nil {
		_ = audit.LogEvent(ctx, "auth.logout.clear_failed", map[string]any{"key": key})
		return
	}
	_ = audit.LogEvent(ctx, "auth.logout", map[string]any{"key": key})
}

// establish is the single completion path shared by all sign-in flows. It is
// the only place sessions are written.
func (s *Service) establish(ctx context.Context, identity session.Identity, bearer, event string) (Grant, error) {
	sess := session.Session{
		Identity:  identity,
		Token:     bearer,
		CreatedAt: s.now().UTC(),
	}
	if !sess.Valid() {
		// Provider handed back half a session; do not authenticate on it.
		return Grant{}, ErrUnauthenticated
	}
	key := ids.New()
	if err := s.sessions.Save(ctx, key, sess); err != nil {
		// Persistence is best effort (spec: storage failures are non-fatal).
		// The cookie will resolve anonymous on the next request.
		_ = audit.LogEvent(ctx, "auth.session.save_failed", map[string]any{"user_id": identity.ID})
	}
	cookie, err := s.signSessionToken(key)
	if err != nil {
		return Grant{}, err
	}
	_ = audit.LogEvent(ctx, event, map[string]any{"user_id": identity.ID})
	return Grant{Identity: identity, Cookie: cookie}, nil
}
