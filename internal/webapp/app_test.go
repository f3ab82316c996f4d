package webapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"paymanni.org/internal/auth"
	"paymanni.org/internal/session"
	"paymanni.org/internal/wallet"
)

type fakeProvider struct{}

func (fakeProvider) Login(ctx context.Context, creds auth.Credentials) (session.Identity, string, error) {
	if creds.Email == "user@example.com" && creds.Password == "correctpw" {
		return session.Identity{ID: "u1", Name: "Asha", Email: creds.Email}, "bearer-1", nil
	}
	return session.Identity{}, "", auth.ErrInvalidCredentials
}

func (fakeProvider) Register(ctx context.Context, reg auth.Registration) (session.Identity, string, error) {
	return session.Identity{ID: "u2", Name: reg.Name, Email: reg.Email}, "bearer-2", nil
}

func (fakeProvider) BeginOTP(ctx context.Context, phone string) (string, error) {
	return "chal-1", nil
}

func (fakeProvider) ConfirmOTP(ctx context.Context, challengeID, code string) (session.Identity, string, error) {
	if code != "123456" {
		return session.Identity{}, "", auth.ErrInvalidCredentials
	}
	return session.Identity{ID: "u3", Name: "Ravi", Phone: "+911234567890"}, "bearer-3", nil
}

func (fakeProvider) ExchangeFederated(ctx context.Context, res auth.FederatedResult) (session.Identity, string, error) {
	return session.Identity{ID: "u4", Name: res.Name, Email: res.Email}, "bearer-4", nil
}

type failingStore struct{}

func (failingStore) Save(ctx context.Context, key string, s session.Session) error {
	return session.ErrUnavailable
}

func (failingStore) Load(ctx context.Context, key string) (session.Session, bool, error) {
	return session.Session{}, false, session.ErrUnavailable
}

func (failingStore) Clear(ctx context.Context, key string) error {
	return session.ErrUnavailable
}

func newTestApp(t *testing.T, store session.Store, opts ...Option) (*App, *wallet.InMemory) {
	t.Helper()
	if store == nil {
		store = session.NewMemory()
	}
	authSvc, err := auth.NewService(store, fakeProvider{}, "test-secret")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	w := wallet.NewInMemory()
	if err := w.CreateAccount("u1", wallet.Money{Currency: "INR", Amount: 100_000}); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := w.CreateAccount("u2", wallet.Money{Currency: "INR", Amount: 0}); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return New(authSvc, w, opts...), w
}

// signIn performs the form login and returns the session cookie.
func signIn(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()
	form := url.Values{"email": {"user@example.com"}, "password": {"correctpw"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login: expected 303, got %d (%s)", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("login set no session cookie")
	return nil
}

func TestAnonymousProtectedRouteRedirectsWithoutContent(t *testing.T) {
	app, _ := newTestApp(t, nil)
	h := app.Handler()

	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/login?next=%2Fhome" {
		t.Fatalf("unexpected location: %q", got)
	}
	if strings.Contains(rec.Body.String(), "Balance") {
		t.Fatal("gated content leaked into redirect response")
	}
}

func TestInitializingProtectedRouteWithholdsWithoutRedirect(t *testing.T) {
	app, _ := newTestApp(t, failingStore{})
	h := app.Handler()

	// A syntactically valid cookie forces the store lookup; with the store
	// down the state is unknown, not anonymous.
	authSvc, err := auth.NewService(session.NewMemory(), fakeProvider{}, "test-secret")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	grant, err := authSvc.Login(context.Background(), auth.Credentials{Email: "user@example.com", Password: "correctpw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: grant.Cookie})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if rec.Header().Get("Location") != "" {
		t.Fatal("initializing state must not redirect")
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if strings.Contains(rec.Body.String(), "Balance") {
		t.Fatal("gated content leaked while session state unknown")
	}
}

func TestLoginFlowRoundTrip(t *testing.T) {
	app, _ := newTestApp(t, nil)
	h := app.Handler()

	cookie := signIn(t, h)

	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Asha") {
		t.Fatalf("home page missing identity name: %s", body)
	}
	if !strings.Contains(body, "INR 1000.00") {
		t.Fatalf("home page missing balance: %s", body)
	}

	// Logout invalidates the server-side record, not just the cookie.
	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("logout: expected 303, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/home", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect after logout, got %d", rec.Code)
	}
}

func TestLoginFailureStaysOnFormWithInlineError(t *testing.T) {
	app, _ := newTestApp(t, nil)
	h := app.Handler()

	form := url.Values{"email": {"user@example.com"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec.Header().Get("Location") != "" {
		t.Fatal("failed login must not redirect")
	}
	if !strings.Contains(rec.Body.String(), "incorrect") {
		t.Fatal("expected inline error message")
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.Value != "" {
			t.Fatal("failed login must not set a session cookie")
		}
	}
}

func TestLoginNextParamValidated(t *testing.T) {
	app, _ := newTestApp(t, nil)
	h := app.Handler()

	tests := []struct {
		next string
		want string
	}{
		{next: "/transfer", want: "/transfer"},
		{next: "https://evil.example/phish", want: "/home"},
		{next: "/api/wallet/balance", want: "/home"},
		{next: "", want: "/home"},
	}
	for _, tt := range tests {
		form := url.Values{"email": {"user@example.com"}, "password": {"correctpw"}, "next": {tt.next}}
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if got := rec.Header().Get("Location"); got != tt.want {
			t.Fatalf("next=%q: expected redirect to %q, got %q", tt.next, tt.want, got)
		}
	}
}

func TestRootRedirectsByAuthState(t *testing.T) {
	app, _ := newTestApp(t, nil)
	h := app.Handler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Location"); got != "/login" {
		t.Fatalf("anonymous root: expected /login, got %q", got)
	}

	cookie := signIn(t, h)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Location"); got != "/home" {
		t.Fatalf("authenticated root: expected /home, got %q", got)
	}
}

func TestCatchAllRendersNotFoundInAnyAuthState(t *testing.T) {
	app, _ := newTestApp(t, nil)
	h := app.Handler()

	req := httptest.NewRequest(http.MethodGet, "/no/such/page", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("anonymous: expected 404, got %d", rec.Code)
	}

	cookie := signIn(t, h)
	req = httptest.NewRequest(http.MethodGet, "/no/such/page", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("authenticated: expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Log out") {
		t.Fatal("authenticated 404 should carry chrome")
	}
}

func TestLoginPageSuppressesChrome(t *testing.T) {
	app, _ := newTestApp(t, nil)
	h := app.Handler()

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "Log out") {
		t.Fatal("login page must not render app chrome")
	}
}

func TestAuthenticatedOnLoginRedirectsHome(t *testing.T) {
	app, _ := newTestApp(t, nil)
	h := app.Handler()

	cookie := signIn(t, h)
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Location"); got != "/home" {
		t.Fatalf("expected redirect to /home, got %q", got)
	}
}

func TestAPIRequiresAuthWithJSON401(t *testing.T) {
	app, _ := newTestApp(t, nil)
	h := app.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/wallet/balance", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON error, got %q", ct)
	}
	if rec.Header().Get("Location") != "" {
		t.Fatal("API paths must not redirect")
	}
}

func TestAdminRequiresAdminFlag(t *testing.T) {
	app, _ := newTestApp(t, nil)
	h := app.Handler()

	cookie := signIn(t, h)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}
}

func TestTransferFormMovesFunds(t *testing.T) {
	app, w := newTestApp(t, nil)
	h := app.Handler()
	cookie := signIn(t, h)

	form := url.Values{
		"to":              {"u2"},
		"amount":          {"250.50"},
		"idempotency_key": {"idem-form-1"},
	}
	req := httptest.NewRequest(http.MethodPost, "/transfer", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Sent INR 250.50") {
		t.Fatalf("expected confirmation flash, got: %s", rec.Body.String())
	}
	bal, err := w.Balance(context.Background(), "u2")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal.Amount != 25050 {
		t.Fatalf("expected 25050 minor units credited, got %d", bal.Amount)
	}
}

func TestAuthEndpointRateLimited(t *testing.T) {
	app, _ := newTestApp(t, nil, WithRateLimit(1, 1))
	h := app.Handler()

	form := url.Values{"email": {"user@example.com"}, "password": {"wrong"}}
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.RemoteAddr = "10.0.0.9:54321"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	limited := false
	for _, c := range codes {
		if c == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Fatalf("expected a 429 among %v", codes)
	}
}

func TestHealthzAlwaysAnswers(t *testing.T) {
	app, _ := newTestApp(t, failingStore{})
	h := app.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
