// Command stub-backend is a development stand-in for the upstream PayManni
// API. It implements just enough of the /v1 surface for the web shell to run
// end to end locally: bcrypt-checked logins, a fixed OTP code and an
// in-memory wallet.
package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"paymanni.org/internal/obs"
	"paymanni.org/internal/wallet"
)

// The fixed OTP code accepted in development.
const devOTPCode = "123456"

type identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Admin bool   `json:"admin,omitempty"`
}

type user struct {
	identity
	passwordHash []byte
}

type backend struct {
	mu         sync.Mutex
	byEmail    map[string]*user
	byPhone    map[string]*user
	tokens     map[string]string // bearer -> user id
	challenges map[string]string // challenge id -> phone
	wallets    *wallet.InMemory
}

func newBackend() *backend {
	return &backend{
		byEmail:    make(map[string]*user),
		byPhone:    make(map[string]*user),
		tokens:     make(map[string]string),
		challenges: make(map[string]string),
		wallets:    wallet.NewInMemory(),
	}
}

// seed creates a known dev account so the shell is usable immediately.
func (b *backend) seed() {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	u := &user{
		identity:     identity{ID: uuid.NewString(), Name: "Dev User", Email: "dev@paymanni.org", Phone: "+911234500000", Admin: true},
		passwordHash: hash,
	}
	b.byEmail[u.Email] = u
	b.byPhone[u.Phone] = u
	_ = b.wallets.CreateAccount(u.ID, wallet.Money{Currency: "INR", Amount: 500_000})
}

func main() {
	_ = godotenv.Load()

	addr := os.Getenv("PAYMANNI_STUB_ADDR")
	if addr == "" {
		addr = ":9090"
	}

	b := newBackend()
	b.seed()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/auth/login", b.handleLogin)
	mux.HandleFunc("POST /v1/auth/register", b.handleRegister)
	mux.HandleFunc("POST /v1/auth/otp/begin", b.handleOTPBegin)
	mux.HandleFunc("POST /v1/auth/otp/confirm", b.handleOTPConfirm)
	mux.HandleFunc("POST /v1/auth/federated", b.handleFederated)
	mux.HandleFunc("GET /v1/wallet/{id}/balance", b.handleBalance)
	mux.HandleFunc("GET /v1/wallet/{id}/transactions", b.handleTransactions)
	mux.HandleFunc("POST /v1/wallet/{id}/transfer", b.handleTransfer)
	mux.HandleFunc("POST /v1/wallet/{id}/bills", b.handlePayBill)
	mux.HandleFunc("POST /v1/wallet/{id}/recharge", b.handleRecharge)

	obs.LogEvent(map[string]any{"level": "info", "msg": "stub backend listening", "addr": addr})
	if err := http.ListenAndServe(addr, mux); err != nil {
		obs.LogEvent(map[string]any{"level": "fatal", "msg": "stub backend failed", "error": err.Error()})
		os.Exit(1)
	}
}

// Auth ----------------------------------------------------------------------

func (b *backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.byEmail[strings.ToLower(req.Email)]
	if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.Password)) != nil {
		fail(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	id, token := b.issueLocked(u)
	grant(w, id, token)
}

func (b *backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" || strings.TrimSpace(req.Name) == "" {
		fail(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.byEmail[req.Email]; exists {
		fail(w, http.StatusConflict, "email already registered")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(w, http.StatusInternalServerError, "hash failed")
		return
	}
	u := &user{
		identity:     identity{ID: uuid.NewString(), Name: req.Name, Email: req.Email, Phone: req.Phone},
		passwordHash: hash,
	}
	b.byEmail[u.Email] = u
	if u.Phone != "" {
		b.byPhone[u.Phone] = u
	}
	_ = b.wallets.CreateAccount(u.ID, wallet.Money{Currency: "INR", Amount: 0})
	id, token := b.issueLocked(u)
	grant(w, id, token)
}

func (b *backend) handleOTPBegin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Phone) == "" {
		fail(w, http.StatusBadRequest, "phone is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.NewString()
	b.challenges[id] = req.Phone
	obs.LogEvent(map[string]any{"level": "info", "msg": "otp issued", "phone": req.Phone, "code": devOTPCode})
	writeJSON(w, http.StatusOK, map[string]string{"challenge_id": id})
}

func (b *backend) handleOTPConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChallengeID string `json:"challenge_id"`
		Code        string `json:"code"`
	}
	if !decode(w, r, &req) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	phone, ok := b.challenges[req.ChallengeID]
	delete(b.challenges, req.ChallengeID)
	if !ok || req.Code != devOTPCode {
		fail(w, http.StatusUnauthorized, "invalid code")
		return
	}
	u, ok := b.byPhone[phone]
	if !ok {
		// First OTP sign-in provisions the account.
		u = &user{identity: identity{ID: uuid.NewString(), Name: "PayManni User", Phone: phone}}
		b.byPhone[phone] = u
		_ = b.wallets.CreateAccount(u.ID, wallet.Money{Currency: "INR", Amount: 0})
	}
	id, token := b.issueLocked(u)
	grant(w, id, token)
}

func (b *backend) handleFederated(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
		Subject  string `json:"subject"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		IDToken  string `json:"id_token"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Provider == "" || req.IDToken == "" {
		fail(w, http.StatusBadRequest, "provider and id_token are required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	email := strings.ToLower(req.Email)
	u, ok := b.byEmail[email]
	if !ok {
		u = &user{identity: identity{ID: uuid.NewString(), Name: req.Name, Email: email}}
		if email != "" {
			b.byEmail[email] = u
		}
		_ = b.wallets.CreateAccount(u.ID, wallet.Money{Currency: "INR", Amount: 0})
	}
	id, token := b.issueLocked(u)
	grant(w, id, token)
}

// issueLocked mints a bearer token; caller holds b.mu.
func (b *backend) issueLocked(u *user) (identity, string) {
	token := uuid.NewString()
	b.tokens[token] = u.ID
	return u.identity, token
}

// Wallet --------------------------------------------------------------------

// authorize checks the bearer token against the path's user id.
func (b *backend) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	userID := r.PathValue("id")

	b.mu.Lock()
	owner, ok := b.tokens[raw]
	b.mu.Unlock()
	if !ok || owner != userID {
		fail(w, http.StatusUnauthorized, "invalid token")
		return "", false
	}
	return userID, true
}

func (b *backend) handleBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := b.authorize(w, r)
	if !ok {
		return
	}
	bal, err := b.wallets.Balance(r.Context(), userID)
	if err != nil {
		walletFail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

func (b *backend) handleTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := b.authorize(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	txs, err := b.wallets.Transactions(r.Context(), userID, limit)
	if err != nil {
		walletFail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": txs})
}

type paymentRequest struct {
	To        string `json:"to"`
	Biller    string `json:"biller"`
	Reference string `json:"reference"`
	Operator  string `json:"operator"`
	Phone     string `json:"phone"`
	Currency  string `json:"currency"`
	Amount    int64  `json:"amount"`
	IdemKey   string `json:"idempotency_key"`
}

func (b *backend) handleTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := b.authorize(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if !decode(w, r, &req) {
		return
	}
	tx, err := b.wallets.Transfer(r.Context(), userID, req.To,
		wallet.Money{Currency: req.Currency, Amount: req.Amount}, req.IdemKey)
	if err != nil {
		walletFail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (b *backend) handlePayBill(w http.ResponseWriter, r *http.Request) {
	userID, ok := b.authorize(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if !decode(w, r, &req) {
		return
	}
	tx, err := b.wallets.PayBill(r.Context(), userID, req.Biller, req.Reference,
		wallet.Money{Currency: req.Currency, Amount: req.Amount}, req.IdemKey)
	if err != nil {
		walletFail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (b *backend) handleRecharge(w http.ResponseWriter, r *http.Request) {
	userID, ok := b.authorize(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if !decode(w, r, &req) {
		return
	}
	tx, err := b.wallets.Recharge(r.Context(), userID, req.Operator, req.Phone,
		wallet.Money{Currency: req.Currency, Amount: req.Amount}, req.IdemKey)
	if err != nil {
		walletFail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// Helpers -------------------------------------------------------------------

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func fail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func grant(w http.ResponseWriter, id identity, token string) {
	writeJSON(w, http.StatusOK, map[string]any{"identity": id, "token": token})
}

func walletFail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, wallet.ErrNotFound):
		fail(w, http.StatusNotFound, "not found")
	case errors.Is(err, wallet.ErrInsufficientFunds):
		fail(w, http.StatusConflict, "insufficient funds")
	case errors.Is(err, wallet.ErrInvalidAmount):
		fail(w, http.StatusBadRequest, "amount must be > 0")
	case errors.Is(err, wallet.ErrInvalidCurrency):
		fail(w, http.StatusBadRequest, "invalid currency")
	default:
		fail(w, http.StatusInternalServerError, "internal error")
	}
}
