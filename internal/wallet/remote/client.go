// Package remote is the HTTP client for the upstream PayManni backend API.
// It adapts the REST surface to the wallet.Service interface and to the
// auth.Provider credential contract, so the rest of the shell never touches
// wire details.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"paymanni.org/internal/auth"
	"paymanni.org/internal/session"
	"paymanni.org/internal/wallet"
)

// Client talks to the upstream API. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

var (
	_ wallet.Service = (*Client)(nil)
	_ auth.Provider  = (*Client)(nil)
)

// New creates a client with sensible defaults. httpClient may be nil, in
// which case a 10s-timeout client is used; any tighter timeout policy belongs
// here, not in the auth layer.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// identityPayload mirrors the upstream identity record.
type identityPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Admin bool   `json:"admin,omitempty"`
}

type grantResponse struct {
	Identity identityPayload `json:"identity"`
	Token    string          `json:"token"`
}

func (p identityPayload) toIdentity() session.Identity {
	return session.Identity{ID: p.ID, Name: p.Name, Email: p.Email, Phone: p.Phone, Admin: p.Admin}
}

// Auth provider ------------------------------------------------------------

func (c *Client) Login(ctx context.Context, creds auth.Credentials) (session.Identity, string, error) {
	var resp grantResponse
	err := c.call(ctx, http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    creds.Email,
		"password": creds.Password,
	}, &resp, classifyAuth)
	if err != nil {
		return session.Identity{}, "", err
	}
	return resp.Identity.toIdentity(), resp.Token, nil
}

func (c *Client) Register(ctx context.Context, reg auth.Registration) (session.Identity, string, error) {
	var resp grantResponse
	err := c.call(ctx, http.MethodPost, "/v1/auth/register", map[string]string{
		"name":     reg.Name,
		"email":    reg.Email,
		"phone":    reg.Phone,
		"password": reg.Password,
	}, &resp, classifyAuth)
	if err != nil {
		return session.Identity{}, "", err
	}
	return resp.Identity.toIdentity(), resp.Token, nil
}

func (c *Client) BeginOTP(ctx context.Context, phone string) (string, error) {
	var resp struct {
		ChallengeID string `json:"challenge_id"`
	}
	err := c.call(ctx, http.MethodPost, "/v1/auth/otp/begin", map[string]string{
		"phone": phone,
	}, &resp, classifyAuth)
	if err != nil {
		return "", err
	}
	return resp.ChallengeID, nil
}

func (c *Client) ConfirmOTP(ctx context.Context, challengeID, code string) (session.Identity, string, error) {
	var resp grantResponse
	err := c.call(ctx, http.MethodPost, "/v1/auth/otp/confirm", map[string]string{
		"challenge_id": challengeID,
		"code":         code,
	}, &resp, classifyAuth)
	if err != nil {
		return session.Identity{}, "", err
	}
	return resp.Identity.toIdentity(), resp.Token, nil
}

func (c *Client) ExchangeFederated(ctx context.Context, res auth.FederatedResult) (session.Identity, string, error) {
	var resp grantResponse
	err := c.call(ctx, http.MethodPost, "/v1/auth/federated", map[string]string{
		"provider": res.Provider,
		"subject":  res.Subject,
		"name":     res.Name,
		"email":    res.Email,
		"id_token": res.IDToken,
	}, &resp, classifyAuth)
	if err != nil {
		return session.Identity{}, "", err
	}
	return resp.Identity.toIdentity(), resp.Token, nil
}

// Wallet service ------------------------------------------------------------

func (c *Client) Balance(ctx context.Context, userID string) (wallet.Money, error) {
	var resp wallet.Money
	err := c.call(ctx, http.MethodGet, "/v1/wallet/"+url.PathEscape(userID)+"/balance", nil, &resp, classifyWallet)
	if err != nil {
		return wallet.Money{}, err
	}
	return resp, nil
}

func (c *Client) Transactions(ctx context.Context, userID string, limit int) ([]wallet.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	var resp struct {
		Items []wallet.Transaction `json:"items"`
	}
	path := "/v1/wallet/" + url.PathEscape(userID) + "/transactions?limit=" + strconv.Itoa(limit)
	if err := c.call(ctx, http.MethodGet, path, nil, &resp, classifyWallet); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *Client) Transfer(ctx context.Context, fromID, toID string, amt wallet.Money, idemKey string) (wallet.Transaction, error) {
	var resp wallet.Transaction
	err := c.call(ctx, http.MethodPost, "/v1/wallet/"+url.PathEscape(fromID)+"/transfer", map[string]any{
		"to":              toID,
		"currency":        amt.Currency,
		"amount":          amt.Amount,
		"idempotency_key": idemKey,
	}, &resp, classifyWallet)
	return resp, err
}

func (c *Client) PayBill(ctx context.Context, userID, biller, reference string, amt wallet.Money, idemKey string) (wallet.Transaction, error) {
	var resp wallet.Transaction
	err := c.call(ctx, http.MethodPost, "/v1/wallet/"+url.PathEscape(userID)+"/bills", map[string]any{
		"biller":          biller,
		"reference":       reference,
		"currency":        amt.Currency,
		"amount":          amt.Amount,
		"idempotency_key": idemKey,
	}, &resp, classifyWallet)
	return resp, err
}

func (c *Client) Recharge(ctx context.Context, userID, operator, phone string, amt wallet.Money, idemKey string) (wallet.Transaction, error) {
	var resp wallet.Transaction
	err := c.call(ctx, http.MethodPost, "/v1/wallet/"+url.PathEscape(userID)+"/recharge", map[string]any{
		"operator":        operator,
		"phone":           phone,
		"currency":        amt.Currency,
		"amount":          amt.Amount,
		"idempotency_key": idemKey,
	}, &resp, classifyWallet)
	return resp, err
}

// Helpers -------------------------------------------------------------------

// call issues one JSON request. The bearer token, when present in ctx, rides
// along on the Authorization header. classify maps non-2xx statuses to the
// caller's error taxonomy; transport failures are always "unavailable".
func (c *Client) call(ctx context.Context, method, path string, body any, dst any, classify func(int, string) error) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := auth.TokenFromContext(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Status 0 signals a transport failure to the classifier.
		return classify(0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classify(resp.StatusCode, readErrorMessage(resp.Body))
	}
	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return classify(0, fmt.Sprintf("decode response: %v", err))
	}
	return nil
}

func readErrorMessage(body io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 4<<10)).Decode(&payload); err != nil {
		return ""
	}
	return payload.Error
}

func classifyAuth(status int, msg string) error {
	switch {
	case status == 0:
		return fmt.Errorf("%w: %s", auth.ErrUnavailable, msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return auth.ErrInvalidCredentials
	case status == http.StatusConflict || status == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", auth.ErrInvalidCredentials, msg)
	case status >= 500:
		return fmt.Errorf("%w: upstream status %d", auth.ErrUnavailable, status)
	default:
		return fmt.Errorf("%w: unexpected status %d", auth.ErrUnavailable, status)
	}
}

func classifyWallet(status int, msg string) error {
	switch {
	case status == 0:
		return fmt.Errorf("%w: %s", wallet.ErrUnavailable, msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return auth.ErrUnauthenticated
	case status == http.StatusNotFound:
		return wallet.ErrNotFound
	case status == http.StatusConflict:
		return wallet.ErrInsufficientFunds
	case status == http.StatusBadRequest:
		if strings.Contains(msg, "currency") {
			return wallet.ErrInvalidCurrency
		}
		return wallet.ErrInvalidAmount
	case status >= 500:
		return fmt.Errorf("%w: upstream status %d", wallet.ErrUnavailable, status)
	default:
		return fmt.Errorf("%w: unexpected status %d", wallet.ErrUnavailable, status)
	}
}
