package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"paymanni.org/internal/auth"
	"paymanni.org/internal/wallet"
)

func TestLoginSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/auth/login" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["email"] != "user@example.com" {
			t.Fatalf("unexpected email: %q", body["email"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"identity": map[string]any{"id": "u1", "name": "U"},
			"token":    "tok1",
		})
	}))
	defer srv.Close()

	client := New(srv.URL, srv.Client())
	identity, token, err := client.Login(context.Background(), auth.Credentials{
		Email:    "user@example.com",
		Password: "correctpw",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if identity.ID != "u1" || identity.Name != "U" || token != "tok1" {
		t.Fatalf("unexpected grant: %+v %q", identity, token)
	}
}

func TestLoginRejectedClassifiesInvalidCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid credentials"})
	}))
	defer srv.Close()

	client := New(srv.URL, srv.Client())
	_, _, err := client.Login(context.Background(), auth.Credentials{Email: "u@e.com", Password: "x"})
	if !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUpstreamDownClassifiesUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(srv.URL, srv.Client())
	_, _, err := client.Login(context.Background(), auth.Credentials{Email: "u@e.com", Password: "x"})
	if !errors.Is(err, auth.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestLoginTransportErrorClassifiesUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := New(srv.URL, nil)
	_, _, err := client.Login(context.Background(), auth.Credentials{Email: "u@e.com", Password: "x"})
	if !errors.Is(err, auth.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestBalanceAttachesBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/wallet/u1/balance" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok1" {
			t.Fatalf("expected bearer header, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(wallet.Money{Currency: "INR", Amount: 4200})
	}))
	defer srv.Close()

	client := New(srv.URL, srv.Client())
	ctx := auth.ContextWithToken(context.Background(), "tok1")
	bal, err := client.Balance(ctx, "u1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal.Currency != "INR" || bal.Amount != 4200 {
		t.Fatalf("unexpected balance: %+v", bal)
	}
}

func TestWalletStatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "missing account", status: http.StatusNotFound, want: wallet.ErrNotFound},
		{name: "insufficient funds", status: http.StatusConflict, want: wallet.ErrInsufficientFunds},
		{name: "bad amount", status: http.StatusBadRequest, body: `{"error":"amount must be > 0"}`, want: wallet.ErrInvalidAmount},
		{name: "bad currency", status: http.StatusBadRequest, body: `{"error":"invalid currency"}`, want: wallet.ErrInvalidCurrency},
		{name: "expired token", status: http.StatusUnauthorized, want: auth.ErrUnauthenticated},
		{name: "upstream error", status: http.StatusInternalServerError, want: wallet.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.body != "" {
					_, _ = w.Write([]byte(tt.body))
				}
			}))
			defer srv.Close()

			client := New(srv.URL, srv.Client())
			_, err := client.Transfer(context.Background(), "u1", "u2", wallet.Money{Currency: "INR", Amount: 100}, "idem-1")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestTransactionsPassesLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Fatalf("expected limit=5, got %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []wallet.Transaction{{ID: "t1", Kind: wallet.KindTransfer, Amount: 100}},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, srv.Client())
	txs, err := client.Transactions(context.Background(), "u1", 5)
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(txs) != 1 || txs[0].ID != "t1" {
		t.Fatalf("unexpected transactions: %+v", txs)
	}
}
