package webapp

import (
	"net/http"
	"strconv"

	"paymanni.org/internal/wallet"
)

// The /api/wallet endpoints back the dynamic parts of the views. The guard
// has already proven the session, so identity is taken from context.

func (a *App) handleAPIBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	bal, err := a.wallet.Balance(r.Context(), identity.ID)
	if err != nil {
		code, msg := apiStatus(err)
		writeError(w, r, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, bal)
}

func (a *App) handleAPITransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, r, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	txs, err := a.wallet.Transactions(r.Context(), identity.ID, limit)
	if err != nil {
		code, msg := apiStatus(err)
		writeError(w, r, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": txs})
}

type paymentRequest struct {
	To        string `json:"to,omitempty"`
	Biller    string `json:"biller,omitempty"`
	Reference string `json:"reference,omitempty"`
	Operator  string `json:"operator,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Currency  string `json:"currency"`
	Amount    int64  `json:"amount"`
	IdemKey   string `json:"idempotency_key"`
}

func (a *App) handleAPITransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var req paymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tx, err := a.wallet.Transfer(r.Context(), identity.ID, req.To,
		wallet.Money{Currency: req.Currency, Amount: req.Amount}, req.IdemKey)
	if err != nil {
		code, msg := apiStatus(err)
		writeError(w, r, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (a *App) handleAPIPayBill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var req paymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tx, err := a.wallet.PayBill(r.Context(), identity.ID, req.Biller, req.Reference,
		wallet.Money{Currency: req.Currency, Amount: req.Amount}, req.IdemKey)
	if err != nil {
		code, msg := apiStatus(err)
		writeError(w, r, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (a *App) handleAPIRecharge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var req paymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tx, err := a.wallet.Recharge(r.Context(), identity.ID, req.Operator, req.Phone,
		wallet.Money{Currency: req.Currency, Amount: req.Amount}, req.IdemKey)
	if err != nil {
		code, msg := apiStatus(err)
		writeError(w, r, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}
