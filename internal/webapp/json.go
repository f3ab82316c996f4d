package webapp

import (
	"encoding/json"
	"errors"
	"net/http"

	"paymanni.org/internal/auth"
	"paymanni.org/internal/wallet"
)

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError answers JSON errors in a fixed shape, carrying the request id so
// clients can quote it back.
func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, map[string]string{
		"error":      msg,
		"request_id": requestIDFrom(r),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// apiStatus maps service errors onto HTTP statuses for the JSON endpoints.
func apiStatus(err error) (int, string) {
	switch {
	case errors.Is(err, wallet.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return http.StatusConflict, "insufficient funds"
	case errors.Is(err, wallet.ErrInvalidAmount):
		return http.StatusBadRequest, "amount must be positive"
	case errors.Is(err, wallet.ErrInvalidCurrency):
		return http.StatusBadRequest, "invalid currency"
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, auth.ErrInvalidInput):
		return http.StatusBadRequest, "invalid input"
	case errors.Is(err, auth.ErrFlowExpired):
		return http.StatusGone, "sign-in flow expired"
	case errors.Is(err, wallet.ErrUnavailable), errors.Is(err, auth.ErrUnavailable):
		return http.StatusBadGateway, "upstream unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
