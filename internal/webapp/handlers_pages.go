package webapp

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"paymanni.org/internal/auth"
	"paymanni.org/internal/ids"
	"paymanni.org/internal/session"
	"paymanni.org/internal/wallet"
)

// identityFrom extracts the identity the guard bound into the context.
func identityFrom(r *http.Request) (session.Identity, bool) {
	return auth.IdentityFromContext(r.Context())
}

type homeData struct {
	Balance      wallet.Money
	Transactions []wallet.Transaction
	LoadFailed   bool
}

func (a *App) handleHome(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	data := homeData{}
	bal, err := a.wallet.Balance(r.Context(), identity.ID)
	if err != nil {
		data.LoadFailed = true
	} else {
		data.Balance = bal
		txs, err := a.wallet.Transactions(r.Context(), identity.ID, 10)
		if err != nil {
			data.LoadFailed = true
		}
		data.Transactions = txs
	}

	a.render(w, r, "home", http.StatusOK, viewData{
		Title:    "Home",
		Chrome:   true,
		Identity: &identity,
		Data:     data,
	})
}

type paymentForm struct {
	IdemKey string
	Fields  map[string]string
}

func (a *App) handleTransfer(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	view := func(code int, errMsg, flash string, fields map[string]string) {
		a.render(w, r, "transfer", code, viewData{
			Title:    "Transfer",
			Chrome:   true,
			Identity: &identity,
			Error:    errMsg,
			Flash:    flash,
			Data:     paymentForm{IdemKey: ids.New(), Fields: fields},
		})
	}

	if r.Method != http.MethodPost {
		view(http.StatusOK, "", "", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		view(http.StatusBadRequest, "Invalid form submission.", "", nil)
		return
	}
	amt, err := parseAmount(r.PostFormValue("amount"))
	if err != nil {
		view(http.StatusBadRequest, "Enter a valid amount.", "", formValues(r, "to", "amount"))
		return
	}
	tx, err := a.wallet.Transfer(r.Context(), identity.ID, r.PostFormValue("to"),
		wallet.Money{Currency: currencyOrDefault(r), Amount: amt}, r.PostFormValue("idempotency_key"))
	if err != nil {
		code, msg := paymentFailure(err)
		view(code, msg, "", formValues(r, "to", "amount"))
		return
	}
	view(http.StatusOK, "", "Sent "+formatMoney(wallet.Money{Currency: tx.Currency, Amount: tx.Amount})+" to "+tx.Counterparty+".", nil)
}

func (a *App) handleRecharge(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	view := func(code int, errMsg, flash string, fields map[string]string) {
		a.render(w, r, "recharge", code, viewData{
			Title:    "Recharge",
			Chrome:   true,
			Identity: &identity,
			Error:    errMsg,
			Flash:    flash,
			Data:     paymentForm{IdemKey: ids.New(), Fields: fields},
		})
	}

	if r.Method != http.MethodPost {
		view(http.StatusOK, "", "", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		view(http.StatusBadRequest, "Invalid form submission.", "", nil)
		return
	}
	amt, err := parseAmount(r.PostFormValue("amount"))
	if err != nil {
		view(http.StatusBadRequest, "Enter a valid amount.", "", formValues(r, "operator", "phone", "amount"))
		return
	}
	_, err = a.wallet.Recharge(r.Context(), identity.ID, r.PostFormValue("operator"), r.PostFormValue("phone"),
		wallet.Money{Currency: currencyOrDefault(r), Amount: amt}, r.PostFormValue("idempotency_key"))
	if err != nil {
		code, msg := paymentFailure(err)
		view(code, msg, "", formValues(r, "operator", "phone", "amount"))
		return
	}
	view(http.StatusOK, "", "Recharge successful.", nil)
}

func (a *App) handleBills(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	view := func(code int, errMsg, flash string, fields map[string]string) {
		a.render(w, r, "bills", code, viewData{
			Title:    "Pay bills",
			Chrome:   true,
			Identity: &identity,
			Error:    errMsg,
			Flash:    flash,
			Data:     paymentForm{IdemKey: ids.New(), Fields: fields},
		})
	}

	if r.Method != http.MethodPost {
		view(http.StatusOK, "", "", nil)
		return
	}
	if err := r.ParseForm(); err != nil {
		view(http.StatusBadRequest, "Invalid form submission.", "", nil)
		return
	}
	amt, err := parseAmount(r.PostFormValue("amount"))
	if err != nil {
		view(http.StatusBadRequest, "Enter a valid amount.", "", formValues(r, "biller", "reference", "amount"))
		return
	}
	_, err = a.wallet.PayBill(r.Context(), identity.ID, r.PostFormValue("biller"), r.PostFormValue("reference"),
		wallet.Money{Currency: currencyOrDefault(r), Amount: amt}, r.PostFormValue("idempotency_key"))
	if err != nil {
		code, msg := paymentFailure(err)
		view(code, msg, "", formValues(r, "biller", "reference", "amount"))
		return
	}
	view(http.StatusOK, "", "Bill paid.", nil)
}

func (a *App) handleProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	a.render(w, r, "profile", http.StatusOK, viewData{
		Title:    "Profile",
		Chrome:   true,
		Identity: &identity,
	})
}

// handleAdmin additionally requires the admin flag on the identity.
func (a *App) handleAdmin(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if !identity.Admin {
		a.render(w, r, "page", http.StatusForbidden, viewData{
			Title:    "Admin",
			Chrome:   true,
			Identity: &identity,
			Error:    "You don't have access to this area.",
		})
		return
	}
	a.render(w, r, "page", http.StatusOK, viewData{
		Title:    "Admin",
		Chrome:   true,
		Identity: &identity,
		Data:     "Operational dashboard: user lookups, transaction review and limits.",
	})
}

// pageHandler builds a simple static view for the feature placeholder routes.
func (a *App) pageHandler(title, description string) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityFrom(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		a.render(w, r, "page", http.StatusOK, viewData{
			Title:    title,
			Chrome:   true,
			Identity: &identity,
			Data:     description,
		})
	}
}

// handleNotFound is the catch-all. It renders in every auth state; chrome
// appears only when the visitor is signed in.
func (a *App) handleNotFound(w http.ResponseWriter, r *http.Request, state auth.State) {
	if isAPIPath(r.URL.Path) {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	data := viewData{Title: "Page not found"}
	if state.Authenticated() {
		identity := state.Identity
		data.Chrome = true
		data.Identity = &identity
	}
	a.render(w, r, "notfound", http.StatusNotFound, data)
}

// Form helpers --------------------------------------------------------------

// parseAmount converts a decimal rupee string into minor units. At most two
// fractional digits are accepted.
func parseAmount(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("empty amount")
	}
	whole, frac, _ := strings.Cut(raw, ".")
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w < 0 {
		return 0, errors.New("invalid amount")
	}
	var f int64
	if frac != "" {
		if len(frac) > 2 {
			return 0, errors.New("too many decimal places")
		}
		f, err = strconv.ParseInt(frac, 10, 64)
		if err != nil || f < 0 {
			return 0, errors.New("invalid amount")
		}
		if len(frac) == 1 {
			f *= 10
		}
	}
	return w*100 + f, nil
}

func currencyOrDefault(r *http.Request) string {
	if c := strings.TrimSpace(r.PostFormValue("currency")); c != "" {
		return c
	}
	return "INR"
}

func formValues(r *http.Request, keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = r.PostFormValue(k)
	}
	return out
}

func paymentFailure(err error) (int, string) {
	switch {
	case errors.Is(err, wallet.ErrInsufficientFunds):
		return http.StatusConflict, "Not enough balance for this payment."
	case errors.Is(err, wallet.ErrNotFound):
		return http.StatusNotFound, "We couldn't find that recipient."
	case errors.Is(err, wallet.ErrInvalidAmount):
		return http.StatusBadRequest, "Enter a valid amount."
	case errors.Is(err, wallet.ErrInvalidCurrency):
		return http.StatusBadRequest, "That currency isn't supported."
	case errors.Is(err, wallet.ErrUnavailable):
		return http.StatusServiceUnavailable, "Payments are temporarily unavailable. Please try again."
	default:
		return http.StatusInternalServerError, "Something went wrong. Please try again."
	}
}
