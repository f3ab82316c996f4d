package webapp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"paymanni.org/internal/auth"
)

// handleLogin serves the sign-in form and processes credential submissions.
// A signed-in user landing here is bounced straight to /home.
func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.IdentityFromContext(r.Context()); ok {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}

	next := r.URL.Query().Get("next")
	switch r.Method {
	case http.MethodGet:
		a.render(w, r, "login", http.StatusOK, viewData{
			Title: "Sign in",
			Data:  map[string]string{"Next": next},
		})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			a.render(w, r, "login", http.StatusBadRequest, viewData{Title: "Sign in", Error: "Invalid form submission."})
			return
		}
		grant, err := a.auth.Login(r.Context(), auth.Credentials{
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
		})
		if err != nil {
			code, msg := loginFailure(err)
			a.render(w, r, "login", code, viewData{
				Title: "Sign in",
				Error: msg,
				Data:  map[string]string{"Next": r.PostFormValue("next"), "Email": r.PostFormValue("email")},
			})
			return
		}
		setSessionCookie(w, r, grant.Cookie, a.auth.CookieTTL())
		http.Redirect(w, r, a.nextOrHome(r.PostFormValue("next")), http.StatusSeeOther)
	default:
		methodNotAllowed(w, r)
	}
}

// loginFailure picks the inline message for a failed credential flow. The
// user stays on the form in every case.
func loginFailure(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Email or password is incorrect."
	case errors.Is(err, auth.ErrUnavailable):
		return http.StatusServiceUnavailable, "We can't reach PayManni right now. Please try again."
	case errors.Is(err, auth.ErrInvalidInput):
		return http.StatusBadRequest, "Please fill in all the fields."
	default:
		return http.StatusInternalServerError, "Something went wrong. Please try again."
	}
}

func (a *App) handleRegister(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.IdentityFromContext(r.Context()); ok {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.render(w, r, "register", http.StatusOK, viewData{Title: "Create account"})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			a.render(w, r, "register", http.StatusBadRequest, viewData{Title: "Create account", Error: "Invalid form submission."})
			return
		}
		reg := auth.Registration{
			Name:     r.PostFormValue("name"),
			Email:    r.PostFormValue("email"),
			Phone:    r.PostFormValue("phone"),
			Password: r.PostFormValue("password"),
		}
		grant, err := a.auth.Register(r.Context(), reg)
		if err != nil {
			code, msg := loginFailure(err)
			if errors.Is(err, auth.ErrInvalidCredentials) {
				msg = "That email is already registered."
			}
			a.render(w, r, "register", code, viewData{
				Title: "Create account",
				Error: msg,
				Data:  map[string]string{"Name": reg.Name, "Email": reg.Email, "Phone": reg.Phone},
			})
			return
		}
		setSessionCookie(w, r, grant.Cookie, a.auth.CookieTTL())
		http.Redirect(w, r, "/home", http.StatusSeeOther)
	default:
		methodNotAllowed(w, r)
	}
}

// handleLogout destroys the session and always lands on /login, even when the
// store delete fails. Only POST mutates; a GET here just redirects.
func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	a.auth.Logout(r.Context(), sessionCookie(r))
	clearSessionCookie(w, r)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (a *App) handleOTPBegin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}
	var req struct {
		Phone string `json:"phone"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	flowID, err := a.auth.StartOTP(r.Context(), req.Phone)
	if err != nil {
		code, msg := apiStatus(err)
		writeError(w, r, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"flow_id": flowID})
}

func (a *App) handleOTPConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}
	var req struct {
		FlowID string `json:"flow_id"`
		Code   string `json:"code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	grant, err := a.auth.ConfirmOTP(r.Context(), req.FlowID, req.Code)
	if err != nil {
		code, msg := apiStatus(err)
		writeError(w, r, code, msg)
		return
	}
	setSessionCookie(w, r, grant.Cookie, a.auth.CookieTTL())
	writeJSON(w, http.StatusOK, map[string]any{"identity": grant.Identity})
}

func (a *App) handleFederated(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}
	var req struct {
		Provider string `json:"provider"`
		Subject  string `json:"subject"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		IDToken  string `json:"id_token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	grant, err := a.auth.CompleteFederated(r.Context(), auth.FederatedResult{
		Provider: req.Provider,
		Subject:  req.Subject,
		Name:     req.Name,
		Email:    req.Email,
		IDToken:  req.IDToken,
	})
	if err != nil {
		code, msg := apiStatus(err)
		writeError(w, r, code, msg)
		return
	}
	setSessionCookie(w, r, grant.Cookie, a.auth.CookieTTL())
	writeJSON(w, http.StatusOK, map[string]any{"identity": grant.Identity})
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": a.version,
	})
}

func (a *App) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.ready(ctx); err != nil {
			writeError(w, r, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
