package webapp

// Route is one entry in the static route table, built once at startup and
// immutable afterwards. Exactly one entry serves any given path: unmatched
// paths fall through to the catch-all not-found entry.
type Route struct {
	Path      string
	Protected bool
	// Chrome controls the shared header/footer framing. Sign-in and
	// registration suppress it regardless of authentication state.
	Chrome  bool
	Handler handlerFunc
}

// routeTable builds the full view map. Paths under /api/ answer JSON and get
// 401s instead of redirects from the guard.
func (a *App) routeTable() []Route {
	return []Route{
		// Auth views: public, chrome suppressed. Credential endpoints share
		// the per-IP limiter.
		{Path: "/login", Protected: false, Chrome: false, Handler: a.limit(a.handleLogin)},
		{Path: "/register", Protected: false, Chrome: false, Handler: a.limit(a.handleRegister)},
		{Path: "/logout", Protected: false, Chrome: false, Handler: a.handleLogout},

		// Protected views.
		{Path: "/home", Protected: true, Chrome: true, Handler: a.handleHome},
		{Path: "/transfer", Protected: true, Chrome: true, Handler: a.handleTransfer},
		{Path: "/recharge", Protected: true, Chrome: true, Handler: a.handleRecharge},
		{Path: "/bills", Protected: true, Chrome: true, Handler: a.handleBills},
		{Path: "/travel/flights", Protected: true, Chrome: true, Handler: a.pageHandler("Flights", "Search and book flights. Bookings settle through your wallet balance.")},
		{Path: "/travel/trains", Protected: true, Chrome: true, Handler: a.pageHandler("Trains", "Reserve train seats with instant wallet payment.")},
		{Path: "/travel/buses", Protected: true, Chrome: true, Handler: a.pageHandler("Buses", "Book intercity bus tickets.")},
		{Path: "/movies", Protected: true, Chrome: true, Handler: a.pageHandler("Movies", "Browse shows and book tickets.")},
		{Path: "/kyc", Protected: true, Chrome: true, Handler: a.pageHandler("KYC", "Submit your identity documents for verification.")},
		{Path: "/profile", Protected: true, Chrome: true, Handler: a.handleProfile},
		{Path: "/admin", Protected: true, Chrome: true, Handler: a.handleAdmin},

		// Session endpoints for the OTP and federated sign-in flows.
		{Path: "/api/auth/otp/begin", Protected: false, Chrome: false, Handler: a.limit(a.handleOTPBegin)},
		{Path: "/api/auth/otp/confirm", Protected: false, Chrome: false, Handler: a.limit(a.handleOTPConfirm)},
		{Path: "/api/auth/federated", Protected: false, Chrome: false, Handler: a.limit(a.handleFederated)},

		// Wallet JSON endpoints.
		{Path: "/api/wallet/balance", Protected: true, Chrome: false, Handler: a.handleAPIBalance},
		{Path: "/api/wallet/transactions", Protected: true, Chrome: false, Handler: a.handleAPITransactions},
		{Path: "/api/wallet/transfer", Protected: true, Chrome: false, Handler: a.handleAPITransfer},
		{Path: "/api/wallet/bills", Protected: true, Chrome: false, Handler: a.handleAPIPayBill},
		{Path: "/api/wallet/recharge", Protected: true, Chrome: false, Handler: a.handleAPIRecharge},
	}
}

// validNext reports whether path is a view a post-login redirect may target.
// Anything else falls back to /home (open-redirect guard).
func (a *App) validNext(path string) bool {
	route, ok := a.routes[path]
	return ok && route.Protected && route.Chrome
}
