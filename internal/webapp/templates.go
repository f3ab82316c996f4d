package webapp

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"paymanni.org/internal/session"
	"paymanni.org/internal/wallet"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.New("").Funcs(template.FuncMap{
	"money": formatMoney,
	"moneyOf": func(currency string, amount int64) string {
		return formatMoney(wallet.Money{Currency: currency, Amount: amount})
	},
}).ParseFS(templateFS, "templates/*.html"))

// viewData is the single payload shape every template receives.
type viewData struct {
	Title    string
	Chrome   bool
	Identity *session.Identity
	Error    string
	Flash    string
	Data     any
	Version  string
}

// render executes the named page template into a buffer first so a template
// error never leaks a half-written page.
func (a *App) render(w http.ResponseWriter, r *http.Request, name string, code int, data viewData) {
	data.Version = a.version

	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		writeError(w, r, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

// formatMoney renders minor units as a decimal string, e.g. 125050 INR ->
// "INR 1250.50".
func formatMoney(m wallet.Money) string {
	sign := ""
	amt := m.Amount
	if amt < 0 {
		sign = "-"
		amt = -amt
	}
	return fmt.Sprintf("%s%s %d.%02d", sign, m.Currency, amt/100, amt%100)
}
