package wallet

import (
	"errors"
	"time"
)

// Money is represented in minor units (e.g., paise). No floats.
type Money struct {
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}

func (m Money) IsPositive() bool { return m.Amount > 0 }
func (m Money) IsZero() bool     { return m.Amount == 0 }

// Kind classifies a wallet transaction for display.
type Kind string

const (
	KindTransfer Kind = "transfer"
	KindBill     Kind = "bill"
	KindRecharge Kind = "recharge"
)

// Transaction is a settled wallet movement as reported by the backend.
type Transaction struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Kind           Kind      `json:"kind"`
	FromUserID     string    `json:"from_user_id"`
	Counterparty   string    `json:"counterparty"` // user, biller or operator
	Currency       string    `json:"currency"`
	Amount         int64     `json:"amount"` // minor units
	Note           string    `json:"note,omitempty"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
}

var (
	ErrNotFound          = errors.New("wallet: not found")
	ErrInsufficientFunds = errors.New("wallet: insufficient funds")
	ErrInvalidAmount     = errors.New("wallet: invalid amount (must be > 0)")
	ErrInvalidCurrency   = errors.New("wallet: invalid currency")
	ErrUnavailable       = errors.New("wallet: upstream unavailable")
)
