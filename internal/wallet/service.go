package wallet

import (
	"context"
	"sync"
	"time"

	"paymanni.org/internal/ids"
)

// Service defines the wallet operations the shell exposes. Settlement rules
// live upstream; this interface is the client-facing contract.
type Service interface {
	Balance(ctx context.Context, userID string) (Money, error)
	Transactions(ctx context.Context, userID string, limit int) ([]Transaction, error)
	Transfer(ctx context.Context, fromID, toID string, amt Money, idemKey string) (Transaction, error)
	PayBill(ctx context.Context, userID, biller, reference string, amt Money, idemKey string) (Transaction, error)
	Recharge(ctx context.Context, userID, operator, phone string, amt Money, idemKey string) (Transaction, error)
}

// InMemory implements Service with in-process concurrency safety. Backs the
// dev stub backend and tests; production traffic goes through the remote
// client instead.
type InMemory struct {
	mu    sync.RWMutex
	accts map[string]*account
	idem  map[string]Transaction // idemKey -> tx
}

type account struct {
	balances map[string]int64
	txs      []Transaction
}

var _ Service = (*InMemory)(nil)

// NewInMemory creates an empty wallet backend.
func NewInMemory() *InMemory {
	return &InMemory{
		accts: make(map[string]*account),
		idem:  make(map[string]Transaction),
	}
}

// CreateAccount opens a wallet for userID with an initial balance.
func (s *InMemory) CreateAccount(userID string, initial Money) error {
	if initial.Currency == "" {
		return ErrInvalidCurrency
	}
	if initial.Amount < 0 {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accts[userID] = &account{
		balances: map[string]int64{initial.Currency: initial.Amount},
	}
	return nil
}

func (s *InMemory) Balance(ctx context.Context, userID string) (Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accts[userID]
	if !ok {
		return Money{}, ErrNotFound
	}
	// Single-currency wallets in practice; pick the only (or first) currency.
	for cur, amt := range acc.balances {
		return Money{Currency: cur, Amount: amt}, nil
	}
	return Money{}, nil
}

func (s *InMemory) Transactions(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	// Most recent first.
	n := len(acc.txs)
	if n > limit {
		n = limit
	}
	out := make([]Transaction, 0, n)
	for i := len(acc.txs) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, acc.txs[i])
	}
	return out, nil
}

func (s *InMemory) Transfer(ctx context.Context, fromID, toID string, amt Money, idemKey string) (Transaction, error) {
	return s.debit(fromID, toID, KindTransfer, amt, idemKey, func(tx Transaction) {
		s.creditLocked(toID, amt, tx)
	})
}

func (s *InMemory) PayBill(ctx context.Context, userID, biller, reference string, amt Money, idemKey string) (Transaction, error) {
	tx, err := s.debit(userID, biller, KindBill, amt, idemKey, nil)
	if err != nil {
		return Transaction{}, err
	}
	tx.Note = reference
	return tx, nil
}

func (s *InMemory) Recharge(ctx context.Context, userID, operator, phone string, amt Money, idemKey string) (Transaction, error) {
	tx, err := s.debit(userID, operator, KindRecharge, amt, idemKey, nil)
	if err != nil {
		return Transaction{}, err
	}
	tx.Note = phone
	return tx, nil
}

// debit validates and applies a withdrawal from fromID, recording the
// transaction. apply, when non-nil, runs under the lock after the debit (used
// to credit the transfer counterparty).
func (s *InMemory) debit(fromID, counterparty string, kind Kind, amt Money, idemKey string, apply func(Transaction)) (Transaction, error) {
	if !amt.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	if amt.Currency == "" {
		return Transaction{}, ErrInvalidCurrency
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idemKey != "" {
		if tx, ok := s.idem[idemKey]; ok {
			return tx, nil
		}
	}

	from, ok := s.accts[fromID]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	if kind == KindTransfer {
		if _, ok := s.accts[counterparty]; !ok {
			return Transaction{}, ErrNotFound
		}
	}
	if from.balances[amt.Currency] < amt.Amount {
		return Transaction{}, ErrInsufficientFunds
	}

	from.balances[amt.Currency] -= amt.Amount

	tx := Transaction{
		ID:             ids.New(),
		CreatedAt:      time.Now().UTC(),
		Kind:           kind,
		FromUserID:     fromID,
		Counterparty:   counterparty,
		Currency:       amt.Currency,
		Amount:         amt.Amount,
		IdempotencyKey: idemKey,
	}
	from.txs = append(from.txs, tx)
	if apply != nil {
		apply(tx)
	}
	if idemKey != "" {
		s.idem[idemKey] = tx
	}
	return tx, nil
}

// creditLocked assumes s.mu is held by the caller.
func (s *InMemory) creditLocked(userID string, amt Money, tx Transaction) {
	to, ok := s.accts[userID]
	if !ok {
		return
	}
	to.balances[amt.Currency] += amt.Amount
	to.txs = append(to.txs, tx)
}
