// Package ledger provides the funds-transfer primitive backing escrow
// custody. Balances are plain integer units keyed by identity; every
// movement is all-or-nothing.
package ledger

import (
	"errors"
	"sync"
)

var (
	// ErrInsufficientBalance indicates the source account cannot cover the
	// requested amount. Nothing moves.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrInvalidAmount indicates a zero or negative transfer amount.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
)

// Ledger is an in-memory account ledger. Safe for concurrent use; each
// operation is atomic with respect to every other.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]int64
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{balances: make(map[string]int64)}
}

// Deposit credits an account from outside the ledger. Used by the host to
// provision balances; escrow operations themselves only ever Transfer.
func (l *Ledger) Deposit(account string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
	return nil
}

// Balance returns the current balance of an account. Unknown accounts
// have a zero balance.
func (l *Ledger) Balance(account string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// Transfer moves amount from one account to another as a single indivisible
// step: either the whole amount moves or the ledger is unchanged.
func (l *Ledger) Transfer(from, to string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return ErrInsufficientBalance
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

// TotalSupply returns the sum of all balances. Deposits are the only way
// supply grows; transfers never change the total.
func (l *Ledger) TotalSupply() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total int64
	for _, b := range l.balances {
		total += b
	}
	return total
}

// Restore replaces all balances with a previously captured snapshot.
func (l *Ledger) Restore(balances map[string]int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances = make(map[string]int64, len(balances))
	for acct, b := range balances {
		l.balances[acct] = b
	}
}

// Snapshot returns a copy of all non-zero balances.
func (l *Ledger) Snapshot() map[string]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int64, len(l.balances))
	for acct, b := range l.balances {
		if b != 0 {
			out[acct] = b
		}
	}
	return out
}
