// Package wallet keeps the append-only token ledger and the cached balance
// derived from it.
package wallet

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sudo-init-do/skillswap/internal/domain"
	"github.com/sudo-init-do/skillswap/internal/models"
	"github.com/sudo-init-do/skillswap/internal/store"
)

// Ledger records token movements. Writes take a store.Tx so they commit or
// roll back together with the operation that caused them.
type Ledger struct {
	store store.Store
	now   func() time.Time
}

func NewLedger(s store.Store) *Ledger {
	return &Ledger{store: s, now: func() time.Time { return time.Now().UTC() }}
}

// Credit adds amount tokens to the user and returns the new balance.
func (l *Ledger) Credit(ctx context.Context, tx store.Tx, userID string, amount int64, kind models.EntryKind, reason string, exchangeID *string) (int64, error) {
	if !kind.IsCredit() {
		return 0, fmt.Errorf("%w: %q is not a credit kind", domain.ErrValidation, kind)
	}
	return l.append(ctx, tx, userID, amount, amount, kind, reason, exchangeID)
}

// Debit removes amount tokens from the user and returns the new balance.
// It fails with domain.ErrInsufficientFunds rather than going negative.
func (l *Ledger) Debit(ctx context.Context, tx store.Tx, userID string, amount int64, kind models.EntryKind, reason string, exchangeID *string) (int64, error) {
	if !kind.IsDebit() {
		return 0, fmt.Errorf("%w: %q is not a debit kind", domain.ErrValidation, kind)
	}
	return l.append(ctx, tx, userID, amount, -amount, kind, reason, exchangeID)
}

func (l *Ledger) append(ctx context.Context, tx store.Tx, userID string, amount, signed int64, kind models.EntryKind, reason string, exchangeID *string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive, got %d", domain.ErrValidation, amount)
	}
	if strings.TrimSpace(reason) == "" {
		return 0, fmt.Errorf("%w: reason is required", domain.ErrValidation)
	}

	entry := &models.LedgerEntry{
		UserID:     userID,
		Amount:     signed,
		Kind:       kind,
		Reason:     reason,
		ExchangeID: exchangeID,
		CreatedAt:  l.now(),
	}
	balance, err := tx.AppendLedgerEntry(ctx, entry)
	if err != nil {
		return balance, err
	}
	log.Printf("[ledger] %s %s %+d (%s) -> %d", userID, kind, signed, reason, balance)
	return balance, nil
}

// Balance returns the cached token balance.
func (l *Ledger) Balance(ctx context.Context, userID string) (int64, error) {
	u, err := l.store.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.TokenBalance, nil
}

// History returns the user's entries oldest first.
func (l *Ledger) History(ctx context.Context, userID string) ([]models.LedgerEntry, error) {
	return l.store.ListLedgerEntries(ctx, userID)
}

// Report is the outcome of reconciling one user's ledger.
type Report struct {
	UserID        string   `json:"user_id"`
	CachedBalance int64    `json:"cached_balance"`
	LedgerSum     int64    `json:"ledger_sum"`
	Entries       int      `json:"entries"`
	Consistent    bool     `json:"consistent"`
	Problems      []string `json:"problems,omitempty"`
}

// Reconcile compares the cached balance with the sum of the user's entries
// and checks that each entry's running balance never dipped below zero.
// The user row is locked so the two reads see the same state.
func (l *Ledger) Reconcile(ctx context.Context, userID string) (*Report, error) {
	var report *Report
	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		entries, err := tx.ListLedgerEntries(ctx, userID)
		if err != nil {
			return err
		}
		report = check(u.ID, u.TokenBalance, entries)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !report.Consistent {
		log.Printf("[ledger] reconcile %s: %s", userID, strings.Join(report.Problems, "; "))
	}
	return report, nil
}

func check(userID string, cached int64, entries []models.LedgerEntry) *Report {
	r := &Report{UserID: userID, CachedBalance: cached, Entries: len(entries)}

	var running int64
	for _, e := range entries {
		running += e.Amount
		if e.BalanceAfter != running {
			r.Problems = append(r.Problems,
				fmt.Sprintf("entry %s records balance %d, running sum is %d", e.ID, e.BalanceAfter, running))
		}
		if running < 0 {
			r.Problems = append(r.Problems, fmt.Sprintf("entry %s takes the balance to %d", e.ID, running))
		}
	}
	r.LedgerSum = running
	if running != cached {
		r.Problems = append(r.Problems, fmt.Sprintf("cached balance %d, ledger sum %d", cached, running))
	}
	r.Consistent = len(r.Problems) == 0
	return r
}
