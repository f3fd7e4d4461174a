package models

import "time"

// EntryKind classifies a token ledger entry.
type EntryKind string

const (
	EntryEarned  EntryKind = "earned"
	EntrySpent   EntryKind = "spent"
	EntryBonus   EntryKind = "bonus"
	EntryPenalty EntryKind = "penalty"
)

// IsCredit reports whether entries of this kind add to the balance.
func (k EntryKind) IsCredit() bool {
	return k == EntryEarned || k == EntryBonus
}

// IsDebit reports whether entries of this kind subtract from the balance.
func (k EntryKind) IsDebit() bool {
	return k == EntrySpent || k == EntryPenalty
}

// LedgerEntry is one immutable change to a user's token balance.
// Amount is signed: credits are positive, debits negative.
type LedgerEntry struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Amount       int64     `json:"amount"`
	Kind         EntryKind `json:"kind"`
	Reason       string    `json:"reason"`
	ExchangeID   *string   `json:"exchange_id,omitempty"`
	BalanceAfter int64     `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

// Notification is an in-app notice stored for a user.
type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Kind      string         `json:"kind"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	ReadAt    *time.Time     `json:"read_at"`
}
