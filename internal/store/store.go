// Package store is the persistence layer of the exchange engine. It offers
// per-entity atomic increments and compare-and-swap exchange updates, with a
// Postgres implementation for production and an in-memory one for tests and
// local runs.
package store

import (
	"context"

	"github.com/sudo-init-do/skillswap/internal/models"
)

// Reader is the read side shared by Store and Tx.
type Reader interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetExchange(ctx context.Context, id string) (*models.Exchange, error)
	ListLedgerEntries(ctx context.Context, userID string) ([]models.LedgerEntry, error)
}

// Store is the non-transactional surface plus the transaction entry point.
type Store interface {
	Reader

	CreateUser(ctx context.Context, u *models.User) error
	ListActiveUsers(ctx context.Context) ([]models.User, error)
	ListUserIDs(ctx context.Context) ([]string, error)

	CreateExchange(ctx context.Context, ex *models.Exchange) error
	ListExchangesForUser(ctx context.Context, userID string) ([]models.Exchange, error)

	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error

	// WithTx runs fn in a single transaction. If fn returns an error nothing
	// it wrote is kept.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Ping(ctx context.Context) error
}

// Tx is the write surface used inside WithTx.
type Tx interface {
	Reader

	// LockUser reads a user and holds it until the transaction ends.
	LockUser(ctx context.Context, id string) (*models.User, error)

	// UpdateExchange writes the mutable exchange fields if ex.Version still
	// matches the stored version, then bumps ex.Version. A mismatch returns
	// domain.ErrConflict.
	UpdateExchange(ctx context.Context, ex *models.Exchange) error
	AppendMessage(ctx context.Context, exchangeID string, msg models.Message) error
	DeleteExchange(ctx context.Context, id string, version int64) error

	// AppendLedgerEntry applies entry.Amount to the user's balance and
	// records the entry in one step. Entries that would take the balance
	// below zero fail with domain.ErrInsufficientFunds.
	AppendLedgerEntry(ctx context.Context, entry *models.LedgerEntry) (int64, error)
	IncrementExchanges(ctx context.Context, userID string) (int, error)
	// GrantBadges adds badges to the user's set and returns the ones that
	// were not already held.
	GrantBadges(ctx context.Context, userID string, badges []string) ([]string, error)
	SetRating(ctx context.Context, userID string, rating float64) error
	ListProviderRatings(ctx context.Context, providerID string) ([]int, error)
}
