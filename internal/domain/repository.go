package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TopEntry is one leaderboard row returned by a storage provider
type TopEntry struct {
	ID      uuid.UUID
	Balance decimal.Decimal
}

// StorageProvider defines the persistence contract for user balance data.
// The implementation is selected once at construction time via configuration.
type StorageProvider interface {
	// Init prepares the backing store (opens pools, applies schema).
	// A failed Init is fatal; the provider must not come up half-initialized.
	Init(ctx context.Context) error

	// Shutdown releases the backing store
	Shutdown() error

	// LoadUser populates the given cached record with every persisted balance
	// for its id. A record with no persisted rows is left untouched.
	LoadUser(ctx context.Context, user *User) error

	// SaveUser persists the record's current balances. Balances equal to zero
	// are represented by row absence, not stored rows.
	SaveUser(ctx context.Context, user *User) error

	// SaveUsers persists a batch of records atomically: either every record's
	// balances are written or none are.
	SaveUsers(ctx context.Context, users []*User) error

	// TopUsers returns up to limit (id, balance) pairs for the given currency,
	// highest balance first, ties broken deterministically.
	TopUsers(ctx context.Context, currency *Currency, limit int) ([]TopEntry, error)
}
