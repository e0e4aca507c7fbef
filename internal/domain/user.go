package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is one cached player record. Balances are sparse: a currency with no
// entry reads as that currency's default balance, and only non-zero balances
// are ever persisted.
//
// Dirty tracking uses a version counter rather than a plain flag so a write
// that lands while a save is in flight keeps the record dirty instead of
// being lost when the save completes.
type User struct {
	ID uuid.UUID

	mu           sync.RWMutex
	username     string
	balances     map[string]decimal.Decimal
	version      uint64
	savedVersion uint64
	online       bool
	lastSeen     time.Time
}

// NewUser creates an empty cached record for the given identity
func NewUser(id uuid.UUID) *User {
	return &User{
		ID:       id,
		balances: make(map[string]decimal.Decimal),
		lastSeen: time.Now(),
	}
}

// Username returns the last known display name, possibly empty
func (u *User) Username() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.username
}

// SetUsername records the latest known display name
func (u *User) SetUsername(name string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.username = name
}

// Balance returns the user's balance in the given currency, falling back to
// the currency's default balance when no entry exists
func (u *User) Balance(currency *Currency) decimal.Decimal {
	u.mu.RLock()
	defer u.mu.RUnlock()

	if balance, ok := u.balances[currency.Identifier]; ok {
		return balance
	}
	return currency.DefaultBalance
}

// BalanceIfSet returns the explicitly held balance for a currency
// identifier and whether one exists. Currencies the user never touched (and
// whose stored rows were deleted) report false; persistence uses this to
// keep default balances out of storage.
func (u *User) BalanceIfSet(currencyIdentifier string) (decimal.Decimal, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	balance, ok := u.balances[currencyIdentifier]
	return balance, ok
}

// SetBalance sets the user's balance in the given currency and marks the
// record dirty
func (u *User) SetBalance(currency *Currency, balance decimal.Decimal) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.balances[currency.Identifier] = balance
	u.version++
}

// Hydrate applies a persisted balance without marking the record dirty.
// Used by storage providers while populating a freshly loaded record.
func (u *User) Hydrate(currencyIdentifier string, balance decimal.Decimal) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.balances[currencyIdentifier] = balance
}

// IsDirty reports whether the record has balance changes not yet persisted
func (u *User) IsDirty() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.version != u.savedVersion
}

// Version returns the current write version; pass it to MarkSaved after a
// successful save of a snapshot taken at this version
func (u *User) Version() uint64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.version
}

// MarkSaved records that every write up to the given version has been
// persisted. Writes that happened after the snapshot keep the record dirty.
func (u *User) MarkSaved(version uint64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if version > u.savedVersion {
		u.savedVersion = version
	}
}

// Touch refreshes the idle timer without changing the connection state
func (u *User) Touch() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.lastSeen = time.Now()
}

// SetOnline updates the connection state and refreshes the idle timer
func (u *User) SetOnline(online bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.online = online
	u.lastSeen = time.Now()
}

// IsOnline reports whether the owning player is currently connected
func (u *User) IsOnline() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.online
}

// IdleSince returns the time of the last connect/disconnect transition
func (u *User) IdleSince() time.Time {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.lastSeen
}
