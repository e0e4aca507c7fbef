package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"playerbank/internal/domain"
)

var (
	// ErrDirtyUnload is returned when Unload is asked to drop a record with
	// unsaved balance changes
	ErrDirtyUnload = errors.New("record has unsaved balance changes")

	// ErrUnknownCurrency is returned for a balance operation against a
	// currency identifier that was never registered
	ErrUnknownCurrency = errors.New("unknown currency")

	// ErrUserNotLoaded is returned for a balance operation against a user
	// that is not currently cached
	ErrUserNotLoaded = errors.New("user is not loaded")
)

// UserManager owns the in-process cache of user records and mediates all
// load/save/unload traffic against the storage provider. It is safe for
// arbitrary concurrent use; the internal lock is only held for map
// operations, never across storage I/O.
type UserManager struct {
	storage  domain.StorageProvider
	registry *CurrencyRegistry

	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User

	// loads deduplicates concurrent storage reads per user id
	loads singleflight.Group

	// payMu serializes transfers so two concurrent pays cannot both pass the
	// balance check against the same funds
	payMu sync.Mutex
}

// NewUserManager creates a new UserManager
func NewUserManager(storage domain.StorageProvider, registry *CurrencyRegistry) *UserManager {
	return &UserManager{
		storage:  storage,
		registry: registry,
		users:    make(map[uuid.UUID]*domain.User),
	}
}

// GetIfPresent returns the cached record for the given id, or nil.
// It never triggers storage I/O.
func (m *UserManager) GetIfPresent(id uuid.UUID) *domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users[id]
}

// GetOrCreate returns the cached record for the given id, creating and
// caching an empty placeholder if absent. Concurrent callers for the same id
// observe exactly one instance.
func (m *UserManager) GetOrCreate(id uuid.UUID) *domain.User {
	m.mu.RLock()
	user := m.users[id]
	m.mu.RUnlock()
	if user != nil {
		return user
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if user := m.users[id]; user != nil {
		return user
	}

	user = domain.NewUser(id)
	m.users[id] = user
	return user
}

// Load ensures a record exists for the given id and hydrates it from
// storage. Concurrent loads for the same id share a single storage read; all
// callers receive the same record instance.
func (m *UserManager) Load(ctx context.Context, id uuid.UUID, username string) (*domain.User, error) {
	user := m.GetOrCreate(id)
	user.Touch()
	if username != "" {
		user.SetUsername(username)
	}

	_, err, _ := m.loads.Do(id.String(), func() (interface{}, error) {
		return nil, m.storage.LoadUser(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", id, err)
	}

	return user, nil
}

// Save persists the record's current balances. On success the writes covered
// by the save are marked clean; on failure the record stays dirty so a later
// save retries the same data.
func (m *UserManager) Save(ctx context.Context, user *domain.User) error {
	version := user.Version()

	if err := m.storage.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("failed to save user %s: %w", user.ID, err)
	}

	user.MarkSaved(version)
	return nil
}

// SaveAll persists every dirty cached record as one atomic batch and returns
// how many records were flushed. A batch failure leaves every record dirty.
func (m *UserManager) SaveAll(ctx context.Context) (int, error) {
	m.mu.RLock()
	dirty := make([]*domain.User, 0)
	versions := make([]uint64, 0)
	for _, user := range m.users {
		if user.IsDirty() {
			dirty = append(dirty, user)
			versions = append(versions, user.Version())
		}
	}
	m.mu.RUnlock()

	if len(dirty) == 0 {
		return 0, nil
	}

	if err := m.storage.SaveUsers(ctx, dirty); err != nil {
		return 0, fmt.Errorf("failed to save batch of %d users: %w", len(dirty), err)
	}

	for i, user := range dirty {
		user.MarkSaved(versions[i])
	}
	return len(dirty), nil
}

// Unload removes the record for the given id from the cache. Unloading a
// dirty record would silently drop balance changes, so it is rejected.
func (m *UserManager) Unload(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user := m.users[id]
	if user == nil {
		return nil
	}
	if user.IsDirty() {
		log.Printf("[ERROR] Refusing to unload user %s with unsaved changes", id)
		return fmt.Errorf("cannot unload user %s: %w", id, ErrDirtyUnload)
	}

	delete(m.users, id)
	return nil
}

// CachedCount returns the number of records currently cached
func (m *UserManager) CachedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

// cachedUsers returns a snapshot of every cached record
func (m *UserManager) cachedUsers() []*domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]*domain.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	return users
}

// OnConnect handles a player connect event: it loads the user's data and
// marks the record online. A load failure rejects the connection attempt.
func (m *UserManager) OnConnect(ctx context.Context, id uuid.UUID, username string) (*domain.User, error) {
	// mark the record online before the storage read so the housekeeper
	// cannot evict it while the load is in flight
	user := m.GetOrCreate(id)
	user.SetOnline(true)

	if _, err := m.Load(ctx, id, username); err != nil {
		log.Printf("[ERROR] Failed to load user data for %s (%s): %v", username, id, err)
		user.SetOnline(false)
		return nil, err
	}

	return user, nil
}

// OnDisconnect handles a player disconnect event: it saves the record if
// dirty, then unloads it once the save has settled and the player has not
// reconnected meanwhile.
func (m *UserManager) OnDisconnect(ctx context.Context, id uuid.UUID) error {
	user := m.GetIfPresent(id)
	if user == nil {
		return nil
	}

	user.SetOnline(false)

	if user.IsDirty() {
		if err := m.Save(ctx, user); err != nil {
			// keep the record cached and dirty; the periodic saver retries
			return err
		}
	}

	// the player may have reconnected while the save was in flight
	if user.IsOnline() {
		return nil
	}

	return m.Unload(id)
}

// EvictIdle removes cached records that are clean, disconnected, and idle
// for at least the given duration. Dirty records are never evicted. Returns
// the number of records removed.
func (m *UserManager) EvictIdle(idleAfter time.Duration) int {
	cutoff := time.Now().Add(-idleAfter)

	evicted := 0
	for _, user := range m.cachedUsers() {
		if user.IsOnline() || user.IsDirty() {
			continue
		}
		if user.IdleSince().After(cutoff) {
			continue
		}
		// Unload re-checks the dirty state under the cache lock, so a write
		// racing this sweep keeps its record
		if err := m.Unload(user.ID); err == nil {
			evicted++
		}
	}
	return evicted
}

// GetBalance returns the cached balance for the given user and currency.
// It never triggers storage I/O.
func (m *UserManager) GetBalance(id uuid.UUID, currencyIdentifier string) (decimal.Decimal, error) {
	currency := m.registry.Get(currencyIdentifier)
	if currency == nil {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownCurrency, currencyIdentifier)
	}

	user := m.GetIfPresent(id)
	if user == nil {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUserNotLoaded, id)
	}

	return user.Balance(currency), nil
}

// SetBalance sets the cached balance for the given user and currency,
// marking the record dirty. It never triggers storage I/O.
func (m *UserManager) SetBalance(id uuid.UUID, currencyIdentifier string, balance decimal.Decimal) error {
	currency := m.registry.Get(currencyIdentifier)
	if currency == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCurrency, currencyIdentifier)
	}

	user := m.GetIfPresent(id)
	if user == nil {
		return fmt.Errorf("%w: %s", ErrUserNotLoaded, id)
	}

	user.SetBalance(currency, currency.Round(balance))
	return nil
}

// Pay transfers amount of a payable currency from one cached user to
// another. The payer is debited the full amount; the receiver is credited
// the amount minus the currency's tax. Both records become dirty.
func (m *UserManager) Pay(fromID, toID uuid.UUID, currencyIdentifier string, amount decimal.Decimal) error {
	currency := m.registry.Get(currencyIdentifier)
	if currency == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCurrency, currencyIdentifier)
	}
	if !currency.Payable {
		return fmt.Errorf("currency %s is not payable", currencyIdentifier)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("transfer amount must be positive, got %s", amount)
	}

	from := m.GetIfPresent(fromID)
	if from == nil {
		return fmt.Errorf("%w: %s", ErrUserNotLoaded, fromID)
	}
	to := m.GetIfPresent(toID)
	if to == nil {
		return fmt.Errorf("%w: %s", ErrUserNotLoaded, toID)
	}

	amount = currency.Round(amount)

	m.payMu.Lock()
	defer m.payMu.Unlock()

	if from.Balance(currency).LessThan(amount) {
		return fmt.Errorf("user %s has insufficient %s balance", fromID, currencyIdentifier)
	}

	tax := currency.Round(currency.CalculateTax(amount))
	from.SetBalance(currency, from.Balance(currency).Sub(amount))
	to.SetBalance(currency, to.Balance(currency).Add(amount.Sub(tax)))

	return nil
}

// TopUsers returns up to limit leaderboard entries for the given currency,
// highest balance first. Provider results are merged with the live cache:
// cached balances take precedence over the persisted values, and cached
// records whose unsaved balances belong in the top n are included even
// before the next flush persists them.
func (m *UserManager) TopUsers(ctx context.Context, currencyIdentifier string, limit int) ([]domain.TopEntry, error) {
	currency := m.registry.Get(currencyIdentifier)
	if currency == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCurrency, currencyIdentifier)
	}

	entries, err := m.storage.TopUsers(ctx, currency, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top users for %s: %w", currencyIdentifier, err)
	}

	seen := make(map[uuid.UUID]bool, len(entries))
	for i, entry := range entries {
		seen[entry.ID] = true
		if user := m.GetIfPresent(entry.ID); user != nil {
			entries[i].Balance = user.Balance(currency)
		}
	}

	for _, user := range m.cachedUsers() {
		if seen[user.ID] {
			continue
		}
		balance, ok := user.BalanceIfSet(currency.Identifier)
		if !ok || balance.IsZero() {
			continue
		}
		entries = append(entries, domain.TopEntry{ID: user.ID, Balance: balance})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Balance.GreaterThan(entries[j].Balance)
	})
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}
