package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"playerbank/internal/domain"
	"playerbank/internal/usecase"
)

// MemoryProvider is a map-backed storage provider for development and
// testing. It mirrors the SQL provider's row semantics: zero balances are
// stored as absence, and loads fall back to each currency's default.
// An optional latency models slow storage for timing-sensitive tests.
type MemoryProvider struct {
	registry *usecase.CurrencyRegistry
	latency  time.Duration

	mu    sync.RWMutex
	store map[uuid.UUID]map[string]decimal.Decimal
	order []uuid.UUID
}

// NewMemoryProvider creates a MemoryProvider with the given simulated
// per-call latency (0 for none)
func NewMemoryProvider(registry *usecase.CurrencyRegistry, latency time.Duration) *MemoryProvider {
	return &MemoryProvider{
		registry: registry,
		latency:  latency,
	}
}

// Init prepares the backing map
func (p *MemoryProvider) Init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store = make(map[uuid.UUID]map[string]decimal.Decimal)
	p.order = nil
	return nil
}

// Shutdown drops the backing map
func (p *MemoryProvider) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store = nil
	p.order = nil
	return nil
}

// LoadUser hydrates the record from the backing map if present
func (p *MemoryProvider) LoadUser(ctx context.Context, user *domain.User) error {
	if err := p.simulateQuery(ctx); err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.store == nil {
		return fmt.Errorf("memory provider is not initialized")
	}

	for identifier, balance := range p.store[user.ID] {
		user.Hydrate(identifier, balance)
	}
	return nil
}

// SaveUser overwrites the stored balances for the record
func (p *MemoryProvider) SaveUser(ctx context.Context, user *domain.User) error {
	if err := p.simulateQuery(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saveLocked(user)
}

// SaveUsers overwrites the stored balances for every record in the batch
func (p *MemoryProvider) SaveUsers(ctx context.Context, users []*domain.User) error {
	if err := p.simulateQuery(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, user := range users {
		if err := p.saveLocked(user); err != nil {
			return err
		}
	}
	return nil
}

// TopUsers returns the top limit stored balances for the currency, highest
// first, ties broken by insertion order
func (p *MemoryProvider) TopUsers(ctx context.Context, currency *domain.Currency, limit int) ([]domain.TopEntry, error) {
	if err := p.simulateQuery(ctx); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.store == nil {
		return nil, fmt.Errorf("memory provider is not initialized")
	}

	entries := make([]domain.TopEntry, 0, len(p.order))
	for _, id := range p.order {
		balance, ok := p.store[id][currency.Identifier]
		if !ok {
			balance = currency.DefaultBalance
		}
		entries = append(entries, domain.TopEntry{ID: id, Balance: balance})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Balance.GreaterThan(entries[j].Balance)
	})

	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (p *MemoryProvider) saveLocked(user *domain.User) error {
	if p.store == nil {
		return fmt.Errorf("memory provider is not initialized")
	}

	row, seen := p.store[user.ID]
	if !seen {
		row = make(map[string]decimal.Decimal)
		p.store[user.ID] = row
		p.order = append(p.order, user.ID)
	}

	for _, currency := range p.registry.All() {
		balance, ok := user.BalanceIfSet(currency.Identifier)
		if !ok {
			continue
		}
		if balance.IsZero() {
			delete(row, currency.Identifier)
			continue
		}
		row[currency.Identifier] = balance
	}
	return nil
}

var _ domain.StorageProvider = (*MemoryProvider)(nil)

// simulateQuery models storage latency and honors cancellation
func (p *MemoryProvider) simulateQuery(ctx context.Context) error {
	if p.latency <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.latency):
		return nil
	}
}
