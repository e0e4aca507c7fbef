package usecase

import (
	"fmt"
	"sort"
	"sync"

	"playerbank/internal/domain"
)

// CurrencyRegistry holds every configured currency. Registration happens at
// startup only; lookups afterwards are read-only and lock-free in practice.
type CurrencyRegistry struct {
	mu         sync.RWMutex
	currencies map[string]*domain.Currency
}

// NewCurrencyRegistry creates an empty registry
func NewCurrencyRegistry() *CurrencyRegistry {
	return &CurrencyRegistry{
		currencies: make(map[string]*domain.Currency),
	}
}

// Register adds a currency definition. Duplicate identifiers are rejected.
func (r *CurrencyRegistry) Register(currency *domain.Currency) error {
	if currency == nil || currency.Identifier == "" {
		return fmt.Errorf("currency identifier is required")
	}
	if currency.Scope != domain.ScopeLocal && currency.Scope != domain.ScopeGlobal {
		return fmt.Errorf("currency %s has invalid scope %q", currency.Identifier, currency.Scope)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.currencies[currency.Identifier]; exists {
		return fmt.Errorf("currency %s is already registered", currency.Identifier)
	}

	r.currencies[currency.Identifier] = currency
	return nil
}

// Get returns the currency with the given identifier, or nil if unknown
func (r *CurrencyRegistry) Get(identifier string) *domain.Currency {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currencies[identifier]
}

// All returns every registered currency ordered by identifier
func (r *CurrencyRegistry) All() []*domain.Currency {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.Currency, 0, len(r.currencies))
	for _, currency := range r.currencies {
		all = append(all, currency)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Identifier < all[j].Identifier
	})

	return all
}
