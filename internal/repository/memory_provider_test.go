package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"playerbank/internal/domain"
	"playerbank/internal/usecase"
)

func newMemoryRegistry(t *testing.T) *usecase.CurrencyRegistry {
	t.Helper()

	registry := usecase.NewCurrencyRegistry()
	currencies := []*domain.Currency{
		{Identifier: "coins", Scope: domain.ScopeLocal, DecimalPlaces: 2, Payable: true, DefaultBalance: decimal.Zero},
		{Identifier: "gems", Scope: domain.ScopeGlobal, DefaultBalance: decimal.NewFromInt(100)},
	}
	for _, currency := range currencies {
		if err := registry.Register(currency); err != nil {
			t.Fatalf("register %s: %v", currency.Identifier, err)
		}
	}
	return registry
}

func newMemoryProvider(t *testing.T, registry *usecase.CurrencyRegistry, latency time.Duration) *MemoryProvider {
	t.Helper()

	provider := NewMemoryProvider(registry, latency)
	if err := provider.Init(context.Background()); err != nil {
		t.Fatalf("init memory provider: %v", err)
	}
	t.Cleanup(func() {
		if err := provider.Shutdown(); err != nil {
			t.Fatalf("shutdown memory provider: %v", err)
		}
	})
	return provider
}

func TestMemoryRoundTrip(t *testing.T) {
	registry := newMemoryRegistry(t)
	provider := newMemoryProvider(t, registry, 0)
	coins := registry.Get("coins")
	id := uuid.New()

	user := domain.NewUser(id)
	user.SetBalance(coins, decimal.NewFromFloat(33.25))
	if err := provider.SaveUser(context.Background(), user); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := domain.NewUser(id)
	if err := provider.LoadUser(context.Background(), reloaded); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := reloaded.Balance(coins); !got.Equal(decimal.NewFromFloat(33.25)) {
		t.Fatalf("expected coins balance 33.25, got %s", got)
	}
}

func TestMemoryZeroBalanceDeletesEntry(t *testing.T) {
	registry := newMemoryRegistry(t)
	provider := newMemoryProvider(t, registry, 0)
	gems := registry.Get("gems")
	id := uuid.New()

	user := domain.NewUser(id)
	user.SetBalance(gems, decimal.NewFromInt(40))
	if err := provider.SaveUser(context.Background(), user); err != nil {
		t.Fatalf("save: %v", err)
	}

	user.SetBalance(gems, decimal.Zero)
	if err := provider.SaveUser(context.Background(), user); err != nil {
		t.Fatalf("save zero: %v", err)
	}

	reloaded := domain.NewUser(id)
	if err := provider.LoadUser(context.Background(), reloaded); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := reloaded.Balance(gems); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected default 100 after zeroing, got %s", got)
	}
}

func TestMemoryTopUsersOrderingAndTies(t *testing.T) {
	registry := newMemoryRegistry(t)
	provider := newMemoryProvider(t, registry, 0)
	coins := registry.Get("coins")

	ids := make([]uuid.UUID, 4)
	balances := []int64{50, 100, 50, 200}
	for i, amount := range balances {
		ids[i] = uuid.New()
		user := domain.NewUser(ids[i])
		user.SetBalance(coins, decimal.NewFromInt(amount))
		if err := provider.SaveUser(context.Background(), user); err != nil {
			t.Fatalf("save user %d: %v", i, err)
		}
	}

	entries, err := provider.TopUsers(context.Background(), coins, 3)
	if err != nil {
		t.Fatalf("top users: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	// 200, 100, then the first-inserted of the two 50s
	want := []uuid.UUID{ids[3], ids[1], ids[0]}
	for i, entry := range entries {
		if entry.ID != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], entry.ID)
		}
	}
	if !entries[0].Balance.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected top balance 200, got %s", entries[0].Balance)
	}
}

func TestMemoryLatencyHonorsCancellation(t *testing.T) {
	registry := newMemoryRegistry(t)
	provider := newMemoryProvider(t, registry, 200*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := provider.LoadUser(ctx, domain.NewUser(uuid.New()))
	if err == nil {
		t.Fatal("expected context error from a cancelled slow load")
	}
	if elapsed := time.Since(start); elapsed >= 200*time.Millisecond {
		t.Fatalf("cancelled load still waited the full latency (%s)", elapsed)
	}
}

func TestMemoryRequiresInit(t *testing.T) {
	registry := newMemoryRegistry(t)
	provider := NewMemoryProvider(registry, 0)

	if err := provider.LoadUser(context.Background(), domain.NewUser(uuid.New())); err == nil {
		t.Fatal("expected error before Init")
	}
}
