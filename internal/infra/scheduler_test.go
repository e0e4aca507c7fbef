package infra_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"playerbank/internal/domain"
	"playerbank/internal/infra"
	"playerbank/internal/repository"
	"playerbank/internal/usecase"
)

func newSchedulerFixture(t *testing.T) (*usecase.UserManager, *usecase.CurrencyRegistry) {
	t.Helper()

	registry := usecase.NewCurrencyRegistry()
	err := registry.Register(&domain.Currency{
		Identifier:     "coins",
		Scope:          domain.ScopeLocal,
		DecimalPlaces:  2,
		DefaultBalance: decimal.Zero,
	})
	if err != nil {
		t.Fatalf("register coins: %v", err)
	}

	provider := repository.NewMemoryProvider(registry, 0)
	if err := provider.Init(context.Background()); err != nil {
		t.Fatalf("init provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown() })

	return usecase.NewUserManager(provider, registry), registry
}

func TestFlushDirtySavesAllDirtyRecords(t *testing.T) {
	manager, registry := newSchedulerFixture(t)
	scheduler := infra.NewScheduler(manager, time.Second, time.Second, time.Second)
	coins := registry.Get("coins")

	users := make([]*domain.User, 3)
	for i := range users {
		users[i] = manager.GetOrCreate(uuid.New())
		users[i].SetBalance(coins, decimal.NewFromInt(int64(i+1)))
	}

	scheduler.FlushDirty(context.Background())

	for i, user := range users {
		if user.IsDirty() {
			t.Fatalf("user %d still dirty after flush", i)
		}
	}
}

func TestSweepIdleEvictsOnlyCleanDisconnectedRecords(t *testing.T) {
	manager, registry := newSchedulerFixture(t)
	scheduler := infra.NewScheduler(manager, time.Second, time.Second, 10*time.Millisecond)
	coins := registry.Get("coins")

	dirtyID, cleanID := uuid.New(), uuid.New()
	dirtyUser := manager.GetOrCreate(dirtyID)
	dirtyUser.SetOnline(false)
	dirtyUser.SetBalance(coins, decimal.NewFromInt(1))

	cleanUser := manager.GetOrCreate(cleanID)
	cleanUser.SetOnline(false)

	time.Sleep(25 * time.Millisecond)
	scheduler.SweepIdle()

	if manager.GetIfPresent(cleanID) != nil {
		t.Fatal("clean record should have been swept")
	}
	if manager.GetIfPresent(dirtyID) == nil {
		t.Fatal("dirty record must survive the sweep")
	}
}

func TestSchedulerRunsPeriodicSave(t *testing.T) {
	manager, registry := newSchedulerFixture(t)
	scheduler := infra.NewScheduler(manager, 50*time.Millisecond, time.Hour, time.Hour)

	if err := scheduler.Start(); err != nil {
		t.Fatalf("start scheduler: %v", err)
	}
	defer scheduler.Stop()

	user := manager.GetOrCreate(uuid.New())
	user.SetBalance(registry.Get("coins"), decimal.NewFromInt(77))

	deadline := time.Now().Add(2 * time.Second)
	for user.IsDirty() {
		if time.Now().After(deadline) {
			t.Fatal("periodic save never flushed the dirty record")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
