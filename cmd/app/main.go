package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"playerbank/configs"
	delivery "playerbank/internal/delivery/http"
	"playerbank/internal/domain"
	"playerbank/internal/infra"
	"playerbank/internal/repository"
	"playerbank/internal/usecase"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Load configuration
	cfg := configs.Load()

	ctx := context.Background()

	// Register configured currencies (fixed for the lifetime of the process)
	registry := usecase.NewCurrencyRegistry()
	if err := registerCurrencies(registry, cfg); err != nil {
		log.Fatalf("Failed to register currencies: %v", err)
	}

	// Initialize the storage provider for the configured backend
	provider, err := buildStorageProvider(cfg, registry)
	if err != nil {
		log.Fatalf("Failed to configure storage: %v", err)
	}
	if err := provider.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer provider.Shutdown()

	// Initialize the user cache
	users := usecase.NewUserManager(provider, registry)

	// Start the periodic saver and housekeeper
	scheduler := infra.NewScheduler(
		users,
		cfg.Storage.SaveInterval,
		cfg.Storage.HousekeeperInterval,
		cfg.Storage.HousekeeperIdleAfter,
	)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Initialize HTTP server
	e := echo.New()
	e.HideBanner = true

	delivery.SetupRoutes(e, &delivery.RouterConfig{
		EconomyHandler: delivery.NewEconomyHandler(users, registry),
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("playerbank starting on %s", addr)
	log.Printf("Environment: %s | Server tag: %s | Storage: %s", cfg.Server.Env, cfg.Server.Name, cfg.Storage.Type)

	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERROR] Server forced to shutdown: %v", err)
	}

	// Stop the periodic tasks, then flush whatever is still dirty
	scheduler.Stop()
	scheduler.FlushDirty(shutdownCtx)

	log.Println("[OK] Shutdown complete")
}

// registerCurrencies parses the configured currency definitions and
// registers each one
func registerCurrencies(registry *usecase.CurrencyRegistry, cfg *configs.Config) error {
	parsed, err := cfg.Currency.Parse()
	if err != nil {
		return err
	}

	for _, cc := range parsed {
		defaultBalance, err := decimal.NewFromString(cc.DefaultBalance)
		if err != nil {
			return fmt.Errorf("invalid default balance for currency %s: %w", cc.Identifier, err)
		}
		taxRate, err := decimal.NewFromString(cc.TaxRate)
		if err != nil {
			return fmt.Errorf("invalid tax rate for currency %s: %w", cc.Identifier, err)
		}

		currency := &domain.Currency{
			Identifier:     cc.Identifier,
			Scope:          cc.Scope,
			DecimalPlaces:  cc.DecimalPlaces,
			Payable:        cc.Payable,
			DefaultBalance: defaultBalance,
		}
		if taxRate.IsPositive() {
			rate := taxRate
			currency.Tax = func(amount decimal.Decimal) decimal.Decimal {
				return amount.Mul(rate)
			}
		}

		if err := registry.Register(currency); err != nil {
			return err
		}
		log.Printf("[OK] Registered currency %s (%s)", currency.Identifier, currency.Scope)
	}

	return nil
}

// buildStorageProvider selects the storage implementation from configuration
func buildStorageProvider(cfg *configs.Config, registry *usecase.CurrencyRegistry) (domain.StorageProvider, error) {
	switch infra.StorageType(cfg.Storage.Type) {
	case infra.StorageMemory:
		return repository.NewMemoryProvider(registry, 0), nil
	case infra.StoragePostgres:
		factory := infra.NewPostgresFactory(cfg.Storage.PostgresURL)
		return repository.NewSQLProvider(factory, registry, cfg.Storage.TablePrefix, cfg.Server.Name)
	case infra.StorageSQLite:
		factory := infra.NewSQLiteFactory(cfg.Storage.SQLitePath)
		return repository.NewSQLProvider(factory, registry, cfg.Storage.TablePrefix, cfg.Server.Name)
	case infra.StorageMySQL:
		factory := infra.NewMySQLFactory(cfg.Storage.MySQLDSN)
		return repository.NewSQLProvider(factory, registry, cfg.Storage.TablePrefix, cfg.Server.Name)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}
