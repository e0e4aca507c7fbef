package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"playerbank/internal/domain"
	"playerbank/internal/infra"
	"playerbank/internal/usecase"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// SQLProvider persists user balances in a relational backend through a
// ConnectionFactory. All dialect differences (placeholders, upsert form,
// schema text) are resolved at construction; the provider logic itself is
// backend-neutral.
//
// One row exists per (uuid, currency_identifier) in the scope-appropriate
// table; a zero balance is represented by row absence.
type SQLProvider struct {
	factory  infra.ConnectionFactory
	registry *usecase.CurrencyRegistry
	stmts    statements
	process  func(string) string

	// duplicateParams is true for backends whose upsert re-binds the balance
	duplicateParams bool
}

// NewSQLProvider creates a provider for the factory's backend. Statement
// templates are processed once here: {prefix}/{context} tokens are replaced
// and placeholders rebound for the dialect.
func NewSQLProvider(factory infra.ConnectionFactory, registry *usecase.CurrencyRegistry, tablePrefix, serverContext string) (*SQLProvider, error) {
	dialect := factory.Dialect()

	stmts, err := statementsFor(dialect.Name())
	if err != nil {
		return nil, err
	}

	process := newStatementProcessor(dialect, tablePrefix, serverContext)
	stmts.saveGlobal = process(stmts.saveGlobal)
	stmts.saveLocal = process(stmts.saveLocal)
	stmts.load = process(stmts.load)
	stmts.topGlobal = process(stmts.topGlobal)
	stmts.topLocal = process(stmts.topLocal)
	stmts.deleteGlobal = process(stmts.deleteGlobal)
	stmts.deleteLocal = process(stmts.deleteLocal)

	return &SQLProvider{
		factory:         factory,
		registry:        registry,
		stmts:           stmts,
		process:         process,
		duplicateParams: dialect.DuplicateUpsertParams(),
	}, nil
}

// Init opens the connection pool and applies the backend's schema. Schema
// creation is idempotent; a missing schema file is fatal.
func (p *SQLProvider) Init(ctx context.Context) error {
	if err := p.factory.Init(ctx); err != nil {
		return err
	}

	schemaFile := fmt.Sprintf("schema/%s.sql", p.factory.Dialect().Name())
	raw, err := schemaFS.ReadFile(schemaFile)
	if err != nil {
		return fmt.Errorf("failed to load schema file %s: %w", schemaFile, err)
	}

	for _, statement := range splitStatements(string(raw)) {
		if _, err := p.factory.DB().ExecContext(ctx, p.process(statement)); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	log.Printf("[OK] %s schema applied", p.factory.Dialect().Name())
	return nil
}

// Shutdown closes the connection pool
func (p *SQLProvider) Shutdown() error {
	return p.factory.Shutdown()
}

// LoadUser hydrates the record with every stored row for its id across the
// local and global tables. Zero matching rows is not an error.
func (p *SQLProvider) LoadUser(ctx context.Context, user *domain.User) error {
	id := user.ID.String()

	rows, err := p.factory.DB().QueryContext(ctx, p.stmts.load, id, id)
	if err != nil {
		return fmt.Errorf("failed to load user %s: %w", user.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var identifier string
		var balance decimal.Decimal
		if err := rows.Scan(&identifier, &balance); err != nil {
			return fmt.Errorf("failed to scan balance row for user %s: %w", user.ID, err)
		}

		if p.registry.Get(identifier) == nil {
			log.Printf("[WARN] Ignoring stored balance for unregistered currency %s (user %s)", identifier, user.ID)
			continue
		}

		user.Hydrate(identifier, balance)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to load user %s: %w", user.ID, err)
	}
	return nil
}

// SaveUser persists the record's balances inside one transaction
func (p *SQLProvider) SaveUser(ctx context.Context, user *domain.User) error {
	tx, err := p.factory.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save for user %s: %w", user.ID, err)
	}
	defer tx.Rollback()

	if err := p.saveBalances(ctx, tx, user); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit save for user %s: %w", user.ID, err)
	}
	return nil
}

// SaveUsers persists the whole batch inside one transaction, rolling back
// atomically on any failure so a bad row never leaves a partial write
func (p *SQLProvider) SaveUsers(ctx context.Context, users []*domain.User) error {
	tx, err := p.factory.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch save: %w", err)
	}
	defer tx.Rollback()

	for _, user := range users {
		if err := p.saveBalances(ctx, tx, user); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch save: %w", err)
	}
	return nil
}

// TopUsers queries the scope-appropriate table for the highest balances in
// the given currency
func (p *SQLProvider) TopUsers(ctx context.Context, currency *domain.Currency, limit int) ([]domain.TopEntry, error) {
	statement := p.stmts.topGlobal
	if currency.Scope == domain.ScopeLocal {
		statement = p.stmts.topLocal
	}

	rows, err := p.factory.DB().QueryContext(ctx, statement, currency.Identifier, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top users for %s: %w", currency.Identifier, err)
	}
	defer rows.Close()

	var entries []domain.TopEntry
	for rows.Next() {
		var rawID string
		var balance decimal.Decimal
		if err := rows.Scan(&rawID, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan top user row: %w", err)
		}

		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored uuid %q: %w", rawID, err)
		}

		entries = append(entries, domain.TopEntry{ID: id, Balance: balance})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query top users for %s: %w", currency.Identifier, err)
	}
	return entries, nil
}

// saveBalances writes one user's balances onto the given transaction: an
// upsert per non-zero balance, a delete per zero balance, partitioned by
// currency scope.
func (p *SQLProvider) saveBalances(ctx context.Context, tx *sql.Tx, user *domain.User) error {
	id := user.ID.String()

	for _, currency := range p.registry.All() {
		// default balances are represented by row absence; only explicitly
		// held balances touch storage
		balance, ok := user.BalanceIfSet(currency.Identifier)
		if !ok {
			continue
		}

		if balance.IsZero() {
			statement := p.stmts.deleteGlobal
			if currency.Scope == domain.ScopeLocal {
				statement = p.stmts.deleteLocal
			}
			if _, err := tx.ExecContext(ctx, statement, id, currency.Identifier); err != nil {
				return fmt.Errorf("failed to save user %s: %w", user.ID, err)
			}
			continue
		}

		statement := p.stmts.saveGlobal
		if currency.Scope == domain.ScopeLocal {
			statement = p.stmts.saveLocal
		}

		args := []interface{}{id, currency.Identifier, balance}
		if p.duplicateParams {
			args = append(args, balance)
		}

		if _, err := tx.ExecContext(ctx, statement, args...); err != nil {
			return fmt.Errorf("failed to save user %s: %w", user.ID, err)
		}
	}

	return nil
}

var _ domain.StorageProvider = (*SQLProvider)(nil)

// splitStatements breaks a schema file into individual statements
func splitStatements(schema string) []string {
	var out []string
	for _, statement := range strings.Split(schema, ";") {
		statement = strings.TrimSpace(statement)
		if statement != "" {
			out = append(out, statement)
		}
	}
	return out
}
