package infra

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// StorageType selects a storage backend
type StorageType string

// Supported storage backends
const (
	StorageMemory   StorageType = "memory"
	StoragePostgres StorageType = "postgres"
	StorageSQLite   StorageType = "sqlite"
	StorageMySQL    StorageType = "mysql"
)

// Dialect captures the SQL differences between relational backends so the
// storage provider itself stays dialect-agnostic.
type Dialect interface {
	// Name returns the backend this dialect belongs to
	Name() StorageType

	// Rebind rewrites ?-placeholders into the backend's native form
	Rebind(query string) string

	// DuplicateUpsertParams reports whether the backend's upsert statement
	// re-binds the balance a second time for its update clause instead of
	// referencing the inserted values
	DuplicateUpsertParams() bool
}

// ConnectionFactory opens the pooled database handle for a configured
// relational backend and exposes its dialect.
type ConnectionFactory interface {
	// Init opens and verifies the connection pool
	Init(ctx context.Context) error

	// Shutdown closes the pool
	Shutdown() error

	// DB returns the pooled handle; valid after Init
	DB() *sql.DB

	// Dialect returns the backend's SQL dialect
	Dialect() Dialect
}

type postgresDialect struct{}

func (postgresDialect) Name() StorageType { return StoragePostgres }

func (postgresDialect) Rebind(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (postgresDialect) DuplicateUpsertParams() bool { return false }

type sqliteDialect struct{}

func (sqliteDialect) Name() StorageType           { return StorageSQLite }
func (sqliteDialect) Rebind(query string) string  { return query }
func (sqliteDialect) DuplicateUpsertParams() bool { return false }

type mysqlDialect struct{}

func (mysqlDialect) Name() StorageType          { return StorageMySQL }
func (mysqlDialect) Rebind(query string) string { return query }

// mysql's ON DUPLICATE KEY UPDATE clause binds the new balance again
func (mysqlDialect) DuplicateUpsertParams() bool { return true }

// sqlConnectionFactory is the shared factory implementation; only the driver
// name, DSN and dialect vary per backend.
type sqlConnectionFactory struct {
	driver  string
	dsn     string
	dialect Dialect
	db      *sql.DB
}

// NewPostgresFactory creates a factory for a PostgreSQL backend
func NewPostgresFactory(dsn string) ConnectionFactory {
	return &sqlConnectionFactory{driver: "pgx", dsn: dsn, dialect: postgresDialect{}}
}

// NewSQLiteFactory creates a factory for an embedded SQLite database at the
// given path
func NewSQLiteFactory(path string) ConnectionFactory {
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	return &sqlConnectionFactory{driver: "sqlite", dsn: dsn, dialect: sqliteDialect{}}
}

// NewMySQLFactory creates a factory for a MySQL backend
func NewMySQLFactory(dsn string) ConnectionFactory {
	return &sqlConnectionFactory{driver: "mysql", dsn: dsn, dialect: mysqlDialect{}}
}

// Init opens the pool, applies pool limits, and verifies connectivity
func (f *sqlConnectionFactory) Init(ctx context.Context) error {
	if f.dsn == "" {
		return fmt.Errorf("%s connection string is required", f.dialect.Name())
	}

	log.Printf("Connecting to %s database...", f.dialect.Name())

	db, err := sql.Open(f.driver, f.dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", f.dialect.Name(), err)
	}

	// Limit max connections to prevent overwhelming the database
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping %s database: %w", f.dialect.Name(), err)
	}

	f.db = db
	log.Printf("[OK] %s database connected", f.dialect.Name())
	return nil
}

// Shutdown closes the pool
func (f *sqlConnectionFactory) Shutdown() error {
	if f.db == nil {
		return nil
	}
	return f.db.Close()
}

// DB returns the pooled handle
func (f *sqlConnectionFactory) DB() *sql.DB { return f.db }

// Dialect returns the backend's SQL dialect
func (f *sqlConnectionFactory) Dialect() Dialect { return f.dialect }
