package infra

import (
	"context"
	"path/filepath"
	"testing"
)

func TestPostgresRebindNumbersPlaceholders(t *testing.T) {
	got := postgresDialect{}.Rebind("INSERT INTO t (a, b, c) VALUES (?, ?, ?)")
	want := "INSERT INTO t (a, b, c) VALUES ($1, $2, $3)"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRebindLeavesStatementsWithoutPlaceholdersAlone(t *testing.T) {
	stmt := "CREATE TABLE IF NOT EXISTS t (uuid TEXT NOT NULL)"
	if got := (postgresDialect{}).Rebind(stmt); got != stmt {
		t.Fatalf("expected %q, got %q", stmt, got)
	}
}

func TestDialectUpsertParameterFlags(t *testing.T) {
	if (postgresDialect{}).DuplicateUpsertParams() {
		t.Fatal("postgres upserts reference excluded values, no duplicate binding")
	}
	if (sqliteDialect{}).DuplicateUpsertParams() {
		t.Fatal("sqlite upserts reference excluded values, no duplicate binding")
	}
	if !(mysqlDialect{}).DuplicateUpsertParams() {
		t.Fatal("mysql upsert emulation must re-bind the balance")
	}
}

func TestSQLiteFactoryOpensAndShutsDown(t *testing.T) {
	factory := NewSQLiteFactory(filepath.Join(t.TempDir(), "test.db"))

	if err := factory.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if factory.DB() == nil {
		t.Fatal("expected a live database handle after Init")
	}
	if err := factory.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestFactoryRequiresConnectionString(t *testing.T) {
	if err := NewPostgresFactory("").Init(context.Background()); err == nil {
		t.Fatal("expected error for empty postgres connection string")
	}
	if err := NewMySQLFactory("").Init(context.Background()); err == nil {
		t.Fatal("expected error for empty mysql dsn")
	}
}
