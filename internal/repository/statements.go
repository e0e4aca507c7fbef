package repository

import (
	"fmt"
	"strings"

	"playerbank/internal/infra"
)

// statements holds the per-backend SQL for the provider. Statement text uses
// ?-placeholders plus {prefix} and {context} tokens; the statement processor
// resolves both before execution, so the provider logic never branches on
// the backend.
type statements struct {
	saveGlobal   string
	saveLocal    string
	load         string
	topGlobal    string
	topLocal     string
	deleteGlobal string
	deleteLocal  string
}

const (
	stmtLoadWholeUser = `SELECT currency_identifier, balance FROM {prefix}_users WHERE uuid = ?
		UNION ALL
		SELECT currency_identifier, balance FROM {prefix}_{context}_users WHERE uuid = ?`

	stmtTopUsersGlobal = `SELECT uuid, balance FROM {prefix}_users WHERE currency_identifier = ? ORDER BY balance DESC, uuid ASC LIMIT ?`
	stmtTopUsersLocal  = `SELECT uuid, balance FROM {prefix}_{context}_users WHERE currency_identifier = ? ORDER BY balance DESC, uuid ASC LIMIT ?`

	stmtDeleteGlobal = `DELETE FROM {prefix}_users WHERE uuid = ? AND currency_identifier = ?`
	stmtDeleteLocal  = `DELETE FROM {prefix}_{context}_users WHERE uuid = ? AND currency_identifier = ?`

	stmtUpsertConflictGlobal = `INSERT INTO {prefix}_users (uuid, currency_identifier, balance) VALUES (?, ?, ?)
		ON CONFLICT (uuid, currency_identifier) DO UPDATE SET balance = excluded.balance`
	stmtUpsertConflictLocal = `INSERT INTO {prefix}_{context}_users (uuid, currency_identifier, balance) VALUES (?, ?, ?)
		ON CONFLICT (uuid, currency_identifier) DO UPDATE SET balance = excluded.balance`

	// mysql has no excluded.-style reference; the update clause binds the
	// balance a second time
	stmtUpsertDuplicateGlobal = `INSERT INTO {prefix}_users (uuid, currency_identifier, balance) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE balance = ?`
	stmtUpsertDuplicateLocal = `INSERT INTO {prefix}_{context}_users (uuid, currency_identifier, balance) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE balance = ?`
)

// statementsFor returns the statement set for the given backend
func statementsFor(storageType infra.StorageType) (statements, error) {
	s := statements{
		load:         stmtLoadWholeUser,
		topGlobal:    stmtTopUsersGlobal,
		topLocal:     stmtTopUsersLocal,
		deleteGlobal: stmtDeleteGlobal,
		deleteLocal:  stmtDeleteLocal,
	}

	switch storageType {
	case infra.StoragePostgres, infra.StorageSQLite:
		s.saveGlobal = stmtUpsertConflictGlobal
		s.saveLocal = stmtUpsertConflictLocal
	case infra.StorageMySQL:
		s.saveGlobal = stmtUpsertDuplicateGlobal
		s.saveLocal = stmtUpsertDuplicateLocal
	default:
		return statements{}, fmt.Errorf("no SQL statements for storage type %q", storageType)
	}

	return s, nil
}

// newStatementProcessor builds the function that turns a statement template
// into literal statement text for the given dialect
func newStatementProcessor(dialect infra.Dialect, tablePrefix, serverContext string) func(string) string {
	replacer := strings.NewReplacer("{prefix}", tablePrefix, "{context}", serverContext)
	return func(query string) string {
		return dialect.Rebind(replacer.Replace(query))
	}
}
