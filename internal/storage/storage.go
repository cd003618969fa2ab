package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"

	apperrors "comanda/internal/errors"
)

//go:embed schema/*.sql
var schemaFS embed.FS

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

// Querier is satisfied by both *sql.DB and *sql.Tx so read paths can run
// inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TransactionManager begins the transactions the services run their unit of
// work in.
type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Dialect carries the per-driver differences the repositories and services
// depend on.
type Dialect interface {
	Name() string
	// LockClause is appended to SELECTs that must hold the row until commit.
	LockClause() string
	TxOptions() *sql.TxOptions
	// IsConflict reports store-detected serialization failures that are safe
	// to retry from scratch.
	IsConflict(err error) bool
	schemaFile() string
}

func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverMySQL:
		return MySQLDialect{}, nil
	case DriverSQLite, "sqlite":
		return SQLiteDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

type MySQLDialect struct{}

func (MySQLDialect) Name() string       { return DriverMySQL }
func (MySQLDialect) LockClause() string { return " FOR UPDATE" }
func (MySQLDialect) schemaFile() string { return "schema/mysql.sql" }

func (MySQLDialect) TxOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
}

func (MySQLDialect) IsConflict(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		// 1213 deadlock, 1205 lock wait timeout
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	return false
}

// SQLiteDialect relies on BEGIN IMMEDIATE (set through the DSN) to serialize
// writers, so no row lock clause is needed.
type SQLiteDialect struct{}

func (SQLiteDialect) Name() string              { return DriverSQLite }
func (SQLiteDialect) LockClause() string        { return "" }
func (SQLiteDialect) TxOptions() *sql.TxOptions { return nil }
func (SQLiteDialect) schemaFile() string        { return "schema/sqlite.sql" }

func (SQLiteDialect) IsConflict(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// WrapConflict turns a store-detected serialization failure into a
// ConcurrencyConflictError. Any other error is returned untouched.
func WrapConflict(d Dialect, op string, err error) error {
	if err == nil || !d.IsConflict(err) {
		return err
	}
	if _, ok := apperrors.IsConcurrencyConflictError(err); ok {
		return err
	}
	return apperrors.NewConcurrencyConflictError(op, err)
}

// Migrate applies the dialect's schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	data, err := schemaFS.ReadFile(dialect.schemaFile())
	if err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}

	for _, stmt := range splitStatements(string(data)) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema statement: %w", err)
		}
	}

	return nil
}

func splitStatements(schema string) []string {
	var stmts []string
	for _, part := range strings.Split(schema, ";") {
		stmt := strings.TrimSpace(part)
		if stmt == "" {
			continue
		}
		stmts = append(stmts, stmt)
	}
	return stmts
}

// Placeholders returns "?, ?, ?" for n arguments.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
