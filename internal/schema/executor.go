package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/monkeyscms/monkeys/internal/database"
	"github.com/monkeyscms/monkeys/internal/field"
)

// MutationError wraps a DDL failure that is not one of the tolerated
// idempotent cases.
type MutationError struct {
	Table  string
	Detail string
	Err    error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("schema mutation failed on %s (%s): %v", e.Table, e.Detail, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

// Executor runs generated DDL against the database. Re-running schema sync
// must be safe, so adding an existing column and dropping a missing column
// are logged no-ops rather than failures.
type Executor struct {
	db *database.DB
}

// NewExecutor creates a schema Executor over the given connection pool.
func NewExecutor(db *database.DB) *Executor {
	return &Executor{db: db}
}

// CreateTable creates a type's dynamic table and indexes. The generated
// DDL uses IF NOT EXISTS, so re-running boot sync is a no-op.
func (e *Executor) CreateTable(ctx context.Context, spec TableSpec) error {
	sql := GenerateCreateTable(spec)
	if _, err := e.db.Pool().Exec(ctx, sql); err != nil {
		return &MutationError{Table: spec.Name, Detail: "create table", Err: err}
	}
	slog.Info("dynamic table ensured", "table", spec.Name)
	return nil
}

// AddColumn adds a field's column. A duplicate-column failure is treated
// as an idempotent no-op.
func (e *Executor) AddColumn(ctx context.Context, table string, d field.Definition) error {
	sql := GenerateAddColumn(table, d)
	if _, err := e.db.Pool().Exec(ctx, sql); err != nil {
		if pgCode(err) == pgerrcode.DuplicateColumn {
			slog.Warn("column already exists, skipping add",
				"table", table, "column", d.Identifier())
			return nil
		}
		return &MutationError{Table: table, Detail: "add column " + d.Identifier(), Err: err}
	}
	return nil
}

// DropColumn drops a field's column. A missing-column failure is treated
// as an idempotent no-op.
func (e *Executor) DropColumn(ctx context.Context, table, identifier string) error {
	sql := GenerateDropColumn(table, identifier)
	if _, err := e.db.Pool().Exec(ctx, sql); err != nil {
		if pgCode(err) == pgerrcode.UndefinedColumn {
			slog.Warn("column does not exist, skipping drop",
				"table", table, "column", identifier)
			return nil
		}
		return &MutationError{Table: table, Detail: "drop column " + identifier, Err: err}
	}
	return nil
}

// DropTable removes a type's dynamic table entirely.
func (e *Executor) DropTable(ctx context.Context, table string) error {
	if _, err := e.db.Pool().Exec(ctx, GenerateDropTable(table)); err != nil {
		return &MutationError{Table: table, Detail: "drop table", Err: err}
	}
	slog.Info("dynamic table dropped", "table", table)
	return nil
}

// pgCode extracts the PostgreSQL error code, or "" for non-PG errors.
func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
