package content

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/monkeyscms/monkeys/internal/database"
	"github.com/monkeyscms/monkeys/internal/schema"
)

// ErrNotFound is returned when a content entry does not exist.
var ErrNotFound = errors.New("content entry not found")

// ListQuery is the engine-validated query the repository turns into SQL.
// Sort and Order are trusted here: the engine has already checked them
// against the type's column set and the ASC/DESC whitelist.
type ListQuery struct {
	Status      string
	TitleSearch string
	Sort        string
	Order       string
	Limit       int
	Offset      int
}

// Repository builds and runs dynamic parameterized SQL against the
// per-type tables. Every identifier is quoted; every value travels as a
// bind parameter.
type Repository struct {
	db *database.DB
}

// NewRepository creates a content Repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// quotedColumns returns a comma-separated string of quoted column names.
func quotedColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = schema.QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

// sortedKeys returns the row's keys in lexical order so generated SQL is
// deterministic for a given value set.
func sortedKeys(row map[string]any) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Insert creates an entry from the prepared row values and returns the
// stored row.
func (r *Repository) Insert(ctx context.Context, table string, row map[string]any, returning []string) (map[string]any, error) {
	keys := sortedKeys(row)

	cols := make([]string, len(keys))
	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		cols[i] = schema.QuoteIdent(k)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[k]
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		schema.QuoteIdent(table),
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		quotedColumns(returning),
	)

	rows, err := r.db.Pool().Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("inserting entry: %w", err)
	}
	defer rows.Close()

	entry, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("scanning inserted entry: %w", err)
	}
	return entry, nil
}

// Update patches an entry's columns by uuid and returns the stored row, or
// ErrNotFound when no row matches.
func (r *Repository) Update(ctx context.Context, table, id string, values map[string]any, returning []string) (map[string]any, error) {
	keys := sortedKeys(values)

	setParts := make([]string, len(keys))
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		setParts[i] = fmt.Sprintf("%s = $%d", schema.QuoteIdent(k), i+1)
		args = append(args, values[k])
	}
	args = append(args, id)

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d RETURNING %s",
		schema.QuoteIdent(table),
		strings.Join(setParts, ", "),
		schema.QuoteIdent("uuid"),
		len(keys)+1,
		quotedColumns(returning),
	)

	rows, err := r.db.Pool().Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("updating entry: %w", err)
	}
	defer rows.Close()

	entry, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning updated entry: %w", err)
	}
	return entry, nil
}

// Delete removes an entry by uuid, reporting whether a row was removed.
func (r *Repository) Delete(ctx context.Context, table, id string) (bool, error) {
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s = $1",
		schema.QuoteIdent(table), schema.QuoteIdent("uuid"))

	tag, err := r.db.Pool().Exec(ctx, sql, id)
	if err != nil {
		return false, fmt.Errorf("deleting entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Get reads one entry by uuid.
func (r *Repository) Get(ctx context.Context, table string, columns []string, id string) (map[string]any, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		quotedColumns(columns), schema.QuoteIdent(table), schema.QuoteIdent("uuid"))

	rows, err := r.db.Pool().Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("querying entry: %w", err)
	}
	defer rows.Close()

	entry, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning entry: %w", err)
	}
	return entry, nil
}

// List returns one page of entries plus the total count. The count query
// shares the WHERE clause with the page query so the total stays accurate
// under concurrent writes.
func (r *Repository) List(ctx context.Context, table string, columns []string, q ListQuery) ([]map[string]any, int, error) {
	var whereParts []string
	var args []any
	argIdx := 1

	if q.Status != "" {
		whereParts = append(whereParts, fmt.Sprintf("%s = $%d", schema.QuoteIdent("status"), argIdx))
		args = append(args, q.Status)
		argIdx++
	}
	if q.TitleSearch != "" {
		whereParts = append(whereParts, fmt.Sprintf("%s ILIKE $%d", schema.QuoteIdent("title"), argIdx))
		args = append(args, "%"+escapeLike(q.TitleSearch)+"%")
		argIdx++
	}

	whereClause := ""
	if len(whereParts) > 0 {
		whereClause = "WHERE " + strings.Join(whereParts, " AND ")
	}

	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", schema.QuoteIdent(table), whereClause)
	var total int
	if err := r.db.Pool().QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting entries: %w", err)
	}

	orderDir := "DESC"
	if strings.EqualFold(q.Order, "asc") {
		orderDir = "ASC"
	}

	dataSQL := fmt.Sprintf("SELECT %s FROM %s %s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		quotedColumns(columns),
		schema.QuoteIdent(table),
		whereClause,
		schema.QuoteIdent(q.Sort),
		orderDir,
		argIdx,
		argIdx+1,
	)
	args = append(args, q.Limit, q.Offset)

	rows, err := r.db.Pool().Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	entries, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, 0, fmt.Errorf("scanning entries: %w", err)
	}
	return entries, total, nil
}

// escapeLike escapes LIKE metacharacters in user-supplied search text so
// they match literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
