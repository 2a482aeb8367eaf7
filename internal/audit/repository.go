package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/monkeyscms/monkeys/internal/database"
)

// Entry is one persisted audit log row.
type Entry struct {
	ID         int64          `json:"id"`
	Action     string         `json:"action"`
	ActorID    *string        `json:"actor_id,omitempty"`
	Resource   *string        `json:"resource,omitempty"`
	ResourceID *string        `json:"resource_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filters narrows a List query. Empty fields match everything.
type Filters struct {
	Action   string
	Resource string
}

// Repository persists audit entries in the audit_log table.
type Repository struct {
	db *database.DB
}

func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes one audit event.
func (r *Repository) Insert(ctx context.Context, event Event) error {
	payload, err := nullableJSON(event.Payload)
	if err != nil {
		return fmt.Errorf("marshaling audit payload: %w", err)
	}

	_, err = r.db.Pool().Exec(ctx, `
		INSERT INTO audit_log (action, actor_id, resource, resource_id, payload)
		VALUES ($1, $2, $3, $4, $5)`,
		event.Action,
		nullIfEmpty(event.ActorID),
		nullIfEmpty(event.Resource),
		nullIfEmpty(event.ResourceID),
		payload,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

// List returns a page of entries matching the filters, newest first, along
// with the total count for the same filters.
func (r *Repository) List(ctx context.Context, filters Filters, page, perPage int) ([]*Entry, int, error) {
	where := ""
	args := []any{}
	argPos := 1

	if filters.Action != "" {
		where += fmt.Sprintf(" AND action = $%d", argPos)
		args = append(args, filters.Action)
		argPos++
	}
	if filters.Resource != "" {
		where += fmt.Sprintf(" AND resource = $%d", argPos)
		args = append(args, filters.Resource)
		argPos++
	}

	var total int
	countQuery := "SELECT count(*) FROM audit_log WHERE true" + where
	if err := r.db.Pool().QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting audit entries: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, action, actor_id, resource, resource_id, payload, created_at
		FROM audit_log
		WHERE true%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, where, argPos, argPos+1)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Entry, error) {
		var e Entry
		var payload []byte
		if err := row.Scan(&e.ID, &e.Action, &e.ActorID, &e.Resource, &e.ResourceID, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("unmarshaling audit payload: %w", err)
			}
		}
		return &e, nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scanning audit entries: %w", err)
	}

	return entries, total, nil
}

// nullIfEmpty maps "" to SQL NULL so empty actor or resource fields do not
// store empty strings.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullableJSON marshals a payload map, mapping nil or empty maps to NULL.
func nullableJSON(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}
