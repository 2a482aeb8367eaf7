package types

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/monkeyscms/monkeys/internal/database"
	"github.com/monkeyscms/monkeys/internal/field"
)

// typeColumns is the registry row column list, in Record order.
const typeColumns = `id, name, label, label_plural, description, icon, system,
	weight, has_title, has_slug, publishable, revisionable, translatable,
	has_author, has_taxonomy, settings, created_at, updated_at`

// fieldColumns is the field row column list, in field.Record order.
const fieldColumns = `id, type_id, label, identifier, field_type, description,
	widget, required, multiple, cardinality, default_value, settings,
	validation, weight, searchable, translatable, created_at, updated_at`

// Repository persists type and field registry rows for one Kind. The two
// families use identical schemas under different table names, so the same
// code serves both.
type Repository struct {
	db   *database.DB
	kind Kind
}

// NewRepository creates a Repository bound to the given kind's tables.
func NewRepository(db *database.DB, kind Kind) *Repository {
	return &Repository{db: db, kind: kind}
}

// ListTypes returns every registry row, ordered by weight then name.
func (r *Repository) ListTypes(ctx context.Context) ([]Record, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s ORDER BY weight, name`, typeColumns, r.kind.MetaTable)
	rows, err := r.db.Pool().Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("listing %s types: %w", r.kind.Name, err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		rec, err := scanType(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s type: %w", r.kind.Name, err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// InsertType persists a new registry row and returns it with the assigned
// ID and timestamps.
func (r *Repository) InsertType(ctx context.Context, rec Record) (Record, error) {
	sql := fmt.Sprintf(`
		INSERT INTO %s (name, label, label_plural, description, icon, system,
			weight, has_title, has_slug, publishable, revisionable,
			translatable, has_author, has_taxonomy, settings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING %s`, r.kind.MetaTable, typeColumns)

	row := r.db.Pool().QueryRow(ctx, sql,
		rec.Name, rec.Label, rec.LabelPlural, rec.Description, rec.Icon,
		rec.System, rec.Weight, rec.HasTitle, rec.HasSlug, rec.Publishable,
		rec.Revisionable, rec.Translatable, rec.HasAuthor, rec.HasTaxonomy,
		rec.SettingsJSON)

	out, err := scanType(row)
	if err != nil {
		return Record{}, fmt.Errorf("inserting %s type %q: %w", r.kind.Name, rec.Name, err)
	}
	return out, nil
}

// UpdateType rewrites a registry row's mutable columns and bumps
// updated_at. The name column is immutable once created.
func (r *Repository) UpdateType(ctx context.Context, rec Record) (Record, error) {
	sql := fmt.Sprintf(`
		UPDATE %s SET label = $1, label_plural = $2, description = $3,
			icon = $4, weight = $5, settings = $6, updated_at = now()
		WHERE id = $7
		RETURNING %s`, r.kind.MetaTable, typeColumns)

	row := r.db.Pool().QueryRow(ctx, sql,
		rec.Label, rec.LabelPlural, rec.Description, rec.Icon, rec.Weight,
		rec.SettingsJSON, rec.ID)

	out, err := scanType(row)
	if err != nil {
		return Record{}, fmt.Errorf("updating %s type %q: %w", r.kind.Name, rec.Name, err)
	}
	return out, nil
}

// DeleteType removes a registry row. Field rows cascade via FK.
func (r *Repository) DeleteType(ctx context.Context, id int64) error {
	sql := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.kind.MetaTable)
	if _, err := r.db.Pool().Exec(ctx, sql, id); err != nil {
		return fmt.Errorf("deleting %s type %d: %w", r.kind.Name, id, err)
	}
	return nil
}

// ListFields returns all field rows for the kind, ordered by weight then
// identifier, keyed by owning type ID.
func (r *Repository) ListFields(ctx context.Context) (map[int64][]field.Record, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s ORDER BY weight, identifier`, fieldColumns, r.kind.FieldTable)
	rows, err := r.db.Pool().Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("listing %s fields: %w", r.kind.Name, err)
	}
	defer rows.Close()

	byType := make(map[int64][]field.Record)
	for rows.Next() {
		rec, err := scanField(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s field: %w", r.kind.Name, err)
		}
		byType[rec.TypeID] = append(byType[rec.TypeID], rec)
	}
	return byType, rows.Err()
}

// InsertField persists a field row and returns it with the assigned ID
// and timestamps.
func (r *Repository) InsertField(ctx context.Context, rec field.Record) (field.Record, error) {
	sql := fmt.Sprintf(`
		INSERT INTO %s (type_id, label, identifier, field_type, description,
			widget, required, multiple, cardinality, default_value, settings,
			validation, weight, searchable, translatable)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING %s`, r.kind.FieldTable, fieldColumns)

	row := r.db.Pool().QueryRow(ctx, sql,
		rec.TypeID, rec.Label, rec.Identifier, rec.FieldType, rec.Description,
		rec.Widget, rec.Required, rec.Multiple, rec.Cardinality,
		rec.DefaultJSON, rec.SettingsJSON, rec.RulesJSON, rec.Weight,
		rec.Searchable, rec.Translatable)

	out, err := scanField(row)
	if err != nil {
		return field.Record{}, fmt.Errorf("inserting %s field %q: %w", r.kind.Name, rec.Identifier, err)
	}
	return out, nil
}

// DeleteField removes one field row from a type.
func (r *Repository) DeleteField(ctx context.Context, typeID int64, identifier string) error {
	sql := fmt.Sprintf(`DELETE FROM %s WHERE type_id = $1 AND identifier = $2`, r.kind.FieldTable)
	if _, err := r.db.Pool().Exec(ctx, sql, typeID, identifier); err != nil {
		return fmt.Errorf("deleting %s field %q: %w", r.kind.Name, identifier, err)
	}
	return nil
}

func scanType(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.Name, &rec.Label, &rec.LabelPlural,
		&rec.Description, &rec.Icon, &rec.System, &rec.Weight, &rec.HasTitle,
		&rec.HasSlug, &rec.Publishable, &rec.Revisionable, &rec.Translatable,
		&rec.HasAuthor, &rec.HasTaxonomy, &rec.SettingsJSON, &rec.CreatedAt,
		&rec.UpdatedAt)
	return rec, err
}

func scanField(row pgx.Row) (field.Record, error) {
	var rec field.Record
	err := row.Scan(&rec.ID, &rec.TypeID, &rec.Label, &rec.Identifier,
		&rec.FieldType, &rec.Description, &rec.Widget, &rec.Required,
		&rec.Multiple, &rec.Cardinality, &rec.DefaultJSON, &rec.SettingsJSON,
		&rec.RulesJSON, &rec.Weight, &rec.Searchable, &rec.Translatable,
		&rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}
