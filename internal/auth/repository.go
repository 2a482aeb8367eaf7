package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/monkeyscms/monkeys/internal/database"
)

// Admin is one row of the admins table.
type Admin struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Repository provides database access for admin accounts.
type Repository struct {
	db *database.DB
}

// NewRepository creates an auth Repository.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// GetAdminByEmail returns the admin with the given email, or an error
// wrapping pgx.ErrNoRows.
func (r *Repository) GetAdminByEmail(ctx context.Context, email string) (*Admin, error) {
	row := r.db.Pool().QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM admins WHERE email = $1`,
		email,
	)

	var a Admin
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("admin not found: %w", err)
		}
		return nil, fmt.Errorf("querying admin by email: %w", err)
	}
	return &a, nil
}

// CreateAdmin inserts a new admin. An existing admin with the same email is
// treated as success and returned, so boot-time EnsureAdmin has no
// check-then-create race.
func (r *Repository) CreateAdmin(ctx context.Context, email, passwordHash string) (*Admin, error) {
	row := r.db.Pool().QueryRow(ctx,
		`INSERT INTO admins (email, password_hash) VALUES ($1, $2)
		 ON CONFLICT (email) DO NOTHING
		 RETURNING id, email, password_hash, created_at`,
		email, passwordHash,
	)

	var a Admin
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// ON CONFLICT DO NOTHING returned no row: the admin already
			// exists, fetch it.
			return r.GetAdminByEmail(ctx, email)
		}
		return nil, fmt.Errorf("creating admin: %w", err)
	}
	return &a, nil
}
