package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 64
)

// Sentinel errors for authentication failures.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordTooShort   = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	ErrPasswordTooLong    = fmt.Errorf("password must be at most %d characters", maxPasswordLength)
)

// Service provides authentication logic: password hashing and verification
// plus access-token issuance.
type Service struct {
	repo      *Repository
	jwtSecret string
}

// NewService creates an auth Service with the given repository and JWT
// signing secret.
func NewService(repo *Repository, jwtSecret string) *Service {
	return &Service{repo: repo, jwtSecret: jwtSecret}
}

// EnsureAdmin creates the initial admin account if one with the given
// email does not yet exist.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	if err := validatePassword(password); err != nil {
		return fmt.Errorf("initial admin password: %w", err)
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing initial admin password: %w", err)
	}

	admin, err := s.repo.CreateAdmin(ctx, email, hash)
	if err != nil {
		return fmt.Errorf("creating initial admin: %w", err)
	}

	slog.Info("initial admin ensured", "email", admin.Email, "id", admin.ID)
	return nil
}

// HashPassword hashes a password with Argon2id defaults.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return hash, nil
}

// VerifyPassword checks a plain-text password against an Argon2id hash.
func (s *Service) VerifyPassword(hash, password string) (bool, error) {
	match, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return false, fmt.Errorf("verifying password: %w", err)
	}
	return match, nil
}

// Login validates credentials and returns the admin's ID and a signed
// access token.
func (s *Service) Login(ctx context.Context, email, password string) (adminID, accessToken string, err error) {
	admin, err := s.repo.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", ErrInvalidCredentials
		}
		return "", "", fmt.Errorf("looking up admin: %w", err)
	}

	match, err := s.VerifyPassword(admin.PasswordHash, password)
	if err != nil {
		return "", "", fmt.Errorf("verifying password: %w", err)
	}
	if !match {
		return "", "", ErrInvalidCredentials
	}

	accessToken, err = CreateAccessToken(admin.ID, admin.Email, s.jwtSecret)
	if err != nil {
		return "", "", err
	}
	return admin.ID, accessToken, nil
}

// validatePassword checks the length policy in runes, not bytes, so
// multi-byte characters count correctly.
func validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength {
		return ErrPasswordTooShort
	}
	if n > maxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}
