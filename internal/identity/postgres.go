package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectory implements Directory on top of the ripple.users table.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectory creates a Postgres-backed user directory.
func NewPostgresDirectory(pool *pgxpool.Pool) (*PostgresDirectory, error) {
	if pool == nil {
		return nil, errors.New("identity: nil db pool")
	}
	return &PostgresDirectory{pool: pool}, nil
}

// ResolveByIdentifier looks a user up by username or email (case-insensitive).
func (d *PostgresDirectory) ResolveByIdentifier(ctx context.Context, identifier string) (UserAuth, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))

	var ua UserAuth
	err := d.pool.QueryRow(ctx, `
		SELECT id, username, email, status, token_version, password_hash
		FROM ripple.users
		WHERE lower(username) = $1 OR lower(email) = $1
	`, identifier).Scan(
		&ua.ID,
		&ua.Username,
		&ua.Email,
		&ua.Status,
		&ua.TokenVersion,
		&ua.PasswordHash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserAuth{}, ErrNotFound
	}
	if err != nil {
		return UserAuth{}, fmt.Errorf("identity: resolve by identifier: %w", err)
	}
	return ua, nil
}

// GetByID loads the current identity snapshot for a user id.
func (d *PostgresDirectory) GetByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := d.pool.QueryRow(ctx, `
		SELECT id, username, email, status, token_version
		FROM ripple.users
		WHERE id = $1
	`, id).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.Status,
		&u.TokenVersion,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("identity: get by id: %w", err)
	}
	return u, nil
}

// BumpTokenVersion increments the user's token version and returns the new
// value. The single-row UPDATE makes the increment atomic at the store.
func (d *PostgresDirectory) BumpTokenVersion(ctx context.Context, id int64) (int64, error) {
	var version int64
	err := d.pool.QueryRow(ctx, `
		UPDATE ripple.users
		SET token_version = token_version + 1
		WHERE id = $1
		RETURNING token_version
	`, id).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("identity: bump token version: %w", err)
	}
	return version, nil
}
