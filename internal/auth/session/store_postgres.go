package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on ripple.sessions and
// ripple.used_refresh_tokens.
//
// The sessions table is keyed by (user_id, device_id), so the table itself is
// the device index: a device id appears iff a session record exists for the
// pair. Expiry is judged lazily with expires_at predicates; the app janitor
// deletes stale rows.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("session: nil db pool")
	}
	return &PostgresStore{pool: pool}, nil
}

// Store upserts the session record for (userID, deviceID). The upsert makes
// rotation's overwrite atomic at the store.
func (s *PostgresStore) Store(ctx context.Context, userID int64, deviceID string, sess Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ripple.sessions (user_id, device_id, token_id, token_hash, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, device_id) DO UPDATE SET
			token_id = EXCLUDED.token_id,
			token_hash = EXCLUDED.token_hash,
			expires_at = EXCLUDED.expires_at
	`, userID, deviceID, sess.TokenID, sess.TokenHash, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("session: store: %w", err)
	}
	return nil
}

// Get returns the live session for (userID, deviceID).
func (s *PostgresStore) Get(ctx context.Context, now time.Time, userID int64, deviceID string) (Session, error) {
	var sess Session
	err := s.pool.QueryRow(ctx, `
		SELECT token_id, token_hash, expires_at
		FROM ripple.sessions
		WHERE user_id = $1 AND device_id = $2 AND expires_at > $3
	`, userID, deviceID, now).Scan(&sess.TokenID, &sess.TokenHash, &sess.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("session: get: %w", err)
	}
	return sess, nil
}

// Delete removes the session for (userID, deviceID). Idempotent.
func (s *PostgresStore) Delete(ctx context.Context, userID int64, deviceID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM ripple.sessions
		WHERE user_id = $1 AND device_id = $2
	`, userID, deviceID)
	if err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

// DeleteAll removes every session for the user in one statement.
func (s *PostgresStore) DeleteAll(ctx context.Context, userID int64) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM ripple.sessions
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("session: delete all: %w", err)
	}
	return nil
}

// Devices lists device ids with a live session for the user.
func (s *PostgresStore) Devices(ctx context.Context, now time.Time, userID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT device_id
		FROM ripple.sessions
		WHERE user_id = $1 AND expires_at > $2
		ORDER BY device_id
	`, userID, now)
	if err != nil {
		return nil, fmt.Errorf("session: devices: %w", err)
	}
	defer rows.Close()

	var devices []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("session: devices scan: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session: devices rows: %w", err)
	}
	return devices, nil
}

// MarkUsed inserts tokenID into the replay ledger. ON CONFLICT DO NOTHING
// plus the affected-row count gives the insert-if-absent semantics the
// rotation path uses as its compare-and-swap.
func (s *PostgresStore) MarkUsed(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO ripple.used_refresh_tokens (token_id, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token_id) DO NOTHING
	`, tokenID, expiresAt)
	if err != nil {
		return false, fmt.Errorf("session: mark used: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// IsUsed reports whether tokenID has a live replay-ledger entry.
func (s *PostgresStore) IsUsed(ctx context.Context, now time.Time, tokenID string) (bool, error) {
	var used bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM ripple.used_refresh_tokens
			WHERE token_id = $1 AND expires_at > $2
		)
	`, tokenID, now).Scan(&used)
	if err != nil {
		return false, fmt.Errorf("session: is used: %w", err)
	}
	return used, nil
}

// PurgeExpired deletes expired session rows and ledger entries.
func (s *PostgresStore) PurgeExpired(ctx context.Context, now time.Time) error {
	if _, err := s.pool.Exec(ctx, `
		DELETE FROM ripple.sessions WHERE expires_at <= $1
	`, now); err != nil {
		return fmt.Errorf("session: purge sessions: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `
		DELETE FROM ripple.used_refresh_tokens WHERE expires_at <= $1
	`, now); err != nil {
		return fmt.Errorf("session: purge ledger: %w", err)
	}
	return nil
}
