package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Gaius-Lex/CV-voting/internal/model"
)

const createSessionsTable = `
CREATE TABLE IF NOT EXISTS user_sessions (
	user_id          TEXT PRIMARY KEY,
	name             TEXT NOT NULL DEFAULT '',
	email            TEXT NOT NULL DEFAULT '',
	picture          TEXT,
	credentials_json TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	expires_at       TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS user_sessions_expires_at_idx ON user_sessions (expires_at);`

const createLeasesTable = `
CREATE TABLE IF NOT EXISTS session_leases (
	lease_name TEXT PRIMARY KEY,
	owner      TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);`

// PostgresRepository stores sessions in the user_sessions table.
type PostgresRepository struct {
	db *sql.DB
}

// OpenPostgres opens a connection pool, verifies it and creates the table.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := NewPostgresRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// NewPostgresRepository wraps an existing pool.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate creates the sessions and lease tables if they do not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createSessionsTable); err != nil {
		return fmt.Errorf("create user_sessions: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, createLeasesTable); err != nil {
		return fmt.Errorf("create session_leases: %w", err)
	}
	return nil
}

// Locker returns a lease manager backed by the same database.
func (r *PostgresRepository) Locker() *PostgresLocker {
	return &PostgresLocker{db: r.db, ttl: DefaultLeaseTTL}
}

// Close closes the database connection.
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Get retrieves a session by user id.
func (r *PostgresRepository) Get(ctx context.Context, userID string) (*model.Session, error) {
	query := `SELECT user_id, name, email, picture, credentials_json, created_at, updated_at, expires_at
	          FROM user_sessions WHERE user_id = $1`

	var (
		s         model.Session
		picture   sql.NullString
		expiresAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.UserID, &s.Name, &s.Email, &picture, &s.CredentialBlob,
		&s.CreatedAt, &s.UpdatedAt, &expiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	s.Picture = picture.String
	if expiresAt.Valid {
		s.ExpiresAt = expiresAt.Time
		s.ExpiresAtUnix = expiresAt.Time.Unix()
	}
	return &s, nil
}

// Put inserts or updates a session. created_at is only written on insert.
func (r *PostgresRepository) Put(ctx context.Context, s model.Session) error {
	query := `
		INSERT INTO user_sessions (user_id, name, email, picture, credentials_json, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			picture = EXCLUDED.picture,
			credentials_json = EXCLUDED.credentials_json,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at`

	var expiresAt sql.NullTime
	if !s.ExpiresAt.IsZero() {
		expiresAt = sql.NullTime{Time: s.ExpiresAt, Valid: true}
	}
	picture := sql.NullString{String: s.Picture, Valid: s.Picture != ""}

	_, err := r.db.ExecContext(ctx, query,
		s.UserID, s.Name, s.Email, picture, s.CredentialBlob,
		s.CreatedAt, s.UpdatedAt, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Delete removes a session if present.
func (r *PostgresRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes every session whose expiry is before now.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return int(n), nil
}

// PostgresLocker implements Locker on the session_leases table for
// deployments that keep sessions in PostgreSQL.
type PostgresLocker struct {
	db  *sql.DB
	ttl time.Duration
}

// Acquire upserts the lease; the update only applies when the current row
// has expired or already belongs to owner.
func (l *PostgresLocker) Acquire(ctx context.Context, name, owner string) error {
	now := time.Now().UTC()
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO session_leases (lease_name, owner, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (lease_name) DO UPDATE
		SET owner = EXCLUDED.owner, expires_at = EXCLUDED.expires_at
		WHERE session_leases.expires_at < $4 OR session_leases.owner = EXCLUDED.owner`,
		name, owner, now.Add(l.ttl), now)
	if err != nil {
		return fmt.Errorf("acquire lease %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("acquire lease %q: %w", name, err)
	}
	if n == 0 {
		return ErrLeaseHeld
	}
	return nil
}

// Release deletes the lease if owner still holds it.
func (l *PostgresLocker) Release(ctx context.Context, name, owner string) error {
	if _, err := l.db.ExecContext(ctx,
		`DELETE FROM session_leases WHERE lease_name = $1 AND owner = $2`, name, owner); err != nil {
		return fmt.Errorf("release lease %q: %w", name, err)
	}
	return nil
}
