// Package devicestate persists what a phone OS would remember for the app: the installation's
// device ID, the user's permission decisions and the notification channels that were created.
package devicestate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Capability is a permission-gated device feature.
type Capability string

const (
	Microphone    Capability = "microphone"
	Notifications Capability = "notifications"
)

// Permission is the user's decision for a capability.
type Permission string

const (
	Undetermined Permission = "undetermined"
	Granted      Permission = "granted"
	Denied       Permission = "denied"
)

// Channel is a notification delivery channel.
type Channel struct {
	ID         string
	Name       string
	Importance string
	CreatedAt  time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS permissions (
	capability TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS channels (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	importance TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

// Store is the SQLite-backed device state.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the database path inside stateDir.
func DefaultPath(stateDir string) string {
	return filepath.Join(stateDir, "device.sqlite")
}

// Open opens (creating if needed) the state database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DeviceID returns the installation's UUID, generating and persisting it on first use.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO kv (key, value) VALUES ('device_id', ?)`, uuid.NewString()); err != nil {
		return "", fmt.Errorf("insert device id: %w", err)
	}
	var id string
	if err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = 'device_id'`).Scan(&id); err != nil {
		return "", fmt.Errorf("read device id: %w", err)
	}
	return id, nil
}

// Permission returns the stored decision, Undetermined when none was recorded.
func (s *Store) Permission(ctx context.Context, c Capability) (Permission, error) {
	var p Permission
	err := s.db.QueryRowContext(ctx, `SELECT status FROM permissions WHERE capability = ?`, string(c)).Scan(&p)
	if errors.Is(err, sql.ErrNoRows) {
		return Undetermined, nil
	}
	if err != nil {
		return "", fmt.Errorf("read permission: %w", err)
	}
	return p, nil
}

// SetPermission records a decision.
func (s *Store) SetPermission(ctx context.Context, c Capability, p Permission) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO permissions (capability, status, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(capability) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at
	`, string(c), string(p), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("write permission: %w", err)
	}
	return nil
}

// ResetPermissions forgets every decision so the next use prompts again.
func (s *Store) ResetPermissions(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM permissions`); err != nil {
		return fmt.Errorf("reset permissions: %w", err)
	}
	return nil
}

// EnsureChannel creates the channel unless one with the same ID exists. It reports whether it created one.
func (s *Store) EnsureChannel(ctx context.Context, ch Channel) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO channels (id, name, importance, created_at) VALUES (?, ?, ?, ?)`,
		ch.ID, ch.Name, ch.Importance, time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("create channel: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Channel returns a channel by ID; ok is false when it does not exist.
func (s *Store) Channel(ctx context.Context, id string) (ch Channel, ok bool, err error) {
	var created int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, importance, created_at FROM channels WHERE id = ?`, id).
		Scan(&ch.ID, &ch.Name, &ch.Importance, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Channel{}, false, nil
	}
	if err != nil {
		return Channel{}, false, fmt.Errorf("read channel: %w", err)
	}
	ch.CreatedAt = time.Unix(created, 0)
	return ch, true, nil
}
