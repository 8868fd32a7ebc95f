package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/KosherKev/centralized-webhook-dispatcher/subscriber"
)

/* Store persists subscriber registrations in a local SQLite file. It is the
 * zero-infrastructure alternative to the Redis store for single-node
 * deployments.
 */
type Store struct {
	db *sql.DB
}

const schema = `CREATE TABLE IF NOT EXISTS subscribers (
  id           TEXT PRIMARY KEY,
  name         TEXT NOT NULL,
  base_url     TEXT NOT NULL,
  webhook_path TEXT NOT NULL,
  verify_path  TEXT NOT NULL,
  enabled      INTEGER NOT NULL DEFAULT 1,
  timeout_ms   INTEGER NOT NULL DEFAULT 0,
  created_at   TEXT NOT NULL
);`

// NewStore opens (and creates if needed) the SQLite database at path and
// ensures the subscribers table exists.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	bctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(bctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy_timeout: %w", err)
	}
	if _, err := db.ExecContext(bctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrapping sqlite: %w", err)
	}

	return &Store{db: db}, nil
}

// Save upserts a subscriber. Registration order is carried by created_at,
// which an upsert never rewrites.
func (s *Store) Save(ctx context.Context, sub subscriber.Subscriber) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO subscribers(id, name, base_url, webhook_path, verify_path, enabled, timeout_ms, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  name = excluded.name,
  base_url = excluded.base_url,
  webhook_path = excluded.webhook_path,
  verify_path = excluded.verify_path,
  enabled = excluded.enabled,
  timeout_ms = excluded.timeout_ms;
`, sub.ID, sub.Name, sub.BaseURL, sub.WebhookPath, sub.VerifyPath, boolToInt(sub.Enabled), sub.Timeout.Milliseconds(), now)
	if err != nil {
		return fmt.Errorf("saving subscriber: %w", err)
	}
	return nil
}

// List returns all persisted subscribers in registration order. The rowid
// carries that order; an upsert keeps the original row so re-saving never
// moves a subscriber.
func (s *Store) List(ctx context.Context) ([]subscriber.Subscriber, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, base_url, webhook_path, verify_path, enabled, timeout_ms
FROM subscribers
ORDER BY rowid;
`)
	if err != nil {
		return nil, fmt.Errorf("listing subscribers: %w", err)
	}
	defer rows.Close()

	var subs []subscriber.Subscriber
	for rows.Next() {
		var sub subscriber.Subscriber
		var enabled int
		var timeoutMS int64
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.BaseURL, &sub.WebhookPath, &sub.VerifyPath, &enabled, &timeoutMS); err != nil {
			return nil, fmt.Errorf("scanning subscriber: %w", err)
		}
		sub.Enabled = enabled != 0
		sub.Timeout = time.Duration(timeoutMS) * time.Millisecond
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subscribers: %w", err)
	}
	return subs, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
