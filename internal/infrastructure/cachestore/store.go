package cachestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// UnavailableError reports a storage failure. Callers must degrade to a live
// fetch rather than fail the request.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("cache unavailable during %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err is a cache storage failure.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// Config controls TTL defaults and the sweep budget.
type Config struct {
	Path          string
	DefaultTTL    time.Duration
	MaxEntries    int64 // 0 disables the count budget
	MaxBytes      int64 // 0 disables the size budget
	SweepInterval time.Duration
}

// Store is a persistent fingerprint-keyed cache with expiry. It is the only
// resource shared across concurrent requests; writes to the same fingerprint
// race to the same final value (last write wins).
type Store struct {
	db  *sql.DB
	cfg Config
}

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	fingerprint TEXT PRIMARY KEY,
	payload     BLOB NOT NULL,
	created_at  INTEGER NOT NULL,
	expires_at  INTEGER NOT NULL,
	size        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_expires ON cache_entries(expires_at);
`

// Open opens (creating if needed) the cache database at cfg.Path.
func Open(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}
	// modernc sqlite serializes writes internally; a single connection avoids
	// SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}

	return &Store{db: db, cfg: cfg}, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the payload for fingerprint, or ok=false on a miss. Entries past
// their expiry are invisible to readers even before the sweeper removes them.
func (s *Store) Get(ctx context.Context, fingerprint string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM cache_entries WHERE fingerprint = ? AND expires_at > ?`,
		fingerprint, time.Now().UnixMilli(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &UnavailableError{Op: "get", Err: err}
	}
	return payload, true, nil
}

// Put stores payload under fingerprint. A repeated put with the same
// fingerprint overwrites the payload and resets the TTL.
func (s *Store) Put(ctx context.Context, fingerprint string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (fingerprint, payload, created_at, expires_at, size)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET
			payload = excluded.payload,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at,
			size = excluded.size`,
		fingerprint, payload, now.UnixMilli(), now.Add(ttl).UnixMilli(), int64(len(payload)),
	)
	if err != nil {
		return &UnavailableError{Op: "put", Err: err}
	}
	return nil
}

// Invalidate removes a single entry.
func (s *Store) Invalidate(ctx context.Context, fingerprint string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE fingerprint = ?`, fingerprint); err != nil {
		return &UnavailableError{Op: "invalidate", Err: err}
	}
	return nil
}

// Sweep removes all expired entries and, if a budget is configured, evicts
// oldest-expiring entries first until the budget is satisfied. It is
// idempotent and safe to run concurrently with readers and writers.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	var removed int64

	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, time.Now().UnixMilli())
	if err != nil {
		return 0, &UnavailableError{Op: "sweep", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil {
		removed += n
	}

	if s.cfg.MaxEntries > 0 {
		n, err := s.evictOverCount(ctx)
		if err != nil {
			return removed, err
		}
		removed += n
	}
	if s.cfg.MaxBytes > 0 {
		n, err := s.evictOverSize(ctx)
		if err != nil {
			return removed, err
		}
		removed += n
	}

	return removed, nil
}

func (s *Store) evictOverCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&count); err != nil {
		return 0, &UnavailableError{Op: "sweep", Err: err}
	}
	excess := count - s.cfg.MaxEntries
	if excess <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE fingerprint IN (
			SELECT fingerprint FROM cache_entries ORDER BY expires_at ASC LIMIT ?
		)`, excess)
	if err != nil {
		return 0, &UnavailableError{Op: "sweep", Err: err}
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) evictOverSize(ctx context.Context) (int64, error) {
	var removed int64
	for {
		var total sql.NullInt64
		if err := s.db.QueryRowContext(ctx, `SELECT SUM(size) FROM cache_entries`).Scan(&total); err != nil {
			return removed, &UnavailableError{Op: "sweep", Err: err}
		}
		if !total.Valid || total.Int64 <= s.cfg.MaxBytes {
			return removed, nil
		}
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM cache_entries WHERE fingerprint IN (
				SELECT fingerprint FROM cache_entries ORDER BY expires_at ASC LIMIT 1
			)`)
		if err != nil {
			return removed, &UnavailableError{Op: "sweep", Err: err}
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return removed, nil
		}
		removed += n
	}
}

// StartSweeper runs Sweep on the configured interval until ctx is cancelled.
func (s *Store) StartSweeper(ctx context.Context) {
	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.Sweep(ctx)
				if err != nil {
					log.Warn().Err(err).Msg("cache sweep failed")
					continue
				}
				if removed > 0 {
					log.Debug().Int64("removed", removed).Msg("cache sweep completed")
				}
			}
		}
	}()
}

// Len returns the current number of live (unexpired) entries.
func (s *Store) Len(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cache_entries WHERE expires_at > ?`, time.Now().UnixMilli(),
	).Scan(&count)
	if err != nil {
		return 0, &UnavailableError{Op: "len", Err: err}
	}
	return count, nil
}
