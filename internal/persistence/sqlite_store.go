package persistence

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tubenotes/tubenotes/internal/transcript"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore is the transcript cache. Fetched transcripts are expensive
// to re-acquire (retries, proxy egress), so successful retrievals are kept
// for a TTL and served from here first.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
}

func NewSQLiteStore(path string, ttl time.Duration) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, ttl: ttl}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	// Bootstrap schema_migrations table so we can track applied versions.
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

// Get returns the cached transcript for a video, or (nil, nil) when the
// cache has no fresh entry. Expired rows count as a miss; the sweep
// removes them later.
func (s *SQLiteStore) Get(ctx context.Context, videoID string) (*transcript.Record, error) {
	var rec transcript.Record
	err := s.db.QueryRowContext(
		ctx,
		`SELECT video_id, language, source, text, fetched_at FROM transcripts WHERE video_id = ?`,
		videoID,
	).Scan(&rec.VideoID, &rec.Language, &rec.Source, &rec.Text, &rec.FetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query transcript %q: %w", videoID, err)
	}

	if s.ttl > 0 && time.Since(rec.FetchedAt) > s.ttl {
		return nil, nil
	}
	return &rec, nil
}

// Put stores or refreshes a fetched transcript.
func (s *SQLiteStore) Put(ctx context.Context, rec transcript.Record) error {
	if strings.TrimSpace(rec.VideoID) == "" {
		return fmt.Errorf("video id is required")
	}
	if rec.FetchedAt.IsZero() {
		rec.FetchedAt = time.Now()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO transcripts (video_id, language, source, text, fetched_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(video_id) DO UPDATE SET
			language=excluded.language,
			source=excluded.source,
			text=excluded.text,
			fetched_at=excluded.fetched_at`,
		rec.VideoID,
		rec.Language,
		rec.Source,
		rec.Text,
		rec.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("store transcript %q: %w", rec.VideoID, err)
	}
	return nil
}

// PurgeExpired deletes rows older than the TTL and reports how many went.
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM transcripts WHERE fetched_at < ?`,
		time.Now().Add(-s.ttl),
	)
	if err != nil {
		return 0, fmt.Errorf("purge transcripts: %w", err)
	}
	return res.RowsAffected()
}
