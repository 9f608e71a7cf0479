package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultHistoryLimit is how many past documents the history table keeps.
const DefaultHistoryLimit = 50

// SQLiteRepository keeps the current document in a single-row table and
// appends every save to a bounded history table.
type SQLiteRepository struct {
	db           *sql.DB
	historyLimit int
	now          func() time.Time
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it.
func NewSQLiteRepository(dbPath string, historyLimit int) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Single writer; sqlite serialises anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &SQLiteRepository{db: db, historyLimit: historyLimit, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Store implements Store.
func (r *SQLiteRepository) Store(ctx context.Context, doc []byte) error {
	now := r.now().UnixMilli()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, document, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		string(doc), now); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshot_history (document, saved_at) VALUES (?, ?)`,
		string(doc), now); err != nil {
		return fmt.Errorf("append snapshot history: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snapshot_history WHERE id NOT IN (
			SELECT id FROM snapshot_history ORDER BY id DESC LIMIT ?)`,
		r.historyLimit); err != nil {
		return fmt.Errorf("prune snapshot history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}

	slog.DebugContext(ctx, "Snapshot saved to SQLite", "bytes", len(doc))
	return nil
}

// Load implements Store.
func (r *SQLiteRepository) Load(ctx context.Context) ([]byte, error) {
	var doc string
	err := r.db.QueryRowContext(ctx, `SELECT document FROM snapshots WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return []byte(doc), nil
}

// History lists saved documents newest first, without their bodies.
func (r *SQLiteRepository) History(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = r.historyLimit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, saved_at, length(CAST(document AS BLOB)) FROM snapshot_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshot history: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			s       Snapshot
			savedAt int64
		)
		if err := rows.Scan(&s.ID, &savedAt, &s.Size); err != nil {
			return nil, fmt.Errorf("scan snapshot history: %w", err)
		}
		s.SavedAt = time.UnixMilli(savedAt).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// LoadVersion returns the body of one history entry.
func (r *SQLiteRepository) LoadVersion(ctx context.Context, id int64) ([]byte, error) {
	var doc string
	err := r.db.QueryRowContext(ctx, `SELECT document FROM snapshot_history WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %d: %w", id, err)
	}
	return []byte(doc), nil
}
