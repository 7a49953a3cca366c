package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"pricemirror/internal/loader"
)

// Compile-time interface check.
var _ RunRecorder = (*RunStore)(nil)

// RunStore records load runs in a SQLite database.
type RunStore struct {
	db  *sql.DB
	mu  sync.Mutex
	log *slog.Logger
}

// NewRunStore opens (or creates) a SQLite database at dbPath and creates the
// run tables.
func NewRunStore(dbPath string) (*RunStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &RunStore{db: db, log: slog.Default().With("store", "runs")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	s.log.Debug("run store opened", "path", dbPath)
	return s, nil
}

func (s *RunStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at  INTEGER NOT NULL,
			elapsed_ms  INTEGER NOT NULL,
			shards      INTEGER NOT NULL,
			processed   INTEGER NOT NULL,
			resolved    INTEGER NOT NULL,
			unresolved  INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_symbols (
			run_id      INTEGER NOT NULL REFERENCES runs(id),
			symbol      TEXT NOT NULL,
			status      TEXT NOT NULL,
			provenance  TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, symbol)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_symbols_symbol ON run_symbols(symbol)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 40)], err)
		}
	}
	return nil
}

// RecordRun inserts the run summary and one row per symbol outcome in a
// single transaction.
func (s *RunStore) RecordRun(ctx context.Context, started time.Time, res loader.Result) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	r, err := tx.ExecContext(ctx, `INSERT INTO runs
		(started_at, elapsed_ms, shards, processed, resolved, unresolved)
		VALUES (?,?,?,?,?,?)`,
		started.Unix(), res.Elapsed.Milliseconds(), res.Shards, res.Processed,
		len(res.Resolved), len(res.Unresolved),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := r.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_symbols
		(run_id, symbol, status, provenance) VALUES (?,?,?,?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()
	for _, o := range res.Outcomes {
		if _, err := stmt.ExecContext(ctx, id, o.Symbol.String(), string(o.Status), string(o.Provenance)); err != nil {
			return 0, fmt.Errorf("insert outcome %s: %w", o.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// UnresolvedStreak returns how many consecutive most recent runs left symbol
// unresolved.
func (s *RunStore) UnresolvedStreak(ctx context.Context, symbol string) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status FROM run_symbols
		WHERE symbol = ? ORDER BY run_id DESC`, symbol)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	streak := 0
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return 0, err
		}
		if status != string(loader.StatusUnresolved) {
			break
		}
		streak++
	}
	return streak, rows.Err()
}

// Close closes the underlying database connection.
func (s *RunStore) Close() error {
	return s.db.Close()
}
