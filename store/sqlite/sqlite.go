/*
Package sqlite provides a SQLite-backed implementation of generic.Store.

PURPOSE:
  Keeps the history ledger in a SQLite file so that snapshots survive the
  session that appended them. The in-memory store remains the default;
  this backend is selected with store.driver: sqlite.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on history_snapshots
  - No DELETE statements on history_snapshots
  - seq is the primary key, so a position can be written exactly once

KEY TABLES:
  history_snapshots: One row per unit or state snapshot, in ledger order

VALUE ENCODING:
  Every metric column is nullable TEXT holding the decimal string.
  NULL means undefined. TEXT keeps decimals exact; SQLite REAL would not.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

USAGE:
  store, err := sqlite.New("./data/history.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := generic.NewLedger(store)

SEE ALSO:
  - generic/store.go: Interface definition
  - generic/store/memory.go: In-memory implementation
  - store/postgres: PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/capacity-engine/generic"
)

// Store implements generic.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A second connection to ":memory:" would open a second, empty database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- History snapshots (append-only ledger)
	CREATE TABLE IF NOT EXISTS history_snapshots (
		seq INTEGER PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		period TEXT NOT NULL,
		level TEXT NOT NULL,
		name TEXT NOT NULL,
		recorded_at TEXT NOT NULL,
		ap TEXT,
		cpf TEXT,
		p_ref TEXT,
		p_eff TEXT,
		fte_on TEXT,
		capacity_eff TEXT,
		utilization TEXT,
		backlog_start TEXT,
		backlog_end TEXT,
		fte_required TEXT,
		gap TEXT,
		rag TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_snapshots_period
		ON history_snapshots(period);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// generic.Store implementation
// =============================================================================

const insertSnapshot = `
	INSERT INTO history_snapshots (
		seq, id, period, level, name, recorded_at,
		ap, cpf, p_ref, p_eff, fte_on, capacity_eff, utilization,
		backlog_start, backlog_end, fte_required, gap, rag
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectSnapshots = `
	SELECT seq, id, period, level, name, recorded_at,
	       ap, cpf, p_ref, p_eff, fte_on, capacity_eff, utilization,
	       backlog_start, backlog_end, fte_required, gap, rag
	FROM history_snapshots
`

// AppendBatch writes all snapshots in one SQL transaction.
func (s *Store) AppendBatch(ctx context.Context, snapshots []generic.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, snap := range snapshots {
		m := snap.Metrics
		_, err := sqlTx.ExecContext(ctx, insertSnapshot,
			snap.Seq, snap.ID, snap.Period, string(snap.Level), snap.Name,
			snap.RecordedAt.UTC().Format(time.RFC3339Nano),
			nullable(m.AP), nullable(m.CPF), nullable(m.PRef), nullable(m.PEff),
			nullable(m.FTEOn), nullable(m.CapacityEff), nullable(m.Utilization),
			nullable(m.BacklogStart), nullable(m.BacklogEnd), nullable(m.FTERequired),
			nullable(m.Gap), string(m.RAG),
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot seq %d: %w", snap.Seq, err)
		}
	}

	return sqlTx.Commit()
}

func (s *Store) Load(ctx context.Context) ([]generic.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.querySnapshots(ctx, selectSnapshots+` ORDER BY seq ASC`)
}

func (s *Store) LoadPeriod(ctx context.Context, period string) ([]generic.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.querySnapshots(ctx, selectSnapshots+` WHERE period = ? ORDER BY seq ASC`, period)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history_snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return n, nil
}

func (s *Store) querySnapshots(ctx context.Context, query string, args ...any) ([]generic.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var result []generic.Snapshot
	for rows.Next() {
		var (
			snap       generic.Snapshot
			level, rag string
			recordedAt string
			cols       [11]sql.NullString
		)
		err := rows.Scan(
			&snap.Seq, &snap.ID, &snap.Period, &level, &snap.Name, &recordedAt,
			&cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &cols[5],
			&cols[6], &cols[7], &cols[8], &cols[9], &cols[10], &rag,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}

		snap.Level = generic.Level(level)
		snap.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("snapshot seq %d: bad recorded_at: %w", snap.Seq, err)
		}

		var values [11]generic.Value
		for i, c := range cols {
			if values[i], err = fromNullable(c); err != nil {
				return nil, fmt.Errorf("snapshot seq %d: %w", snap.Seq, err)
			}
		}
		snap.Metrics = generic.MetricSet{
			AP: values[0], CPF: values[1], PRef: values[2], PEff: values[3],
			FTEOn: values[4], CapacityEff: values[5], Utilization: values[6],
			BacklogStart: values[7], BacklogEnd: values[8], FTERequired: values[9],
			Gap: values[10], RAG: generic.RAG(rag),
		}
		result = append(result, snap)
	}

	return result, rows.Err()
}

// =============================================================================
// VALUE ENCODING
// =============================================================================

func nullable(v generic.Value) sql.NullString {
	if !v.IsDefined() {
		return sql.NullString{}
	}
	return sql.NullString{String: v.String(), Valid: true}
}

func fromNullable(ns sql.NullString) (generic.Value, error) {
	if !ns.Valid {
		return generic.Undefined, nil
	}
	return generic.ParseValue(ns.String)
}
