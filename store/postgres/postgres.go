// Package postgres provides a PostgreSQL-backed implementation of generic.Store.
//
// Schema changes live in migrations/*.sql, embedded into the binary and
// applied in filename order by RunMigrations.
package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/warp/capacity-engine/generic"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store keeps the history ledger in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and applies pending migrations.
func New(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.RunMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// RunMigrations executes all pending SQL migration files in order.
// Applied files are tracked in schema_migrations.
func (s *Store) RunMigrations(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT filename FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	applied := make(map[string]bool)
	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration filename: %w", err)
		}
		applied[filename] = true
	}
	rows.Close()

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}
	sort.Strings(sqlFiles)

	for _, filename := range sqlFiles {
		if applied[filename] {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, "migrations/"+filename)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for %s: %w", filename, err)
		}

		if _, err := tx.Exec(ctx, string(content)); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}

		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, filename); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to record migration %s: %w", filename, err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", filename, err)
		}
	}

	return nil
}

// =============================================================================
// generic.Store implementation
// =============================================================================

const selectSnapshots = `
	SELECT seq, id::text, period, level, name, recorded_at,
	       ap, cpf, p_ref, p_eff, fte_on, capacity_eff, utilization,
	       backlog_start, backlog_end, fte_required, gap, rag
	FROM history_snapshots
`

// AppendBatch inserts the snapshots in one transaction using a pgx batch.
func (s *Store) AppendBatch(ctx context.Context, snapshots []generic.Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		m := snap.Metrics
		batch.Queue(`
			INSERT INTO history_snapshots (
				seq, id, period, level, name, recorded_at,
				ap, cpf, p_ref, p_eff, fte_on, capacity_eff, utilization,
				backlog_start, backlog_end, fte_required, gap, rag
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		`,
			snap.Seq, snap.ID, snap.Period, string(snap.Level), snap.Name, snap.RecordedAt.UTC(),
			nullable(m.AP), nullable(m.CPF), nullable(m.PRef), nullable(m.PEff),
			nullable(m.FTEOn), nullable(m.CapacityEff), nullable(m.Utilization),
			nullable(m.BacklogStart), nullable(m.BacklogEnd), nullable(m.FTERequired),
			nullable(m.Gap), string(m.RAG),
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert snapshots: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) Load(ctx context.Context) ([]generic.Snapshot, error) {
	return s.querySnapshots(ctx, selectSnapshots+` ORDER BY seq ASC`)
}

func (s *Store) LoadPeriod(ctx context.Context, period string) ([]generic.Snapshot, error) {
	return s.querySnapshots(ctx, selectSnapshots+` WHERE period = $1 ORDER BY seq ASC`, period)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM history_snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return n, nil
}

func (s *Store) querySnapshots(ctx context.Context, query string, args ...any) ([]generic.Snapshot, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var result []generic.Snapshot
	for rows.Next() {
		var (
			snap       generic.Snapshot
			level, rag string
			cols       [11]*string
		)
		err := rows.Scan(
			&snap.Seq, &snap.ID, &snap.Period, &level, &snap.Name, &snap.RecordedAt,
			&cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &cols[5],
			&cols[6], &cols[7], &cols[8], &cols[9], &cols[10], &rag,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snap.Level = generic.Level(level)
		snap.RecordedAt = snap.RecordedAt.UTC()

		var values [11]generic.Value
		for i, c := range cols {
			if c == nil {
				continue
			}
			if values[i], err = generic.ParseValue(*c); err != nil {
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

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return result, nil
}

func nullable(v generic.Value) *string {
	if !v.IsDefined() {
		return nil
	}
	s := v.String()
	return &s
}
