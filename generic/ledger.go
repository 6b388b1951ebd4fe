/*
ledger.go - Append-only history ledger

PURPOSE:
  The Ledger accumulates periodic metric snapshots. It is the only piece
  of mutable state in the engine. Metrics themselves are recomputed on
  demand and never stored anywhere else.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete.
  2. IMMUTABLE: Once written, a snapshot's content does not change.
  3. POSITION-STABLE: A snapshot's Seq and its place in Entries() never change.
  4. PERMISSIVE: The same period label may be appended any number of times.
     Each append adds rows; nothing is replaced or deduplicated.

SEEDING:
  A session may start from an exported history table. Seed() loads those
  rows into an empty ledger, keeping their order. Seeding a ledger that
  already has rows is a conflict, not a merge.

OWNERSHIP:
  A Ledger is created by whoever owns the session and passed to the
  components that read or append history. There is no package-level ledger.

SEE ALSO:
  - store.go: Low-level persistence interface
  - capacity/history.go: Builds the unit + state rows for one snapshot request
*/
package generic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// METRICS
// =============================================================================

var (
	ledgerEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "capacity_ledger_entries_appended_total",
		Help: "Total number of history snapshots appended, by level",
	}, []string{"level"})

	ledgerSeededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capacity_ledger_entries_seeded_total",
		Help: "Total number of history snapshots loaded from prior history",
	})

	ledgerSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "capacity_ledger_size",
		Help: "Number of snapshots in the most recently written ledger",
	})
)

// =============================================================================
// LEDGER - Append-only history
// =============================================================================

// Ledger is the session's history of snapshots.
//
// INVARIANTS:
//   - Append-only: No Update, No Delete.
//   - Immutable and position-stable once written.
type Ledger interface {
	// AppendBatch stamps and appends snapshots atomically at the end of the ledger.
	// Returns the snapshots as stored (ID, Seq and RecordedAt filled in).
	AppendBatch(ctx context.Context, snapshots []Snapshot) ([]Snapshot, error)

	// Seed loads prior history into an empty ledger.
	Seed(ctx context.Context, snapshots []Snapshot) error

	// Entries returns all snapshots in ledger order. Read-only.
	Entries(ctx context.Context) ([]Snapshot, error)

	// EntriesForPeriod returns the snapshots with the given label. Read-only.
	EntriesForPeriod(ctx context.Context, period string) ([]Snapshot, error)

	// Periods returns the distinct period labels in order of first appearance.
	Periods(ctx context.Context) ([]string, error)

	// Len returns the number of snapshots.
	Len(ctx context.Context) (int, error)
}

// =============================================================================
// DEFAULT LEDGER - Implementation using Store
// =============================================================================

type DefaultLedger struct {
	Store Store

	// Now and NewID are replaceable for deterministic tests.
	Now   func() time.Time
	NewID func() string
}

func NewLedger(store Store) *DefaultLedger {
	return &DefaultLedger{
		Store: store,
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: func() string { return uuid.New().String() },
	}
}

func (l *DefaultLedger) AppendBatch(ctx context.Context, snapshots []Snapshot) ([]Snapshot, error) {
	if len(snapshots) == 0 {
		return nil, nil
	}
	for _, s := range snapshots {
		if strings.TrimSpace(s.Period) == "" {
			return nil, ErrEmptyPeriod
		}
	}

	count, err := l.Store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: count: %v", ErrStoreFailed, err)
	}

	now := l.Now()
	stamped := make([]Snapshot, len(snapshots))
	for i, s := range snapshots {
		if s.ID == "" {
			s.ID = l.NewID()
		}
		if s.RecordedAt.IsZero() {
			s.RecordedAt = now
		}
		s.Seq = int64(count + i + 1)
		stamped[i] = s
	}

	if err := l.Store.AppendBatch(ctx, stamped); err != nil {
		return nil, fmt.Errorf("%w: append: %v", ErrStoreFailed, err)
	}

	for _, s := range stamped {
		ledgerEntriesTotal.WithLabelValues(string(s.Level)).Inc()
	}
	ledgerSize.Set(float64(count + len(stamped)))
	return stamped, nil
}

func (l *DefaultLedger) Seed(ctx context.Context, snapshots []Snapshot) error {
	count, err := l.Store.Count(ctx)
	if err != nil {
		return fmt.Errorf("%w: count: %v", ErrStoreFailed, err)
	}
	if count > 0 {
		return ErrLedgerNotEmpty
	}
	if len(snapshots) == 0 {
		return nil
	}

	now := l.Now()
	seeded := make([]Snapshot, len(snapshots))
	for i, s := range snapshots {
		if s.ID == "" {
			s.ID = l.NewID()
		}
		if s.RecordedAt.IsZero() {
			s.RecordedAt = now
		}
		s.Seq = int64(i + 1)
		seeded[i] = s
	}

	if err := l.Store.AppendBatch(ctx, seeded); err != nil {
		return fmt.Errorf("%w: seed: %v", ErrStoreFailed, err)
	}
	ledgerSeededTotal.Add(float64(len(seeded)))
	ledgerSize.Set(float64(len(seeded)))
	return nil
}

func (l *DefaultLedger) Entries(ctx context.Context) ([]Snapshot, error) {
	return l.Store.Load(ctx)
}

func (l *DefaultLedger) EntriesForPeriod(ctx context.Context, period string) ([]Snapshot, error) {
	return l.Store.LoadPeriod(ctx, period)
}

func (l *DefaultLedger) Periods(ctx context.Context) ([]string, error) {
	entries, err := l.Store.Load(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var periods []string
	for _, e := range entries {
		if !seen[e.Period] {
			seen[e.Period] = true
			periods = append(periods, e.Period)
		}
	}
	return periods, nil
}

func (l *DefaultLedger) Len(ctx context.Context) (int, error) {
	return l.Store.Count(ctx)
}
