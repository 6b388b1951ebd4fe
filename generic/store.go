/*
store.go - Persistence interface for history snapshots

PURPOSE:
  Defines the interface between the history ledger and whatever holds its
  rows. The default is the in-memory session store; SQLite and PostgreSQL
  stores exist for operators who want the history to outlive a session.

APPEND-ONLY CONTRACT:
  The Store interface enforces append-only semantics:
  - AppendBatch(): Atomic multi-row write
  - NO Update() or Delete() methods exist

ORDERING:
  Load() returns rows in append order (ascending Seq). A row's position
  never changes once written.

ATOMIC BATCHES:
  A snapshot request writes N unit rows plus one state row. Either all
  N+1 are written or none are.

IMPLEMENTATIONS:
  - generic/store/memory.go: In-memory (session scoped, default)
  - store/sqlite/sqlite.go: SQLite file
  - store/postgres/postgres.go: PostgreSQL

SEE ALSO:
  - ledger.go: Higher-level interface using Store
*/
package generic

import "context"

// =============================================================================
// STORE - Interface for snapshot persistence (append-only)
// =============================================================================

// Store handles persistence of history snapshots.
// IMPORTANT: Store is APPEND-ONLY. No Update, No Delete.
type Store interface {
	// AppendBatch persists snapshots atomically, in order.
	// Seq values are assigned by the ledger before the call.
	AppendBatch(ctx context.Context, snapshots []Snapshot) error

	// Load returns every snapshot ordered by Seq.
	Load(ctx context.Context) ([]Snapshot, error)

	// LoadPeriod returns the snapshots with the given period label, ordered by Seq.
	LoadPeriod(ctx context.Context, period string) ([]Snapshot, error)

	// Count returns the number of stored snapshots.
	Count(ctx context.Context) (int, error)
}
