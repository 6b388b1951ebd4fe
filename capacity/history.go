package capacity

import (
	"context"
	"strings"

	"github.com/warp/capacity-engine/generic"
)

// =============================================================================
// HISTORY LEDGER - Periodic snapshots of unit and state metrics
// =============================================================================

// HistoryLedger appends metric snapshots to a generic.Ledger.
//
// One snapshot request writes N unit rows followed by exactly one state
// row, all with the same period label, in a single atomic batch.
type HistoryLedger struct {
	ledger generic.Ledger
}

// NewHistoryLedger wraps a generic ledger.
func NewHistoryLedger(ledger generic.Ledger) *HistoryLedger {
	return &HistoryLedger{ledger: ledger}
}

// Append writes the snapshot rows for one period.
// The label is trimmed; a blank label is rejected with ErrEmptyPeriod.
func (h *HistoryLedger) Append(ctx context.Context, period string, units []UnitMetrics, state StateMetrics) ([]generic.Snapshot, error) {
	rows, err := SnapshotRows(period, units, state)
	if err != nil {
		return nil, err
	}

	stored, err := h.ledger.AppendBatch(ctx, rows)
	if err != nil {
		return nil, err
	}
	snapshotsRequested.Inc()
	return stored, nil
}

// SnapshotRows builds the rows of one snapshot: one per unit in order,
// then the state row. Ledger-assigned fields are left zero.
func SnapshotRows(period string, units []UnitMetrics, state StateMetrics) ([]generic.Snapshot, error) {
	period = strings.TrimSpace(period)
	if period == "" {
		return nil, generic.ErrEmptyPeriod
	}

	rows := make([]generic.Snapshot, 0, len(units)+1)
	for _, u := range units {
		rows = append(rows, generic.Snapshot{
			Period:  period,
			Level:   generic.LevelUnit,
			Name:    u.Unit,
			Metrics: u.MetricSet,
		})
	}
	rows = append(rows, generic.Snapshot{
		Period:  period,
		Level:   generic.LevelState,
		Name:    state.Name,
		Metrics: state.MetricSet,
	})
	return rows, nil
}

// Seed initializes an empty ledger from prior history.
func (h *HistoryLedger) Seed(ctx context.Context, snapshots []generic.Snapshot) error {
	return h.ledger.Seed(ctx, snapshots)
}

func (h *HistoryLedger) Entries(ctx context.Context) ([]generic.Snapshot, error) {
	return h.ledger.Entries(ctx)
}

func (h *HistoryLedger) EntriesForPeriod(ctx context.Context, period string) ([]generic.Snapshot, error) {
	return h.ledger.EntriesForPeriod(ctx, strings.TrimSpace(period))
}

func (h *HistoryLedger) Periods(ctx context.Context) ([]string, error) {
	return h.ledger.Periods(ctx)
}

func (h *HistoryLedger) Len(ctx context.Context) (int, error) {
	return h.ledger.Len(ctx)
}
