/*
session.go - The operator session

PURPOSE:
  A Session owns everything an operator works on between loading tables
  and walking away: the loaded input tables, the current weight overrides,
  the most recent recompute result, and the history ledger.

CONCURRENCY:
  Operator actions are serialized with one mutex. The HTTP server may call
  in from many goroutines; the engine underneath is single-threaded.

LIFECYCLE:
  1. Load(): replace the input tables, seed the ledger from a history table
     if one is supplied, compute the initial result
  2. Recompute(): apply weight overrides and rerun the chain
  3. Snapshot(): append the current result to the ledger under a period

  Step 2 and step 3 may repeat in any order. Only step 3 has a side
  effect beyond the session's own fields.

SEE ALSO:
  - engine.go: The recompute paths
  - history.go: Snapshot rows
*/
package capacity

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/warp/capacity-engine/generic"
	"go.uber.org/zap"
)

// Tables is the typed content of one upload.
// Either Outputs or Baselines must be non-empty.
type Tables struct {
	Outputs     []UnitOutput         `json:"outputs,omitempty"`
	Baselines   []UnitBaseline       `json:"baselines,omitempty"`
	Arrivals    []ArrivalRecord      `json:"arrivals,omitempty"`
	History     []generic.Snapshot   `json:"history,omitempty"`
	Corrections []generic.Correction `json:"corrections,omitempty"`
}

// Session serializes operator actions over one set of inputs and one ledger.
type Session struct {
	mu       sync.Mutex
	engine   *Engine
	history  *HistoryLedger
	calendar *generic.PeriodCalendar
	logger   *zap.Logger

	tables    Tables
	overrides []WeightOverride
	current   Result
	loaded    bool
}

// NewSession creates a session over an engine, a history ledger and a period calendar.
func NewSession(engine *Engine, history *HistoryLedger, calendar *generic.PeriodCalendar, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		engine:   engine,
		history:  history,
		calendar: calendar,
		logger:   logger,
	}
}

// Engine returns the session's engine.
func (s *Session) Engine() *Engine {
	return s.engine
}

// =============================================================================
// LOADING AND RECOMPUTING
// =============================================================================

// Load replaces the session inputs and computes the initial result.
//
// Outputs tables are shown as uploaded until Recompute is called.
// Baseline tables are computed immediately. A history table seeds an empty
// ledger; once the ledger has rows it is skipped, the new inputs are still
// loaded and Result.HistoryIgnored is set.
func (s *Session) Load(ctx context.Context, t Tables) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(t.Outputs) == 0 && len(t.Baselines) == 0 {
		return Result{}, generic.ErrNoUnits
	}

	historyIgnored := false
	if len(t.History) > 0 {
		err := s.history.Seed(ctx, t.History)
		switch {
		case errors.Is(err, generic.ErrLedgerNotEmpty):
			historyIgnored = true
			s.logger.Info("ledger already has rows, history table not seeded",
				zap.Int("rows", len(t.History)))
		case err != nil:
			return Result{}, err
		default:
			s.logger.Info("history seeded", zap.Int("rows", len(t.History)))
		}
	} else {
		s.logger.Info("no history table supplied, ledger unchanged")
	}

	s.tables = t
	s.overrides = nil
	s.loaded = true

	if len(t.Baselines) > 0 {
		s.current = s.withTableCorrections(s.engine.ComputeBaselines(t.Baselines, t.Arrivals, nil))
	} else {
		s.current = s.withTableCorrections(s.engine.RecomputeOutputs(t.Outputs, nil, nil))
	}
	s.current.HistoryIgnored = historyIgnored

	s.logger.Info("session loaded",
		zap.Int("units", len(s.current.Units)),
		zap.Int("arrivals", len(t.Arrivals)),
		zap.Int("corrections", len(s.current.Corrections)))
	return s.current, nil
}

// Recompute applies the overrides to the loaded arrivals and reruns the
// chain for every unit. The overrides replace any previously set.
func (s *Session) Recompute(overrides []WeightOverride) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return Result{}, generic.ErrNoUnits
	}

	s.overrides = append([]WeightOverride(nil), overrides...)
	if len(s.tables.Baselines) > 0 {
		s.current = s.withTableCorrections(s.engine.ComputeBaselines(s.tables.Baselines, s.tables.Arrivals, s.overrides))
	} else {
		s.current = s.withTableCorrections(s.engine.RecomputeOutputs(s.tables.Outputs, s.tables.Arrivals, s.overrides))
	}
	return s.current, nil
}

func (s *Session) withTableCorrections(r Result) Result {
	if len(s.tables.Corrections) == 0 {
		return r
	}
	merged := make([]generic.Correction, 0, len(s.tables.Corrections)+len(r.Corrections))
	merged = append(merged, s.tables.Corrections...)
	r.Corrections = append(merged, r.Corrections...)
	return r
}

// ComputeUnit evaluates a single baseline without touching the session.
func (s *Session) ComputeUnit(b UnitBaseline) UnitMetrics {
	return s.engine.ComputeUnit(b)
}

// =============================================================================
// READS
// =============================================================================

// Result returns the current result.
func (s *Session) Result() (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return Result{}, generic.ErrNoUnits
	}
	return s.current, nil
}

// Units returns the distinct unit names, sorted.
func (s *Session) Units() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	var names []string
	for _, u := range s.current.Units {
		if u.Unit != "" && !seen[u.Unit] {
			seen[u.Unit] = true
			names = append(names, u.Unit)
		}
	}
	sort.Strings(names)
	return names
}

// Unit returns the first record for the named unit. The name is matched
// as given, then with any " County" suffix removed on both sides.
func (s *Session) Unit(name string) (UnitMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return UnitMetrics{}, generic.ErrNoUnits
	}
	name = strings.TrimSpace(name)
	if u, err := s.current.Unit(name); err == nil {
		return u, nil
	}
	want := NormalizeUnitName(name)
	for _, u := range s.current.Units {
		if NormalizeUnitName(u.Unit) == want {
			return u, nil
		}
	}
	return UnitMetrics{}, &generic.UnitNotFoundError{Unit: name}
}

// State returns the current statewide record.
func (s *Session) State() (StateMetrics, error) {
	r, err := s.Result()
	if err != nil {
		return StateMetrics{}, err
	}
	return r.State, nil
}

// Weights returns the weight editor listing and the active overrides.
func (s *Session) Weights() ([]CategoryWeight, []WeightOverride) {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog := NewWeightCatalog(s.tables.Arrivals)
	return catalog.Categories(), append([]WeightOverride(nil), s.overrides...)
}

// =============================================================================
// HISTORY
// =============================================================================

// Snapshot appends the current result to the ledger under period.
func (s *Session) Snapshot(ctx context.Context, period string) ([]generic.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return nil, generic.ErrNoUnits
	}
	stored, err := s.history.Append(ctx, period, s.current.Units, s.current.State)
	if err != nil {
		return nil, err
	}
	s.logger.Info("snapshot appended",
		zap.String("period", strings.TrimSpace(period)),
		zap.Int("rows", len(stored)))
	return stored, nil
}

// History returns every ledger row, or the rows of one period when period
// is not blank.
func (s *Session) History(ctx context.Context, period string) ([]generic.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(period) == "" {
		return s.history.Entries(ctx)
	}
	return s.history.EntriesForPeriod(ctx, period)
}

// Periods returns the distinct period labels in the ledger.
func (s *Session) Periods(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Periods(ctx)
}

// NextPeriod proposes a label for the next snapshot: the period after the
// last one in the ledger, or the period containing now if the ledger is empty.
func (s *Session) NextPeriod(ctx context.Context, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	periods, err := s.history.Periods(ctx)
	if err != nil {
		return "", err
	}
	if len(periods) == 0 {
		return s.calendar.Label(now), nil
	}
	return s.calendar.NextLabel(periods[len(periods)-1])
}

// PeriodLabel returns the label of the period containing t.
func (s *Session) PeriodLabel(t time.Time) string {
	return s.calendar.Label(t)
}

// Loaded reports whether tables have been loaded.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}
