/*
engine.go - The two recompute paths

PURPOSE:
  Wires the aggregator, productivity model, calculator and rollup into
  complete recomputations. There are two entry points because there are
  two kinds of input:

  TABLE PATH (RecomputeOutputs):
    Input is a unit outputs table (P_eff, FTE_on, Backlog_Start already
    computed upstream) plus an arrivals table. AP is re-aggregated from
    arrivals and the dependent chain is recomputed for every unit. The
    unit's own buffer is not in the outputs table, so the fallback buffer
    (Settings.FallbackBufferFTE) is used and marked BufferFallback.
    Without arrivals the outputs pass through untouched.

  BASELINE PATH (ComputeBaselines):
    Input is one UnitBaseline per unit plus optional arrivals. The whole
    chain runs from the baseline, with the unit's configured buffer
    (BufferConfigured). A unit without arrivals uses its manual AP.

  The two paths therefore disagree on fte_required and gap by
  (buffer_fte − fallback) for the same unit. That difference is kept
  visible through UnitMetrics.BufferSource rather than hidden.

PURITY:
  Both paths are pure: same inputs, same Result, byte for byte.

SEE ALSO:
  - unit.go: The per-unit chain
  - rollup.go: State aggregation
  - session.go: Holds the inputs these paths read
*/
package capacity

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/warp/capacity-engine/generic"
	"go.uber.org/zap"
)

// UnitOutput is one row of a unit outputs table.
// RAG may be empty, in which case it is derived from Utilization.
type UnitOutput struct {
	Unit string `json:"unit"`
	generic.MetricSet
}

// Engine runs recomputations with fixed settings.
type Engine struct {
	settings   Settings
	calculator Calculator
	logger     *zap.Logger
}

// NewEngine validates the settings and returns an engine.
func NewEngine(settings Settings, logger *zap.Logger) (*Engine, error) {
	if err := settings.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if !settings.FallbackBufferFTE.IsDefined() {
		settings.FallbackBufferFTE = DefaultFallbackBufferFTE
	}
	if strings.TrimSpace(settings.StateName) == "" {
		settings.StateName = DefaultStateName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		settings:   settings,
		calculator: NewCalculator(settings.Thresholds),
		logger:     logger,
	}, nil
}

// Settings returns the engine's effective settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

// =============================================================================
// TABLE PATH
// =============================================================================

// RecomputeOutputs re-aggregates AP from arrivals (with overrides) and
// recomputes every unit's chain using the fallback buffer.
func (e *Engine) RecomputeOutputs(outputs []UnitOutput, arrivals []ArrivalRecord, overrides []WeightOverride) Result {
	timer := prometheus.NewTimer(recomputeDuration.WithLabelValues("table"))
	defer timer.ObserveDuration()

	if len(arrivals) == 0 {
		e.logger.Info("no arrivals loaded, passing unit outputs through")
		return e.result(e.passThrough(outputs), nil, nil)
	}

	catalog := NewWeightCatalog(arrivals).WithOverrides(overrides)
	points := AggregateArrivals(arrivals, catalog)
	e.report(points.Corrections, catalog.Unmatched())

	units := make([]UnitMetrics, 0, len(outputs))
	for _, row := range outputs {
		unit := strings.TrimSpace(row.Unit)
		ap := row.AP
		if v, ok := points.Get(unit); ok {
			ap = v
		}
		units = append(units, e.calculator.Compute(ChainInput{
			Unit:         unit,
			AP:           ap,
			FTEOn:        row.FTEOn,
			BacklogStart: row.BacklogStart,
			BufferFTE:    e.settings.FallbackBufferFTE,
			BufferSource: BufferFallback,
			Productivity: Productivity{PRef: row.PRef, CPF: row.CPF, PEff: row.PEff},
		}))
	}

	return e.result(units, points.Corrections, catalog.Unmatched())
}

// passThrough turns outputs rows into records without recomputing them.
// Only the fields the table does not carry are filled in: capacity_eff
// and, when the row had none, the RAG tier.
func (e *Engine) passThrough(outputs []UnitOutput) []UnitMetrics {
	units := make([]UnitMetrics, 0, len(outputs))
	for _, row := range outputs {
		m := row.MetricSet
		if !m.CapacityEff.IsDefined() {
			m.CapacityEff = m.FTEOn.Mul(m.PEff)
		}
		if m.RAG == "" {
			m.RAG = e.settings.Thresholds.Classify(m.Utilization)
		}
		units = append(units, UnitMetrics{
			Unit:         strings.TrimSpace(row.Unit),
			MetricSet:    m,
			BufferFTE:    generic.Undefined,
			BufferSource: BufferImported,
		})
	}
	return units
}

// =============================================================================
// BASELINE PATH
// =============================================================================

// ComputeBaselines runs the full chain for every baseline.
func (e *Engine) ComputeBaselines(baselines []UnitBaseline, arrivals []ArrivalRecord, overrides []WeightOverride) Result {
	timer := prometheus.NewTimer(recomputeDuration.WithLabelValues("baseline"))
	defer timer.ObserveDuration()

	var points ArrivalPoints
	var unmatched []string
	if len(arrivals) > 0 {
		catalog := NewWeightCatalog(arrivals).WithOverrides(overrides)
		points = AggregateArrivals(arrivals, catalog)
		unmatched = catalog.Unmatched()
		e.report(points.Corrections, unmatched)
	} else {
		e.logger.Info("no arrivals loaded, using manual AP")
	}

	units := make([]UnitMetrics, 0, len(baselines))
	for _, b := range baselines {
		b.Unit = strings.TrimSpace(b.Unit)
		ap := b.AP
		if v, ok := points.Get(b.Unit); ok {
			ap = v
		}
		units = append(units, e.calculator.ComputeBaseline(b, ap))
	}

	return e.result(units, points.Corrections, unmatched)
}

// ComputeUnit is the single-unit manual mode: the baseline's own AP,
// configured buffer, no arrivals.
func (e *Engine) ComputeUnit(b UnitBaseline) UnitMetrics {
	b.Unit = strings.TrimSpace(b.Unit)
	return e.calculator.ComputeBaseline(b, b.AP)
}

// Rollup aggregates units with the engine's thresholds and state name.
func (e *Engine) Rollup(units []UnitMetrics) StateMetrics {
	return Rollup(e.settings.StateName, units, e.settings.Thresholds)
}

// =============================================================================
// HELPERS
// =============================================================================

func (e *Engine) result(units []UnitMetrics, corrections []generic.Correction, unmatched []string) Result {
	state := e.Rollup(units)
	recordRAG(units, state)
	return Result{
		Units:       units,
		State:       state,
		Corrections: corrections,
		Unmatched:   unmatched,
	}
}

func (e *Engine) report(corrections []generic.Correction, unmatched []string) {
	if len(corrections) > 0 {
		e.logger.Warn("non-numeric arrival cells counted as zero",
			zap.Int("corrections", len(corrections)))
	}
	for _, name := range unmatched {
		e.logger.Debug("weight override matches no arrivals", zap.String("category", name))
	}
}
