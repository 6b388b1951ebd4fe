/*
Package capacity implements the workforce capacity and backlog engine.

PURPOSE:
  Turns arrival counts, category weights, baseline productivity and
  complexity ratios into per-unit staffing metrics, rolls those up into a
  statewide record, and appends both to the history ledger on request.

PIPELINE:
  ArrivalRecords + WeightCatalog -> Aggregator      -> AP per unit
  UnitBaseline                   -> Productivity    -> P_ref, CPF, P_eff
  AP + Productivity              -> Calculator      -> UnitMetrics (+ Classifier)
  []UnitMetrics                  -> Rollup          -> StateMetrics
  period + Unit/State metrics    -> HistoryLedger   -> N+1 snapshots

PURITY:
  Everything except HistoryLedger and Session is a pure function of its
  arguments. Recomputing with the same inputs gives the same records.

SEE ALSO:
  - generic/value.go: Defined/undefined arithmetic
  - engine.go: The two recompute paths
  - session.go: The operator session that owns inputs and the ledger
*/
package capacity

import (
	"github.com/warp/capacity-engine/generic"
)

// DefaultFallbackBufferFTE is the buffer used on the table recompute path,
// where the unit's configured buffer is not available.
var DefaultFallbackBufferFTE = generic.MustValue("0.30")

// DefaultStateName labels the statewide rollup.
const DefaultStateName = "Minnesota (Statewide)"

// =============================================================================
// INPUT RECORDS
// =============================================================================

// ArrivalRecord is one row of the arrivals table.
// Count and Weight are Undefined when the cell was blank or not a number.
type ArrivalRecord struct {
	Unit     string        `json:"unit"`
	Category string        `json:"category"`
	Count    generic.Value `json:"count"`
	Weight   generic.Value `json:"weight"`
}

// WeightOverride replaces the weight of every arrival in Category.
type WeightOverride struct {
	Category string        `json:"category"`
	Weight   generic.Value `json:"weight"`
}

// UnitBaseline carries the inputs of the full formula chain for one unit.
// AP is the manually entered arrival points, used when no arrivals exist.
type UnitBaseline struct {
	Unit                    string        `json:"unit"`
	FTEOn                   generic.Value `json:"fte_on"`
	BufferFTE               generic.Value `json:"buffer_fte"`
	BacklogStart            generic.Value `json:"backlog_start"`
	CompletedPointsBaseline generic.Value `json:"completed_points_baseline"`
	AvgFTEBaseline          generic.Value `json:"avg_fte_baseline"`
	WbarCurrent             generic.Value `json:"wbar_current"`
	WbarBaseline            generic.Value `json:"wbar_baseline"`
	AP                      generic.Value `json:"ap"`
}

// =============================================================================
// DERIVED RECORDS
// =============================================================================

// BufferSource records where a unit's buffer FTE came from.
type BufferSource string

const (
	// BufferConfigured is the unit's own Buffer_FTE.
	BufferConfigured BufferSource = "configured"
	// BufferFallback is the fallback constant of the table recompute path.
	BufferFallback BufferSource = "fallback"
	// BufferImported means the record came from an outputs table and was
	// not recomputed, so the buffer is unknown.
	BufferImported BufferSource = "imported"
)

// UnitMetrics is the derived record for one unit. It has no identity
// beyond Unit and is never edited; it is recomputed.
type UnitMetrics struct {
	Unit string `json:"unit"`
	generic.MetricSet
	BufferFTE    generic.Value `json:"buffer_fte"`
	BufferSource BufferSource  `json:"buffer_source"`
}

// StateMetrics is the aggregate over all units.
// CPF, PRef and PEff are always Undefined.
type StateMetrics struct {
	Name string `json:"name"`
	generic.MetricSet
}

// Result is the output of one recompute.
type Result struct {
	Units       []UnitMetrics        `json:"units"`
	State       StateMetrics         `json:"state"`
	Corrections []generic.Correction `json:"corrections,omitempty"`
	Unmatched   []string             `json:"unmatched_overrides,omitempty"`

	// HistoryIgnored is set by a load whose history table was not seeded
	// because the ledger already had rows.
	HistoryIgnored bool `json:"history_ignored,omitempty"`
}

// Unit returns the metrics of the named unit.
func (r Result) Unit(name string) (UnitMetrics, error) {
	for _, u := range r.Units {
		if u.Unit == name {
			return u, nil
		}
	}
	return UnitMetrics{}, &generic.UnitNotFoundError{Unit: name}
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings are the tunables of a recompute.
type Settings struct {
	Thresholds        Thresholds
	FallbackBufferFTE generic.Value
	StateName         string
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		Thresholds:        DefaultThresholds(),
		FallbackBufferFTE: DefaultFallbackBufferFTE,
		StateName:         DefaultStateName,
	}
}
