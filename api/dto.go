/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Engine records
  (capacity.UnitMetrics, capacity.StateMetrics, generic.Snapshot) are
  already JSON-ready and are returned as they are; the types here wrap
  them or carry request bodies.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

NUMBERS:
  Every metric is a generic.Value: a JSON number, or null when the
  metric is undefined (division by zero, missing input).

SEE ALSO:
  - handlers.go: Uses these types
  - capacity/types.go: Engine records
*/
package api

import (
	"github.com/warp/capacity-engine/capacity"
	"github.com/warp/capacity-engine/generic"
)

// =============================================================================
// UNITS AND STATE
// =============================================================================

// ResultDTO is the full output of a load or recompute.
type ResultDTO struct {
	Units       []capacity.UnitMetrics `json:"units"`
	State       capacity.StateMetrics  `json:"state"`
	Corrections []generic.Correction   `json:"corrections"`
	Unmatched   []string               `json:"unmatched_overrides"`

	// HistoryIgnored reports a history upload skipped because the ledger had rows
	HistoryIgnored bool `json:"history_ignored"`
}

// UnitListDTO lists the unit names of the current session.
type UnitListDTO struct {
	Units []string `json:"units"`
}

// ComputeUnitRequest is a manual single-unit computation. Fields left out
// of the body keep the manual-mode defaults.
type ComputeUnitRequest struct {
	capacity.UnitBaseline
}

// =============================================================================
// WEIGHTS
// =============================================================================

// WeightsDTO is the weight editor listing.
type WeightsDTO struct {
	Categories []capacity.CategoryWeight `json:"categories"`
	Overrides  []capacity.WeightOverride `json:"overrides"`
	Defaults   []capacity.CategoryWeight `json:"defaults"`
}

// SetWeightsRequest replaces the active weight overrides.
type SetWeightsRequest struct {
	Overrides []capacity.WeightOverride `json:"overrides"`
}

// =============================================================================
// HISTORY
// =============================================================================

// SnapshotRequest asks for the current result to be appended to history.
type SnapshotRequest struct {
	Period string `json:"period"`
}

// SnapshotDTO is the outcome of a snapshot request.
type SnapshotDTO struct {
	Period string             `json:"period"`
	Rows   []generic.Snapshot `json:"rows"`
}

// PeriodsDTO lists the period labels in history.
type PeriodsDTO struct {
	Periods []string `json:"periods"`
}

// NextPeriodDTO is the proposed label for the next snapshot.
type NextPeriodDTO struct {
	Period string `json:"period"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func toResultDTO(r capacity.Result) ResultDTO {
	dto := ResultDTO{
		Units:       r.Units,
		State:       r.State,
		Corrections: r.Corrections,
		Unmatched:   r.Unmatched,

		HistoryIgnored: r.HistoryIgnored,
	}
	if dto.Units == nil {
		dto.Units = []capacity.UnitMetrics{}
	}
	if dto.Corrections == nil {
		dto.Corrections = []generic.Correction{}
	}
	if dto.Unmatched == nil {
		dto.Unmatched = []string{}
	}
	return dto
}
