/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built sessions with realistic data for demos. Each
	scenario builds a set of typed tables and loads them into the
	session exactly as an upload would.

AVAILABLE SCENARIOS:

	statewide-sample: Five counties with baselines and weighted arrivals
	outputs-only:     Precomputed outputs, no arrivals (shown as uploaded)
	with-history:     Statewide sample plus two prior quarters of history
	manual-unit:      One unit from the manual-mode defaults, manual AP

HOW SCENARIOS WORK:
 1. Build baselines and arrivals from the sample counties
 2. Optionally run the engine to derive outputs or prior history
 3. Load the tables into the session

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "with-history"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create a loader: func (h *Handler) xxxTables() (capacity.Tables, error)
 3. Add it to scenarioLoader

NOTE:

	with-history seeds the ledger only while it is empty. Loading it again
	reloads the tables, keeps the ledger and reports history_ignored.

SEE ALSO:
  - handlers.go: Session and history handlers
  - capacity/presets.go: Default category weights and manual baseline
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/capacity-engine/capacity"
	"github.com/warp/capacity-engine/generic"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "statewide-sample",
		Name:        "Statewide Sample",
		Description: "Five counties with baselines and weighted arrivals across all categories",
		Category:    "baselines",
	},
	{
		ID:          "outputs-only",
		Name:        "Outputs Only",
		Description: "Precomputed unit outputs without arrivals, shown as uploaded",
		Category:    "outputs",
	},
	{
		ID:          "with-history",
		Name:        "With History",
		Description: "Statewide sample with 2025 Q2 and 2025 Q3 already in the ledger",
		Category:    "history",
	},
	{
		ID:          "manual-unit",
		Name:        "Manual Unit",
		Description: "A single unit from the manual-mode defaults with manually entered AP",
		Category:    "manual",
	},
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario into the session.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if _, err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		h.writeDomainError(w, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// Preload loads a scenario outside of a request, e.g. at server startup.
func (h *Handler) Preload(ctx context.Context, id string) error {
	_, err := h.loadScenario(ctx, id)
	return err
}

func (h *Handler) loadScenario(ctx context.Context, id string) (capacity.Result, error) {
	loader, ok := h.scenarioLoader(id)
	if !ok {
		return capacity.Result{}, fmt.Errorf("%w: %q", generic.ErrScenarioNotFound, id)
	}

	tables, err := loader()
	if err != nil {
		return capacity.Result{}, fmt.Errorf("failed to build scenario: %w", err)
	}

	result, err := h.Session.Load(ctx, tables)
	if err != nil {
		return capacity.Result{}, err
	}

	h.setCurrentScenario(id)
	h.Logger.Info("scenario loaded",
		zap.String("scenario", id),
		zap.Int("units", len(result.Units)))
	return result, nil
}

func (h *Handler) scenarioLoader(id string) (func() (capacity.Tables, error), bool) {
	switch id {
	case "statewide-sample":
		return h.statewideSampleTables, true
	case "outputs-only":
		return h.outputsOnlyTables, true
	case "with-history":
		return h.withHistoryTables, true
	case "manual-unit":
		return h.manualUnitTables, true
	}
	return nil, false
}

// =============================================================================
// SAMPLE DATA
// =============================================================================

// sampleCounty holds one county's baseline and its arrival counts, in the
// order of capacity.DefaultCategoryWeights.
type sampleCounty struct {
	name        string
	fteOn       string
	backlog     string
	completed   string
	avgFTE      string
	wbarCurrent string
	wbarBase    string
	counts      [8]int64
}

var sampleCounties = []sampleCounty{
	{"Aitkin County", "4", "120", "3600", "4", "1.40", "1.35",
		[8]int64{900, 60, 40, 120, 1500, 200, 45, 80}},
	{"Anoka County", "38", "950", "41000", "40", "1.55", "1.50",
		[8]int64{10200, 640, 520, 1480, 16000, 2400, 610, 950}},
	{"Benton County", "9", "210", "8600", "9", "1.45", "1.48",
		[8]int64{2300, 150, 110, 330, 3900, 520, 140, 210}},
	{"Hennepin County", "120", "4100", "118000", "125", "1.80", "1.70",
		[8]int64{36500, 2900, 3100, 5600, 52000, 8800, 2700, 3900}},
	{"Ramsey County", "70", "2600", "70000", "72", "1.70", "1.65",
		[8]int64{19800, 1500, 1450, 3100, 30500, 4700, 1500, 2200}},
}

func sampleBaselines() []capacity.UnitBaseline {
	baselines := make([]capacity.UnitBaseline, 0, len(sampleCounties))
	for _, c := range sampleCounties {
		baselines = append(baselines, capacity.UnitBaseline{
			Unit:                    c.name,
			FTEOn:                   generic.MustValue(c.fteOn),
			BufferFTE:               capacity.DefaultFallbackBufferFTE,
			BacklogStart:            generic.MustValue(c.backlog),
			CompletedPointsBaseline: generic.MustValue(c.completed),
			AvgFTEBaseline:          generic.MustValue(c.avgFTE),
			WbarCurrent:             generic.MustValue(c.wbarCurrent),
			WbarBaseline:            generic.MustValue(c.wbarBase),
		})
	}
	return baselines
}

// sampleArrivals scales every county's counts, rounded to whole arrivals.
func sampleArrivals(scale generic.Value) []capacity.ArrivalRecord {
	weights := capacity.DefaultCategoryWeights()
	var arrivals []capacity.ArrivalRecord
	for _, c := range sampleCounties {
		for i, cw := range weights {
			arrivals = append(arrivals, capacity.ArrivalRecord{
				Unit:     c.name,
				Category: cw.Category,
				Count:    generic.NewValueFromInt(c.counts[i]).Mul(scale).Round(0),
				Weight:   cw.Weight,
			})
		}
	}
	return arrivals
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) statewideSampleTables() (capacity.Tables, error) {
	return capacity.Tables{
		Baselines: sampleBaselines(),
		Arrivals:  sampleArrivals(generic.One),
	}, nil
}

// outputsOnlyTables derives an outputs table from the sample, then drops
// the arrivals so the session shows the rows as given.
func (h *Handler) outputsOnlyTables() (capacity.Tables, error) {
	result := h.Session.Engine().ComputeBaselines(sampleBaselines(), sampleArrivals(generic.One), nil)

	outputs := make([]capacity.UnitOutput, 0, len(result.Units))
	for _, u := range result.Units {
		outputs = append(outputs, capacity.UnitOutput{Unit: u.Unit, MetricSet: u.MetricSet})
	}
	return capacity.Tables{Outputs: outputs}, nil
}

func (h *Handler) withHistoryTables() (capacity.Tables, error) {
	tables, _ := h.statewideSampleTables()

	engine := h.Session.Engine()
	for _, prior := range []struct {
		period string
		scale  string
	}{
		{"2025 Q2", "0.90"},
		{"2025 Q3", "0.95"},
	} {
		r := engine.ComputeBaselines(tables.Baselines, sampleArrivals(generic.MustValue(prior.scale)), nil)
		rows, err := capacity.SnapshotRows(prior.period, r.Units, r.State)
		if err != nil {
			return capacity.Tables{}, err
		}
		tables.History = append(tables.History, rows...)
	}
	return tables, nil
}

func (h *Handler) manualUnitTables() (capacity.Tables, error) {
	b := capacity.DefaultUnitBaseline()
	b.Unit = "Manual Entry"
	return capacity.Tables{Baselines: []capacity.UnitBaseline{b}}, nil
}
