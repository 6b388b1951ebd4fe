/*
handlers_test.go - Tests for API handlers

Tests for:
- Error status mapping (400 / 404 / 409)
- CSV upload, weight overrides, recompute
- Snapshots, history export, period proposal
- Manual single-unit computation
*/
package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/capacity-engine/capacity"
	"github.com/warp/capacity-engine/generic"
	"github.com/warp/capacity-engine/generic/store"
	"go.uber.org/zap"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var fixedNow = time.Date(2025, time.November, 3, 9, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T) (*Handler, http.Handler) {
	t.Helper()
	engine, err := capacity.NewEngine(capacity.DefaultSettings(), zap.NewNop())
	require.NoError(t, err)
	cal, err := generic.NewPeriodCalendar(generic.DefaultPeriodRule)
	require.NoError(t, err)

	history := capacity.NewHistoryLedger(generic.NewLedger(store.NewMemory()))
	session := capacity.NewSession(engine, history, cal, zap.NewNop())

	h := NewHandler(session, zap.NewNop())
	h.Now = func() time.Time { return fixedNow }
	return h, NewRouter(h, nil)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func upload(t *testing.T, router http.Handler, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, content := range files {
		part, err := mw.CreateFormFile(field, field+".csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/session", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const (
	outputsCSV = "County,AP,CPF,P_ref,P_eff,FTE_on,Utilization,Backlog_Start,Backlog_End,FTE_required,Gap,RAG\n" +
		"Aitkin County,1000,1,800,800,2,0.625,0,,,,\n" +
		"Anoka County,400,1,800,800,1,0.5,0,,,,\n"
	arrivalsCSV = "County,Category,Count,Weight\n" +
		"Aitkin County,Cat1,100,4\n" +
		"Anoka County,Cat2,oops,1\n"
)

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestHandlers_NothingLoaded(t *testing.T) {
	_, router := newTestHandler(t)

	for _, path := range []string{"/api/units", "/api/units/metrics", "/api/state", "/api/units/export"} {
		rec := do(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "invalid_input", decode[ErrorResponse](t, rec).Code, path)
	}

	rec := do(t, router, http.MethodPost, "/api/history/snapshots", SnapshotRequest{Period: "2025 Q4"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoadScenario_Unknown(t *testing.T) {
	_, router := newTestHandler(t)

	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, rec).Code)
}

func TestLoadScenario_HistoryTwiceKeepsLedger(t *testing.T) {
	// GIVEN: A session loaded with a scenario that seeds history
	_, router := newTestHandler(t)
	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "with-history"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	periods := decode[PeriodsDTO](t, do(t, router, http.MethodGet, "/api/periods", nil))
	assert.Equal(t, []string{"2025 Q2", "2025 Q3"}, periods.Periods)

	next := decode[NextPeriodDTO](t, do(t, router, http.MethodGet, "/api/periods/next", nil))
	assert.Equal(t, "2025 Q4", next.Period)

	// WHEN: Loading it again
	rec = do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "with-history"})

	// THEN: The tables reload and the ledger is not seeded a second time
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	periods = decode[PeriodsDTO](t, do(t, router, http.MethodGet, "/api/periods", nil))
	assert.Equal(t, []string{"2025 Q2", "2025 Q3"}, periods.Periods)

	history := decode[[]generic.Snapshot](t, do(t, router, http.MethodGet, "/api/history", nil))
	assert.Len(t, history, 2*(len(sampleCounties)+1))
}

func TestLoadSession_HistoryIgnoredAfterSnapshot(t *testing.T) {
	// GIVEN: An uploaded session with one snapshot in the ledger
	_, router := newTestHandler(t)
	rec := upload(t, router, map[string]string{"outputs": outputsCSV})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, router, http.MethodPost, "/api/history/snapshots", SnapshotRequest{Period: "2025 Q3"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN: Re-uploading the workbook with its history table
	historyCSV := "Period,Level,County,AP\n2025 Q2,Unit,Aitkin,100\n2025 Q2,State,Minnesota (Statewide),100\n"
	rec = upload(t, router, map[string]string{"outputs": outputsCSV, "history": historyCSV})

	// THEN: The load succeeds and reports the skipped history
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[ResultDTO](t, rec)
	assert.True(t, result.HistoryIgnored)
	assert.Len(t, result.Units, 2)

	periods := decode[PeriodsDTO](t, do(t, router, http.MethodGet, "/api/periods", nil))
	assert.Equal(t, []string{"2025 Q3"}, periods.Periods)
}

// =============================================================================
// UNITS
// =============================================================================

func TestUnits_AfterScenario(t *testing.T) {
	_, router := newTestHandler(t)
	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "statewide-sample"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	list := decode[UnitListDTO](t, do(t, router, http.MethodGet, "/api/units", nil))
	assert.Len(t, list.Units, len(sampleCounties))
	assert.Equal(t, "Aitkin County", list.Units[0])

	rec = do(t, router, http.MethodGet, "/api/units/Aitkin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	unit := decode[capacity.UnitMetrics](t, rec)
	assert.Equal(t, "Aitkin County", unit.Unit)
	assert.True(t, unit.AP.IsDefined())
	assert.Equal(t, capacity.BufferConfigured, unit.BufferSource)

	rec = do(t, router, http.MethodGet, "/api/units/Carlton", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	current := decode[ScenarioDTO](t, do(t, router, http.MethodGet, "/api/scenarios/current", nil))
	assert.Equal(t, "statewide-sample", current.ID)
}

func TestComputeUnit_FormulaExample(t *testing.T) {
	// GIVEN: Manual-mode defaults with P_ref 800 and neutral complexity
	_, router := newTestHandler(t)
	body := map[string]any{
		"unit":                      "Manual",
		"completed_points_baseline": 9600,
		"wbar_current":              1,
		"wbar_baseline":             1,
	}

	// WHEN: Computing the single unit
	rec := do(t, router, http.MethodPost, "/api/units/compute", body)

	// THEN: 8000 AP against 10 FTE at 800 is fully utilized
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	u := decode[capacity.UnitMetrics](t, rec)
	assert.True(t, generic.MustValue("10.30").Equal(u.FTERequired), "fte_required %s", u.FTERequired)
	assert.True(t, generic.MustValue("0.30").Equal(u.Gap))
	assert.Equal(t, generic.RAGRed, u.RAG)

	// Session is untouched
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/state", nil).Code)
}

// =============================================================================
// UPLOAD, WEIGHTS, RECOMPUTE
// =============================================================================

func TestLoadSession_UploadAndOverride(t *testing.T) {
	// GIVEN: An uploaded outputs and arrivals table
	_, router := newTestHandler(t)
	rec := upload(t, router, map[string]string{"outputs": outputsCSV, "arrivals": arrivalsCSV})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	loaded := decode[ResultDTO](t, rec)
	require.Len(t, loaded.Units, 2)
	assert.True(t, generic.MustValue("1000").Equal(loaded.Units[0].AP), "outputs shown as uploaded")
	require.Len(t, loaded.Corrections, 1)
	assert.Equal(t, "Count", loaded.Corrections[0].Column)

	weights := decode[WeightsDTO](t, do(t, router, http.MethodGet, "/api/weights", nil))
	require.Len(t, weights.Categories, 2)
	assert.Empty(t, weights.Overrides)
	assert.Len(t, weights.Defaults, 8)

	// WHEN: Overriding Cat1 and an unknown category
	rec = do(t, router, http.MethodPut, "/api/weights", SetWeightsRequest{Overrides: []capacity.WeightOverride{
		{Category: "Cat1", Weight: generic.MustValue("2")},
		{Category: "Nope", Weight: generic.MustValue("9")},
	}})

	// THEN: AP is re-aggregated and the unknown category is reported
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[ResultDTO](t, rec)
	assert.True(t, generic.MustValue("200").Equal(result.Units[0].AP))
	assert.True(t, generic.MustValue("0").Equal(result.Units[1].AP), "malformed count counts as zero")
	assert.Equal(t, []string{"Nope"}, result.Unmatched)

	// Recompute keeps the active overrides
	again := decode[ResultDTO](t, do(t, router, http.MethodPost, "/api/recompute", nil))
	assert.True(t, generic.MustValue("200").Equal(again.Units[0].AP))
}

func TestSetWeights_CSVBody(t *testing.T) {
	_, router := newTestHandler(t)
	require.Equal(t, http.StatusOK, upload(t, router, map[string]string{"outputs": outputsCSV, "arrivals": arrivalsCSV}).Code)

	req := httptest.NewRequest(http.MethodPut, "/api/weights", strings.NewReader("Category,Weight\nCat1,0.5\n"))
	req.Header.Set("Content-Type", "text/csv; charset=utf-8")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[ResultDTO](t, rec)
	assert.True(t, generic.MustValue("50").Equal(result.Units[0].AP))
}

func TestLoadSession_MissingColumn(t *testing.T) {
	_, router := newTestHandler(t)

	rec := upload(t, router, map[string]string{"outputs": "Unit,AP\nAitkin,1\n"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "County")
}

// =============================================================================
// HISTORY
// =============================================================================

func TestSnapshots_AppendAndExport(t *testing.T) {
	_, router := newTestHandler(t)
	require.Equal(t, http.StatusOK, upload(t, router, map[string]string{"outputs": outputsCSV}).Code)

	// Blank period is rejected
	rec := do(t, router, http.MethodPost, "/api/history/snapshots", SnapshotRequest{Period: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// WHEN: Snapshotting the proposed period
	next := decode[NextPeriodDTO](t, do(t, router, http.MethodGet, "/api/periods/next", nil))
	require.Equal(t, "2025 Q4", next.Period)
	rec = do(t, router, http.MethodPost, "/api/history/snapshots", SnapshotRequest{Period: next.Period})

	// THEN: N unit rows plus one state row are appended
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	snap := decode[SnapshotDTO](t, rec)
	require.Len(t, snap.Rows, 3)
	assert.Equal(t, generic.LevelState, snap.Rows[2].Level)
	assert.Equal(t, capacity.DefaultStateName, snap.Rows[2].Name)

	rows := decode[[]generic.Snapshot](t, do(t, router, http.MethodGet, "/api/history?period=2025+Q4", nil))
	assert.Len(t, rows, 3)

	rec = do(t, router, http.MethodGet, "/api/history/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "Period,Level,County,"))
	assert.True(t, strings.HasPrefix(lines[3], "2025 Q4,State,"))

	next = decode[NextPeriodDTO](t, do(t, router, http.MethodGet, "/api/periods/next", nil))
	assert.Equal(t, "2026 Q1", next.Period)
}

func TestExportUnits(t *testing.T) {
	_, router := newTestHandler(t)
	require.Equal(t, http.StatusOK, upload(t, router, map[string]string{"outputs": outputsCSV}).Code)

	rec := do(t, router, http.MethodGet, "/api/units/export", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "unit_metrics.csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "Aitkin County,1000,"))
}

func TestMetricsEndpoint(t *testing.T) {
	_, router := newTestHandler(t)
	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/scenarios/load",
		LoadScenarioRequest{ScenarioID: "statewide-sample"}).Code)

	rec := do(t, router, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "capacity_state_utilization")
	assert.Contains(t, rec.Body.String(), "capacity_recompute_duration_seconds")
}
