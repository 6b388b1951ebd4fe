package capacity_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/capacity-engine/capacity"
	"github.com/warp/capacity-engine/generic"
	"go.uber.org/zap"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T) *capacity.Engine {
	e, err := capacity.NewEngine(capacity.DefaultSettings(), zap.NewNop())
	require.NoError(t, err)
	return e
}

func baseline(unit, fteOn, buffer, completed, avgFTE, ap string) capacity.UnitBaseline {
	return capacity.UnitBaseline{
		Unit:                    unit,
		FTEOn:                   v(fteOn),
		BufferFTE:               v(buffer),
		BacklogStart:            v("100"),
		CompletedPointsBaseline: v(completed),
		AvgFTEBaseline:          v(avgFTE),
		WbarCurrent:             v("1"),
		WbarBaseline:            v("1"),
		AP:                      v(ap),
	}
}

func output(unit, ap, fteOn, pEff string) capacity.UnitOutput {
	row := capacity.UnitOutput{Unit: unit}
	row.AP = v(ap)
	row.CPF = v("1")
	row.PRef = v(pEff)
	row.PEff = v(pEff)
	row.FTEOn = v(fteOn)
	row.BacklogStart = v("0")
	row.Utilization = v("0.42")
	return row
}

// =============================================================================
// ENGINE CONSTRUCTION
// =============================================================================

func TestNewEngine_RejectsBadThresholds(t *testing.T) {
	settings := capacity.DefaultSettings()
	settings.Thresholds = capacity.Thresholds{Green: v("0.9"), Amber: v("0.5")}

	_, err := capacity.NewEngine(settings, nil)

	assert.ErrorIs(t, err, generic.ErrInvalidThresholds)
	assert.True(t, generic.IsClientError(err))
}

func TestNewEngine_FillsDefaults(t *testing.T) {
	e, err := capacity.NewEngine(capacity.Settings{Thresholds: capacity.DefaultThresholds()}, nil)
	require.NoError(t, err)

	assert.True(t, capacity.DefaultFallbackBufferFTE.Equal(e.Settings().FallbackBufferFTE))
	assert.Equal(t, capacity.DefaultStateName, e.Settings().StateName)
}

// =============================================================================
// TABLE PATH
// =============================================================================

func TestRecomputeOutputs_NoArrivalsPassesThrough(t *testing.T) {
	// GIVEN: An outputs table and no arrivals
	e := newTestEngine(t)
	outputs := []capacity.UnitOutput{output("Aitkin", "1000", "2", "800")}

	// WHEN: Recomputing
	r := e.RecomputeOutputs(outputs, nil, nil)

	// THEN: AP and utilization are as uploaded; RAG is filled from utilization
	require.Len(t, r.Units, 1)
	u := r.Units[0]
	assert.True(t, v("1000").Equal(u.AP))
	assert.True(t, v("0.42").Equal(u.Utilization), "not recomputed")
	assert.True(t, v("1600").Equal(u.CapacityEff))
	assert.Equal(t, generic.RAGGreen, u.RAG)
	assert.Equal(t, capacity.BufferImported, u.BufferSource)
}

func TestRecomputeOutputs_UnitsWithoutArrivalsKeepAP(t *testing.T) {
	// GIVEN: Two units, arrivals only for the first
	e := newTestEngine(t)
	outputs := []capacity.UnitOutput{
		output("Aitkin", "1000", "2", "800"),
		output("Anoka", "400", "1", "800"),
	}
	arrivals := []capacity.ArrivalRecord{arrival("Aitkin", "Cat1", "100", "4")}

	// WHEN: Recomputing
	r := e.RecomputeOutputs(outputs, arrivals, nil)

	// THEN: Aitkin's AP comes from arrivals; Anoka keeps its AP but is still recomputed
	aitkin, err := r.Unit("Aitkin")
	require.NoError(t, err)
	assert.True(t, v("400").Equal(aitkin.AP))
	assert.True(t, v("0.25").Equal(aitkin.Utilization))

	anoka, err := r.Unit("Anoka")
	require.NoError(t, err)
	assert.True(t, v("400").Equal(anoka.AP))
	assert.True(t, v("0.5").Equal(anoka.Utilization))
	assert.Equal(t, capacity.BufferFallback, anoka.BufferSource)
	assert.True(t, v("0.8").Equal(anoka.FTERequired), "400/800 + 0.30")

	_, err = r.Unit("Nowhere")
	assert.ErrorIs(t, err, generic.ErrUnitNotFound)
}

func TestRecomputeOutputs_ReportsUnmatchedOverrides(t *testing.T) {
	e := newTestEngine(t)
	outputs := []capacity.UnitOutput{output("Aitkin", "1000", "2", "800")}
	arrivals := []capacity.ArrivalRecord{arrival("Aitkin", "Cat1", "100", "4")}

	r := e.RecomputeOutputs(outputs, arrivals, []capacity.WeightOverride{
		{Category: "Cat1", Weight: v("8")},
		{Category: "Unused", Weight: v("1")},
	})

	assert.Equal(t, []string{"Unused"}, r.Unmatched)
	assert.True(t, v("800").Equal(r.Units[0].AP))
}

func TestRecompute_Idempotent(t *testing.T) {
	// GIVEN: Identical baselines, arrivals and overrides
	e := newTestEngine(t)
	baselines := []capacity.UnitBaseline{
		baseline("Aitkin", "10", "0.5", "9600", "12", "0"),
		baseline("Anoka", "4", "0.2", "1000", "0", "300"),
	}
	arrivals := []capacity.ArrivalRecord{
		arrival("Aitkin", "Cat1", "1000", "1.5"),
		arrival("Aitkin", "Cat2", "x", "1"),
	}
	overrides := []capacity.WeightOverride{{Category: "Cat1", Weight: v("2")}}

	// WHEN: Recomputing twice
	first, err := json.Marshal(e.ComputeBaselines(baselines, arrivals, overrides))
	require.NoError(t, err)
	second, err := json.Marshal(e.ComputeBaselines(baselines, arrivals, overrides))
	require.NoError(t, err)

	// THEN: The encoded results are byte-identical
	assert.Equal(t, string(first), string(second))

	outputs := []capacity.UnitOutput{output("Aitkin", "1000", "2", "800")}
	third, err := json.Marshal(e.RecomputeOutputs(outputs, arrivals, overrides))
	require.NoError(t, err)
	fourth, err := json.Marshal(e.RecomputeOutputs(outputs, arrivals, overrides))
	require.NoError(t, err)
	assert.Equal(t, string(third), string(fourth))
}

// =============================================================================
// BASELINE PATH
// =============================================================================

func TestComputeBaselines_ManualAPWithoutArrivals(t *testing.T) {
	e := newTestEngine(t)
	baselines := []capacity.UnitBaseline{baseline("Aitkin", "10", "0.30", "9600", "12", "8000")}

	r := e.ComputeBaselines(baselines, nil, nil)

	u := r.Units[0]
	assert.True(t, v("8000").Equal(u.AP))
	assert.True(t, v("800").Equal(u.PEff))
	assert.True(t, v("10.30").Equal(u.FTERequired))
	assert.Equal(t, generic.RAGRed, u.RAG)
	assert.Equal(t, capacity.BufferConfigured, u.BufferSource)
}

func TestComputeBaselines_DivisionByZeroContained(t *testing.T) {
	// GIVEN: Cook has avg_fte_baseline = 0; Lake is healthy
	e := newTestEngine(t)
	baselines := []capacity.UnitBaseline{
		baseline("Cook", "4", "0.3", "1000", "0", "2000"),
		baseline("Lake", "10", "0.3", "8000", "10", "4000"),
	}

	// WHEN: Computing
	r := e.ComputeBaselines(baselines, nil, nil)

	// THEN: Cook is undefined, the state is still computed from defined values
	cook, err := r.Unit("Cook")
	require.NoError(t, err)
	assert.False(t, cook.PRef.IsDefined())
	assert.False(t, cook.PEff.IsDefined())
	assert.False(t, cook.Utilization.IsDefined())
	assert.False(t, cook.FTERequired.IsDefined())
	assert.False(t, cook.Gap.IsDefined())
	assert.Equal(t, generic.RAGUndefined, cook.RAG)

	lake, err := r.Unit("Lake")
	require.NoError(t, err)
	assert.True(t, v("0.5").Equal(lake.Utilization))

	// Σ AP over defined values / Σ capacity over defined values: (2000 + 4000) / 8000
	assert.True(t, v("0.75").Equal(r.State.Utilization), "got %s", r.State.Utilization)
	assert.True(t, v("8000").Equal(r.State.CapacityEff))
	assert.True(t, lake.FTERequired.Equal(r.State.FTERequired))
	assert.Equal(t, generic.RAGAmber, r.State.RAG)
}

func TestBufferDiscrepancy_FallbackVsConfigured(t *testing.T) {
	// GIVEN: One unit with a configured buffer of 0.5
	e := newTestEngine(t)
	b := baseline("Aitkin", "10", "0.5", "9600", "12", "0")
	arrivals := []capacity.ArrivalRecord{arrival("Aitkin", "Cat1", "4000", "1")}

	// WHEN: Computed from the baseline, and from its outputs row via the table path
	fromBaseline := e.ComputeBaselines([]capacity.UnitBaseline{b}, arrivals, nil).Units[0]

	row := capacity.UnitOutput{Unit: fromBaseline.Unit, MetricSet: fromBaseline.MetricSet}
	fromTable := e.RecomputeOutputs([]capacity.UnitOutput{row}, arrivals, nil).Units[0]

	// THEN: AP and utilization agree; fte_required and gap differ by 0.5 - 0.30
	assert.True(t, fromBaseline.AP.Equal(fromTable.AP))
	assert.True(t, fromBaseline.Utilization.Equal(fromTable.Utilization))

	assert.Equal(t, capacity.BufferConfigured, fromBaseline.BufferSource)
	assert.Equal(t, capacity.BufferFallback, fromTable.BufferSource)
	assert.True(t, v("5.5").Equal(fromBaseline.FTERequired), "4000/800 + 0.5")
	assert.True(t, v("5.30").Equal(fromTable.FTERequired), "4000/800 + 0.30")
	assert.True(t, v("0.2").Equal(fromBaseline.Gap.Sub(fromTable.Gap)))
}

func TestComputeUnit_ManualMode(t *testing.T) {
	e := newTestEngine(t)

	m := e.ComputeUnit(capacity.DefaultUnitBaseline())

	// 10000/12 = 833.33..; CPF 1.8/1.7; P_eff = P_ref / CPF
	assert.True(t, m.PRef.Round(2).Equal(v("833.33")))
	assert.True(t, m.CPF.Round(3).Equal(v("1.059")))
	assert.True(t, m.PEff.Round(2).Equal(v("787.04")))
	assert.True(t, v("8000").Equal(m.AP))
	assert.Equal(t, generic.RAGRed, m.RAG)
}
