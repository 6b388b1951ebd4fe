package capacity

import "github.com/warp/capacity-engine/generic"

// =============================================================================
// STATE ROLLUP - Capacity-weighted aggregation
// =============================================================================

// Rollup aggregates unit records into the statewide record.
//
// Every additive field is a sum that skips undefined values, so one unit
// with a broken baseline does not poison the state. Utilization is
// Σ AP / Σ capacity_eff, never the mean of the unit utilizations.
// CPF, P_ref and P_eff have no statewide meaning and stay undefined.
//
// Σ AP includes the AP of units whose capacity is undefined. Such a unit
// adds demand but no capacity and raises the state utilization; units are
// not filtered by whether their capacity is defined.
func Rollup(name string, units []UnitMetrics, t Thresholds) StateMetrics {
	var ap, capacity, fteRequired, fteOn, gap, backlogStart, backlogEnd []generic.Value
	for _, u := range units {
		ap = append(ap, u.AP)
		capacity = append(capacity, u.CapacityEff)
		fteRequired = append(fteRequired, u.FTERequired)
		fteOn = append(fteOn, u.FTEOn)
		gap = append(gap, u.Gap)
		backlogStart = append(backlogStart, u.BacklogStart)
		backlogEnd = append(backlogEnd, u.BacklogEnd)
	}

	apState := generic.Sum(ap...)
	capacityState := generic.Sum(capacity...)
	utilState := apState.DivPositive(capacityState)

	return StateMetrics{
		Name: name,
		MetricSet: generic.MetricSet{
			AP:           apState,
			CPF:          generic.Undefined,
			PRef:         generic.Undefined,
			PEff:         generic.Undefined,
			FTEOn:        generic.Sum(fteOn...),
			CapacityEff:  capacityState,
			Utilization:  utilState,
			BacklogStart: generic.Sum(backlogStart...),
			BacklogEnd:   generic.Sum(backlogEnd...),
			FTERequired:  generic.Sum(fteRequired...),
			Gap:          generic.Sum(gap...),
			RAG:          t.Classify(utilState),
		},
	}
}

// MeanUtilization is the unweighted mean of unit utilizations.
// Reported next to the state utilization for comparison only.
func MeanUtilization(units []UnitMetrics) generic.Value {
	values := make([]generic.Value, len(units))
	for i, u := range units {
		values[i] = u.Utilization
	}
	return generic.Mean(values...)
}
