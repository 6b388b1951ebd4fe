package capacity

import "github.com/warp/capacity-engine/generic"

// =============================================================================
// UNIT METRICS CALCULATOR - The per-unit formula chain
// =============================================================================

// ChainInput is everything the per-unit chain reads.
type ChainInput struct {
	Unit         string
	AP           generic.Value
	FTEOn        generic.Value
	BacklogStart generic.Value
	BufferFTE    generic.Value
	BufferSource BufferSource
	Productivity Productivity
}

// Calculator computes full UnitMetrics records.
type Calculator struct {
	Thresholds Thresholds
}

// NewCalculator returns a calculator that classifies with t.
func NewCalculator(t Thresholds) Calculator {
	return Calculator{Thresholds: t}
}

// Compute evaluates the whole chain in dependency order and returns one
// complete record. There is no way to change AP without recomputing
// everything downstream of it.
//
//	capacity_eff = fte_on × P_eff
//	utilization  = AP / capacity_eff           (undefined unless capacity_eff > 0)
//	backlog_end  = backlog_start + AP − capacity_eff
//	fte_required = AP / P_eff + buffer_fte     (undefined unless P_eff > 0)
//	gap          = fte_required − fte_on
//	rag          = Classify(utilization)
func (c Calculator) Compute(in ChainInput) UnitMetrics {
	p := in.Productivity

	capacityEff := in.FTEOn.Mul(p.PEff)
	utilization := in.AP.DivPositive(capacityEff)
	backlogEnd := in.BacklogStart.Add(in.AP).Sub(capacityEff)
	fteRequired := in.AP.DivPositive(p.PEff).Add(in.BufferFTE)
	gap := fteRequired.Sub(in.FTEOn)

	return UnitMetrics{
		Unit: in.Unit,
		MetricSet: generic.MetricSet{
			AP:           in.AP,
			CPF:          p.CPF,
			PRef:         p.PRef,
			PEff:         p.PEff,
			FTEOn:        in.FTEOn,
			CapacityEff:  capacityEff,
			Utilization:  utilization,
			BacklogStart: in.BacklogStart,
			BacklogEnd:   backlogEnd,
			FTERequired:  fteRequired,
			Gap:          gap,
			RAG:          c.Thresholds.Classify(utilization),
		},
		BufferFTE:    in.BufferFTE,
		BufferSource: in.BufferSource,
	}
}

// ComputeBaseline runs the chain for a unit baseline with the unit's own
// configured buffer.
func (c Calculator) ComputeBaseline(b UnitBaseline, ap generic.Value) UnitMetrics {
	return c.Compute(ChainInput{
		Unit:         b.Unit,
		AP:           ap,
		FTEOn:        b.FTEOn,
		BacklogStart: b.BacklogStart,
		BufferFTE:    b.BufferFTE,
		BufferSource: BufferConfigured,
		Productivity: ComputeProductivity(b),
	})
}
