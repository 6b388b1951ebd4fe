package capacity

import "github.com/warp/capacity-engine/generic"

// =============================================================================
// PRODUCTIVITY MODEL - P_ref, CPF, P_eff
// =============================================================================

// Productivity is the output of the productivity model for one unit.
type Productivity struct {
	PRef generic.Value
	CPF  generic.Value
	PEff generic.Value
}

// ComputeProductivity runs the three-step pipeline:
//
//	P_ref = completed_points_baseline / avg_fte_baseline   (undefined unless avg_fte_baseline > 0)
//	CPF   = wbar_current / wbar_baseline                   (1 unless wbar_baseline > 0)
//	P_eff = P_ref / CPF                                    (0 unless CPF > 0)
//
// An undefined P_ref gives an undefined P_eff whatever CPF is.
func ComputeProductivity(b UnitBaseline) Productivity {
	pRef := b.CompletedPointsBaseline.DivPositive(b.AvgFTEBaseline)
	cpf := ComplexityPressure(b.WbarCurrent, b.WbarBaseline)
	return Productivity{
		PRef: pRef,
		CPF:  cpf,
		PEff: EffectiveProductivity(pRef, cpf),
	}
}

// ComplexityPressure is wbar_current / wbar_baseline, or the neutral 1
// when the baseline weight is not positive.
func ComplexityPressure(wbarCurrent, wbarBaseline generic.Value) generic.Value {
	if !wbarBaseline.IsPositive() {
		return generic.One
	}
	return wbarCurrent.Div(wbarBaseline)
}

// EffectiveProductivity is P_ref / CPF, or 0 when CPF is not positive.
func EffectiveProductivity(pRef, cpf generic.Value) generic.Value {
	if !pRef.IsDefined() {
		return generic.Undefined
	}
	if !cpf.IsPositive() {
		return generic.Zero
	}
	return pRef.Div(cpf)
}
