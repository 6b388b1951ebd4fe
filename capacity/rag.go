package capacity

import "github.com/warp/capacity-engine/generic"

// =============================================================================
// RAG CLASSIFIER - Utilization -> risk tier
// =============================================================================

// Default utilization thresholds.
var (
	DefaultGreenThreshold = generic.MustValue("0.75")
	DefaultAmberThreshold = generic.MustValue("0.85")
)

// Thresholds split utilization into tiers:
//
//	u >= Amber          RED
//	Green <= u < Amber  AMBER
//	u < Green           GREEN
//	undefined           UNDEFINED
type Thresholds struct {
	Green generic.Value `json:"green"`
	Amber generic.Value `json:"amber"`
}

// DefaultThresholds returns the 0.75 / 0.85 thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Green: DefaultGreenThreshold, Amber: DefaultAmberThreshold}
}

// Validate requires both thresholds defined and Green < Amber.
func (t Thresholds) Validate() error {
	if !t.Green.IsDefined() || !t.Amber.IsDefined() || !t.Green.LessThan(t.Amber) {
		return &generic.ThresholdError{Green: t.Green, Amber: t.Amber}
	}
	return nil
}

// Classify maps a utilization to its tier.
func (t Thresholds) Classify(utilization generic.Value) generic.RAG {
	switch {
	case !utilization.IsDefined():
		return generic.RAGUndefined
	case utilization.GreaterThanOrEqual(t.Amber):
		return generic.RAGRed
	case utilization.GreaterThanOrEqual(t.Green):
		return generic.RAGAmber
	default:
		return generic.RAGGreen
	}
}
