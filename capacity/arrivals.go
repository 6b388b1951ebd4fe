package capacity

import (
	"strings"

	"github.com/warp/capacity-engine/generic"
)

// =============================================================================
// ARRIVAL AGGREGATOR - Arrivals x weights -> Arrival Points
// =============================================================================

// ArrivalPoints is the aggregated AP per unit, in first-seen unit order.
type ArrivalPoints struct {
	Units       []string
	AP          map[string]generic.Value
	Corrections []generic.Correction
}

// Get returns the AP of a unit. ok is false when the unit had no arrivals.
func (a ArrivalPoints) Get(unit string) (generic.Value, bool) {
	v, ok := a.AP[strings.TrimSpace(unit)]
	return v, ok
}

// AggregateArrivals computes AP[unit] = Σ count × weight.
//
// Each record uses the catalog's override for its category when one exists,
// otherwise the record's own weight. An undefined count or weight counts as
// 0 and is reported as a correction. Rows with a blank unit are skipped.
func AggregateArrivals(arrivals []ArrivalRecord, weights *WeightCatalog) ArrivalPoints {
	result := ArrivalPoints{AP: make(map[string]generic.Value)}

	for i, a := range arrivals {
		unit := strings.TrimSpace(a.Unit)
		if unit == "" {
			continue
		}

		weight := a.Weight
		if weights != nil {
			if w, ok := weights.Override(a.Category); ok {
				weight = w
			}
		}

		count := a.Count
		if !count.IsDefined() {
			count = generic.Zero
			result.Corrections = append(result.Corrections, generic.Correction{
				Table: "arrivals", Row: i + 1, Column: "Count",
			})
		}
		if !weight.IsDefined() {
			weight = generic.Zero
			result.Corrections = append(result.Corrections, generic.Correction{
				Table: "arrivals", Row: i + 1, Column: "Weight",
			})
		}

		points := count.Mul(weight)
		if prior, seen := result.AP[unit]; seen {
			result.AP[unit] = prior.Add(points)
		} else {
			result.Units = append(result.Units, unit)
			result.AP[unit] = points
		}
	}

	return result
}
