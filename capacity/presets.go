package capacity

import (
	"strings"

	"github.com/warp/capacity-engine/generic"
)

// DefaultCategoryWeights is the starting weight table for manual entry.
func DefaultCategoryWeights() []CategoryWeight {
	return []CategoryWeight{
		{Category: "Standard Case Work", Weight: generic.MustValue("1.0")},
		{Category: "Full Locate / Long Locate", Weight: generic.MustValue("2.0")},
		{Category: "METS / Interstate Complexity", Weight: generic.MustValue("1.5")},
		{Category: "Enforcement / R&M Actions", Weight: generic.MustValue("1.3")},
		{Category: "Customer Contacts - Telephone", Weight: generic.MustValue("0.2")},
		{Category: "Customer Contacts - In Person", Weight: generic.MustValue("0.5")},
		{Category: "Court / Hearing Events", Weight: generic.MustValue("1.2")},
		{Category: "Financial Adjustments / Reconciliations", Weight: generic.MustValue("0.6")},
	}
}

// DefaultUnitBaseline is the manual-mode starting point.
func DefaultUnitBaseline() UnitBaseline {
	return UnitBaseline{
		FTEOn:                   generic.MustValue("10"),
		BufferFTE:               generic.MustValue("0.30"),
		BacklogStart:            generic.Zero,
		CompletedPointsBaseline: generic.MustValue("10000"),
		AvgFTEBaseline:          generic.MustValue("12"),
		WbarCurrent:             generic.MustValue("1.80"),
		WbarBaseline:            generic.MustValue("1.70"),
		AP:                      generic.MustValue("8000"),
	}
}

// NormalizeUnitName strips whitespace and the " County" suffix so that
// "Hennepin County" and "Hennepin" join.
func NormalizeUnitName(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.TrimSpace(s), " County", ""))
}
