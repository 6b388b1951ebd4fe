/*
Package generic provides the core primitives of the capacity engine.

PURPOSE:
  This package holds the pieces that do not know anything about counties,
  case categories or staffing formulas: the defined/undefined Value, the
  metric record every layer passes around, the append-only history ledger
  and its persistence interface, and the period calendar.

KEY CONCEPTS IN THIS FILE (types.go):
  - MetricSet: the full field set of a unit or statewide metrics record
  - RAG: the risk tier derived from utilization
  - Level: whether a history row describes a unit or the state
  - Correction: a silently coerced input cell

DESIGN PRINCIPLES:
  1. Undefined is explicit: Value, never float NaN
  2. Precision: decimal.Decimal under every Value
  3. Append-only history: Ledger has no Update and no Delete
  4. Derived records carry no identity beyond their unit key

SEE ALSO:
  - value.go: Value arithmetic and encoding
  - ledger.go: History ledger
  - capacity/: The formula chain that fills a MetricSet
*/
package generic

// =============================================================================
// RAG - Risk tier
// =============================================================================

// RAG is the risk tier derived from utilization.
type RAG string

const (
	RAGGreen     RAG = "GREEN"
	RAGAmber     RAG = "AMBER"
	RAGRed       RAG = "RED"
	RAGUndefined RAG = "UNDEFINED"
)

// ParseRAG reads a tier from a table cell. Blank or unknown text returns ok=false.
func ParseRAG(s string) (RAG, bool) {
	switch RAG(s) {
	case RAGGreen, RAGAmber, RAGRed, RAGUndefined:
		return RAG(s), true
	}
	return "", false
}

// =============================================================================
// METRIC SET - Shared field shape of unit and state records
// =============================================================================

// MetricSet is the field set shared by unit metrics, state metrics and
// history snapshots. For the state record CPF, PRef and PEff are undefined.
type MetricSet struct {
	AP           Value `json:"ap"`
	CPF          Value `json:"cpf"`
	PRef         Value `json:"p_ref"`
	PEff         Value `json:"p_eff"`
	FTEOn        Value `json:"fte_on"`
	CapacityEff  Value `json:"capacity_eff"`
	Utilization  Value `json:"utilization"`
	BacklogStart Value `json:"backlog_start"`
	BacklogEnd   Value `json:"backlog_end"`
	FTERequired  Value `json:"fte_required"`
	Gap          Value `json:"gap"`
	RAG          RAG   `json:"rag"`
}

// Equal compares every field with Value semantics.
func (m MetricSet) Equal(o MetricSet) bool {
	return m.AP.Equal(o.AP) &&
		m.CPF.Equal(o.CPF) &&
		m.PRef.Equal(o.PRef) &&
		m.PEff.Equal(o.PEff) &&
		m.FTEOn.Equal(o.FTEOn) &&
		m.CapacityEff.Equal(o.CapacityEff) &&
		m.Utilization.Equal(o.Utilization) &&
		m.BacklogStart.Equal(o.BacklogStart) &&
		m.BacklogEnd.Equal(o.BacklogEnd) &&
		m.FTERequired.Equal(o.FTERequired) &&
		m.Gap.Equal(o.Gap) &&
		m.RAG == o.RAG
}

// =============================================================================
// LEVEL - Granularity of a history row
// =============================================================================

type Level string

const (
	LevelUnit  Level = "Unit"
	LevelState Level = "State"
)

// ParseLevel reads a level cell. Older exports wrote "County" for unit rows.
func ParseLevel(s string) (Level, bool) {
	switch s {
	case "Unit", "County":
		return LevelUnit, true
	case "State":
		return LevelState, true
	}
	return "", false
}

// =============================================================================
// CORRECTION - Coerced input
// =============================================================================

// Correction records an input cell that was not a number and was coerced.
// Corrections are informational; they never stop a computation.
type Correction struct {
	Table  string `json:"table"`
	Row    int    `json:"row"`
	Column string `json:"column"`
	Raw    string `json:"raw"`
}
