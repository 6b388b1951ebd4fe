package generic

import "time"

// =============================================================================
// SNAPSHOT - One row of the history ledger
// =============================================================================

// Snapshot is an immutable history row: a unit's or the state's metrics,
// tagged with the period label it was taken for.
//
// Seq is the ledger position assigned by the store on append (1-based).
// It never changes once assigned.
type Snapshot struct {
	ID         string    `json:"id"`
	Seq        int64     `json:"seq"`
	Period     string    `json:"period"`
	Level      Level     `json:"level"`
	Name       string    `json:"name"`
	RecordedAt time.Time `json:"recorded_at"`
	Metrics    MetricSet `json:"metrics"`
}

// SameContent compares everything except the store-assigned fields.
func (s Snapshot) SameContent(o Snapshot) bool {
	return s.ID == o.ID &&
		s.Period == o.Period &&
		s.Level == o.Level &&
		s.Name == o.Name &&
		s.RecordedAt.Equal(o.RecordedAt) &&
		s.Metrics.Equal(o.Metrics)
}
