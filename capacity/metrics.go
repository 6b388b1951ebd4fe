package capacity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recomputeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "capacity_recompute_duration_seconds",
		Help:    "Duration of full recomputations",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}, []string{"path"})

	unitsByRAG = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "capacity_units_by_rag",
		Help: "Number of units in each RAG tier after the latest recompute",
	}, []string{"rag"})

	stateUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "capacity_state_utilization",
		Help: "Statewide utilization after the latest recompute (NaN when undefined)",
	})

	snapshotsRequested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "capacity_snapshot_requests_total",
		Help: "Total number of snapshot requests appended to history",
	})
)

func recordRAG(units []UnitMetrics, state StateMetrics) {
	counts := map[string]int{}
	for _, u := range units {
		counts[string(u.RAG)]++
	}
	for _, tier := range []string{"GREEN", "AMBER", "RED", "UNDEFINED"} {
		unitsByRAG.WithLabelValues(tier).Set(float64(counts[tier]))
	}
	stateUtilization.Set(state.Utilization.Float64())
}
