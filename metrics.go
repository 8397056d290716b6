package typekv

import "github.com/prometheus/client_golang/prometheus"

var IndexWriteCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "typekv",
	Subsystem: "indexer",
	Name:      "writes",
}, []string{"type", "kind"})

var IndexDeleteCount = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "typekv",
	Subsystem: "indexer",
	Name:      "deletes",
}, []string{"type", "kind"})

var IndexBatchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "typekv",
	Subsystem: "indexer",
	Name:      "batch_failures",
}, []string{"type", "op"})

var QueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "typekv",
	Subsystem: "query",
	Name:      "duration_seconds",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
}, []string{"type", "path"})

var BulkItemResults = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "typekv",
	Subsystem: "bulk",
	Name:      "item_results",
}, []string{"type", "operation", "result"})

func observeQuery(typ, path string) func() {
	timer := prometheus.NewTimer(QueryDuration.WithLabelValues(typ, path))
	return func() { timer.ObserveDuration() }
}

// RegisterMetrics registers every engine collector with reg. Call once.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		IndexWriteCount,
		IndexDeleteCount,
		IndexBatchFailures,
		QueryDuration,
		BulkItemResults,
	)
}
