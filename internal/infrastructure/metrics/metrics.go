package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SnapshotCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oracleflow_snapshot_cache_hits_total",
		Help: "Snapshot requests served from the result cache.",
	})

	MedianFetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oracleflow_median_fetch_failures_total",
		Help: "Oracle median fetch attempts that failed.",
	})

	SamplesInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oracleflow_samples_inserted_total",
		Help: "Price samples written to the time-series store.",
	})

	RowsPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oracleflow_rows_pruned_total",
		Help: "Price samples deleted by retention pruning.",
	})

	BackfillFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oracleflow_history_backfill_fallbacks_total",
		Help: "History requests answered from the backfill provider.",
	})
)
