package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_feed_batches_total",
		Help: "Feed batches by category and outcome (ok, error, stale)",
	}, []string{"category", "outcome"})

	itemsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_feed_items_skipped_total",
		Help: "Items counted against the cursor but not displayed (null, dead, deleted or failed)",
	}, []string{"category"})

	indexErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "folio_feed_index_errors_total",
		Help: "Failed attempts to load the ranked ID lists",
	})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "folio_feed_batch_duration_seconds",
		Help:    "Time spent fetching the item details of one batch",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms up to ~5s
	})
)
