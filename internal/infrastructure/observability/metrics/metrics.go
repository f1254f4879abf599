// Package metrics exposes Prometheus instrumentation for the scheduling
// engine. Metrics are global with bounded label cardinality; all recording
// helpers are safe to call from hot paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgercell_cache_lookups_total",
		Help: "Balance cache lookups partitioned by outcome (hit, miss, blocked)",
	}, []string{"outcome"})

	batchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgercell_batches_total",
		Help: "Remote batches issued, partitioned by strategy (point, row, column, range)",
	}, []string{"strategy"})

	batchMembers = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledgercell_batch_members",
		Help:    "Distribution of pending formula requests satisfied per remote call",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024},
	})

	inflightHeavy = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ledgercell_inflight_heavy_calls",
		Help: "Remote range/column calls currently holding a heavy concurrency slot",
	})

	inflightLight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ledgercell_inflight_light_calls",
		Help: "Remote point/metadata calls currently holding a light concurrency slot",
	})

	remoteDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledgercell_remote_duration_seconds",
		Help:    "Remote ledger service call latency by strategy",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"strategy"})

	remoteFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledgercell_remote_failures_total",
		Help: "Remote call failures by taxonomy kind (transient, auth, query)",
	}, []string{"kind"})

	guardBlockedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledgercell_guard_blocked_total",
		Help: "Formula evaluations short-circuited by the transition guard",
	})
)

func init() {
	prometheus.MustRegister(
		cacheLookupsTotal, batchesTotal, batchMembers,
		inflightHeavy, inflightLight,
		remoteDuration, remoteFailuresTotal, guardBlockedTotal,
	)
}

// RecordCacheLookup counts one cache lookup outcome: "hit", "miss", "blocked".
func RecordCacheLookup(outcome string) {
	cacheLookupsTotal.WithLabelValues(outcome).Inc()
}

// RecordBatch counts one dispatched batch and its member fan-out.
func RecordBatch(strategy string, members int) {
	batchesTotal.WithLabelValues(strategy).Inc()
	batchMembers.Observe(float64(members))
}

// HeavyAcquired and HeavyReleased track the heavy in-flight gauge.
func HeavyAcquired() { inflightHeavy.Inc() }
func HeavyReleased() { inflightHeavy.Dec() }

// LightAcquired and LightReleased track the light in-flight gauge.
func LightAcquired() { inflightLight.Inc() }
func LightReleased() { inflightLight.Dec() }

// ObserveRemoteDuration records remote call latency in seconds.
func ObserveRemoteDuration(strategy string, seconds float64) {
	remoteDuration.WithLabelValues(strategy).Observe(seconds)
}

// RecordRemoteFailure counts a classified remote failure.
func RecordRemoteFailure(kind string) {
	remoteFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordGuardBlocked counts a guard-blocked evaluation.
func RecordGuardBlocked() {
	guardBlockedTotal.Inc()
}
