package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	UpstreamRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamcomb_upstream_requests_total",
		Help: "Upstream requests by host, route (direct or proxy) and outcome",
	}, []string{"host", "route", "status"})

	UpstreamDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "streamcomb_upstream_request_duration_seconds",
		Help:    "Upstream request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"host"})

	CacheReads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamcomb_cache_reads_total",
		Help: "Cache gate reads by result (hit, miss, expired, fingerprint, stale)",
	}, []string{"result"})

	DroppedEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamcomb_dropped_events_total",
		Help: "Events dropped during normalization",
	}, []string{"provider", "reason"})

	NormalizeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "streamcomb_normalize_duration_seconds",
		Help:    "Time spent normalizing one upstream payload",
		Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5, 10, 30},
	}, []string{"provider"})

	PublishedEvents = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "streamcomb_published_events",
		Help: "Events in the currently published bundle",
	}, []string{"provider"})

	Refreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamcomb_refreshes_total",
		Help: "Orchestrator refreshes by outcome (fresh, cached, degraded, failed, discarded)",
	}, []string{"provider", "outcome"})
)

func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		UpstreamRequests,
		UpstreamDuration,
		CacheReads,
		DroppedEvents,
		NormalizeDuration,
		PublishedEvents,
		Refreshes,
	)
}
