/*
Package metrics exposes Prometheus counters/histograms for the engine's
own operational health — ticks, flushes, notifications fired, purchases —
distinct from the out-of-scope "statistics aggregation for display" (that
is user-facing analytics; this is internal observability for whoever runs
the daemon).
*/
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Ticks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dayclock",
		Name:      "ticks_total",
		Help:      "Total number of timer engine ticks processed.",
	})

	FlushDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dayclock",
		Name:      "flush_duration_seconds",
		Help:      "Duration of periodic engine-to-store flushes.",
		Buckets:   prometheus.DefBuckets,
	})

	NotificationsFired = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dayclock",
		Name:      "notifications_fired_total",
		Help:      "Total number of reminder notifications fired.",
	})

	Purchases = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dayclock",
		Name:      "purchases_total",
		Help:      "Total reward purchase attempts by outcome.",
	}, []string{"outcome"})

	Finalizations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dayclock",
		Name:      "day_finalizations_total",
		Help:      "Total number of day plans finalized.",
	})
)

// Registry bundles the collectors for registration with an
// http.Handler-backed exporter (see api/server.go).
func Registry() *prometheus.Registry {
	r := prometheus.NewRegistry()
	r.MustRegister(Ticks, FlushDuration, NotificationsFired, Purchases, Finalizations)
	return r
}
