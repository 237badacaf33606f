package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewq_queue_fetches_total",
		Help: "Queue fetch cycles by outcome",
	}, []string{"outcome"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reviewq_queue_fetch_duration_seconds",
		Help:    "Duration of queue fetches in seconds",
		Buckets: prometheus.DefBuckets,
	})

	staleResultsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reviewq_queue_stale_results_total",
		Help: "Fetch results discarded because a newer query was issued",
	})

	retiresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewq_queue_retires_total",
		Help: "Retire requests by outcome",
	}, []string{"outcome"})

	routesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reviewq_queue_routes_total",
		Help: "Editor routing decisions by class",
	}, []string{"class"})
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
