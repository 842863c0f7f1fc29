package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shoplist"

// Generation outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeCanceled  = "canceled"
	OutcomeCached    = "cached"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status class.",
		},
		[]string{"route", "code"},
	)

	generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "List generations by outcome.",
		},
		[]string{"outcome"},
	)

	generatedItems = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generated_items_total",
			Help:      "Items inserted by list generation.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, generations, generatedItems)
	})
}

// IncHTTP counts one request for a route pattern and status code class ("2xx", "5xx").
func IncHTTP(route, code string) {
	httpRequests.WithLabelValues(route, code).Inc()
}

// ObserveGeneration records a finished generation and the items it produced.
func ObserveGeneration(outcome string, items int) {
	generations.WithLabelValues(outcome).Inc()
	if items > 0 {
		generatedItems.Add(float64(items))
	}
}
