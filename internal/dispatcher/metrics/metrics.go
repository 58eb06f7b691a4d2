package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const MetricPrefix = "engine_dispatch_"

// Metrics holds the counters updated by the admission controller and the client cache.
// All methods are safe for concurrent use; a nil *Metrics records nothing.
type Metrics struct {
	admissionDecisions *prometheus.CounterVec
	admissionErrors    *prometheus.CounterVec
	cacheRequests      *prometheus.CounterVec
	cacheLoads         *prometheus.CounterVec
	cacheEvictions     prometheus.Counter
}

func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		admissionDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPrefix + "admission_decisions_total",
				Help: "Number of admission decisions by engine family and outcome",
			},
			[]string{"family", "admitted"},
		),
		admissionErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPrefix + "admission_errors_total",
				Help: "Number of admission checks that failed with an error",
			},
			[]string{"kind"},
		),
		cacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPrefix + "client_cache_requests_total",
				Help: "Number of client acquisitions by result (hit, miss, volatile)",
			},
			[]string{"result"},
		),
		cacheLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPrefix + "client_cache_loads_total",
				Help: "Number of plugin loads by outcome",
			},
			[]string{"outcome"},
		),
		cacheEvictions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: MetricPrefix + "client_cache_evictions_total",
				Help: "Number of clients evicted from the client cache",
			},
		),
	}
}

func (m *Metrics) RecordAdmission(family string, admitted bool) {
	if m == nil {
		return
	}
	label := "false"
	if admitted {
		label = "true"
	}
	m.admissionDecisions.WithLabelValues(family, label).Inc()
}

func (m *Metrics) RecordAdmissionError(kind string) {
	if m == nil {
		return
	}
	m.admissionErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordCacheRequest(result string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordLoad(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.cacheLoads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordEviction() {
	if m == nil {
		return
	}
	m.cacheEvictions.Inc()
}
