// Package metrics instruments gateway calls with Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder counts gateway calls and observes their latency. One Recorder is
// shared by all connectors registered in a process.
type Recorder struct {
	calls    *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewRecorder registers the collectors on reg. Pass
// prometheus.DefaultRegisterer outside tests.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_calls_total",
			Help: "Gateway HTTP calls by connector, flow and HTTP status.",
		}, []string{"connector", "flow", "http_status"}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_outcomes_total",
			Help: "Business outcomes by connector, flow and gateway return code.",
		}, []string{"connector", "flow", "return_code"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_call_duration_seconds",
			Help:    "Gateway call latency by connector and flow.",
			Buckets: prometheus.DefBuckets,
		}, []string{"connector", "flow"}),
	}
}

// ObserveCall records one completed HTTP exchange.
func (r *Recorder) ObserveCall(connector, flow string, httpStatus int, elapsed time.Duration) {
	r.calls.WithLabelValues(connector, flow, strconv.Itoa(httpStatus)).Inc()
	r.latency.WithLabelValues(connector, flow).Observe(elapsed.Seconds())
}

// ObserveOutcome records the business-level outcome of a parsed response.
func (r *Recorder) ObserveOutcome(connector, flow, returnCode string) {
	r.outcomes.WithLabelValues(connector, flow, returnCode).Inc()
}
