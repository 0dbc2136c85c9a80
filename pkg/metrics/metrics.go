package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Reconciler metrics
	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_reconciliation_duration_seconds",
			Help:    "Time taken for a fleet-wide reconciliation cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_reconciliation_cycles_total",
			Help: "Total number of reconciliation cycles completed",
		},
	)

	EndpointReconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_endpoint_reconcile_duration_seconds",
			Help:    "Time taken to converge a single endpoint's subscriptions",
			Buckets: prometheus.DefBuckets,
		},
	)

	EndpointErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_endpoint_errors_total",
			Help: "Total number of endpoint-level reconcile failures by reason",
		},
		[]string{"reason"},
	)

	SubscriptionOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_subscription_ops_total",
			Help: "Total number of subscription create/remove/keep operations",
		},
		[]string{"op", "result"},
	)

	// Ingest metrics
	EventsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_received_total",
			Help: "Total number of events received by path and family",
		},
		[]string{"path", "family"},
	)

	EventsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_dropped_total",
			Help: "Total number of events dropped by reason",
		},
		[]string{"reason"},
	)

	SamplesEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_samples_emitted_total",
			Help: "Total number of sensor samples emitted after dedup",
		},
		[]string{"topic"},
	)

	SamplingDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_sampling_dropped_total",
			Help: "Total number of telemetry events dropped by per-client sampling",
		},
	)

	LaneQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_lane_queue_depth",
			Help: "Current number of queued payloads per lane",
		},
		[]string{"lane"},
	)

	LaneRestartsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_lane_restarts_total",
			Help: "Total number of lanes restarted by the supervisor",
		},
	)

	HTTPResponseDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relay_http_response_duration_seconds",
			Help:    "Time from request accept to the 200 OK response being written",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
	)

	// Bus metrics
	BusDeliveredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_bus_delivered_total",
			Help: "Total number of records delivered to the bus by topic",
		},
		[]string{"topic"},
	)

	BusDeliveryErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_bus_delivery_errors_total",
			Help: "Total number of bus delivery failures by topic",
		},
		[]string{"topic"},
	)

	SchemaErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_schema_errors_total",
			Help: "Total number of records dropped due to schema encode failures",
		},
		[]string{"topic"},
	)

	ClockSkewTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_clock_skew_total",
			Help: "Total number of timestamps replaced by wall-clock due to skew or parse failure",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(ReconciliationCyclesTotal)
	prometheus.MustRegister(EndpointReconcileDuration)
	prometheus.MustRegister(EndpointErrorsTotal)
	prometheus.MustRegister(SubscriptionOpsTotal)
	prometheus.MustRegister(EventsReceivedTotal)
	prometheus.MustRegister(EventsDroppedTotal)
	prometheus.MustRegister(SamplesEmittedTotal)
	prometheus.MustRegister(SamplingDroppedTotal)
	prometheus.MustRegister(LaneQueueDepth)
	prometheus.MustRegister(LaneRestartsTotal)
	prometheus.MustRegister(HTTPResponseDuration)
	prometheus.MustRegister(BusDeliveredTotal)
	prometheus.MustRegister(BusDeliveryErrorsTotal)
	prometheus.MustRegister(SchemaErrorsTotal)
	prometheus.MustRegister(ClockSkewTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
