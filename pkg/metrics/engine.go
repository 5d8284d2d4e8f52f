package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records reconciliation activity: poll cycles, push events,
// row mutations, and closure resets.
type EngineMetrics struct {
	pollDuration  *prometheus.HistogramVec
	pollSuccess   *prometheus.CounterVec
	pollFailure   *prometheus.CounterVec
	pushEvents    *prometheus.CounterVec
	pushDropped   prometheus.Counter
	mutations     *prometheus.CounterVec
	mutationFails *prometheus.CounterVec
	integrity     prometheus.Counter
	closureResets prometheus.Counter
}

// NewEngineMetrics registers the engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	pollDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poll_duration_seconds",
		Help:    "Duration of snapshot poll cycles in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"key"})
	pollSuccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_success",
		Help: "Successful snapshot refreshes.",
	}, []string{"key"})
	pollFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_failure",
		Help: "Failed snapshot refreshes.",
	}, []string{"key"})
	pushEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "push_events_received",
		Help: "Push events received from the event channel.",
	}, []string{"event"})
	pushDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "push_events_dropped",
		Help: "Push events that could not be decoded.",
	})
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "row_mutations_issued",
		Help: "Order-item row mutations sent upstream.",
	}, []string{"op"})
	mutationFails := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "row_mutations_failed",
		Help: "Order-item row mutations rejected or timed out.",
	}, []string{"op"})
	integrity := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "integrity_faults",
		Help: "Reconciliation faults that forced a full refetch.",
	})
	closureResets := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "closure_resets_fired",
		Help: "One-shot table-closure resets performed.",
	})
	reg.MustRegister(pollDuration, pollSuccess, pollFailure, pushEvents, pushDropped, mutations, mutationFails, integrity, closureResets)
	return &EngineMetrics{
		pollDuration:  pollDuration,
		pollSuccess:   pollSuccess,
		pollFailure:   pollFailure,
		pushEvents:    pushEvents,
		pushDropped:   pushDropped,
		mutations:     mutations,
		mutationFails: mutationFails,
		integrity:     integrity,
		closureResets: closureResets,
	}
}

// ObservePoll records one refresh of the named snapshot key.
func (m *EngineMetrics) ObservePoll(key string, duration time.Duration, err error) {
	if m == nil || m.pollDuration == nil {
		return
	}
	label := normalizeLabel(key)
	m.pollDuration.WithLabelValues(label).Observe(duration.Seconds())
	if err != nil {
		m.pollFailure.WithLabelValues(label).Inc()
		return
	}
	m.pollSuccess.WithLabelValues(label).Inc()
}

// IncPushEvent counts a decoded push event by name.
func (m *EngineMetrics) IncPushEvent(event string) {
	if m == nil || m.pushEvents == nil {
		return
	}
	m.pushEvents.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncPushDropped counts a push payload that failed to decode.
func (m *EngineMetrics) IncPushDropped() {
	if m == nil || m.pushDropped == nil {
		return
	}
	m.pushDropped.Inc()
}

// ObserveMutation counts one issued row mutation and whether it failed.
func (m *EngineMetrics) ObserveMutation(op string, err error) {
	if m == nil || m.mutations == nil {
		return
	}
	label := normalizeLabel(op)
	m.mutations.WithLabelValues(label).Inc()
	if err != nil {
		m.mutationFails.WithLabelValues(label).Inc()
	}
}

// IncIntegrityFault counts a data-integrity fault.
func (m *EngineMetrics) IncIntegrityFault() {
	if m == nil || m.integrity == nil {
		return
	}
	m.integrity.Inc()
}

// IncClosureReset counts a fired one-shot reset.
func (m *EngineMetrics) IncClosureReset() {
	if m == nil || m.closureResets == nil {
		return
	}
	m.closureResets.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
