package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestEngineMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewEngineMetrics(reg)

	metrics.ObservePoll("orders", 120*time.Millisecond, nil)
	metrics.ObservePoll("orders", 80*time.Millisecond, errors.New("boom"))
	metrics.IncPushEvent("order_item_updated")
	metrics.ObserveMutation("update_quantity", nil)
	metrics.ObserveMutation("delete", errors.New("refused"))
	metrics.IncIntegrityFault()
	metrics.IncClosureReset()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	checks := []struct {
		name, label, value string
		want               float64
	}{
		{"poll_success", "key", "orders", 1},
		{"poll_failure", "key", "orders", 1},
		{"push_events_received", "event", "order_item_updated", 1},
		{"row_mutations_issued", "op", "update_quantity", 1},
		{"row_mutations_failed", "op", "delete", 1},
	}
	for _, check := range checks {
		got, err := fetchCounterValue(mfs, check.name, check.label, check.value)
		if err != nil {
			t.Fatalf("fetch %s: %v", check.name, err)
		}
		if got != check.want {
			t.Fatalf("%s: expected %f, got %f", check.name, check.want, got)
		}
	}
}

func TestEngineMetricsNilGuards(t *testing.T) {
	var metrics *EngineMetrics
	metrics.ObservePoll("orders", time.Second, nil)
	metrics.IncPushEvent("order_created")
	metrics.IncPushDropped()
	metrics.ObserveMutation("delete", nil)
	metrics.IncIntegrityFault()
	metrics.IncClosureReset()

	unregistered := NewEngineMetrics(nil)
	unregistered.ObservePoll("orders", time.Second, nil)
	unregistered.IncClosureReset()
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return metric.GetCounter().GetValue(), nil
				}
			}
		}
		return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
	}
	return 0, fmt.Errorf("metric %q not found", name)
}
