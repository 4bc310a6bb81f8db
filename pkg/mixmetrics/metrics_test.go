package mixmetrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("0.1.0", "go1.26.0")
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
	if m.Registry == nil {
		t.Fatal("Registry is nil")
	}
}

func TestMetricsIsolation(t *testing.T) {
	m1 := NewMetrics("0.1.0", "go1.26.0")
	m2 := NewMetrics("0.2.0", "go1.26.0")

	m1.MessagesCreatedTotal.Inc()

	families, err := m2.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, f := range families {
		if f.GetName() == "mixsim_messages_created_total" {
			for _, metric := range f.GetMetric() {
				if metric.GetCounter().GetValue() != 0 {
					t.Error("m2 registry saw m1 counter value; registries are not isolated")
				}
			}
		}
	}
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics("test", "go1.26.0")

	m.MessagesCreatedTotal.Inc()
	m.MessagesDeliveredTotal.WithLabelValues("0").Inc()
	m.PacketsEmittedTotal.WithLabelValues("sphinx").Inc()
	m.QueueSize.WithLabelValues("0", "NONE").Set(3)
	m.MixPropagationSeconds.Observe(0.2)
	m.DisseminationSeconds.Observe(1.5)
	m.PacketsRejectedTotal.WithLabelValues("bad_mac").Inc()
	m.DuplicatesDroppedTotal.WithLabelValues("broadcast").Inc()
	m.PeeringDegree.WithLabelValues("0", "mix").Set(2)
	m.IterationsTotal.WithLabelValues("ok").Inc()
	m.IterationDurationSeconds.Observe(0.05)

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	expected := map[string]bool{
		"mixsim_messages_created_total":          false,
		"mixsim_messages_delivered_total":        false,
		"mixsim_packets_emitted_total":           false,
		"mixsim_temporal_mix_queue_size":         false,
		"mixsim_mix_propagation_seconds":         false,
		"mixsim_dissemination_seconds":           false,
		"mixsim_packets_rejected_total":          false,
		"mixsim_gossip_duplicates_dropped_total": false,
		"mixsim_peering_degree":                  false,
		"mixsim_iterations_total":                false,
		"mixsim_iteration_duration_seconds":      false,
		"mixsim_info":                            false,
	}

	for _, f := range families {
		if _, ok := expected[f.GetName()]; ok {
			expected[f.GetName()] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("metric family %q not found in gathered output", name)
		}
	}
}

func TestMetricsBuildInfo(t *testing.T) {
	m := NewMetrics("1.2.3", "go1.26.0")

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, f := range families {
		if f.GetName() != "mixsim_info" {
			continue
		}
		for _, metric := range f.GetMetric() {
			if metric.GetGauge().GetValue() != 1 {
				t.Errorf("build info gauge value = %f, want 1", metric.GetGauge().GetValue())
			}
		}
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics("0.1.0", "go1.26.0")
	m.MessagesCreatedTotal.Inc()

	handler := m.Handler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("handler returned status %d, want 200", rec.Code)
	}

	body, _ := io.ReadAll(rec.Body)
	output := string(body)
	if !strings.Contains(output, "mixsim_messages_created_total") {
		t.Error("handler output missing mixsim_messages_created_total")
	}
	if !strings.Contains(output, "go_goroutines") {
		t.Error("handler output missing go_goroutines (Go runtime collector)")
	}
}

func TestMetricsRegistryDoesNotUseGlobal(t *testing.T) {
	m := NewMetrics("test", "go1.26.0")
	if m.Registry == prometheus.DefaultRegisterer {
		t.Error("Metrics registry is the global DefaultRegisterer; should be isolated")
	}
}
