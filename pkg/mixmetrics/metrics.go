// Package mixmetrics holds the Prometheus metrics a simulation run
// exposes while it executes, grounded on the isolated-registry pattern
// pkg/p2pnet's Metrics uses: every Metrics instance owns its own
// prometheus.Registry instead of the process-global default, so two
// concurrent sessions (internal/simrunner.Session) never collide and a
// test can gather one session's counters without seeing another's.
package mixmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the custom mixsim Prometheus metrics for one session.
type Metrics struct {
	Registry *prometheus.Registry

	// Message lifecycle
	MessagesCreatedTotal   prometheus.Counter
	MessagesDeliveredTotal *prometheus.CounterVec

	// Mix pipeline
	PacketsEmittedTotal      *prometheus.CounterVec
	QueueSize                *prometheus.GaugeVec
	MixPropagationSeconds    prometheus.Histogram
	DisseminationSeconds     prometheus.Histogram
	PacketsRejectedTotal     *prometheus.CounterVec

	// Gossip overlay
	DuplicatesDroppedTotal *prometheus.CounterVec
	PeeringDegree          *prometheus.GaugeVec

	// Iteration/session bookkeeping
	IterationsTotal       *prometheus.CounterVec
	IterationDurationSeconds prometheus.Histogram

	// Build info
	BuildInfo *prometheus.GaugeVec
}

// NewMetrics creates a Metrics instance registered on its own isolated
// registry. version identifies the running mixsim binary.
func NewMetrics(version, goVersion string) *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		MessagesCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mixsim_messages_created_total",
			Help: "Total number of messages originated by node sender lotteries.",
		}),
		MessagesDeliveredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mixsim_messages_delivered_total",
				Help: "Total number of message deliveries observed at a node.",
			},
			[]string{"node"},
		),

		PacketsEmittedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mixsim_packets_emitted_total",
				Help: "Total number of Sphinx packets emitted by the GTR pipeline, by frame kind.",
			},
			[]string{"kind"},
		),
		QueueSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mixsim_temporal_mix_queue_size",
				Help: "Current size of a node's temporal-mix queue.",
			},
			[]string{"node", "mix_type"},
		),
		MixPropagationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mixsim_mix_propagation_seconds",
			Help:    "Virtual-time seconds between message creation and its first exit from the mix pipeline.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
		}),
		DisseminationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mixsim_dissemination_seconds",
			Help:    "Virtual-time seconds between message creation and delivery to every node.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 20),
		}),
		PacketsRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mixsim_packets_rejected_total",
				Help: "Total number of Sphinx packets rejected during unwrapping, by reason.",
			},
			[]string{"reason"},
		),

		DuplicatesDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mixsim_gossip_duplicates_dropped_total",
				Help: "Total number of gossip messages dropped as duplicates.",
			},
			[]string{"overlay"},
		),
		PeeringDegree: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mixsim_peering_degree",
				Help: "Current number of connections a node holds on an overlay.",
			},
			[]string{"node", "overlay"},
		),

		IterationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mixsim_iterations_total",
				Help: "Total number of paramset iterations run, by outcome.",
			},
			[]string{"outcome"},
		),
		IterationDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mixsim_iteration_duration_seconds",
			Help:    "Wall-clock seconds spent running one iteration.",
			Buckets: prometheus.DefBuckets,
		}),

		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mixsim_info",
				Help: "Build information for the running mixsim instance.",
			},
			[]string{"version", "go_version"},
		),
	}

	reg.MustRegister(
		m.MessagesCreatedTotal,
		m.MessagesDeliveredTotal,
		m.PacketsEmittedTotal,
		m.QueueSize,
		m.MixPropagationSeconds,
		m.DisseminationSeconds,
		m.PacketsRejectedTotal,
		m.DuplicatesDroppedTotal,
		m.PeeringDegree,
		m.IterationsTotal,
		m.IterationDurationSeconds,
		m.BuildInfo,
	)

	m.BuildInfo.WithLabelValues(version, goVersion).Set(1)

	return m
}

// Handler returns an http.Handler serving this session's metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
