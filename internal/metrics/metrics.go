// Package metrics exposes Prometheus collectors for the polling loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sweeney/button-sensor/internal/logic"
)

const namespace = "button_sensor"

// Metrics holds the daemon's collectors.
type Metrics struct {
	// samples counts polling ticks that produced a reading
	samples prometheus.Counter
	// edges counts surfaced edges by input and direction
	edges *prometheus.CounterVec
	// readErrors counts failed GPIO reads
	readErrors prometheus.Counter
	// publishErrors counts failed MQTT publishes by kind (event, system)
	publishErrors *prometheus.CounterVec
	// inputHigh is 1 while an input's settled level is high
	inputHigh *prometheus.GaugeVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		samples: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Total GPIO samples fed to the debouncers",
		}),
		edges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_total",
			Help:      "Total debounced edges by input and direction",
		}, []string{"input", "edge"}),
		readErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_errors_total",
			Help:      "Total failed GPIO reads",
		}),
		publishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Total failed MQTT publishes by kind",
		}, []string{"kind"}),
		inputHigh: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "input_high",
			Help:      "1 if the input's settled level is high, 0 otherwise",
		}, []string{"input"}),
	}
}

// Sample records one reading fed to the debouncers.
func (m *Metrics) Sample() { m.samples.Inc() }

// ReadError records a failed GPIO read.
func (m *Metrics) ReadError() { m.readErrors.Inc() }

// PublishError records a failed publish; kind is "event" or "system".
func (m *Metrics) PublishError(kind string) {
	m.publishErrors.WithLabelValues(kind).Inc()
}

// Edge records one surfaced edge.
func (m *Metrics) Edge(e logic.Event) {
	m.edges.WithLabelValues(e.Input, e.Edge.String()).Inc()
}

// Observe sets the level gauges from the detector's channel view.
func (m *Metrics) Observe(channels []logic.ChannelStatus) {
	for _, c := range channels {
		v := 0.0
		if c.Stable == logic.StateHigh {
			v = 1
		}
		m.inputHigh.WithLabelValues(c.Name).Set(v)
	}
}
