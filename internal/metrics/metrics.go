package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeValid    = "valid"
	OutcomeInvalid  = "invalid"
	OutcomeUnsigned = "unsigned"
	OutcomeError    = "error"
)

// Recorder counts activations and verifications.
type Recorder interface {
	Activation(outcome string)
	Verification(outcome string)
}

// Noop implements Recorder without emitting anything.
type Noop struct{}

func (Noop) Activation(string)   {}
func (Noop) Verification(string) {}

// Prom implements Recorder on its own registry.
type Prom struct {
	registry      *prometheus.Registry
	activations   *prometheus.CounterVec
	verifications *prometheus.CounterVec
}

func NewProm() *Prom {
	p := &Prom{
		registry: prometheus.NewRegistry(),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "licenseagent",
			Name:      "activations_total",
			Help:      "Activation attempts by outcome",
		}, []string{"outcome"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "licenseagent",
			Name:      "verifications_total",
			Help:      "Signature checks of stored licenses by outcome",
		}, []string{"outcome"}),
	}
	p.registry.MustRegister(
		p.activations,
		p.verifications,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prom) Activation(outcome string) {
	p.activations.WithLabelValues(outcome).Inc()
}

func (p *Prom) Verification(outcome string) {
	p.verifications.WithLabelValues(outcome).Inc()
}

// Registry exposes the underlying registry for tests and extra collectors.
func (p *Prom) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the Prometheus text format.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
