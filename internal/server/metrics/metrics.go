// Package metrics exposes the server's Prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gophauth"

// Recorder is what the services report to.
type Recorder interface {
	AuthAttempt(flow, outcome string)
	ChallengeIssued(flow string)
	LinkEvent(event string)
	Swept(kind string, n int64)
}

// Nop discards everything.
type Nop struct{}

func (Nop) AuthAttempt(string, string) {}
func (Nop) ChallengeIssued(string)     {}
func (Nop) LinkEvent(string)           {}
func (Nop) Swept(string, int64)        {}

// Prometheus keeps counters in its own registry rather than the global one.
type Prometheus struct {
	registry   *prometheus.Registry
	attempts   *prometheus.CounterVec
	challenges *prometheus.CounterVec
	links      *prometheus.CounterVec
	swept      *prometheus.CounterVec
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Completed register and login attempts by outcome.",
		}, []string{"flow", "outcome"}),
		challenges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenges_issued_total",
			Help:      "Challenges issued per flow.",
		}, []string{"flow"}),
		links: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_events_total",
			Help:      "Device link state transitions.",
		}, []string{"event"}),
		swept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeper_deleted_total",
			Help:      "Rows removed by the hygiene sweeper.",
		}, []string{"kind"}),
	}

	p.registry.MustRegister(
		p.attempts, p.challenges, p.links, p.swept,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) AuthAttempt(flow, outcome string) {
	p.attempts.WithLabelValues(flow, outcome).Inc()
}

func (p *Prometheus) ChallengeIssued(flow string) {
	p.challenges.WithLabelValues(flow).Inc()
}

func (p *Prometheus) LinkEvent(event string) {
	p.links.WithLabelValues(event).Inc()
}

func (p *Prometheus) Swept(kind string, n int64) {
	if n > 0 {
		p.swept.WithLabelValues(kind).Add(float64(n))
	}
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
