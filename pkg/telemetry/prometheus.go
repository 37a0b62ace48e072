// Package telemetry provides a Prometheus-backed dashboard.Telemetry.
package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-adboard/components/dashboard"
)

// Read outcomes exported on the reads counter.
const (
	OutcomeFailed = "failed"
	OutcomeStale  = "stale"
)

// Prometheus counts recorded events by name and stats reads by outcome.
type Prometheus struct {
	events *prometheus.CounterVec
	reads  *prometheus.CounterVec
}

var _ dashboard.Telemetry = (*Prometheus)(nil)

// NewPrometheus registers the counters on reg. A nil reg uses a private registry.
func NewPrometheus(namespace string, reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	p := &Prometheus{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Dashboard engine events by name.",
		}, []string{"event"}),
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stats_reads_total",
			Help:      "Statistics reads that failed or were discarded as stale.",
		}, []string{"read", "outcome"}),
	}
	for _, c := range []prometheus.Collector{p.events, p.reads} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Record implements dashboard.Telemetry.
func (p *Prometheus) Record(_ context.Context, event string, payload map[string]any) {
	p.events.WithLabelValues(event).Inc()
	read, _ := payload["read"].(string)
	if read == "" {
		return
	}
	switch event {
	case dashboard.EventStatsReadFailed:
		p.reads.WithLabelValues(read, OutcomeFailed).Inc()
	case dashboard.EventStatsStale:
		p.reads.WithLabelValues(read, OutcomeStale).Inc()
	}
}

// Events exposes the events counter for tests and custom exporters.
func (p *Prometheus) Events() *prometheus.CounterVec { return p.events }

// Reads exposes the reads counter.
func (p *Prometheus) Reads() *prometheus.CounterVec { return p.reads }
