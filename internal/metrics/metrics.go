// Package metrics holds the Prometheus collectors for the routing workflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "siteflow"

	routedDestinationsTotal = "routed_destinations_total"
	actionTransitionsTotal  = "action_transitions_total"
	fanoutFailuresTotal     = "fanout_failures_total"
	exclusionsTotal         = "exclusions_total"
	staleExclusionsTotal    = "stale_exclusion_reads_total"

	// Labels
	roleLabel  = "role"
	eventLabel = "event"
)

// Collectors counts workflow events. A nil *Collectors is valid and records
// nothing.
type Collectors struct {
	routed      *prometheus.CounterVec
	transitions *prometheus.CounterVec
	fanout      *prometheus.CounterVec
	exclusions  prometheus.Counter
	stale       prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		routed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      routedDestinationsTotal,
				Help:      "number of destinations produced by routing, by role",
			},
			[]string{roleLabel},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      actionTransitionsTotal,
				Help:      "number of action status transitions, by event",
			},
			[]string{eventLabel},
		),
		fanout: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      fanoutFailuresTotal,
				Help:      "number of destinations whose fan-out submission failed",
			},
			[]string{roleLabel},
		),
		exclusions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      exclusionsTotal,
			Help:      "number of sites closed by a terminal approval",
		}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      staleExclusionsTotal,
			Help:      "number of exclusion reads served from cache after a fetch failure",
		}),
	}
	if reg != nil {
		reg.MustRegister(c.routed, c.transitions, c.fanout, c.exclusions, c.stale)
	}
	return c
}

// Routed counts one routed destination.
func (c *Collectors) Routed(role string) {
	if c == nil {
		return
	}
	c.routed.With(prometheus.Labels{roleLabel: role}).Inc()
}

// Transition counts one action transition.
func (c *Collectors) Transition(event string) {
	if c == nil {
		return
	}
	c.transitions.With(prometheus.Labels{eventLabel: event}).Inc()
}

// FanoutFailure counts one failed destination submission.
func (c *Collectors) FanoutFailure(role string) {
	if c == nil {
		return
	}
	c.fanout.With(prometheus.Labels{roleLabel: role}).Inc()
}

// ExclusionRecorded implements exclusion.Metrics.
func (c *Collectors) ExclusionRecorded() {
	if c == nil {
		return
	}
	c.exclusions.Inc()
}

// StaleExclusionServed implements exclusion.Metrics.
func (c *Collectors) StaleExclusionServed() {
	if c == nil {
		return
	}
	c.stale.Inc()
}
