// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics collects the Prometheus metrics the negotiation
// library exposes: handshake counts from the client/server negotiator,
// join/transition counts from the rendezvous coordinator, and upgrade
// counts from the Upgradable Connection.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/negotiate/utils/wrappers"
)

// Metrics is the full set of collectors one negotiator process registers.
type Metrics struct {
	HandshakesStarted   prometheus.Counter
	HandshakesSucceeded prometheus.Counter
	HandshakesFailed    prometheus.Counter
	HandshakeCacheHits  prometheus.Counter

	// HandshakeLatencySeconds observes the wall-clock time HandleConn
	// spends resolving one connection, cache hit or not.
	HandshakeLatencySeconds prometheus.Summary

	RendezvousJoins       prometheus.Counter
	RendezvousTransitions prometheus.Counter
	RendezvousRollbacks   prometheus.Counter
	RendezvousParticipants prometheus.Gauge

	UpgradesApplied prometheus.Counter
}

// New builds and registers every negotiation metric with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		HandshakesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "negotiate_handshakes_started_total",
			Help: "Two-party handshakes initiated.",
		}),
		HandshakesSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "negotiate_handshakes_succeeded_total",
			Help: "Two-party handshakes that reached a compatible stack.",
		}),
		HandshakesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "negotiate_handshakes_failed_total",
			Help: "Two-party handshakes that failed, including incompatible offers.",
		}),
		HandshakeCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "negotiate_handshake_cache_hits_total",
			Help: "Server handshake replays served from the handshake cache.",
		}),
		HandshakeLatencySeconds: prometheus.NewSummary(prometheus.SummaryOpts{
			Name:       "negotiate_handshake_latency_seconds",
			Help:       "Time HandleConn spends resolving one connection.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}),
		RendezvousJoins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "negotiate_rendezvous_joins_total",
			Help: "Rendezvous TryInit calls, matched or not.",
		}),
		RendezvousTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "negotiate_rendezvous_transitions_total",
			Help: "Rendezvous transitions that committed.",
		}),
		RendezvousRollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "negotiate_rendezvous_rollbacks_total",
			Help: "Rendezvous transitions rejected for an incompatible proposal.",
		}),
		RendezvousParticipants: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "negotiate_rendezvous_participants",
			Help: "Current participant count of the last-observed rendezvous entry.",
		}),
		UpgradesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "negotiate_upgrades_applied_total",
			Help: "Times an Upgradable Connection swapped its active stack.",
		}),
	}

	errs := wrappers.Errs{}
	errs.Add(reg.Register(m.HandshakesStarted))
	errs.Add(reg.Register(m.HandshakesSucceeded))
	errs.Add(reg.Register(m.HandshakesFailed))
	errs.Add(reg.Register(m.HandshakeCacheHits))
	errs.Add(reg.Register(m.HandshakeLatencySeconds))
	errs.Add(reg.Register(m.RendezvousJoins))
	errs.Add(reg.Register(m.RendezvousTransitions))
	errs.Add(reg.Register(m.RendezvousRollbacks))
	errs.Add(reg.Register(m.RendezvousParticipants))
	errs.Add(reg.Register(m.UpgradesApplied))
	if errs.Errored() {
		return nil, errs.Err()
	}
	return m, nil
}
