// Copyright 2022-2024 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxywrapper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// chainMetrics counts handshake attempts, outcomes, and readiness
// suspensions across the chain, keyed by proxy protocol rather than by
// host.
type chainMetrics struct {
	attempts    *prometheus.CounterVec
	established *prometheus.CounterVec
	errors      *prometheus.CounterVec
	suspensions *prometheus.CounterVec
}

func newChainMetrics(r prometheus.Registerer, namespace string) *chainMetrics {
	if r == nil {
		r = prometheus.NewRegistry() // nil registerer falls back to a discarded one
	}
	f := promauto.With(r)
	l := []string{"protocol"}

	return &chainMetrics{
		attempts: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "handshake_attempts_total",
			Namespace: namespace,
			Help:      "Number of per-proxy handshakes attempted",
		}, l),
		established: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "handshake_established_total",
			Namespace: namespace,
			Help:      "Number of per-proxy handshakes completed successfully",
		}, l),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "handshake_errors_total",
			Namespace: namespace,
			Help:      "Number of per-proxy handshake failures",
		}, l),
		suspensions: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "handshake_suspensions_total",
			Namespace: namespace,
			Help:      "Number of NeedRead/NeedWrite suspensions observed",
		}, []string{"direction"}),
	}
}

func (m *chainMetrics) attempt(protocol Protocol) { m.attempts.WithLabelValues(protocol.String()).Inc() }
func (m *chainMetrics) succeed(protocol Protocol) {
	m.established.WithLabelValues(protocol.String()).Inc()
}
func (m *chainMetrics) error(protocol Protocol) { m.errors.WithLabelValues(protocol.String()).Inc() }
func (m *chainMetrics) suspend(dir Direction)   { m.suspensions.WithLabelValues(dir.String()).Inc() }
