// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 accountd Contributors

package account

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains Prometheus counters for the account core. All recording
// methods are nil-safe so services can run without metrics wired.
type Metrics struct {
	SignupsTotal *prometheus.CounterVec
	LoginsTotal  *prometheus.CounterVec
	ResetsTotal  *prometheus.CounterVec
	DeletesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers account metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SignupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accountd_signups_total",
				Help: "Total number of signup attempts by status",
			},
			[]string{"status"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accountd_logins_total",
				Help: "Total number of login attempts by status",
			},
			[]string{"status"},
		),
		ResetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accountd_password_resets_total",
				Help: "Total number of password reset operations by phase and status",
			},
			[]string{"phase", "status"},
		),
		DeletesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "accountd_account_deletes_total",
				Help: "Total number of account deletions by status",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(m.SignupsTotal)
	reg.MustRegister(m.LoginsTotal)
	reg.MustRegister(m.ResetsTotal)
	reg.MustRegister(m.DeletesTotal)

	return m
}

func (m *Metrics) recordSignup(status string) {
	if m == nil {
		return
	}
	m.SignupsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) recordLogin(status string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) recordReset(phase, status string) {
	if m == nil {
		return
	}
	m.ResetsTotal.WithLabelValues(phase, status).Inc()
}

func (m *Metrics) recordDelete(status string) {
	if m == nil {
		return
	}
	m.DeletesTotal.WithLabelValues(status).Inc()
}
