// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	monitorStatsOnce sync.Once

	passesInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quota_passes_in_flight",
			Help: "Accounting passes currently running.",
		},
	)
	passesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_passes_total",
			Help: "Accounting passes started, by trigger.",
		},
		[]string{"trigger"},
	)
	eventsCoalescedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quota_events_coalesced_total",
			Help: "Filesystem events absorbed into an already pending debounced pass.",
		},
	)
)

func registerMetrics() {
	monitorStatsOnce.Do(func() {
		prometheus.MustRegister(passesInFlight, passesTotal, eventsCoalescedTotal)
	})
}
