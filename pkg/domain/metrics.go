// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainStatsOnce sync.Once

	usageBytesGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quota_usage_bytes",
			Help: "Billable bytes measured by the last accounting pass.",
		},
		[]string{"tenant"},
	)
	limitBytesGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quota_limit_bytes",
			Help: "Quota in bytes used by the last accounting pass.",
		},
		[]string{"tenant"},
	)
	usagePercentGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quota_usage_percent",
			Help: "Floor of usage as a percentage of quota.",
		},
		[]string{"tenant"},
	)
	enforcedGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quota_enforced",
			Help: "1 while the tenant is enforced, 0 otherwise.",
		},
		[]string{"tenant"},
	)
	passFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_pass_failures_total",
			Help: "Accounting passes that could not complete, by stage.",
		},
		[]string{"stage"},
	)
)

func registerMetrics() {
	domainStatsOnce.Do(func() {
		prometheus.MustRegister(usageBytesGauge, limitBytesGauge, usagePercentGauge, enforcedGauge, passFailuresTotal)
	})
}
