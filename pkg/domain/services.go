// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package domain

import (
	"github.com/cloudzero/cloudzero-quota-agent/pkg/alert"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/config"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/enforce"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/quota"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/storage/repo"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/usage"
)

// Services holds the components shared by the daemon and the admin tool.
type Services struct {
	Settings   *config.Settings
	Stores     *repo.Stores
	Clock      types.TimeProvider
	Usage      types.UsageCalculator
	Registry   *quota.Registry
	Dispatcher *alert.Dispatcher
	Gate       *alert.Gate
	Controller *enforce.Controller
	Monitor    *QuotaMonitor
}

// NewServices builds the component graph over stores. A nil sender selects
// the transport configured in settings.
func NewServices(settings *config.Settings, stores *repo.Stores, sender types.Sender, clock types.TimeProvider) *Services {
	if sender == nil {
		sender = alert.NewSender(&settings.Alerts)
	}
	accountant := usage.NewAccountant()
	registry := quota.NewRegistry(stores.Quotas, stores.Cooldowns, accountant,
		quota.WithDefaultBytes(settings.Quota.DefaultBytes()),
		quota.WithMinHeadroomPercent(settings.Quota.MinHeadroomPercent),
	)
	dispatcher := alert.NewDispatcher(sender, stores.Cooldowns, clock, &settings.Alerts)
	gate := alert.NewGate(stores.Cooldowns, clock, &settings.Alerts)
	controller := enforce.NewController(stores.Enforcement, dispatcher, &settings.Enforcement)

	return &Services{
		Settings:   settings,
		Stores:     stores,
		Clock:      clock,
		Usage:      accountant,
		Registry:   registry,
		Dispatcher: dispatcher,
		Gate:       gate,
		Controller: controller,
		Monitor:    NewQuotaMonitor(accountant, registry, gate, dispatcher, controller, stores.Snapshots, clock),
	}
}
