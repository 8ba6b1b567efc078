// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package notify checks that filesystem notifications are available.
package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/config"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/diagnostic"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/monitor"
)

type checker struct {
	cfg *config.Settings
}

func NewProvider(cfg *config.Settings) diagnostic.Provider {
	return &checker{cfg: cfg}
}

// Check installs the same watches the daemon would and removes them again.
func (c *checker) Check(ctx context.Context, _ *http.Client, report *diagnostic.Report) error {
	tenant, err := c.cfg.NewTenant()
	if err != nil {
		report.Fail(diagnostic.DiagnosticNotification, err)
		return nil
	}
	fm, err := monitor.NewFileMonitor(ctx, monitor.NewBus(), tenant.BillablePaths(), c.cfg.Watcher.Exclude)
	if err != nil {
		report.Fail(diagnostic.DiagnosticNotification, err)
		return nil
	}
	watches := len(fm.WatchList())
	fm.Close()
	report.Pass(diagnostic.DiagnosticNotification, fmt.Sprintf("%d directories watchable", watches))
	return nil
}
