// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package egress checks that the alert relay is reachable.
package egress

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/config"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/diagnostic"
)

type checker struct {
	cfg *config.Settings
}

func NewProvider(cfg *config.Settings) diagnostic.Provider {
	return &checker{cfg: cfg}
}

// Check issues an unauthenticated HEAD; any HTTP response counts as reachable.
func (c *checker) Check(ctx context.Context, client *http.Client, report *diagnostic.Report) error {
	url := c.cfg.Alerts.WebhookURL
	if url == "" {
		report.Pass(diagnostic.DiagnosticAlertRelay, "no relay configured, alerts are logged")
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Alerts.SendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		report.Fail(diagnostic.DiagnosticAlertRelay, err)
		return nil
	}
	resp, err := client.Do(req)
	if err != nil {
		report.Fail(diagnostic.DiagnosticAlertRelay, err)
		return nil
	}
	resp.Body.Close()
	report.Pass(diagnostic.DiagnosticAlertRelay, fmt.Sprintf("%s answered %d", url, resp.StatusCode))
	return nil
}
