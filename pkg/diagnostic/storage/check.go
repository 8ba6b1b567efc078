// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package storage checks that the state database opens and migrates.
package storage

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/config"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/diagnostic"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/storage/repo"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/utils"
)

type checker struct {
	cfg *config.Settings
}

func NewProvider(cfg *config.Settings) diagnostic.Provider {
	return &checker{cfg: cfg}
}

func (c *checker) Check(ctx context.Context, _ *http.Client, report *diagnostic.Report) error {
	location := c.cfg.Database.Location()
	stores, err := repo.Open(&utils.Clock{}, location)
	if err != nil {
		report.Fail(diagnostic.DiagnosticDatabase, err)
		return nil
	}
	defer stores.Close()

	tenants, err := stores.Tenants.Count(ctx)
	if err != nil {
		report.Fail(diagnostic.DiagnosticDatabase, err)
		return nil
	}
	if location == "" {
		location = "in-memory"
	}
	report.Pass(diagnostic.DiagnosticDatabase, fmt.Sprintf("%s (%d tenants registered)", location, tenants))
	return nil
}
