// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package layout checks the directories the daemon reads and writes.
package layout

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/config"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/diagnostic"
)

type directories struct {
	cfg *config.Settings
}

// NewDirectoriesProvider checks that the tenant's billable trees exist. A
// missing tree is counted as zero bytes, which usually hides a layout mistake.
func NewDirectoriesProvider(cfg *config.Settings) diagnostic.Provider {
	return &directories{cfg: cfg}
}

func (c *directories) Check(_ context.Context, _ *http.Client, report *diagnostic.Report) error {
	tenant, err := c.cfg.NewTenant()
	if err != nil {
		report.Fail(diagnostic.DiagnosticDirectories, err)
		return nil
	}
	var missing []string
	for _, dir := range tenant.BillablePaths() {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			missing = append(missing, dir)
		}
	}
	if len(missing) > 0 {
		report.Fail(diagnostic.DiagnosticDirectories, fmt.Errorf("missing: %s", strings.Join(missing, ", ")))
		return nil
	}
	report.Pass(diagnostic.DiagnosticDirectories, strings.Join(tenant.BillablePaths(), ", "))
	return nil
}

type lockDir struct {
	cfg *config.Settings
}

// NewLockDirProvider checks that enforcement lock files can be created.
func NewLockDirProvider(cfg *config.Settings) diagnostic.Provider {
	return &lockDir{cfg: cfg}
}

func (c *lockDir) Check(_ context.Context, _ *http.Client, report *diagnostic.Report) error {
	dir := c.cfg.Enforcement.LockDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		report.Fail(diagnostic.DiagnosticLockDir, err)
		return nil
	}
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		report.Fail(diagnostic.DiagnosticLockDir, err)
		return nil
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	report.Pass(diagnostic.DiagnosticLockDir, dir)
	return nil
}
