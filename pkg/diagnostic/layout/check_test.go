// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package layout_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/config"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/diagnostic"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/diagnostic/layout"
)

func TestDirectories(t *testing.T) {
	root := t.TempDir()
	s := &config.Settings{
		Tenant: config.Tenant{Name: "acme"},
		Paths: config.Paths{
			UploadsRoot:   filepath.Join(root, "uploads"),
			PublishedRoot: filepath.Join(root, "published"),
		},
	}
	require.NoError(t, s.Validate())

	report := &diagnostic.Report{}
	require.NoError(t, layout.NewDirectoriesProvider(s).Check(context.Background(), nil, report))
	require.Len(t, report.Results(), 1)
	assert.False(t, report.Passing())
	assert.Contains(t, report.Results()[0].Error, filepath.Join(root, "published", "acme"))

	tenant, err := s.NewTenant()
	require.NoError(t, err)
	for _, dir := range tenant.BillablePaths() {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	report = &diagnostic.Report{}
	require.NoError(t, layout.NewDirectoriesProvider(s).Check(context.Background(), nil, report))
	assert.True(t, report.Passing())
}

func TestLockDir(t *testing.T) {
	root := t.TempDir()
	s := &config.Settings{Enforcement: config.Enforcement{LockDir: filepath.Join(root, "locks")}}

	report := &diagnostic.Report{}
	require.NoError(t, layout.NewLockDirProvider(s).Check(context.Background(), nil, report))
	assert.True(t, report.Passing())
	entries, err := os.ReadDir(filepath.Join(root, "locks"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	blocker := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	s.Enforcement.LockDir = filepath.Join(blocker, "locks")
	report = &diagnostic.Report{}
	require.NoError(t, layout.NewLockDirProvider(s).Check(context.Background(), nil, report))
	assert.False(t, report.Passing())
}
