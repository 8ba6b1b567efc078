// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"path/filepath"
	"regexp"
	"time"
)

var tenantNamePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Tenant is an isolated storage and billing unit. Records are created by the
// provisioning flow (or registered by the daemon at startup) and are read-only
// to the accounting engine.
type Tenant struct {
	Name          string    `gorm:"primaryKey" json:"name"`
	Contact       string    `json:"contact"`
	UploadsPath   string    `json:"uploadsPath"`
	PublishedPath string    `json:"publishedPath"`
	VCSPath       string    `json:"vcsPath"`
	RecordCreated time.Time `json:"recordCreated"`
	RecordUpdated time.Time `json:"recordUpdated"`
}

// BillablePaths returns the trees counted towards the quota. The version-control
// tree is infrastructure overhead and never included.
func (t *Tenant) BillablePaths() []string {
	return []string{t.UploadsPath, t.PublishedPath}
}

// NewTenant resolves the standard directory layout for a tenant:
//
//	{uploadsRoot}/{name}/files, {publishedRoot}/{name}, {vcsRoot}/{name}
func NewTenant(name, contact, uploadsRoot, publishedRoot, vcsRoot string) (*Tenant, error) {
	if err := ValidateTenantName(name); err != nil {
		return nil, err
	}
	t := &Tenant{
		Name:          name,
		Contact:       contact,
		UploadsPath:   filepath.Join(uploadsRoot, name, "files"),
		PublishedPath: filepath.Join(publishedRoot, name),
	}
	if vcsRoot != "" {
		t.VCSPath = filepath.Join(vcsRoot, name)
	}
	return t, nil
}

// ValidateTenantName rejects anything but lowercase alphanumerics, hyphen and underscore.
func ValidateTenantName(name string) error {
	if !tenantNamePattern.MatchString(name) {
		return fmt.Errorf("%w: invalid tenant name %q", ErrValidation, name)
	}
	return nil
}
