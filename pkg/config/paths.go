// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Paths are the roots of the per-tenant trees. The version-control root is
// optional and never counted towards usage.
type Paths struct {
	UploadsRoot   string `yaml:"uploads_root" env:"UPLOADS_ROOT" env-default:"/srv/storage/uploads" env-description:"root of {tenant}/files upload areas"`
	PublishedRoot string `yaml:"published_root" env:"PUBLISHED_ROOT" env-default:"/srv/storage/published" env-description:"root of published/served tenant trees"`
	VCSRoot       string `yaml:"vcs_root" env:"VCS_ROOT" env-default:"/srv/storage/git" env-description:"root of version-control storage, excluded from accounting"`
}

func (p *Paths) Validate() error {
	p.UploadsRoot = strings.TrimSpace(p.UploadsRoot)
	p.PublishedRoot = strings.TrimSpace(p.PublishedRoot)
	p.VCSRoot = strings.TrimSpace(p.VCSRoot)
	if p.UploadsRoot == "" {
		return errors.New("uploads root is empty")
	}
	if p.PublishedRoot == "" {
		return errors.New("published root is empty")
	}
	p.UploadsRoot = filepath.Clean(p.UploadsRoot)
	p.PublishedRoot = filepath.Clean(p.PublishedRoot)
	if p.VCSRoot != "" {
		p.VCSRoot = filepath.Clean(p.VCSRoot)
	}
	return nil
}
