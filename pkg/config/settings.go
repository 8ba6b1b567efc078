// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the agent settings once at startup. The resulting
// Settings value is passed explicitly to every component.
package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

// Settings represents the configuration settings for the application.
type Settings struct {
	Tenant      Tenant      `yaml:"tenant"`
	Paths       Paths       `yaml:"paths"`
	Quota       Quota       `yaml:"quota"`
	Alerts      Alerts      `yaml:"alerts"`
	Watcher     Watcher     `yaml:"watcher"`
	Scanner     Scanner     `yaml:"scanner"`
	Enforcement Enforcement `yaml:"enforcement"`
	Database    Database    `yaml:"database"`
	Server      Server      `yaml:"server"`
	Logging     Logging     `yaml:"logging"`
}

// NewSettings reads each config file in order (later files override earlier ones),
// applies environment overrides and validates the result. With no files the
// settings come from the environment alone.
func NewSettings(configFiles ...string) (*Settings, error) {
	var cfg Settings
	read := 0
	for _, cfgFile := range configFiles {
		if cfgFile == "" {
			continue
		}

		if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", types.ErrConfiguration, errors.Wrap(err, fmt.Sprintf("no config %s", cfgFile)))
		}

		if err := cleanenv.ReadConfig(cfgFile, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %s", types.ErrConfiguration, errors.Wrap(err, fmt.Sprintf("config read %s", cfgFile)))
		}
		read++
	}

	if read == 0 {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("%w: %s", types.ErrConfiguration, errors.Wrap(err, "config read env"))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate normalizes defaults and checks every section except the tenant
// identity, which only the per-tenant daemon requires (see RequireTenant).
func (s *Settings) Validate() error {
	if err := s.Paths.Validate(); err != nil {
		return invalid(errors.Wrap(err, "paths validation"))
	}
	if err := s.Quota.Validate(); err != nil {
		return invalid(errors.Wrap(err, "quota validation"))
	}
	if err := s.Alerts.Validate(); err != nil {
		return invalid(errors.Wrap(err, "alerts validation"))
	}
	if err := s.Watcher.Validate(); err != nil {
		return invalid(errors.Wrap(err, "watcher validation"))
	}
	if err := s.Scanner.Validate(); err != nil {
		return invalid(errors.Wrap(err, "scanner validation"))
	}
	if err := s.Enforcement.Validate(); err != nil {
		return invalid(errors.Wrap(err, "enforcement validation"))
	}
	if err := s.Database.Validate(); err != nil {
		return invalid(errors.Wrap(err, "database validation"))
	}
	if err := s.Logging.Validate(); err != nil {
		return invalid(errors.Wrap(err, "logging validation"))
	}
	return nil
}

// RequireTenant validates the tenant section. The daemon refuses to start without it.
func (s *Settings) RequireTenant() error {
	if err := s.Tenant.Validate(); err != nil {
		return invalid(errors.Wrap(err, "tenant validation"))
	}
	return nil
}

// NewTenant resolves the tenant identity and directory layout from the settings.
func (s *Settings) NewTenant() (*types.Tenant, error) {
	if err := s.RequireTenant(); err != nil {
		return nil, err
	}
	return types.NewTenant(s.Tenant.Name, s.Tenant.Contact, s.Paths.UploadsRoot, s.Paths.PublishedRoot, s.Paths.VCSRoot)
}

func invalid(err error) error {
	return fmt.Errorf("%w: %s", types.ErrConfiguration, err.Error())
}
