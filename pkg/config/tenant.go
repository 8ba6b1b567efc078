// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

type Tenant struct {
	Name    string `yaml:"name" env:"TENANT_NAME" env-description:"tenant monitored by this daemon"`
	Contact string `yaml:"contact" env:"TENANT_CONTACT" env-description:"address that receives the tenant's alerts"`
}

func (t *Tenant) Validate() error {
	t.Name = strings.TrimSpace(t.Name)
	t.Contact = strings.TrimSpace(t.Contact)
	if t.Name == "" {
		return errors.New("tenant name is empty")
	}
	if err := plainAddress("tenant contact", t.Contact); err != nil {
		return err
	}
	return types.ValidateTenantName(t.Name)
}
