// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

type Alerts struct {
	AdminAddress string        `yaml:"admin_address" env:"ALERT_ADMIN_ADDRESS" env-description:"administrative address copied on every alert"`
	WebhookURL   string        `yaml:"webhook_url" env:"ALERT_WEBHOOK_URL" env-description:"message relay endpoint; alerts are only logged when empty"`
	SendTimeout  time.Duration `yaml:"send_timeout" env:"ALERT_SEND_TIMEOUT" env-default:"10s" env-description:"timeout for a single delivery"`
	Cooldowns    Cooldowns     `yaml:"cooldowns"`
}

// Cooldowns is the minimum time between two alerts of the same kind for the same tenant.
// Realtime is a separate gate the daemon applies before calling the dispatcher.
type Cooldowns struct {
	Warning  time.Duration `yaml:"warning" env:"ALERT_COOLDOWN_WARNING" env-default:"24h"`
	Critical time.Duration `yaml:"critical" env:"ALERT_COOLDOWN_CRITICAL" env-default:"24h"`
	Over     time.Duration `yaml:"over" env:"ALERT_COOLDOWN_OVER" env-default:"24h"`
	Enforced time.Duration `yaml:"enforced" env:"ALERT_COOLDOWN_ENFORCED" env-default:"24h"`
	Restored time.Duration `yaml:"restored" env:"ALERT_COOLDOWN_RESTORED" env-default:"24h"`
	Realtime time.Duration `yaml:"realtime" env:"ALERT_COOLDOWN_REALTIME" env-default:"1h"`
}

func (a *Alerts) Validate() error {
	a.AdminAddress = strings.TrimSpace(a.AdminAddress)
	a.WebhookURL = strings.TrimSpace(a.WebhookURL)
	if err := plainAddress("admin address", a.AdminAddress); err != nil {
		return err
	}
	if a.WebhookURL != "" {
		if _, err := url.ParseRequestURI(a.WebhookURL); err != nil {
			return errors.Wrap(err, "invalid webhook url")
		}
	}
	if a.SendTimeout <= 0 {
		a.SendTimeout = 10 * time.Second
	}
	return a.Cooldowns.Validate()
}

func (c *Cooldowns) Validate() error {
	for name, d := range map[string]time.Duration{
		"warning": c.Warning, "critical": c.Critical, "over": c.Over,
		"enforced": c.Enforced, "restored": c.Restored, "realtime": c.Realtime,
	} {
		if d < 0 {
			return errors.Errorf("%s cooldown is negative", name)
		}
	}
	return nil
}

// For returns the cooldown window for an alert kind. Realtime-gate kinds share
// the realtime window.
func (c *Cooldowns) For(kind types.AlertKind) time.Duration {
	switch kind {
	case types.AlertWarning:
		return c.Warning
	case types.AlertCritical:
		return c.Critical
	case types.AlertOver:
		return c.Over
	case types.AlertEnforced:
		return c.Enforced
	case types.AlertRestored:
		return c.Restored
	}
	if strings.HasPrefix(string(kind), string(types.RealtimeKind(""))) {
		return c.Realtime
	}
	return 0
}

// Longest is the widest window; cooldown records older than this can no longer
// suppress anything.
func (c *Cooldowns) Longest() time.Duration {
	longest := c.Realtime
	for _, d := range []time.Duration{c.Warning, c.Critical, c.Over, c.Enforced, c.Restored} {
		if d > longest {
			longest = d
		}
	}
	return longest
}
