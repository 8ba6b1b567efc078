// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package quota implements the operator commands of quotactl.
package quota

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gosuri/uitable"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/config"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/domain"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/storage/repo"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/utils"
)

// Opener provides the admin operations for one command invocation. The
// returned func releases whatever the opener acquired.
type Opener func(c *cli.Context) (*domain.Admin, types.TimeProvider, func(), error)

// OpenFromConfig loads settings from the --config-file flags (or the
// environment) and opens the shared state database.
func OpenFromConfig(c *cli.Context) (*domain.Admin, types.TimeProvider, func(), error) {
	settings, err := config.NewSettings(c.StringSlice(config.FlagConfigFile)...)
	if err != nil {
		return nil, nil, nil, err
	}
	clock := &utils.Clock{}
	stores, err := repo.Open(clock, settings.Database.Location())
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "open state database")
	}
	services := domain.NewServices(settings, stores, nil, clock)
	return domain.NewAdmin(services), clock, func() { _ = stores.Close() }, nil
}

// ConfigFlag is shared by every command that opens the state database.
func ConfigFlag() cli.Flag {
	return &cli.StringSliceFlag{Name: config.FlagConfigFile, Aliases: []string{"f"}, Usage: config.FlagDescConfFile}
}

func NewCommands(open Opener) []*cli.Command {
	return []*cli.Command{
		{
			Name:      "set",
			Usage:     "set a tenant's quota",
			ArgsUsage: "<tenant> <mb>",
			Flags:     []cli.Flag{ConfigFlag()},
			Action: withAdmin(open, func(c *cli.Context, admin *domain.Admin, _ types.TimeProvider) error {
				tenant, mb, err := tenantAndMB(c)
				if err != nil {
					return err
				}
				rec, err := admin.SetQuota(c.Context, tenant, mb)
				if err != nil {
					return err
				}
				return printQuota(c.App.Writer, "set", rec)
			}),
		},
		{
			Name:      "increase",
			Usage:     "raise a tenant's quota",
			ArgsUsage: "<tenant> <mb>",
			Flags:     []cli.Flag{ConfigFlag()},
			Action: withAdmin(open, func(c *cli.Context, admin *domain.Admin, _ types.TimeProvider) error {
				tenant, mb, err := tenantAndMB(c)
				if err != nil {
					return err
				}
				rec, err := admin.IncreaseQuota(c.Context, tenant, mb)
				if err != nil {
					return err
				}
				return printQuota(c.App.Writer, "increased", rec)
			}),
		},
		{
			Name:      "decrease",
			Usage:     "lower a tenant's quota; refused when usage would not fit",
			ArgsUsage: "<tenant> <mb>",
			Flags: []cli.Flag{
				ConfigFlag(),
				&cli.BoolFlag{Name: config.FlagConfirm, Aliases: []string{"y"}, Usage: config.FlagDescConfirm},
			},
			Action: withAdmin(open, func(c *cli.Context, admin *domain.Admin, _ types.TimeProvider) error {
				tenant, mb, err := tenantAndMB(c)
				if err != nil {
					return err
				}
				rec, err := admin.DecreaseQuota(c.Context, tenant, mb, c.Bool(config.FlagConfirm))
				if err != nil {
					return err
				}
				return printQuota(c.App.Writer, "decreased", rec)
			}),
		},
		{
			Name:      "enforce",
			Usage:     "make a tenant's uploads read-only",
			ArgsUsage: "<tenant>",
			Flags:     []cli.Flag{ConfigFlag()},
			Action: withAdmin(open, func(c *cli.Context, admin *domain.Admin, _ types.TimeProvider) error {
				tenant, err := tenantArg(c)
				if err != nil {
					return err
				}
				_, changed, err := admin.Enforce(c.Context, tenant)
				if err != nil {
					return err
				}
				if !changed {
					fmt.Fprintf(c.App.Writer, "%s is already enforced\n", tenant)
					return nil
				}
				fmt.Fprintf(c.App.Writer, "%s is now enforced (uploads read-only)\n", tenant)
				return nil
			}),
		},
		{
			Name:      "unenforce",
			Usage:     "restore write access to a tenant's uploads",
			ArgsUsage: "<tenant>",
			Flags:     []cli.Flag{ConfigFlag()},
			Action: withAdmin(open, func(c *cli.Context, admin *domain.Admin, _ types.TimeProvider) error {
				tenant, err := tenantArg(c)
				if err != nil {
					return err
				}
				snap, changed, err := admin.Unenforce(c.Context, tenant)
				if err != nil {
					return err
				}
				if !changed {
					fmt.Fprintf(c.App.Writer, "%s is not enforced\n", tenant)
					return nil
				}
				fmt.Fprintf(c.App.Writer, "%s is now active (uploads writable)\n", tenant)
				if snap.UsageBytes >= snap.QuotaBytes {
					fmt.Fprintf(c.App.Writer, "warning: usage %s is still at or above the %s quota; the next accounting pass enforces again\n",
						types.FormatBytes(snap.UsageBytes), types.FormatBytes(snap.QuotaBytes))
				}
				return nil
			}),
		},
		{
			Name:      "status",
			Usage:     "show the last recorded usage snapshot",
			ArgsUsage: "[tenant]",
			Flags: []cli.Flag{
				ConfigFlag(),
				&cli.BoolFlag{Name: config.FlagAll, Aliases: []string{"a"}, Usage: config.FlagDescAll},
			},
			Action: withAdmin(open, func(c *cli.Context, admin *domain.Admin, clock types.TimeProvider) error {
				if c.Bool(config.FlagAll) || c.NArg() == 0 {
					snaps, err := admin.GetSnapshotAll(c.Context)
					if err != nil {
						return err
					}
					return printTable(c.App.Writer, snaps, clock)
				}
				tenant, err := tenantArg(c)
				if err != nil {
					return err
				}
				snap, err := admin.GetSnapshot(c.Context, tenant)
				if errors.Is(err, types.ErrNotFound) {
					return fmt.Errorf("no usage recorded for %s yet: %w", tenant, err)
				}
				if err != nil {
					return err
				}
				return printSnapshot(c.App.Writer, snap, clock)
			}),
		},
	}
}

func withAdmin(open Opener, fn func(c *cli.Context, admin *domain.Admin, clock types.TimeProvider) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		admin, clock, closer, err := open(c)
		if err != nil {
			return err
		}
		defer closer()
		return fn(c, admin, clock)
	}
}

func tenantArg(c *cli.Context) (string, error) {
	tenant := c.Args().Get(0)
	if tenant == "" {
		return "", fmt.Errorf("%w: tenant argument required", types.ErrValidation)
	}
	return tenant, types.ValidateTenantName(tenant)
}

func tenantAndMB(c *cli.Context) (string, int64, error) {
	tenant, err := tenantArg(c)
	if err != nil {
		return "", 0, err
	}
	raw := c.Args().Get(1)
	mb, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %q is not a whole number of MB", types.ErrValidation, raw)
	}
	if _, err := types.MBToBytes(mb); err != nil {
		return "", 0, err
	}
	return tenant, mb, nil
}

func printQuota(w io.Writer, verb string, rec *types.QuotaRecord) error {
	_, err := fmt.Fprintf(w, "quota for %s %s to %d MB (%s)\n",
		rec.Tenant, verb, types.BytesToMB(rec.LimitBytes), types.FormatBytes(rec.LimitBytes))
	return err
}

func printSnapshot(w io.Writer, snap *types.UsageSnapshot, clock types.TimeProvider) error {
	table := uitable.New()
	table.AddRow("tenant:", snap.Tenant)
	table.AddRow("usage:", fmt.Sprintf("%d MB of %d MB (%d%%)", snap.UsageMB, snap.QuotaMB, snap.UsagePercent))
	table.AddRow("free:", types.FormatBytes(max(snap.QuotaBytes-snap.UsageBytes, 0)))
	table.AddRow("level:", snap.Level)
	table.AddRow("enforcement:", string(snap.EnforcementState))
	table.AddRow("checked:", utils.FormatAge(snap.CheckedAt, clock.GetCurrentTime()))
	_, err := fmt.Fprintln(w, table)
	return err
}

func printTable(w io.Writer, snaps []*types.UsageSnapshot, clock types.TimeProvider) error {
	if len(snaps) == 0 {
		_, err := fmt.Fprintln(w, "no usage recorded yet")
		return err
	}
	now := clock.GetCurrentTime()
	table := uitable.New()
	table.MaxColWidth = 40
	for _, col := range []int{1, 2, 3} {
		table.RightAlign(col)
	}
	table.AddRow("TENANT", "USAGE", "QUOTA", "USED", "LEVEL", "STATE", "CHECKED")
	for _, s := range snaps {
		table.AddRow(
			s.Tenant,
			types.FormatBytes(s.UsageBytes),
			types.FormatBytes(s.QuotaBytes),
			fmt.Sprintf("%d%%", s.UsagePercent),
			s.Level,
			string(s.EnforcementState),
			utils.FormatAge(s.CheckedAt, now),
		)
	}
	_, err := fmt.Fprintln(w, table)
	return err
}
