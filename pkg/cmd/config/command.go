// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/build"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/config"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

//go:embed internal/template.yml
var templateString string

var (
	configAlias = []string{"f"}
)

func NewCommand() *cli.Command {
	cmd := &cli.Command{
		Name:  "config",
		Usage: "configuration utility commands",
		Subcommands: []*cli.Command{
			{
				Name:  "generate",
				Usage: "generates a daemon config file for one tenant",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: config.FlagTenant, Aliases: []string{"t"}, Usage: config.FlagDescTenant, Required: true},
					&cli.StringFlag{Name: config.FlagContact, Aliases: []string{"c"}, Usage: config.FlagDescContact},
					&cli.Int64Flag{Name: config.FlagQuotaMB, Usage: config.FlagDescQuotaMB, Value: types.DefaultQuotaBytes / types.MiB},
					&cli.StringFlag{Name: "uploads-root", Usage: "root of tenant upload areas", Value: "/srv/storage/uploads"},
					&cli.StringFlag{Name: "published-root", Usage: "root of published tenant trees", Value: "/srv/storage/published"},
					&cli.StringFlag{Name: "vcs-root", Usage: "root of version-control storage", Value: "/srv/storage/git"},
					&cli.StringFlag{Name: config.FlagOutput, Aliases: []string{"o"}, Usage: config.FlagDescOutput},
				},
				Action: func(c *cli.Context) error {
					tenant := c.String(config.FlagTenant)
					if err := types.ValidateTenantName(tenant); err != nil {
						return err
					}
					if c.Int64(config.FlagQuotaMB) <= 0 {
						return fmt.Errorf("%w: %s must be positive", types.ErrValidation, config.FlagQuotaMB)
					}
					return Generate(map[string]interface{}{ //nolint: gofmt
						"AgentVersion":  build.GetVersion(),
						"TenantName":    tenant,
						"Contact":       c.String(config.FlagContact),
						"DefaultMB":     c.Int64(config.FlagQuotaMB),
						"UploadsRoot":   c.String("uploads-root"),
						"PublishedRoot": c.String("published-root"),
						"VCSRoot":       c.String("vcs-root"),
					}, c.String(config.FlagOutput))
				},
			},
			{
				Name:  "validate",
				Usage: "validates the config file",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name: config.FlagConfigFile, Aliases: configAlias,
						Usage: "input " + config.FlagDescConfFile, Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					configs := c.StringSlice(config.FlagConfigFile)
					if len(configs) == 0 {
						return errors.New("no configuration files specified")
					}

					cfg, err := config.NewSettings(configs...)
					if err != nil {
						return errors.Wrap(err, "config read")
					}
					if err := cfg.RequireTenant(); err != nil {
						return errors.Wrap(err, "config validation")
					}
					fmt.Fprintf(c.App.Writer, "configuration for tenant %s is valid\n", cfg.Tenant.Name)
					return nil
				},
			},
		},
	}
	return cmd
}

// Generate renders the config template with values to outputFile, or to
// standard out when outputFile is empty.
func Generate(values map[string]interface{}, outputFile string) error { //nolint: gofmt
	t, err := template.New("template").Parse(templateString)
	if err != nil {
		return errors.Wrap(err, "template parser")
	}
	var out io.Writer = os.Stdout
	if outputFile != "" {
		output, err := os.Create(outputFile)
		if err != nil {
			return errors.Wrap(err, "creating output file")
		}
		defer output.Close()
		out = output
	}
	return t.Execute(out, values)
}
