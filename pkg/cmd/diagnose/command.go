// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package diagnose

import (
	"errors"
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/urfave/cli/v2"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/config"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/diagnostic/catalog"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/diagnostic/runner"
)

// ErrChecksFailed is returned when at least one diagnostic did not pass.
var ErrChecksFailed = errors.New("one or more diagnostics failed")

var (
	configAlias = []string{"f"}
)

func NewCommand() *cli.Command {
	cmd := &cli.Command{
		Name:    "diagnose",
		Usage:   "diagnostic commands",
		Aliases: []string{"diag", "d"},
		Subcommands: []*cli.Command{
			{
				Name:  "get-available",
				Usage: "lists the available diagnostic checks",
				Action: func(c *cli.Context) error {
					registry := catalog.NewCatalog(&config.Settings{})
					for _, check := range registry.List() {
						fmt.Fprintln(c.App.Writer, "- "+check)
					}
					return nil
				},
			},
			{
				Name:  "run",
				Usage: "run the given checks, or all of them",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "check", Usage: "comma separated or multi-value list of check(s) to run"},
					&cli.StringSliceFlag{Name: config.FlagConfigFile, Aliases: configAlias, Usage: "input " + config.FlagDescConfFile},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.NewSettings(c.StringSlice(config.FlagConfigFile)...)
					if err != nil {
						return err
					}

					report, err := runner.NewRunner(catalog.NewCatalog(cfg), c.StringSlice("check")...).Run(c.Context)
					if err != nil {
						return err
					}

					table := uitable.New()
					table.MaxColWidth = 80
					table.Wrap = true
					table.AddRow("CHECK", "RESULT", "DETAIL")
					for _, res := range report.Results() {
						result, detail := "pass", res.Detail
						if !res.Passing {
							result, detail = "FAIL", res.Error
						}
						table.AddRow(res.Name, result, detail)
					}
					fmt.Fprintln(c.App.Writer, table)

					if !report.Passing() {
						return ErrChecksFailed
					}
					return nil
				},
			},
		},
	}
	return cmd
}
