// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/build"
	configcmd "github.com/cloudzero/cloudzero-quota-agent/pkg/cmd/config"
	diagcmd "github.com/cloudzero/cloudzero-quota-agent/pkg/cmd/diagnose"
	quotacmd "github.com/cloudzero/cloudzero-quota-agent/pkg/cmd/quota"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/logging"
)

func main() {
	ctx := ctrlCHandler()

	app := &cli.App{
		Name:     "quotactl",
		Version:  fmt.Sprintf("%s/%s-%s", build.GetVersion(), runtime.GOOS, runtime.GOARCH),
		Compiled: time.Now(),
		Authors: []*cli.Author{
			{Name: build.AuthorName, Email: build.AuthorEmail},
		},
		Copyright:            build.Copyright,
		Usage:                "administer per-tenant disk quotas",
		EnableBashCompletion: true,
		Before: func(c *cli.Context) error {
			level := os.Getenv("LOG_LEVEL")
			if level == "" {
				level = "warn"
			}
			logger, err := logging.NewLogger(
				logging.WithLevel(level),
				logging.WithSink(os.Stderr),
			)
			if err != nil {
				return err
			}
			c.Context = logger.WithContext(c.Context)
			return nil
		},
	}

	app.Commands = append(app.Commands, quotacmd.NewCommands(quotacmd.OpenFromConfig)...)
	app.Commands = append(app.Commands,
		configcmd.NewCommand(),
		diagcmd.NewCommand(),
	)

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("Failed to run command")
	}
}

func ctrlCHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt)
	go func() {
		<-stopCh
		cancel()
		os.Exit(1)
	}()
	return ctx
}
