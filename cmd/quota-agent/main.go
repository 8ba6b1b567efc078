// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-obvious/server"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/build"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/config"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/domain"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/handler"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/healthz"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/logging"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/storage/repo"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/utils"
)

type configFiles []string

func (c *configFiles) String() string { return strings.Join(*c, ",") }

func (c *configFiles) Set(v string) error {
	*c = append(*c, v)
	return nil
}

func main() {
	var files configFiles
	flag.Var(&files, "config", "Path to a configuration file (repeatable, later files override earlier ones)")
	flag.Parse()

	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			log.Fatal().Err(err).Str("file", f).Msg("configuration file does not exist")
		}
	}

	settings, err := config.NewSettings(files...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load settings")
	}

	ctx := context.Background()
	logger, err := logging.NewLogger(
		logging.WithLevel(settings.Logging.Level),
		logging.WithVersion(build.GetVersion()),
		logging.WithTenant(settings.Tenant.Name),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create the logger")
	}
	ctx = logger.WithContext(ctx)

	clock := &utils.Clock{}
	stores, err := repo.Open(clock, settings.Database.Location())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}

	services := domain.NewServices(settings, stores, nil, clock)
	daemon, err := domain.NewDaemon(ctx, services)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize quota daemon")
	}
	if err := daemon.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start quota daemon")
	}

	healthz.Register("daemon", func() error {
		if !daemon.IsRunning() {
			return errors.New("quota daemon is not running")
		}
		return nil
	})
	healthz.Register("database", func() error {
		_, err := stores.Tenants.Count(ctx)
		return err
	})

	if !settings.Server.Enabled {
		logger.Info().Str("tenant", daemon.Tenant().Name).Msg("Quota daemon running")
		HandleShutdownEvents(ctx, daemon, stores)
		return
	}

	// Handle shutdown events gracefully
	go func() {
		HandleShutdownEvents(ctx, daemon, stores)
		os.Exit(0)
	}()

	loggerMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestLogger := log.Ctx(ctx).With().
				Str("path", r.URL.Path).
				Str("method", r.Method).
				Str("remote_addr", r.RemoteAddr).
				Logger()

			requestLogger.Trace().Msg("received request")

			next.ServeHTTP(w, r.WithContext(requestLogger.WithContext(r.Context())))
		})
	}

	logger.Info().Msg("Starting status service")
	server.New(
		&server.ServerVersion{
			Revision: build.Rev,
			Tag:      build.Tag,
			Time:     build.Time,
		},
		[]server.Middleware{
			loggerMiddleware,
			handler.PromHTTPMiddleware,
		},
		handler.NewStatusAPI("/", domain.NewAdmin(services)),
		handler.NewPromMetricsAPI("/metrics"),
		handler.NewHealthAPI("/healthz"),
	).Run(ctx)
	logger.Info().Msg("Status service stopping")
}

// HandleShutdownEvents blocks until SIGINT or SIGTERM, then runs the final
// quota pass and closes the state database.
func HandleShutdownEvents(ctx context.Context, daemon *domain.Daemon, stores *repo.Stores) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signalChan

	log.Ctx(ctx).Info().Str("signal", sig.String()).Msg("Received signal, service stopping")
	if err := daemon.Shutdown(); err != nil {
		log.Ctx(ctx).Err(err).Msg("quota daemon shutdown")
	}
	if err := stores.Close(); err != nil {
		log.Ctx(ctx).Err(err).Msg("failed to close state database")
	}
}
