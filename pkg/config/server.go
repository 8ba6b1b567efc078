// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

// Server toggles the read-only status API. The HTTP server package reads its
// listener settings from the same SERVER_* environment variables.
type Server struct {
	Enabled bool   `yaml:"enabled" env:"STATUS_SERVER_ENABLED" env-default:"false" env-description:"expose snapshots and metrics over http"`
	Mode    string `yaml:"mode" env:"SERVER_MODE" env-default:"http" env-description:"server mode such as http, https"`
	Port    uint   `yaml:"port" env:"SERVER_PORT" env-default:"8080" env-description:"server port"`
}
