// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Logging struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info" env-description:"logging level such as debug, info, error"`
}

func (l *Logging) Validate() error {
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	if l.Level == "" {
		l.Level = "info"
	}
	if _, err := zerolog.ParseLevel(l.Level); err != nil {
		return errors.Wrap(err, "log level")
	}
	return nil
}
