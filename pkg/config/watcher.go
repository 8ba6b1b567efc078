// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"

	"github.com/pkg/errors"
)

type Watcher struct {
	Debounce      time.Duration `yaml:"debounce" env:"WATCH_DEBOUNCE" env-default:"3s" env-description:"quiet period after a filesystem event before accounting"`
	MaxConcurrent int           `yaml:"max_concurrent" env:"WATCH_MAX_CONCURRENT" env-default:"5" env-description:"maximum in-flight accounting passes"`
	Exclude       []string      `yaml:"exclude" env:"WATCH_EXCLUDE" env-default:".git" env-description:"directory names never watched"`
}

func (w *Watcher) Validate() error {
	if w.Debounce < 0 {
		return errors.New("debounce is negative")
	}
	if w.Debounce == 0 {
		w.Debounce = 3 * time.Second
	}
	if w.MaxConcurrent < 0 {
		return errors.New("max concurrent is negative")
	}
	if w.MaxConcurrent == 0 {
		w.MaxConcurrent = 5
	}
	if len(w.Exclude) == 0 {
		w.Exclude = []string{".git"}
	}
	return nil
}

type Scanner struct {
	Interval time.Duration `yaml:"interval" env:"SCAN_INTERVAL" env-default:"300s" env-description:"period of the fallback accounting pass"`
}

func (s *Scanner) Validate() error {
	if s.Interval < 0 {
		return errors.New("scan interval is negative")
	}
	if s.Interval == 0 {
		s.Interval = 300 * time.Second
	}
	return nil
}
