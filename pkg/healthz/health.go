// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package healthz aggregates named liveness checks behind a single HTTP endpoint.
package healthz

import (
	"net/http"
	"sort"
	"sync"
)

type HealthCheck func() error

type HealthChecker interface {
	EndpointHandler() http.HandlerFunc
	// Check runs every registered check in name order and returns the first
	// failing check's name and error.
	Check() (string, error)
}

// Register a health check function; a later registration under the same name
// replaces the earlier one.
func Register(name string, fn HealthCheck) {
	NewHealthz().(*checker).add(name, fn) //nolint:errcheck
}

var (
	h    *checker
	once sync.Once
)

type checker struct {
	mu     sync.Mutex
	checks map[string]HealthCheck
}

func NewHealthz() HealthChecker {
	once.Do(func() {
		h = &checker{}
	})
	return h
}

func (x *checker) add(name string, fn HealthCheck) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.checks == nil {
		x.checks = make(map[string]HealthCheck)
	}
	x.checks[name] = fn
}

func (x *checker) Check() (string, error) {
	x.mu.Lock()
	names := make([]string, 0, len(x.checks))
	checks := make(map[string]HealthCheck, len(x.checks))
	for name, fn := range x.checks {
		names = append(names, name)
		checks[name] = fn
	}
	x.mu.Unlock()

	sort.Strings(names)
	for _, name := range names {
		if err := checks[name](); err != nil {
			return name, err
		}
	}
	return "", nil
}

func (x *checker) EndpointHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if name, err := x.Check(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(name + " failed: " + err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
