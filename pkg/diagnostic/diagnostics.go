// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package diagnostic defines preflight checks an operator runs before
// starting a quota daemon on a host.
package diagnostic

import (
	"context"
	"net/http"
	"sort"
	"sync"
)

const (
	DiagnosticDirectories  = "directories"
	DiagnosticLockDir      = "lock_dir"
	DiagnosticDatabase     = "database"
	DiagnosticNotification = "notifications"
	DiagnosticAlertRelay   = "alert_relay"
)

// Provider is implemented by every check. Check records its findings on the
// report and only returns an error when the run cannot continue.
type Provider interface {
	Check(ctx context.Context, client *http.Client, report *Report) error
}

type Result struct {
	Name    string `json:"name"`
	Passing bool   `json:"passing"`
	Detail  string `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Report collects results from checks running concurrently.
type Report struct {
	mu      sync.Mutex
	results []Result
}

func (r *Report) AddCheck(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

// Pass records a passing result.
func (r *Report) Pass(name, detail string) {
	r.AddCheck(Result{Name: name, Passing: true, Detail: detail})
}

// Fail records a failing result.
func (r *Report) Fail(name string, err error) {
	r.AddCheck(Result{Name: name, Passing: false, Error: err.Error()})
}

// Results returns a copy ordered by name.
func (r *Report) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]Result(nil), r.results...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Passing reports whether every recorded check passed.
func (r *Report) Passing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.results {
		if !res.Passing {
			return false
		}
	}
	return true
}
