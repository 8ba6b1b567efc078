// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package runner executes a set of diagnostics concurrently.
package runner

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/diagnostic"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/diagnostic/catalog"
)

type Engine interface {
	Run(context.Context) (*diagnostic.Report, error)
}

type runner struct {
	client *http.Client
	plan   []diagnostic.Provider
}

// NewRunner plans the named checks; every registered check runs when checks
// is empty. Unknown names are ignored.
func NewRunner(reg catalog.Registry, checks ...string) Engine {
	if len(checks) == 0 {
		checks = reg.List()
	}
	return &runner{
		client: &http.Client{Timeout: 30 * time.Second},
		plan:   reg.Get(checks...),
	}
}

func (r *runner) Run(ctx context.Context) (*diagnostic.Report, error) {
	report := &diagnostic.Report{}
	errHistory := make([]error, len(r.plan))

	var wg sync.WaitGroup
	for i, p := range r.plan {
		wg.Add(1)
		go func(i int, p diagnostic.Provider) {
			defer wg.Done()
			if err := p.Check(ctx, r.client, report); err != nil {
				errHistory[i] = err
			}
		}(i, p)
	}
	wg.Wait()

	for _, res := range report.Results() {
		ev := log.Ctx(ctx).Debug()
		if !res.Passing {
			ev = log.Ctx(ctx).Warn().Str("error", res.Error)
		}
		ev.Str("check", res.Name).Bool("passing", res.Passing).Msg("diagnostic finished")
	}
	return report, errors.Join(errHistory...)
}
