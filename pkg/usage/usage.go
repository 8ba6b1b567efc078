// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package usage measures how many bytes a tenant occupies in its billable trees.
package usage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

var (
	usageStatsOnce sync.Once

	scanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quota_usage_scan_duration_seconds",
			Help:    "Time spent walking a tenant's billable directories.",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
		},
		[]string{"tenant"},
	)
	missingDirTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_usage_missing_directory_total",
			Help: "Billable directories found missing during accounting and counted as zero.",
		},
		[]string{"tenant"},
	)
)

var _ types.UsageCalculator = (*Accountant)(nil)

// Accountant computes a tenant's usage as the sum of its uploads and published
// trees. Version-control storage is never walked.
type Accountant struct{}

func NewAccountant() *Accountant {
	usageStatsOnce.Do(func() {
		prometheus.MustRegister(scanDuration, missingDirTotal)
	})
	return &Accountant{}
}

// Calculate walks both billable trees. A tree that does not exist counts as
// zero and is reported in Usage.Missing.
func (a *Accountant) Calculate(ctx context.Context, tenant *types.Tenant) (*types.Usage, error) {
	start := time.Now()
	defer func() {
		scanDuration.WithLabelValues(tenant.Name).Observe(time.Since(start).Seconds())
	}()

	out := &types.Usage{}
	for _, target := range []struct {
		path string
		into *int64
	}{
		{tenant.UploadsPath, &out.UploadsBytes},
		{tenant.PublishedPath, &out.PublishedBytes},
	} {
		size, err := DirSize(ctx, target.path)
		if errors.Is(err, fs.ErrNotExist) {
			log.Ctx(ctx).Warn().
				Str("tenant", tenant.Name).
				Str("path", target.path).
				Msg("billable directory missing, counting as zero")
			missingDirTotal.WithLabelValues(tenant.Name).Inc()
			out.Missing = append(out.Missing, target.path)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("usage of %s: %w", target.path, err)
		}
		*target.into = size
	}

	log.Ctx(ctx).Debug().
		Str("tenant", tenant.Name).
		Int64("uploads", out.UploadsBytes).
		Int64("published", out.PublishedBytes).
		Dur("elapsed", time.Since(start)).
		Msg("usage calculated")
	return out, nil
}

// DirSize returns the total apparent size of the regular files below root.
// Symbolic links are not followed. Entries removed while the walk is in
// progress are skipped. It returns an error wrapping fs.ErrNotExist when root
// itself is missing.
func DirSize(ctx context.Context, root string) (int64, error) {
	info, err := os.Stat(root)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%s: not a directory", root)
	}

	var total int64
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			if path == root {
				return err
			}
			log.Ctx(ctx).Debug().Err(err).Str("path", path).Msg("skipping unreadable entry")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			// removed between readdir and stat
			return nil
		}
		total += fi.Size()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
