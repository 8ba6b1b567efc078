// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultSlowThreshold is the query duration above which a statement is logged at warn.
const DefaultSlowThreshold = 250 * time.Millisecond

// ZeroLogAdapter routes GORM's logging to the zerolog logger bound to the context.
type ZeroLogAdapter struct {
	SlowThreshold time.Duration
}

func (l ZeroLogAdapter) LogMode(logger.LogLevel) logger.Interface {
	return l
}

func (l ZeroLogAdapter) Error(ctx context.Context, msg string, opts ...any) {
	zerolog.Ctx(ctx).Error().Msg(fmt.Sprintf(msg, opts...))
}

func (l ZeroLogAdapter) Warn(ctx context.Context, msg string, opts ...any) {
	zerolog.Ctx(ctx).Warn().Msg(fmt.Sprintf(msg, opts...))
}

func (l ZeroLogAdapter) Info(ctx context.Context, msg string, opts ...any) {
	zerolog.Ctx(ctx).Info().Msg(fmt.Sprintf(msg, opts...))
}

// Trace logs one executed statement. Successful statements go to trace, failures
// to debug (callers log the translated error themselves) and slow ones to warn.
// A missing row is an expected outcome and is not treated as a failure.
func (l ZeroLogAdapter) Trace(ctx context.Context, begin time.Time, f func() (string, int64), err error) {
	zl := zerolog.Ctx(ctx)
	elapsed := time.Since(begin)

	var event *zerolog.Event
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		event = zl.Debug().Err(err)
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold:
		event = zl.Warn().Str("slow", l.SlowThreshold.String())
	default:
		event = zl.Trace()
	}

	event.Dur("elapsed", elapsed)

	sql, rows := f()
	if sql != "" {
		event.Str("sql", sql)
	}
	if rows > -1 {
		event.Int64("rows", rows)
	}

	event.Send()
}
