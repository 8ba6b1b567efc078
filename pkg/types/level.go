// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"fmt"
	"math"
	"math/bits"
)

// UsageLevel classifies a usage ratio against the configured quota.
type UsageLevel int

const (
	LevelOK UsageLevel = iota
	LevelWarning
	LevelCritical
	LevelOver
)

const (
	WarningPercent  = 80
	CriticalPercent = 90
	OverPercent     = 100
)

func (l UsageLevel) String() string {
	switch l {
	case LevelOK:
		return "ok"
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	case LevelOver:
		return "over"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// UsagePercent is floor(usage*100/quota). The quota must be positive.
func UsagePercent(usageBytes, quotaBytes int64) (int, error) {
	if quotaBytes <= 0 {
		return 0, fmt.Errorf("%w: quota must be positive, got %d", ErrInvalidValue, quotaBytes)
	}
	if usageBytes < 0 {
		usageBytes = 0
	}
	return percentOf(usageBytes, quotaBytes), nil
}

// percentOf is floor(part*100/whole) computed in 128 bits, clamped to MaxInt.
// part must be non-negative and whole positive.
func percentOf(part, whole int64) int {
	hi, lo := bits.Mul64(uint64(part), 100)
	if hi >= uint64(whole) {
		return math.MaxInt
	}
	q, _ := bits.Div64(hi, lo, uint64(whole))
	if q > math.MaxInt {
		return math.MaxInt
	}
	return int(q)
}

// Classify maps a usage ratio onto OK (<80), WARNING (80-89), CRITICAL (90-99) or OVER (>=100).
func Classify(usageBytes, quotaBytes int64) (UsageLevel, int, error) {
	pct, err := UsagePercent(usageBytes, quotaBytes)
	if err != nil {
		return LevelOK, 0, err
	}
	return LevelForPercent(pct), pct, nil
}

// LevelForPercent classifies an already computed percentage.
func LevelForPercent(pct int) UsageLevel {
	switch {
	case pct >= OverPercent:
		return LevelOver
	case pct >= CriticalPercent:
		return LevelCritical
	case pct >= WarningPercent:
		return LevelWarning
	default:
		return LevelOK
	}
}
