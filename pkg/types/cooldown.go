// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package types

import "time"

// AlertKind identifies a family of alert for deduplication.
type AlertKind string

const (
	AlertWarning  AlertKind = "warning"
	AlertCritical AlertKind = "critical"
	AlertOver     AlertKind = "over"
	AlertEnforced AlertKind = "enforced"
	AlertRestored AlertKind = "restored"
)

// RealtimeKind is the key the daemon uses for its own gate in front of the dispatcher.
func RealtimeKind(kind AlertKind) AlertKind {
	return "realtime:" + kind
}

// AlertKindForLevel returns the threshold alert kind for a level, or false for OK.
func AlertKindForLevel(level UsageLevel) (AlertKind, bool) {
	switch level {
	case LevelWarning:
		return AlertWarning, true
	case LevelCritical:
		return AlertCritical, true
	case LevelOver:
		return AlertOver, true
	default:
		return "", false
	}
}

// AlertCooldown records when an alert of a kind was last delivered for a tenant.
type AlertCooldown struct {
	Tenant   string    `gorm:"primaryKey" json:"tenant"`
	Kind     AlertKind `gorm:"primaryKey" json:"kind"`
	LastSent time.Time `json:"lastSent"`
}

// Message is what the alert transport delivers.
type Message struct {
	Recipients []string
	Subject    string
	Body       string
}
