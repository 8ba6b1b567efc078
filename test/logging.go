// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package test holds helpers shared by package tests.
package test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// LogCapture collects JSON log lines so tests can assert on what was logged.
type LogCapture struct {
	lock  sync.Mutex
	lines []string
}

// NewLogCapture returns a capture and a context carrying a debug level logger
// that writes into it.
func NewLogCapture(ctx context.Context) (*LogCapture, context.Context) {
	capture := &LogCapture{}
	logger := zerolog.New(capture).Level(zerolog.DebugLevel)
	return capture, logger.WithContext(ctx)
}

// Write captures one log line.
func (l *LogCapture) Write(p []byte) (int, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.lines = append(l.lines, strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

func (l *LogCapture) Clear() {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.lines = nil
}

func (l *LogCapture) Len() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return len(l.lines)
}

// Extract returns the value of key on the line at index, or empty when the
// line has no such field. Non-string values are returned in their JSON form.
func (l *LogCapture) Extract(index int, key string) string {
	l.lock.Lock()
	defer l.lock.Unlock()
	if index < 0 || index >= len(l.lines) {
		return ""
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(l.lines[index]), &fields); err != nil {
		return ""
	}
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Find returns the index of the first line whose message is msg, or -1.
func (l *LogCapture) Find(msg string) int {
	for i := 0; i < l.Len(); i++ {
		if l.Extract(i, zerolog.MessageFieldName) == msg {
			return i
		}
	}
	return -1
}
