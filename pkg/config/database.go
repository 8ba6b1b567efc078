// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"path/filepath"
	"strings"
	"time"
)

type Database struct {
	InMemory    bool   `yaml:"in_memory" env:"DATABASE_IN_MEMORY" env-default:"false" env-description:"when set only an in memory sqlite database is used"`
	StoragePath string `yaml:"storage_path" env:"DATABASE_STORAGE_PATH" env-default:"/var/lib/quota-agent" env-description:"location where to write database"`
	Filename    string `yaml:"filename" env:"DATABASE_FILENAME" env-default:"quota.db" env-description:"database file name inside the storage path"`

	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"DATABASE_CLEANUP_INTERVAL" env-default:"1h" env-description:"how often expired cooldown records are purged"`
}

func (d *Database) Validate() error {
	d.StoragePath = strings.TrimSpace(d.StoragePath)
	d.Filename = strings.TrimSpace(d.Filename)
	if d.Filename == "" {
		d.Filename = "quota.db"
	}
	if d.StoragePath == "" {
		d.InMemory = true
	}
	if d.CleanupInterval <= 0 {
		d.CleanupInterval = time.Hour
	}
	return nil
}

// Location is the database file path, or empty when running in memory.
func (d *Database) Location() string {
	if d.InMemory {
		return ""
	}
	return filepath.Join(d.StoragePath, d.Filename)
}
