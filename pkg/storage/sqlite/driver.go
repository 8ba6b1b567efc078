// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package sqlite opens the SQLite database behind the repositories, either a
// file shared by every tenant daemon on the host or a private in-memory one.
package sqlite

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/storage/core"
)

const (
	InMemoryDSN        = ":memory:"
	MemorySharedCached = "file::memory:?cache=shared"

	// busyTimeoutMillis bounds how long a writer waits for a lock held by another daemon.
	busyTimeoutMillis = 5000
)

// NewSQLiteDriver creates a gorm SQLite driver configured with our settings.
func NewSQLiteDriver(dsn string) (*gorm.DB, error) {
	db, err := core.NewDriver(sqlite.Open(dsn))
	if err != nil {
		return nil, err
	}
	return db, nil
}

// PrivateMemoryDSN returns a shared-cache in-memory DSN unique to the caller,
// so independent stores in one process never see each other's rows.
func PrivateMemoryDSN() string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
}

// Open opens the database at location, or a private in-memory database when
// location is empty. The pool is limited to one connection and writers wait
// for locks instead of failing immediately.
func Open(location string) (*gorm.DB, error) {
	dsn := PrivateMemoryDSN()
	if location != "" {
		if err := os.MkdirAll(filepath.Dir(location), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = "file:" + location
	}

	db, err := NewSQLiteDriver(dsn)
	if err != nil {
		return nil, core.TranslateError(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, core.TranslateError(err)
	}
	// REFS:
	// https://github.com/mattn/go-sqlite3/issues/204
	// https://gorm.io/docs/connecting_to_the_database.html#Connection-Pool
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	if _, err := sqlDB.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeoutMillis)); err != nil {
		return nil, core.TranslateError(err)
	}
	return db, nil
}
