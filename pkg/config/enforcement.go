// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

type Enforcement struct {
	// AutoRestore lets an accounting pass lift enforcement once usage drops below
	// the quota. Off by default: only an explicit unenforce restores write access.
	AutoRestore bool   `yaml:"auto_restore" env:"ENFORCE_AUTO_RESTORE" env-default:"false" env-description:"restore write access automatically when usage drops below quota"`
	NoticeFile  string `yaml:"notice_file" env:"ENFORCE_NOTICE_FILE" env-default:"QUOTA_EXCEEDED.txt" env-description:"name of the notice written into the uploads directory"`
	LockDir     string `yaml:"lock_dir" env:"ENFORCE_LOCK_DIR" env-default:"/run/quota-agent" env-description:"directory holding per-tenant enforcement locks"`
}

func (e *Enforcement) Validate() error {
	e.NoticeFile = strings.TrimSpace(e.NoticeFile)
	if e.NoticeFile == "" {
		e.NoticeFile = "QUOTA_EXCEEDED.txt"
	}
	if filepath.Base(e.NoticeFile) != e.NoticeFile {
		return errors.Errorf("notice file %q must be a plain file name", e.NoticeFile)
	}
	if strings.TrimSpace(e.LockDir) == "" {
		e.LockDir = filepath.Join(os.TempDir(), "quota-agent")
	}
	return nil
}
