// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
)

// addressPolicy strips all markup. Addresses are copied into relayed alert
// bodies, which mail and chat relays may render as HTML.
var addressPolicy = bluemonday.StrictPolicy()

// plainAddress rejects an address the strict policy would alter.
func plainAddress(field, value string) error {
	if value == "" {
		return nil
	}
	if clean := addressPolicy.Sanitize(value); clean != value {
		return errors.Errorf("%s %q contains markup", field, value)
	}
	return nil
}
