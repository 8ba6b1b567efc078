// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

const (
	FlagConfigFile   = "config-file"
	FlagDescConfFile = "configuration file location; repeat to layer files"

	FlagTenant      = "tenant"
	FlagDescTenant  = "tenant name (lowercase letters, digits, '-' and '_')"
	FlagContact     = "contact"
	FlagDescContact = "tenant contact address for alerts"
	FlagQuotaMB     = "quota-mb"
	FlagDescQuotaMB = "default quota in MB"
	FlagOutput      = "output"
	FlagDescOutput  = "output file; standard out when omitted"
	FlagConfirm     = "confirm"
	FlagDescConfirm = "accept a decrease that leaves little headroom"
	FlagAll         = "all"
	FlagDescAll     = "show every tenant"
)
