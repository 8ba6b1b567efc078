// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package build

// These values are replaced at compile time using the -X build flag:
//
//	-X github.com/cloudzero/cloudzero-quota-agent/pkg/build.Rev=${REVISION}
//	-X github.com/cloudzero/cloudzero-quota-agent/pkg/build.Tag=${TAG}
//	-X github.com/cloudzero/cloudzero-quota-agent/pkg/build.Time=${BUILD_TIME}
var (
	Rev  = "latest"
	Tag  = "latest"
	Time = "latest"
)
