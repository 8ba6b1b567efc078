// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package alert

import (
	"fmt"
	"strings"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

const remedies = `To resolve this you can:
  - free space by deleting files you no longer need from your uploads or published site
  - remove old or duplicate files
  - request a quota increase from your administrator`

// ThresholdMessage is the notice for a WARNING, CRITICAL or OVER classification.
func ThresholdMessage(recipients []string, tenant string, snap *types.UsageSnapshot, level types.UsageLevel) *types.Message {
	var subject, lead string
	switch level {
	case types.LevelWarning:
		subject = fmt.Sprintf("[%s] storage usage warning: %d%% of quota used", tenant, snap.UsagePercent)
		lead = "Your storage usage has passed 80% of your quota."
	case types.LevelCritical:
		subject = fmt.Sprintf("[%s] storage usage critical: %d%% of quota used", tenant, snap.UsagePercent)
		lead = "Your storage usage has passed 90% of your quota. Uploads will be blocked once you reach 100%."
	default:
		subject = fmt.Sprintf("[%s] storage quota exceeded: %d%% of quota used", tenant, snap.UsagePercent)
		lead = "Your storage usage has reached or exceeded your quota. New uploads are blocked."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n%s\n\n", tenant, lead)
	writeUsage(&b, snap)
	b.WriteString("\n")
	b.WriteString(remedies)
	b.WriteString("\n")
	return &types.Message{Recipients: recipients, Subject: subject, Body: b.String()}
}

// EnforcedMessage is the notice sent when uploads become read-only.
func EnforcedMessage(recipients []string, tenant string, snap *types.UsageSnapshot, notice string) *types.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\nYour account is now read-only because your storage usage exceeded your quota.\n", tenant)
	b.WriteString("Existing files remain available, but no new files can be uploaded.\n\n")
	if snap != nil {
		writeUsage(&b, snap)
		b.WriteString("\n")
	}
	if notice != "" {
		fmt.Fprintf(&b, "A notice named %s has been placed in your uploads folder.\n\n", notice)
	}
	b.WriteString(remedies)
	b.WriteString("\n\nWrite access is restored by an administrator once usage is back under quota.\n")
	return &types.Message{
		Recipients: recipients,
		Subject:    fmt.Sprintf("[%s] account is now read-only", tenant),
		Body:       b.String(),
	}
}

// RestoredMessage is the notice sent when write access comes back.
func RestoredMessage(recipients []string, tenant string, snap *types.UsageSnapshot) *types.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\nWrite access to your account has been restored. You can upload files again.\n", tenant)
	if snap != nil {
		b.WriteString("\n")
		writeUsage(&b, snap)
	}
	return &types.Message{
		Recipients: recipients,
		Subject:    fmt.Sprintf("[%s] access restored", tenant),
		Body:       b.String(),
	}
}

// NoticeText is the content of the read-only notice file placed in the uploads directory.
func NoticeText(tenant string, snap *types.UsageSnapshot) string {
	var b strings.Builder
	b.WriteString("STORAGE QUOTA EXCEEDED\n\n")
	fmt.Fprintf(&b, "The uploads area for %s is read-only because storage usage exceeded the quota.\n\n", tenant)
	if snap != nil {
		writeUsage(&b, snap)
		b.WriteString("\n")
	}
	b.WriteString(remedies)
	b.WriteString("\n")
	return b.String()
}

func writeUsage(b *strings.Builder, snap *types.UsageSnapshot) {
	fmt.Fprintf(b, "  Usage: %d MB (%s)\n", snap.UsageMB, types.FormatBytes(snap.UsageBytes))
	fmt.Fprintf(b, "  Quota: %d MB (%s)\n", snap.QuotaMB, types.FormatBytes(snap.QuotaBytes))
	fmt.Fprintf(b, "  Used:  %d%%\n", snap.UsagePercent)
}
