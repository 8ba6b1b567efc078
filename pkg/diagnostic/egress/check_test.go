// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package egress_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/config"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/diagnostic"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/diagnostic/egress"
	"github.com/cloudzero/cloudzero-quota-agent/test"
)

func settings(url string) *config.Settings {
	return &config.Settings{Alerts: config.Alerts{WebhookURL: url, SendTimeout: time.Second}}
}

func TestCheck_NoRelay(t *testing.T) {
	report := &diagnostic.Report{}
	require.NoError(t, egress.NewProvider(settings("")).Check(context.Background(), http.DefaultClient, report))
	assert.True(t, report.Passing())
}

func TestCheck_Reachable(t *testing.T) {
	mock := test.NewHTTPMock()
	mock.Expect(http.MethodHead, "", http.StatusMethodNotAllowed, nil)

	report := &diagnostic.Report{}
	require.NoError(t, egress.NewProvider(settings("http://relay.local/send")).Check(context.Background(), mock.HTTPClient(), report))
	assert.True(t, report.Passing())
	require.Len(t, mock.Calls(), 1)
	assert.Equal(t, "/send", mock.Calls()[0].URL.Path)
}

func TestCheck_Unreachable(t *testing.T) {
	mock := test.NewHTTPMock()
	mock.Expect(http.MethodHead, "", 0, errors.New("no route to host"))

	report := &diagnostic.Report{}
	require.NoError(t, egress.NewProvider(settings("http://relay.local/send")).Check(context.Background(), mock.HTTPClient(), report))
	assert.False(t, report.Passing())
	results := report.Results()
	require.Len(t, results, 1)
	assert.Equal(t, diagnostic.DiagnosticAlertRelay, results[0].Name)
}
