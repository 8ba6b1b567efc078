// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/handler"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/healthz"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

const MountBase = "/"

type fakeReader struct {
	snaps map[string]*types.UsageSnapshot
	state map[string]types.EnforcementState
	err   error
}

func (f *fakeReader) GetSnapshot(_ context.Context, tenant string) (*types.UsageSnapshot, error) {
	if err := types.ValidateTenantName(tenant); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	snap, ok := f.snaps[tenant]
	if !ok {
		return nil, fmt.Errorf("snapshot %s: %w", tenant, types.ErrNotFound)
	}
	return snap, nil
}

func (f *fakeReader) GetSnapshotAll(context.Context) ([]*types.UsageSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*types.UsageSnapshot
	for _, s := range f.snaps {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeReader) EnforcementState(_ context.Context, tenant string) (types.EnforcementState, error) {
	if err := types.ValidateTenantName(tenant); err != nil {
		return "", err
	}
	if state, ok := f.state[tenant]; ok {
		return state, nil
	}
	return types.StateActive, nil
}

func newReader() *fakeReader {
	snap, _, _ := types.NewUsageSnapshot("acme", 85*types.MiB, 100*types.MiB, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	return &fakeReader{
		snaps: map[string]*types.UsageSnapshot{"acme": snap},
		state: map[string]types.EnforcementState{"acme": types.StateEnforced},
	}
}

func serve(t *testing.T, a *handler.StatusAPI, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	a.Routes().ServeHTTP(rr, req)
	return rr
}

func TestStatusAPI_ListSnapshots(t *testing.T) {
	t.Run("list returns 200", func(t *testing.T) {
		a := handler.NewStatusAPI(MountBase, newReader())
		rr := serve(t, a, "/snapshots")

		var snaps []*types.UsageSnapshot
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snaps))
		assert.Equal(t, http.StatusOK, rr.Code)
		want := []*types.UsageSnapshot{newReader().snaps["acme"]}
		if diff := cmp.Diff(want, snaps); diff != "" {
			t.Errorf("snapshots mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("empty list is an array", func(t *testing.T) {
		a := handler.NewStatusAPI(MountBase, &fakeReader{})
		rr := serve(t, a, "/snapshots")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, strings.TrimSpace(rr.Body.String()))
	})

	t.Run("store failure returns 500", func(t *testing.T) {
		a := handler.NewStatusAPI(MountBase, &fakeReader{err: assert.AnError})
		rr := serve(t, a, "/snapshots")
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestStatusAPI_GetSnapshot(t *testing.T) {
	a := handler.NewStatusAPI(MountBase, newReader())

	tests := []struct {
		name string
		path string
		code int
	}{
		{name: "known tenant", path: "/snapshots/acme", code: http.StatusOK},
		{name: "unknown tenant", path: "/snapshots/other", code: http.StatusNotFound},
		{name: "invalid tenant", path: "/snapshots/Bad%20Name", code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(t, a, tt.path)
			assert.Equal(t, tt.code, rr.Code)
		})
	}

	rr := serve(t, a, "/snapshots/acme")
	var snap types.UsageSnapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, "warning", snap.Level)
	assert.Equal(t, int64(85), snap.UsageMB)
}

func TestStatusAPI_GetEnforcement(t *testing.T) {
	a := handler.NewStatusAPI(MountBase, newReader())

	rr := serve(t, a, "/enforcement/acme")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"tenant":"acme","state":"enforced"}`, strings.TrimSpace(rr.Body.String()))

	rr = serve(t, a, "/enforcement/other")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"tenant":"other","state":"active"}`, strings.TrimSpace(rr.Body.String()))
}

func TestHealthAPI(t *testing.T) {
	healthz.Register("handler-test", func() error { return nil })
	a := handler.NewHealthAPI(MountBase)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	a.Routes().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestPromMetricsAPI(t *testing.T) {
	a := handler.NewPromMetricsAPI(MountBase)
	h := handler.PromHTTPMiddleware(a.Routes())

	scrape := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}
	require.Equal(t, http.StatusOK, scrape().Code)
	rr := scrape()
	require.Equal(t, http.StatusOK, rr.Code)

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(strings.NewReader(rr.Body.String()))
	require.NoError(t, err)

	requests, ok := families["http_requests_total"]
	require.True(t, ok, "request counter not exposed")
	assert.Equal(t, dto.MetricType_COUNTER, requests.GetType())
	var served float64
	for _, m := range requests.GetMetric() {
		if labelValue(m, "code") == "200" && labelValue(m, "method") == "get" {
			served = m.GetCounter().GetValue()
		}
	}
	assert.GreaterOrEqual(t, served, float64(1))

	duration, ok := families["http_request_duration_seconds"]
	require.True(t, ok, "request histogram not exposed")
	assert.Equal(t, dto.MetricType_HISTOGRAM, duration.GetType())
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
