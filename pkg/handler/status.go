// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package handler provides the read-only HTTP surface of the agent.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-obvious/server"
	"github.com/go-obvious/server/api"
	"github.com/go-obvious/server/request"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

// StatusReader is the subset of the admin operations the status API serves.
type StatusReader interface {
	GetSnapshot(ctx context.Context, tenant string) (*types.UsageSnapshot, error)
	GetSnapshotAll(ctx context.Context) ([]*types.UsageSnapshot, error)
	EnforcementState(ctx context.Context, tenant string) (types.EnforcementState, error)
}

type EnforcementStatus struct {
	Tenant string                 `json:"tenant"`
	State  types.EnforcementState `json:"state"`
}

type errorReply struct {
	Error string `json:"error"`
}

type StatusAPI struct {
	api.Service
	reader StatusReader
}

func NewStatusAPI(base string, reader StatusReader) *StatusAPI {
	a := &StatusAPI{
		reader: reader,
		Service: api.Service{
			APIName: "status",
			Mounts:  map[string]*chi.Mux{},
		},
	}
	a.Service.Mounts[base] = a.Routes()
	return a
}

func (a *StatusAPI) Register(app server.Server) error {
	if err := a.Service.Register(app); err != nil {
		return err
	}
	return nil
}

func (a *StatusAPI) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Get("/snapshots", a.ListSnapshots)
	r.Get("/snapshots/{tenant}", a.GetSnapshot)
	r.Get("/enforcement/{tenant}", a.GetEnforcement)
	return r
}

func (a *StatusAPI) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := a.reader.GetSnapshotAll(r.Context())
	if err != nil {
		request.Reply(r, w, errorReply{Error: err.Error()}, http.StatusInternalServerError)
		return
	}
	if snaps == nil {
		snaps = []*types.UsageSnapshot{}
	}
	request.Reply(r, w, snaps, http.StatusOK)
}

func (a *StatusAPI) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := a.reader.GetSnapshot(r.Context(), chi.URLParam(r, "tenant"))
	if err != nil {
		request.Reply(r, w, errorReply{Error: err.Error()}, statusFor(err))
		return
	}
	request.Reply(r, w, snap, http.StatusOK)
}

func (a *StatusAPI) GetEnforcement(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	state, err := a.reader.EnforcementState(r.Context(), tenant)
	if err != nil {
		request.Reply(r, w, errorReply{Error: err.Error()}, statusFor(err))
		return
	}
	request.Reply(r, w, EnforcementStatus{Tenant: tenant, State: state}, http.StatusOK)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
