// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"github.com/go-chi/chi"
	"github.com/go-obvious/server"
	"github.com/go-obvious/server/api"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/healthz"
)

// HealthAPI serves the registered healthz checks.
type HealthAPI struct {
	api.Service
}

func NewHealthAPI(base string) *HealthAPI {
	a := &HealthAPI{
		Service: api.Service{
			APIName: "healthz",
			Mounts:  map[string]*chi.Mux{},
		},
	}
	a.Service.Mounts[base] = a.Routes()
	return a
}

func (a *HealthAPI) Register(app server.Server) error {
	if err := a.Service.Register(app); err != nil {
		return err
	}
	return nil
}

func (a *HealthAPI) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Get("/", healthz.NewHealthz().EndpointHandler())
	return r
}
