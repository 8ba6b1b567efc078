// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package catalog contains the registry of diagnostics.
package catalog

import (
	"sort"
	"sync"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/config"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/diagnostic"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/diagnostic/egress"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/diagnostic/layout"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/diagnostic/notify"
	"github.com/cloudzero/cloudzero-quota-agent/pkg/diagnostic/storage"
)

type Registry interface {
	// Has checks if the specified diagnostic is registered
	Has(id string) bool
	// Get retrieves the diagnostic providers for the given IDs
	Get(ids ...string) []diagnostic.Provider
	// List returns the registered diagnostic IDs in name order
	List() []string
}

type registry struct {
	mu        sync.Mutex
	providers map[string]diagnostic.Provider
}

func NewCatalog(c *config.Settings) Registry {
	r := &registry{
		providers: make(map[string]diagnostic.Provider),
	}
	r.add(diagnostic.DiagnosticDirectories, layout.NewDirectoriesProvider(c))
	r.add(diagnostic.DiagnosticLockDir, layout.NewLockDirProvider(c))
	r.add(diagnostic.DiagnosticDatabase, storage.NewProvider(c))
	r.add(diagnostic.DiagnosticNotification, notify.NewProvider(c))
	r.add(diagnostic.DiagnosticAlertRelay, egress.NewProvider(c))
	return r
}

func (r *registry) Get(ids ...string) []diagnostic.Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	providers := []diagnostic.Provider{}
	for _, id := range ids {
		if p, ok := r.providers[id]; ok {
			providers = append(providers, p)
		}
	}
	return providers
}

func (r *registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.providers[id]
	return ok
}

func (r *registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *registry) add(name string, provider diagnostic.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if provider == nil {
		panic("diagnostics: Register provider is nil")
	}
	if _, dup := r.providers[name]; dup {
		panic("diagnostics: Register called twice for provider " + name)
	}
	r.providers[name] = provider
}
