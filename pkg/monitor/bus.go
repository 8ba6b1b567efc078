// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package monitor

import (
	"github.com/wagoodman/go-partybus"

	"github.com/cloudzero/cloudzero-quota-agent/pkg/types"
)

type bus struct {
	bus *partybus.Bus
}

// NewBus creates the in-process event bus between the FileMonitor and its listeners.
func NewBus() types.Bus {
	return &bus{bus: partybus.NewBus()}
}

func (b *bus) Subscribe() *types.Subscription {
	return b.bus.Subscribe()
}

func (b *bus) Unsubscribe(sub *types.Subscription) error {
	return b.bus.Unsubscribe(sub)
}

func (b *bus) Publish(event types.Event) {
	b.bus.Publish(event)
}
