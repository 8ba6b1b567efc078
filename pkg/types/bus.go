// SPDX-FileCopyrightText: Copyright (c) 2016-2024, CloudZero, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package types

import "github.com/wagoodman/go-partybus"

type (
	Event        = partybus.Event
	Subscription = partybus.Subscription
)

// Bus fans filesystem events out to every subscriber.
type Bus interface {
	Subscribe() *Subscription
	Unsubscribe(*Subscription) error
	Publish(event Event)
}

// FileEvent is the Value of every filesystem event published on the Bus.
type FileEvent struct {
	Name string
}
