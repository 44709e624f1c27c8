// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compositor

// State is the lifecycle state of a Driver.
type State uint8

const (
	// StateUninitialized means no device is bound.
	StateUninitialized State = iota

	// StateReady means GPU resources exist and the driver is between
	// frames.
	StateReady

	// StateCompositing means the host pipeline is saved and overlay draws
	// are in progress.
	StateCompositing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateCompositing:
		return "compositing"
	default:
		return "unknown"
	}
}
