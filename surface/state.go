// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

// State tracks whether a GPU resource exists and whether its content is
// current.
type State uint8

const (
	// Absent means the resource was never created or has been released.
	Absent State = iota

	// Stale means the resource exists but holds no usable content yet, or
	// its source has changed since it was last filled.
	Stale

	// Fresh means the resource exists and holds the latest content.
	Fresh
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Stale:
		return "stale"
	case Fresh:
		return "fresh"
	default:
		return "unknown"
	}
}
