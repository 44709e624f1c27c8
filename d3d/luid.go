// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package d3d

import "fmt"

// LUID is a locally unique adapter identifier. Two devices share textures
// only when their adapters report the same LUID.
type LUID struct {
	Low  uint32
	High int32
}

// IsZero reports whether the LUID is unset.
func (l LUID) IsZero() bool { return l.Low == 0 && l.High == 0 }

// String formats the LUID as high:low hex.
func (l LUID) String() string {
	return fmt.Sprintf("%08x:%08x", uint32(l.High), l.Low)
}

// SharedHandle is an OS handle to a shareable texture. Zero means "none".
type SharedHandle uintptr
