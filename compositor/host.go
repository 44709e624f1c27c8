// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compositor

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/d3d"
)

// SwapChainDesc is the part of a swap chain description the driver reads.
type SwapChainDesc struct {
	Width  int
	Height int
	Format gputypes.TextureFormat

	// Window is the native handle of the output window.
	Window uintptr
}

// SwapChain is the host swap chain being presented.
//
// Device and Backbuffer return references owned by the caller. Device must
// return the same value for the same underlying device so the driver can
// notice when the host switches devices.
type SwapChain interface {
	Device() (d3d.Device, error)
	Desc() (SwapChainDesc, error)
	Backbuffer() (d3d.Texture2D, error)
}

// OverlayState tells the driver what to show this frame.
type OverlayState interface {
	// BrowserShown reports whether a full overlay owns the screen.
	BrowserShown() bool

	// ActiveOverlay selects the slot drawn while BrowserShown is true.
	ActiveOverlay() overlay.Slot

	// NotificationsShown reports whether the notification slot is drawn.
	NotificationsShown() bool
}

// StaticState is a fixed OverlayState.
type StaticState struct {
	Browser       bool
	Active        overlay.Slot
	Notifications bool
}

// BrowserShown implements OverlayState.
func (s StaticState) BrowserShown() bool { return s.Browser }

// ActiveOverlay implements OverlayState.
func (s StaticState) ActiveOverlay() overlay.Slot { return s.Active }

// NotificationsShown implements OverlayState.
func (s StaticState) NotificationsShown() bool { return s.Notifications }

// Registrar receives the shared texture table and adapter identity every
// time the driver (re)creates its surfaces, and a zero table on teardown.
// Producers use them to render straight into shared textures.
type Registrar interface {
	Register(handles overlay.SharedHandleTable, adapter d3d.LUID)
}

// IndicatorFunc is called once per frame with a draw function. It calls
// draw for every transient indicator that should appear this frame.
type IndicatorFunc func(draw func(kind overlay.Indicator, alpha uint8))

// InputHook is called once per frame with the output window before any
// overlay content is refreshed.
type InputHook func(window uintptr)

// StatusFunc reports the capture status shown in the status square, or
// false to hide it.
type StatusFunc func() (overlay.Status, bool)
