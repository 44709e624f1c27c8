// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fbserver

import (
	"sync"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/compositor"
	"github.com/gogpu/overlay/d3d"
	"github.com/gogpu/overlay/surface"
)

var (
	_ compositor.Registrar        = (*Hub)(nil)
	_ compositor.OverlayState     = (*Hub)(nil)
	_ surface.IncompatibleChecker = (*Hub)(nil)
)

type incompatibleReport struct {
	handle  d3d.SharedHandle
	adapter d3d.LUID
	set     bool
}

// Hub is the meeting point of the compositor and its producers. It is safe
// for concurrent use.
type Hub struct {
	mu         sync.Mutex
	handles    overlay.SharedHandleTable
	adapter    d3d.LUID
	registered bool

	incompatible [overlay.SlotCount]incompatibleReport

	browserShown       bool
	active             overlay.Slot
	notificationsShown bool

	subs map[chan struct{}]struct{}
}

// NewHub returns a hub with notifications shown and no browser overlay.
func NewHub() *Hub {
	return &Hub{
		active:             overlay.SlotBrowser,
		notificationsShown: true,
		subs:               make(map[chan struct{}]struct{}),
	}
}

// Register implements compositor.Registrar. Subscribers are notified.
func (h *Hub) Register(handles overlay.SharedHandleTable, adapter d3d.LUID) {
	h.mu.Lock()
	h.handles = handles
	h.adapter = adapter
	h.registered = handles != (overlay.SharedHandleTable{}) || !adapter.IsZero()
	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	h.mu.Unlock()

	overlay.Logger().Debug("fbserver: handles registered", "adapter", adapter, "handles", handles)
}

// Registration returns the last registered table and adapter, and false
// when nothing is registered.
func (h *Hub) Registration() (overlay.SharedHandleTable, d3d.LUID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.handles, h.adapter, h.registered
}

// Subscribe returns a channel that receives a value after every Register.
// Notifications coalesce; call Registration for the current value. The
// returned function ends the subscription.
func (h *Hub) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

// ReportIncompatible records that a producer could not open handle, which
// was published for slot on adapter.
func (h *Hub) ReportIncompatible(slot overlay.Slot, handle d3d.SharedHandle, adapter d3d.LUID) {
	if !slot.Valid() {
		return
	}
	h.mu.Lock()
	h.incompatible[slot] = incompatibleReport{handle: handle, adapter: adapter, set: true}
	h.mu.Unlock()
}

// IncompatibleShared implements surface.IncompatibleChecker.
func (h *Hub) IncompatibleShared(slot overlay.Slot) (d3d.SharedHandle, d3d.LUID, bool) {
	if !slot.Valid() {
		return 0, d3d.LUID{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.incompatible[slot]
	return r.handle, r.adapter, r.set
}

// SetVisible shows or hides slot. Showing the highlighter or browser slot
// makes it the active full overlay; hiding the active one hides the full
// overlay.
func (h *Hub) SetVisible(slot overlay.Slot, shown bool) {
	if !slot.Valid() {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case slot == overlay.SlotNotifications:
		h.notificationsShown = shown
	case shown:
		h.browserShown = true
		h.active = slot
	case slot == h.active:
		h.browserShown = false
	}
}

// BrowserShown implements compositor.OverlayState.
func (h *Hub) BrowserShown() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.browserShown
}

// ActiveOverlay implements compositor.OverlayState.
func (h *Hub) ActiveOverlay() overlay.Slot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// NotificationsShown implements compositor.OverlayState.
func (h *Hub) NotificationsShown() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.notificationsShown
}
