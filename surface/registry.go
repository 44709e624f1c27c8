// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/d3d"
)

// Entry is one published shared texture: the OS handle and the adapter it
// lives on.
type Entry struct {
	Handle  d3d.SharedHandle
	Adapter d3d.LUID
}

// Valid reports whether the entry carries a handle.
func (e Entry) Valid() bool { return e.Handle != 0 }

// Registry maps every overlay slot to its shared texture entry.
type Registry struct {
	entries [overlay.SlotCount]Entry
}

// Set records the handle for slot on adapter.
func (r *Registry) Set(slot overlay.Slot, h d3d.SharedHandle, adapter d3d.LUID) {
	if !slot.Valid() {
		return
	}
	r.entries[slot] = Entry{Handle: h, Adapter: adapter}
}

// Get returns the entry for slot.
func (r *Registry) Get(slot overlay.Slot) Entry {
	if !slot.Valid() {
		return Entry{}
	}
	return r.entries[slot]
}

// Clear forgets the handle for slot. The texture itself stays alive; only
// its use as the composited source ends.
func (r *Registry) Clear(slot overlay.Slot) {
	if slot.Valid() {
		r.entries[slot] = Entry{}
	}
}

// Trusted reports whether slot has a handle created on current.
func (r *Registry) Trusted(slot overlay.Slot, current d3d.LUID) bool {
	e := r.Get(slot)
	return e.Valid() && e.Adapter == current
}

// Matches reports whether a producer report of (h, adapter) refers to the
// handle currently published for slot.
func (r *Registry) Matches(slot overlay.Slot, h d3d.SharedHandle, adapter d3d.LUID) bool {
	e := r.Get(slot)
	return e.Valid() && e.Handle == h && e.Adapter == adapter
}

// Handles returns the handle table in slot order.
func (r *Registry) Handles() overlay.SharedHandleTable {
	var t overlay.SharedHandleTable
	for i, e := range r.entries {
		t[i] = e.Handle
	}
	return t
}

// Reset clears every entry.
func (r *Registry) Reset() {
	r.entries = [overlay.SlotCount]Entry{}
}
