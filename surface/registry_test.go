// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"testing"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/d3d"
)

func TestRegistry(t *testing.T) {
	var r Registry
	gpu := d3d.LUID{Low: 7}
	r.Set(overlay.SlotNotifications, 0x40, gpu)
	r.Set(overlay.SlotCount, 0x99, gpu) // ignored

	if !r.Trusted(overlay.SlotNotifications, gpu) {
		t.Error("handle not trusted on its own adapter")
	}
	if r.Trusted(overlay.SlotNotifications, d3d.LUID{Low: 8}) {
		t.Error("handle trusted on another adapter")
	}
	if r.Trusted(overlay.SlotBrowser, gpu) {
		t.Error("empty slot trusted")
	}
	if !r.Matches(overlay.SlotNotifications, 0x40, gpu) || r.Matches(overlay.SlotNotifications, 0x44, gpu) {
		t.Error("Matches compares the wrong handle")
	}

	want := overlay.SharedHandleTable{0, 0x40, 0}
	if got := r.Handles(); got != want {
		t.Errorf("Handles() = %v, want %v", got, want)
	}

	r.Clear(overlay.SlotNotifications)
	if r.Get(overlay.SlotNotifications).Valid() {
		t.Error("entry survives Clear")
	}

	r.Set(overlay.SlotBrowser, 0x10, gpu)
	r.Reset()
	if r.Handles() != (overlay.SharedHandleTable{}) {
		t.Error("entries survive Reset")
	}
}
