// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fbserver

import (
	"testing"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/d3d"
)

func TestHubRegistration(t *testing.T) {
	h := NewHub()
	if _, _, ok := h.Registration(); ok {
		t.Fatal("new hub reports a registration")
	}

	updates, unsubscribe := h.Subscribe()
	defer unsubscribe()

	table := overlay.SharedHandleTable{0x10, 0, 0x30}
	h.Register(table, d3d.LUID{Low: 7})
	h.Register(table, d3d.LUID{Low: 8})

	select {
	case <-updates:
	default:
		t.Fatal("subscriber not notified")
	}
	select {
	case <-updates:
		t.Error("notifications did not coalesce")
	default:
	}

	got, adapter, ok := h.Registration()
	if !ok || got != table || adapter != (d3d.LUID{Low: 8}) {
		t.Errorf("Registration = %v %v %v", got, adapter, ok)
	}

	h.Register(overlay.SharedHandleTable{}, d3d.LUID{})
	if _, _, ok := h.Registration(); ok {
		t.Error("cleared registration still reported")
	}
}

func TestHubUnsubscribe(t *testing.T) {
	h := NewHub()
	updates, unsubscribe := h.Subscribe()
	unsubscribe()
	h.Register(overlay.SharedHandleTable{1}, d3d.LUID{Low: 1})
	select {
	case <-updates:
		t.Error("notified after unsubscribe")
	default:
	}
}

func TestHubIncompatible(t *testing.T) {
	h := NewHub()
	if _, _, ok := h.IncompatibleShared(overlay.SlotBrowser); ok {
		t.Fatal("report on a fresh hub")
	}
	h.ReportIncompatible(overlay.SlotBrowser, 0x44, d3d.LUID{Low: 3})
	h.ReportIncompatible(overlay.SlotCount, 0x55, d3d.LUID{Low: 3})

	handle, adapter, ok := h.IncompatibleShared(overlay.SlotBrowser)
	if !ok || handle != 0x44 || adapter != (d3d.LUID{Low: 3}) {
		t.Errorf("IncompatibleShared = %#x %v %v", handle, adapter, ok)
	}
	if _, _, ok := h.IncompatibleShared(overlay.SlotHighlighter); ok {
		t.Error("report leaked into another slot")
	}
}

func TestHubVisibility(t *testing.T) {
	type view struct {
		browser       bool
		active        overlay.Slot
		notifications bool
	}
	tests := []struct {
		name  string
		steps []Visibility
		want  view
	}{
		{"default", nil, view{false, overlay.SlotBrowser, true}},
		{"show browser", []Visibility{{"browser", true}}, view{true, overlay.SlotBrowser, true}},
		{"show highlighter", []Visibility{{"highlighter", true}}, view{true, overlay.SlotHighlighter, true}},
		{"hide active", []Visibility{{"highlighter", true}, {"highlighter", false}}, view{false, overlay.SlotHighlighter, true}},
		{"hide inactive", []Visibility{{"highlighter", true}, {"browser", false}}, view{true, overlay.SlotHighlighter, true}},
		{"hide notifications", []Visibility{{"notifications", false}}, view{false, overlay.SlotBrowser, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHub()
			for _, s := range tt.steps {
				slot, err := overlay.ParseSlot(s.Slot)
				if err != nil {
					t.Fatal(err)
				}
				h.SetVisible(slot, s.Shown)
			}
			got := view{h.BrowserShown(), h.ActiveOverlay(), h.NotificationsShown()}
			if got != tt.want {
				t.Errorf("state = %+v, want %+v", got, tt.want)
			}
		})
	}
}
