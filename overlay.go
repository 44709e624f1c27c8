// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package overlay

import (
	"fmt"

	"github.com/gogpu/overlay/d3d"
)

// Slot identifies one overlay surface.
type Slot uint8

const (
	SlotHighlighter Slot = iota
	SlotNotifications
	SlotBrowser

	// SlotCount is the number of overlay slots.
	SlotCount
)

var slotNames = [SlotCount]string{"highlighter", "notifications", "browser"}

// String returns the slot name.
func (s Slot) String() string {
	if s < SlotCount {
		return slotNames[s]
	}
	return fmt.Sprintf("slot(%d)", uint8(s))
}

// Valid reports whether s names a slot.
func (s Slot) Valid() bool { return s < SlotCount }

// ParseSlot returns the slot with the given name.
func ParseSlot(name string) (Slot, error) {
	for i, n := range slotNames {
		if n == name {
			return Slot(i), nil
		}
	}
	return 0, fmt.Errorf("overlay: unknown slot %q", name)
}

// Slots returns every slot from first to last.
func Slots() []Slot {
	out := make([]Slot, SlotCount)
	for i := range out {
		out[i] = Slot(i)
	}
	return out
}

// Indicator identifies a transient notification icon.
type Indicator uint8

const (
	IndicatorRecording Indicator = iota
	IndicatorRecordingStopped
	IndicatorStreaming
	IndicatorStreamingStopped
	IndicatorBookmark
	IndicatorClipSaved
	IndicatorScreenshot

	// IndicatorCount is the number of indicator kinds.
	IndicatorCount
)

var indicatorNames = [IndicatorCount]string{
	"recording", "recording-stopped", "streaming", "streaming-stopped",
	"bookmark", "clip-saved", "screenshot",
}

// String returns the indicator name.
func (i Indicator) String() string {
	if i < IndicatorCount {
		return indicatorNames[i]
	}
	return fmt.Sprintf("indicator(%d)", uint8(i))
}

// Valid reports whether i names an indicator.
func (i Indicator) Valid() bool { return i < IndicatorCount }

// ParseIndicator returns the indicator with the given name.
func ParseIndicator(name string) (Indicator, error) {
	for i, n := range indicatorNames {
		if n == name {
			return Indicator(i), nil
		}
	}
	return 0, fmt.Errorf("overlay: unknown indicator %q", name)
}

// Status is the capture state shown by the square status indicator.
type Status uint8

const (
	StatusOff Status = iota
	StatusHooked
	StatusIdle
	StatusRecording
	StatusPaused
	StatusError

	// StatusCount is the number of status kinds.
	StatusCount
)

var statusNames = [StatusCount]string{"off", "hooked", "idle", "recording", "paused", "error"}

// statusColors are 0xAARRGGBB fill colours per status.
var statusColors = [StatusCount]uint32{
	0xff808080, // off: grey
	0xff0000ff, // hooked: blue
	0xff00ff00, // idle: green
	0xffff0000, // recording: red
	0xffffff00, // paused: yellow
	0xffff00ff, // error: magenta
}

// String returns the status name.
func (s Status) String() string {
	if s < StatusCount {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Color returns the status fill colour as 0xAARRGGBB. Unknown statuses use
// the error colour.
func (s Status) Color() uint32 {
	if s < StatusCount {
		return statusColors[s]
	}
	return statusColors[StatusError]
}

// Geometry of the square status indicator in backbuffer pixels.
const (
	IndicatorX      = 2
	IndicatorY      = 2
	IndicatorWidth  = 14
	IndicatorHeight = 14
)

// BorderColor is the 0xAARRGGBB colour of the status indicator outline.
const BorderColor uint32 = 0xff000000

// SharedHandleTable holds one shared texture handle per overlay slot. A zero
// entry means the slot has no shareable texture and producers must deliver
// frames over the CPU path.
type SharedHandleTable [SlotCount]d3d.SharedHandle
