// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fbserver

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/surface"
)

var _ surface.Producer = (*Mailbox)(nil)

// Mailbox holds the newest undelivered frame of every slot. A frame put
// before the previous one was taken replaces it.
type Mailbox struct {
	mu      sync.Mutex
	frames  [overlay.SlotCount][]byte
	dropped atomic.Uint64
}

// NewMailbox returns an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Put stores frame as the newest frame of slot. The mailbox keeps frame;
// the caller must not modify it afterwards.
func (m *Mailbox) Put(slot overlay.Slot, frame []byte) error {
	if !slot.Valid() {
		return fmt.Errorf("fbserver: invalid slot %d", slot)
	}
	m.mu.Lock()
	if m.frames[slot] != nil {
		m.dropped.Add(1)
	}
	m.frames[slot] = frame
	m.mu.Unlock()
	return nil
}

// NextFrame implements surface.Producer. It never blocks and returns nil
// when no frame arrived since the last call.
func (m *Mailbox) NextFrame(slot overlay.Slot) []byte {
	if !slot.Valid() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f := m.frames[slot]
	m.frames[slot] = nil
	return f
}

// Pending reports whether slot has an undelivered frame.
func (m *Mailbox) Pending(slot overlay.Slot) bool {
	if !slot.Valid() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames[slot] != nil
}

// Dropped returns how many frames were replaced before delivery.
func (m *Mailbox) Dropped() uint64 { return m.dropped.Load() }
