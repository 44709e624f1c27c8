// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fbserver

import (
	"bytes"
	"sync"
	"testing"

	"github.com/gogpu/overlay"
)

func TestMailboxLatestFrameWins(t *testing.T) {
	mb := NewMailbox()
	if f := mb.NextFrame(overlay.SlotBrowser); f != nil {
		t.Fatalf("empty mailbox returned %v", f)
	}

	if err := mb.Put(overlay.SlotBrowser, []byte{1}); err != nil {
		t.Fatal(err)
	}
	if err := mb.Put(overlay.SlotBrowser, []byte{2}); err != nil {
		t.Fatal(err)
	}
	if !mb.Pending(overlay.SlotBrowser) || mb.Pending(overlay.SlotHighlighter) {
		t.Error("Pending does not track the slot that received frames")
	}
	if got := mb.NextFrame(overlay.SlotBrowser); !bytes.Equal(got, []byte{2}) {
		t.Errorf("NextFrame = %v, want the newest frame", got)
	}
	if got := mb.NextFrame(overlay.SlotBrowser); got != nil {
		t.Errorf("frame delivered twice: %v", got)
	}
	if mb.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", mb.Dropped())
	}
}

func TestMailboxInvalidSlot(t *testing.T) {
	mb := NewMailbox()
	if err := mb.Put(overlay.SlotCount, []byte{1}); err == nil {
		t.Error("Put accepted an invalid slot")
	}
	if mb.NextFrame(overlay.SlotCount) != nil || mb.Pending(overlay.SlotCount) {
		t.Error("invalid slot reported content")
	}
}

func TestMailboxConcurrent(t *testing.T) {
	mb := NewMailbox()
	var wg sync.WaitGroup
	const frames = 200
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < frames; i++ {
			_ = mb.Put(overlay.SlotNotifications, []byte{byte(i)})
		}
	}()

	got := 0
	for i := 0; i < frames; i++ {
		if mb.NextFrame(overlay.SlotNotifications) != nil {
			got++
		}
	}
	wg.Wait()
	if mb.NextFrame(overlay.SlotNotifications) != nil {
		got++
	}
	if uint64(got)+mb.Dropped() != frames {
		t.Errorf("delivered %d + dropped %d != %d", got, mb.Dropped(), frames)
	}
}
