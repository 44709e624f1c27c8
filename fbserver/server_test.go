// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fbserver

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/d3d"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

type harness struct {
	mb     *Mailbox
	hub    *Hub
	srv    *Server
	client *Client
	done   chan error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{mb: NewMailbox(), hub: NewHub(), done: make(chan error, 1)}
	h.hub.Register(overlay.SharedHandleTable{0x11, 0x22, 0x33}, d3d.LUID{Low: 5})
	h.srv = NewServer(h.mb, h.hub)

	ctx, cancel := context.WithCancel(context.Background())
	a, b := net.Pipe()
	go func() { h.done <- h.srv.ServeConn(ctx, a) }()
	h.client = NewClient(b)
	t.Cleanup(func() {
		cancel()
		h.client.Close()
		if err := <-h.done; err != nil {
			t.Errorf("ServeConn: %v", err)
		}
	})
	return h
}

func TestServerHello(t *testing.T) {
	h := newHarness(t)
	hello, err := h.client.Hello()
	if err != nil {
		t.Fatal(err)
	}
	if !hello.Ready || hello.Table() != (overlay.SharedHandleTable{0x11, 0x22, 0x33}) {
		t.Errorf("hello = %+v", hello)
	}
	if hello.Adapter.D3D() != (d3d.LUID{Low: 5}) {
		t.Errorf("adapter = %+v", hello.Adapter)
	}

	// A new registration is pushed to connected clients.
	h.hub.Register(overlay.SharedHandleTable{0x44}, d3d.LUID{Low: 6})
	hello, err = h.client.Hello()
	if err != nil {
		t.Fatal(err)
	}
	if hello.Table()[0] != 0x44 || hello.Adapter.Low != 6 {
		t.Errorf("updated hello = %+v", hello)
	}
}

func TestServerDeliversFrames(t *testing.T) {
	h := newHarness(t)
	if _, err := h.client.Hello(); err != nil {
		t.Fatal(err)
	}

	pix := bytes.Repeat([]byte{0xab}, 3*2*4)
	if err := h.client.SendFrame(overlay.SlotHighlighter, 3, 2, pix); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "frame", func() bool { return h.mb.Pending(overlay.SlotHighlighter) })
	if got := h.mb.NextFrame(overlay.SlotHighlighter); !bytes.Equal(got, pix) {
		t.Errorf("delivered %d bytes", len(got))
	}
}

func TestServerRejectsBadFrameAndContinues(t *testing.T) {
	h := newHarness(t)
	if _, err := h.client.Hello(); err != nil {
		t.Fatal(err)
	}
	if err := h.client.SendFrame(overlay.SlotBrowser, 4, 4, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if err := h.client.conn.Send("bogus", struct{}{}); err != nil {
		t.Fatal(err)
	}
	if err := h.client.SetVisible(overlay.SlotBrowser, true); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "visibility", h.hub.BrowserShown)
	if h.mb.Pending(overlay.SlotBrowser) {
		t.Error("short frame delivered")
	}
}

func TestServerIncompatibleReport(t *testing.T) {
	h := newHarness(t)
	if _, err := h.client.Hello(); err != nil {
		t.Fatal(err)
	}
	if err := h.client.ReportIncompatible(overlay.SlotNotifications, 0x22, d3d.LUID{Low: 5}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "report", func() bool {
		_, _, ok := h.hub.IncompatibleShared(overlay.SlotNotifications)
		return ok
	})
	handle, adapter, _ := h.hub.IncompatibleShared(overlay.SlotNotifications)
	if handle != 0x22 || adapter != (d3d.LUID{Low: 5}) {
		t.Errorf("report = %#x %v", handle, adapter)
	}
}

func TestServeAndClose(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("no loopback listener: %v", err)
	}
	mb, hub := NewMailbox(), NewHub()
	srv := NewServer(mb, hub)
	served := make(chan error, 1)
	go func() { served <- srv.Serve(context.Background(), ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	client := NewClient(conn)
	defer client.Close()
	hello, err := client.Hello()
	if err != nil {
		t.Fatal(err)
	}
	if hello.Ready {
		t.Error("hello ready before any registration")
	}
	if err := client.SendFrame(overlay.SlotBrowser, 1, 1, []byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "frame", func() bool { return mb.Pending(overlay.SlotBrowser) })

	if err := srv.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := <-served; !errors.Is(err, ErrServerClosed) {
		t.Errorf("Serve = %v, want ErrServerClosed", err)
	}
	if _, err := client.Hello(); err == nil {
		t.Error("connection survived Close")
	}
}

func TestServeStopsOnContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("no loopback listener: %v", err)
	}
	srv := NewServer(NewMailbox(), NewHub())
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, ln) }()
	cancel()
	select {
	case err := <-served:
		if err != nil {
			t.Errorf("Serve = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	_ = srv.Close()
}
