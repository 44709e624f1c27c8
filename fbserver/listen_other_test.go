// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !windows

package fbserver

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestListenDialUnix(t *testing.T) {
	addr := filepath.Join(t.TempDir(), "fb.sock")
	ln, err := Listen(addr)
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	defer ln.Close()

	// A stale socket file is replaced.
	ln.Close()
	ln, err = Listen(addr)
	if err != nil {
		t.Fatalf("relisten: %v", err)
	}
	defer ln.Close()

	accepted := make(chan error, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			c.Close()
		}
		accepted <- err
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := Dial(ctx, addr)
	if err != nil {
		t.Fatal(err)
	}
	conn.Close()
	if err := <-accepted; err != nil {
		t.Errorf("accept: %v", err)
	}
}
