// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build !windows

package fbserver

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// DefaultAddress is the socket the server listens on by default.
var DefaultAddress = filepath.Join(os.TempDir(), "overlay-framebuffer.sock")

// Listen opens a unix socket at addr, replacing a stale socket file.
func Listen(addr string) (net.Listener, error) {
	_ = os.Remove(addr)
	if err := os.MkdirAll(filepath.Dir(addr), 0o770); err != nil {
		return nil, fmt.Errorf("fbserver: mkdir %s: %w", filepath.Dir(addr), err)
	}
	ln, err := net.Listen("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("fbserver: listen %s: %w", addr, err)
	}
	if err := os.Chmod(addr, 0o770); err != nil {
		ln.Close()
		return nil, fmt.Errorf("fbserver: chmod %s: %w", addr, err)
	}
	return ln, nil
}

// Dial connects to the unix socket at addr.
func Dial(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", addr)
	if err != nil {
		return nil, fmt.Errorf("fbserver: dial %s: %w", addr, err)
	}
	return conn, nil
}
