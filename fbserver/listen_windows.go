// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build windows

package fbserver

import (
	"context"
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
)

// DefaultAddress is the pipe the server listens on by default.
const DefaultAddress = `\\.\pipe\overlay-framebuffer`

// SYSTEM gets full control, interactive users read/write.
const pipeSecurity = "D:P(A;;GA;;;SY)(A;;GRGW;;;IU)"

// Listen opens the named pipe at addr.
func Listen(addr string) (net.Listener, error) {
	cfg := &winio.PipeConfig{
		SecurityDescriptor: pipeSecurity,
		InputBufferSize:    64 * 1024,
		OutputBufferSize:   64 * 1024,
	}
	ln, err := winio.ListenPipe(addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("fbserver: listen pipe %s: %w", addr, err)
	}
	return ln, nil
}

// Dial connects to the named pipe at addr.
func Dial(ctx context.Context, addr string) (net.Conn, error) {
	conn, err := winio.DialPipeContext(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("fbserver: dial pipe %s: %w", addr, err)
	}
	return conn, nil
}
