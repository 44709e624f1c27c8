// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fbserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/surface"
)

// ErrServerClosed is returned by Serve after Close.
var ErrServerClosed = errors.New("fbserver: server closed")

// Server accepts producer connections and feeds their messages into a
// Mailbox and a Hub.
type Server struct {
	mailbox *Mailbox
	hub     *Hub

	mu     sync.Mutex
	ln     net.Listener
	conns  map[*Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewServer returns a server delivering into mb and hub.
func NewServer(mb *Mailbox, hub *Hub) *Server {
	return &Server{mailbox: mb, hub: hub, conns: make(map[*Conn]struct{})}
}

// Serve accepts connections on ln until ctx is done or Close is called.
// It always closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.ln = ln
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	overlay.Logger().Info("fbserver: listening", "addr", ln.Addr())
	for {
		raw, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			switch {
			case closed:
				return ErrServerClosed
			case ctx.Err() != nil:
				return nil
			}
			return fmt.Errorf("fbserver: accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.ServeConn(ctx, raw); err != nil {
				overlay.Logger().Warn("fbserver: connection ended", "err", err)
			}
		}()
	}
}

// ServeConn speaks the protocol on one connection until the peer hangs up
// or ctx is done. The peer gets a hello immediately and again after every
// registration change.
func (s *Server) ServeConn(ctx context.Context, raw net.Conn) error {
	c := NewConn(raw)
	if !s.track(c) {
		c.Close()
		return ErrServerClosed
	}
	defer s.untrack(c)
	defer c.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	if err := s.sendHello(c); err != nil {
		return err
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				c.Close()
				return
			case <-updates:
				if err := s.sendHello(c); err != nil {
					c.Close()
					return
				}
			}
		}
	}()

	for {
		env, err := c.Recv()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) ||
				errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		if err := s.handle(env); err != nil {
			overlay.Logger().Warn("fbserver: message rejected", "type", env.Type, "err", err)
		}
	}
}

func (s *Server) sendHello(c *Conn) error {
	handles, adapter, ok := s.hub.Registration()
	return c.Send(TypeHello, newHello(handles, adapter, ok))
}

func (s *Server) handle(env *Envelope) error {
	switch env.Type {
	case TypeFrame:
		var f Frame
		if err := env.Decode(&f); err != nil {
			return err
		}
		slot, err := overlay.ParseSlot(f.Slot)
		if err != nil {
			return err
		}
		if f.Width <= 0 || f.Height <= 0 || len(f.Pixels) != surface.FrameSize(f.Width, f.Height) {
			return fmt.Errorf("%w: %dx%d with %d bytes", ErrBadFrame, f.Width, f.Height, len(f.Pixels))
		}
		return s.mailbox.Put(slot, f.Pixels)

	case TypeIncompatible:
		var r Incompatible
		if err := env.Decode(&r); err != nil {
			return err
		}
		slot, err := overlay.ParseSlot(r.Slot)
		if err != nil {
			return err
		}
		overlay.Logger().Info("fbserver: producer cannot open shared texture",
			"slot", slot, "handle", r.Handle, "adapter", r.Adapter.D3D())
		s.hub.ReportIncompatible(slot, d3dHandle(r.Handle), r.Adapter.D3D())
		return nil

	case TypeVisibility:
		var v Visibility
		if err := env.Decode(&v); err != nil {
			return err
		}
		slot, err := overlay.ParseSlot(v.Slot)
		if err != nil {
			return err
		}
		s.hub.SetVisible(slot, v.Shown)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
}

func (s *Server) track(c *Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// Close stops the listener, drops every connection and waits for their
// goroutines.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}
