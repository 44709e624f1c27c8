// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fbserver

import (
	"context"
	"fmt"
	"net"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/d3d"
)

// Client is the producer side of a connection.
type Client struct {
	conn *Conn
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: NewConn(conn)}
}

// DialClient connects to a server at addr.
func DialClient(ctx context.Context, addr string) (*Client, error) {
	conn, err := Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// Close closes the connection.
func (c *Client) Close() error { return c.conn.Close() }

// Hello blocks until the server's next hello arrives.
func (c *Client) Hello() (Hello, error) {
	for {
		env, err := c.conn.Recv()
		if err != nil {
			return Hello{}, err
		}
		if env.Type != TypeHello {
			overlay.Logger().Debug("fbserver: ignoring message", "type", env.Type)
			continue
		}
		var h Hello
		if err := env.Decode(&h); err != nil {
			return Hello{}, err
		}
		if h.Version != ProtocolVersion {
			return Hello{}, fmt.Errorf("fbserver: protocol version %d, want %d", h.Version, ProtocolVersion)
		}
		return h, nil
	}
}

// SendFrame delivers a tightly packed BGRA frame for slot.
func (c *Client) SendFrame(slot overlay.Slot, width, height int, pixels []byte) error {
	return c.conn.Send(TypeFrame, Frame{Slot: slot.String(), Width: width, Height: height, Pixels: pixels})
}

// ReportIncompatible tells the server handle could not be opened.
func (c *Client) ReportIncompatible(slot overlay.Slot, handle d3d.SharedHandle, adapter d3d.LUID) error {
	return c.conn.Send(TypeIncompatible, Incompatible{Slot: slot.String(), Handle: uint64(handle), Adapter: toLUID(adapter)})
}

// SetVisible shows or hides slot.
func (c *Client) SetVisible(slot overlay.Slot, shown bool) error {
	return c.conn.Send(TypeVisibility, Visibility{Slot: slot.String(), Shown: shown})
}
