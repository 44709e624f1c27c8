// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package fbserver

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/d3d"
)

// Message types.
const (
	TypeHello        = "hello"
	TypeFrame        = "frame"
	TypeIncompatible = "incompatible"
	TypeVisibility   = "visibility"
)

// ProtocolVersion is sent in every hello.
const ProtocolVersion = 1

// MaxMessageSize bounds one encoded envelope. It fits a base64 encoded
// 3840x2160 BGRA frame.
const MaxMessageSize = 64 << 20

var (
	// ErrMessageSize is returned for envelopes that are empty or larger
	// than MaxMessageSize.
	ErrMessageSize = errors.New("fbserver: bad message size")

	// ErrUnknownMessage is returned for envelopes of an unknown type.
	ErrUnknownMessage = errors.New("fbserver: unknown message type")

	// ErrBadFrame is returned for frames whose pixel data does not match
	// their size.
	ErrBadFrame = errors.New("fbserver: frame size does not match pixels")
)

// Envelope is the wire wrapper of every message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// LUID is the JSON form of an adapter identifier.
type LUID struct {
	Low  uint32 `json:"low"`
	High int32  `json:"high"`
}

func toLUID(l d3d.LUID) LUID { return LUID{Low: l.Low, High: l.High} }

func d3dHandle(h uint64) d3d.SharedHandle { return d3d.SharedHandle(uintptr(h)) }

// D3D converts l back into an adapter identifier.
func (l LUID) D3D() d3d.LUID { return d3d.LUID{Low: l.Low, High: l.High} }

// Hello announces the compositor's shared textures. Handles holds one entry
// per slot, in slot order; zero means the slot takes CPU frames only.
type Hello struct {
	Version int      `json:"version"`
	Ready   bool     `json:"ready"`
	Handles []uint64 `json:"handles"`
	Adapter LUID     `json:"adapter"`
}

// Table converts Handles back into a shared handle table.
func (h Hello) Table() overlay.SharedHandleTable {
	var t overlay.SharedHandleTable
	for i := 0; i < len(t) && i < len(h.Handles); i++ {
		t[i] = d3d.SharedHandle(h.Handles[i])
	}
	return t
}

func newHello(t overlay.SharedHandleTable, adapter d3d.LUID, ready bool) Hello {
	h := Hello{Version: ProtocolVersion, Ready: ready, Handles: make([]uint64, len(t)), Adapter: toLUID(adapter)}
	for i, v := range t {
		h.Handles[i] = uint64(v)
	}
	return h
}

// Frame carries one BGRA frame for a slot. Pixels is tightly packed.
type Frame struct {
	Slot   string `json:"slot"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Pixels []byte `json:"pixels"`
}

// Incompatible reports a shared handle the client could not open.
type Incompatible struct {
	Slot    string `json:"slot"`
	Handle  uint64 `json:"handle"`
	Adapter LUID   `json:"adapter"`
}

// Visibility shows or hides a slot.
type Visibility struct {
	Slot  string `json:"slot"`
	Shown bool   `json:"shown"`
}

// Conn frames envelopes over a net.Conn. Send is safe for concurrent use;
// Recv must be called from one goroutine.
type Conn struct {
	conn net.Conn
	mu   sync.Mutex
}

// NewConn wraps conn.
func NewConn(conn net.Conn) *Conn {
	return &Conn{conn: conn}
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Send marshals payload into an envelope of type typ and writes it as
// [4-byte big-endian length][JSON].
func (c *Conn) Send(typ string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("fbserver: marshal %s: %w", typ, err)
	}
	data, err := json.Marshal(Envelope{Type: typ, Payload: raw})
	if err != nil {
		return fmt.Errorf("fbserver: marshal envelope: %w", err)
	}
	if len(data) > MaxMessageSize {
		return fmt.Errorf("%w: %d > %d", ErrMessageSize, len(data), MaxMessageSize)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := c.conn.Write(header[:]); err != nil {
		return fmt.Errorf("fbserver: write header: %w", err)
	}
	if _, err := c.conn.Write(data); err != nil {
		return fmt.Errorf("fbserver: write payload: %w", err)
	}
	return nil
}

// Recv reads one envelope.
func (c *Conn) Recv() (*Envelope, error) {
	var header [4]byte
	if _, err := io.ReadFull(c.conn, header[:]); err != nil {
		return nil, fmt.Errorf("fbserver: read header: %w", err)
	}
	length := binary.BigEndian.Uint32(header[:])
	if length == 0 || length > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d", ErrMessageSize, length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(c.conn, data); err != nil {
		return nil, fmt.Errorf("fbserver: read payload: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("fbserver: unmarshal envelope: %w", err)
	}
	return &env, nil
}

// Decode unmarshals the envelope payload into v.
func (e *Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("fbserver: decode %s: %w", e.Type, err)
	}
	return nil
}
