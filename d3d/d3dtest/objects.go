// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package d3dtest

import "github.com/gogpu/overlay/d3d"

// Counters aggregates activity across one fake device and its children.
type Counters struct {
	// Calls counts device and context method calls, excluding AddRef and
	// Release.
	Calls int

	AddRefs  int
	Releases int

	// Underflows counts Release calls on objects whose count was already
	// zero.
	Underflows int
}

// Obj is a reference-counted fake object. New objects start with one
// reference owned by their creator.
type Obj struct {
	Name string
	refs int
	c    *Counters
}

func newObj(c *Counters, name string) Obj {
	return Obj{Name: name, refs: 1, c: c}
}

// AddRef implements d3d.Object.
func (o *Obj) AddRef() uint32 {
	o.c.AddRefs++
	o.refs++
	return uint32(o.refs)
}

// Release implements d3d.Object.
func (o *Obj) Release() uint32 {
	o.c.Releases++
	if o.refs == 0 {
		o.c.Underflows++
		return 0
	}
	o.refs--
	return uint32(o.refs)
}

// Refs returns the current reference count.
func (o *Obj) Refs() int { return o.refs }

// Live reports whether the object still has references.
func (o *Obj) Live() bool { return o.refs > 0 }

func (o *Obj) obj() *Obj { return o }

// Texture is a fake d3d.Texture2D backed by host memory.
type Texture struct {
	Obj
	desc     d3d.TextureDesc
	Pixels   []byte
	RowPitch uint32
	Shared   d3d.SharedHandle
}

// Desc implements d3d.Texture2D.
func (t *Texture) Desc() d3d.TextureDesc { return t.desc }

// Buffer is a fake d3d.Buffer backed by host memory.
type Buffer struct {
	Obj
	desc d3d.BufferDesc
	Data []byte
}

// Desc implements d3d.Buffer.
func (b *Buffer) Desc() d3d.BufferDesc { return b.desc }

// View is a fake shader-resource, render-target or depth-stencil view.
type View struct {
	Obj
	Texture *Texture
}

// Shader is a fake shader of any stage.
type Shader struct {
	Obj
	Code d3d.Bytecode
}

// State is a fake immutable state object. Desc holds the creation
// descriptor by value.
type State struct {
	Obj
	Desc any
}

type refCounted interface {
	d3d.Object
	obj() *Obj
}
