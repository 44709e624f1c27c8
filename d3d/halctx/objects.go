// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package halctx

import (
	"sync/atomic"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/overlay/d3d"
)

// refs is an atomic COM-style reference count. free runs once when the
// count drops to zero.
type refs struct {
	n    atomic.Int32
	free func()
}

func (r *refs) init(free func()) {
	r.n.Store(1)
	r.free = free
}

// AddRef implements d3d.Object.
func (r *refs) AddRef() uint32 { return uint32(r.n.Add(1)) }

// Release implements d3d.Object.
func (r *refs) Release() uint32 {
	n := r.n.Add(-1)
	switch {
	case n == 0:
		if r.free != nil {
			r.free()
		}
	case n < 0:
		r.n.Store(0)
		return 0
	}
	return uint32(n)
}

type texture struct {
	refs
	dev    *Device
	desc   d3d.TextureDesc
	tex    hal.Texture
	shadow []byte
}

// Desc implements d3d.Texture2D.
func (t *texture) Desc() d3d.TextureDesc { return t.desc }

func (t *texture) pitch() uint32 { return t.desc.Width * 4 }

type buffer struct {
	refs
	desc   d3d.BufferDesc
	buf    hal.Buffer
	shadow []byte
}

// Desc implements d3d.Buffer.
func (b *buffer) Desc() d3d.BufferDesc { return b.desc }

// view backs both shader resource and render target views.
type view struct {
	refs
	tex  *texture
	view hal.TextureView
}

type shader struct {
	refs
	stage  d3d.ShaderStage
	entry  string
	module hal.ShaderModule
}

type inputLayout struct {
	refs
	attrs []attribute
}

type sampler struct {
	refs
	desc    d3d.SamplerDesc
	sampler hal.Sampler
}

type blendState struct {
	refs
	desc d3d.BlendDesc
}

type rasterizerState struct {
	refs
	desc d3d.RasterizerDesc
}

type depthStencilState struct {
	refs
	desc d3d.DepthStencilDesc
}
