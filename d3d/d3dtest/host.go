// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package d3dtest

import "github.com/gogpu/overlay/d3d"

// HostState is a full set of bindings standing in for an unknown host
// application's pipeline.
type HostState struct {
	Layout       d3d.InputLayout
	VertexBuffer d3d.Buffer
	VS           d3d.VertexShader
	GS           d3d.GeometryShader
	PS           d3d.PixelShader
	Instances    []d3d.ClassInstance
	Resource     d3d.ShaderResourceView
	Sampler      d3d.SamplerState
	Rasterizer   d3d.RasterizerState
	Blend        d3d.BlendState
	DepthStencil d3d.DepthStencilState
	RenderTarget d3d.RenderTargetView
	DepthView    d3d.DepthStencilView
	StreamOut    d3d.Buffer
	Viewports    []d3d.Viewport
	Topology     d3d.Topology
	BlendFactor  [4]float32
	SampleMask   uint32
	StencilRef   uint32
}

// BindHostState creates one object for every slot group, binds them on the
// immediate context and drops the creation references, leaving the context
// as the only owner.
func (d *Device) BindHostState() *HostState {
	mustState := func(s *State, err error) *State {
		if err != nil {
			panic(err)
		}
		s.Name = "host-" + s.Name
		return s
	}
	tex, _ := d.CreateTexture2D(&d3d.TextureDesc{Width: 4, Height: 4, BindFlags: d3d.BindShaderResource | d3d.BindRenderTarget}, nil)
	srv, _ := d.newView("CreateShaderResourceView", "host-srv", tex)
	rtv, _ := d.newView("CreateRenderTargetView", "host-rtv", tex)
	dsv, _ := d.newView("CreateDepthStencilView", "host-dsv", tex)
	vb, _ := d.CreateBuffer(&d3d.BufferDesc{ByteWidth: 64, BindFlags: d3d.BindVertexBuffer}, nil)
	so, _ := d.CreateBuffer(&d3d.BufferDesc{ByteWidth: 64, BindFlags: d3d.BindStreamOutput}, nil)
	vs, _ := d.newShader("CreateVertexShader", d3d.Bytecode{Entry: "host-vs"})
	ps, _ := d.newShader("CreatePixelShader", d3d.Bytecode{Entry: "host-ps"})

	h := &HostState{
		Layout:       mustState(d.newState("CreateInputLayout", "layout", nil)),
		VertexBuffer: vb,
		VS:           vs,
		GS:           d.NewGeometryShader("host-gs"),
		PS:           ps,
		Instances: []d3d.ClassInstance{
			d.NewClassInstance("host-inst0"),
			d.NewClassInstance("host-inst1"),
		},
		Resource:     srv,
		Sampler:      mustState(d.newState("CreateSamplerState", "sampler", nil)),
		Rasterizer:   mustState(d.newState("CreateRasterizerState", "raster", nil)),
		Blend:        mustState(d.newState("CreateBlendState", "blend", nil)),
		DepthStencil: mustState(d.newState("CreateDepthStencilState", "depth", nil)),
		RenderTarget: rtv,
		DepthView:    dsv,
		StreamOut:    so,
		Viewports: []d3d.Viewport{
			{Width: 1920, Height: 1080, MaxDepth: 1},
			{TopLeftX: 10, Width: 320, Height: 240, MaxDepth: 1},
		},
		Topology:    d3d.TopologyTriangleList,
		BlendFactor: [4]float32{0.25, 0.5, 0.75, 1},
		SampleMask:  0x0f0f0f0f,
		StencilRef:  7,
	}

	c := d.ctx
	c.IASetInputLayout(h.Layout)
	c.IASetPrimitiveTopology(h.Topology)
	c.IASetVertexBuffers(0, []d3d.Buffer{h.VertexBuffer}, []uint32{40}, []uint32{8})
	c.VSSetShader(h.VS, h.Instances[:1])
	c.GSSetShader(h.GS, h.Instances[1:])
	c.PSSetShader(h.PS, h.Instances)
	c.PSSetShaderResources(0, []d3d.ShaderResourceView{h.Resource})
	c.PSSetSamplers(0, []d3d.SamplerState{h.Sampler})
	c.RSSetState(h.Rasterizer)
	c.RSSetViewports(h.Viewports)
	c.OMSetBlendState(h.Blend, h.BlendFactor, h.SampleMask)
	c.OMSetDepthStencilState(h.DepthStencil, h.StencilRef)
	c.OMSetRenderTargets([]d3d.RenderTargetView{h.RenderTarget}, h.DepthView)
	c.SOSetTargets([]d3d.Buffer{h.StreamOut}, []uint32{0})

	for _, o := range []d3d.Object{
		tex, h.Layout, h.VertexBuffer, h.VS, h.GS, h.PS, h.Resource, h.Sampler,
		h.Rasterizer, h.Blend, h.DepthStencil, h.RenderTarget, h.DepthView, h.StreamOut,
	} {
		o.Release()
	}
	for _, inst := range h.Instances {
		inst.Release()
	}

	d.Counters.Calls = 0
	return h
}

// Bound reports the objects currently bound on the context in the same
// shape as HostState, without taking references.
func (c *Context) Bound() *HostState {
	h := &HostState{
		Layout:       c.layout,
		VertexBuffer: c.vbs[0],
		VS:           c.vs,
		GS:           c.gs,
		PS:           c.ps,
		Resource:     c.srvs[0],
		Sampler:      c.samplers[0],
		Rasterizer:   c.rs,
		Blend:        c.blend,
		DepthStencil: c.dss,
		RenderTarget: c.rtvs[0],
		DepthView:    c.dsv,
		StreamOut:    c.so[0],
		Viewports:    append([]d3d.Viewport(nil), c.viewports...),
		Topology:     c.topology,
		BlendFactor:  c.blendFactor,
		SampleMask:   c.sampleMask,
		StencilRef:   c.stencilRef,
	}
	h.Instances = append(h.Instances, c.vsInst...)
	h.Instances = append(h.Instances, c.gsInst...)
	h.Instances = append(h.Instances, c.psInst...)
	return h
}

// StreamOutOffsets returns the offsets of the bound stream-output targets.
func (c *Context) StreamOutOffsets() [d3d.MaxStreamOutputTargets]uint32 {
	return c.soOffsets
}

// VertexBufferBinding returns slot 0's stride and offset.
func (c *Context) VertexBufferBinding() (stride, offset uint32) {
	return c.strides[0], c.offsets[0]
}
