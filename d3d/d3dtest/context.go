// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package d3dtest

import "github.com/gogpu/overlay/d3d"

const (
	vertexBufferSlots = 16
	resourceSlots     = 128
	samplerSlots      = 16
)

// Draw records one Draw call together with the bindings it used.
type Draw struct {
	Topology     d3d.Topology
	VertexCount  uint32
	VS           d3d.VertexShader
	PS           d3d.PixelShader
	Resource     d3d.ShaderResourceView
	Buffer       d3d.Buffer
	Viewport     d3d.Viewport
	RenderTarget d3d.RenderTargetView
}

// Context is a fake immediate context that stores every binding with D3D11
// reference semantics.
type Context struct {
	Obj
	dev *Device

	layout   d3d.InputLayout
	topology d3d.Topology
	vbs      [vertexBufferSlots]d3d.Buffer
	strides  [vertexBufferSlots]uint32
	offsets  [vertexBufferSlots]uint32

	vs     d3d.VertexShader
	vsInst []d3d.ClassInstance
	gs     d3d.GeometryShader
	gsInst []d3d.ClassInstance
	ps     d3d.PixelShader
	psInst []d3d.ClassInstance

	srvs     [resourceSlots]d3d.ShaderResourceView
	samplers [samplerSlots]d3d.SamplerState

	rs        d3d.RasterizerState
	viewports []d3d.Viewport

	blend       d3d.BlendState
	blendFactor [4]float32
	sampleMask  uint32
	dss         d3d.DepthStencilState
	stencilRef  uint32
	rtvs        [d3d.SimultaneousRenderTargets]d3d.RenderTargetView
	dsv         d3d.DepthStencilView

	so        [d3d.MaxStreamOutputTargets]d3d.Buffer
	soOffsets [d3d.MaxStreamOutputTargets]uint32

	// Draws lists every Draw call in order.
	Draws []Draw

	// Maps counts successful Map calls.
	Maps int

	mapped map[d3d.Object]bool
}

func newContext(d *Device) *Context {
	return &Context{
		Obj:        newObj(d.Counters, "context"),
		dev:        d,
		sampleMask: 0xffffffff,
		mapped:     make(map[d3d.Object]bool),
	}
}

func (c *Context) call() { c.dev.Counters.Calls++ }

// rebind takes a reference on next and drops the one held on prev.
func rebind(prev, next d3d.Object) {
	d3d.SafeAddRef(next)
	d3d.SafeRelease(prev)
}

func ref[T d3d.Object](o T, present bool) T {
	if present {
		o.AddRef()
	}
	return o
}

// IAGetInputLayout implements d3d.Context.
func (c *Context) IAGetInputLayout() d3d.InputLayout {
	c.call()
	return ref(c.layout, c.layout != nil)
}

// IASetInputLayout implements d3d.Context.
func (c *Context) IASetInputLayout(layout d3d.InputLayout) {
	c.call()
	rebind(c.layout, layout)
	c.layout = layout
}

// IAGetPrimitiveTopology implements d3d.Context.
func (c *Context) IAGetPrimitiveTopology() d3d.Topology {
	c.call()
	return c.topology
}

// IASetPrimitiveTopology implements d3d.Context.
func (c *Context) IASetPrimitiveTopology(t d3d.Topology) {
	c.call()
	c.topology = t
}

// IAGetVertexBuffers implements d3d.Context.
func (c *Context) IAGetVertexBuffers(start uint32, buffers []d3d.Buffer, strides, offsets []uint32) {
	c.call()
	for i := range buffers {
		slot := int(start) + i
		buffers[i] = ref(c.vbs[slot], c.vbs[slot] != nil)
		strides[i] = c.strides[slot]
		offsets[i] = c.offsets[slot]
	}
}

// IASetVertexBuffers implements d3d.Context.
func (c *Context) IASetVertexBuffers(start uint32, buffers []d3d.Buffer, strides, offsets []uint32) {
	c.call()
	for i, b := range buffers {
		slot := int(start) + i
		rebind(c.vbs[slot], b)
		c.vbs[slot] = b
		c.strides[slot] = strides[i]
		c.offsets[slot] = offsets[i]
	}
}

func getInstances(bound []d3d.ClassInstance, out []d3d.ClassInstance) int {
	n := copy(out, bound)
	for i := 0; i < n; i++ {
		d3d.SafeAddRef(out[i])
	}
	return n
}

func setInstances(bound []d3d.ClassInstance, in []d3d.ClassInstance) []d3d.ClassInstance {
	for _, inst := range in {
		d3d.SafeAddRef(inst)
	}
	for _, inst := range bound {
		d3d.SafeRelease(inst)
	}
	return append([]d3d.ClassInstance(nil), in...)
}

// VSGetShader implements d3d.Context.
func (c *Context) VSGetShader(instances []d3d.ClassInstance) (d3d.VertexShader, int) {
	c.call()
	return ref(c.vs, c.vs != nil), getInstances(c.vsInst, instances)
}

// VSSetShader implements d3d.Context.
func (c *Context) VSSetShader(vs d3d.VertexShader, instances []d3d.ClassInstance) {
	c.call()
	rebind(c.vs, vs)
	c.vs = vs
	c.vsInst = setInstances(c.vsInst, instances)
}

// GSGetShader implements d3d.Context.
func (c *Context) GSGetShader(instances []d3d.ClassInstance) (d3d.GeometryShader, int) {
	c.call()
	return ref(c.gs, c.gs != nil), getInstances(c.gsInst, instances)
}

// GSSetShader implements d3d.Context.
func (c *Context) GSSetShader(gs d3d.GeometryShader, instances []d3d.ClassInstance) {
	c.call()
	rebind(c.gs, gs)
	c.gs = gs
	c.gsInst = setInstances(c.gsInst, instances)
}

// PSGetShader implements d3d.Context.
func (c *Context) PSGetShader(instances []d3d.ClassInstance) (d3d.PixelShader, int) {
	c.call()
	return ref(c.ps, c.ps != nil), getInstances(c.psInst, instances)
}

// PSSetShader implements d3d.Context.
func (c *Context) PSSetShader(ps d3d.PixelShader, instances []d3d.ClassInstance) {
	c.call()
	rebind(c.ps, ps)
	c.ps = ps
	c.psInst = setInstances(c.psInst, instances)
}

// PSGetShaderResources implements d3d.Context.
func (c *Context) PSGetShaderResources(start uint32, views []d3d.ShaderResourceView) {
	c.call()
	for i := range views {
		v := c.srvs[int(start)+i]
		views[i] = ref(v, v != nil)
	}
}

// PSSetShaderResources implements d3d.Context.
func (c *Context) PSSetShaderResources(start uint32, views []d3d.ShaderResourceView) {
	c.call()
	for i, v := range views {
		slot := int(start) + i
		rebind(c.srvs[slot], v)
		c.srvs[slot] = v
	}
}

// PSGetSamplers implements d3d.Context.
func (c *Context) PSGetSamplers(start uint32, samplers []d3d.SamplerState) {
	c.call()
	for i := range samplers {
		s := c.samplers[int(start)+i]
		samplers[i] = ref(s, s != nil)
	}
}

// PSSetSamplers implements d3d.Context.
func (c *Context) PSSetSamplers(start uint32, samplers []d3d.SamplerState) {
	c.call()
	for i, s := range samplers {
		slot := int(start) + i
		rebind(c.samplers[slot], s)
		c.samplers[slot] = s
	}
}

// RSGetState implements d3d.Context.
func (c *Context) RSGetState() d3d.RasterizerState {
	c.call()
	return ref(c.rs, c.rs != nil)
}

// RSSetState implements d3d.Context.
func (c *Context) RSSetState(rs d3d.RasterizerState) {
	c.call()
	rebind(c.rs, rs)
	c.rs = rs
}

// RSGetViewports implements d3d.Context.
func (c *Context) RSGetViewports() []d3d.Viewport {
	c.call()
	if len(c.viewports) == 0 {
		return nil
	}
	return append([]d3d.Viewport(nil), c.viewports...)
}

// RSSetViewports implements d3d.Context.
func (c *Context) RSSetViewports(viewports []d3d.Viewport) {
	c.call()
	c.viewports = append(c.viewports[:0:0], viewports...)
}

// OMGetBlendState implements d3d.Context.
func (c *Context) OMGetBlendState() (d3d.BlendState, [4]float32, uint32) {
	c.call()
	return ref(c.blend, c.blend != nil), c.blendFactor, c.sampleMask
}

// OMSetBlendState implements d3d.Context.
func (c *Context) OMSetBlendState(bs d3d.BlendState, factor [4]float32, sampleMask uint32) {
	c.call()
	rebind(c.blend, bs)
	c.blend = bs
	c.blendFactor = factor
	c.sampleMask = sampleMask
}

// OMGetDepthStencilState implements d3d.Context.
func (c *Context) OMGetDepthStencilState() (d3d.DepthStencilState, uint32) {
	c.call()
	return ref(c.dss, c.dss != nil), c.stencilRef
}

// OMSetDepthStencilState implements d3d.Context.
func (c *Context) OMSetDepthStencilState(dss d3d.DepthStencilState, stencilRef uint32) {
	c.call()
	rebind(c.dss, dss)
	c.dss = dss
	c.stencilRef = stencilRef
}

// OMGetRenderTargets implements d3d.Context.
func (c *Context) OMGetRenderTargets(rtvs []d3d.RenderTargetView) d3d.DepthStencilView {
	c.call()
	for i := range rtvs {
		v := c.rtvs[i]
		rtvs[i] = ref(v, v != nil)
	}
	return ref(c.dsv, c.dsv != nil)
}

// OMSetRenderTargets implements d3d.Context. Slots past len(rtvs) are
// unbound.
func (c *Context) OMSetRenderTargets(rtvs []d3d.RenderTargetView, dsv d3d.DepthStencilView) {
	c.call()
	for i := range c.rtvs {
		var next d3d.RenderTargetView
		if i < len(rtvs) {
			next = rtvs[i]
		}
		rebind(c.rtvs[i], next)
		c.rtvs[i] = next
	}
	rebind(c.dsv, dsv)
	c.dsv = dsv
}

// SOGetTargets implements d3d.Context.
func (c *Context) SOGetTargets(targets []d3d.Buffer) {
	c.call()
	for i := range targets {
		b := c.so[i]
		targets[i] = ref(b, b != nil)
	}
}

// SOSetTargets implements d3d.Context. Slots past len(targets) are unbound.
func (c *Context) SOSetTargets(targets []d3d.Buffer, offsets []uint32) {
	c.call()
	for i := range c.so {
		var next d3d.Buffer
		var off uint32
		if i < len(targets) {
			next = targets[i]
			off = offsets[i]
		}
		rebind(c.so[i], next)
		c.so[i] = next
		c.soOffsets[i] = off
	}
}

// Map implements d3d.Context.
func (c *Context) Map(res d3d.Object, _ uint32, mode d3d.MapMode) (d3d.MappedSubresource, error) {
	if err := c.dev.call("Map"); err != nil {
		return d3d.MappedSubresource{}, err
	}
	switch r := res.(type) {
	case *Texture:
		if r.desc.CPUAccess&d3d.CPUAccessWrite == 0 {
			return d3d.MappedSubresource{}, d3d.ErrNotMappable
		}
		if mode == d3d.MapWriteDiscard {
			clear(r.Pixels)
		}
		c.mapped[res] = true
		c.Maps++
		return d3d.MappedSubresource{Data: r.Pixels, RowPitch: r.RowPitch, DepthPitch: uint32(len(r.Pixels))}, nil
	case *Buffer:
		if r.desc.CPUAccess&d3d.CPUAccessWrite == 0 {
			return d3d.MappedSubresource{}, d3d.ErrNotMappable
		}
		c.mapped[res] = true
		c.Maps++
		return d3d.MappedSubresource{Data: r.Data, RowPitch: r.desc.ByteWidth}, nil
	}
	return d3d.MappedSubresource{}, d3d.EInvalidArg
}

// Unmap implements d3d.Context.
func (c *Context) Unmap(res d3d.Object, _ uint32) {
	c.call()
	delete(c.mapped, res)
}

// Mapped reports whether res is currently mapped.
func (c *Context) Mapped(res d3d.Object) bool { return c.mapped[res] }

// Draw implements d3d.Context.
func (c *Context) Draw(vertexCount, _ uint32) {
	c.call()
	d := Draw{
		Topology:     c.topology,
		VertexCount:  vertexCount,
		VS:           c.vs,
		PS:           c.ps,
		Resource:     c.srvs[0],
		Buffer:       c.vbs[0],
		RenderTarget: c.rtvs[0],
	}
	if len(c.viewports) > 0 {
		d.Viewport = c.viewports[0]
	}
	c.Draws = append(c.Draws, d)
}

var _ d3d.Context = (*Context)(nil)
