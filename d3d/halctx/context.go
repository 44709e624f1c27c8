// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package halctx

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/d3d"
)

const (
	vertexBufferSlots = 16
	resourceSlots     = 128
	samplerSlots      = 16
)

// ErrIncompleteDraw is recorded when Draw runs without the bindings a HAL
// render pass needs: a render target, both shaders, an input layout, a
// vertex buffer and a viewport.
var ErrIncompleteDraw = errors.New("halctx: draw with incomplete pipeline")

// Context emulates a D3D11 immediate context. Bindings are tracked in
// software with D3D11 reference semantics; each Draw resolves them into a
// cached HAL render pipeline and records a render pass that loads and
// stores the target, so earlier contents are preserved.
//
// Like its D3D11 counterpart, a Context is not safe for concurrent use.
type Context struct {
	refs
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

	so [d3d.MaxStreamOutputTargets]d3d.Buffer

	draws int
	err   error
}

var _ d3d.Context = (*Context)(nil)

func newContext(d *Device) *Context {
	c := &Context{dev: d, sampleMask: 0xffffffff}
	c.refs.init(nil)
	return c
}

// Err returns the last error recorded by a call that cannot return one
// (Draw and Unmap) and clears it.
func (c *Context) Err() error {
	err := c.err
	c.err = nil
	return err
}

// Draws returns the number of draws submitted to the HAL queue.
func (c *Context) Draws() int { return c.draws }

func (c *Context) fail(err error) {
	if err == nil {
		return
	}
	overlay.Logger().Warn("halctx: context call failed", "err", err)
	c.err = err
}

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

func fillInstances(dst, src []d3d.ClassInstance) int {
	n := copy(dst, src)
	for _, inst := range dst[:n] {
		inst.AddRef()
	}
	return n
}

func rebindInstances(prev []d3d.ClassInstance, next []d3d.ClassInstance) []d3d.ClassInstance {
	for _, inst := range next {
		inst.AddRef()
	}
	for _, inst := range prev {
		inst.Release()
	}
	if len(next) == 0 {
		return nil
	}
	return append([]d3d.ClassInstance(nil), next...)
}

// IAGetInputLayout implements d3d.Context.
func (c *Context) IAGetInputLayout() d3d.InputLayout {
	return ref(c.layout, c.layout != nil)
}

// IASetInputLayout implements d3d.Context.
func (c *Context) IASetInputLayout(layout d3d.InputLayout) {
	rebind(c.layout, layout)
	c.layout = layout
}

// IAGetPrimitiveTopology implements d3d.Context.
func (c *Context) IAGetPrimitiveTopology() d3d.Topology { return c.topology }

// IASetPrimitiveTopology implements d3d.Context.
func (c *Context) IASetPrimitiveTopology(t d3d.Topology) { c.topology = t }

// IAGetVertexBuffers implements d3d.Context.
func (c *Context) IAGetVertexBuffers(start uint32, buffers []d3d.Buffer, strides, offsets []uint32) {
	for i := range buffers {
		slot := int(start) + i
		buffers[i] = ref(c.vbs[slot], c.vbs[slot] != nil)
		strides[i] = c.strides[slot]
		offsets[i] = c.offsets[slot]
	}
}

// IASetVertexBuffers implements d3d.Context.
func (c *Context) IASetVertexBuffers(start uint32, buffers []d3d.Buffer, strides, offsets []uint32) {
	for i, b := range buffers {
		slot := int(start) + i
		rebind(c.vbs[slot], b)
		c.vbs[slot] = b
		c.strides[slot] = strides[i]
		c.offsets[slot] = offsets[i]
	}
}

// VSGetShader implements d3d.Context.
func (c *Context) VSGetShader(instances []d3d.ClassInstance) (d3d.VertexShader, int) {
	return ref(c.vs, c.vs != nil), fillInstances(instances, c.vsInst)
}

// VSSetShader implements d3d.Context.
func (c *Context) VSSetShader(vs d3d.VertexShader, instances []d3d.ClassInstance) {
	rebind(c.vs, vs)
	c.vs = vs
	c.vsInst = rebindInstances(c.vsInst, instances)
}

// GSGetShader implements d3d.Context.
func (c *Context) GSGetShader(instances []d3d.ClassInstance) (d3d.GeometryShader, int) {
	return ref(c.gs, c.gs != nil), fillInstances(instances, c.gsInst)
}

// GSSetShader implements d3d.Context.
func (c *Context) GSSetShader(gs d3d.GeometryShader, instances []d3d.ClassInstance) {
	rebind(c.gs, gs)
	c.gs = gs
	c.gsInst = rebindInstances(c.gsInst, instances)
}

// PSGetShader implements d3d.Context.
func (c *Context) PSGetShader(instances []d3d.ClassInstance) (d3d.PixelShader, int) {
	return ref(c.ps, c.ps != nil), fillInstances(instances, c.psInst)
}

// PSSetShader implements d3d.Context.
func (c *Context) PSSetShader(ps d3d.PixelShader, instances []d3d.ClassInstance) {
	rebind(c.ps, ps)
	c.ps = ps
	c.psInst = rebindInstances(c.psInst, instances)
}

// PSGetShaderResources implements d3d.Context.
func (c *Context) PSGetShaderResources(start uint32, views []d3d.ShaderResourceView) {
	for i := range views {
		v := c.srvs[int(start)+i]
		views[i] = ref(v, v != nil)
	}
}

// PSSetShaderResources implements d3d.Context.
func (c *Context) PSSetShaderResources(start uint32, views []d3d.ShaderResourceView) {
	for i, v := range views {
		slot := int(start) + i
		rebind(c.srvs[slot], v)
		c.srvs[slot] = v
	}
}

// PSGetSamplers implements d3d.Context.
func (c *Context) PSGetSamplers(start uint32, samplers []d3d.SamplerState) {
	for i := range samplers {
		s := c.samplers[int(start)+i]
		samplers[i] = ref(s, s != nil)
	}
}

// PSSetSamplers implements d3d.Context.
func (c *Context) PSSetSamplers(start uint32, samplers []d3d.SamplerState) {
	for i, s := range samplers {
		slot := int(start) + i
		rebind(c.samplers[slot], s)
		c.samplers[slot] = s
	}
}

// RSGetState implements d3d.Context.
func (c *Context) RSGetState() d3d.RasterizerState {
	return ref(c.rs, c.rs != nil)
}

// RSSetState implements d3d.Context.
func (c *Context) RSSetState(rs d3d.RasterizerState) {
	rebind(c.rs, rs)
	c.rs = rs
}

// RSGetViewports implements d3d.Context.
func (c *Context) RSGetViewports() []d3d.Viewport {
	return append([]d3d.Viewport(nil), c.viewports...)
}

// RSSetViewports implements d3d.Context.
func (c *Context) RSSetViewports(viewports []d3d.Viewport) {
	if len(viewports) > d3d.MaxViewports {
		viewports = viewports[:d3d.MaxViewports]
	}
	c.viewports = append(c.viewports[:0], viewports...)
}

// OMGetBlendState implements d3d.Context.
func (c *Context) OMGetBlendState() (d3d.BlendState, [4]float32, uint32) {
	return ref(c.blend, c.blend != nil), c.blendFactor, c.sampleMask
}

// OMSetBlendState implements d3d.Context.
func (c *Context) OMSetBlendState(bs d3d.BlendState, factor [4]float32, sampleMask uint32) {
	rebind(c.blend, bs)
	c.blend = bs
	c.blendFactor = factor
	c.sampleMask = sampleMask
}

// OMGetDepthStencilState implements d3d.Context.
func (c *Context) OMGetDepthStencilState() (d3d.DepthStencilState, uint32) {
	return ref(c.dss, c.dss != nil), c.stencilRef
}

// OMSetDepthStencilState implements d3d.Context.
func (c *Context) OMSetDepthStencilState(dss d3d.DepthStencilState, stencilRef uint32) {
	rebind(c.dss, dss)
	c.dss = dss
	c.stencilRef = stencilRef
}

// OMGetRenderTargets implements d3d.Context.
func (c *Context) OMGetRenderTargets(rtvs []d3d.RenderTargetView) d3d.DepthStencilView {
	for i := range rtvs {
		rtvs[i] = ref(c.rtvs[i], c.rtvs[i] != nil)
	}
	return ref(c.dsv, c.dsv != nil)
}

// OMSetRenderTargets implements d3d.Context. Slots past len(rtvs) are
// unbound.
func (c *Context) OMSetRenderTargets(rtvs []d3d.RenderTargetView, dsv d3d.DepthStencilView) {
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
	for i := range targets {
		targets[i] = ref(c.so[i], c.so[i] != nil)
	}
}

// SOSetTargets implements d3d.Context. Stream output is never executed, so
// offsets are accepted and dropped.
func (c *Context) SOSetTargets(targets []d3d.Buffer, _ []uint32) {
	for i := range c.so {
		var next d3d.Buffer
		if i < len(targets) {
			next = targets[i]
		}
		rebind(c.so[i], next)
		c.so[i] = next
	}
}

// Map implements d3d.Context. Writes go to a host shadow copy uploaded on
// Unmap; reads of a texture with CPUAccessRead copy it back first.
func (c *Context) Map(res d3d.Object, _ uint32, mode d3d.MapMode) (d3d.MappedSubresource, error) {
	switch r := res.(type) {
	case *buffer:
		if r.desc.CPUAccess&d3d.CPUAccessWrite == 0 || mode == d3d.MapRead {
			return d3d.MappedSubresource{}, d3d.ErrNotMappable
		}
		return d3d.MappedSubresource{Data: r.shadow[:r.desc.ByteWidth], RowPitch: r.desc.ByteWidth}, nil

	case *texture:
		pitch := r.pitch()
		size := int(pitch) * int(r.desc.Height)
		if mode == d3d.MapRead {
			if r.desc.CPUAccess&d3d.CPUAccessRead == 0 {
				return d3d.MappedSubresource{}, d3d.ErrNotMappable
			}
			px, err := c.dev.ReadPixels(r)
			if err != nil {
				return d3d.MappedSubresource{}, err
			}
			r.shadow = px
			return d3d.MappedSubresource{Data: r.shadow, RowPitch: pitch, DepthPitch: uint32(size)}, nil
		}
		if r.desc.CPUAccess&d3d.CPUAccessWrite == 0 {
			return d3d.MappedSubresource{}, d3d.ErrNotMappable
		}
		if len(r.shadow) != size {
			r.shadow = make([]byte, size)
		}
		return d3d.MappedSubresource{Data: r.shadow, RowPitch: pitch, DepthPitch: uint32(size)}, nil
	}
	return d3d.MappedSubresource{}, fmt.Errorf("halctx: map: foreign resource %T", res)
}

// Unmap implements d3d.Context.
func (c *Context) Unmap(res d3d.Object, _ uint32) {
	switch r := res.(type) {
	case *buffer:
		c.fail(wrapHAL("upload buffer", c.dev.queue.WriteBuffer(r.buf, 0, r.shadow)))
	case *texture:
		if r.desc.CPUAccess&d3d.CPUAccessWrite != 0 && len(r.shadow) > 0 {
			c.fail(c.dev.writeTexture(r, r.shadow, r.pitch()))
		}
	}
}

// Draw implements d3d.Context.
func (c *Context) Draw(vertexCount, startVertex uint32) {
	c.fail(c.draw(vertexCount, startVertex))
}

func (c *Context) draw(vertexCount, startVertex uint32) error {
	rtv, _ := c.rtvs[0].(*view)
	vs, _ := c.vs.(*shader)
	ps, _ := c.ps.(*shader)
	layout, _ := c.layout.(*inputLayout)
	vb, _ := c.vbs[0].(*buffer)
	if rtv == nil || vs == nil || ps == nil || layout == nil || vb == nil || len(c.viewports) == 0 {
		return ErrIncompleteDraw
	}

	bs, _ := c.blend.(*blendState)
	rs, _ := c.rs.(*rasterizerState)
	key := pipelineKey{
		vs:       vs,
		ps:       ps,
		layout:   layout,
		topology: c.topology,
		stride:   c.strides[0],
		format:   rtv.tex.desc.Format,
		blended:  bs != nil,
		rastered: rs != nil,
	}
	if bs != nil {
		key.blend = bs.desc
	}
	if rs != nil {
		key.raster = rs.desc
	}
	pipeline, err := c.dev.pipeline(key, bs, rs)
	if err != nil {
		return err
	}

	var group hal.BindGroup
	srv, _ := c.srvs[0].(*view)
	smp, _ := c.samplers[0].(*sampler)
	if srv != nil && smp != nil {
		if group, err = c.dev.bindGroup(srv, smp); err != nil {
			return err
		}
	}

	vp := c.viewports[0]
	factor := gputypes.Color{
		R: float64(c.blendFactor[0]),
		G: float64(c.blendFactor[1]),
		B: float64(c.blendFactor[2]),
		A: float64(c.blendFactor[3]),
	}
	err = c.dev.submit("overlay_draw", func(enc hal.CommandEncoder) {
		rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "overlay_pass",
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:    rtv.view,
				LoadOp:  gputypes.LoadOpLoad,
				StoreOp: gputypes.StoreOpStore,
			}},
		})
		rp.SetPipeline(pipeline)
		if group != nil {
			rp.SetBindGroup(0, group, nil)
		}
		rp.SetVertexBuffer(0, vb.buf, uint64(c.offsets[0]))
		rp.SetViewport(vp.TopLeftX, vp.TopLeftY, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
		rp.SetBlendConstant(&factor)
		rp.Draw(vertexCount, 1, startVertex, 0)
		rp.End()
	})
	if err != nil {
		return err
	}
	c.draws++
	return nil
}

// clear unbinds everything, as ClearState does.
func (c *Context) clear() {
	c.IASetInputLayout(nil)
	c.IASetVertexBuffers(0, make([]d3d.Buffer, vertexBufferSlots), make([]uint32, vertexBufferSlots), make([]uint32, vertexBufferSlots))
	c.VSSetShader(nil, nil)
	c.GSSetShader(nil, nil)
	c.PSSetShader(nil, nil)
	c.PSSetShaderResources(0, make([]d3d.ShaderResourceView, resourceSlots))
	c.PSSetSamplers(0, make([]d3d.SamplerState, samplerSlots))
	c.RSSetState(nil)
	c.RSSetViewports(nil)
	c.OMSetBlendState(nil, [4]float32{}, 0xffffffff)
	c.OMSetDepthStencilState(nil, 0)
	c.OMSetRenderTargets(nil, nil)
	c.SOSetTargets(nil, nil)
	c.topology = d3d.TopologyUndefined
}
