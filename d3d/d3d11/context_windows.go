// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build windows

package d3d11

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/gogpu/overlay/d3d"
)

// Context wraps an ID3D11DeviceContext. Getters return fresh wrappers
// that own the references D3D11 hands back.
type Context struct{ unknown }

var _ d3d.Context = Context{}

// IAGetInputLayout implements d3d.Context.
func (c Context) IAGetInputLayout() d3d.InputLayout {
	var p uintptr
	syscall.SyscallN(c.method(slotIAGetInputLayout), c.this(), uintptr(unsafe.Pointer(&p)))
	return wrap(p, typed[d3d.InputLayout])
}

// IASetInputLayout implements d3d.Context.
func (c Context) IASetInputLayout(layout d3d.InputLayout) {
	syscall.SyscallN(c.method(slotIASetInputLayout), c.this(), raw(layout))
}

// IAGetPrimitiveTopology implements d3d.Context.
func (c Context) IAGetPrimitiveTopology() d3d.Topology {
	var t uint32
	syscall.SyscallN(c.method(slotIAGetPrimitiveTopology), c.this(), uintptr(unsafe.Pointer(&t)))
	return d3d.Topology(t)
}

// IASetPrimitiveTopology implements d3d.Context.
func (c Context) IASetPrimitiveTopology(t d3d.Topology) {
	syscall.SyscallN(c.method(slotIASetPrimitiveTopology), c.this(), uintptr(t))
}

// IAGetVertexBuffers implements d3d.Context.
func (c Context) IAGetVertexBuffers(start uint32, buffers []d3d.Buffer, strides, offsets []uint32) {
	n := len(buffers)
	if n == 0 {
		return
	}
	ptrs := make([]uintptr, n)
	st := make([]uint32, n)
	off := make([]uint32, n)
	syscall.SyscallN(c.method(slotIAGetVertexBuffers), c.this(), uintptr(start), uintptr(n),
		uintptr(unsafe.Pointer(&ptrs[0])), uintptr(unsafe.Pointer(&st[0])), uintptr(unsafe.Pointer(&off[0])))
	for i, p := range ptrs {
		buffers[i] = wrap(p, asBuffer)
	}
	copy(strides, st)
	copy(offsets, off)
}

// IASetVertexBuffers implements d3d.Context.
func (c Context) IASetVertexBuffers(start uint32, buffers []d3d.Buffer, strides, offsets []uint32) {
	n := len(buffers)
	if n == 0 {
		return
	}
	st := make([]uint32, n)
	off := make([]uint32, n)
	copy(st, strides)
	copy(off, offsets)
	ptrs := rawSlice(buffers)
	syscall.SyscallN(c.method(slotIASetVertexBuffers), c.this(), uintptr(start), uintptr(n),
		uintptr(unsafe.Pointer(&ptrs[0])), uintptr(unsafe.Pointer(&st[0])), uintptr(unsafe.Pointer(&off[0])))
}

// getShader calls one of the *GetShader methods and fills instances.
func (c Context) getShader(slot int, instances []d3d.ClassInstance) (uintptr, int) {
	var p uintptr
	insts := make([]uintptr, len(instances))
	num := uint32(len(instances))
	syscall.SyscallN(c.method(slot), c.this(), uintptr(unsafe.Pointer(&p)),
		uintptr(unsafe.Pointer(firstOrNil(insts))), uintptr(unsafe.Pointer(&num)))
	n := min(int(num), len(instances))
	for i := range n {
		instances[i] = wrap(insts[i], typed[d3d.ClassInstance])
	}
	return p, n
}

func (c Context) setShader(slot int, shader d3d.Object, instances []d3d.ClassInstance) {
	insts := rawSlice(instances)
	syscall.SyscallN(c.method(slot), c.this(), raw(shader),
		uintptr(unsafe.Pointer(firstOrNil(insts))), uintptr(len(insts)))
}

// VSGetShader implements d3d.Context.
func (c Context) VSGetShader(instances []d3d.ClassInstance) (d3d.VertexShader, int) {
	p, n := c.getShader(slotVSGetShader, instances)
	return wrap(p, typed[d3d.VertexShader]), n
}

// VSSetShader implements d3d.Context.
func (c Context) VSSetShader(vs d3d.VertexShader, instances []d3d.ClassInstance) {
	c.setShader(slotVSSetShader, vs, instances)
}

// GSGetShader implements d3d.Context.
func (c Context) GSGetShader(instances []d3d.ClassInstance) (d3d.GeometryShader, int) {
	p, n := c.getShader(slotGSGetShader, instances)
	return wrap(p, typed[d3d.GeometryShader]), n
}

// GSSetShader implements d3d.Context.
func (c Context) GSSetShader(gs d3d.GeometryShader, instances []d3d.ClassInstance) {
	c.setShader(slotGSSetShader, gs, instances)
}

// PSGetShader implements d3d.Context.
func (c Context) PSGetShader(instances []d3d.ClassInstance) (d3d.PixelShader, int) {
	p, n := c.getShader(slotPSGetShader, instances)
	return wrap(p, typed[d3d.PixelShader]), n
}

// PSSetShader implements d3d.Context.
func (c Context) PSSetShader(ps d3d.PixelShader, instances []d3d.ClassInstance) {
	c.setShader(slotPSSetShader, ps, instances)
}

// getRange calls a (start, count, out array) getter.
func (c Context) getRange(slot int, start uint32, n int) []uintptr {
	if n == 0 {
		return nil
	}
	ptrs := make([]uintptr, n)
	syscall.SyscallN(c.method(slot), c.this(), uintptr(start), uintptr(n), uintptr(unsafe.Pointer(&ptrs[0])))
	return ptrs
}

func (c Context) setRange(slot int, start uint32, ptrs []uintptr) {
	if len(ptrs) == 0 {
		return
	}
	syscall.SyscallN(c.method(slot), c.this(), uintptr(start), uintptr(len(ptrs)), uintptr(unsafe.Pointer(&ptrs[0])))
}

// PSGetShaderResources implements d3d.Context.
func (c Context) PSGetShaderResources(start uint32, views []d3d.ShaderResourceView) {
	for i, p := range c.getRange(slotPSGetShaderResources, start, len(views)) {
		views[i] = wrap(p, typed[d3d.ShaderResourceView])
	}
}

// PSSetShaderResources implements d3d.Context.
func (c Context) PSSetShaderResources(start uint32, views []d3d.ShaderResourceView) {
	c.setRange(slotPSSetShaderResources, start, rawSlice(views))
}

// PSGetSamplers implements d3d.Context.
func (c Context) PSGetSamplers(start uint32, samplers []d3d.SamplerState) {
	for i, p := range c.getRange(slotPSGetSamplers, start, len(samplers)) {
		samplers[i] = wrap(p, typed[d3d.SamplerState])
	}
}

// PSSetSamplers implements d3d.Context.
func (c Context) PSSetSamplers(start uint32, samplers []d3d.SamplerState) {
	c.setRange(slotPSSetSamplers, start, rawSlice(samplers))
}

// RSGetState implements d3d.Context.
func (c Context) RSGetState() d3d.RasterizerState {
	var p uintptr
	syscall.SyscallN(c.method(slotRSGetState), c.this(), uintptr(unsafe.Pointer(&p)))
	return wrap(p, typed[d3d.RasterizerState])
}

// RSSetState implements d3d.Context.
func (c Context) RSSetState(rs d3d.RasterizerState) {
	syscall.SyscallN(c.method(slotRSSetState), c.this(), raw(rs))
}

// RSGetViewports implements d3d.Context. d3d.Viewport has the layout of
// D3D11_VIEWPORT.
func (c Context) RSGetViewports() []d3d.Viewport {
	vps := make([]d3d.Viewport, d3d.MaxViewports)
	num := uint32(len(vps))
	syscall.SyscallN(c.method(slotRSGetViewports), c.this(), uintptr(unsafe.Pointer(&num)), uintptr(unsafe.Pointer(&vps[0])))
	return vps[:min(int(num), len(vps))]
}

// RSSetViewports implements d3d.Context.
func (c Context) RSSetViewports(viewports []d3d.Viewport) {
	syscall.SyscallN(c.method(slotRSSetViewports), c.this(), uintptr(len(viewports)),
		uintptr(unsafe.Pointer(firstOrNil(viewports))))
}

// OMGetBlendState implements d3d.Context.
func (c Context) OMGetBlendState() (d3d.BlendState, [4]float32, uint32) {
	var p uintptr
	var factor [4]float32
	var mask uint32
	syscall.SyscallN(c.method(slotOMGetBlendState), c.this(), uintptr(unsafe.Pointer(&p)),
		uintptr(unsafe.Pointer(&factor)), uintptr(unsafe.Pointer(&mask)))
	return wrap(p, typed[d3d.BlendState]), factor, mask
}

// OMSetBlendState implements d3d.Context.
func (c Context) OMSetBlendState(bs d3d.BlendState, factor [4]float32, sampleMask uint32) {
	syscall.SyscallN(c.method(slotOMSetBlendState), c.this(), raw(bs),
		uintptr(unsafe.Pointer(&factor)), uintptr(sampleMask))
}

// OMGetDepthStencilState implements d3d.Context.
func (c Context) OMGetDepthStencilState() (d3d.DepthStencilState, uint32) {
	var p uintptr
	var ref uint32
	syscall.SyscallN(c.method(slotOMGetDepthStencilState), c.this(), uintptr(unsafe.Pointer(&p)), uintptr(unsafe.Pointer(&ref)))
	return wrap(p, typed[d3d.DepthStencilState]), ref
}

// OMSetDepthStencilState implements d3d.Context.
func (c Context) OMSetDepthStencilState(dss d3d.DepthStencilState, stencilRef uint32) {
	syscall.SyscallN(c.method(slotOMSetDepthStencilState), c.this(), raw(dss), uintptr(stencilRef))
}

// OMGetRenderTargets implements d3d.Context.
func (c Context) OMGetRenderTargets(rtvs []d3d.RenderTargetView) d3d.DepthStencilView {
	ptrs := make([]uintptr, len(rtvs))
	var dsv uintptr
	syscall.SyscallN(c.method(slotOMGetRenderTargets), c.this(), uintptr(len(ptrs)),
		uintptr(unsafe.Pointer(firstOrNil(ptrs))), uintptr(unsafe.Pointer(&dsv)))
	for i, p := range ptrs {
		rtvs[i] = wrap(p, typed[d3d.RenderTargetView])
	}
	return wrap(dsv, typed[d3d.DepthStencilView])
}

// OMSetRenderTargets implements d3d.Context.
func (c Context) OMSetRenderTargets(rtvs []d3d.RenderTargetView, dsv d3d.DepthStencilView) {
	ptrs := rawSlice(rtvs)
	syscall.SyscallN(c.method(slotOMSetRenderTargets), c.this(), uintptr(len(ptrs)),
		uintptr(unsafe.Pointer(firstOrNil(ptrs))), raw(dsv))
}

// SOGetTargets implements d3d.Context.
func (c Context) SOGetTargets(targets []d3d.Buffer) {
	if len(targets) == 0 {
		return
	}
	ptrs := make([]uintptr, len(targets))
	syscall.SyscallN(c.method(slotSOGetTargets), c.this(), uintptr(len(ptrs)), uintptr(unsafe.Pointer(&ptrs[0])))
	for i, p := range ptrs {
		targets[i] = wrap(p, asBuffer)
	}
}

// SOSetTargets implements d3d.Context. Missing offsets default to
// d3d.SOAppend.
func (c Context) SOSetTargets(targets []d3d.Buffer, offsets []uint32) {
	ptrs := rawSlice(targets)
	off := make([]uint32, len(ptrs))
	for i := range off {
		off[i] = d3d.SOAppend
	}
	copy(off, offsets)
	syscall.SyscallN(c.method(slotSOSetTargets), c.this(), uintptr(len(ptrs)),
		uintptr(unsafe.Pointer(firstOrNil(ptrs))), uintptr(unsafe.Pointer(firstOrNil(off))))
}

// Map implements d3d.Context. Resources created without CPU access report
// d3d.ErrNotMappable instead of E_INVALIDARG.
func (c Context) Map(res d3d.Object, subresource uint32, mode d3d.MapMode) (d3d.MappedSubresource, error) {
	var size func(m *mappedSubresource) int
	switch r := res.(type) {
	case Buffer:
		desc := r.Desc()
		if desc.CPUAccess == 0 {
			return d3d.MappedSubresource{}, d3d.ErrNotMappable
		}
		size = func(*mappedSubresource) int { return int(desc.ByteWidth) }
	case Texture:
		desc := r.Desc()
		if desc.CPUAccess == 0 {
			return d3d.MappedSubresource{}, d3d.ErrNotMappable
		}
		size = func(m *mappedSubresource) int { return int(m.RowPitch) * int(desc.Height) }
	default:
		return d3d.MappedSubresource{}, fmt.Errorf("d3d11: map: foreign resource %T", res)
	}

	var m mappedSubresource
	r, _, _ := syscall.SyscallN(c.method(slotMap), c.this(), raw(res), uintptr(subresource),
		uintptr(mode), 0, uintptr(unsafe.Pointer(&m)))
	if err := check("Map", r); err != nil {
		return d3d.MappedSubresource{}, err
	}
	return d3d.MappedSubresource{
		Data:       unsafe.Slice((*byte)(m.Data), size(&m)),
		RowPitch:   m.RowPitch,
		DepthPitch: m.DepthPitch,
	}, nil
}

// Unmap implements d3d.Context.
func (c Context) Unmap(res d3d.Object, subresource uint32) {
	syscall.SyscallN(c.method(slotUnmap), c.this(), raw(res), uintptr(subresource))
}

// Draw implements d3d.Context.
func (c Context) Draw(vertexCount, startVertex uint32) {
	syscall.SyscallN(c.method(slotDraw), c.this(), uintptr(vertexCount), uintptr(startVertex))
}
