// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package pipestate captures and restores the bindable pipeline state of a
// d3d.Context.
//
// The compositor draws from inside a host application's present call, with
// whatever state the host left bound. A Snapshot holds a strong reference on
// everything it captures so the host's objects stay alive while the
// compositor rebinds the pipeline, and gives each reference back on Restore.
//
//	var snap pipestate.Snapshot
//	snap.Save(ctx)
//	defer snap.Restore()
package pipestate

import "github.com/gogpu/overlay/d3d"

// Snapshot is the saved pipeline state of one context. The zero value is
// empty and ready to use.
type Snapshot struct {
	saved bool
	ctx   d3d.Context

	gs     d3d.GeometryShader
	gsInst [d3d.MaxClassInstances]d3d.ClassInstance
	gsN    int

	layout   d3d.InputLayout
	topology d3d.Topology
	vb       [1]d3d.Buffer
	vbStride [1]uint32
	vbOffset [1]uint32

	blend       d3d.BlendState
	blendFactor [4]float32
	sampleMask  uint32
	dss         d3d.DepthStencilState
	stencilRef  uint32
	rtvs        [d3d.SimultaneousRenderTargets]d3d.RenderTargetView
	dsv         d3d.DepthStencilView

	sampler [1]d3d.SamplerState
	ps      d3d.PixelShader
	psInst  [d3d.MaxClassInstances]d3d.ClassInstance
	psN     int
	srv     [1]d3d.ShaderResourceView

	rs        d3d.RasterizerState
	viewports []d3d.Viewport

	so [d3d.MaxStreamOutputTargets]d3d.Buffer

	vs     d3d.VertexShader
	vsInst [d3d.MaxClassInstances]d3d.ClassInstance
	vsN    int
}

// Saved reports whether a snapshot is outstanding.
func (s *Snapshot) Saved() bool { return s.saved }

// Save captures every slot group of ctx. It does nothing when a snapshot is
// already outstanding, so nested or repeated calls within one frame capture
// the host's state only once.
func (s *Snapshot) Save(ctx d3d.Context) {
	if s.saved {
		return
	}
	s.saved = true
	s.ctx = ctx
	ctx.AddRef()

	s.gs, s.gsN = ctx.GSGetShader(s.gsInst[:])
	s.layout = ctx.IAGetInputLayout()
	s.topology = ctx.IAGetPrimitiveTopology()
	ctx.IAGetVertexBuffers(0, s.vb[:], s.vbStride[:], s.vbOffset[:])
	s.blend, s.blendFactor, s.sampleMask = ctx.OMGetBlendState()
	s.dss, s.stencilRef = ctx.OMGetDepthStencilState()
	s.dsv = ctx.OMGetRenderTargets(s.rtvs[:])
	ctx.PSGetSamplers(0, s.sampler[:])
	s.ps, s.psN = ctx.PSGetShader(s.psInst[:])
	ctx.PSGetShaderResources(0, s.srv[:])
	s.rs = ctx.RSGetState()
	s.viewports = ctx.RSGetViewports()
	ctx.SOGetTargets(s.so[:])
	s.vs, s.vsN = ctx.VSGetShader(s.vsInst[:])
}

// Restore reapplies the captured state, releases every captured reference
// once and empties the snapshot. It does nothing when no snapshot is
// outstanding.
func (s *Snapshot) Restore() {
	if !s.saved {
		return
	}
	ctx := s.ctx

	soOffsets := [d3d.MaxStreamOutputTargets]uint32{d3d.SOAppend, d3d.SOAppend, d3d.SOAppend, d3d.SOAppend}

	ctx.GSSetShader(s.gs, s.gsInst[:s.gsN])
	ctx.IASetInputLayout(s.layout)
	ctx.IASetPrimitiveTopology(s.topology)
	ctx.IASetVertexBuffers(0, s.vb[:], s.vbStride[:], s.vbOffset[:])
	ctx.OMSetBlendState(s.blend, s.blendFactor, s.sampleMask)
	ctx.OMSetDepthStencilState(s.dss, s.stencilRef)
	ctx.OMSetRenderTargets(s.rtvs[:], s.dsv)
	ctx.PSSetSamplers(0, s.sampler[:])
	ctx.PSSetShader(s.ps, s.psInst[:s.psN])
	ctx.PSSetShaderResources(0, s.srv[:])
	ctx.RSSetState(s.rs)
	ctx.RSSetViewports(s.viewports)
	ctx.SOSetTargets(s.so[:], soOffsets[:])
	ctx.VSSetShader(s.vs, s.vsInst[:s.vsN])

	d3d.SafeRelease(s.gs)
	d3d.SafeRelease(s.layout)
	d3d.SafeRelease(s.vb[0])
	d3d.SafeRelease(s.blend)
	d3d.SafeRelease(s.dss)
	for _, rtv := range s.rtvs {
		d3d.SafeRelease(rtv)
	}
	d3d.SafeRelease(s.dsv)
	d3d.SafeRelease(s.sampler[0])
	d3d.SafeRelease(s.ps)
	d3d.SafeRelease(s.srv[0])
	d3d.SafeRelease(s.rs)
	for _, b := range s.so {
		d3d.SafeRelease(b)
	}
	d3d.SafeRelease(s.vs)
	releaseInstances(s.gsInst[:s.gsN])
	releaseInstances(s.psInst[:s.psN])
	releaseInstances(s.vsInst[:s.vsN])

	ctx.Release()
	*s = Snapshot{}
}

func releaseInstances(insts []d3d.ClassInstance) {
	for _, inst := range insts {
		d3d.SafeRelease(inst)
	}
}
