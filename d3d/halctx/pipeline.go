// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package halctx

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/overlay/d3d"
)

// Bind group slots shared by every pixel shader the backend accepts.
const (
	bindingTexture = 0
	bindingSampler = 1
)

// Cache limits. Evicted objects are destroyed; every draw waits for the
// queue, so nothing evicted is still in flight.
const (
	maxPipelines  = 64
	maxBindGroups = 256
)

var (
	errUnsupportedSlot     = errors.New("halctx: only input slot 0 is supported")
	errUnsupportedTopology = errors.New("halctx: unsupported primitive topology")
)

type attribute struct {
	format   gputypes.VertexFormat
	offset   uint64
	location uint32
}

// buildAttributes resolves AppendAligned offsets. Locations follow element
// order, matching the WGSL @location numbering of the vertex input struct.
func buildAttributes(elems []d3d.InputElement) ([]attribute, error) {
	attrs := make([]attribute, 0, len(elems))
	var next uint64
	for i, e := range elems {
		if e.InputSlot != 0 {
			return nil, errUnsupportedSlot
		}
		offset := next
		if e.AlignedByteOffset != d3d.AppendAligned {
			offset = uint64(e.AlignedByteOffset)
		}
		attrs = append(attrs, attribute{format: e.Format, offset: offset, location: uint32(i)})
		next = offset + e.Format.Size()
	}
	return attrs, nil
}

func vertexLayout(attrs []attribute, stride uint32) gputypes.VertexBufferLayout {
	out := gputypes.VertexBufferLayout{
		ArrayStride: uint64(stride),
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  make([]gputypes.VertexAttribute, len(attrs)),
	}
	for i, a := range attrs {
		out.Attributes[i] = gputypes.VertexAttribute{Format: a.format, Offset: a.offset, ShaderLocation: a.location}
	}
	return out
}

func topology(t d3d.Topology) (gputypes.PrimitiveTopology, error) {
	switch t {
	case d3d.TopologyPointList:
		return gputypes.PrimitiveTopologyPointList, nil
	case d3d.TopologyLineList:
		return gputypes.PrimitiveTopologyLineList, nil
	case d3d.TopologyLineStrip:
		return gputypes.PrimitiveTopologyLineStrip, nil
	case d3d.TopologyTriangleList:
		return gputypes.PrimitiveTopologyTriangleList, nil
	case d3d.TopologyTriangleStrip:
		return gputypes.PrimitiveTopologyTriangleStrip, nil
	}
	return 0, fmt.Errorf("%w: %s", errUnsupportedTopology, t)
}

func blendFactor(b d3d.Blend) gputypes.BlendFactor {
	switch b {
	case d3d.BlendZero:
		return gputypes.BlendFactorZero
	case d3d.BlendSrcColor:
		return gputypes.BlendFactorSrc
	case d3d.BlendInvSrcColor:
		return gputypes.BlendFactorOneMinusSrc
	case d3d.BlendSrcAlpha:
		return gputypes.BlendFactorSrcAlpha
	case d3d.BlendInvSrcAlpha:
		return gputypes.BlendFactorOneMinusSrcAlpha
	case d3d.BlendDestAlpha:
		return gputypes.BlendFactorDstAlpha
	case d3d.BlendInvDestAlpha:
		return gputypes.BlendFactorOneMinusDstAlpha
	default:
		return gputypes.BlendFactorOne
	}
}

func blendOp(op d3d.BlendOp) gputypes.BlendOperation {
	switch op {
	case d3d.BlendOpSubtract:
		return gputypes.BlendOperationSubtract
	case d3d.BlendOpRevSubtract:
		return gputypes.BlendOperationReverseSubtract
	case d3d.BlendOpMin:
		return gputypes.BlendOperationMin
	case d3d.BlendOpMax:
		return gputypes.BlendOperationMax
	default:
		return gputypes.BlendOperationAdd
	}
}

// colorTarget translates render target 0's blend description. A nil state
// is the D3D11 default: blending off, every channel written.
func colorTarget(format gputypes.TextureFormat, bs *blendState) gputypes.ColorTargetState {
	target := gputypes.ColorTargetState{Format: format, WriteMask: gputypes.ColorWriteMaskAll}
	if bs == nil {
		return target
	}
	rt := bs.desc.RenderTarget
	target.WriteMask = gputypes.ColorWriteMask(rt.WriteMask)
	if rt.Enable {
		target.Blend = &gputypes.BlendState{
			Color: gputypes.BlendComponent{
				SrcFactor: blendFactor(rt.SrcBlend),
				DstFactor: blendFactor(rt.DestBlend),
				Operation: blendOp(rt.BlendOp),
			},
			Alpha: gputypes.BlendComponent{
				SrcFactor: blendFactor(rt.SrcAlpha),
				DstFactor: blendFactor(rt.DestAlpha),
				Operation: blendOp(rt.AlphaOp),
			},
		}
	}
	return target
}

func primitive(t gputypes.PrimitiveTopology, rs *rasterizerState) gputypes.PrimitiveState {
	// D3D11 defaults: back-face culling, clockwise front faces.
	p := gputypes.PrimitiveState{Topology: t, FrontFace: gputypes.FrontFaceCW, CullMode: gputypes.CullModeBack}
	if rs == nil {
		return p
	}
	if rs.desc.FrontCounterClockwise {
		p.FrontFace = gputypes.FrontFaceCCW
	}
	switch rs.desc.CullMode {
	case d3d.CullNone:
		p.CullMode = gputypes.CullModeNone
	case d3d.CullFront:
		p.CullMode = gputypes.CullModeFront
	}
	return p
}

func addressMode(m d3d.AddressMode) gputypes.AddressMode {
	switch m {
	case d3d.AddressWrap:
		return gputypes.AddressModeRepeat
	case d3d.AddressMirror:
		return gputypes.AddressModeMirrorRepeat
	default:
		return gputypes.AddressModeClampToEdge
	}
}

func samplerDescriptor(desc *d3d.SamplerDesc) *hal.SamplerDescriptor {
	filter := gputypes.FilterModeNearest
	if desc.Filter == d3d.FilterMinMagMipLinear {
		filter = gputypes.FilterModeLinear
	}
	maxLOD := desc.MaxLOD
	if maxLOD > 32 {
		maxLOD = 32
	}
	return &hal.SamplerDescriptor{
		Label:        "overlay_sampler",
		AddressModeU: addressMode(desc.AddressU),
		AddressModeV: addressMode(desc.AddressV),
		AddressModeW: addressMode(desc.AddressW),
		MagFilter:    filter,
		MinFilter:    filter,
		MipmapFilter: filter,
		LodMinClamp:  desc.MinLOD,
		LodMaxClamp:  maxLOD,
	}
}

// pipelineKey is everything a D3D11 draw binds that WebGPU bakes into a
// render pipeline.
type pipelineKey struct {
	vs       *shader
	ps       *shader
	layout   *inputLayout
	topology d3d.Topology
	stride   uint32
	format   gputypes.TextureFormat
	blend    d3d.BlendDesc
	blended  bool
	raster   d3d.RasterizerDesc
	rastered bool
}

func (k pipelineKey) uses(o any) bool {
	return o == k.vs || o == k.ps || o == k.layout
}

type groupKey struct {
	view    *view
	sampler *sampler
}

// ensureLayout creates the texture + sampler bind group layout shared by
// every pipeline. Called with d.mu held.
func (d *Device) ensureLayout() error {
	if d.pipeLayout != nil {
		return nil
	}
	bgl, err := d.hal.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "overlay_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    bindingTexture,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    bindingSampler,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("halctx: create bind group layout: %w", err)
	}
	pl, err := d.hal.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "overlay_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{bgl},
	})
	if err != nil {
		d.hal.DestroyBindGroupLayout(bgl)
		return fmt.Errorf("halctx: create pipeline layout: %w", err)
	}
	d.bindLayout, d.pipeLayout = bgl, pl
	return nil
}

// pipeline returns the cached render pipeline for key, creating it on first
// use.
func (d *Device) pipeline(key pipelineKey, bs *blendState, rs *rasterizerState) (hal.RenderPipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pipelines.Get(key); ok {
		return p, nil
	}
	if err := d.ensureLayout(); err != nil {
		return nil, err
	}
	topo, err := topology(key.topology)
	if err != nil {
		return nil, err
	}
	p, err := d.hal.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "overlay_pipeline",
		Layout: d.pipeLayout,
		Vertex: hal.VertexState{
			Module:     key.vs.module,
			EntryPoint: key.vs.entry,
			Buffers:    []gputypes.VertexBufferLayout{vertexLayout(key.layout.attrs, key.stride)},
		},
		Primitive: primitive(topo, rs),
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Fragment: &hal.FragmentState{
			Module:     key.ps.module,
			EntryPoint: key.ps.entry,
			Targets:    []gputypes.ColorTargetState{colorTarget(key.format, bs)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("halctx: create render pipeline: %w", err)
	}
	d.pipelines.Set(key, p)
	return p, nil
}

// bindGroup returns the cached bind group sampling v through s.
func (d *Device) bindGroup(v *view, s *sampler) (hal.BindGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := groupKey{view: v, sampler: s}
	if g, ok := d.groups.Get(key); ok {
		return g, nil
	}
	if err := d.ensureLayout(); err != nil {
		return nil, err
	}
	g, err := d.hal.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "overlay_bind_group",
		Layout: d.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: bindingTexture, Resource: gputypes.TextureViewBinding{TextureView: v.view.NativeHandle()}},
			{Binding: bindingSampler, Resource: gputypes.SamplerBinding{Sampler: s.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("halctx: create bind group: %w", err)
	}
	d.groups.Set(key, g)
	return g, nil
}

// forget destroys every cached pipeline and bind group built from o.
func (d *Device) forget(o any) {
	d.pipelines.DeleteFunc(func(k pipelineKey) bool { return k.uses(o) })
	d.groups.DeleteFunc(func(k groupKey) bool { return o == k.view || o == k.sampler })
}

// PipelineCount returns the number of cached render pipelines.
func (d *Device) PipelineCount() int { return d.pipelines.Len() }
