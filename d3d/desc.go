// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package d3d

import "github.com/gogpu/gputypes"

// Usage identifies how a resource is read and written.
// Values match D3D11_USAGE.
type Usage uint32

const (
	UsageDefault   Usage = 0
	UsageImmutable Usage = 1
	UsageDynamic   Usage = 2
	UsageStaging   Usage = 3
)

// BindFlags identifies the pipeline stages a resource can be bound to.
// Values match D3D11_BIND_FLAG.
type BindFlags uint32

const (
	BindVertexBuffer   BindFlags = 0x1
	BindIndexBuffer    BindFlags = 0x2
	BindConstantBuffer BindFlags = 0x4
	BindShaderResource BindFlags = 0x8
	BindStreamOutput   BindFlags = 0x10
	BindRenderTarget   BindFlags = 0x20
	BindDepthStencil   BindFlags = 0x40
)

// CPUAccess identifies CPU access to a resource. Values match
// D3D11_CPU_ACCESS_FLAG.
type CPUAccess uint32

const (
	CPUAccessWrite CPUAccess = 0x10000
	CPUAccessRead  CPUAccess = 0x20000
)

// MiscFlags carries uncommon resource options. Values match
// D3D11_RESOURCE_MISC_FLAG.
type MiscFlags uint32

// MiscShared marks a texture that can be opened by another device through a
// shared handle.
const MiscShared MiscFlags = 0x2

// TextureDesc describes a 2D texture.
type TextureDesc struct {
	Width       uint32
	Height      uint32
	MipLevels   uint32
	ArraySize   uint32
	Format      gputypes.TextureFormat
	SampleCount uint32
	Usage       Usage
	BindFlags   BindFlags
	CPUAccess   CPUAccess
	MiscFlags   MiscFlags
}

// SubresourceData is initial content for a texture. RowPitch is the
// distance in bytes between the starts of consecutive rows in Data.
type SubresourceData struct {
	Data     []byte
	RowPitch uint32
}

// BufferDesc describes a buffer.
type BufferDesc struct {
	ByteWidth uint32
	Usage     Usage
	BindFlags BindFlags
	CPUAccess CPUAccess
}

// Topology is a primitive topology. Values match D3D11_PRIMITIVE_TOPOLOGY so
// a host's binding can be captured and reapplied without translation.
type Topology uint32

const (
	TopologyUndefined     Topology = 0
	TopologyPointList     Topology = 1
	TopologyLineList      Topology = 2
	TopologyLineStrip     Topology = 3
	TopologyTriangleList  Topology = 4
	TopologyTriangleStrip Topology = 5
)

// String returns the topology name.
func (t Topology) String() string {
	switch t {
	case TopologyUndefined:
		return "undefined"
	case TopologyPointList:
		return "point-list"
	case TopologyLineList:
		return "line-list"
	case TopologyLineStrip:
		return "line-strip"
	case TopologyTriangleList:
		return "triangle-list"
	case TopologyTriangleStrip:
		return "triangle-strip"
	default:
		return "topology(other)"
	}
}

// AppendAligned places an input element directly after the previous one.
const AppendAligned = ^uint32(0)

// InputElement describes one vertex attribute.
type InputElement struct {
	SemanticName      string
	SemanticIndex     uint32
	Format            gputypes.VertexFormat
	InputSlot         uint32
	AlignedByteOffset uint32
}

// Filter selects texture filtering. Values match the D3D11_FILTER entries
// the compositor uses.
type Filter uint32

const (
	FilterMinMagMipPoint  Filter = 0x00
	FilterMinMagMipLinear Filter = 0x15
)

// AddressMode selects texture coordinate wrapping. Values match
// D3D11_TEXTURE_ADDRESS_MODE.
type AddressMode uint32

const (
	AddressWrap   AddressMode = 1
	AddressMirror AddressMode = 2
	AddressClamp  AddressMode = 3
	AddressBorder AddressMode = 4
)

// ComparisonFunc is a depth, stencil or sampler comparison. Values match
// D3D11_COMPARISON_FUNC.
type ComparisonFunc uint32

const (
	ComparisonNever        ComparisonFunc = 1
	ComparisonLess         ComparisonFunc = 2
	ComparisonEqual        ComparisonFunc = 3
	ComparisonLessEqual    ComparisonFunc = 4
	ComparisonGreater      ComparisonFunc = 5
	ComparisonNotEqual     ComparisonFunc = 6
	ComparisonGreaterEqual ComparisonFunc = 7
	ComparisonAlways       ComparisonFunc = 8
)

// SamplerDesc describes a sampler state.
type SamplerDesc struct {
	Filter         Filter
	AddressU       AddressMode
	AddressV       AddressMode
	AddressW       AddressMode
	ComparisonFunc ComparisonFunc
	MinLOD         float32
	MaxLOD         float32
}

// Blend is a blend factor. Values match D3D11_BLEND.
type Blend uint32

const (
	BlendZero         Blend = 1
	BlendOne          Blend = 2
	BlendSrcColor     Blend = 3
	BlendInvSrcColor  Blend = 4
	BlendSrcAlpha     Blend = 5
	BlendInvSrcAlpha  Blend = 6
	BlendDestAlpha    Blend = 7
	BlendInvDestAlpha Blend = 8
)

// BlendOp combines source and destination terms. Values match D3D11_BLEND_OP.
type BlendOp uint32

const (
	BlendOpAdd         BlendOp = 1
	BlendOpSubtract    BlendOp = 2
	BlendOpRevSubtract BlendOp = 3
	BlendOpMin         BlendOp = 4
	BlendOpMax         BlendOp = 5
)

// ColorWriteAll enables writes to every channel.
const ColorWriteAll uint8 = 0x0f

// RenderTargetBlend is the blend configuration of one render target.
type RenderTargetBlend struct {
	Enable    bool
	SrcBlend  Blend
	DestBlend Blend
	BlendOp   BlendOp
	SrcAlpha  Blend
	DestAlpha Blend
	AlphaOp   BlendOp
	WriteMask uint8
}

// BlendDesc describes a blend state. Only render target 0 is configured;
// independent blending is never used by the compositor.
type BlendDesc struct {
	AlphaToCoverage bool
	RenderTarget    RenderTargetBlend
}

// FillMode values match D3D11_FILL_MODE.
type FillMode uint32

const (
	FillWireframe FillMode = 2
	FillSolid     FillMode = 3
)

// CullMode values match D3D11_CULL_MODE.
type CullMode uint32

const (
	CullNone  CullMode = 1
	CullFront CullMode = 2
	CullBack  CullMode = 3
)

// RasterizerDesc describes a rasterizer state.
type RasterizerDesc struct {
	FillMode              FillMode
	CullMode              CullMode
	FrontCounterClockwise bool
	DepthBias             int32
	DepthBiasClamp        float32
	SlopeScaledDepthBias  float32
	DepthClipEnable       bool
	ScissorEnable         bool
	MultisampleEnable     bool
	AntialiasedLineEnable bool
}

// StencilOp values match D3D11_STENCIL_OP.
type StencilOp uint32

const (
	StencilOpKeep    StencilOp = 1
	StencilOpZero    StencilOp = 2
	StencilOpReplace StencilOp = 3
	StencilOpIncrSat StencilOp = 4
	StencilOpDecrSat StencilOp = 5
	StencilOpInvert  StencilOp = 6
	StencilOpIncr    StencilOp = 7
	StencilOpDecr    StencilOp = 8
)

// StencilFace describes stencil behaviour for one face orientation.
type StencilFace struct {
	FailOp      StencilOp
	DepthFailOp StencilOp
	PassOp      StencilOp
	Func        ComparisonFunc
}

// DepthStencilDesc describes a depth-stencil state.
type DepthStencilDesc struct {
	DepthEnable      bool
	DepthWriteAll    bool
	DepthFunc        ComparisonFunc
	StencilEnable    bool
	StencilReadMask  uint8
	StencilWriteMask uint8
	FrontFace        StencilFace
	BackFace         StencilFace
}

// Viewport is a rasterizer viewport in render-target pixels.
type Viewport struct {
	TopLeftX float32
	TopLeftY float32
	Width    float32
	Height   float32
	MinDepth float32
	MaxDepth float32
}

// MapMode selects CPU access for Map. Values match D3D11_MAP.
type MapMode uint32

const (
	MapRead             MapMode = 1
	MapWrite            MapMode = 2
	MapReadWrite        MapMode = 3
	MapWriteDiscard     MapMode = 4
	MapWriteNoOverwrite MapMode = 5
)

// MappedSubresource is CPU-visible memory returned by Map. Data is valid
// until the matching Unmap.
type MappedSubresource struct {
	Data       []byte
	RowPitch   uint32
	DepthPitch uint32
}

// ShaderStage identifies a programmable stage.
type ShaderStage uint8

const (
	StageVertex ShaderStage = iota
	StagePixel
)

// Profile returns the shader model 4.0 target for the stage.
func (s ShaderStage) Profile() string {
	if s == StagePixel {
		return "ps_4_0"
	}
	return "vs_4_0"
}

// ShaderSource carries one shader program in every language a backend may
// consume. The native backend compiles HLSL; the HAL backend compiles WGSL.
type ShaderSource struct {
	HLSL string
	WGSL string
}

// Bytecode is a compiled shader entry point.
type Bytecode struct {
	Stage ShaderStage
	Entry string
	Data  []byte
}
