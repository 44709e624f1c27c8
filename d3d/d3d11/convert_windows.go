// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build windows

package d3d11

import (
	"unsafe"

	"github.com/gogpu/gputypes"
	"golang.org/x/sys/windows"

	"github.com/gogpu/overlay/d3d"
)

// DXGI_FORMAT values.
const (
	dxgiFormatUnknown           = 0
	dxgiFormatR32G32B32A32Float = 2
	dxgiFormatR32G32B32Float    = 6
	dxgiFormatR16G16B16A16Float = 10
	dxgiFormatR32G32Float       = 16
	dxgiFormatR10G10B10A2Unorm  = 24
	dxgiFormatR8G8B8A8Unorm     = 28
	dxgiFormatR8G8B8A8UnormSRGB = 29
	dxgiFormatR32Float          = 41
	dxgiFormatB8G8R8A8Unorm     = 87
	dxgiFormatB8G8R8A8UnormSRGB = 91
)

var textureFormats = []struct {
	gpu  gputypes.TextureFormat
	dxgi uint32
}{
	{gputypes.TextureFormatRGBA8Unorm, dxgiFormatR8G8B8A8Unorm},
	{gputypes.TextureFormatRGBA8UnormSrgb, dxgiFormatR8G8B8A8UnormSRGB},
	{gputypes.TextureFormatBGRA8Unorm, dxgiFormatB8G8R8A8Unorm},
	{gputypes.TextureFormatBGRA8UnormSrgb, dxgiFormatB8G8R8A8UnormSRGB},
	{gputypes.TextureFormatRGB10A2Unorm, dxgiFormatR10G10B10A2Unorm},
	{gputypes.TextureFormatRGBA16Float, dxgiFormatR16G16B16A16Float},
}

// toDXGI maps a texture format. Formats the compositor never creates map to
// DXGI_FORMAT_UNKNOWN.
func toDXGI(f gputypes.TextureFormat) uint32 {
	for _, e := range textureFormats {
		if e.gpu == f {
			return e.dxgi
		}
	}
	return dxgiFormatUnknown
}

func fromDXGI(f uint32) gputypes.TextureFormat {
	for _, e := range textureFormats {
		if e.dxgi == f {
			return e.gpu
		}
	}
	return gputypes.TextureFormatUndefined
}

func vertexFormat(f gputypes.VertexFormat) uint32 {
	switch f {
	case gputypes.VertexFormatFloat32:
		return dxgiFormatR32Float
	case gputypes.VertexFormatFloat32x2:
		return dxgiFormatR32G32Float
	case gputypes.VertexFormatFloat32x3:
		return dxgiFormatR32G32B32Float
	case gputypes.VertexFormatFloat32x4:
		return dxgiFormatR32G32B32A32Float
	case gputypes.VertexFormatUnorm8x4:
		return dxgiFormatR8G8B8A8Unorm
	}
	return dxgiFormatUnknown
}

func boolean(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

type sampleDesc struct {
	Count   uint32
	Quality uint32
}

type texture2DDesc struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleDesc     sampleDesc
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

func nativeTextureDesc(d *d3d.TextureDesc) texture2DDesc {
	return texture2DDesc{
		Width:          d.Width,
		Height:         d.Height,
		MipLevels:      max(d.MipLevels, 1),
		ArraySize:      max(d.ArraySize, 1),
		Format:         toDXGI(d.Format),
		SampleDesc:     sampleDesc{Count: max(d.SampleCount, 1)},
		Usage:          uint32(d.Usage),
		BindFlags:      uint32(d.BindFlags),
		CPUAccessFlags: uint32(d.CPUAccess),
		MiscFlags:      uint32(d.MiscFlags),
	}
}

func (n *texture2DDesc) desc() d3d.TextureDesc {
	return d3d.TextureDesc{
		Width:       n.Width,
		Height:      n.Height,
		MipLevels:   n.MipLevels,
		ArraySize:   n.ArraySize,
		Format:      fromDXGI(n.Format),
		SampleCount: n.SampleDesc.Count,
		Usage:       d3d.Usage(n.Usage),
		BindFlags:   d3d.BindFlags(n.BindFlags),
		CPUAccess:   d3d.CPUAccess(n.CPUAccessFlags),
		MiscFlags:   d3d.MiscFlags(n.MiscFlags),
	}
}

type bufferDesc struct {
	ByteWidth           uint32
	Usage               uint32
	BindFlags           uint32
	CPUAccessFlags      uint32
	MiscFlags           uint32
	StructureByteStride uint32
}

func (n *bufferDesc) desc() d3d.BufferDesc {
	return d3d.BufferDesc{
		ByteWidth: n.ByteWidth,
		Usage:     d3d.Usage(n.Usage),
		BindFlags: d3d.BindFlags(n.BindFlags),
		CPUAccess: d3d.CPUAccess(n.CPUAccessFlags),
	}
}

type subresourceData struct {
	SysMem           unsafe.Pointer
	SysMemPitch      uint32
	SysMemSlicePitch uint32
}

type inputElementDesc struct {
	SemanticName         *byte
	SemanticIndex        uint32
	Format               uint32
	InputSlot            uint32
	AlignedByteOffset    uint32
	InputSlotClass       uint32
	InstanceDataStepRate uint32
}

// nativeInputLayout converts elements. The returned descriptors point into
// the name buffers, which must stay alive for the duration of the call.
func nativeInputLayout(elems []d3d.InputElement) ([]inputElementDesc, error) {
	out := make([]inputElementDesc, len(elems))
	for i, e := range elems {
		name, err := windows.BytePtrFromString(e.SemanticName)
		if err != nil {
			return nil, err
		}
		out[i] = inputElementDesc{
			SemanticName:      name,
			SemanticIndex:     e.SemanticIndex,
			Format:            vertexFormat(e.Format),
			InputSlot:         e.InputSlot,
			AlignedByteOffset: e.AlignedByteOffset,
		}
	}
	return out, nil
}

type samplerDesc struct {
	Filter         uint32
	AddressU       uint32
	AddressV       uint32
	AddressW       uint32
	MipLODBias     float32
	MaxAnisotropy  uint32
	ComparisonFunc uint32
	BorderColor    [4]float32
	MinLOD         float32
	MaxLOD         float32
}

func nativeSamplerDesc(d *d3d.SamplerDesc) samplerDesc {
	return samplerDesc{
		Filter:         uint32(d.Filter),
		AddressU:       uint32(d.AddressU),
		AddressV:       uint32(d.AddressV),
		AddressW:       uint32(d.AddressW),
		MaxAnisotropy:  1,
		ComparisonFunc: uint32(d.ComparisonFunc),
		MinLOD:         d.MinLOD,
		MaxLOD:         d.MaxLOD,
	}
}

type renderTargetBlendDesc struct {
	BlendEnable           uint32
	SrcBlend              uint32
	DestBlend             uint32
	BlendOp               uint32
	SrcBlendAlpha         uint32
	DestBlendAlpha        uint32
	BlendOpAlpha          uint32
	RenderTargetWriteMask uint8
}

type blendDesc struct {
	AlphaToCoverageEnable  uint32
	IndependentBlendEnable uint32
	RenderTarget           [d3d.SimultaneousRenderTargets]renderTargetBlendDesc
}

func nativeBlendDesc(d *d3d.BlendDesc) blendDesc {
	rt := d.RenderTarget
	n := blendDesc{AlphaToCoverageEnable: boolean(d.AlphaToCoverage)}
	n.RenderTarget[0] = renderTargetBlendDesc{
		BlendEnable:           boolean(rt.Enable),
		SrcBlend:              uint32(rt.SrcBlend),
		DestBlend:             uint32(rt.DestBlend),
		BlendOp:               uint32(rt.BlendOp),
		SrcBlendAlpha:         uint32(rt.SrcAlpha),
		DestBlendAlpha:        uint32(rt.DestAlpha),
		BlendOpAlpha:          uint32(rt.AlphaOp),
		RenderTargetWriteMask: rt.WriteMask,
	}
	return n
}

type rasterizerDesc struct {
	FillMode              uint32
	CullMode              uint32
	FrontCounterClockwise uint32
	DepthBias             int32
	DepthBiasClamp        float32
	SlopeScaledDepthBias  float32
	DepthClipEnable       uint32
	ScissorEnable         uint32
	MultisampleEnable     uint32
	AntialiasedLineEnable uint32
}

func nativeRasterizerDesc(d *d3d.RasterizerDesc) rasterizerDesc {
	return rasterizerDesc{
		FillMode:              uint32(d.FillMode),
		CullMode:              uint32(d.CullMode),
		FrontCounterClockwise: boolean(d.FrontCounterClockwise),
		DepthBias:             d.DepthBias,
		DepthBiasClamp:        d.DepthBiasClamp,
		SlopeScaledDepthBias:  d.SlopeScaledDepthBias,
		DepthClipEnable:       boolean(d.DepthClipEnable),
		ScissorEnable:         boolean(d.ScissorEnable),
		MultisampleEnable:     boolean(d.MultisampleEnable),
		AntialiasedLineEnable: boolean(d.AntialiasedLineEnable),
	}
}

type depthStencilOpDesc struct {
	StencilFailOp      uint32
	StencilDepthFailOp uint32
	StencilPassOp      uint32
	StencilFunc        uint32
}

type depthStencilDesc struct {
	DepthEnable      uint32
	DepthWriteMask   uint32
	DepthFunc        uint32
	StencilEnable    uint32
	StencilReadMask  uint8
	StencilWriteMask uint8
	FrontFace        depthStencilOpDesc
	BackFace         depthStencilOpDesc
}

func stencilFace(f d3d.StencilFace) depthStencilOpDesc {
	return depthStencilOpDesc{
		StencilFailOp:      uint32(f.FailOp),
		StencilDepthFailOp: uint32(f.DepthFailOp),
		StencilPassOp:      uint32(f.PassOp),
		StencilFunc:        uint32(f.Func),
	}
}

func nativeDepthStencilDesc(d *d3d.DepthStencilDesc) depthStencilDesc {
	return depthStencilDesc{
		DepthEnable:      boolean(d.DepthEnable),
		DepthWriteMask:   boolean(d.DepthWriteAll),
		DepthFunc:        uint32(d.DepthFunc),
		StencilEnable:    boolean(d.StencilEnable),
		StencilReadMask:  d.StencilReadMask,
		StencilWriteMask: d.StencilWriteMask,
		FrontFace:        stencilFace(d.FrontFace),
		BackFace:         stencilFace(d.BackFace),
	}
}

// mappedSubresource is D3D11_MAPPED_SUBRESOURCE.
type mappedSubresource struct {
	Data       unsafe.Pointer
	RowPitch   uint32
	DepthPitch uint32
}

type rational struct {
	Numerator   uint32
	Denominator uint32
}

type modeDesc struct {
	Width            uint32
	Height           uint32
	RefreshRate      rational
	Format           uint32
	ScanlineOrdering uint32
	Scaling          uint32
}

type swapChainDesc struct {
	BufferDesc   modeDesc
	SampleDesc   sampleDesc
	BufferUsage  uint32
	BufferCount  uint32
	OutputWindow windows.Handle
	Windowed     uint32
	SwapEffect   uint32
	Flags        uint32
}

// adapterDesc is DXGI_ADAPTER_DESC.
type adapterDesc struct {
	Description           [128]uint16
	VendorID              uint32
	DeviceID              uint32
	SubSysID              uint32
	Revision              uint32
	DedicatedVideoMemory  uintptr
	DedicatedSystemMemory uintptr
	SharedSystemMemory    uintptr
	AdapterLUID           d3d.LUID
}
