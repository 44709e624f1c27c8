// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package d3d

// Device creates GPU objects. It is the parent of every object the
// compositor owns.
type Device interface {
	Object

	// ImmediateContext returns the device's immediate context with a
	// reference owned by the caller.
	ImmediateContext() Context

	CreateTexture2D(desc *TextureDesc, initial *SubresourceData) (Texture2D, error)
	CreateShaderResourceView(tex Texture2D) (ShaderResourceView, error)
	CreateRenderTargetView(tex Texture2D) (RenderTargetView, error)
	CreateBuffer(desc *BufferDesc, initial []byte) (Buffer, error)

	// CompileShader compiles one entry point of src for stage.
	CompileShader(src ShaderSource, entry string, stage ShaderStage) (Bytecode, error)
	CreateVertexShader(code Bytecode) (VertexShader, error)
	CreatePixelShader(code Bytecode) (PixelShader, error)
	CreateInputLayout(elements []InputElement, vs Bytecode) (InputLayout, error)

	CreateSamplerState(desc *SamplerDesc) (SamplerState, error)
	CreateBlendState(desc *BlendDesc) (BlendState, error)
	CreateRasterizerState(desc *RasterizerDesc) (RasterizerState, error)
	CreateDepthStencilState(desc *DepthStencilDesc) (DepthStencilState, error)

	// SharedHandle returns the cross-process handle of a texture created
	// with MiscShared. Backends without sharing return ErrSharingUnsupported.
	SharedHandle(tex Texture2D) (SharedHandle, error)

	// AdapterLUID identifies the adapter the device was created on.
	AdapterLUID() (LUID, error)
}

// Context is an immediate device context. Its methods mirror the D3D11
// get/set pairs for every state group the compositor touches.
//
// Getters fill caller-provided slices and return owned references; empty
// slots are reported as untyped nil. Setters bind their own references.
type Context interface {
	Object

	IAGetInputLayout() InputLayout
	IASetInputLayout(layout InputLayout)
	IAGetPrimitiveTopology() Topology
	IASetPrimitiveTopology(t Topology)
	IAGetVertexBuffers(start uint32, buffers []Buffer, strides, offsets []uint32)
	IASetVertexBuffers(start uint32, buffers []Buffer, strides, offsets []uint32)

	// VSGetShader returns the bound vertex shader and fills instances with
	// up to len(instances) class instances, returning how many were written.
	VSGetShader(instances []ClassInstance) (VertexShader, int)
	VSSetShader(vs VertexShader, instances []ClassInstance)
	GSGetShader(instances []ClassInstance) (GeometryShader, int)
	GSSetShader(gs GeometryShader, instances []ClassInstance)
	PSGetShader(instances []ClassInstance) (PixelShader, int)
	PSSetShader(ps PixelShader, instances []ClassInstance)
	PSGetShaderResources(start uint32, views []ShaderResourceView)
	PSSetShaderResources(start uint32, views []ShaderResourceView)
	PSGetSamplers(start uint32, samplers []SamplerState)
	PSSetSamplers(start uint32, samplers []SamplerState)

	RSGetState() RasterizerState
	RSSetState(rs RasterizerState)
	// RSGetViewports returns a copy of every bound viewport.
	RSGetViewports() []Viewport
	RSSetViewports(viewports []Viewport)

	OMGetBlendState() (bs BlendState, factor [4]float32, sampleMask uint32)
	OMSetBlendState(bs BlendState, factor [4]float32, sampleMask uint32)
	OMGetDepthStencilState() (dss DepthStencilState, stencilRef uint32)
	OMSetDepthStencilState(dss DepthStencilState, stencilRef uint32)
	OMGetRenderTargets(rtvs []RenderTargetView) DepthStencilView
	OMSetRenderTargets(rtvs []RenderTargetView, dsv DepthStencilView)

	SOGetTargets(targets []Buffer)
	// SOSetTargets binds stream-output buffers; an offset of SOAppend
	// continues after the data already in the buffer.
	SOSetTargets(targets []Buffer, offsets []uint32)

	Map(res Object, subresource uint32, mode MapMode) (MappedSubresource, error)
	Unmap(res Object, subresource uint32)
	Draw(vertexCount, startVertex uint32)
}

// SOAppend is the stream-output offset meaning "append".
const SOAppend = ^uint32(0)

// Pipeline capacities.
const (
	SimultaneousRenderTargets = 8
	MaxStreamOutputTargets    = 4
	MaxClassInstances         = 256
	MaxViewports              = 16
)
