// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package d3d

// Object is a reference-counted device child.
type Object interface {
	// AddRef takes an additional reference and returns the new count.
	AddRef() uint32

	// Release drops one reference and returns the remaining count.
	Release() uint32
}

// Texture2D is a two-dimensional texture resource.
type Texture2D interface {
	Object
	Desc() TextureDesc
}

// Buffer is a linear GPU buffer.
type Buffer interface {
	Object
	Desc() BufferDesc
}

// ShaderResourceView exposes a texture for sampling.
type ShaderResourceView interface{ Object }

// RenderTargetView exposes a texture as a color attachment.
type RenderTargetView interface{ Object }

// DepthStencilView exposes a texture as a depth-stencil attachment.
type DepthStencilView interface{ Object }

// VertexShader is a compiled vertex stage.
type VertexShader interface{ Object }

// PixelShader is a compiled pixel stage.
type PixelShader interface{ Object }

// GeometryShader is a compiled geometry stage. The compositor never creates
// one; it only preserves whatever the host bound.
type GeometryShader interface{ Object }

// ClassInstance is a dynamic-linkage class instance bound alongside a shader.
type ClassInstance interface{ Object }

// InputLayout maps vertex buffer contents to vertex shader inputs.
type InputLayout interface{ Object }

// SamplerState is an immutable sampler description.
type SamplerState interface{ Object }

// BlendState is an immutable output-merger blend description.
type BlendState interface{ Object }

// RasterizerState is an immutable rasterizer description.
type RasterizerState interface{ Object }

// DepthStencilState is an immutable depth-stencil description.
type DepthStencilState interface{ Object }

// SafeRelease releases o when it is non-nil.
func SafeRelease(o Object) {
	if o != nil {
		o.Release()
	}
}

// SafeAddRef takes a reference on o when it is non-nil.
func SafeAddRef(o Object) {
	if o != nil {
		o.AddRef()
	}
}
