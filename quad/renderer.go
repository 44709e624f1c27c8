// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package quad

import (
	_ "embed"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/d3d"
)

//go:embed shaders/overlay.hlsl
var hlslSource string

//go:embed shaders/overlay.wgsl
var wgslSource string

// Shader entry points shared by both shader languages.
const (
	entryVertex   = "VS"
	entryTextured = "PS_Tex"
	entrySolid    = "PS_Solid"
)

// Source returns the quad shader program.
func Source() d3d.ShaderSource {
	return d3d.ShaderSource{HLSL: hlslSource, WGSL: wgslSource}
}

// ErrNotInitialized is returned by draws on a released renderer.
var ErrNotInitialized = errors.New("quad: renderer not initialized")

// Kind selects the dynamic vertex buffer a textured quad is written to.
type Kind uint8

const (
	// KindNotification is the transient notification quad.
	KindNotification Kind = iota

	// KindOverlay is the full overlay quad.
	KindOverlay
)

// String returns the quad kind name.
func (k Kind) String() string {
	switch k {
	case KindNotification:
		return "notification"
	case KindOverlay:
		return "overlay"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// stencilRef is the reference value bound with the depth-stencil state.
const stencilRef = 1

// Renderer owns the shaders, fixed-function states and vertex buffers
// needed to draw overlay quads. All objects are created once by New and
// live until Release.
type Renderer struct {
	dev    d3d.Device
	width  int
	height int

	vs      d3d.VertexShader
	psTex   d3d.PixelShader
	psSolid d3d.PixelShader
	layout  d3d.InputLayout

	sampler d3d.SamplerState
	blend   d3d.BlendState
	raster  d3d.RasterizerState
	depth   d3d.DepthStencilState

	vbNotification d3d.Buffer
	vbOverlay      d3d.Buffer
	vbIndicator    d3d.Buffer
	vbBorder       d3d.Buffer

	scratch [4 * VertexStride]byte
}

// New compiles the quad shaders and creates every state and buffer for a
// width x height backbuffer. On failure everything created so far is
// released.
func New(dev d3d.Device, width, height int) (*Renderer, error) {
	r := &Renderer{dev: dev, width: width, height: height}
	if err := r.init(); err != nil {
		r.Release()
		return nil, err
	}
	return r, nil
}

func (r *Renderer) init() error {
	if err := r.createShaders(); err != nil {
		return err
	}
	if err := r.createStates(); err != nil {
		return err
	}
	return r.createBuffers()
}

func (r *Renderer) createShaders() error {
	src := Source()

	vsCode, err := r.dev.CompileShader(src, entryVertex, d3d.StageVertex)
	if err != nil {
		return fmt.Errorf("quad: compile vertex shader: %w", err)
	}
	texCode, err := r.dev.CompileShader(src, entryTextured, d3d.StagePixel)
	if err != nil {
		return fmt.Errorf("quad: compile textured pixel shader: %w", err)
	}
	solidCode, err := r.dev.CompileShader(src, entrySolid, d3d.StagePixel)
	if err != nil {
		return fmt.Errorf("quad: compile solid pixel shader: %w", err)
	}

	if r.vs, err = r.dev.CreateVertexShader(vsCode); err != nil {
		return fmt.Errorf("quad: create vertex shader: %w", err)
	}
	if r.psTex, err = r.dev.CreatePixelShader(texCode); err != nil {
		return fmt.Errorf("quad: create textured pixel shader: %w", err)
	}
	if r.psSolid, err = r.dev.CreatePixelShader(solidCode); err != nil {
		return fmt.Errorf("quad: create solid pixel shader: %w", err)
	}
	if r.layout, err = r.dev.CreateInputLayout(inputLayout, vsCode); err != nil {
		return fmt.Errorf("quad: create input layout: %w", err)
	}
	return nil
}

// SamplerDesc is the overlay sampler: trilinear, wrapping, no comparison.
func SamplerDesc() d3d.SamplerDesc {
	return d3d.SamplerDesc{
		Filter:         d3d.FilterMinMagMipLinear,
		AddressU:       d3d.AddressWrap,
		AddressV:       d3d.AddressWrap,
		AddressW:       d3d.AddressWrap,
		ComparisonFunc: d3d.ComparisonNever,
		MaxLOD:         math.MaxFloat32,
	}
}

// BlendDesc is straight-alpha colour blending with additive alpha.
func BlendDesc() d3d.BlendDesc {
	return d3d.BlendDesc{RenderTarget: d3d.RenderTargetBlend{
		Enable:    true,
		SrcBlend:  d3d.BlendSrcAlpha,
		DestBlend: d3d.BlendInvSrcAlpha,
		BlendOp:   d3d.BlendOpAdd,
		SrcAlpha:  d3d.BlendOne,
		DestAlpha: d3d.BlendOne,
		AlphaOp:   d3d.BlendOpAdd,
		WriteMask: d3d.ColorWriteAll,
	}}
}

// RasterizerDesc is solid fill without culling.
func RasterizerDesc() d3d.RasterizerDesc {
	return d3d.RasterizerDesc{
		FillMode:              d3d.FillSolid,
		CullMode:              d3d.CullNone,
		FrontCounterClockwise: true,
		DepthClipEnable:       true,
	}
}

// DepthStencilDesc disables depth testing; the stencil test always passes
// and never writes.
func DepthStencilDesc() d3d.DepthStencilDesc {
	face := d3d.StencilFace{
		FailOp:      d3d.StencilOpKeep,
		DepthFailOp: d3d.StencilOpKeep,
		PassOp:      d3d.StencilOpKeep,
		Func:        d3d.ComparisonAlways,
	}
	return d3d.DepthStencilDesc{
		DepthEnable:      false,
		DepthWriteAll:    true,
		DepthFunc:        d3d.ComparisonLess,
		StencilEnable:    true,
		StencilReadMask:  0xff,
		StencilWriteMask: 0xff,
		FrontFace:        face,
		BackFace:         face,
	}
}

func (r *Renderer) createStates() error {
	var err error
	sd := SamplerDesc()
	if r.sampler, err = r.dev.CreateSamplerState(&sd); err != nil {
		return fmt.Errorf("quad: create sampler: %w", err)
	}
	bd := BlendDesc()
	if r.blend, err = r.dev.CreateBlendState(&bd); err != nil {
		return fmt.Errorf("quad: create blend state: %w", err)
	}
	rd := RasterizerDesc()
	if r.raster, err = r.dev.CreateRasterizerState(&rd); err != nil {
		return fmt.Errorf("quad: create rasterizer state: %w", err)
	}
	dd := DepthStencilDesc()
	if r.depth, err = r.dev.CreateDepthStencilState(&dd); err != nil {
		return fmt.Errorf("quad: create depth-stencil state: %w", err)
	}
	return nil
}

func (r *Renderer) createBuffers() error {
	w, h := float32(r.width), float32(r.height)
	white := [4]float32{1, 1, 1, 1}
	full := Strip(0, 0, w, h, white, w, h)

	dynamic := d3d.BufferDesc{
		ByteWidth: 4 * VertexStride,
		Usage:     d3d.UsageDynamic,
		BindFlags: d3d.BindVertexBuffer,
		CPUAccess: d3d.CPUAccessWrite,
	}
	initial := make([]byte, 4*VertexStride)
	PackVertices(initial, full[:])

	var err error
	if r.vbNotification, err = r.dev.CreateBuffer(&dynamic, initial); err != nil {
		return fmt.Errorf("quad: create notification buffer: %w", err)
	}
	if r.vbOverlay, err = r.dev.CreateBuffer(&dynamic, initial); err != nil {
		return fmt.Errorf("quad: create overlay buffer: %w", err)
	}

	fill := IndicatorFill(0xffffffff)
	PackVertices(initial, fill[:])
	if r.vbIndicator, err = r.dev.CreateBuffer(&dynamic, initial); err != nil {
		return fmt.Errorf("quad: create indicator buffer: %w", err)
	}

	border := IndicatorBorder()
	borderData := make([]byte, len(border)*VertexStride)
	PackVertices(borderData, border[:])
	immutable := d3d.BufferDesc{
		ByteWidth: uint32(len(borderData)),
		Usage:     d3d.UsageImmutable,
		BindFlags: d3d.BindVertexBuffer,
	}
	if r.vbBorder, err = r.dev.CreateBuffer(&immutable, borderData); err != nil {
		return fmt.Errorf("quad: create border buffer: %w", err)
	}
	return nil
}

// Size returns the backbuffer size the renderer converts coordinates for.
func (r *Renderer) Size() (width, height int) { return r.width, r.height }

// Resize changes the backbuffer size used for subsequent draws. No GPU
// objects depend on the size, so nothing is recreated.
func (r *Renderer) Resize(width, height int) {
	r.width = width
	r.height = height
}

// Viewport returns the full-backbuffer viewport.
func (r *Renderer) Viewport() d3d.Viewport {
	return d3d.Viewport{Width: float32(r.width), Height: float32(r.height), MaxDepth: 1}
}

// Bind sets up ctx for quad drawing into rtv: the full-backbuffer viewport,
// the fixed-function states, the input layout and the vertex shader. The
// caller is responsible for saving the host's state first.
func (r *Renderer) Bind(ctx d3d.Context, rtv d3d.RenderTargetView) {
	ctx.OMSetRenderTargets([]d3d.RenderTargetView{rtv}, nil)
	ctx.RSSetViewports([]d3d.Viewport{r.Viewport()})
	ctx.RSSetState(r.raster)
	ctx.OMSetDepthStencilState(r.depth, stencilRef)
	ctx.OMSetBlendState(r.blend, [4]float32{}, 0xffffffff)
	ctx.IASetInputLayout(r.layout)
	ctx.VSSetShader(r.vs, nil)
}

func (r *Renderer) buffer(kind Kind) d3d.Buffer {
	if kind == KindOverlay {
		return r.vbOverlay
	}
	return r.vbNotification
}

func (r *Renderer) upload(ctx d3d.Context, buf d3d.Buffer, vs []Vertex) error {
	m, err := ctx.Map(buf, 0, d3d.MapWriteDiscard)
	if err != nil {
		return err
	}
	n := PackVertices(r.scratch[:], vs)
	copy(m.Data, r.scratch[:n])
	ctx.Unmap(buf, 0)
	return nil
}

// DrawTexturedQuad draws view as a w x h quad at pixel (x, y), modulated by
// white at alpha/255. The quad is written into the kind's vertex buffer.
// Bind must have been called for this frame.
func (r *Renderer) DrawTexturedQuad(ctx d3d.Context, kind Kind, x, y, w, h int, alpha uint8, view d3d.ShaderResourceView) error {
	buf := r.buffer(kind)
	if buf == nil {
		return ErrNotInitialized
	}
	color := [4]float32{1, 1, 1, Normalize(alpha)}
	verts := Strip(float32(x), float32(y), float32(w), float32(h), color, float32(r.width), float32(r.height))
	if err := r.upload(ctx, buf, verts[:]); err != nil {
		return fmt.Errorf("quad: update %s vertices: %w", kind, err)
	}

	ctx.PSSetShader(r.psTex, nil)
	ctx.PSSetShaderResources(0, []d3d.ShaderResourceView{view})
	ctx.PSSetSamplers(0, []d3d.SamplerState{r.sampler})
	ctx.IASetVertexBuffers(0, []d3d.Buffer{buf}, []uint32{VertexStride}, []uint32{0})
	ctx.IASetPrimitiveTopology(d3d.TopologyTriangleStrip)
	ctx.Draw(4, 0)
	return nil
}

// DrawTopRight draws view anchored to the top-right corner of the
// backbuffer at its natural size.
func (r *Renderer) DrawTopRight(ctx d3d.Context, kind Kind, texWidth, texHeight int, alpha uint8, view d3d.ShaderResourceView) error {
	return r.DrawTexturedQuad(ctx, kind, r.width-texWidth, 0, texWidth, texHeight, alpha, view)
}

// DrawSolidIndicator draws the status square in the status colour and its
// black outline inside the indicator viewport. The full-backbuffer viewport
// is bound again afterwards.
func (r *Renderer) DrawSolidIndicator(ctx d3d.Context, status overlay.Status) error {
	if r.vbIndicator == nil || r.vbBorder == nil {
		return ErrNotInitialized
	}
	fill := IndicatorFill(status.Color())
	if err := r.upload(ctx, r.vbIndicator, fill[:]); err != nil {
		return fmt.Errorf("quad: update indicator vertices: %w", err)
	}

	ctx.RSSetViewports([]d3d.Viewport{IndicatorViewport()})
	ctx.PSSetShader(r.psSolid, nil)

	ctx.IASetVertexBuffers(0, []d3d.Buffer{r.vbIndicator}, []uint32{VertexStride}, []uint32{0})
	ctx.IASetPrimitiveTopology(d3d.TopologyTriangleStrip)
	ctx.Draw(4, 0)

	ctx.IASetVertexBuffers(0, []d3d.Buffer{r.vbBorder}, []uint32{VertexStride}, []uint32{0})
	ctx.IASetPrimitiveTopology(d3d.TopologyLineStrip)
	ctx.Draw(5, 0)

	ctx.RSSetViewports([]d3d.Viewport{r.Viewport()})
	return nil
}

// Release drops every GPU object. It is safe to call more than once.
func (r *Renderer) Release() {
	for _, o := range []d3d.Object{
		r.vbBorder, r.vbIndicator, r.vbOverlay, r.vbNotification,
		r.depth, r.raster, r.blend, r.sampler,
		r.layout, r.psSolid, r.psTex, r.vs,
	} {
		d3d.SafeRelease(o)
	}
	r.vbBorder, r.vbIndicator, r.vbOverlay, r.vbNotification = nil, nil, nil, nil
	r.depth, r.raster, r.blend, r.sampler = nil, nil, nil, nil
	r.layout, r.psSolid, r.psTex, r.vs = nil, nil, nil, nil
}
