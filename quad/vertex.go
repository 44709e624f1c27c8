// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package quad

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/d3d"
)

// VertexStride is the byte size of one vertex.
// Layout per vertex:
//
//	position (float4) = 16 bytes  POSITION
//	color    (float4) = 16 bytes  COLOR
//	texcoord (float2) =  8 bytes  TEXCOORD
//
// Total = 40 bytes per vertex.
const VertexStride = 40

// pixelCenter shifts indicator geometry onto pixel centres.
const pixelCenter = 0.5

// Vertex is one quad corner in clip space.
type Vertex struct {
	Pos   [4]float32
	Color [4]float32
	UV    [2]float32
}

// inputLayout is the vertex shader input signature.
var inputLayout = []d3d.InputElement{
	{SemanticName: "POSITION", Format: gputypes.VertexFormatFloat32x4, AlignedByteOffset: d3d.AppendAligned},
	{SemanticName: "COLOR", Format: gputypes.VertexFormatFloat32x4, AlignedByteOffset: d3d.AppendAligned},
	{SemanticName: "TEXCOORD", Format: gputypes.VertexFormatFloat32x2, AlignedByteOffset: d3d.AppendAligned},
}

// InputLayout returns a copy of the vertex input elements.
func InputLayout() []d3d.InputElement {
	return append([]d3d.InputElement(nil), inputLayout...)
}

// Normalize maps an 8-bit alpha to [0, 1].
func Normalize(a uint8) float32 {
	return float32(a) / 255
}

// UnpackARGB splits a 0xAARRGGBB colour into normalized RGBA.
func UnpackARGB(c uint32) [4]float32 {
	return [4]float32{
		Normalize(uint8(c >> 16)),
		Normalize(uint8(c >> 8)),
		Normalize(uint8(c)),
		Normalize(uint8(c >> 24)),
	}
}

// PixelToClip converts a backbuffer pixel position to clip space for a
// viewport of vpWidth x vpHeight. Depth is 0 and w is 1.
func PixelToClip(x, y, vpWidth, vpHeight float32) [4]float32 {
	return [4]float32{
		2*x/vpWidth - 1,
		1 - 2*y/vpHeight,
		0,
		1,
	}
}

// Strip builds a textured quad as a four-vertex triangle strip in the order
// top-left, bottom-left, top-right, bottom-right.
func Strip(x, y, w, h float32, color [4]float32, vpWidth, vpHeight float32) [4]Vertex {
	return [4]Vertex{
		{Pos: PixelToClip(x, y, vpWidth, vpHeight), Color: color, UV: [2]float32{0, 0}},
		{Pos: PixelToClip(x, y+h, vpWidth, vpHeight), Color: color, UV: [2]float32{0, 1}},
		{Pos: PixelToClip(x+w, y, vpWidth, vpHeight), Color: color, UV: [2]float32{1, 0}},
		{Pos: PixelToClip(x+w, y+h, vpWidth, vpHeight), Color: color, UV: [2]float32{1, 1}},
	}
}

// IndicatorViewport returns the viewport the status square is drawn in. It
// covers the square plus an equal margin on the far sides.
func IndicatorViewport() d3d.Viewport {
	return d3d.Viewport{
		Width:    overlay.IndicatorX*2 + overlay.IndicatorWidth,
		Height:   overlay.IndicatorY*2 + overlay.IndicatorHeight,
		MaxDepth: 1,
	}
}

func indicatorCorners() (left, top, right, bottom float32) {
	left = overlay.IndicatorX + pixelCenter
	top = overlay.IndicatorY + pixelCenter
	right = overlay.IndicatorX + overlay.IndicatorWidth + pixelCenter
	bottom = overlay.IndicatorY + overlay.IndicatorHeight + pixelCenter
	return left, top, right, bottom
}

// IndicatorFill builds the status square as a triangle strip in the order
// top-left, top-right, bottom-left, bottom-right.
func IndicatorFill(color uint32) [4]Vertex {
	vp := IndicatorViewport()
	c := UnpackARGB(color)
	l, t, r, b := indicatorCorners()
	return [4]Vertex{
		{Pos: PixelToClip(l, t, vp.Width, vp.Height), Color: c},
		{Pos: PixelToClip(r, t, vp.Width, vp.Height), Color: c},
		{Pos: PixelToClip(l, b, vp.Width, vp.Height), Color: c},
		{Pos: PixelToClip(r, b, vp.Width, vp.Height), Color: c},
	}
}

// IndicatorBorder builds the closed outline of the status square as a
// five-vertex line strip.
func IndicatorBorder() [5]Vertex {
	vp := IndicatorViewport()
	c := UnpackARGB(overlay.BorderColor)
	l, t, r, b := indicatorCorners()
	return [5]Vertex{
		{Pos: PixelToClip(l, t, vp.Width, vp.Height), Color: c},
		{Pos: PixelToClip(r, t, vp.Width, vp.Height), Color: c},
		{Pos: PixelToClip(r, b, vp.Width, vp.Height), Color: c},
		{Pos: PixelToClip(l, b, vp.Width, vp.Height), Color: c},
		{Pos: PixelToClip(l, t, vp.Width, vp.Height), Color: c},
	}
}

// PackVertices serializes vs into dst in little-endian float32 and returns
// the number of bytes written. dst must hold len(vs)*VertexStride bytes.
func PackVertices(dst []byte, vs []Vertex) int {
	off := 0
	for _, v := range vs {
		for _, f := range v.Pos {
			binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(f))
			off += 4
		}
		for _, f := range v.Color {
			binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(f))
			off += 4
		}
		for _, f := range v.UV {
			binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(f))
			off += 4
		}
	}
	return off
}

// UnpackVertices is the inverse of PackVertices.
func UnpackVertices(src []byte) []Vertex {
	n := len(src) / VertexStride
	vs := make([]Vertex, n)
	f := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(src[off:]))
	}
	for i := range vs {
		base := i * VertexStride
		for j := range 4 {
			vs[i].Pos[j] = f(base + j*4)
			vs[i].Color[j] = f(base + 16 + j*4)
		}
		vs[i].UV[0] = f(base + 32)
		vs[i].UV[1] = f(base + 36)
	}
	return vs
}
