// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/overlay/compositor"
	"github.com/gogpu/overlay/d3d"
	"github.com/gogpu/overlay/surface"
)

// errNoReadback is returned when a backend cannot copy textures to memory.
var errNoReadback = errors.New("device backend cannot read back textures")

// pixelReader is implemented by devices that can copy a texture back to
// host memory as tightly packed rows.
type pixelReader interface {
	ReadPixels(tex d3d.Texture2D) ([]byte, error)
}

// target is an offscreen swap chain: a single render-target texture the
// compositor draws onto in place of a window's backbuffer.
type target struct {
	dev    d3d.Device
	tex    d3d.Texture2D
	width  int
	height int
}

var _ compositor.SwapChain = (*target)(nil)

// newTarget creates a width x height BGRA backbuffer filled with bg, or
// cleared to transparent black when bg is nil.
func newTarget(dev d3d.Device, width, height int, bg image.Image) (*target, error) {
	desc := &d3d.TextureDesc{
		Width:     uint32(width),
		Height:    uint32(height),
		Format:    gputypes.TextureFormatBGRA8Unorm,
		BindFlags: d3d.BindRenderTarget | d3d.BindShaderResource,
	}
	var initial *d3d.SubresourceData
	if bg != nil {
		initial = &d3d.SubresourceData{
			Data:     toBGRA(bg, width, height),
			RowPitch: uint32(width * surface.BytesPerPixel),
		}
	}
	tex, err := dev.CreateTexture2D(desc, initial)
	if err != nil {
		return nil, fmt.Errorf("create backbuffer: %w", err)
	}
	return &target{dev: dev, tex: tex, width: width, height: height}, nil
}

// Device implements compositor.SwapChain.
func (t *target) Device() (d3d.Device, error) {
	t.dev.AddRef()
	return t.dev, nil
}

// Desc implements compositor.SwapChain.
func (t *target) Desc() (compositor.SwapChainDesc, error) {
	return compositor.SwapChainDesc{
		Width:  t.width,
		Height: t.height,
		Format: gputypes.TextureFormatBGRA8Unorm,
	}, nil
}

// Backbuffer implements compositor.SwapChain.
func (t *target) Backbuffer() (d3d.Texture2D, error) {
	t.tex.AddRef()
	return t.tex, nil
}

// Snapshot reads the backbuffer back as an image.
func (t *target) Snapshot() (*image.NRGBA, error) {
	rb, ok := t.dev.(pixelReader)
	if !ok {
		return nil, errNoReadback
	}
	pix, err := rb.ReadPixels(t.tex)
	if err != nil {
		return nil, err
	}
	return fromBGRA(pix, t.width, t.height), nil
}

func (t *target) Release() {
	t.tex.Release()
}

// toBGRA draws img into a tightly packed width x height BGRA buffer.
func toBGRA(img image.Image, width, height int) []byte {
	out := make([]byte, surface.FrameSize(width, height))
	b := img.Bounds()
	for y := 0; y < height && b.Min.Y+y < b.Max.Y; y++ {
		for x := 0; x < width && b.Min.X+x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			i := (y*width + x) * surface.BytesPerPixel
			out[i], out[i+1], out[i+2], out[i+3] = c.B, c.G, c.R, c.A
		}
	}
	return out
}

func fromBGRA(pix []byte, width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i+3 < len(pix) && i+3 < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = pix[i+2], pix[i+1], pix[i], pix[i+3]
	}
	return img
}
