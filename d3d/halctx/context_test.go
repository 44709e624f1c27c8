// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package halctx

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/d3d"
	"github.com/gogpu/overlay/pipestate"
	"github.com/gogpu/overlay/quad"
)

func newContextDevice(t *testing.T) (*Device, *Context) {
	t.Helper()
	d := newTestDevice(t)
	ctx := d.ImmediateContext().(*Context)
	t.Cleanup(func() { ctx.Release() })
	return d, ctx
}

func TestImmediateContextAddRefs(t *testing.T) {
	d, ctx := newContextDevice(t)
	again := d.ImmediateContext()
	if again != d3d.Context(ctx) {
		t.Fatal("ImmediateContext returned a different context")
	}
	if n := again.Release(); n == 0 {
		t.Error("releasing the second reference freed the context")
	}
}

func TestMapTextureRoundTrip(t *testing.T) {
	d, ctx := newContextDevice(t)
	tex, err := d.CreateTexture2D(&d3d.TextureDesc{
		Width: 3, Height: 2, Format: gputypes.TextureFormatRGBA8Unorm,
		Usage: d3d.UsageStaging, CPUAccess: d3d.CPUAccessRead | d3d.CPUAccessWrite,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer tex.Release()

	m, err := ctx.Map(tex, 0, d3d.MapWrite)
	if err != nil {
		t.Fatalf("map for write: %v", err)
	}
	if m.RowPitch != 12 || len(m.Data) != 24 {
		t.Fatalf("mapped pitch %d len %d", m.RowPitch, len(m.Data))
	}
	want := make([]byte, len(m.Data))
	for i := range want {
		want[i] = byte(i * 9)
	}
	copy(m.Data, want)
	ctx.Unmap(tex, 0)
	if err := ctx.Err(); err != nil {
		t.Fatalf("unmap: %v", err)
	}

	m, err = ctx.Map(tex, 0, d3d.MapRead)
	if err != nil {
		t.Fatalf("map for read: %v", err)
	}
	if !bytes.Equal(m.Data, want) {
		t.Errorf("read back %v, want %v", m.Data, want)
	}
	ctx.Unmap(tex, 0)

	px, err := d.ReadPixels(tex)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(px, want) {
		t.Errorf("ReadPixels = %v", px)
	}
}

func TestMapRules(t *testing.T) {
	d, ctx := newContextDevice(t)
	dynamic, err := d.CreateBuffer(&d3d.BufferDesc{ByteWidth: 16, Usage: d3d.UsageDynamic, BindFlags: d3d.BindVertexBuffer, CPUAccess: d3d.CPUAccessWrite}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer dynamic.Release()
	fixed, err := d.CreateBuffer(&d3d.BufferDesc{ByteWidth: 16, BindFlags: d3d.BindVertexBuffer}, make([]byte, 16))
	if err != nil {
		t.Fatal(err)
	}
	defer fixed.Release()
	gpuOnly, err := d.CreateTexture2D(&d3d.TextureDesc{Width: 2, Height: 2, Format: gputypes.TextureFormatRGBA8Unorm, BindFlags: d3d.BindShaderResource}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer gpuOnly.Release()

	tests := []struct {
		name string
		res  d3d.Object
		mode d3d.MapMode
		ok   bool
	}{
		{"dynamic buffer discard", dynamic, d3d.MapWriteDiscard, true},
		{"dynamic buffer read", dynamic, d3d.MapRead, false},
		{"default buffer", fixed, d3d.MapWriteDiscard, false},
		{"texture without cpu access read", gpuOnly, d3d.MapRead, false},
		{"texture without cpu access write", gpuOnly, d3d.MapWrite, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ctx.Map(tt.res, 0, tt.mode)
			if tt.ok {
				if err != nil {
					t.Fatalf("Map: %v", err)
				}
				if len(m.Data) != 16 {
					t.Errorf("len = %d", len(m.Data))
				}
				ctx.Unmap(tt.res, 0)
				return
			}
			if !errors.Is(err, d3d.ErrNotMappable) {
				t.Errorf("err = %v, want ErrNotMappable", err)
			}
		})
	}
}

func TestSetterRebinds(t *testing.T) {
	d, ctx := newContextDevice(t)
	bs, err := d.CreateBlendState(&d3d.BlendDesc{})
	if err != nil {
		t.Fatal(err)
	}
	ctx.OMSetBlendState(bs, [4]float32{}, 0xffffffff)
	if n := bs.AddRef(); n != 3 {
		t.Errorf("refs after bind + AddRef = %d, want 3", n)
	}
	bs.Release()

	got, _, mask := ctx.OMGetBlendState()
	if got != bs || mask != 0xffffffff {
		t.Errorf("OMGetBlendState = %v, %#x", got, mask)
	}
	got.Release()

	ctx.OMSetBlendState(nil, [4]float32{}, 0xffffffff)
	if n := bs.Release(); n != 0 {
		t.Errorf("refs after unbind = %d, want 0", n)
	}
}

func TestIncompleteDraw(t *testing.T) {
	_, ctx := newContextDevice(t)
	ctx.Draw(4, 0)
	if err := ctx.Err(); !errors.Is(err, ErrIncompleteDraw) {
		t.Errorf("Err() = %v, want ErrIncompleteDraw", err)
	}
	if ctx.Err() != nil {
		t.Error("Err() did not clear")
	}
	if ctx.Draws() != 0 {
		t.Errorf("Draws() = %d", ctx.Draws())
	}
}

func TestQuadRendererDraws(t *testing.T) {
	d, ctx := newContextDevice(t)
	r, err := quad.New(d, 64, 48)
	if err != nil {
		t.Fatalf("quad.New: %v", err)
	}
	defer r.Release()

	desc := &d3d.TextureDesc{
		Width: 64, Height: 48, Format: gputypes.TextureFormatRGBA8Unorm,
		BindFlags: d3d.BindRenderTarget, CPUAccess: d3d.CPUAccessRead,
	}
	back, err := d.CreateTexture2D(desc, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer back.Release()
	rtv, err := d.CreateRenderTargetView(back)
	if err != nil {
		t.Fatal(err)
	}
	defer rtv.Release()

	img, err := d.CreateTexture2D(&d3d.TextureDesc{Width: 8, Height: 8, Format: gputypes.TextureFormatRGBA8Unorm, BindFlags: d3d.BindShaderResource},
		&d3d.SubresourceData{Data: bytes.Repeat([]byte{255, 0, 0, 255}, 64)})
	if err != nil {
		t.Fatal(err)
	}
	defer img.Release()
	srv, err := d.CreateShaderResourceView(img)
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Release()

	var snap pipestate.Snapshot
	snap.Save(ctx)
	r.Bind(ctx, rtv)
	if err := r.DrawTopRight(ctx, quad.KindOverlay, 8, 8, 255, srv); err != nil {
		t.Fatal(err)
	}
	if err := r.DrawSolidIndicator(ctx, overlay.StatusRecording); err != nil {
		t.Fatal(err)
	}
	snap.Restore()

	if err := ctx.Err(); err != nil {
		t.Fatalf("draw error: %v", err)
	}
	if ctx.Draws() != 3 {
		t.Errorf("Draws() = %d, want 3", ctx.Draws())
	}
	// Textured strip, solid strip, solid line strip.
	if n := d.PipelineCount(); n != 3 {
		t.Errorf("PipelineCount() = %d, want 3", n)
	}
	if ctx.IAGetInputLayout() != nil {
		t.Error("restore left the overlay input layout bound")
	}

	// The pipeline cache drops entries for released shaders.
	r.Release()
	if n := d.PipelineCount(); n != 0 {
		t.Errorf("PipelineCount() after release = %d, want 0", n)
	}
}
