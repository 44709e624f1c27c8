// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build windows

package d3d11

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/overlay/d3d"
)

// Sizes of the native structs as declared in d3d11.h and dxgi.h on 64-bit
// targets.
func TestNativeLayout(t *testing.T) {
	if unsafe.Sizeof(uintptr(0)) != 8 {
		t.Skip("layout table is for 64-bit targets")
	}
	tests := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"D3D11_TEXTURE2D_DESC", unsafe.Sizeof(texture2DDesc{}), 44},
		{"D3D11_BUFFER_DESC", unsafe.Sizeof(bufferDesc{}), 24},
		{"D3D11_SAMPLER_DESC", unsafe.Sizeof(samplerDesc{}), 52},
		{"D3D11_BLEND_DESC", unsafe.Sizeof(blendDesc{}), 264},
		{"D3D11_RASTERIZER_DESC", unsafe.Sizeof(rasterizerDesc{}), 40},
		{"D3D11_DEPTH_STENCIL_DESC", unsafe.Sizeof(depthStencilDesc{}), 52},
		{"D3D11_INPUT_ELEMENT_DESC", unsafe.Sizeof(inputElementDesc{}), 32},
		{"D3D11_MAPPED_SUBRESOURCE", unsafe.Sizeof(mappedSubresource{}), 16},
		{"D3D11_VIEWPORT", unsafe.Sizeof(d3d.Viewport{}), 24},
		{"DXGI_SWAP_CHAIN_DESC", unsafe.Sizeof(swapChainDesc{}), 72},
		{"DXGI_ADAPTER_DESC", unsafe.Sizeof(adapterDesc{}), 304},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("size = %d, want %d", tt.got, tt.want)
			}
		})
	}
}

func TestFormatMapping(t *testing.T) {
	for _, e := range textureFormats {
		if got := fromDXGI(toDXGI(e.gpu)); got != e.gpu {
			t.Errorf("fromDXGI(toDXGI(%v)) = %v", e.gpu, got)
		}
	}
	if got := toDXGI(gputypes.TextureFormatR8Unorm); got != dxgiFormatUnknown {
		t.Errorf("toDXGI(R8Unorm) = %d, want unknown", got)
	}
}

func TestWrapNil(t *testing.T) {
	if _, err := WrapDevice(0); !errors.Is(err, d3d.EPointer) {
		t.Errorf("WrapDevice(0) err = %v, want E_POINTER", err)
	}
	if _, err := WrapSwapChain(0); !errors.Is(err, d3d.EPointer) {
		t.Errorf("WrapSwapChain(0) err = %v, want E_POINTER", err)
	}
	if b := wrap(0, asBuffer); b != nil {
		t.Errorf("wrap(0) = %v, want nil", b)
	}
}

func TestComPtr(t *testing.T) {
	x := new(uint64)
	*x = 0xfeed
	p := uintptr(unsafe.Pointer(x))
	if got := (*uint64)(comPtr(p)); got != x || *got != 0xfeed {
		t.Errorf("comPtr(%#x) = %p", p, got)
	}
	if comPtr(0) != nil {
		t.Error("comPtr(0) is not nil")
	}
	if u := wrapUnknown(0); !u.isNil() {
		t.Error("wrapUnknown(0) is not nil")
	}
}

func TestDeviceSmoke(t *testing.T) {
	dev, err := Open(d3d.Options{AdapterIndex: -1})
	if err != nil {
		t.Skipf("no D3D11 device: %v", err)
	}
	t.Cleanup(func() { dev.Release() })

	luid, err := dev.AdapterLUID()
	if err != nil {
		t.Fatalf("AdapterLUID: %v", err)
	}
	if luid.IsZero() {
		t.Error("adapter LUID is zero")
	}

	tex, err := dev.CreateTexture2D(&d3d.TextureDesc{
		Width:     4,
		Height:    4,
		Format:    gputypes.TextureFormatBGRA8Unorm,
		Usage:     d3d.UsageStaging,
		CPUAccess: d3d.CPUAccessRead | d3d.CPUAccessWrite,
	}, nil)
	if err != nil {
		t.Fatalf("CreateTexture2D: %v", err)
	}
	defer tex.Release()
	if got := tex.Desc(); got.Width != 4 || got.Format != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("Desc = %+v", got)
	}

	ctx := dev.ImmediateContext()
	defer ctx.Release()
	m, err := ctx.Map(tex, 0, d3d.MapWrite)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if m.RowPitch < 16 || len(m.Data) != int(m.RowPitch)*4 {
		t.Errorf("mapped pitch %d len %d", m.RowPitch, len(m.Data))
	}
	ctx.Unmap(tex, 0)

	ctx.IASetPrimitiveTopology(d3d.TopologyTriangleStrip)
	if got := ctx.IAGetPrimitiveTopology(); got != d3d.TopologyTriangleStrip {
		t.Errorf("topology = %v, want strip", got)
	}
}
