// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build windows

package d3d11

import (
	"syscall"
	"unsafe"

	"github.com/gogpu/overlay/compositor"
	"github.com/gogpu/overlay/d3d"
)

// SwapChain wraps the IDXGISwapChain a host hands to its present hook.
type SwapChain struct{ unknown }

var _ compositor.SwapChain = SwapChain{}

// WrapSwapChain wraps a host swap chain, taking a new reference.
func WrapSwapChain(p uintptr) (SwapChain, error) {
	if p == 0 {
		return SwapChain{}, d3d.EPointer
	}
	s := SwapChain{wrapUnknown(p)}
	s.AddRef()
	return s, nil
}

// Device returns the D3D11 device the swap chain presents with.
func (s SwapChain) Device() (d3d.Device, error) {
	var p uintptr
	r, _, _ := syscall.SyscallN(s.method(slotSwapChainGetDevice), s.this(),
		uintptr(unsafe.Pointer(iidDevice)), uintptr(unsafe.Pointer(&p)))
	if err := check("GetDevice", r); err != nil {
		return nil, err
	}
	return Device{wrapUnknown(p)}, nil
}

// Desc reports the backbuffer size and format and the output window.
func (s SwapChain) Desc() (compositor.SwapChainDesc, error) {
	var n swapChainDesc
	r, _, _ := syscall.SyscallN(s.method(slotSwapChainGetDesc), s.this(), uintptr(unsafe.Pointer(&n)))
	if err := check("GetDesc", r); err != nil {
		return compositor.SwapChainDesc{}, err
	}
	return compositor.SwapChainDesc{
		Width:  int(n.BufferDesc.Width),
		Height: int(n.BufferDesc.Height),
		Format: fromDXGI(n.BufferDesc.Format),
		Window: uintptr(n.OutputWindow),
	}, nil
}

// Backbuffer returns buffer 0.
func (s SwapChain) Backbuffer() (d3d.Texture2D, error) {
	var p uintptr
	r, _, _ := syscall.SyscallN(s.method(slotSwapChainGetBuffer), s.this(), 0,
		uintptr(unsafe.Pointer(iidTexture2D)), uintptr(unsafe.Pointer(&p)))
	if err := check("GetBuffer", r); err != nil {
		return nil, err
	}
	return wrap(p, asTexture), nil
}
