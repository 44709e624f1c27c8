// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build windows

package d3d11

import (
	"fmt"
	"syscall"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"golang.org/x/sys/windows"

	"github.com/gogpu/overlay/d3d"
)

var (
	iidTexture2D   = ole.NewGUID("{6f15aaf2-d208-4e89-9ab4-489535d34f9c}")
	iidDevice      = ole.NewGUID("{db6f6ddb-ac77-4e88-8253-819df9bbf140}")
	iidDXGIDevice  = ole.NewGUID("{54ec77fa-1377-44e6-8c32-88fd5f44c84c}")
	iidDXGIFactory = ole.NewGUID("{770aae78-f26f-4dba-a829-253c83d1b387}")
	iidDXGIRes     = ole.NewGUID("{035f3ab4-482e-4e50-b41f-8a7f8bd8960b}")
)

var (
	modD3D11    = windows.NewLazySystemDLL("d3d11.dll")
	modDXGI     = windows.NewLazySystemDLL("dxgi.dll")
	modCompiler = windows.NewLazySystemDLL("d3dcompiler_47.dll")

	procD3D11CreateDevice  = modD3D11.NewProc("D3D11CreateDevice")
	procCreateDXGIFactory1 = modDXGI.NewProc("CreateDXGIFactory1")
	procD3DCompile         = modCompiler.NewProc("D3DCompile")
)

// Vtable slots. IUnknown occupies 0-2; ID3D11DeviceChild and IDXGIObject
// add four more before the interface's own methods.
const (
	slotQueryInterface = 0

	// ID3D11Device
	slotCreateBuffer             = 3
	slotCreateTexture2D          = 5
	slotCreateShaderResourceView = 7
	slotCreateRenderTargetView   = 9
	slotCreateInputLayout        = 11
	slotCreateVertexShader       = 12
	slotCreatePixelShader        = 15
	slotCreateBlendState         = 20
	slotCreateDepthStencilState  = 21
	slotCreateRasterizerState    = 22
	slotCreateSamplerState       = 23
	slotGetImmediateContext      = 40

	// ID3D11Texture2D and ID3D11Buffer
	slotResourceGetDesc = 10

	// ID3D11DeviceContext
	slotPSSetShaderResources   = 8
	slotPSSetShader            = 9
	slotPSSetSamplers          = 10
	slotVSSetShader            = 11
	slotDraw                   = 13
	slotMap                    = 14
	slotUnmap                  = 15
	slotIASetInputLayout       = 17
	slotIASetVertexBuffers     = 18
	slotGSSetShader            = 23
	slotIASetPrimitiveTopology = 24
	slotOMSetRenderTargets     = 33
	slotOMSetBlendState        = 35
	slotOMSetDepthStencilState = 36
	slotSOSetTargets           = 37
	slotRSSetState             = 43
	slotRSSetViewports         = 44
	slotPSGetShaderResources   = 73
	slotPSGetShader            = 74
	slotPSGetSamplers          = 75
	slotVSGetShader            = 76
	slotIAGetInputLayout       = 78
	slotIAGetVertexBuffers     = 79
	slotGSGetShader            = 82
	slotIAGetPrimitiveTopology = 83
	slotOMGetRenderTargets     = 89
	slotOMGetBlendState        = 91
	slotOMGetDepthStencilState = 92
	slotSOGetTargets           = 93
	slotRSGetState             = 94
	slotRSGetViewports         = 95

	// IDXGISwapChain
	slotSwapChainGetDevice = 7
	slotSwapChainGetBuffer = 9
	slotSwapChainGetDesc   = 12

	// IDXGIDevice, IDXGIAdapter, IDXGIFactory, IDXGIResource
	slotDXGIDeviceGetAdapter = 7
	slotAdapterGetDesc       = 8
	slotFactoryEnumAdapters  = 7
	slotResourceSharedHandle = 8

	// ID3DBlob
	slotBlobPointer = 3
	slotBlobSize    = 4
)

// unknown is a raw COM interface pointer.
type unknown struct {
	unk *ole.IUnknown
}

// comPtr reinterprets an interface pointer returned by a COM call. The
// object lives outside the Go heap.
func comPtr(p uintptr) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&p))
}

func wrapUnknown(p uintptr) unknown {
	return unknown{unk: (*ole.IUnknown)(comPtr(p))}
}

func (u unknown) isNil() bool { return u.unk == nil }

// this is the implicit first argument of every method call.
func (u unknown) this() uintptr { return uintptr(unsafe.Pointer(u.unk)) }

// method returns the function pointer in vtable slot i.
func (u unknown) method(i int) uintptr {
	vtbl := unsafe.Pointer(u.unk.RawVTable)
	return *(*uintptr)(unsafe.Add(vtbl, i*int(unsafe.Sizeof(uintptr(0)))))
}

// AddRef implements d3d.Object.
func (u unknown) AddRef() uint32 { return uint32(u.unk.AddRef()) }

// Release implements d3d.Object.
func (u unknown) Release() uint32 { return uint32(u.unk.Release()) }

func (u unknown) comPtr() uintptr { return u.this() }

// queryInterface returns a new reference to iid on u.
func (u unknown) queryInterface(iid *ole.GUID) (unknown, error) {
	var out uintptr
	r, _, _ := syscall.SyscallN(u.method(slotQueryInterface), u.this(),
		uintptr(unsafe.Pointer(iid)), uintptr(unsafe.Pointer(&out)))
	if err := check("QueryInterface", r); err != nil {
		return unknown{}, err
	}
	return wrapUnknown(out), nil
}

// comObject is implemented by every wrapper this package hands out.
type comObject interface {
	comPtr() uintptr
}

// raw returns the COM pointer behind o, or 0 for nil and for objects of
// other backends.
func raw(o d3d.Object) uintptr {
	if o == nil {
		return 0
	}
	if c, ok := o.(comObject); ok {
		return c.comPtr()
	}
	return 0
}

// rawSlice collects the COM pointers of objs.
func rawSlice[T d3d.Object](objs []T) []uintptr {
	out := make([]uintptr, len(objs))
	for i, o := range objs {
		out[i] = raw(o)
	}
	return out
}

func check(op string, r uintptr) error {
	if err := d3d.Check(r); err != nil {
		return fmt.Errorf("d3d11: %s: %w", op, err)
	}
	return nil
}

// firstOrNil returns a pointer to s[0], or nil for an empty slice.
func firstOrNil[T any](s []T) *T {
	if len(s) == 0 {
		return nil
	}
	return &s[0]
}

// blob is an ID3DBlob.
type blob struct{ unknown }

func (b blob) bytes() []byte {
	if b.isNil() {
		return nil
	}
	p, _, _ := syscall.SyscallN(b.method(slotBlobPointer), b.this())
	n, _, _ := syscall.SyscallN(b.method(slotBlobSize), b.this())
	if p == 0 || n == 0 {
		return nil
	}
	// The blob owns the memory; copy before it is released.
	src := unsafe.Slice((*byte)(comPtr(p)), int(n))
	return append([]byte(nil), src...)
}
