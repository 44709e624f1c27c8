// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build windows

package d3d11

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/d3d"
)

const (
	sdkVersion              = 7
	driverTypeUnknown       = 0
	driverTypeHardware      = 1
	createDeviceDebug       = 0x2
	createDeviceBGRASupport = 0x20

	featureLevel10_0 = 0xa000
	featureLevel10_1 = 0xa100
	featureLevel11_0 = 0xb000

	compileEnableStrictness = 1 << 11
	compileOptimization3    = 1 << 15
)

// Device wraps an ID3D11Device. Wrappers of the same COM object compare
// equal.
type Device struct{ unknown }

var _ d3d.Device = Device{}

// WrapDevice wraps a device the host already owns, taking a new reference.
func WrapDevice(p uintptr) (Device, error) {
	if p == 0 {
		return Device{}, d3d.EPointer
	}
	d := Device{wrapUnknown(p)}
	d.AddRef()
	return d, nil
}

// Open creates a standalone hardware device. A negative AdapterIndex uses
// the default adapter.
func Open(opts d3d.Options) (Device, error) {
	if !available() {
		return Device{}, &d3d.BackendUnavailableError{Name: "d3d11"}
	}
	flags := uintptr(createDeviceBGRASupport)
	if opts.Debug {
		flags |= createDeviceDebug
	}
	driver := uintptr(driverTypeHardware)
	var adapter unknown
	if opts.AdapterIndex >= 0 {
		a, err := enumAdapter(opts.AdapterIndex)
		if err != nil {
			return Device{}, err
		}
		defer a.Release()
		adapter, driver = a, driverTypeUnknown
	}

	levels := []uint32{featureLevel11_0, featureLevel10_1, featureLevel10_0}
	var dev, ctx uintptr
	var level uint32
	r, _, _ := procD3D11CreateDevice.Call(
		adapter.this(),
		driver,
		0, // Software
		flags,
		uintptr(unsafe.Pointer(&levels[0])),
		uintptr(len(levels)),
		sdkVersion,
		uintptr(unsafe.Pointer(&dev)),
		uintptr(unsafe.Pointer(&level)),
		uintptr(unsafe.Pointer(&ctx)),
	)
	if err := check("D3D11CreateDevice", r); err != nil {
		return Device{}, err
	}
	// ImmediateContext hands out its own references.
	wrapUnknown(ctx).Release()

	overlay.Logger().Info("d3d11: device created",
		"label", opts.Label, "adapter", opts.AdapterIndex, "feature_level", fmt.Sprintf("%#x", level))
	return Device{wrapUnknown(dev)}, nil
}

func enumAdapter(index int) (unknown, error) {
	if err := procCreateDXGIFactory1.Find(); err != nil {
		return unknown{}, err
	}
	var fp uintptr
	r, _, _ := procCreateDXGIFactory1.Call(uintptr(unsafe.Pointer(iidDXGIFactory)), uintptr(unsafe.Pointer(&fp)))
	if err := check("CreateDXGIFactory1", r); err != nil {
		return unknown{}, err
	}
	factory := wrapUnknown(fp)
	defer factory.Release()

	var ap uintptr
	r, _, _ = syscall.SyscallN(factory.method(slotFactoryEnumAdapters), factory.this(),
		uintptr(index), uintptr(unsafe.Pointer(&ap)))
	if err := check(fmt.Sprintf("EnumAdapters(%d)", index), r); err != nil {
		return unknown{}, err
	}
	return wrapUnknown(ap), nil
}

func available() bool {
	return modD3D11.Load() == nil && procD3D11CreateDevice.Find() == nil
}

func init() {
	d3d.Register("d3d11", 100, func(opts d3d.Options) (d3d.Device, error) {
		dev, err := Open(opts)
		if err != nil {
			return nil, err
		}
		return dev, nil
	}, available)
}

// ImmediateContext implements d3d.Device.
func (d Device) ImmediateContext() d3d.Context {
	var p uintptr
	syscall.SyscallN(d.method(slotGetImmediateContext), d.this(), uintptr(unsafe.Pointer(&p)))
	return Context{wrapUnknown(p)}
}

// CreateTexture2D implements d3d.Device.
func (d Device) CreateTexture2D(desc *d3d.TextureDesc, initial *d3d.SubresourceData) (d3d.Texture2D, error) {
	n := nativeTextureDesc(desc)
	if n.Format == dxgiFormatUnknown {
		return nil, fmt.Errorf("d3d11: unsupported texture format %v: %w", desc.Format, d3d.EInvalidArg)
	}
	var data *subresourceData
	if initial != nil && len(initial.Data) > 0 {
		pitch := initial.RowPitch
		if pitch == 0 {
			pitch = desc.Width * 4
		}
		data = &subresourceData{SysMem: unsafe.Pointer(&initial.Data[0]), SysMemPitch: pitch}
	}
	var out uintptr
	r, _, _ := syscall.SyscallN(d.method(slotCreateTexture2D), d.this(),
		uintptr(unsafe.Pointer(&n)), uintptr(unsafe.Pointer(data)), uintptr(unsafe.Pointer(&out)))
	if err := check("CreateTexture2D", r); err != nil {
		return nil, err
	}
	return Texture{wrapUnknown(out)}, nil
}

func (d Device) createView(slot int, op string, tex d3d.Texture2D) (child, error) {
	res := raw(tex)
	if res == 0 {
		return child{}, fmt.Errorf("d3d11: %s: foreign texture %T", op, tex)
	}
	var out uintptr
	r, _, _ := syscall.SyscallN(d.method(slot), d.this(), res, 0, uintptr(unsafe.Pointer(&out)))
	if err := check(op, r); err != nil {
		return child{}, err
	}
	return child{wrapUnknown(out)}, nil
}

// CreateShaderResourceView implements d3d.Device.
func (d Device) CreateShaderResourceView(tex d3d.Texture2D) (d3d.ShaderResourceView, error) {
	v, err := d.createView(slotCreateShaderResourceView, "CreateShaderResourceView", tex)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// CreateRenderTargetView implements d3d.Device.
func (d Device) CreateRenderTargetView(tex d3d.Texture2D) (d3d.RenderTargetView, error) {
	v, err := d.createView(slotCreateRenderTargetView, "CreateRenderTargetView", tex)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// CreateBuffer implements d3d.Device.
func (d Device) CreateBuffer(desc *d3d.BufferDesc, initial []byte) (d3d.Buffer, error) {
	n := bufferDesc{
		ByteWidth:      desc.ByteWidth,
		Usage:          uint32(desc.Usage),
		BindFlags:      uint32(desc.BindFlags),
		CPUAccessFlags: uint32(desc.CPUAccess),
	}
	var data *subresourceData
	if len(initial) > 0 {
		data = &subresourceData{SysMem: unsafe.Pointer(&initial[0])}
	}
	var out uintptr
	r, _, _ := syscall.SyscallN(d.method(slotCreateBuffer), d.this(),
		uintptr(unsafe.Pointer(&n)), uintptr(unsafe.Pointer(data)), uintptr(unsafe.Pointer(&out)))
	if err := check("CreateBuffer", r); err != nil {
		return nil, err
	}
	return Buffer{wrapUnknown(out)}, nil
}

// CompileShader implements d3d.Device with D3DCompile and the stage's
// shader model 4.0 profile.
func (d Device) CompileShader(src d3d.ShaderSource, entry string, stage d3d.ShaderStage) (d3d.Bytecode, error) {
	if src.HLSL == "" {
		return d3d.Bytecode{}, errors.New("d3d11: shader has no HLSL source")
	}
	if err := procD3DCompile.Find(); err != nil {
		return d3d.Bytecode{}, fmt.Errorf("d3d11: %w", err)
	}
	code := []byte(src.HLSL)
	entryZ, err := syscall.BytePtrFromString(entry)
	if err != nil {
		return d3d.Bytecode{}, err
	}
	target, _ := syscall.BytePtrFromString(stage.Profile())
	var out, errs uintptr
	r, _, _ := procD3DCompile.Call(
		uintptr(unsafe.Pointer(&code[0])),
		uintptr(len(code)),
		0, // pSourceName
		0, // pDefines
		0, // pInclude
		uintptr(unsafe.Pointer(entryZ)),
		uintptr(unsafe.Pointer(target)),
		compileEnableStrictness|compileOptimization3,
		0,
		uintptr(unsafe.Pointer(&out)),
		uintptr(unsafe.Pointer(&errs)),
	)
	msgs := blob{wrapUnknown(errs)}
	if !msgs.isNil() {
		defer msgs.Release()
	}
	if err := check("D3DCompile "+entry, r); err != nil {
		if text := msgs.bytes(); len(text) > 0 {
			return d3d.Bytecode{}, fmt.Errorf("%w\n%s", err, text)
		}
		return d3d.Bytecode{}, err
	}
	bc := blob{wrapUnknown(out)}
	defer bc.Release()
	return d3d.Bytecode{Stage: stage, Entry: entry, Data: bc.bytes()}, nil
}

func (d Device) createShader(slot int, op string, code d3d.Bytecode, stage d3d.ShaderStage) (child, error) {
	if code.Stage != stage || len(code.Data) == 0 {
		return child{}, d3d.EInvalidArg
	}
	var out uintptr
	r, _, _ := syscall.SyscallN(d.method(slot), d.this(),
		uintptr(unsafe.Pointer(&code.Data[0])), uintptr(len(code.Data)), 0, uintptr(unsafe.Pointer(&out)))
	if err := check(op, r); err != nil {
		return child{}, err
	}
	return child{wrapUnknown(out)}, nil
}

// CreateVertexShader implements d3d.Device.
func (d Device) CreateVertexShader(code d3d.Bytecode) (d3d.VertexShader, error) {
	s, err := d.createShader(slotCreateVertexShader, "CreateVertexShader", code, d3d.StageVertex)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreatePixelShader implements d3d.Device.
func (d Device) CreatePixelShader(code d3d.Bytecode) (d3d.PixelShader, error) {
	s, err := d.createShader(slotCreatePixelShader, "CreatePixelShader", code, d3d.StagePixel)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreateInputLayout implements d3d.Device.
func (d Device) CreateInputLayout(elements []d3d.InputElement, vs d3d.Bytecode) (d3d.InputLayout, error) {
	if vs.Stage != d3d.StageVertex || len(vs.Data) == 0 {
		return nil, d3d.EInvalidArg
	}
	descs, err := nativeInputLayout(elements)
	if err != nil {
		return nil, err
	}
	var out uintptr
	r, _, _ := syscall.SyscallN(d.method(slotCreateInputLayout), d.this(),
		uintptr(unsafe.Pointer(firstOrNil(descs))), uintptr(len(descs)),
		uintptr(unsafe.Pointer(&vs.Data[0])), uintptr(len(vs.Data)),
		uintptr(unsafe.Pointer(&out)))
	if err := check("CreateInputLayout", r); err != nil {
		return nil, err
	}
	return child{wrapUnknown(out)}, nil
}

// createState calls one of the Create*State methods, which all take a
// descriptor pointer and an out pointer.
func (d Device) createState(slot int, op string, desc unsafe.Pointer) (child, error) {
	var out uintptr
	r, _, _ := syscall.SyscallN(d.method(slot), d.this(), uintptr(desc), uintptr(unsafe.Pointer(&out)))
	if err := check(op, r); err != nil {
		return child{}, err
	}
	return child{wrapUnknown(out)}, nil
}

// CreateSamplerState implements d3d.Device.
func (d Device) CreateSamplerState(desc *d3d.SamplerDesc) (d3d.SamplerState, error) {
	n := nativeSamplerDesc(desc)
	s, err := d.createState(slotCreateSamplerState, "CreateSamplerState", unsafe.Pointer(&n))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreateBlendState implements d3d.Device.
func (d Device) CreateBlendState(desc *d3d.BlendDesc) (d3d.BlendState, error) {
	n := nativeBlendDesc(desc)
	s, err := d.createState(slotCreateBlendState, "CreateBlendState", unsafe.Pointer(&n))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreateRasterizerState implements d3d.Device.
func (d Device) CreateRasterizerState(desc *d3d.RasterizerDesc) (d3d.RasterizerState, error) {
	n := nativeRasterizerDesc(desc)
	s, err := d.createState(slotCreateRasterizerState, "CreateRasterizerState", unsafe.Pointer(&n))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreateDepthStencilState implements d3d.Device.
func (d Device) CreateDepthStencilState(desc *d3d.DepthStencilDesc) (d3d.DepthStencilState, error) {
	n := nativeDepthStencilDesc(desc)
	s, err := d.createState(slotCreateDepthStencilState, "CreateDepthStencilState", unsafe.Pointer(&n))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SharedHandle implements d3d.Device through IDXGIResource.
func (d Device) SharedHandle(tex d3d.Texture2D) (d3d.SharedHandle, error) {
	t, ok := tex.(Texture)
	if !ok {
		return 0, fmt.Errorf("d3d11: shared handle: foreign texture %T", tex)
	}
	res, err := t.queryInterface(iidDXGIRes)
	if err != nil {
		return 0, err
	}
	defer res.Release()
	var h uintptr
	r, _, _ := syscall.SyscallN(res.method(slotResourceSharedHandle), res.this(), uintptr(unsafe.Pointer(&h)))
	if err := check("GetSharedHandle", r); err != nil {
		return 0, err
	}
	return d3d.SharedHandle(h), nil
}

// AdapterLUID implements d3d.Device through IDXGIDevice.
func (d Device) AdapterLUID() (d3d.LUID, error) {
	dxgi, err := d.queryInterface(iidDXGIDevice)
	if err != nil {
		return d3d.LUID{}, err
	}
	defer dxgi.Release()

	var ap uintptr
	r, _, _ := syscall.SyscallN(dxgi.method(slotDXGIDeviceGetAdapter), dxgi.this(), uintptr(unsafe.Pointer(&ap)))
	if err := check("GetAdapter", r); err != nil {
		return d3d.LUID{}, err
	}
	adapter := wrapUnknown(ap)
	defer adapter.Release()

	var desc adapterDesc
	r, _, _ = syscall.SyscallN(adapter.method(slotAdapterGetDesc), adapter.this(), uintptr(unsafe.Pointer(&desc)))
	if err := check("IDXGIAdapter::GetDesc", r); err != nil {
		return d3d.LUID{}, err
	}
	return desc.AdapterLUID, nil
}
