// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package d3dtest

import (
	"fmt"

	"github.com/gogpu/overlay/d3d"
)

// Device is a fake d3d.Device.
type Device struct {
	Obj
	Counters *Counters

	// LUID is reported by AdapterLUID.
	LUID d3d.LUID

	// SharingSupported controls whether SharedHandle succeeds.
	SharingSupported bool

	// RowPadding is added to the row pitch of mapped textures so copies
	// that assume a tight pitch are caught.
	RowPadding uint32

	// Fail injects an error for the named method ("CreateTexture2D",
	// "CreateBuffer", "Map", ...). Consulted before FailTexture.
	Fail map[string]error

	// FailTexture, when set, can reject individual texture descriptors.
	FailTexture func(desc *d3d.TextureDesc) error

	// Created lists every object created through the device, in order.
	Created []refCounted

	ctx        *Context
	nextHandle d3d.SharedHandle
}

// NewDevice returns a fake device on adapter LUID {1, 0} with sharing
// enabled.
func NewDevice() *Device {
	c := &Counters{}
	d := &Device{
		Obj:              newObj(c, "device"),
		Counters:         c,
		LUID:             d3d.LUID{Low: 1},
		SharingSupported: true,
		Fail:             make(map[string]error),
		nextHandle:       0x100,
	}
	d.ctx = newContext(d)
	return d
}

// Context returns the immediate context without taking a reference.
func (d *Device) Context() *Context { return d.ctx }

// Calls returns the number of device and context calls made so far.
func (d *Device) Calls() int { return d.Counters.Calls }

// RefCounts snapshots the reference count of every created object.
func (d *Device) RefCounts() map[*Obj]int {
	m := make(map[*Obj]int, len(d.Created))
	for _, o := range d.Created {
		m[o.obj()] = o.obj().refs
	}
	return m
}

// Leaked returns the names of created objects that still hold references.
func (d *Device) Leaked() []string {
	var names []string
	for _, o := range d.Created {
		if o.obj().refs > 0 {
			names = append(names, o.obj().Name)
		}
	}
	return names
}

func (d *Device) call(method string) error {
	d.Counters.Calls++
	if err, ok := d.Fail[method]; ok {
		return err
	}
	return nil
}

func (d *Device) track(o refCounted) {
	d.Created = append(d.Created, o)
}

// ImmediateContext implements d3d.Device.
func (d *Device) ImmediateContext() d3d.Context {
	d.Counters.Calls++
	d.ctx.AddRef()
	return d.ctx
}

// CreateTexture2D implements d3d.Device.
func (d *Device) CreateTexture2D(desc *d3d.TextureDesc, initial *d3d.SubresourceData) (d3d.Texture2D, error) {
	if err := d.call("CreateTexture2D"); err != nil {
		return nil, err
	}
	if d.FailTexture != nil {
		if err := d.FailTexture(desc); err != nil {
			return nil, err
		}
	}
	if desc.Usage == d3d.UsageImmutable && initial == nil {
		return nil, d3d.EInvalidArg
	}
	pitch := desc.Width*4 + d.RowPadding
	t := &Texture{
		Obj:      newObj(d.Counters, fmt.Sprintf("texture%d", len(d.Created))),
		desc:     *desc,
		Pixels:   make([]byte, int(pitch)*int(desc.Height)),
		RowPitch: pitch,
	}
	if initial != nil {
		for y := 0; y < int(desc.Height); y++ {
			copy(t.Pixels[y*int(pitch):y*int(pitch)+int(desc.Width)*4], initial.Data[y*int(initial.RowPitch):])
		}
	}
	d.track(t)
	return t, nil
}

// CreateShaderResourceView implements d3d.Device.
func (d *Device) CreateShaderResourceView(tex d3d.Texture2D) (d3d.ShaderResourceView, error) {
	o, err := d.newView("CreateShaderResourceView", "srv", tex)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// CreateRenderTargetView implements d3d.Device.
func (d *Device) CreateRenderTargetView(tex d3d.Texture2D) (d3d.RenderTargetView, error) {
	o, err := d.newView("CreateRenderTargetView", "rtv", tex)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (d *Device) newView(method, prefix string, tex d3d.Texture2D) (*View, error) {
	if err := d.call(method); err != nil {
		return nil, err
	}
	t, _ := tex.(*Texture)
	v := &View{Obj: newObj(d.Counters, fmt.Sprintf("%s%d", prefix, len(d.Created))), Texture: t}
	d.track(v)
	return v, nil
}

// CreateBuffer implements d3d.Device.
func (d *Device) CreateBuffer(desc *d3d.BufferDesc, initial []byte) (d3d.Buffer, error) {
	if err := d.call("CreateBuffer"); err != nil {
		return nil, err
	}
	b := &Buffer{
		Obj:  newObj(d.Counters, fmt.Sprintf("buffer%d", len(d.Created))),
		desc: *desc,
		Data: make([]byte, desc.ByteWidth),
	}
	copy(b.Data, initial)
	d.track(b)
	return b, nil
}

// CompileShader implements d3d.Device. The bytecode is the entry name.
func (d *Device) CompileShader(src d3d.ShaderSource, entry string, stage d3d.ShaderStage) (d3d.Bytecode, error) {
	if err := d.call("CompileShader"); err != nil {
		return d3d.Bytecode{}, err
	}
	if src.HLSL == "" && src.WGSL == "" {
		return d3d.Bytecode{}, d3d.EInvalidArg
	}
	return d3d.Bytecode{Stage: stage, Entry: entry, Data: []byte(entry)}, nil
}

// CreateVertexShader implements d3d.Device.
func (d *Device) CreateVertexShader(code d3d.Bytecode) (d3d.VertexShader, error) {
	o, err := d.newShader("CreateVertexShader", code)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// CreatePixelShader implements d3d.Device.
func (d *Device) CreatePixelShader(code d3d.Bytecode) (d3d.PixelShader, error) {
	o, err := d.newShader("CreatePixelShader", code)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// NewGeometryShader creates a geometry shader, which the d3d.Device
// interface does not expose. Used to populate host state.
func (d *Device) NewGeometryShader(name string) *Shader {
	s := &Shader{Obj: newObj(d.Counters, name)}
	d.track(s)
	return s
}

func (d *Device) newShader(method string, code d3d.Bytecode) (*Shader, error) {
	if err := d.call(method); err != nil {
		return nil, err
	}
	s := &Shader{Obj: newObj(d.Counters, "shader:"+code.Entry), Code: code}
	d.track(s)
	return s, nil
}

// CreateInputLayout implements d3d.Device.
func (d *Device) CreateInputLayout(elements []d3d.InputElement, _ d3d.Bytecode) (d3d.InputLayout, error) {
	o, err := d.newState("CreateInputLayout", "layout", append([]d3d.InputElement(nil), elements...))
	if err != nil {
		return nil, err
	}
	return o, nil
}

// CreateSamplerState implements d3d.Device.
func (d *Device) CreateSamplerState(desc *d3d.SamplerDesc) (d3d.SamplerState, error) {
	o, err := d.newState("CreateSamplerState", "sampler", *desc)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// CreateBlendState implements d3d.Device.
func (d *Device) CreateBlendState(desc *d3d.BlendDesc) (d3d.BlendState, error) {
	o, err := d.newState("CreateBlendState", "blend", *desc)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// CreateRasterizerState implements d3d.Device.
func (d *Device) CreateRasterizerState(desc *d3d.RasterizerDesc) (d3d.RasterizerState, error) {
	o, err := d.newState("CreateRasterizerState", "raster", *desc)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// CreateDepthStencilState implements d3d.Device.
func (d *Device) CreateDepthStencilState(desc *d3d.DepthStencilDesc) (d3d.DepthStencilState, error) {
	o, err := d.newState("CreateDepthStencilState", "depth", *desc)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// NewClassInstance creates a class instance for populating host state.
func (d *Device) NewClassInstance(name string) *State {
	s := &State{Obj: newObj(d.Counters, name)}
	d.track(s)
	return s
}

func (d *Device) newState(method, prefix string, desc any) (*State, error) {
	if err := d.call(method); err != nil {
		return nil, err
	}
	s := &State{Obj: newObj(d.Counters, fmt.Sprintf("%s%d", prefix, len(d.Created))), Desc: desc}
	d.track(s)
	return s, nil
}

// SharedHandle implements d3d.Device.
func (d *Device) SharedHandle(tex d3d.Texture2D) (d3d.SharedHandle, error) {
	if err := d.call("SharedHandle"); err != nil {
		return 0, err
	}
	if !d.SharingSupported {
		return 0, d3d.ErrSharingUnsupported
	}
	t, ok := tex.(*Texture)
	if !ok || t.desc.MiscFlags&d3d.MiscShared == 0 {
		return 0, d3d.EInvalidArg
	}
	if t.Shared == 0 {
		d.nextHandle += 4
		t.Shared = d.nextHandle
	}
	return t.Shared, nil
}

// AdapterLUID implements d3d.Device.
func (d *Device) AdapterLUID() (d3d.LUID, error) {
	if err := d.call("AdapterLUID"); err != nil {
		return d3d.LUID{}, err
	}
	return d.LUID, nil
}

var _ d3d.Device = (*Device)(nil)
