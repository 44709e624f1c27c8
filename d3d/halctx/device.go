// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package halctx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"unsafe"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/d3d"
	"github.com/gogpu/overlay/internal/cache"
)

// Device is a d3d.Device over a HAL device and queue.
//
// Objects created by a Device must be released before the device itself.
type Device struct {
	refs
	hal   hal.Device
	queue hal.Queue
	info  gputypes.AdapterInfo
	luid  d3d.LUID

	// Set when the device was opened by Open and must be destroyed with it.
	instance hal.Instance
	owned    bool

	ctx *Context

	mu         sync.Mutex
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipelines  *cache.Cache[pipelineKey, hal.RenderPipeline]
	groups     *cache.Cache[groupKey, hal.BindGroup]
}

var _ d3d.Device = (*Device)(nil)

// New wraps an open HAL device. The caller keeps ownership of dev and
// queue; releasing the returned Device destroys only what it created.
func New(dev hal.Device, queue hal.Queue, info gputypes.AdapterInfo) *Device {
	d := &Device{
		hal:   dev,
		queue: queue,
		info:  info,
		luid:  adapterLUID(info.Name, info.Vendor, info.VendorID, info.DeviceID),
		pipelines: cache.New(maxPipelines, func(_ pipelineKey, p hal.RenderPipeline) {
			dev.DestroyRenderPipeline(p)
		}),
		groups: cache.New(maxBindGroups, func(_ groupKey, g hal.BindGroup) {
			dev.DestroyBindGroup(g)
		}),
	}
	d.refs.init(d.destroy)
	d.ctx = newContext(d)
	return d
}

// halProvider is implemented by device providers that expose their HAL
// objects.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// ErrNoHAL is returned by FromProvider when the provider does not expose
// HAL device and queue objects.
var ErrNoHAL = errors.New("halctx: provider does not expose HAL types")

var errBackendPanic = errors.New("halctx: backend panicked")

// FromProvider shares the device of a gpucontext provider, such as a gogpu
// window. The provider keeps ownership of the device.
func FromProvider(p gpucontext.DeviceProvider) (*Device, error) {
	hp, ok := p.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok || dev == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNoHAL, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNoHAL, hp.HalQueue())
	}
	pi := p.AdapterInfo()
	info := gputypes.AdapterInfo{Name: pi.Name, DeviceType: deviceType(pi.Type)}
	return New(dev, queue, info), nil
}

func deviceType(t gpucontext.AdapterType) gputypes.DeviceType {
	switch t {
	case gpucontext.AdapterTypeDiscrete:
		return gputypes.DeviceTypeDiscreteGPU
	case gpucontext.AdapterTypeIntegrated:
		return gputypes.DeviceTypeIntegratedGPU
	case gpucontext.AdapterTypeSoftware:
		return gputypes.DeviceTypeCPU
	default:
		return gputypes.DeviceTypeOther
	}
}

// preferred lists HAL backends in the order Open tries them. BackendEmpty
// is the software rasterizer.
var preferred = []gputypes.Backend{
	gputypes.BackendDX12,
	gputypes.BackendVulkan,
	gputypes.BackendMetal,
	gputypes.BackendGL,
	gputypes.BackendEmpty,
}

// Open creates a standalone device on the first registered HAL backend
// with an adapter.
func Open(opts d3d.Options) (*Device, error) {
	var backends []hal.Backend
	for _, variant := range preferred {
		if backend, ok := hal.GetBackend(variant); ok {
			backends = append(backends, backend)
		}
	}
	return openFirst(backends, opts)
}

func openFirst(backends []hal.Backend, opts d3d.Options) (*Device, error) {
	var lastErr error = hal.ErrBackendNotFound
	for _, backend := range backends {
		d, err := openBackend(backend, opts)
		if err == nil {
			return d, nil
		}
		overlay.Logger().Debug("halctx: backend unusable", "backend", backend.Variant(), "err", err)
		lastErr = err
	}
	return nil, lastErr
}

// openBackend opens the selected adapter of backend. A backend that panics
// while probing, such as GL without a display, reports an error instead so
// Open can move on to the next one.
func openBackend(backend hal.Backend, opts d3d.Options) (d *Device, err error) {
	var instance hal.Instance
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		d, err = nil, fmt.Errorf("%w: %s: %v", errBackendPanic, backend.Variant(), r)
		if instance != nil {
			destroyQuietly(instance)
		}
	}()

	var flags gputypes.InstanceFlags
	if opts.Debug {
		flags = gputypes.InstanceFlagsDebug | gputypes.InstanceFlagsValidation
	}
	instance, err = backend.CreateInstance(&hal.InstanceDescriptor{Flags: flags})
	if err != nil {
		return nil, fmt.Errorf("halctx: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("halctx: %s: no adapters", backend.Variant())
	}
	idx := 0
	if opts.AdapterIndex >= 0 && opts.AdapterIndex < len(adapters) {
		idx = opts.AdapterIndex
	}
	selected := adapters[idx]
	open, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("halctx: open %s: %w", selected.Info.Name, err)
	}

	d = New(open.Device, open.Queue, selected.Info)
	d.instance = instance
	d.owned = true
	overlay.Logger().Info("halctx: device opened",
		"label", opts.Label, "adapter", selected.Info.Name, "backend", selected.Info.Backend, "luid", d.luid)
	return d, nil
}

// destroyQuietly destroys an instance left behind by a panicking backend,
// which may panic again.
func destroyQuietly(instance hal.Instance) {
	defer func() { _ = recover() }()
	instance.Destroy()
}

func init() {
	d3d.Register("hal", 50, func(opts d3d.Options) (d3d.Device, error) {
		d, err := Open(opts)
		if err != nil {
			return nil, err
		}
		return d, nil
	}, func() bool {
		return len(hal.AvailableBackends()) > 0
	})
}

// adapterLUID derives a stable identifier from the adapter's identity. HAL
// adapters carry no LUID, so two devices on the same adapter compare equal
// while different adapters are told apart.
func adapterLUID(name, vendor string, vendorID, deviceID uint32) d3d.LUID {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(vendor))
	var ids [8]byte
	binary.LittleEndian.PutUint32(ids[0:], vendorID)
	binary.LittleEndian.PutUint32(ids[4:], deviceID)
	_, _ = h.Write(ids[:])
	sum := h.Sum64()
	l := d3d.LUID{Low: uint32(sum), High: int32(sum >> 32)}
	if l.IsZero() {
		l.Low = 1
	}
	return l
}

// HAL returns the underlying device and queue.
func (d *Device) HAL() (hal.Device, hal.Queue) { return d.hal, d.queue }

// Info returns the adapter description.
func (d *Device) Info() gputypes.AdapterInfo { return d.info }

func (d *Device) destroy() {
	d.ctx.clear()

	d.mu.Lock()
	d.groups.Clear()
	d.pipelines.Clear()
	if d.pipeLayout != nil {
		d.hal.DestroyPipelineLayout(d.pipeLayout)
		d.pipeLayout = nil
	}
	if d.bindLayout != nil {
		d.hal.DestroyBindGroupLayout(d.bindLayout)
		d.bindLayout = nil
	}
	d.mu.Unlock()

	if d.owned {
		_ = d.hal.WaitIdle()
		d.hal.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
}

// ImmediateContext implements d3d.Device.
func (d *Device) ImmediateContext() d3d.Context {
	d.ctx.AddRef()
	return d.ctx
}

func textureUsage(desc *d3d.TextureDesc) gputypes.TextureUsage {
	usage := gputypes.TextureUsageCopyDst | gputypes.TextureUsageCopySrc
	if desc.BindFlags&d3d.BindShaderResource != 0 {
		usage |= gputypes.TextureUsageTextureBinding
	}
	if desc.BindFlags&d3d.BindRenderTarget != 0 {
		usage |= gputypes.TextureUsageRenderAttachment
	}
	return usage
}

// CreateTexture2D implements d3d.Device.
func (d *Device) CreateTexture2D(desc *d3d.TextureDesc, initial *d3d.SubresourceData) (d3d.Texture2D, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, d3d.EInvalidArg
	}
	if desc.Usage == d3d.UsageImmutable && initial == nil {
		return nil, d3d.EInvalidArg
	}
	samples := desc.SampleCount
	if samples == 0 {
		samples = 1
	}
	ht, err := d.hal.CreateTexture(&hal.TextureDescriptor{
		Label:         "overlay_texture",
		Size:          hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         textureUsage(desc),
	})
	if err != nil {
		return nil, wrapHAL("create texture", err)
	}
	t := &texture{dev: d, desc: *desc, tex: ht}
	t.refs.init(func() { d.hal.DestroyTexture(ht) })

	if initial != nil {
		pitch := initial.RowPitch
		if pitch == 0 {
			pitch = t.pitch()
		}
		if err := d.writeTexture(t, initial.Data, pitch); err != nil {
			t.Release()
			return nil, err
		}
	}
	return t, nil
}

func (d *Device) writeTexture(t *texture, data []byte, pitch uint32) error {
	err := d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, Aspect: gputypes.TextureAspectAll},
		data,
		&hal.ImageDataLayout{BytesPerRow: pitch, RowsPerImage: t.desc.Height},
		&hal.Extent3D{Width: t.desc.Width, Height: t.desc.Height, DepthOrArrayLayers: 1},
	)
	return wrapHAL("write texture", err)
}

func (d *Device) newView(tex d3d.Texture2D, label string) (*view, error) {
	t, ok := tex.(*texture)
	if !ok {
		return nil, fmt.Errorf("halctx: %s: foreign texture %T", label, tex)
	}
	hv, err := d.hal.CreateTextureView(t.tex, &hal.TextureViewDescriptor{
		Label:           label,
		Format:          t.desc.Format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		return nil, wrapHAL("create "+label, err)
	}
	t.AddRef()
	v := &view{tex: t, view: hv}
	v.refs.init(func() {
		d.forget(v)
		d.hal.DestroyTextureView(hv)
		t.Release()
	})
	return v, nil
}

// CreateShaderResourceView implements d3d.Device.
func (d *Device) CreateShaderResourceView(tex d3d.Texture2D) (d3d.ShaderResourceView, error) {
	if tex.Desc().BindFlags&d3d.BindShaderResource == 0 {
		return nil, d3d.EInvalidArg
	}
	return d.newView(tex, "overlay_srv")
}

// CreateRenderTargetView implements d3d.Device.
func (d *Device) CreateRenderTargetView(tex d3d.Texture2D) (d3d.RenderTargetView, error) {
	if tex.Desc().BindFlags&d3d.BindRenderTarget == 0 {
		return nil, d3d.EInvalidArg
	}
	return d.newView(tex, "overlay_rtv")
}

// CreateBuffer implements d3d.Device.
func (d *Device) CreateBuffer(desc *d3d.BufferDesc, initial []byte) (d3d.Buffer, error) {
	if desc.ByteWidth == 0 {
		return nil, d3d.EInvalidArg
	}
	usage := gputypes.BufferUsageCopyDst
	if desc.BindFlags&d3d.BindVertexBuffer != 0 {
		usage |= gputypes.BufferUsageVertex
	}
	if desc.BindFlags&d3d.BindConstantBuffer != 0 {
		usage |= gputypes.BufferUsageUniform
	}
	size := (uint64(desc.ByteWidth) + 3) &^ 3
	hb, err := d.hal.CreateBuffer(&hal.BufferDescriptor{Label: "overlay_buffer", Size: size, Usage: usage})
	if err != nil {
		return nil, wrapHAL("create buffer", err)
	}
	b := &buffer{desc: *desc, buf: hb, shadow: make([]byte, size)}
	b.refs.init(func() { d.hal.DestroyBuffer(hb) })
	if initial != nil {
		copy(b.shadow, initial)
		if err := d.queue.WriteBuffer(hb, 0, b.shadow); err != nil {
			b.Release()
			return nil, wrapHAL("write buffer", err)
		}
	}
	return b, nil
}

// CompileShader implements d3d.Device. WGSL is compiled to SPIR-V by naga;
// the module carries every entry point and entry selects one at pipeline
// creation.
func (d *Device) CompileShader(src d3d.ShaderSource, entry string, stage d3d.ShaderStage) (d3d.Bytecode, error) {
	if src.WGSL == "" {
		return d3d.Bytecode{}, errors.New("halctx: shader has no WGSL source")
	}
	spirv, err := naga.Compile(src.WGSL)
	if err != nil {
		return d3d.Bytecode{}, fmt.Errorf("halctx: compile %s: %w", entry, err)
	}
	return d3d.Bytecode{Stage: stage, Entry: entry, Data: spirv}, nil
}

func spirvWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words
}

func (d *Device) newShader(code d3d.Bytecode, stage d3d.ShaderStage) (*shader, error) {
	if code.Stage != stage || len(code.Data) == 0 || len(code.Data)%4 != 0 {
		return nil, d3d.EInvalidArg
	}
	m, err := d.hal.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  code.Entry,
		Source: hal.ShaderSource{SPIRV: spirvWords(code.Data)},
	})
	if err != nil {
		return nil, wrapHAL("create shader module", err)
	}
	s := &shader{stage: stage, entry: code.Entry, module: m}
	s.refs.init(func() {
		d.forget(s)
		d.hal.DestroyShaderModule(m)
	})
	return s, nil
}

// CreateVertexShader implements d3d.Device.
func (d *Device) CreateVertexShader(code d3d.Bytecode) (d3d.VertexShader, error) {
	return d.newShader(code, d3d.StageVertex)
}

// CreatePixelShader implements d3d.Device.
func (d *Device) CreatePixelShader(code d3d.Bytecode) (d3d.PixelShader, error) {
	return d.newShader(code, d3d.StagePixel)
}

// CreateInputLayout implements d3d.Device.
func (d *Device) CreateInputLayout(elements []d3d.InputElement, vs d3d.Bytecode) (d3d.InputLayout, error) {
	if vs.Stage != d3d.StageVertex {
		return nil, d3d.EInvalidArg
	}
	attrs, err := buildAttributes(elements)
	if err != nil {
		return nil, err
	}
	l := &inputLayout{attrs: attrs}
	l.refs.init(func() { d.forget(l) })
	return l, nil
}

// CreateSamplerState implements d3d.Device.
func (d *Device) CreateSamplerState(desc *d3d.SamplerDesc) (d3d.SamplerState, error) {
	hs, err := d.hal.CreateSampler(samplerDescriptor(desc))
	if err != nil {
		return nil, wrapHAL("create sampler", err)
	}
	s := &sampler{desc: *desc, sampler: hs}
	s.refs.init(func() {
		d.forget(s)
		d.hal.DestroySampler(hs)
	})
	return s, nil
}

// CreateBlendState implements d3d.Device.
func (d *Device) CreateBlendState(desc *d3d.BlendDesc) (d3d.BlendState, error) {
	b := &blendState{desc: *desc}
	b.refs.init(nil)
	return b, nil
}

// CreateRasterizerState implements d3d.Device.
func (d *Device) CreateRasterizerState(desc *d3d.RasterizerDesc) (d3d.RasterizerState, error) {
	r := &rasterizerState{desc: *desc}
	r.refs.init(nil)
	return r, nil
}

// CreateDepthStencilState implements d3d.Device. Depth and stencil are
// tracked for save and restore only; the backend never attaches a depth
// buffer.
func (d *Device) CreateDepthStencilState(desc *d3d.DepthStencilDesc) (d3d.DepthStencilState, error) {
	s := &depthStencilState{desc: *desc}
	s.refs.init(nil)
	return s, nil
}

// SharedHandle implements d3d.Device. HAL textures cannot be exported.
func (d *Device) SharedHandle(d3d.Texture2D) (d3d.SharedHandle, error) {
	return 0, d3d.ErrSharingUnsupported
}

// AdapterLUID implements d3d.Device.
func (d *Device) AdapterLUID() (d3d.LUID, error) { return d.luid, nil }

// readbackPitch is the row pitch used when copying a texture to a buffer.
// GPU backends need 256-byte aligned rows; the software rasterizer copies
// rows tightly.
func (d *Device) readbackPitch(width uint32) uint32 {
	tight := width * 4
	if d.info.DeviceType == gputypes.DeviceTypeCPU {
		return tight
	}
	return (tight + 255) &^ 255
}

// ReadPixels copies tex back to host memory as tightly packed rows.
func (d *Device) ReadPixels(tex d3d.Texture2D) ([]byte, error) {
	t, ok := tex.(*texture)
	if !ok {
		return nil, fmt.Errorf("halctx: read pixels: foreign texture %T", tex)
	}
	w, h := t.desc.Width, t.desc.Height
	pitch := d.readbackPitch(w)
	size := uint64(pitch) * uint64(h)

	staging, err := d.hal.CreateBuffer(&hal.BufferDescriptor{
		Label: "overlay_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, wrapHAL("create readback buffer", err)
	}
	defer d.hal.DestroyBuffer(staging)

	err = d.submit("overlay_readback", func(enc hal.CommandEncoder) {
		enc.TransitionTextures([]hal.TextureBarrier{{
			Texture: t.tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageRenderAttachment,
				NewUsage: gputypes.TextureUsageCopySrc,
			},
		}})
		enc.CopyTextureToBuffer(t.tex, staging, []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{BytesPerRow: pitch, RowsPerImage: h},
			TextureBase:  hal.ImageCopyTexture{Texture: t.tex, Aspect: gputypes.TextureAspectAll},
			Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		}})
	})
	if err != nil {
		return nil, err
	}

	m, err := d.hal.MapBuffer(staging, 0, size)
	if err != nil {
		return nil, wrapHAL("map readback buffer", err)
	}
	src := unsafe.Slice((*byte)(m.Ptr), size)
	out := make([]byte, int(w)*4*int(h))
	for y := 0; y < int(h); y++ {
		copy(out[y*int(w)*4:(y+1)*int(w)*4], src[y*int(pitch):])
	}
	if err := d.hal.UnmapBuffer(staging); err != nil {
		return nil, wrapHAL("unmap readback buffer", err)
	}
	return out, nil
}

// submit records one command buffer with record, submits it and waits for
// the queue to drain so the buffer can be freed.
func (d *Device) submit(label string, record func(enc hal.CommandEncoder)) error {
	enc, err := d.hal.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return wrapHAL("create command encoder", err)
	}
	defer enc.Destroy()
	if err := enc.BeginEncoding(label); err != nil {
		return wrapHAL("begin encoding", err)
	}
	record(enc)
	cmd, err := enc.EndEncoding()
	if err != nil {
		return wrapHAL("end encoding", err)
	}
	defer d.hal.FreeCommandBuffer(cmd)
	if _, err := d.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return wrapHAL("submit", err)
	}
	return wrapHAL("wait idle", d.hal.WaitIdle())
}

// wrapHAL attaches the matching HRESULT to HAL errors so callers can use
// d3d.IsDeviceLost and d3d.Code.
func wrapHAL(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, hal.ErrDeviceLost):
		return fmt.Errorf("halctx: %s: %w: %w", op, d3d.DXGIErrorDeviceRemoved, err)
	case errors.Is(err, hal.ErrDeviceOutOfMemory):
		return fmt.Errorf("halctx: %s: %w: %w", op, d3d.EOutOfMemory, err)
	}
	return fmt.Errorf("halctx: %s: %w", op, err)
}
