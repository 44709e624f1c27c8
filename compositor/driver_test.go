// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compositor

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/d3d"
	"github.com/gogpu/overlay/d3d/d3dtest"
	"github.com/gogpu/overlay/indicator"
	"github.com/gogpu/overlay/quad"
	"github.com/gogpu/overlay/surface"
)

type fakeSwapChain struct {
	dev  *d3dtest.Device
	desc SwapChainDesc
	bb   d3d.Texture2D

	bbErr error
}

func newSwapChain(t *testing.T, dev *d3dtest.Device, w, h int) *fakeSwapChain {
	t.Helper()
	bb, err := dev.CreateTexture2D(&d3d.TextureDesc{
		Width:     uint32(w),
		Height:    uint32(h),
		Format:    gputypes.TextureFormatRGBA8Unorm,
		BindFlags: d3d.BindRenderTarget,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { bb.Release() })
	return &fakeSwapChain{
		dev:  dev,
		desc: SwapChainDesc{Width: w, Height: h, Format: gputypes.TextureFormatRGBA8Unorm, Window: 0xbeef},
		bb:   bb,
	}
}

func (s *fakeSwapChain) Device() (d3d.Device, error) {
	s.dev.AddRef()
	return s.dev, nil
}

func (s *fakeSwapChain) Desc() (SwapChainDesc, error) { return s.desc, nil }

func (s *fakeSwapChain) Backbuffer() (d3d.Texture2D, error) {
	if s.bbErr != nil {
		return nil, s.bbErr
	}
	s.bb.AddRef()
	return s.bb, nil
}

type registration struct {
	handles overlay.SharedHandleTable
	adapter d3d.LUID
}

type recordingRegistrar struct {
	calls []registration
}

func (r *recordingRegistrar) Register(handles overlay.SharedHandleTable, adapter d3d.LUID) {
	r.calls = append(r.calls, registration{handles, adapter})
}

func (r *recordingRegistrar) last() registration {
	if len(r.calls) == 0 {
		return registration{}
	}
	return r.calls[len(r.calls)-1]
}

type frames map[overlay.Slot][]byte

func (f frames) NextFrame(slot overlay.Slot) []byte {
	b := f[slot]
	delete(f, slot)
	return b
}

func indicatorImages() *indicator.ImageSet {
	set := indicator.NewImageSet()
	for kind := overlay.Indicator(0); kind < overlay.IndicatorCount; kind++ {
		pix := make([]byte, 6*4*4)
		for i := range pix {
			pix[i] = 0xff
		}
		set.SetBitmap(kind, indicator.Bitmap{Width: 6, Height: 4, Stride: 24, Pix: pix})
	}
	return set
}

// live lists the objects of dev other than sc's backbuffer that still hold
// references.
func live(dev *d3dtest.Device, sc *fakeSwapChain) []string {
	bb := sc.bb.(*d3dtest.Texture)
	var names []string
	for o, n := range dev.RefCounts() {
		if n > 0 && o != &bb.Obj {
			names = append(names, o.Name)
		}
	}
	return names
}

func mustFrame(t *testing.T, d *Driver, sc SwapChain) {
	t.Helper()
	if err := d.Frame(sc); err != nil {
		t.Fatalf("Frame: %v", err)
	}
}

func activeView(t *testing.T, d *Driver, slot overlay.Slot) d3d.ShaderResourceView {
	t.Helper()
	view, ok := d.Pool().SelectActiveTexture(slot)
	if !ok {
		t.Fatalf("%s has nothing to draw", slot)
	}
	return view
}

func TestFirstFrameInitializes(t *testing.T) {
	dev := d3dtest.NewDevice()
	sc := newSwapChain(t, dev, 320, 200)
	reg := &recordingRegistrar{}
	d := New(WithRegistrar(reg))
	defer d.Shutdown()

	if d.State() != StateUninitialized {
		t.Fatalf("new driver state = %s", d.State())
	}
	mustFrame(t, d, sc)

	if d.State() != StateReady {
		t.Errorf("state = %s, want ready", d.State())
	}
	if w, h := d.Size(); w != 320 || h != 200 {
		t.Errorf("size = %dx%d", w, h)
	}
	if d.Window() != 0xbeef {
		t.Errorf("window = %#x", d.Window())
	}
	if len(reg.calls) != 1 {
		t.Fatalf("registrar called %d times, want 1", len(reg.calls))
	}
	got := reg.last()
	if got.adapter != dev.LUID {
		t.Errorf("registered adapter = %v, want %v", got.adapter, dev.LUID)
	}
	for _, slot := range overlay.Slots() {
		if got.handles[slot] == 0 {
			t.Errorf("%s registered without a shared handle", slot)
		}
	}
	if f := d.Pool().Format(); f != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("pool format = %v", f)
	}

	// A second frame on the same device builds nothing new.
	created := len(dev.Created)
	mustFrame(t, d, sc)
	if len(dev.Created) != created+1 { // the per-frame render target view
		t.Errorf("second frame created %d objects", len(dev.Created)-created)
	}
	if len(reg.calls) != 1 {
		t.Errorf("registrar called again on a steady frame")
	}
}

func TestSRGBBackbufferSelectsSRGBOverlay(t *testing.T) {
	dev := d3dtest.NewDevice()
	sc := newSwapChain(t, dev, 64, 64)
	sc.desc.Format = gputypes.TextureFormatRGBA8UnormSrgb
	d := New()
	defer d.Shutdown()

	mustFrame(t, d, sc)
	if f := d.Pool().Format(); f != gputypes.TextureFormatBGRA8UnormSrgb {
		t.Errorf("pool format = %v, want BGRA8UnormSrgb", f)
	}
}

func TestZeroSizeSkipsGPU(t *testing.T) {
	dev := d3dtest.NewDevice()
	sc := newSwapChain(t, dev, 64, 64)
	d := New(WithOverlayState(StaticState{Browser: true, Active: overlay.SlotBrowser}))
	defer d.Shutdown()

	sc.desc.Width, sc.desc.Height = 0, 0
	before := dev.Calls()
	mustFrame(t, d, sc)
	if dev.Calls() != before {
		t.Errorf("minimized first frame made %d GPU calls", dev.Calls()-before)
	}
	if d.State() != StateUninitialized {
		t.Errorf("state = %s", d.State())
	}
	if dev.Refs() != 1 {
		t.Errorf("device refs = %d, want 1", dev.Refs())
	}

	sc.desc.Width, sc.desc.Height = 64, 64
	mustFrame(t, d, sc)

	sc.desc.Width, sc.desc.Height = 0, 0
	before = dev.Calls()
	draws := len(dev.Context().Draws)
	mustFrame(t, d, sc)
	if dev.Calls() != before || len(dev.Context().Draws) != draws {
		t.Errorf("minimized frame made %d GPU calls", dev.Calls()-before)
	}
}

func TestBrowserOverlayOwnsFrame(t *testing.T) {
	dev := d3dtest.NewDevice()
	sc := newSwapChain(t, dev, 128, 96)
	indicatorCalled := false
	d := New(
		WithOverlayState(StaticState{Browser: true, Active: overlay.SlotBrowser, Notifications: true}),
		WithIndicatorFunc(func(func(overlay.Indicator, uint8)) { indicatorCalled = true }),
		WithStatus(func() (overlay.Status, bool) { return overlay.StatusRecording, true }),
	)
	defer d.Shutdown()

	mustFrame(t, d, sc)

	draws := dev.Context().Draws
	if len(draws) != 1 {
		t.Fatalf("draws = %d, want only the browser overlay", len(draws))
	}
	if draws[0].Resource != activeView(t, d, overlay.SlotBrowser) {
		t.Error("browser draw used the wrong texture")
	}
	if indicatorCalled {
		t.Error("indicator callback ran while the browser owns the frame")
	}
}

func TestBrowserWithoutContentFallsThrough(t *testing.T) {
	dev := d3dtest.NewDevice()
	sc := newSwapChain(t, dev, 32, 16)
	producer := frames{overlay.SlotNotifications: make([]byte, surface.FrameSize(32, 16))}
	d := New(
		WithShared(false),
		WithProducer(producer),
		WithOverlayState(StaticState{Browser: true, Active: overlay.SlotBrowser, Notifications: true}),
	)
	defer d.Shutdown()

	mustFrame(t, d, sc)

	draws := dev.Context().Draws
	if len(draws) != 1 {
		t.Fatalf("draws = %d, want the notification overlay", len(draws))
	}
	if draws[0].Resource != activeView(t, d, overlay.SlotNotifications) {
		t.Error("draw did not use the notification texture")
	}
}

func TestDrawOrder(t *testing.T) {
	dev := d3dtest.NewDevice()
	sc := newSwapChain(t, dev, 200, 100)
	images := indicatorImages()
	d := New(
		WithOverlayState(StaticState{Notifications: true}),
		WithIndicatorSource(images),
		WithIndicatorFunc(func(draw func(overlay.Indicator, uint8)) {
			draw(overlay.IndicatorBookmark, 128)
		}),
		WithStatus(func() (overlay.Status, bool) { return overlay.StatusIdle, true }),
	)
	defer d.Shutdown()

	mustFrame(t, d, sc)

	draws := dev.Context().Draws
	if len(draws) != 4 {
		t.Fatalf("draws = %d, want notification, indicator and status fill + border", len(draws))
	}
	if draws[0].Resource != activeView(t, d, overlay.SlotNotifications) {
		t.Error("first draw is not the notification overlay")
	}
	if draws[1].Resource != d.indicators.View(overlay.IndicatorBookmark) {
		t.Error("second draw is not the bookmark indicator")
	}
	if draws[2].VertexCount != 4 || draws[3].VertexCount != 5 || draws[3].Topology != d3d.TopologyLineStrip {
		t.Errorf("status draws = %+v, %+v", draws[2], draws[3])
	}

	// The indicator quad sits top-right at the requested alpha.
	vs := quad.UnpackVertices(draws[1].Buffer.(*d3dtest.Buffer).Data)
	if got := vs[0].Color[3]; got != quad.Normalize(128) {
		t.Errorf("indicator alpha = %v", got)
	}
	if want := quad.PixelToClip(200-6, 0, 200, 100); vs[0].Pos != want {
		t.Errorf("indicator top-left = %v, want %v", vs[0].Pos, want)
	}
}

func TestNotificationsDisabled(t *testing.T) {
	tests := []struct {
		name  string
		opts  []Option
		draws int
	}{
		{"enabled", []Option{WithOverlayState(StaticState{Notifications: true})}, 1},
		{"option off", []Option{WithOverlayState(StaticState{Notifications: true}), WithNotifications(false)}, 0},
		{"state hidden", []Option{WithOverlayState(StaticState{})}, 0},
		{"no state", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := d3dtest.NewDevice()
			sc := newSwapChain(t, dev, 16, 16)
			d := New(tt.opts...)
			defer d.Shutdown()

			mustFrame(t, d, sc)
			if got := len(dev.Context().Draws); got != tt.draws {
				t.Errorf("draws = %d, want %d", got, tt.draws)
			}
		})
	}
}

func TestFrameRestoresHostState(t *testing.T) {
	dev := d3dtest.NewDevice()
	sc := newSwapChain(t, dev, 64, 48)
	d := New(
		WithOverlayState(StaticState{Notifications: true}),
		WithIndicatorSource(indicatorImages()),
		WithIndicatorFunc(func(draw func(overlay.Indicator, uint8)) {
			draw(overlay.IndicatorRecording, 255)
		}),
	)
	defer d.Shutdown()

	mustFrame(t, d, sc) // build resources before taking the baseline
	host := dev.BindHostState()
	ctx := dev.Context()
	refs := dev.RefCounts()

	mustFrame(t, d, sc)

	got := ctx.Bound()
	if got.VS != host.VS || got.PS != host.PS || got.Layout != host.Layout ||
		got.VertexBuffer != host.VertexBuffer || got.Resource != host.Resource ||
		got.Sampler != host.Sampler || got.Rasterizer != host.Rasterizer ||
		got.Blend != host.Blend || got.DepthStencil != host.DepthStencil ||
		got.RenderTarget != host.RenderTarget || got.Topology != host.Topology {
		t.Errorf("host bindings not restored:\n got %+v\nwant %+v", got, host)
	}
	if d.snapshot.Saved() {
		t.Error("snapshot outstanding after Frame")
	}
	for o, n := range refs {
		if o.Refs() != n {
			t.Errorf("%s refs = %d, was %d before the frame", o.Name, o.Refs(), n)
		}
	}
	if ctx.Refs() != 1 {
		t.Errorf("context refs = %d", ctx.Refs())
	}
}

func TestBackbufferFailure(t *testing.T) {
	dev := d3dtest.NewDevice()
	sc := newSwapChain(t, dev, 64, 48)
	d := New(WithOverlayState(StaticState{Browser: true, Active: overlay.SlotBrowser}))
	defer d.Shutdown()
	mustFrame(t, d, sc)

	sc.bbErr = d3d.DXGIErrorInvalidCall
	draws := len(dev.Context().Draws)
	err := d.Frame(sc)
	if !errors.Is(err, ErrBackbuffer) || !errors.Is(err, d3d.DXGIErrorInvalidCall) {
		t.Fatalf("Frame error = %v", err)
	}
	if len(dev.Context().Draws) != draws {
		t.Error("drew without a backbuffer")
	}
	if d.State() != StateReady {
		t.Errorf("state = %s, want ready", d.State())
	}

	sc.bbErr = nil
	dev.Fail["CreateRenderTargetView"] = d3d.EOutOfMemory
	if err := d.Frame(sc); !errors.Is(err, ErrBackbuffer) {
		t.Errorf("render target failure = %v", err)
	}
	if d.snapshot.Saved() {
		t.Error("snapshot left outstanding")
	}
}

func TestDeviceLostTearsDown(t *testing.T) {
	dev := d3dtest.NewDevice()
	sc := newSwapChain(t, dev, 64, 48)
	reg := &recordingRegistrar{}
	d := New(WithRegistrar(reg), WithOverlayState(StaticState{Browser: true, Active: overlay.SlotBrowser}))
	defer d.Shutdown()
	mustFrame(t, d, sc)

	dev.Fail["Map"] = d3d.DXGIErrorDeviceRemoved
	if err := d.Frame(sc); !d3d.IsDeviceLost(err) {
		t.Fatalf("Frame error = %v, want device lost", err)
	}
	if d.State() != StateUninitialized {
		t.Errorf("state = %s, want uninitialized", d.State())
	}
	if got := reg.last(); got != (registration{}) {
		t.Errorf("teardown registered %+v, want an empty table", got)
	}

	delete(dev.Fail, "Map")
	mustFrame(t, d, sc)
	if d.State() != StateReady {
		t.Errorf("state after recovery = %s", d.State())
	}
}

func TestDeviceChangeRebuilds(t *testing.T) {
	first := d3dtest.NewDevice()
	second := d3dtest.NewDevice()
	second.LUID = d3d.LUID{Low: 2}
	reg := &recordingRegistrar{}
	d := New(WithRegistrar(reg))
	defer d.Shutdown()

	firstSC := newSwapChain(t, first, 64, 64)
	mustFrame(t, d, firstSC)
	sc := newSwapChain(t, second, 64, 64)
	mustFrame(t, d, sc)

	if n := first.Refs(); n != 1 {
		t.Errorf("old device refs = %d, want 1", n)
	}
	if names := live(first, firstSC); len(names) > 0 {
		t.Errorf("old device objects still alive: %v", names)
	}
	if len(reg.calls) != 3 {
		t.Fatalf("registrar calls = %d, want register, clear, register", len(reg.calls))
	}
	if reg.calls[1] != (registration{}) {
		t.Errorf("teardown registration = %+v", reg.calls[1])
	}
	if reg.calls[2].adapter != second.LUID {
		t.Errorf("new adapter = %v", reg.calls[2].adapter)
	}
}

func TestAdapterChangeDrawsPrivateTexture(t *testing.T) {
	dev := d3dtest.NewDevice()
	sc := newSwapChain(t, dev, 32, 16)
	producer := frames{overlay.SlotBrowser: make([]byte, surface.FrameSize(32, 16))}
	d := New(
		WithProducer(producer),
		WithOverlayState(StaticState{Browser: true, Active: overlay.SlotBrowser}),
	)
	defer d.Shutdown()

	mustFrame(t, d, sc)
	draws := dev.Context().Draws
	if len(draws) != 1 || !sharedTexture(t, draws[0].Resource) {
		t.Fatalf("first frame draws = %+v, want the shareable browser texture", draws)
	}

	// Same device, no new browser frame, different adapter.
	dev.LUID = d3d.LUID{Low: 0x42}
	mustFrame(t, d, sc)
	draws = dev.Context().Draws
	if len(draws) != 2 {
		t.Fatalf("draws = %d, want 2", len(draws))
	}
	if sharedTexture(t, draws[1].Resource) {
		t.Error("shareable texture drawn under a different adapter")
	}
}

func sharedTexture(t *testing.T, res d3d.ShaderResourceView) bool {
	t.Helper()
	v, ok := res.(*d3dtest.View)
	if !ok {
		t.Fatalf("draw resource is %T", res)
	}
	return v.Texture.Desc().MiscFlags&d3d.MiscShared != 0
}

func TestResizeRebuildsSurfaces(t *testing.T) {
	dev := d3dtest.NewDevice()
	sc := newSwapChain(t, dev, 64, 64)
	reg := &recordingRegistrar{}
	d := New(WithRegistrar(reg))
	defer d.Shutdown()
	mustFrame(t, d, sc)
	old := d.Pool()

	sc.desc.Width, sc.desc.Height = 128, 32
	mustFrame(t, d, sc)

	if d.Pool() == old {
		t.Fatal("pool not rebuilt")
	}
	if d.Pool().Width() != 128 || d.Pool().Height() != 32 {
		t.Errorf("pool size = %dx%d", d.Pool().Width(), d.Pool().Height())
	}
	if w, h := d.renderer.Size(); w != 128 || h != 32 {
		t.Errorf("renderer size = %dx%d", w, h)
	}
	if len(reg.calls) != 2 || reg.calls[1].handles == reg.calls[0].handles {
		t.Errorf("resize did not register new handles: %+v", reg.calls)
	}
}

func TestInputHookAndIndicatorRefresh(t *testing.T) {
	dev := d3dtest.NewDevice()
	sc := newSwapChain(t, dev, 64, 64)
	images := indicatorImages()
	var windows []uintptr
	d := New(
		WithIndicatorSource(images),
		WithInputHook(func(w uintptr) { windows = append(windows, w) }),
	)
	defer d.Shutdown()

	mustFrame(t, d, sc)
	if images.Pending() {
		t.Error("init left indicator bitmaps pending")
	}
	first := d.indicators.View(overlay.IndicatorScreenshot)
	if first == nil {
		t.Fatal("no screenshot indicator texture")
	}

	mustFrame(t, d, sc)
	if d.indicators.View(overlay.IndicatorScreenshot) != first {
		t.Error("unchanged bitmap recreated its texture")
	}

	images.SetBitmap(overlay.IndicatorScreenshot, indicator.Bitmap{Width: 2, Height: 2, Stride: 8, Pix: make([]byte, 16)})
	mustFrame(t, d, sc)
	if d.indicators.View(overlay.IndicatorScreenshot) == first {
		t.Error("updated bitmap kept the old texture")
	}
	if w, h := d.indicators.Size(overlay.IndicatorScreenshot); w != 2 || h != 2 {
		t.Errorf("indicator size = %dx%d", w, h)
	}

	if len(windows) != 3 || windows[0] != 0xbeef {
		t.Errorf("input hook windows = %v", windows)
	}
}

func TestShutdownReleasesEverything(t *testing.T) {
	dev := d3dtest.NewDevice()
	sc := newSwapChain(t, dev, 64, 64)
	d := New(
		WithOverlayState(StaticState{Notifications: true}),
		WithIndicatorSource(indicatorImages()),
		WithProducer(frames{overlay.SlotHighlighter: make([]byte, surface.FrameSize(64, 64))}),
	)
	mustFrame(t, d, sc)
	mustFrame(t, d, sc)

	d.Shutdown()
	d.Shutdown()

	if d.State() != StateUninitialized || d.Pool() != nil {
		t.Errorf("state after shutdown = %s", d.State())
	}
	if dev.Refs() != 1 {
		t.Errorf("device refs = %d, want 1", dev.Refs())
	}
	if names := live(dev, sc); len(names) > 0 {
		t.Errorf("leaked: %v", names)
	}
	if dev.Counters.Underflows != 0 {
		t.Errorf("%d releases of dead objects", dev.Counters.Underflows)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		StateUninitialized: "uninitialized",
		StateReady:         "ready",
		StateCompositing:   "compositing",
		State(9):           "unknown",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d) = %q, want %q", s, got, want)
		}
	}
}
