// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compositor

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/d3d"
	"github.com/gogpu/overlay/indicator"
	"github.com/gogpu/overlay/pipestate"
	"github.com/gogpu/overlay/quad"
	"github.com/gogpu/overlay/surface"
)

// ErrBackbuffer is returned when the swap chain's backbuffer cannot be
// targeted this frame.
var ErrBackbuffer = errors.New("compositor: backbuffer unavailable")

// Driver composites overlays onto one host device's frames.
//
// Driver is not safe for concurrent use. Frame and Shutdown must be called
// from the thread that presents the swap chain.
type Driver struct {
	opts options

	state  State
	dev    d3d.Device
	width  int
	height int
	format gputypes.TextureFormat
	window uintptr

	pool       *surface.Pool
	renderer   *quad.Renderer
	indicators *indicator.Manager
	snapshot   pipestate.Snapshot
}

// New returns a driver with no device bound. GPU resources are created on
// the first Frame.
func New(opts ...Option) *Driver {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Driver{opts: o}
}

func (d *Driver) log() *slog.Logger {
	if d.opts.logger != nil {
		return d.opts.logger
	}
	return overlay.Logger()
}

// State reports the driver's lifecycle state.
func (d *Driver) State() State { return d.state }

// Size returns the backbuffer size the driver's resources were built for.
func (d *Driver) Size() (width, height int) { return d.width, d.height }

// Window returns the output window seen on the last frame.
func (d *Driver) Window() uintptr { return d.window }

// Pool returns the surface pool, or nil before the first frame.
func (d *Driver) Pool() *surface.Pool { return d.pool }

// Frame composites the overlays onto sc's current backbuffer. Failures that
// only affect one draw are logged and do not fail the frame; the host
// pipeline state is restored on every path once it has been saved.
func (d *Driver) Frame(sc SwapChain) error {
	dev, err := sc.Device()
	if err != nil {
		return fmt.Errorf("compositor: get device: %w", err)
	}
	desc, err := sc.Desc()
	if err != nil {
		dev.Release()
		return fmt.Errorf("compositor: get swap chain description: %w", err)
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		dev.Release()
		return nil
	}

	switch {
	case d.dev == nil:
		if err := d.init(dev, desc); err != nil {
			return err
		}
	case d.dev != dev:
		d.log().Info("compositor: device changed, rebuilding")
		d.teardown()
		if err := d.init(dev, desc); err != nil {
			return err
		}
	default:
		dev.Release()
		if desc.Width != d.width || desc.Height != d.height || desc.Format != d.format {
			d.resize(desc)
		}
	}
	d.window = desc.Window

	if d.opts.inputHook != nil {
		d.opts.inputHook(desc.Window)
	}
	d.refresh()

	err = d.composite(sc)
	if d3d.IsDeviceLost(err) {
		d.log().Warn("compositor: device lost", "err", err, "hr", d3d.Code(err))
		d.teardown()
	}
	return err
}

// init takes ownership of dev's reference and builds every resource.
func (d *Driver) init(dev d3d.Device, desc SwapChainDesc) error {
	format := surface.TextureFormat(desc.Format)
	renderer, err := quad.New(dev, desc.Width, desc.Height)
	if err != nil {
		dev.Release()
		d.log().Error("compositor: renderer init failed", "err", err, "hr", d3d.Code(err))
		return fmt.Errorf("compositor: init renderer: %w", err)
	}

	d.dev = dev
	d.width, d.height, d.format = desc.Width, desc.Height, desc.Format
	d.renderer = renderer
	d.indicators = indicator.NewManager(dev, format)
	if d.opts.indicators != nil {
		// A failed kind stays Stale and is retried when its bitmap changes.
		_ = d.indicators.RefreshDirty(d.opts.indicators, true)
	}
	d.buildPool(format)
	d.state = StateReady

	d.log().Info("compositor: initialized",
		"width", desc.Width, "height", desc.Height, "format", format, "adapter", d.pool.Adapter())
	return nil
}

func (d *Driver) buildPool(format gputypes.TextureFormat) {
	d.pool = surface.NewPool(d.dev, d.width, d.height, format,
		surface.WithShared(d.opts.shared),
		surface.WithIncompatibleChecker(d.opts.incompatible))
	d.pool.EnsureCreated()
	if d.opts.registrar != nil {
		d.opts.registrar.Register(d.pool.SharedHandles(), d.pool.Adapter())
	}
}

// resize rebuilds the render-sized surfaces. Indicator textures keep their
// own size.
func (d *Driver) resize(desc SwapChainDesc) {
	d.log().Debug("compositor: resize",
		"from_width", d.width, "from_height", d.height, "width", desc.Width, "height", desc.Height)
	d.pool.Release()
	d.width, d.height, d.format = desc.Width, desc.Height, desc.Format
	d.renderer.Resize(desc.Width, desc.Height)
	d.buildPool(surface.TextureFormat(desc.Format))
}

func (d *Driver) refresh() {
	if src := d.opts.indicators; src != nil {
		_ = d.indicators.RefreshDirty(src, false)
	}
	if d.opts.producer != nil {
		d.pool.Refresh(d.opts.producer)
	}
}

func (d *Driver) composite(sc SwapChain) error {
	bb, err := sc.Backbuffer()
	if err != nil {
		d.log().Warn("compositor: get backbuffer failed", "err", err, "hr", d3d.Code(err))
		return fmt.Errorf("%w: %w", ErrBackbuffer, err)
	}
	defer bb.Release()

	rtv, err := d.dev.CreateRenderTargetView(bb)
	if err != nil {
		d.log().Warn("compositor: create render target view failed", "err", err, "hr", d3d.Code(err))
		return fmt.Errorf("%w: %w", ErrBackbuffer, err)
	}
	defer rtv.Release()

	ctx := d.dev.ImmediateContext()
	defer ctx.Release()

	d.state = StateCompositing
	defer func() { d.state = StateReady }()

	d.snapshot.Save(ctx)
	defer d.snapshot.Restore()

	d.renderer.Bind(ctx, rtv)
	return d.draw(ctx)
}

// draw issues the frame's overlay draws in priority order. A shown
// browser overlay owns the frame; otherwise notifications come first and
// indicators are layered on top.
func (d *Driver) draw(ctx d3d.Context) error {
	st := d.opts.state
	if st != nil && st.BrowserShown() {
		ok, err := d.drawSlot(ctx, st.ActiveOverlay())
		if ok || d3d.IsDeviceLost(err) {
			return err
		}
	}

	if st != nil && d.opts.notifications && st.NotificationsShown() {
		if _, err := d.drawSlot(ctx, overlay.SlotNotifications); d3d.IsDeviceLost(err) {
			return err
		}
	}

	var lost error
	if d.opts.indicatorFunc != nil {
		d.opts.indicatorFunc(func(kind overlay.Indicator, alpha uint8) {
			if lost != nil {
				return
			}
			if err := d.drawIndicator(ctx, kind, alpha); d3d.IsDeviceLost(err) {
				lost = err
			}
		})
	}
	if lost != nil {
		return lost
	}

	if d.opts.status != nil {
		if status, ok := d.opts.status(); ok {
			if err := d.renderer.DrawSolidIndicator(ctx, status); err != nil {
				d.log().Warn("compositor: status indicator draw failed", "status", status, "err", err)
				return err
			}
		}
	}
	return nil
}

// drawSlot draws slot's active texture top-right and reports whether
// anything was drawn.
func (d *Driver) drawSlot(ctx d3d.Context, slot overlay.Slot) (bool, error) {
	view, ok := d.pool.SelectActiveTexture(slot)
	if !ok {
		return false, nil
	}
	w, h := d.pool.TextureSize(slot)
	if err := d.renderer.DrawTopRight(ctx, quad.KindOverlay, w, h, 0xff, view); err != nil {
		d.log().Warn("compositor: overlay draw failed", "slot", slot, "err", err, "hr", d3d.Code(err))
		return false, err
	}
	return true, nil
}

func (d *Driver) drawIndicator(ctx d3d.Context, kind overlay.Indicator, alpha uint8) error {
	view := d.indicators.View(kind)
	if view == nil {
		return nil
	}
	w, h := d.indicators.Size(kind)
	if err := d.renderer.DrawTopRight(ctx, quad.KindNotification, w, h, alpha, view); err != nil {
		d.log().Warn("compositor: indicator draw failed", "kind", kind, "err", err, "hr", d3d.Code(err))
		return err
	}
	return nil
}

// teardown releases every resource and the device reference. Producers are
// told the shared handles are gone.
func (d *Driver) teardown() {
	if d.dev == nil {
		return
	}
	d.snapshot.Restore()
	if d.pool != nil {
		d.pool.Release()
		d.pool = nil
	}
	if d.indicators != nil {
		d.indicators.Release()
		d.indicators = nil
	}
	if d.renderer != nil {
		d.renderer.Release()
		d.renderer = nil
	}
	if d.opts.registrar != nil {
		d.opts.registrar.Register(overlay.SharedHandleTable{}, d3d.LUID{})
	}
	d.dev.Release()
	d.dev = nil
	d.width, d.height = 0, 0
	d.state = StateUninitialized
}

// Shutdown releases every GPU resource. The next Frame starts over.
func (d *Driver) Shutdown() {
	d.teardown()
}
