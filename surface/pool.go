// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/d3d"
)

var (
	// ErrFrameSize is returned when a producer frame is not exactly the
	// pool's width*height*4 bytes.
	ErrFrameSize = errors.New("surface: frame size mismatch")

	// ErrNoTexture is returned when a slot has no private texture to fill.
	ErrNoTexture = errors.New("surface: slot has no private texture")
)

// Producer hands out the newest frame for a slot. NextFrame must not block;
// it returns nil when nothing arrived since the previous call. Frames are
// tightly packed BGRA of the pool's size.
type Producer interface {
	NextFrame(slot overlay.Slot) []byte
}

// IncompatibleChecker reports the shared handle a producer failed to open
// for slot, together with the adapter it was published on.
type IncompatibleChecker interface {
	IncompatibleShared(slot overlay.Slot) (d3d.SharedHandle, d3d.LUID, bool)
}

// slotTextures is the texture set of one overlay slot.
type slotTextures struct {
	private     d3d.Texture2D
	privateView d3d.ShaderResourceView
	content     State

	shared     d3d.Texture2D
	sharedView d3d.ShaderResourceView
}

// Pool owns the private and shareable textures of every overlay slot.
//
// Pool is not safe for concurrent use; it is driven from the render thread
// that owns the device's immediate context.
type Pool struct {
	dev    d3d.Device
	width  int
	height int
	format gputypes.TextureFormat
	opts   poolOptions

	slots    [overlay.SlotCount]slotTextures
	registry Registry
	adapter  d3d.LUID
	// adapterKnown is false when the adapter identity could not be read;
	// adapter checks are skipped in that case.
	adapterKnown bool
	created      bool
}

// NewPool returns an empty pool for width x height textures of format.
// Nothing is created until EnsureCreated or EnsureSlot.
func NewPool(dev d3d.Device, width, height int, format gputypes.TextureFormat, opts ...Option) *Pool {
	o := defaultPoolOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Pool{
		dev:    dev,
		width:  width,
		height: height,
		format: format,
		opts:   o,
	}
}

// Width returns the texture width in pixels.
func (p *Pool) Width() int { return p.width }

// Height returns the texture height in pixels.
func (p *Pool) Height() int { return p.height }

// Format returns the texture format.
func (p *Pool) Format() gputypes.TextureFormat { return p.format }

// Adapter returns the adapter identity the shared handles belong to.
func (p *Pool) Adapter() d3d.LUID { return p.adapter }

// EnsureCreated creates the textures of every slot that does not have them
// yet. Failures are logged and leave the affected slot without the failed
// texture; they never abort the remaining slots.
func (p *Pool) EnsureCreated() {
	if !p.created {
		p.lookupAdapter()
		p.created = true
	}
	for _, slot := range overlay.Slots() {
		if err := p.EnsureSlot(slot); err != nil {
			overlay.Logger().Warn("surface: slot textures unavailable",
				"slot", slot, "err", err, "hr", d3d.Code(err))
		}
	}
}

func (p *Pool) lookupAdapter() {
	luid, err := p.dev.AdapterLUID()
	if err != nil {
		overlay.Logger().Warn("surface: adapter identity unavailable", "err", err)
		return
	}
	p.adapter = luid
	p.adapterKnown = true
}

// EnsureSlot creates the private texture of slot and, when sharing is
// enabled, its shareable texture. Only a private texture failure is
// returned; a shareable failure degrades the slot to private-only.
func (p *Pool) EnsureSlot(slot overlay.Slot) error {
	if !slot.Valid() {
		return fmt.Errorf("surface: invalid slot %d", slot)
	}
	if !p.created {
		p.lookupAdapter()
		p.created = true
	}
	st := &p.slots[slot]

	var err error
	if st.private == nil {
		err = p.createPrivate(st)
		if err != nil {
			err = fmt.Errorf("surface: create %s texture: %w", slot, err)
		}
	}
	if p.opts.shared && st.shared == nil {
		if serr := p.createShared(slot, st); serr != nil {
			overlay.Logger().Info("surface: shared texture unavailable, using private path",
				"slot", slot, "err", serr, "hr", d3d.Code(serr))
		}
	}
	return err
}

func (p *Pool) textureDesc() d3d.TextureDesc {
	return d3d.TextureDesc{
		Width:       uint32(p.width),
		Height:      uint32(p.height),
		MipLevels:   1,
		ArraySize:   1,
		Format:      p.format,
		SampleCount: 1,
	}
}

func (p *Pool) createPrivate(st *slotTextures) error {
	desc := p.textureDesc()
	desc.Usage = d3d.UsageDynamic
	desc.BindFlags = d3d.BindShaderResource
	desc.CPUAccess = d3d.CPUAccessWrite

	tex, err := p.dev.CreateTexture2D(&desc, nil)
	if err != nil {
		return err
	}
	view, err := p.dev.CreateShaderResourceView(tex)
	if err != nil {
		tex.Release()
		return err
	}
	st.private = tex
	st.privateView = view
	st.content = Stale
	return nil
}

func (p *Pool) createShared(slot overlay.Slot, st *slotTextures) error {
	desc := p.textureDesc()
	desc.Usage = d3d.UsageDefault
	desc.BindFlags = d3d.BindShaderResource | d3d.BindRenderTarget
	desc.MiscFlags = d3d.MiscShared

	tex, err := p.dev.CreateTexture2D(&desc, nil)
	if err != nil {
		return err
	}
	view, err := p.dev.CreateShaderResourceView(tex)
	if err != nil {
		tex.Release()
		return err
	}
	h, err := p.dev.SharedHandle(tex)
	if err != nil {
		view.Release()
		tex.Release()
		return err
	}
	st.shared = tex
	st.sharedView = view
	p.registry.Set(slot, h, p.adapter)
	return nil
}

// Refresh pulls a frame for every slot. Per-slot failures are logged and
// skip only that slot.
func (p *Pool) Refresh(producer Producer) {
	for _, slot := range overlay.Slots() {
		if err := p.RefreshFromProducer(slot, producer); err != nil {
			overlay.Logger().Warn("surface: overlay update failed",
				"slot", slot, "err", err)
		}
	}
}

// RefreshFromProducer pulls the newest frame for slot. Without a new frame
// the previous content stays. With one, the shared handle is re-validated
// and the frame is copied into the private texture row by row.
func (p *Pool) RefreshFromProducer(slot overlay.Slot, producer Producer) error {
	if !slot.Valid() {
		return fmt.Errorf("surface: invalid slot %d", slot)
	}
	st := &p.slots[slot]
	if st.private == nil {
		// Nothing to fill; keep the producer's frame queued.
		return nil
	}
	frame := producer.NextFrame(slot)
	if frame == nil {
		return nil
	}

	p.validateShared(slot)

	if want := FrameSize(p.width, p.height); len(frame) != want {
		return fmt.Errorf("%w: %s got %d bytes, want %d", ErrFrameSize, slot, len(frame), want)
	}

	ctx := p.dev.ImmediateContext()
	defer ctx.Release()

	m, err := ctx.Map(st.private, 0, d3d.MapWriteDiscard)
	if err != nil {
		return fmt.Errorf("surface: map %s texture: %w", slot, err)
	}
	CopyRows(m.Data, int(m.RowPitch), frame, p.width, p.height)
	ctx.Unmap(st.private, 0)

	st.content = Fresh
	return nil
}

// validateShared demotes slot to the private path when its handle was
// created on a different adapter or a producer reported it unusable.
func (p *Pool) validateShared(slot overlay.Slot) {
	e := p.registry.Get(slot)
	if !e.Valid() || !p.adapterKnown {
		return
	}
	if current, err := p.dev.AdapterLUID(); err == nil && current != e.Adapter {
		overlay.Logger().Warn("surface: shared texture adapter changed",
			"slot", slot, "adapter", current, "owner", e.Adapter)
		p.registry.Clear(slot)
		return
	}
	if p.opts.incompatible == nil {
		return
	}
	if h, luid, ok := p.opts.incompatible.IncompatibleShared(slot); ok && p.registry.Matches(slot, h, luid) {
		overlay.Logger().Info("surface: producer cannot open shared texture",
			"slot", slot, "adapter", luid)
		p.registry.Clear(slot)
	}
}

// sharedTrusted reports whether slot's shared handle was created on the
// adapter the device reports now. An unknown current adapter is untrusted.
func (p *Pool) sharedTrusted(slot overlay.Slot) bool {
	if !p.registry.Get(slot).Valid() {
		return false
	}
	current, err := p.dev.AdapterLUID()
	if err != nil {
		return false
	}
	return p.registry.Trusted(slot, current)
}

// SelectActiveTexture returns the view to composite for slot. A shared
// handle created on the current adapter selects the shareable texture;
// otherwise the private texture is used once it holds content. ok is false
// when there is nothing to draw.
func (p *Pool) SelectActiveTexture(slot overlay.Slot) (d3d.ShaderResourceView, bool) {
	if !slot.Valid() {
		return nil, false
	}
	st := &p.slots[slot]
	if st.sharedView != nil && p.sharedTrusted(slot) {
		return st.sharedView, true
	}
	if st.privateView != nil && st.content == Fresh {
		return st.privateView, true
	}
	return nil, false
}

// TextureSize returns the dimensions of the texture SelectActiveTexture
// would pick for slot.
func (p *Pool) TextureSize(slot overlay.Slot) (width, height int) {
	if !slot.Valid() {
		return 0, 0
	}
	st := &p.slots[slot]
	tex := st.private
	if st.shared != nil && p.sharedTrusted(slot) {
		tex = st.shared
	}
	if tex == nil {
		return 0, 0
	}
	d := tex.Desc()
	return int(d.Width), int(d.Height)
}

// ContentState reports the state of slot's private texture.
func (p *Pool) ContentState(slot overlay.Slot) State {
	if !slot.Valid() {
		return Absent
	}
	return p.slots[slot].content
}

// Entry returns the shared texture entry of slot.
func (p *Pool) Entry(slot overlay.Slot) Entry {
	return p.registry.Get(slot)
}

// SharedHandles returns the current shared handle table. Demoted slots
// read as zero.
func (p *Pool) SharedHandles() overlay.SharedHandleTable {
	return p.registry.Handles()
}

// Release drops every texture and view and clears the handle table. The
// pool can be filled again with EnsureCreated.
func (p *Pool) Release() {
	for i := range p.slots {
		st := &p.slots[i]
		d3d.SafeRelease(st.privateView)
		d3d.SafeRelease(st.private)
		d3d.SafeRelease(st.sharedView)
		d3d.SafeRelease(st.shared)
		p.slots[i] = slotTextures{}
	}
	p.registry.Reset()
	p.created = false
	p.adapterKnown = false
	p.adapter = d3d.LUID{}
}
