// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package indicator

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/d3d"
	"github.com/gogpu/overlay/surface"
)

// ErrEmptyBitmap is returned when a source hands out a bitmap without
// pixels.
var ErrEmptyBitmap = errors.New("indicator: empty bitmap")

// Bitmap is a locked indicator image in BGRA byte order with straight
// alpha. Rows are Stride bytes apart.
type Bitmap struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// Source supplies indicator bitmaps and tracks which ones changed.
//
// Lock returns the pixels of kind and keeps them stable until Unlock.
type Source interface {
	Updated(kind overlay.Indicator) bool
	ClearUpdated(kind overlay.Indicator)
	Lock(kind overlay.Indicator) (Bitmap, error)
	Unlock(kind overlay.Indicator)
}

type entry struct {
	tex    d3d.Texture2D
	view   d3d.ShaderResourceView
	width  int
	height int
	state  surface.State
}

// Manager owns one immutable texture and view per indicator kind.
type Manager struct {
	dev     d3d.Device
	format  gputypes.TextureFormat
	entries [overlay.IndicatorCount]entry
}

// NewManager returns a manager creating textures of format on dev.
func NewManager(dev d3d.Device, format gputypes.TextureFormat) *Manager {
	return &Manager{dev: dev, format: format}
}

// RefreshDirty re-creates the texture of every kind src reports as
// updated, or of every kind when forceAll is set. The first failure is
// logged and ends the pass; kinds refreshed before it keep their new
// texture, the failed kind keeps its previous one.
func (m *Manager) RefreshDirty(src Source, forceAll bool) error {
	for kind := overlay.Indicator(0); kind < overlay.IndicatorCount; kind++ {
		if !forceAll && !src.Updated(kind) {
			continue
		}
		if err := m.refresh(src, kind); err != nil {
			e := &m.entries[kind]
			if e.state == surface.Fresh {
				e.state = surface.Stale
			}
			overlay.Logger().Warn("indicator: texture refresh failed",
				"kind", kind, "err", err, "hr", d3d.Code(err))
			return fmt.Errorf("indicator: refresh %s: %w", kind, err)
		}
	}
	return nil
}

func (m *Manager) refresh(src Source, kind overlay.Indicator) error {
	bmp, err := src.Lock(kind)
	if err != nil {
		return err
	}
	defer src.Unlock(kind)

	if bmp.Width <= 0 || bmp.Height <= 0 || bmp.Stride < bmp.Width*4 || len(bmp.Pix) < bmp.Stride*(bmp.Height-1)+bmp.Width*4 {
		return ErrEmptyBitmap
	}

	desc := d3d.TextureDesc{
		Width:       uint32(bmp.Width),
		Height:      uint32(bmp.Height),
		MipLevels:   1,
		ArraySize:   1,
		Format:      m.format,
		SampleCount: 1,
		Usage:       d3d.UsageImmutable,
		BindFlags:   d3d.BindShaderResource,
	}
	tex, err := m.dev.CreateTexture2D(&desc, &d3d.SubresourceData{Data: bmp.Pix, RowPitch: uint32(bmp.Stride)})
	if err != nil {
		return fmt.Errorf("create texture: %w", err)
	}
	view, err := m.dev.CreateShaderResourceView(tex)
	if err != nil {
		tex.Release()
		return fmt.Errorf("create view: %w", err)
	}

	// Cleared under the bitmap lock so an update landing after Unlock
	// marks the kind again.
	src.ClearUpdated(kind)

	old := m.entries[kind]
	d3d.SafeRelease(old.view)
	d3d.SafeRelease(old.tex)
	m.entries[kind] = entry{
		tex:    tex,
		view:   view,
		width:  bmp.Width,
		height: bmp.Height,
		state:  surface.Fresh,
	}
	return nil
}

// View returns the texture view of kind, or nil when none exists.
func (m *Manager) View(kind overlay.Indicator) d3d.ShaderResourceView {
	if !kind.Valid() {
		return nil
	}
	return m.entries[kind].view
}

// Size returns the pixel size of kind's texture.
func (m *Manager) Size(kind overlay.Indicator) (width, height int) {
	if !kind.Valid() {
		return 0, 0
	}
	e := &m.entries[kind]
	return e.width, e.height
}

// State reports whether kind has a texture and whether its last refresh
// succeeded.
func (m *Manager) State(kind overlay.Indicator) surface.State {
	if !kind.Valid() {
		return surface.Absent
	}
	return m.entries[kind].state
}

// Release drops every texture.
func (m *Manager) Release() {
	for i := range m.entries {
		d3d.SafeRelease(m.entries[i].view)
		d3d.SafeRelease(m.entries[i].tex)
		m.entries[i] = entry{}
	}
}
