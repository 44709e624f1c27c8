// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package surface owns the textures that hold overlay content.
//
// Every overlay slot has a private texture the compositor fills from CPU
// frames, and optionally a shareable render-target texture whose OS handle
// is published to an out-of-process producer. The pool decides per frame
// which of the two is composited:
//
//	pool := surface.NewPool(dev, width, height, surface.TextureFormat(backbuffer))
//	pool.EnsureCreated()
//	defer pool.Release()
//
//	pool.Refresh(mailbox)
//	if view, ok := pool.SelectActiveTexture(overlay.SlotBrowser); ok {
//		// draw view
//	}
//
// A shared handle is trusted only while the device's adapter matches the
// adapter the handle was created on and no producer has reported the handle
// as unusable. Otherwise the slot falls back to its private texture.
package surface
