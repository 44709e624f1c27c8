// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package compositor drives overlay composition once per presented frame.
//
// A Driver is created by whatever owns the host's present path and is
// handed the swap chain on every Present:
//
//	d := compositor.New(
//	    compositor.WithProducer(mailbox),
//	    compositor.WithRegistrar(hub),
//	    compositor.WithOverlayState(hub),
//	)
//	defer d.Shutdown()
//
//	// inside the present hook
//	if err := d.Frame(swapChain); err != nil {
//	    log.Print(err)
//	}
//
// The first frame observed on a device builds the surface pool, the quad
// renderer and the indicator textures. Every frame then refreshes overlay
// content, saves the host pipeline, draws and restores it before Frame
// returns.
package compositor
