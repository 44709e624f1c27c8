// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package overlay is a state-preserving Direct3D 11 overlay compositor.
//
// # Overview
//
// The compositor runs inside a host application's present call. Each frame it
// saves the host's entire bindable pipeline state, draws a handful of 2D
// quads (browser overlays, notification popups and status indicators) onto
// the backbuffer, and restores the host's state exactly as it found it.
//
// Overlay pixels come from an external producer, either as CPU frames that
// are copied into private textures or by rendering directly into shared
// textures whose handles are published together with the adapter LUID.
//
// # Packages
//
//   - d3d: the device/context object model, backend registry and HRESULTs
//   - d3d/d3d11: native COM backend (Windows)
//   - d3d/halctx: emulated context over gogpu/wgpu HAL
//   - pipestate: pipeline snapshot and restore
//   - surface: overlay surface pool and shared handle registry
//   - quad: textured and solid quad renderer
//   - indicator: indicator texture manager and bitmap sources
//   - compositor: the per-frame driver
//   - fbserver: framebuffer hand-off, handle registration and IPC
//
// # Logging
//
// Nothing is logged by default. Install a logger with [SetLogger]; every
// sub-package logs through [Logger].
package overlay
