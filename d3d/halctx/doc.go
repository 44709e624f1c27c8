// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package halctx implements the d3d interfaces on top of gogpu/wgpu's HAL.
//
// HAL devices have no immediate context and no mutable pipeline state, so
// the backend keeps every D3D11 binding in software and translates each
// Draw into a WebGPU render pipeline (cached by shader, layout, topology,
// blend and target format) plus a single load-and-store render pass.
// Shaders are compiled from WGSL to SPIR-V with naga.
//
// Devices come from three places:
//
//	dev := halctx.New(halDevice, halQueue, adapterInfo) // existing HAL objects
//	dev, err := halctx.FromProvider(provider)          // a gpucontext.DeviceProvider
//	dev, err := halctx.Open(d3d.Options{})              // standalone
//
// Importing the package registers the "hal" backend with the d3d registry.
// Texture sharing across processes is not available; SharedHandle always
// returns d3d.ErrSharingUnsupported.
package halctx
