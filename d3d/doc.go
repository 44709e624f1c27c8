// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package d3d describes the Direct3D 11 object model the overlay compositor
// draws through: a [Device] that creates reference-counted child objects and
// an immediate [Context] whose bindable pipeline state can be read back and
// reapplied.
//
// The interfaces follow D3D11 ownership rules. Every object returned by a
// Create method or a Get method carries one reference owned by the caller,
// and every Set method takes its own reference on the objects it binds.
// Nil entries in getter results mean the slot was empty.
//
// Two backends implement the interfaces:
//   - d3d11: the native COM backend used when the compositor runs inside a
//     host process's present call (Windows only)
//   - halctx: an emulated immediate context over gogpu/wgpu's HAL, used for
//     headless rendering and on non-Windows hosts
//
// Backends register themselves with [Register]; [NewDevice] opens the
// highest priority backend that reports itself available.
package d3d
