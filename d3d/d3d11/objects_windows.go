// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

//go:build windows

package d3d11

import (
	"syscall"
	"unsafe"

	"github.com/gogpu/overlay/d3d"
)

// child wraps any device child without extra methods: views, shaders,
// states, input layouts and class instances. Wrappers are compared by
// value, so two wrappers of one COM object are equal.
type child struct{ unknown }

// Texture wraps an ID3D11Texture2D.
type Texture struct{ unknown }

// Desc implements d3d.Texture2D.
func (t Texture) Desc() d3d.TextureDesc {
	var n texture2DDesc
	syscall.SyscallN(t.method(slotResourceGetDesc), t.this(), uintptr(unsafe.Pointer(&n)))
	return n.desc()
}

// Buffer wraps an ID3D11Buffer.
type Buffer struct{ unknown }

// Desc implements d3d.Buffer.
func (b Buffer) Desc() d3d.BufferDesc {
	var n bufferDesc
	syscall.SyscallN(b.method(slotResourceGetDesc), b.this(), uintptr(unsafe.Pointer(&n)))
	return n.desc()
}

var (
	_ d3d.Texture2D          = Texture{}
	_ d3d.Buffer             = Buffer{}
	_ d3d.ShaderResourceView = child{}
)

// wrap turns an owned COM pointer into T, or T's zero value for 0.
// T's zero value is the untyped nil the d3d getters report for empty slots.
func wrap[T d3d.Object](p uintptr, mk func(unknown) T) T {
	var zero T
	if p == 0 {
		return zero
	}
	return mk(wrapUnknown(p))
}

func asTexture(u unknown) d3d.Texture2D { return Texture{u} }
func asBuffer(u unknown) d3d.Buffer     { return Buffer{u} }

// typed wraps u as one of the d3d marker interfaces.
func typed[T d3d.Object](u unknown) T {
	return any(child{u}).(T)
}
