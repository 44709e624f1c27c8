// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package d3d11 implements the d3d interfaces over native Direct3D 11 COM
// objects.
//
// Calls go through the vtables directly with syscall.SyscallN. Every
// wrapper is a value type holding one interface pointer, so wrappers of the
// same object compare equal and the compositor can detect a device change
// by comparing d3d.Device values.
//
// Importing the package registers the "d3d11" backend:
//
//	import _ "github.com/gogpu/overlay/d3d/d3d11"
//
// Hosts that already own a device wrap it instead:
//
//	sc, err := d3d11.WrapSwapChain(swapChainPtr)
//	if err != nil {
//		return err
//	}
//	defer sc.Release()
//	err = driver.Frame(sc)
//
// On other platforms the package is empty.
package d3d11
