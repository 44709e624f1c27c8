// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package d3d

import (
	"errors"
	"fmt"
)

// HRESULT is a COM status code. Failure codes implement error so they can
// be wrapped and matched with errors.Is.
type HRESULT uint32

// Well-known status codes.
const (
	SOK                      HRESULT = 0x00000000
	ENotImpl                 HRESULT = 0x80004001
	ENoInterface             HRESULT = 0x80004002
	EPointer                 HRESULT = 0x80004003
	EFail                    HRESULT = 0x80004005
	EOutOfMemory             HRESULT = 0x8007000E
	EInvalidArg              HRESULT = 0x80070057
	DXGIErrorInvalidCall     HRESULT = 0x887A0001
	DXGIErrorNotFound        HRESULT = 0x887A0002
	DXGIErrorUnsupported     HRESULT = 0x887A0004
	DXGIErrorDeviceRemoved   HRESULT = 0x887A0005
	DXGIErrorDeviceHung      HRESULT = 0x887A0006
	DXGIErrorDeviceReset     HRESULT = 0x887A0007
	DXGIErrorWasStillDrawing HRESULT = 0x887A000A
	DXGIErrorDriverInternal  HRESULT = 0x887A0020
	D3DDDIErrDeviceRemoved   HRESULT = 0x88760870
)

var hresultNames = map[HRESULT]string{
	ENotImpl:                 "E_NOTIMPL",
	ENoInterface:             "E_NOINTERFACE",
	EPointer:                 "E_POINTER",
	EFail:                    "E_FAIL",
	EOutOfMemory:             "E_OUTOFMEMORY",
	EInvalidArg:              "E_INVALIDARG",
	DXGIErrorInvalidCall:     "DXGI_ERROR_INVALID_CALL",
	DXGIErrorNotFound:        "DXGI_ERROR_NOT_FOUND",
	DXGIErrorUnsupported:     "DXGI_ERROR_UNSUPPORTED",
	DXGIErrorDeviceRemoved:   "DXGI_ERROR_DEVICE_REMOVED",
	DXGIErrorDeviceHung:      "DXGI_ERROR_DEVICE_HUNG",
	DXGIErrorDeviceReset:     "DXGI_ERROR_DEVICE_RESET",
	DXGIErrorWasStillDrawing: "DXGI_ERROR_WAS_STILL_DRAWING",
	DXGIErrorDriverInternal:  "DXGI_ERROR_DRIVER_INTERNAL_ERROR",
	D3DDDIErrDeviceRemoved:   "D3DDDIERR_DEVICEREMOVED",
}

// Failed reports whether hr has the severity bit set.
func (hr HRESULT) Failed() bool { return hr&0x80000000 != 0 }

// Error implements error.
func (hr HRESULT) Error() string {
	if name, ok := hresultNames[hr]; ok {
		return fmt.Sprintf("d3d: %s (0x%08x)", name, uint32(hr))
	}
	return fmt.Sprintf("d3d: HRESULT 0x%08x", uint32(hr))
}

// Check converts a raw status into an error, or nil on success.
func Check(hr uintptr) error {
	code := HRESULT(uint32(hr))
	if code.Failed() {
		return code
	}
	return nil
}

// Code extracts the HRESULT from err. Errors that carry no code report EFail.
func Code(err error) HRESULT {
	if err == nil {
		return SOK
	}
	var hr HRESULT
	if errors.As(err, &hr) {
		return hr
	}
	return EFail
}

// IsDeviceLost reports whether err means the device must be recreated.
func IsDeviceLost(err error) bool {
	switch Code(err) {
	case DXGIErrorDeviceRemoved, DXGIErrorDeviceReset, DXGIErrorDeviceHung, D3DDDIErrDeviceRemoved:
		return true
	}
	return false
}

// Sentinel errors shared by backends.
var (
	// ErrSharingUnsupported is returned by SharedHandle on backends that
	// cannot export textures across processes.
	ErrSharingUnsupported = errors.New("d3d: shared textures not supported by this backend")

	// ErrNoBackend is returned by NewDevice when no registered backend is
	// available.
	ErrNoBackend = errors.New("d3d: no backend available")

	// ErrNotMappable is returned by Map for resources without CPU access.
	ErrNotMappable = errors.New("d3d: resource is not CPU accessible")
)
