// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package d3d_test

import (
	"errors"
	"testing"

	"github.com/gogpu/overlay/d3d"
	"github.com/gogpu/overlay/d3d/d3dtest"
)

func fakeFactory(opts d3d.Options) (d3d.Device, error) {
	return d3dtest.NewDevice(), nil
}

func TestRegistryRegister(t *testing.T) {
	r := d3d.NewRegistry()
	r.Register("fake", 50, fakeFactory, nil)

	entry, ok := r.Get("fake")
	if !ok {
		t.Fatal("registered backend not found")
	}
	if entry.Name != "fake" || entry.Priority != 50 {
		t.Errorf("entry = %+v, want fake/50", entry)
	}
	if !entry.Available() {
		t.Error("nil Available func should mean always available")
	}

	r.Unregister("fake")
	if _, ok := r.Get("fake"); ok {
		t.Error("backend should not exist after unregister")
	}
}

func TestRegistryPrioritySelection(t *testing.T) {
	r := d3d.NewRegistry()

	var selected string
	r.Register("hal", 50, func(opts d3d.Options) (d3d.Device, error) {
		selected = "hal"
		return d3dtest.NewDevice(), nil
	}, nil)
	r.Register("d3d11", 100, func(opts d3d.Options) (d3d.Device, error) {
		selected = "d3d11"
		return d3dtest.NewDevice(), nil
	}, nil)

	if _, err := r.NewDevice(d3d.Options{}); err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	if selected != "d3d11" {
		t.Errorf("selected = %s, want d3d11", selected)
	}

	names := r.List()
	if len(names) != 2 || names[0] != "d3d11" || names[1] != "hal" {
		t.Errorf("List() = %v, want [d3d11 hal]", names)
	}
}

func TestRegistryFallsBackOnFactoryError(t *testing.T) {
	r := d3d.NewRegistry()
	failure := errors.New("no adapter")
	r.Register("broken", 100, func(d3d.Options) (d3d.Device, error) { return nil, failure }, nil)
	r.Register("fake", 10, fakeFactory, nil)

	dev, err := r.NewDevice(d3d.Options{})
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	if _, ok := dev.(*d3dtest.Device); !ok {
		t.Errorf("device = %T, want *d3dtest.Device", dev)
	}

	_, err = r.NewDeviceByName("broken", d3d.Options{})
	if !errors.Is(err, failure) {
		t.Errorf("NewDeviceByName(broken) = %v, want %v", err, failure)
	}
}

func TestRegistryUnavailable(t *testing.T) {
	r := d3d.NewRegistry()
	r.Register("off", 100, fakeFactory, func() bool { return false })

	if got := r.Available(); len(got) != 0 {
		t.Errorf("Available() = %v, want none", got)
	}
	if _, err := r.NewDevice(d3d.Options{}); !errors.Is(err, d3d.ErrNoBackend) {
		t.Errorf("NewDevice() = %v, want ErrNoBackend", err)
	}

	var unavailable *d3d.BackendUnavailableError
	if _, err := r.NewDeviceByName("off", d3d.Options{}); !errors.As(err, &unavailable) {
		t.Errorf("NewDeviceByName(off) = %v, want BackendUnavailableError", err)
	}
	var notFound *d3d.BackendNotFoundError
	if _, err := r.NewDeviceByName("missing", d3d.Options{}); !errors.As(err, &notFound) {
		t.Errorf("NewDeviceByName(missing) = %v, want BackendNotFoundError", err)
	}
}

func TestHRESULT(t *testing.T) {
	tests := []struct {
		hr      d3d.HRESULT
		failed  bool
		lost    bool
		message string
	}{
		{d3d.SOK, false, false, "d3d: HRESULT 0x00000000"},
		{d3d.EOutOfMemory, true, false, "d3d: E_OUTOFMEMORY (0x8007000e)"},
		{d3d.DXGIErrorDeviceRemoved, true, true, "d3d: DXGI_ERROR_DEVICE_REMOVED (0x887a0005)"},
		{d3d.HRESULT(0x80001234), true, false, "d3d: HRESULT 0x80001234"},
	}
	for _, tt := range tests {
		if got := tt.hr.Failed(); got != tt.failed {
			t.Errorf("%v.Failed() = %v, want %v", tt.hr, got, tt.failed)
		}
		if got := d3d.IsDeviceLost(tt.hr); got != tt.lost {
			t.Errorf("IsDeviceLost(%v) = %v, want %v", tt.hr, got, tt.lost)
		}
		if got := tt.hr.Error(); got != tt.message {
			t.Errorf("Error() = %q, want %q", got, tt.message)
		}
	}

	if err := d3d.Check(0x887A0005); !errors.Is(err, d3d.DXGIErrorDeviceRemoved) {
		t.Errorf("Check = %v, want DXGIErrorDeviceRemoved", err)
	}
	if err := d3d.Check(1); err != nil {
		t.Errorf("Check(S_FALSE) = %v, want nil", err)
	}
	if got := d3d.Code(errors.New("plain")); got != d3d.EFail {
		t.Errorf("Code(plain) = %v, want EFail", got)
	}
}

func TestLUID(t *testing.T) {
	if !(d3d.LUID{}).IsZero() {
		t.Error("zero LUID should report IsZero")
	}
	l := d3d.LUID{Low: 0xbeef, High: 1}
	if l.IsZero() {
		t.Error("non-zero LUID reported IsZero")
	}
	if got := l.String(); got != "00000001:0000beef" {
		t.Errorf("String() = %q", got)
	}
}
