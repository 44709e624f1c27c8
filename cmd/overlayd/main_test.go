// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/gogpu/overlay"
	"github.com/gogpu/overlay/d3d"
	"github.com/gogpu/overlay/d3d/d3dtest"
	"github.com/gogpu/overlay/internal/config"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name    string
		want    overlay.Status
		shown   bool
		wantErr bool
	}{
		{"", 0, false, false},
		{"none", 0, false, false},
		{"recording", overlay.StatusRecording, true, false},
		{"error", overlay.StatusError, true, false},
		{"bogus", 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, shown, err := parseStatus(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want || shown != tt.shown {
				t.Errorf("parseStatus(%q) = %v, %v; want %v, %v", tt.name, got, shown, tt.want, tt.shown)
			}
		})
	}
}

func TestBGRAConversion(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 40})
	src.SetNRGBA(1, 0, color.NRGBA{R: 50, G: 60, B: 70, A: 255})

	pix := toBGRA(src, 2, 1)
	want := []byte{30, 20, 10, 40, 70, 60, 50, 255}
	if !slices.Equal(pix, want) {
		t.Fatalf("toBGRA = %v, want %v", pix, want)
	}
	back := fromBGRA(pix, 2, 1)
	if !slices.Equal(back.Pix, src.Pix) {
		t.Errorf("fromBGRA = %v, want %v", back.Pix, src.Pix)
	}
}

func TestToBGRAClipsSmallImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 4})
	pix := toBGRA(src, 2, 2)
	if len(pix) != 16 {
		t.Fatalf("len = %d, want 16", len(pix))
	}
	if !slices.Equal(pix[:4], []byte{3, 2, 1, 4}) || pix[4] != 0 || pix[15] != 0 {
		t.Errorf("pix = %v", pix)
	}
}

func TestTargetReferences(t *testing.T) {
	dev := d3dtest.NewDevice()
	tgt, err := newTarget(dev, 8, 4, nil)
	if err != nil {
		t.Fatalf("newTarget: %v", err)
	}

	desc, err := tgt.Desc()
	if err != nil || desc.Width != 8 || desc.Height != 4 {
		t.Fatalf("Desc = %+v, %v", desc, err)
	}

	d, _ := tgt.Device()
	if d != d3d.Device(dev) {
		t.Error("Device returned another device")
	}
	d.Release()
	bb, _ := tgt.Backbuffer()
	bb.Release()

	if _, err := tgt.Snapshot(); !errors.Is(err, errNoReadback) {
		t.Errorf("Snapshot err = %v, want errNoReadback", err)
	}

	tgt.Release()
	dev.Release()
	if leaked := dev.Leaked(); len(leaked) > 0 {
		t.Errorf("leaked: %v", leaked)
	}
}

func TestRenderHeadless(t *testing.T) {
	if !slices.Contains(d3d.AvailableBackends(), "hal") {
		t.Skip("no HAL backend")
	}
	cfg = config.Default()
	out := filepath.Join(t.TempDir(), "frame.png")

	err := render("hal", 64, 48, out, true, "recording", []string{"bookmark"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Errorf("bounds = %v, want 64x48", b)
	}
}

func TestRenderRejectsUnknownNames(t *testing.T) {
	cfg = config.Default()
	out := filepath.Join(t.TempDir(), "frame.png")
	if err := render("hal", 16, 16, out, false, "sleeping", nil); err == nil {
		t.Error("unknown status accepted")
	}
	if err := render("hal", 16, 16, out, false, "none", []string{"fireworks"}); err == nil {
		t.Error("unknown indicator accepted")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output written for rejected arguments: %v", err)
	}
}
