// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package indicator

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/gogpu/overlay"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xff})
	img.SetNRGBA(2, 1, color.NRGBA{R: 0xaa, G: 0xbb, B: 0xcc, A: 0x80})
	return img
}

func nearPixel(got, want []byte) bool {
	if len(got) != len(want) || got[3] != want[3] {
		return false
	}
	for i := 0; i < 3; i++ {
		if !near(got[i], want[i]) {
			return false
		}
	}
	return true
}

func TestToBGRA(t *testing.T) {
	b := ToBGRA(testImage())
	if b.Width != 3 || b.Height != 2 || b.Stride != 12 {
		t.Fatalf("bitmap = %dx%d stride %d", b.Width, b.Height, b.Stride)
	}
	if got := b.Pix[0:4]; !bytes.Equal(got, []byte{0x33, 0x22, 0x11, 0xff}) {
		t.Errorf("pixel (0,0) = % x", got)
	}
	// Straight alpha survives, give or take premultiplied rounding.
	if got := b.Pix[12+8 : 12+12]; !nearPixel(got, []byte{0xcc, 0xbb, 0xaa, 0x80}) {
		t.Errorf("pixel (2,1) = % x", got)
	}
}

func TestToBGRAOffsetBounds(t *testing.T) {
	src := testImage().SubImage(image.Rect(2, 1, 3, 2))
	b := ToBGRA(src)
	if b.Width != 1 || b.Height != 1 {
		t.Fatalf("size = %dx%d", b.Width, b.Height)
	}
	if !nearPixel(b.Pix, []byte{0xcc, 0xbb, 0xaa, 0x80}) {
		t.Errorf("pixel = % x", b.Pix)
	}
}

func TestDecode(t *testing.T) {
	opaque := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range opaque.Pix {
		opaque.Pix[i] = 0xff
	}
	opaque.Set(1, 1, color.RGBA{R: 0xff, A: 0xff})

	var bmpBuf, pngBuf bytes.Buffer
	if err := bmp.Encode(&bmpBuf, opaque); err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(&pngBuf, opaque); err != nil {
		t.Fatal(err)
	}

	for name, tc := range map[string]struct {
		data   []byte
		format string
	}{
		"bmp": {bmpBuf.Bytes(), "BMP"},
		"png": {pngBuf.Bytes(), "png"},
	} {
		t.Run(name, func(t *testing.T) {
			img, err := Decode(bytes.NewReader(tc.data), tc.format)
			if err != nil {
				t.Fatal(err)
			}
			if img.Bounds().Dx() != 4 {
				t.Errorf("width = %d", img.Bounds().Dx())
			}
			r, g, _, _ := img.At(1, 1).RGBA()
			if r>>8 != 0xff || g != 0 {
				t.Errorf("pixel (1,1) = %v", img.At(1, 1))
			}
		})
	}

	if _, err := Decode(bytes.NewReader([]byte("nope")), "bmp"); err == nil {
		t.Error("garbage decoded as bmp")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookmark.bmp")
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, testImage()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	img, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Errorf("bounds = %v", img.Bounds())
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("missing file loaded")
	}
}

func TestScale(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := range src.Pix {
		src.Pix[i] = 0x80
	}
	dst := Scale(src, 8, 6)
	if dst.Bounds() != image.Rect(0, 0, 8, 6) {
		t.Fatalf("bounds = %v", dst.Bounds())
	}
	if c := dst.NRGBAAt(4, 3); c.A == 0 {
		t.Errorf("scaled pixel empty: %v", c)
	}
}

func TestImageSetFlags(t *testing.T) {
	s := NewImageSet()
	if s.Pending() {
		t.Fatal("new set pending")
	}
	if err := s.Set(overlay.IndicatorScreenshot, testImage()); err != nil {
		t.Fatal(err)
	}
	if !s.Updated(overlay.IndicatorScreenshot) || !s.Pending() {
		t.Error("Set did not mark the kind updated")
	}
	if s.Updated(overlay.IndicatorBookmark) {
		t.Error("unrelated kind marked updated")
	}
	s.ClearUpdated(overlay.IndicatorScreenshot)
	if s.Pending() {
		t.Error("ClearUpdated left the set pending")
	}

	if err := s.Set(overlay.IndicatorCount, testImage()); err == nil {
		t.Error("invalid kind accepted")
	}
	if _, err := s.Lock(overlay.IndicatorBookmark); err == nil {
		t.Error("locked an empty kind")
	}
}

func TestImageSetConcurrentSet(t *testing.T) {
	s := NewImageSet()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.SetBitmap(overlay.IndicatorRecording, solid(2, 2, byte(j), 0, 0, 0xff))
			}
		}()
	}
	for j := 0; j < 50; j++ {
		if b, err := s.Lock(overlay.IndicatorRecording); err == nil {
			if len(b.Pix) != 16 {
				t.Errorf("torn bitmap of %d bytes", len(b.Pix))
			}
			s.Unlock(overlay.IndicatorRecording)
		}
	}
	wg.Wait()
}
