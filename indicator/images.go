// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package indicator

import (
	"fmt"
	"image"
	_ "image/png" // PNG indicator icons
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/gogpu/overlay"
)

// ImageSet is a Source backed by in-memory bitmaps. It is safe for
// concurrent use: producers call Set from any goroutine while the render
// thread refreshes textures.
type ImageSet struct {
	pix     [overlay.IndicatorCount]sync.Mutex
	mu      sync.Mutex
	bitmaps [overlay.IndicatorCount]Bitmap
	updated [overlay.IndicatorCount]bool
}

// NewImageSet returns an empty set.
func NewImageSet() *ImageSet {
	return &ImageSet{}
}

// Set converts img to BGRA and marks kind updated.
func (s *ImageSet) Set(kind overlay.Indicator, img image.Image) error {
	if !kind.Valid() {
		return fmt.Errorf("indicator: invalid kind %d", kind)
	}
	s.SetBitmap(kind, ToBGRA(img))
	return nil
}

// SetBitmap stores b for kind and marks it updated.
func (s *ImageSet) SetBitmap(kind overlay.Indicator, b Bitmap) {
	if !kind.Valid() {
		return
	}
	s.pix[kind].Lock()
	s.bitmaps[kind] = b
	s.pix[kind].Unlock()

	s.mu.Lock()
	s.updated[kind] = true
	s.mu.Unlock()
}

// Updated implements Source.
func (s *ImageSet) Updated(kind overlay.Indicator) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return kind.Valid() && s.updated[kind]
}

// ClearUpdated implements Source.
func (s *ImageSet) ClearUpdated(kind overlay.Indicator) {
	if !kind.Valid() {
		return
	}
	s.mu.Lock()
	s.updated[kind] = false
	s.mu.Unlock()
}

// Pending reports whether any kind is marked updated.
func (s *ImageSet) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.updated {
		if u {
			return true
		}
	}
	return false
}

// Lock implements Source. The returned bitmap stays valid until Unlock.
func (s *ImageSet) Lock(kind overlay.Indicator) (Bitmap, error) {
	if !kind.Valid() {
		return Bitmap{}, fmt.Errorf("indicator: invalid kind %d", kind)
	}
	s.pix[kind].Lock()
	b := s.bitmaps[kind]
	if b.Pix == nil {
		s.pix[kind].Unlock()
		return Bitmap{}, fmt.Errorf("%w: %s", ErrEmptyBitmap, kind)
	}
	return b, nil
}

// Unlock implements Source.
func (s *ImageSet) Unlock(kind overlay.Indicator) {
	if kind.Valid() {
		s.pix[kind].Unlock()
	}
}

// ToBGRA converts img into a tightly packed straight-alpha BGRA bitmap.
func ToBGRA(img image.Image) Bitmap {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	pix := dst.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}
	return Bitmap{Width: b.Dx(), Height: b.Dy(), Stride: dst.Stride, Pix: pix}
}

// Scale resamples img to width x height with Catmull-Rom filtering.
func Scale(img image.Image, width, height int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Decode reads a BMP or PNG indicator icon.
func Decode(r io.Reader, format string) (image.Image, error) {
	if strings.EqualFold(format, "bmp") {
		img, err := bmp.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("indicator: decode bmp: %w", err)
		}
		return img, nil
	}
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("indicator: decode image: %w", err)
	}
	return img, nil
}

// LoadFile decodes the icon at path, picking the decoder by extension.
func LoadFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("indicator: %w", err)
	}
	defer f.Close()
	return Decode(f, strings.TrimPrefix(filepath.Ext(path), "."))
}
