// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package indicator

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/overlay"
)

// Labels are the default indicator captions.
var Labels = [overlay.IndicatorCount]string{
	overlay.IndicatorRecording:        "REC",
	overlay.IndicatorRecordingStopped: "REC stopped",
	overlay.IndicatorStreaming:        "LIVE",
	overlay.IndicatorStreamingStopped: "LIVE ended",
	overlay.IndicatorBookmark:         "Bookmark",
	overlay.IndicatorClipSaved:        "Clip saved",
	overlay.IndicatorScreenshot:       "Screenshot",
}

// Palette holds the 0xAARRGGBB background of every indicator kind.
var Palette = [overlay.IndicatorCount]uint32{
	overlay.IndicatorRecording:        0xe0c62828,
	overlay.IndicatorRecordingStopped: 0xe0424242,
	overlay.IndicatorStreaming:        0xe06a1b9a,
	overlay.IndicatorStreamingStopped: 0xe0424242,
	overlay.IndicatorBookmark:         0xe01565c0,
	overlay.IndicatorClipSaved:        0xe02e7d32,
	overlay.IndicatorScreenshot:       0xe000838f,
}

// ARGB converts a 0xAARRGGBB value to a straight-alpha colour.
func ARGB(c uint32) color.NRGBA {
	return color.NRGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: uint8(c >> 24)}
}

// Labeler renders text indicators.
type Labeler struct {
	face    font.Face
	measure *measurer
	size    float64
	padding int
}

// NewLabeler parses ttf (the Go Bold font when nil) at size pixels.
func NewLabeler(ttf []byte, size float64) (*Labeler, error) {
	if ttf == nil {
		ttf = gobold.TTF
	}
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("indicator: parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("indicator: create face: %w", err)
	}
	m, err := newMeasurer(ttf)
	if err != nil {
		_ = face.Close()
		return nil, fmt.Errorf("indicator: parse font for shaping: %w", err)
	}
	return &Labeler{face: face, measure: m, size: size, padding: int(math.Ceil(size / 2))}, nil
}

// Close releases the font face.
func (l *Labeler) Close() error {
	return l.face.Close()
}

// Width returns the shaped advance of text in pixels.
func (l *Labeler) Width(text string) float64 {
	return l.measure.advance(text, l.size)
}

// Render draws text in fg on a bg box sized to the shaped text plus
// padding. Colours are 0xAARRGGBB.
func (l *Labeler) Render(text string, bg, fg uint32) *image.NRGBA {
	m := l.face.Metrics()
	ascent := m.Ascent.Ceil()
	height := ascent + m.Descent.Ceil() + 2*l.padding

	// The drawer advances by unshaped glyph widths; take the wider of the
	// two so nothing is clipped.
	textWidth := math.Max(l.Width(text), float64(font.MeasureString(l.face, text).Ceil()))
	width := int(math.Ceil(textWidth)) + 2*l.padding

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(ARGB(bg)), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(ARGB(fg)),
		Face: l.face,
		Dot:  fixed.P(l.padding, l.padding+ascent),
	}
	d.DrawString(text)
	return dst
}

// DefaultImages renders the default caption of every kind into a new
// ImageSet.
func DefaultImages(l *Labeler) (*ImageSet, error) {
	set := NewImageSet()
	for kind := overlay.Indicator(0); kind < overlay.IndicatorCount; kind++ {
		if err := set.Set(kind, l.Render(Labels[kind], Palette[kind], 0xffffffff)); err != nil {
			return nil, err
		}
	}
	return set, nil
}
