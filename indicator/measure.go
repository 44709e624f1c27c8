// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package indicator

import (
	"bytes"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/bidi"
)

// measurer shapes label text to find its advance width. Shaping applies
// kerning and ligatures, so the label box matches the drawn run.
type measurer struct {
	font   *font.Font
	shaper shaping.HarfbuzzShaper
}

func newMeasurer(ttf []byte) (*measurer, error) {
	face, err := font.ParseTTF(bytes.NewReader(ttf))
	if err != nil {
		return nil, err
	}
	return &measurer{font: face.Font}, nil
}

// isRTL reports whether text reads right to left as a paragraph.
func isRTL(text string) bool {
	p := bidi.Paragraph{}
	if _, err := p.SetString(text, bidi.DefaultDirection(bidi.Neutral)); err != nil {
		return false
	}
	ordering, err := p.Order()
	if err != nil || ordering.NumRuns() == 0 {
		return false
	}
	rtl := 0
	for i := 0; i < ordering.NumRuns(); i++ {
		r := ordering.Run(i)
		if r.Direction() == bidi.RightToLeft {
			rtl++
		}
	}
	return rtl*2 > ordering.NumRuns()
}

// advance returns the shaped width of text at size pixels.
func (m *measurer) advance(text string, size float64) float64 {
	runes := []rune(text)
	if len(runes) == 0 {
		return 0
	}
	dir := di.DirectionLTR
	if isRTL(text) {
		dir = di.DirectionRTL
	}
	script := language.Latin
	for _, r := range runes {
		if r != ' ' {
			script = language.LookupScript(r)
			break
		}
	}
	out := m.shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: dir,
		Face:      font.NewFace(m.font),
		Size:      fixed.Int26_6(size * 64),
		Script:    script,
		Language:  language.NewLanguage("en"),
	})
	var w fixed.Int26_6
	for _, g := range out.Glyphs {
		w += g.Advance
	}
	return float64(w) / 64
}
