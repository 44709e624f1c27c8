// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package quad

import (
	"math"
	"testing"

	"github.com/gogpu/overlay"
)

const eps = 1e-4

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < eps
}

func nearVec(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !near(a[i], b[i]) {
			return false
		}
	}
	return true
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   uint8
		want float32
	}{
		{0, 0},
		{128, 0.50196},
		{255, 1},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); !near(got, tt.want) {
			t.Errorf("Normalize(%d) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestUnpackARGB(t *testing.T) {
	tests := []struct {
		in   uint32
		want [4]float32
	}{
		{0xff000000, [4]float32{0, 0, 0, 1}},
		{0xffff0000, [4]float32{1, 0, 0, 1}},
		{0xff0000ff, [4]float32{0, 0, 1, 1}},
		{0x8000ff00, [4]float32{0, 1, 0, 0.50196}},
		{0x00000000, [4]float32{0, 0, 0, 0}},
	}
	for _, tt := range tests {
		if got := UnpackARGB(tt.in); !nearVec(got[:], tt.want[:]) {
			t.Errorf("UnpackARGB(%#08x) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPixelToClip(t *testing.T) {
	tests := []struct {
		x, y float32
		want [4]float32
	}{
		{0, 0, [4]float32{-1, 1, 0, 1}},
		{800, 600, [4]float32{1, -1, 0, 1}},
		{400, 300, [4]float32{0, 0, 0, 1}},
		{200, 450, [4]float32{-0.5, -0.5, 0, 1}},
	}
	for _, tt := range tests {
		if got := PixelToClip(tt.x, tt.y, 800, 600); !nearVec(got[:], tt.want[:]) {
			t.Errorf("PixelToClip(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestStripOrder(t *testing.T) {
	c := [4]float32{1, 1, 1, 0.5}
	s := Strip(600, 0, 200, 150, c, 800, 600)

	wantPos := [][2]float32{
		{0.5, 1},   // top-left
		{0.5, 0.5}, // bottom-left
		{1, 1},     // top-right
		{1, 0.5},   // bottom-right
	}
	wantUV := [][2]float32{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	for i, v := range s {
		if !nearVec(v.Pos[:2], wantPos[i][:]) {
			t.Errorf("vertex %d pos = %v, want %v", i, v.Pos, wantPos[i])
		}
		if v.UV != wantUV[i] {
			t.Errorf("vertex %d uv = %v, want %v", i, v.UV, wantUV[i])
		}
		if v.Color != c {
			t.Errorf("vertex %d color = %v", i, v.Color)
		}
		if v.Pos[2] != 0 || v.Pos[3] != 1 {
			t.Errorf("vertex %d zw = %v", i, v.Pos[2:])
		}
	}
}

func TestIndicatorGeometry(t *testing.T) {
	vp := IndicatorViewport()
	if vp.Width != 18 || vp.Height != 18 || vp.TopLeftX != 0 || vp.TopLeftY != 0 || vp.MaxDepth != 1 {
		t.Fatalf("indicator viewport = %+v", vp)
	}

	// Square corners at 2.5 and 16.5 pixels inside an 18 pixel viewport.
	lo, hi := float32(2*2.5/18-1), float32(2*16.5/18-1)

	fill := IndicatorFill(overlay.StatusRecording.Color())
	wantFill := [][2]float32{{lo, -lo}, {hi, -lo}, {lo, -hi}, {hi, -hi}}
	for i, v := range fill {
		if !nearVec(v.Pos[:2], wantFill[i][:]) {
			t.Errorf("fill %d pos = %v, want %v", i, v.Pos[:2], wantFill[i])
		}
		if v.Color != UnpackARGB(overlay.StatusRecording.Color()) {
			t.Errorf("fill %d color = %v", i, v.Color)
		}
	}

	border := IndicatorBorder()
	if border[0] != border[4] {
		t.Error("border outline is not closed")
	}
	wantBorder := [][2]float32{{lo, -lo}, {hi, -lo}, {hi, -hi}, {lo, -hi}}
	for i, want := range wantBorder {
		if !nearVec(border[i].Pos[:2], want[:]) {
			t.Errorf("border %d pos = %v, want %v", i, border[i].Pos[:2], want)
		}
		if border[i].Color != [4]float32{0, 0, 0, 1} {
			t.Errorf("border %d color = %v", i, border[i].Color)
		}
	}
}

func TestPackVertices(t *testing.T) {
	s := Strip(1, 2, 3, 4, [4]float32{0.1, 0.2, 0.3, 0.4}, 10, 10)
	buf := make([]byte, len(s)*VertexStride)
	if n := PackVertices(buf, s[:]); n != 4*VertexStride {
		t.Fatalf("PackVertices wrote %d bytes, want %d", n, 4*VertexStride)
	}
	got := UnpackVertices(buf)
	for i := range s {
		if got[i] != s[i] {
			t.Errorf("vertex %d = %+v, want %+v", i, got[i], s[i])
		}
	}
	// Colour of vertex 1 starts 16 bytes into its record.
	if b := buf[VertexStride+16 : VertexStride+20]; b[0] != 0xcd || b[3] != 0x3d {
		t.Errorf("vertex 1 red bytes = % x, want little-endian 0.1", b)
	}
}

func TestInputLayout(t *testing.T) {
	l := InputLayout()
	names := []string{"POSITION", "COLOR", "TEXCOORD"}
	if len(l) != len(names) {
		t.Fatalf("layout has %d elements", len(l))
	}
	for i, e := range l {
		if e.SemanticName != names[i] {
			t.Errorf("element %d = %s, want %s", i, e.SemanticName, names[i])
		}
	}
	l[0].SemanticName = "X"
	if InputLayout()[0].SemanticName != "POSITION" {
		t.Error("InputLayout returned shared storage")
	}
}
