// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import "github.com/gogpu/gputypes"

// BytesPerPixel is the size of one BGRA8 texel.
const BytesPerPixel = 4

// CopyRows copies a tightly packed width x height BGRA image into dst, whose
// rows are dstPitch bytes apart. Exactly width*4 bytes are written per row;
// padding between rows is left untouched. Rows that do not fit in either
// buffer are skipped.
func CopyRows(dst []byte, dstPitch int, src []byte, width, height int) {
	rowBytes := width * BytesPerPixel
	if dstPitch < rowBytes {
		return
	}
	for y := 0; y < height; y++ {
		so := y * rowBytes
		do := y * dstPitch
		if so+rowBytes > len(src) || do+rowBytes > len(dst) {
			return
		}
		copy(dst[do:do+rowBytes], src[so:so+rowBytes])
	}
}

// FrameSize returns the byte size of a tightly packed BGRA frame.
func FrameSize(width, height int) int {
	return width * height * BytesPerPixel
}

// TextureFormat picks the overlay texture format for a swap chain whose
// backbuffer uses format. sRGB backbuffers get an sRGB overlay so sampling
// and blending stay in the same colour space.
func TextureFormat(backbuffer gputypes.TextureFormat) gputypes.TextureFormat {
	if backbuffer == gputypes.TextureFormatRGBA8UnormSrgb || backbuffer == gputypes.TextureFormatBGRA8UnormSrgb {
		return gputypes.TextureFormatBGRA8UnormSrgb
	}
	return gputypes.TextureFormatBGRA8Unorm
}
