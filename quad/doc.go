// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package quad draws the overlay's screen-space quads onto a foreign
// backbuffer: textured quads for overlay and notification content, and the
// solid status indicator square with its outline.
//
// All geometry is converted from backbuffer pixels to clip space on the CPU
// and uploaded into small dynamic vertex buffers, so the vertex shader is a
// pass-through and needs no constant buffer.
package quad
