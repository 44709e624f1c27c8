// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package fbserver hands overlay frames from an out-of-process producer to
// the compositor.
//
// A Mailbox keeps the newest frame of every slot and is the compositor's
// surface.Producer. A Hub holds what the compositor published (the shared
// texture table and its adapter) and what producers reported back (shared
// handles they could not open, which overlay is visible). The Server
// connects the two to producers over a named pipe on Windows or a unix
// socket elsewhere.
//
// Messages are JSON envelopes framed by a 4-byte big-endian length:
//
//	hello         server -> client  shared handles and adapter LUID
//	frame         client -> server  slot, width, height, BGRA pixels
//	incompatible  client -> server  slot, handle, LUID the client failed to open
//	visibility    client -> server  slot, shown
package fbserver
