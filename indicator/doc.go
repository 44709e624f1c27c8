// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package indicator keeps one GPU texture per notification indicator kind
// in sync with its source bitmap.
//
// A Source reports which kinds changed; Manager.RefreshDirty re-uploads
// only those. ImageSet is a ready-made Source fed from decoded images or
// from labels rendered with the Go fonts.
package indicator
