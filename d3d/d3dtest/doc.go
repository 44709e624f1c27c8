// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package d3dtest provides an in-memory d3d.Device and d3d.Context for
// tests. Every object tracks its reference count and every device or
// context method increments a shared call counter, so tests can assert
// reference balance and "no GPU calls" conditions without a GPU.
package d3dtest
