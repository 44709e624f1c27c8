// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

// Option configures a Pool.
type Option func(*poolOptions)

type poolOptions struct {
	shared       bool
	incompatible IncompatibleChecker
}

func defaultPoolOptions() poolOptions {
	return poolOptions{shared: true}
}

// WithShared enables or disables shareable textures. With sharing disabled
// every slot is private-only and producers must deliver CPU frames.
func WithShared(enabled bool) Option {
	return func(o *poolOptions) {
		o.shared = enabled
	}
}

// WithIncompatibleChecker installs the source of producer reports about
// shared handles they could not open.
func WithIncompatibleChecker(c IncompatibleChecker) Option {
	return func(o *poolOptions) {
		o.incompatible = c
	}
}
