// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package compositor

import (
	"log/slog"

	"github.com/gogpu/overlay/indicator"
	"github.com/gogpu/overlay/surface"
)

// Option configures a Driver.
type Option func(*options)

type options struct {
	producer      surface.Producer
	incompatible  surface.IncompatibleChecker
	registrar     Registrar
	state         OverlayState
	indicators    indicator.Source
	indicatorFunc IndicatorFunc
	inputHook     InputHook
	status        StatusFunc
	notifications bool
	shared        bool
	logger        *slog.Logger
}

func defaultOptions() options {
	return options{
		notifications: true,
		shared:        true,
	}
}

// WithProducer sets where overlay slot frames come from.
func WithProducer(p surface.Producer) Option {
	return func(o *options) {
		o.producer = p
	}
}

// WithIncompatibleChecker installs the source of producer reports about
// shared handles they failed to open.
func WithIncompatibleChecker(c surface.IncompatibleChecker) Option {
	return func(o *options) {
		o.incompatible = c
	}
}

// WithRegistrar sets who is told about the shared texture table.
func WithRegistrar(r Registrar) Option {
	return func(o *options) {
		o.registrar = r
	}
}

// WithOverlayState sets the visibility source. Without one nothing but
// indicators is drawn.
func WithOverlayState(s OverlayState) Option {
	return func(o *options) {
		o.state = s
	}
}

// WithIndicatorSource sets the bitmaps behind indicator textures.
func WithIndicatorSource(src indicator.Source) Option {
	return func(o *options) {
		o.indicators = src
	}
}

// WithIndicatorFunc sets the per-frame transient indicator callback.
func WithIndicatorFunc(fn IndicatorFunc) Option {
	return func(o *options) {
		o.indicatorFunc = fn
	}
}

// WithInputHook sets the per-frame input callback.
func WithInputHook(fn InputHook) Option {
	return func(o *options) {
		o.inputHook = fn
	}
}

// WithStatus enables the square status indicator.
func WithStatus(fn StatusFunc) Option {
	return func(o *options) {
		o.status = fn
	}
}

// WithNotifications enables or disables the notification slot regardless
// of what the overlay state reports. Enabled by default.
func WithNotifications(enabled bool) Option {
	return func(o *options) {
		o.notifications = enabled
	}
}

// WithShared enables or disables shared overlay textures.
func WithShared(enabled bool) Option {
	return func(o *options) {
		o.shared = enabled
	}
}

// WithLogger sets the driver's logger. Without one the package-level
// overlay logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
