// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpudev

import "time"

// DefaultMapTimeout bounds how long a read-back waits for the staging
// buffer to map.
const DefaultMapTimeout = 5 * time.Second

// Option configures a Device.
type Option func(*options)

type options struct {
	label      string
	mapTimeout time.Duration
	owned      bool
}

func defaultOptions() options {
	return options{
		label:      "wgpu",
		mapTimeout: DefaultMapTimeout,
	}
}

// WithLabel sets the device name and the prefix of GPU object labels.
func WithLabel(label string) Option {
	return func(o *options) {
		if label != "" {
			o.label = label
		}
	}
}

// WithMapTimeout sets the read-back map timeout.
// Non-positive values are ignored.
func WithMapTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.mapTimeout = d
		}
	}
}

// WithOwnership makes Release also release the underlying wgpu device.
func WithOwnership() Option {
	return func(o *options) {
		o.owned = true
	}
}
