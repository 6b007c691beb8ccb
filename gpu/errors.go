// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import "errors"

// Errors returned by contexts, surfaces and devices.
var (
	// ErrNilDevice is returned when a context is created without a device.
	ErrNilDevice = errors.New("gpu: device is nil")

	// ErrInvalidDescriptor is returned for descriptors with non-positive
	// or oversized dimensions.
	ErrInvalidDescriptor = errors.New("gpu: invalid texture descriptor")

	// ErrUnsupportedFormat is returned when a pixel format cannot be
	// allocated or converted.
	ErrUnsupportedFormat = errors.New("gpu: unsupported pixel format")

	// ErrDeviceLost is returned when the device can no longer execute work.
	ErrDeviceLost = errors.New("gpu: device lost")

	// ErrContextClosed is returned when operating on a closed context.
	ErrContextClosed = errors.New("gpu: context closed")

	// ErrSurfaceReleased is returned when operating on a destroyed surface.
	ErrSurfaceReleased = errors.New("gpu: surface has been released")

	// ErrRegionOutOfBounds is returned when a read or copy region does not
	// lie within the surface.
	ErrRegionOutOfBounds = errors.New("gpu: region out of bounds")

	// ErrBufferTooSmall is returned when a destination buffer cannot hold
	// the requested region.
	ErrBufferTooSmall = errors.New("gpu: destination buffer too small")

	// ErrNotRenderTarget is returned when a copy destination has no
	// render target view.
	ErrNotRenderTarget = errors.New("gpu: surface is not a render target")

	// ErrNoTexture is returned when a copy source has no texture view.
	ErrNoTexture = errors.New("gpu: surface has no texture view")

	// ErrForeignSurface is returned when a surface from another context
	// is passed to a context operation.
	ErrForeignSurface = errors.New("gpu: surface belongs to another context")
)

// ErrUploadNotSupported is returned by WritePixels when the device does
// not implement Uploader.
var ErrUploadNotSupported = errors.New("gpu: device does not support uploads")
