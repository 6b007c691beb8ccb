// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// MaxTextureDimension is the largest width or height a descriptor may use.
// Matches the typical GPU texture limit.
const MaxTextureDimension = 16384

// TextureFlags describe how a surface is allocated.
type TextureFlags uint8

const (
	// TextureFlagNone allocates a plain sampleable texture.
	TextureFlagNone TextureFlags = 0

	// TextureFlagRenderTarget also gives the surface a render target view.
	TextureFlagRenderTarget TextureFlags = 1 << 0

	// TextureFlagNoStencil skips the stencil attachment of the render target.
	TextureFlagNoStencil TextureFlags = 1 << 1
)

// Has reports whether all bits of flag are set.
func (f TextureFlags) Has(flag TextureFlags) bool {
	return f&flag == flag
}

// TextureDesc describes a surface to allocate.
// TextureDesc is comparable and used as the scratch cache key.
type TextureDesc struct {
	// Width is the surface width in pixels.
	Width int

	// Height is the surface height in pixels.
	Height int

	// Format is the device-native pixel format.
	Format gputypes.TextureFormat

	// Flags select render target capability and stencil.
	Flags TextureFlags

	// Label is an optional debug label.
	Label string
}

// Usage maps the descriptor flags to WebGPU texture usage bits.
// Every surface can be copied from, copied to and sampled.
func (d TextureDesc) Usage() gputypes.TextureUsage {
	usage := gputypes.TextureUsageCopySrc |
		gputypes.TextureUsageCopyDst |
		gputypes.TextureUsageTextureBinding
	if d.Flags.Has(TextureFlagRenderTarget) {
		usage |= gputypes.TextureUsageRenderAttachment
	}
	return usage
}

// SizeBytes returns the tightly packed size of the surface in bytes.
func (d TextureDesc) SizeBytes() uint64 {
	//nolint:gosec // G115: dimensions are validated positive and bounded
	return uint64(d.Width) * uint64(d.Height) * uint64(BytesPerPixel(d.Format))
}

// Validate checks dimensions and format.
func (d TextureDesc) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDescriptor, d.Width, d.Height)
	}
	if d.Width > MaxTextureDimension || d.Height > MaxTextureDimension {
		return fmt.Errorf("%w: %dx%d exceeds %d", ErrInvalidDescriptor,
			d.Width, d.Height, MaxTextureDimension)
	}
	if BytesPerPixel(d.Format) == 0 {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, d.Format)
	}
	return nil
}
