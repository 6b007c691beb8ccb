// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"image"

	"github.com/gogpu/gputypes"
)

// Device is the backend that owns GPU memory.
//
// Implementations:
//   - memdev.Device keeps images in host memory (headless, tests)
//   - wgpudev.Device allocates real textures through gogpu/wgpu
//
// A Context serializes nothing on behalf of the device; implementations
// must be safe for concurrent use.
type Device interface {
	// Name returns a short backend name for diagnostics.
	Name() string

	// CreateImage allocates an image for desc. desc has been validated.
	CreateImage(desc TextureDesc) (Image, error)

	// CopyImage copies the top-left width x height pixels of src into dst,
	// converting formats if they differ.
	CopyImage(src, dst Image, width, height int) error

	// ReadImage reads rect of img into dst using the given pixel layout.
	// Rows in dst are rowBytes apart. rect must lie within the image;
	// devices return ErrRegionOutOfBounds otherwise.
	ReadImage(img Image, rect image.Rectangle, layout gputypes.TextureFormat, dst []byte, rowBytes int) error

	// IsLost reports whether the device can no longer execute work.
	IsLost() bool
}

// Image is device memory backing one surface.
type Image interface {
	// Width returns the image width in pixels.
	Width() int

	// Height returns the image height in pixels.
	Height() int

	// Format returns the native pixel format.
	Format() gputypes.TextureFormat

	// Destroy releases device memory. Called exactly once by the context.
	Destroy()
}

// Uploader is implemented by devices that can write CPU pixels into an
// image. Surfaces on devices without it reject WritePixels.
type Uploader interface {
	// WriteImage writes src, laid out in layout with rows rowBytes apart,
	// into rect of img.
	WriteImage(img Image, rect image.Rectangle, layout gputypes.TextureFormat, src []byte, rowBytes int) error
}
