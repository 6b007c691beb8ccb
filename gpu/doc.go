// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gpu provides the GPU context and reference-counted surface
// handles used by pixel references.
//
// A Context wraps a backend Device (see gpu/memdev and gpu/wgpudev) and
// allocates surfaces from it. A surface is GPU-resident image memory seen
// through up to two views:
//
//   - *Texture: a sampleable view, the source of device-side copies
//   - *RenderTarget: a draw destination, the target of device-side copies
//
// Both views of one surface share a single reference count. The backend
// image is destroyed exactly once, when the last reference is dropped.
//
// # Ownership
//
// Every constructor returns a surface holding one reference owned by the
// caller. Holders call Ref to share and Unref to release:
//
//	tex, err := ctx.CreateUncachedTexture(gpu.TextureDesc{
//	    Width:  256,
//	    Height: 256,
//	    Format: gputypes.TextureFormatRGBA8Unorm,
//	    Flags:  gpu.TextureFlagRenderTarget | gpu.TextureFlagNoStencil,
//	})
//	if err != nil {
//	    return err
//	}
//	defer tex.Unref()
//
// # Read-back
//
// Surface.ReadPixels transfers a region of the surface into CPU memory,
// converting from the surface's native format to the requested layout.
// Region bounds are validated by the device, not by callers.
package gpu
