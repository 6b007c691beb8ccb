// Package pixelref provides pixel references: shared handles that hand out
// CPU-addressable pixels for an image whose authoritative copy may live
// somewhere else, typically in GPU memory.
//
// # Overview
//
// A [Bitmap] describes a CPU pixel buffer (config, size, row stride) and
// borrows its memory from a [PixelRef]. Pixel refs come in three kinds:
//
//   - [MallocPixelRef]: heap memory owned by the ref, writable.
//   - [ReadOnlyLazyPixelRef]: pixels produced on demand by a [PixelSource]
//     every time they are locked, and discarded on unlock.
//   - [GPUPixelRef]: wraps a reference-counted GPU surface. Locking reads the
//     surface back into CPU memory; [GPUPixelRef.DeepCopy] duplicates the
//     surface on the device without a CPU round-trip.
//
// # Quick Start
//
//	dev := memdev.New()
//	ctx, _ := gpu.NewContext(dev)
//	tex, _ := ctx.CreateUncachedTexture(gpu.TextureDesc{
//	    Width: 64, Height: 64,
//	    Format: gputypes.TextureFormatRGBA8Unorm,
//	    Flags:  gpu.TextureFlagRenderTarget,
//	})
//
//	ref := pixelref.NewGPUPixelRef(tex)
//	tex.Unref() // ref holds its own reference
//
//	if pix := ref.LockPixels(); pix != nil {
//	    // pix is a fresh RGBA8888 read-back of the surface.
//	    ref.UnlockPixels()
//	}
//	ref.Unref()
//
// # Reference Counting
//
// Pixel refs and GPU surfaces are shared through explicit Ref/Unref calls.
// The creator holds the first reference. A GPUPixelRef takes its own
// reference to the surface it wraps and releases it exactly once, when
// the pixel ref's count drops to zero.
//
// # Locking
//
// Pixel access goes through LockPixels/UnlockPixels. Lazy and GPU refs
// lock on a per-instance mutex, so producing one ref's pixels may lock any
// other ref. Locking a lazy ref from inside its own PixelSource deadlocks.
//
// # Failure Reporting
//
// Pixel refs report failure as nil or false. The underlying cause is
// logged through the logger configured with [SetLogger].
package pixelref
