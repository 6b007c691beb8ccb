package pixelref

import (
	"fmt"
	"image"

	"github.com/gogpu/pixelref/gpu"
)

// copyToTexturePixelRef copies src into a new uncached render target of
// the same size in cfg and wraps it in a GPUPixelRef with policy.
// The copy never shares memory with src.
func copyToTexturePixelRef(src *gpu.Texture, cfg Config, policy SurfacePolicy) (*GPUPixelRef, error) {
	if src == nil {
		return nil, ErrNoTexture
	}
	ctx := src.Context()
	if ctx == nil {
		return nil, ErrNoContext
	}

	desc := gpu.TextureDesc{
		Width:  src.Width(),
		Height: src.Height(),
		Format: cfg.TextureFormat(),
		Flags:  gpu.TextureFlagRenderTarget | gpu.TextureFlagNoStencil,
		Label:  "pixelref-copy",
	}
	dst, err := ctx.CreateUncachedTexture(desc)
	if err != nil {
		return nil, fmt.Errorf("pixelref: allocate copy as %v: %w", cfg, err)
	}
	if err := ctx.CopyTexture(src, dst.AsRenderTarget()); err != nil {
		dst.Unref()
		return nil, err
	}
	if policy == SurfacePolicyPreferTexture {
		// Nothing renders into the copy.
		dst.ReleaseRenderTarget()
	}

	ref := NewGPUPixelRef(dst, WithSurfacePolicy(policy))
	dst.Unref()
	return ref, nil
}

// UploadBitmap creates an uncached texture holding the pixels of bm.
// flags select render target capability. The caller owns the returned
// reference.
func UploadBitmap(ctx *gpu.Context, bm *Bitmap, flags gpu.TextureFlags) (*gpu.Texture, error) {
	if bm == nil || bm.Empty() {
		return nil, ErrNilBitmap
	}
	format := bm.Config().TextureFormat()
	tex, err := ctx.CreateUncachedTexture(gpu.TextureDesc{
		Width:  bm.Width(),
		Height: bm.Height(),
		Format: format,
		Flags:  flags,
		Label:  "pixelref-upload",
	})
	if err != nil {
		return nil, err
	}

	if !bm.LockPixels() {
		tex.Unref()
		return nil, ErrNilBitmap
	}
	defer bm.UnlockPixels()

	rect := image.Rect(0, 0, bm.Width(), bm.Height())
	if err := tex.WritePixels(rect, format, bm.Pixels(), bm.RowBytes()); err != nil {
		tex.Unref()
		return nil, fmt.Errorf("pixelref: upload %dx%d %v: %w", bm.Width(), bm.Height(), bm.Config(), err)
	}
	return tex, nil
}
