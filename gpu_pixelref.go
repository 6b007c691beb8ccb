package pixelref

import (
	"image"

	"github.com/gogpu/pixelref/gpu"
	"github.com/gogpu/pixelref/internal/refcnt"
)

// GPUPixelRef is a read-only pixel ref over a GPU surface.
//
// Locking reads the whole surface back into an RGBA8888 buffer. Every lock
// issues a fresh read-back. DeepCopy duplicates the surface on the device.
//
// A GPUPixelRef holds one reference to its surface for its whole lifetime
// and releases it when its own last reference is dropped.
type GPUPixelRef struct {
	lazy    lazyPixels
	surface gpu.Surface
	policy  SurfacePolicy
	refs    *refcnt.Count
}

// NewGPUPixelRef returns a pixel ref over s and takes a reference to s.
// A nil surface yields an unbound ref whose pixels are never available.
func NewGPUPixelRef(s gpu.Surface, opts ...Option) *GPUPixelRef {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r := &GPUPixelRef{policy: o.policy}
	r.refs = refcnt.New(r.release)
	if isNilSurface(s) {
		return r
	}
	if o.policy == SurfacePolicyPreferTexture {
		if tex := s.AsTexture(); tex != nil {
			s = tex
		}
	}
	s.Ref()
	r.surface = s
	return r
}

// isNilSurface catches typed nil views stored in the interface. Other
// Surface implementations are caught when they provide a nil-safe IsNil.
func isNilSurface(s gpu.Surface) bool {
	switch v := s.(type) {
	case nil:
		return true
	case *gpu.Texture:
		return v == nil
	case *gpu.RenderTarget:
		return v == nil
	case interface{ IsNil() bool }:
		return v.IsNil()
	default:
		return false
	}
}

// Surface returns the held surface, or nil for an unbound ref.
func (r *GPUPixelRef) Surface() gpu.Surface { return r.surface }

// Policy returns the surface policy.
func (r *GPUPixelRef) Policy() SurfacePolicy { return r.policy }

// Config returns the config of locked pixels, always ConfigRGBA8888.
func (r *GPUPixelRef) Config() Config { return ConfigRGBA8888 }

// Texture returns the texture view of the held surface, or nil.
func (r *GPUPixelRef) Texture() *gpu.Texture {
	if r.surface == nil {
		return nil
	}
	return r.surface.AsTexture()
}

// LockPixels reads the surface back and returns the RGBA8888 pixels, or
// nil if the read-back fails.
func (r *GPUPixelRef) LockPixels() []byte { return r.lazy.lock(r) }

// UnlockPixels releases the lock taken by LockPixels.
func (r *GPUPixelRef) UnlockPixels() { r.lazy.unlock() }

// LockPixelsAreWritable returns false: writes never reach the surface.
func (r *GPUPixelRef) LockPixelsAreWritable() bool { return false }

// DeepCopy copies the surface into a new, exclusively owned texture in
// cfg and returns a pixel ref over it. Returns nil if the ref is unbound,
// the surface has no texture view, or the allocation or copy fails.
func (r *GPUPixelRef) DeepCopy(cfg Config) PixelRef {
	if r.surface == nil {
		return nil
	}
	tex := r.surface.AsTexture()
	if tex == nil {
		Logger().Debug("pixelref: deep copy failed", "config", cfg, "err", ErrNoTexture)
		return nil
	}
	c, err := copyToTexturePixelRef(tex, cfg, r.policy)
	if err != nil {
		Logger().Debug("pixelref: deep copy failed", "config", cfg, "err", err)
		return nil
	}
	return c
}

// ReadPixels reads the surface, or the subset of it, into dst as
// RGBA8888. The subset is not clipped; the device rejects regions outside
// the surface.
func (r *GPUPixelRef) ReadPixels(dst *Bitmap, subset *image.Rectangle) bool {
	if r.surface == nil || !r.surface.IsValid() {
		return false
	}

	left, top := 0, 0
	width, height := r.surface.Width(), r.surface.Height()
	if subset != nil {
		left, top = subset.Min.X, subset.Min.Y
		width, height = subset.Dx(), subset.Dy()
	}

	dst.SetConfig(ConfigRGBA8888, width, height)
	if !dst.AllocPixels() {
		return false
	}
	if !dst.LockPixels() {
		return false
	}
	defer dst.UnlockPixels()

	return r.surface.ReadPixels(left, top, width, height, readBackLayout, dst.Pixels(), dst.RowBytes())
}

// Ref acquires a reference.
func (r *GPUPixelRef) Ref() {
	if !r.refs.Ref() {
		Logger().Warn("pixelref: ref on released GPU pixel ref")
	}
}

// Unref releases a reference. The surface reference is dropped with the
// last one.
func (r *GPUPixelRef) Unref() {
	if !r.refs.Unref() {
		Logger().Warn("pixelref: GPU pixel ref released more times than referenced")
	}
}

func (r *GPUPixelRef) release() {
	r.lazy.release()
	if r.surface != nil {
		r.surface.Unref()
	}
}

// Verify GPUPixelRef produces its own pixels.
var _ PixelSource = (*GPUPixelRef)(nil)
