// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/pixelref/internal/refcnt"
)

// Surface is a reference-counted handle to GPU-resident image memory.
//
// A surface may be sampleable (AsTexture non-nil), renderable
// (AsRenderTarget non-nil), or both. All views of a surface share one
// reference count.
type Surface interface {
	// Width returns the surface width in pixels.
	Width() int

	// Height returns the surface height in pixels.
	Height() int

	// Format returns the native pixel format.
	Format() gputypes.TextureFormat

	// IsValid reports whether the surface can still be read. A surface is
	// invalid once released, or when its context is closed or its device
	// is lost.
	IsValid() bool

	// AsTexture returns the texture view, or nil if the surface is not
	// sampleable.
	AsTexture() *Texture

	// AsRenderTarget returns the render target view, or nil if the surface
	// is not renderable.
	AsRenderTarget() *RenderTarget

	// ReadPixels reads the given region into dst using layout, with rows
	// rowBytes apart. Reports false on any failure.
	ReadPixels(left, top, width, height int, layout gputypes.TextureFormat, dst []byte, rowBytes int) bool

	// Context returns the owning context.
	Context() *Context

	// Ref acquires a reference.
	Ref()

	// Unref releases a reference. The surface is destroyed when the last
	// reference is released.
	Unref()
}

// surface is the state shared by the views of one surface.
type surface struct {
	ctx  *Context
	img  Image
	desc TextureDesc
	refs *refcnt.Count

	mu  sync.Mutex
	tex *Texture
	rt  *RenderTarget
}

func newSurface(ctx *Context, img Image, desc TextureDesc, sampleable bool) *surface {
	s := &surface{ctx: ctx, img: img, desc: desc}
	s.refs = refcnt.New(s.destroy)
	if sampleable {
		s.tex = &Texture{s: s}
	}
	if desc.Flags.Has(TextureFlagRenderTarget) {
		s.rt = &RenderTarget{s: s}
	}
	return s
}

// destroy runs once, when the last reference is dropped.
func (s *surface) destroy() {
	s.img.Destroy()
	s.ctx.surfaceDestroyed(s)
}

func (s *surface) ref() {
	if !s.refs.Ref() {
		slogger().Warn("gpu: ref on released surface", "label", s.desc.Label)
	}
}

func (s *surface) unref() {
	if !s.refs.Unref() {
		slogger().Warn("gpu: surface released more times than referenced", "label", s.desc.Label)
	}
}

func (s *surface) isValid() bool {
	return !s.refs.Dead() && !s.ctx.IsAbandoned()
}

func (s *surface) texture() *Texture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tex
}

func (s *surface) renderTarget() *RenderTarget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rt
}

func (s *surface) readPixels(left, top, width, height int, layout gputypes.TextureFormat, dst []byte, rowBytes int) bool {
	rect := image.Rect(left, top, left+width, top+height)
	if err := s.ctx.readSurface(s, rect, layout, dst, rowBytes); err != nil {
		slogger().Debug("gpu: read pixels failed",
			"label", s.desc.Label, "rect", rect, "err", err)
		return false
	}
	return true
}

func (s *surface) writePixels(rect image.Rectangle, layout gputypes.TextureFormat, src []byte, rowBytes int) error {
	return s.ctx.writeSurface(s, rect, layout, src, rowBytes)
}

// Texture is the sampleable view of a surface.
type Texture struct {
	s *surface
}

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.s.desc.Width }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.s.desc.Height }

// Format returns the native pixel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.s.desc.Format }

// Desc returns the descriptor the surface was allocated with.
func (t *Texture) Desc() TextureDesc { return t.s.desc }

// IsValid reports whether the texture can still be read.
func (t *Texture) IsValid() bool { return t.s.isValid() }

// AsTexture returns t.
func (t *Texture) AsTexture() *Texture { return t }

// AsRenderTarget returns the render target view, or nil if the texture is
// not renderable or its render target was released.
func (t *Texture) AsRenderTarget() *RenderTarget { return t.s.renderTarget() }

// ReadPixels reads a region of the texture into dst.
func (t *Texture) ReadPixels(left, top, width, height int, layout gputypes.TextureFormat, dst []byte, rowBytes int) bool {
	return t.s.readPixels(left, top, width, height, layout, dst, rowBytes)
}

// WritePixels uploads src into rect of the texture.
func (t *Texture) WritePixels(rect image.Rectangle, layout gputypes.TextureFormat, src []byte, rowBytes int) error {
	return t.s.writePixels(rect, layout, src, rowBytes)
}

// Context returns the owning context.
func (t *Texture) Context() *Context { return t.s.ctx }

// Ref acquires a reference to the surface.
func (t *Texture) Ref() { t.s.ref() }

// Unref releases a reference to the surface.
func (t *Texture) Unref() { t.s.unref() }

// RefCount returns the number of outstanding references.
func (t *Texture) RefCount() int32 { return t.s.refs.Load() }

// ReleaseRenderTarget drops the render target view. Subsequent calls to
// AsRenderTarget return nil. The texture view is unaffected.
func (t *Texture) ReleaseRenderTarget() {
	t.s.mu.Lock()
	t.s.rt = nil
	t.s.mu.Unlock()
}

// String returns a short description for logs.
func (t *Texture) String() string {
	return fmt.Sprintf("Texture(%q %dx%d %v)", t.s.desc.Label, t.s.desc.Width, t.s.desc.Height, t.s.desc.Format)
}

// RenderTarget is the renderable view of a surface.
type RenderTarget struct {
	s *surface
}

// Width returns the render target width in pixels.
func (r *RenderTarget) Width() int { return r.s.desc.Width }

// Height returns the render target height in pixels.
func (r *RenderTarget) Height() int { return r.s.desc.Height }

// Format returns the native pixel format.
func (r *RenderTarget) Format() gputypes.TextureFormat { return r.s.desc.Format }

// IsValid reports whether the render target can still be read.
func (r *RenderTarget) IsValid() bool { return r.s.isValid() }

// AsTexture returns the texture view, or nil for render-target-only
// surfaces.
func (r *RenderTarget) AsTexture() *Texture { return r.s.texture() }

// AsRenderTarget returns r.
func (r *RenderTarget) AsRenderTarget() *RenderTarget { return r }

// ReadPixels reads a region of the render target into dst.
func (r *RenderTarget) ReadPixels(left, top, width, height int, layout gputypes.TextureFormat, dst []byte, rowBytes int) bool {
	return r.s.readPixels(left, top, width, height, layout, dst, rowBytes)
}

// WritePixels uploads src into rect of the render target.
func (r *RenderTarget) WritePixels(rect image.Rectangle, layout gputypes.TextureFormat, src []byte, rowBytes int) error {
	return r.s.writePixels(rect, layout, src, rowBytes)
}

// Context returns the owning context.
func (r *RenderTarget) Context() *Context { return r.s.ctx }

// Ref acquires a reference to the surface.
func (r *RenderTarget) Ref() { r.s.ref() }

// Unref releases a reference to the surface.
func (r *RenderTarget) Unref() { r.s.unref() }

// RefCount returns the number of outstanding references.
func (r *RenderTarget) RefCount() int32 { return r.s.refs.Load() }

// HasStencil reports whether the render target has a stencil attachment.
func (r *RenderTarget) HasStencil() bool {
	return !r.s.desc.Flags.Has(TextureFlagNoStencil)
}

// Verify both views implement Surface, and Texture the ecosystem interface.
var (
	_ Surface            = (*Texture)(nil)
	_ Surface            = (*RenderTarget)(nil)
	_ gpucontext.Texture = (*Texture)(nil)
)
