// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pixelref/internal/cache"
)

// DefaultScratchCacheSize is the default number of idle scratch surfaces
// a context keeps for reuse.
const DefaultScratchCacheSize = 32

// ContextOption configures a Context.
type ContextOption func(*contextConfig)

type contextConfig struct {
	scratchSize int
}

// WithScratchCacheSize sets how many scratch surfaces CreateTexture keeps.
// Zero disables the scratch cache.
func WithScratchCacheSize(n int) ContextOption {
	return func(c *contextConfig) {
		if n >= 0 {
			c.scratchSize = n
		}
	}
}

// ContextStats contains allocation and transfer counters.
type ContextStats struct {
	// LiveSurfaces is the number of surfaces not yet destroyed.
	LiveSurfaces int64

	// Allocations is the total number of surfaces allocated.
	Allocations uint64

	// Copies is the number of device-side copies issued.
	Copies uint64

	// ReadBacks is the number of successful read-backs.
	ReadBacks uint64

	// ScratchHits is the number of CreateTexture calls served from the cache.
	ScratchHits uint64

	// ScratchMisses is the number of CreateTexture calls that allocated.
	ScratchMisses uint64
}

// String returns a human-readable string of the stats.
func (s ContextStats) String() string {
	return fmt.Sprintf("Context[%d live, %d allocs, %d copies, %d reads, scratch %d/%d]",
		s.LiveSurfaces, s.Allocations, s.Copies, s.ReadBacks, s.ScratchHits, s.ScratchHits+s.ScratchMisses)
}

// Context allocates surfaces on a Device and issues copies and read-backs.
//
// Context is safe for concurrent use.
type Context struct {
	dev    Device
	closed atomic.Bool

	// scratchMu serializes the idle check and reuse of scratch surfaces.
	scratchMu sync.Mutex
	scratch   *cache.Cache[TextureDesc, *Texture]

	live          atomic.Int64
	allocations   atomic.Uint64
	copies        atomic.Uint64
	readBacks     atomic.Uint64
	scratchHits   atomic.Uint64
	scratchMisses atomic.Uint64
}

// NewContext creates a context on dev.
// Returns an error if dev is nil.
func NewContext(dev Device, opts ...ContextOption) (*Context, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	cfg := contextConfig{scratchSize: DefaultScratchCacheSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Context{dev: dev}
	if cfg.scratchSize > 0 {
		// The cache owns one reference to each entry.
		c.scratch = cache.New[TextureDesc, *Texture](cfg.scratchSize, func(_ TextureDesc, t *Texture) {
			t.Unref()
		})
	}
	slogger().Debug("gpu: context created", "device", dev.Name(), "scratch", cfg.scratchSize)
	return c, nil
}

// Device returns the backend device.
func (c *Context) Device() Device {
	return c.dev
}

// IsAbandoned reports whether the context was closed or its device lost.
func (c *Context) IsAbandoned() bool {
	return c.closed.Load() || c.dev.IsLost()
}

// CreateUncachedTexture allocates a new, independently owned texture.
// The scratch cache is neither consulted nor populated.
// The caller owns the returned reference.
func (c *Context) CreateUncachedTexture(desc TextureDesc) (*Texture, error) {
	s, err := c.allocate(desc, true)
	if err != nil {
		return nil, err
	}
	return s.tex, nil
}

// CreateRenderTarget allocates a render-target-only surface, which has no
// texture view. The caller owns the returned reference.
func (c *Context) CreateRenderTarget(desc TextureDesc) (*RenderTarget, error) {
	desc.Flags |= TextureFlagRenderTarget
	s, err := c.allocate(desc, false)
	if err != nil {
		return nil, err
	}
	return s.rt, nil
}

// CreateTexture returns a texture for desc, reusing an idle scratch texture
// with an identical descriptor when one is cached. Scratch contents are
// undefined. The caller owns the returned reference.
func (c *Context) CreateTexture(desc TextureDesc) (*Texture, error) {
	if c.scratch == nil {
		return c.CreateUncachedTexture(desc)
	}

	c.scratchMu.Lock()
	defer c.scratchMu.Unlock()

	// A scratch texture is idle when the cache holds its only reference.
	if tex, ok := c.scratch.Get(desc); ok && tex.RefCount() == 1 && tex.IsValid() {
		tex.Ref()
		c.scratchHits.Add(1)
		return tex, nil
	}

	c.scratchMisses.Add(1)
	s, err := c.allocate(desc, true)
	if err != nil {
		return nil, err
	}
	s.ref()
	c.scratch.Set(desc, s.tex)
	return s.tex, nil
}

// PurgeScratch drops the cache's references to all scratch textures.
// Textures still held elsewhere stay alive until released.
func (c *Context) PurgeScratch() {
	if c.scratch == nil {
		return
	}
	c.scratchMu.Lock()
	defer c.scratchMu.Unlock()
	c.scratch.Clear()
}

// CopyTexture copies the full extent of src into dst.
// dst must be at least as large as src.
func (c *Context) CopyTexture(src *Texture, dst *RenderTarget) error {
	if src == nil {
		return ErrNoTexture
	}
	if dst == nil {
		return ErrNotRenderTarget
	}
	if src.s.ctx != c || dst.s.ctx != c {
		return ErrForeignSurface
	}
	if err := c.checkUsable(); err != nil {
		return err
	}
	if src.s.refs.Dead() || dst.s.refs.Dead() {
		return ErrSurfaceReleased
	}
	w, h := src.Width(), src.Height()
	if dst.Width() < w || dst.Height() < h {
		return fmt.Errorf("%w: copy %dx%d into %dx%d",
			ErrRegionOutOfBounds, w, h, dst.Width(), dst.Height())
	}
	if err := c.dev.CopyImage(src.s.img, dst.s.img, w, h); err != nil {
		return fmt.Errorf("gpu: copy texture: %w", err)
	}
	c.copies.Add(1)
	return nil
}

// Stats returns allocation and transfer counters.
func (c *Context) Stats() ContextStats {
	return ContextStats{
		LiveSurfaces:  c.live.Load(),
		Allocations:   c.allocations.Load(),
		Copies:        c.copies.Load(),
		ReadBacks:     c.readBacks.Load(),
		ScratchHits:   c.scratchHits.Load(),
		ScratchMisses: c.scratchMisses.Load(),
	}
}

// Close purges the scratch cache and marks the context closed. Surfaces
// still referenced become invalid and are destroyed when released.
func (c *Context) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.PurgeScratch()
	slogger().Debug("gpu: context closed", "device", c.dev.Name(), "live", c.live.Load())
}

// allocate creates a surface holding one reference.
func (c *Context) allocate(desc TextureDesc, sampleable bool) (*surface, error) {
	if err := c.checkUsable(); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	img, err := c.dev.CreateImage(desc)
	if err != nil {
		return nil, fmt.Errorf("gpu: create %dx%d %v: %w", desc.Width, desc.Height, desc.Format, err)
	}
	c.live.Add(1)
	c.allocations.Add(1)
	return newSurface(c, img, desc, sampleable), nil
}

func (c *Context) readSurface(s *surface, rect image.Rectangle, layout gputypes.TextureFormat, dst []byte, rowBytes int) error {
	if err := c.checkUsable(); err != nil {
		return err
	}
	if s.refs.Dead() {
		return ErrSurfaceReleased
	}
	bpp := BytesPerPixel(layout)
	if bpp == 0 {
		return fmt.Errorf("%w: read-back layout %v", ErrUnsupportedFormat, layout)
	}
	if rect.Dx() <= 0 || rect.Dy() <= 0 {
		return fmt.Errorf("%w: empty region %v", ErrRegionOutOfBounds, rect)
	}
	if rowBytes < rect.Dx()*bpp {
		return fmt.Errorf("%w: row stride %d for width %d", ErrBufferTooSmall, rowBytes, rect.Dx())
	}
	if need := (rect.Dy()-1)*rowBytes + rect.Dx()*bpp; len(dst) < need {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrBufferTooSmall, len(dst), need)
	}
	if err := c.dev.ReadImage(s.img, rect, layout, dst, rowBytes); err != nil {
		return err
	}
	c.readBacks.Add(1)
	return nil
}

func (c *Context) writeSurface(s *surface, rect image.Rectangle, layout gputypes.TextureFormat, src []byte, rowBytes int) error {
	up, ok := c.dev.(Uploader)
	if !ok {
		return ErrUploadNotSupported
	}
	if err := c.checkUsable(); err != nil {
		return err
	}
	if s.refs.Dead() {
		return ErrSurfaceReleased
	}
	bounds := image.Rect(0, 0, s.desc.Width, s.desc.Height)
	if rect.Empty() || !rect.In(bounds) {
		return fmt.Errorf("%w: %v not in %v", ErrRegionOutOfBounds, rect, bounds)
	}
	return up.WriteImage(s.img, rect, layout, src, rowBytes)
}

func (c *Context) checkUsable() error {
	if c.closed.Load() {
		return ErrContextClosed
	}
	if c.dev.IsLost() {
		return ErrDeviceLost
	}
	return nil
}

func (c *Context) surfaceDestroyed(*surface) {
	c.live.Add(-1)
}
