package pixelref

import (
	"sync"

	"github.com/gogpu/pixelref/gpu"
	"github.com/gogpu/pixelref/internal/refcnt"
)

// lazyPixels holds pixels produced on every lock.
//
// mu is per instance and never the default pixel ref mutex: production may
// lock other pixel refs, including other lazy ones.
type lazyPixels struct {
	mu     sync.Mutex
	bitmap Bitmap
}

// lock discards the previous pixels, produces a fresh full frame from src
// and locks it.
func (l *lazyPixels) lock(src PixelSource) []byte {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.bitmap.Reset()
	if !src.ReadPixels(&l.bitmap, nil) {
		Logger().Warn("pixelref: lazy pixel production failed")
		return nil
	}
	if !l.bitmap.LockPixels() {
		Logger().Warn("pixelref: lazy pixel production failed", "reason", "no pixels produced")
		return nil
	}
	return l.bitmap.Pixels()
}

func (l *lazyPixels) unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bitmap.UnlockPixels()
}

func (l *lazyPixels) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bitmap.Reset()
}

// ReadOnlyLazyPixelRef is a pixel ref whose pixels are produced by a
// PixelSource each time they are locked. Nothing is cached across locks,
// so the pixels track a source that changes between locks.
//
// The source may lock other pixel refs while producing. It must not lock
// the ReadOnlyLazyPixelRef it is producing for.
type ReadOnlyLazyPixelRef struct {
	lazy lazyPixels
	src  PixelSource
	refs *refcnt.Count
}

// NewReadOnlyLazyPixelRef returns a lazy pixel ref over src.
func NewReadOnlyLazyPixelRef(src PixelSource) *ReadOnlyLazyPixelRef {
	r := &ReadOnlyLazyPixelRef{src: src}
	r.refs = refcnt.New(r.lazy.release)
	return r
}

// LockPixels produces and returns a fresh full frame, or nil if the source
// fails.
func (r *ReadOnlyLazyPixelRef) LockPixels() []byte {
	if r.src == nil {
		Logger().Warn("pixelref: lazy pixel production failed", "reason", "no source")
		return nil
	}
	return r.lazy.lock(r.src)
}

// UnlockPixels releases the lock taken by LockPixels.
func (r *ReadOnlyLazyPixelRef) UnlockPixels() { r.lazy.unlock() }

// LockPixelsAreWritable returns false: writes are lost on the next lock.
func (r *ReadOnlyLazyPixelRef) LockPixelsAreWritable() bool { return false }

// DeepCopy returns nil.
func (r *ReadOnlyLazyPixelRef) DeepCopy(Config) PixelRef { return nil }

// Texture returns nil.
func (r *ReadOnlyLazyPixelRef) Texture() *gpu.Texture { return nil }

// Ref acquires a reference.
func (r *ReadOnlyLazyPixelRef) Ref() {
	if !r.refs.Ref() {
		Logger().Warn("pixelref: ref on released lazy pixel ref")
	}
}

// Unref releases a reference.
func (r *ReadOnlyLazyPixelRef) Unref() {
	if !r.refs.Unref() {
		Logger().Warn("pixelref: lazy pixel ref released more times than referenced")
	}
}
