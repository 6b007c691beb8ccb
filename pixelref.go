package pixelref

import (
	"image"
	"sync"

	"github.com/gogpu/pixelref/gpu"
	"github.com/gogpu/pixelref/internal/refcnt"
)

// PixelRef is a shared handle to the pixel memory of a Bitmap.
//
// The creator of a PixelRef holds its first reference. Every Ref must be
// balanced by an Unref; the ref's resources are released when the last
// reference is dropped.
type PixelRef interface {
	// LockPixels returns the pixel memory, or nil if the pixels are
	// unavailable. Every successful lock must be paired with UnlockPixels.
	LockPixels() []byte

	// UnlockPixels releases a lock taken by LockPixels.
	UnlockPixels()

	// LockPixelsAreWritable reports whether writes to the locked memory
	// are kept.
	LockPixelsAreWritable() bool

	// DeepCopy returns an independent copy in cfg, or nil if the ref
	// cannot copy itself. The caller owns the returned reference.
	DeepCopy(cfg Config) PixelRef

	// Texture returns the GPU texture backing the pixels, or nil.
	Texture() *gpu.Texture

	// Ref acquires a reference.
	Ref()

	// Unref releases a reference.
	Unref()
}

// PixelSource produces pixels on demand.
type PixelSource interface {
	// ReadPixels configures dst, allocates its pixels and fills them.
	// A nil subset requests the full frame; otherwise only the subset is
	// produced and dst is sized to it. Reports false on failure.
	ReadPixels(dst *Bitmap, subset *image.Rectangle) bool
}

// defaultPixelRefMu guards the lock state of MallocPixelRefs. Lazy and GPU
// pixel refs use their own mutex instead, so their pixel production may
// lock a MallocPixelRef.
var defaultPixelRefMu sync.Mutex

// MallocPixelRef is a writable pixel ref backed by heap memory.
type MallocPixelRef struct {
	refs      *refcnt.Count
	pix       []byte
	lockCount int
}

// NewMallocPixelRef allocates size bytes of zeroed pixel memory.
// Returns nil if size is not positive.
func NewMallocPixelRef(size int) *MallocPixelRef {
	if size <= 0 {
		return nil
	}
	r := &MallocPixelRef{pix: make([]byte, size)}
	r.refs = refcnt.New(r.free)
	return r
}

// LockPixels returns the pixel memory.
func (r *MallocPixelRef) LockPixels() []byte {
	defaultPixelRefMu.Lock()
	defer defaultPixelRefMu.Unlock()
	if r.pix == nil {
		return nil
	}
	r.lockCount++
	return r.pix
}

// UnlockPixels releases a lock.
func (r *MallocPixelRef) UnlockPixels() {
	defaultPixelRefMu.Lock()
	defer defaultPixelRefMu.Unlock()
	if r.lockCount > 0 {
		r.lockCount--
	}
}

// LockPixelsAreWritable returns true.
func (r *MallocPixelRef) LockPixelsAreWritable() bool { return true }

// DeepCopy returns nil; Bitmap.DeepCopy copies heap pixels itself.
func (r *MallocPixelRef) DeepCopy(Config) PixelRef { return nil }

// Texture returns nil.
func (r *MallocPixelRef) Texture() *gpu.Texture { return nil }

// Size returns the size of the pixel memory in bytes.
func (r *MallocPixelRef) Size() int {
	defaultPixelRefMu.Lock()
	defer defaultPixelRefMu.Unlock()
	return len(r.pix)
}

// Ref acquires a reference.
func (r *MallocPixelRef) Ref() {
	if !r.refs.Ref() {
		Logger().Warn("pixelref: ref on released malloc pixel ref")
	}
}

// Unref releases a reference. The memory is dropped with the last one.
func (r *MallocPixelRef) Unref() {
	if !r.refs.Unref() {
		Logger().Warn("pixelref: malloc pixel ref released more times than referenced")
	}
}

func (r *MallocPixelRef) free() {
	defaultPixelRefMu.Lock()
	r.pix = nil
	r.lockCount = 0
	defaultPixelRefMu.Unlock()
}

// Verify all pixel refs implement PixelRef.
var (
	_ PixelRef = (*MallocPixelRef)(nil)
	_ PixelRef = (*ReadOnlyLazyPixelRef)(nil)
	_ PixelRef = (*GPUPixelRef)(nil)
)
