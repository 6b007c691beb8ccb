package pixelref

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pixelref/gpu"
	"github.com/gogpu/pixelref/gpu/memdev"
)

// readCall records one ReadPixels request.
type readCall struct {
	left, top, width, height int
	layout                   gputypes.TextureFormat
	rowBytes                 int
}

// fakeSurface is a surface without a texture view that records reads.
type fakeSurface struct {
	width, height int
	invalid       bool
	fill          byte
	refs          int
	reads         []readCall
}

func (s *fakeSurface) Width() int                        { return s.width }
func (s *fakeSurface) Height() int                       { return s.height }
func (s *fakeSurface) Format() gputypes.TextureFormat    { return gputypes.TextureFormatRGBA8Unorm }
func (s *fakeSurface) IsValid() bool                     { return !s.invalid }
func (s *fakeSurface) AsTexture() *gpu.Texture           { return nil }
func (s *fakeSurface) AsRenderTarget() *gpu.RenderTarget { return nil }
func (s *fakeSurface) Context() *gpu.Context             { return nil }
func (s *fakeSurface) Ref()                              { s.refs++ }
func (s *fakeSurface) Unref()                            { s.refs-- }
func (s *fakeSurface) IsNil() bool                       { return s == nil }

func (s *fakeSurface) ReadPixels(left, top, width, height int, layout gputypes.TextureFormat, dst []byte, rowBytes int) bool {
	s.reads = append(s.reads, readCall{left, top, width, height, layout, rowBytes})
	for i := range dst {
		dst[i] = s.fill
	}
	return true
}

func newMemContext(t *testing.T, opts ...memdev.Option) (*gpu.Context, *memdev.Device) {
	t.Helper()
	dev := memdev.New(opts...)
	ctx, err := gpu.NewContext(dev)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	t.Cleanup(ctx.Close)
	return ctx, dev
}

// gradient returns an RGBA8888 bitmap with distinct pixels.
func gradient(t *testing.T, w, h int) *Bitmap {
	t.Helper()
	b := NewBitmap(ConfigRGBA8888, w, h)
	if b == nil {
		t.Fatalf("NewBitmap(%d, %d) = nil", w, h)
	}
	b.LockPixels()
	defer b.UnlockPixels()
	pix := b.Pixels()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*b.RowBytes() + x*4
			pix[i+0] = byte(x)
			pix[i+1] = byte(y)
			pix[i+2] = byte(x ^ y)
			pix[i+3] = 0xFF
		}
	}
	return b
}

func uploadGradient(t *testing.T, ctx *gpu.Context, w, h int) *gpu.Texture {
	t.Helper()
	tex, err := UploadBitmap(ctx, gradient(t, w, h), gpu.TextureFlagRenderTarget)
	if err != nil {
		t.Fatalf("UploadBitmap: %v", err)
	}
	return tex
}

func TestGPUPixelRefReleasesSurfaceOnce(t *testing.T) {
	s := &fakeSurface{width: 8, height: 8}
	s.refs = 1

	r := NewGPUPixelRef(s)
	if s.refs != 2 {
		t.Fatalf("surface refs after construction = %d, want 2", s.refs)
	}
	r.Unref()
	if s.refs != 1 {
		t.Errorf("surface refs after Unref = %d, want 1", s.refs)
	}
	r.Unref() // over-release is logged and ignored
	if s.refs != 1 {
		t.Errorf("surface refs after over-release = %d, want 1", s.refs)
	}
	if len(s.reads) != 0 {
		t.Errorf("surface read %d times without a lock", len(s.reads))
	}
}

func TestGPUPixelRefReleasesDeviceSurface(t *testing.T) {
	ctx, dev := newMemContext(t)
	tex := uploadGradient(t, ctx, 4, 4)

	r := NewGPUPixelRef(tex)
	r.Ref()
	if tex.RefCount() != 2 {
		t.Fatalf("RefCount() = %d, want 2", tex.RefCount())
	}
	tex.Unref()
	r.Unref()
	if dev.Stats().ImageCount != 1 {
		t.Error("surface destroyed while the pixel ref is still referenced")
	}
	r.Unref()
	if dev.Stats().ImageCount != 0 {
		t.Error("surface not destroyed with the last pixel ref reference")
	}
}

func TestGPUPixelRefReadPixelsRegion(t *testing.T) {
	s := &fakeSurface{width: 64, height: 64, fill: 7}
	r := NewGPUPixelRef(s)
	defer r.Unref()

	var full Bitmap
	if !r.ReadPixels(&full, nil) {
		t.Fatal("ReadPixels(nil) = false")
	}
	if full.Width() != 64 || full.Height() != 64 {
		t.Errorf("full read = %dx%d, want 64x64", full.Width(), full.Height())
	}

	var part Bitmap
	region := image.Rect(10, 10, 30, 30)
	if !r.ReadPixels(&part, &region) {
		t.Fatal("ReadPixels(region) = false")
	}
	if part.Width() != 20 || part.Height() != 20 || part.Config() != ConfigRGBA8888 {
		t.Errorf("region read = %dx%d %v, want 20x20 RGBA8888", part.Width(), part.Height(), part.Config())
	}

	want := readCall{10, 10, 20, 20, gputypes.TextureFormatRGBA8Unorm, 80}
	if got := s.reads[len(s.reads)-1]; got != want {
		t.Errorf("ReadPixels called with %+v, want %+v", got, want)
	}
}

func TestGPUPixelRefReadPixelsFailures(t *testing.T) {
	var dst Bitmap

	unbound := NewGPUPixelRef(nil)
	if unbound.ReadPixels(&dst, nil) {
		t.Error("unbound ReadPixels() = true")
	}
	if unbound.LockPixels() != nil {
		t.Error("unbound LockPixels() != nil")
	}
	if unbound.Texture() != nil || unbound.Surface() != nil {
		t.Error("unbound ref has a surface")
	}
	unbound.Unref()

	var nilTex *gpu.Texture
	typedNil := NewGPUPixelRef(nilTex)
	if typedNil.Surface() != nil {
		t.Error("typed nil texture produced a bound ref")
	}
	typedNil.Unref()

	var nilFake *fakeSurface
	fakeNil := NewGPUPixelRef(nilFake)
	if fakeNil.Surface() != nil {
		t.Error("typed nil surface produced a bound ref")
	}
	fakeNil.Unref()

	s := &fakeSurface{width: 4, height: 4, invalid: true}
	invalid := NewGPUPixelRef(s)
	defer invalid.Unref()
	if invalid.ReadPixels(&dst, nil) {
		t.Error("invalid surface ReadPixels() = true")
	}
	if len(s.reads) != 0 {
		t.Error("invalid surface was read")
	}
}

func TestGPUPixelRefReadPixelsHugeRegion(t *testing.T) {
	ctx, dev := newMemContext(t)
	src := uploadGradient(t, ctx, 4, 4)
	r := NewGPUPixelRef(src)
	src.Unref()
	defer r.Unref()

	reads := dev.Counters().Reads
	var dst Bitmap
	if r.ReadPixels(&dst, &image.Rectangle{Max: image.Pt(3<<30, 3<<30)}) {
		t.Error("ReadPixels() of an oversized region = true")
	}
	if !dst.Empty() || dst.PixelRef() != nil {
		t.Error("oversized region left pixels allocated")
	}
	if got := dev.Counters().Reads - reads; got != 0 {
		t.Errorf("device reads = %d, want 0", got)
	}
}

func TestGPUPixelRefLockReadsBackEachTime(t *testing.T) {
	ctx, dev := newMemContext(t)
	tex := uploadGradient(t, ctx, 4, 4)
	r := NewGPUPixelRef(tex)
	defer r.Unref()
	defer tex.Unref()

	if r.LockPixelsAreWritable() {
		t.Error("LockPixelsAreWritable() = true")
	}

	pix := r.LockPixels()
	if len(pix) != 4*4*4 {
		t.Fatalf("len(LockPixels()) = %d, want 64", len(pix))
	}
	// (0, 1) has green 1 and (1, 0) has red 1.
	if pix[16+1] != 1 || pix[4] != 1 {
		t.Errorf("unexpected gradient pixels %v", pix[:24])
	}
	r.UnlockPixels()

	// Overwrite the surface; the next lock must see it.
	white := bytes.Repeat([]byte{0xFF}, 4*4*4)
	if err := tex.WritePixels(image.Rect(0, 0, 4, 4), gputypes.TextureFormatRGBA8Unorm, white, 16); err != nil {
		t.Fatalf("WritePixels: %v", err)
	}
	pix = r.LockPixels()
	if !bytes.Equal(pix, white) {
		t.Error("second lock returned stale pixels")
	}
	r.UnlockPixels()

	if got := dev.Counters().Reads; got != 2 {
		t.Errorf("device reads = %d, want 2", got)
	}

	dev.Lose()
	if r.LockPixels() != nil {
		t.Error("LockPixels() after device loss != nil")
	}
}

func TestGPUPixelRefDeepCopy(t *testing.T) {
	ctx, dev := newMemContext(t)
	src := uploadGradient(t, ctx, 128, 128)
	r := NewGPUPixelRef(src)
	src.Unref()
	defer r.Unref()

	allocs := ctx.Stats().Allocations
	copies := dev.Counters().Copies

	c := r.DeepCopy(ConfigRGBA8888)
	if c == nil {
		t.Fatal("DeepCopy() = nil")
	}
	defer c.Unref()

	if got := ctx.Stats().Allocations - allocs; got != 1 {
		t.Errorf("allocations = %d, want 1", got)
	}
	if got := dev.Counters().Copies - copies; got != 1 {
		t.Errorf("device copies = %d, want 1", got)
	}

	ct := c.Texture()
	if ct == nil {
		t.Fatal("copy has no texture")
	}
	if ct == r.Texture() {
		t.Fatal("copy aliases the source texture")
	}
	if ct.Width() != 128 || ct.Height() != 128 {
		t.Errorf("copy is %dx%d, want 128x128", ct.Width(), ct.Height())
	}
	if ct.RefCount() != 1 {
		t.Errorf("copy texture RefCount() = %d, want 1 (owned by the copy)", ct.RefCount())
	}
	desc := ct.Desc()
	if !desc.Flags.Has(gpu.TextureFlagRenderTarget | gpu.TextureFlagNoStencil) {
		t.Errorf("copy flags = %v, want render target without stencil", desc.Flags)
	}

	a := r.LockPixels()
	b := c.LockPixels()
	if a == nil || b == nil || !bytes.Equal(a, b) {
		t.Error("copy pixels differ from source")
	}
	c.UnlockPixels()
	r.UnlockPixels()
}

func TestGPUPixelRefDeepCopyConvertsFormat(t *testing.T) {
	ctx, _ := newMemContext(t)
	src := uploadGradient(t, ctx, 3, 3)
	r := NewGPUPixelRef(src)
	src.Unref()
	defer r.Unref()

	c := r.DeepCopy(ConfigBGRA8888)
	if c == nil {
		t.Fatal("DeepCopy(BGRA8888) = nil")
	}
	defer c.Unref()
	if got := c.Texture().Format(); got != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("copy format = %v, want BGRA8Unorm", got)
	}

	// Both lock as RGBA8888.
	a, b := r.LockPixels(), c.LockPixels()
	if !bytes.Equal(a, b) {
		t.Error("converted copy reads back different pixels")
	}
	c.UnlockPixels()
	r.UnlockPixels()
}

func TestGPUPixelRefDeepCopyA8(t *testing.T) {
	ctx, dev := newMemContext(t)
	bm := gradient(t, 4, 4)
	bm.LockPixels()
	for i := 3; i < len(bm.Pixels()); i += 4 {
		bm.Pixels()[i] = byte(i)
	}
	bm.UnlockPixels()
	src, err := UploadBitmap(ctx, bm, gpu.TextureFlagRenderTarget)
	if err != nil {
		t.Fatalf("UploadBitmap: %v", err)
	}
	r := NewGPUPixelRef(src)
	src.Unref()
	defer r.Unref()

	copies := dev.Counters().Copies
	c := r.DeepCopy(ConfigA8)
	if c == nil {
		t.Fatal("DeepCopy(A8) = nil")
	}
	defer c.Unref()
	if got := dev.Counters().Copies - copies; got != 1 {
		t.Errorf("device copies = %d, want 1", got)
	}
	if got := c.Texture().Format(); got != gputypes.TextureFormatR8Unorm {
		t.Errorf("copy format = %v, want R8Unorm", got)
	}

	// The copy keeps alpha, which reads back in the red channel.
	pix := c.LockPixels()
	if pix == nil {
		t.Fatal("LockPixels() on A8 copy = nil")
	}
	defer c.UnlockPixels()
	for i := 0; i < len(pix); i += 4 {
		want := []byte{byte(i + 3), 0, 0, 0xFF}
		if !bytes.Equal(pix[i:i+4], want) {
			t.Fatalf("pixel %d = %v, want %v", i/4, pix[i:i+4], want)
		}
	}
}

// failingCopyDevice is a memdev device whose copies always fail.
type failingCopyDevice struct {
	*memdev.Device
}

var errCopyFailed = errors.New("copy failed")

func (failingCopyDevice) CopyImage(_, _ gpu.Image, _, _ int) error { return errCopyFailed }

func TestGPUPixelRefDeepCopyTransferFailure(t *testing.T) {
	dev := failingCopyDevice{memdev.New()}
	ctx, err := gpu.NewContext(dev)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctx.Close()

	src := uploadGradient(t, ctx, 8, 8)
	r := NewGPUPixelRef(src)
	src.Unref()
	defer r.Unref()

	before := ctx.Stats()
	if c := r.DeepCopy(ConfigRGBA8888); c != nil {
		c.Unref()
		t.Fatal("DeepCopy() succeeded with a failing device copy")
	}
	after := ctx.Stats()
	if after.LiveSurfaces != before.LiveSurfaces {
		t.Errorf("LiveSurfaces = %d, want %d", after.LiveSurfaces, before.LiveSurfaces)
	}
	if got := after.Allocations - before.Allocations; got != 1 {
		t.Errorf("allocations = %d, want 1", got)
	}
	if dev.Stats().ImageCount != 1 {
		t.Errorf("device images = %d, want 1", dev.Stats().ImageCount)
	}
	if src.RefCount() != 1 {
		t.Errorf("source RefCount() = %d, want 1", src.RefCount())
	}
}

func TestGPUPixelRefDeepCopyFailures(t *testing.T) {
	ctx, _ := newMemContext(t)

	t.Run("unbound", func(t *testing.T) {
		r := NewGPUPixelRef(nil)
		defer r.Unref()
		if r.DeepCopy(ConfigRGBA8888) != nil {
			t.Error("DeepCopy() on unbound ref != nil")
		}
	})

	t.Run("no texture view", func(t *testing.T) {
		rt, err := ctx.CreateRenderTarget(gpu.TextureDesc{Width: 4, Height: 4, Format: gputypes.TextureFormatRGBA8Unorm})
		if err != nil {
			t.Fatalf("CreateRenderTarget: %v", err)
		}
		r := NewGPUPixelRef(rt)
		rt.Unref()
		defer r.Unref()
		if r.Texture() != nil {
			t.Error("Texture() != nil for render-target-only surface")
		}
		if r.DeepCopy(ConfigRGBA8888) != nil {
			t.Error("DeepCopy() without texture view != nil")
		}
		// Read-back still works.
		if r.LockPixels() == nil {
			t.Error("LockPixels() on render target = nil")
		} else {
			r.UnlockPixels()
		}
	})

	t.Run("unsupported config", func(t *testing.T) {
		src := uploadGradient(t, ctx, 2, 2)
		r := NewGPUPixelRef(src)
		src.Unref()
		defer r.Unref()
		if r.DeepCopy(ConfigRGB565) != nil {
			t.Error("DeepCopy(RGB565) != nil")
		}
	})
}

func TestGPUPixelRefDeepCopyAllocationFailure(t *testing.T) {
	const size = 16
	ctx, _ := newMemContext(t, memdev.WithBudget(size*size*4))
	src := uploadGradient(t, ctx, size, size)
	r := NewGPUPixelRef(src)
	src.Unref()
	defer r.Unref()

	before := ctx.Stats()
	if c := r.DeepCopy(ConfigRGBA8888); c != nil {
		c.Unref()
		t.Fatal("DeepCopy() succeeded beyond the device budget")
	}
	after := ctx.Stats()
	if after.LiveSurfaces != before.LiveSurfaces || after.Allocations != before.Allocations {
		t.Errorf("failed copy left surfaces behind: before %v, after %v", before, after)
	}
	if src.RefCount() != 1 {
		t.Errorf("source RefCount() = %d, want 1", src.RefCount())
	}
}

func TestSurfacePolicy(t *testing.T) {
	ctx, _ := newMemContext(t)
	tex := uploadGradient(t, ctx, 4, 4)
	defer tex.Unref()
	rt := tex.AsRenderTarget()

	t.Run("as given", func(t *testing.T) {
		r := NewGPUPixelRef(rt)
		defer r.Unref()
		if r.Surface() != gpu.Surface(rt) {
			t.Errorf("Surface() = %v, want the render target", r.Surface())
		}
		c := r.DeepCopy(ConfigRGBA8888)
		if c == nil {
			t.Fatal("DeepCopy() = nil")
		}
		defer c.Unref()
		crt := c.Texture().AsRenderTarget()
		if crt == nil {
			t.Fatal("copy lost its render target")
		}
		if crt.HasStencil() {
			t.Error("copy render target has a stencil")
		}
		if c.(*GPUPixelRef).Policy() != SurfacePolicyAsGiven {
			t.Error("copy did not inherit the policy")
		}
	})

	t.Run("prefer texture", func(t *testing.T) {
		r := NewGPUPixelRef(rt, WithSurfacePolicy(SurfacePolicyPreferTexture))
		defer r.Unref()
		if r.Surface() != gpu.Surface(tex) {
			t.Errorf("Surface() = %v, want the texture view", r.Surface())
		}
		c := r.DeepCopy(ConfigRGBA8888)
		if c == nil {
			t.Fatal("DeepCopy() = nil")
		}
		defer c.Unref()
		if c.Texture().AsRenderTarget() != nil {
			t.Error("copy kept its render target")
		}
		if c.(*GPUPixelRef).Policy() != SurfacePolicyPreferTexture {
			t.Error("copy did not inherit the policy")
		}
	})
}

func TestSurfacePolicyString(t *testing.T) {
	for p, want := range map[SurfacePolicy]string{
		SurfacePolicyAsGiven:       "AsGiven",
		SurfacePolicyPreferTexture: "PreferTexture",
		SurfacePolicy(9):           "Unknown",
	} {
		if got := p.String(); got != want {
			t.Errorf("SurfacePolicy(%d).String() = %q, want %q", p, got, want)
		}
	}
}

func TestBitmapDeepCopyGPU(t *testing.T) {
	ctx, _ := newMemContext(t)
	tex := uploadGradient(t, ctx, 5, 2)
	r := NewGPUPixelRef(tex)
	tex.Unref()

	var b Bitmap
	b.SetConfig(ConfigRGBA8888, 5, 2)
	b.SetPixelRef(r)
	r.Unref()
	defer b.Reset()

	c, ok := b.DeepCopy(ConfigBGRA8888)
	if !ok {
		t.Fatal("DeepCopy() failed")
	}
	defer c.Reset()
	if c.PixelRef().Texture() == nil || c.PixelRef().Texture() == r.Texture() {
		t.Error("bitmap copy is not backed by a new texture")
	}
	// GPU copies lock as RGBA8888 whatever the device format.
	if c.Config() != ConfigRGBA8888 {
		t.Errorf("copy config = %v, want RGBA8888", c.Config())
	}
}

func TestUploadBitmapErrors(t *testing.T) {
	ctx, _ := newMemContext(t)
	if _, err := UploadBitmap(ctx, nil, 0); err == nil {
		t.Error("UploadBitmap(nil) succeeded")
	}
	if _, err := UploadBitmap(ctx, NewBitmap(ConfigRGB565, 2, 2), 0); err == nil {
		t.Error("UploadBitmap(RGB565) succeeded")
	}
}
