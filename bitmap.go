package pixelref

import (
	"encoding/binary"
	"image"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/gogpu/pixelref/gpu"
)

// Bitmap describes a CPU pixel buffer: a config, dimensions and row stride,
// with pixel memory borrowed from a PixelRef.
//
// Pixel memory is only reachable between LockPixels and UnlockPixels.
// The zero Bitmap is empty and ready to use. Bitmap is not safe for
// concurrent use.
type Bitmap struct {
	config   Config
	width    int
	height   int
	rowBytes int

	ref       PixelRef
	pixels    []byte
	lockCount int
}

// NewBitmap creates a bitmap with allocated pixels.
// Returns nil if the config or dimensions are invalid.
func NewBitmap(cfg Config, width, height int) *Bitmap {
	b := &Bitmap{}
	b.SetConfig(cfg, width, height)
	if !b.AllocPixels() {
		return nil
	}
	return b
}

// FromImage creates an RGBA8888 bitmap holding a copy of img.
// Returns nil for empty images.
func FromImage(img image.Image) *Bitmap {
	bounds := img.Bounds()
	b := NewBitmap(ConfigRGBA8888, bounds.Dx(), bounds.Dy())
	if b == nil {
		return nil
	}
	b.LockPixels()
	defer b.UnlockPixels()
	draw.Draw(b.rgbaView(), b.rgbaView().Bounds(), img, bounds.Min, draw.Src)
	return b
}

// SetConfig sets the config and dimensions and drops the pixel ref.
// Negative dimensions, dimensions above gpu.MaxTextureDimension or an
// unknown config leave the bitmap empty.
func (b *Bitmap) SetConfig(cfg Config, width, height int) {
	b.SetPixelRef(nil)
	if width < 0 || height < 0 || width > gpu.MaxTextureDimension || height > gpu.MaxTextureDimension ||
		cfg.BytesPerPixel() == 0 {
		b.config, b.width, b.height, b.rowBytes = ConfigNone, 0, 0, 0
		return
	}
	b.config = cfg
	b.width = width
	b.height = height
	b.rowBytes = width * cfg.BytesPerPixel()
}

// AllocPixels allocates heap memory for the current config and binds it
// as the pixel ref. Reports false if the bitmap is empty.
func (b *Bitmap) AllocPixels() bool {
	if b.Empty() {
		return false
	}
	ref := NewMallocPixelRef(b.rowBytes * b.height)
	if ref == nil {
		return false
	}
	b.SetPixelRef(ref)
	ref.Unref()
	return true
}

// SetPixelRef binds ref as the pixel memory, taking a reference to it.
// The previous ref is unlocked if needed and released. Pass nil to unbind.
func (b *Bitmap) SetPixelRef(ref PixelRef) {
	if b.ref == ref {
		return
	}
	if ref != nil {
		ref.Ref()
	}
	if b.ref != nil {
		if b.lockCount > 0 {
			b.ref.UnlockPixels()
		}
		b.ref.Unref()
	}
	b.ref = ref
	b.pixels = nil
	b.lockCount = 0
}

// PixelRef returns the bound pixel ref, or nil.
func (b *Bitmap) PixelRef() PixelRef { return b.ref }

// LockPixels makes the pixel memory available through Pixels. Locks nest.
// Reports false if there is no pixel ref or its pixels are unavailable.
func (b *Bitmap) LockPixels() bool {
	if b.ref == nil {
		return false
	}
	if b.lockCount == 0 {
		pix := b.ref.LockPixels()
		if pix == nil {
			return false
		}
		b.pixels = pix
	}
	b.lockCount++
	return true
}

// UnlockPixels releases one lock. The pixel memory is released by the
// last unlock.
func (b *Bitmap) UnlockPixels() {
	if b.lockCount == 0 {
		return
	}
	b.lockCount--
	if b.lockCount == 0 {
		b.pixels = nil
		b.ref.UnlockPixels()
	}
}

// IsLocked reports whether the pixels are locked.
func (b *Bitmap) IsLocked() bool { return b.lockCount > 0 }

// Pixels returns the pixel memory, or nil when not locked.
func (b *Bitmap) Pixels() []byte { return b.pixels }

// Reset releases the pixel ref and returns the bitmap to the empty state.
func (b *Bitmap) Reset() {
	b.SetPixelRef(nil)
	b.config, b.width, b.height, b.rowBytes = ConfigNone, 0, 0, 0
}

// Width returns the width in pixels.
func (b *Bitmap) Width() int { return b.width }

// Height returns the height in pixels.
func (b *Bitmap) Height() int { return b.height }

// RowBytes returns the distance between rows in bytes.
func (b *Bitmap) RowBytes() int { return b.rowBytes }

// Config returns the pixel config.
func (b *Bitmap) Config() Config { return b.config }

// Empty reports whether the bitmap has no pixels to describe.
func (b *Bitmap) Empty() bool {
	return b.config == ConfigNone || b.width == 0 || b.height == 0
}

// DeepCopy returns a bitmap with an independent copy of the pixels in cfg.
//
// The pixel ref is asked for a device-side copy first. Refs that cannot
// copy themselves are copied through the CPU when cfg matches the
// bitmap's config.
func (b *Bitmap) DeepCopy(cfg Config) (*Bitmap, bool) {
	if b.ref == nil || b.Empty() {
		return nil, false
	}
	if c := b.ref.DeepCopy(cfg); c != nil {
		out := &Bitmap{}
		// GPU pixel refs always lock in their read-back config.
		lockCfg := cfg
		if lc, ok := c.(interface{ Config() Config }); ok {
			lockCfg = lc.Config()
		}
		out.SetConfig(lockCfg, b.width, b.height)
		out.SetPixelRef(c)
		c.Unref()
		return out, true
	}
	if cfg != b.config {
		return nil, false
	}

	if !b.LockPixels() {
		return nil, false
	}
	defer b.UnlockPixels()
	out := NewBitmap(cfg, b.width, b.height)
	if out == nil {
		return nil, false
	}
	out.LockPixels()
	copy(out.pixels, b.pixels)
	out.UnlockPixels()
	return out, true
}

// ToImage returns a copy of the pixels as an image: *image.Alpha for A8,
// *image.RGBA otherwise. Returns nil if the pixels cannot be locked.
func (b *Bitmap) ToImage() image.Image {
	if b.Empty() || !b.LockPixels() {
		return nil
	}
	defer b.UnlockPixels()

	bounds := image.Rect(0, 0, b.width, b.height)
	if b.config == ConfigA8 {
		img := image.NewAlpha(bounds)
		for y := 0; y < b.height; y++ {
			copy(img.Pix[y*img.Stride:], b.pixels[y*b.rowBytes:y*b.rowBytes+b.width])
		}
		return img
	}

	img := image.NewRGBA(bounds)
	for y := 0; y < b.height; y++ {
		src := b.pixels[y*b.rowBytes:]
		dst := img.Pix[y*img.Stride : y*img.Stride+b.width*4]
		switch b.config {
		case ConfigRGBA8888:
			copy(dst, src[:b.width*4])
		case ConfigBGRA8888:
			for i := 0; i < len(dst); i += 4 {
				dst[i+0], dst[i+1], dst[i+2], dst[i+3] = src[i+2], src[i+1], src[i+0], src[i+3]
			}
		case ConfigRGB565:
			for x := 0; x < b.width; x++ {
				v := binary.LittleEndian.Uint16(src[x*2:])
				r, g, bl := uint8(v>>11)&0x1F, uint8(v>>5)&0x3F, uint8(v)&0x1F
				i := x * 4
				dst[i+0] = r<<3 | r>>2
				dst[i+1] = g<<2 | g>>4
				dst[i+2] = bl<<3 | bl>>2
				dst[i+3] = 0xFF
			}
		}
	}
	return img
}

// SavePNG writes the bitmap to a PNG file.
func (b *Bitmap) SavePNG(path string) error {
	img := b.ToImage()
	if img == nil {
		return ErrNilBitmap
	}
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return png.Encode(f, img)
}

// rgbaView wraps the locked pixels of an RGBA8888 bitmap without copying.
func (b *Bitmap) rgbaView() *image.RGBA {
	return &image.RGBA{
		Pix:    b.pixels,
		Stride: b.rowBytes,
		Rect:   image.Rect(0, 0, b.width, b.height),
	}
}
