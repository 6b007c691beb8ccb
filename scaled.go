package pixelref

import (
	"image"

	"golang.org/x/image/draw"
)

// ScaledPixelSource produces a resampled copy of a source bitmap.
// Wrapped in a ReadOnlyLazyPixelRef it yields a live thumbnail: every lock
// rescales the current source pixels.
type ScaledPixelSource struct {
	src    *Bitmap
	width  int
	height int
	interp draw.Interpolator
}

// NewScaledPixelSource returns a source scaling src to width x height with
// interp. A nil interp uses draw.BiLinear.
func NewScaledPixelSource(src *Bitmap, width, height int, interp draw.Interpolator) *ScaledPixelSource {
	if interp == nil {
		interp = draw.BiLinear
	}
	return &ScaledPixelSource{src: src, width: width, height: height, interp: interp}
}

// ReadPixels scales the source into dst as RGBA8888. A subset selects a
// region of the scaled frame.
func (s *ScaledPixelSource) ReadPixels(dst *Bitmap, subset *image.Rectangle) bool {
	frame := image.Rect(0, 0, s.width, s.height)
	region := frame
	if subset != nil {
		region = subset.Intersect(frame)
	}
	if region.Empty() || s.src == nil {
		return false
	}

	srcImg := s.src.ToImage()
	if srcImg == nil {
		return false
	}

	dst.SetConfig(ConfigRGBA8888, region.Dx(), region.Dy())
	if !dst.AllocPixels() || !dst.LockPixels() {
		return false
	}
	defer dst.UnlockPixels()

	// Place the scaled frame so region lands at the origin of dst.
	dr := frame.Sub(region.Min)
	s.interp.Scale(dst.rgbaView(), dr, srcImg, srcImg.Bounds(), draw.Src, nil)
	return true
}
