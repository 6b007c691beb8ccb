package pixelref

import "errors"

// Errors returned by the texture copy path. Pixel refs themselves report
// failure as nil or false and log these causes.
var (
	// ErrNoTexture is returned when a deep copy source has no texture view.
	ErrNoTexture = errors.New("pixelref: source surface has no texture")

	// ErrNoContext is returned when a source texture has no owning context.
	ErrNoContext = errors.New("pixelref: source texture has no context")

	// ErrNilBitmap is returned when a nil or empty bitmap is uploaded.
	ErrNilBitmap = errors.New("pixelref: bitmap is nil or empty")
)
