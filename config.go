package pixelref

import "github.com/gogpu/gputypes"

// Config identifies the pixel layout of a CPU bitmap.
type Config uint8

const (
	// ConfigNone is the zero config; bitmaps with it have no pixels.
	ConfigNone Config = iota

	// ConfigA8 stores 8 bits of alpha per pixel.
	ConfigA8

	// ConfigRGB565 stores 16-bit packed RGB, little-endian.
	ConfigRGB565

	// ConfigRGBA8888 stores 32-bit interleaved R, G, B, A bytes.
	// This is the canonical CPU format of GPU read-backs.
	ConfigRGBA8888

	// ConfigBGRA8888 stores 32-bit interleaved B, G, R, A bytes.
	ConfigBGRA8888
)

// BytesPerPixel returns the size of one pixel, or 0 for ConfigNone.
func (c Config) BytesPerPixel() int {
	switch c {
	case ConfigA8:
		return 1
	case ConfigRGB565:
		return 2
	case ConfigRGBA8888, ConfigBGRA8888:
		return 4
	default:
		return 0
	}
}

// String returns the config name.
func (c Config) String() string {
	switch c {
	case ConfigNone:
		return "None"
	case ConfigA8:
		return "A8"
	case ConfigRGB565:
		return "RGB565"
	case ConfigRGBA8888:
		return "RGBA8888"
	case ConfigBGRA8888:
		return "BGRA8888"
	default:
		return "Unknown"
	}
}

// TextureFormat maps c to the device texture format with the same byte
// layout. Configs without a device equivalent map to
// gputypes.TextureFormatUndefined.
func (c Config) TextureFormat() gputypes.TextureFormat {
	switch c {
	case ConfigA8:
		return gputypes.TextureFormatR8Unorm
	case ConfigRGBA8888:
		return gputypes.TextureFormatRGBA8Unorm
	case ConfigBGRA8888:
		return gputypes.TextureFormatBGRA8Unorm
	default:
		return gputypes.TextureFormatUndefined
	}
}

// readBackLayout is the device-side layout GPU pixel refs read into.
const readBackLayout = gputypes.TextureFormatRGBA8Unorm
