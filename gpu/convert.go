// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// BytesPerPixel returns the size of one pixel in format, or 0 if the
// format is not supported for allocation and read-back.
func BytesPerPixel(format gputypes.TextureFormat) int {
	switch format {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
		return 4
	case gputypes.TextureFormatR8Unorm:
		return 1
	default:
		return 0
	}
}

// channelOrder identifies the byte layout of a supported format.
type channelOrder uint8

const (
	orderUnknown channelOrder = iota
	orderRGBA
	orderBGRA
	orderR
)

func orderOf(format gputypes.TextureFormat) channelOrder {
	switch format {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb:
		return orderRGBA
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
		return orderBGRA
	case gputypes.TextureFormatR8Unorm:
		return orderR
	default:
		return orderUnknown
	}
}

// SameLayout reports whether a and b store pixels with identical bytes.
// sRGB variants share the layout of their linear counterparts.
func SameLayout(a, b gputypes.TextureFormat) bool {
	oa := orderOf(a)
	return oa != orderUnknown && oa == orderOf(b)
}

// ConvertPixels copies a width x height block from src to dst, converting
// between pixel layouts. Supported layouts are 32-bit RGBA and BGRA and R8.
// An R8 source expands to (r, 0, 0, 255), the value a shader sees when
// sampling it. An R8 destination keeps the alpha channel of a 32-bit source.
func ConvertPixels(
	dst []byte, dstFormat gputypes.TextureFormat, dstRowBytes int,
	src []byte, srcFormat gputypes.TextureFormat, srcRowBytes int,
	width, height int,
) error {
	so, do := orderOf(srcFormat), orderOf(dstFormat)
	if so == orderUnknown || do == orderUnknown {
		return fmt.Errorf("%w: %v to %v", ErrUnsupportedFormat, srcFormat, dstFormat)
	}
	if width <= 0 || height <= 0 {
		return nil
	}

	sbpp, dbpp := BytesPerPixel(srcFormat), BytesPerPixel(dstFormat)
	if need := (height-1)*srcRowBytes + width*sbpp; len(src) < need {
		return fmt.Errorf("%w: source has %d bytes, need %d", ErrBufferTooSmall, len(src), need)
	}
	if need := (height-1)*dstRowBytes + width*dbpp; len(dst) < need {
		return fmt.Errorf("%w: have %d bytes, need %d", ErrBufferTooSmall, len(dst), need)
	}

	for y := 0; y < height; y++ {
		s := src[y*srcRowBytes : y*srcRowBytes+width*sbpp]
		d := dst[y*dstRowBytes : y*dstRowBytes+width*dbpp]
		switch {
		case so == do:
			copy(d, s)
		case do == orderR:
			for x := range d {
				d[x] = s[x*4+3]
			}
		case so == orderR:
			for x := 0; x < width; x++ {
				i := x * 4
				d[i+0], d[i+1], d[i+2], d[i+3] = 0, 0, 0, 0xFF
				if do == orderRGBA {
					d[i+0] = s[x]
				} else {
					d[i+2] = s[x]
				}
			}
		default:
			// RGBA <-> BGRA: swap the red and blue channels.
			for i := 0; i < len(s); i += 4 {
				d[i+0] = s[i+2]
				d[i+1] = s[i+1]
				d[i+2] = s[i+0]
				d[i+3] = s[i+3]
			}
		}
	}
	return nil
}
