// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpudev

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	"github.com/gogpu/pixelref/gpu"
)

// copyPitchAlignment is the WebGPU requirement for BytesPerRow in
// texture-to-buffer copies.
const copyPitchAlignment = 256

var (
	// ErrNilProvider is returned by FromProvider for a nil provider.
	ErrNilProvider = errors.New("wgpudev: nil DeviceProvider")

	// ErrNotWGPU is returned when a provider's device is not a *wgpu.Device.
	ErrNotWGPU = errors.New("wgpudev: provider device is not a *wgpu.Device")

	// ErrForeignImage is returned when an image from another device is used.
	ErrForeignImage = errors.New("wgpudev: image belongs to another device")
)

// Device is a gpu.Device backed by a wgpu device.
//
// Device is safe for concurrent use. Transfers are serialized on the queue.
type Device struct {
	device *wgpu.Device
	queue  *wgpu.Queue
	opts   options

	// mu serializes command submission and staging buffer mapping.
	mu       sync.Mutex
	released atomic.Bool
}

// New wraps a wgpu device. The device must have a queue.
func New(device *wgpu.Device, opts ...Option) (*Device, error) {
	if device == nil {
		return nil, gpu.ErrNilDevice
	}
	queue := device.Queue()
	if queue == nil {
		return nil, fmt.Errorf("%w: device has no queue", gpu.ErrDeviceLost)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Device{device: device, queue: queue, opts: o}, nil
}

// FromProvider wraps the device of a gpucontext.DeviceProvider, such as a
// gogpu application. The provider keeps ownership of the device.
func FromProvider(p gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	if p == nil {
		return nil, ErrNilProvider
	}
	device, ok := p.Device().(*wgpu.Device)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotWGPU, p.Device())
	}
	return New(device, opts...)
}

// Name returns the device label.
func (d *Device) Name() string { return d.opts.label }

// IsLost reports whether the device has been released.
func (d *Device) IsLost() bool { return d.released.Load() }

// Release marks the device lost. With WithOwnership the wgpu device is
// released too. Calling Release more than once has no effect.
func (d *Device) Release() {
	if d.released.Swap(true) {
		return
	}
	if d.opts.owned {
		d.device.Release()
	}
}

// CreateImage allocates a 2D texture for desc.
func (d *Device) CreateImage(desc gpu.TextureDesc) (gpu.Image, error) {
	if d.IsLost() {
		return nil, gpu.ErrDeviceLost
	}
	bpp := gpu.BytesPerPixel(desc.Format)
	if bpp == 0 {
		return nil, fmt.Errorf("%w: %v", gpu.ErrUnsupportedFormat, desc.Format)
	}

	label := desc.Label
	if label == "" {
		label = d.opts.label + "-surface"
	}
	//nolint:gosec // G115: dimensions are validated by gpu.TextureDesc
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              uint32(desc.Width),
			Height:             uint32(desc.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage(),
	})
	if err != nil {
		return nil, fmt.Errorf("wgpudev: create texture: %w", err)
	}
	return &Image{
		dev:    d,
		tex:    tex,
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
	}, nil
}

// CopyImage copies the top-left width x height block of src into dst.
func (d *Device) CopyImage(src, dst gpu.Image, width, height int) error {
	if d.IsLost() {
		return gpu.ErrDeviceLost
	}
	s, err := d.own(src)
	if err != nil {
		return err
	}
	t, err := d.own(dst)
	if err != nil {
		return err
	}
	if width > s.width || height > s.height || width > t.width || height > t.height {
		return fmt.Errorf("%w: copy %dx%d from %dx%d to %dx%d", gpu.ErrRegionOutOfBounds,
			width, height, s.width, s.height, t.width, t.height)
	}

	if s == t {
		return nil
	}
	if !gpu.SameLayout(s.format, t.format) {
		return d.convertCopy(s, t, width, height)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	enc, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: d.opts.label + "-copy"})
	if err != nil {
		return fmt.Errorf("wgpudev: create encoder: %w", err)
	}
	//nolint:gosec // G115: bounded by texture dimensions
	enc.CopyTextureToTexture(s.tex, t.tex, []wgpu.TextureCopy{{
		Source:      wgpu.ImageCopyTexture{Texture: s.tex, Aspect: gputypes.TextureAspectAll},
		Destination: wgpu.ImageCopyTexture{Texture: t.tex, Aspect: gputypes.TextureAspectAll},
		Size:        wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
	}})
	return d.submit(enc)
}

// convertCopy copies between textures of different layouts through host
// memory, converting on the way.
func (d *Device) convertCopy(s, t *Image, width, height int) error {
	rowBytes := width * gpu.BytesPerPixel(t.format)
	buf := make([]byte, rowBytes*height)
	rect := image.Rect(0, 0, width, height)
	if err := d.ReadImage(s, rect, t.format, buf, rowBytes); err != nil {
		return err
	}
	return d.WriteImage(t, rect, t.format, buf, rowBytes)
}

// ReadImage reads rect of img into dst, converting to layout.
func (d *Device) ReadImage(img gpu.Image, rect image.Rectangle, layout gputypes.TextureFormat, dst []byte, rowBytes int) error {
	if d.IsLost() {
		return gpu.ErrDeviceLost
	}
	m, err := d.own(img)
	if err != nil {
		return err
	}
	if err := m.checkRect(rect); err != nil {
		return err
	}

	bpp := gpu.BytesPerPixel(m.format)
	tight := rect.Dx() * bpp
	padded := alignUp(tight, copyPitchAlignment)
	//nolint:gosec // G115: bounded by texture dimensions
	size := uint64(padded * rect.Dy())

	d.mu.Lock()
	defer d.mu.Unlock()

	staging, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: d.opts.label + "-staging",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpudev: create staging buffer: %w", err)
	}
	defer staging.Release()

	enc, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: d.opts.label + "-readback"})
	if err != nil {
		return fmt.Errorf("wgpudev: create encoder: %w", err)
	}
	//nolint:gosec // G115: bounded by texture dimensions
	enc.CopyTextureToBuffer(m.tex, staging, []wgpu.BufferTextureCopy{{
		BufferLayout: wgpu.ImageDataLayout{
			BytesPerRow:  uint32(padded),
			RowsPerImage: uint32(rect.Dy()),
		},
		TextureBase: wgpu.ImageCopyTexture{
			Texture: m.tex,
			Origin:  wgpu.Origin3D{X: uint32(rect.Min.X), Y: uint32(rect.Min.Y)},
			Aspect:  gputypes.TextureAspectAll,
		},
		Size: wgpu.Extent3D{Width: uint32(rect.Dx()), Height: uint32(rect.Dy()), DepthOrArrayLayers: 1},
	}})
	if err := d.submit(enc); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.opts.mapTimeout)
	defer cancel()
	if err := staging.Map(ctx, wgpu.MapModeRead, 0, size); err != nil {
		return fmt.Errorf("wgpudev: map staging buffer: %w", err)
	}
	defer func() { _ = staging.Unmap() }()

	rng, err := staging.MappedRange(0, size)
	if err != nil {
		return fmt.Errorf("wgpudev: mapped range: %w", err)
	}
	defer rng.Release()

	return gpu.ConvertPixels(dst, layout, rowBytes, rng.Bytes(), m.format, padded, rect.Dx(), rect.Dy())
}

// WriteImage uploads src into rect of img, converting from layout.
func (d *Device) WriteImage(img gpu.Image, rect image.Rectangle, layout gputypes.TextureFormat, src []byte, rowBytes int) error {
	if d.IsLost() {
		return gpu.ErrDeviceLost
	}
	m, err := d.own(img)
	if err != nil {
		return err
	}
	if err := m.checkRect(rect); err != nil {
		return err
	}

	tight := rect.Dx() * gpu.BytesPerPixel(m.format)
	native := make([]byte, tight*rect.Dy())
	if err := gpu.ConvertPixels(native, m.format, tight, src, layout, rowBytes, rect.Dx(), rect.Dy()); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	//nolint:gosec // G115: bounded by texture dimensions
	err = d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture: m.tex,
			Origin:  wgpu.Origin3D{X: uint32(rect.Min.X), Y: uint32(rect.Min.Y)},
			Aspect:  gputypes.TextureAspectAll,
		},
		native,
		&wgpu.ImageDataLayout{BytesPerRow: uint32(tight), RowsPerImage: uint32(rect.Dy())},
		&wgpu.Extent3D{Width: uint32(rect.Dx()), Height: uint32(rect.Dy()), DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("wgpudev: write texture: %w", err)
	}
	return nil
}

// submit finishes enc and submits it. Caller must hold d.mu.
func (d *Device) submit(enc *wgpu.CommandEncoder) error {
	cb, err := enc.Finish()
	if err != nil {
		return fmt.Errorf("wgpudev: finish encoder: %w", err)
	}
	// A submitted command buffer is recycled by the queue.
	if _, err := d.queue.Submit(cb); err != nil {
		cb.Release()
		return fmt.Errorf("wgpudev: submit: %w", err)
	}
	return nil
}

func (d *Device) own(img gpu.Image) (*Image, error) {
	m, ok := img.(*Image)
	if !ok || m.dev != d {
		return nil, ErrForeignImage
	}
	if m.destroyed.Load() {
		return nil, gpu.ErrSurfaceReleased
	}
	return m, nil
}

// Image is a wgpu texture backing one surface.
type Image struct {
	dev       *Device
	tex       *wgpu.Texture
	width     int
	height    int
	format    gputypes.TextureFormat
	destroyed atomic.Bool
}

// Width returns the texture width in pixels.
func (m *Image) Width() int { return m.width }

// Height returns the texture height in pixels.
func (m *Image) Height() int { return m.height }

// Format returns the texture format.
func (m *Image) Format() gputypes.TextureFormat { return m.format }

// Texture returns the underlying wgpu texture, for rendering into it
// directly. The texture is owned by the surface.
func (m *Image) Texture() *wgpu.Texture { return m.tex }

// Destroy releases the texture. Calling Destroy more than once has no effect.
func (m *Image) Destroy() {
	if m.destroyed.Swap(true) {
		return
	}
	m.tex.Release()
}

func (m *Image) checkRect(rect image.Rectangle) error {
	bounds := image.Rect(0, 0, m.width, m.height)
	if rect.Empty() || !rect.In(bounds) {
		return fmt.Errorf("%w: %v not in %v", gpu.ErrRegionOutOfBounds, rect, bounds)
	}
	return nil
}

func alignUp(n, align int) int {
	return (n + align - 1) / align * align
}

// Verify Device implements the gpu backend interfaces.
var (
	_ gpu.Device   = (*Device)(nil)
	_ gpu.Uploader = (*Device)(nil)
)
