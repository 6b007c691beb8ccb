// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package memdev implements gpu.Device in host memory.
//
// Images are plain byte slices in their native format. The device
// enforces a memory budget, so allocation failures can be produced on
// demand, and can simulate device loss with Lose. It serves headless
// environments, CPU fallback and tests.
//
//	dev := memdev.New(memdev.WithBudget(64 << 20))
//	ctx, _ := gpu.NewContext(dev)
package memdev

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/pixelref/gpu"
)

// Option configures a Device.
type Option func(*Device)

// WithBudget sets the memory budget in bytes.
func WithBudget(bytes uint64) Option {
	return func(d *Device) {
		d.budget.totalBytes = bytes
	}
}

// WithName sets the name reported by Name.
func WithName(name string) Option {
	return func(d *Device) {
		d.name = name
	}
}

// Counters contains transfer counters.
type Counters struct {
	// Copies is the number of CopyImage calls that succeeded.
	Copies uint64

	// Reads is the number of ReadImage calls that succeeded.
	Reads uint64

	// Writes is the number of WriteImage calls that succeeded.
	Writes uint64
}

// Device is an in-memory gpu.Device.
//
// Device is safe for concurrent use.
type Device struct {
	name string

	mu     sync.Mutex
	budget budget

	nextID atomic.Uint64
	lost   atomic.Bool
	copies atomic.Uint64
	reads  atomic.Uint64
	writes atomic.Uint64
}

// New creates a device with the default budget.
func New(opts ...Option) *Device {
	d := &Device{
		name:   "memdev",
		budget: budget{totalBytes: DefaultBudgetMB * 1024 * 1024},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the device name.
func (d *Device) Name() string { return d.name }

// IsLost reports whether Lose was called.
func (d *Device) IsLost() bool { return d.lost.Load() }

// Lose simulates device loss. Every later operation fails with
// gpu.ErrDeviceLost; images can still be destroyed.
func (d *Device) Lose() { d.lost.Store(true) }

// Stats returns memory usage statistics.
func (d *Device) Stats() MemoryStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.budget.stats()
}

// Counters returns transfer counters.
func (d *Device) Counters() Counters {
	return Counters{
		Copies: d.copies.Load(),
		Reads:  d.reads.Load(),
		Writes: d.writes.Load(),
	}
}

// CreateImage allocates zeroed pixel memory for desc.
func (d *Device) CreateImage(desc gpu.TextureDesc) (gpu.Image, error) {
	if d.IsLost() {
		return nil, gpu.ErrDeviceLost
	}
	bpp := gpu.BytesPerPixel(desc.Format)
	if bpp == 0 {
		return nil, fmt.Errorf("%w: %v", gpu.ErrUnsupportedFormat, desc.Format)
	}
	size := desc.SizeBytes()

	d.mu.Lock()
	err := d.budget.reserve(size)
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}

	return &Image{
		id:       d.nextID.Add(1),
		dev:      d,
		width:    desc.Width,
		height:   desc.Height,
		format:   desc.Format,
		rowBytes: desc.Width * bpp,
		pix:      make([]byte, size),
		label:    desc.Label,
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
	// Lock in id order so concurrent opposite copies cannot deadlock.
	first, second := s, t
	if first.id > second.id {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if err := gpu.ConvertPixels(t.pix, t.format, t.rowBytes, s.pix, s.format, s.rowBytes, width, height); err != nil {
		return err
	}
	d.copies.Add(1)
	return nil
}

// ReadImage reads rect of img into dst.
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

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := gpu.ConvertPixels(dst, layout, rowBytes, m.pix[m.offset(rect.Min):], m.format, m.rowBytes, rect.Dx(), rect.Dy()); err != nil {
		return err
	}
	d.reads.Add(1)
	return nil
}

// WriteImage writes src into rect of img.
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

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := gpu.ConvertPixels(m.pix[m.offset(rect.Min):], m.format, m.rowBytes, src, layout, rowBytes, rect.Dx(), rect.Dy()); err != nil {
		return err
	}
	d.writes.Add(1)
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

// Image is host memory backing one surface.
type Image struct {
	id       uint64
	dev      *Device
	width    int
	height   int
	format   gputypes.TextureFormat
	rowBytes int
	label    string

	mu        sync.RWMutex
	pix       []byte
	destroyed atomic.Bool
}

// Width returns the image width in pixels.
func (m *Image) Width() int { return m.width }

// Height returns the image height in pixels.
func (m *Image) Height() int { return m.height }

// Format returns the native pixel format.
func (m *Image) Format() gputypes.TextureFormat { return m.format }

// Destroy frees the pixel memory and returns it to the budget.
// Calling Destroy more than once has no effect.
func (m *Image) Destroy() {
	if m.destroyed.Swap(true) {
		return
	}
	m.mu.Lock()
	size := uint64(len(m.pix))
	m.pix = nil
	m.mu.Unlock()

	m.dev.mu.Lock()
	m.dev.budget.free(size)
	m.dev.mu.Unlock()
}

func (m *Image) checkRect(rect image.Rectangle) error {
	bounds := image.Rect(0, 0, m.width, m.height)
	if rect.Empty() || !rect.In(bounds) {
		return fmt.Errorf("%w: %v not in %v", gpu.ErrRegionOutOfBounds, rect, bounds)
	}
	return nil
}

func (m *Image) offset(p image.Point) int {
	return p.Y*m.rowBytes + p.X*gpu.BytesPerPixel(m.format)
}

// Verify Device implements the gpu backend interfaces.
var (
	_ gpu.Device   = (*Device)(nil)
	_ gpu.Uploader = (*Device)(nil)
)
