// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpudev_test

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	"github.com/gogpu/pixelref/gpu"
	"github.com/gogpu/pixelref/gpu/wgpudev"
)

// newTestDevice returns a wgpudev device, skipping when no GPU backend
// is available.
func newTestDevice(t *testing.T) *wgpudev.Device {
	t.Helper()

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		t.Skipf("cannot create instance: %v", err)
	}
	t.Cleanup(instance.Release)

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		t.Skipf("cannot request adapter: %v", err)
	}
	t.Cleanup(adapter.Release)

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		t.Skipf("cannot request device: %v", err)
	}
	if device.Queue() == nil {
		device.Release()
		t.Skip("skipping: device has no HAL integration (no GPU backend available)")
	}

	dev, err := wgpudev.New(device, wgpudev.WithLabel("test"), wgpudev.WithOwnership())
	if err != nil {
		device.Release()
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(dev.Release)
	return dev
}

func TestNewNilDevice(t *testing.T) {
	if _, err := wgpudev.New(nil); !errors.Is(err, gpu.ErrNilDevice) {
		t.Errorf("err = %v, want ErrNilDevice", err)
	}
}

type fakeProvider struct {
	dev gpucontext.Device
}

func (p fakeProvider) Device() gpucontext.Device             { return p.dev }
func (p fakeProvider) Queue() gpucontext.Queue               { return nil }
func (p fakeProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatUndefined }
func (p fakeProvider) Adapter() gpucontext.Adapter           { return nil }
func (p fakeProvider) AdapterInfo() gpucontext.AdapterInfo   { return gpucontext.AdapterInfo{} }

func TestFromProviderErrors(t *testing.T) {
	if _, err := wgpudev.FromProvider(nil); !errors.Is(err, wgpudev.ErrNilProvider) {
		t.Errorf("nil provider err = %v, want ErrNilProvider", err)
	}
	if _, err := wgpudev.FromProvider(fakeProvider{dev: "not a device"}); !errors.Is(err, wgpudev.ErrNotWGPU) {
		t.Errorf("foreign provider err = %v, want ErrNotWGPU", err)
	}
}

func TestUploadCopyReadBack(t *testing.T) {
	dev := newTestDevice(t)
	ctx, err := gpu.NewContext(dev)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctx.Close()

	desc := gpu.TextureDesc{
		Width:  70, // odd row size exercises the 256-byte pitch padding
		Height: 3,
		Format: gputypes.TextureFormatRGBA8Unorm,
		Flags:  gpu.TextureFlagRenderTarget | gpu.TextureFlagNoStencil,
	}
	src, err := ctx.CreateUncachedTexture(desc)
	if err != nil {
		t.Fatalf("CreateUncachedTexture: %v", err)
	}
	defer src.Unref()

	rowBytes := desc.Width * 4
	pix := make([]byte, rowBytes*desc.Height)
	for i := range pix {
		pix[i] = byte(i)
	}
	if err := src.WritePixels(image.Rect(0, 0, desc.Width, desc.Height), gputypes.TextureFormatRGBA8Unorm, pix, rowBytes); err != nil {
		t.Fatalf("WritePixels: %v", err)
	}

	dst, err := ctx.CreateUncachedTexture(desc)
	if err != nil {
		t.Fatalf("CreateUncachedTexture: %v", err)
	}
	defer dst.Unref()
	if err := ctx.CopyTexture(src, dst.AsRenderTarget()); err != nil {
		t.Fatalf("CopyTexture: %v", err)
	}

	got := make([]byte, len(pix))
	if !dst.ReadPixels(0, 0, desc.Width, desc.Height, gputypes.TextureFormatRGBA8Unorm, got, rowBytes) {
		t.Fatal("ReadPixels() = false")
	}
	if !bytes.Equal(got, pix) {
		t.Error("read-back does not match uploaded pixels")
	}
}

func TestReleaseMarksLost(t *testing.T) {
	dev := newTestDevice(t)
	dev.Release()
	if !dev.IsLost() {
		t.Error("IsLost() = false after Release")
	}
	if _, err := dev.CreateImage(gpu.TextureDesc{Width: 1, Height: 1, Format: gputypes.TextureFormatRGBA8Unorm}); !errors.Is(err, gpu.ErrDeviceLost) {
		t.Errorf("CreateImage after Release err = %v, want ErrDeviceLost", err)
	}
}
