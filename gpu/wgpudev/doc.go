// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package wgpudev implements gpu.Device on top of github.com/gogpu/wgpu.
//
// Surfaces are real 2D GPU textures. Copies are recorded with
// CopyTextureToTexture when source and destination share a pixel layout,
// and fall back to a read-back followed by an upload when they do not.
// Read-back goes through a MapRead staging buffer whose rows are padded to
// the 256-byte copy pitch required by WebGPU.
//
// Example:
//
//	dev, err := wgpudev.FromProvider(app)
//	if err != nil {
//	    return err
//	}
//	ctx, err := gpu.NewContext(dev)
package wgpudev
