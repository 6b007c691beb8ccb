// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package memdev

import (
	"errors"
	"fmt"
)

// Memory budget errors.
var (
	// ErrMemoryBudgetExceeded is returned when allocation would exceed budget.
	ErrMemoryBudgetExceeded = errors.New("memdev: memory budget exceeded")

	// ErrForeignImage is returned when an image from another device is used.
	ErrForeignImage = errors.New("memdev: image belongs to another device")
)

// Default memory limits.
const (
	// DefaultBudgetMB is the default device memory budget (256 MB).
	DefaultBudgetMB = 256
)

// MemoryStats contains device memory usage statistics.
type MemoryStats struct {
	// TotalBytes is the total memory budget in bytes.
	TotalBytes uint64

	// UsedBytes is the currently allocated memory in bytes.
	UsedBytes uint64

	// AvailableBytes is the remaining memory budget.
	AvailableBytes uint64

	// ImageCount is the number of live images.
	ImageCount int

	// Utilization is the percentage of budget used (0.0 to 1.0).
	Utilization float64
}

// String returns a human-readable string of memory stats.
func (s MemoryStats) String() string {
	return fmt.Sprintf("Memory[%.1f%% used, %d/%d KB, %d images]",
		s.Utilization*100,
		s.UsedBytes/1024,
		s.TotalBytes/1024,
		s.ImageCount)
}

// budget tracks reserved bytes against a limit. Caller must hold the
// device lock.
type budget struct {
	totalBytes uint64
	usedBytes  uint64
	images     int
}

// reserve accounts for a new image of size bytes.
func (b *budget) reserve(size uint64) error {
	if size > b.totalBytes {
		return fmt.Errorf("%w: image size %d bytes exceeds total budget %d bytes",
			ErrMemoryBudgetExceeded, size, b.totalBytes)
	}
	if b.usedBytes+size > b.totalBytes {
		return fmt.Errorf("%w: need %d bytes, have %d bytes available",
			ErrMemoryBudgetExceeded, size, b.totalBytes-b.usedBytes)
	}
	b.usedBytes += size
	b.images++
	return nil
}

// free returns size bytes to the budget.
func (b *budget) free(size uint64) {
	b.usedBytes -= size
	b.images--
}

func (b *budget) stats() MemoryStats {
	var utilization float64
	if b.totalBytes > 0 {
		utilization = float64(b.usedBytes) / float64(b.totalBytes)
	}
	return MemoryStats{
		TotalBytes:     b.totalBytes,
		UsedBytes:      b.usedBytes,
		AvailableBytes: b.totalBytes - b.usedBytes,
		ImageCount:     b.images,
		Utilization:    utilization,
	}
}
