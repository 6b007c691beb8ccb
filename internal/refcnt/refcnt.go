// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package refcnt provides an atomic reference counter whose destructor
// runs exactly once.
package refcnt

import "sync/atomic"

// noCopy may be embedded into structs which must not be copied
// after first use. go vet's copylocks check recognizes it.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Count is an atomic reference count starting at one.
//
// The zero value is not usable; create counts with New.
// Count must not be copied after creation.
type Count struct {
	_      noCopy
	n      atomic.Int32
	onZero func()
	done   atomic.Bool
}

// New returns a count holding one reference. onZero runs once, on the
// goroutine that drops the last reference.
func New(onZero func()) *Count {
	c := &Count{onZero: onZero}
	c.n.Store(1)
	return c
}

// Ref acquires a reference. It reports false if the count already
// reached zero; the caller must not use the object in that case.
func (c *Count) Ref() bool {
	for {
		n := c.n.Load()
		if n <= 0 {
			return false
		}
		if c.n.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Unref releases a reference. It reports false if there was no
// reference left to release (over-release); the destructor is not
// run again in that case.
func (c *Count) Unref() bool {
	for {
		n := c.n.Load()
		if n <= 0 {
			return false
		}
		if c.n.CompareAndSwap(n, n-1) {
			if n == 1 && c.done.CompareAndSwap(false, true) && c.onZero != nil {
				c.onZero()
			}
			return true
		}
	}
}

// Load returns the current number of references.
func (c *Count) Load() int32 {
	return c.n.Load()
}

// Dead reports whether the last reference has been dropped.
func (c *Count) Dead() bool {
	return c.done.Load()
}
