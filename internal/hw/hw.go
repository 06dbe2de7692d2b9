// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package hw provides byte order normalized access to the 32-bit registers
// of a memory mapped device window.
package hw

import (
	"math/bits"
	"unsafe"
)

// A Window is a raw view of a device register window. Load32 and Store32
// must reach the device on every call.
type Window interface {
	Load32(offset uint) uint32
	Store32(offset uint, data uint32)
}

type Endian int

const (
	// ForceBig assumes the device has been set big-endian.
	ForceBig Endian = iota
	// Adaptive selects the byte order per access from bit 0 of the
	// endian select register.
	Adaptive
)

func (e Endian) String() string {
	switch e {
	case ForceBig:
		return "big"
	case Adaptive:
		return "adaptive"
	}
	return "unknown"
}

// Regs reads and writes host native register values.
type Regs struct {
	Window
	Endian Endian
	// EndianSelect is the offset of the endian select register used by
	// Adaptive mode.
	EndianSelect uint
}

var hostIsBig = func() bool {
	x := uint16(1)
	return (*[2]byte)(unsafe.Pointer(&x))[0] == 0
}()

func (r *Regs) big() bool {
	if r.Endian == ForceBig {
		return true
	}
	return r.Window.Load32(r.EndianSelect)&0x01 != 0
}

// Swap converts a raw window value to host order and back.
func (r *Regs) Swap(data uint32) uint32 {
	if r.big() != hostIsBig {
		return bits.ReverseBytes32(data)
	}
	return data
}

// Read returns the host native value of the register at offset.
func (r *Regs) Read(offset uint) uint32 {
	return r.Swap(r.Window.Load32(offset))
}

// Write stores the host native value to the register at offset.
func (r *Regs) Write(offset uint, data uint32) {
	r.Window.Store32(offset, r.Swap(data))
}
