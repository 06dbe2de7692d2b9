// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// +build linux

package hw

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Mmap is a Window over a shared mapping of a device resource file such
// as /sys/bus/pci/devices/ADDR/resource0.
type Mmap struct {
	Path string
	mem  []byte
}

func Map(path string, size int) (*Mmap, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	mem, err := unix.Mmap(int(f.Fd()), 0, size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %v", path, err)
	}
	return &Mmap{Path: path, mem: mem}, nil
}

func (m *Mmap) addr(offset uint) *uint32 {
	if offset&3 != 0 || offset+4 > uint(len(m.mem)) {
		panic(fmt.Errorf("%s: bad register offset %#x", m.Path, offset))
	}
	return (*uint32)(unsafe.Pointer(&m.mem[offset]))
}

func (m *Mmap) Load32(offset uint) uint32 {
	return atomic.LoadUint32(m.addr(offset))
}

func (m *Mmap) Store32(offset uint, data uint32) {
	atomic.StoreUint32(m.addr(offset), data)
}

func (m *Mmap) Size() int { return len(m.mem) }

func (m *Mmap) Unmap() error {
	if m.mem == nil {
		return nil
	}
	err := unix.Munmap(m.mem)
	m.mem = nil
	if err != nil {
		return fmt.Errorf("munmap %s: %v", m.Path, err)
	}
	return nil
}
