// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package irq provides the shared interrupt mask register of a chip, single
// source gates on it, and a shared interrupt line dispatcher.
package irq

import (
	"sync"

	"github.com/platinasystems/bdei2c/internal/hw"
)

// Mask owns a chip wide interrupt mask register that is shared by every
// interrupt source on the chip. All modifications are read-modify-write
// under the mask's lock so that sources never clobber each other's bits.
type Mask struct {
	mu     sync.Mutex
	regs   *hw.Regs
	offset uint
}

func NewMask(regs *hw.Regs, offset uint) *Mask {
	return &Mask{regs: regs, offset: offset}
}

func (m *Mask) Get() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs.Read(m.offset)
}

// Modify sets then clears the given bits and returns the new value.
func (m *Mask) Modify(set, clear uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.regs.Read(m.offset)
	v |= set
	v &^= clear
	m.regs.Write(m.offset, v)
	return v
}

// Gate {en,dis}ables exactly one interrupt source of a Mask.
type Gate struct {
	*Mask
	Bit uint32
}

func (g Gate) Enable(enable bool) {
	if enable {
		g.Modify(g.Bit, 0)
	} else {
		g.Modify(0, g.Bit)
	}
}

func (g Gate) Enabled() bool { return g.Get()&g.Bit != 0 }
