// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package bdei2c

import (
	"time"

	"github.com/platinasystems/bdei2c/internal/bde"
	"github.com/platinasystems/bdei2c/internal/hw"
)

// Params tune a Controller; zero fields take the DefaultParams value.
type Params struct {
	// Timeout bounds each wait for a completion interrupt.
	Timeout time.Duration
	// SettleReads is the number of discarded Ctrl reads between clearing
	// IFLG and re-enabling the interrupt. The engine holds its interrupt
	// line for a while after IFLG is cleared, so enabling too soon gets
	// an immediate spurious interrupt. The count was arrived at
	// empirically and is in bus cycles, not time.
	SettleReads int
	// SkipBound limits how many interrupts without IFLG are ignored in a
	// row before the waiter is woken anyway.
	SkipBound int
	// ResetDelay is held after writing the reset register.
	ResetDelay time.Duration
	// ClockDivisor is written to CCR on reset.
	ClockDivisor uint32
	Endian       hw.Endian
	// Debug enables trace logging at levels 1 through 3.
	Debug int
}

var DefaultParams = Params{
	Timeout:      10 * time.Second,
	SettleReads:  7,
	SkipBound:    10,
	ResetDelay:   time.Millisecond,
	ClockDivisor: bde.DefaultCCR,
	Endian:       hw.ForceBig,
}

func (p Params) withDefaults() Params {
	d := DefaultParams
	if p.Timeout == 0 {
		p.Timeout = d.Timeout
	}
	if p.SettleReads <= 0 {
		p.SettleReads = d.SettleReads
	}
	if p.SkipBound == 0 {
		p.SkipBound = d.SkipBound
	}
	if p.ResetDelay == 0 {
		p.ResetDelay = d.ResetDelay
	}
	if p.ClockDivisor == 0 {
		p.ClockDivisor = d.ClockDivisor
	}
	return p
}
