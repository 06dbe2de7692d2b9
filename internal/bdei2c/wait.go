// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package bdei2c

import (
	"sync/atomic"
	"time"

	"github.com/platinasystems/bdei2c/internal/bde"
)

// wait for the completion interrupt of the phase just started.
//
// We're always called right after clearing IFLG and the engine doesn't
// lower its interrupt line right away, so hang around a bit before
// enabling the interrupt or we'd get a spurious one immediately. Watching
// IrqStat for the line to drop isn't race free, so this is a fixed count
// of register reads.
func (c *Controller) wait() error {
	for i := 0; i < c.SettleReads; i++ {
		c.read(bde.Ctrl)
	}

	atomic.StoreUint32(&c.intr, 0)
	select {
	case <-c.wake:
	default:
	}
	c.gate.Enable(true)

	t := time.NewTimer(c.Timeout)
	defer t.Stop()
	select {
	case <-c.wake:
	case <-t.C:
	}
	if atomic.LoadUint32(&c.intr) == 0 {
		c.debug(2, "timeout after %v", c.Timeout)
		return ErrTimeout
	}
	return nil
}

// Interrupt is the handler connected to the chip's shared interrupt line.
func (c *Controller) Interrupt() {
	s := c.read(bde.IrqStat)
	m := c.read(bde.IrqMask)
	if s&m&bde.IrqI2C == 0 {
		c.debug(3, "not this unit")
		return
	}

	// IFLG is lowered before every wait, so if it's still low this is
	// the spurious interrupt described above; try again.
	if b := c.ctrl(); b&bde.CtrlIFLG == 0 {
		c.skipped++
		if c.skipped < c.SkipBound {
			c.debug(3, "CTRL %#02x skip %d", b, c.skipped)
			return
		}
	}
	if c.skipped > 0 {
		c.warn("%d spurious interrupt(s)", c.skipped)
		atomic.AddUint64(&c.stats.Spurious, uint64(c.skipped))
		c.skipped = 0
	}

	c.gate.Enable(false)
	atomic.StoreUint32(&c.intr, 1)
	select {
	case c.wake <- struct{}{}:
	default:
	}
}
