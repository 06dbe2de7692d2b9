// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package bdei2c

import (
	"sync/atomic"
	"time"

	"github.com/platinasystems/bdei2c/internal/bde"
)

// reset the engine to its baseline; used on initialization and after a
// protocol error or timeout.
func (c *Controller) reset() {
	c.gate.Enable(false)
	c.dump()

	c.debug(2, "reset")
	c.write(bde.Reset, 0xff)
	time.Sleep(c.ResetDelay)
	// there should be no pending interrupt at this point
	c.dump()

	c.write(bde.Ctrl, bde.CtrlIEN|bde.CtrlENAB)
	c.write(bde.Addr, 0)
	c.debug(3, "write CCR %#02x", c.ClockDivisor)
	c.write(bde.CCR, c.ClockDivisor)

	atomic.AddUint64(&c.stats.Resets, 1)
}

func (c *Controller) dump() {
	if c.Debug < 3 {
		return
	}
	c.debug(3, "ADDR %#02x DATA %#02x CTRL %#02x STAT %v XADDR %#02x",
		c.read(bde.Addr), c.read(bde.Data), c.read(bde.Ctrl),
		c.status(), c.read(bde.XAddr))
	c.debug(3, "IRQ_STAT %#08x IRQ_MASK %#08x",
		c.read(bde.IrqStat), c.read(bde.IrqMask))
}
