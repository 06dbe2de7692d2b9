// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package bdei2c drives the master mode I2C engine of a Broadcom switch
// chip through its register window, one phase at a time, with completion
// signalled by the chip's shared interrupt.
package bdei2c

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/platinasystems/bdei2c/internal/bde"
	"github.com/platinasystems/bdei2c/internal/hw"
	"github.com/platinasystems/bdei2c/internal/irq"
	"github.com/platinasystems/log"
)

type Config struct {
	// Unit is the chip number used in messages.
	Unit int
	// Window maps the chip's registers.
	Window hw.Window
	// Mask is the chip's shared interrupt mask. If nil, the controller
	// makes its own.
	Mask *irq.Mask
	// Line is the chip's interrupt; the controller connects its handler.
	Line *irq.Line
	Params
}

type Controller struct {
	Unit int
	Params

	regs hw.Regs
	gate irq.Gate
	line *irq.Line
	id   int

	// intr is set by the interrupt handler when the phase is done.
	intr uint32
	wake chan struct{}
	// skipped counts successive spurious interrupts; only the
	// interrupt handler touches it.
	skipped int

	stats Stats
}

var claims = struct {
	sync.Mutex
	byWindow map[hw.Window]int
}{byWindow: make(map[hw.Window]int)}

// New claims the window, connects the interrupt handler, and brings the
// engine up to its baseline configuration.
func New(cfg Config) (*Controller, error) {
	if cfg.Window == nil {
		return nil, fmt.Errorf("bde i2c %d: missing window", cfg.Unit)
	}
	if cfg.Line == nil {
		return nil, fmt.Errorf("bde i2c %d: missing interrupt", cfg.Unit)
	}
	claims.Lock()
	if unit, found := claims.byWindow[cfg.Window]; found {
		claims.Unlock()
		return nil, fmt.Errorf("bde i2c %d: window in use by unit %d",
			cfg.Unit, unit)
	}
	claims.byWindow[cfg.Window] = cfg.Unit
	claims.Unlock()

	c := &Controller{
		Unit:   cfg.Unit,
		Params: cfg.Params.withDefaults(),
		line:   cfg.Line,
		wake:   make(chan struct{}, 1),
	}
	c.regs = hw.Regs{
		Window:       cfg.Window,
		Endian:       c.Endian,
		EndianSelect: bde.EndianSel,
	}
	mask := cfg.Mask
	if mask == nil {
		mask = irq.NewMask(&c.regs, bde.IrqMask)
	}
	c.gate = irq.Gate{Mask: mask, Bit: bde.IrqI2C}
	c.id = c.line.Connect(fmt.Sprint("bde i2c ", c.Unit), c.Interrupt)

	c.init()
	return c, nil
}

func (c *Controller) init() {
	if c.Endian == hw.ForceBig {
		c.write(bde.EndianSel, c.read(bde.EndianSel)|bde.EndianBig)
		c.settle(bde.EndianSel)
	}
	c.write(bde.Config, c.read(bde.Config)|bde.ConfigI2C)
	c.settle(bde.Config)
	if c.Debug >= 3 {
		c.debug(3, "ENDIAN_SEL %#08x CONFIG %#08x RATE_ADJUST %#08x",
			c.read(bde.EndianSel), c.read(bde.Config),
			c.read(bde.RateAdjust))
	}
	c.reset()
}

// settle discards reads of a just written chip register.
func (c *Controller) settle(offset uint) {
	for i := 0; i < 4; i++ {
		c.read(offset)
	}
}

// Close masks the interrupt, disables the engine, and releases the window.
func (c *Controller) Close() error {
	err := c.line.Disconnect(c.id)
	c.gate.Enable(false)
	c.write(bde.Config, c.read(bde.Config)&^bde.ConfigI2C)
	claims.Lock()
	delete(claims.byWindow, c.regs.Window)
	claims.Unlock()
	return err
}

func (c *Controller) read(offset uint) uint32 { return c.regs.Read(offset) }

func (c *Controller) write(offset uint, data uint32) { c.regs.Write(offset, data) }

func (c *Controller) ctrl() uint8 { return uint8(c.read(bde.Ctrl)) }

func (c *Controller) status() bde.Status { return bde.Status(c.read(bde.Stat)) }

func (c *Controller) debug(level int, format string, args ...interface{}) {
	if level <= c.Debug {
		log.Printf(append([]interface{}{"debug",
			"bde i2c %d: " + format, c.Unit}, args...)...)
	}
}

func (c *Controller) warn(format string, args ...interface{}) {
	log.Printf(append([]interface{}{"warn",
		"bde i2c %d: " + format, c.Unit}, args...)...)
}

// Stats are cumulative controller counters.
type Stats struct {
	Transfers uint64
	NoAck     uint64
	Busy      uint64
	Protocol  uint64
	Timeout   uint64
	Invalid   uint64
	Resets    uint64
	Spurious  uint64
}

func (c *Controller) Stats() Stats {
	return Stats{
		Transfers: atomic.LoadUint64(&c.stats.Transfers),
		NoAck:     atomic.LoadUint64(&c.stats.NoAck),
		Busy:      atomic.LoadUint64(&c.stats.Busy),
		Protocol:  atomic.LoadUint64(&c.stats.Protocol),
		Timeout:   atomic.LoadUint64(&c.stats.Timeout),
		Invalid:   atomic.LoadUint64(&c.stats.Invalid),
		Resets:    atomic.LoadUint64(&c.stats.Resets),
		Spurious:  atomic.LoadUint64(&c.stats.Spurious),
	}
}

func (c *Controller) count(err error) {
	var p *uint64
	switch Kind(err) {
	case ErrNoAck:
		p = &c.stats.NoAck
	case ErrBusy:
		p = &c.stats.Busy
	case ErrProtocol:
		p = &c.stats.Protocol
	case ErrTimeout:
		p = &c.stats.Timeout
	case ErrInvalidArgument:
		p = &c.stats.Invalid
	default:
		return
	}
	atomic.AddUint64(p, 1)
}
