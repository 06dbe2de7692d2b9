// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package sim models the BDE I2C engine and the devices on its bus behind
// an in-memory register window.
package sim

import (
	"sync"

	"github.com/platinasystems/bdei2c/internal/bde"
	"github.com/platinasystems/bdei2c/internal/hw"
	"github.com/platinasystems/bdei2c/internal/irq"
)

// Device is a slave on the simulated bus.
type Device struct {
	Addr uint8
	// Absent devices nack their address.
	Absent bool
	// Mem, if set, makes an eeprom-like device: the first byte written
	// sets the offset, then bytes are written to or read from Mem at
	// successive offsets.
	Mem []byte
	// Read bytes are returned in order to a device without Mem; 0xff
	// once exhausted.
	Read []byte
	// Written collects the data bytes written to the device.
	Written []byte
	// NackByte, if non-zero, is the written byte number (from 1) that
	// the device nacks.
	NackByte int

	offset  int
	started bool
}

type Write struct {
	Offset uint
	Data   uint32
}

type state int

const (
	idle state = iota
	started
	nacked
	writing
	reading
)

type Engine struct {
	Mem  *hw.Mem
	Regs *hw.Regs
	Line *irq.Line

	mu       sync.Mutex
	devices  map[uint8]*Device
	state    state
	cur      *Device
	status   bde.Status
	iflg     bool
	ccr      uint32
	phase    int
	force    []bde.Status
	drop     map[int]bool
	spurious int
	pending  *bde.Status
	gen      int
	writes   []Write
	acks     []bool
	stops    int
	resets   int
}

func New() *Engine {
	e := &Engine{
		Mem:     hw.NewMem(bde.WindowSize),
		Line:    &irq.Line{Name: "sim"},
		devices: make(map[uint8]*Device),
		drop:    make(map[int]bool),
		status:  bde.StatusIdle,
	}
	// Registers are big endian once the driver says so.
	e.Regs = &hw.Regs{
		Window:       e.Mem,
		Endian:       hw.Adaptive,
		EndianSelect: bde.EndianSel,
	}
	e.Mem.OnLoad = e.load
	e.Mem.OnStore = e.store
	return e
}

func (e *Engine) Add(devs ...*Device) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, d := range devs {
		e.devices[d.Addr] = d
	}
}

// Force the status of the following phases; zero leaves a phase alone.
func (e *Engine) Force(codes ...bde.Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.force = append(e.force, codes...)
}

// Drop the completion of the given phases, counting from 1 for the next
// one, so that they time out.
func (e *Engine) Drop(phases ...int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range phases {
		e.drop[e.phase+p] = true
	}
}

// Spurious sets how many interrupts fire before each completion, while
// IFLG is still low.
func (e *Engine) Spurious(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spurious = n
}

// Writes returns the host order register writes so far.
func (e *Engine) Writes() []Write {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Write(nil), e.writes...)
}

// CtrlWrites returns the values written to the control register so far.
func (e *Engine) CtrlWrites() (v []uint32) {
	for _, w := range e.Writes() {
		if w.Offset == bde.Ctrl {
			v = append(v, w.Data)
		}
	}
	return
}

// Acks lists whether AAK was set, for each data byte read.
func (e *Engine) Acks() []bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]bool(nil), e.acks...)
}

func (e *Engine) Stops() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stops
}

func (e *Engine) Resets() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resets
}

// CCR is the last clock divisor written.
func (e *Engine) CCR() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ccr
}

// Reg returns the host order backing value of a register.
func (e *Engine) Reg(offset uint) uint32 {
	return e.Regs.Swap(e.Mem.Peek(offset))
}

// Set the host order backing value of a register without side effects.
func (e *Engine) Set(offset uint, v uint32) {
	e.Mem.Poke(offset, e.Regs.Swap(v))
}

// Clear the write, ack, stop, and reset records.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.writes = e.writes[:0]
	e.acks = e.acks[:0]
	e.stops = 0
	e.resets = 0
}

func (e *Engine) load(offset uint) (uint32, bool) {
	if offset != bde.Stat {
		return 0, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Regs.Swap(uint32(e.status)), true
}

func (e *Engine) store(offset uint, raw uint32) {
	v := e.Regs.Swap(raw)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.writes = append(e.writes, Write{offset, v})
	switch offset {
	case bde.Reset:
		e.reset()
	case bde.CCR:
		e.ccr = v
	case bde.IrqMask:
		if v&bde.IrqI2C == 0 {
			break
		}
		if e.pending != nil {
			s := *e.pending
			e.pending = nil
			go e.spuriousThenComplete(s, e.spurious, e.gen)
		} else if e.Reg(bde.IrqStat)&bde.IrqI2C != 0 {
			go e.Line.Interrupt()
		}
	case bde.Ctrl:
		e.ctrl(v)
	}
}

func (e *Engine) reset() {
	e.state = idle
	e.cur = nil
	e.status = bde.StatusIdle
	e.iflg = false
	e.pending = nil
	e.gen++
	e.resets++
	e.Set(bde.Ctrl, 0)
	e.Set(bde.Addr, 0)
	e.Set(bde.IrqStat, e.Reg(bde.IrqStat)&^bde.IrqI2C)
}

func (e *Engine) ctrl(v uint32) {
	if v&bde.CtrlIFLG == 0 {
		e.Set(bde.IrqStat, e.Reg(bde.IrqStat)&^bde.IrqI2C)
	}
	switch {
	case v&bde.CtrlSTP != 0:
		e.stops++
		e.state = idle
		e.cur = nil
		e.iflg = false
		e.Set(bde.Ctrl, v&^(bde.CtrlSTP|bde.CtrlSTA|bde.CtrlIFLG))
	case v&bde.CtrlSTA != 0:
		s := bde.StatusStart
		if e.state != idle {
			s = bde.StatusRepeatedStart
		}
		e.state = started
		e.cur = nil
		e.iflg = false
		e.begin(s)
	case e.iflg && v&bde.CtrlIFLG == 0:
		e.iflg = false
		e.step(v)
	}
}

func (e *Engine) step(v uint32) {
	var s bde.Status
	data := uint8(e.Reg(bde.Data))
	switch e.state {
	case started:
		d := e.devices[data>>1]
		rd := data&1 != 0
		switch {
		case d == nil || d.Absent:
			s = bde.StatusAddrWriteNack
			if rd {
				s = bde.StatusAddrReadNack
			}
			e.state = nacked
		case rd:
			s = bde.StatusAddrReadAck
			e.state = reading
		default:
			s = bde.StatusAddrWriteAck
			e.state = writing
			d.started = false
		}
		e.cur = d
	case writing:
		d := e.cur
		d.Written = append(d.Written, data)
		if d.Mem != nil {
			if !d.started {
				d.offset = int(data)
				d.started = true
			} else {
				d.Mem[d.offset%len(d.Mem)] = data
				d.offset++
			}
		}
		s = bde.StatusDataWriteAck
		if d.NackByte == len(d.Written) {
			s = bde.StatusDataWriteNack
		}
	case reading:
		d := e.cur
		ack := v&bde.CtrlAAK != 0
		e.acks = append(e.acks, ack)
		b := uint8(0xff)
		switch {
		case d.Mem != nil:
			b = d.Mem[d.offset%len(d.Mem)]
			d.offset++
		case len(d.Read) > 0:
			b = d.Read[0]
			d.Read = d.Read[1:]
		}
		e.Set(bde.Data, uint32(b))
		s = bde.StatusDataReadNack
		if ack {
			s = bde.StatusDataReadAck
		}
	default:
		// nothing to do, so no completion
		return
	}
	e.begin(s)
}

func (e *Engine) begin(s bde.Status) {
	e.phase++
	if len(e.force) > 0 {
		if f := e.force[0]; f != 0 {
			s = f
		}
		e.force = e.force[1:]
	}
	if e.drop[e.phase] {
		delete(e.drop, e.phase)
		return
	}
	if e.spurious > 0 {
		e.pending = &s
		return
	}
	e.complete(s)
}

func (e *Engine) complete(s bde.Status) {
	e.status = s
	e.iflg = true
	ctrl := e.Reg(bde.Ctrl)
	ctrl |= bde.CtrlIFLG
	ctrl &^= bde.CtrlSTA
	e.Set(bde.Ctrl, ctrl)
	e.Set(bde.IrqStat, e.Reg(bde.IrqStat)|bde.IrqI2C)
	if e.Reg(bde.IrqMask)&bde.IrqI2C != 0 {
		go e.Line.Interrupt()
	}
}

func (e *Engine) spuriousThenComplete(s bde.Status, n, gen int) {
	for i := 0; i < n; i++ {
		e.mu.Lock()
		e.Set(bde.IrqStat, e.Reg(bde.IrqStat)|bde.IrqI2C)
		e.mu.Unlock()
		e.Line.Interrupt()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen == e.gen && !e.iflg {
		e.complete(s)
	}
}
