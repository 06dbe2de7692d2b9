// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package bdei2c

import (
	"bytes"
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"

	"github.com/platinasystems/bdei2c/internal/bde"
	"github.com/platinasystems/bdei2c/internal/sim"
	"github.com/platinasystems/i2c"
)

const baseline = bde.CtrlIEN | bde.CtrlENAB

func newTest(t *testing.T, p Params) (*Controller, *sim.Engine) {
	e := sim.New()
	if p.Timeout == 0 {
		p.Timeout = time.Second
	}
	c, err := New(Config{Window: e.Mem, Line: e.Line, Params: p})
	if err != nil {
		t.Fatal(err)
	}
	return c, e
}

func lastCtrl(t *testing.T, e *sim.Engine) uint32 {
	v := e.CtrlWrites()
	if len(v) == 0 {
		t.Fatal("no CTRL writes")
	}
	return v[len(v)-1]
}

func TestWrite(t *testing.T) {
	c, e := newTest(t, Params{})
	defer c.Close()
	dev := &sim.Device{Addr: 0x50}
	e.Add(dev)

	n, err := c.Transfer([]i2c.Message{
		{Address: 0x50, Data: []byte{0x10, 0x20, 0x30}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatal("returned", n)
	}
	if !bytes.Equal(dev.Written, []byte{0x10, 0x20, 0x30}) {
		t.Fatalf("wrote % x", dev.Written)
	}
	if e.Stops() != 0 {
		t.Fatal("stop sent by Transfer")
	}
	c.SendStop()
	if e.Stops() != 1 {
		t.Fatal("no stop")
	}
	const bits = bde.CtrlSTA | bde.CtrlSTP | bde.CtrlAAK | bde.CtrlIFLG
	if b := lastCtrl(t, e) & bits; b != bde.CtrlSTP {
		t.Fatalf("stop CTRL %#02x", b)
	}
	if s := c.Stats(); s.Transfers != 1 {
		t.Fatal("transfers", s.Transfers)
	}
}

func TestWriteRead(t *testing.T) {
	c, e := newTest(t, Params{})
	defer c.Close()
	e.Add(&sim.Device{Addr: 0x50, Mem: []byte{0, 1, 2, 3, 4, 5, 6, 7}})

	buf := make([]byte, 3)
	n, err := c.Transfer([]i2c.Message{
		{Address: 0x50, Data: []byte{4}},
		{Address: 0x50, Flags: i2c.ReadData, Data: buf},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatal("returned", n)
	}
	if !bytes.Equal(buf, []byte{4, 5, 6}) {
		t.Fatalf("read % x", buf)
	}
	acks := e.Acks()
	if len(acks) != 3 || !acks[0] || !acks[1] || acks[2] {
		t.Fatal("acks", acks)
	}
}

func TestReadOne(t *testing.T) {
	c, e := newTest(t, Params{})
	defer c.Close()
	e.Add(&sim.Device{Addr: 0x48, Read: []byte{0x5a}})

	buf := make([]byte, 1)
	if _, err := c.Transfer([]i2c.Message{
		{Address: 0x48, Flags: i2c.ReadData, Data: buf},
	}); err != nil {
		t.Fatal(err)
	}
	if buf[0] != 0x5a {
		t.Fatalf("read %#x", buf[0])
	}
	if acks := e.Acks(); len(acks) != 1 || acks[0] {
		t.Fatal("acks", acks)
	}
}

func TestNoAck(t *testing.T) {
	c, e := newTest(t, Params{})
	defer c.Close()
	e.Clear()

	_, err := c.Transfer([]i2c.Message{
		{Address: 0x68, Flags: i2c.ReadData, Data: make([]byte, 1)},
	})
	if !errors.Is(err, ErrNoAck) {
		t.Fatal("got", err)
	}
	if e.Stops() != 1 {
		t.Fatal("stop not sent before return")
	}
	if e.Resets() != 0 {
		t.Fatal("reset after no ack")
	}
	if Errno(err) != syscall.ENXIO {
		t.Fatal("errno", Errno(err))
	}
	if s := c.Stats(); s.NoAck != 1 || s.Transfers != 0 {
		t.Fatalf("%+v", s)
	}
}

func TestNoPartialSuccess(t *testing.T) {
	c, e := newTest(t, Params{})
	defer c.Close()
	dev := &sim.Device{Addr: 0x50}
	e.Add(dev)

	n, err := c.Transfer([]i2c.Message{
		{Address: 0x50, Data: []byte{1, 2}},
		{Address: 0x51, Data: []byte{3}},
	})
	if err == nil || n != 0 {
		t.Fatal("returned", n, err)
	}
	if len(dev.Written) != 2 {
		t.Fatal("first message not sent")
	}
}

func TestWriteNack(t *testing.T) {
	c, e := newTest(t, Params{})
	defer c.Close()
	e.Add(&sim.Device{Addr: 0x50, NackByte: 2})
	e.Clear()

	_, err := c.Transfer([]i2c.Message{
		{Address: 0x50, Data: []byte{1, 2, 3}},
	})
	if !errors.Is(err, ErrProtocol) {
		t.Fatal("got", err)
	}
	var xe *Error
	if !errors.As(err, &xe) || xe.Status != bde.StatusDataWriteNack {
		t.Fatal("status", err)
	}
	if e.Stops() != 1 {
		t.Fatal("stops", e.Stops())
	}
}

func TestReadLostArbitration(t *testing.T) {
	c, e := newTest(t, Params{})
	defer c.Close()
	e.Add(&sim.Device{Addr: 0x50, Read: []byte{7, 8, 9}})
	// start, addr, data, data
	e.Force(0, 0, 0, bde.StatusLostArbitration)

	buf := make([]byte, 3)
	n, err := c.Transfer([]i2c.Message{
		{Address: 0x50, Flags: i2c.ReadData, Data: buf},
	})
	if err != nil || n != 1 {
		t.Fatal("returned", n, err)
	}
	if !bytes.Equal(buf, []byte{7, 0, 0}) {
		t.Fatalf("read % x", buf)
	}
}

func TestAddrLostArbitration(t *testing.T) {
	c, e := newTest(t, Params{})
	defer c.Close()
	e.Add(&sim.Device{Addr: 0x50})
	e.Force(0, bde.StatusLostArbitration)
	e.Clear()

	_, err := c.Transfer([]i2c.Message{
		{Address: 0x50, Data: []byte{1}},
	})
	if !errors.Is(err, ErrBusy) {
		t.Fatal("got", err)
	}
	if Errno(err) != syscall.EAGAIN {
		t.Fatal("errno", Errno(err))
	}
	if e.Resets() != 0 {
		t.Fatal("reset after lost arbitration")
	}
}

func TestBadStart(t *testing.T) {
	c, e := newTest(t, Params{ClockDivisor: 0x2a})
	defer c.Close()
	e.Force(bde.StatusSlaveRead)
	e.Clear()

	_, err := c.Transfer([]i2c.Message{
		{Address: 0x50, Data: []byte{1}},
	})
	if !errors.Is(err, ErrProtocol) {
		t.Fatal("got", err)
	}
	if e.Resets() != 1 {
		t.Fatal("resets", e.Resets())
	}
	checkBaseline(t, e, 0x2a)
}

func checkBaseline(t *testing.T, e *sim.Engine, ccr uint32) {
	if v := e.Reg(bde.Ctrl); v != baseline {
		t.Errorf("CTRL %#02x", v)
	}
	if v := e.Reg(bde.Addr); v != 0 {
		t.Errorf("ADDR %#02x", v)
	}
	if v := e.CCR(); v != ccr {
		t.Errorf("CCR %#02x", v)
	}
}

func TestAddrTimeout(t *testing.T) {
	c, e := newTest(t, Params{Timeout: 50 * time.Millisecond})
	defer c.Close()
	e.Add(&sim.Device{Addr: 0x50})
	e.Drop(2)
	e.Clear()

	_, err := c.Transfer([]i2c.Message{
		{Address: 0x50, Data: []byte{1}},
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatal("got", err)
	}
	var xe *Error
	if !errors.As(err, &xe) || xe.Op != "addr" {
		t.Fatal("op", err)
	}
	if Errno(err) != syscall.EBUSY {
		t.Fatal("errno", Errno(err))
	}
	if e.Resets() != 1 {
		t.Fatal("resets", e.Resets())
	}
	checkBaseline(t, e, bde.DefaultCCR)
	if s := c.Stats(); s.Timeout != 1 {
		t.Fatal("timeouts", s.Timeout)
	}

	// the engine is usable again
	if _, err := c.Transfer([]i2c.Message{
		{Address: 0x50, Data: []byte{1}},
	}); err != nil {
		t.Fatal(err)
	}
}

func TestPhaseErrors(t *testing.T) {
	write := i2c.Message{Address: 0x50, Data: []byte{1, 2}}
	read := i2c.Message{Address: 0x50, Flags: i2c.ReadData,
		Data: make([]byte, 2)}
	for _, x := range []struct {
		name   string
		msg    i2c.Message
		force  []bde.Status
		drop   int
		op     string
		kind   error
		resets int
	}{
		{"addr slave write", write,
			[]bde.Status{0, bde.StatusSlaveWrite}, 0,
			"addr", ErrProtocol, 1},
		{"addr general call", read,
			[]bde.Status{0, bde.StatusGeneralCall}, 0,
			"addr", ErrProtocol, 1},
		{"addr slave read", write,
			[]bde.Status{0, bde.StatusSlaveRead}, 0,
			"addr", ErrProtocol, 1},
		{"write lost arbitration", write,
			[]bde.Status{0, 0, bde.StatusLostArbitration}, 0,
			"write", ErrBusy, 0},
		{"write unexpected", write,
			[]bde.Status{0, 0, bde.StatusDataReadAck}, 0,
			"write", ErrProtocol, 1},
		{"read unexpected", read,
			[]bde.Status{0, 0, bde.StatusDataWriteAck}, 0,
			"read", ErrProtocol, 1},
		{"write timeout", write, nil, 3, "write", ErrTimeout, 1},
		{"read timeout", read, nil, 4, "read", ErrTimeout, 1},
	} {
		t.Run(x.name, func(t *testing.T) {
			c, e := newTest(t, Params{Timeout: 50 * time.Millisecond,
				Debug: 3})
			defer c.Close()
			e.Add(&sim.Device{Addr: 0x50})
			e.Force(x.force...)
			if x.drop > 0 {
				e.Drop(x.drop)
			}
			e.Clear()

			n, err := c.Transfer([]i2c.Message{x.msg})
			if n != 0 || !errors.Is(err, x.kind) {
				t.Fatalf("got %d, %v want %v", n, err, x.kind)
			}
			var xe *Error
			if !errors.As(err, &xe) || xe.Op != x.op {
				t.Fatalf("op of %v, want %s", err, x.op)
			}
			if got := e.Resets(); got != x.resets {
				t.Fatalf("resets %d want %d", got, x.resets)
			}
			if x.resets > 0 {
				checkBaseline(t, e, bde.DefaultCCR)
			}
		})
	}
}

func TestSettleReads(t *testing.T) {
	for _, n := range []int{0, -1} {
		c, e := newTest(t, Params{SettleReads: n})
		if c.SettleReads != DefaultParams.SettleReads {
			t.Errorf("SettleReads %d became %d", n, c.SettleReads)
		}
		e.Add(&sim.Device{Addr: 0x50})
		if _, err := c.Transfer([]i2c.Message{
			{Address: 0x50, Data: []byte{1}},
		}); err != nil {
			t.Error(err)
		}
		c.Close()
	}
}

func TestInvalid(t *testing.T) {
	c, e := newTest(t, Params{})
	defer c.Close()
	for _, m := range []i2c.Message{
		{Address: 0x50, Flags: i2c.TenBit, Data: []byte{1}},
		{Address: 0x50, Flags: i2c.ReadData | i2c.Recv_Len,
			Data: make([]byte, 2)},
		{Address: 0x80, Data: []byte{1}},
	} {
		e.Clear()
		_, err := c.Transfer([]i2c.Message{{Address: 0x50}, m})
		if !errors.Is(err, ErrInvalidArgument) {
			t.Fatal("got", err)
		}
		if w := e.Writes(); len(w) != 0 {
			t.Fatal("register writes", w)
		}
	}
	if s := c.Stats(); s.Invalid != 3 {
		t.Fatal("invalid", s.Invalid)
	}
}

func TestSpurious(t *testing.T) {
	c, e := newTest(t, Params{})
	defer c.Close()
	e.Add(&sim.Device{Addr: 0x50})
	e.Spurious(3)

	if _, err := c.Transfer([]i2c.Message{
		{Address: 0x50, Data: []byte{1}},
	}); err != nil {
		t.Fatal(err)
	}
	// start, addr, data
	if s := c.Stats(); s.Spurious != 9 {
		t.Fatal("spurious", s.Spurious)
	}
}

func TestSkipBound(t *testing.T) {
	c, e := newTest(t, Params{SkipBound: 3})
	defer c.Close()
	c.gate.Enable(true)
	e.Set(bde.IrqStat, bde.IrqI2C)
	e.Set(bde.Ctrl, baseline)

	for i := 1; i < 3; i++ {
		c.Interrupt()
		if len(c.wake) != 0 {
			t.Fatal("woken after", i)
		}
	}
	c.Interrupt()
	if len(c.wake) != 1 {
		t.Fatal("not woken at bound")
	}
	if c.gate.Enabled() {
		t.Fatal("interrupt left enabled")
	}
	if s := c.Stats(); s.Spurious != 3 {
		t.Fatal("spurious", s.Spurious)
	}
}

func TestNotThisUnit(t *testing.T) {
	c, e := newTest(t, Params{})
	defer c.Close()
	e.Set(bde.IrqStat, bde.IrqI2C)
	e.Set(bde.Ctrl, baseline|bde.CtrlIFLG)
	c.Interrupt()
	if len(c.wake) != 0 || c.skipped != 0 {
		t.Fatal("masked interrupt handled")
	}
}

func TestSharedMask(t *testing.T) {
	const others = 1<<0 | 1<<17 | 1<<31
	e := sim.New()
	c, err := New(Config{Window: e.Mem, Line: e.Line,
		Params: Params{Timeout: time.Second}})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	e.Add(&sim.Device{Addr: 0x50})
	e.Set(bde.IrqMask, others)
	e.Clear()

	if _, err := c.Transfer([]i2c.Message{
		{Address: 0x50, Data: []byte{1}},
	}); err != nil {
		t.Fatal(err)
	}
	n := 0
	for _, w := range e.Writes() {
		if w.Offset == bde.IrqMask {
			n++
			if w.Data&^bde.IrqI2C != others {
				t.Fatalf("IRQ_MASK %#08x", w.Data)
			}
		}
	}
	if n == 0 {
		t.Fatal("interrupt never enabled")
	}
}

func TestExclusiveWindow(t *testing.T) {
	c, e := newTest(t, Params{})
	if _, err := New(Config{Unit: 1, Window: e.Mem, Line: e.Line}); err == nil {
		t.Fatal("window claimed twice")
	}
	c.Close()
	c, err := New(Config{Unit: 1, Window: e.Mem, Line: e.Line})
	if err != nil {
		t.Fatal(err)
	}
	c.Close()
}

func TestInit(t *testing.T) {
	c, e := newTest(t, Params{})
	if v := e.Reg(bde.EndianSel); v&bde.EndianBig != bde.EndianBig {
		t.Errorf("ENDIAN_SEL %#08x", v)
	}
	if v := e.Reg(bde.Config); v&bde.ConfigI2C == 0 {
		t.Errorf("CONFIG %#08x", v)
	}
	checkBaseline(t, e, bde.DefaultCCR)
	c.Close()
	if v := e.Reg(bde.Config); v&bde.ConfigI2C != 0 {
		t.Errorf("CONFIG %#08x after close", v)
	}
}

func TestErrno(t *testing.T) {
	for _, x := range []struct {
		err   error
		errno syscall.Errno
		name  string
	}{
		{nil, 0, ""},
		{&Error{Err: ErrNoAck}, syscall.ENXIO, "noack"},
		{&Error{Err: ErrBusy}, syscall.EAGAIN, "busy"},
		{&Error{Err: ErrProtocol}, syscall.EIO, "protocol"},
		{&Error{Err: ErrTimeout}, syscall.EBUSY, "timeout"},
		{ErrInvalidArgument, syscall.EINVAL, "invalid"},
		{errors.New("other"), syscall.EIO, ""},
	} {
		if got := Errno(x.err); got != x.errno {
			t.Errorf("Errno(%v) = %v", x.err, got)
		}
		if got := KindName(x.err); got != x.name {
			t.Errorf("KindName(%v) = %q", x.err, got)
		}
	}
}

func ExampleError() {
	err := &Error{
		Unit:   0,
		Op:     "addr",
		Addr:   0x68,
		Status: bde.StatusAddrWriteNack,
		Err:    ErrNoAck,
	}
	fmt.Println(err)
	// Output:
	// bde i2c 0: addr 0x68: STAT 0x20 no ack (write): no ack
}
