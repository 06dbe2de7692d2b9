// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package bdei2c

import (
	"sync/atomic"

	"github.com/platinasystems/bdei2c/internal/bde"
	"github.com/platinasystems/i2c"
)

// Transfer performs each message in order and returns the number of
// messages on success. It stops at, and returns the error of, the first
// failed message; there is no partial success. The caller must serialize
// transfers and send stop after a successful one.
func (c *Controller) Transfer(msgs []i2c.Message) (int, error) {
	c.debug(1, "%d msgs", len(msgs))
	for i := range msgs {
		if err := c.validate(&msgs[i]); err != nil {
			c.count(err)
			return 0, err
		}
	}
	for i := range msgs {
		m := &msgs[i]
		c.debug(1, "msg %d addr %#x flags %#x len %d",
			i, m.Address, m.Flags, len(m.Data))
		if err := c.xfer(m.Address, m.Flags&i2c.ReadData != 0,
			m.Data); err != nil {
			c.debug(1, "return %v", err)
			c.count(err)
			return 0, err
		}
	}
	atomic.AddUint64(&c.stats.Transfers, 1)
	return len(msgs), nil
}

func (c *Controller) validate(m *i2c.Message) error {
	e := &Error{
		Unit: c.Unit,
		Op:   "xfer",
		Addr: m.Address,
		Err:  ErrInvalidArgument,
	}
	switch {
	case m.Flags&i2c.TenBit != 0:
		c.warn("10-bit address not supported")
		return e
	case m.Flags&i2c.Recv_Len != 0:
		c.warn("receive length not supported")
		return e
	case m.Address > 0x7f:
		c.warn("address %#x out of range", m.Address)
		return e
	}
	return nil
}

// xfer reads or writes one message; stop is sent by the caller.
func (c *Controller) xfer(addr uint16, read bool, buf []byte) error {
	if err := c.sendStart(addr); err != nil {
		return err
	}
	if err := c.sendAddr(addr, read); err != nil {
		return err
	}
	if read {
		return c.recvData(addr, buf)
	}
	return c.sendData(addr, buf)
}

// fail resets the engine after a timed out or unexpected phase.
func (c *Controller) fail(op string, addr uint16, s bde.Status, err error) error {
	if err == ErrProtocol {
		c.warn("%s %#02x: STAT %v unexpected", op, addr, s)
	}
	c.reset()
	return &Error{Unit: c.Unit, Op: op, Addr: addr, Status: s, Err: err}
}

func (c *Controller) sendStart(addr uint16) error {
	b := c.ctrl()
	b &^= bde.CtrlIFLG
	b |= bde.CtrlSTA
	c.write(bde.Ctrl, uint32(b))
	c.debug(2, "CTRL %#02x", b)

	if err := c.wait(); err != nil {
		return c.fail("start", addr, 0, err)
	}

	switch s := c.status(); s {
	case bde.StatusStart, bde.StatusRepeatedStart:
		return nil
	default:
		return c.fail("start", addr, s, ErrProtocol)
	}
}

func (c *Controller) sendAddr(addr uint16, read bool) error {
	a := uint8(addr) << 1
	if read {
		a |= 1
	}
	c.write(bde.Data, uint32(a))
	b := c.ctrl()
	b &^= bde.CtrlIFLG
	c.write(bde.Ctrl, uint32(b))
	c.debug(2, "CTRL %#02x DATA %#02x", b, a)

	if err := c.wait(); err != nil {
		return c.fail("addr", addr, 0, err)
	}

	switch s := c.status(); s {
	case bde.StatusAddrWriteAck, bde.StatusAddrReadAck:
		return nil
	case bde.StatusAddrWriteNack, bde.StatusAddrReadNack:
		c.debug(2, "STAT %v", s)
		c.SendStop()
		return &Error{Unit: c.Unit, Op: "addr", Addr: addr, Status: s,
			Err: ErrNoAck}
	case bde.StatusLostArbitration:
		c.debug(2, "STAT %v", s)
		return &Error{Unit: c.Unit, Op: "addr", Addr: addr, Status: s,
			Err: ErrBusy}
	default:
		// includes slave mode codes that should be impossible for us
		return c.fail("addr", addr, s, ErrProtocol)
	}
}

func (c *Controller) recvData(addr uint16, buf []byte) error {
	for i := range buf {
		b := c.ctrl()
		b &^= bde.CtrlIFLG
		if i < len(buf)-1 {
			b |= bde.CtrlAAK
		} else {
			b &^= bde.CtrlAAK
		}
		c.write(bde.Ctrl, uint32(b))
		c.debug(2, "CTRL %#02x", b)

		if err := c.wait(); err != nil {
			return c.fail("read", addr, 0, err)
		}

		switch s := c.status(); s {
		case bde.StatusDataReadAck, bde.StatusDataReadNack:
			buf[i] = uint8(c.read(bde.Data))
			c.debug(2, "DATA %#02x", buf[i])
		case bde.StatusLostArbitration:
			// We can only lose on our own nack so we're done.
			c.debug(2, "STAT %v after %d bytes", s, i)
			return nil
		default:
			return c.fail("read", addr, s, ErrProtocol)
		}
	}
	return nil
}

func (c *Controller) sendData(addr uint16, buf []byte) error {
	for _, d := range buf {
		c.write(bde.Data, uint32(d))
		b := c.ctrl()
		b &^= bde.CtrlIFLG
		c.write(bde.Ctrl, uint32(b))
		c.debug(2, "CTRL %#02x DATA %#02x", b, d)

		if err := c.wait(); err != nil {
			return c.fail("write", addr, 0, err)
		}

		switch s := c.status(); s {
		case bde.StatusDataWriteAck:
		case bde.StatusDataWriteNack:
			c.debug(2, "STAT %v", s)
			c.SendStop()
			return &Error{Unit: c.Unit, Op: "write", Addr: addr,
				Status: s, Err: ErrProtocol}
		case bde.StatusLostArbitration:
			c.debug(2, "STAT %v", s)
			return &Error{Unit: c.Unit, Op: "write", Addr: addr,
				Status: s, Err: ErrBusy}
		default:
			return c.fail("write", addr, s, ErrProtocol)
		}
	}
	return nil
}

// SendStop ends the transaction. The engine doesn't interrupt on stop so
// there's nothing to wait for.
func (c *Controller) SendStop() {
	b := c.ctrl()
	b &^= bde.CtrlIFLG | bde.CtrlAAK | bde.CtrlSTA
	b |= bde.CtrlSTP
	c.write(bde.Ctrl, uint32(b))
	c.debug(2, "send stop CTRL %#02x", b)
}
