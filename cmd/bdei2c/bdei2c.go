// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package bdei2c provides the cli command to transfer on a switch chip i2c
// bus through bdei2cd.
package bdei2c

import (
	"fmt"
	"strconv"

	"github.com/platinasystems/atsock"
	"github.com/platinasystems/bdei2c/cmd/bdei2cd"
	"github.com/platinasystems/bdei2c/lang"
	"github.com/platinasystems/flags"
	"github.com/platinasystems/i2c"
	"github.com/platinasystems/parms"
)

const Name = "bdei2c"

type Caller interface {
	Call(method string, args, reply interface{}) error
	Close() error
}

type Command struct {
	// Dial, if set, replaces the @bdei2cd rpc client.
	Dial func() (Caller, error)
}

func (Command) String() string { return Name }

func (Command) Usage() string {
	return Name + " [-l] [-retry] [-r COUNT] BUS.ADDR [BYTE]..."
}

func (Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "switch chip i2c transfer",
	}
}

func (Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	Write the given bytes to the device at hexadecimal ADDR of
	switch chip i2c BUS then, with a repeated start, read COUNT bytes
	from it. Without bytes or count, this just addresses the device.

OPTIONS
	-l	list buses and their counters
	-retry	retry transfers that lost arbitration
	-r COUNT
		number of bytes to read

EXAMPLES
	bdei2c -r 4 0.50 0x10
		read 4 bytes of the eeprom at 0x50 from offset 0x10`,
	}
}

func (c Command) dial() (Caller, error) {
	if c.Dial != nil {
		return c.Dial()
	}
	return atsock.NewRpcClient(bdei2cd.Name)
}

func (c Command) Main(args ...string) error {
	flag, args := flags.New(args, "-l", "-retry")
	parm, args := parms.New(args, "-r")

	if flag.ByName["-l"] {
		if len(args) > 0 {
			return fmt.Errorf("%v: unexpected", args)
		}
		return c.list()
	}

	if len(args) == 0 {
		return fmt.Errorf("BUS.ADDR: missing")
	}
	var bus, addr uint
	if _, err := fmt.Sscanf(args[0], "%x.%x", &bus, &addr); err != nil {
		return fmt.Errorf("%s: invalid BUS.ADDR: %v", args[0], err)
	}
	if addr > 0x7f {
		return fmt.Errorf("%s: address out of range", args[0])
	}
	var count uint64
	if s := parm.ByName["-r"]; len(s) > 0 {
		var err error
		if count, err = strconv.ParseUint(s, 0, 16); err != nil {
			return fmt.Errorf("-r %s: %v", s, err)
		}
	}
	var out []byte
	for _, s := range args[1:] {
		v, err := strconv.ParseUint(s, 0, 8)
		if err != nil {
			return fmt.Errorf("%s: invalid byte: %v", s, err)
		}
		out = append(out, byte(v))
	}

	var msgs []i2c.Message
	if len(out) > 0 || count == 0 {
		msgs = append(msgs, i2c.Message{
			Address: uint16(addr),
			Data:    out,
		})
	}
	if count > 0 {
		msgs = append(msgs, i2c.Message{
			Address: uint16(addr),
			Flags:   i2c.ReadData,
			Data:    make([]byte, count),
		})
	}

	cl, err := c.dial()
	if err != nil {
		return err
	}
	defer cl.Close()
	var reply bdei2cd.XferReply
	err = cl.Call("Bdei2c.Xfer", bdei2cd.XferArgs{
		Bus:   int(bus),
		Msgs:  msgs,
		Retry: flag.ByName["-retry"],
	}, &reply)
	if err != nil {
		return err
	}
	if err = reply.Error(); err != nil {
		return err
	}
	if count > 0 && len(reply.Msgs) == len(msgs) {
		fmt.Printf("%x.%02x = % x\n", bus, addr,
			reply.Msgs[len(msgs)-1].Data)
	}
	return nil
}

func (c Command) list() error {
	cl, err := c.dial()
	if err != nil {
		return err
	}
	defer cl.Close()
	var buses []bdei2cd.BusInfo
	if err = cl.Call("Bdei2c.Buses", struct{}{}, &buses); err != nil {
		return err
	}
	for _, b := range buses {
		s := &b.Stats
		errs := s.NoAck + s.Busy + s.Protocol + s.Timeout + s.Invalid
		fmt.Printf("%d\t%s unit %d\t%d transfers, %d errors, %d resets\n",
			b.Bus, b.Name, b.Unit, s.Transfers, errs, s.Resets)
	}
	return nil
}
