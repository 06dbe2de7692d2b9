// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package bdei2cd serves the switch chip i2c buses over the @bdei2cd rpc
// socket and publishes their counters to redis.
package bdei2cd

import (
	"errors"
	"fmt"
	"net/rpc"
	"sync"
	"time"

	"github.com/platinasystems/atsock"
	"github.com/platinasystems/bdei2c/cmd"
	"github.com/platinasystems/bdei2c/internal/adapter"
	"github.com/platinasystems/bdei2c/internal/bde"
	"github.com/platinasystems/bdei2c/internal/bdei2c"
	"github.com/platinasystems/bdei2c/internal/config"
	"github.com/platinasystems/bdei2c/internal/sim"
	"github.com/platinasystems/bdei2c/lang"
	"github.com/platinasystems/gpio"
	"github.com/platinasystems/log"
	"github.com/platinasystems/redis"
	"github.com/platinasystems/redis/publisher"
)

const Name = "bdei2cd"

// Interval between counter publications.
var Interval = 5 * time.Second

type printer interface {
	Print(...interface{}) (int, error)
}

type Command struct {
	// Gpio, if set, loads gpio.Pins before the first mux reset.
	Gpio func()
	gpio sync.Once

	cfg  config.Config
	reg  adapter.Registry
	rpc  *atsock.RpcServer
	pub  printer
	last map[string]uint64

	stop     chan struct{}
	stopOnce sync.Once
	stopped  sync.Once
}

func (*Command) String() string { return Name }

func (*Command) Usage() string {
	return Name + ` [-sim] [-adaptive] [-debug LEVEL] [-timeout DURATION]
	[-rate DIVISOR] [-retry ATTEMPTS] [-mux-reset PIN]`
}

func (*Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "switch chip i2c bus daemon",
	}
}

func (*Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	Drive the master mode i2c engine of each Broadcom switch chip bound
	to uio_pci_generic and serve transfers on the @bdei2cd socket.
	Bus counters are published to redis as bdei2c.BUS.COUNTER.

OPTIONS
	-sim	serve a simulated engine instead of the switch chips
	-adaptive
		follow the chip's endian select instead of forcing big endian
	-debug LEVEL
		trace transfers at LEVEL 1 through 3
	-timeout DURATION
		wait this long for each phase to complete (10s)
	-rate DIVISOR
		clock divisor written on reset (0x10)
	-retry ATTEMPTS
		transfers that lost arbitration are tried this many times (3)
	-mux-reset PIN
		pulse this gpio low after an engine reset`,
	}
}

func (*Command) Kind() cmd.Kind { return cmd.Daemon }

func (c *Command) Main(args ...string) error {
	if err := c.start(args...); err != nil {
		c.cleanup()
		return err
	}
	t := time.NewTicker(Interval)
	defer t.Stop()
	defer c.cleanup()
	for {
		select {
		case <-c.done():
			return nil
		case <-t.C:
			c.publish()
		}
	}
}

func (c *Command) Close() error {
	c.stopped.Do(func() { close(c.done()) })
	return nil
}

func (c *Command) done() chan struct{} {
	c.stopOnce.Do(func() { c.stop = make(chan struct{}) })
	return c.stop
}

// setup the buses from the command line.
func (c *Command) setup(args ...string) error {
	cfg, args, err := config.Parse(args)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		return fmt.Errorf("%v: unexpected", args)
	}
	c.cfg = cfg
	c.reg.Max = cfg.MaxAdapters
	c.last = make(map[string]uint64)

	if cfg.Sim {
		err = c.simulate()
	} else {
		if err = redis.IsReady(); err != nil {
			return err
		}
		if c.pub, err = publisher.New(); err != nil {
			return err
		}
		err = probe(&c.reg, cfg.Params)
	}
	if err != nil {
		return err
	}
	if c.reg.Len() == 0 {
		log.Print("warn", "no switch chip i2c buses")
	}
	return nil
}

func (c *Command) start(args ...string) error {
	err := c.setup(args...)
	if err != nil {
		return err
	}
	if err = register(c); err != nil {
		return err
	}
	if c.rpc, err = atsock.NewRpcServer(Name); err != nil {
		return err
	}
	log.Print("daemon", "info", "serving ", c.reg.Len(), " bus(es)")
	c.publish()
	return nil
}

func (c *Command) cleanup() {
	if c.rpc != nil {
		c.rpc.Close()
		c.rpc = nil
	}
	register(nil)
	c.reg.Close()
	if pub, ok := c.pub.(*publisher.Publisher); ok {
		pub.Close()
	}
	c.pub = nil
}

// simulate a chip with an eeprom at 0x50 and a 0x48 sensor on its bus.
func (c *Command) simulate() error {
	e := sim.New()
	eeprom := make([]byte, 256)
	for i := range eeprom {
		eeprom[i] = byte(i)
	}
	e.Add(&sim.Device{Addr: 0x50, Mem: eeprom},
		&sim.Device{Addr: 0x48, Mem: []byte{0x19, 0x80}})
	ctrl, err := bdei2c.New(bdei2c.Config{
		Window: e.Mem,
		Line:   e.Line,
		Params: c.cfg.Params,
	})
	if err != nil {
		return err
	}
	return c.reg.Add(adapter.New(0, ctrl))
}

var counters = []struct {
	name string
	get  func(*bdei2c.Stats) uint64
}{
	{"transfers", func(s *bdei2c.Stats) uint64 { return s.Transfers }},
	{"errors.noack", func(s *bdei2c.Stats) uint64 { return s.NoAck }},
	{"errors.busy", func(s *bdei2c.Stats) uint64 { return s.Busy }},
	{"errors.protocol", func(s *bdei2c.Stats) uint64 { return s.Protocol }},
	{"errors.timeout", func(s *bdei2c.Stats) uint64 { return s.Timeout }},
	{"errors.invalid", func(s *bdei2c.Stats) uint64 { return s.Invalid }},
	{"resets", func(s *bdei2c.Stats) uint64 { return s.Resets }},
	{"spurious", func(s *bdei2c.Stats) uint64 { return s.Spurious }},
}

// publish the counters that changed since last time.
func (c *Command) publish() {
	if c.pub == nil {
		return
	}
	for _, a := range c.reg.Buses() {
		s := a.Stats()
		for _, x := range counters {
			k := fmt.Sprint("bdei2c.", a.Bus, ".", x.name)
			v := x.get(&s)
			if last, found := c.last[k]; found && v == last {
				continue
			}
			if _, err := c.pub.Print(k, ": ", v); err != nil {
				log.Print("warn", k, ": ", err)
				continue
			}
			c.last[k] = v
		}
	}
}

// muxReset pulses the configured gpio to release devices stuck behind a
// mux after the engine was reset.
func (c *Command) muxReset(err error) {
	if len(c.cfg.MuxReset) == 0 {
		return
	}
	switch bdei2c.Kind(err) {
	case bdei2c.ErrProtocol, bdei2c.ErrTimeout:
	default:
		return
	}
	// a data nack is stopped, not reset
	var xe *bdei2c.Error
	if errors.As(err, &xe) && xe.Status == bde.StatusDataWriteNack {
		return
	}
	if c.Gpio != nil {
		c.gpio.Do(c.Gpio)
	}
	pin, found := gpio.Pins[c.cfg.MuxReset]
	if !found {
		log.Print("warn", c.cfg.MuxReset, ": gpio not found")
		return
	}
	pin.SetValue(false)
	time.Sleep(10 * time.Microsecond)
	pin.SetValue(true)
	log.Print("debug", "pulsed ", c.cfg.MuxReset)
}

var service = struct {
	sync.Mutex
	once sync.Once
	err  error
	*Bdei2c
}{Bdei2c: new(Bdei2c)}

// register the rpc service, once per process, with this command behind it.
func register(c *Command) error {
	service.Lock()
	defer service.Unlock()
	service.once.Do(func() {
		service.err = rpc.Register(service.Bdei2c)
	})
	service.Bdei2c.set(c)
	return service.err
}
