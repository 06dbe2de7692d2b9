// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package adapter presents BDE I2C controllers as numbered i2c buses.
package adapter

import (
	"fmt"
	"sync"

	"github.com/platinasystems/bdei2c/internal/bdei2c"
	"github.com/platinasystems/i2c"
)

const Name = "BCM56845 I2C"

// Master is the controller side of an adapter; *bdei2c.Controller is one.
type Master interface {
	Transfer(msgs []i2c.Message) (int, error)
	SendStop()
	Stats() bdei2c.Stats
	Close() error
}

type Adapter struct {
	Name string
	// Bus is assigned by the Registry.
	Bus  int
	Unit int

	mu sync.Mutex
	m  Master
	// closers release what the master was built on, in order, after
	// the master is closed.
	closers []func() error
}

func New(unit int, m Master, closers ...func() error) *Adapter {
	return &Adapter{
		Name:    Name,
		Unit:    unit,
		m:       m,
		closers: closers,
	}
}

func (a *Adapter) String() string {
	return fmt.Sprintf("i2c bus %d on %s unit %d", a.Bus, a.Name, a.Unit)
}

// Xfer is one transaction: the messages, each with a (repeated) start,
// then stop if they all succeeded. Only one transaction is on the bus at
// a time.
func (a *Adapter) Xfer(msgs []i2c.Message) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n, err := a.m.Transfer(msgs)
	if err == nil {
		a.m.SendStop()
	}
	return n, err
}

// Functionality is plain I2C with SMBus emulated on top.
func (a *Adapter) Functionality() i2c.FeatureFlag {
	return i2c.I2C | SMBusEmulated
}

// SMBusEmulated are the SMBus transactions that may be built from plain
// I2C messages.
const SMBusEmulated = i2c.SMBUS_Quick |
	i2c.SMBUS_Read_Byte |
	i2c.SMBUS_Write_Byte |
	i2c.SMBUS_Read_Byte_Data |
	i2c.SMBUS_Write_Byte_Data |
	i2c.SMBUS_Read_Word_Data |
	i2c.SMBUS_Write_Word_Data |
	i2c.SMBUS_Proc_Call |
	i2c.SMBUS_Write_Block_Data |
	i2c.SMBUS_Read_I2C_Block |
	i2c.SMBUS_Write_I2C_Block |
	i2c.SMBUS_PEC

func (a *Adapter) Stats() bdei2c.Stats { return a.m.Stats() }

func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	err := a.m.Close()
	for _, f := range a.closers {
		if xerr := f(); err == nil {
			err = xerr
		}
	}
	a.closers = nil
	return err
}
