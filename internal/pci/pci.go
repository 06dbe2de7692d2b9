// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package pci finds PCI devices and their resources through sysfs.
package pci

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
)

// SysBusPciPath is where devices are found; tests point it elsewhere.
var SysBusPciPath = "/sys/bus/pci/devices"

const (
	VendorBroadcom = 0x14e4
	// ClassNetwork is the base class of network controllers; switch
	// chips are ethernet (0x0200) or other (0x0280) network devices.
	ClassNetwork = 0x02
)

type Addr struct {
	Domain        uint16
	Bus, Slot, Fn uint8
}

func (a Addr) String() string {
	return fmt.Sprintf("%04x:%02x:%02x.%01x", a.Domain, a.Bus, a.Slot, a.Fn)
}

type Resource struct {
	Index      uint32 // index of BAR
	Base, Size uint64
}

type Device struct {
	Addr      Addr
	Vendor    uint16
	Device    uint16
	Class     uint32
	Resources []Resource
}

func (d *Device) String() string {
	return fmt.Sprintf("%v %04x:%04x", d.Addr, d.Vendor, d.Device)
}

// IsNetwork is true for network controllers.
func (d *Device) IsNetwork() bool { return d.Class>>16 == ClassNetwork }

func (d *Device) SysfsPath(format string, args ...interface{}) string {
	return filepath.Join(SysBusPciPath, d.Addr.String(),
		fmt.Sprintf(format, args...))
}

func (d *Device) readHex(name string) (v uint, err error) {
	b, err := ioutil.ReadFile(d.SysfsPath(name))
	if err != nil {
		return
	}
	if _, err = fmt.Sscanf(string(b), "0x%x", &v); err != nil {
		err = fmt.Errorf("%s: %v", d.SysfsPath(name), err)
	}
	return
}

// Loop through BARs to find resources.
func (d *Device) findResources() error {
	b, err := ioutil.ReadFile(d.SysfsPath("resource"))
	if err != nil {
		return err
	}
	r := bytes.NewReader(b)
	for i := 0; r.Len() > 0; i++ {
		var v [3]uint64
		n, err := fmt.Fscanf(r, "0x%x 0x%x 0x%x\n", &v[0], &v[1], &v[2])
		if n != 3 || err != nil {
			if err == nil {
				err = fmt.Errorf("short read")
			}
			return fmt.Errorf("%s: %v", d.SysfsPath("resource"), err)
		}
		size := v[0]
		if v[0] != 0 {
			size = 1 + v[1] - v[0]
		}
		d.Resources = append(d.Resources, Resource{
			Index: uint32(i),
			Base:  v[0],
			Size:  size,
		})
	}
	return nil
}

// Devices returns every device in address order. A missing sysfs
// directory means no devices.
func Devices() ([]*Device, error) {
	fis, err := ioutil.ReadDir(SysBusPciPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var devs []*Device
	for _, fi := range fis {
		d := new(Device)
		if _, err = fmt.Sscanf(fi.Name(), "%x:%x:%x.%x", &d.Addr.Domain,
			&d.Addr.Bus, &d.Addr.Slot, &d.Addr.Fn); err != nil {
			return nil, fmt.Errorf("%s: %v", fi.Name(), err)
		}
		var v uint
		if v, err = d.readHex("vendor"); err != nil {
			return nil, err
		}
		d.Vendor = uint16(v)
		if v, err = d.readHex("device"); err != nil {
			return nil, err
		}
		d.Device = uint16(v)
		if v, err = d.readHex("class"); err != nil {
			return nil, err
		}
		d.Class = uint32(v)
		if err = d.findResources(); err != nil {
			return nil, err
		}
		devs = append(devs, d)
	}
	return devs, nil
}

// UioMinor returns N of the /dev/uioN bound to the device.
func (d *Device) UioMinor() (minor int, err error) {
	fis, err := ioutil.ReadDir(d.SysfsPath("uio"))
	if err != nil {
		return
	}
	for _, fi := range fis {
		if _, err = fmt.Sscanf(fi.Name(), "uio%d", &minor); err == nil {
			return
		}
	}
	err = fmt.Errorf("%v: no uio device", d.Addr)
	return
}
