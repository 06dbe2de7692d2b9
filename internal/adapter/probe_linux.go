// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package adapter

import (
	"fmt"

	"github.com/platinasystems/bdei2c/internal/bdei2c"
	"github.com/platinasystems/bdei2c/internal/irq"
	"github.com/platinasystems/bdei2c/internal/pci"
	"github.com/platinasystems/log"
)

// Probe brings up a controller on each Broadcom switch chip bound to
// uio_pci_generic and adds its adapter to the registry.
func Probe(r *Registry, p bdei2c.Params) error {
	devs, err := pci.Devices()
	if err != nil {
		return err
	}
	unit := 0
	for _, d := range devs {
		if d.Vendor != pci.VendorBroadcom || !d.IsNetwork() {
			continue
		}
		if r.Len() >= r.max() {
			log.Print("warn", d, ": ", ErrTooMany)
			return fmt.Errorf("%v: %w", d, ErrTooMany)
		}
		a, err := probe(unit, d, p)
		if err != nil {
			return fmt.Errorf("%v: %w", d, err)
		}
		if err = r.Add(a); err != nil {
			a.Close()
			return err
		}
		unit++
	}
	return nil
}

func probe(unit int, d *pci.Device, p bdei2c.Params) (*Adapter, error) {
	w, err := d.MapResource(0)
	if err != nil {
		return nil, err
	}
	minor, err := d.UioMinor()
	if err != nil {
		w.Unmap()
		return nil, err
	}
	line := &irq.Line{Name: d.Addr.String()}
	u, err := irq.OpenUIO(minor, line)
	if err != nil {
		w.Unmap()
		return nil, err
	}
	log.Printf("debug", "unit %d pci %v uio%d", unit, d.Addr, minor)
	c, err := bdei2c.New(bdei2c.Config{
		Unit:   unit,
		Window: w,
		Line:   line,
		Params: p,
	})
	if err != nil {
		u.Close()
		w.Unmap()
		return nil, err
	}
	return New(unit, c, u.Close, w.Unmap), nil
}
