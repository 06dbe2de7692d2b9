// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package pci

import (
	"fmt"

	"github.com/platinasystems/bdei2c/internal/hw"
)

// MapResource maps the whole of a BAR.
func (d *Device) MapResource(bar uint) (*hw.Mmap, error) {
	if bar >= uint(len(d.Resources)) || d.Resources[bar].Size == 0 {
		return nil, fmt.Errorf("%v: no resource%d", d.Addr, bar)
	}
	r := &d.Resources[bar]
	return hw.Map(d.SysfsPath("resource%d", r.Index), int(r.Size))
}
