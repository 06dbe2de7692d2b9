// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// This is a goes machine serving the i2c buses of Broadcom switch chips.
package main

import (
	"fmt"
	"os"

	"github.com/platinasystems/bdei2c/cmd/bdei2c"
	"github.com/platinasystems/bdei2c/cmd/bdei2cd"
	"github.com/platinasystems/bdei2c/internal/fdtgpio"
	"github.com/platinasystems/bdei2c/internal/goes"
	"github.com/platinasystems/bdei2c/lang"
	"github.com/platinasystems/log"
)

// Dtb describes the machine's gpio pins, including any i2c mux reset.
var Dtb = "/boot/linux.dtb"

func main() {
	g := &goes.Goes{
		NAME: "goes-bde-i2c",
		APROPOS: lang.Alt{
			lang.EnUS: "switch chip i2c machine",
		},
	}
	g.Plot(bdei2c.Command{},
		&bdei2cd.Command{
			Gpio: fdtgpio.Loader(Dtb, func(a ...interface{}) {
				log.Print(append([]interface{}{"warn"}, a...)...)
			}),
		})
	if err := g.Main(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
