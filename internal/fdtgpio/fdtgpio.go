// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package fdtgpio loads the machine's gpio pin map from its device tree.
package fdtgpio

import (
	"fmt"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/platinasystems/fdt"
	"github.com/platinasystems/gpio"
)

// Load replaces gpio.Aliases and gpio.Pins with those described by the
// given flattened device tree file.
func Load(file string) error {
	b, err := ioutil.ReadFile(file)
	if err != nil {
		return fmt.Errorf("%s: %v", file, err)
	}
	gpio.Aliases = make(gpio.GpioAliasMap)
	gpio.Pins = make(gpio.PinMap)
	t := &fdt.Tree{Debug: false, IsLittleEndian: false}
	t.Parse(b)
	t.MatchNode("aliases", aliases)
	t.EachProperty("gpio-controller", "", pins)
	return nil
}

// Loader returns a hook that loads file, logging failure through the
// given printer.
func Loader(file string, warn func(...interface{})) func() {
	return func() {
		if err := Load(file); err != nil {
			warn(err)
		}
	}
}

// Record the gpio bank aliases, "gpio0 = /soc/gpio@..." -> "gpio@...".
func aliases(n *fdt.Node) {
	for p, pn := range n.Properties {
		if !strings.Contains(p, "gpio") {
			continue
		}
		path := strings.Split(string(pn), "\x00")[0]
		v := strings.Split(path, "/")
		gpio.Aliases[p] = v[len(v)-1]
	}
}

// Map the described pins of each aliased gpio controller.
func pins(n *fdt.Node, name string, value string) {
	for bank, alias := range gpio.Aliases {
		if alias != n.Name {
			continue
		}
		for _, c := range n.Children {
			var desc []string
			var mode string
			for p := range c.Properties {
				switch p {
				case "gpio-pin-desc":
					desc = strings.Split(c.Name, "@")
				case "output-high", "output-low", "input":
					mode = p
				}
			}
			if len(mode) == 0 || len(desc) < 2 {
				continue
			}
			i, _ := strconv.Atoi(desc[1])
			gpio.Pins[desc[0]] = gpio.GpioPinMode[mode] |
				gpio.GpioBankToBase[bank] |
				gpio.Pin(i)
		}
	}
}
