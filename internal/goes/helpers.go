// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package goes

import (
	"fmt"
	"strings"

	"github.com/platinasystems/bdei2c/cmd"
	"github.com/platinasystems/bdei2c/lang"
)

var section = struct {
	name, synopsis lang.Alt
}{
	name: lang.Alt{
		lang.EnUS: "NAME",
		lang.FrFR: "NOM",
	},
	synopsis: lang.Alt{
		lang.EnUS: "SYNOPSIS",
	},
}

type Usager interface {
	Usage() string
}

func Usage(v Usager) string {
	return fmt.Sprint("usage:\t", strings.TrimSpace(v.Usage()))
}

func (g *Goes) helpers() map[string]func(...string) error {
	return map[string]func(...string) error{
		"apropos": g.apropos,
		"help":    g.help,
		"man":     g.man,
		"usage":   g.help,
	}
}

func (g *Goes) lookup(args []string) ([]cmd.Cmd, error) {
	var cmds []cmd.Cmd
	for i, name := range args {
		v, found := g.ByName[name]
		if !found {
			if i == 0 {
				return nil, fmt.Errorf("%s: not found", name)
			}
			break
		}
		cmds = append(cmds, v)
	}
	return cmds, nil
}

func (g *Goes) apropos(args ...string) error {
	if len(args) == 0 {
		args = g.Names()
	}
	cmds, err := g.lookup(args)
	if err != nil {
		return err
	}
	for _, v := range cmds {
		name := v.String()
		if n := 16 - len(name); n > 0 {
			name += strings.Repeat(" ", n)
		} else {
			name += "\n\t\t"
		}
		fmt.Print(name, v.Apropos(), "\n")
	}
	return nil
}

func (g *Goes) help(args ...string) error {
	if len(args) == 0 {
		fmt.Println(Usage(g))
		return nil
	}
	cmds, err := g.lookup(args)
	if err != nil {
		return err
	}
	for _, v := range cmds {
		fmt.Println(Usage(v))
	}
	return nil
}

func (g *Goes) man(args ...string) error {
	cmds, err := g.lookup(args)
	if err != nil {
		return err
	}
	if len(cmds) == 0 {
		cmds = []cmd.Cmd{g}
	}
	for i, v := range cmds {
		if i > 0 {
			fmt.Println()
		}
		fmt.Print(section.name, "\n\t", v, " - ",
			v.Apropos(), "\n\n", section.synopsis, "\n\t",
			strings.TrimSpace(v.Usage()), "\n")
		if method, found := v.(maner); found {
			man := method.Man().String()
			if !strings.HasPrefix(man, "\n") {
				fmt.Println()
			}
			fmt.Print(man)
			if !strings.HasSuffix(man, "\n") {
				fmt.Println()
			}
		}
	}
	return nil
}
