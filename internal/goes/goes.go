// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package goes dispatches a multi-call program to its plotted commands.
package goes

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/platinasystems/bdei2c/cmd"
	"github.com/platinasystems/bdei2c/lang"
	"github.com/platinasystems/flags"
)

type Goes struct {
	NAME    string
	APROPOS lang.Alt
	MAN     lang.Alt
	USAGE   string
	ByName  map[string]cmd.Cmd
}

type closer interface {
	Close() error
}

type maner interface {
	Man() lang.Alt
}

// Plot adds the given commands to the dispatch table.
func (g *Goes) Plot(cmds ...cmd.Cmd) {
	if g.ByName == nil {
		g.ByName = make(map[string]cmd.Cmd)
	}
	for _, v := range cmds {
		g.ByName[v.String()] = v
	}
}

// Names returns the sorted names of the non-hidden commands.
func (g *Goes) Names() []string {
	var names []string
	for name, v := range g.ByName {
		if !cmd.WhatKind(v).IsHidden() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (g *Goes) String() string { return g.NAME }

func (g *Goes) Apropos() lang.Alt {
	if g.APROPOS == nil {
		return lang.Alt{lang.EnUS: "switch chip i2c utilities"}
	}
	return g.APROPOS
}

func (g *Goes) Man() lang.Alt {
	if g.MAN == nil {
		return lang.Alt{
			lang.EnUS: `
SEE ALSO
	` + g.NAME + ` apropos [COMMAND], ` + g.NAME + ` man COMMAND`,
		}
	}
	return g.MAN
}

func (g *Goes) Usage() string {
	if len(g.USAGE) == 0 {
		return `
	` + g.NAME + ` COMMAND [ ARGS ]...
	` + g.NAME + ` COMMAND -[-]HELPER
	` + g.NAME + ` HELPER [ COMMAND ]...

	HELPER := { apropos | help | man | usage }`
	}
	return g.USAGE
}

// Main runs the command named by args[0], or by the program name when
// invoked through a link. With no args it uses os.Args.
func (g *Goes) Main(args ...string) error {
	if len(args) == 0 {
		args = os.Args
	}
	if len(args) > 0 {
		name := filepath.Base(args[0])
		_, isCmd := g.ByName[name]
		_, isHelper := g.helpers()[name]
		if isCmd || isHelper {
			args[0] = name
		} else {
			args = args[1:]
		}
	}
	if len(args) == 0 {
		return fmt.Errorf("%s", Usage(g))
	}
	name := args[0]
	args = args[1:]
	if helper, found := g.helpers()[name]; found {
		return helper(args...)
	}
	v, found := g.ByName[name]
	if !found {
		return fmt.Errorf("%s: command not found", name)
	}
	flag, args := flags.New(args,
		[]string{"-h", "-help", "--help"},
		[]string{"-apropos", "--apropos"},
		[]string{"-man", "--man"},
		[]string{"-usage", "--usage"})
	switch {
	case flag.ByName["-h"], flag.ByName["-usage"]:
		return g.help(name)
	case flag.ByName["-apropos"]:
		return g.apropos(name)
	case flag.ByName["-man"]:
		return g.man(name)
	}
	if cmd.WhatKind(v).IsDaemon() {
		if method, found := v.(closer); found {
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGTERM)
			defer signal.Stop(stop)
			go func() {
				if _, ok := <-stop; ok {
					method.Close()
				}
			}()
		}
	}
	err := v.Main(args...)
	if err != nil && !strings.HasPrefix(err.Error(), name+":") {
		err = fmt.Errorf("%s: %v", name, err)
	}
	return err
}
