// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package config is the bdei2cd configuration and its command line.
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/platinasystems/bdei2c/internal/adapter"
	"github.com/platinasystems/bdei2c/internal/bdei2c"
	"github.com/platinasystems/bdei2c/internal/hw"
	"github.com/platinasystems/flags"
	"github.com/platinasystems/parms"
)

type Config struct {
	bdei2c.Params
	// Sim runs a simulated engine instead of probing PCI.
	Sim         bool
	MaxAdapters int
	Retry       adapter.Retry
	// MuxReset names a gpio pin pulsed low after a recovery reset to
	// release devices behind a mux; empty for none.
	MuxReset string
}

func Default() Config {
	return Config{
		Params:      bdei2c.DefaultParams,
		MaxAdapters: adapter.MaxAdapters,
		Retry:       adapter.DefaultRetry,
	}
}

// Largest CCR: four bits of M, three of N.
const maxDivisor = 0x7f

// Parse the daemon options, returning the rest of the args.
func Parse(args []string) (Config, []string, error) {
	cfg := Default()
	flag, args := flags.New(args, "-sim", "-adaptive")
	parm, args := parms.New(args, "-debug", "-timeout", "-rate",
		"-retry", "-mux-reset")

	cfg.Sim = flag.ByName["-sim"]
	if flag.ByName["-adaptive"] {
		cfg.Endian = hw.Adaptive
	}
	if s := parm.ByName["-debug"]; len(s) > 0 {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 || v > 3 {
			return cfg, args, fmt.Errorf("-debug %q: want 0 to 3", s)
		}
		cfg.Debug = v
	}
	if s := parm.ByName["-timeout"]; len(s) > 0 {
		v, err := time.ParseDuration(s)
		if err != nil {
			return cfg, args, fmt.Errorf("-timeout: %w", err)
		}
		if v <= 0 {
			return cfg, args, fmt.Errorf("-timeout %v: not positive", v)
		}
		cfg.Timeout = v
	}
	if s := parm.ByName["-rate"]; len(s) > 0 {
		v, err := strconv.ParseUint(s, 0, 32)
		if err != nil || v == 0 || v > maxDivisor {
			return cfg, args, fmt.Errorf("-rate %q: want 1 to %#x",
				s, maxDivisor)
		}
		cfg.ClockDivisor = uint32(v)
	}
	if s := parm.ByName["-retry"]; len(s) > 0 {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return cfg, args, fmt.Errorf("-retry %q: want attempts", s)
		}
		cfg.Retry.Attempts = v
	}
	cfg.MuxReset = parm.ByName["-mux-reset"]
	return cfg, args, nil
}
