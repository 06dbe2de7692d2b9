// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package irq

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/platinasystems/bdei2c/internal/hw"
)

const maskOffset = 0x148

func newMask() (*hw.Mem, *Mask) {
	mem := hw.NewMem(0x200)
	return mem, NewMask(&hw.Regs{Window: mem}, maskOffset)
}

func TestGateTouchesOnlyItsBit(t *testing.T) {
	_, m := newMask()
	m.Modify(0x0000ffff, 0)
	g := Gate{Mask: m, Bit: 1 << 18}
	g.Enable(true)
	if got, want := m.Get(), uint32(0x0004ffff); got != want {
		t.Errorf("enable got %#x want %#x", got, want)
	}
	g.Enable(true)
	if !g.Enabled() {
		t.Error("not enabled")
	}
	g.Enable(false)
	if got, want := m.Get(), uint32(0x0000ffff); got != want {
		t.Errorf("disable got %#x want %#x", got, want)
	}
	g.Enable(false)
	if g.Enabled() {
		t.Error("still enabled")
	}
}

func TestConcurrentGates(t *testing.T) {
	_, m := newMask()
	var wg sync.WaitGroup
	for bit := uint(0); bit < 32; bit++ {
		wg.Add(1)
		go func(g Gate) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				g.Enable(true)
				g.Enable(false)
			}
			g.Enable(true)
		}(Gate{Mask: m, Bit: 1 << bit})
	}
	wg.Wait()
	if v := m.Get(); v != ^uint32(0) {
		t.Errorf("lost bits: %#x", v)
	}
}

func TestLine(t *testing.T) {
	l := &Line{Name: "test"}
	var order []string
	a := l.Connect("a", func() { order = append(order, "a") })
	l.Connect("b", func() { order = append(order, "b") })
	if n := l.Interrupt(); n != 2 {
		t.Errorf("ran %d handlers", n)
	}
	if err := l.Disconnect(a); err != nil {
		t.Fatal(err)
	}
	if err := l.Disconnect(a); err == nil {
		t.Error("disconnected twice")
	}
	l.Interrupt()
	if got := strings.Join(order, ""); got != "abb" {
		t.Errorf("order %q", got)
	}
	if l.Count() != 2 {
		t.Errorf("count %d", l.Count())
	}
	buf := new(bytes.Buffer)
	l.WriteSummary(buf)
	if !strings.Contains(buf.String(), "Total") ||
		!strings.Contains(buf.String(), "b") {
		t.Errorf("summary:\n%s", buf)
	}
}
