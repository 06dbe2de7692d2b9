// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package irq

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// Line dispatches a shared interrupt to every connected handler. Handlers
// run one interrupt at a time, must not block, and must check their own
// status since any source on the line may have fired.
type Line struct {
	Name string

	mu       sync.Mutex
	handlers []*handler
	lastId   int

	isr   sync.Mutex
	count uint64
}

type handler struct {
	id    int
	name  string
	f     func()
	count uint64
}

// Connect adds a handler and returns its id for Disconnect.
func (l *Line) Connect(name string, f func()) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastId++
	l.handlers = append(l.handlers, &handler{
		id:   l.lastId,
		name: name,
		f:    f,
	})
	return l.lastId
}

func (l *Line) Disconnect(id int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, h := range l.handlers {
		if h.id == id {
			l.handlers = append(l.handlers[:i:i], l.handlers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s: handler %d: not connected", l.Name, id)
}

// Interrupt runs all handlers in connection order and returns how many ran.
func (l *Line) Interrupt() int {
	l.mu.Lock()
	hs := l.handlers
	l.mu.Unlock()

	l.isr.Lock()
	defer l.isr.Unlock()
	atomic.AddUint64(&l.count, 1)
	for _, h := range hs {
		atomic.AddUint64(&h.count, 1)
		h.f()
	}
	return len(hs)
}

func (l *Line) Count() uint64 { return atomic.LoadUint64(&l.count) }

func (l *Line) WriteSummary(w io.Writer) {
	l.mu.Lock()
	hs := l.handlers
	l.mu.Unlock()
	for _, h := range hs {
		fmt.Fprintf(w, "%-30s%16d\n", h.name, atomic.LoadUint64(&h.count))
	}
	fmt.Fprintf(w, "%-30s%16d\n", "Total", l.Count())
}
