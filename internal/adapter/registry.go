// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package adapter

import (
	"errors"
	"fmt"
	"sync"

	"github.com/platinasystems/log"
)

// MaxAdapters is the default Registry limit.
const MaxAdapters = 4

var ErrTooMany = errors.New("too many devices")

// Registry numbers adapters in the order they're added.
type Registry struct {
	// Max adapters; zero is MaxAdapters.
	Max int

	mu       sync.Mutex
	adapters []*Adapter
}

func (r *Registry) max() int {
	if r.Max > 0 {
		return r.Max
	}
	return MaxAdapters
}

// Add assigns the adapter the next bus number.
func (r *Registry) Add(a *Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.adapters) >= r.max() {
		log.Print("warn", "unit ", a.Unit, ": ", ErrTooMany)
		return fmt.Errorf("unit %d: %w", a.Unit, ErrTooMany)
	}
	a.Bus = len(r.adapters)
	r.adapters = append(r.adapters, a)
	log.Print("daemon", "info", "adding ", a)
	return nil
}

func (r *Registry) Get(bus int) (*Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bus < 0 || bus >= len(r.adapters) {
		return nil, fmt.Errorf("i2c bus %d: not found", bus)
	}
	return r.adapters[bus], nil
}

// Buses returns the adapters in bus order.
func (r *Registry) Buses() []*Adapter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Adapter(nil), r.adapters...)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.adapters)
}

// Close removes and closes every adapter, returning the first error.
func (r *Registry) Close() (err error) {
	r.mu.Lock()
	adapters := r.adapters
	r.adapters = nil
	r.mu.Unlock()
	for _, a := range adapters {
		log.Print("daemon", "info", "removing ", a)
		if xerr := a.Close(); xerr != nil {
			log.Print("warn", a, ": ", xerr)
			if err == nil {
				err = xerr
			}
		}
	}
	return
}
