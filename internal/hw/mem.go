// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package hw

import "sync"

// Mem is a Window backed by ordinary memory. Device models hook loads
// and stores to give registers side effects.
type Mem struct {
	mu    sync.Mutex
	words []uint32

	// OnLoad, if set, may supply the result of a load.
	OnLoad func(offset uint) (data uint32, ok bool)
	// OnStore, if set, is called after each store with the mutex
	// released.
	OnStore func(offset uint, data uint32)
}

func NewMem(size uint) *Mem {
	return &Mem{words: make([]uint32, (size+3)/4)}
}

func (m *Mem) Load32(offset uint) uint32 {
	if m.OnLoad != nil {
		if data, ok := m.OnLoad(offset); ok {
			return data
		}
	}
	return m.Peek(offset)
}

func (m *Mem) Store32(offset uint, data uint32) {
	m.Poke(offset, data)
	if m.OnStore != nil {
		m.OnStore(offset, data)
	}
}

// Peek returns the backing word without the load hook.
func (m *Mem) Peek(offset uint) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.words[offset/4]
}

// Poke sets the backing word without the store hook.
func (m *Mem) Poke(offset uint, data uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.words[offset/4] = data
}
