// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// The Memory interface presents an interface to the CPU through which all
// memory accesses occur.
type Memory interface {
	// LoadByte loads a single byte from the address and returns it.
	LoadByte(addr uint64) byte

	// LoadBytes loads multiple bytes from the address and stores them into
	// the buffer 'b'.
	LoadBytes(addr uint64, b []byte)

	// StoreByte stores a byte to the requested address.
	StoreByte(addr uint64, v byte)

	// StoreBytes stores multiple bytes to the requested address.
	StoreBytes(addr uint64, b []byte)
}

const pageSize = 4096

// SparseMemory represents the full 64-bit address space. Pages are
// allocated on first store; unwritten memory reads as zero.
type SparseMemory struct {
	pages map[uint64]*[pageSize]byte
}

// NewSparseMemory creates a new, zero-filled 64-bit memory space.
func NewSparseMemory() *SparseMemory {
	return &SparseMemory{pages: make(map[uint64]*[pageSize]byte)}
}

// LoadByte loads a single byte from the address and returns it.
func (m *SparseMemory) LoadByte(addr uint64) byte {
	if p, ok := m.pages[addr/pageSize]; ok {
		return p[addr%pageSize]
	}
	return 0
}

// LoadBytes loads multiple bytes from the address and returns them.
func (m *SparseMemory) LoadBytes(addr uint64, b []byte) {
	for i := range b {
		b[i] = m.LoadByte(addr + uint64(i))
	}
}

// StoreByte stores a byte at the requested address.
func (m *SparseMemory) StoreByte(addr uint64, v byte) {
	p, ok := m.pages[addr/pageSize]
	if !ok {
		p = new([pageSize]byte)
		m.pages[addr/pageSize] = p
	}
	p[addr%pageSize] = v
}

// StoreBytes stores multiple bytes to the requested address.
func (m *SparseMemory) StoreBytes(addr uint64, b []byte) {
	for i, v := range b {
		m.StoreByte(addr+uint64(i), v)
	}
}
