// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "github.com/beevik/goasm64/isa"

// DefaultStackTop is the initial value of the stack pointer. The stack
// grows downward from here.
const DefaultStackTop = 0x80000

// Registers contains the state of all machine registers.
type Registers struct {
	R  [isa.NumRegisters]uint64 // general purpose registers r0..r31
	PC uint64                   // program counter
}

// Init initializes all registers. r0..r30 = 0, r31 = DefaultStackTop,
// PC = 0.
func (r *Registers) Init() {
	r.R = [isa.NumRegisters]uint64{}
	r.R[isa.StackPointer] = DefaultStackTop
	r.PC = 0
}

// SP returns the stack pointer.
func (r *Registers) SP() uint64 {
	return r.R[isa.StackPointer]
}
