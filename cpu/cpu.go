// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpu implements an emulator for the 64-bit register machine
// targeted by the assembler. It is used to run assembled programs and to
// check that pseudo-instruction expansions behave as intended.
package cpu

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/beevik/goasm64/isa"
)

// Errors
var (
	ErrHalted             = errors.New("cpu halted")
	ErrIllegalInstruction = errors.New("illegal instruction")
	ErrDivideByZero       = errors.New("divide by zero")
	ErrStepLimit          = errors.New("step limit reached")
)

// Ports is implemented by types that service the in and out privileged
// operations.
type Ports interface {
	In(port uint64) uint64
	Out(port uint64, v uint64)
}

// CPU represents a single processor. It contains a pointer to the memory
// associated with the CPU.
type CPU struct {
	Reg      Registers        // CPU registers
	Mem      Memory           // assigned memory
	Order    binary.ByteOrder // byte order of instructions and data in memory
	Ports    Ports            // I/O ports; may be nil
	Halted   bool             // set when the CPU executes a halt
	Steps    uint64           // total executed instructions
	LastPC   uint64           // previous program counter
	debugger *Debugger
}

// NewCPU creates an emulated CPU bound to the specified memory.
func NewCPU(m Memory, order binary.ByteOrder) *CPU {
	cpu := &CPU{
		Mem:   m,
		Order: order,
	}

	cpu.Reg.Init()
	return cpu
}

// Load stores machine code into memory at the origin address and points
// the program counter at it.
func (cpu *CPU) Load(origin uint64, code []byte) {
	cpu.Mem.StoreBytes(origin, code)
	cpu.SetPC(origin)
	cpu.Halted = false
}

// SetPC updates the CPU program counter to 'addr'.
func (cpu *CPU) SetPC(addr uint64) {
	cpu.Reg.PC = addr
}

// Fetch returns the instruction word at the requested address.
func (cpu *CPU) Fetch(addr uint64) uint32 {
	var buf [isa.WordSize]byte
	cpu.Mem.LoadBytes(addr, buf[:])
	return cpu.Order.Uint32(buf[:])
}

// Step the cpu by one instruction.
func (cpu *CPU) Step() error {
	if cpu.Halted {
		return ErrHalted
	}

	pc := cpu.Reg.PC
	f := isa.Decode(cpu.Fetch(pc))
	fn := impl[f.Opcode]
	if fn == nil {
		return errors.Wrapf(ErrIllegalInstruction, "opcode $%02X at $%X", f.Opcode, pc)
	}

	next, err := fn(cpu, f)
	if err != nil {
		return errors.Wrapf(err, "at $%X", pc)
	}

	cpu.LastPC = pc
	cpu.Reg.PC = next
	cpu.Steps++

	// Update the debugger so it can handle breakpoints.
	if cpu.debugger != nil {
		cpu.debugger.onUpdatePC(cpu, cpu.Reg.PC)
	}
	return nil
}

// Run steps the CPU until it halts or an error occurs. If maxSteps is
// positive and the CPU has not halted after that many steps, Run returns
// ErrStepLimit.
func (cpu *CPU) Run(maxSteps uint64) error {
	for n := uint64(0); !cpu.Halted; n++ {
		if maxSteps > 0 && n == maxSteps {
			return ErrStepLimit
		}
		if err := cpu.Step(); err != nil {
			return err
		}
	}
	return nil
}

// AttachDebugger attaches a debugger to the CPU. The debugger receives
// notifications whenever the CPU executes an instruction.
func (cpu *CPU) AttachDebugger(debugger *Debugger) {
	cpu.debugger = debugger
}

// Load a 64-bit data word from memory.
func (cpu *CPU) loadData(addr uint64) uint64 {
	var buf [isa.DataSize]byte
	cpu.Mem.LoadBytes(addr, buf[:])
	return cpu.Order.Uint64(buf[:])
}

// Store a 64-bit data word to memory.
func (cpu *CPU) storeData(addr uint64, v uint64) {
	var buf [isa.DataSize]byte
	cpu.Order.PutUint64(buf[:], v)
	cpu.Mem.StoreBytes(addr, buf[:])

	if cpu.debugger != nil {
		cpu.debugger.onDataStore(cpu, addr, v)
	}
}
