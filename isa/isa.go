// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package isa describes the instruction set of the 64-bit register machine
// targeted by the assembler: the mnemonic table, the operand families, and
// the layout of a 32-bit instruction word.
package isa

import "sort"

// Machine constants.
const (
	NumRegisters = 32 // r0 through r31
	StackPointer = 31 // r31 is used as the stack pointer
	WordSize     = 4  // bytes in an encoded instruction
	DataSize     = 8  // bytes in a data word
	ImmBits      = 12 // width of the immediate field
	ImmMask      = 1<<ImmBits - 1
)

// Privileged operation codes carried in the immediate field of priv.
const (
	PrivHalt = 0
	PrivIn   = 3
	PrivOut  = 4
)

// Opcodes of the instruction variants that share a mnemonic.
const (
	OpBrrReg   byte = 0x09 // brr rs
	OpBrrLit   byte = 0x0a // brr L
	OpMovLoad  byte = 0x10 // mov rd, (rs)(L)
	OpMovReg   byte = 0x11 // mov rd, rs
	OpMovLit   byte = 0x12 // mov rd, L
	OpMovStore byte = 0x13 // mov (rd)(L), rs
)

// Family selects the operand shape an instruction accepts.
type Family byte

// All instruction families
const (
	ThreeReg Family = iota // rd, rs, rt
	RegLit                 // rd, L
	Mov                    // four load/store/copy forms
	Brr                    // relative branch by register or literal
	General                // up to three registers, then an optional literal
	Macro                  // pseudo-instruction expanded before encoding
)

var familyName = []string{
	"three-register",
	"register-literal",
	"mov",
	"brr",
	"general",
	"macro",
}

func (f Family) String() string {
	return familyName[f]
}

// An Instruction describes a single mnemonic of the instruction set.
type Instruction struct {
	Name   string // lower-case mnemonic
	Opcode byte   // base opcode value (unused for macros)
	Words  int    // number of hardware instructions emitted
	Family Family // operand family
	Regs   int    // registers in the canonical operand form
	Imm    bool   // whether the canonical form ends with a literal
}

// Pseudo returns true if the instruction is a macro that must be expanded
// into hardware instructions before it can be encoded.
func (i *Instruction) Pseudo() bool {
	return i.Family == Macro
}

// All mnemonics
var instructions = []Instruction{
	{"and", 0x00, 1, ThreeReg, 3, false},
	{"or", 0x01, 1, ThreeReg, 3, false},
	{"xor", 0x02, 1, ThreeReg, 3, false},
	{"not", 0x03, 1, General, 2, false},
	{"shftr", 0x04, 1, ThreeReg, 3, false},
	{"shftri", 0x05, 1, RegLit, 1, true},
	{"shftl", 0x06, 1, ThreeReg, 3, false},
	{"shftli", 0x07, 1, RegLit, 1, true},
	{"br", 0x08, 1, General, 1, false},
	{"brr", OpBrrReg, 1, Brr, 1, false},
	{"brnz", 0x0b, 1, General, 2, false},
	{"call", 0x0c, 1, General, 1, false},
	{"return", 0x0d, 1, General, 0, false},
	{"brgt", 0x0e, 1, General, 3, false},
	{"priv", 0x0f, 1, General, 3, true},
	{"mov", OpMovLoad, 1, Mov, 2, false},
	{"addf", 0x14, 1, ThreeReg, 3, false},
	{"subf", 0x15, 1, ThreeReg, 3, false},
	{"mulf", 0x16, 1, ThreeReg, 3, false},
	{"divf", 0x17, 1, ThreeReg, 3, false},
	{"add", 0x18, 1, ThreeReg, 3, false},
	{"addi", 0x19, 1, RegLit, 1, true},
	{"sub", 0x1a, 1, ThreeReg, 3, false},
	{"subi", 0x1b, 1, RegLit, 1, true},
	{"mul", 0x1c, 1, ThreeReg, 3, false},
	{"div", 0x1d, 1, ThreeReg, 3, false},
	{"clr", 0, 1, Macro, 1, false},
	{"halt", 0, 1, Macro, 0, false},
	{"in", 0, 1, Macro, 2, false},
	{"out", 0, 1, Macro, 2, false},
	{"push", 0, 2, Macro, 1, false},
	{"pop", 0, 2, Macro, 1, false},
	{"ld", 0, 12, Macro, 1, true},
}

var (
	byName   map[string]*Instruction
	byOpcode [32]*Instruction
	names    []string
)

func init() {
	byName = make(map[string]*Instruction, len(instructions))
	for i := range instructions {
		inst := &instructions[i]
		byName[inst.Name] = inst
		names = append(names, inst.Name)
		if inst.Pseudo() {
			continue
		}

		byOpcode[inst.Opcode] = inst
		switch inst.Family {
		case Mov:
			for op := OpMovLoad; op <= OpMovStore; op++ {
				byOpcode[op] = inst
			}
		case Brr:
			byOpcode[OpBrrLit] = inst
		}
	}
	sort.Strings(names)
}

// Lookup returns the instruction with the given mnemonic, or nil if there
// is no such instruction. Mnemonics are case-sensitive.
func Lookup(name string) *Instruction {
	return byName[name]
}

// LookupOpcode returns the instruction that encodes to the given opcode, or
// nil if the opcode is unassigned.
func LookupOpcode(opcode byte) *Instruction {
	if int(opcode) >= len(byOpcode) {
		return nil
	}
	return byOpcode[opcode]
}

// Names returns all mnemonics in alphabetical order.
func Names() []string {
	n := make([]string, len(names))
	copy(n, names)
	return n
}

// Fields holds the decoded fields of an instruction word.
type Fields struct {
	Opcode byte
	Rd     byte
	Rs     byte
	Rt     byte
	Imm    uint16
}

// Encode packs instruction fields into a 32-bit word laid out as
// opcode(5) | rd(5) | rs(5) | rt(5) | imm(12), most significant bit first.
// Each field is truncated to its width.
func Encode(f Fields) uint32 {
	return uint32(f.Opcode&0x1f)<<27 |
		uint32(f.Rd&0x1f)<<22 |
		uint32(f.Rs&0x1f)<<17 |
		uint32(f.Rt&0x1f)<<12 |
		uint32(f.Imm&ImmMask)
}

// Decode unpacks a 32-bit instruction word into its fields.
func Decode(w uint32) Fields {
	return Fields{
		Opcode: byte(w >> 27),
		Rd:     byte(w>>22) & 0x1f,
		Rs:     byte(w>>17) & 0x1f,
		Rt:     byte(w>>12) & 0x1f,
		Imm:    uint16(w & ImmMask),
	}
}

// SignExtend interprets a 12-bit immediate as a two's-complement value.
func SignExtend(imm uint16) int64 {
	v := int64(imm & ImmMask)
	if v&(1<<(ImmBits-1)) != 0 {
		v -= 1 << ImmBits
	}
	return v
}
