// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements a disassembler for the 64-bit register
// machine's instruction set. Its output is accepted by the assembler and
// reassembles to the same instruction word.
package disasm

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/beevik/goasm64/cpu"
	"github.com/beevik/goasm64/isa"
)

// Disassemble a single instruction word. Words carrying an unassigned
// opcode disassemble as "???".
func Disassemble(word uint32) string {
	f := isa.Decode(word)
	inst := isa.LookupOpcode(f.Opcode)
	if inst == nil {
		return "???"
	}

	var ops []string
	switch inst.Family {
	case isa.Mov:
		switch f.Opcode {
		case isa.OpMovLoad:
			ops = []string{reg(f.Rd), memory(f.Rs, f.Imm)}
		case isa.OpMovReg:
			ops = []string{reg(f.Rd), reg(f.Rs)}
		case isa.OpMovLit:
			ops = []string{reg(f.Rd), fmt.Sprintf("%d", f.Imm)}
		case isa.OpMovStore:
			ops = []string{memory(f.Rd, f.Imm), reg(f.Rs)}
		}

	case isa.Brr:
		if f.Opcode == isa.OpBrrLit {
			ops = []string{fmt.Sprintf("%d", isa.SignExtend(f.Imm))}
		} else {
			ops = []string{reg(f.Rs)}
		}

	default:
		regs := []byte{f.Rd, f.Rs, f.Rt}
		for _, r := range regs[:inst.Regs] {
			ops = append(ops, reg(r))
		}
		if inst.Imm {
			ops = append(ops, fmt.Sprintf("%d", f.Imm))
		}
	}

	if len(ops) == 0 {
		return inst.Name
	}
	return inst.Name + " " + strings.Join(ops, ", ")
}

// DisassembleMemory disassembles the instruction stored in memory 'm' at
// address 'addr'. It returns a 'line' string containing the address, the
// instruction word and its disassembly, and a 'next' address that starts
// the following instruction.
func DisassembleMemory(m cpu.Memory, order binary.ByteOrder, addr uint64) (line string, next uint64) {
	var buf [isa.WordSize]byte
	m.LoadBytes(addr, buf[:])
	w := order.Uint32(buf[:])
	line = fmt.Sprintf("%08X-  %08X    %s", addr, w, Disassemble(w))
	next = addr + isa.WordSize
	return
}

func reg(r byte) string {
	return fmt.Sprintf("r%d", r)
}

func memory(base byte, imm uint16) string {
	return fmt.Sprintf("(r%d)(%d)", base, isa.SignExtend(imm))
}
