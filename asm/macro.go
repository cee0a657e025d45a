// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"

	"github.com/beevik/goasm64/isa"
)

// A macroFunc expands the operands of a pseudo-instruction into a sequence
// of hardware instructions.
type macroFunc func(ops []Operand, symbols *SymbolTable) ([]*Instruction, error)

var macros = map[string]macroFunc{
	"clr":  expandClr,
	"halt": expandHalt,
	"in":   expandIn,
	"out":  expandOut,
	"push": expandPush,
	"pop":  expandPop,
	"ld":   expandLd,
}

// Replace every pseudo-instruction with the hardware instructions it
// stands for. Each emitted instruction is given the address of its
// predecessor plus one word.
func (a *assembler) expandMacros() error {
	a.logSection("Expanding macros")

	expanded := make([]Entry, 0, len(a.entries))
	for _, e := range a.entries {
		switch ee := e.(type) {
		case *Instruction:
			if !ee.Inst.Pseudo() {
				expanded = append(expanded, ee)
				continue
			}

			seq, err := expandMacro(ee, a.symbols)
			if err != nil {
				return a.addError(ee.pos, err)
			}
			for _, s := range seq {
				a.log("%08X  %-8s -> %s", s.Addr, ee.Mnemonic, s)
				expanded = append(expanded, s)
			}

		case *Label, *Section, *Data:
			expanded = append(expanded, e)
		}
	}

	a.entries = expanded
	return nil
}

// expandMacro expands a single pseudo-instruction. The emitted instructions
// inherit the pseudo-instruction's source line and occupy consecutive words
// starting at its address.
func expandMacro(in *Instruction, symbols *SymbolTable) ([]*Instruction, error) {
	fn, ok := macros[in.Mnemonic]
	if !ok {
		return nil, tokenError(ErrUnknownCommand, in.Mnemonic)
	}

	seq, err := fn(in.Operands, symbols)
	if err != nil {
		return nil, err
	}
	if len(seq) != in.Inst.Words {
		panic(fmt.Sprintf("macro '%s' expanded to %d instructions, expected %d",
			in.Mnemonic, len(seq), in.Inst.Words))
	}

	for i, s := range seq {
		s.Addr = in.Addr + uint64(i*isa.WordSize)
		s.Line = in.Line
		s.pos = in.pos
	}
	return seq, nil
}

// Create a hardware instruction.
func hw(name string, ops ...Operand) *Instruction {
	return &Instruction{Mnemonic: name, Inst: isa.Lookup(name), Operands: ops}
}

// Check that a pseudo-instruction received exactly n register operands.
func registers(name string, ops []Operand, n int) error {
	if len(ops) != n {
		return tokenErrorf(ErrInvalidMacroOperands, name,
			"'%s' expects %d register operand(s), got %d operand(s)", name, n, len(ops))
	}
	for _, o := range ops {
		if o.Kind != RegisterOperand {
			return tokenErrorf(ErrInvalidMacroOperands, o.String(),
				"'%s' expects a register, got %s '%s'", name, o.Kind, o)
		}
	}
	return nil
}

// clr rd => xor rd, rd, rd
func expandClr(ops []Operand, _ *SymbolTable) ([]*Instruction, error) {
	if err := registers("clr", ops, 1); err != nil {
		return nil, err
	}
	rd := ops[0]
	return []*Instruction{hw("xor", rd, rd, rd)}, nil
}

// halt => priv r0, r0, r0, 0
func expandHalt(ops []Operand, _ *SymbolTable) ([]*Instruction, error) {
	if err := registers("halt", ops, 0); err != nil {
		return nil, err
	}
	r0 := Register(0)
	return []*Instruction{hw("priv", r0, r0, r0, Literal(isa.PrivHalt))}, nil
}

// in rd, rs => priv rd, rs, r0, 3
func expandIn(ops []Operand, _ *SymbolTable) ([]*Instruction, error) {
	if err := registers("in", ops, 2); err != nil {
		return nil, err
	}
	return []*Instruction{hw("priv", ops[0], ops[1], Register(0), Literal(isa.PrivIn))}, nil
}

// out rd, rs => priv rd, rs, r0, 4
func expandOut(ops []Operand, _ *SymbolTable) ([]*Instruction, error) {
	if err := registers("out", ops, 2); err != nil {
		return nil, err
	}
	return []*Instruction{hw("priv", ops[0], ops[1], Register(0), Literal(isa.PrivOut))}, nil
}

// push rd => mov (r31)(-8), rd; subi r31, 8
func expandPush(ops []Operand, _ *SymbolTable) ([]*Instruction, error) {
	if err := registers("push", ops, 1); err != nil {
		return nil, err
	}
	sp := Register(isa.StackPointer)
	return []*Instruction{
		hw("mov", Memory(isa.StackPointer, -isa.DataSize), ops[0]),
		hw("subi", sp, Literal(isa.DataSize)),
	}, nil
}

// pop rd => mov rd, (r31)(0); addi r31, 8
func expandPop(ops []Operand, _ *SymbolTable) ([]*Instruction, error) {
	if err := registers("pop", ops, 1); err != nil {
		return nil, err
	}
	sp := Register(isa.StackPointer)
	return []*Instruction{
		hw("mov", ops[0], Memory(isa.StackPointer, 0)),
		hw("addi", sp, Literal(isa.DataSize)),
	}, nil
}

// The low bit of each 12-bit chunk loaded by ld, from the most significant
// chunk down. The remaining bits 3..0 are added last.
var ldChunks = []uint{52, 40, 28, 16, 4}

// ld rd, L => clear rd, then build L twelve bits at a time.
func expandLd(ops []Operand, symbols *SymbolTable) ([]*Instruction, error) {
	if len(ops) != 2 || ops[0].Kind != RegisterOperand {
		return nil, tokenErrorf(ErrInvalidMacroOperands, "ld",
			"'ld' expects a register and a literal or label")
	}

	var v uint64
	switch o := ops[1]; o.Kind {
	case LiteralOperand:
		v = o.Value
	case LabelOperand:
		addr, err := symbols.Lookup(o.Label)
		if err != nil {
			return nil, err
		}
		v = addr
	default:
		return nil, tokenErrorf(ErrInvalidMacroOperands, o.String(),
			"'ld' expects a literal or label, got %s '%s'", o.Kind, o)
	}

	rd := ops[0]
	seq := []*Instruction{hw("xor", rd, rd, rd)}
	for i, shift := range ldChunks {
		next := uint64(12)
		if i == len(ldChunks)-1 {
			next = 4
		}
		seq = append(seq,
			hw("addi", rd, Literal((v>>shift)&isa.ImmMask)),
			hw("shftli", rd, Literal(next)))
	}
	seq = append(seq, hw("addi", rd, Literal(v&0xf)))
	return seq, nil
}
