// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "github.com/beevik/goasm64/isa"

// Encode a resolved hardware instruction into a 32-bit word.
func encodeInstruction(in *Instruction) (uint32, error) {
	ops := in.Operands
	f := isa.Fields{Opcode: in.Inst.Opcode}

	switch in.Inst.Family {
	case isa.ThreeReg:
		if len(ops) != 3 {
			return 0, countError(in, "three registers")
		}
		for _, o := range ops {
			if o.Kind != RegisterOperand {
				return 0, mismatch(in, o)
			}
		}
		f.Rd, f.Rs, f.Rt = byte(ops[0].Reg), byte(ops[1].Reg), byte(ops[2].Reg)

	case isa.RegLit:
		if len(ops) != 2 {
			return 0, countError(in, "a register and a literal")
		}
		if ops[0].Kind != RegisterOperand {
			return 0, mismatch(in, ops[0])
		}
		imm, err := literal(in, ops[1])
		if err != nil {
			return 0, err
		}
		f.Rd, f.Imm = byte(ops[0].Reg), imm

	case isa.Mov:
		if len(ops) != 2 {
			return 0, countError(in, "two operands")
		}
		dst, src := ops[0], ops[1]
		switch {
		case dst.Kind == RegisterOperand && src.Kind == MemoryOperand:
			if src.Label != "" {
				return 0, unresolved(src)
			}
			f.Opcode = isa.OpMovLoad
			f.Rd, f.Rs, f.Imm = byte(dst.Reg), byte(src.Reg), uint16(src.Value&isa.ImmMask)

		case dst.Kind == RegisterOperand && src.Kind == RegisterOperand:
			f.Opcode = isa.OpMovReg
			f.Rd, f.Rs = byte(dst.Reg), byte(src.Reg)

		case dst.Kind == RegisterOperand:
			imm, err := literal(in, src)
			if err != nil {
				return 0, err
			}
			f.Opcode = isa.OpMovLit
			f.Rd, f.Imm = byte(dst.Reg), imm

		case dst.Kind == MemoryOperand && src.Kind == RegisterOperand:
			if dst.Label != "" {
				return 0, unresolved(dst)
			}
			f.Opcode = isa.OpMovStore
			f.Rd, f.Rs, f.Imm = byte(dst.Reg), byte(src.Reg), uint16(dst.Value&isa.ImmMask)

		case dst.Kind == MemoryOperand:
			return 0, mismatch(in, src)

		default:
			return 0, mismatch(in, dst)
		}

	case isa.Brr:
		if len(ops) != 1 {
			return 0, countError(in, "one operand")
		}
		if ops[0].Kind == RegisterOperand {
			f.Opcode = isa.OpBrrReg
			f.Rs = byte(ops[0].Reg)
			break
		}
		imm, err := literal(in, ops[0])
		if err != nil {
			return 0, err
		}
		f.Opcode = isa.OpBrrLit
		f.Imm = imm

	case isa.General:
		if len(ops) > 4 {
			return 0, countError(in, "at most three registers and a literal")
		}
		regs := 0
		for i, o := range ops {
			switch {
			case o.Kind == RegisterOperand && regs < 3:
				switch regs {
				case 0:
					f.Rd = byte(o.Reg)
				case 1:
					f.Rs = byte(o.Reg)
				case 2:
					f.Rt = byte(o.Reg)
				}
				regs++

			case o.Kind != RegisterOperand && o.Kind != MemoryOperand && i == len(ops)-1:
				imm, err := literal(in, o)
				if err != nil {
					return 0, err
				}
				f.Imm = imm

			default:
				return 0, mismatch(in, o)
			}
		}

	default:
		return 0, tokenErrorf(ErrUnknownCommand, in.Mnemonic,
			"pseudo-instruction '%s' cannot be encoded", in.Mnemonic)
	}

	return isa.Encode(f), nil
}

// Return the 12-bit immediate field for a literal operand.
func literal(in *Instruction, o Operand) (uint16, error) {
	switch o.Kind {
	case LiteralOperand:
		return uint16(o.Value & isa.ImmMask), nil
	case LabelOperand:
		return 0, unresolved(o)
	default:
		return 0, mismatch(in, o)
	}
}

func countError(in *Instruction, want string) error {
	return tokenErrorf(ErrInvalidOperandSyntax, in.Mnemonic,
		"'%s' expects %s, got %d operand(s)", in.Mnemonic, want, len(in.Operands))
}

func mismatch(in *Instruction, o Operand) error {
	return tokenErrorf(ErrOperandTypeMismatch, o.String(),
		"'%s' does not accept %s operand '%s' here", in.Mnemonic, o.Kind, o)
}

func unresolved(o Operand) error {
	return tokenError(ErrUnresolvedLabel, o.String())
}
