// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"math"

	"github.com/pkg/errors"

	"github.com/beevik/goasm64/isa"
)

// An instfunc executes a decoded instruction and returns the address of
// the next instruction.
type instfunc func(c *CPU, f isa.Fields) (uint64, error)

// Emulator implementation for each opcode
var impl [32]instfunc

func init() {
	impl = [32]instfunc{
		0x00: (*CPU).and,
		0x01: (*CPU).or,
		0x02: (*CPU).xor,
		0x03: (*CPU).not,
		0x04: (*CPU).shftr,
		0x05: (*CPU).shftri,
		0x06: (*CPU).shftl,
		0x07: (*CPU).shftli,
		0x08: (*CPU).br,
		0x09: (*CPU).brrReg,
		0x0a: (*CPU).brrLit,
		0x0b: (*CPU).brnz,
		0x0c: (*CPU).call,
		0x0d: (*CPU).ret,
		0x0e: (*CPU).brgt,
		0x0f: (*CPU).priv,
		0x10: (*CPU).movLoad,
		0x11: (*CPU).movReg,
		0x12: (*CPU).movLit,
		0x13: (*CPU).movStore,
		0x14: (*CPU).addf,
		0x15: (*CPU).subf,
		0x16: (*CPU).mulf,
		0x17: (*CPU).divf,
		0x18: (*CPU).add,
		0x19: (*CPU).addi,
		0x1a: (*CPU).sub,
		0x1b: (*CPU).subi,
		0x1c: (*CPU).mul,
		0x1d: (*CPU).div,
	}
}

func (c *CPU) next() uint64 {
	return c.Reg.PC + isa.WordSize
}

// Set rd and continue with the next instruction.
func (c *CPU) set(f isa.Fields, v uint64) (uint64, error) {
	c.Reg.R[f.Rd] = v
	return c.next(), nil
}

func (c *CPU) rs(f isa.Fields) uint64 { return c.Reg.R[f.Rs] }
func (c *CPU) rt(f isa.Fields) uint64 { return c.Reg.R[f.Rt] }
func (c *CPU) rd(f isa.Fields) uint64 { return c.Reg.R[f.Rd] }

func (c *CPU) and(f isa.Fields) (uint64, error) { return c.set(f, c.rs(f)&c.rt(f)) }
func (c *CPU) or(f isa.Fields) (uint64, error)  { return c.set(f, c.rs(f)|c.rt(f)) }
func (c *CPU) xor(f isa.Fields) (uint64, error) { return c.set(f, c.rs(f)^c.rt(f)) }
func (c *CPU) not(f isa.Fields) (uint64, error) { return c.set(f, ^c.rs(f)) }

func (c *CPU) shftr(f isa.Fields) (uint64, error)  { return c.set(f, c.rs(f)>>c.rt(f)) }
func (c *CPU) shftri(f isa.Fields) (uint64, error) { return c.set(f, c.rd(f)>>f.Imm) }
func (c *CPU) shftl(f isa.Fields) (uint64, error)  { return c.set(f, c.rs(f)<<c.rt(f)) }
func (c *CPU) shftli(f isa.Fields) (uint64, error) { return c.set(f, c.rd(f)<<f.Imm) }

func (c *CPU) add(f isa.Fields) (uint64, error)  { return c.set(f, c.rs(f)+c.rt(f)) }
func (c *CPU) addi(f isa.Fields) (uint64, error) { return c.set(f, c.rd(f)+uint64(f.Imm)) }
func (c *CPU) sub(f isa.Fields) (uint64, error)  { return c.set(f, c.rs(f)-c.rt(f)) }
func (c *CPU) subi(f isa.Fields) (uint64, error) { return c.set(f, c.rd(f)-uint64(f.Imm)) }
func (c *CPU) mul(f isa.Fields) (uint64, error)  { return c.set(f, c.rs(f)*c.rt(f)) }

func (c *CPU) div(f isa.Fields) (uint64, error) {
	if c.rt(f) == 0 {
		return 0, ErrDivideByZero
	}
	return c.set(f, uint64(int64(c.rs(f))/int64(c.rt(f))))
}

// Floating point instructions treat register contents as IEEE-754 doubles.
func float(v uint64) float64 { return math.Float64frombits(v) }
func bits(v float64) uint64  { return math.Float64bits(v) }

func (c *CPU) addf(f isa.Fields) (uint64, error) {
	return c.set(f, bits(float(c.rs(f))+float(c.rt(f))))
}

func (c *CPU) subf(f isa.Fields) (uint64, error) {
	return c.set(f, bits(float(c.rs(f))-float(c.rt(f))))
}

func (c *CPU) mulf(f isa.Fields) (uint64, error) {
	return c.set(f, bits(float(c.rs(f))*float(c.rt(f))))
}

func (c *CPU) divf(f isa.Fields) (uint64, error) {
	return c.set(f, bits(float(c.rs(f))/float(c.rt(f))))
}

// br rd: jump to the address in rd.
func (c *CPU) br(f isa.Fields) (uint64, error) {
	return c.rd(f), nil
}

// brr rs: jump relative by the contents of rs.
func (c *CPU) brrReg(f isa.Fields) (uint64, error) {
	return c.Reg.PC + c.rs(f), nil
}

// brr L: jump relative by a signed 12-bit literal.
func (c *CPU) brrLit(f isa.Fields) (uint64, error) {
	return c.Reg.PC + uint64(isa.SignExtend(f.Imm)), nil
}

// brnz rd, rs: jump to rd if rs is non-zero.
func (c *CPU) brnz(f isa.Fields) (uint64, error) {
	if c.rs(f) != 0 {
		return c.rd(f), nil
	}
	return c.next(), nil
}

// brgt rd, rs, rt: jump to rd if rs > rt (signed).
func (c *CPU) brgt(f isa.Fields) (uint64, error) {
	if int64(c.rs(f)) > int64(c.rt(f)) {
		return c.rd(f), nil
	}
	return c.next(), nil
}

// call rd: store the return address below the stack pointer and jump to rd.
func (c *CPU) call(f isa.Fields) (uint64, error) {
	c.storeData(c.Reg.SP()-isa.DataSize, c.next())
	return c.rd(f), nil
}

// return: jump to the address stored below the stack pointer.
func (c *CPU) ret(f isa.Fields) (uint64, error) {
	return c.loadData(c.Reg.SP() - isa.DataSize), nil
}

func (c *CPU) priv(f isa.Fields) (uint64, error) {
	switch f.Imm {
	case isa.PrivHalt:
		c.Halted = true
	case isa.PrivIn:
		var v uint64
		if c.Ports != nil {
			v = c.Ports.In(c.rs(f))
		}
		c.Reg.R[f.Rd] = v
	case isa.PrivOut:
		if c.Ports != nil {
			c.Ports.Out(c.rd(f), c.rs(f))
		}
	default:
		return 0, errors.Wrapf(ErrIllegalInstruction, "privileged operation %d", f.Imm)
	}
	return c.next(), nil
}

// mov rd, (rs)(L)
func (c *CPU) movLoad(f isa.Fields) (uint64, error) {
	return c.set(f, c.loadData(c.rs(f)+uint64(isa.SignExtend(f.Imm))))
}

// mov rd, rs
func (c *CPU) movReg(f isa.Fields) (uint64, error) {
	return c.set(f, c.rs(f))
}

// mov rd, L
func (c *CPU) movLit(f isa.Fields) (uint64, error) {
	return c.set(f, uint64(f.Imm))
}

// mov (rd)(L), rs
func (c *CPU) movStore(f isa.Fields) (uint64, error) {
	c.storeData(c.rd(f)+uint64(isa.SignExtend(f.Imm)), c.rs(f))
	return c.next(), nil
}
