// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/goasm64/isa"
)

// OperandKind identifies the syntactic class of an instruction operand.
type OperandKind byte

// All operand kinds
const (
	RegisterOperand OperandKind = iota // rN
	LiteralOperand                     // 42, 0x2a, -8
	LabelOperand                       // :name
	MemoryOperand                      // (rN)(offset)
)

var kindName = []string{
	"register",
	"literal",
	"label",
	"memory",
}

func (k OperandKind) String() string {
	return kindName[k]
}

// An Operand is a single parsed instruction operand.
type Operand struct {
	Kind  OperandKind
	Reg   int    // register number, or base register of a memory operand
	Value uint64 // literal value, or memory offset
	Label string // referenced label name; empty once resolved
	Text  string // literal or memory offset as it appears in the listing
}

// String returns the operand as it appears in an expanded listing.
func (o Operand) String() string {
	switch o.Kind {
	case RegisterOperand:
		return "r" + strconv.Itoa(o.Reg)
	case LiteralOperand:
		if o.Text != "" {
			return o.Text
		}
		return strconv.FormatUint(o.Value, 10)
	case LabelOperand:
		return ":" + o.Label
	default:
		if o.Text == "" {
			return fmt.Sprintf("(r%d)", o.Reg)
		}
		return fmt.Sprintf("(r%d)(%s)", o.Reg, o.Text)
	}
}

// Register returns a register operand.
func Register(n int) Operand {
	return Operand{Kind: RegisterOperand, Reg: n}
}

// Literal returns a literal operand rendered in decimal.
func Literal(v uint64) Operand {
	return Operand{Kind: LiteralOperand, Value: v, Text: strconv.FormatUint(v, 10)}
}

// Memory returns a memory operand with a signed offset from a base
// register.
func Memory(base int, offset int64) Operand {
	return Operand{
		Kind:  MemoryOperand,
		Reg:   base,
		Value: uint64(offset),
		Text:  strconv.FormatInt(offset, 10),
	}
}

// ParseRegister parses a register token of the form rN, where N is a
// decimal index between 0 and 31.
func ParseRegister(token string) (int, error) {
	t := strings.TrimSpace(token)
	if len(t) < 2 || t[0] != 'r' {
		return 0, tokenError(ErrInvalidRegister, t)
	}
	for i := 1; i < len(t); i++ {
		if !decimal(t[i]) {
			return 0, tokenError(ErrInvalidRegister, t)
		}
	}

	n, err := strconv.ParseUint(t[1:], 10, 64)
	if err != nil || n >= isa.NumRegisters {
		return 0, tokenError(ErrRegisterOutOfRange, t)
	}
	return int(n), nil
}

// ParseLiteral parses a numeric literal. Hexadecimal literals start with
// 0x; all others are decimal. A leading minus sign yields the 64-bit two's
// complement of the magnitude.
func ParseLiteral(token string) (uint64, error) {
	t := strings.TrimSpace(token)
	switch {
	case t == "":
		return 0, tokenError(ErrInvalidOperandSyntax, t)
	case IsLabelReference(t):
		return 0, tokenError(ErrUnresolvedLabel, t)
	}

	s, neg := t, false
	if s[0] == '-' {
		s, neg = s[1:], true
	}

	base := 10
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s, base = s[2:], 16
	}

	v, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, tokenError(ErrInvalidOperandSyntax, t)
	}
	if neg {
		if v > 1<<63 {
			return 0, tokenError(ErrInvalidOperandSyntax, t)
		}
		v = -v
	}
	return v, nil
}

// IsLabelReference returns true if the token names a label, i.e. it starts
// with a colon.
func IsLabelReference(token string) bool {
	return strings.HasPrefix(strings.TrimSpace(token), ":")
}

// ClassifyOperand returns the syntactic class of an operand token based on
// its first character: 'r' for registers, '(' for memory operands, and
// anything else for literals. Label references are literals until they are
// resolved.
func ClassifyOperand(token string) OperandKind {
	t := strings.TrimSpace(token)
	switch {
	case strings.HasPrefix(t, "r"):
		return RegisterOperand
	case strings.HasPrefix(t, "("):
		return MemoryOperand
	default:
		return LiteralOperand
	}
}

// ParseOperand parses a single operand token.
func ParseOperand(token string) (Operand, error) {
	t := strings.TrimSpace(token)
	if t == "" {
		return Operand{}, tokenErrorf(ErrInvalidOperandSyntax, t, "missing operand")
	}

	switch ClassifyOperand(t) {
	case RegisterOperand:
		n, err := ParseRegister(t)
		if err != nil {
			return Operand{}, err
		}
		return Register(n), nil

	case MemoryOperand:
		return parseMemory(t)

	default:
		if IsLabelReference(t) {
			name, err := labelName(t)
			if err != nil {
				return Operand{}, err
			}
			return Operand{Kind: LabelOperand, Label: name}, nil
		}
		v, err := ParseLiteral(t)
		if err != nil {
			return Operand{}, err
		}
		return Operand{Kind: LiteralOperand, Value: v, Text: t}, nil
	}
}

// Parse a memory operand of the form (rN)(offset). The offset is optional
// and defaults to zero. It may be a literal or a label reference.
func parseMemory(token string) (Operand, error) {
	t := strings.TrimSpace(token)
	end := strings.IndexByte(t, ')')
	if !strings.HasPrefix(t, "(") || end < 0 {
		return Operand{}, tokenError(ErrInvalidOperandSyntax, t)
	}

	base, err := ParseRegister(t[1:end])
	if err != nil {
		return Operand{}, err
	}
	o := Operand{Kind: MemoryOperand, Reg: base}

	rest := strings.TrimSpace(t[end+1:])
	if rest == "" {
		return o, nil
	}
	if len(rest) < 2 || rest[0] != '(' || rest[len(rest)-1] != ')' {
		return Operand{}, tokenError(ErrInvalidOperandSyntax, t)
	}

	offset := strings.TrimSpace(rest[1 : len(rest)-1])
	switch {
	case offset == "" || strings.ContainsAny(offset, "()"):
		return Operand{}, tokenError(ErrInvalidOperandSyntax, t)
	case IsLabelReference(offset):
		name, err := labelName(offset)
		if err != nil {
			return Operand{}, err
		}
		o.Label, o.Text = name, offset
	default:
		v, err := ParseLiteral(offset)
		if err != nil {
			return Operand{}, err
		}
		o.Value, o.Text = v, offset
	}
	return o, nil
}

// Return the name of a label reference with its leading colon removed.
func labelName(token string) (string, error) {
	name := strings.TrimSpace(token)[1:]
	if name == "" || strings.ContainsAny(name, " \t,()") {
		return "", tokenError(ErrInvalidOperandSyntax, token)
	}
	return name, nil
}
