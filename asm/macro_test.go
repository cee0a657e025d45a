// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beevik/goasm64/isa"
)

func TestMacroWordCounts(t *testing.T) {
	operands := map[string][]Operand{
		"clr":  {Register(1)},
		"halt": nil,
		"in":   {Register(1), Register(2)},
		"out":  {Register(1), Register(2)},
		"push": {Register(1)},
		"pop":  {Register(1)},
		"ld":   {Register(1), Literal(0x123456789abcdef0)},
	}

	symbols := NewSymbolTable(0, false)
	for _, name := range isa.Names() {
		inst := isa.Lookup(name)
		if !inst.Pseudo() {
			continue
		}

		ops, ok := operands[name]
		require.True(t, ok, "no operands for macro %s", name)

		in := &Instruction{Mnemonic: name, Inst: inst, Operands: ops, Addr: 0x2000, Line: 7}
		seq, err := expandMacro(in, symbols)
		require.NoError(t, err, name)
		assert.Len(t, seq, inst.Words, name)

		for i, s := range seq {
			assert.False(t, s.Inst.Pseudo(), name)
			assert.Equal(t, uint64(0x2000+i*isa.WordSize), s.Addr, name)
			assert.Equal(t, 7, s.Line, name)
			_, err := encodeInstruction(s)
			assert.NoError(t, err, "%s expands to unencodable '%s'", name, s)
		}
	}
}

func TestExpandLd(t *testing.T) {
	exp := ".code\n" +
		"\txor r3, r3, r3\n" +
		"\taddi r3, 0\n" +
		"\tshftli r3, 12\n" +
		"\taddi r3, 291\n" +
		"\tshftli r3, 12\n" +
		"\taddi r3, 1110\n" +
		"\tshftli r3, 12\n" +
		"\taddi r3, 1929\n" +
		"\tshftli r3, 12\n" +
		"\taddi r3, 2748\n" +
		"\tshftli r3, 4\n" +
		"\taddi r3, 13\n"
	assert.Equal(t, exp, listing(t, "\tld r3, 0x123456789ABCD\n"))
}

func TestExpandLdLabel(t *testing.T) {
	asm := "\tld r1, :value\n" +
		"\thalt\n" +
		".data\n" +
		":value\n" +
		"\t7\n"

	assembly, err := assembleWith(asm, nil)
	require.NoError(t, err)

	addr, err := assembly.Symbols.Lookup("value")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1034), addr)

	// 0x1034 = 0x103 << 4 | 0x4
	var last []string
	for _, e := range assembly.Entries {
		if in, ok := e.(*Instruction); ok {
			last = append(last, in.String())
		}
	}
	require.Len(t, last, 13)
	assert.Equal(t, []string{"addi r1, 259", "shftli r1, 4", "addi r1, 4", "priv r0, r0, r0, 0"}, last[9:])
}

func TestExpandStackMacros(t *testing.T) {
	exp := ".code\n" +
		"\tmov (r31)(-8), r5\n" +
		"\tsubi r31, 8\n" +
		"\tmov r5, (r31)(0)\n" +
		"\taddi r31, 8\n" +
		"\txor r2, r2, r2\n" +
		"\tpriv r1, r2, r0, 3\n" +
		"\tpriv r1, r2, r0, 4\n"

	asm := "\tpush r5\n" +
		"\tpop r5\n" +
		"\tclr r2\n" +
		"\tin r1, r2\n" +
		"\tout r1, r2\n"
	assert.Equal(t, exp, listing(t, asm))
}

func TestExpandAddresses(t *testing.T) {
	asm := "\tpush r1\n" +
		":after\n" +
		"\tbr :after\n"

	assembly, err := assembleWith(asm, nil)
	require.NoError(t, err)

	var addrs []uint64
	for _, e := range assembly.Entries {
		if in, ok := e.(*Instruction); ok {
			addrs = append(addrs, in.Addr)
		}
	}
	assert.Equal(t, []uint64{0x1000, 0x1004, 0x1008}, addrs)
	assert.Equal(t, "9FC20FF8"+"DFC00008"+"40000008", codeHex(assembly.Code))
}
