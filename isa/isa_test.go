// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package isa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpcodeTable(t *testing.T) {
	tests := []struct {
		name   string
		opcode byte
		words  int
		family Family
	}{
		{"and", 0x00, 1, ThreeReg},
		{"not", 0x03, 1, General},
		{"shftli", 0x07, 1, RegLit},
		{"brr", 0x09, 1, Brr},
		{"priv", 0x0f, 1, General},
		{"mov", 0x10, 1, Mov},
		{"divf", 0x17, 1, ThreeReg},
		{"add", 0x18, 1, ThreeReg},
		{"div", 0x1d, 1, ThreeReg},
		{"push", 0, 2, Macro},
		{"pop", 0, 2, Macro},
		{"ld", 0, 12, Macro},
		{"halt", 0, 1, Macro},
	}

	for _, tt := range tests {
		inst := Lookup(tt.name)
		require.NotNil(t, inst, tt.name)
		assert.Equal(t, tt.opcode, inst.Opcode, tt.name)
		assert.Equal(t, tt.words, inst.Words, tt.name)
		assert.Equal(t, tt.family, inst.Family, tt.name)
	}

	assert.Nil(t, Lookup("ADD"))
	assert.Nil(t, Lookup("nop"))
	assert.Len(t, Names(), 33)
}

func TestLookupOpcode(t *testing.T) {
	for op := byte(0); op < 0x1e; op++ {
		inst := LookupOpcode(op)
		require.NotNil(t, inst, "opcode %#x", op)
		assert.False(t, inst.Pseudo())
	}
	assert.Equal(t, "mov", LookupOpcode(OpMovStore).Name)
	assert.Equal(t, "brr", LookupOpcode(OpBrrLit).Name)
	assert.Nil(t, LookupOpcode(0x1e))
	assert.Nil(t, LookupOpcode(0x1f))
	assert.Nil(t, LookupOpcode(0x40))
}

func TestEncode(t *testing.T) {
	// add r1, r2, r3
	w := Encode(Fields{Opcode: 0x18, Rd: 1, Rs: 2, Rt: 3})
	assert.Equal(t, uint32(0xC0443000), w)

	// The immediate is truncated to twelve bits.
	w = Encode(Fields{Opcode: 0x19, Rd: 31, Imm: 0xfff8})
	assert.Equal(t, uint32(0xCFC00FF8), w)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for op := byte(0); op < 32; op += 3 {
		for rd := byte(0); rd < 32; rd += 7 {
			for imm := uint16(0); imm < 0x1000; imm += 0x1ff {
				f := Fields{Opcode: op, Rd: rd, Rs: 31 - rd, Rt: rd / 2, Imm: imm}
				assert.Equal(t, f, Decode(Encode(f)))
			}
		}
	}
}

func TestSignExtend(t *testing.T) {
	assert.Equal(t, int64(0), SignExtend(0))
	assert.Equal(t, int64(2047), SignExtend(0x7ff))
	assert.Equal(t, int64(-2048), SignExtend(0x800))
	assert.Equal(t, int64(-8), SignExtend(0xff8))
	assert.Equal(t, int64(-1), SignExtend(0xfff))
}
