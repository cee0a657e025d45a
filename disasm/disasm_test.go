// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disasm

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beevik/goasm64/asm"
	"github.com/beevik/goasm64/cpu"
)

func TestDisassemble(t *testing.T) {
	tests := []struct {
		word uint32
		exp  string
	}{
		{0xC0443000, "add r1, r2, r3"},
		{0xCFC00FF8, "addi r31, 4088"},
		{0x18440000, "not r1, r2"},
		{0x40000000, "br r0"},
		{0x68000000, "return"},
		{0x78440004, "priv r1, r2, r0, 4"},
		{0x813E0000, "mov r4, (r31)(0)"},
		{0x88440000, "mov r1, r2"},
		{0x9040002A, "mov r1, 42"},
		{0x9FCA0FF8, "mov (r31)(-8), r5"},
		{0x48060000, "brr r3"},
		{0x50000FFC, "brr -4"},
		{0xF0000000, "???"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.exp, Disassemble(tt.word), "word %08X", tt.word)
	}
}

func TestRoundTrip(t *testing.T) {
	src := `
	and r1, r2, r3
	shftri r4, 63
	not r5, r6
	br r7
	brnz r8, r9
	call r10
	return
	brgt r11, r12, r13
	priv r1, r2, r3, 3
	mov r1, (r2)(-16)
	mov r1, r2
	mov r1, 4095
	mov (r31)(-8), r14
	brr r15
	brr -2048
	addf r1, r2, r3
	divf r4, r5, r6
	subi r31, 8
	div r1, r2, r3
`
	assembly, err := asm.Assemble(strings.NewReader(src), "test", nil)
	require.NoError(t, err)

	var lines []string
	for i := 0; i < len(assembly.Code); i += 4 {
		lines = append(lines, "\t"+Disassemble(binary.BigEndian.Uint32(assembly.Code[i:])))
	}
	again, err := asm.Assemble(strings.NewReader(strings.Join(lines, "\n")), "again", nil)
	require.NoError(t, err)
	assert.Equal(t, assembly.Code, again.Code)
	assert.Equal(t, "\tmov r1, (r2)(-16)", lines[9])
}

func TestDisassembleMemory(t *testing.T) {
	mem := cpu.NewSparseMemory()
	mem.StoreBytes(0x1000, []byte{0xC0, 0x44, 0x30, 0x00, 0x00, 0x30, 0x44, 0xC0})

	line, next := DisassembleMemory(mem, binary.BigEndian, 0x1000)
	assert.Equal(t, "00001000-  C0443000    add r1, r2, r3", line)
	assert.Equal(t, uint64(0x1004), next)

	line, next = DisassembleMemory(mem, binary.LittleEndian, next)
	assert.Equal(t, "00001004-  C0443000    add r1, r2, r3", line)
	assert.Equal(t, uint64(0x1008), next)
}
