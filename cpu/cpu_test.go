// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu_test

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beevik/goasm64/asm"
	"github.com/beevik/goasm64/cpu"
)

func loadCPU(t *testing.T, asmString string) *cpu.CPU {
	t.Helper()
	b := strings.NewReader(asmString)
	assembly, err := asm.Assemble(b, "test.asm", nil)
	require.NoError(t, err)

	c := cpu.NewCPU(cpu.NewSparseMemory(), binary.BigEndian)
	c.Load(assembly.Origin, assembly.Code)
	return c
}

func runCPU(t *testing.T, asmString string) *cpu.CPU {
	t.Helper()
	c := loadCPU(t, asmString)
	require.NoError(t, c.Run(10000))
	assert.True(t, c.Halted)
	return c
}

func expectReg(t *testing.T, c *cpu.CPU, r int, v uint64) {
	t.Helper()
	if c.Reg.R[r] != v {
		t.Errorf("r%d incorrect. exp: $%X, got: $%X", r, v, c.Reg.R[r])
	}
}

func TestArithmetic(t *testing.T) {
	c := runCPU(t, `
	addi r1, 20
	addi r2, 6
	add r3, r1, r2
	sub r4, r1, r2
	mul r5, r1, r2
	div r6, r1, r2
	subi r2, 7
	halt`)

	expectReg(t, c, 3, 26)
	expectReg(t, c, 4, 14)
	expectReg(t, c, 5, 120)
	expectReg(t, c, 6, 3)
	expectReg(t, c, 2, math.MaxUint64)
}

func TestLogic(t *testing.T) {
	c := runCPU(t, `
	addi r1, 0xf0
	addi r2, 0x3c
	and r3, r1, r2
	or r4, r1, r2
	xor r5, r1, r2
	not r6, r1
	shftri r1, 4
	shftli r2, 8
	addi r7, 2
	shftl r8, r1, r7
	shftr r9, r1, r7
	halt`)

	expectReg(t, c, 3, 0x30)
	expectReg(t, c, 4, 0xfc)
	expectReg(t, c, 5, 0xcc)
	expectReg(t, c, 6, ^uint64(0xf0))
	expectReg(t, c, 1, 0x0f)
	expectReg(t, c, 2, 0x3c00)
	expectReg(t, c, 8, 0x3c)
	expectReg(t, c, 9, 0x03)
}

func TestLoadImmediate(t *testing.T) {
	c := runCPU(t, `
	ld r3, 0x123456789ABCD
	ld r4, -2
	ld r5, 0xffffffffffffffff
	halt`)

	expectReg(t, c, 3, 0x123456789ABCD)
	expectReg(t, c, 4, math.MaxUint64-1)
	expectReg(t, c, 5, math.MaxUint64)
}

func TestCountdownLoop(t *testing.T) {
	c := runCPU(t, `
	ld r1, 5
	ld r2, :loop
:loop
	subi r1, 1
	addi r3, 1
	brnz r2, r1
	halt`)

	expectReg(t, c, 1, 0)
	expectReg(t, c, 3, 5)
}

func TestBranchGreaterIsSigned(t *testing.T) {
	c := runCPU(t, `
	not r1, r0
	ld r5, :taken
	brgt r5, r0, r1
	addi r2, 1
:taken
	addi r3, 1
	halt`)

	expectReg(t, c, 2, 0)
	expectReg(t, c, 3, 1)
}

func TestRelativeBranch(t *testing.T) {
	c := runCPU(t, `
	brr 8
	addi r1, 1
	addi r2, 8
	brr r2
	addi r1, 1
	halt`)

	expectReg(t, c, 1, 0)
}

func TestStackMacros(t *testing.T) {
	c := runCPU(t, `
	ld r1, 0xdeadbeef
	push r1
	clr r1
	pop r2
	halt`)

	expectReg(t, c, 1, 0)
	expectReg(t, c, 2, 0xdeadbeef)
	assert.Equal(t, uint64(cpu.DefaultStackTop), c.Reg.SP())
}

func TestCallReturn(t *testing.T) {
	c := runCPU(t, `
	ld r5, :sub
	call r5
	addi r7, 1
	halt
:sub
	addi r6, 7
	return`)

	expectReg(t, c, 6, 7)
	expectReg(t, c, 7, 1)
}

func TestDataSection(t *testing.T) {
	c := runCPU(t, `
	ld r1, :value
	mov r2, (r1)(0)
	mov r3, (r1)(8)
	addi r2, 1
	mov (r1)(8), r2
	mov r4, (r1)(8)
	halt
.data
:value
	41
	99`)

	expectReg(t, c, 2, 42)
	expectReg(t, c, 3, 99)
	expectReg(t, c, 4, 42)
}

func TestMovForms(t *testing.T) {
	c := runCPU(t, `
	mov r1, 0xfff
	mov r2, r1
	halt`)

	expectReg(t, c, 1, 0xfff)
	expectReg(t, c, 2, 0xfff)
}

func TestFloatingPoint(t *testing.T) {
	c := loadCPU(t, `
	addf r3, r1, r2
	subf r4, r1, r2
	mulf r5, r1, r2
	divf r6, r1, r2
	halt`)
	c.Reg.R[1] = math.Float64bits(1.5)
	c.Reg.R[2] = math.Float64bits(2.0)
	require.NoError(t, c.Run(100))

	assert.Equal(t, 3.5, math.Float64frombits(c.Reg.R[3]))
	assert.Equal(t, -0.5, math.Float64frombits(c.Reg.R[4]))
	assert.Equal(t, 3.0, math.Float64frombits(c.Reg.R[5]))
	assert.Equal(t, 0.75, math.Float64frombits(c.Reg.R[6]))
}

type fakePorts struct {
	in  map[uint64]uint64
	out map[uint64]uint64
}

func (p *fakePorts) In(port uint64) uint64 { return p.in[port] }
func (p *fakePorts) Out(port, v uint64)    { p.out[port] = v }

func TestPorts(t *testing.T) {
	c := loadCPU(t, `
	addi r2, 3
	in r1, r2
	addi r3, 9
	out r3, r1
	halt`)
	ports := &fakePorts{
		in:  map[uint64]uint64{3: 77},
		out: map[uint64]uint64{},
	}
	c.Ports = ports
	require.NoError(t, c.Run(100))

	expectReg(t, c, 1, 77)
	assert.Equal(t, uint64(77), ports.out[9])
}

func TestDivideByZero(t *testing.T) {
	c := loadCPU(t, "\tdiv r1, r2, r3\n")
	err := c.Step()
	assert.ErrorIs(t, err, cpu.ErrDivideByZero)
	assert.Equal(t, uint64(0x1000), c.Reg.PC)
}

func TestIllegalInstruction(t *testing.T) {
	c := cpu.NewCPU(cpu.NewSparseMemory(), binary.BigEndian)
	c.Load(0x1000, []byte{0xf0, 0x00, 0x00, 0x00})
	assert.ErrorIs(t, c.Step(), cpu.ErrIllegalInstruction)

	c = loadCPU(t, "\tpriv r0, r0, r0, 9\n")
	assert.ErrorIs(t, c.Step(), cpu.ErrIllegalInstruction)
}

func TestHaltedAndStepLimit(t *testing.T) {
	c := runCPU(t, "\thalt\n")
	assert.ErrorIs(t, c.Step(), cpu.ErrHalted)
	assert.Equal(t, uint64(1), c.Steps)

	c = loadCPU(t, "\tbrr 0\n")
	assert.ErrorIs(t, c.Run(50), cpu.ErrStepLimit)
	assert.Equal(t, uint64(50), c.Steps)
}

func TestLittleEndian(t *testing.T) {
	cfg := asm.DefaultConfig()
	cfg.ByteOrder = binary.LittleEndian
	assembly, err := asm.Assemble(strings.NewReader("\tld r1, 1234567\n\thalt\n"), "test", cfg)
	require.NoError(t, err)

	c := cpu.NewCPU(cpu.NewSparseMemory(), binary.LittleEndian)
	c.Load(assembly.Origin, assembly.Code)
	require.NoError(t, c.Run(100))
	expectReg(t, c, 1, 1234567)
}

type breakpointRecorder struct {
	pcs    []uint64
	stores []uint64
}

func (r *breakpointRecorder) OnBreakpoint(c *cpu.CPU, b *cpu.Breakpoint) {
	r.pcs = append(r.pcs, b.Address)
}

func (r *breakpointRecorder) OnDataBreakpoint(c *cpu.CPU, b *cpu.DataBreakpoint) {
	r.stores = append(r.stores, b.Address)
}

func TestDebugger(t *testing.T) {
	c := loadCPU(t, `
	addi r1, 1
	addi r1, 1
	push r1
	addi r1, 1
	halt`)

	rec := &breakpointRecorder{}
	d := cpu.NewDebugger(rec)
	d.AddBreakpoint(0x1008)
	d.AddBreakpoint(0x1004)
	d.AddBreakpoint(0x1010).Disabled = true
	d.AddDataBreakpoint(cpu.DefaultStackTop - 8)
	d.AddConditionalDataBreakpoint(0x2000, 5)
	c.AttachDebugger(d)

	require.NoError(t, c.Run(100))
	assert.Equal(t, []uint64{0x1004, 0x1008}, rec.pcs)
	assert.Equal(t, []uint64{cpu.DefaultStackTop - 8}, rec.stores)

	bps := d.GetBreakpoints()
	require.Len(t, bps, 3)
	assert.Equal(t, uint64(0x1004), bps[0].Address)
	assert.Equal(t, uint64(0x1010), bps[2].Address)

	d.RemoveBreakpoint(0x1004)
	assert.Nil(t, d.GetBreakpoint(0x1004))
	assert.Len(t, d.GetDataBreakpoints(), 2)
	d.RemoveDataBreakpoint(0x2000)
	assert.Nil(t, d.GetDataBreakpoint(0x2000))
}
