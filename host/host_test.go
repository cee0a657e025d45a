// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beevik/goasm64/cpu"
)

func runScript(t *testing.T, h *Host, script ...string) string {
	t.Helper()
	var out bytes.Buffer
	h.RunCommands(strings.NewReader(strings.Join(script, "\n")), &out, false)
	return out.String()
}

func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.asm")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

const countdown = "\tld r1, 3\n" +
	"\tld r2, :loop\n" +
	":loop\n" +
	"\tsubi r1, 1\n" +
	"\tbrnz r2, r1\n" +
	"\thalt\n"

func TestExpressions(t *testing.T) {
	h := New()
	h.cpu.Reg.R[3] = 10

	tests := []struct {
		expr string
		exp  uint64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"-1", math.MaxUint64},
		{"0x10 << 4", 0x100},
		{"0xff >> 4", 0x0f},
		{"~0", math.MaxUint64},
		{"7 % 4 | 8", 11},
		{"6 & 3 ^ 1", 3},
		{"'A'", 65},
		{"r3 * 2", 20},
		{"sp", cpu.DefaultStackTop},
		{"pc + 4", 0x1004},
	}
	for _, tt := range tests {
		v, err := h.parseExpr(tt.expr)
		if assert.NoError(t, err, tt.expr) {
			assert.Equal(t, tt.exp, v, tt.expr)
		}
	}

	for _, expr := range []string{"1 +", "(1", "1)", "10 / 0", "r32", ":nowhere", "0x", "#"} {
		_, err := h.parseExpr(expr)
		assert.Error(t, err, expr)
	}
}

func TestAssembleAndRun(t *testing.T) {
	path := writeSource(t, countdown)
	h := New()
	out := runScript(t, h,
		"assemble file "+path,
		"symbols",
		"evaluate :loop",
		"breakpoint add :loop",
		"run",
		"evaluate r1",
		"breakpoint remove 0x1060",
		"run",
		"evaluate r1",
	)

	assert.Contains(t, out, "Assembled 'prog.asm' to 'prog.bin'.")
	assert.Contains(t, out, "loop             $00001060")
	assert.Contains(t, out, "0x1060 (4192)")
	assert.Contains(t, out, "Breakpoint hit at $00001060.")
	assert.Contains(t, out, "0x3 (3)")
	assert.Contains(t, out, "CPU halted at")
	assert.Contains(t, out, "0x0 (0)")

	prefix := strings.TrimSuffix(path, ".asm")
	for _, ext := range []string{".lst", ".bin", ".map"} {
		assert.FileExists(t, prefix+ext)
	}
}

func TestLoadBinary(t *testing.T) {
	path := writeSource(t, countdown)
	require.NoError(t, New().AssembleFile(path))

	h := New()
	bin := strings.TrimSuffix(path, ".asm") + ".bin"
	out := runScript(t, h,
		"load "+bin,
		"list",
		"run",
	)
	assert.Contains(t, out, "to $00001000..$0000106B.")
	assert.Contains(t, out, ">    1  \tld r1, 3")
	assert.Contains(t, out, "CPU halted at $00001068")
	assert.Equal(t, uint64(0), h.cpu.Reg.R[1])
}

func TestAssemblyErrors(t *testing.T) {
	path := writeSource(t, "\tadd r1, r2\n")
	out := runScript(t, New(), "assemble file "+path)
	assert.Contains(t, out, "failed to assemble 'prog.asm'")
	assert.NoFileExists(t, strings.TrimSuffix(path, ".asm")+".bin")
}

func TestAssembleLineAndDecode(t *testing.T) {
	out := runScript(t, New(),
		"assemble line push r1",
		"decode 0xC0443000",
	)
	assert.Contains(t, out, "00001000-  9FC20FF8    mov (r31)(-8), r1")
	assert.Contains(t, out, "00001004-  DFC00008    subi r31, 8")
	assert.Contains(t, out, "opcode=$18 rd=r1 rs=r2 rt=r3 imm=$000    add r1, r2, r3")
}

func TestPorts(t *testing.T) {
	path := writeSource(t, "\taddi r2, 5\n\tin r1, r2\n\taddi r3, 7\n\tout r3, r1\n\thalt\n")
	h := New()
	out := runScript(t, h,
		"port 5 42",
		"assemble file "+path,
		"run",
		"port",
	)
	assert.Contains(t, out, "OUT port 7: 0x2A (42)")
	assert.Contains(t, out, "port 7: 0x2A")
	assert.Equal(t, uint64(42), h.outPorts[7])
}

func TestSettings(t *testing.T) {
	h := New()
	out := runScript(t, h,
		"set origin 0x2000",
		"set little true",
		"set maxsteps 10",
		"set bogus 1",
	)
	assert.Contains(t, out, "Setting Origin updated.")
	assert.Contains(t, out, "Setting 'bogus' not found")
	assert.Equal(t, uint64(0x2000), h.settings.Origin)
	assert.True(t, h.settings.LittleEndian)
	assert.Equal(t, uint64(10), h.settings.MaxSteps)

	cfg := h.asmConfig(false)
	assert.Equal(t, uint64(0x2000), cfg.Origin)
	assert.Equal(t, h.cpu.Order, cfg.ByteOrder)
}

func TestStepLimit(t *testing.T) {
	path := writeSource(t, ":spin\n\tbrr 0\n")
	h := New()
	out := runScript(t, h,
		"set maxsteps 100",
		"assemble file "+path,
		"run",
	)
	assert.Contains(t, out, "Stopped after 100 steps.")
	assert.Equal(t, uint64(100), h.cpu.Steps)
}

func TestStepOver(t *testing.T) {
	path := writeSource(t, "\tld r5, :sub\n\tcall r5\n\taddi r7, 1\n\thalt\n:sub\n\taddi r6, 7\n\treturn\n")
	h := New()
	runScript(t, h,
		"assemble file "+path,
		"step in 12",
		"step over",
	)
	assert.Equal(t, uint64(0x1034), h.cpu.Reg.PC)
	assert.Equal(t, uint64(7), h.cpu.Reg.R[6])
	assert.Empty(t, h.debugger.GetBreakpoints())
}

func TestMemoryAndRegisters(t *testing.T) {
	h := New()
	out := runScript(t, h,
		"memory set 0x2000 0x4142434445464748",
		"memory dump 0x2000 8",
		"register r4 0x1234",
		"register pc 0x3000",
		"register",
	)
	assert.Contains(t, out, "00002000- 41 42 43 44 45 46 47 48")
	assert.Contains(t, out, "ABCDEFGH")
	assert.Contains(t, out, "r4 =0000000000001234")
	assert.Equal(t, uint64(0x3000), h.cpu.Reg.PC)
}

func TestHelp(t *testing.T) {
	out := runScript(t, New(),
		"help",
		"help breakpoint",
		"help memory dump",
		"nonsense",
	)
	assert.Contains(t, out, "breakpoint       Breakpoint commands")
	assert.Contains(t, out, "breakpoint commands:")
	assert.Contains(t, out, "Syntax: memory dump [<address>] [<bytes>]")
	assert.Contains(t, out, "Command not found.")
}
