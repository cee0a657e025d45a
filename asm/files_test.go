// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, dir, code string) string {
	t.Helper()
	path := filepath.Join(dir, "prog.tk")
	require.NoError(t, os.WriteFile(path, []byte(code), 0644))
	return path
}

func TestAssembleFile(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "\tclr r1\n:loop\n\tbrnz r1, :loop\n\thalt\n")

	out := Outputs{
		Listing:   filepath.Join(dir, "prog.lst"),
		Binary:    filepath.Join(dir, "prog.bin"),
		SourceMap: filepath.Join(dir, "prog.map"),
	}
	assembly, err := AssembleFile(src, out, nil)
	require.NoError(t, err)

	lst, err := os.ReadFile(out.Listing)
	require.NoError(t, err)
	assert.Equal(t, ".code\n\txor r1, r1, r1\n\tbrnz r1, 4100\n\tpriv r0, r0, r0, 0\n", string(lst))

	bin, err := os.ReadFile(out.Binary)
	require.NoError(t, err)
	assert.Equal(t, assembly.Code, bin)
	assert.Equal(t, "10421000"+"58400004"+"78000000", codeHex(bin))

	f, err := os.Open(out.SourceMap)
	require.NoError(t, err)
	defer f.Close()
	var sm SourceMap
	_, err = sm.ReadFrom(f)
	require.NoError(t, err)
	assert.Equal(t, uint32(12), sm.Size)
	assert.Equal(t, []string{src}, sm.Files)
}

func TestAssembleFileFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "\tbr :missing\n")

	out := Outputs{
		Listing: filepath.Join(dir, "prog.lst"),
		Binary:  filepath.Join(dir, "prog.bin"),
	}
	_, err := AssembleFile(src, out, nil)
	assert.ErrorIs(t, err, ErrUndefinedLabel)

	assert.NoFileExists(t, out.Listing)
	assert.NoFileExists(t, out.Binary)
}

func TestAssembleFileWriteFailureRemovesOutputs(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "\tadd r1, r2, r3\n")

	out := Outputs{
		Listing: filepath.Join(dir, "prog.lst"),
		Binary:  filepath.Join(dir, "no-such-dir", "prog.bin"),
	}
	_, err := AssembleFile(src, out, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prog.bin")
	assert.NoFileExists(t, out.Listing)
}

func TestAssembleFileMissingSource(t *testing.T) {
	_, err := AssembleFile(filepath.Join(t.TempDir(), "absent.tk"), Outputs{}, nil)
	require.Error(t, err)
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}
