// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(c *cliConfig) *pflag.FlagSet {
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.StringVar(&c.Origin, "origin", c.Origin, "")
	f.BoolVar(&c.Strict, "strict", c.Strict, "")
	f.BoolVar(&c.AllowShadowing, "allow-shadowing", c.AllowShadowing, "")
	f.IntVar(&c.MaxLabels, "max-labels", c.MaxLabels, "")
	f.StringVar(&c.ByteOrder, "byte-order", c.ByteOrder, "")
	f.StringVar(&c.LogLevel, "log-level", c.LogLevel, "")
	f.StringVar(&c.SourceMap, "map", c.SourceMap, "")
	return f
}

func defaults() *cliConfig {
	return &cliConfig{
		fileConfig: fileConfig{Origin: "0x1000", ByteOrder: "big", LogLevel: "warning"},
	}
}

func TestDefaultConfig(t *testing.T) {
	c := defaults()
	cfg, err := buildConfig(newFlags(c), c)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1000), cfg.Origin)
	assert.Equal(t, binary.BigEndian, cfg.ByteOrder)
	assert.False(t, cfg.StrictDirectives)
	assert.NotNil(t, cfg.Logger)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asm.toml")
	contents := "origin = \"0x4000\"\n" +
		"strict = true\n" +
		"max_labels = 16\n" +
		"byte_order = \"little\"\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	c := defaults()
	c.configFile = path
	flags := newFlags(c)
	require.NoError(t, flags.Parse([]string{"--origin", "0x2000"}))

	cfg, err := buildConfig(flags, c)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x2000), cfg.Origin)
	assert.True(t, cfg.StrictDirectives)
	assert.Equal(t, 16, cfg.MaxLabels)
	assert.Equal(t, binary.LittleEndian, cfg.ByteOrder)
}

func TestBadConfig(t *testing.T) {
	c := defaults()
	c.ByteOrder = "middle"
	_, err := buildConfig(newFlags(c), c)
	assert.Error(t, err)

	c = defaults()
	c.Origin = ":start"
	_, err = buildConfig(newFlags(c), c)
	assert.Error(t, err)

	c = defaults()
	c.configFile = filepath.Join(t.TempDir(), "missing.toml")
	_, err = buildConfig(newFlags(c), c)
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.asm")
	require.NoError(t, os.WriteFile(src, []byte("\tadd r1, r2, r3\n"), 0644))

	c := defaults()
	cfg, err := buildConfig(newFlags(c), c)
	require.NoError(t, err)

	lst, bin := filepath.Join(dir, "prog.lst"), filepath.Join(dir, "prog.bin")
	require.NoError(t, run(src, lst, bin, "", cfg))

	code, err := os.ReadFile(bin)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xc0, 0x44, 0x30, 0x00}, code)

	listing, err := os.ReadFile(lst)
	require.NoError(t, err)
	assert.Equal(t, ".code\n\tadd r1, r2, r3\n", string(listing))

	require.NoError(t, os.WriteFile(src, []byte("\tbrr :nowhere\n"), 0644))
	os.Remove(bin)
	assert.Error(t, run(src, lst, bin, "", cfg))
	assert.NoFileExists(t, bin)
}

func TestErrorsPrintedOnce(t *testing.T) {
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"only-source.asm"})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 3 arg(s)")
	assert.Empty(t, stderr.String())
	assert.Empty(t, stdout.String())
}
