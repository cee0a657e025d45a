// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command assemble translates an assembly source file into an expanded
// listing and a binary image.
//
//	assemble <source-file> <listing-output> <binary-output>
package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/beevik/goasm64/asm"
)

// Options read from the optional TOML file. Any flag given on the command
// line overrides the file's value.
type fileConfig struct {
	Origin         string `toml:"origin"`
	Strict         bool   `toml:"strict"`
	AllowShadowing bool   `toml:"allow_shadowing"`
	MaxLabels      int    `toml:"max_labels"`
	ByteOrder      string `toml:"byte_order"`
	LogLevel       string `toml:"log_level"`
	SourceMap      string `toml:"source_map"`
}

type cliConfig struct {
	configFile string
	verbose    bool
	fileConfig
}

var config = cliConfig{
	fileConfig: fileConfig{
		Origin:    fmt.Sprintf("0x%x", asm.DefaultOrigin),
		ByteOrder: "big",
		LogLevel:  "warning",
	},
}

var rootCmd = &cobra.Command{
	Use:           "assemble <source-file> <listing-output> <binary-output>",
	Short:         "assemble - translate assembly source into a listing and a binary image",
	Args:          cobra.ExactArgs(3),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig(cmd.Flags(), &config)
		if err != nil {
			return err
		}
		return run(args[0], args[1], args[2], config.SourceMap, cfg)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&config.configFile, "config", "", "TOML file with assembler options")
	f.BoolVarP(&config.verbose, "verbose", "v", false, "trace each assembly step")
	f.StringVar(&config.LogLevel, "log-level", config.LogLevel, "Log messages including and over the specified level: debug, info, warn, error")
	f.StringVar(&config.Origin, "origin", config.Origin, "address of the first instruction")
	f.BoolVar(&config.Strict, "strict", false, "reject directives other than .code and .data")
	f.BoolVar(&config.AllowShadowing, "allow-shadowing", false, "keep the first definition of a duplicate label")
	f.IntVar(&config.MaxLabels, "max-labels", 0, "maximum number of labels (0 for no limit)")
	f.StringVar(&config.ByteOrder, "byte-order", config.ByteOrder, "byte order of the binary image: big or little")
	f.StringVar(&config.SourceMap, "map", "", "also write a source map to this path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(source, listing, binary, sourceMap string, cfg *asm.Config) error {
	out := asm.Outputs{
		Listing:   listing,
		Binary:    binary,
		SourceMap: sourceMap,
	}
	a, err := asm.AssembleFile(source, out, cfg)
	if err != nil {
		return err
	}

	cfg.Logger.WithFields(logrus.Fields{
		"source": source,
		"bytes":  len(a.Code),
		"origin": fmt.Sprintf("0x%x", a.Origin),
	}).Info("assembled")
	return nil
}

// buildConfig merges the TOML file named by --config with the flags that
// were explicitly set, and converts the result to an assembler
// configuration.
func buildConfig(flags *pflag.FlagSet, c *cliConfig) (*asm.Config, error) {
	if c.configFile != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(c.configFile, &fc); err != nil {
			return nil, errors.Wrapf(err, "reading config file '%s'", c.configFile)
		}
		mergeFileConfig(flags, c, &fc)
	}

	cfg := asm.DefaultConfig()

	origin, err := asm.ParseLiteral(c.Origin)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid origin")
	}
	cfg.Origin = origin

	cfg.ByteOrder, err = asm.ParseByteOrder(c.ByteOrder)
	if err != nil {
		return nil, err
	}

	if c.MaxLabels < 0 {
		return nil, errors.Errorf("invalid max-labels %d", c.MaxLabels)
	}
	cfg.MaxLabels = c.MaxLabels
	cfg.StrictDirectives = c.Strict
	cfg.AllowShadowing = c.AllowShadowing

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	if c.verbose {
		level = logrus.DebugLevel
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	cfg.Logger = logger

	return cfg, nil
}

// Copy file values into c for every option not set on the command line.
func mergeFileConfig(flags *pflag.FlagSet, c *cliConfig, fc *fileConfig) {
	fromFile := func(name string) bool { return !flags.Changed(name) }

	if fromFile("origin") && fc.Origin != "" {
		c.Origin = fc.Origin
	}
	if fromFile("strict") {
		c.Strict = fc.Strict
	}
	if fromFile("allow-shadowing") {
		c.AllowShadowing = fc.AllowShadowing
	}
	if fromFile("max-labels") {
		c.MaxLabels = fc.MaxLabels
	}
	if fromFile("byte-order") && fc.ByteOrder != "" {
		c.ByteOrder = fc.ByteOrder
	}
	if fromFile("log-level") && fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fromFile("map") && fc.SourceMap != "" {
		c.SourceMap = fc.SourceMap
	}
}
