// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/beevik/term"
	flag "github.com/spf13/pflag"

	"github.com/beevik/goasm64/host"
)

var (
	assemble string
	batch    bool
)

func init() {
	flag.StringVarP(&assemble, "assemble", "a", "", "assemble file and exit")
	flag.BoolVarP(&batch, "batch", "b", false, "exit after running script files")
	flag.CommandLine.Usage = func() {
		fmt.Println("Usage: goasm64 [script] ..\nOptions:")
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	h := host.New()

	// Do command-line assemble if requested.
	if assemble != "" {
		err := h.AssembleFile(assemble)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to assemble file '%s'.\n", assemble)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Run commands contained in command-line files.
	for _, filename := range flag.Args() {
		file, err := os.Open(filename)
		if err != nil {
			exitOnError(err)
		}
		h.RunCommands(file, os.Stdout, false)
		file.Close()
	}
	if batch {
		return
	}

	// Break on Ctrl-C.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go handleInterrupt(h, c)

	// Prompt only when a person is typing.
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	h.RunCommands(os.Stdin, os.Stdout, interactive)
}

func handleInterrupt(h *host.Host, c chan os.Signal) {
	for {
		<-c
		h.Break()
	}
}

func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
