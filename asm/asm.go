// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements an assembler for a 64-bit register machine with
// 32 general purpose registers and fixed-width 32-bit instructions.
//
// Assembly proceeds in a fixed sequence of steps: source lines are
// classified into entries, addresses are assigned and the symbol table is
// built, pseudo-instructions are expanded, label references are resolved,
// and finally instructions and data are encoded into a binary image.
package asm

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/beevik/goasm64/isa"
)

// SectionKind identifies the active section of the source file.
type SectionKind byte

// All sections
const (
	CodeSection SectionKind = iota // lines hold instructions
	DataSection                    // lines hold 64-bit data words
)

func (k SectionKind) String() string {
	if k == DataSection {
		return ".data"
	}
	return ".code"
}

// An Entry is a single classified line of source code. It is one of
// *Label, *Section, *Instruction or *Data.
type Entry interface {
	line() int
}

// A Label entry marks the address of the next emitted instruction or data
// word. It occupies no space.
type Label struct {
	Name string  // label name without the leading colon
	Addr uint64  // assigned address
	Line int     // source line number
	pos  fstring // source position, for error reporting
}

// A Section entry switches the active section.
type Section struct {
	Kind SectionKind
	Name string // directive as written
	Line int
}

// An Instruction entry holds a hardware instruction or, before macro
// expansion, a pseudo-instruction.
type Instruction struct {
	Mnemonic string
	Inst     *isa.Instruction // instruction table data for the mnemonic
	Operands []Operand
	Addr     uint64 // assigned address
	Line     int    // source line number
	pos      fstring
}

// String returns the instruction as it appears in an expanded listing.
func (i *Instruction) String() string {
	if len(i.Operands) == 0 {
		return i.Mnemonic
	}
	ops := make([]string, len(i.Operands))
	for j, o := range i.Operands {
		ops[j] = o.String()
	}
	return i.Mnemonic + " " + strings.Join(ops, ", ")
}

// A Data entry holds a single 64-bit data word.
type Data struct {
	Value uint64
	Addr  uint64
	Line  int
}

func (l *Label) line() int       { return l.Line }
func (s *Section) line() int     { return s.Line }
func (i *Instruction) line() int { return i.Line }
func (d *Data) line() int        { return d.Line }

// The assembler is a state object used during the assembly of
// machine code from assembly code.
type assembler struct {
	cfg         *Config
	file        string             // source file name used in errors
	r           io.Reader          // the reader passed to Assemble
	base        logrus.FieldLogger // configured trace output
	logger      logrus.FieldLogger // trace output for the current step
	order       binary.ByteOrder   // byte order of the generated code
	section     SectionKind        // section active while classifying
	entries     []Entry            // classified source lines
	symbols     *SymbolTable       // label -> address
	pc          uint64             // address cursor
	code        []byte             // generated machine code
	sourceLines []SourceLine       // address -> source line mappings
}

// Assembly contains the assembled machine code and other data associated with
// the machine code.
type Assembly struct {
	File        string       // source file name
	Origin      uint64       // address of the first code byte
	Entries     []Entry      // expanded entries with resolved operands
	Symbols     *SymbolTable // all labels and their addresses
	Code        []byte       // assembled machine code
	SourceLines []SourceLine // address of each instruction's source line
}

// WriteTo saves machine code as binary data into an output writer.
func (a *Assembly) WriteTo(w io.Writer) (n int64, err error) {
	nn, err := w.Write(a.Code)
	return int64(nn), err
}

// SourceMap returns a source map describing the assembly.
func (a *Assembly) SourceMap() *SourceMap {
	return &SourceMap{
		Origin:  a.Origin,
		Size:    uint32(len(a.Code)),
		CRC:     crc32.ChecksumIEEE(a.Code),
		Files:   []string{a.File},
		Lines:   a.SourceLines,
		Symbols: a.Symbols.Symbols(),
	}
}

// Assemble reads source code from the provided stream and assembles it
// into machine code. If cfg is nil, the default configuration is used. On
// failure the first error encountered is returned as an *Error and no
// assembly is produced.
func Assemble(r io.Reader, filename string, cfg *Config) (*Assembly, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	a := &assembler{
		cfg:     cfg,
		file:    filename,
		r:       r,
		base:    cfg.logger(),
		order:   cfg.byteOrder(),
		section: CodeSection,
		entries: make([]Entry, 0, 64),
		symbols: NewSymbolTable(cfg.MaxLabels, cfg.AllowShadowing),
	}
	a.logger = a.base

	// Assembly consists of the following steps
	steps := []func(a *assembler) error{
		(*assembler).parse,           // Classify source lines into entries
		(*assembler).assignAddresses, // Assign addresses and build the symbol table
		(*assembler).expandMacros,    // Replace pseudo-instructions
		(*assembler).resolveLabels,   // Replace label references with addresses
		(*assembler).generateCode,    // Encode instructions and data
	}

	// Execute assembler steps, breaking if an error is encountered
	// in any one of them.
	for _, step := range steps {
		if err := step(a); err != nil {
			return nil, err
		}
	}

	return &Assembly{
		File:        filename,
		Origin:      cfg.Origin,
		Entries:     a.entries,
		Symbols:     a.symbols,
		Code:        a.code,
		SourceLines: a.sourceLines,
	}, nil
}

// Read the assembly code and classify each line.
func (a *assembler) parse() error {
	a.logSection("Classifying lines")

	scanner := bufio.NewScanner(a.r)
	row := 1
	for scanner.Scan() {
		line := newFstring(row, scanner.Text())
		if err := a.parseLine(line); err != nil {
			return err
		}
		row++
	}
	return errors.Wrapf(scanner.Err(), "reading '%s'", a.file)
}

// Determine addresses of all entries and record label addresses in the
// symbol table.
func (a *assembler) assignAddresses() error {
	a.logSection("Assigning addresses")
	a.pc = a.cfg.Origin
	for _, e := range a.entries {
		switch ee := e.(type) {
		case *Label:
			ee.Addr = a.pc
			if err := a.symbols.Insert(ee.Name, ee.Addr); err != nil {
				return a.addError(ee.pos, err)
			}
			a.log("%08X  :%s", ee.Addr, ee.Name)

		case *Instruction:
			ee.Addr = a.pc
			a.log("%08X  %s Words:%d", ee.Addr, ee.Mnemonic, ee.Inst.Words)
			a.pc += uint64(isa.WordSize * ee.Inst.Words)

		case *Data:
			ee.Addr = a.pc
			a.log("%08X  data", ee.Addr)
			a.pc += isa.DataSize

		case *Section:
		}
	}
	return nil
}

// Resolve all label references to addresses.
func (a *assembler) resolveLabels() error {
	a.logSection("Resolving labels")
	for _, e := range a.entries {
		switch ee := e.(type) {
		case *Instruction:
			for i := range ee.Operands {
				o := &ee.Operands[i]
				if o.Label == "" {
					continue
				}
				addr, err := a.symbols.Lookup(o.Label)
				if err != nil {
					return a.addError(ee.pos, err)
				}
				a.log("%08X  :%-15s Addr:%d", ee.Addr, o.Label, addr)
				o.Value, o.Text, o.Label = addr, strconv.FormatUint(addr, 10), ""
				if o.Kind == LabelOperand {
					o.Kind = LiteralOperand
				}
			}

		case *Label, *Section, *Data:
		}
	}
	return nil
}

// Generate machine code.
func (a *assembler) generateCode() error {
	a.logSection("Generating code")
	var buf [isa.DataSize]byte
	for _, e := range a.entries {
		switch ee := e.(type) {
		case *Instruction:
			w, err := encodeInstruction(ee)
			if err != nil {
				return a.addError(ee.pos, err)
			}
			a.order.PutUint32(buf[:isa.WordSize], w)
			a.code = append(a.code, buf[:isa.WordSize]...)
			a.sourceLines = append(a.sourceLines, SourceLine{
				Address: ee.Addr,
				Line:    ee.Line,
			})
			a.log("%08X-  %08X    %s", ee.Addr, w, ee)

		case *Data:
			a.order.PutUint64(buf[:], ee.Value)
			a.code = append(a.code, buf[:]...)
			a.log("%08X-  %s", ee.Addr, byteString(buf[:]))

		case *Label, *Section:
		}
	}
	return nil
}

// Attach a source position to an error and return it.
func (a *assembler) addError(l fstring, err error) error {
	var e *Error
	if !errors.As(err, &e) {
		e = &Error{Kind: err}
	}
	if e.Line == 0 {
		e.File = a.file
		e.Line = l.row
		e.Column = l.column + 1
	}

	a.logger.Debug(e.Error())
	a.logger.Debug(l.full)
	a.logger.Debug(strings.Repeat("-", l.column) + "^")
	return e
}

// Log a trace message at debug level.
func (a *assembler) log(format string, args ...any) {
	a.logger.Debugf(format, args...)
}

// Log a trace message and its associated line of assembly code.
func (a *assembler) logLine(line fstring, format string, args ...any) {
	detail := fmt.Sprintf(format, args...)
	a.logger.WithFields(logrus.Fields{
		"line": line.row,
		"col":  line.column + 1,
	}).Debugf("%-20s | %s", detail, line.str)
}

// Start a new section of the trace. Subsequent messages carry the
// section's name.
func (a *assembler) logSection(name string) {
	a.logger = a.base.WithField("step", name)
	a.logger.Debugf("-- %s --", name)
}
