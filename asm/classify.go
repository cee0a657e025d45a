// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strconv"
	"strings"

	"github.com/beevik/prefixtree/v2"

	"github.com/beevik/goasm64/isa"
)

var mnemonicTree = prefixtree.New[string]()

func init() {
	for _, name := range isa.Names() {
		mnemonicTree.Add(name, name)
	}
}

// Parse a single line of assembly code. The first character of the line
// determines its kind: a tab introduces an instruction or data word, a
// colon a label, and a period a section directive. All other lines are
// ignored.
func (a *assembler) parseLine(line fstring) error {
	switch {
	case line.startsWithChar('\t'):
		body := line.consume(1).stripTrailingComment().consumeWhitespace()
		if body.isEmpty() {
			return nil
		}
		if a.section == DataSection {
			return a.parseData(body)
		}
		return a.parseInstruction(body)

	case line.startsWithChar(':'):
		return a.parseLabel(line.stripTrailingComment())

	case line.startsWithChar('.'):
		return a.parseDirective(line.stripTrailingComment())

	default:
		return nil
	}
}

// Parse a label definition of the form ":name".
func (a *assembler) parseLabel(line fstring) error {
	a.logLine(line, "label")

	name := strings.TrimSpace(line.consume(1).str)
	if name == "" || strings.ContainsAny(name, " \t,()") {
		return a.addError(line, tokenErrorf(ErrInvalidOperandSyntax, line.str, "invalid label '%s'", line.str))
	}

	a.entries = append(a.entries, &Label{Name: name, Line: line.row, pos: line})
	return nil
}

// Parse a section directive.
func (a *assembler) parseDirective(line fstring) error {
	a.logLine(line, "directive")

	name := strings.TrimSpace(line.str)
	kind := CodeSection
	switch name {
	case ".code":
	case ".data":
		kind = DataSection
	default:
		if a.cfg.StrictDirectives {
			return a.addError(line, tokenError(ErrUnknownDirective, name))
		}
	}

	a.section = kind
	a.entries = append(a.entries, &Section{Kind: kind, Name: name, Line: line.row})
	return nil
}

// Parse a data line containing a single non-negative decimal value.
func (a *assembler) parseData(line fstring) error {
	a.logLine(line, "data")

	s := line.str
	if strings.HasPrefix(s, "-") {
		return a.addError(line, tokenError(ErrNegativeDataNotAllowed, s))
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return a.addError(line, tokenError(ErrInvalidDataLiteral, s))
	}

	a.entries = append(a.entries, &Data{Value: v, Line: line.row})
	return nil
}

// Parse an instruction line: a mnemonic followed by zero or more
// comma-separated operands.
func (a *assembler) parseInstruction(line fstring) error {
	a.logLine(line, "instruction")

	word, remain := line.consumeWhile(wordChar)
	inst := isa.Lookup(word.str)
	if inst == nil {
		return a.addError(word, unknownCommand(word.str))
	}

	operands, err := a.parseOperands(remain.consumeWhitespace())
	if err != nil {
		return err
	}

	a.entries = append(a.entries, &Instruction{
		Mnemonic: word.str,
		Inst:     inst,
		Operands: operands,
		Line:     line.row,
		pos:      word,
	})
	return nil
}

// Parse a comma-separated operand list.
func (a *assembler) parseOperands(line fstring) ([]Operand, error) {
	if line.isEmpty() {
		return nil, nil
	}

	var operands []Operand
	for {
		token, remain := line.consumeUntilChar(',')
		o, err := ParseOperand(token.str)
		if err != nil {
			return nil, a.addError(token, err)
		}
		operands = append(operands, o)

		if remain.isEmpty() {
			return operands, nil
		}
		line = remain.consume(1).consumeWhitespace()
	}
}

// Build an unknown command error, suggesting the mnemonic the word most
// likely abbreviates.
func unknownCommand(word string) error {
	if name, err := mnemonicTree.FindValue(strings.ToLower(word)); err == nil {
		return tokenErrorf(ErrUnknownCommand, word, "unknown command '%s' (did you mean '%s'?)", word, name)
	}
	return tokenError(ErrUnknownCommand, word)
}
