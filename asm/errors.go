// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"errors"
	"fmt"
)

// Error kinds reported by the assembler. Every *Error returned by this
// package wraps exactly one of these, so callers may test for them with
// errors.Is.
var (
	ErrInvalidRegister        = errors.New("invalid register")
	ErrRegisterOutOfRange     = errors.New("register out of range")
	ErrUnknownCommand         = errors.New("unknown command")
	ErrUnknownDirective       = errors.New("unknown directive")
	ErrInvalidOperandSyntax   = errors.New("invalid operand syntax")
	ErrOperandTypeMismatch    = errors.New("operand type mismatch")
	ErrInvalidDataLiteral     = errors.New("invalid data literal")
	ErrNegativeDataNotAllowed = errors.New("negative data not allowed")
	ErrInvalidMacroOperands   = errors.New("invalid macro operands")
	ErrUndefinedLabel         = errors.New("undefined label")
	ErrDuplicateLabel         = errors.New("duplicate label")
	ErrTooManyLabels          = errors.New("too many labels")
	ErrUnresolvedLabel        = errors.New("unresolved label")
)

// An Error describes a problem encountered while assembling a line of
// source code.
type Error struct {
	Kind   error  // one of the Err* kinds above
	File   string // source file name
	Line   int    // 1-based source line, or 0 if unknown
	Column int    // 1-based source column
	Token  string // offending token, if any
	Msg    string // detail message, if any
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Error()
		if e.Token != "" {
			msg += fmt.Sprintf(" '%s'", e.Token)
		}
	}
	if e.Line > 0 {
		return fmt.Sprintf("Syntax error in '%s' line %d, col %d: %s", e.File, e.Line, e.Column, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// tokenError builds an error for a token whose position is not yet known.
// The assembler fills in the position when the error reaches it.
func tokenError(kind error, token string) *Error {
	return &Error{Kind: kind, Token: token}
}

func tokenErrorf(kind error, token string, format string, args ...any) *Error {
	return &Error{Kind: kind, Token: token, Msg: fmt.Sprintf(format, args...)}
}
