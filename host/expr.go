// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"errors"
	"strconv"
)

var (
	errExprParse   = errors.New("expression syntax error")
	errExprDivZero = errors.New("division by zero in expression")
)

type tokenType byte

const (
	tokenNil tokenType = iota
	tokenIdentifier
	tokenNumber
	tokenOp
	tokenLParen
	tokenRParen
)

type token struct {
	Type  tokenType
	Value any // nil, string, uint64 or *op (depends on Type)
}

type opType byte

const (
	opNil opType = 0 + iota
	opMultiply
	opDivide
	opModulo
	opAdd
	opSubtract
	opShiftLeft
	opShiftRight
	opBitwiseAnd
	opBitwiseXor
	opBitwiseOr
	opBitwiseNot
	opUnaryMinus
	opUnaryPlus
)

type associativity byte

const (
	left associativity = iota
	right
)

// Expression values are 64-bit machine words. Arithmetic wraps the way the
// CPU's does.
type op struct {
	Symbol     string
	Type       opType
	Precedence byte
	Assoc      associativity
	Args       byte
	UnaryOp    opType
	Eval       func(a, b uint64) (uint64, error)
}

var ops = []op{
	{"", opNil, 0, right, 2, opNil, nil},
	{"*", opMultiply, 6, right, 2, opNil, func(a, b uint64) (uint64, error) { return a * b, nil }},
	{"/", opDivide, 6, right, 2, opNil, divide},
	{"%", opModulo, 6, right, 2, opNil, modulo},
	{"+", opAdd, 5, right, 2, opUnaryPlus, func(a, b uint64) (uint64, error) { return a + b, nil }},
	{"-", opSubtract, 5, right, 2, opUnaryMinus, func(a, b uint64) (uint64, error) { return a - b, nil }},
	{"<<", opShiftLeft, 4, right, 2, opNil, func(a, b uint64) (uint64, error) { return a << b, nil }},
	{">>", opShiftRight, 4, right, 2, opNil, func(a, b uint64) (uint64, error) { return a >> b, nil }},
	{"&", opBitwiseAnd, 3, right, 2, opNil, func(a, b uint64) (uint64, error) { return a & b, nil }},
	{"^", opBitwiseXor, 2, right, 2, opNil, func(a, b uint64) (uint64, error) { return a ^ b, nil }},
	{"|", opBitwiseOr, 1, right, 2, opNil, func(a, b uint64) (uint64, error) { return a | b, nil }},
	{"~", opBitwiseNot, 7, left, 1, opNil, func(a, _ uint64) (uint64, error) { return ^a, nil }},
	{"-", opUnaryMinus, 7, left, 1, opNil, func(a, _ uint64) (uint64, error) { return -a, nil }},
	{"+", opUnaryPlus, 7, left, 1, opNil, func(a, _ uint64) (uint64, error) { return a, nil }},
}

func divide(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, errExprDivZero
	}
	return a / b, nil
}

func modulo(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, errExprDivZero
	}
	return a % b, nil
}

// Single-character operators and their op types.
var opChars = map[byte]opType{
	'*': opMultiply,
	'/': opDivide,
	'%': opModulo,
	'+': opAdd,
	'-': opSubtract,
	'&': opBitwiseAnd,
	'^': opBitwiseXor,
	'|': opBitwiseOr,
	'~': opBitwiseNot,
}

// A resolver supplies values for identifiers: register names, the program
// counter, and labels.
type resolver interface {
	resolveIdentifier(s string) (uint64, error)
}

//
// exprParser
//

type exprParser struct {
	output        tokenStack
	operatorStack tokenStack
	prevTokenType tokenType
}

func newExprParser() *exprParser {
	return &exprParser{}
}

func (p *exprParser) Reset() {
	p.output.reset()
	p.operatorStack.reset()
	p.prevTokenType = tokenNil
}

// Parse evaluates an infix expression using the shunting-yard algorithm.
func (p *exprParser) Parse(expr string, r resolver) (uint64, error) {
	defer p.Reset()

	t := tstring(expr)

	for {
		tok, remain, err := p.parseToken(t)
		if err != nil {
			return 0, err
		}
		if tok.Type == tokenNil {
			break
		}
		t = remain

		switch tok.Type {
		case tokenNumber:
			p.output.push(tok)

		case tokenIdentifier:
			v, err := r.resolveIdentifier(tok.Value.(string))
			if err != nil {
				return 0, err
			}
			tok.Type, tok.Value = tokenNumber, v
			p.output.push(tok)

		case tokenLParen:
			p.operatorStack.push(tok)

		case tokenRParen:
			foundLParen := false
			for !p.operatorStack.isEmpty() {
				tmp := p.operatorStack.pop()
				if tmp.Type == tokenLParen {
					foundLParen = true
					break
				}
				p.output.push(tmp)
			}
			if !foundLParen {
				return 0, errExprParse
			}

		case tokenOp:
			p.checkForUnaryOp(&tok)
			for p.isCollapsible(&tok) {
				p.output.push(p.operatorStack.pop())
			}
			p.operatorStack.push(tok)
		}

		p.prevTokenType = tok.Type
	}

	for !p.operatorStack.isEmpty() {
		tok := p.operatorStack.pop()
		if tok.Type == tokenLParen {
			return 0, errExprParse
		}
		p.output.push(tok)
	}

	result, err := p.evalOutput()
	if err != nil {
		return 0, err
	}
	if !p.output.isEmpty() {
		return 0, errExprParse
	}

	return result.Value.(uint64), nil
}

func (p *exprParser) parseToken(t tstring) (tok token, remain tstring, err error) {
	t = t.consumeWhitespace()

	// Return the nil token when there are no more tokens to parse.
	if len(t) == 0 {
		return token{}, t, nil
	}

	c := t[0]
	switch {
	case decimal(c):
		return p.parseNumber(t)
	case c == '\'':
		return p.parseChar(t)
	case c == ':' || identifierStart(c):
		return p.parseIdentifier(t)
	case c == '(':
		return token{tokenLParen, nil}, t.consume(1), nil
	case c == ')':
		return token{tokenRParen, nil}, t.consume(1), nil
	case c == '<' || c == '>':
		return p.parseShiftOp(t)
	}

	if o, ok := opChars[c]; ok {
		return token{tokenOp, &ops[o]}, t.consume(1), nil
	}
	return token{}, t, errExprParse
}

// Numbers use the assembler's literal syntax: 0x-prefixed hexadecimal or
// decimal.
func (p *exprParser) parseNumber(t tstring) (tok token, remain tstring, err error) {
	base, fn, num := 10, decimal, t

	if len(num) > 1 && num[0] == '0' && (num[1] == 'x' || num[1] == 'X') {
		base, fn, num = 16, hexadecimal, num.consume(2)
	}

	num, remain = num.consumeWhile(fn)
	if num == "" {
		return token{}, t, errExprParse
	}

	v, err := strconv.ParseUint(string(num), base, 64)
	if err != nil {
		return token{}, t, errExprParse
	}

	tok = token{tokenNumber, v}
	return tok, remain, nil
}

func (p *exprParser) parseChar(t tstring) (tok token, remain tstring, err error) {
	if len(t) < 3 || t[2] != '\'' {
		return tok, t, errExprParse
	}

	tok = token{tokenNumber, uint64(t[1])}
	return tok, t.consume(3), nil
}

// Identifiers are register names, "pc", "sp", "." or a label reference
// such as ":loop".
func (p *exprParser) parseIdentifier(t tstring) (tok token, remain tstring, err error) {
	n := 0
	if t[0] == ':' {
		n = 1
	}
	n += t.consume(n).scanWhile(identifier)
	if n == 0 || (n == 1 && t[0] == ':') {
		return token{}, t, errExprParse
	}

	tok = token{tokenIdentifier, string(t[:n])}
	return tok, t.consume(n), nil
}

func (p *exprParser) parseShiftOp(t tstring) (tok token, remain tstring, err error) {
	if len(t) < 2 || t[1] != t[0] {
		return token{}, t, errExprParse
	}

	var op *op
	switch t[0] {
	case '<':
		op = &ops[opShiftLeft]
	default:
		op = &ops[opShiftRight]
	}

	tok = token{tokenOp, op}
	return tok, t.consume(2), nil
}

func (p *exprParser) evalOutput() (token, error) {
	if p.output.isEmpty() {
		return token{}, errExprParse
	}

	tok := p.output.pop()
	if tok.Type == tokenNumber {
		return tok, nil
	}
	if tok.Type != tokenOp {
		return token{}, errExprParse
	}

	op := tok.Value.(*op)
	switch op.Args {
	case 1:
		child, err := p.evalOutput()
		if err != nil {
			return token{}, err
		}
		v, err := op.Eval(child.Value.(uint64), 0)
		if err != nil {
			return token{}, err
		}
		return token{tokenNumber, v}, nil

	default:
		child2, err := p.evalOutput()
		if err != nil {
			return token{}, err
		}
		child1, err := p.evalOutput()
		if err != nil {
			return token{}, err
		}
		v, err := op.Eval(child1.Value.(uint64), child2.Value.(uint64))
		if err != nil {
			return token{}, err
		}
		return token{tokenNumber, v}, nil
	}
}

// If an operator that has a unary form follows another operator, a left
// parenthesis, or nothing, convert it to the unary form.
func (p *exprParser) checkForUnaryOp(tok *token) {
	o := tok.Value.(*op)
	if o.UnaryOp == opNil {
		return
	}
	if p.prevTokenType == tokenOp || p.prevTokenType == tokenLParen || p.prevTokenType == tokenNil {
		tok.Value = &ops[o.UnaryOp]
	}
}

func (p *exprParser) isCollapsible(opToken *token) bool {
	if p.operatorStack.isEmpty() {
		return false
	}

	top := p.operatorStack.peek()
	if top.Type != tokenOp {
		return false
	}

	currOp := opToken.Value.(*op)
	topOp := top.Value.(*op)
	if topOp.Precedence > currOp.Precedence {
		return true
	}
	if topOp.Precedence == currOp.Precedence && topOp.Assoc == left {
		return true
	}
	return false
}

//
// tokenStack
//

type tokenStack struct {
	stack []token
}

func (s *tokenStack) reset() {
	s.stack = s.stack[:0]
}

func (s *tokenStack) isEmpty() bool {
	return len(s.stack) == 0
}

func (s *tokenStack) peek() *token {
	return &s.stack[len(s.stack)-1]
}

func (s *tokenStack) push(t token) {
	s.stack = append(s.stack, t)
}

func (s *tokenStack) pop() token {
	top := len(s.stack) - 1
	t := s.stack[top]
	s.stack = s.stack[:top]
	return t
}

//
// tstring
//

type tstring string

func (t tstring) consume(n int) tstring {
	return t[n:]
}

func (t tstring) consumeWhitespace() tstring {
	return t.consume(t.scanWhile(whitespace))
}

func (t tstring) scanWhile(fn func(c byte) bool) int {
	i := 0
	for ; i < len(t) && fn(t[i]); i++ {
	}
	return i
}

func (t tstring) consumeWhile(fn func(c byte) bool) (consumed, remain tstring) {
	i := t.scanWhile(fn)
	return t[:i], t[i:]
}

func whitespace(c byte) bool {
	return c == ' ' || c == '\t'
}

func decimal(c byte) bool {
	return c >= '0' && c <= '9'
}

func hexadecimal(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func identifierStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '.'
}

func identifier(c byte) bool {
	return identifierStart(c) || decimal(c)
}
