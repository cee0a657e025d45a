// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

// A Symbol associates a label name with the address it marks.
type Symbol struct {
	Name    string
	Address uint64
}

// A SymbolTable maps label names to addresses. Symbols are kept in the
// order they were defined.
type SymbolTable struct {
	index     map[string]int
	symbols   []Symbol
	maxLabels int  // zero means unlimited
	shadowing bool // keep the first definition of a duplicate label
}

// NewSymbolTable creates an empty symbol table. If maxLabels is positive,
// inserting more than maxLabels symbols fails. If allowShadowing is true,
// redefining a label is silently ignored and the first definition wins;
// otherwise it is an error.
func NewSymbolTable(maxLabels int, allowShadowing bool) *SymbolTable {
	return &SymbolTable{
		index:     make(map[string]int),
		maxLabels: maxLabels,
		shadowing: allowShadowing,
	}
}

// Insert adds a label and its address to the table.
func (t *SymbolTable) Insert(name string, addr uint64) error {
	if _, found := t.index[name]; found {
		if t.shadowing {
			return nil
		}
		return tokenErrorf(ErrDuplicateLabel, name, "label '%s' used more than once", name)
	}
	if t.maxLabels > 0 && len(t.symbols) >= t.maxLabels {
		return tokenErrorf(ErrTooManyLabels, name, "more than %d labels defined", t.maxLabels)
	}

	t.index[name] = len(t.symbols)
	t.symbols = append(t.symbols, Symbol{Name: name, Address: addr})
	return nil
}

// Lookup returns the address of a label.
func (t *SymbolTable) Lookup(name string) (uint64, error) {
	i, found := t.index[name]
	if !found {
		return 0, tokenError(ErrUndefinedLabel, name)
	}
	return t.symbols[i].Address, nil
}

// Len returns the number of symbols in the table.
func (t *SymbolTable) Len() int {
	return len(t.symbols)
}

// Symbols returns all symbols in definition order.
func (t *SymbolTable) Symbols() []Symbol {
	s := make([]Symbol, len(t.symbols))
	copy(s, t.symbols)
	return s
}
