// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"encoding/json"
	"io"
	"sort"
)

// A SourceMap describes the mapping between source code line numbers and
// assembly code addresses.
type SourceMap struct {
	Origin  uint64
	Size    uint32
	CRC     uint32
	Files   []string
	Lines   []SourceLine
	Symbols []Symbol
}

// A SourceLine represents a mapping between a machine code address and
// the source code file and line number used to generate it.
type SourceLine struct {
	Address   uint64 // Machine code address
	FileIndex int    // Source code file index
	Line      int    // Source code line number
}

// Search searches the source map for a mapping with the requested address.
func (s *SourceMap) Search(addr uint64) (filename string, line int) {
	i := sort.Search(len(s.Lines), func(i int) bool {
		return s.Lines[i].Address >= addr
	})
	if i < len(s.Lines) && s.Lines[i].Address == addr {
		return s.Files[s.Lines[i].FileIndex], s.Lines[i].Line
	}
	return "", -1
}

// Symbol returns the name of the label at an address, if there is one.
func (s *SourceMap) Symbol(addr uint64) (string, bool) {
	for _, sym := range s.Symbols {
		if sym.Address == addr {
			return sym.Name, true
		}
	}
	return "", false
}

// ReadFrom reads the contents of an exported source map file.
func (s *SourceMap) ReadFrom(r io.Reader) (n int64, err error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	err = json.Unmarshal(b, s)
	if err != nil {
		return 0, err
	}
	return int64(len(b)), nil
}

// WriteTo writes the contents of the source map to an output stream.
func (s *SourceMap) WriteTo(w io.Writer) (n int64, err error) {
	b, err := json.Marshal(*s)
	if err != nil {
		return 0, err
	}

	nn, err := w.Write(b)
	return int64(nn), err
}
