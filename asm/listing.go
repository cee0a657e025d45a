// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"io"
	"strings"
)

// WriteListing writes the expanded program as assembly text. Each
// instruction and data word is written on its own tab-indented line, and a
// .code or .data marker is written whenever the section changes. The
// listing always starts with a section marker. Labels are not written;
// their references appear as decimal addresses.
func (a *Assembly) WriteListing(w io.Writer) (n int64, err error) {
	var b strings.Builder

	var section SectionKind
	started := false
	mark := func(k SectionKind) {
		if !started || section != k {
			b.WriteString(k.String())
			b.WriteByte('\n')
			section, started = k, true
		}
	}

	for _, e := range a.Entries {
		switch ee := e.(type) {
		case *Instruction:
			mark(CodeSection)
			fmt.Fprintf(&b, "\t%s\n", ee)
		case *Data:
			mark(DataSection)
			fmt.Fprintf(&b, "\t%d\n", ee.Value)
		case *Label, *Section:
		}
	}
	if !started {
		mark(CodeSection)
	}

	nn, err := io.WriteString(w, b.String())
	return int64(nn), err
}
