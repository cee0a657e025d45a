// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"fmt"
	"strings"
)

func stringToBool(s string) (bool, error) {
	s = strings.ToLower(s)
	switch s {
	case "0", "false", "off":
		return false, nil
	case "1", "true", "on":
		return true, nil
	default:
		return false, fmt.Errorf("invalid bool value '%s'", s)
	}
}

var hexString = "0123456789ABCDEF"

// Write the low 32 bits of an address as 8 hex digits.
func addrToBuf(addr uint64, b []byte) {
	for i := 7; i >= 0; i-- {
		b[i] = hexString[addr&0xf]
		addr >>= 4
	}
}

func byteToBuf(v byte, b []byte) {
	b[0] = hexString[(v>>4)&0xf]
	b[1] = hexString[v&0xf]
}

func toPrintableChar(v byte) byte {
	if v >= 32 && v < 127 {
		return v
	}
	return '.'
}

// Wrap text at 76 columns, indenting each line.
func indentWrap(indent int, s string) string {
	pad := strings.Repeat(" ", indent)
	width := 76 - indent

	var b strings.Builder
	n := 0
	for _, w := range strings.Fields(s) {
		switch {
		case n == 0:
			b.WriteString(pad)
		case n+1+len(w) > width:
			b.WriteString("\n" + pad)
			n = 0
		default:
			b.WriteByte(' ')
			n++
		}
		b.WriteString(w)
		n += len(w)
	}
	return b.String()
}
