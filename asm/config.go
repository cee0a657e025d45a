// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultOrigin is the address of the first emitted instruction or data
// word.
const DefaultOrigin = 0x1000

// Config controls the behavior of the assembler.
type Config struct {
	Origin           uint64             // address of the first emitted entry
	StrictDirectives bool               // reject directives other than .code and .data
	AllowShadowing   bool               // first definition of a duplicate label wins
	MaxLabels        int                // maximum number of labels, or 0 for no limit
	ByteOrder        binary.ByteOrder   // byte order of the binary image
	Logger           logrus.FieldLogger // receives a debug-level trace of each step
}

// DefaultConfig returns the default assembler configuration.
func DefaultConfig() *Config {
	return &Config{
		Origin:    DefaultOrigin,
		ByteOrder: binary.BigEndian,
	}
}

func (c *Config) logger() logrus.FieldLogger {
	if c.Logger != nil {
		return c.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func (c *Config) byteOrder() binary.ByteOrder {
	if c.ByteOrder != nil {
		return c.ByteOrder
	}
	return binary.BigEndian
}

// ParseByteOrder converts "big" or "little" into a byte order.
func ParseByteOrder(s string) (binary.ByteOrder, error) {
	switch strings.ToLower(s) {
	case "big", "be", "big-endian":
		return binary.BigEndian, nil
	case "little", "le", "little-endian":
		return binary.LittleEndian, nil
	default:
		return nil, fmt.Errorf("invalid byte order '%s'", s)
	}
}
