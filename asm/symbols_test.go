// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolTable(t *testing.T) {
	st := NewSymbolTable(0, false)
	require.NoError(t, st.Insert("main", 0x1000))
	require.NoError(t, st.Insert("loop", 0x1010))

	addr, err := st.Lookup("loop")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1010), addr)

	_, err = st.Lookup("Loop")
	assert.ErrorIs(t, err, ErrUndefinedLabel)

	err = st.Insert("main", 0x2000)
	assert.ErrorIs(t, err, ErrDuplicateLabel)
	assert.Equal(t, 2, st.Len())
	assert.Equal(t, []Symbol{{"main", 0x1000}, {"loop", 0x1010}}, st.Symbols())
}

func TestSymbolTableGrows(t *testing.T) {
	st := NewSymbolTable(0, false)
	for i := 0; i < 200000; i++ {
		require.NoError(t, st.Insert(fmt.Sprintf("l%d", i), uint64(i)))
	}
	addr, err := st.Lookup("l123456")
	require.NoError(t, err)
	assert.Equal(t, uint64(123456), addr)
}

func TestSymbolTableShadowing(t *testing.T) {
	st := NewSymbolTable(1, true)
	require.NoError(t, st.Insert("a", 1))
	require.NoError(t, st.Insert("a", 2))

	addr, err := st.Lookup("a")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), addr)

	assert.ErrorIs(t, st.Insert("b", 3), ErrTooManyLabels)
}
