// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "sort"

// The Debugger watches a running CPU and reports breakpoints to a
// handler.
type Debugger struct {
	breakpointHandler BreakpointHandler
	breakpoints       map[uint64]*Breakpoint
	dataBreakpoints   map[uint64]*DataBreakpoint
}

// The BreakpointHandler interface should be implemented by any object that
// wishes to receive debugger breakpoint notifications.
type BreakpointHandler interface {
	OnBreakpoint(cpu *CPU, b *Breakpoint)
	OnDataBreakpoint(cpu *CPU, b *DataBreakpoint)
}

// A Breakpoint represents an address that will cause the debugger to stop
// code execution when the program counter reaches it.
type Breakpoint struct {
	Address  uint64 // address of execution breakpoint
	Disabled bool   // this breakpoint is currently disabled
}

// A DataBreakpoint represents an address that will cause the debugger to
// stop executing code when a data word is stored to it.
type DataBreakpoint struct {
	Address     uint64 // breakpoint triggered by stores to this address
	Disabled    bool   // this breakpoint is currently disabled
	Conditional bool   // this breakpoint is conditional on a certain Value being stored
	Value       uint64 // the value that must be stored if the breakpoint is conditional
}

// NewDebugger creates a new CPU debugger.
func NewDebugger(breakpointHandler BreakpointHandler) *Debugger {
	return &Debugger{
		breakpointHandler: breakpointHandler,
		breakpoints:       make(map[uint64]*Breakpoint),
		dataBreakpoints:   make(map[uint64]*DataBreakpoint),
	}
}

// GetBreakpoint looks up a breakpoint by address and returns it if found.
// Otherwise it returns nil.
func (d *Debugger) GetBreakpoint(addr uint64) *Breakpoint {
	return d.breakpoints[addr]
}

// GetBreakpoints returns all breakpoints currently set in the debugger,
// ordered by address.
func (d *Debugger) GetBreakpoints() []*Breakpoint {
	var breakpoints []*Breakpoint
	for _, b := range d.breakpoints {
		breakpoints = append(breakpoints, b)
	}
	sort.Slice(breakpoints, func(i, j int) bool {
		return breakpoints[i].Address < breakpoints[j].Address
	})
	return breakpoints
}

// AddBreakpoint adds a new breakpoint address to the debugger. If the
// breakpoint was already set, it is replaced by an enabled one.
func (d *Debugger) AddBreakpoint(addr uint64) *Breakpoint {
	b := &Breakpoint{Address: addr}
	d.breakpoints[addr] = b
	return b
}

// RemoveBreakpoint removes a breakpoint from the debugger.
func (d *Debugger) RemoveBreakpoint(addr uint64) {
	delete(d.breakpoints, addr)
}

// GetDataBreakpoint looks up a data breakpoint on the provided address
// and returns it if found. Otherwise it returns nil.
func (d *Debugger) GetDataBreakpoint(addr uint64) *DataBreakpoint {
	return d.dataBreakpoints[addr]
}

// GetDataBreakpoints returns all data breakpoints currently set in the
// debugger, ordered by address.
func (d *Debugger) GetDataBreakpoints() []*DataBreakpoint {
	var breakpoints []*DataBreakpoint
	for _, b := range d.dataBreakpoints {
		breakpoints = append(breakpoints, b)
	}
	sort.Slice(breakpoints, func(i, j int) bool {
		return breakpoints[i].Address < breakpoints[j].Address
	})
	return breakpoints
}

// AddDataBreakpoint adds an unconditional data breakpoint on the requested
// address.
func (d *Debugger) AddDataBreakpoint(addr uint64) *DataBreakpoint {
	b := &DataBreakpoint{Address: addr}
	d.dataBreakpoints[addr] = b
	return b
}

// AddConditionalDataBreakpoint adds a conditional data breakpoint on the
// requested address.
func (d *Debugger) AddConditionalDataBreakpoint(addr uint64, value uint64) *DataBreakpoint {
	b := &DataBreakpoint{
		Address:     addr,
		Conditional: true,
		Value:       value,
	}
	d.dataBreakpoints[addr] = b
	return b
}

// RemoveDataBreakpoint removes a (conditional or unconditional) data
// breakpoint at the requested address.
func (d *Debugger) RemoveDataBreakpoint(addr uint64) {
	delete(d.dataBreakpoints, addr)
}

func (d *Debugger) onUpdatePC(cpu *CPU, addr uint64) {
	if d.breakpointHandler != nil {
		if b, ok := d.breakpoints[addr]; ok && !b.Disabled {
			d.breakpointHandler.OnBreakpoint(cpu, b)
		}
	}
}

func (d *Debugger) onDataStore(cpu *CPU, addr uint64, v uint64) {
	if d.breakpointHandler != nil {
		if b, ok := d.dataBreakpoints[addr]; ok && !b.Disabled {
			if !b.Conditional || b.Value == v {
				d.breakpointHandler.OnDataBreakpoint(cpu, b)
			}
		}
	}
}
