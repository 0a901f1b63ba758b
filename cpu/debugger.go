// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"cmp"
	"maps"
	"slices"
)

// A Debugger watches an attached CPU. The CPU reports every new program
// counter and every byte stored by Fx33/Fx55, and the Debugger passes
// matching breakpoints on to its handler.
type Debugger struct {
	handler BreakpointHandler
	exec    map[uint16]*Breakpoint
	data    map[uint16]*DataBreakpoint
}

// BreakpointHandler receives breakpoint hits. Both methods are called on
// the goroutine running the CPU, before the instruction at the breakpoint
// (or after the store) executes.
type BreakpointHandler interface {
	OnBreakpoint(cpu *CPU, b *Breakpoint)
	OnDataBreakpoint(cpu *CPU, b *DataBreakpoint)
}

// A Breakpoint stops execution when the program counter reaches Address.
// StepOver marks the temporary breakpoints planted by a step-over.
type Breakpoint struct {
	Address  uint16
	Disabled bool
	StepOver bool
}

// A DataBreakpoint stops execution when a byte is stored at Address. A
// conditional one fires only for stores of Value.
type DataBreakpoint struct {
	Address     uint16
	Disabled    bool
	Conditional bool
	Value       byte
}

func (b *DataBreakpoint) matches(v byte) bool {
	return !b.Disabled && (!b.Conditional || b.Value == v)
}

// NewDebugger returns a debugger with no breakpoints that reports to h.
func NewDebugger(h BreakpointHandler) *Debugger {
	return &Debugger{
		handler: h,
		exec:    make(map[uint16]*Breakpoint),
		data:    make(map[uint16]*DataBreakpoint),
	}
}

// GetBreakpoint returns the breakpoint at addr, or nil.
func (d *Debugger) GetBreakpoint(addr uint16) *Breakpoint {
	return d.exec[addr]
}

// GetBreakpoints returns every breakpoint in address order.
func (d *Debugger) GetBreakpoints() []*Breakpoint {
	return slices.SortedFunc(maps.Values(d.exec), func(a, b *Breakpoint) int {
		return cmp.Compare(a.Address, b.Address)
	})
}

// AddBreakpoint sets an enabled breakpoint at addr, replacing any already
// there.
func (d *Debugger) AddBreakpoint(addr uint16) *Breakpoint {
	d.exec[addr] = &Breakpoint{Address: addr}
	return d.exec[addr]
}

func (d *Debugger) RemoveBreakpoint(addr uint16) {
	delete(d.exec, addr)
}

// GetDataBreakpoint returns the data breakpoint at addr, or nil.
func (d *Debugger) GetDataBreakpoint(addr uint16) *DataBreakpoint {
	return d.data[addr]
}

// GetDataBreakpoints returns every data breakpoint in address order.
func (d *Debugger) GetDataBreakpoints() []*DataBreakpoint {
	return slices.SortedFunc(maps.Values(d.data), func(a, b *DataBreakpoint) int {
		return cmp.Compare(a.Address, b.Address)
	})
}

// AddDataBreakpoint sets a data breakpoint that fires on any store to addr.
func (d *Debugger) AddDataBreakpoint(addr uint16) *DataBreakpoint {
	d.data[addr] = &DataBreakpoint{Address: addr}
	return d.data[addr]
}

// AddConditionalDataBreakpoint sets a data breakpoint that fires only when
// value is stored to addr.
func (d *Debugger) AddConditionalDataBreakpoint(addr uint16, value byte) *DataBreakpoint {
	d.data[addr] = &DataBreakpoint{Address: addr, Conditional: true, Value: value}
	return d.data[addr]
}

func (d *Debugger) RemoveDataBreakpoint(addr uint16) {
	delete(d.data, addr)
}

func (d *Debugger) onUpdatePC(c *CPU, pc uint16) {
	b := d.exec[pc]
	if d.handler == nil || b == nil || b.Disabled {
		return
	}
	d.handler.OnBreakpoint(c, b)
}

func (d *Debugger) onDataStore(c *CPU, addr uint16, v byte) {
	b := d.data[addr]
	if d.handler == nil || b == nil || !b.matches(v) {
		return
	}
	d.handler.OnDataBreakpoint(c, b)
}
