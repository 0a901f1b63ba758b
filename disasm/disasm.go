// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements a CHIP-8 instruction set disassembler.
package disasm

import (
	"fmt"
	"strings"

	"github.com/beevik/gochip8/cpu"
)

// Disassembler formatting for operand layouts. Verbs are filled from the
// opcode's x, y, n, kk and nnn fields as the layout requires.
var modeFormat = []string{
	"",              // IMP
	"$%03X",         // ADR
	"V0, $%03X",     // V0ADR
	"V%X, $%02X",    // VXB
	"V%X, V%X",      // VXVY
	"V%X",           // VX
	"I, $%03X",      // IADR
	"V%X, V%X, $%X", // VXVYN
	"V%X, DT",       // VXDT
	"V%X, K",        // VXK
	"DT, V%X",       // DTVX
	"ST, V%X",       // STVX
	"I, V%X",        // IVX
	"F, V%X",        // FVX
	"B, V%X",        // BVX
	"[I], V%X",      // MEMVX
	"V%X, [I]",      // VXMEM
}

// Return the operand values consumed by a mode's format string.
func operands(mode cpu.Mode, op uint16) []any {
	x, y := cpu.OperandX(op), cpu.OperandY(op)
	switch mode {
	case cpu.IMP:
		return nil
	case cpu.ADR, cpu.V0ADR, cpu.IADR:
		return []any{cpu.OperandNNN(op)}
	case cpu.VXB:
		return []any{x, cpu.OperandKK(op)}
	case cpu.VXVY:
		return []any{x, y}
	case cpu.VXVYN:
		return []any{x, y, cpu.OperandN(op)}
	default:
		return []any{x}
	}
}

// Disassemble the machine code in memory 'm' at address 'addr'. Return a
// 'line' string representing the disassembled instruction and a 'next'
// address that starts the following line of machine code. Words that do
// not decode to an instruction are shown as data.
func Disassemble(m *cpu.Memory, addr uint16) (line string, next uint16) {
	next = addr + 2
	op, err := m.LoadWord(addr)
	if err != nil {
		b, _ := m.LoadByte(addr)
		return fmt.Sprintf(".DB $%02X", b), addr + 1
	}

	inst, err := cpu.GetInstructionSet().Lookup(op)
	if err != nil {
		return fmt.Sprintf(".DW $%04X", op), next
	}
	if inst.Mode == cpu.IMP {
		return inst.Name, next
	}
	line = inst.Name + " " + fmt.Sprintf(modeFormat[inst.Mode], operands(inst.Mode, op)...)
	return line, next
}

// RegisterString returns a single-line description of the register
// contents, suitable for display alongside a disassembled instruction.
func RegisterString(r *cpu.Registers) string {
	var b strings.Builder
	for i, v := range r.V {
		fmt.Fprintf(&b, "V%X=%02X ", i, v)
	}
	fmt.Fprintf(&b, "I=%03X PC=%03X SP=%X DT=%02X ST=%02X", r.I, r.PC, r.SP, r.DT, r.ST)
	return b.String()
}
