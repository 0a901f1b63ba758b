// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// StackDepth is the number of return addresses the call stack can hold.
const StackDepth = 16

// Registers contains the state of all CHIP-8 registers, including the call
// stack and the two countdown timers.
type Registers struct {
	V     [16]byte           // general purpose registers V0-VF
	I     uint16             // index register
	PC    uint16             // program counter
	SP    byte               // stack pointer (number of entries in Stack)
	Stack [StackDepth]uint16 // return addresses
	DT    byte               // delay timer
	ST    byte               // sound timer
}

// Init initializes all registers. V0-VF, I, SP, DT, ST = 0. PC = $200.
func (r *Registers) Init() {
	*r = Registers{PC: ProgramStart}
}

// push stores a return address on the call stack.
func (r *Registers) push(addr uint16) error {
	if int(r.SP) >= StackDepth {
		return ErrStackOverflow
	}
	r.Stack[r.SP] = addr
	r.SP++
	return nil
}

// pop removes the most recent return address from the call stack.
func (r *Registers) pop() (uint16, error) {
	if r.SP == 0 {
		return 0, ErrStackUnderflow
	}
	r.SP--
	addr := r.Stack[r.SP]
	r.Stack[r.SP] = 0
	return addr, nil
}

func boolToByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
