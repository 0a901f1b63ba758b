// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpu implements the CHIP-8 virtual CPU: its registers, memory,
// timers, keypad, frame buffer and instruction set.
package cpu

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// Errors returned by Step. They are wrapped in a *Fault.
var (
	ErrUnimplementedOpcode = errors.New("unimplemented opcode")
	ErrStackOverflow       = errors.New("stack overflow")
	ErrStackUnderflow      = errors.New("stack underflow")
)

// A Fault describes an instruction that could not be executed. The CPU
// state is left as it was when the fault occurred.
type Fault struct {
	Addr   uint16 // address of the faulting instruction
	Opcode uint16 // opcode fetched, if any
	Err    error  // underlying error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault at $%04X (opcode $%04X): %v", f.Addr, f.Opcode, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// CPU represents a single CHIP-8 CPU along with the memory, display and
// keypad it operates on. A CPU is not safe for concurrent use; it belongs
// to the loop that steps it.
type CPU struct {
	Reg     Registers // CPU registers
	Mem     *Memory   // 4K memory
	Display Display   // 64x32 frame buffer
	Keypad  Keypad    // key states supplied by the host
	Opcode  uint16    // most recently fetched opcode
	Cycles  uint64    // total executed instructions
	LastPC  uint16    // address of the most recently executed instruction

	instructions *InstructionSet
	rng          RandomSource
	log          *logrus.Logger
	debugger     *Debugger
	waiting      bool
}

// An Option configures a CPU created by NewCPU.
type Option func(c *CPU)

// WithRandom sets the source of bytes for the RND instruction.
func WithRandom(src RandomSource) Option {
	return func(c *CPU) {
		c.rng = src
	}
}

// WithSpritePolicy chooses how sprites behave at the display edges.
func WithSpritePolicy(p SpritePolicy) Option {
	return func(c *CPU) {
		c.Display.policy = p
	}
}

// WithLogger attaches a logger. Every executed instruction is logged at
// trace level.
func WithLogger(l *logrus.Logger) Option {
	return func(c *CPU) {
		c.log = l
	}
}

// NewCPU creates an emulated CHIP-8 CPU with PC at $200 and the font set
// loaded. Unless WithRandom is given, RND draws from a time-seeded source.
func NewCPU(opts ...Option) *CPU {
	c := &CPU{
		Mem:          NewMemory(),
		instructions: GetInstructionSet(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = NewRandom(time.Now().UnixNano())
	}
	c.Reg.Init()
	return c
}

// Reset returns the CPU to its power-on state: registers, memory, display
// and keypad are cleared, the font set is reloaded and PC is set to $200.
// Options given to NewCPU remain in effect.
func (c *CPU) Reset() {
	c.Reg.Init()
	c.Mem.Init()
	policy := c.Display.policy
	c.Display = Display{policy: policy}
	c.Keypad = Keypad{}
	c.Opcode = 0
	c.Cycles = 0
	c.LastPC = 0
	c.waiting = false
}

// LoadROM reads a raw ROM image from r and copies it into memory at $200.
// If the image cannot be read or is too large, memory is left unchanged.
func (c *CPU) LoadROM(r io.Reader) (int, error) {
	b, err := readROM(r)
	if err != nil {
		return 0, err
	}
	if err := c.Mem.StoreBytes(ProgramStart, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// SetPC updates the CPU program counter to 'addr'.
func (c *CPU) SetPC(addr uint16) {
	c.Reg.PC = addr
}

// SetKeypad replaces the keypad snapshot consulted by SKP, SKNP and the
// wait-for-key instruction.
func (c *CPU) SetKeypad(k Keypad) {
	c.Keypad = k
}

// Fetch reads the two-byte opcode at PC into c.Opcode and returns it. PC is
// not advanced.
func (c *CPU) Fetch() (uint16, error) {
	op, err := c.Mem.LoadWord(c.Reg.PC)
	if err != nil {
		return 0, err
	}
	c.Opcode = op
	return op, nil
}

// GetInstruction returns the instruction at the requested address.
func (c *CPU) GetInstruction(addr uint16) (*Instruction, error) {
	op, err := c.Mem.LoadWord(addr)
	if err != nil {
		return nil, err
	}
	return c.instructions.Lookup(op)
}

// Step the cpu by one instruction. If the instruction cannot be fetched,
// decoded or executed, Step returns a *Fault and the cycle is abandoned.
func (c *CPU) Step() error {
	pc := c.Reg.PC

	// Fetch and decode the opcode at the current PC.
	op, err := c.Fetch()
	if err != nil {
		return &Fault{Addr: pc, Err: err}
	}
	inst, err := c.instructions.Lookup(op)
	if err != nil {
		return &Fault{Addr: pc, Opcode: op, Err: ErrUnimplementedOpcode}
	}

	if c.log != nil && c.log.IsLevelEnabled(logrus.TraceLevel) {
		c.log.WithFields(logrus.Fields{
			"pc":     fmt.Sprintf("$%04X", pc),
			"opcode": fmt.Sprintf("$%04X", op),
			"instr":  inst.Name,
		}).Trace("exec")
	}

	// Advance the PC and execute the instruction.
	c.LastPC = pc
	c.Reg.PC += 2
	c.waiting = false
	if err := inst.fn(c, op); err != nil {
		c.Reg.PC = pc
		return &Fault{Addr: pc, Opcode: op, Err: err}
	}
	c.Cycles++

	// Update the debugger so it can handle breakpoints.
	if c.debugger != nil {
		c.debugger.onUpdatePC(c, c.Reg.PC)
	}
	return nil
}

// Tick decrements the delay and sound timers. It should be called 60 times
// per second regardless of how many instructions are executed.
func (c *CPU) Tick() {
	if c.Reg.DT > 0 {
		c.Reg.DT--
	}
	if c.Reg.ST > 0 {
		c.Reg.ST--
	}
}

// SoundOn returns true while the sound timer is running.
func (c *CPU) SoundOn() bool {
	return c.Reg.ST > 0
}

// Waiting returns true if the last instruction executed was a wait-for-key
// that found no key down.
func (c *CPU) Waiting() bool {
	return c.waiting
}

// AttachDebugger attaches a debugger to the CPU. The debugger receives
// notifications whenever the CPU executes an instruction or stores a byte
// to memory.
func (c *CPU) AttachDebugger(d *Debugger) {
	c.debugger = d
}

// DetachDebugger detaches the current debugger from the CPU.
func (c *CPU) DetachDebugger() {
	c.debugger = nil
}

// Store bytes to memory on behalf of an instruction, notifying the
// debugger of each stored byte.
func (c *CPU) storeBytes(addr uint16, b []byte) error {
	if err := c.Mem.StoreBytes(addr, b); err != nil {
		return err
	}
	if c.debugger != nil {
		for i, v := range b {
			c.debugger.onDataStore(c, addr+uint16(i), v)
		}
	}
	return nil
}
