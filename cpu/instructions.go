// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "fmt"

// Mode describes the operand layout of an instruction. It is used by the
// disassembler to format operands.
type Mode byte

// All operand layouts
const (
	IMP    Mode = iota // no operands
	ADR                // nnn
	V0ADR              // V0, nnn
	VXB                // Vx, kk
	VXVY               // Vx, Vy
	VX                 // Vx
	IADR               // I, nnn
	VXVYN              // Vx, Vy, n
	VXDT               // Vx, DT
	VXK                // Vx, K
	DTVX               // DT, Vx
	STVX               // ST, Vx
	IVX                // I, Vx
	FVX                // F, Vx
	BVX                // B, Vx
	MEMVX              // [I], Vx
	VXMEM              // Vx, [I]
)

type instfunc func(c *CPU, op uint16) error

// An Instruction describes one CHIP-8 operation: the bit pattern that
// selects it, its mnemonic and its implementation.
type Instruction struct {
	Name  string // assembler mnemonic
	Mode  Mode   // operand layout
	Mask  uint16 // bits that identify the instruction
	Value uint16 // required value of the masked bits
	fn    instfunc
}

// Matches returns true if the opcode selects this instruction.
func (inst *Instruction) Matches(op uint16) bool {
	return op&inst.Mask == inst.Value
}

// All CHIP-8 instructions, in opcode order.
var instructions = []Instruction{
	{"CLS", IMP, 0xffff, 0x00e0, (*CPU).cls},
	{"RET", IMP, 0xffff, 0x00ee, (*CPU).ret},
	{"JP", ADR, 0xf000, 0x1000, (*CPU).jp},
	{"CALL", ADR, 0xf000, 0x2000, (*CPU).call},
	{"SE", VXB, 0xf000, 0x3000, (*CPU).seb},
	{"SNE", VXB, 0xf000, 0x4000, (*CPU).sneb},
	{"SE", VXVY, 0xf00f, 0x5000, (*CPU).ser},
	{"LD", VXB, 0xf000, 0x6000, (*CPU).ldb},
	{"ADD", VXB, 0xf000, 0x7000, (*CPU).addb},
	{"LD", VXVY, 0xf00f, 0x8000, (*CPU).ldr},
	{"OR", VXVY, 0xf00f, 0x8001, (*CPU).or},
	{"AND", VXVY, 0xf00f, 0x8002, (*CPU).and},
	{"XOR", VXVY, 0xf00f, 0x8003, (*CPU).xor},
	{"ADD", VXVY, 0xf00f, 0x8004, (*CPU).addr},
	{"SUB", VXVY, 0xf00f, 0x8005, (*CPU).sub},
	{"SHR", VX, 0xf00f, 0x8006, (*CPU).shr},
	{"SUBN", VXVY, 0xf00f, 0x8007, (*CPU).subn},
	{"SHL", VX, 0xf00f, 0x800e, (*CPU).shl},
	{"SNE", VXVY, 0xf00f, 0x9000, (*CPU).sner},
	{"LD", IADR, 0xf000, 0xa000, (*CPU).ldi},
	{"JP", V0ADR, 0xf000, 0xb000, (*CPU).jpv0},
	{"RND", VXB, 0xf000, 0xc000, (*CPU).rnd},
	{"DRW", VXVYN, 0xf000, 0xd000, (*CPU).drw},
	{"SKP", VX, 0xf0ff, 0xe09e, (*CPU).skp},
	{"SKNP", VX, 0xf0ff, 0xe0a1, (*CPU).sknp},
	{"LD", VXDT, 0xf0ff, 0xf007, (*CPU).ldvdt},
	{"LD", VXK, 0xf0ff, 0xf00a, (*CPU).ldk},
	{"LD", DTVX, 0xf0ff, 0xf015, (*CPU).lddtv},
	{"LD", STVX, 0xf0ff, 0xf018, (*CPU).ldstv},
	{"ADD", IVX, 0xf0ff, 0xf01e, (*CPU).addi},
	{"LD", FVX, 0xf0ff, 0xf029, (*CPU).ldf},
	{"LD", BVX, 0xf0ff, 0xf033, (*CPU).ldb3},
	{"LD", MEMVX, 0xf0ff, 0xf055, (*CPU).stm},
	{"LD", VXMEM, 0xf0ff, 0xf065, (*CPU).ldm},
}

// An InstructionSet groups the instructions by the opcode's top nibble so
// that every opcode maps to at most one instruction.
type InstructionSet struct {
	families [16][]*Instruction
}

var instructionSet *InstructionSet

func init() {
	set := &InstructionSet{}
	for i := range instructions {
		inst := &instructions[i]
		f := inst.Value >> 12
		set.families[f] = append(set.families[f], inst)
	}
	instructionSet = set
}

// GetInstructionSet returns the CHIP-8 instruction set.
func GetInstructionSet() *InstructionSet {
	return instructionSet
}

// Lookup returns the instruction selected by the opcode. If no instruction
// matches, it returns ErrUnimplementedOpcode.
func (s *InstructionSet) Lookup(op uint16) (*Instruction, error) {
	for _, inst := range s.families[op>>12] {
		if inst.Matches(op) {
			return inst, nil
		}
	}
	return nil, fmt.Errorf("%w: $%04X", ErrUnimplementedOpcode, op)
}

// Instructions returns all instructions in the set.
func (s *InstructionSet) Instructions() []*Instruction {
	var all []*Instruction
	for _, f := range s.families {
		all = append(all, f...)
	}
	return all
}

// Opcode field accessors.
func opX(op uint16) byte { return byte(op>>8) & 0xf }
func opY(op uint16) byte { return byte(op>>4) & 0xf }
func opN(op uint16) byte { return byte(op) & 0xf }
func opKK(op uint16) byte { return byte(op) }
func opNNN(op uint16) uint16 { return op & 0x0fff }

// OperandX returns the x register field of an opcode.
func OperandX(op uint16) byte { return opX(op) }

// OperandY returns the y register field of an opcode.
func OperandY(op uint16) byte { return opY(op) }

// OperandN returns the low nibble of an opcode.
func OperandN(op uint16) byte { return opN(op) }

// OperandKK returns the low byte of an opcode.
func OperandKK(op uint16) byte { return opKK(op) }

// OperandNNN returns the 12-bit address field of an opcode.
func OperandNNN(op uint16) uint16 { return opNNN(op) }

//
// Instruction implementations. PC has already been advanced past the
// instruction when these run.
//

// 00E0: clear the display
func (c *CPU) cls(op uint16) error {
	c.Display.Clear()
	return nil
}

// 00EE: return from subroutine
func (c *CPU) ret(op uint16) error {
	addr, err := c.Reg.pop()
	if err != nil {
		return err
	}
	c.Reg.PC = addr
	return nil
}

// 1nnn: jump
func (c *CPU) jp(op uint16) error {
	c.Reg.PC = opNNN(op)
	return nil
}

// 2nnn: call subroutine
func (c *CPU) call(op uint16) error {
	if err := c.Reg.push(c.Reg.PC); err != nil {
		return err
	}
	c.Reg.PC = opNNN(op)
	return nil
}

func (c *CPU) skipIf(cond bool) {
	if cond {
		c.Reg.PC += 2
	}
}

// 3xkk: skip if Vx == kk
func (c *CPU) seb(op uint16) error {
	c.skipIf(c.Reg.V[opX(op)] == opKK(op))
	return nil
}

// 4xkk: skip if Vx != kk
func (c *CPU) sneb(op uint16) error {
	c.skipIf(c.Reg.V[opX(op)] != opKK(op))
	return nil
}

// 5xy0: skip if Vx == Vy
func (c *CPU) ser(op uint16) error {
	c.skipIf(c.Reg.V[opX(op)] == c.Reg.V[opY(op)])
	return nil
}

// 6xkk: Vx = kk
func (c *CPU) ldb(op uint16) error {
	c.Reg.V[opX(op)] = opKK(op)
	return nil
}

// 7xkk: Vx += kk, no carry
func (c *CPU) addb(op uint16) error {
	c.Reg.V[opX(op)] += opKK(op)
	return nil
}

// 8xy0: Vx = Vy
func (c *CPU) ldr(op uint16) error {
	c.Reg.V[opX(op)] = c.Reg.V[opY(op)]
	return nil
}

// 8xy1: Vx |= Vy
func (c *CPU) or(op uint16) error {
	c.Reg.V[opX(op)] |= c.Reg.V[opY(op)]
	return nil
}

// 8xy2: Vx &= Vy
func (c *CPU) and(op uint16) error {
	c.Reg.V[opX(op)] &= c.Reg.V[opY(op)]
	return nil
}

// 8xy3: Vx ^= Vy
func (c *CPU) xor(op uint16) error {
	c.Reg.V[opX(op)] ^= c.Reg.V[opY(op)]
	return nil
}

// 8xy4: Vx += Vy, VF = carry
//
// The flag is written last so that it wins when x is F.
func (c *CPU) addr(op uint16) error {
	x, y := opX(op), opY(op)
	sum := uint16(c.Reg.V[x]) + uint16(c.Reg.V[y])
	c.Reg.V[x] = byte(sum)
	c.Reg.V[0xf] = boolToByte(sum > 0xff)
	return nil
}

// 8xy5: Vx -= Vy, VF = 1 if Vx > Vy
func (c *CPU) sub(op uint16) error {
	x, y := opX(op), opY(op)
	vx, vy := c.Reg.V[x], c.Reg.V[y]
	c.Reg.V[x] = vx - vy
	c.Reg.V[0xf] = boolToByte(vx > vy)
	return nil
}

// 8xy6: Vx >>= 1, VF = old low bit
func (c *CPU) shr(op uint16) error {
	x := opX(op)
	vx := c.Reg.V[x]
	c.Reg.V[x] = vx >> 1
	c.Reg.V[0xf] = vx & 1
	return nil
}

// 8xy7: Vx = Vy - Vx, VF = 1 if Vy > Vx
func (c *CPU) subn(op uint16) error {
	x, y := opX(op), opY(op)
	vx, vy := c.Reg.V[x], c.Reg.V[y]
	c.Reg.V[x] = vy - vx
	c.Reg.V[0xf] = boolToByte(vy > vx)
	return nil
}

// 8xyE: Vx <<= 1, VF = old high bit
func (c *CPU) shl(op uint16) error {
	x := opX(op)
	vx := c.Reg.V[x]
	c.Reg.V[x] = vx << 1
	c.Reg.V[0xf] = vx >> 7
	return nil
}

// 9xy0: skip if Vx != Vy
func (c *CPU) sner(op uint16) error {
	c.skipIf(c.Reg.V[opX(op)] != c.Reg.V[opY(op)])
	return nil
}

// Annn: I = nnn
func (c *CPU) ldi(op uint16) error {
	c.Reg.I = opNNN(op)
	return nil
}

// Bnnn: jump to nnn + V0
func (c *CPU) jpv0(op uint16) error {
	target := opNNN(op) + uint16(c.Reg.V[0])
	if target > MaxAddress {
		return ErrMemoryOutOfBounds
	}
	c.Reg.PC = target
	return nil
}

// Cxkk: Vx = random & kk
func (c *CPU) rnd(op uint16) error {
	c.Reg.V[opX(op)] = c.rng.RandomByte() & opKK(op)
	return nil
}

// Dxyn: draw an n-row sprite from I at (Vx, Vy), VF = collision
//
// VF always ends up 0 or 1 whatever it held before. The coordinates are
// read first so that VF can serve as a coordinate register.
func (c *CPU) drw(op uint16) error {
	rows := make([]byte, opN(op))
	if err := c.Mem.LoadBytes(c.Reg.I, rows); err != nil {
		return err
	}
	x, y := c.Reg.V[opX(op)], c.Reg.V[opY(op)]
	c.Reg.V[0xf] = boolToByte(c.Display.DrawSprite(x, y, rows))
	return nil
}

// Ex9E: skip if key Vx is down
func (c *CPU) skp(op uint16) error {
	c.skipIf(c.Keypad.Pressed(c.Reg.V[opX(op)]))
	return nil
}

// ExA1: skip if key Vx is up
func (c *CPU) sknp(op uint16) error {
	c.skipIf(!c.Keypad.Pressed(c.Reg.V[opX(op)]))
	return nil
}

// Fx07: Vx = DT
func (c *CPU) ldvdt(op uint16) error {
	c.Reg.V[opX(op)] = c.Reg.DT
	return nil
}

// Fx0A: wait for a key press, Vx = key
//
// With no key down the PC is moved back onto this instruction so that it
// executes again on the next cycle.
func (c *CPU) ldk(op uint16) error {
	key, ok := c.Keypad.FirstPressed()
	if !ok {
		c.Reg.PC -= 2
		c.waiting = true
		return nil
	}
	c.Reg.V[opX(op)] = key
	return nil
}

// Fx15: DT = Vx
func (c *CPU) lddtv(op uint16) error {
	c.Reg.DT = c.Reg.V[opX(op)]
	return nil
}

// Fx18: ST = Vx
func (c *CPU) ldstv(op uint16) error {
	c.Reg.ST = c.Reg.V[opX(op)]
	return nil
}

// Fx1E: I += Vx. A sum past the end of memory faults and leaves I
// unchanged, so I never wraps back into the address space.
func (c *CPU) addi(op uint16) error {
	sum := int(c.Reg.I) + int(c.Reg.V[opX(op)])
	if sum > MaxAddress {
		return ErrMemoryOutOfBounds
	}
	c.Reg.I = uint16(sum)
	return nil
}

// Fx29: I = address of font glyph for Vx. Only the low nibble of Vx is
// used, so every value selects one of the 16 glyphs and I stays inside the
// font table.
func (c *CPU) ldf(op uint16) error {
	c.Reg.I = FontBase + FontGlyphLen*uint16(c.Reg.V[opX(op)]&0xf)
	return nil
}

// Fx33: store the BCD digits of Vx at I, I+1, I+2
func (c *CPU) ldb3(op uint16) error {
	v := c.Reg.V[opX(op)]
	return c.storeBytes(c.Reg.I, []byte{v / 100, (v / 10) % 10, v % 10})
}

// Fx55: store V0..Vx at I
func (c *CPU) stm(op uint16) error {
	x := int(opX(op))
	return c.storeBytes(c.Reg.I, c.Reg.V[:x+1])
}

// Fx65: load V0..Vx from I
func (c *CPU) ldm(op uint16) error {
	x := int(opX(op))
	return c.Mem.LoadBytes(c.Reg.I, c.Reg.V[:x+1])
}
