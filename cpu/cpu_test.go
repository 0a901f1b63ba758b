// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu_test

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/beevik/gochip8/cpu"
	"github.com/google/go-cmp/cmp"
	"github.com/retroenv/retrogolib/assert"
)

type fixedRandom struct {
	seq []byte
	i   int
}

func (r *fixedRandom) RandomByte() byte {
	b := r.seq[r.i%len(r.seq)]
	r.i++
	return b
}

// loadCPU creates a CPU with the program, written as hex words, loaded at
// $200.
func loadCPU(t *testing.T, program string, opts ...cpu.Option) *cpu.CPU {
	t.Helper()
	b, err := hex.DecodeString(strings.Join(strings.Fields(program), ""))
	if err != nil {
		t.Fatal(err)
	}
	c := cpu.NewCPU(append([]cpu.Option{cpu.WithRandom(&fixedRandom{seq: []byte{0xff}})}, opts...)...)
	if _, err := c.LoadROM(bytes.NewReader(b)); err != nil {
		t.Fatal(err)
	}
	return c
}

func stepCPU(t *testing.T, c *cpu.CPU, steps int) {
	t.Helper()
	for i := 0; i < steps; i++ {
		if err := c.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
}

func runCPU(t *testing.T, program string, steps int, opts ...cpu.Option) *cpu.CPU {
	t.Helper()
	c := loadCPU(t, program, opts...)
	stepCPU(t, c, steps)
	return c
}

func expectPC(t *testing.T, c *cpu.CPU, pc uint16) {
	t.Helper()
	if c.Reg.PC != pc {
		t.Errorf("PC incorrect. exp: $%04X, got: $%04X", pc, c.Reg.PC)
	}
}

func expectV(t *testing.T, c *cpu.CPU, x int, v byte) {
	t.Helper()
	if c.Reg.V[x] != v {
		t.Errorf("V%X incorrect. exp: $%02X, got: $%02X", x, v, c.Reg.V[x])
	}
}

func expectI(t *testing.T, c *cpu.CPU, i uint16) {
	t.Helper()
	if c.Reg.I != i {
		t.Errorf("I incorrect. exp: $%04X, got: $%04X", i, c.Reg.I)
	}
}

func expectSP(t *testing.T, c *cpu.CPU, sp byte) {
	t.Helper()
	if c.Reg.SP != sp {
		t.Errorf("stack pointer incorrect. exp: %d, got: %d", sp, c.Reg.SP)
	}
}

func expectMem(t *testing.T, c *cpu.CPU, addr uint16, v byte) {
	t.Helper()
	got, err := c.Mem.LoadByte(addr)
	if err != nil {
		t.Fatal(err)
	}
	if got != v {
		t.Errorf("Memory at $%04X incorrect. exp: $%02X, got: $%02X", addr, v, got)
	}
}

func expectFault(t *testing.T, err error, addr uint16, target error) {
	t.Helper()
	var f *cpu.Fault
	if !errors.As(err, &f) {
		t.Fatalf("expected fault, got: %v", err)
	}
	assert.Equal(t, addr, f.Addr)
	assert.True(t, errors.Is(err, target))
}

func TestNewCPU(t *testing.T) {
	c := cpu.NewCPU()
	expectPC(t, c, 0x200)
	expectSP(t, c, 0)
	expectI(t, c, 0)

	font := make([]byte, len(cpu.FontSet))
	assert.NoError(t, c.Mem.LoadBytes(cpu.FontBase, font))
	if diff := cmp.Diff(cpu.FontSet[:], font); diff != "" {
		t.Errorf("font mismatch (-want +got):\n%s", diff)
	}
}

func TestReset(t *testing.T) {
	c := runCPU(t, "6A12 A300 2208 0000 00E0", 4, cpu.WithSpritePolicy(cpu.SpriteClip))
	c.Reg.DT = 5
	c.Keypad[3] = true
	c.Reset()

	if diff := cmp.Diff(cpu.Registers{PC: cpu.ProgramStart}, c.Reg); diff != "" {
		t.Errorf("registers after reset (-want +got):\n%s", diff)
	}
	expectMem(t, c, 0x200, 0x00)
	expectMem(t, c, cpu.FontBase, 0xf0)
	assert.False(t, c.Keypad.Pressed(3))
	assert.Equal(t, uint64(0), c.Cycles)
	assert.Equal(t, cpu.SpriteClip, c.Display.Policy())
}

func TestLoadROM(t *testing.T) {
	c := cpu.NewCPU()
	n, err := c.LoadROM(bytes.NewReader(make([]byte, cpu.MaxROMSize)))
	assert.NoError(t, err)
	assert.Equal(t, cpu.MaxROMSize, n)

	c = cpu.NewCPU()
	big := bytes.Repeat([]byte{0xaa}, cpu.MaxROMSize+1)
	_, err = c.LoadROM(bytes.NewReader(big))
	assert.True(t, errors.Is(err, cpu.ErrROMTooLarge))
	expectMem(t, c, 0x200, 0x00)

	_, err = c.LoadROM(iotest.ErrReader(errors.New("disk on fire")))
	assert.True(t, err != nil)
	expectMem(t, c, 0x200, 0x00)
}

func TestMemoryBounds(t *testing.T) {
	m := cpu.NewMemory()

	_, err := m.LoadWord(cpu.MaxAddress)
	assert.True(t, errors.Is(err, cpu.ErrMemoryOutOfBounds))
	_, err = m.LoadWord(cpu.MaxAddress - 1)
	assert.NoError(t, err)

	err = m.StoreBytes(0xffe, []byte{1, 2, 3})
	assert.True(t, errors.Is(err, cpu.ErrMemoryOutOfBounds))
	v, _ := m.LoadByte(0xffe)
	assert.Equal(t, byte(0), v)

	assert.True(t, m.StoreByte(0x1000, 1) != nil)
	_, err = m.LoadByte(0x1000)
	assert.True(t, err != nil)
}

func TestFetchFault(t *testing.T) {
	c := cpu.NewCPU()
	c.SetPC(cpu.MaxAddress)
	expectFault(t, c.Step(), cpu.MaxAddress, cpu.ErrMemoryOutOfBounds)
	expectPC(t, c, cpu.MaxAddress)
}

func TestUnimplementedOpcode(t *testing.T) {
	for _, op := range []string{"0000", "5121", "800F", "9AB1", "E000", "F0FF"} {
		c := loadCPU(t, op)
		err := c.Step()
		expectFault(t, err, 0x200, cpu.ErrUnimplementedOpcode)
		expectPC(t, c, 0x200)
		assert.Equal(t, uint64(0), c.Cycles)
	}
}

func TestDecodeTotal(t *testing.T) {
	set := cpu.GetInstructionSet()
	all := set.Instructions()
	assert.Equal(t, 34, len(all))

	for op := 0; op <= 0xffff; op++ {
		matches := 0
		for _, inst := range all {
			if inst.Matches(uint16(op)) {
				matches++
			}
		}
		inst, err := set.Lookup(uint16(op))
		switch {
		case matches > 1:
			t.Fatalf("opcode $%04X matches %d instructions", op, matches)
		case matches == 1 && (err != nil || !inst.Matches(uint16(op))):
			t.Fatalf("opcode $%04X: lookup failed: %v", op, err)
		case matches == 0 && !errors.Is(err, cpu.ErrUnimplementedOpcode):
			t.Fatalf("opcode $%04X: expected unimplemented, got %v", op, err)
		}
	}
}

func TestClear(t *testing.T) {
	c := runCPU(t, "A050 D005 00E0", 3)
	for y := 0; y < cpu.DisplayHeight; y++ {
		for x := 0; x < cpu.DisplayWidth; x++ {
			if c.Display.Pixel(x, y) {
				t.Fatalf("pixel (%d,%d) still on", x, y)
			}
		}
	}
	assert.True(t, c.Display.Redraw())
}

func TestJump(t *testing.T) {
	c := runCPU(t, "1234", 1)
	expectPC(t, c, 0x234)

	c = runCPU(t, "6010 B300", 2)
	expectPC(t, c, 0x310)
}

func TestJumpV0OutOfRange(t *testing.T) {
	c := loadCPU(t, "60FF BFFF")
	stepCPU(t, c, 1)
	expectFault(t, c.Step(), 0x202, cpu.ErrMemoryOutOfBounds)
	expectPC(t, c, 0x202)
}

func TestCallReturn(t *testing.T) {
	// 200: CALL 206
	// 202: LD V1, $22
	// 204: JP 204
	// 206: LD V0, $11
	// 208: RET
	c := loadCPU(t, "2206 6122 1204 6011 00EE")
	stepCPU(t, c, 1)
	expectPC(t, c, 0x206)
	expectSP(t, c, 1)
	assert.Equal(t, uint16(0x202), c.Reg.Stack[0])

	stepCPU(t, c, 2)
	expectPC(t, c, 0x202)
	expectSP(t, c, 0)
	expectV(t, c, 0, 0x11)

	stepCPU(t, c, 1)
	expectV(t, c, 1, 0x22)
}

func TestStackOverflow(t *testing.T) {
	c := loadCPU(t, "2200")
	stepCPU(t, c, cpu.StackDepth)
	expectSP(t, c, cpu.StackDepth)

	err := c.Step()
	expectFault(t, err, 0x200, cpu.ErrStackOverflow)
	expectSP(t, c, cpu.StackDepth)
	expectPC(t, c, 0x200)
}

func TestStackUnderflow(t *testing.T) {
	c := loadCPU(t, "00EE")
	err := c.Step()
	expectFault(t, err, 0x200, cpu.ErrStackUnderflow)
	expectSP(t, c, 0)
	expectPC(t, c, 0x200)
}

func TestSkips(t *testing.T) {
	tests := []struct {
		name    string
		program string
		pc      uint16
	}{
		{"SE Vx,kk taken", "6042 3042", 0x206},
		{"SE Vx,kk not taken", "6042 3043", 0x204},
		{"SNE Vx,kk taken", "6042 4043", 0x206},
		{"SNE Vx,kk not taken", "6042 4042", 0x204},
		{"SE Vx,Vy taken", "6042 6142 5010", 0x208},
		{"SE Vx,Vy not taken", "6042 6141 5010", 0x206},
		{"SNE Vx,Vy taken", "6042 6141 9010", 0x208},
		{"SNE Vx,Vy not taken", "6042 6142 9010", 0x206},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := len(strings.Fields(tt.program))
			c := runCPU(t, tt.program, n)
			expectPC(t, c, tt.pc)
		})
	}
}

func TestLoadAdd(t *testing.T) {
	c := runCPU(t, "6A12 7A34 6FAA 7FFF 8BA0", 5)
	expectV(t, c, 0xa, 0x46)
	expectV(t, c, 0xb, 0x46)

	// ADD Vx, kk wraps and leaves VF alone.
	expectV(t, c, 0xf, 0xa9)
}

func TestLogic(t *testing.T) {
	c := runCPU(t, "60F0 613C 8201 8212 8313 8301", 6)
	expectV(t, c, 0, 0xf0)
	expectV(t, c, 1, 0x3c)
	expectV(t, c, 2, 0x30)
	expectV(t, c, 3, 0xfc)
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name    string
		program string
		vx, vf  byte
	}{
		{"carry", "60FF 6101 8014", 0x00, 1},
		{"no carry", "6010 6101 8014", 0x11, 0},
		{"borrow", "6001 6102 8015", 0xff, 0},
		{"no borrow", "6005 6102 8015", 0x03, 1},
		{"equal sub", "6005 6105 8015", 0x00, 0},
		{"subn no borrow", "6002 6105 8017", 0x03, 1},
		{"subn borrow", "6005 6102 8017", 0xfd, 0},
		{"shr odd", "6003 8006", 0x01, 1},
		{"shr even", "6004 8006", 0x02, 0},
		{"shl high", "6081 800E", 0x02, 1},
		{"shl low", "6041 800E", 0x82, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := len(strings.Fields(tt.program))
			c := runCPU(t, tt.program, n)
			expectV(t, c, 0, tt.vx)
			expectV(t, c, 0xf, tt.vf)
		})
	}
}

func TestFlagRegisterOperand(t *testing.T) {
	// VF receives the flag, not the result, when it is the destination.
	c := runCPU(t, "6FFF 6101 8F14", 3)
	expectV(t, c, 0xf, 1)

	c = runCPU(t, "6F01 6102 8F15", 3)
	expectV(t, c, 0xf, 0)
}

func TestShiftIgnoresVy(t *testing.T) {
	c := runCPU(t, "6004 61FF 8016", 3)
	expectV(t, c, 0, 0x02)
	expectV(t, c, 1, 0xff)
	expectV(t, c, 0xf, 0)
}

func TestIndex(t *testing.T) {
	c := runCPU(t, "A123 6010 F01E", 3)
	expectI(t, c, 0x133)

	c = runCPU(t, "600A F029", 2)
	expectI(t, c, cpu.FontBase+5*0xa)

	c = runCPU(t, "601B F029", 2)
	expectI(t, c, cpu.FontBase+5*0xb)

	// Out-of-range glyph numbers use their low nibble.
	c = runCPU(t, "60FA F029", 2)
	expectI(t, c, cpu.FontBase+5*0xa)
}

func TestIndexOverflow(t *testing.T) {
	// 200: LD I, $FFE
	// 202: LD V0, $01
	// 204: ADD I, V0
	// 206: ADD I, V0
	c := loadCPU(t, "AFFE 6001 F01E F01E")
	stepCPU(t, c, 3)
	expectI(t, c, 0xfff)
	expectFault(t, c.Step(), 0x206, cpu.ErrMemoryOutOfBounds)
	expectI(t, c, 0xfff)
	expectPC(t, c, 0x206)

	// Repeated additions of $FF must not wrap I around to a low address
	// that a register load could then read.
	// 200: LD V0, $FF
	// 202: LD I, $F00
	// 204: ADD I, V0
	// 206: ADD I, V0
	// 208: LD V1, [I]
	c = loadCPU(t, "60FF AF00 F01E F01E F165")
	stepCPU(t, c, 3)
	expectI(t, c, 0xfff)
	expectFault(t, c.Step(), 0x206, cpu.ErrMemoryOutOfBounds)
	expectI(t, c, 0xfff)
}

func TestRandom(t *testing.T) {
	c := runCPU(t, "C30F C4F0", 2, cpu.WithRandom(&fixedRandom{seq: []byte{0xa5, 0x3c}}))
	expectV(t, c, 3, 0x05)
	expectV(t, c, 4, 0x30)
}

func TestSeededRandomRepeats(t *testing.T) {
	a, b := cpu.NewRandom(42), cpu.NewRandom(42)
	for i := 0; i < 32; i++ {
		assert.Equal(t, a.RandomByte(), b.RandomByte())
	}
}

func TestBCD(t *testing.T) {
	c := runCPU(t, "60EA A400 F033", 3)
	expectMem(t, c, 0x400, 2)
	expectMem(t, c, 0x401, 3)
	expectMem(t, c, 0x402, 4)
	expectI(t, c, 0x400)

	c = loadCPU(t, "60EA AFFE F033")
	stepCPU(t, c, 2)
	expectFault(t, c.Step(), 0x204, cpu.ErrMemoryOutOfBounds)
	expectMem(t, c, 0xffe, 0)
}

func TestStoreLoadRegisters(t *testing.T) {
	c := runCPU(t, "6011 6122 6233 6344 A500 F355", 6)
	expectMem(t, c, 0x500, 0x11)
	expectMem(t, c, 0x503, 0x44)
	expectMem(t, c, 0x504, 0x00)
	expectI(t, c, 0x500)

	before := c.Reg.V
	c.Reg.V = [16]byte{}
	c.SetPC(0x200)
	assert.NoError(t, c.Mem.StoreBytes(0x200, []byte{0xf3, 0x65}))
	stepCPU(t, c, 1)
	if diff := cmp.Diff(before, c.Reg.V); diff != "" {
		t.Errorf("registers after round trip (-want +got):\n%s", diff)
	}
}

func TestDrawCollision(t *testing.T) {
	// 200: LD I, $20A
	// 202: DRW V0, V0, 1
	// 204: DRW V0, V0, 1
	// 206: JP 206
	// 208: data
	// 20A: $FF
	c := loadCPU(t, "A20A D001 D001 1206 0000 FF00")
	stepCPU(t, c, 2)
	for x := 0; x < 8; x++ {
		assert.True(t, c.Display.Pixel(x, 0))
	}
	assert.False(t, c.Display.Pixel(8, 0))
	expectV(t, c, 0xf, 0)

	stepCPU(t, c, 1)
	for x := 0; x < 8; x++ {
		assert.False(t, c.Display.Pixel(x, 0))
	}
	expectV(t, c, 0xf, 1)
}

func TestDrawFlagCoordinates(t *testing.T) {
	// VF as a coordinate register is read before the collision flag lands.
	c := runCPU(t, "6F05 A050 DFF1", 3)
	assert.True(t, c.Display.Pixel(5, 5))
	expectV(t, c, 0xf, 0)
}

func TestDrawWrap(t *testing.T) {
	c := runCPU(t, "603E 611F A050 D015", 4)
	assert.True(t, c.Display.Pixel(62, 31))
	assert.True(t, c.Display.Pixel(1, 31))
	assert.True(t, c.Display.Pixel(62, 0))
	assert.True(t, c.Display.Pixel(1, 3))

	// Coordinates past the edge start wrapped.
	c = runCPU(t, "6042 6121 A050 D011", 4)
	assert.True(t, c.Display.Pixel(2, 1))
}

func TestDrawClip(t *testing.T) {
	c := runCPU(t, "603E 611F A050 D015", 4, cpu.WithSpritePolicy(cpu.SpriteClip))
	assert.True(t, c.Display.Pixel(62, 31))
	assert.True(t, c.Display.Pixel(63, 31))
	assert.False(t, c.Display.Pixel(0, 31))
	assert.False(t, c.Display.Pixel(62, 0))
}

func TestDrawOutOfMemory(t *testing.T) {
	c := loadCPU(t, "AFFC D005")
	stepCPU(t, c, 1)
	expectFault(t, c.Step(), 0x202, cpu.ErrMemoryOutOfBounds)
	assert.False(t, c.Display.Redraw())
}

func TestDisplayDigest(t *testing.T) {
	a := runCPU(t, "A050 D005", 2)
	b := runCPU(t, "A050 D005", 2)
	assert.Equal(t, a.Display.Digest(), b.Display.Digest())

	c := runCPU(t, "A055 D005", 2)
	assert.True(t, a.Display.Digest() != c.Display.Digest())

	f := a.Display.Snapshot()
	lines := strings.Split(f.String(), "\n")
	assert.Equal(t, "####....", lines[0][:8])
	assert.Equal(t, "#..#....", lines[1][:8])
}

func TestKeySkips(t *testing.T) {
	c := loadCPU(t, "6005 E09E")
	c.Keypad[5] = true
	stepCPU(t, c, 2)
	expectPC(t, c, 0x206)

	c = loadCPU(t, "6005 E0A1")
	c.Keypad[5] = true
	stepCPU(t, c, 2)
	expectPC(t, c, 0x204)

	c = runCPU(t, "6015 E0A1", 2)
	expectPC(t, c, 0x206)
}

func TestWaitForKey(t *testing.T) {
	c := loadCPU(t, "F30A 6001")
	for i := 0; i < 5; i++ {
		stepCPU(t, c, 1)
		expectPC(t, c, 0x200)
		assert.True(t, c.Waiting())
	}

	var k cpu.Keypad
	k[0xc] = true
	k[0x7] = true
	c.SetKeypad(k)
	stepCPU(t, c, 1)
	expectPC(t, c, 0x202)
	expectV(t, c, 3, 0x7)
	assert.False(t, c.Waiting())
}

func TestTimers(t *testing.T) {
	c := runCPU(t, "6003 F015 6102 F118 F207", 5)
	assert.Equal(t, byte(3), c.Reg.DT)
	assert.Equal(t, byte(2), c.Reg.ST)
	expectV(t, c, 2, 3)
	assert.True(t, c.SoundOn())

	c.Tick()
	c.Tick()
	assert.Equal(t, byte(1), c.Reg.DT)
	assert.Equal(t, byte(0), c.Reg.ST)
	assert.False(t, c.SoundOn())

	c.Tick()
	c.Tick()
	assert.Equal(t, byte(0), c.Reg.DT)
}

func TestGetInstruction(t *testing.T) {
	c := loadCPU(t, "F165")
	inst, err := c.GetInstruction(0x200)
	assert.NoError(t, err)
	assert.Equal(t, "LD", inst.Name)
	assert.Equal(t, cpu.VXMEM, inst.Mode)
	assert.Equal(t, byte(1), cpu.OperandX(0xf165))
}

type breakpointRecorder struct {
	breakpoints     []uint16
	dataBreakpoints []uint16
}

func (r *breakpointRecorder) OnBreakpoint(c *cpu.CPU, b *cpu.Breakpoint) {
	r.breakpoints = append(r.breakpoints, b.Address)
}

func (r *breakpointRecorder) OnDataBreakpoint(c *cpu.CPU, b *cpu.DataBreakpoint) {
	r.dataBreakpoints = append(r.dataBreakpoints, b.Address)
}

func TestDebugger(t *testing.T) {
	c := loadCPU(t, "6000 6107 A300 F155 6200 1200")
	rec := &breakpointRecorder{}
	d := cpu.NewDebugger(rec)
	c.AttachDebugger(d)

	d.AddBreakpoint(0x204)
	d.AddBreakpoint(0x202).Disabled = true
	d.AddDataBreakpoint(0x300)
	d.AddConditionalDataBreakpoint(0x301, 0x08)

	stepCPU(t, c, 6)
	if diff := cmp.Diff([]uint16{0x204}, rec.breakpoints); diff != "" {
		t.Errorf("breakpoints (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint16{0x300}, rec.dataBreakpoints); diff != "" {
		t.Errorf("data breakpoints (-want +got):\n%s", diff)
	}

	bps := d.GetBreakpoints()
	assert.Equal(t, 2, len(bps))
	assert.Equal(t, uint16(0x202), bps[0].Address)
	d.RemoveBreakpoint(0x202)
	assert.True(t, d.GetBreakpoint(0x202) == nil)
	assert.True(t, d.GetDataBreakpoint(0x301) != nil)

	c.DetachDebugger()
	stepCPU(t, c, 6)
	assert.Equal(t, 1, len(rec.breakpoints))
}
