// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"errors"
	"fmt"
	"io"
)

// Memory layout
const (
	MemorySize   = 4096
	MaxAddress   = MemorySize - 1
	FontBase     = 0x050
	FontGlyphLen = 5
	ProgramStart = 0x200
	MaxROMSize   = MemorySize - ProgramStart
)

// Errors
var (
	ErrMemoryOutOfBounds = errors.New("memory access out of bounds")
	ErrROMTooLarge       = errors.New("ROM image too large")
)

// FontSet holds the sprites for the hexadecimal digits 0-F, five bytes per
// glyph. It is copied to FontBase when the CPU is created or reset.
var FontSet = [16 * FontGlyphLen]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Memory represents the entire 4K CHIP-8 address space. All accesses are
// bounds-checked; nothing wraps.
type Memory struct {
	b [MemorySize]byte
}

// NewMemory creates a new memory space with the font set installed.
func NewMemory() *Memory {
	m := &Memory{}
	m.Init()
	return m
}

// Init clears memory and installs the font set at FontBase.
func (m *Memory) Init() {
	m.b = [MemorySize]byte{}
	copy(m.b[FontBase:], FontSet[:])
}

// LoadByte loads a single byte from the address and returns it.
func (m *Memory) LoadByte(addr uint16) (byte, error) {
	if addr > MaxAddress {
		return 0, ErrMemoryOutOfBounds
	}
	return m.b[addr], nil
}

// LoadBytes loads len(b) bytes starting at the address. Either every byte
// is loaded or none are.
func (m *Memory) LoadBytes(addr uint16, b []byte) error {
	if int(addr)+len(b) > MemorySize {
		return ErrMemoryOutOfBounds
	}
	copy(b, m.b[addr:])
	return nil
}

// LoadWord loads a big-endian 16-bit value from the address.
func (m *Memory) LoadWord(addr uint16) (uint16, error) {
	if int(addr)+1 > MaxAddress {
		return 0, ErrMemoryOutOfBounds
	}
	return uint16(m.b[addr])<<8 | uint16(m.b[addr+1]), nil
}

// StoreByte stores a byte at the requested address.
func (m *Memory) StoreByte(addr uint16, v byte) error {
	if addr > MaxAddress {
		return ErrMemoryOutOfBounds
	}
	m.b[addr] = v
	return nil
}

// StoreBytes stores multiple bytes starting at the requested address.
// Either every byte is stored or none are.
func (m *Memory) StoreBytes(addr uint16, b []byte) error {
	if int(addr)+len(b) > MemorySize {
		return ErrMemoryOutOfBounds
	}
	copy(m.b[addr:], b)
	return nil
}

// readROM reads a complete ROM image from r. Nothing is returned unless the
// whole image was read successfully and fits in program memory.
func readROM(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, MaxROMSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading ROM: %w", err)
	}
	if len(b) > MaxROMSize {
		return nil, ErrROMTooLarge
	}
	return b, nil
}
