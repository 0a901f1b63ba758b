// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disasm_test

import (
	"testing"

	"github.com/beevik/gochip8/cpu"
	"github.com/beevik/gochip8/disasm"
	"github.com/retroenv/retrogolib/assert"
)

func TestDisassemble(t *testing.T) {
	tests := []struct {
		code     []byte
		expected string
	}{
		{[]byte{0x00, 0xe0}, "CLS"},
		{[]byte{0x00, 0xee}, "RET"},
		{[]byte{0x12, 0x4a}, "JP $24A"},
		{[]byte{0x2a, 0xbc}, "CALL $ABC"},
		{[]byte{0x3a, 0x07}, "SE VA, $07"},
		{[]byte{0x51, 0x20}, "SE V1, V2"},
		{[]byte{0x6f, 0xff}, "LD VF, $FF"},
		{[]byte{0x83, 0x44}, "ADD V3, V4"},
		{[]byte{0x83, 0x06}, "SHR V3"},
		{[]byte{0xa2, 0x00}, "LD I, $200"},
		{[]byte{0xb3, 0x00}, "JP V0, $300"},
		{[]byte{0xc1, 0x0f}, "RND V1, $0F"},
		{[]byte{0xd0, 0x15}, "DRW V0, V1, $5"},
		{[]byte{0xe5, 0x9e}, "SKP V5"},
		{[]byte{0xf2, 0x07}, "LD V2, DT"},
		{[]byte{0xf2, 0x0a}, "LD V2, K"},
		{[]byte{0xf2, 0x15}, "LD DT, V2"},
		{[]byte{0xf2, 0x18}, "LD ST, V2"},
		{[]byte{0xf2, 0x1e}, "ADD I, V2"},
		{[]byte{0xf2, 0x29}, "LD F, V2"},
		{[]byte{0xf2, 0x33}, "LD B, V2"},
		{[]byte{0xf2, 0x55}, "LD [I], V2"},
		{[]byte{0xf2, 0x65}, "LD V2, [I]"},
		{[]byte{0x51, 0x21}, ".DW $5121"},
		{[]byte{0x00, 0x00}, ".DW $0000"},
	}

	m := cpu.NewMemory()
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.NoError(t, m.StoreBytes(0x300, tt.code))
			line, next := disasm.Disassemble(m, 0x300)
			assert.Equal(t, tt.expected, line)
			assert.Equal(t, uint16(0x302), next)
		})
	}
}

func TestDisassembleLastByte(t *testing.T) {
	m := cpu.NewMemory()
	assert.NoError(t, m.StoreByte(cpu.MaxAddress, 0x12))
	line, next := disasm.Disassemble(m, cpu.MaxAddress)
	assert.Equal(t, ".DB $12", line)
	assert.Equal(t, uint16(cpu.MaxAddress+1), next)
}

func TestRegisterString(t *testing.T) {
	var r cpu.Registers
	r.Init()
	r.V[0xa] = 0x5c
	r.I = 0x123
	r.DT = 0x3c

	s := disasm.RegisterString(&r)
	assert.Equal(t, "V0=00 V1=00 V2=00 V3=00 V4=00 V5=00 V6=00 V7=00 "+
		"V8=00 V9=00 VA=5C VB=00 VC=00 VD=00 VE=00 VF=00 "+
		"I=123 PC=200 SP=0 DT=3C ST=00", s)
}
