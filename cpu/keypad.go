// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// Keypad holds the pressed state of the 16 hexadecimal keys 0-F.
type Keypad [16]bool

// Pressed reports whether key k is down. Only the low nibble of k is used.
func (k *Keypad) Pressed(key byte) bool {
	return k[key&0xf]
}

// FirstPressed returns the lowest-numbered key that is down.
func (k *Keypad) FirstPressed() (key byte, ok bool) {
	for i, down := range k {
		if down {
			return byte(i), true
		}
	}
	return 0, false
}
