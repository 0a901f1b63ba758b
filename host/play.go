// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/beevik/gochip8/cpu"
	"github.com/beevik/term"
	"github.com/sirupsen/logrus"
)

// FrameRate is the number of frames per second run by Play. The timers
// tick once per frame.
const FrameRate = 60

// Terminals report key presses but not releases, so a key read from the
// terminal is held down for this long.
const keyHold = 150 * time.Millisecond

const (
	keyCtrlC  = 0x03
	keyEscape = 0x1b
)

// A KeyMap maps keyboard characters to CHIP-8 keypad keys.
type KeyMap map[rune]byte

// DefaultKeyMap lays the hexadecimal keypad over the left side of a QWERTY
// keyboard:
//
//	1 2 3 C      1 2 3 4
//	4 5 6 D      q w e r
//	7 8 9 E      a s d f
//	A 0 B F      z x c v
var DefaultKeyMap = KeyMap{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xc,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xd,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xe,
	'z': 0xa, 'x': 0x0, 'c': 0xb, 'v': 0xf,
}

// Lookup returns the keypad key for a keyboard character. Letters match in
// either case.
func (m KeyMap) Lookup(r rune) (key byte, ok bool) {
	key, ok = m[unicode.ToLower(r)]
	return key, ok
}

// The keyboard holds the pending keypad state copied into the CPU at the
// start of each frame. It may be pressed from any goroutine.
type keyboard struct {
	mu    sync.Mutex
	held  [16]bool
	until [16]time.Time
}

func newKeyboard() *keyboard {
	return &keyboard{}
}

// press records a momentary key press starting at now.
func (k *keyboard) press(key byte, now time.Time) {
	k.mu.Lock()
	k.until[key&0xf] = now.Add(keyHold)
	k.mu.Unlock()
}

// hold presses or releases a key until told otherwise.
func (k *keyboard) hold(key byte, down bool) {
	k.mu.Lock()
	k.held[key&0xf] = down
	if !down {
		k.until[key&0xf] = time.Time{}
	}
	k.mu.Unlock()
}

func (k *keyboard) snapshot(now time.Time) cpu.Keypad {
	k.mu.Lock()
	defer k.mu.Unlock()

	var pad cpu.Keypad
	for i := range pad {
		pad[i] = k.held[i] || now.Before(k.until[i])
	}
	return pad
}

// Frame runs one frame of the driving loop. The pending keypad state is
// copied into the CPU, up to 'cycles' instructions execute and the timers
// tick once. Execution ends early on a breakpoint or while the CPU waits
// for a key, but the timers still tick.
func (h *Host) Frame(cycles int) error {
	h.cpu.SetKeypad(h.keys.snapshot(time.Now()))
	for i := 0; i < cycles; i++ {
		if err := h.cpu.Step(); err != nil {
			return err
		}
		if h.state == stateBreakpoint || h.cpu.Waiting() {
			break
		}
	}
	h.cpu.Tick()
	return nil
}

// Play runs the loaded program in real time. Keys are read from 'in' and
// the display is drawn on 'out' whenever it changes. Play returns nil when
// ctx is cancelled or Esc or Ctrl-C is pressed, and the fault if the CPU
// faults. Breakpoints are ignored while playing.
//
// A single goroutine reads each input. It outlives Play, blocked on 'in',
// and keys read after Play returns are held for the next call to Play with
// the same input.
func (h *Host) Play(ctx context.Context, in io.Reader, out io.Writer) error {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		state, err := term.MakeRawInput(fd)
		if err != nil {
			return err
		}
		defer term.Restore(fd, state)
	}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		w, ht, err := term.GetSize(int(f.Fd()))
		if err == nil && (w < cpu.DisplayWidth || ht < cpu.DisplayHeight/2) {
			h.log.WithFields(logrus.Fields{
				"width":  w,
				"height": ht,
			}).Warn("terminal is smaller than the display")
		}
	}

	keys := h.keyInput(in)

	h.cpu.DetachDebugger()
	defer h.cpu.AttachDebugger(h.debugger)

	w := bufio.NewWriter(out)
	fmt.Fprint(w, "\x1b[2J\x1b[?25l")
	defer func() {
		fmt.Fprint(w, "\x1b[?25h\r\n")
		w.Flush()
	}()

	h.log.WithField("cyclesPerFrame", h.settings.CyclesPerFrame).Debug("play started")

	ticker := time.NewTicker(time.Second / FrameRate)
	defer ticker.Stop()

	sound := false
	for {
		select {
		case <-ctx.Done():
			h.log.Debug("play stopped")
			return nil
		case ch, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			if ch == keyEscape || ch == keyCtrlC {
				h.log.Debug("play stopped by keyboard")
				return nil
			}
			if key, ok := h.keyMap.Lookup(ch); ok {
				h.keys.press(key, time.Now())
			}
			continue
		case <-ticker.C:
		}

		if err := h.Frame(h.settings.CyclesPerFrame); err != nil {
			h.log.WithError(err).Error("cpu fault")
			return err
		}

		if h.cpu.Display.Redraw() {
			f := h.cpu.Display.Snapshot()
			fmt.Fprint(w, "\x1b[H")
			renderFrame(w, &f)
			h.cpu.Display.ClearRedraw()
		}

		// Ring the bell when the tone starts.
		on := h.cpu.SoundOn()
		if on && !sound {
			w.WriteByte('\a')
		}
		sound = on

		if err := w.Flush(); err != nil {
			return err
		}
	}
}

// A keyReader delivers the runes read from one input.
type keyReader struct {
	in    io.Reader
	runes chan rune
}

// keyInput returns the runes read from 'in', starting a reader goroutine the
// first time 'in' is seen. The channel is closed at the end of input.
func (h *Host) keyInput(in io.Reader) <-chan rune {
	if h.keyReader != nil && h.keyReader.in == in {
		return h.keyReader.runes
	}

	r := &keyReader{in: in, runes: make(chan rune, 16)}
	go func() {
		defer close(r.runes)
		br := bufio.NewReader(in)
		for {
			ch, _, err := br.ReadRune()
			if err != nil {
				return
			}
			r.runes <- ch
		}
	}()
	h.keyReader = r
	return r.runes
}

// renderFrame draws the frame using half-block characters, two pixel rows
// per line of text.
func renderFrame(w io.Writer, f *cpu.Frame) {
	var b strings.Builder
	for y := 0; y < cpu.DisplayHeight; y += 2 {
		for x := 0; x < cpu.DisplayWidth; x++ {
			top, bottom := f[y][x], f[y+1][x]
			switch {
			case top && bottom:
				b.WriteRune('█')
			case top:
				b.WriteRune('▀')
			case bottom:
				b.WriteRune('▄')
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteString("\r\n")
	}
	io.WriteString(w, b.String())
}
