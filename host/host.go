// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host allows you to create a "host" that runs a CHIP-8 CPU, either
// in real time on a terminal or under an interactive monitor.
//
// Within the monitor it is possible to load ROM images into memory, step
// through machine code, set address and data breakpoints, dump and change
// memory and registers, disassemble code, press keypad keys, tick the timers
// and inspect the frame buffer.
package host

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/beevik/cmd"
	"github.com/beevik/gochip8/cpu"
	"github.com/beevik/gochip8/disasm"
	"github.com/sirupsen/logrus"
)

type displayFlags uint8

const (
	displayRegisters displayFlags = 1 << iota
	displayCycles

	displayAll = displayRegisters | displayCycles
)

type state byte

const (
	stateProcessingCommands state = iota
	stateRunning
	stateBreakpoint
	stateStepOverBreakpoint
)

var errQuit = errors.New("exiting program")

// A Host represents a CHIP-8 system along with a debugger, a monitor and a
// real-time terminal player.
type Host struct {
	input       *bufio.Scanner
	output      *bufio.Writer
	interactive bool
	cpu         *cpu.CPU
	cpuOpts     []cpu.Option
	debugger    *cpu.Debugger
	lastCmd     *cmd.Selection
	state       state
	interrupt   atomic.Bool
	settings    *settings
	log         *logrus.Logger
	keys        *keyboard
	keyMap      KeyMap
	keyReader   *keyReader
	romPath     string
}

// An Option configures a Host created by New.
type Option func(h *Host)

// WithLogger sets the logger used by the host and its CPU.
func WithLogger(l *logrus.Logger) Option {
	return func(h *Host) {
		h.log = l
	}
}

// WithCPUOptions passes options through to the CPU.
func WithCPUOptions(opts ...cpu.Option) Option {
	return func(h *Host) {
		h.cpuOpts = append(h.cpuOpts, opts...)
	}
}

// WithCyclesPerFrame sets how many instructions run per 60Hz frame.
func WithCyclesPerFrame(n int) Option {
	return func(h *Host) {
		h.settings.CyclesPerFrame = max(n, 1)
	}
}

// WithKeyMap replaces the keyboard layout used by Play.
func WithKeyMap(m KeyMap) Option {
	return func(h *Host) {
		h.keyMap = m
	}
}

// NewLogger creates a logger writing plain text to stderr at the requested
// level.
func NewLogger(level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(level)
	l.Formatter = &logrus.TextFormatter{
		DisableColors:    true,
		DisableTimestamp: true,
		DisableQuote:     true,
	}
	return l
}

// New creates a new CHIP-8 host environment.
func New(opts ...Option) *Host {
	h := &Host{
		output:   bufio.NewWriter(io.Discard),
		state:    stateProcessingCommands,
		settings: newSettings(),
		keys:     newKeyboard(),
		keyMap:   DefaultKeyMap,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = NewLogger(logrus.ErrorLevel)
	}

	// Create the emulated CPU.
	h.cpu = cpu.NewCPU(append([]cpu.Option{cpu.WithLogger(h.log)}, h.cpuOpts...)...)
	h.settings.SpriteClip = h.cpu.Display.Policy() == cpu.SpriteClip

	// Create a CPU debugger and attach it to the CPU.
	h.debugger = cpu.NewDebugger(newDebugHandler(h))
	h.cpu.AttachDebugger(h.debugger)

	return h
}

// RunCommands accepts host commands from a reader and outputs the results
// to a writer. If the commands are interactive, a prompt is displayed while
// the host waits for the next command to be entered.
func (h *Host) RunCommands(r io.Reader, w io.Writer, interactive bool) {
	h.input = bufio.NewScanner(r)
	h.output = bufio.NewWriter(w)
	h.interactive = interactive

	if interactive {
		h.println()
	}

	h.displayPC()

	for {
		h.prompt()

		line, err := h.getLine()
		if err != nil {
			break
		}

		var c cmd.Selection
		if strings.TrimSpace(line) != "" {
			var g *commandGroup
			c, g, err = resolveCommand(line)
			switch {
			case g != nil:
				h.displayCommands(g)
				continue
			case err == cmd.ErrNotFound:
				h.println("Command not found.")
				continue
			case err == cmd.ErrAmbiguous:
				h.println("Command is ambiguous.")
				continue
			case err != nil:
				h.printf("ERROR: %v.\n", err)
				continue
			}
		} else if h.lastCmd != nil {
			c = *h.lastCmd
		}

		handler, ok := commandHandler(c)
		if !ok {
			continue
		}
		h.lastCmd = &c

		if err := handler(h, c); err != nil {
			break
		}
	}
	h.flush()
}

// Break interrupts a running CPU. It may be called from any goroutine.
func (h *Host) Break() {
	h.interrupt.Store(true)
}

// LoadROM resets the CPU and loads the ROM image in the named file at $200.
// The CPU is left untouched if the file cannot be read or is too large.
func (h *Host) LoadROM(filename string) error {
	b, err := readROMFile(filename)
	if err != nil {
		return err
	}
	if len(b) > cpu.MaxROMSize {
		return fmt.Errorf("%s: %w", filepath.Base(filename), cpu.ErrROMTooLarge)
	}

	h.cpu.Reset()
	n, err := h.cpu.LoadROM(bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(filename), err)
	}
	h.romPath = filename
	h.settings.NextDisasmAddr = 0
	h.settings.NextMemDumpAddr = 0

	h.log.WithFields(logrus.Fields{
		"rom":   filepath.Base(filename),
		"bytes": n,
	}).Info("ROM loaded")
	h.printf("Loaded '%s' (%d bytes) at $%04X.\n", filepath.Base(filename), n, cpu.ProgramStart)
	return nil
}

func (h *Host) print(args ...any) {
	fmt.Fprint(h.output, args...)
}

func (h *Host) printf(format string, args ...any) {
	fmt.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) println(args ...any) {
	fmt.Fprintln(h.output, args...)
	h.flush()
}

func (h *Host) flush() {
	h.output.Flush()
}

func (h *Host) getLine() (string, error) {
	if h.input.Scan() {
		return h.input.Text(), nil
	}
	if h.input.Err() != nil {
		return "", h.input.Err()
	}
	return "", io.EOF
}

func (h *Host) prompt() {
	if h.interactive {
		h.printf("* ")
	}
}

func (h *Host) displayPC() {
	if h.interactive {
		d, _ := h.disassemble(h.cpu.Reg.PC, displayAll)
		h.println(d)
	}
}

func (h *Host) cmdBreakpointList(c cmd.Selection) error {
	h.println("Addr  Enabled")
	h.println("----- -------")
	for _, b := range h.debugger.GetBreakpoints() {
		h.printf("$%04X %v\n", b.Address, !b.Disabled)
	}
	return nil
}

func (h *Host) cmdBreakpointAdd(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c.Command)
		return nil
	}

	addr, err := h.parseAddr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	h.debugger.AddBreakpoint(addr)
	h.printf("Breakpoint added at $%04X.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointRemove(c cmd.Selection) error {
	b := h.lookupBreakpoint(c)
	if b == nil {
		return nil
	}

	h.debugger.RemoveBreakpoint(b.Address)
	h.printf("Breakpoint at $%04X removed.\n", b.Address)
	return nil
}

func (h *Host) cmdBreakpointEnable(c cmd.Selection) error {
	if b := h.lookupBreakpoint(c); b != nil {
		b.Disabled = false
		h.printf("Breakpoint at $%04X enabled.\n", b.Address)
	}
	return nil
}

func (h *Host) cmdBreakpointDisable(c cmd.Selection) error {
	if b := h.lookupBreakpoint(c); b != nil {
		b.Disabled = true
		h.printf("Breakpoint at $%04X disabled.\n", b.Address)
	}
	return nil
}

// Find the breakpoint named by the command's address argument, reporting
// problems to the user.
func (h *Host) lookupBreakpoint(c cmd.Selection) *cpu.Breakpoint {
	if len(c.Args) < 1 {
		h.displayUsage(c.Command)
		return nil
	}

	addr, err := h.parseAddr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	b := h.debugger.GetBreakpoint(addr)
	if b == nil {
		h.printf("No breakpoint was set on $%04X.\n", addr)
	}
	return b
}

func (h *Host) cmdDataBreakpointList(c cmd.Selection) error {
	h.println("Addr  Enabled  Value")
	h.println("----- -------  -----")
	for _, b := range h.debugger.GetDataBreakpoints() {
		if b.Conditional {
			h.printf("$%04X %-5v    $%02X\n", b.Address, !b.Disabled, b.Value)
		} else {
			h.printf("$%04X %-5v    <none>\n", b.Address, !b.Disabled)
		}
	}
	return nil
}

func (h *Host) cmdDataBreakpointAdd(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c.Command)
		return nil
	}

	addr, err := h.parseAddr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	if len(c.Args) > 1 {
		value, err := parseByte(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.debugger.AddConditionalDataBreakpoint(addr, value)
		h.printf("Conditional data breakpoint added at $%04X for value $%02X.\n", addr, value)
	} else {
		h.debugger.AddDataBreakpoint(addr)
		h.printf("Data breakpoint added at $%04X.\n", addr)
	}

	return nil
}

func (h *Host) cmdDataBreakpointRemove(c cmd.Selection) error {
	b := h.lookupDataBreakpoint(c)
	if b == nil {
		return nil
	}

	h.debugger.RemoveDataBreakpoint(b.Address)
	h.printf("Data breakpoint at $%04X removed.\n", b.Address)
	return nil
}

func (h *Host) cmdDataBreakpointEnable(c cmd.Selection) error {
	if b := h.lookupDataBreakpoint(c); b != nil {
		b.Disabled = false
		h.printf("Data breakpoint at $%04X enabled.\n", b.Address)
	}
	return nil
}

func (h *Host) cmdDataBreakpointDisable(c cmd.Selection) error {
	if b := h.lookupDataBreakpoint(c); b != nil {
		b.Disabled = true
		h.printf("Data breakpoint at $%04X disabled.\n", b.Address)
	}
	return nil
}

func (h *Host) lookupDataBreakpoint(c cmd.Selection) *cpu.DataBreakpoint {
	if len(c.Args) < 1 {
		h.displayUsage(c.Command)
		return nil
	}

	addr, err := h.parseAddr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	b := h.debugger.GetDataBreakpoint(addr)
	if b == nil {
		h.printf("No data breakpoint was set on $%04X.\n", addr)
	}
	return b
}

func (h *Host) cmdDisassemble(c cmd.Selection) error {
	addr := h.settings.NextDisasmAddr
	if addr == 0 {
		addr = h.cpu.Reg.PC
	}
	if len(c.Args) > 0 && c.Args[0] != "$" {
		a, err := h.parseAddr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	lines := h.settings.DisasmLines
	if len(c.Args) > 1 {
		l, err := parseNumber(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		lines = int(l)
	}

	for i := 0; i < lines && addr <= cpu.MaxAddress; i++ {
		d, next := h.disassemble(addr, 0)
		h.println(d)
		addr = next
	}

	h.settings.NextDisasmAddr = addr
	h.lastCmd.Args = []string{"$", strconv.Itoa(lines)}
	return nil
}

func (h *Host) cmdDisplay(c cmd.Selection) error {
	h.print(h.cpu.Display.String())
	h.printf("Digest: $%016X\n", h.cpu.Display.Digest())
	return nil
}

func (h *Host) cmdHelp(c cmd.Selection) error {
	if len(c.Args) == 0 {
		h.displayCommands(rootGroup)
		return nil
	}

	s, g, err := resolveCommand(strings.Join(c.Args, " "))
	switch {
	case g != nil:
		h.displayCommands(g)
	case err != nil:
		h.printf("%v\n", err)
	case s.Command == nil:
	default:
		if s.Command.Usage != "" {
			h.printf("Syntax: %s\n\n", s.Command.Usage)
		}
		switch {
		case s.Command.Description != "":
			h.printf("Description:\n%s\n\n", indentWrap(3, s.Command.Description))
		case s.Command.Brief != "":
			h.printf("Description:\n%s.\n\n", indentWrap(3, s.Command.Brief))
		}
	}
	return nil
}

func (h *Host) cmdKeypad(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		k := h.keys.snapshot(time.Now())
		var down []string
		for i, pressed := range k {
			if pressed {
				down = append(down, fmt.Sprintf("%X", i))
			}
		}
		if len(down) == 0 {
			h.println("No keys down.")
		} else {
			h.printf("Keys down: %s\n", strings.Join(down, " "))
		}

	case 1:
		h.displayUsage(c.Command)

	default:
		key, err := strconv.ParseUint(strings.TrimPrefix(c.Args[0], "$"), 16, 8)
		if err != nil || key > 0xf {
			h.printf("Invalid key '%s'.\n", c.Args[0])
			return nil
		}
		down, err := stringToBool(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.keys.hold(byte(key), down)
		h.cpu.SetKeypad(h.keys.snapshot(time.Now()))
		if down {
			h.printf("Key %X pressed.\n", key)
		} else {
			h.printf("Key %X released.\n", key)
		}
	}
	return nil
}

func (h *Host) cmdLoad(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c.Command)
		return nil
	}

	filename := c.Args[0]
	if err := h.LoadROM(filename); err != nil {
		h.printf("Failed to load '%s': %v\n", filepath.Base(filename), err)
		return nil
	}
	h.displayPC()
	return nil
}

func (h *Host) cmdMemoryDump(c cmd.Selection) error {
	addr := h.settings.NextMemDumpAddr
	if addr == 0 {
		addr = h.cpu.Reg.PC
	}
	if len(c.Args) > 0 && c.Args[0] != "$" {
		a, err := h.parseAddr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		addr = a
	}

	n := h.settings.MemDumpBytes
	if len(c.Args) > 1 {
		v, err := parseNumber(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		n = int(v)
	}

	h.dumpMemory(addr, n)

	h.settings.NextMemDumpAddr = uint16(min(int(addr)+n, cpu.MaxAddress))
	h.lastCmd.Args = []string{"$", strconv.Itoa(n)}
	return nil
}

func (h *Host) cmdMemorySet(c cmd.Selection) error {
	if len(c.Args) < 2 {
		h.displayUsage(c.Command)
		return nil
	}

	addr, err := h.parseAddr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	b := make([]byte, 0, len(c.Args)-1)
	for _, s := range c.Args[1:] {
		v, err := parseByte(s)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		b = append(b, v)
	}

	if err := h.cpu.Mem.StoreBytes(addr, b); err != nil {
		h.printf("%v\n", err)
		return nil
	}
	h.printf("Stored %d byte(s) at $%04X.\n", len(b), addr)
	return nil
}

func (h *Host) cmdQuit(c cmd.Selection) error {
	return errQuit
}

func (h *Host) cmdRegister(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		d, _ := h.disassemble(h.cpu.Reg.PC, displayAll)
		h.println(d)

	case 1:
		h.displayUsage(c.Command)

	default:
		v, err := parseNumber(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		name := strings.ToUpper(c.Args[0])
		if err := h.setRegister(name, v); err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.printf("Register %s set to $%X.\n", name, v)
		if name == "PC" {
			h.settings.NextDisasmAddr = h.cpu.Reg.PC
		}
	}
	return nil
}

func (h *Host) setRegister(name string, v int64) error {
	r := &h.cpu.Reg
	inRange := func(limit int64) error {
		if v < 0 || v > limit {
			return fmt.Errorf("value $%X out of range for %s", v, name)
		}
		return nil
	}

	switch name {
	case "I":
		if err := inRange(0xffff); err != nil {
			return err
		}
		r.I = uint16(v)
	case "PC":
		if err := inRange(cpu.MaxAddress); err != nil {
			return err
		}
		r.PC = uint16(v)
	case "SP":
		if err := inRange(cpu.StackDepth); err != nil {
			return err
		}
		r.SP = byte(v)
	case "DT", "ST":
		if err := inRange(0xff); err != nil {
			return err
		}
		if name == "DT" {
			r.DT = byte(v)
		} else {
			r.ST = byte(v)
		}
	default:
		x, err := strconv.ParseUint(strings.TrimPrefix(name, "V"), 16, 8)
		if !strings.HasPrefix(name, "V") || len(name) != 2 || err != nil {
			return fmt.Errorf("register '%s' not found", name)
		}
		if err := inRange(0xff); err != nil {
			return err
		}
		r.V[x] = byte(v)
	}
	return nil
}

func (h *Host) cmdReset(c cmd.Selection) error {
	if h.romPath != "" {
		if err := h.LoadROM(h.romPath); err != nil {
			h.printf("Failed to reload '%s': %v\n", filepath.Base(h.romPath), err)
			return nil
		}
	} else {
		h.cpu.Reset()
		h.println("CPU reset.")
	}
	h.displayPC()
	return nil
}

func (h *Host) cmdRun(c cmd.Selection) error {
	frames := 0
	if len(c.Args) > 0 {
		n, err := parseNumber(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		frames = int(n)
	}

	h.printf("Running from $%04X. Press ctrl-C to break.\n", h.cpu.Reg.PC)

	h.interrupt.Store(false)
	h.state = stateRunning
	for n := 0; h.state == stateRunning && (frames <= 0 || n < frames); n++ {
		if err := h.Frame(h.settings.CyclesPerFrame); err != nil {
			h.onFault(err)
			break
		}
		if h.interrupt.Swap(false) {
			h.println()
			h.displayPC()
			break
		}
	}
	if h.state == stateRunning && frames > 0 {
		h.displayPC()
	}
	h.state = stateProcessingCommands

	h.settings.NextDisasmAddr = h.cpu.Reg.PC
	return nil
}

func (h *Host) cmdSet(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		h.println("Variables:")
		h.settings.Display(h.output)
		h.flush()

	case 1:
		h.displayUsage(c.Command)

	default:
		key, value := c.Args[0], strings.Join(c.Args[1:], " ")

		var err error
		switch h.settings.Kind(key) {
		case reflect.Invalid:
			err = fmt.Errorf("setting '%s' not found", key)
		case reflect.Bool:
			var v bool
			v, err = stringToBool(value)
			if err == nil {
				err = h.settings.Set(key, v)
			}
		default:
			var v int64
			v, err = parseNumber(value)
			if err == nil {
				err = h.settings.Set(key, v)
			}
		}

		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.onSettingsUpdate()
		h.println("Setting updated.")
	}

	return nil
}

func (h *Host) cmdStepIn(c cmd.Selection) error {
	h.stepLoop(c, h.step)
	return nil
}

func (h *Host) cmdStepOver(c cmd.Selection) error {
	h.stepLoop(c, h.stepOver)
	return nil
}

// Step the CPU as many times as the command's count argument requests,
// displaying the last few instructions executed.
func (h *Host) stepLoop(c cmd.Selection, step func() bool) {
	count := 1
	if len(c.Args) > 0 {
		n, err := parseNumber(c.Args[0])
		if err == nil {
			count = int(n)
		}
	}

	h.interrupt.Store(false)
	h.state = stateRunning
	for i := count - 1; i >= 0 && h.state == stateRunning; i-- {
		if !step() {
			break
		}
		if h.interrupt.Swap(false) {
			h.displayPC()
			break
		}
		switch {
		case i == h.settings.StepLinesToDisplay:
			h.println("...")
		case i < h.settings.StepLinesToDisplay:
			h.displayPC()
		}
	}
	h.state = stateProcessingCommands

	h.settings.NextDisasmAddr = h.cpu.Reg.PC
}

func (h *Host) cmdTick(c cmd.Selection) error {
	count := 1
	if len(c.Args) > 0 {
		n, err := parseNumber(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		count = int(n)
	}

	for i := 0; i < count; i++ {
		h.cpu.Tick()
	}
	h.printf("DT=$%02X ST=$%02X\n", h.cpu.Reg.DT, h.cpu.Reg.ST)
	return nil
}

// Execute one instruction. Returns false if the CPU faulted.
func (h *Host) step() bool {
	h.cpu.SetKeypad(h.keys.snapshot(time.Now()))
	if err := h.cpu.Step(); err != nil {
		h.onFault(err)
		return false
	}
	return true
}

func (h *Host) stepOver() bool {
	c := h.cpu

	// CALL instructions need to be handled specially.
	inst, err := c.GetInstruction(c.Reg.PC)
	if err != nil || inst.Name != "CALL" {
		return h.step()
	}

	// Place a step-over breakpoint on the instruction following the CALL.
	// Either modify an already existing breakpoint on that instruction, or
	// create a temporary one.
	next := c.Reg.PC + 2
	tmpBreakpointCreated := false
	b := h.debugger.GetBreakpoint(next)
	if b == nil {
		b = h.debugger.AddBreakpoint(next)
		tmpBreakpointCreated = true
	}
	disabled := b.Disabled
	b.StepOver, b.Disabled = true, false

	// Run until interrupted.
	ok := true
	for h.state == stateRunning {
		if !h.step() {
			ok = false
			break
		}
		if h.interrupt.Load() {
			break
		}
	}
	b.StepOver, b.Disabled = false, disabled

	// If we were interrupted by the temporary step-over breakpoint,
	// then continue as normal.
	if h.state == stateStepOverBreakpoint {
		h.state = stateRunning
	}

	if tmpBreakpointCreated {
		h.debugger.RemoveBreakpoint(next)
	}
	return ok
}

func (h *Host) onSettingsUpdate() {
	policy := cpu.SpriteWrap
	if h.settings.SpriteClip {
		policy = cpu.SpriteClip
	}
	h.cpu.Display.SetPolicy(policy)
	h.settings.CyclesPerFrame = max(h.settings.CyclesPerFrame, 1)
}

func (h *Host) onFault(err error) {
	h.log.WithError(err).Error("cpu fault")
	h.state = stateProcessingCommands
	h.printf("Fault: %v\n", err)
	h.displayPC()
}

func (h *Host) parseAddr(s string) (uint16, error) {
	switch strings.ToLower(s) {
	case ".", "pc":
		return h.cpu.Reg.PC, nil
	case "i":
		return h.cpu.Reg.I, nil
	}

	v, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > cpu.MaxAddress {
		return 0, fmt.Errorf("address '%s' out of range", s)
	}
	return uint16(v), nil
}

func parseByte(s string) (byte, error) {
	v, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 0xff {
		return 0, fmt.Errorf("byte value '%s' out of range", s)
	}
	return byte(v), nil
}

func (h *Host) disassemble(addr uint16, flags displayFlags) (str string, next uint16) {
	var line string
	line, next = disasm.Disassemble(h.cpu.Mem, addr)

	b := make([]byte, next-addr)
	_ = h.cpu.Mem.LoadBytes(addr, b)

	str = fmt.Sprintf("%04X-   %-8s    %-15s", addr, codeString(b), line)

	if (flags & displayRegisters) != 0 {
		str += " " + disasm.RegisterString(&h.cpu.Reg)
	}

	if (flags & displayCycles) != 0 {
		str += fmt.Sprintf(" C=%d", h.cpu.Cycles)
	}

	return str, next
}

func (h *Host) dumpMemory(addr0 uint16, n int) {
	if n <= 0 {
		return
	}

	a0 := int(addr0)
	a1 := min(a0+n-1, cpu.MaxAddress)

	buf := []byte("    -" + strings.Repeat(" ", 35))

	// Don't align display for short dumps.
	if a1-a0 < 8 {
		addrToBuf(addr0, buf[0:4])
		for a, c1, c2 := a0, 6, 32; a <= a1; a, c1, c2 = a+1, c1+3, c2+1 {
			m, _ := h.cpu.Mem.LoadByte(uint16(a))
			byteToBuf(m, buf[c1:c1+2])
			buf[c2] = toPrintableChar(m)
		}
		h.println(string(buf))
		return
	}

	// Align a0 and a1 to 8-byte boundaries.
	start := a0 &^ 7
	stop := (a1 + 8) &^ 7

	a := start
	for r := start; r < stop; r += 8 {
		addrToBuf(uint16(r), buf[0:4])
		for c1, c2 := 6, 32; c1 < 29; c1, c2, a = c1+3, c2+1, a+1 {
			if a >= a0 && a <= a1 {
				m, _ := h.cpu.Mem.LoadByte(uint16(a))
				byteToBuf(m, buf[c1:c1+2])
				buf[c2] = toPrintableChar(m)
			} else {
				buf[c1] = ' '
				buf[c1+1] = ' '
				buf[c2] = ' '
			}
		}
		h.println(string(buf))
	}
}

func (h *Host) displayUsage(c *cmd.Command) {
	if c.Usage != "" {
		h.printf("Syntax: %s\n", c.Usage)
	} else {
		h.println("<no help text>")
	}
}

func (h *Host) displayCommands(g *commandGroup) {
	h.printf("%s commands:\n", g.title)
	for _, c := range g.entries {
		if c.Brief != "" {
			h.printf("    %-15s  %s\n", c.Name, c.Brief)
		}
	}
}

// resolveCommand looks up a command line. A line naming only a command
// group returns the group instead of a selection.
func resolveCommand(line string) (cmd.Selection, *commandGroup, error) {
	s, err := cmds.Lookup(line)
	if _, ok := commandHandler(s); err != nil || !ok {
		if g := lookupGroup(line); g != nil {
			return cmd.Selection{}, g, nil
		}
	}
	return s, nil, err
}

func commandHandler(s cmd.Selection) (func(*Host, cmd.Selection) error, bool) {
	if s.Command == nil {
		return nil, false
	}
	handler, ok := s.Command.Data.(func(*Host, cmd.Selection) error)
	return handler, ok
}

func (h *Host) onBreakpoint(c *cpu.CPU, b *cpu.Breakpoint) {
	if b.StepOver {
		h.state = stateStepOverBreakpoint
		return
	}
	h.state = stateBreakpoint
	h.printf("Breakpoint hit at $%04X.\n", b.Address)
	h.displayPC()
}

func (h *Host) onDataBreakpoint(c *cpu.CPU, b *cpu.DataBreakpoint) {
	h.printf("Data breakpoint hit on address $%04X.\n", b.Address)

	h.state = stateBreakpoint

	if c.LastPC != c.Reg.PC {
		d, _ := h.disassemble(c.LastPC, displayAll)
		h.println(d)
	}

	h.displayPC()
}
