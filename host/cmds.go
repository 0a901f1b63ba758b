// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"strings"

	"github.com/beevik/cmd"
	"github.com/beevik/prefixtree/v2"
)

var cmds *cmd.Tree

// A commandGroup mirrors one level of the command tree so the help command
// can list its entries in the order they were added.
type commandGroup struct {
	title   string
	tree    *cmd.Tree
	entries []cmd.CommandDescriptor
}

var (
	rootGroup *commandGroup
	groups    = prefixtree.New[*commandGroup]()
)

func (g *commandGroup) add(d cmd.CommandDescriptor) {
	g.tree.AddCommand(d)
	g.entries = append(g.entries, d)
}

// addGroup adds a subtree. The group's name and shortcuts select its
// command listing when typed without a subcommand.
func (g *commandGroup) addGroup(d cmd.TreeDescriptor, title string, shortcuts ...string) *commandGroup {
	sub := &commandGroup{title: title, tree: g.tree.AddSubtree(d)}
	g.entries = append(g.entries, cmd.CommandDescriptor{Name: d.Name, Brief: d.Brief})
	groups.Add(d.Name, sub)
	for _, s := range shortcuts {
		groups.Add(s, sub)
	}
	return sub
}

// lookupGroup returns the command group named by a single word, or nil.
func lookupGroup(line string) *commandGroup {
	fields := strings.Fields(line)
	if len(fields) != 1 {
		return nil
	}
	g, err := groups.FindValue(strings.ToLower(fields[0]))
	if err != nil {
		return nil
	}
	return g
}

func init() {
	// Create a command tree, where the data stored with each command is a
	// host callback capable of handling the command.
	root := &commandGroup{
		title: "gochip8",
		tree:  cmd.NewTree(cmd.TreeDescriptor{Name: "gochip8"}),
	}
	root.add(cmd.CommandDescriptor{
		Name:        "help",
		Brief:       "Display help",
		Description: "Display a list of commands, or help for a single command.",
		Usage:       "help [<command>]",
		Data:        (*Host).cmdHelp,
	})

	// Breakpoint commands
	bp := root.addGroup(cmd.TreeDescriptor{Name: "breakpoint", Brief: "Breakpoint commands"}, "Breakpoint", "b")
	bp.add(cmd.CommandDescriptor{
		Name:        "list",
		Brief:       "List breakpoints",
		Description: "List all current breakpoints.",
		Usage:       "breakpoint list",
		Data:        (*Host).cmdBreakpointList,
	})
	bp.add(cmd.CommandDescriptor{
		Name:  "add",
		Brief: "Add a breakpoint",
		Description: "Add a breakpoint at the specified address." +
			" The breakpoint starts enabled.",
		Usage: "breakpoint add <address>",
		Data:  (*Host).cmdBreakpointAdd,
	})
	bp.add(cmd.CommandDescriptor{
		Name:        "remove",
		Brief:       "Remove a breakpoint",
		Description: "Remove a breakpoint at the specified address.",
		Usage:       "breakpoint remove <address>",
		Data:        (*Host).cmdBreakpointRemove,
	})
	bp.add(cmd.CommandDescriptor{
		Name:        "enable",
		Brief:       "Enable a breakpoint",
		Description: "Enable a previously added breakpoint.",
		Usage:       "breakpoint enable <address>",
		Data:        (*Host).cmdBreakpointEnable,
	})
	bp.add(cmd.CommandDescriptor{
		Name:  "disable",
		Brief: "Disable a breakpoint",
		Description: "Disable a previously added breakpoint. This" +
			" prevents the breakpoint from being hit when running the" +
			" CPU.",
		Usage: "breakpoint disable <address>",
		Data:  (*Host).cmdBreakpointDisable,
	})

	// Data breakpoint commands
	db := root.addGroup(cmd.TreeDescriptor{Name: "databreakpoint", Brief: "Data breakpoint commands"}, "Data breakpoint", "db")
	db.add(cmd.CommandDescriptor{
		Name:        "list",
		Brief:       "List data breakpoints",
		Description: "List all current data breakpoints.",
		Usage:       "databreakpoint list",
		Data:        (*Host).cmdDataBreakpointList,
	})
	db.add(cmd.CommandDescriptor{
		Name:  "add",
		Brief: "Add a data breakpoint",
		Description: "Add a new data breakpoint at the specified" +
			" memory address. When a BCD or register store writes to" +
			" this address, the breakpoint stops the CPU. Optionally," +
			" a byte value may be specified, and the CPU will stop" +
			" only when this value is stored.",
		Usage: "databreakpoint add <address> [<value>]",
		Data:  (*Host).cmdDataBreakpointAdd,
	})
	db.add(cmd.CommandDescriptor{
		Name:  "remove",
		Brief: "Remove a data breakpoint",
		Description: "Remove a previously added data breakpoint at" +
			" the specified memory address.",
		Usage: "databreakpoint remove <address>",
		Data:  (*Host).cmdDataBreakpointRemove,
	})
	db.add(cmd.CommandDescriptor{
		Name:        "enable",
		Brief:       "Enable a data breakpoint",
		Description: "Enable a previously added data breakpoint.",
		Usage:       "databreakpoint enable <address>",
		Data:        (*Host).cmdDataBreakpointEnable,
	})
	db.add(cmd.CommandDescriptor{
		Name:        "disable",
		Brief:       "Disable a data breakpoint",
		Description: "Disable a previously added data breakpoint.",
		Usage:       "databreakpoint disable <address>",
		Data:        (*Host).cmdDataBreakpointDisable,
	})

	root.add(cmd.CommandDescriptor{
		Name:  "disassemble",
		Brief: "Disassemble code",
		Description: "Disassemble machine code starting at the requested" +
			" address. The number of instructions to disassemble may be" +
			" specified as an option. If no address is specified, the" +
			" disassembly continues from where the last one left off.",
		Usage: "disassemble [<address>] [<lines>]",
		Data:  (*Host).cmdDisassemble,
	})
	root.add(cmd.CommandDescriptor{
		Name:  "display",
		Brief: "Show the frame buffer",
		Description: "Print the 64x32 frame buffer as text, followed by" +
			" its digest.",
		Usage: "display",
		Data:  (*Host).cmdDisplay,
	})
	root.add(cmd.CommandDescriptor{
		Name:  "keypad",
		Brief: "Show or change keypad state",
		Description: "With no arguments, list the keys that are down." +
			" Otherwise press (1) or release (0) the hexadecimal key.",
		Usage: "keypad [<key> <0|1>]",
		Data:  (*Host).cmdKeypad,
	})
	root.add(cmd.CommandDescriptor{
		Name:  "load",
		Brief: "Load a ROM file",
		Description: "Reset the CPU and load the contents of a ROM file" +
			" into memory at $200. Files ending in .gz, .xz, .zip or .7z" +
			" are decompressed first.",
		Usage: "load <filename>",
		Data:  (*Host).cmdLoad,
	})

	// Memory commands
	me := root.addGroup(cmd.TreeDescriptor{Name: "memory", Brief: "Memory commands"}, "Memory")
	me.add(cmd.CommandDescriptor{
		Name:  "dump",
		Brief: "Dump memory at address",
		Description: "Dump the contents of memory starting from the" +
			" specified address. The number of bytes to dump may be" +
			" specified as an option.",
		Usage: "memory dump [<address>] [<bytes>]",
		Data:  (*Host).cmdMemoryDump,
	})
	me.add(cmd.CommandDescriptor{
		Name:        "set",
		Brief:       "Store bytes in memory",
		Description: "Store one or more bytes starting at the address.",
		Usage:       "memory set <address> <byte> [<byte>...]",
		Data:        (*Host).cmdMemorySet,
	})

	root.add(cmd.CommandDescriptor{
		Name:        "quit",
		Brief:       "Quit the program",
		Description: "Quit the program.",
		Usage:       "quit",
		Data:        (*Host).cmdQuit,
	})
	root.add(cmd.CommandDescriptor{
		Name:  "register",
		Brief: "Display or change registers",
		Description: "Display the current contents of all CPU registers," +
			" and disassemble the instruction at the current program counter" +
			" address. With a register name and value, change the register." +
			" Register names are V0-VF, I, PC, SP, DT and ST.",
		Usage: "register [<name> <value>]",
		Data:  (*Host).cmdRegister,
	})
	root.add(cmd.CommandDescriptor{
		Name:  "reset",
		Brief: "Reset the CPU",
		Description: "Return the CPU to its power-on state and reload the" +
			" most recently loaded ROM.",
		Usage: "reset",
		Data:  (*Host).cmdReset,
	})
	root.add(cmd.CommandDescriptor{
		Name:  "run",
		Brief: "Run the CPU",
		Description: "Run the CPU one 60Hz frame at a time until a" +
			" breakpoint is hit, the frame count is reached or the user" +
			" types Ctrl-C.",
		Usage: "run [<frames>]",
		Data:  (*Host).cmdRun,
	})
	root.add(cmd.CommandDescriptor{
		Name:  "set",
		Brief: "Set a configuration variable",
		Description: "Set the value of a configuration variable. Type the set" +
			" command without a variable name or value to display the current" +
			" values of all configuration variables.",
		Usage: "set [<var> <value>]",
		Data:  (*Host).cmdSet,
	})

	// Step commands
	st := root.addGroup(cmd.TreeDescriptor{Name: "step", Brief: "Step the debugger"}, "Step")
	st.add(cmd.CommandDescriptor{
		Name:  "in",
		Brief: "Step into next instruction",
		Description: "Step the CPU by a single instruction. If the" +
			" instruction is a subroutine call, step into the subroutine." +
			" The number of steps may be specified as an option.",
		Usage: "step in [<count>]",
		Data:  (*Host).cmdStepIn,
	})
	st.add(cmd.CommandDescriptor{
		Name:  "over",
		Brief: "Step over next instruction",
		Description: "Step the CPU by a single instruction. If the" +
			" instruction is a subroutine call, run until the" +
			" subroutine returns. The number of steps may be specified" +
			" as an option.",
		Usage: "step over [<count>]",
		Data:  (*Host).cmdStepOver,
	})

	root.add(cmd.CommandDescriptor{
		Name:  "tick",
		Brief: "Tick the timers",
		Description: "Decrement the delay and sound timers as if the given" +
			" number of 60Hz ticks had elapsed.",
		Usage: "tick [<count>]",
		Data:  (*Host).cmdTick,
	})

	// Add command shortcuts.
	root.tree.AddShortcut("?", "help")
	root.tree.AddShortcut("b", "breakpoint")
	root.tree.AddShortcut("ba", "breakpoint add")
	root.tree.AddShortcut("br", "breakpoint remove")
	root.tree.AddShortcut("bl", "breakpoint list")
	root.tree.AddShortcut("be", "breakpoint enable")
	root.tree.AddShortcut("bd", "breakpoint disable")
	root.tree.AddShortcut("d", "disassemble")
	root.tree.AddShortcut("db", "databreakpoint")
	root.tree.AddShortcut("dbl", "databreakpoint list")
	root.tree.AddShortcut("dba", "databreakpoint add")
	root.tree.AddShortcut("dbr", "databreakpoint remove")
	root.tree.AddShortcut("dbe", "databreakpoint enable")
	root.tree.AddShortcut("dbd", "databreakpoint disable")
	root.tree.AddShortcut("k", "keypad")
	root.tree.AddShortcut("m", "memory dump")
	root.tree.AddShortcut("ms", "memory set")
	root.tree.AddShortcut("r", "register")
	root.tree.AddShortcut("s", "step over")
	root.tree.AddShortcut("si", "step in")
	root.tree.AddShortcut(".", "register")

	rootGroup = root
	cmds = root.tree
}
