// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"strings"

	"github.com/beevik/cmd"
	"github.com/beevik/prefixtree/v2"
)

// A command is stored as the data of each command tree entry.
type command struct {
	name        string // full name, e.g. "breakpoint add"
	brief       string
	description string
	usage       string
	run         func(h *Host, c cmd.Selection) error
}

// A group mirrors a level of the command tree so that help can list it.
type group struct {
	tree     *cmd.Tree
	name     string
	brief    string
	commands []*command
	groups   []*group
}

func (g *group) add(d cmd.CommandDescriptor, run func(h *Host, c cmd.Selection) error) {
	c := &command{
		name:        strings.TrimSpace(g.name + " " + d.Name),
		brief:       d.Brief,
		description: d.Description,
		usage:       d.Usage,
		run:         run,
	}
	d.Data = c
	g.tree.AddCommand(d)
	g.commands = append(g.commands, c)
}

func (g *group) subgroup(name, brief string) *group {
	s := &group{
		tree:  g.tree.AddSubtree(cmd.TreeDescriptor{Name: name, Brief: brief}),
		name:  name,
		brief: brief,
	}
	g.groups = append(g.groups, s)
	groupTree.Add(name, s)
	return s
}

var (
	cmds      *cmd.Tree
	rootGroup *group
	groupTree = prefixtree.New[*group]()
)

func init() {
	root := &group{tree: cmd.NewTree(cmd.TreeDescriptor{Name: "goasm64"})}

	root.add(cmd.CommandDescriptor{
		Name:        "help",
		Description: "Display help for a command.",
		Usage:       "help [<command>]",
	}, (*Host).cmdHelp)

	// Assemble commands
	as := root.subgroup("assemble", "Assemble commands")
	as.add(cmd.CommandDescriptor{
		Name:  "file",
		Brief: "Assemble a file and load it into memory",
		Description: "Run the assembler on the specified file, producing" +
			" a listing file, a binary file and a source map file if" +
			" successful. The machine code is then loaded into memory at" +
			" the origin address. If you want verbose output, specify true" +
			" as a second parameter.",
		Usage: "assemble file <filename> [<verbose>]",
	}, (*Host).cmdAssembleFile)
	as.add(cmd.CommandDescriptor{
		Name:  "line",
		Brief: "Assemble a single instruction",
		Description: "Assemble one instruction or pseudo-instruction and" +
			" display the words it encodes to. Label operands cannot be" +
			" used.",
		Usage: "assemble line <instruction>",
	}, (*Host).cmdAssembleLine)

	// Breakpoint commands
	bp := root.subgroup("breakpoint", "Breakpoint commands")
	bp.add(cmd.CommandDescriptor{
		Name:        "list",
		Brief:       "List breakpoints",
		Description: "List all current breakpoints.",
		Usage:       "breakpoint list",
	}, (*Host).cmdBreakpointList)
	bp.add(cmd.CommandDescriptor{
		Name:  "add",
		Brief: "Add a breakpoint",
		Description: "Add a breakpoint at the specified address." +
			" The breakpoint starts enabled.",
		Usage: "breakpoint add <address>",
	}, (*Host).cmdBreakpointAdd)
	bp.add(cmd.CommandDescriptor{
		Name:        "remove",
		Brief:       "Remove a breakpoint",
		Description: "Remove a breakpoint at the specified address.",
		Usage:       "breakpoint remove <address>",
	}, (*Host).cmdBreakpointRemove)
	bp.add(cmd.CommandDescriptor{
		Name:        "enable",
		Brief:       "Enable a breakpoint",
		Description: "Enable a previously added breakpoint.",
		Usage:       "breakpoint enable <address>",
	}, (*Host).cmdBreakpointEnable)
	bp.add(cmd.CommandDescriptor{
		Name:  "disable",
		Brief: "Disable a breakpoint",
		Description: "Disable a previously added breakpoint. This" +
			" prevents the breakpoint from being hit when running the" +
			" CPU.",
		Usage: "breakpoint disable <address>",
	}, (*Host).cmdBreakpointDisable)

	// Data breakpoint commands
	db := root.subgroup("databreakpoint", "Data breakpoint commands")
	db.add(cmd.CommandDescriptor{
		Name:        "list",
		Brief:       "List data breakpoints",
		Description: "List all current data breakpoints.",
		Usage:       "databreakpoint list",
	}, (*Host).cmdDataBreakpointList)
	db.add(cmd.CommandDescriptor{
		Name:  "add",
		Brief: "Add a data breakpoint",
		Description: "Add a new data breakpoint at the specified" +
			" memory address. When the CPU stores a data word at this" +
			" address, the breakpoint will stop the CPU. Optionally, a" +
			" value may be specified, and the CPU will stop only when" +
			" this value is stored.",
		Usage: "databreakpoint add <address> [<value>]",
	}, (*Host).cmdDataBreakpointAdd)
	db.add(cmd.CommandDescriptor{
		Name:        "remove",
		Brief:       "Remove a data breakpoint",
		Description: "Remove a previously added data breakpoint.",
		Usage:       "databreakpoint remove <address>",
	}, (*Host).cmdDataBreakpointRemove)

	root.add(cmd.CommandDescriptor{
		Name:  "decode",
		Brief: "Decode an instruction word",
		Description: "Display the fields of a 32-bit instruction word and" +
			" its disassembly.",
		Usage: "decode <word>",
	}, (*Host).cmdDecode)
	root.add(cmd.CommandDescriptor{
		Name:  "disassemble",
		Brief: "Disassemble code",
		Description: "Disassemble machine code starting at the requested" +
			" address. The number of instruction lines to disassemble may be" +
			" specified as an option. If no address is specified, the" +
			" disassembly continues from where the last disassembly left off.",
		Usage: "disassemble [<address>] [<lines>]",
	}, (*Host).cmdDisassemble)
	root.add(cmd.CommandDescriptor{
		Name:  "evaluate",
		Brief: "Evaluate an expression",
		Description: "Evaluate a mathematical expression. Registers, pc and" +
			" labels such as :loop may be used.",
		Usage: "evaluate <expression>",
	}, (*Host).cmdEvaluate)
	root.add(cmd.CommandDescriptor{
		Name:  "list",
		Brief: "List source code lines",
		Description: "List the source code corresponding to the machine code" +
			" at the specified address. A file must have been assembled or" +
			" loaded with its source map.",
		Usage: "list [<address>] [<lines>]",
	}, (*Host).cmdList)
	root.add(cmd.CommandDescriptor{
		Name:  "expanded",
		Brief: "Display the expanded listing",
		Description: "Display the expanded assembly listing of the most" +
			" recently assembled file.",
		Usage: "expanded",
	}, (*Host).cmdListing)
	root.add(cmd.CommandDescriptor{
		Name:  "load",
		Brief: "Load a binary file",
		Description: "Load the contents of a binary file into memory. If" +
			" the file has an associated source map, it will be loaded too" +
			" and supplies the load address. Otherwise the address must be" +
			" given.",
		Usage: "load <filename> [<address>]",
	}, (*Host).cmdLoad)

	// Memory commands
	me := root.subgroup("memory", "Memory commands")
	me.add(cmd.CommandDescriptor{
		Name:  "dump",
		Brief: "Dump memory at address",
		Description: "Dump the contents of memory starting from the" +
			" specified address. The number of bytes to dump may be" +
			" specified as an option. If no address is specified, the" +
			" memory dump continues from where the last dump left off.",
		Usage: "memory dump [<address>] [<bytes>]",
	}, (*Host).cmdMemoryDump)
	me.add(cmd.CommandDescriptor{
		Name:  "set",
		Brief: "Set memory at address",
		Description: "Store a series of space-separated 64-bit data words" +
			" starting at the specified address. Each value may be an" +
			" expression.",
		Usage: "memory set <address> <value> [<value> ...]",
	}, (*Host).cmdMemorySet)

	root.add(cmd.CommandDescriptor{
		Name:  "port",
		Brief: "Set an input port value",
		Description: "Set the value returned when the CPU reads the" +
			" specified port with the in instruction. Without arguments," +
			" display the last value written to each output port.",
		Usage: "port [<port> <value>]",
	}, (*Host).cmdPort)
	root.add(cmd.CommandDescriptor{
		Name:        "quit",
		Brief:       "Quit the program",
		Description: "Quit the program.",
		Usage:       "quit",
	}, (*Host).cmdQuit)
	root.add(cmd.CommandDescriptor{
		Name:  "register",
		Brief: "View or change register values",
		Description: "When used without arguments, this command displays the" +
			" contents of the CPU registers. When used with arguments, it" +
			" changes the value of a register. Allowed register names are" +
			" r0 through r31, sp and pc.",
		Usage: "register [<name> <value>]",
	}, (*Host).cmdRegister)
	root.add(cmd.CommandDescriptor{
		Name:  "reset",
		Brief: "Reset the CPU",
		Description: "Clear all registers, reset the stack pointer and set" +
			" the program counter to the origin of the last loaded code.",
		Usage: "reset",
	}, (*Host).cmdReset)
	root.add(cmd.CommandDescriptor{
		Name:  "run",
		Brief: "Run the CPU",
		Description: "Run the CPU until it halts, a breakpoint is hit, the" +
			" MaxSteps limit is reached or the user types Ctrl-C.",
		Usage: "run [<address>]",
	}, (*Host).cmdRun)
	root.add(cmd.CommandDescriptor{
		Name:  "set",
		Brief: "Set a configuration variable",
		Description: "Set the value of a configuration variable. To see the" +
			" current values of all configuration variables, type set" +
			" without any arguments.",
		Usage: "set [<var> <value>]",
	}, (*Host).cmdSet)

	// Step commands
	st := root.subgroup("step", "Step the debugger")
	st.add(cmd.CommandDescriptor{
		Name:  "in",
		Brief: "Step into next instruction",
		Description: "Step the CPU by a single instruction. If the" +
			" instruction is a call, step into the subroutine." +
			" The number of steps may be specified as an option.",
		Usage: "step in [<count>]",
	}, (*Host).cmdStepIn)
	st.add(cmd.CommandDescriptor{
		Name:  "over",
		Brief: "Step over next instruction",
		Description: "Step the CPU by a single instruction. If the" +
			" instruction is a call, step over the subroutine." +
			" The number of steps may be specified as an option.",
		Usage: "step over [<count>]",
	}, (*Host).cmdStepOver)

	root.add(cmd.CommandDescriptor{
		Name:  "symbols",
		Brief: "List label addresses",
		Description: "Display every label defined by the most recently" +
			" assembled or loaded file along with its address.",
		Usage: "symbols",
	}, (*Host).cmdSymbols)

	// Add command shortcuts.
	root.tree.AddShortcut("a", "assemble file")
	root.tree.AddShortcut("al", "assemble line")
	root.tree.AddShortcut("b", "breakpoint")
	root.tree.AddShortcut("bp", "breakpoint")
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
	root.tree.AddShortcut("e", "evaluate")
	root.tree.AddShortcut("l", "list")
	root.tree.AddShortcut("m", "memory dump")
	root.tree.AddShortcut("ms", "memory set")
	root.tree.AddShortcut("r", "register")
	root.tree.AddShortcut("s", "step over")
	root.tree.AddShortcut("si", "step in")
	root.tree.AddShortcut("?", "help")
	root.tree.AddShortcut(".", "register")

	cmds = root.tree
	rootGroup = root
}
