// Copyright 2018 Brett Vickers.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host allows you to create a "host" that emulates a computer system
// with the 64-bit register machine, a sparse 64-bit address space, a
// built-in assembler, a built-in debugger, and other useful tools.
//
// Within the host it is possible to assemble and load machine code into
// memory, inspect the expanded listing and symbol table, debug and step
// through machine code, set address and data breakpoints, dump the contents
// of memory, disassemble the contents of memory, manipulate CPU registers
// and memory, and evaluate arbitrary expressions.
package host

import (
	"bufio"
	"bytes"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/beevik/cmd"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/beevik/goasm64/asm"
	"github.com/beevik/goasm64/cpu"
	"github.com/beevik/goasm64/disasm"
	"github.com/beevik/goasm64/isa"
)

type displayFlags uint8

const (
	displayLabels displayFlags = 1 << iota
	displaySteps

	displayAll = displayLabels | displaySteps
)

type state byte

const (
	stateProcessingCommands state = iota
	stateRunning
	stateBreakpoint
	stateStepOverBreakpoint
)

var errQuit = errors.New("Exiting program")

// A Host represents a fully emulated system: the CPU, a sparse 64-bit
// memory, a built-in assembler, a built-in debugger, and other useful
// tools.
type Host struct {
	input       *bufio.Scanner
	output      *bufio.Writer
	interactive bool
	mem         *cpu.SparseMemory
	cpu         *cpu.CPU
	debugger    *cpu.Debugger
	handler     *debugHandler
	lastCmd     *cmd.Selection
	state       state
	exprParser  *exprParser
	assembly    *asm.Assembly
	sourceMap   *asm.SourceMap
	source      []string          // lines of the source file named by the source map
	origin      uint64            // load address of the current code
	inPorts     map[uint64]uint64 // values returned by the in instruction
	outPorts    map[uint64]uint64 // last values written by the out instruction
	settings    *settings
}

// New creates a new host environment.
func New() *Host {
	h := &Host{
		output:     bufio.NewWriter(os.Stdout),
		state:      stateProcessingCommands,
		exprParser: newExprParser(),
		settings:   newSettings(),
		inPorts:    make(map[uint64]uint64),
		outPorts:   make(map[uint64]uint64),
	}
	h.origin = h.settings.Origin

	// Create the emulated CPU and memory.
	h.mem = cpu.NewSparseMemory()
	h.cpu = cpu.NewCPU(h.mem, h.settings.byteOrder())
	h.cpu.Ports = &hostPorts{h}
	h.cpu.SetPC(h.origin)

	// Create a CPU debugger and attach it to the CPU.
	h.handler = newDebugHandler(h)
	h.debugger = cpu.NewDebugger(h.handler)
	h.cpu.AttachDebugger(h.debugger)

	return h
}

// RunCommands accepts host commands from a reader and outputs the results
// to a writer. If the commands are interactive, a prompt is displayed while
// the host waits for the the next command to be entered.
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
		if line != "" {
			c, err = cmds.Lookup(line)
			switch {
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

		if c.Command == nil {
			continue
		}
		h.lastCmd = &c

		command := c.Command.Data.(*command)
		err = command.run(h, c)
		h.flush()
		if err != nil {
			break
		}
	}
}

// AssembleFile assembles a file from disk, writing its listing, binary
// and source map next to it, and loads the machine code into memory.
func (h *Host) AssembleFile(filename string) error {
	return h.assembleFile(filename, h.settings.Verbose)
}

// Break interrupts a running CPU.
func (h *Host) Break() {
	h.println()

	if h.state == stateRunning {
		h.displayPC()
	}
	if h.state == stateProcessingCommands {
		h.prompt()
	}
	h.state = stateProcessingCommands
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
		return strings.TrimSpace(h.input.Text()), nil
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

func (h *Host) cmdAssembleFile(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c.Command)
		return nil
	}

	verbose := h.settings.Verbose
	if len(c.Args) >= 2 {
		v, err := stringToBool(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		verbose = v
	}

	if err := h.assembleFile(c.Args[0], verbose); err != nil {
		h.printf("%v\n", err)
	}
	return nil
}

func (h *Host) assembleFile(filename string, verbose bool) error {
	if filepath.Ext(filename) == "" {
		filename += ".asm"
	}

	ext := filepath.Ext(filename)
	prefix := filename[:len(filename)-len(ext)]
	out := asm.Outputs{
		Listing:   prefix + ".lst",
		Binary:    prefix + ".bin",
		SourceMap: prefix + ".map",
	}

	assembly, err := asm.AssembleFile(filename, out, h.asmConfig(verbose))
	if err != nil {
		return errors.Wrapf(err, "failed to assemble '%s'", filepath.Base(filename))
	}

	h.printf("Assembled '%s' to '%s'.\n", filepath.Base(filename), filepath.Base(out.Binary))
	h.assembly = assembly
	h.loadCode(assembly.Origin, assembly.Code, assembly.SourceMap())
	return nil
}

func (h *Host) cmdAssembleLine(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c.Command)
		return nil
	}

	src := "\t" + strings.Join(c.Args, " ")
	assembly, err := asm.Assemble(strings.NewReader(src), "line", h.asmConfig(false))
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	order := h.settings.byteOrder()
	addr := assembly.Origin
	for i := 0; i < len(assembly.Code); i += isa.WordSize {
		w := order.Uint32(assembly.Code[i:])
		h.printf("%08X-  %08X    %s\n", addr, w, disasm.Disassemble(w))
		addr += isa.WordSize
	}
	return nil
}

func (h *Host) cmdBreakpointList(c cmd.Selection) error {
	h.println("Addr      Enabled")
	h.println("--------- -------")
	for _, b := range h.debugger.GetBreakpoints() {
		h.printf("$%08X %v\n", b.Address, !b.Disabled)
	}
	return nil
}

func (h *Host) cmdBreakpointAdd(c cmd.Selection) error {
	addr, ok := h.addressArg(c)
	if !ok {
		return nil
	}

	h.debugger.AddBreakpoint(addr)
	h.printf("Breakpoint added at $%08X.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointRemove(c cmd.Selection) error {
	addr, ok := h.addressArg(c)
	if !ok {
		return nil
	}

	if h.debugger.GetBreakpoint(addr) == nil {
		h.printf("No breakpoint was set on $%08X.\n", addr)
		return nil
	}

	h.debugger.RemoveBreakpoint(addr)
	h.printf("Breakpoint at $%08X removed.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointEnable(c cmd.Selection) error {
	return h.enableBreakpoint(c, true)
}

func (h *Host) cmdBreakpointDisable(c cmd.Selection) error {
	return h.enableBreakpoint(c, false)
}

func (h *Host) enableBreakpoint(c cmd.Selection, enable bool) error {
	addr, ok := h.addressArg(c)
	if !ok {
		return nil
	}

	b := h.debugger.GetBreakpoint(addr)
	if b == nil {
		h.printf("No breakpoint was set on $%08X.\n", addr)
		return nil
	}

	b.Disabled = !enable
	if enable {
		h.printf("Breakpoint at $%08X enabled.\n", addr)
	} else {
		h.printf("Breakpoint at $%08X disabled.\n", addr)
	}
	return nil
}

func (h *Host) cmdDataBreakpointList(c cmd.Selection) error {
	h.println("Addr      Enabled  Value")
	h.println("--------- -------  -----")
	for _, b := range h.debugger.GetDataBreakpoints() {
		if b.Conditional {
			h.printf("$%08X %-5v    0x%X\n", b.Address, !b.Disabled, b.Value)
		} else {
			h.printf("$%08X %-5v    <none>\n", b.Address, !b.Disabled)
		}
	}
	return nil
}

func (h *Host) cmdDataBreakpointAdd(c cmd.Selection) error {
	addr, ok := h.addressArg(c)
	if !ok {
		return nil
	}

	if len(c.Args) > 1 {
		value, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.debugger.AddConditionalDataBreakpoint(addr, value)
		h.printf("Conditional data breakpoint added at $%08X for value 0x%X.\n", addr, value)
		return nil
	}

	h.debugger.AddDataBreakpoint(addr)
	h.printf("Data breakpoint added at $%08X.\n", addr)
	return nil
}

func (h *Host) cmdDataBreakpointRemove(c cmd.Selection) error {
	addr, ok := h.addressArg(c)
	if !ok {
		return nil
	}

	if h.debugger.GetDataBreakpoint(addr) == nil {
		h.printf("No data breakpoint was set on $%08X.\n", addr)
		return nil
	}

	h.debugger.RemoveDataBreakpoint(addr)
	h.printf("Data breakpoint at $%08X removed.\n", addr)
	return nil
}

func (h *Host) cmdDecode(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c.Command)
		return nil
	}

	v, err := h.parseExpr(strings.Join(c.Args, " "))
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	w := uint32(v)
	f := isa.Decode(w)
	h.printf("%08X  opcode=$%02X rd=r%d rs=r%d rt=r%d imm=$%03X    %s\n",
		w, f.Opcode, f.Rd, f.Rs, f.Rt, f.Imm, disasm.Disassemble(w))
	return nil
}

func (h *Host) cmdDisassemble(c cmd.Selection) error {
	if len(c.Args) == 0 {
		c.Args = []string{"$"}
	}

	addr, ok := h.cursorArg(c.Args[0], h.settings.NextDisasmAddr)
	if !ok {
		return nil
	}

	lines := h.settings.DisasmLines
	if len(c.Args) > 1 {
		l, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		lines = int(l)
	}

	for i := 0; i < lines; i++ {
		d, next := h.disassemble(addr, displayLabels)
		h.println(d)
		addr = next
	}

	h.settings.NextDisasmAddr = addr
	h.lastCmd.Args = []string{"$", fmt.Sprintf("%d", lines)}
	return nil
}

func (h *Host) cmdEvaluate(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c.Command)
		return nil
	}

	v, err := h.parseExpr(strings.Join(c.Args, " "))
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	h.printf("0x%X (%d)\n", v, int64(v))
	return nil
}

func (h *Host) cmdHelp(c cmd.Selection) error {
	if len(c.Args) == 0 {
		h.displayCommands(rootGroup)
		return nil
	}

	if len(c.Args) == 1 {
		if g, err := groupTree.FindValue(c.Args[0]); err == nil {
			h.displayCommands(g)
			return nil
		}
	}

	s, err := cmds.Lookup(strings.Join(c.Args, " "))
	if err != nil || s.Command == nil {
		h.println("Command not found.")
		return nil
	}

	command := s.Command.Data.(*command)
	if command.usage != "" {
		h.printf("Syntax: %s\n\n", command.usage)
	}
	switch {
	case command.description != "":
		h.printf("Description:\n%s\n\n", indentWrap(3, command.description))
	case command.brief != "":
		h.printf("Description:\n%s.\n\n", indentWrap(3, command.brief))
	}
	return nil
}

func (h *Host) cmdList(c cmd.Selection) error {
	if h.sourceMap == nil || len(h.source) == 0 {
		h.println("No source code available.")
		return nil
	}

	if len(c.Args) == 0 {
		c.Args = []string{"$"}
	}

	addr, ok := h.cursorArg(c.Args[0], h.settings.NextSourceAddr)
	if !ok {
		return nil
	}

	lines := h.settings.SourceLines
	if len(c.Args) > 1 {
		l, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		lines = int(l)
	}

	_, line := h.sourceMap.Search(addr)
	if line < 0 {
		h.printf("No source code at $%08X.\n", addr)
		return nil
	}

	_, pcLine := h.sourceMap.Search(h.cpu.Reg.PC)
	last := min(line+lines, len(h.source)+1)
	for l := line; l < last; l++ {
		marker := " "
		if l == pcLine {
			marker = ">"
		}
		h.printf("%s%5d  %s\n", marker, l, h.source[l-1])
	}

	// Continue from the first instruction past the displayed lines.
	next := addr
	for _, sl := range h.sourceMap.Lines {
		if sl.Line >= last {
			next = sl.Address
			break
		}
	}
	h.settings.NextSourceAddr = next
	h.lastCmd.Args = []string{"$", fmt.Sprintf("%d", lines)}
	return nil
}

func (h *Host) cmdListing(c cmd.Selection) error {
	if h.assembly == nil {
		h.println("No file has been assembled.")
		return nil
	}

	if _, err := h.assembly.WriteListing(h.output); err != nil {
		h.printf("%v\n", err)
	}
	return nil
}

func (h *Host) cmdLoad(c cmd.Selection) error {
	if len(c.Args) < 1 {
		h.displayUsage(c.Command)
		return nil
	}

	filename := c.Args[0]
	if filepath.Ext(filename) == "" {
		filename += ".bin"
	}

	loadAddr := int64(-1)
	if len(c.Args) >= 2 {
		addr, err := h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		loadAddr = int64(addr)
	}

	if err := h.load(filename, loadAddr); err != nil {
		h.printf("%v\n", err)
	}
	return nil
}

func (h *Host) cmdMemoryDump(c cmd.Selection) error {
	if len(c.Args) == 0 {
		c.Args = []string{"$"}
	}

	addr, ok := h.cursorArg(c.Args[0], h.settings.NextMemDumpAddr)
	if !ok {
		return nil
	}

	bytes := uint64(h.settings.MemDumpBytes)
	if len(c.Args) >= 2 {
		var err error
		bytes, err = h.parseExpr(c.Args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
	}

	h.dumpMemory(addr, bytes)

	h.settings.NextMemDumpAddr = addr + bytes
	h.lastCmd.Args = []string{"$", fmt.Sprintf("%d", bytes)}
	return nil
}

func (h *Host) cmdMemorySet(c cmd.Selection) error {
	if len(c.Args) < 2 {
		h.displayUsage(c.Command)
		return nil
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	var buf [isa.DataSize]byte
	order := h.settings.byteOrder()
	for i, arg := range c.Args[1:] {
		v, err := h.parseExpr(arg)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		order.PutUint64(buf[:], v)
		h.mem.StoreBytes(addr+uint64(i*isa.DataSize), buf[:])
	}

	h.printf("Stored %d word(s) at $%08X.\n", len(c.Args)-1, addr)
	return nil
}

func (h *Host) cmdPort(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		ports := make([]uint64, 0, len(h.outPorts))
		for p := range h.outPorts {
			ports = append(ports, p)
		}
		sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
		for _, p := range ports {
			h.printf("port %d: 0x%X\n", p, h.outPorts[p])
		}

	case 1:
		h.displayUsage(c.Command)

	default:
		port, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		v, err := h.parseExpr(strings.Join(c.Args[1:], " "))
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.inPorts[port] = v
		h.printf("Input port %d set to 0x%X.\n", port, v)
	}
	return nil
}

func (h *Host) cmdQuit(c cmd.Selection) error {
	return errQuit
}

func (h *Host) cmdRegister(c cmd.Selection) error {
	switch len(c.Args) {
	case 0:
		h.displayRegisters()
		return nil
	case 1:
		h.displayUsage(c.Command)
		return nil
	}

	v, err := h.parseExpr(strings.Join(c.Args[1:], " "))
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	switch key := strings.ToLower(c.Args[0]); key {
	case "pc", ".":
		h.cpu.SetPC(v)
		h.printf("Register PC set to $%08X.\n", v)
	case "sp":
		h.cpu.Reg.R[isa.StackPointer] = v
		h.printf("Register SP set to $%08X.\n", v)
	default:
		r, err := asm.ParseRegister(key)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.cpu.Reg.R[r] = v
		h.printf("Register r%d set to 0x%X.\n", r, v)
	}
	return nil
}

func (h *Host) cmdReset(c cmd.Selection) error {
	h.cpu.Reg.Init()
	h.cpu.SetPC(h.origin)
	h.cpu.Halted = false
	h.cpu.Steps = 0
	h.displayPC()
	return nil
}

func (h *Host) cmdRun(c cmd.Selection) error {
	if len(c.Args) > 0 {
		pc, err := h.parseExpr(c.Args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.cpu.SetPC(pc)
	}

	h.printf("Running from $%08X. Press ctrl-C to break.\n", h.cpu.Reg.PC)

	h.state = stateRunning
	for n := uint64(0); h.state == stateRunning; n++ {
		if h.settings.MaxSteps > 0 && n == h.settings.MaxSteps {
			h.printf("Stopped after %d steps.\n", n)
			h.displayPC()
			break
		}
		h.step()
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

	case 1:
		h.displayUsage(c.Command)

	default:
		key, value := strings.ToLower(c.Args[0]), strings.Join(c.Args[1:], " ")

		var err error
		switch h.settings.Kind(key) {
		case reflect.Invalid:
			err = fmt.Errorf("Setting '%s' not found", key)
		case reflect.String:
			err = h.settings.Set(key, value)
		case reflect.Bool:
			var v bool
			v, err = stringToBool(value)
			if err == nil {
				err = h.settings.Set(key, v)
			}
		default:
			var v uint64
			v, err = h.parseExpr(value)
			if err == nil {
				err = h.settings.Set(key, v)
			}
		}

		if err == nil {
			h.printf("Setting %s updated.\n", h.settings.Name(key))
		} else {
			h.printf("%v\n", err)
		}

		h.onSettingsUpdate()
	}

	return nil
}

func (h *Host) cmdStepIn(c cmd.Selection) error {
	return h.stepCount(c, (*Host).step)
}

func (h *Host) cmdStepOver(c cmd.Selection) error {
	return h.stepCount(c, (*Host).stepOver)
}

// Step the CPU a number of times, displaying the most recent lines.
func (h *Host) stepCount(c cmd.Selection, fn func(h *Host)) error {
	count := 1
	if len(c.Args) > 0 {
		n, err := h.parseExpr(c.Args[0])
		if err == nil {
			count = int(n)
		}
	}

	h.state = stateRunning
	for i := count - 1; i >= 0 && h.state == stateRunning; i-- {
		fn(h)
		switch {
		case i == h.settings.MaxStepLines:
			h.println("...")
		case i < h.settings.MaxStepLines:
			h.displayPC()
		}
	}
	h.state = stateProcessingCommands

	h.settings.NextDisasmAddr = h.cpu.Reg.PC
	return nil
}

func (h *Host) cmdSymbols(c cmd.Selection) error {
	if h.sourceMap == nil || len(h.sourceMap.Symbols) == 0 {
		h.println("No symbols.")
		return nil
	}
	for _, s := range h.sourceMap.Symbols {
		h.printf("%-16s $%08X\n", s.Name, s.Address)
	}
	return nil
}

// Load a binary image and, if present, its source map.
func (h *Host) load(filename string, addr int64) error {
	code, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to read '%s'", filepath.Base(filename))
	}

	ext := filepath.Ext(filename)
	mapFilename := filename[:len(filename)-len(ext)] + ".map"

	var sm *asm.SourceMap
	if file, err := os.Open(mapFilename); err == nil {
		sm = &asm.SourceMap{}
		_, err = sm.ReadFrom(file)
		file.Close()
		switch {
		case err != nil:
			h.printf("Failed to read '%s': %v\n", filepath.Base(mapFilename), err)
			sm = nil
		case sm.Size != uint32(len(code)) || sm.CRC != crc32.ChecksumIEEE(code):
			h.printf("Source map '%s' does not match the binary.\n", filepath.Base(mapFilename))
			sm = nil
		}
	}

	var origin uint64
	switch {
	case addr >= 0:
		origin = uint64(addr)
	case sm != nil:
		origin = sm.Origin
	default:
		return errors.Errorf("file '%s' has no source map and requires an address",
			filepath.Base(filename))
	}

	h.assembly = nil
	h.loadCode(origin, code, sm)
	return nil
}

// Store machine code in memory and point the CPU at it.
func (h *Host) loadCode(origin uint64, code []byte, sm *asm.SourceMap) {
	h.cpu.Load(origin, code)
	h.origin = origin
	h.sourceMap = sm
	h.source = nil
	if sm != nil && len(sm.Files) > 0 {
		if b, err := os.ReadFile(sm.Files[0]); err == nil {
			h.source = strings.Split(strings.TrimRight(string(b), "\n"), "\n")
		}
	}
	h.settings.NextDisasmAddr = origin
	h.settings.NextSourceAddr = origin
	h.printf("Loaded %d bytes to $%08X..$%08X.\n", len(code), origin, origin+uint64(len(code))-1)
}

func (h *Host) step() {
	err := h.cpu.Step()
	switch {
	case errors.Is(err, cpu.ErrHalted):
		h.println("CPU is halted. Use reset to restart.")
		h.state = stateProcessingCommands
	case err != nil:
		h.printf("CPU error: %v\n", err)
		h.state = stateProcessingCommands
	case h.cpu.Halted:
		h.printf("CPU halted at $%08X after %d steps.\n", h.cpu.LastPC, h.cpu.Steps)
		h.state = stateProcessingCommands
	}
}

func (h *Host) stepOver() {
	pc := h.cpu.Reg.PC

	// Call instructions need to be handled specially.
	f := isa.Decode(h.cpu.Fetch(pc))
	if f.Opcode != isa.Lookup("call").Opcode {
		h.step()
		return
	}

	// Place a step-over breakpoint on the instruction following the call.
	// Either use an already existing breakpoint on that instruction, or
	// create a temporary one.
	next := pc + isa.WordSize
	tmpBreakpointCreated := false
	b := h.debugger.GetBreakpoint(next)
	if b == nil {
		b = h.debugger.AddBreakpoint(next)
		tmpBreakpointCreated = true
	}
	disabled := b.Disabled
	b.Disabled = false
	h.handler.stepOver = b

	// Run until interrupted.
	for h.state == stateRunning {
		h.step()
	}
	h.handler.stepOver = nil
	b.Disabled = disabled

	// If we were interrupted by the step-over breakpoint, then continue as
	// normal.
	if h.state == stateStepOverBreakpoint {
		h.state = stateRunning
	}

	// Remove the temporarily created breakpoint.
	if tmpBreakpointCreated {
		h.debugger.RemoveBreakpoint(next)
	}
}

func (h *Host) onSettingsUpdate() {
	h.cpu.Order = h.settings.byteOrder()
}

// Build an assembler configuration from the current settings.
func (h *Host) asmConfig(verbose bool) *asm.Config {
	cfg := asm.DefaultConfig()
	cfg.Origin = h.settings.Origin
	cfg.StrictDirectives = h.settings.Strict
	cfg.AllowShadowing = h.settings.Shadowing
	cfg.MaxLabels = h.settings.MaxLabels
	cfg.ByteOrder = h.settings.byteOrder()
	if verbose {
		l := logrus.New()
		l.SetOutput(h.output)
		l.SetLevel(logrus.DebugLevel)
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
		cfg.Logger = l
	}
	return cfg
}

func (h *Host) parseExpr(expr string) (uint64, error) {
	return h.exprParser.Parse(expr, h)
}

// Parse an address argument; report a usage error if it is missing.
func (h *Host) addressArg(c cmd.Selection) (uint64, bool) {
	if len(c.Args) < 1 {
		h.displayUsage(c.Command)
		return 0, false
	}

	addr, err := h.parseExpr(c.Args[0])
	if err != nil {
		h.printf("%v\n", err)
		return 0, false
	}
	return addr, true
}

// Parse an address argument that may be "$" to continue from the cursor
// or "." for the program counter.
func (h *Host) cursorArg(arg string, cursor uint64) (uint64, bool) {
	switch arg {
	case "$":
		if cursor == 0 {
			return h.cpu.Reg.PC, true
		}
		return cursor, true
	case ".":
		return h.cpu.Reg.PC, true
	}

	addr, err := h.parseExpr(arg)
	if err != nil {
		h.printf("%v\n", err)
		return 0, false
	}
	return addr, true
}

func (h *Host) disassemble(addr uint64, flags displayFlags) (str string, next uint64) {
	str, next = disasm.DisassembleMemory(h.mem, h.settings.byteOrder(), addr)
	str = fmt.Sprintf("%-40s", str)

	if (flags & displayLabels) != 0 && h.sourceMap != nil {
		if name, ok := h.sourceMap.Symbol(addr); ok {
			str += " ; :" + name
		}
	}

	if (flags & displaySteps) != 0 {
		str += fmt.Sprintf(" S=%d", h.cpu.Steps)
	}

	return strings.TrimRight(str, " "), next
}

func (h *Host) displayRegisters() {
	r := &h.cpu.Reg
	for i := 0; i < isa.NumRegisters; i += 4 {
		h.printf("r%-2d=%016X  r%-2d=%016X  r%-2d=%016X  r%-2d=%016X\n",
			i, r.R[i], i+1, r.R[i+1], i+2, r.R[i+2], i+3, r.R[i+3])
	}
	h.printf("PC =%016X  halted=%v steps=%d\n", r.PC, h.cpu.Halted, h.cpu.Steps)
}

func (h *Host) dumpMemory(addr0, n uint64) {
	if n == 0 {
		return
	}

	addr1 := addr0 + n - 1
	if addr1 < addr0 {
		addr1 = ^uint64(0)
	}

	buf := []byte("        -" + strings.Repeat(" ", 35))

	// Don't align display for short dumps.
	if addr1-addr0 < 8 {
		addrToBuf(addr0, buf[0:8])
		for a, c1, c2 := addr0, 10, 36; a <= addr1; a, c1, c2 = a+1, c1+3, c2+1 {
			m := h.mem.LoadByte(a)
			byteToBuf(m, buf[c1:c1+2])
			buf[c2] = toPrintableChar(m)
		}
		h.println(string(buf))
		return
	}

	// Align the display to 8-byte rows.
	start := addr0 &^ 7
	rows := (addr1-start)/8 + 1

	a := start
	for r := uint64(0); r < rows; r++ {
		addrToBuf(a, buf[0:8])
		for c1, c2 := 10, 36; c1 < 34; c1, c2, a = c1+3, c2+1, a+1 {
			if a >= addr0 && a <= addr1 {
				m := h.mem.LoadByte(a)
				byteToBuf(m, buf[c1:c1+2])
				buf[c2] = toPrintableChar(m)
			} else {
				buf[c1] = ' '
				buf[c1+1] = ' '
				buf[c2] = ' '
			}
		}
		h.println(string(bytes.TrimRight(buf, " ")))
	}
}

func (h *Host) displayUsage(c *cmd.Command) {
	if command := c.Data.(*command); command.usage != "" {
		h.printf("Syntax: %s\n", command.usage)
	} else {
		h.println("<no help text>")
	}
}

func (h *Host) displayCommands(g *group) {
	if g.name == "" {
		h.println("Commands:")
	} else {
		h.printf("%s commands:\n", g.name)
	}

	type entry struct{ name, brief string }
	var entries []entry
	for _, c := range g.commands {
		name := strings.TrimSpace(strings.TrimPrefix(c.name, g.name))
		entries = append(entries, entry{name, c.brief})
	}
	for _, s := range g.groups {
		entries = append(entries, entry{s.name, s.brief})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	for _, e := range entries {
		if e.brief != "" {
			h.printf("    %-15s  %s\n", e.name, e.brief)
		}
	}
}

func (h *Host) resolveIdentifier(s string) (uint64, error) {
	if strings.HasPrefix(s, ":") {
		if h.sourceMap != nil {
			for _, sym := range h.sourceMap.Symbols {
				if sym.Name == s[1:] {
					return sym.Address, nil
				}
			}
		}
		return 0, fmt.Errorf("label '%s' not found", s)
	}

	switch s = strings.ToLower(s); s {
	case ".", "pc":
		return h.cpu.Reg.PC, nil
	case "sp":
		return h.cpu.Reg.SP(), nil
	}

	if r, err := asm.ParseRegister(s); err == nil {
		return h.cpu.Reg.R[r], nil
	}
	return 0, fmt.Errorf("identifier '%s' not found", s)
}

func (h *Host) onBreakpoint(cpu *cpu.CPU, b *cpu.Breakpoint) {
	h.state = stateBreakpoint
	h.printf("Breakpoint hit at $%08X.\n", b.Address)
	h.displayPC()
}

func (h *Host) onDataBreakpoint(cpu *cpu.CPU, b *cpu.DataBreakpoint) {
	h.printf("Data breakpoint hit on address $%08X.\n", b.Address)

	h.state = stateBreakpoint

	if cpu.LastPC != cpu.Reg.PC {
		d, _ := h.disassemble(cpu.LastPC, displayAll)
		h.println(d)
	}

	h.displayPC()
}

// hostPorts services the in and out instructions.
type hostPorts struct {
	h *Host
}

func (p *hostPorts) In(port uint64) uint64 {
	return p.h.inPorts[port]
}

func (p *hostPorts) Out(port uint64, v uint64) {
	p.h.outPorts[port] = v
	p.h.printf("OUT port %d: 0x%X (%d)\n", port, v, int64(v))
}
