// Package debugger implements the text command set from spec.md's
// debugger CLI, directly grounded on original_source/debugger-chip8's
// Chip8Debugger: a breakpoint set plus a table of named commands, each
// taking a fixed argument-count range, dispatched against a
// github.com/massung/chip8vm/internal/chip8.CPU.
package debugger

import (
	"encoding/gob"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/massung/chip8vm/internal/chip8"
)

// Command names mirror spec.md's debugger CLI command list, plus
// load_state, which restores a file written by dump_memory.
const (
	CmdBacktrace  = "backtrace"
	CmdBrk        = "brk"
	CmdDisasm     = "disassemble"
	CmdDumpDisp   = "dump_display"
	CmdDumpMem    = "dump_memory"
	CmdFinish     = "finish"
	CmdGoto       = "goto"
	CmdHelp       = "help"
	CmdKeys       = "keys"
	CmdListBrk    = "listbrk"
	CmdLoadRom    = "load_rom"
	CmdLoadState  = "load_state"
	CmdMode       = "mode"
	CmdNext       = "next"
	CmdPause      = "pause"
	CmdRead       = "read"
	CmdReboot     = "reboot"
	CmdRecvKey    = "recvkey"
	CmdRegs       = "regs"
	CmdRemBrk     = "rembrk"
	CmdResume     = "resume"
	CmdSetAddr    = "setaddr"
	CmdSetReg     = "setreg"
	CmdStep       = "step"
	CmdTimers     = "timers"
	CmdToggleKey  = "toggle_key"
	CmdWrite      = "write"
)

// argc gives the inclusive [min,max] argument-count range per command,
// ported from the reference CMD_ARGC table.
var argc = map[string][2]int{
	CmdBacktrace: {0, 0},
	CmdBrk:       {1, 1},
	CmdDisasm:    {0, 1},
	CmdDumpDisp:  {1, 1},
	CmdDumpMem:   {1, 1},
	CmdFinish:    {0, 0},
	CmdGoto:      {1, 1},
	CmdHelp:      {0, 1},
	CmdKeys:      {0, 0},
	CmdListBrk:   {0, 0},
	CmdLoadRom:   {1, 1},
	CmdLoadState: {1, 1},
	CmdMode:      {0, 1},
	CmdNext:      {0, 0},
	CmdPause:     {0, 0},
	CmdRead:      {1, 1},
	CmdReboot:    {0, 0},
	CmdRecvKey:   {1, 1},
	CmdRegs:      {0, 0},
	CmdRemBrk:    {1, 1},
	CmdResume:    {0, 0},
	CmdSetAddr:   {1, 1},
	CmdSetReg:    {2, 2},
	CmdStep:      {0, 0},
	CmdTimers:    {0, 0},
	CmdToggleKey: {1, 1},
	CmdWrite:     {2, 2},
}

var helpText = map[string]string{
	CmdBacktrace: "backtrace - display the current call stack",
	CmdBrk:       "brk <x> - halt when PC reaches <x>",
	CmdDisasm:    "disassemble [x] - disassemble the instruction at <x> or PC",
	CmdDumpDisp:  "dump_display <file> - write the screen contents to a file",
	CmdDumpMem:   "dump_memory <file> - write a gob-encoded save-state (memory, registers, display) to <file>",
	CmdFinish:    "finish - run until the current function returns",
	CmdGoto:      "goto <x> - set PC to <x>",
	CmdHelp:      "help [cmd] - display help text for <cmd> or all commands",
	CmdKeys:      "keys - display currently held keys",
	CmdListBrk:   "listbrk - list all breakpoints",
	CmdLoadRom:   "load_rom <file> - load a new ROM <file>, resetting the emulator",
	CmdLoadState: "load_state <file> - restore a gob-encoded save-state written by dump_memory",
	CmdMode:      "mode [mode] - query the current emulation mode or change it to <mode>",
	CmdNext:      "next - step over a CALL without descending into it",
	CmdPause:     "pause - pause execution",
	CmdRead:      "read <x> - read byte at memory <x> and display it",
	CmdReboot:    "reboot - shut down and reboot the CPU, unloading the ROM",
	CmdRecvKey:   "recvkey <key> - press and release <key>",
	CmdRegs:      "regs - dump all registers",
	CmdRemBrk:    "rembrk <x> - remove the breakpoint at <x>",
	CmdResume:    "resume - start or continue execution",
	CmdSetAddr:   "setaddr <x> - set the address register to <x>",
	CmdSetReg:    "setreg <x> <y> - set register <x> to byte <y>",
	CmdStep:      "step - execute only the next instruction",
	CmdTimers:    "timers - display the current timer status",
	CmdToggleKey: "toggle_key <key> - toggle holding a key down",
	CmdWrite:     "write <x> <y> - write byte <y> to memory <x>",
}

var commandOrder = []string{
	CmdBacktrace, CmdBrk, CmdDisasm, CmdDumpDisp, CmdDumpMem, CmdFinish,
	CmdGoto, CmdHelp, CmdKeys, CmdListBrk, CmdLoadRom, CmdLoadState, CmdMode, CmdNext,
	CmdPause, CmdRead, CmdReboot, CmdRecvKey, CmdRegs, CmdRemBrk, CmdResume,
	CmdSetAddr, CmdSetReg, CmdStep, CmdTimers, CmdToggleKey, CmdWrite,
}

// Debugger owns the breakpoint set and pause state around a CPU. It does
// not own the CPU itself — callers pass it in to each method, the same
// way the reference implementation's Chip8Debugger methods take &mut CPU.
type Debugger struct {
	breaks map[uint16]struct{}
	paused bool
	hasROM bool
}

func New() *Debugger {
	return &Debugger{breaks: map[uint16]struct{}{}, paused: true}
}

// Execute parses and runs one command line against cpu, returning the
// command's textual result.
func (d *Debugger) Execute(cpu *chip8.CPU, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	cmd := fields[0]
	args := fields[1:]

	rng, ok := argc[cmd]
	if !ok {
		return "", fmt.Errorf("unknown command %q; for help, use `help`", cmd)
	}
	if len(args) < rng[0] {
		return "", fmt.Errorf("expected %d more arguments for %q; for help, use `help`", rng[0]-len(args), cmd)
	}
	if len(args) > rng[1] {
		return "", fmt.Errorf("too many arguments to %q; expected %d, received %d", cmd, rng[1], len(args))
	}

	switch cmd {
	case CmdBacktrace:
		return d.backtrace(cpu)
	case CmdBrk:
		return d.brk(args)
	case CmdDisasm:
		return d.disassemble(cpu, args)
	case CmdDumpDisp:
		return d.dumpDisplay(cpu, args)
	case CmdDumpMem:
		return d.dumpMemory(cpu, args)
	case CmdFinish:
		return d.finish(cpu)
	case CmdGoto:
		return d.goTo(cpu, args)
	case CmdHelp:
		return d.help(args)
	case CmdKeys:
		return d.keys(cpu)
	case CmdListBrk:
		return d.listBrk()
	case CmdLoadRom:
		return d.loadROM(cpu, args)
	case CmdLoadState:
		return d.loadState(cpu, args)
	case CmdMode:
		return d.mode(cpu, args)
	case CmdNext:
		return d.next(cpu)
	case CmdPause:
		d.paused = true
		return "", nil
	case CmdRead:
		return d.read(cpu, args)
	case CmdReboot:
		return d.reboot(cpu)
	case CmdRecvKey:
		return d.recvKey(cpu, args)
	case CmdRegs:
		return d.regs(cpu), nil
	case CmdRemBrk:
		return d.remBrk(args)
	case CmdResume:
		d.paused = false
		return "", nil
	case CmdSetAddr:
		return d.setAddr(cpu, args)
	case CmdSetReg:
		return d.setReg(cpu, args)
	case CmdStep:
		return "", d.step(cpu)
	case CmdTimers:
		return d.timers(cpu), nil
	case CmdToggleKey:
		return d.toggleKey(cpu, args)
	case CmdWrite:
		return d.write(cpu, args)
	}
	return "", fmt.Errorf("unhandled command %q", cmd)
}

// ParseInt parses a debugger numeric literal: "#" hex, "0x"/"0X" hex,
// "0b"/"0B" binary, decimal, or a leading "-" for two's-complement
// negation — ported directly from the reference parse_int.
func ParseInt(src string, bits int) (uint64, error) {
	if strings.HasPrefix(src, "-") {
		v, err := ParseInt(src[1:], bits)
		if err != nil {
			return 0, err
		}
		mask := uint64(1)<<uint(bits-1)
		if v&mask != 0 {
			return 0, fmt.Errorf("number too small to fit in %d bits", bits)
		}
		limit := uint64(1) << uint(bits)
		return (limit - v) % limit, nil
	}
	switch {
	case strings.HasPrefix(src, "#"):
		return strconv.ParseUint(src[1:], 16, bits)
	case strings.HasPrefix(src, "0x") || strings.HasPrefix(src, "0X"):
		return strconv.ParseUint(src[2:], 16, bits)
	case strings.HasPrefix(src, "0b") || strings.HasPrefix(src, "0B"):
		return strconv.ParseUint(src[2:], 2, bits)
	default:
		return strconv.ParseUint(src, 10, bits)
	}
}

func (d *Debugger) backtrace(cpu *chip8.CPU) (string, error) {
	var out strings.Builder
	for i := cpu.SP - 1; i >= 0; i-- {
		fmt.Fprintf(&out, "0x%04X\n", cpu.Stack[i])
	}
	return out.String(), nil
}

func (d *Debugger) brk(args []string) (string, error) {
	v, err := ParseInt(args[0], 16)
	if err != nil {
		return "", err
	}
	d.breaks[uint16(v)] = struct{}{}
	return "", nil
}

func (d *Debugger) disassemble(cpu *chip8.CPU, args []string) (string, error) {
	addr := cpu.PC
	if len(args) > 0 {
		v, err := ParseInt(args[0], 16)
		if err != nil {
			return "", err
		}
		addr = uint16(v)
	}
	return cpu.Disassemble(addr), nil
}

// dumpDisplay writes the current framebuffer to a PNG file, using the
// same palette ToBuffer feeds the desktop shell's texture.
func (d *Debugger) dumpDisplay(cpu *chip8.CPU, args []string) (string, error) {
	w, h := cpu.Display.Resolution()
	buf := cpu.Display.ToBuffer(1, 1, cpu.Mode == chip8.XoChip)

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, px := range buf {
		img.Set(i%w, i/w, color.RGBA{
			R: byte(px >> 16),
			G: byte(px >> 8),
			B: byte(px),
			A: 0xFF,
		})
	}

	f, err := os.Create(args[0])
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return "", err
	}
	return "", nil
}

// dumpMemory gob-encodes a full save-state snapshot to a file — the
// round-trippable format spec.md's "dump_memory" is specified against,
// not a raw memory image.
func (d *Debugger) dumpMemory(cpu *chip8.CPU, args []string) (string, error) {
	f, err := os.Create(args[0])
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(cpu.SaveState()); err != nil {
		return "", err
	}
	return "", nil
}

// loadState restores a CPU from a gob-encoded save-state file produced by
// dump_memory.
func (d *Debugger) loadState(cpu *chip8.CPU, args []string) (string, error) {
	f, err := os.Open(args[0])
	if err != nil {
		return "", err
	}
	defer f.Close()
	var s chip8.State
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return "", err
	}
	cpu.LoadState(s)
	d.hasROM = cpu.HasROM()
	return "", nil
}

// finish steps until PC reaches the RET that returns from the call depth
// at invocation, and stops there without executing that RET, mirroring the
// reference implementation's nested-call tracking over raw RET/CALL
// opcodes rather than a generic stack-depth counter.
func (d *Debugger) finish(cpu *chip8.CPU) (string, error) {
	nested := 0
	cycles := 0
	for {
		word, err := cpu.PeekWord(cpu.PC)
		if err != nil {
			return "", err
		}
		if word == 0x00EE {
			if nested == 0 {
				break
			}
			nested--
		} else if word&0xF000 == 0x2000 {
			nested++
		}
		if err := cpu.Step(); err != nil {
			return "", err
		}
		cycles++
	}
	return fmt.Sprintf("stepped %d cycles before returning\n", cycles), nil
}

func (d *Debugger) goTo(cpu *chip8.CPU, args []string) (string, error) {
	v, err := ParseInt(args[0], 16)
	if err != nil {
		return "", err
	}
	cpu.PC = uint16(v)
	return "", nil
}

func (d *Debugger) help(args []string) (string, error) {
	if len(args) > 0 {
		text, ok := helpText[args[0]]
		if !ok {
			return "", fmt.Errorf("unknown command %q; for help, use `help`", args[0])
		}
		return text + "\n", nil
	}
	var out strings.Builder
	for _, cmd := range commandOrder {
		out.WriteString(helpText[cmd])
		out.WriteByte('\n')
	}
	return out.String(), nil
}

func (d *Debugger) keys(cpu *chip8.CPU) (string, error) {
	var out strings.Builder
	for key := 0; key < 16; key++ {
		if cpu.Keys[key] {
			fmt.Fprintf(&out, "%04X key\n", key)
		}
	}
	return out.String(), nil
}

func (d *Debugger) listBrk() (string, error) {
	if len(d.breaks) == 0 {
		return "no breakpoints\n", nil
	}
	addrs := make([]int, 0, len(d.breaks))
	for a := range d.breaks {
		addrs = append(addrs, int(a))
	}
	sort.Ints(addrs)
	var out strings.Builder
	for _, a := range addrs {
		fmt.Fprintf(&out, "0x%04X\n", a)
	}
	return out.String(), nil
}

func (d *Debugger) loadROM(cpu *chip8.CPU, args []string) (string, error) {
	buf, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	if err := cpu.LoadROM(buf); err != nil {
		return "", err
	}
	d.hasROM = true
	return "", nil
}

func (d *Debugger) mode(cpu *chip8.CPU, args []string) (string, error) {
	if len(args) == 0 {
		return cpu.Mode.String() + "\n", nil
	}
	m, ok := chip8.ParseMode(args[0])
	if !ok {
		return "", fmt.Errorf("unknown mode %q", args[0])
	}
	*cpu = *chip8.New(m, 0)
	d.hasROM = false
	d.paused = true
	return "", nil
}

// next steps over a CALL instead of descending into it: it executes the
// CALL, then sets a one-shot breakpoint at the instruction immediately
// following it (pc+2) and runs until execution returns there — mirroring
// the teacher's StepOverBreakpoint. If the instruction at PC is not a
// CALL, next behaves exactly like step.
func (d *Debugger) next(cpu *chip8.CPU) (string, error) {
	word, err := cpu.PeekWord(cpu.PC)
	if err != nil {
		return "", err
	}
	if word&0xF000 != 0x2000 {
		return "", cpu.Step()
	}

	target := cpu.PC + 2
	if err := cpu.Step(); err != nil {
		return "", err
	}
	for cpu.PC != target {
		if _, hit := d.breaks[cpu.PC]; hit {
			return "", chip8.Breakpoint{Address: cpu.PC}
		}
		if err := cpu.Step(); err != nil {
			return "", err
		}
	}
	return "", nil
}

func (d *Debugger) read(cpu *chip8.CPU, args []string) (string, error) {
	v, err := ParseInt(args[0], 16)
	if err != nil {
		return "", err
	}
	if int(v) >= len(cpu.Memory) {
		return "", chip8.OutOfBounds{Address: uint(v)}
	}
	return fmt.Sprintf("0x%02X", cpu.Memory[v]), nil
}

func (d *Debugger) reboot(cpu *chip8.CPU) (string, error) {
	*cpu = *chip8.New(cpu.Mode, 0)
	d.hasROM = false
	d.paused = true
	return "", nil
}

func (d *Debugger) recvKey(cpu *chip8.CPU, args []string) (string, error) {
	v, err := ParseInt(args[0], 8)
	if err != nil {
		return "", err
	}
	if v > 0xF {
		return "", fmt.Errorf("key 0x%X out of range; must be 0x0-0xF", v)
	}
	cpu.PressKey(int(v))
	cpu.ReleaseKey(int(v))
	return "", nil
}

func (d *Debugger) regs(cpu *chip8.CPU) string {
	var out strings.Builder
	for i, v := range cpu.V {
		fmt.Fprintf(&out, "V%X = 0x%02X\n", i, v)
	}
	fmt.Fprintf(&out, "I  = 0x%04X\n", cpu.I)
	fmt.Fprintf(&out, "PC = 0x%04X\n", cpu.PC)
	fmt.Fprintf(&out, "SP = 0x%02X\n", cpu.SP)
	return out.String()
}

func (d *Debugger) remBrk(args []string) (string, error) {
	v, err := ParseInt(args[0], 16)
	if err != nil {
		return "", err
	}
	delete(d.breaks, uint16(v))
	return "", nil
}

func (d *Debugger) setAddr(cpu *chip8.CPU, args []string) (string, error) {
	v, err := ParseInt(args[0], 16)
	if err != nil {
		return "", err
	}
	cpu.I = uint16(v)
	return "", nil
}

func (d *Debugger) setReg(cpu *chip8.CPU, args []string) (string, error) {
	reg, err := ParseInt(args[0], 8)
	if err != nil {
		return "", err
	}
	if reg > 0xF {
		return "", fmt.Errorf("register 0x%X out of range; must be 0x0-0xF", reg)
	}
	val, err := ParseInt(args[1], 8)
	if err != nil {
		return "", err
	}
	cpu.V[reg] = byte(val)
	return "", nil
}

func (d *Debugger) step(cpu *chip8.CPU) error {
	return cpu.Step()
}

func (d *Debugger) timers(cpu *chip8.CPU) string {
	return fmt.Sprintf("DT = 0x%02X\nST = 0x%02X\n", cpu.GetDelayTimer(), cpu.GetSoundTimer())
}

func (d *Debugger) toggleKey(cpu *chip8.CPU, args []string) (string, error) {
	v, err := ParseInt(args[0], 8)
	if err != nil {
		return "", err
	}
	if v > 0xF {
		return "", fmt.Errorf("key 0x%X out of range; must be 0x0-0xF", v)
	}
	if cpu.Keys[v] {
		cpu.ReleaseKey(int(v))
	} else {
		cpu.PressKey(int(v))
	}
	return "", nil
}

func (d *Debugger) write(cpu *chip8.CPU, args []string) (string, error) {
	addr, err := ParseInt(args[0], 16)
	if err != nil {
		return "", err
	}
	val, err := ParseInt(args[1], 8)
	if err != nil {
		return "", err
	}
	if int(addr) >= len(cpu.Memory) {
		return "", chip8.OutOfBounds{Address: uint(addr)}
	}
	cpu.Memory[addr] = byte(val)
	return "", nil
}

// Paused reports whether the debugger is currently holding the CPU
// paused (the initial state, after pause/mode/reboot, and after
// EmulateUntilBreakpoints hits a breakpoint).
func (d *Debugger) Paused() bool { return d.paused }

// HasROM reports whether a ROM has been loaded since the last mode
// switch or reboot.
func (d *Debugger) HasROM() bool { return d.hasROM }

// NoteROMLoaded lets a host that loaded a ROM directly on the CPU (rather
// than via the load_rom command) inform the debugger.
func (d *Debugger) NoteROMLoaded() { d.hasROM = true }

// EmulateUntilBreakpoints advances cpu by dt seconds unless paused,
// stopping early (and pausing) if execution reaches a set breakpoint —
// ported directly from the reference emulate_until_breakpoints.
func (d *Debugger) EmulateUntilBreakpoints(cpu *chip8.CPU, dt float64) error {
	if d.paused {
		return nil
	}
	if !d.hasROM {
		return chip8.NoRomLoaded{}
	}
	err := cpu.EmulateForUntil(dt, func(c *chip8.CPU) (bool, error) {
		if _, hit := d.breaks[c.PC]; hit {
			return true, chip8.EarlyExitRequested{Reason: "breakpoint"}
		}
		return false, nil
	})
	if err == nil {
		return nil
	}
	if _, ok := err.(chip8.EarlyExitRequested); ok {
		d.paused = true
		return chip8.Breakpoint{Address: cpu.PC}
	}
	return err
}
