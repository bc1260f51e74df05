/* Copyright (c) 2017 Jeffrey Massung
 *
 * This software is provided 'as-is', without any express or implied
 * warranty.  In no event will the authors be held liable for any damages
 * arising from the use of this software.
 *
 * Permission is granted to anyone to use this software for any purpose,
 * including commercial applications, and to alter it and redistribute it
 * freely, subject to the following restrictions:
 *
 * 1. The origin of this software must not be misrepresented; you must not
 *    claim that you wrote the original software. If you use this software
 *    in a product, an acknowledgment in the product documentation would be
 *    appreciated but is not required.
 *
 * 2. Altered source versions must be plainly marked as such, and must not be
 *    misrepresented as being the original software.
 *
 * 3. This notice may not be removed or altered from any source distribution.
 */

// Command chip8dbg is a textual debugger REPL over internal/debugger,
// built with cobra the way bradford-hamilton/chippy's cmd/root.go and
// cmd/run.go wire their subcommand tree. Unlike chip8play it never
// touches SDL: its only front end is stdin/stdout.
package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/massung/chip8vm/internal/chip8"
	"github.com/massung/chip8vm/internal/debugger"
)

func main() {
	var modeFlag string
	var etiFlag bool

	root := &cobra.Command{
		Use:   "chip8dbg",
		Short: "Interactive CHIP-8/Super-CHIP/XO-CHIP debugger",
	}
	root.PersistentFlags().StringVar(&modeFlag, "mode", "cosmac", "interpreter mode: cosmac, super-chip, xo-chip")
	root.PersistentFlags().BoolVar(&etiFlag, "eti", false, "load the ROM at 0x600 (ETI-660 layout)")

	repl := &cobra.Command{
		Use:   "repl [rom]",
		Short: "Start an interactive debugger session, optionally loading a ROM",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(modeFlag, etiFlag, args)
		},
	}

	run := &cobra.Command{
		Use:   "run <rom>",
		Short: "Run a ROM non-interactively until it exits (or a step limit is reached) and print final registers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(modeFlag, etiFlag, args[0])
		},
	}

	root.AddCommand(repl, run)
	root.RunE = repl.RunE

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCPU(modeFlag string, eti bool) (*chip8.CPU, error) {
	mode, ok := chip8.ParseMode(modeFlag)
	if !ok {
		return nil, fmt.Errorf("unknown mode %q", modeFlag)
	}
	cpu := chip8.New(mode, 0x2545F4914F6CDD1D)
	if eti {
		cpu.UseETIBase(true)
	}
	return cpu, nil
}

func runRepl(modeFlag string, eti bool, args []string) error {
	cpu, err := newCPU(modeFlag, eti)
	if err != nil {
		return err
	}
	dbg := debugger.New()

	if len(args) == 1 {
		if out, err := dbg.Execute(cpu, "load_rom "+args[0]); err != nil {
			fmt.Fprintln(os.Stderr, err)
		} else if out != "" {
			fmt.Print(out)
		}
	}

	fmt.Println("chip8dbg — type `help` for a command list, `quit` to exit")
	scanner := bufio.NewScanner(os.Stdin)
	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()

	fmt.Print("> ")
	for scanner.Scan() {
		line := scanner.Text()
		if line == "quit" || line == "exit" {
			break
		}

		out, err := dbg.Execute(cpu, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		} else if out != "" {
			fmt.Print(out)
		}

		if !dbg.Paused() {
			runUntilPausedOrBlocked(dbg, cpu)
		}
		fmt.Print("> ")
	}
	return scanner.Err()
}

// runUntilPausedOrBlocked advances the CPU in 1/60 s slices after a
// command that leaves the debugger unpaused, until the debugger re-pauses
// (hit a breakpoint), emulation returns an error (including Exited), or
// 10,000 slices have run. A CPU waiting on a key or on vblank does not end
// the loop early. This drains execution between prompts rather than
// requiring the operator to spam `step`.
func runUntilPausedOrBlocked(dbg *debugger.Debugger, cpu *chip8.CPU) {
	for i := 0; i < 10_000 && !dbg.Paused(); i++ {
		err := dbg.EmulateUntilBreakpoints(cpu, 1.0/60.0)
		if err == nil {
			continue
		}
		switch err.(type) {
		case chip8.Breakpoint:
			fmt.Printf("%v\n", err)
			return
		default:
			fmt.Fprintf(os.Stderr, "halted: %v\n", err)
			return
		}
	}
}

func runBatch(modeFlag string, eti bool, romPath string) error {
	cpu, err := newCPU(modeFlag, eti)
	if err != nil {
		return err
	}
	rom, err := os.ReadFile(romPath)
	if err != nil {
		return err
	}
	if err := cpu.LoadROM(rom); err != nil {
		return err
	}

	for i := 0; i < 10_000_000; i++ {
		if err := cpu.EmulateFor(1.0 / 500.0); err != nil {
			switch err.(type) {
			case chip8.Exited:
				goto done
			default:
				return err
			}
		}
	}
done:
	dbg := debugger.New()
	out, _ := dbg.Execute(cpu, "regs")
	fmt.Print(out)
	return nil
}
