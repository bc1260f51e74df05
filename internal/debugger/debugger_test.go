package debugger

import (
	"strings"
	"testing"

	"github.com/massung/chip8vm/internal/chip8"
)

func loadedCPU(t *testing.T) *chip8.CPU {
	t.Helper()
	cpu := chip8.New(chip8.Cosmac, 1)
	rom := []byte{
		0x60, 0x05, // LD V0, #05
		0x61, 0x02, // LD V1, #02
		0x00, 0xEE, // RET (unreachable, just memory content)
	}
	if err := cpu.LoadROM(rom); err != nil {
		t.Fatal(err)
	}
	return cpu
}

func TestParseIntForms(t *testing.T) {
	cases := map[string]uint64{
		"#1F": 0x1F,
		"0x20": 0x20,
		"0b101": 0b101,
		"42":   42,
	}
	for src, want := range cases {
		got, err := ParseInt(src, 16)
		if err != nil {
			t.Fatalf("%s: %v", src, err)
		}
		if got != want {
			t.Fatalf("%s = %d, want %d", src, got, want)
		}
	}
}

func TestParseIntNegation(t *testing.T) {
	got, err := ParseInt("-1", 8)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0xFF {
		t.Fatalf("-1 in 8 bits = %#x, want 0xff", got)
	}
}

func TestArgcValidation(t *testing.T) {
	d := New()
	cpu := loadedCPU(t)
	if _, err := d.Execute(cpu, "brk"); err == nil {
		t.Fatal("expected error for missing brk argument")
	}
	if _, err := d.Execute(cpu, "brk 0x200 extra"); err == nil {
		t.Fatal("expected error for too many brk arguments")
	}
}

func TestBrkAndListBrk(t *testing.T) {
	d := New()
	cpu := loadedCPU(t)
	if _, err := d.Execute(cpu, "brk #202"); err != nil {
		t.Fatal(err)
	}
	out, err := d.Execute(cpu, "listbrk")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "0202") {
		t.Fatalf("listbrk output %q missing breakpoint", out)
	}
}

func TestStepAndRegs(t *testing.T) {
	d := New()
	cpu := loadedCPU(t)
	d.NoteROMLoaded()
	if _, err := d.Execute(cpu, "step"); err != nil {
		t.Fatal(err)
	}
	out, err := d.Execute(cpu, "regs")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "V0 = 0x05") {
		t.Fatalf("regs output %q missing V0", out)
	}
}

func TestRecvKeyPressesAndReleases(t *testing.T) {
	d := New()
	cpu := loadedCPU(t)
	if _, err := d.Execute(cpu, "recvkey 7"); err != nil {
		t.Fatal(err)
	}
	if cpu.Keys[7] {
		t.Fatal("expected recvkey to leave the key released afterward")
	}
}

func TestNextStepsOverCall(t *testing.T) {
	d := New()
	cpu := chip8.New(chip8.Cosmac, 1)
	rom := []byte{
		0x22, 0x06, // 0x200: CALL 0x206
		0x61, 0x02, // 0x202: LD V1, #02 (landed on after the call returns)
		0x00, 0x00, // 0x204: padding
		0x60, 0x05, // 0x206: LD V0, #05
		0x00, 0xEE, // 0x208: RET
	}
	if err := cpu.LoadROM(rom); err != nil {
		t.Fatal(err)
	}

	if _, err := d.Execute(cpu, "next"); err != nil {
		t.Fatal(err)
	}
	if cpu.PC != 0x202 {
		t.Fatalf("PC = %#04x, want 0x202 after stepping over the CALL", cpu.PC)
	}
	if cpu.V[0] != 0x05 {
		t.Fatalf("V0 = %#02x, want 0x05 (the called routine should have run)", cpu.V[0])
	}
}

func TestEmulateUntilBreakpointsStopsAtBrk(t *testing.T) {
	d := New()
	cpu := loadedCPU(t)
	d.NoteROMLoaded()
	if _, err := d.Execute(cpu, "brk #202"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Execute(cpu, "resume"); err != nil {
		t.Fatal(err)
	}

	err := d.EmulateUntilBreakpoints(cpu, 1.0)
	bp, ok := err.(chip8.Breakpoint)
	if !ok {
		t.Fatalf("err = %v, want Breakpoint", err)
	}
	if bp.Address != 0x202 {
		t.Fatalf("breakpoint address = %04X, want 0202", bp.Address)
	}
	if !d.Paused() {
		t.Fatal("expected debugger to pause on hitting a breakpoint")
	}
}
