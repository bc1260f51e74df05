package asm

import "testing"

func TestAssembleSimpleProgram(t *testing.T) {
	src := `
start:
	LD V0, #05
	ADD V0, #02
	JP start
`
	rom, err := Assemble(src, Cosmac, 0x200)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x60, 0x05, 0x70, 0x02, 0x12, 0x00}
	if len(rom) != len(want) {
		t.Fatalf("len(rom) = %d, want %d", len(rom), len(want))
	}
	for i := range want {
		if rom[i] != want[i] {
			t.Fatalf("byte %d = %02X, want %02X", i, rom[i], want[i])
		}
	}
}

func TestAssembleUndefinedLabel(t *testing.T) {
	_, err := Assemble("JP nowhere", Cosmac, 0x200)
	if err == nil {
		t.Fatal("expected error for undefined label")
	}
}
