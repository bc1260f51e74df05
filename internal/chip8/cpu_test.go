package chip8

import "testing"

func romWith(base uint16, ops ...uint16) []byte {
	buf := make([]byte, 0, len(ops)*2)
	for _, op := range ops {
		buf = append(buf, byte(op>>8), byte(op))
	}
	return buf
}

func newLoaded(t *testing.T, mode Mode, ops ...uint16) *CPU {
	t.Helper()
	cpu := New(mode, 12345)
	if err := cpu.LoadROM(romWith(cpu.Base, ops...)); err != nil {
		t.Fatalf("LoadROM: %v", err)
	}
	return cpu
}

func TestLoadImmAndAdd(t *testing.T) {
	cpu := newLoaded(t, Cosmac,
		0x6A05, // LD VA, #05
		0x7A02, // ADD VA, #02
	)
	if err := cpu.Step(); err != nil {
		t.Fatal(err)
	}
	if cpu.V[0xA] != 5 {
		t.Fatalf("V[A] = %d, want 5", cpu.V[0xA])
	}
	if err := cpu.Step(); err != nil {
		t.Fatal(err)
	}
	if cpu.V[0xA] != 7 {
		t.Fatalf("V[A] = %d, want 7", cpu.V[0xA])
	}
}

func TestAddCarrySetAfterOnVF(t *testing.T) {
	cpu := newLoaded(t, Cosmac,
		0x6FFE, // LD VF, #FE
		0x60FE, // LD V0, #FE
		0x8F04, // ADD VF, V0  (0xFE + 0xFE = 0x1FC -> carry, VF = 0xFC then overwritten with 1)
	)
	cpu.Step()
	cpu.Step()
	if err := cpu.Step(); err != nil {
		t.Fatal(err)
	}
	if cpu.V[0xF] != 1 {
		t.Fatalf("V[F] = %d, want 1 (carry reported even though VF was the destination)", cpu.V[0xF])
	}
}

func TestShiftSourceRegisterByMode(t *testing.T) {
	t.Run("cosmac uses Vy", func(t *testing.T) {
		cpu := newLoaded(t, Cosmac,
			0x6003, // LD V0, #03
			0x6106, // LD V1, #06 (binary 0110)
			0x8016, // SHR V0, V1 -> V0 = V1 >> 1 = 3, VF = V1&1 = 0
		)
		cpu.Step()
		cpu.Step()
		cpu.Step()
		if cpu.V[0] != 3 || cpu.V[0xF] != 0 {
			t.Fatalf("V0=%d VF=%d, want V0=3 VF=0", cpu.V[0], cpu.V[0xF])
		}
	})
	t.Run("super-chip uses Vx", func(t *testing.T) {
		cpu := newLoaded(t, SuperChip,
			0x6007, // LD V0, #07 (binary 0111)
			0x6100, // LD V1, #00 (ignored as shift source)
			0x8016, // SHR V0, V1 -> V0 = V0 >> 1 = 3, VF = V0&1 = 1
		)
		cpu.Step()
		cpu.Step()
		cpu.Step()
		if cpu.V[0] != 3 || cpu.V[0xF] != 1 {
			t.Fatalf("V0=%d VF=%d, want V0=3 VF=1", cpu.V[0], cpu.V[0xF])
		}
	})
}

func TestJumpV0RegisterByMode(t *testing.T) {
	t.Run("cosmac uses V0", func(t *testing.T) {
		cpu := newLoaded(t, Cosmac,
			0x6005, // LD V0, #05
			0x6A99, // LD VA, #99 (must be ignored)
			0xB300, // JP V0, #300 -> PC = 0x300 + V0
		)
		cpu.Step()
		cpu.Step()
		cpu.Step()
		if cpu.PC != 0x305 {
			t.Fatalf("PC = %04X, want 0305", cpu.PC)
		}
	})
	t.Run("super-chip uses Vx from high nibble", func(t *testing.T) {
		cpu := newLoaded(t, SuperChip,
			0x6A07, // LD VA, #07
			0xBA00, // JP VA, #A00 -> X = A, PC = 0xA00 + VA
		)
		cpu.Step()
		cpu.Step()
		if cpu.PC != 0xA07 {
			t.Fatalf("PC = %04X, want 0A07", cpu.PC)
		}
	})
}

func TestRegDumpLoadIndexAdvance(t *testing.T) {
	t.Run("cosmac advances I", func(t *testing.T) {
		cpu := newLoaded(t, Cosmac,
			0x6105, // LD V1, #05
			0xA400, // LD I, #400
			0xF155, // LD [I], V1 (stores V0,V1; I should advance by 2)
		)
		cpu.Step()
		cpu.Step()
		cpu.Step()
		if cpu.I != 0x402 {
			t.Fatalf("I = %04X, want 0402", cpu.I)
		}
	})
	t.Run("super-chip does not advance I", func(t *testing.T) {
		cpu := newLoaded(t, SuperChip,
			0xA400, // LD I, #400
			0xF155, // LD [I], V1
		)
		cpu.Step()
		cpu.Step()
		if cpu.I != 0x400 {
			t.Fatalf("I = %04X, want 0400", cpu.I)
		}
	})
}

func TestLogicQuirkClearsVFOnCosmacOnly(t *testing.T) {
	t.Run("cosmac clears VF", func(t *testing.T) {
		cpu := newLoaded(t, Cosmac,
			0x6F01, // LD VF, #01
			0x6003, // LD V0, #03
			0x6106, // LD V1, #06
			0x8011, // OR V0, V1
		)
		for i := 0; i < 4; i++ {
			cpu.Step()
		}
		if cpu.V[0xF] != 0 {
			t.Fatalf("VF = %d, want 0 after OR in cosmac mode", cpu.V[0xF])
		}
	})
	t.Run("super-chip leaves VF alone", func(t *testing.T) {
		cpu := newLoaded(t, SuperChip,
			0x6F01, // LD VF, #01
			0x6003, // LD V0, #03
			0x6106, // LD V1, #06
			0x8011, // OR V0, V1
		)
		for i := 0; i < 4; i++ {
			cpu.Step()
		}
		if cpu.V[0xF] != 1 {
			t.Fatalf("VF = %d, want 1 (untouched) in super-chip mode", cpu.V[0xF])
		}
	})
}

func TestAddIMasksAndSetsOverflowFlag(t *testing.T) {
	cpu := newLoaded(t, Cosmac,
		0xAFFF, // LD I, #FFF
		0x6001, // LD V0, #01
		0xF01E, // ADD I, V0 -> I = (0xFFF + 1) & 0xFFF = 0, VF = 1 (overflowed)
	)
	cpu.Step()
	cpu.Step()
	if err := cpu.Step(); err != nil {
		t.Fatal(err)
	}
	if cpu.I != 0 {
		t.Fatalf("I = %04X, want 0000 (masked to 12 bits)", cpu.I)
	}
	if cpu.V[0xF] != 1 {
		t.Fatalf("VF = %d, want 1 (overflow past 0x0FFF)", cpu.V[0xF])
	}
}

func TestAddINoOverflowClearsFlag(t *testing.T) {
	cpu := newLoaded(t, Cosmac,
		0xA100, // LD I, #100
		0x6001, // LD V0, #01
		0xF01E, // ADD I, V0 -> I = 0x101, VF = 0
	)
	cpu.Step()
	cpu.Step()
	if err := cpu.Step(); err != nil {
		t.Fatal(err)
	}
	if cpu.I != 0x101 {
		t.Fatalf("I = %04X, want 0101", cpu.I)
	}
	if cpu.V[0xF] != 0 {
		t.Fatalf("VF = %d, want 0 (no overflow)", cpu.V[0xF])
	}
}

func TestFontAddressesMatchDocumentedLayout(t *testing.T) {
	cpu := newLoaded(t, Cosmac,
		0x6005, // LD V0, #05
		0xF029, // LD F, V0 -> I = 0x50 + 5*5
	)
	cpu.Step()
	if err := cpu.Step(); err != nil {
		t.Fatal(err)
	}
	if cpu.I != lowFontBase+5*5 {
		t.Fatalf("I = %04X, want %04X", cpu.I, lowFontBase+5*5)
	}
	if cpu.Memory[lowFontBase] != lowResFont[0] {
		t.Fatalf("low font not found at documented base %#x", lowFontBase)
	}
	if cpu.Memory[highFontBase] != highResFont[0] {
		t.Fatalf("big font not found at documented base %#x", highFontBase)
	}
}

func TestScrollHalvesDistanceInLowRes(t *testing.T) {
	cpu := New(SuperChip, 1)
	cpu.LoadROM([]byte{0})
	cpu.Display.xorPixel(0, 0) // low-res mode by default
	cpu.Display.Scroll(cpu.scrollDistance(4), 0)
	if !cpu.Display.primary[cpu.Display.index(cpu.Display.scaleIntoBuffer(2, 0))] {
		t.Fatal("expected low-res scroll-right to move by 2 (half of the high-res 4)")
	}
	if cpu.Display.primary[cpu.Display.index(cpu.Display.scaleIntoBuffer(4, 0))] {
		t.Fatal("low-res scroll should not have moved the pixel the full high-res distance")
	}
}

func TestExitedGatesBeforeAnyTimerAccounting(t *testing.T) {
	cpu := newLoaded(t, SuperChip, 0x00FD) // EXIT
	if err := cpu.Step(); err != nil {
		t.Fatal(err)
	}
	if !cpu.Exited() {
		t.Fatal("expected CPU to have exited")
	}
	dtBefore := cpu.DT
	err := cpu.EmulateForUntil(1.0, nil)
	if _, ok := err.(Exited); !ok {
		t.Fatalf("err = %v (%T), want Exited", err, err)
	}
	if cpu.DT != dtBefore {
		t.Fatalf("DT changed from %d to %d after an Exited CPU was driven again", dtBefore, cpu.DT)
	}
}

func TestDrawClipVsWrap(t *testing.T) {
	t.Run("cosmac clips off-screen columns", func(t *testing.T) {
		cpu := newLoaded(t, Cosmac,
			0x6A3F, // LD VA, #3F (x = 63, last column in low-res)
			0x6B00, // LD VB, #00
			0xA300, // LD I, #300
			0xDAB1, // DRW VA, VB, 1
		)
		cpu.Memory[0x300] = 0xC0 // two leftmost bits set: one on-screen, one clipped
		for i := 0; i < 4; i++ {
			if err := cpu.Step(); err != nil {
				t.Fatal(err)
			}
		}
		if !cpu.Display.primary[cpu.Display.index(cpu.Display.scaleIntoBuffer(63, 0))] {
			t.Fatal("expected on-screen pixel to be set")
		}
	})

	t.Run("xochip wraps off-screen columns", func(t *testing.T) {
		cpu := newLoaded(t, XoChip,
			0x6A3F,
			0x6B00,
			0xA300,
			0xDAB1,
		)
		cpu.Memory[0x300] = 0xC0
		for i := 0; i < 4; i++ {
			if err := cpu.Step(); err != nil {
				t.Fatal(err)
			}
		}
		if !cpu.Display.primary[cpu.Display.index(0, 0)] {
			t.Fatal("expected wrapped pixel at column 0 to be set")
		}
	})
}

func TestAwaitKeyFiresOnRelease(t *testing.T) {
	cpu := newLoaded(t, Cosmac, 0xF30A) // LD V3, K
	if err := cpu.Step(); err != nil {
		t.Fatal(err)
	}
	if !cpu.AwaitingKey() {
		t.Fatal("expected AwaitingKey after FX0A")
	}

	cpu.PressKey(0x7)
	if !cpu.AwaitingKey() {
		t.Fatal("a press alone must not resolve the await-key latch")
	}

	cpu.ReleaseKey(0x7)
	if cpu.AwaitingKey() {
		t.Fatal("expected release to resolve await-key latch")
	}
	if cpu.V[3] != 0x7 {
		t.Fatalf("V3 = %X, want 7", cpu.V[3])
	}
}

func TestScrollClearsVacatedNoWrap(t *testing.T) {
	cpu := New(SuperChip, 1)
	cpu.LoadROM([]byte{0})
	cpu.Display.SetHighRes(true)
	cpu.Display.xorPixel(0, 0)
	cpu.Display.Scroll(4, 0)
	if cpu.Display.primary[cpu.Display.index(0, 0)] {
		t.Fatal("expected vacated column to be cleared, no wraparound")
	}
	if !cpu.Display.primary[cpu.Display.index(4, 0)] {
		t.Fatal("expected pixel to have moved right by 4")
	}
}

func TestSaveRestoreRoundTripIsDeterministic(t *testing.T) {
	cpu := newLoaded(t, XoChip,
		0xC0FF, // RND V0, #FF
		0xC1FF, // RND V1, #FF
		0xC2FF, // RND V2, #FF
	)
	cpu.Step()
	snap := cpu.SaveState()

	// continue on the live CPU
	cpu.Step()
	liveV1 := cpu.V[1]
	cpu.Step()
	liveV2 := cpu.V[2]

	// restore into a fresh CPU and replay the same two steps
	restored := New(XoChip, 0)
	restored.LoadState(snap)
	restored.Step()
	restoredV1 := restored.V[1]
	restored.Step()
	restoredV2 := restored.V[2]

	if restoredV1 != liveV1 || restoredV2 != liveV2 {
		t.Fatalf("restored PRNG sequence diverged: got (%d,%d) want (%d,%d)",
			restoredV1, restoredV2, liveV1, liveV2)
	}
}

func TestLoadStateClearsTransientExecutionFlags(t *testing.T) {
	cpu := newLoaded(t, SuperChip, 0x00FD) // EXIT
	if err := cpu.Step(); err != nil {
		t.Fatal(err)
	}
	cpu.vblankWait = true
	cpu.cyclesPending = 3.5
	cpu.timersPending = 0.75
	snap := cpu.SaveState()

	restored := New(Cosmac, 0)
	restored.LoadState(snap)

	if restored.Exited() {
		t.Fatal("expected LoadState to clear exited")
	}
	if restored.VBlankWaiting() {
		t.Fatal("expected LoadState to clear the VBlank-wait gate")
	}
	if restored.cyclesPending != 0 || restored.timersPending != 0 {
		t.Fatalf("pending accumulators = (%v,%v), want (0,0) after restore",
			restored.cyclesPending, restored.timersPending)
	}
}

func TestLoadROMTooLargeForModePromotesToXoChip(t *testing.T) {
	cpu := New(Cosmac, 0)
	big := make([]byte, stdMemSize) // too big to fit after Base in a 4K Cosmac map
	if err := cpu.LoadROM(big); err != nil {
		t.Fatalf("expected mode promotion, got error: %v", err)
	}
	if cpu.Mode != XoChip {
		t.Fatalf("mode = %v, want XoChip after promotion", cpu.Mode)
	}
}

func TestStepWithoutRomReturnsNoRomLoaded(t *testing.T) {
	cpu := New(Cosmac, 0)
	err := cpu.Step()
	if _, ok := err.(NoRomLoaded); !ok {
		t.Fatalf("err = %v (%T), want NoRomLoaded", err, err)
	}
}

func TestUnknownOpcode(t *testing.T) {
	cpu := newLoaded(t, Cosmac, 0x5001) // 5XY1 is not a defined opcode
	err := cpu.Step()
	if _, ok := err.(UnknownOpcode); !ok {
		t.Fatalf("err = %v (%T), want UnknownOpcode", err, err)
	}
}

func TestEmulateForUntilHonorsBreakpoint(t *testing.T) {
	cpu := newLoaded(t, Cosmac,
		0x6001, // LD V0, #01
		0x6102, // LD V1, #02 <- breakpoint here
		0x6203, // LD V2, #03
	)
	bpAddr := cpu.Base + 2
	err := cpu.EmulateForUntil(1.0, func(c *CPU) (bool, error) {
		if c.PC == bpAddr {
			return true, Breakpoint{Address: bpAddr}
		}
		return false, nil
	})
	brk, ok := err.(Breakpoint)
	if !ok {
		t.Fatalf("err = %v, want Breakpoint", err)
	}
	if brk.Address != bpAddr {
		t.Fatalf("breakpoint address = %04X, want %04X", brk.Address, bpAddr)
	}
	if cpu.V[0] != 1 || cpu.V[1] != 0 {
		t.Fatalf("expected exactly one instruction to have executed before the breakpoint")
	}
}
