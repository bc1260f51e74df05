package chip8

const (
	stdMemSize = 0x1000
	xoMemSize  = 0x10000

	defaultBase = 0x200
	etiBase     = 0x600

	// lowFontBase/highFontBase are the documented memory addresses of the
	// low-res and big-digit fonts (spec.md §3/§6): 0x050..0x0A0 and
	// 0x0A0..0x140 respectively, readable by any ROM or debugger command
	// that inspects memory directly.
	lowFontBase  = 0x50
	highFontBase = 0xA0

	stackDepth = 16

	timerHz = 60.0
	cycleHz = 500.0
)

// CPU is a complete, host-independent CHIP-8/Super-CHIP/XO-CHIP machine:
// registers, memory, framebuffer, call stack, keypad, audio pattern, and
// PRNG. It has no knowledge of windowing, real wall-clock time, or file
// I/O beyond raw byte slices; a host (cmd/chip8play, cmd/chip8dbg, or a
// test) drives it by calling Step/EmulateFor/EmulateForUntil and reading
// back Display/AudioPattern state each frame.
type CPU struct {
	Mode Mode

	Memory []byte
	Base   uint16

	V [16]byte
	R [8]byte // HP-RPL persistent "flag" registers (FX75/FX85)
	I uint16

	PC uint16

	Stack []uint16
	SP    int

	DT, ST byte

	Display *Display
	Audio   *AudioPattern

	Keys         [16]bool
	awaitingKey  bool
	awaitKeyDest int

	vblankWait bool

	Speed float64 // cycle-rate multiplier; 1.0 = 500Hz

	cyclesPending float64
	timersPending float64

	rand *wyRand
	seed uint64

	exited  bool
	romSize int
}

// New constructs a CPU in the given Mode with a freshly seeded PRNG.
func New(mode Mode, seed uint64) *CPU {
	cpu := &CPU{}
	cpu.Mode = mode
	cpu.Display = newDisplay()
	cpu.Audio = newAudioPattern()
	cpu.Stack = make([]uint16, stackDepth)
	cpu.Speed = 1.0
	cpu.seed = seed
	cpu.rand = newWyRand(seed)
	cpu.allocMemory()
	cpu.Reset()
	return cpu
}

func (c *CPU) allocMemory() {
	if c.Mode == XoChip {
		c.Memory = make([]byte, xoMemSize)
	} else {
		c.Memory = make([]byte, stdMemSize)
	}
}

// Reset restores registers, timers, keys and the framebuffer to power-on
// state, zeroes all of memory (including any loaded ROM) and reinstalls
// the fonts, and reseeds the PRNG. It keeps the Mode, the PRNG seed, the
// load base, and the persistent R registers.
func (c *CPU) Reset() {
	c.V = [16]byte{}
	c.I = 0
	c.SP = 0
	c.DT = 0
	c.ST = 0
	c.awaitingKey = false
	c.awaitKeyDest = -1
	c.vblankWait = false
	c.cyclesPending = 0
	c.timersPending = 0
	c.exited = false
	c.Keys = [16]bool{}
	c.Display = newDisplay()
	c.Audio.Reset()
	c.rand.reseed(c.seed)

	if c.Base == 0 {
		c.Base = defaultBase
	}
	c.PC = c.Base

	for i := range c.Memory {
		c.Memory[i] = 0
	}
	copy(c.Memory[lowFontBase:], lowResFont)
	copy(c.Memory[highFontBase:], highResFont)
}

// UseETIBase switches the program load/execution base address to 0x600,
// matching the ETI-660's extended memory layout (a feature of the
// original COSMAC VIP ecosystem retained here since the teacher's loader
// supported it).
func (c *CPU) UseETIBase(on bool) {
	if on {
		c.Base = etiBase
	} else {
		c.Base = defaultBase
	}
	c.PC = c.Base
}

// LoadROM copies program bytes into memory at Base and resets execution
// state. If the ROM does not fit within the current Mode's memory for
// Cosmac/SuperChip, but would fit an XO-CHIP memory map, the CPU
// transparently promotes itself to XoChip mode — matching the reference
// loader's behavior of upgrading rather than rejecting a large ROM file
// when no mode was explicitly pinned by the caller.
func (c *CPU) LoadROM(rom []byte) error {
	limit := len(c.Memory) - int(c.Base)
	if len(rom) > limit {
		if c.Mode != XoChip && len(rom) <= xoMemSize-int(c.Base) {
			c.Mode = XoChip
			c.allocMemory()
		} else {
			return InvalidFile{Reason: "ROM does not fit in addressable memory"}
		}
	}

	c.Reset()
	copy(c.Memory[c.Base:], rom)
	c.romSize = len(rom)
	return nil
}

func (c *CPU) HasROM() bool { return c.romSize > 0 }

// PressKey marks a hex key as held. Unlike FX0A's latch, a press by
// itself never resolves an await-key wait: only ReleaseKey does, matching
// the reference implementation's release-driven FX0A semantics.
func (c *CPU) PressKey(key int) {
	if key >= 0 && key < 16 {
		c.Keys[key] = true
	}
}

// ReleaseKey marks a hex key as no longer held, and resolves a pending
// FX0A await-key wait, whichever key it is, by storing the key in the
// wait's destination register.
func (c *CPU) ReleaseKey(key int) {
	if key < 0 || key >= 16 {
		return
	}
	c.Keys[key] = false
	if c.awaitingKey {
		c.V[c.awaitKeyDest] = byte(key)
		c.awaitingKey = false
		c.awaitKeyDest = -1
	}
}

// AwaitingKey reports whether FX0A is currently blocking execution.
func (c *CPU) AwaitingKey() bool { return c.awaitingKey }

// VBlankWaiting reports whether a Cosmac-mode DXYN is blocking execution
// until the next simulated vertical blank.
func (c *CPU) VBlankWaiting() bool { return c.vblankWait }

// Exited reports whether 00FD has halted the program.
func (c *CPU) Exited() bool { return c.exited }

// PeekWord reads the two bytes at addr without advancing PC or executing
// anything, for tools (the debugger's "finish" command) that need to
// inspect upcoming code.
func (c *CPU) PeekWord(addr uint16) (uint16, error) {
	if int(addr)+1 >= len(c.Memory) {
		return 0, OutOfBounds{Address: uint(addr)}
	}
	return uint16(c.Memory[addr])<<8 | uint16(c.Memory[addr+1]), nil
}

func (c *CPU) fetch() (uint16, error) {
	if int(c.PC)+1 >= len(c.Memory) {
		return 0, OutOfBounds{Address: uint(c.PC)}
	}
	return uint16(c.Memory[c.PC])<<8 | uint16(c.Memory[c.PC+1]), nil
}

// Step fetches, decodes, and executes exactly one instruction. It does
// not itself honor VBlankWaiting/AwaitingKey gates; callers that want
// cooperative blocking use EmulateFor/EmulateForUntil, which check those
// gates between steps.
func (c *CPU) Step() error {
	if !c.HasROM() {
		return NoRomLoaded{}
	}
	if c.exited {
		return Exited{}
	}

	opcode, err := c.fetch()
	if err != nil {
		return err
	}
	c.PC += 2

	inst, err := Decode(c.Mode, opcode)
	if err != nil {
		return err
	}
	return inst.Exec(c, opcode)
}

// Disassemble returns the mnemonic text for the instruction at addr
// without executing it, for the debugger and debug overlay.
func (c *CPU) Disassemble(addr uint16) string {
	if int(addr)+1 >= len(c.Memory) {
		return "????"
	}
	opcode := uint16(c.Memory[addr])<<8 | uint16(c.Memory[addr+1])
	inst, err := Decode(c.Mode, opcode)
	if err != nil {
		return "????"
	}
	return inst.Mnemonic
}

// EmulateFor advances the CPU by dt seconds of simulated time: timers
// decrement at a fixed 60Hz regardless of Speed, and up to cycleHz*Speed
// instructions execute, gated by VBlankWaiting/AwaitingKey/Exited.
func (c *CPU) EmulateFor(dt float64) error {
	return c.EmulateForUntil(dt, nil)
}

// EmulateForUntil is EmulateFor with an additional halt predicate checked
// after every instruction; if it returns true, EmulateForUntil stops and
// returns the given error (typically a Breakpoint).
func (c *CPU) EmulateForUntil(dt float64, halt func(c *CPU) (bool, error)) error {
	if !c.HasROM() {
		return NoRomLoaded{}
	}
	if c.exited {
		return Exited{}
	}

	c.timersPending += dt * timerHz
	whole := int(c.timersPending)
	c.timersPending -= float64(whole)
	if whole > 0 {
		if int(c.DT) > whole {
			c.DT -= byte(whole)
		} else {
			c.DT = 0
		}
		if int(c.ST) > whole {
			c.ST -= byte(whole)
		} else {
			c.ST = 0
		}
		if whole > 0 && c.Mode == Cosmac {
			// a vblank interval has elapsed; release any vblank-waiting draw
			c.vblankWait = false
		}
	}

	c.cyclesPending += dt * cycleHz * c.Speed
	for c.cyclesPending > 0 {
		if c.exited {
			return Exited{}
		}
		if c.vblankWait || c.awaitingKey {
			break
		}

		if err := c.Step(); err != nil {
			return err
		}
		c.cyclesPending--

		if halt != nil {
			if stop, err := halt(c); stop {
				return err
			}
		}
	}
	return nil
}

// GetDelayTimer and GetSoundTimer report the live countdown values.
func (c *CPU) GetDelayTimer() byte { return c.DT }
func (c *CPU) GetSoundTimer() byte { return c.ST }

// ReadBeepSamplesTo fills out with playback samples if, and only if, the
// sound timer is currently active; otherwise it is zeroed (silence).
func (c *CPU) ReadBeepSamplesTo(out []float32) {
	if c.ST == 0 {
		for i := range out {
			out[i] = 0
		}
		return
	}
	c.Audio.ReadSamplesTo(out)
}
