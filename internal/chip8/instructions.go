package chip8

// Each op* method implements exactly one decoded instruction. They are
// invoked by Instruction.Exec (see decoder.go) with the original 16-bit
// opcode word so they can re-extract whichever nibbles they need.

func (c *CPU) opCLS(_ uint16) error {
	c.Display.Clear()
	return nil
}

func (c *CPU) opRET(_ uint16) error {
	if c.SP == 0 {
		return OutOfBounds{Address: uint(c.PC)}
	}
	c.SP--
	c.PC = c.Stack[c.SP]
	return nil
}

func (c *CPU) opSys(opcode uint16) error {
	// 0NNN: call a machine-code routine. No host CPU emulation is in
	// scope for this interpreter, so this is a documented no-op rather
	// than an error, matching how ROMs that include a vestigial 0NNN at
	// startup (for COSMAC VIP detection) are expected to keep running.
	_ = opNNN(opcode)
	return nil
}

func (c *CPU) opExit(_ uint16) error {
	c.exited = true
	return nil
}

func (c *CPU) opLow(_ uint16) error {
	c.Display.SetHighRes(false)
	return nil
}

func (c *CPU) opHigh(_ uint16) error {
	c.Display.SetHighRes(true)
	return nil
}

// scrollDistance halves a high-res scroll amount when the display is
// currently in low-res mode, matching 00CN/00FB/00FC's specified
// half-speed scroll in low-res (spec.md §4.3).
func (c *CPU) scrollDistance(amount int) int {
	if c.Display.HighRes() {
		return amount
	}
	return amount / 2
}

func (c *CPU) opScrollRight(_ uint16) error {
	c.Display.Scroll(c.scrollDistance(4), 0)
	return nil
}

func (c *CPU) opScrollLeft(_ uint16) error {
	c.Display.Scroll(-c.scrollDistance(4), 0)
	return nil
}

func (c *CPU) opScrollDown(opcode uint16) error {
	c.Display.Scroll(0, c.scrollDistance(int(opN(opcode))))
	return nil
}

func (c *CPU) opScrollUp(opcode uint16) error {
	c.Display.Scroll(0, -c.scrollDistance(int(opN(opcode))))
	return nil
}

func (c *CPU) opJump(opcode uint16) error {
	c.PC = opNNN(opcode)
	return nil
}

func (c *CPU) opCall(opcode uint16) error {
	if c.SP >= len(c.Stack) {
		return OutOfBounds{Address: uint(c.PC)}
	}
	c.Stack[c.SP] = c.PC
	c.SP++
	c.PC = opNNN(opcode)
	return nil
}

func (c *CPU) opSkipEqImm(opcode uint16) error {
	if c.V[opX(opcode)] == opNN(opcode) {
		c.PC += 2
	}
	return nil
}

func (c *CPU) opSkipNeImm(opcode uint16) error {
	if c.V[opX(opcode)] != opNN(opcode) {
		c.PC += 2
	}
	return nil
}

func (c *CPU) opSkipEqReg(opcode uint16) error {
	if c.V[opX(opcode)] == c.V[opY(opcode)] {
		c.PC += 2
	}
	return nil
}

func (c *CPU) opSkipNeReg(opcode uint16) error {
	if c.V[opX(opcode)] != c.V[opY(opcode)] {
		c.PC += 2
	}
	return nil
}

// opSaveRange/opLoadRange implement XO-CHIP's 5XY2/5XY3: save/load an
// inclusive register range Vx..Vy (in either direction) to/from memory
// starting at I, without moving I.
func (c *CPU) opSaveRange(opcode uint16) error {
	x, y := opX(opcode), opY(opcode)
	lo, hi := x, y
	if lo > hi {
		lo, hi = hi, lo
	}
	for i := lo; i <= hi; i++ {
		if int(c.I)+(i-lo) >= len(c.Memory) {
			return OutOfBounds{Address: uint(c.I)}
		}
		c.Memory[int(c.I)+(i-lo)] = c.V[i]
	}
	return nil
}

func (c *CPU) opLoadRange(opcode uint16) error {
	x, y := opX(opcode), opY(opcode)
	lo, hi := x, y
	if lo > hi {
		lo, hi = hi, lo
	}
	for i := lo; i <= hi; i++ {
		if int(c.I)+(i-lo) >= len(c.Memory) {
			return OutOfBounds{Address: uint(c.I)}
		}
		c.V[i] = c.Memory[int(c.I)+(i-lo)]
	}
	return nil
}

func (c *CPU) opLoadImm(opcode uint16) error {
	c.V[opX(opcode)] = opNN(opcode)
	return nil
}

func (c *CPU) opAddImm(opcode uint16) error {
	c.V[opX(opcode)] += opNN(opcode) // wraps, no VF change
	return nil
}

func (c *CPU) opLoadReg(opcode uint16) error {
	c.V[opX(opcode)] = c.V[opY(opcode)]
	return nil
}

// opOr/opAnd/opXor implement 8XY1/8XY2/8XY3. Cosmac clears VF to 0 after
// the bitwise op (the "logic quirk" the Timendus quirks ROM exercises);
// Super-Chip/XO-CHIP leave VF untouched.
func (c *CPU) opOr(opcode uint16) error {
	c.V[opX(opcode)] |= c.V[opY(opcode)]
	if c.Mode == Cosmac {
		c.V[0xF] = 0
	}
	return nil
}

func (c *CPU) opAnd(opcode uint16) error {
	c.V[opX(opcode)] &= c.V[opY(opcode)]
	if c.Mode == Cosmac {
		c.V[0xF] = 0
	}
	return nil
}

func (c *CPU) opXor(opcode uint16) error {
	c.V[opX(opcode)] ^= c.V[opY(opcode)]
	if c.Mode == Cosmac {
		c.V[0xF] = 0
	}
	return nil
}

// opAddReg sets VF from the carry AFTER computing the sum into Vx, so
// that `8xy4` targeting VF itself still reports the carry of the
// addition rather than being clobbered before it is read.
func (c *CPU) opAddReg(opcode uint16) error {
	x, y := opX(opcode), opY(opcode)
	sum := uint16(c.V[x]) + uint16(c.V[y])
	c.V[x] = byte(sum)
	if sum > 0xFF {
		c.V[0xF] = 1
	} else {
		c.V[0xF] = 0
	}
	return nil
}

func (c *CPU) opSubReg(opcode uint16) error {
	x, y := opX(opcode), opY(opcode)
	vx, vy := c.V[x], c.V[y]
	c.V[x] = vx - vy
	if vx >= vy {
		c.V[0xF] = 1
	} else {
		c.V[0xF] = 0
	}
	return nil
}

func (c *CPU) opSubnReg(opcode uint16) error {
	x, y := opX(opcode), opY(opcode)
	vx, vy := c.V[x], c.V[y]
	c.V[x] = vy - vx
	if vy >= vx {
		c.V[0xF] = 1
	} else {
		c.V[0xF] = 0
	}
	return nil
}

// opShr implements 8XY6. Cosmac and XO-CHIP shift Vy into Vx; Super-Chip
// shifts Vx in place, ignoring Vy.
func (c *CPU) opShr(opcode uint16) error {
	x, y := opX(opcode), opY(opcode)
	var src byte
	if c.Mode == SuperChip {
		src = c.V[x]
	} else {
		src = c.V[y]
	}
	carry := src & 0x1
	c.V[x] = src >> 1
	c.V[0xF] = carry
	return nil
}

func (c *CPU) opShl(opcode uint16) error {
	x, y := opX(opcode), opY(opcode)
	var src byte
	if c.Mode == SuperChip {
		src = c.V[x]
	} else {
		src = c.V[y]
	}
	carry := (src >> 7) & 0x1
	c.V[x] = src << 1
	c.V[0xF] = carry
	return nil
}

func (c *CPU) opLoadI(opcode uint16) error {
	c.I = opNNN(opcode)
	return nil
}

// opJumpV0 implements BNNN. Cosmac/XO-CHIP jump to NNN + V0. Super-Chip
// instead jumps to XNN + Vx, where X is the high nibble of NNN.
func (c *CPU) opJumpV0(opcode uint16) error {
	nnn := opNNN(opcode)
	if c.Mode == SuperChip {
		x := int(nnn>>8) & 0xF
		c.PC = nnn + uint16(c.V[x])
		return nil
	}
	c.PC = nnn + uint16(c.V[0])
	return nil
}

func (c *CPU) opRandom(opcode uint16) error {
	c.V[opX(opcode)] = c.rand.byte() & opNN(opcode)
	return nil
}

// opDraw implements DXYN for all three modes. In Cosmac mode it also
// arms the VBlank-wait gate: the draw has happened, but the CPU will not
// fetch its next instruction until EmulateFor's timer tick clears
// vblankWait, simulating the original COSMAC VIP's wait-for-vsync DMA
// behavior.
func (c *CPU) opDraw(opcode uint16) error {
	x, y, n := opX(opcode), opY(opcode), int(opN(opcode))
	vx, vy := int(c.V[x]), int(c.V[y])

	rows := n
	wide := false
	if n == 0 && c.Mode != Cosmac && c.Display.HighRes() {
		rows = 16
		wide = true
	}

	collided := false
	for row := 0; row < rows; row++ {
		addr := int(c.I) + row*byteWidth(wide)
		if wide {
			if addr+1 >= len(c.Memory) {
				return OutOfBounds{Address: uint(addr)}
			}
			hi, lo := c.Memory[addr], c.Memory[addr+1]
			word := uint16(hi)<<8 | uint16(lo)
			for bit := 0; bit < 16; bit++ {
				if word&(0x8000>>uint(bit)) == 0 {
					continue
				}
				if c.drawPixel(vx+bit, vy+row) {
					collided = true
				}
			}
			continue
		}
		if addr >= len(c.Memory) {
			return OutOfBounds{Address: uint(addr)}
		}
		b := c.Memory[addr]
		for bit := 0; bit < 8; bit++ {
			if b&(0x80>>uint(bit)) == 0 {
				continue
			}
			if c.drawPixel(vx+bit, vy+row) {
				collided = true
			}
		}
	}

	if collided {
		c.V[0xF] = 1
	} else {
		c.V[0xF] = 0
	}
	if c.Mode == Cosmac {
		c.vblankWait = true
	}
	return nil
}

func byteWidth(wide bool) int {
	if wide {
		return 2
	}
	return 1
}

func (c *CPU) drawPixel(x, y int) bool {
	if c.Mode == XoChip {
		return c.Display.DrawPixelWrapped(x, y)
	}
	return c.Display.DrawPixelClipped(x, y)
}

func (c *CPU) opSkipKeyPressed(opcode uint16) error {
	key := c.V[opX(opcode)]
	if key < 16 && c.Keys[key] {
		c.PC += 2
	}
	return nil
}

func (c *CPU) opSkipKeyNotPressed(opcode uint16) error {
	key := c.V[opX(opcode)]
	if key >= 16 || !c.Keys[key] {
		c.PC += 2
	}
	return nil
}

func (c *CPU) opLoadLongI(_ uint16) error {
	if int(c.PC)+1 >= len(c.Memory) {
		return OutOfBounds{Address: uint(c.PC)}
	}
	c.I = uint16(c.Memory[c.PC])<<8 | uint16(c.Memory[c.PC+1])
	c.PC += 2
	return nil
}

func (c *CPU) opPlane(opcode uint16) error {
	c.Display.SetWriteMask(byte(opX(opcode)) & 0x3)
	return nil
}

func (c *CPU) opAudio(_ uint16) error {
	var buf [16]byte
	for i := range buf {
		addr := int(c.I) + i
		if addr >= len(c.Memory) {
			return OutOfBounds{Address: uint(addr)}
		}
		buf[i] = c.Memory[addr]
	}
	c.Audio.LoadPattern(buf)
	return nil
}

func (c *CPU) opLoadDT(opcode uint16) error {
	c.V[opX(opcode)] = c.DT
	return nil
}

// opAwaitKey arms the await-key latch. It does not itself block; the
// cooperative blocking happens in EmulateForUntil, which stops stepping
// while AwaitingKey() is true. The latch resolves on key RELEASE (see
// CPU.ReleaseKey), not on press.
func (c *CPU) opAwaitKey(opcode uint16) error {
	c.awaitingKey = true
	c.awaitKeyDest = opX(opcode)
	return nil
}

func (c *CPU) opSetDT(opcode uint16) error {
	c.DT = c.V[opX(opcode)]
	return nil
}

func (c *CPU) opSetST(opcode uint16) error {
	c.ST = c.V[opX(opcode)]
	return nil
}

// opAddI implements FX1E: I = (I + VX) AND 0xFFF, with VF set to 1 if the
// addition overflowed past 0x0FFF before masking (a well-known quirk ROMs
// depend on), 0 otherwise.
func (c *CPU) opAddI(opcode uint16) error {
	sum := uint32(c.I) + uint32(c.V[opX(opcode)])
	if sum > 0x0FFF {
		c.V[0xF] = 1
	} else {
		c.V[0xF] = 0
	}
	c.I = uint16(sum) & 0xFFF
	return nil
}

func (c *CPU) opLoadFont(opcode uint16) error {
	digit := c.V[opX(opcode)] & 0xF
	c.I = lowFontBase + uint16(digit)*5
	return nil
}

func (c *CPU) opLoadBigFont(opcode uint16) error {
	digit := c.V[opX(opcode)]
	if digit > 9 {
		digit = 9
	}
	c.I = highFontBase + uint16(digit)*10
	return nil
}

func (c *CPU) opBCD(opcode uint16) error {
	v := c.V[opX(opcode)]
	if int(c.I)+2 >= len(c.Memory) {
		return OutOfBounds{Address: uint(c.I)}
	}
	c.Memory[c.I] = v / 100
	c.Memory[c.I+1] = (v / 10) % 10
	c.Memory[c.I+2] = v % 10
	return nil
}

func (c *CPU) opPitch(opcode uint16) error {
	c.Audio.SetPitch(c.V[opX(opcode)])
	return nil
}

// opStoreRegs implements FX55. Cosmac/XO-CHIP advance I by X+1 after the
// store; Super-Chip leaves I unmodified. opLoadRegs (FX65) does the same.
func (c *CPU) opStoreRegs(opcode uint16) error {
	x := opX(opcode)
	for i := 0; i <= x; i++ {
		addr := int(c.I) + i
		if addr >= len(c.Memory) {
			return OutOfBounds{Address: uint(addr)}
		}
		c.Memory[addr] = c.V[i]
	}
	if c.Mode != SuperChip {
		c.I += uint16(x) + 1
	}
	return nil
}

func (c *CPU) opLoadRegs(opcode uint16) error {
	x := opX(opcode)
	for i := 0; i <= x; i++ {
		addr := int(c.I) + i
		if addr >= len(c.Memory) {
			return OutOfBounds{Address: uint(addr)}
		}
		c.V[i] = c.Memory[addr]
	}
	if c.Mode != SuperChip {
		c.I += uint16(x) + 1
	}
	return nil
}

// opSaveFlags/opLoadFlags implement FX75/FX85: persist V0..Vx (x<=7) into
// the HP-RPL-style flag registers R, which outlive Reset and are part of
// the save/restore snapshot.
func (c *CPU) opSaveFlags(opcode uint16) error {
	x := opX(opcode)
	if x > 7 {
		x = 7
	}
	for i := 0; i <= x; i++ {
		c.R[i] = c.V[i]
	}
	return nil
}

func (c *CPU) opLoadFlags(opcode uint16) error {
	x := opX(opcode)
	if x > 7 {
		x = 7
	}
	for i := 0; i <= x; i++ {
		c.V[i] = c.R[i]
	}
	return nil
}
