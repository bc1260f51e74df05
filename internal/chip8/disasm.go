package chip8

import "fmt"

// disassemble renders a mnemonic for opcode without any address; Decode
// stores it in Instruction.Mnemonic, and CPU.Disassemble returns it as is.
// Opcodes that match no case render as "??" rather than erroring, and
// opcodes that are only undefined for mode still get their mnemonic here.
// Decode rejects both kinds, so CPU.Disassemble shows "????" for them.
func disassemble(mode Mode, opcode uint16) string {
	a := opcode & 0xFFF
	b := opcode & 0xFF
	n := opcode & 0xF
	x := opcode >> 8 & 0xF
	y := opcode >> 4 & 0xF

	switch {
	case opcode == 0x00E0:
		return "CLS"
	case opcode == 0x00EE:
		return "RET"
	case opcode == 0x00FD:
		return "EXIT"
	case opcode == 0x00FE:
		return "LOW"
	case opcode == 0x00FF:
		return "HIGH"
	case opcode == 0x00FB:
		return "SCR"
	case opcode == 0x00FC:
		return "SCL"
	case opcode&0xFFF0 == 0x00C0:
		return fmt.Sprintf("SCD    %d", n)
	case opcode&0xFFF0 == 0x00D0:
		return fmt.Sprintf("SCU    %d", n)
	case opcode&0xF000 == 0x0000:
		return fmt.Sprintf("SYS    #%04X", a)
	case opcode&0xF000 == 0x1000:
		return fmt.Sprintf("JP     #%04X", a)
	case opcode&0xF000 == 0x2000:
		return fmt.Sprintf("CALL   #%04X", a)
	case opcode&0xF000 == 0x3000:
		return fmt.Sprintf("SE     V%X, #%02X", x, b)
	case opcode&0xF000 == 0x4000:
		return fmt.Sprintf("SNE    V%X, #%02X", x, b)
	case opcode&0xF00F == 0x5000:
		return fmt.Sprintf("SE     V%X, V%X", x, y)
	case opcode&0xF00F == 0x5002:
		return fmt.Sprintf("SAVE   V%X..V%X", x, y)
	case opcode&0xF00F == 0x5003:
		return fmt.Sprintf("LOAD   V%X..V%X", x, y)
	case opcode&0xF000 == 0x6000:
		return fmt.Sprintf("LD     V%X, #%02X", x, b)
	case opcode&0xF000 == 0x7000:
		return fmt.Sprintf("ADD    V%X, #%02X", x, b)
	case opcode&0xF00F == 0x8000:
		return fmt.Sprintf("LD     V%X, V%X", x, y)
	case opcode&0xF00F == 0x8001:
		return fmt.Sprintf("OR     V%X, V%X", x, y)
	case opcode&0xF00F == 0x8002:
		return fmt.Sprintf("AND    V%X, V%X", x, y)
	case opcode&0xF00F == 0x8003:
		return fmt.Sprintf("XOR    V%X, V%X", x, y)
	case opcode&0xF00F == 0x8004:
		return fmt.Sprintf("ADD    V%X, V%X", x, y)
	case opcode&0xF00F == 0x8005:
		return fmt.Sprintf("SUB    V%X, V%X", x, y)
	case opcode&0xF00F == 0x8006:
		if mode == SuperChip {
			return fmt.Sprintf("SHR    V%X", x)
		}
		return fmt.Sprintf("SHR    V%X, V%X", x, y)
	case opcode&0xF00F == 0x8007:
		return fmt.Sprintf("SUBN   V%X, V%X", x, y)
	case opcode&0xF00F == 0x800E:
		if mode == SuperChip {
			return fmt.Sprintf("SHL    V%X", x)
		}
		return fmt.Sprintf("SHL    V%X, V%X", x, y)
	case opcode&0xF00F == 0x9000:
		return fmt.Sprintf("SNE    V%X, V%X", x, y)
	case opcode&0xF000 == 0xA000:
		return fmt.Sprintf("LD     I, #%04X", a)
	case opcode&0xF000 == 0xB000:
		if mode == SuperChip {
			return fmt.Sprintf("JP     V%X, #%04X", x, a)
		}
		return fmt.Sprintf("JP     V0, #%04X", a)
	case opcode&0xF000 == 0xC000:
		return fmt.Sprintf("RND    V%X, #%02X", x, b)
	case opcode&0xF000 == 0xD000:
		return fmt.Sprintf("DRW    V%X, V%X, %d", x, y, n)
	case opcode&0xF0FF == 0xE09E:
		return fmt.Sprintf("SKP    V%X", x)
	case opcode&0xF0FF == 0xE0A1:
		return fmt.Sprintf("SKNP   V%X", x)
	case opcode == 0xF000:
		return "LD     I, long"
	case opcode&0xF0FF == 0xF001:
		return fmt.Sprintf("PLANE  %d", x)
	case opcode&0xF0FF == 0xF002:
		return "AUDIO"
	case opcode&0xF0FF == 0xF007:
		return fmt.Sprintf("LD     V%X, DT", x)
	case opcode&0xF0FF == 0xF00A:
		return fmt.Sprintf("LD     V%X, K", x)
	case opcode&0xF0FF == 0xF015:
		return fmt.Sprintf("LD     DT, V%X", x)
	case opcode&0xF0FF == 0xF018:
		return fmt.Sprintf("LD     ST, V%X", x)
	case opcode&0xF0FF == 0xF01E:
		return fmt.Sprintf("ADD    I, V%X", x)
	case opcode&0xF0FF == 0xF029:
		return fmt.Sprintf("LD     F, V%X", x)
	case opcode&0xF0FF == 0xF030:
		return fmt.Sprintf("LD     HF, V%X", x)
	case opcode&0xF0FF == 0xF033:
		return fmt.Sprintf("LD     B, V%X", x)
	case opcode&0xF0FF == 0xF03A:
		return fmt.Sprintf("PITCH  V%X", x)
	case opcode&0xF0FF == 0xF055:
		return fmt.Sprintf("LD     [I], V%X", x)
	case opcode&0xF0FF == 0xF065:
		return fmt.Sprintf("LD     V%X, [I]", x)
	case opcode&0xF0FF == 0xF075:
		return fmt.Sprintf("LD     R, V%X", x)
	case opcode&0xF0FF == 0xF085:
		return fmt.Sprintf("LD     V%X, R", x)
	}

	return "??"
}
