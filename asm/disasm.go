package asm

import "fmt"

// Disassemble renders a single 32-bit instruction word as one mnemonic line,
// for the host CLI's disasm subcommand and for diagnostics. It decodes the
// word itself (duplicating vm.Decode's bit arithmetic in the mnemonic
// vocabulary of this package) so the asm package has no import-cycle
// dependency on vm.
func Disassemble(word uint32) string {
	primary := (word >> 28) & 0xF

	switch primary {
	case 0x0:
		return disasmMisc(word)
	case 0x1:
		return fmt.Sprintf("pop %d", int32(word&0x0FFFFFFF))
	case 0x2:
		return disasmFunc4("binary-arith", binArithNames, word)
	case 0x3:
		return disasmFunc4("unary-arith", unArithNames, word)
	case 0x4:
		return fmt.Sprintf("stprint %d", signExtendAsm(word&0x0FFFFFFF, 28))
	case 0x5:
		return fmt.Sprintf("call %d", signExtendAsm(word&0x0FFFFFFF, 28))
	case 0x6:
		return fmt.Sprintf("return %d", signExtendAsm(word&0x0FFFFFFF, 28))
	case 0x7:
		return fmt.Sprintf("goto %d", signExtendAsm(word&0x0FFFFFFF, 28))
	case 0x8:
		func3 := (word >> 25) & 0x7
		name := []string{"ifeq", "ifne", "iflt", "ifgt", "ifle", "ifge"}
		if int(func3) >= len(name) {
			return fmt.Sprintf("<bad binary-if func3=0x%X>", func3)
		}
		return fmt.Sprintf("%s %d", name[func3], signExtendAsm(word&0x00FFFFFF, 24))
	case 0x9:
		func2 := (word >> 25) & 0x3
		name := []string{"eqz", "nez", "ltz", "gez"}
		return fmt.Sprintf("%s %d", name[func2], signExtendAsm(word&0x00FFFFFF, 24))
	case 0xA, 0xB:
		return fmt.Sprintf("<reserved opcode 0x%X>", primary)
	case 0xC:
		return fmt.Sprintf("dup %d", signExtendAsm(word&0x0FFFFFFF, 28))
	case 0xD:
		raw28 := word & 0x0FFFFFFF
		fmtBits := raw28 & 0x3
		offset := signExtendAsm(raw28>>2, 26)
		names := []string{"printd", "printx", "printb", "printo"}
		return fmt.Sprintf("%s %d", names[fmtBits], offset)
	case 0xE:
		return "dump"
	case 0xF:
		return fmt.Sprintf("push %d", signExtendAsm(word&0x0FFFFFFF, 28))
	default:
		return fmt.Sprintf("<unknown opcode 0x%X>", primary)
	}
}

var binArithNames = []string{"add", "sub", "mul", "div", "rem", "and", "or", "xor", "lsl", "lsr", "", "asr"}
var unArithNames = []string{"neg", "not"}

func disasmMisc(word uint32) string {
	func4 := (word >> 24) & 0xF
	switch func4 {
	case 0x0:
		return fmt.Sprintf("exit %d", word&0xF)
	case 0x1:
		from := signExtendAsm((word>>12)&0xFFF, 12)
		to := signExtendAsm(word&0xFFF, 12)
		return fmt.Sprintf("swap %d %d", from, to)
	case 0x2:
		return "nop"
	case 0x4:
		return "input"
	case 0x5:
		return fmt.Sprintf("stinput %d", word&0x00FFFFFF)
	case 0xF:
		return fmt.Sprintf("debug 0x%06X", word&0x00FFFFFF)
	default:
		return fmt.Sprintf("<bad misc func4=0x%X>", func4)
	}
}

func disasmFunc4(family string, names []string, word uint32) string {
	func4 := (word >> 24) & 0xF
	if int(func4) >= len(names) || names[func4] == "" {
		return fmt.Sprintf("<bad %s func4=0x%X>", family, func4)
	}
	return names[func4]
}

func signExtendAsm(v uint32, bits int) int32 {
	shift := 32 - uint(bits)
	return int32(v<<shift) >> shift
}
