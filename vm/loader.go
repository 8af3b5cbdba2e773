package vm

import (
	"encoding/binary"
	"fmt"
)

// magic is the four-byte program-file header, section 6: the literal bytes
// DE AD BE EF, which read as a little-endian uint32 is 0xEFBEADDE.
var magic = [4]byte{0xDE, 0xAD, 0xBE, 0xEF}

// Load validates the magic header, packs the remainder of program as
// little-endian 32-bit words into memory starting at word 0, and resets PC
// and SP, per SPEC_FULL.md section 4.2.
func (vm *VM) Load(program []byte) error {
	if len(program) < len(magic) {
		return fmt.Errorf("%w: program shorter than magic header", ErrBadMagic)
	}
	for i, b := range magic {
		if program[i] != b {
			return fmt.Errorf("%w: expected %02X %02X %02X %02X", ErrBadMagic,
				magic[0], magic[1], magic[2], magic[3])
		}
	}

	body := program[len(magic):]
	if len(body)%4 != 0 {
		return fmt.Errorf("%w: body length %d is not a multiple of 4", ErrTruncated, len(body))
	}

	n := len(body) / 4
	if n > MemWords {
		return fmt.Errorf("%w: program has %d words, memory holds %d", ErrTruncated, n, MemWords)
	}

	for i := 0; i < n; i++ {
		vm.Mem[i] = binary.LittleEndian.Uint32(body[i*4 : i*4+4])
	}

	vm.PC = 0
	vm.SP = StackEmpty
	vm.halted = false
	vm.exitCode = 0

	return nil
}
