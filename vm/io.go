package vm

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// readLine reads stdin up to (and consuming) a newline or null byte, or EOF,
// per SPEC_FULL.md section 6: "terminated by \n or \0 (both are consumed by
// the reader as end-of-line)."
func (vm *VM) readLine() (string, error) {
	var sb strings.Builder
	for {
		b, err := vm.stdin.ReadByte()
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", fmt.Errorf("%w: %v", ErrIO, err)
		}
		if b == '\n' || b == 0 {
			break
		}
		sb.WriteByte(b)
	}
	return sb.String(), nil
}

// parseInputWord parses the Input instruction's line per SPEC_FULL.md
// section 4.3: 0x/0X prefix is base 16, 0b/0B is base 2, otherwise a signed
// decimal integer reinterpreted as 32-bit bits.
func parseInputWord(line string) (uint32, error) {
	trimmed := strings.TrimSpace(line)

	switch {
	case strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X"):
		v, err := strconv.ParseUint(trimmed[2:], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrParse, err)
		}
		return uint32(v), nil
	case strings.HasPrefix(trimmed, "0b") || strings.HasPrefix(trimmed, "0B"):
		v, err := strconv.ParseUint(trimmed[2:], 2, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrParse, err)
		}
		return uint32(v), nil
	default:
		v, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrParse, err)
		}
		if v < -(1<<31) || v > (1<<32-1) {
			return 0, fmt.Errorf("%w: %d out of 32-bit range", ErrParse, v)
		}
		return uint32(int32(v)), nil
	}
}

// writeDebug emits the Debug instruction's fixed format to the debug stream,
// if one was supplied, matching SPEC_FULL.md section 6: "Debug: 0xHHHHHH\n".
func (vm *VM) writeDebug(payload uint32) error {
	if vm.debug == nil {
		return nil
	}
	_, err := fmt.Fprintf(vm.debug, "Debug: 0x%06X\n", payload&0x00FFFFFF)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}
