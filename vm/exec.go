package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// push stores value at M[SP-1] and decrements SP, per SPEC_FULL.md section 3.
// SP = 0 means the stack already occupies all of memory; pushing past that
// is the one condition SPEC_FULL.md section 7 calls StackOverflow.
func (vm *VM) push(value uint32) error {
	if vm.SP <= StackFull {
		return fmt.Errorf("%w: push at sp=%d", ErrStackOverflow, vm.SP)
	}
	vm.SP--
	vm.Mem[vm.SP] = value
	return nil
}

// pop reads M[SP] and increments SP.
func (vm *VM) pop() (uint32, error) {
	if vm.SP >= StackEmpty {
		return 0, fmt.Errorf("%w: pop at sp=%d", ErrStackOverflow, vm.SP)
	}
	v := vm.Mem[vm.SP]
	vm.SP++
	return v, nil
}

// at and setAt bounds-check a raw word index before touching memory; any
// instruction that indexes relative to SP goes through these so an
// out-of-range offset is diagnosed rather than silently corrupting whatever
// happens to sit outside the 1024-word array.
func (vm *VM) at(idx int32) (uint32, error) {
	if idx < 0 || idx >= MemWords {
		return 0, fmt.Errorf("%w: memory index %d out of range", ErrStackOverflow, idx)
	}
	return vm.Mem[idx], nil
}

func (vm *VM) setAt(idx int32, v uint32) error {
	if idx < 0 || idx >= MemWords {
		return fmt.Errorf("%w: memory index %d out of range", ErrStackOverflow, idx)
	}
	vm.Mem[idx] = v
	return nil
}

// Step executes exactly one instruction: fetch at PC, decode, dispatch, and
// (unless the variant assigned PC itself) advance PC by one word. Variants
// that branch compute their target from the pre-advance PC, per
// SPEC_FULL.md section 4.3.
func (vm *VM) Step() error {
	if vm.halted {
		return nil
	}
	if vm.PC < 0 || vm.PC >= MemWords {
		return fmt.Errorf("%w: pc=%d", ErrPCOutOfRange, vm.PC)
	}

	word := vm.Mem[vm.PC]
	instr, err := Decode(word)
	if err != nil {
		return fmt.Errorf("%w at pc=%d", err, vm.PC)
	}

	pc := vm.PC
	advance := true

	switch instr.Op {
	case OpExit:
		vm.halted = true
		vm.exitCode = instr.ExitCode

	case OpSwap:
		fi := vm.SP + (instr.FromOffset >> 2)
		ti := vm.SP + (instr.ToOffset >> 2)
		fv, err := vm.at(fi)
		if err != nil {
			return err
		}
		tv, err := vm.at(ti)
		if err != nil {
			return err
		}
		if err := vm.setAt(fi, tv); err != nil {
			return err
		}
		if err := vm.setAt(ti, fv); err != nil {
			return err
		}

	case OpNop:

	case OpInput:
		line, err := vm.readLine()
		if err != nil {
			return err
		}
		val, err := parseInputWord(line)
		if err != nil {
			return err
		}
		if err := vm.push(val); err != nil {
			return err
		}

	case OpStinput:
		line, err := vm.readLine()
		if err != nil {
			return err
		}
		trimmed := strings.TrimSpace(line)
		if uint32(len(trimmed)) > instr.MaxChars {
			trimmed = trimmed[:instr.MaxChars]
		}
		words := packString(trimmed)
		for i := len(words) - 1; i >= 0; i-- {
			if err := vm.push(words[i]); err != nil {
				return err
			}
		}

	case OpDebug:
		if err := vm.writeDebug(instr.Payload); err != nil {
			return err
		}

	case OpPop:
		vm.SP = clamp32(vm.SP+(instr.ByteOffset>>2), StackFull, StackEmpty)

	case OpAdd, OpSub, OpMul, OpDiv, OpRem, OpAnd, OpOr, OpXor, OpLsl, OpLsr, OpAsr:
		b, err := vm.pop()
		if err != nil {
			return err
		}
		a, err := vm.pop()
		if err != nil {
			return err
		}
		if err := vm.push(binaryArith(instr.Op, a, b)); err != nil {
			return err
		}

	case OpNeg, OpNot:
		a, err := vm.pop()
		if err != nil {
			return err
		}
		if err := vm.push(unaryArith(instr.Op, a)); err != nil {
			return err
		}

	case OpStprint:
		if err := vm.stprint(vm.SP + (instr.ByteOffset >> 2)); err != nil {
			return err
		}

	case OpCall:
		if err := vm.push(uint32(pc + 1)); err != nil {
			return err
		}
		vm.PC = pc + (instr.ByteOffset >> 2)
		advance = false

	case OpReturn:
		ret, err := vm.at(vm.SP)
		if err != nil {
			return err
		}
		vm.SP = vm.SP + (instr.ByteOffset >> 2) + 1
		vm.PC = int32(ret)
		advance = false

	case OpGoto:
		vm.PC = pc + (instr.ByteOffset >> 2)
		advance = false

	case OpIfEq, OpIfNe, OpIfLt, OpIfGt, OpIfLe, OpIfGe:
		b, err := vm.at(vm.SP)
		if err != nil {
			return err
		}
		a, err := vm.at(vm.SP + 1)
		if err != nil {
			return err
		}
		if compareBinary(instr.Op, int32(a), int32(b)) {
			vm.PC = pc + (instr.ByteOffset >> 2)
			advance = false
		}

	case OpEqZero, OpNeZero, OpLtZero, OpGeZero:
		v, err := vm.at(vm.SP)
		if err != nil {
			return err
		}
		if compareUnary(instr.Op, int32(v)) {
			vm.PC = pc + (instr.ByteOffset >> 2)
			advance = false
		}

	case OpDup:
		v, err := vm.at(vm.SP + (instr.ByteOffset >> 2))
		if err != nil {
			return err
		}
		if err := vm.push(v); err != nil {
			return err
		}

	case OpPrint:
		v, err := vm.at(vm.SP + instr.WordOffset)
		if err != nil {
			return err
		}
		if err := vm.printValue(v, instr.Fmt); err != nil {
			return err
		}

	case OpDump:
		if err := vm.dump(); err != nil {
			return err
		}

	case OpPush:
		if err := vm.push(instr.Value); err != nil {
			return err
		}

	default:
		return fmt.Errorf("%w: unhandled op %s", ErrDecoder, instr.Op)
	}

	if advance {
		vm.PC = pc + 1
	}
	return nil
}

// Run steps the VM until it halts or faults, returning the 8-bit exit code
// on a clean Exit.
func (vm *VM) Run() (uint8, error) {
	for !vm.halted {
		if err := vm.Step(); err != nil {
			return 0, err
		}
	}
	_ = vm.stdout.Flush()
	return vm.exitCode, nil
}

// binaryArith implements the Add/Sub/.../Asr family. Add, Sub and Mul wrap
// modulo 2**32. Div and Rem treat operands as unsigned (there is no signed
// counterpart opcode, unlike Lsr/Asr) and yield 0 on division by zero rather
// than faulting, per SPEC_FULL.md section 4.1/4.3.
func binaryArith(op Op, a, b uint32) uint32 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		if b == 0 {
			return 0
		}
		return a / b
	case OpRem:
		if b == 0 {
			return 0
		}
		return a % b
	case OpAnd:
		return a & b
	case OpOr:
		return a | b
	case OpXor:
		return a ^ b
	case OpLsl:
		return a << (b & 0x1F)
	case OpLsr:
		return a >> (b & 0x1F)
	case OpAsr:
		return uint32(int32(a) >> (b & 0x1F))
	default:
		return 0
	}
}

func unaryArith(op Op, a uint32) uint32 {
	switch op {
	case OpNeg:
		return uint32(-int32(a))
	case OpNot:
		return ^a
	default:
		return 0
	}
}

func compareBinary(op Op, a, b int32) bool {
	switch op {
	case OpIfEq:
		return a == b
	case OpIfNe:
		return a != b
	case OpIfLt:
		return a < b
	case OpIfGt:
		return a > b
	case OpIfLe:
		return a <= b
	case OpIfGe:
		return a >= b
	default:
		return false
	}
}

func compareUnary(op Op, v int32) bool {
	switch op {
	case OpEqZero:
		return v == 0
	case OpNeZero:
		return v != 0
	case OpLtZero:
		return v < 0
	case OpGeZero:
		return v >= 0
	default:
		return false
	}
}

// stprint walks memory from start toward higher indices, emitting the three
// content bytes of each packed-string word (suppressing padding), stopping
// after the word whose marker byte is 0 or when the walk runs off the end of
// memory, per SPEC_FULL.md section 4.3.
func (vm *VM) stprint(start int32) error {
	idx := start
	for idx >= 0 && idx < MemWords {
		_, bytes, final := unpackWord(vm.Mem[idx])
		for _, b := range bytes {
			if b == packPad {
				continue
			}
			if err := vm.stdout.WriteByte(b); err != nil {
				return fmt.Errorf("%w: %v", ErrIO, err)
			}
		}
		idx++
		if final {
			break
		}
	}
	if err := vm.stdout.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// printValue formats v per the Print instruction's 2-bit format selector and
// writes it followed by a newline.
func (vm *VM) printValue(v uint32, format uint8) error {
	var s string
	switch format {
	case FmtDecimal:
		s = strconv.FormatInt(int64(int32(v)), 10)
	case FmtHex:
		s = fmt.Sprintf("0x%X", v)
	case FmtBinary:
		s = "0b" + strconv.FormatUint(uint64(v), 2)
	case FmtOctal:
		s = fmt.Sprintf("0o%o", v)
	default:
		s = strconv.FormatUint(uint64(v), 10)
	}
	if _, err := fmt.Fprintln(vm.stdout, s); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := vm.stdout.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// dump writes one "WWWW: XXXXXXXX" line per word from SP up to the end of
// memory, with no stack effect.
func (vm *VM) dump() error {
	for i := vm.SP; i < MemWords; i++ {
		if _, err := fmt.Fprintf(vm.stdout, "%04X: %08X\n", i, vm.Mem[i]); err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
	}
	if err := vm.stdout.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}
