// Package asm is a small mnemonic assembler and disassembler for the vm
// package's instruction set (SPEC_FULL.md section 4.5). It exists to build
// fixture programs for tests and for the host CLI's disasm subcommand; it is
// not part of the interpreter's required surface.
package asm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Errors returned during assembly.
var (
	ErrSyntax       = errors.New("syntax error")
	ErrUnknownMnemo = errors.New("unknown mnemonic")
	ErrUnknownLabel = errors.New("unknown label")
)

var magicBytes = [4]byte{0xDE, 0xAD, 0xBE, 0xEF}

// mnemonic describes how to encode one line of source into a 32-bit word.
// operandWords is the number of words after the mnemonic; encode receives
// those as parsed int64 operands (labels already resolved to signed byte
// displacements) and returns the instruction word.
type mnemonic struct {
	operandWords int
	encode       func(self int, ops []int64) (uint32, error)
}

func miscWord(func4 uint32, low uint32) uint32 {
	return func4<<24 | (low & 0x00FFFFFF)
}

func byteField28(primary uint32, offset int64) uint32 {
	return primary<<28 | (uint32(offset) & 0x0FFFFFFF)
}

func ifField(primary uint32, func3 uint32, offset int64) uint32 {
	return primary<<28 | func3<<25 | (uint32(offset) & 0x00FFFFFF)
}

var mnemonics = map[string]mnemonic{
	"exit": {1, func(_ int, ops []int64) (uint32, error) {
		return miscWord(0x0, uint32(ops[0])&0xF), nil
	}},
	"swap": {2, func(_ int, ops []int64) (uint32, error) {
		from := uint32(ops[0]) & 0xFFF
		to := uint32(ops[1]) & 0xFFF
		return miscWord(0x1, from<<12|to), nil
	}},
	"nop":     {0, func(_ int, _ []int64) (uint32, error) { return miscWord(0x2, 0), nil }},
	"input":   {0, func(_ int, _ []int64) (uint32, error) { return miscWord(0x4, 0), nil }},
	"stinput": {1, func(_ int, ops []int64) (uint32, error) { return miscWord(0x5, uint32(ops[0])), nil }},
	"debug":   {1, func(_ int, ops []int64) (uint32, error) { return miscWord(0xF, uint32(ops[0])), nil }},

	"pop": {1, func(_ int, ops []int64) (uint32, error) { return byteField28(0x1, ops[0]), nil }},

	"add": {0, binArith(0x0)}, "sub": {0, binArith(0x1)}, "mul": {0, binArith(0x2)},
	"div": {0, binArith(0x3)}, "rem": {0, binArith(0x4)}, "and": {0, binArith(0x5)},
	"or": {0, binArith(0x6)}, "xor": {0, binArith(0x7)}, "lsl": {0, binArith(0x8)},
	"lsr": {0, binArith(0x9)}, "asr": {0, binArith(0xB)},

	"neg": {0, unArith(0x0)}, "not": {0, unArith(0x1)},

	"stprint": {1, func(_ int, ops []int64) (uint32, error) { return byteField28(0x4, ops[0]), nil }},
	"call":    {1, func(_ int, ops []int64) (uint32, error) { return byteField28(0x5, ops[0]), nil }},
	"return":  {1, func(_ int, ops []int64) (uint32, error) { return byteField28(0x6, ops[0]), nil }},
	"goto":    {1, func(_ int, ops []int64) (uint32, error) { return byteField28(0x7, ops[0]), nil }},

	"ifeq": {1, ifOp(0x0)}, "ifne": {1, ifOp(0x1)}, "iflt": {1, ifOp(0x2)},
	"ifgt": {1, ifOp(0x3)}, "ifle": {1, ifOp(0x4)}, "ifge": {1, ifOp(0x5)},

	"eqz": {1, func(_ int, ops []int64) (uint32, error) { return ifField(0x9, 0x0, ops[0]), nil }},
	"nez": {1, func(_ int, ops []int64) (uint32, error) { return ifField(0x9, 0x1, ops[0]), nil }},
	"ltz": {1, func(_ int, ops []int64) (uint32, error) { return ifField(0x9, 0x2, ops[0]), nil }},
	"gez": {1, func(_ int, ops []int64) (uint32, error) { return ifField(0x9, 0x3, ops[0]), nil }},

	"dup": {1, func(_ int, ops []int64) (uint32, error) { return byteField28(0xC, ops[0]), nil }},

	"printd": {1, printOp(0)}, "printx": {1, printOp(1)}, "printb": {1, printOp(2)}, "printo": {1, printOp(3)},

	"dump": {0, func(_ int, _ []int64) (uint32, error) { return 0xE << 28, nil }},
	"push": {1, func(_ int, ops []int64) (uint32, error) { return byteField28(0xF, ops[0]), nil }},
}

func binArith(func4 uint32) func(int, []int64) (uint32, error) {
	return func(_ int, _ []int64) (uint32, error) { return miscArith(0x2, func4), nil }
}

func unArith(func4 uint32) func(int, []int64) (uint32, error) {
	return func(_ int, _ []int64) (uint32, error) { return miscArith(0x3, func4), nil }
}

func miscArith(primary, func4 uint32) uint32 {
	return primary<<28 | func4<<24
}

func ifOp(func3 uint32) func(int, []int64) (uint32, error) {
	return func(_ int, ops []int64) (uint32, error) { return ifField(0x8, func3, ops[0]), nil }
}

func printOp(fmtBits uint32) func(int, []int64) (uint32, error) {
	return func(_ int, ops []int64) (uint32, error) {
		wordOffset := uint32(ops[0]) & 0x03FFFFFF
		return 0xD<<28 | (wordOffset << 2) | fmtBits, nil
	}
}

// sourceLine is one parsed, non-blank, non-comment, non-label line.
type sourceLine struct {
	lineno int
	mnemo  string
	args   []string
}

// Assemble compiles mnemonic source into a program image: the magic header
// followed by one little-endian 32-bit word per instruction. One
// instruction per line; ";" begins a line comment; "label:" defines a label
// at the word address of the next instruction, referenced by name in a
// branch/call/goto/if/dup/stprint operand and resolved to the
// PC-relative signed byte displacement SPEC_FULL.md section 4.3 expects.
// Execution always starts at word 0; use AssembleEntry to start elsewhere.
func Assemble(source string) ([]byte, error) {
	return AssembleEntry(source, "")
}

// AssembleEntry is Assemble with an explicit entry label, per SPEC_FULL.md
// section 10.3's Config.Assembler.EntryLabel. When entryLabel names a label
// defined in source at a word other than 0, a leading "goto" to that label
// is prepended, so the program counter (which always starts at word 0,
// SPEC_FULL.md section 4.2) reaches it first. An empty entryLabel, or one
// that does not resolve to a label in source, leaves the program as if
// Assemble had been called: execution starts at word 0.
func AssembleEntry(source, entryLabel string) ([]byte, error) {
	lines, labels, err := scan(source)
	if err != nil {
		return nil, err
	}

	words := make([]uint32, 0, len(lines))
	for idx, l := range lines {
		m, ok := mnemonics[l.mnemo]
		if !ok {
			return nil, fmt.Errorf("%w: %q at line %d", ErrUnknownMnemo, l.mnemo, l.lineno)
		}
		if len(l.args) != m.operandWords {
			return nil, fmt.Errorf("%w: %q wants %d operand(s), got %d at line %d",
				ErrSyntax, l.mnemo, m.operandWords, len(l.args), l.lineno)
		}

		ops := make([]int64, len(l.args))
		for i, a := range l.args {
			v, err := resolveOperand(a, idx, labels)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", l.lineno, err)
			}
			ops[i] = v
		}

		word, err := m.encode(idx, ops)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", l.lineno, err)
		}
		words = append(words, word)
	}

	if entryLabel != "" {
		if target, ok := labels[entryLabel]; ok && target != 0 {
			// self = 0: the prepended word is the new word 0, and every
			// existing label-relative displacement stays correct since both
			// the jump site and its target shift by the same one word.
			entryWord := byteField28(0x7, int64(target+1)*4)
			words = append([]uint32{entryWord}, words...)
		}
	}

	out := make([]byte, 4+4*len(words))
	copy(out, magicBytes[:])
	for i, w := range words {
		putLittleEndian(out[4+i*4:], w)
	}
	return out, nil
}

func putLittleEndian(b []byte, w uint32) {
	b[0] = byte(w)
	b[1] = byte(w >> 8)
	b[2] = byte(w >> 16)
	b[3] = byte(w >> 24)
}

// resolveOperand parses a as either an integer literal (decimal, 0x hex, or
// 0b binary) or a label name, returning a PC-relative byte displacement for
// labels (measured from the instruction at word index self).
func resolveOperand(a string, self int, labels map[string]int) (int64, error) {
	if v, err := parseIntLiteral(a); err == nil {
		return v, nil
	}
	target, ok := labels[a]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, a)
	}
	return int64(target-self) * 4, nil
}

func parseIntLiteral(s string) (int64, error) {
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		return strconv.ParseInt(s[2:], 16, 64)
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		return strconv.ParseInt(s[2:], 2, 64)
	default:
		return strconv.ParseInt(s, 10, 64)
	}
}

// scan splits source into instruction lines and a label->word-index table.
// A label consumes no word of its own; it names the word index of the
// instruction line that follows it.
func scan(source string) ([]sourceLine, map[string]int, error) {
	var lines []sourceLine
	labels := make(map[string]int)

	for lineno, raw := range strings.Split(source, "\n") {
		line := raw
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasSuffix(line, ":") {
			label := strings.TrimSuffix(line, ":")
			if label == "" {
				return nil, nil, fmt.Errorf("%w: empty label at line %d", ErrSyntax, lineno+1)
			}
			labels[label] = len(lines)
			continue
		}

		fields := strings.Fields(line)
		lines = append(lines, sourceLine{
			lineno: lineno + 1,
			mnemo:  strings.ToLower(fields[0]),
			args:   fields[1:],
		})
	}

	return lines, labels, nil
}
