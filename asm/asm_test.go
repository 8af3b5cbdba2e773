package asm

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assembleWords(t *testing.T, source string) []uint32 {
	t.Helper()
	out, err := Assemble(source)
	require.NoError(t, err)
	require.True(t, len(out) >= 4)
	require.Equal(t, magicBytes[:], out[:4])

	body := out[4:]
	require.Zero(t, len(body)%4)
	words := make([]uint32, len(body)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(body[i*4 : i*4+4])
	}
	return words
}

func TestAssembleSimpleProgram(t *testing.T) {
	words := assembleWords(t, `
		push 5
		push 3
		add
		exit 0
	`)
	require.Len(t, words, 4)
	assert.Equal(t, uint32(0xF0000005), words[0])
	assert.Equal(t, uint32(0xF0000003), words[1])
	assert.Equal(t, uint32(0x20000000), words[2])
	assert.Equal(t, uint32(0x00000000), words[3])
}

func TestAssembleCommentsAndBlankLinesIgnored(t *testing.T) {
	words := assembleWords(t, `
		; a leading comment
		nop      ; trailing comment

		exit 1
	`)
	require.Len(t, words, 2)
	assert.Equal(t, uint32(0x02000000), words[0])
	assert.Equal(t, uint32(0x00000001), words[1])
}

func TestAssembleLabelForwardReference(t *testing.T) {
	words := assembleWords(t, `
		goto skip
		exit 9
	skip:
		exit 2
	`)
	require.Len(t, words, 3)
	// goto at word 0 targets word 2: (2-0)*4 = 8.
	assert.Equal(t, uint32(0x70000008), words[0])
}

func TestAssembleLabelBackwardReference(t *testing.T) {
	words := assembleWords(t, `
	loop:
		nop
		goto loop
	`)
	require.Len(t, words, 2)
	// goto at word 1 targets word 0: (0-1)*4 = -4, low 28 bits = 0xFFFFFFC.
	assert.Equal(t, uint32(0x7FFFFFFC), words[1])
}

func TestAssembleUnknownMnemonic(t *testing.T) {
	_, err := Assemble("frobnicate 1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownMnemo))
}

func TestAssembleUnknownLabel(t *testing.T) {
	_, err := Assemble("goto nowhere")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownLabel))
}

func TestAssembleWrongOperandCount(t *testing.T) {
	_, err := Assemble("push")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSyntax))

	_, err = Assemble("add 1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSyntax))
}

func TestAssembleHexAndBinaryLiterals(t *testing.T) {
	words := assembleWords(t, `
		push 0x45
		push 0b101
	`)
	assert.Equal(t, uint32(0xF0000045), words[0])
	assert.Equal(t, uint32(0xF0000005), words[1])
}

func TestAssembleAllBinaryArithMnemonics(t *testing.T) {
	words := assembleWords(t, `
		add
		sub
		mul
		div
		rem
		and
		or
		xor
		lsl
		lsr
		asr
	`)
	want := []uint32{
		0x20000000, 0x21000000, 0x22000000, 0x23000000, 0x24000000,
		0x25000000, 0x26000000, 0x27000000, 0x28000000, 0x29000000, 0x2B000000,
	}
	assert.Equal(t, want, words)
}

func TestAssembleIfAndUnaryIfMnemonics(t *testing.T) {
	words := assembleWords(t, `
	target:
		ifeq target
		ifne target
		eqz target
	`)
	assert.Equal(t, uint32(0x80000000), words[0])
	assert.Equal(t, uint32(0x82FFFFFC), words[1])
	assert.Equal(t, uint32(0x90FFFFF8), words[2])
}

func TestAssembleStinputAndDebug(t *testing.T) {
	words := assembleWords(t, `
		stinput 0xFF
		debug 0x123456
	`)
	assert.Equal(t, uint32(0x050000FF), words[0])
	assert.Equal(t, uint32(0x0F123456), words[1])
}

func TestAssembleSwap(t *testing.T) {
	words := assembleWords(t, "swap 0 4")
	assert.Equal(t, uint32(0x01000004), words[0])
}

func TestAssembleEmptySource(t *testing.T) {
	out, err := Assemble("\n\n; only comments\n")
	require.NoError(t, err)
	assert.Len(t, out, 4)
}

func TestAssembleEntryPrependsGotoWhenEntryNotAtWordZero(t *testing.T) {
	source := `
		nop
	main:
		exit 3
	`
	out, err := AssembleEntry(source, "main")
	require.NoError(t, err)

	body := out[4:]
	require.Len(t, body, 12) // prepended goto + nop + exit
	words := make([]uint32, 3)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(body[i*4 : i*4+4])
	}
	// goto from word 0 to word 2 (the shifted "main"): (2-0)*4 = 8.
	assert.Equal(t, uint32(0x70000008), words[0])
	assert.Equal(t, uint32(0x02000000), words[1]) // nop, unchanged
	assert.Equal(t, uint32(0x00000003), words[2]) // exit 3, unchanged
}

func TestAssembleEntryNoOpWhenLabelAlreadyAtWordZero(t *testing.T) {
	source := `
	main:
		exit 3
	`
	out, err := AssembleEntry(source, "main")
	require.NoError(t, err)
	assert.Len(t, out[4:], 4)
}

func TestAssembleEntryNoOpWhenLabelUnknown(t *testing.T) {
	source := `
		nop
		exit 3
	`
	out, err := AssembleEntry(source, "missing")
	require.NoError(t, err)
	assert.Len(t, out[4:], 8)
}
