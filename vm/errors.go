package vm

import "errors"

// Sentinel error kinds surfaced by the core, per SPEC_FULL.md section 7. The
// executor and loader wrap these with fmt.Errorf("%w: ...", ...) for
// instruction-address context; callers compare with errors.Is.
var (
	ErrBadMagic      = errors.New("bad magic header")
	ErrTruncated     = errors.New("truncated program image")
	ErrStackOverflow = errors.New("stack overflow")
	ErrDecoder       = errors.New("decoder error")
	ErrParse         = errors.New("parse error")
	ErrIO            = errors.New("io error")
	ErrPCOutOfRange  = errors.New("program counter out of range")
)
