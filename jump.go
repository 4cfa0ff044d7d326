package hotpatch

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"golang.org/x/arch/arm64/arm64asm"
	"golang.org/x/arch/x86/x86asm"
)

// The longest trampoline any encoder emits (arm64 absolute form).
const maxTrampolineLen = 16

// trampoline is the machine code that sends control from a patched function
// to its replacement. Only the first n bytes of buf are used.
type trampoline struct {
	buf [maxTrampolineLen]byte
	n   int
}

func (t *trampoline) bytes() []byte {
	return t.buf[:t.n]
}

// encoder produces jump instructions for one instruction set and address
// width. The host encoder is chosen at build time, see jump_$GOARCH.go.
type encoder interface {
	// encode returns the shortest jump from the instruction at from to the
	// code at to.
	encode(from, to uint64) trampoline

	// maxLen is the length of the longest trampoline encode can return.
	maxLen() int

	// leadingReturn reports whether code begins with a return instruction.
	leadingReturn(code []byte) bool

	disassemble(code []byte, pc uint64) string
}

const (
	opcodeJMPrel8  = 0xeb // JMP rel8
	opcodeJMPrel32 = 0xe9 // JMP rel32
	opcodeMOVimmDX = 0xba // MOV imm, DX
	opcodeJMPrm    = 0xff // JMP r/m (with /4)
	modrmJMPDX     = 0xe2 // mod=11 reg=4 rm=DX

	opcodeRETnear    = 0xc3
	opcodeRETfar     = 0xcb
	opcodeRETnearImm = 0xc2
	opcodeRETfarImm  = 0xca

	jmpRel8Len  = 2
	jmpRel32Len = 5
)

// x86Encoder encodes jumps for 386 (width 32) and amd64 (width 64).
//
// The absolute form clobbers DX, which Go uses as the closure context
// register. That is fine because a replacement is entered without a context.
type x86Encoder struct {
	width int
}

// rel returns the displacement from the end of an n byte instruction at from
// to the address to, wrapping the way the CPU does for the address width.
func (e x86Encoder) rel(from, to uint64, n int) int64 {
	next := from + uint64(n)
	if e.width == 32 {
		return int64(int32(uint32(to) - uint32(next)))
	}
	return int64(to - next)
}

func (e x86Encoder) encode(from, to uint64) trampoline {
	var t trampoline

	if rel := e.rel(from, to, jmpRel8Len); rel >= math.MinInt8 && rel <= math.MaxInt8 {
		t.buf[0] = opcodeJMPrel8
		t.buf[1] = byte(int8(rel))
		t.n = jmpRel8Len
		return t
	}

	if rel := e.rel(from, to, jmpRel32Len); rel >= math.MinInt32 && rel <= math.MaxInt32 {
		t.buf[0] = opcodeJMPrel32
		binary.LittleEndian.PutUint32(t.buf[1:], uint32(int32(rel)))
		t.n = jmpRel32Len
		return t
	}

	return e.absolute(to)
}

// absolute returns the x86 equivalent of:
//
//	MOV $to, DX
//	JMP DX
func (e x86Encoder) absolute(to uint64) trampoline {
	var t trampoline
	i := 0

	if e.width == 64 {
		t.buf[i] = byte(x86asm.PrefixREX) | byte(x86asm.PrefixREXW)
		i++
		t.buf[i] = opcodeMOVimmDX
		i++
		binary.LittleEndian.PutUint64(t.buf[i:], to)
		i += 8
	} else {
		t.buf[i] = opcodeMOVimmDX
		i++
		binary.LittleEndian.PutUint32(t.buf[i:], uint32(to))
		i += 4
	}

	t.buf[i] = opcodeJMPrm
	i++
	t.buf[i] = modrmJMPDX
	i++

	t.n = i
	return t
}

func (e x86Encoder) maxLen() int {
	if e.width == 64 {
		return 12
	}
	return 7
}

func (e x86Encoder) leadingReturn(code []byte) bool {
	if len(code) == 0 {
		return false
	}
	switch code[0] {
	case opcodeRETnear, opcodeRETfar, opcodeRETnearImm, opcodeRETfarImm:
		return true
	}
	return false
}

func (e x86Encoder) disassemble(code []byte, pc uint64) string {
	var buf bytes.Buffer

	for i := 0; i < len(code); {
		instruction, err := x86asm.Decode(code[i:], e.width)
		if err != nil {
			fmt.Fprintf(&buf, "0x%08x\t%-20s\t?\n", pc+uint64(i), hex.EncodeToString(code[i:]))
			break
		}
		fmt.Fprintf(&buf, "0x%08x\t%-20s\t%s\n", pc+uint64(i), hex.EncodeToString(code[i:i+instruction.Len]), instruction.String())

		i += instruction.Len
	}

	return buf.String()
}

const (
	// -----------------------------------
	// | 000101 | ... 26 bit address ... |
	// -----------------------------------
	_B = uint32(5 << 26)

	// LDR Xt, <label> with a 19-bit word offset
	_LDRlit64 = uint32(0x58000000)

	// BR Xn
	_BR = uint32(0xd61f0000)

	// RET Xn, with the register bits masked out
	_RET    = uint32(0xd65f0000)
	regMask = uint32(0x1f << 5)

	// IP0, free at function entry
	registerX16 = 16

	bLen         = 4
	arm64AbsLen  = 16
	maxBDistance = 1 << 27
)

// arm64Encoder encodes jumps for arm64. Branch offsets are relative to the
// branch instruction itself, not the one after it.
type arm64Encoder struct{}

func (arm64Encoder) encode(from, to uint64) trampoline {
	var t trampoline

	offset := int64(to - from)
	if offset >= -maxBDistance && offset < maxBDistance && offset&3 == 0 {
		binary.LittleEndian.PutUint32(t.buf[:], _B|(uint32(offset>>2)&(1<<26-1)))
		t.n = bLen
		return t
	}

	// LDR X16, #8
	// BR X16
	// .quad to
	binary.LittleEndian.PutUint32(t.buf[0:], _LDRlit64|2<<5|registerX16)
	binary.LittleEndian.PutUint32(t.buf[4:], _BR|registerX16<<5)
	binary.LittleEndian.PutUint64(t.buf[8:], to)
	t.n = arm64AbsLen
	return t
}

func (arm64Encoder) maxLen() int {
	return arm64AbsLen
}

func (arm64Encoder) leadingReturn(code []byte) bool {
	if len(code) < 4 {
		return false
	}
	return binary.LittleEndian.Uint32(code)&^regMask == _RET
}

func (arm64Encoder) disassemble(code []byte, pc uint64) string {
	var buf bytes.Buffer

	for i := 0; i < len(code)&^3; i += 4 {
		var asm string
		instruction, err := arm64asm.Decode(code[i:])
		if err == nil {
			asm = instruction.String()
		} else {
			asm = "?"
		}
		fmt.Fprintf(&buf, "0x%08x\t%-20s\t%s\n", pc+uint64(i), hex.EncodeToString(code[i:i+4]), asm)
	}

	return buf.String()
}
