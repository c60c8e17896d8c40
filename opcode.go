package hh

import "sort"

// ImmWidth names how many immediate bytes follow an opcode byte, encoded
// in its high two bits.
type ImmWidth byte

const (
	ImmNone ImmWidth = 0
	Imm1    ImmWidth = 1
	Imm2    ImmWidth = 2
	Imm4    ImmWidth = 3
)

// mnemonicBits is how many low bits of an opcode byte name the mnemonic;
// the remaining two bits (the high bits) name the immediate width.
const mnemonicBits = 6
const mnemonicMask = (1 << mnemonicBits) - 1
const numMnemonics = 1 << mnemonicBits

// extMnemonic is the reserved mnemonic whose immediate value names an
// opcode in the extended space rather than executing directly. Its
// immediate is decoded with whatever width the opcode byte's high bits
// name, like any other immediate; with no immediate it is looked up in
// the plain space instead. This mirrors HH_IMM_ext in
// original_source/hh_interp.c.
const extMnemonic = mnemonicMask

// Signal tells the dispatch loop what an instruction body wants to
// happen next.
type Signal int

const (
	// SigContinue resumes the tick loop at whatever PC the instruction
	// left behind (it must have advanced it itself, via Engine.Advance
	// or Engine.Jump).
	SigContinue Signal = iota
	// SigHalt ends the time slice immediately, as if the tick budget
	// had been exhausted; Step returns OK.
	SigHalt
)

// needsGC is returned by an instruction body instead of mutating any
// state when Engine.Reserve reports insufficient heap room. It is never
// surfaced to a host; the dispatch loop consumes it, collects, and
// restarts the instruction.
type needsGC struct{ words int }

func (n *needsGC) Error() string { return "hh: instruction needs a collection" }

// Opcode is one entry of an externally supplied instruction table: the
// opcode table is data consumed by the dispatch engine, never named by
// it (SPEC_FULL.md §1, §4.5). Exec must be pre-commit idempotent: it may
// not write to the accumulator, environment registers, stack or heap
// until any Reserve call it needs has already succeeded.
type Opcode struct {
	Mnemonic string
	Exec     func(e *Engine) (Signal, error)
}

// OpcodeTable is the full instruction set the dispatch engine executes
// against: a plain-opcode space (no immediate), an immediate-opcode
// space (1, 2 or 4-byte immediate, looked up by mnemonic regardless of
// width since the width only changes how the immediate is decoded, not
// which table slot is consulted), and an extended space reached through
// the reserved "ext" immediate mnemonic.
type OpcodeTable struct {
	// Version is compared against an image's format version byte.
	Version byte

	Plain    [numMnemonics]*Opcode
	WithImm  [numMnemonics]*Opcode
	Extended map[int64]*Opcode

	cookie     uint32
	cookieSet  bool
}

// Cookie returns the checksum seed this table contributes to image
// verification: a hash over every mnemonic, its table (plain/imm/ext)
// and its name, so that an image compiled against a different
// instruction set fails the checksum even if it is otherwise
// byte-for-byte well-formed. It is computed once and cached.
func (t *OpcodeTable) Cookie() uint32 {
	if t.cookieSet {
		return t.cookie
	}
	h := uint32(0x9E3779B9)
	mix := func(tag byte, idx int, op *Opcode) {
		if op == nil {
			return
		}
		h ^= uint32(tag)
		h += h << 10
		h ^= h >> 7
		h ^= uint32(idx)
		h += h << 10
		h ^= h >> 7
		for i := 0; i < len(op.Mnemonic); i++ {
			h += uint32(op.Mnemonic[i])
			h += h << 10
			h ^= h >> 7
		}
	}
	for i, op := range t.Plain {
		mix('P', i, op)
	}
	for i, op := range t.WithImm {
		mix('I', i, op)
	}
	extKeys := make([]int64, 0, len(t.Extended))
	for idx := range t.Extended {
		extKeys = append(extKeys, idx)
	}
	sort.Slice(extKeys, func(i, j int) bool { return extKeys[i] < extKeys[j] })
	for _, idx := range extKeys {
		mix('E', int(idx), t.Extended[idx])
	}
	t.cookie = h
	t.cookieSet = true
	return h
}
