package hh

import "github.com/pkg/errors"

// Engine is the transient view of a Context an Opcode's Exec function
// operates through during a single instruction. It caches pc/accu/env/
// new_env in local registers for the duration of the whole time slice --
// they are only written back to the Context at Step's return or on a
// fatal error; Advance and Jump update only the cached pc -- matching the register caching described in SPEC_FULL.md §4.5.
type Engine struct {
	ctx *Context
	r   *registers

	prevPC   int
	mnemonic byte
	width    ImmWidth
	imm      int64
	insnSize int

	testing bool
}

// PC returns the program offset the current instruction started at.
func (e *Engine) PC() int { return e.prevPC }

// Imm returns the decoded, sign-extended immediate operand of the
// current instruction (zero if it carries none).
func (e *Engine) Imm() int64 { return e.imm }

// InsnSize returns the current instruction's total encoded length in
// bytes (opcode byte plus any immediate), for instructions that need to
// compute a return address relative to their own width.
func (e *Engine) InsnSize() int { return e.insnSize }

// Advance moves pc past the current instruction's encoded bytes
// (opcode + immediate). Instructions with no explicit control transfer
// call this exactly once, after any allocation they perform succeeds.
func (e *Engine) Advance() { e.r.pc = e.prevPC + e.insnSize }

// Jump sets pc to an absolute program offset, for call/return/branch
// instructions.
func (e *Engine) Jump(pc int) { e.r.pc = pc }

// Accu returns the working value register.
func (e *Engine) Accu() Word { return e.r.accu }

// SetAccu assigns the working value register.
func (e *Engine) SetAccu(w Word) { e.r.accu = w }

// Env returns the current environment register.
func (e *Engine) Env() Word { return e.r.env }

// SetEnv assigns the current environment register.
func (e *Engine) SetEnv(w Word) { e.r.env = w }

// NewEnv returns the environment-under-construction register.
func (e *Engine) NewEnv() Word { return e.r.newEnv }

// SetNewEnv assigns the environment-under-construction register.
func (e *Engine) SetNewEnv(w Word) { e.r.newEnv = w }

// Push pushes w onto the operand stack.
func (e *Engine) Push(w Word) { e.ctx.stack.Push(w) }

// Pop pops and returns the top of the operand stack.
func (e *Engine) Pop() Word { return e.ctx.stack.Pop() }

// Top returns the i-th word below the top of the operand stack without
// popping it (Top(0) is the top).
func (e *Engine) Top(i int) Word { return e.ctx.stack.At(i) }

// SP returns the current stack pointer.
func (e *Engine) SP() int { return e.ctx.stack.SP() }

// Heap exposes the active semispace for object construction and field
// access. Any allocation taking more than the engine's blanket
// DefaultReserve words must be preceded by a successful call to Reserve.
func (e *Engine) Heap() *Heap { return e.ctx.active }

// Program returns the program block bytes, for instructions that read
// further operands directly (e.g. a variable-length literal).
func (e *Engine) Program() []byte {
	img := e.ctx.image
	return img.Bytes[img.ProgramOffset : img.ProgramOffset+img.ProgLen]
}

// ConstPool returns the read-only, byte-order-normalized constant pool.
func (e *Engine) ConstPool() []byte { return e.ctx.image.ConstPool }

// Reserve asks for n words beyond the engine's blanket DefaultReserve
// pad. It returns true if the allocation can proceed immediately. On
// false, the instruction body must return (SigContinue, err) with err
// exactly the value Reserve's caller should propagate -- use
// ReserveOrGC for that in one step.
func (e *Engine) Reserve(n int) bool {
	return e.ctx.active.CanAllocate(n + DefaultReserve)
}

// ReserveOrGC is the idiomatic way for an instruction body to guard a
// large allocation: call it before any write to the heap, stack or
// registers; on failure, return its result directly.
func (e *Engine) ReserveOrGC(n int) (Signal, error) {
	if e.Reserve(n) {
		return SigContinue, nil
	}
	return SigContinue, &needsGC{words: n + DefaultReserve}
}

// Check raises a per-instruction invariant failure. In release contexts
// (Context created without the "testing.checks" config flag) this is a
// cheap no-op returning (SigContinue, nil), exactly like HH_CHECK
// compiling to nothing outside HH_TESTING builds; only testing builds
// pay for, and trap on, the check.
func (e *Engine) Check(ok bool, reason string, offending Word) (Signal, error) {
	if ok || !e.testing {
		return SigContinue, nil
	}
	return SigContinue, &CheckError{Insn: e.mnemonicName(), PC: e.prevPC, Offending: offending, Reason: reason}
}

func (e *Engine) mnemonicName() string { return e.ctx.currentMnemonic }

// SetSelectRequest records a descriptor-wait request for the host to
// service between time slices (SPEC_FULL.md §5).
func (e *Engine) SetSelectRequest(req SelectRequest) { e.ctx.selectReq = req }

// Step executes up to nTicks instructions against table and returns. It
// returns ErrHeapFull if a reservation still fails after a collection
// with no out-of-memory handler on the stack, or a *CheckError in
// testing contexts when an instruction's invariant is violated.
// Otherwise every cached register is flushed back to the Context before
// returning, whether normally or on error, so the host can always
// inspect pc/accu/env/new_env (SPEC_FULL.md §7).
func (c *Context) Step(table *OpcodeTable, nTicks int) error {
	r := registers{pc: c.pc, accu: c.accu, env: c.env, newEnv: c.newEnv}
	testing := c.cfg.GetBool("testing.checks")
	insnTrace := c.cfg.GetBool("insn.trace")

	for nTicks > 0 {
		if !c.active.CanAllocate(DefaultReserve) {
			unwound, err := c.collect(&r, DefaultReserve)
			if err != nil {
				c.flush(r, r.pc)
				return err
			}
			_ = unwound // collect already repositioned r.pc when it unwound
			continue
		}

		prevPC := r.pc
		if prevPC < 0 || prevPC >= len(c.image.Bytes[c.image.ProgramOffset:c.image.ProgramOffset+c.image.ProgLen]) {
			c.flush(r, prevPC)
			return errors.Wrap(ErrProgramCorrupt, "pc out of program bounds")
		}
		prog := c.image.Bytes[c.image.ProgramOffset : c.image.ProgramOffset+c.image.ProgLen]
		opByte := prog[prevPC]
		mnemonic := opByte & mnemonicMask
		width := ImmWidth(opByte >> mnemonicBits)

		if c.profile != nil {
			c.profile[prevPC]++
		}

		var (
			op       *Opcode
			imm      int64
			insnSize int
		)

		if width == ImmNone {
			op = table.Plain[mnemonic]
			insnSize = 1
		} else {
			immBytes := 1
			if width == Imm2 {
				immBytes = 2
			} else if width == Imm4 {
				immBytes = 4
			}
			if prevPC+1+immBytes > len(prog) {
				c.flush(r, prevPC)
				return errors.Wrap(ErrProgramCorrupt, "immediate runs past program end")
			}
			imm = int64(int8(prog[prevPC+1]))
			for i := 1; i < immBytes; i++ {
				imm = (imm << 8) | int64(prog[prevPC+1+i])
			}
			insnSize = 1 + immBytes

			if mnemonic == extMnemonic {
				op = table.Extended[imm]
			} else {
				op = table.WithImm[mnemonic]
			}
		}

		if op == nil {
			c.flush(r, prevPC)
			return errors.Wrapf(ErrProgramCorrupt, "unknown opcode %d (width %d) at pc %d", mnemonic, width, prevPC)
		}
		c.currentMnemonic = op.Mnemonic
		if insnTrace {
			c.logger.Tracef("pc=%06d %s imm=%d accu=%v sp=%d", prevPC, op.Mnemonic, imm, r.accu, c.stack.SP())
		}

		e := &Engine{ctx: c, r: &r, prevPC: prevPC, mnemonic: mnemonic, width: width, imm: imm, insnSize: insnSize, testing: testing}
		sig, err := op.Exec(e)

		if err != nil {
			if ng, ok := err.(*needsGC); ok {
				unwound, cerr := c.collect(&r, ng.words)
				if cerr != nil {
					c.flush(r, prevPC)
					return cerr
				}
				if !unwound {
					r.pc = prevPC
				}
				continue
			}
			c.flush(r, prevPC)
			return err
		}

		if sig == SigHalt {
			c.flush(r, r.pc)
			return nil
		}
		nTicks--
	}

	c.flush(r, r.pc)
	return nil
}

func (c *Context) flush(r registers, pc int) {
	c.pc = pc
	c.accu = r.accu
	c.env = r.env
	c.newEnv = r.newEnv
}
