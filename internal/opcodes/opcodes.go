// Package opcodes ships one concrete, small instruction table for the hh
// dispatch engine. It is example data, not the compiler: the engine in
// package hh never names a concrete primitive, and a real deployment is
// free to supply its own OpcodeTable entirely. This table exists so the
// engine has something runnable to test against.
package opcodes

import (
	"github.com/cessu-hh/hh"
)

const (
	mNop = iota
	mHalt
	mCons
	mCar
	mCdr
	mPush
	mPop
	mDup
	mSwap
	mAdd
	mSub
	mRet
	mLdc
	mJmp
	mJz
	mCall
)

const (
	extSelect = iota
	extMkString
)

// Default builds the example instruction table: a handful of
// no-immediate stack/heap primitives, a few immediate-carrying control
// instructions, and a two-entry extended space reached through the
// reserved "ext" mnemonic, modeled on original_source/hh_interp.c's
// select and string-construction primitives.
func Default() *hh.OpcodeTable {
	t := &hh.OpcodeTable{Version: 1}

	set := func(tbl *[64]*hh.Opcode, idx int, mnemonic string, exec func(e *hh.Engine) (hh.Signal, error)) {
		tbl[idx] = &hh.Opcode{Mnemonic: mnemonic, Exec: exec}
	}

	set(&t.Plain, mNop, "nop", func(e *hh.Engine) (hh.Signal, error) {
		e.Advance()
		return hh.SigContinue, nil
	})
	set(&t.Plain, mHalt, "halt", func(e *hh.Engine) (hh.Signal, error) {
		e.Advance()
		return hh.SigHalt, nil
	})
	set(&t.Plain, mCons, "cons", func(e *hh.Engine) (hh.Signal, error) {
		if sig, err := e.ReserveOrGC(0); err != nil {
			return sig, err
		}
		cdr := e.Pop()
		car := e.Accu()
		e.SetAccu(e.Heap().AllocCons(car, cdr))
		e.Advance()
		return hh.SigContinue, nil
	})
	set(&t.Plain, mCar, "car", func(e *hh.Engine) (hh.Signal, error) {
		if sig, err := e.Check(hh.IsPtr(e.Accu()), "car of non-pointer", e.Accu()); err != nil {
			return sig, err
		}
		e.SetAccu(e.Heap().Car(e.Accu()))
		e.Advance()
		return hh.SigContinue, nil
	})
	set(&t.Plain, mCdr, "cdr", func(e *hh.Engine) (hh.Signal, error) {
		if sig, err := e.Check(hh.IsPtr(e.Accu()), "cdr of non-pointer", e.Accu()); err != nil {
			return sig, err
		}
		e.SetAccu(e.Heap().Cdr(e.Accu()))
		e.Advance()
		return hh.SigContinue, nil
	})
	set(&t.Plain, mPush, "push", func(e *hh.Engine) (hh.Signal, error) {
		e.Push(e.Accu())
		e.Advance()
		return hh.SigContinue, nil
	})
	set(&t.Plain, mPop, "pop", func(e *hh.Engine) (hh.Signal, error) {
		e.SetAccu(e.Pop())
		e.Advance()
		return hh.SigContinue, nil
	})
	set(&t.Plain, mDup, "dup", func(e *hh.Engine) (hh.Signal, error) {
		e.Push(e.Top(0))
		e.Advance()
		return hh.SigContinue, nil
	})
	set(&t.Plain, mSwap, "swap", func(e *hh.Engine) (hh.Signal, error) {
		a := e.Pop()
		b := e.Pop()
		e.Push(a)
		e.Push(b)
		e.Advance()
		return hh.SigContinue, nil
	})
	set(&t.Plain, mAdd, "add", func(e *hh.Engine) (hh.Signal, error) {
		b := hh.Fixnum(e.Pop())
		a := hh.Fixnum(e.Pop())
		e.Push(hh.NewFixnum(a + b))
		e.Advance()
		return hh.SigContinue, nil
	})
	set(&t.Plain, mSub, "sub", func(e *hh.Engine) (hh.Signal, error) {
		b := hh.Fixnum(e.Pop())
		a := hh.Fixnum(e.Pop())
		e.Push(hh.NewFixnum(a - b))
		e.Advance()
		return hh.SigContinue, nil
	})
	set(&t.Plain, mRet, "ret", func(e *hh.Engine) (hh.Signal, error) {
		saved := e.Pop()
		if sig, err := e.Check(hh.IsPC(saved), "ret with no saved pc on stack", saved); err != nil {
			return sig, err
		}
		e.Jump(hh.PCOffset(saved))
		return hh.SigContinue, nil
	})

	set(&t.WithImm, mLdc, "ldc", func(e *hh.Engine) (hh.Signal, error) {
		e.SetAccu(hh.NewFixnum(e.Imm()))
		e.Advance()
		return hh.SigContinue, nil
	})
	set(&t.WithImm, mJmp, "jmp", func(e *hh.Engine) (hh.Signal, error) {
		e.Jump(e.PC() + int(e.Imm()))
		return hh.SigContinue, nil
	})
	set(&t.WithImm, mJz, "jz", func(e *hh.Engine) (hh.Signal, error) {
		v := e.Pop()
		if v == hh.False || v == hh.Nil {
			e.Jump(e.PC() + int(e.Imm()))
			return hh.SigContinue, nil
		}
		e.Advance()
		return hh.SigContinue, nil
	})
	set(&t.WithImm, mCall, "call", func(e *hh.Engine) (hh.Signal, error) {
		ret := hh.NewPC(e.PC() + e.InsnSize())
		e.Push(ret)
		e.Jump(int(e.Imm()))
		return hh.SigContinue, nil
	})

	t.Extended = map[int64]*hh.Opcode{
		extSelect: {Mnemonic: "select", Exec: func(e *hh.Engine) (hh.Signal, error) {
			fd := hh.Fixnum(e.Pop())
			e.SetSelectRequest(hh.SelectRequest{Want: true, Read: []uintptr{uintptr(fd)}, Write: []uintptr{uintptr(fd)}})
			e.Advance()
			return hh.SigContinue, nil
		}},
		extMkString: {Mnemonic: "mkstring", Exec: func(e *hh.Engine) (hh.Signal, error) {
			// Peek the length without popping: a failed reservation must
			// leave the stack untouched so the instruction can be retried
			// unchanged after a collection.
			n := int(hh.Fixnum(e.Top(0)))
			if sig, err := e.ReserveOrGC((n+7)/8 + 1); err != nil {
				return sig, err
			}
			e.Pop()
			buf := make([]byte, n)
			for i := n - 1; i >= 0; i-- {
				buf[i] = byte(hh.Fixnum(e.Pop()))
			}
			e.SetAccu(e.Heap().AllocString(buf))
			e.Advance()
			return hh.SigContinue, nil
		}},
	}

	return t
}
