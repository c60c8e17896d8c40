package hh

import "github.com/pkg/errors"

// registers is the small set of values the dispatch loop caches locally
// for the duration of a time slice; the collector forwards pointers
// through them directly rather than through the Context fields, since a
// Step call only flushes pc/accu/env/new_env back to the Context at
// return or on a fatal error.
type registers struct {
	pc              int
	accu, env, newEnv Word
}

// collect runs one Cheney copying collection with accu/env/new_env and
// every live stack word as roots, then checks whether the original
// reservation of needed words now succeeds. If it still doesn't, it
// searches the stack for an out-of-memory catch frame (SPEC_FULL.md
// §4.6); finding one, it unwinds to the handler and performs a second,
// fresh collection pass with the trimmed roots before reporting success.
// The returned unwound flag tells the dispatch loop whether r.pc now
// names the resumed instruction (unwound) or the original
// faulting one, which the loop must restore itself (not unwound).
func (c *Context) collect(r *registers, needed int) (unwound bool, err error) {
	c.runGC(r)
	if c.active.CanAllocate(needed) {
		return false, nil
	}

	c.logger.GCTracef("collection insufficient: need %d words, %d in use of %d", needed, c.active.InUse(), c.active.limit)

	idx := c.stack.findCatchFrame()
	if idx < 0 {
		return false, errors.Wrap(ErrHeapFull, "no out-of-memory handler on stack")
	}

	savedPC := c.stack.Get(idx + 1)
	savedEnv := c.stack.Get(idx + 2)
	r.pc = PCOffset(savedPC)
	r.env = savedEnv
	r.accu = Nil
	r.newEnv = Nil
	c.stack.SetSP(idx)

	c.logger.GCTracef("unwound to out-of-memory handler at stack[%d], resuming pc=%d", idx, r.pc)

	// A second pass with the trimmed roots: needed is 0 here because the
	// handler itself hasn't asked for anything yet, so this always
	// succeeds once CanAllocate(0) is trivially true post-collection.
	c.runGC(r)
	return true, nil
}

// runGC performs one complete copy from the active semispace to the
// reserve semispace (which becomes active), forwarding accu/env/new_env
// and every live stack word as roots, then scanning the newly populated
// semispace breadth-first until the scan pointer meets the frontier.
func (c *Context) runGC(r *registers) {
	old := c.active
	c.logger.GCTracef("collection start: %d/%d words in use", old.InUse(), old.limit)

	c.active, c.reserve = c.reserve, c.active
	c.active.Reset()

	forward := func(w Word) Word {
		if !isPtr(w) {
			return w
		}
		addr := PtrOffset(w)
		if old.isForwarded(addr) {
			return old.forwardingTarget(addr)
		}
		n := old.objectWords(addr)
		newAddr := c.active.Bump(n)
		copy(c.active.words[newAddr:newAddr+n], old.words[addr:addr+n])
		old.installForwarding(addr, newAddr)
		return NewPointer(newAddr)
	}

	r.accu = forward(r.accu)
	r.env = forward(r.env)
	r.newEnv = forward(r.newEnv)
	for i, w := range c.stack.Live() {
		c.stack.Set(i, forward(w))
	}

	scan := 0
	for scan < c.active.free {
		hdr := c.active.header(scan)
		switch hdr.kind() {
		case KindCons:
			c.active.set(scan+1, forward(c.active.at(scan+1)))
			c.active.set(scan+2, forward(c.active.at(scan+2)))
		case KindBox:
			for i := 0; i < hdr.size(); i++ {
				c.active.set(scan+1+i, forward(c.active.at(scan+1+i)))
			}
		case KindAVL:
			for i := 1; i <= 4; i++ {
				c.active.set(scan+i, forward(c.active.at(scan+i)))
			}
			// balance (field 5) is a fixnum, forward is a no-op on it.
		case KindString:
			// no pointer-typed fields.
		}
		scan += c.active.objectWords(scan)
	}

	c.logger.GCTracef("collection end: %d/%d words in use", c.active.InUse(), c.active.limit)
}
