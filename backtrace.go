package hh

import (
	"fmt"
	"io"

	"github.com/cessu-hh/hh/ascii"
	"github.com/davecgh/go-spew/spew"
)

// PrettyPrinter is the character-sink consumer a host supplies to render
// a heap value (the accumulator, an environment, a backtrace frame) as
// text. Backtrace only walks PC-tagged stack words and invokes this for
// each frame and for the live accu/env registers; the formatting itself
// is a host concern and out of scope here.
type PrettyPrinter interface {
	PrettyPrint(w io.Writer, heap *Heap, v Word)
}

// defaultPrettyPrinter renders a word as its classified kind and raw
// payload, colored by ascii.DefaultTheme (the ANSI escapes are written
// unconditionally, whatever the output is); it is the zero-configuration PrettyPrinter used when a
// host supplies none.
type defaultPrettyPrinter struct{}

// DefaultPrettyPrinter renders words without any domain-specific
// structure knowledge: pointers as a heap offset, fixnums as a decimal
// value, PC words as a program offset, constants as their raw payload.
var DefaultPrettyPrinter PrettyPrinter = defaultPrettyPrinter{}

func (defaultPrettyPrinter) PrettyPrint(w io.Writer, heap *Heap, v Word) {
	theme := ascii.DefaultTheme
	switch ClassifyWord(v) {
	case "pointer":
		fmt.Fprint(w, ascii.Color(theme.Pointer, "#<ptr %06x>", PtrOffset(v)))
	case "fixnum":
		fmt.Fprint(w, ascii.Color(theme.Fixnum, "%d", Fixnum(v)))
	case "pc":
		fmt.Fprint(w, ascii.Color(theme.PC, "@%06d", PCOffset(v)))
	default:
		fmt.Fprint(w, ascii.Color(theme.Constant, "#<const %d>", v>>tagShift))
	}
}

// Backtrace walks the operand stack from the top down, printing every
// word it finds tagged as a saved PC as a frame line, and renders the
// live accu/env registers through pp. It never interprets the
// stack's frame layout beyond "a PC word marks a return address" -- the
// compiler's calling convention is out of scope.
func (c *Context) Backtrace(w io.Writer, pp PrettyPrinter) {
	if pp == nil {
		pp = DefaultPrettyPrinter
	}

	fmt.Fprintf(w, "pc=%06d\n", c.pc)
	fmt.Fprint(w, "accu=")
	pp.PrettyPrint(w, c.active, c.accu)
	fmt.Fprint(w, "\nenv=")
	pp.PrettyPrint(w, c.active, c.env)
	fmt.Fprintln(w)

	frame := 0
	live := c.stack.Live()
	for i := len(live) - 1; i >= 0; i-- {
		word := live[i]
		if !IsPC(word) {
			continue
		}
		fmt.Fprintf(w, "#%d stack[%06d] return ", frame, i)
		pp.PrettyPrint(w, c.active, word)
		fmt.Fprintln(w)
		frame++
	}

	if c.cfg.GetBool("gc.trace") || c.cfg.GetBool("insn.trace") {
		fmt.Fprintln(w, "--- heap dump ---")
		spew.Fdump(w, c.active.Words())
		fmt.Fprintln(w, "--- stack dump ---")
		spew.Fdump(w, c.stack.Live())
	}
}
