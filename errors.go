package hh

import "errors"

// Sentinel errors exposed to the host, matching the error kinds named in
// SPEC_FULL.md §7. Fatal errors returned by Verify, NewContext and Step
// wrap one of these with github.com/pkg/errors so a host can recover the
// kind with errors.Is while still getting a diagnostic stack trace.
var (
	// ErrProgramCorrupt is returned when an image fails its magic,
	// length, alignment or checksum check.
	ErrProgramCorrupt = errors.New("hh: program corrupt")

	// ErrProgramWrongVersion is returned when an image's version byte
	// does not match the interpreter's.
	ErrProgramWrongVersion = errors.New("hh: program built for a different bytecode version")

	// ErrHeapFull is returned when a reservation still fails after a
	// collection and no out-of-memory catch frame is on the stack.
	ErrHeapFull = errors.New("hh: heap full")

	// ErrContextAllocFailed is returned by NewContext when the requested
	// heap or stack size is not positive. The sub-buffers themselves
	// (heaps, stack, profile counters) are allocated with make, and a
	// failure there is not reported through this error.
	ErrContextAllocFailed = errors.New("hh: context allocation failed")
)

// CheckError is the family of per-instruction invariant failures that
// only trap in testing contexts (Config key "testing.checks" set); release contexts
// elide these checks entirely, matching HH_CHECK in
// original_source/hh_interp.c.
type CheckError struct {
	// Insn names the opcode that raised the check.
	Insn string
	// PC is the offending instruction's program offset.
	PC int
	// Offending is the value that failed the check, recorded for
	// inspection the way HH_CHECK stashes it into ctx->offending_value.
	Offending Word
	// Reason is a short, human description of the violated invariant.
	Reason string
}

func (e *CheckError) Error() string {
	return "hh: check failed: " + e.Reason
}
