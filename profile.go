package hh

// ProfileEntry is one non-zero per-instruction execution count, the
// granularity original_source/hh_interp.c calls profile_data, indexed by
// prev_pc - program_base.
type ProfileEntry struct {
	PC    int
	Count uint32
}

// ProfileReport returns every program offset executed at least once,
// in program order, or nil if profiling was not enabled for this
// context.
func (c *Context) ProfileReport() []ProfileEntry {
	if c.profile == nil {
		return nil
	}
	var out []ProfileEntry
	for pc, n := range c.profile {
		if n > 0 {
			out = append(out, ProfileEntry{PC: pc, Count: n})
		}
	}
	return out
}
