package hh

import "github.com/pkg/errors"

// Context is one self-contained execution: an immutable program image, a
// pair of semispaces that swap roles at every collection, an operand
// stack with its redzone, and the five registers a time slice caches for
// the duration of Step. A host owns exactly one goroutine driving a
// Context at a time; nothing here is safe for concurrent use.
type Context struct {
	image *Image

	active  *Heap
	reserve *Heap
	stack   *OperandStack

	pc     int
	accu   Word
	env    Word
	newEnv Word

	profile []uint32

	cfg    *Config
	logger *Logger

	selectReq SelectRequest

	currentMnemonic string
}

// SelectRequest models the host integration hook named in SPEC_FULL.md
// §5: a program can ask to be notified when file descriptors it cares
// about become ready. The interpreter never performs the blocking
// select(2) call itself; it only records the request for the host to act
// on between time slices.
type SelectRequest struct {
	Want  bool
	Read  []uintptr
	Write []uintptr
}

// NewContext verifies image against table and, on success, allocates a
// fresh execution context: both semispaces, the operand stack (with its
// redzone sentinel), and, if profiling is requested, a per-instruction
// counter buffer sized to the program length. Registers start at the
// program's first byte with accu, env and new_env set to Nil.
func NewContext(image []byte, table *OpcodeTable, cfg *Config, heapWords, stackWords int) (*Context, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	img, err := Verify(image, table.Version, table.Cookie())
	if err != nil {
		return nil, err
	}
	if heapWords <= 0 || stackWords <= 0 {
		return nil, errors.Wrap(ErrContextAllocFailed, "heap and stack sizes must be positive")
	}

	c := &Context{
		image:   img,
		active:  NewHeap(heapWords),
		reserve: NewHeap(heapWords),
		stack:   NewOperandStack(stackWords),
		pc:      0,
		accu:    Nil,
		env:     Nil,
		newEnv:  Nil,
		cfg:     cfg,
		logger:  NewLogger(cfg),
	}

	if cfg.GetBool("profiling.enabled") {
		c.profile = make([]uint32, img.ProgLen)
	}

	return c, nil
}

// Free releases the context's buffers and reports the stack high-water
// mark: how many words of the stack were ever touched, computed by
// scanning down from the top past the sentinel fill value. It also warns,
// via the context's logger, if the stack's redzone field no longer holds
// the sentinel (see OperandStack.RedzoneIntact).
func (c *Context) Free() int {
	if !c.stack.RedzoneIntact() {
		c.logger.Warnf("stack redzone corrupted: underflow past stack base")
	}
	hwm := c.stack.HighWaterMark()
	if report := c.ProfileReport(); report != nil {
		c.logger.Infof("instruction execution counts follow")
		for _, e := range report {
			c.logger.Infof("%06d %8d", e.PC, e.Count)
		}
	}
	c.active = nil
	c.reserve = nil
	c.stack = nil
	return hwm
}

// PC returns the current program-blob byte offset.
func (c *Context) PC() int { return c.pc }

// Accu returns the working value register.
func (c *Context) Accu() Word { return c.accu }

// Env returns the current environment register.
func (c *Context) Env() Word { return c.env }

// NewEnv returns the environment-under-construction register.
func (c *Context) NewEnv() Word { return c.newEnv }

// Heap exposes the active semispace, mainly for tests and the backtrace
// printer; instruction bodies reach it through Engine instead.
func (c *Context) Heap() *Heap { return c.active }

// Stack exposes the operand stack, mainly for tests and the backtrace
// printer.
func (c *Context) Stack() *OperandStack { return c.stack }

// Image returns the verified, normalized bytecode image backing this
// context.
func (c *Context) Image() *Image { return c.image }

// Profile returns the per-instruction execution counters, or nil if
// profiling was not enabled at context creation.
func (c *Context) Profile() []uint32 { return c.profile }

// SelectRequest returns the most recent descriptor-wait request recorded
// by a select-family instruction, for the host to act on between slices.
func (c *Context) SelectRequest() SelectRequest { return c.selectReq }
