package hh

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpcodeTable_CookieIsDeterministicAcrossCalls(t *testing.T) {
	t1 := &OpcodeTable{Version: 1}
	t1.Plain[0] = &Opcode{Mnemonic: "nop"}
	t1.Extended = map[int64]*Opcode{
		5: {Mnemonic: "foo"},
		1: {Mnemonic: "bar"},
		9: {Mnemonic: "baz"},
	}

	first := t1.Cookie()
	for i := 0; i < 10; i++ {
		t2 := &OpcodeTable{Version: 1}
		t2.Plain[0] = &Opcode{Mnemonic: "nop"}
		t2.Extended = map[int64]*Opcode{
			5: {Mnemonic: "foo"},
			1: {Mnemonic: "bar"},
			9: {Mnemonic: "baz"},
		}
		assert.Equal(t, first, t2.Cookie(), "cookie must not depend on map iteration order")
	}
}

func TestOpcodeTable_CookieChangesWithMnemonicSet(t *testing.T) {
	t1 := &OpcodeTable{Version: 1}
	t1.Plain[0] = &Opcode{Mnemonic: "nop"}

	t2 := &OpcodeTable{Version: 1}
	t2.Plain[0] = &Opcode{Mnemonic: "noop"}

	assert.NotEqual(t, t1.Cookie(), t2.Cookie())
}

func TestOpcodeTable_CookieIsCached(t *testing.T) {
	table := &OpcodeTable{Version: 1}
	table.Plain[3] = &Opcode{Mnemonic: "x"}
	first := table.Cookie()

	table.Plain[3] = &Opcode{Mnemonic: "mutated-after-first-call"}
	assert.Equal(t, first, table.Cookie(), "Cookie caches its result on the first call")
}
