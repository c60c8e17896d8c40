package hh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeap_ConsFields(t *testing.T) {
	h := NewHeap(64)
	c := h.AllocCons(NewFixnum(1), NewFixnum(2))
	require.True(t, IsPtr(c))
	assert.Equal(t, NewFixnum(1), h.Car(c))
	assert.Equal(t, NewFixnum(2), h.Cdr(c))

	h.SetCar(c, NewFixnum(10))
	h.SetCdr(c, NewFixnum(20))
	assert.Equal(t, NewFixnum(10), h.Car(c))
	assert.Equal(t, NewFixnum(20), h.Cdr(c))
}

func TestHeap_BoxFieldsDefaultToNil(t *testing.T) {
	h := NewHeap(64)
	b := h.AllocBox(3)
	require.Equal(t, 3, h.BoxLen(b))
	for i := 0; i < 3; i++ {
		assert.Equal(t, Nil, h.BoxGet(b, i))
	}
	h.BoxSet(b, 1, NewFixnum(99))
	assert.Equal(t, NewFixnum(99), h.BoxGet(b, 1))
}

func TestHeap_StringRoundTrip(t *testing.T) {
	h := NewHeap(64)
	for _, s := range [][]byte{
		[]byte(""),
		[]byte("a"),
		[]byte("hello"),
		[]byte("exactly8"),
		[]byte("more than eight bytes long"),
	} {
		w := h.AllocString(s)
		assert.Equal(t, s, h.StringBytes(w))
	}
}

func TestHeap_AVLFields(t *testing.T) {
	h := NewHeap(64)
	left := h.AllocCons(Nil, Nil)
	right := h.AllocCons(Nil, Nil)
	n := h.AllocAVLNode(NewFixnum(5), NewFixnum(50), left, right, -1)

	key, value, l, r, balance := h.AVLFields(n)
	assert.Equal(t, NewFixnum(5), key)
	assert.Equal(t, NewFixnum(50), value)
	assert.Equal(t, left, l)
	assert.Equal(t, right, r)
	assert.Equal(t, int8(-1), balance)
}

func TestHeap_CanAllocateRespectsLimit(t *testing.T) {
	h := NewHeap(4)
	assert.True(t, h.CanAllocate(4))
	assert.False(t, h.CanAllocate(5))
	h.Bump(4)
	assert.False(t, h.CanAllocate(1))
	assert.True(t, h.CanAllocate(0))
}

func TestHeap_ResetRewindsFrontier(t *testing.T) {
	h := NewHeap(8)
	h.Bump(4)
	assert.Equal(t, 4, h.InUse())
	h.Reset()
	assert.Equal(t, 0, h.InUse())
	assert.True(t, h.CanAllocate(8))
}

func TestHeap_ObjectWordsMatchesEachKind(t *testing.T) {
	h := NewHeap(64)
	cons := h.AllocCons(Nil, Nil)
	box := h.AllocBox(5)
	str := h.AllocString([]byte("12345678901")) // 11 bytes -> 2 words
	avl := h.AllocAVLNode(Nil, Nil, Nil, Nil, 0)

	assert.Equal(t, 1+consWords, h.objectWords(PtrOffset(cons)))
	assert.Equal(t, 1+5, h.objectWords(PtrOffset(box)))
	assert.Equal(t, 1+2, h.objectWords(PtrOffset(str)))
	assert.Equal(t, 1+avlWords, h.objectWords(PtrOffset(avl)))
}

func TestHeap_ForwardingInstallAndQuery(t *testing.T) {
	h := NewHeap(64)
	c := h.AllocCons(Nil, Nil)
	addr := PtrOffset(c)
	assert.False(t, h.isForwarded(addr))

	h.installForwarding(addr, 99)
	assert.True(t, h.isForwarded(addr))
	assert.Equal(t, NewPointer(99), h.forwardingTarget(addr))
}
