package hh

import "github.com/pkg/errors"

// ErrOutOfBounds names a pointer word dereferenced outside the active
// semispace's live region. No accessor in this package returns it: Car,
// Cdr, BoxGet and the other field accessors do not bounds-check.
var ErrOutOfBounds = errors.New("hh: pointer out of heap bounds")

// ObjKind names what a heap object's header describes.
type ObjKind uint8

const (
	KindCons ObjKind = iota
	KindBox
	KindString
	KindAVL
	kindForwarding
)

// header widths, in words, excluding the header word itself.
const (
	consWords   = 2 // car, cdr
	avlWords    = 5 // key, value, left, right, balance
	headerWords = 1
)

// DefaultReserve is the number of heap words the dispatch engine
// guarantees is free before every instruction body runs. It is sized to
// exceed the maximum single-instruction demand: a cons cell, a box/tuple,
// an AVL node and a one-byte string all fit comfortably within it.
const DefaultReserve = 16

// header packs an object kind into the low 3 bits and, for variable-sized
// kinds (box, string), a word/byte length into the rest.
type header Word

const kindBits = 3
const kindMask = header(1<<kindBits) - 1

func makeHeader(k ObjKind, size int) header {
	return header(uint64(size)<<kindBits) | header(k)
}

func (h header) kind() ObjKind { return ObjKind(h & kindMask) }
func (h header) size() int     { return int(h >> kindBits) }

// Heap is a single semispace: a bump-allocated array of words with a
// movable frontier. Two heaps (active, reserve) are owned by a Context
// and swap roles at every collection.
type Heap struct {
	words []Word
	free  int // index of the next free word
	limit int // == len(words); kept explicit to mirror the C ABI
}

// NewHeap allocates a semispace of exactly nWords words.
func NewHeap(nWords int) *Heap {
	return &Heap{words: make([]Word, nWords), free: 0, limit: nWords}
}

// CanAllocate reports whether n more words fit before the limit, without
// performing the allocation. The dispatch engine calls this only once per
// instruction via the reservation protocol, never per individual write.
func (h *Heap) CanAllocate(n int) bool {
	return h.free+n <= h.limit
}

// Bump advances the frontier by n words and returns the old frontier as a
// raw heap-relative word index. Callers must have reserved space first;
// Bump itself never checks the limit, matching the C allocator's
// unconditional pointer-bump semantics.
func (h *Heap) Bump(n int) int {
	addr := h.free
	h.free += n
	return addr
}

// Reset rewinds the frontier to zero, used when a semispace becomes the
// new active space at the start of a collection.
func (h *Heap) Reset() { h.free = 0 }

// InUse reports how many words are currently occupied.
func (h *Heap) InUse() int { return h.free }

// Words exposes the live prefix of the semispace for GC scanning.
func (h *Heap) Words() []Word { return h.words[:h.free] }

func (h *Heap) at(addr int) Word       { return h.words[addr] }
func (h *Heap) set(addr int, w Word)   { h.words[addr] = w }
func (h *Heap) header(addr int) header { return header(h.words[addr]) }

// AllocCons bump-allocates a cons cell with the given car/cdr and returns
// a pointer word to it.
func (h *Heap) AllocCons(car, cdr Word) Word {
	addr := h.Bump(headerWords + consWords)
	h.set(addr, Word(makeHeader(KindCons, consWords)))
	h.set(addr+1, car)
	h.set(addr+2, cdr)
	return NewPointer(addr)
}

// Car returns the car field of the cons cell pointed to by w.
func (h *Heap) Car(w Word) Word { return h.at(PtrOffset(w) + 1) }

// Cdr returns the cdr field of the cons cell pointed to by w.
func (h *Heap) Cdr(w Word) Word { return h.at(PtrOffset(w) + 2) }

// SetCar mutates the car field of the cons cell pointed to by w.
func (h *Heap) SetCar(w, v Word) { h.set(PtrOffset(w)+1, v) }

// SetCdr mutates the cdr field of the cons cell pointed to by w.
func (h *Heap) SetCdr(w, v Word) { h.set(PtrOffset(w)+2, v) }

// AllocBox bump-allocates a tuple of length n, all fields initialized to
// Nil, and returns a pointer word to it.
func (h *Heap) AllocBox(n int) Word {
	addr := h.Bump(headerWords + n)
	h.set(addr, Word(makeHeader(KindBox, n)))
	for i := 0; i < n; i++ {
		h.set(addr+1+i, Nil)
	}
	return NewPointer(addr)
}

// BoxLen returns the field count of the tuple pointed to by w.
func (h *Heap) BoxLen(w Word) int { return h.header(PtrOffset(w)).size() }

// BoxGet returns field i of the tuple pointed to by w.
func (h *Heap) BoxGet(w Word, i int) Word { return h.at(PtrOffset(w) + 1 + i) }

// BoxSet mutates field i of the tuple pointed to by w.
func (h *Heap) BoxSet(w Word, i int, v Word) { h.set(PtrOffset(w)+1+i, v) }

// stringWordsFor returns how many payload words nBytes of packed string
// data rounds up to.
func stringWordsFor(nBytes int) int { return (nBytes + 7) / 8 }

// AllocString bump-allocates a byte string, packing it word-aligned
// after its header, and returns a pointer word to it.
func (h *Heap) AllocString(s []byte) Word {
	n := stringWordsFor(len(s))
	addr := h.Bump(headerWords + n)
	h.set(addr, Word(makeHeader(KindString, len(s))))
	for i := 0; i < n; i++ {
		var w uint64
		for b := 0; b < 8; b++ {
			idx := i*8 + b
			if idx < len(s) {
				w |= uint64(s[idx]) << (8 * b)
			}
		}
		h.set(addr+1+i, Word(w))
	}
	return NewPointer(addr)
}

// StringBytes unpacks the byte string pointed to by w.
func (h *Heap) StringBytes(w Word) []byte {
	addr := PtrOffset(w)
	hdr := h.header(addr)
	n := hdr.size()
	out := make([]byte, n)
	nWords := stringWordsFor(n)
	for i := 0; i < nWords; i++ {
		word := uint64(h.at(addr + 1 + i))
		for b := 0; b < 8; b++ {
			idx := i*8 + b
			if idx < n {
				out[idx] = byte(word >> (8 * b))
			}
		}
	}
	return out
}

// AllocAVLNode bump-allocates an AVL tree node used by associative
// primitives and returns a pointer word to it.
func (h *Heap) AllocAVLNode(key, value, left, right Word, balance int8) Word {
	addr := h.Bump(headerWords + avlWords)
	h.set(addr, Word(makeHeader(KindAVL, avlWords)))
	h.set(addr+1, key)
	h.set(addr+2, value)
	h.set(addr+3, left)
	h.set(addr+4, right)
	h.set(addr+5, NewFixnum(int64(balance)))
	return NewPointer(addr)
}

// AVLFields returns the five fields of the AVL node pointed to by w.
func (h *Heap) AVLFields(w Word) (key, value, left, right Word, balance int8) {
	addr := PtrOffset(w)
	key = h.at(addr + 1)
	value = h.at(addr + 2)
	left = h.at(addr + 3)
	right = h.at(addr + 4)
	balance = int8(Fixnum(h.at(addr + 5)))
	return
}

// objectWords returns the total word count (header included) of the
// object at addr, used by the collector to walk the semispace linearly.
func (h *Heap) objectWords(addr int) int {
	hdr := h.header(addr)
	switch hdr.kind() {
	case KindCons:
		return headerWords + consWords
	case KindAVL:
		return headerWords + avlWords
	case KindBox:
		return headerWords + hdr.size()
	case KindString:
		return headerWords + stringWordsFor(hdr.size())
	case kindForwarding:
		return headerWords
	default:
		return headerWords
	}
}

// isForwarded reports whether the object at addr has already been copied
// to new-space during the current collection.
func (h *Heap) isForwarded(addr int) bool {
	return h.header(addr).kind() == kindForwarding
}

// forwardingTarget returns the new-space pointer word stashed over a
// forwarded object's payload.
func (h *Heap) forwardingTarget(addr int) Word {
	return h.at(addr + 1)
}

// installForwarding overwrites the header at addr with a forwarding
// marker pointing at newAddr, redirecting any later encounter of the same
// old-space object to its already-copied new-space location.
func (h *Heap) installForwarding(addr int, newAddr int) {
	h.set(addr, Word(makeHeader(kindForwarding, 0)))
	h.set(addr+1, NewPointer(newAddr))
}
