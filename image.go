package hh

import (
	"encoding/binary"
	"unsafe"

	"github.com/pkg/errors"
)

// imageMagic is the four-byte cookie every bytecode image must begin
// with, fixed by the image ABI (original_source/hh_interp.c: HH_COOKIE).
const imageMagic uint32 = 0x4ED6E406

// headerBytes is the size of the fixed image header: magic, checksum,
// version byte and the 3-byte big-endian program length.
const headerBytes = 12

// wordSize is the interpreter's natural word width, in bytes. Image
// buffers must be aligned to it.
const wordSize = 8

// Image is a verified, byte-order-normalized bytecode blob: the program
// block (execution starts at ProgramOffset) followed by its constant
// pool. It is immutable after Verify returns successfully.
type Image struct {
	Bytes         []byte
	Version       byte
	ProgLen       int
	ProgramOffset int
	ConstPool     []byte
}

// Verify validates a bytecode image against the ABI described in
// SPEC_FULL.md §4.3 and returns a normalized Image on success. insnCookie
// is the checksum seed contributed by the attached opcode table (see
// OpcodeTable.Cookie); it must match the cookie the compiler baked the
// image's checksum against, or the image is rejected as corrupt even
// though every byte in it is individually well-formed.
func Verify(image []byte, version byte, insnCookie uint32) (*Image, error) {
	if len(image) < 16 {
		return nil, errors.Wrap(ErrProgramCorrupt, "image shorter than minimum header")
	}
	if !isWordAligned(image) {
		return nil, errors.Wrap(ErrProgramCorrupt, "image buffer is not word-aligned")
	}
	if binary.BigEndian.Uint32(image[0:4]) != imageMagic {
		return nil, errors.Wrap(ErrProgramCorrupt, "bad magic cookie")
	}
	if image[8] != version {
		return nil, errors.Wrapf(ErrProgramWrongVersion, "image version %d != interpreter version %d", image[8], version)
	}

	progLen := int(image[9])<<16 | int(image[10])<<8 | int(image[11])
	if headerBytes+progLen > len(image) {
		return nil, errors.Wrap(ErrProgramCorrupt, "proglen overruns image")
	}

	storedChecksum := binary.BigEndian.Uint32(image[4:8])
	computedChecksum := Checksum(insnCookie, image[8:])
	if storedChecksum != computedChecksum {
		return nil, errors.Wrap(ErrProgramCorrupt, "checksum mismatch")
	}

	normalized := make([]byte, len(image))
	copy(normalized, image)
	constPool := normalized[headerBytes+progLen:]
	fixByteOrder(constPool)

	return &Image{
		Bytes:         normalized,
		Version:       version,
		ProgLen:       progLen,
		ProgramOffset: headerBytes,
		ConstPool:     constPool,
	}, nil
}

// Checksum implements the rolling hash the image ABI uses to protect the
// program and constant pool: h is folded byte by byte with a shift-xor
// mix, seeded with the caller's instruction-set cookie so that an image
// compiled against a different opcode table fails verification even if
// every other field is well-formed.
func Checksum(seed uint32, data []byte) uint32 {
	h := seed
	for _, b := range data {
		h += uint32(b)
		h += h << 10
		h ^= h >> 7
	}
	return h
}

// fixByteOrder normalizes the constant pool's packed word data from its
// on-disk big-endian representation to the host's native order, exactly
// once, at verification time. Non-multiple-of-8 trailing bytes (loose
// string/char payload) are left untouched.
func fixByteOrder(pool []byte) {
	probe := uint16(1)
	if *(*byte)(unsafe.Pointer(&probe)) == 0 {
		return // big-endian host: the on-disk order is already native
	}
	n := len(pool) - (len(pool) % wordSize)
	for i := 0; i < n; i += wordSize {
		be := binary.BigEndian.Uint64(pool[i : i+wordSize])
		binary.LittleEndian.PutUint64(pool[i:i+wordSize], be)
	}
}

// isWordAligned reports whether image's backing array starts on a
// wordSize boundary, matching the C interpreter's precondition that the
// `program` pointer be aligned. Go's allocator already guarantees this
// for any slice whose element type has wordSize-or-greater alignment
// requirements, but callers can still hand in a sub-slice of a larger
// buffer that violates it, so the check is kept live rather than assumed.
func isWordAligned(image []byte) bool {
	if len(image) == 0 {
		return true
	}
	addr := uintptr(unsafe.Pointer(&image[0]))
	return addr%wordSize == 0
}
