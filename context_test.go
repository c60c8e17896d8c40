package hh_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cessu-hh/hh"
	"github.com/cessu-hh/hh/internal/opcodes"
)

// assembleImage builds a minimal, checksummed image for table, whose
// program block is exactly prog; a zero-filled constant pool pads short
// programs so the image reaches the 16-byte minimum Verify accepts.
func assembleImage(t *testing.T, table *hh.OpcodeTable, prog []byte) []byte {
	t.Helper()
	const headerBytes = 12
	size := headerBytes + len(prog)
	if size < 16 {
		size = 16
	}
	buf := make([]byte, size)
	buf[0], buf[1], buf[2], buf[3] = 0x4E, 0xD6, 0xE4, 0x06
	buf[8] = table.Version
	buf[9] = byte(len(prog) >> 16)
	buf[10] = byte(len(prog) >> 8)
	buf[11] = byte(len(prog))
	copy(buf[headerBytes:], prog)

	sum := hh.Checksum(table.Cookie(), buf[8:])
	buf[4] = byte(sum >> 24)
	buf[5] = byte(sum >> 16)
	buf[6] = byte(sum >> 8)
	buf[7] = byte(sum)
	return buf
}

func TestNewContext_SeedsRegistersAtEntry(t *testing.T) {
	table := opcodes.Default()
	img := assembleImage(t, table, []byte{0x00}) // nop, plain opcode, mnemonic 0

	ctx, err := hh.NewContext(img, table, nil, 256, 64)
	require.NoError(t, err)

	assert.Equal(t, 0, ctx.PC())
	assert.Equal(t, hh.Nil, ctx.Accu())
	assert.Equal(t, hh.Nil, ctx.Env())
	assert.Equal(t, hh.Nil, ctx.NewEnv())
}

func TestNewContext_RejectsNonPositiveSizes(t *testing.T) {
	table := opcodes.Default()
	img := assembleImage(t, table, []byte{0x00})

	_, err := hh.NewContext(img, table, nil, 0, 64)
	assert.Error(t, err)

	_, err = hh.NewContext(img, table, nil, 64, 0)
	assert.Error(t, err)
}

func TestNewContext_RejectsCorruptImage(t *testing.T) {
	table := opcodes.Default()
	img := assembleImage(t, table, []byte{0x00})
	img[0] ^= 0xFF

	_, err := hh.NewContext(img, table, nil, 256, 64)
	assert.Error(t, err)
}

func TestContext_FreeReportsHighWaterMark(t *testing.T) {
	table := opcodes.Default()
	img := assembleImage(t, table, []byte{0x00})

	ctx, err := hh.NewContext(img, table, nil, 256, 64)
	require.NoError(t, err)

	ctx.Stack().Push(hh.NewFixnum(1))
	ctx.Stack().Push(hh.NewFixnum(2))
	ctx.Stack().Pop()

	hwm := ctx.Free()
	assert.Equal(t, 2, hwm)
}
