package hh_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cessu-hh/hh"
	"github.com/cessu-hh/hh/internal/opcodes"
)

func TestBacktrace_ListsSavedPCFramesTopDown(t *testing.T) {
	table := opcodes.Default()
	img := assembleImage(t, table, []byte{1}) // halt

	ctx, err := hh.NewContext(img, table, nil, 256, 64)
	require.NoError(t, err)

	ctx.Stack().Push(hh.NewFixnum(10))
	ctx.Stack().Push(hh.NewPC(20))
	ctx.Stack().Push(hh.NewFixnum(30))
	ctx.Stack().Push(hh.NewPC(40))

	var buf bytes.Buffer
	ctx.Backtrace(&buf, nil)

	out := buf.String()
	assert.Contains(t, out, "pc=")
	assert.Contains(t, out, "accu=")
	idx40 := strings.Index(out, "@000040")
	idx20 := strings.Index(out, "@000020")
	require.GreaterOrEqual(t, idx40, 0)
	require.GreaterOrEqual(t, idx20, 0)
	assert.Less(t, idx40, idx20, "the most recently saved pc must be listed first")
}
