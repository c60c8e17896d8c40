package hh

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_DefaultsCoverEveryKeyContextReads(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, 1<<16, cfg.GetInt("heap.words"))
	assert.Equal(t, 1<<12, cfg.GetInt("stack.words"))
	assert.False(t, cfg.GetBool("profiling.enabled"))
	assert.False(t, cfg.GetBool("testing.checks"))
	assert.False(t, cfg.GetBool("gc.trace"))
	assert.False(t, cfg.GetBool("insn.trace"))
}

func TestConfig_SetGetRoundTrip(t *testing.T) {
	cfg := NewConfig()
	cfg.SetBool("profiling.enabled", true)
	assert.True(t, cfg.GetBool("profiling.enabled"))

	cfg.SetInt("heap.words", 1024)
	assert.Equal(t, 1024, cfg.GetInt("heap.words"))

	cfg.SetString("custom.label", "x")
	assert.Equal(t, "x", cfg.GetString("custom.label"))
}

func TestConfig_TypeMismatchPanics(t *testing.T) {
	cfg := NewConfig()
	assert.Panics(t, func() { cfg.GetInt("profiling.enabled") })
}

func TestConfig_MissingKeyPanics(t *testing.T) {
	cfg := NewConfig()
	assert.Panics(t, func() { cfg.GetBool("no.such.key") })
}
