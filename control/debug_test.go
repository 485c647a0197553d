package control

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugProbesDumpState(t *testing.T) {
	dp := NewDebugProbes()
	dp.RegisterProbe("a", func() any { return 1 })
	dp.RegisterProbe("b", func() any { return "two" })
	state := dp.DumpState()
	assert.Equal(t, map[string]any{"a": 1, "b": "two"}, state)
}

func TestDebugProbesLogRespectsLevel(t *testing.T) {
	dp := NewDebugProbes()
	calls := 0
	dp.RegisterProbe("x", func() any { calls++; return calls })

	var buf bytes.Buffer
	dp.Log(zerolog.New(&buf).Level(zerolog.InfoLevel))
	assert.Zero(t, buf.Len())
	assert.Zero(t, calls)

	dp.Log(zerolog.New(&buf).Level(zerolog.DebugLevel))
	assert.Contains(t, buf.String(), `"x":1`)
	assert.Contains(t, buf.String(), `"message":"platform"`)
}

func TestRegisterPlatformProbes(t *testing.T) {
	dp := NewDebugProbes()
	RegisterPlatformProbes(dp)
	state := dp.DumpState()
	require.Contains(t, state, "platform.cpus")
	assert.Greater(t, state["platform.cpus"], 0)
}
