package api_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/momentics/hioload-pipe/api"
	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinelByCode(t *testing.T) {
	err := api.Errorf(api.ErrCodeResource, "pool.Allocate", "could not allocate %d bytes", 4096)
	assert.True(t, errors.Is(err, api.ErrResource))
	assert.False(t, errors.Is(err, api.ErrConfig))
	assert.Equal(t, "pool.Allocate: could not allocate 4096 bytes", err.Error())
}

func TestWrapKeepsCause(t *testing.T) {
	err := api.Wrap(api.ErrCodeTransport, "vmsplice", api.ErrInterrupted, "vmsplice failed").
		WithContext("fd", 1)
	assert.True(t, errors.Is(err, api.ErrInterrupted))
	assert.True(t, errors.Is(err, api.ErrTransport))
	assert.Equal(t, "vmsplice: vmsplice failed: "+api.ErrInterrupted.Error()+" (context: map[fd:1])", err.Error())
}

func TestErrorIsSameCodeAndOp(t *testing.T) {
	err := fmt.Errorf("run: %w", api.Errorf(api.ErrCodeConfig, "control.Validate", "bad"))
	assert.True(t, errors.Is(err, &api.Error{Code: api.ErrCodeConfig}))
	assert.True(t, errors.Is(err, &api.Error{Code: api.ErrCodeConfig, Op: "control.Validate"}))
	assert.False(t, errors.Is(err, &api.Error{Code: api.ErrCodeConfig, Op: "pool.Allocate"}))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, api.ErrCodeOK, api.CodeOf(nil))
	assert.Equal(t, api.ErrCodeCounter, api.CodeOf(fmt.Errorf("x: %w", api.NewError(api.ErrCodeCounter, "bad read"))))
	assert.Equal(t, api.ErrCodeTransport, api.CodeOf(errors.New("plain")))
	assert.Equal(t, "diagnostic", api.ErrCodeDiagnostic.String())
}

func TestOutcomeClean(t *testing.T) {
	assert.True(t, api.OutcomeBudgetReached.Clean())
	assert.True(t, api.OutcomePeerClosed.Clean())
	assert.False(t, api.OutcomeFatal.Clean())
	assert.False(t, api.OutcomeRunning.Clean())
}

func TestThroughput(t *testing.T) {
	st := api.TransferStats{Bytes: 10 << 20, Elapsed: 2 * time.Second}
	assert.Equal(t, float64(5<<20), st.Throughput())
	assert.Zero(t, api.TransferStats{Bytes: 1}.Throughput())
}
