// File: internal/perf/proc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fallback counter for kernels without perf events or with a restrictive
// perf_event_paranoid: samples the process minor+major fault totals.

package perf

import (
	"os"

	"github.com/momentics/hioload-pipe/api"
	"github.com/shirou/gopsutil/v3/process"
)

// FaultSource reports cumulative page faults of a process.
type FaultSource interface {
	PageFaults() (*process.PageFaultsStat, error)
}

// ProcCounter derives a bracketed count from cumulative totals.
type ProcCounter struct {
	src     FaultSource
	base    uint64
	frozen  uint64
	enabled bool
}

var _ api.FaultCounter = (*ProcCounter)(nil)

// NewProcCounter samples the calling process.
func NewProcCounter() (*ProcCounter, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, api.Wrap(api.ErrCodeCounter, "perf.NewProcCounter", err, "could not inspect own process")
	}
	return NewProcCounterFrom(p), nil
}

// NewProcCounterFrom builds a counter over src.
func NewProcCounterFrom(src FaultSource) *ProcCounter {
	return &ProcCounter{src: src}
}

func (c *ProcCounter) total() (uint64, error) {
	st, err := c.src.PageFaults()
	if err != nil {
		return 0, api.Wrap(api.ErrCodeCounter, "perf.proc", err, "could not read page faults")
	}
	return st.MinorFaults + st.MajorFaults, nil
}

// Reset zeroes the counter.
func (c *ProcCounter) Reset() error {
	t, err := c.total()
	if err != nil {
		return err
	}
	c.base, c.frozen = t, 0
	return nil
}

// Enable starts counting.
func (c *ProcCounter) Enable() error {
	if c.enabled {
		return nil
	}
	t, err := c.total()
	if err != nil {
		return err
	}
	// Faults between Reset and Enable are not counted.
	c.base = t - c.frozen
	c.enabled = true
	return nil
}

// Disable stops counting.
func (c *ProcCounter) Disable() error {
	if !c.enabled {
		return nil
	}
	t, err := c.total()
	if err != nil {
		return err
	}
	c.frozen = t - c.base
	c.enabled = false
	return nil
}

// Read returns the faults counted while enabled.
func (c *ProcCounter) Read() (uint64, error) {
	if !c.enabled {
		return c.frozen, nil
	}
	t, err := c.total()
	if err != nil {
		return 0, err
	}
	return t - c.base, nil
}

// Close is a no-op.
func (c *ProcCounter) Close() error { return nil }
