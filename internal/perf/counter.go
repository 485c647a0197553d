// File: internal/perf/counter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Page fault counters bracketing one measured transfer. Backends:
//   perf - perf_event_open software counter (Linux)
//   proc - process fault totals from /proc via gopsutil
//   none - counts nothing

package perf

import (
	"encoding/binary"

	"github.com/momentics/hioload-pipe/api"
)

// Backend names accepted by New.
const (
	BackendPerf = "perf"
	BackendProc = "proc"
	BackendNone = "none"
)

// Backends lists the valid backend names.
var Backends = []string{BackendPerf, BackendProc, BackendNone}

// New opens the named backend for the calling process.
func New(backend string) (api.FaultCounter, error) {
	switch backend {
	case BackendPerf:
		c, err := OpenPageFaults()
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendProc:
		c, err := NewProcCounter()
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendNone:
		return Nop{}, nil
	}
	return nil, api.Errorf(api.ErrCodeConfig, "perf.New", "unknown fault counter %q", backend)
}

// Nop is a counter that always reads zero.
type Nop struct{}

func (Nop) Reset() error          { return nil }
func (Nop) Enable() error         { return nil }
func (Nop) Disable() error        { return nil }
func (Nop) Read() (uint64, error) { return 0, nil }
func (Nop) Close() error          { return nil }

// groupReadSize is the PERF_FORMAT_GROUP|PERF_FORMAT_ID layout for one
// event: nr, then one {value, id} pair.
const groupReadSize = 3 * 8

// parseGroupRead validates a group read of exactly one event with the
// expected id and returns its value.
func parseGroupRead(buf []byte, id uint64) (uint64, error) {
	const op = "perf.Read"
	if len(buf) < groupReadSize {
		return 0, api.Errorf(api.ErrCodeCounter, op, "short counter read: %d bytes", len(buf))
	}
	nr := binary.NativeEndian.Uint64(buf[0:])
	if nr != 1 {
		return 0, api.Errorf(api.ErrCodeCounter, op, "got %d counters, expected 1", nr)
	}
	value := binary.NativeEndian.Uint64(buf[8:])
	got := binary.NativeEndian.Uint64(buf[16:])
	if got != id {
		return 0, api.Errorf(api.ErrCodeCounter, op, "counter id mismatch: got %d, expected %d", got, id)
	}
	return value, nil
}
