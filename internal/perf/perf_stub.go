//go:build !linux
// +build !linux

// File: internal/perf/perf_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package perf

import "github.com/momentics/hioload-pipe/api"

// OpenPageFaults is unavailable without perf_event_open.
func OpenPageFaults() (api.FaultCounter, error) {
	return nil, api.Wrap(api.ErrCodeCounter, "perf.Open", api.ErrNotSupported, "perf events unavailable")
}
