// File: internal/gup/gup.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package gup times get_user_pages_fast(2) over a benchmark buffer through
// the kernel's gup_test debugfs device. The kernel must be built with
// CONFIG_GUP_TEST and debugfs must be mounted.
package gup

import (
	"time"

	"github.com/momentics/hioload-pipe/api"
	"github.com/rs/zerolog"
)

// DevicePath is the gup_test control file.
const DevicePath = "/sys/kernel/debug/gup_test"

const maxPagesToDump = 8

// Request mirrors struct gup_test from the kernel's mm/gup_test.h.
type Request struct {
	GetDeltaUsec uint64
	PutDeltaUsec uint64
	Addr         uint64
	Size         uint64
	PagesPerCall uint32
	GupFlags     uint32
	TestFlags    uint32
	WhichPages   [maxPagesToDump]uint32
}

// Device issues gup_test requests.
type Device interface {
	// FastBenchmark runs GUP_FAST_BENCHMARK and fills the deltas of r.
	FastBenchmark(r *Request) error
	Close() error
}

// Result of one benchmark run.
type Result struct {
	Calls        uint64
	PagesPerCall uint32
	Get          time.Duration // sum of the kernel reported get deltas
	Put          time.Duration
}

// Run pins and releases the pages of [addr, addr+size) once per half
// buffer of budget, budget/(size/2) calls in total.
func Run(dev Device, addr uintptr, size, pageSize int, budget uint64, log zerolog.Logger) (Result, error) {
	const op = "gup.Run"
	half := size / 2
	switch {
	case budget == 0:
		return Result{}, api.Errorf(api.ErrCodeConfig, op, "--bytes_to_pipe must be bounded for the gup benchmark")
	case pageSize <= 0 || half < pageSize:
		return Result{}, api.Errorf(api.ErrCodeConfig, op,
			"--buf_size %d must span at least two pages of %d bytes", size, pageSize)
	}
	req := Request{
		Addr:         uint64(addr),
		PagesPerCall: uint32(half / pageSize),
	}
	res := Result{PagesPerCall: req.PagesPerCall}
	log.Info().Uint32("pages_per_call", req.PagesPerCall).Uint64("calls", budget/uint64(half)).
		Msg("will get user pages")
	for done := uint64(0); done < budget; done += uint64(half) {
		req.Size = uint64(size)
		if err := dev.FastBenchmark(&req); err != nil {
			return res, api.Wrap(api.ErrCodeResource, op, err, "gup_test failed").
				WithContext("call", res.Calls)
		}
		res.Calls++
		res.Get += time.Duration(req.GetDeltaUsec) * time.Microsecond
		res.Put += time.Duration(req.PutDeltaUsec) * time.Microsecond
	}
	return res, nil
}
