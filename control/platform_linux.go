//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific debug probe integrations.

package control

import (
	"os"
	"runtime"

	"github.com/momentics/hioload-pipe/internal/transport"
	"github.com/shirou/gopsutil/v3/host"
)

// RegisterPlatformProbes sets Linux-specific debug probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.page_size", func() any {
		return os.Getpagesize()
	})
	dp.RegisterProbe("platform.kernel", func() any {
		v, err := host.KernelVersion()
		if err != nil {
			return err.Error()
		}
		return v
	})
	dp.RegisterProbe("platform.thp", func() any {
		mode, err := transport.THPMode()
		if err != nil {
			return err.Error()
		}
		return mode
	})
	dp.RegisterProbe("platform.pipe_max_size", func() any {
		n, err := transport.PipeMaxSize()
		if err != nil {
			return err.Error()
		}
		return n
	})
}
