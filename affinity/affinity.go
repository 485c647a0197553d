// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files (affinity_linux.go, affinity_stub.go) guarded by build tags.

package affinity

import (
	"runtime"

	"github.com/momentics/hioload-pipe/internal/normalize"
)

// SetAffinity locks the calling goroutine to its OS thread and pins that
// thread to cpuID. normalize.NoCPU leaves the thread unpinned and unlocked.
// The goroutine stays locked after a successful call.
func SetAffinity(cpuID int) error {
	cpu, err := normalize.CPUIndex(cpuID, runtime.NumCPU())
	if err != nil || cpu == normalize.NoCPU {
		return err
	}
	runtime.LockOSThread()
	if err := setAffinityPlatform(cpu); err != nil {
		runtime.UnlockOSThread()
		return err
	}
	return nil
}

// Allowed returns the CPUs the calling thread may run on.
func Allowed() ([]int, error) {
	return allowedPlatform()
}
