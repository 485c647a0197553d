//go:build !linux
// +build !linux

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package affinity

import "github.com/momentics/hioload-pipe/api"

func setAffinityPlatform(cpuID int) error {
	return api.Wrap(api.ErrCodeNotSupported, "affinity", api.ErrNotSupported, "CPU pinning is not available on this platform")
}

func allowedPlatform() ([]int, error) {
	return nil, api.Wrap(api.ErrCodeNotSupported, "affinity", api.ErrNotSupported, "CPU affinity is not available on this platform")
}
