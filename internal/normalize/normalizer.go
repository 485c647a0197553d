// File: internal/normalize/normalizer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Index validation for CPU parameters. All call sites that pin threads check
// their indices here against the topology the process can actually use.
//
// Example usage:
//
//   cpu, err := normalize.CPUIndex(requested, runtime.NumCPU())

package normalize

import (
	"github.com/momentics/hioload-pipe/api"
)

// NoCPU is the sentinel meaning "do not pin".
const NoCPU = -1

// CPUIndex validates a CPU index against maxCPUs.
//   - NoCPU is passed through unchanged.
//   - Any other negative value, or one >= maxCPUs, is a configuration error.
//   - If maxCPUs < 1, every index except NoCPU is rejected.
func CPUIndex(requested int, maxCPUs int) (int, error) {
	if requested == NoCPU {
		return NoCPU, nil
	}
	if maxCPUs < 1 {
		return NoCPU, api.Errorf(api.ErrCodeConfig, "normalize", "CPU topology reported %d cores", maxCPUs)
	}
	if requested < 0 || requested >= maxCPUs {
		return NoCPU, api.Errorf(api.ErrCodeConfig, "normalize", "CPU index %d out of range [0, %d)", requested, maxCPUs)
	}
	return requested, nil
}
