// File: internal/transport/feature_detect.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reports kernel tunables that bound what a pipe benchmark can request.

package transport

import (
	"os"
	"strconv"
	"strings"
)

// Paths are variables so tests can point them at fixtures.
var (
	PipeMaxSizePath = "/proc/sys/fs/pipe-max-size"
	THPEnabledPath  = "/sys/kernel/mm/transparent_hugepage/enabled"
)

// PipeMaxSize returns the largest capacity an unprivileged process may request.
func PipeMaxSize() (int, error) {
	raw, err := os.ReadFile(PipeMaxSizePath)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(raw)))
}

// THPMode returns the active transparent huge page policy ("always",
// "madvise" or "never"), the bracketed entry of the sysfs setting.
func THPMode() (string, error) {
	raw, err := os.ReadFile(THPEnabledPath)
	if err != nil {
		return "", err
	}
	return parseBracketed(string(raw)), nil
}

func parseBracketed(s string) string {
	for _, f := range strings.Fields(s) {
		if len(f) > 2 && f[0] == '[' && f[len(f)-1] == ']' {
			return f[1 : len(f)-1]
		}
	}
	return strings.TrimSpace(s)
}
