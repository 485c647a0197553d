//go:build linux
// +build linux

// File: internal/residency/open_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package residency

import (
	"io"
	"os"

	"github.com/momentics/hioload-pipe/api"
	"golang.org/x/sys/unix"
)

const (
	pagemapPath    = "/proc/self/pagemap"
	kpageflagsPath = "/proc/kpageflags"
)

// Open prepares a Verifier for the current process. The process is marked
// dumpable first; pagemap hides frame numbers from non-dumpable processes.
func Open() (*Verifier, error) {
	const op = "residency.Open"
	if err := unix.Prctl(unix.PR_SET_DUMPABLE, 1, 0, 0, 0); err != nil {
		return nil, api.Wrap(api.ErrCodeDiagnostic, op, err, "could not set the process as dumpable")
	}
	pm, err := os.Open(pagemapPath)
	if err != nil {
		return nil, api.Wrap(api.ErrCodeDiagnostic, op, err, "could not open "+pagemapPath)
	}
	kf, err := os.Open(kpageflagsPath)
	if err != nil {
		pm.Close()
		return nil, api.Wrap(api.ErrCodeDiagnostic, op, err, "could not open "+kpageflagsPath)
	}
	v := NewVerifier(pm, kf, os.Getpagesize())
	v.closers = []io.Closer{pm, kf}
	return v, nil
}
