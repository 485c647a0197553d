//go:build !linux
// +build !linux

// File: internal/residency/open_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package residency

import "github.com/momentics/hioload-pipe/api"

// Open is unavailable without /proc page metadata.
func Open() (*Verifier, error) {
	return nil, api.Wrap(api.ErrCodeDiagnostic, "residency.Open", api.ErrNotSupported, "page metadata unavailable")
}
