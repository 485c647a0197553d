//go:build !linux
// +build !linux

// File: internal/gup/device_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package gup

import "github.com/momentics/hioload-pipe/api"

// Open is unavailable without the Linux gup_test device.
func Open() (Device, error) {
	return nil, api.Wrap(api.ErrCodeNotSupported, "gup.Open", api.ErrNotSupported, "gup_test is Linux only")
}
