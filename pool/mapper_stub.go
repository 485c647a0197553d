//go:build !linux
// +build !linux

// File: pool/mapper_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Stub implementation for platforms without anonymous mmap support here.

package pool

import (
	"os"

	"github.com/momentics/hioload-pipe/api"
)

type stubMapper struct{}

func newPlatformMapper() Mapper { return stubMapper{} }

func (stubMapper) Map(int, int) ([]byte, error) { return nil, api.ErrNotSupported }
func (stubMapper) Unmap([]byte) error           { return api.ErrNotSupported }
func (stubMapper) AdviseHuge([]byte) error      { return api.ErrNotSupported }
func (stubMapper) Lock([]byte) error            { return api.ErrNotSupported }
func (stubMapper) Unlock([]byte) error          { return api.ErrNotSupported }
func (stubMapper) PageSize() int                { return os.Getpagesize() }
