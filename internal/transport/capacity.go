// File: internal/transport/capacity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pipe capacity planning. Capacity is fixed once, before the first transfer,
// and never changed while a run is in flight.

package transport

import (
	"errors"
	"os"

	"github.com/momentics/hioload-pipe/api"
)

// CapacityMode selects how the pipe capacity is chosen.
type CapacityMode int

const (
	// CapacityNone leaves the kernel default untouched.
	CapacityNone CapacityMode = iota
	// CapacityExplicit applies the user supplied size.
	CapacityExplicit
	// CapacityAuto derives the size as half the buffer size for double buffering.
	CapacityAuto
)

func (m CapacityMode) String() string {
	switch m {
	case CapacityExplicit:
		return "explicit"
	case CapacityAuto:
		return "auto"
	default:
		return "none"
	}
}

// CapacityPlan is the decided capacity for one endpoint.
type CapacityPlan struct {
	Mode CapacityMode
	Size int
}

// PlanCapacity decides the capacity before any resource is acquired.
// doubleBuffered selects automatic sizing, which excludes an explicit size.
func PlanCapacity(explicit, bufSize int, doubleBuffered bool) (CapacityPlan, error) {
	const op = "transport.PlanCapacity"
	if explicit < 0 {
		return CapacityPlan{}, api.Errorf(api.ErrCodeConfig, op, "--pipe_size must not be negative, got %d", explicit)
	}
	if doubleBuffered {
		if explicit != 0 {
			return CapacityPlan{}, api.Errorf(api.ErrCodeConfig, op,
				"--pipe_size cannot be combined with --write_with_vmsplice, the capacity is derived as --buf_size/2")
		}
		return CapacityPlan{Mode: CapacityAuto, Size: bufSize / 2}, nil
	}
	if explicit > 0 {
		return CapacityPlan{Mode: CapacityExplicit, Size: explicit}, nil
	}
	return CapacityPlan{Mode: CapacityNone}, nil
}

// Apply sets the planned capacity on ep. A rejected request or a granted
// size different from the request is a resource error.
func (p CapacityPlan) Apply(ep api.Endpoint) error {
	const op = "transport.Apply"
	if p.Mode == CapacityNone {
		return nil
	}
	got, err := ep.SetPipeSize(p.Size)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return api.Wrap(api.ErrCodeResource, op, err,
				"setting the pipe size failed with EPERM, the size is probably above the pipe size limit (/proc/sys/fs/pipe-max-size)").
				WithContext("size", p.Size)
		}
		return api.Wrap(api.ErrCodeResource, op, err, "setting the pipe size failed, is the descriptor a pipe?")
	}
	if got != p.Size {
		return api.Errorf(api.ErrCodeResource, op, "could not set the pipe size to %#x, got %#x instead", p.Size, got)
	}
	return nil
}

// Verify checks that ep still has the planned capacity.
func (p CapacityPlan) Verify(ep api.Endpoint) error {
	const op = "transport.Verify"
	if p.Mode == CapacityNone {
		return nil
	}
	got, err := ep.PipeSize()
	if err != nil {
		return api.Wrap(api.ErrCodeTransport, op, err, "could not read the pipe size")
	}
	if got != p.Size {
		return api.Errorf(api.ErrCodeTransport, op, "pipe capacity is %d, expected %d", got, p.Size)
	}
	return nil
}
