// File: pool/mapper.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral memory mapping contract. Platform-specific implementations
// are located in mapper_linux.go and mapper_stub.go guarded by build tags.

package pool

// Mapper acquires and configures anonymous memory regions.
type Mapper interface {
	// Map returns a zero-filled region of length bytes whose base is aligned to align.
	Map(length, align int) ([]byte, error)
	// Unmap releases a region returned by Map.
	Unmap(region []byte) error
	// AdviseHuge marks the region as eligible for transparent huge pages.
	AdviseHuge(region []byte) error
	// Lock pins the region in RAM.
	Lock(region []byte) error
	// Unlock reverts Lock.
	Unlock(region []byte) error
	// PageSize returns the base page size.
	PageSize() int
}

// NewMapper returns the Mapper for the running platform.
func NewMapper() Mapper {
	return newPlatformMapper()
}
