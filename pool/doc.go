// Package pool
// Author: momentics <momentics@gmail.com>
//
// Page-oriented memory layer for hioload-pipe.
// Allocates page or huge-page aligned regions through a platform Mapper,
// prefaults and pins them on request, and rotates the two halves used by
// double-buffered page-moving transfers.
// See allocator.go, buffer.go, ring.go for implementation details.
package pool
