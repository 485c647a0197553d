// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pipe transport layer for hioload-pipe.
// Wraps raw pipe descriptors as api.Endpoint, translating errno results into
// the api transfer classes, and owns pipe capacity planning and enforcement.
// Platform code is strictly separated by build tags.

package transport
