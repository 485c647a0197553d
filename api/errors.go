// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-pipe.

package api

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors used across the library. Structured errors match them
// through errors.Is by code.
var (
	ErrConfig       = errors.New("invalid configuration")
	ErrResource     = errors.New("resource acquisition failed")
	ErrTransport    = errors.New("transfer failed")
	ErrCounter      = errors.New("instrumentation failed")
	ErrDiagnostic   = errors.New("diagnostic unavailable")
	ErrNotSupported = errors.New("operation not supported")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeConfig
	ErrCodeResource
	ErrCodeTransport
	ErrCodeCounter
	ErrCodeDiagnostic
	ErrCodeNotSupported
)

var codeSentinels = map[ErrorCode]error{
	ErrCodeConfig:       ErrConfig,
	ErrCodeResource:     ErrResource,
	ErrCodeTransport:    ErrTransport,
	ErrCodeCounter:      ErrCounter,
	ErrCodeDiagnostic:   ErrDiagnostic,
	ErrCodeNotSupported: ErrNotSupported,
}

// String returns the short name of the code.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeConfig:
		return "config"
	case ErrCodeResource:
		return "resource"
	case ErrCodeTransport:
		return "transport"
	case ErrCodeCounter:
		return "counter"
	case ErrCodeDiagnostic:
		return "diagnostic"
	case ErrCodeNotSupported:
		return "not-supported"
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Err     error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if len(e.Context) > 0 {
		fmt.Fprintf(&sb, " (context: %+v)", e.Context)
	}
	return sb.String()
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel belonging to the error code.
func (e *Error) Is(target error) bool {
	if s, ok := codeSentinels[e.Code]; ok && s == target {
		return true
	}
	if t, ok := target.(*Error); ok {
		return t.Code == e.Code && (t.Op == "" || t.Op == e.Op)
	}
	return false
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a structured error for an operation with a formatted message.
func Errorf(code ErrorCode, op, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap attaches code and operation to a lower level error such as a syscall errno.
func Wrap(code ErrorCode, op string, err error, message string) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf returns the code of the first structured error in the chain.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeTransport
}
