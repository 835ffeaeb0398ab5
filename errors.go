// Package vtestd implements the command dispatch and synchronization core
// of a test-harness server brokering client access to a GPU rendering
// library: framed protocol negotiation, resource/timeline bookkeeping, and
// fence-gated sync queues and waits.
package vtestd

import (
	"errors"
	"fmt"
	"syscall"
)

// Error represents a structured vtestd error with operation context and
// errno mapping.
type Error struct {
	Op    string    // Operation that failed (e.g., "RESOURCE_CREATE", "SYNC_WAIT")
	Code  ErrorCode // High-level error category from §7
	Errno syscall.Errno // Underlying errno, if any (0 if not applicable)
	Msg   string    // Human-readable message
	Inner error     // Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op == "" {
		return fmt.Sprintf("vtestd: %s", msg)
	}
	if e.Errno != 0 {
		return fmt.Sprintf("vtestd: %s: %s (errno=%d)", e.Op, msg, e.Errno)
	}
	return fmt.Sprintf("vtestd: %s: %s", e.Op, msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is supports errors.Is comparison by error Code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrorCode is the §7 error-kind vocabulary every handler surfaces.
type ErrorCode string

const (
	// CodeShortRead: client closed the connection or sent a truncated
	// frame. Fatal for the connection.
	CodeShortRead ErrorCode = "short read"
	// CodeInvalid: malformed arguments, bad offsets, or a command
	// forbidden in the connection's current state.
	CodeInvalid ErrorCode = "invalid"
	// CodeExists: duplicate handle, or a referenced handle missing from
	// its table (the name is historical, carried from the source).
	CodeExists ErrorCode = "exists"
	// CodeOutOfMemory: allocator failure.
	CodeOutOfMemory ErrorCode = "out of memory"
	// CodeNoDevice: event-fd (or pipe fallback) creation failed.
	CodeNoDevice ErrorCode = "no device"
	// CodeIO: an underlying I/O error, carried in Errno.
	CodeIO ErrorCode = "io error"
	// CodeFault: a transfer's offset/length fell outside a resource's
	// backing storage.
	CodeFault ErrorCode = "fault"
)

// NewError creates a structured error with no wrapped cause.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewErrorWithErrno creates a structured error carrying a syscall errno.
func NewErrorWithErrno(op string, code ErrorCode, errno syscall.Errno) *Error {
	return &Error{Op: op, Code: code, Errno: errno, Msg: errno.Error()}
}

// WrapError wraps an existing error with vtestd operation context,
// mapping syscall errnos onto the §7 error-kind vocabulary.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	if ve, ok := inner.(*Error); ok {
		return &Error{Op: op, Code: ve.Code, Errno: ve.Errno, Msg: ve.Msg, Inner: ve.Inner}
	}

	var errno syscall.Errno
	if errors.As(inner, &errno) {
		return &Error{Op: op, Code: mapErrnoToCode(errno), Errno: errno, Msg: errno.Error(), Inner: inner}
	}

	return &Error{Op: op, Code: CodeIO, Msg: inner.Error(), Inner: inner}
}

func mapErrnoToCode(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.ENOENT:
		return CodeExists
	case syscall.EEXIST:
		return CodeExists
	case syscall.EINVAL, syscall.E2BIG:
		return CodeInvalid
	case syscall.ENOMEM, syscall.ENOSPC:
		return CodeOutOfMemory
	case syscall.EFAULT:
		return CodeFault
	default:
		return CodeIO
	}
}

// IsCode reports whether err (or a wrapped cause) is a *Error with the
// given Code.
func IsCode(err error, code ErrorCode) bool {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Code == code
	}
	return false
}
