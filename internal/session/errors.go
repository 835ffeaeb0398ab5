package session

import "fmt"

// Code mirrors the §7 error-kind vocabulary at the session-package level,
// so dispatch can map it onto the root package's ErrorCode without this
// package importing the root package (which would cycle).
type Code string

const (
	CodeInvalid     Code = "invalid"
	CodeExists      Code = "exists"
	CodeOutOfMemory Code = "out of memory"
	CodeFault       Code = "fault"
	CodeNoDevice    Code = "no device"
	CodeIO          Code = "io error"
)

// Error is a structured session-layer error carrying a §7 Code.
type Error struct {
	Op    string
	Code  Code
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Inner }

func invalid(op, msg string) *Error {
	return &Error{Op: op, Code: CodeInvalid, Msg: msg}
}

func exists(op, msg string) *Error {
	return &Error{Op: op, Code: CodeExists, Msg: msg}
}

func fault(op, msg string) *Error {
	return &Error{Op: op, Code: CodeFault, Msg: msg}
}

func wrap(op string, err error) *Error {
	if err == nil {
		return nil
	}
	if se, ok := err.(*Error); ok {
		return &Error{Op: op, Code: se.Code, Msg: se.Msg, Inner: se.Inner}
	}
	return &Error{Op: op, Code: CodeInvalid, Msg: err.Error(), Inner: err}
}
