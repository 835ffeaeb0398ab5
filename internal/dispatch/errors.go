package dispatch

import (
	"errors"

	"github.com/go-vtest/vtestd"
	"github.com/go-vtest/vtestd/internal/session"
)

// translateError maps a session.Error onto the root package's §7 error
// vocabulary, since internal/session cannot import the root package
// (which imports session) without a cycle.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var se *session.Error
	if errors.As(err, &se) {
		return vtestd.NewError(se.Op, translateCode(se.Code), se.Msg)
	}
	return vtestd.WrapError("dispatch", err)
}

func translateCode(c session.Code) vtestd.ErrorCode {
	switch c {
	case session.CodeInvalid:
		return vtestd.CodeInvalid
	case session.CodeExists:
		return vtestd.CodeExists
	case session.CodeOutOfMemory:
		return vtestd.CodeOutOfMemory
	case session.CodeFault:
		return vtestd.CodeFault
	case session.CodeNoDevice:
		return vtestd.CodeNoDevice
	case session.CodeIO:
		return vtestd.CodeIO
	default:
		return vtestd.CodeInvalid
	}
}
