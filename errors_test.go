package vtestd

import (
	"errors"
	"syscall"
	"testing"
)

func TestStructuredError(t *testing.T) {
	err := NewError("RESOURCE_CREATE", CodeInvalid, "bad target")

	if err.Op != "RESOURCE_CREATE" {
		t.Errorf("Expected Op=RESOURCE_CREATE, got %s", err.Op)
	}
	if err.Code != CodeInvalid {
		t.Errorf("Expected Code=CodeInvalid, got %s", err.Code)
	}

	expected := "vtestd: RESOURCE_CREATE: bad target"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestErrorWithErrno(t *testing.T) {
	err := NewErrorWithErrno("SYNC_WAIT", CodeNoDevice, syscall.EMFILE)

	if err.Errno != syscall.EMFILE {
		t.Errorf("Expected Errno=EMFILE, got %v", err.Errno)
	}
	if err.Code != CodeNoDevice {
		t.Errorf("Expected Code=CodeNoDevice, got %s", err.Code)
	}
}

func TestWrapError(t *testing.T) {
	inner := syscall.ENOENT
	err := WrapError("SYNC_READ", inner)

	if err.Code != CodeExists {
		t.Errorf("Expected Code=CodeExists, got %s", err.Code)
	}
	if err.Errno != syscall.ENOENT {
		t.Errorf("Expected Errno=ENOENT, got %v", err.Errno)
	}
	if !errors.Is(err, syscall.ENOENT) {
		t.Error("Expected wrapped error to satisfy errors.Is for ENOENT")
	}
}

func TestWrapErrorPreservesStructuredError(t *testing.T) {
	inner := NewError("RESOURCE_UNREF", CodeExists, "unknown handle")
	err := WrapError("RESOURCE_UNREF", inner)

	if err.Code != CodeExists {
		t.Errorf("Expected Code to carry through, got %s", err.Code)
	}
}

func TestIsCode(t *testing.T) {
	err := NewError("TEST", CodeFault, "offset out of bounds")

	if !IsCode(err, CodeFault) {
		t.Error("IsCode should return true for matching code")
	}
	if IsCode(err, CodeIO) {
		t.Error("IsCode should return false for non-matching code")
	}
	if IsCode(nil, CodeFault) {
		t.Error("IsCode should return false for nil error")
	}
}

func TestErrnoMapping(t *testing.T) {
	testCases := []struct {
		errno    syscall.Errno
		expected ErrorCode
	}{
		{syscall.ENOENT, CodeExists},
		{syscall.EEXIST, CodeExists},
		{syscall.EINVAL, CodeInvalid},
		{syscall.ENOMEM, CodeOutOfMemory},
		{syscall.EFAULT, CodeFault},
		{syscall.EIO, CodeIO},
	}

	for _, tc := range testCases {
		code := mapErrnoToCode(tc.errno)
		if code != tc.expected {
			t.Errorf("mapErrnoToCode(%v) = %s, want %s", tc.errno, code, tc.expected)
		}
	}
}
