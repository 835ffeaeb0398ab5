// Package wire implements the framed command protocol spoken over the
// vtestd connection: a 2-word little-endian header (length in dwords,
// then command id) followed by a command-specific payload, with out-of-band
// file descriptors passed alongside select commands via SCM_RIGHTS.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/go-vtest/vtestd/internal/constants"
)

// Header is the fixed 2-word preamble on every command frame. LengthDW is
// the payload length in 32-bit words, not counting the header itself.
type Header struct {
	LengthDW uint32
	CmdID    uint32
}

var _ [constants.HeaderBytes]byte = [unsafe.Sizeof(Header{})]byte{}

// ReadHeader reads and decodes the next frame header from r.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [constants.HeaderBytes]byte
	if err := ReadExact(r, buf[:]); err != nil {
		return Header{}, err
	}
	return Header{
		LengthDW: binary.LittleEndian.Uint32(buf[0:4]),
		CmdID:    binary.LittleEndian.Uint32(buf[4:8]),
	}, nil
}

// WriteHeader encodes and writes a frame header to w.
func WriteHeader(w io.Writer, h Header) error {
	var buf [constants.HeaderBytes]byte
	binary.LittleEndian.PutUint32(buf[0:4], h.LengthDW)
	binary.LittleEndian.PutUint32(buf[4:8], h.CmdID)
	return WriteExact(w, buf[:])
}

// ReadExact reads len(buf) bytes from r, treating an early EOF as a short
// read rather than success.
func ReadExact(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return fmt.Errorf("wire: short read: %w", err)
	}
	return err
}

// WriteExact writes all of buf to w, treating a short write as an error.
func WriteExact(w io.Writer, buf []byte) error {
	n, err := w.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("wire: short write: wrote %d of %d bytes", n, len(buf))
	}
	return nil
}

// SendFD sends a single file descriptor as ancillary data alongside a
// single-byte payload, as the protocol does for shmem and sync eventfds.
func SendFD(conn *net.UnixConn, fd int) error {
	rights := unix.UnixRights(fd)
	_, _, err := conn.WriteMsgUnix([]byte{0}, rights, nil)
	if err != nil {
		return fmt.Errorf("wire: send fd: %w", err)
	}
	return nil
}

// RecvFD receives a single file descriptor passed as ancillary data,
// returning it as an *os.File the caller owns and must close.
func RecvFD(conn *net.UnixConn) (*os.File, error) {
	oob := make([]byte, unix.CmsgSpace(4))
	buf := make([]byte, 1)
	_, oobn, _, _, err := conn.ReadMsgUnix(buf, oob)
	if err != nil {
		return nil, fmt.Errorf("wire: recv fd: %w", err)
	}
	cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return nil, fmt.Errorf("wire: recv fd: parse cmsg: %w", err)
	}
	if len(cmsgs) == 0 {
		return nil, fmt.Errorf("wire: recv fd: no control message")
	}
	fds, err := unix.ParseUnixRights(&cmsgs[0])
	if err != nil {
		return nil, fmt.Errorf("wire: recv fd: parse rights: %w", err)
	}
	if len(fds) == 0 {
		return nil, fmt.Errorf("wire: recv fd: no descriptors")
	}
	return os.NewFile(uintptr(fds[0]), "vtest-fd"), nil
}
