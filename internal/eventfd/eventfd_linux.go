//go:build linux

package eventfd

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

type linuxNotifier struct {
	fd int
}

// New creates a non-blocking, close-on-exec eventfd, matching
// vtest_sync_wait_init's EFD_CLOEXEC|EFD_NONBLOCK.
func New() (Notifier, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("eventfd: create: %w", err)
	}
	return &linuxNotifier{fd: fd}, nil
}

func (n *linuxNotifier) Notify() error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, err := unix.Write(n.fd, buf[:])
	return err
}

func (n *linuxNotifier) FD() int { return n.fd }

func (n *linuxNotifier) Close() error {
	return unix.Close(n.fd)
}
