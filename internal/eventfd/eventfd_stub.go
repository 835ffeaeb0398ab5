//go:build !linux

package eventfd

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

type pipeNotifier struct {
	r, w *os.File
}

// New falls back to a non-blocking pipe on hosts without eventfd; a single
// byte write makes the read end readable, satisfying "read on that fd must
// return >=1 byte exactly once the wait resolves."
func New() (Notifier, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("eventfd: pipe fallback: %w", err)
	}
	if err := unix.SetNonblock(int(r.Fd()), true); err != nil {
		r.Close()
		w.Close()
		return nil, fmt.Errorf("eventfd: set nonblock: %w", err)
	}
	return &pipeNotifier{r: r, w: w}, nil
}

func (n *pipeNotifier) Notify() error {
	_, err := n.w.Write([]byte{1})
	return err
}

func (n *pipeNotifier) FD() int { return int(n.r.Fd()) }

func (n *pipeNotifier) Close() error {
	werr := n.w.Close()
	rerr := n.r.Close()
	if werr != nil {
		return werr
	}
	return rerr
}
