// Package shmfile implements the shared-memory file creation primitive
// spec.md §1 treats as an external collaborator: given a name and size,
// produce an fd plus a writable mapping of exactly that many bytes.
package shmfile

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Mapping is an anonymous shared-memory object: an fd (to transfer to a
// client via SCM_RIGHTS) and the server's own read/write mapping of it.
type Mapping struct {
	FD   int
	Data []byte
}

// Create allocates an anonymous memfd of exactly size bytes, named name
// for debugging, and maps it read/write in the server's address space.
func Create(name string, size uint64) (*Mapping, error) {
	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("shmfile: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shmfile: ftruncate: %w", err)
	}
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shmfile: mmap: %w", err)
	}
	return &Mapping{FD: fd, Data: data}, nil
}

// Close unmaps the server-side mapping and closes the server's own fd
// (the client's duplicate, if any was sent, is unaffected).
func (m *Mapping) Close() error {
	if err := unix.Munmap(m.Data); err != nil {
		return fmt.Errorf("shmfile: munmap: %w", err)
	}
	return unix.Close(m.FD)
}
