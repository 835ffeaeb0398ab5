package renderer

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// memfdBackingFD creates an anonymous memfd of buf's size, writes its
// current contents into it, and returns the fd for transfer to a client via
// SCM_RIGHTS. The returned fd and buf are independent after this call:
// StubRenderer continues to serve TransferReadIOV/TransferWriteIOV from buf,
// matching the real renderer's "server-managed memory, client gets a
// snapshot-mapped fd" behavior for blob resources closely enough for tests.
func memfdBackingFD(name string, buf *memBuffer) (int, error) {
	fd, err := unix.MemfdCreate(name, 0)
	if err != nil {
		return 0, fmt.Errorf("renderer: memfd_create: %w", err)
	}
	f := os.NewFile(uintptr(fd), name)
	defer f.Close()

	if err := unix.Ftruncate(fd, int64(buf.Size())); err != nil {
		return 0, fmt.Errorf("renderer: ftruncate memfd: %w", err)
	}
	data, err := buf.ReadAt(0, uint32(buf.Size()))
	if err != nil {
		return 0, err
	}
	if _, err := f.WriteAt(data, 0); err != nil {
		return 0, fmt.Errorf("renderer: write memfd: %w", err)
	}

	dup, err := unix.Dup(fd)
	if err != nil {
		return 0, fmt.Errorf("renderer: dup memfd: %w", err)
	}
	return dup, nil
}
