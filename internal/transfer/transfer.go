// Package transfer implements the GET/PUT staging engine (component I):
// moving bytes between a resource's storage and the wire, either via its
// pre-mapped shm iov ("v2") or a staging buffer carrying inline data
// ("v1"), with "nop" variants that skip the renderer call entirely for
// isolating protocol overhead during benchmarking.
package transfer

import (
	"io"

	"github.com/go-vtest/vtestd/internal/renderer"
	"github.com/go-vtest/vtestd/internal/session"
)

// Get implements TRANSFER_GET/TRANSFER_GET2 (§4.8): read length bytes at
// offset from the resource and write them to w. For an shm-backed ("v2")
// resource, offset must be < len(iov); out-of-bounds is a Fault. For a
// non-shm resource the read goes through the renderer's TransferReadIOV.
// nop skips the actual read but still produces length zero bytes, for
// isolating protocol overhead.
func Get(r renderer.Renderer, res *session.Resource, ctxID uint32, offset uint64, length uint32, nop bool, w io.Writer) error {
	if nop {
		buf := getStagingBuffer(length)
		defer putStagingBuffer(buf)
		for i := range buf {
			buf[i] = 0
		}
		_, err := w.Write(buf)
		return err
	}

	if res.HasIOV() {
		iov := res.IOV
		if offset >= uint64(len(iov)) {
			return &session.Error{Op: "TRANSFER_GET", Code: session.CodeFault, Msg: "offset out of bounds"}
		}
		end := offset + uint64(length)
		if end > uint64(len(iov)) {
			end = uint64(len(iov))
		}
		_, err := w.Write(iov[offset:end])
		return err
	}

	data, err := r.TransferReadIOV(ctxID, res.ServerID, offset, length)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Put implements TRANSFER_PUT/TRANSFER_PUT2 (§4.8): read exactly length
// bytes of inline data from src and write them into the resource at
// offset. Mirrors Get's shm/non-shm split. nop still consumes length
// bytes from src (so the wire stays in sync) but discards them.
func Put(r renderer.Renderer, res *session.Resource, ctxID uint32, offset uint64, length uint32, nop bool, src io.Reader) error {
	buf := getStagingBuffer(length)
	defer putStagingBuffer(buf)
	if _, err := io.ReadFull(src, buf); err != nil {
		return err
	}
	if nop {
		return nil
	}

	if res.HasIOV() {
		iov := res.IOV
		if offset >= uint64(len(iov)) {
			return &session.Error{Op: "TRANSFER_PUT", Code: session.CodeFault, Msg: "offset out of bounds"}
		}
		end := offset + uint64(length)
		if end > uint64(len(iov)) {
			end = uint64(len(iov))
		}
		copy(iov[offset:end], buf)
		return nil
	}

	return r.TransferWriteIOV(ctxID, res.ServerID, offset, buf)
}
