package transfer

import (
	"bytes"
	"testing"

	"github.com/go-vtest/vtestd/internal/renderer"
	"github.com/go-vtest/vtestd/internal/session"
)

func TestPutThenGetNonShm(t *testing.T) {
	r := renderer.NewStubRenderer()
	h, err := r.ResourceCreate(1, renderer.ResourceCreateArgs{})
	if err != nil {
		t.Fatalf("ResourceCreate: %v", err)
	}
	res := &session.Resource{ServerID: h}

	payload := []byte("staged bytes")
	if err := Put(r, res, 1, 0, uint32(len(payload)), false, bytes.NewReader(payload)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var out bytes.Buffer
	if err := Get(r, res, 1, 0, uint32(len(payload)), false, &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.String() != string(payload) {
		t.Fatalf("got %q, want %q", out.String(), payload)
	}
}

func TestGetNopProducesZeroedBytes(t *testing.T) {
	r := renderer.NewStubRenderer()
	res := &session.Resource{ServerID: 1}

	var out bytes.Buffer
	if err := Get(r, res, 1, 0, 16, true, &out); err != nil {
		t.Fatalf("Get nop: %v", err)
	}
	if out.Len() != 16 {
		t.Fatalf("nop get produced %d bytes, want 16", out.Len())
	}
	for _, b := range out.Bytes() {
		if b != 0 {
			t.Fatal("nop get produced non-zero byte")
		}
	}
}

func TestPutNopConsumesButDiscards(t *testing.T) {
	r := renderer.NewStubRenderer()
	h, err := r.ResourceCreate(1, renderer.ResourceCreateArgs{})
	if err != nil {
		t.Fatalf("ResourceCreate: %v", err)
	}
	res := &session.Resource{ServerID: h}

	if err := Put(r, res, 1, 0, 8, true, bytes.NewReader(make([]byte, 8))); err != nil {
		t.Fatalf("Put nop: %v", err)
	}
	got, err := r.TransferReadIOV(1, h, 0, 8)
	if err != nil {
		t.Fatalf("TransferReadIOV: %v", err)
	}
	for _, b := range got {
		if b != 0 {
			t.Fatal("nop put actually wrote data")
		}
	}
}

func TestGetShmOffsetOutOfBounds(t *testing.T) {
	res := &session.Resource{ServerID: 1, IOV: make([]byte, 16)}
	var out bytes.Buffer
	err := Get(nil, res, 1, 32, 4, false, &out)
	if err == nil {
		t.Fatal("Get succeeded with out-of-bounds shm offset")
	}
}

func TestGetShmClampsLength(t *testing.T) {
	iov := make([]byte, 16)
	copy(iov[10:], []byte("abcdef"))
	res := &session.Resource{ServerID: 1, IOV: iov}

	var out bytes.Buffer
	if err := Get(nil, res, 1, 10, 100, false, &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Len() != 6 {
		t.Fatalf("len = %d, want 6 (clamped to iov end)", out.Len())
	}
}

func TestPutShmOffsetOutOfBounds(t *testing.T) {
	res := &session.Resource{ServerID: 1, IOV: make([]byte, 16)}
	err := Put(nil, res, 1, 32, 4, false, bytes.NewReader(make([]byte, 4)))
	if err == nil {
		t.Fatal("Put succeeded with out-of-bounds shm offset")
	}
}
