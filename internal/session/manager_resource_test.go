package session

import (
	"testing"

	"github.com/go-vtest/vtestd/internal/renderer"
	"golang.org/x/sys/unix"
)

func closeFD(fd int) { _ = unix.Close(fd) }

func TestCreateResourceProtocol3RejectsClientHandle(t *testing.T) {
	m, ctx := newTestManager(t)
	ctx.ProtocolVersion = 3

	_, err := m.CreateResource(ctx, 42, renderer.ResourceCreateArgs{})
	if err == nil {
		t.Fatal("CreateResource accepted a client handle at protocol 3")
	}
}

func TestCreateResourceLegacyDuplicateHandle(t *testing.T) {
	m, ctx := newTestManager(t)
	ctx.ProtocolVersion = 2

	res, err := m.CreateResource(ctx, 7, renderer.ResourceCreateArgs{})
	if err != nil {
		t.Fatalf("CreateResource: %v", err)
	}
	if res.ClientID != 7 {
		t.Fatalf("ClientID = %d, want 7", res.ClientID)
	}

	if _, err := m.CreateResource(ctx, 7, renderer.ResourceCreateArgs{}); err == nil {
		t.Fatal("duplicate client handle accepted")
	}
}

func TestUnrefResourceReturnsToFreeListAndReusesID(t *testing.T) {
	m, ctx := newTestManager(t)
	ctx.ProtocolVersion = 3

	res, err := m.CreateResource(ctx, 0, renderer.ResourceCreateArgs{})
	if err != nil {
		t.Fatalf("CreateResource: %v", err)
	}
	serverID := res.ServerID

	if err := m.UnrefResource(ctx, res.ServerID); err != nil {
		t.Fatalf("UnrefResource: %v", err)
	}
	if _, ok := m.LookupResource(ctx, serverID); ok {
		t.Fatal("resource still looked up after unref")
	}

	res2, err := m.CreateResource(ctx, 0, renderer.ResourceCreateArgs{})
	if err != nil {
		t.Fatalf("second CreateResource: %v", err)
	}
	if res2.ServerID != serverID {
		t.Fatalf("free-listed server id not reused: got %d, want %d", res2.ServerID, serverID)
	}
}

func TestUnrefResourceUnknownHandle(t *testing.T) {
	m, ctx := newTestManager(t)
	if err := m.UnrefResource(ctx, 999); err == nil {
		t.Fatal("UnrefResource succeeded for unknown handle")
	}
}

func TestAttachShmSetsIOV(t *testing.T) {
	m, ctx := newTestManager(t)
	ctx.ProtocolVersion = 3

	res, err := m.CreateResource(ctx, 0, renderer.ResourceCreateArgs{})
	if err != nil {
		t.Fatalf("CreateResource: %v", err)
	}

	fd, err := m.AttachShm(ctx, res, 4096)
	if err != nil {
		t.Fatalf("AttachShm: %v", err)
	}
	defer closeFD(fd)

	if !res.HasIOV() {
		t.Fatal("resource has no iov after AttachShm")
	}
	if len(res.IOV) != 4096 {
		t.Fatalf("iov length = %d, want 4096", len(res.IOV))
	}
}

func TestCreateBlobResource(t *testing.T) {
	m, ctx := newTestManager(t)

	res, fd, err := m.CreateBlobResource(ctx, 0, 0, 8192, 1)
	if err != nil {
		t.Fatalf("CreateBlobResource: %v", err)
	}
	defer closeFD(fd)

	if res.ClientID != res.ServerID {
		t.Fatalf("blob resource ClientID (%d) != ServerID (%d)", res.ClientID, res.ServerID)
	}
	if fd < 0 {
		t.Fatalf("CreateBlobResource returned invalid fd %d", fd)
	}
}
