package renderer

import (
	"fmt"
	"sync"
)

// StubRenderer is a reference Renderer implementation with no real GPU
// backing: resource storage is server-managed memory, fences complete
// synchronously on the same goroutine that created them, and capsets are
// small fixed blobs. It exists for tests and for hosts with no rendering
// library available.
type StubRenderer struct {
	mu sync.Mutex

	nextHandle uint64
	resources  map[uint32]*stubResource
	contexts   map[uint32]*stubContext

	onImplicitFence ImplicitFenceCompleteFunc
	onContextFence  ContextFenceCompleteFunc
	onOpenRenderNode OpenRenderNodeFunc
}

type stubResource struct {
	handle uint32
	buf    *memBuffer
	attached map[uint32]bool // context ids that have ctx_attach_resource'd this
}

type stubContext struct {
	id       uint32
	capsetID uint32
	debugName string
}

// NewStubRenderer constructs an empty StubRenderer.
func NewStubRenderer() *StubRenderer {
	return &StubRenderer{
		resources: make(map[uint32]*stubResource),
		contexts:  make(map[uint32]*stubContext),
	}
}

func (s *StubRenderer) SetCallbacks(onImplicitFence ImplicitFenceCompleteFunc, onContextFence ContextFenceCompleteFunc, onOpenRenderNode OpenRenderNodeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onImplicitFence = onImplicitFence
	s.onContextFence = onContextFence
	s.onOpenRenderNode = onOpenRenderNode
}

func (s *StubRenderer) allocHandle() uint32 {
	s.nextHandle++
	return uint32(s.nextHandle)
}

func (s *StubRenderer) ResourceCreate(ctxID uint32, args ResourceCreateArgs) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.allocHandle()
	s.resources[h] = &stubResource{handle: h, attached: map[uint32]bool{}}
	return h, nil
}

func (s *StubRenderer) ResourceCreateBlob(ctxID uint32, blobType uint32, flags uint32, size uint64, blobID uint64) (uint32, int, error) {
	s.mu.Lock()
	h := s.allocHandle()
	res := &stubResource{handle: h, buf: newMemBuffer(int(size)), attached: map[uint32]bool{}}
	s.resources[h] = res
	s.mu.Unlock()

	fd, err := memfdBackingFD(fmt.Sprintf("vtest-blob-%d", h), res.buf)
	if err != nil {
		return 0, 0, err
	}
	return h, fd, nil
}

func (s *StubRenderer) ResourceExportBlob(handle uint32) (int, error) {
	s.mu.Lock()
	res, ok := s.resources[handle]
	s.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("renderer: export unknown resource %d", handle)
	}
	if res.buf == nil {
		return 0, ErrUnsupported
	}
	return memfdBackingFD(fmt.Sprintf("vtest-export-%d", handle), res.buf)
}

func (s *StubRenderer) ResourceUnref(handle uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resources, handle)
	return nil
}

func (s *StubRenderer) ResourceAttachIOV(handle uint32, base []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.resources[handle]
	if !ok {
		return fmt.Errorf("renderer: attach iov to unknown resource %d", handle)
	}
	buf := newMemBuffer(len(base))
	_ = buf.WriteAt(0, base)
	res.buf = buf
	return nil
}

func (s *StubRenderer) ResourceDetachIOV(handle uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res, ok := s.resources[handle]; ok {
		res.buf = nil
	}
	return nil
}

func (s *StubRenderer) CtxCreate(ctxID uint32, debugName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[ctxID] = &stubContext{id: ctxID, debugName: debugName}
	return nil
}

func (s *StubRenderer) CtxCreateWithFlags(ctxID uint32, capsetID uint32, debugName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[ctxID] = &stubContext{id: ctxID, capsetID: capsetID, debugName: debugName}
	return nil
}

func (s *StubRenderer) CtxDestroy(ctxID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, ctxID)
	return nil
}

func (s *StubRenderer) CtxAttachResource(ctxID uint32, handle uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.resources[handle]
	if !ok {
		return fmt.Errorf("renderer: attach unknown resource %d to ctx %d", handle, ctxID)
	}
	res.attached[ctxID] = true
	return nil
}

// SubmitCmd is a no-op acceptance of command words: StubRenderer performs
// no rendering, it only validates that ctxID exists.
func (s *StubRenderer) SubmitCmd(ctxID uint32, words []uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contexts[ctxID]; !ok {
		return fmt.Errorf("renderer: submit to unknown context %d", ctxID)
	}
	return nil
}

func (s *StubRenderer) TransferReadIOV(ctxID uint32, handle uint32, offset uint64, length uint32) ([]byte, error) {
	s.mu.Lock()
	res, ok := s.resources[handle]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("renderer: transfer read unknown resource %d", handle)
	}
	if res.buf == nil {
		return make([]byte, length), nil
	}
	return res.buf.ReadAt(offset, length)
}

func (s *StubRenderer) TransferWriteIOV(ctxID uint32, handle uint32, offset uint64, data []byte) error {
	s.mu.Lock()
	res, ok := s.resources[handle]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("renderer: transfer write unknown resource %d", handle)
	}
	if res.buf == nil {
		res.buf = newMemBuffer(int(offset) + len(data))
	}
	return res.buf.WriteAt(offset, data)
}

// CreateFence completes synchronously: StubRenderer has no real GPU
// pipeline to drain, so the implicit fence fires immediately.
func (s *StubRenderer) CreateFence(ctxID uint32, id uint64) error {
	s.mu.Lock()
	cb := s.onImplicitFence
	s.mu.Unlock()
	if cb != nil {
		cb(id)
	}
	return nil
}

// ContextCreateFence completes synchronously, same rationale as CreateFence.
func (s *StubRenderer) ContextCreateFence(ctxID uint32, flags FenceFlags, queueID uint32, cookie uint64) error {
	s.mu.Lock()
	cb := s.onContextFence
	s.mu.Unlock()
	if cb != nil {
		cb(ctxID, queueID, cookie)
	}
	return nil
}

// Poll is a no-op: StubRenderer has no asynchronous completions to drain,
// everything resolves inline in CreateFence/ContextCreateFence.
func (s *StubRenderer) Poll() error { return nil }

func (s *StubRenderer) GetPollFD() (int, error) {
	return -1, ErrUnsupported
}

// GetCapSet reports a 16-byte capset for every non-zero id (FillCaps
// fills it with the id's low byte) and none for id 0; real capability
// negotiation is out of scope for the stub.
func (s *StubRenderer) GetCapSet(capsetID uint32, capsetVersion uint32) (uint32, bool) {
	if capsetID == 0 {
		return 0, false
	}
	return 16, true
}

func (s *StubRenderer) FillCaps(capsetID uint32, buf []byte) {
	for i := range buf {
		buf[i] = byte(capsetID)
	}
}

var _ Renderer = (*StubRenderer)(nil)
