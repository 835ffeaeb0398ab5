package vtestd

import (
	"sync"

	"github.com/go-vtest/vtestd/internal/renderer"
)

// MockRenderer wraps a StubRenderer and records call counts, for tests
// that need to assert on renderer interaction rather than just outcomes.
type MockRenderer struct {
	*renderer.StubRenderer

	mu    sync.Mutex
	calls map[string]int
}

// NewMockRenderer creates a mock renderer backed by an empty StubRenderer.
func NewMockRenderer() *MockRenderer {
	return &MockRenderer{
		StubRenderer: renderer.NewStubRenderer(),
		calls:        make(map[string]int),
	}
}

func (m *MockRenderer) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[name]++
}

func (m *MockRenderer) ResourceCreate(ctxID uint32, args renderer.ResourceCreateArgs) (uint32, error) {
	m.record("ResourceCreate")
	return m.StubRenderer.ResourceCreate(ctxID, args)
}

func (m *MockRenderer) ResourceUnref(handle uint32) error {
	m.record("ResourceUnref")
	return m.StubRenderer.ResourceUnref(handle)
}

func (m *MockRenderer) SubmitCmd(ctxID uint32, words []uint32) error {
	m.record("SubmitCmd")
	return m.StubRenderer.SubmitCmd(ctxID, words)
}

func (m *MockRenderer) CtxCreate(ctxID uint32, debugName string) error {
	m.record("CtxCreate")
	return m.StubRenderer.CtxCreate(ctxID, debugName)
}

func (m *MockRenderer) CtxDestroy(ctxID uint32) error {
	m.record("CtxDestroy")
	return m.StubRenderer.CtxDestroy(ctxID)
}

func (m *MockRenderer) ContextCreateFence(ctxID uint32, flags renderer.FenceFlags, queueID uint32, cookie uint64) error {
	m.record("ContextCreateFence")
	return m.StubRenderer.ContextCreateFence(ctxID, flags, queueID, cookie)
}

// CallCount returns how many times the named method has been invoked.
func (m *MockRenderer) CallCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

// Reset clears all call counters.
func (m *MockRenderer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make(map[string]int)
}

var _ renderer.Renderer = (*MockRenderer)(nil)
