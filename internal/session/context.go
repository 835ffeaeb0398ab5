package session

import "github.com/go-vtest/vtestd/internal/constants"

// Context is per-connection state: resources, timelines, sync queues and
// waits, and protocol negotiation results (§3 "Context"). The renderer-side
// context is created lazily — on first operation that needs it, or
// explicitly via CONTEXT_INIT (§4.6).
type Context struct {
	ID              uint32
	DebugName       string
	ProtocolVersion uint32

	CapsetID    uint32
	capsetSet   bool
	initialized bool // renderer-side ctx_create has run

	Resources  resourceTable
	Syncs      syncTable
	SyncQueues [constants.MaxSyncQueueCount]*SyncQueue
	SyncWaits  []*SyncWait
}

func newContext(id uint32, debugName string) *Context {
	c := &Context{
		ID:        id,
		DebugName: debugName,
		Resources: newResourceTable(),
		Syncs:     newSyncTable(),
	}
	for i := range c.SyncQueues {
		c.SyncQueues[i] = newSyncQueue()
	}
	return c
}

// Initialized reports whether the renderer-side context has been created.
func (c *Context) Initialized() bool { return c.initialized }

// SetCapset sets the context's capset id the first time it's called.
// A second call with the same id is a no-op; a different id is rejected
// by the caller (Manager.ContextInit) per §4.6.
func (c *Context) SetCapset(id uint32) {
	c.CapsetID = id
	c.capsetSet = true
}

// HasCapset reports whether CONTEXT_INIT has set a capset on this context.
func (c *Context) HasCapset() bool { return c.capsetSet }
