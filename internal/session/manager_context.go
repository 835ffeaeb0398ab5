package session

// CreateContext allocates a new Context and makes it current. One Context
// exists per client connection; the renderer-side context is created
// lazily (§4.6).
func (m *Manager) CreateContext(debugName string) *Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextContextID++
	ctx := newContext(m.nextContextID, debugName)
	m.contexts[ctx.ID] = ctx
	m.current = ctx
	return ctx
}

// Current returns the active (process-global, per §3/§9) context.
func (m *Manager) Current() *Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// EnsureInitialized lazily creates the renderer-side context on first use
// (§4.6). Safe to call repeatedly; a no-op once initialized.
func (m *Manager) EnsureInitialized(ctx *Context) error {
	m.mu.Lock()
	alreadyInit := ctx.initialized
	capsetID := ctx.CapsetID
	hasCapset := ctx.capsetSet
	debugName := ctx.DebugName
	ctxID := ctx.ID
	m.mu.Unlock()

	if alreadyInit {
		return nil
	}

	var err error
	if hasCapset {
		err = m.renderer.CtxCreateWithFlags(ctxID, capsetID, debugName)
	} else {
		err = m.renderer.CtxCreate(ctxID, debugName)
	}
	if err != nil {
		return wrap("CTX_CREATE", err)
	}

	m.mu.Lock()
	ctx.initialized = true
	m.mu.Unlock()
	return nil
}

// ContextInit handles the CONTEXT_INIT command: sets the capset id once;
// a second call with the same id is a no-op, a different id is Invalid
// (§4.6). A first, successful call also eagerly creates the renderer-side
// context, rather than leaving that to whatever later command happens to
// need it.
func (m *Manager) ContextInit(ctx *Context, capsetID uint32) error {
	m.mu.Lock()
	if ctx.capsetSet {
		sameID := ctx.CapsetID == capsetID
		m.mu.Unlock()
		if sameID {
			return nil
		}
		return invalid("CONTEXT_INIT", "capset already set to a different id")
	}
	ctx.SetCapset(capsetID)
	m.mu.Unlock()

	return m.EnsureInitialized(ctx)
}

// DestroyContext drains all sync queues (freeing submits without
// signaling) and all pending waits (closing their fds) before removing
// the context and destroying its renderer-side counterpart (§4.6).
func (m *Manager) DestroyContext(ctx *Context) error {
	m.mu.Lock()
	for i := range ctx.SyncQueues {
		for _, submit := range ctx.SyncQueues[i].drain() {
			for _, s := range submit.syncs {
				if s.unref() {
					m.syncFreeList = append(m.syncFreeList, s)
				}
			}
		}
	}
	for _, w := range ctx.SyncWaits {
		w.release()
	}
	ctx.SyncWaits = nil

	for _, res := range ctx.Resources {
		if res.HasIOV() {
			_ = m.renderer.ResourceDetachIOV(res.ServerID)
		}
	}
	delete(m.contexts, ctx.ID)
	if m.current == ctx {
		m.current = nil
	}
	initialized := ctx.initialized
	m.mu.Unlock()

	if initialized {
		if err := m.renderer.CtxDestroy(ctx.ID); err != nil {
			return wrap("CTX_DESTROY", err)
		}
	}
	return nil
}
