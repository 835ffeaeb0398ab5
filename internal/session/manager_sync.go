package session

// allocSync pops a freed Sync record (keeping its id) or mints a new one.
func (m *Manager) allocSync() *Sync {
	if n := len(m.syncFreeList); n > 0 {
		s := m.syncFreeList[n-1]
		m.syncFreeList = m.syncFreeList[:n-1]
		s.Value = 0
		return s
	}
	m.nextSyncID++
	return &Sync{ID: m.nextSyncID}
}

// CreateSync handles SYNC_CREATE (§4.3): the returned Sync carries one
// strong reference, held by the context's table.
func (m *Manager) CreateSync(ctx *Context, initialValue uint64) *Sync {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.allocSync()
	s.Value = initialValue
	s.ref()
	ctx.Syncs[s.ID] = s
	return s
}

// ReadSync handles SYNC_READ (§4.3/§6).
func (m *Manager) ReadSync(ctx *Context, id uint32) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := ctx.Syncs[id]
	if !ok {
		return 0, exists("SYNC_READ", "unknown sync id")
	}
	return s.Value, nil
}

// WriteSync handles SYNC_WRITE (§4.3), delegating to signal_sync (§4.5).
func (m *Manager) WriteSync(ctx *Context, id uint32, value uint64) error {
	m.mu.Lock()
	s, ok := ctx.Syncs[id]
	m.mu.Unlock()
	if !ok {
		return exists("SYNC_WRITE", "unknown sync id")
	}
	m.signalSync(s, value)
	return nil
}

// UnrefSync handles SYNC_UNREF (§4.3).
func (m *Manager) UnrefSync(ctx *Context, id uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := ctx.Syncs[id]
	if !ok {
		return exists("SYNC_UNREF", "unknown sync id")
	}
	delete(ctx.Syncs, id)
	if s.unref() {
		m.syncFreeList = append(m.syncFreeList, s)
	}
	return nil
}
