package session

// SubmitLegacyFence implements the legacy busy-wait bookkeeping half of
// SUBMIT_CMD (§4.9): every submission bumps implicit_fence_submitted and
// tags a renderer fence with that id, so RESOURCE_BUSY_WAIT can report
// whether it has completed yet.
func (m *Manager) SubmitLegacyFence(ctx *Context) error {
	m.mu.Lock()
	m.implicitFenceSubmitted++
	id := m.implicitFenceSubmitted
	m.mu.Unlock()

	if err := m.renderer.CreateFence(ctx.ID, id); err != nil {
		return wrap("SUBMIT_CMD", err)
	}
	return nil
}

// ImplicitFenceBusy implements RESOURCE_BUSY_WAIT's busy computation
// (§4.9): busy iff the legacy counters have diverged.
func (m *Manager) ImplicitFenceBusy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.implicitFenceSubmitted != m.implicitFenceCompleted
}
