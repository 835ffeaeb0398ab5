package session

import "github.com/go-vtest/vtestd/internal/renderer"

// SubmitBatch handles SUBMIT_CMD2 (§4.4): the command words are always
// forwarded to the renderer immediately. If syncs accompany the batch and
// SYNC_QUEUE is not set, they're signaled immediately (legacy semantics);
// otherwise they ride a SyncQueueSubmit gated on the renderer's own fence
// completion for queueIndex.
func (m *Manager) SubmitBatch(ctx *Context, queueIndex uint32, queued bool, words []uint32, syncIDs []uint32, values []uint64) error {
	if err := m.renderer.SubmitCmd(ctx.ID, words); err != nil {
		return wrap("SUBMIT_CMD2", err)
	}
	if len(syncIDs) == 0 {
		return nil
	}

	if !queued {
		m.mu.Lock()
		syncs := make([]*Sync, 0, len(syncIDs))
		for _, id := range syncIDs {
			s, ok := ctx.Syncs[id]
			if !ok {
				m.mu.Unlock()
				return exists("SUBMIT_CMD2", "unknown sync id")
			}
			syncs = append(syncs, s)
		}
		for i, s := range syncs {
			m.signalSyncLocked(s, values[i])
		}
		m.mu.Unlock()
		return nil
	}

	m.mu.Lock()
	syncs := make([]*Sync, 0, len(syncIDs))
	for _, id := range syncIDs {
		s, ok := ctx.Syncs[id]
		if !ok {
			m.mu.Unlock()
			return exists("SUBMIT_CMD2", "unknown sync id")
		}
		syncs = append(syncs, s)
	}
	for _, s := range syncs {
		s.ref()
	}
	m.nextSubmitSeq++
	seq := m.nextSubmitSeq
	submit := &SyncQueueSubmit{seq: seq, syncs: syncs, values: append([]uint64(nil), values...)}
	depth := ctx.SyncQueues[queueIndex].append(submit)
	m.observer.ObserveQueueSubmit(depth)
	m.mu.Unlock()

	if err := m.renderer.ContextCreateFence(ctx.ID, renderer.FenceFlagMergeable, queueIndex, seq); err != nil {
		m.mu.Lock()
		ctx.SyncQueues[queueIndex].popThrough(seq)
		for _, s := range syncs {
			if s.unref() {
				m.syncFreeList = append(m.syncFreeList, s)
			}
		}
		m.mu.Unlock()
		return wrap("SUBMIT_CMD2", err)
	}
	return nil
}

// onImplicitFenceComplete is the ImplicitFenceCompleteFunc callback for
// legacy (non-context) fences created via CreateFence. Must not be called
// while m.mu is held by the caller into the renderer (§5).
func (m *Manager) onImplicitFenceComplete(id uint64) {
	m.mu.Lock()
	m.implicitFenceCompleted++
	m.mu.Unlock()
}

// onContextFenceComplete is the ContextFenceCompleteFunc callback for
// context-scoped fences created via ContextCreateFence. cookie is the seq
// stamped on the SyncQueueSubmit at submit time (§9's fix for the source's
// pointer-identity bug).
func (m *Manager) onContextFenceComplete(ctxID uint32, queueID uint32, cookie uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, ok := m.contexts[ctxID]
	if !ok {
		return
	}
	if int(queueID) >= len(ctx.SyncQueues) {
		return
	}
	popped, found := ctx.SyncQueues[queueID].popThrough(cookie)
	if !found {
		return
	}
	for _, submit := range popped {
		for i, s := range submit.syncs {
			m.signalSyncLocked(s, submit.values[i])
			if s.unref() {
				m.syncFreeList = append(m.syncFreeList, s)
			}
		}
	}
	m.observer.ObserveQueueFenceComplete()
}
