package session

import (
	"time"

	"github.com/go-vtest/vtestd/internal/eventfd"
)

// signalSync implements §4.5's signal_sync: monotonicity, value update,
// and wakeup propagation across every active context's wait list. Takes
// the manager mutex itself; must not be called with it already held.
func (m *Manager) signalSync(sync *Sync, value uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signalSyncLocked(sync, value)
}

// signalSyncLocked is signalSync's body, for callers (the fence-complete
// callback) that already hold the mutex.
//
// Monotonicity: the source's signal_sync assigns sync.value = value
// whenever value <= the current value too, which is not strictly
// monotonic (§9 open question). This implementation rejects decreases
// outright and treats an unchanged value as a no-op, so "after write,
// value equals the written amount" holds exactly when the write was an
// increase, and the value is otherwise left untouched.
func (m *Manager) signalSyncLocked(sync *Sync, value uint64) {
	if value < sync.Value {
		return
	}
	if value == sync.Value {
		return
	}
	sync.Value = value

	now := time.Now()
	for _, ctx := range m.contexts {
		kept := ctx.SyncWaits[:0]
		for _, w := range ctx.SyncWaits {
			if w.expired(now) {
				w.release()
				m.observer.ObserveWaitExpired()
				continue
			}

			signaledHere := false
			for i := range w.remaining {
				entry := &w.remaining[i]
				if !entry.active || entry.sync != sync {
					continue
				}
				if entry.threshold <= value {
					entry.active = false
					entry.sync.unref()
					w.signaledCount++
					signaledHere = true
				}
			}

			if signaledHere && w.ready() {
				_ = w.notifier.Notify()
				w.release()
				m.observer.ObserveWaitResolved()
				continue
			}
			kept = append(kept, w)
		}
		ctx.SyncWaits = kept
	}
}

// WaitRequest is one (sync id, threshold) pair from a SYNC_WAIT command.
type WaitRequest struct {
	SyncID    uint32
	Threshold uint64
}

// RegisterWait implements §4.5's register_wait. On success it returns the
// notifier whose FD must be sent to the client via SCM_RIGHTS. A wait that
// is already resolved has been notified (its fd is readable); an unresolved
// wait with a non-zero timeout is queued on ctx.SyncWaits; an unresolved
// zero-timeout wait is neither notified nor queued.
func (m *Manager) RegisterWait(ctx *Context, flags uint32, timeoutMS int64, reqs []WaitRequest) (eventfd.Notifier, error) {
	notifier, err := eventfd.New()
	if err != nil {
		return nil, &Error{Op: "SYNC_WAIT", Code: CodeNoDevice, Msg: err.Error(), Inner: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	w := &SyncWait{notifier: notifier, flags: flags, syncCount: len(reqs)}
	if timeoutMS < 0 || timeoutMS > maxWaitTimeoutMS {
		w.noExpiry = true
	} else {
		w.deadline = time.Now().Add(time.Duration(timeoutMS) * time.Millisecond)
	}

	anyPreSignaled := false
	w.remaining = make([]waitEntry, 0, len(reqs))
	for _, r := range reqs {
		s, ok := ctx.Syncs[r.SyncID]
		if !ok {
			// Roll back: drop references taken so far, close the notifier.
			for _, e := range w.remaining {
				if e.active {
					e.sync.unref()
				}
			}
			notifier.Close()
			return nil, exists("SYNC_WAIT", "unknown sync id")
		}
		if s.Value >= r.Threshold {
			anyPreSignaled = true
			w.signaledCount++
			continue
		}
		s.ref()
		w.remaining = append(w.remaining, waitEntry{sync: s, threshold: r.Threshold, active: true})
	}

	preSignaled := len(w.remaining) == 0 || (flags&WaitFlagAny != 0 && anyPreSignaled)
	m.observer.ObserveWaitRegistered(preSignaled)

	if preSignaled {
		_ = notifier.Notify()
		// Drop any references taken for entries that didn't end up
		// mattering because the wait resolved immediately.
		for _, e := range w.remaining {
			if e.active {
				e.sync.unref()
			}
		}
		return notifier, nil
	}

	if timeoutMS == 0 {
		// A zero-timeout poll that didn't resolve immediately is
		// dropped without queuing it: the fd is handed back to the
		// caller but never becomes readable.
		for _, e := range w.remaining {
			if e.active {
				e.sync.unref()
			}
		}
		return notifier, nil
	}

	ctx.SyncWaits = append(ctx.SyncWaits, w)
	return notifier, nil
}
