package session

import (
	"time"

	"github.com/go-vtest/vtestd/internal/eventfd"
)

// WaitFlagAny wakes the wait on the first threshold crossing; otherwise
// all thresholds must cross before the wait resolves.
const WaitFlagAny uint32 = 1 << 0

// waitEntry is one (sync, threshold) slot inside a SyncWait. active is
// cleared (and the Sync's reference dropped) once the slot's threshold
// has been crossed; a cleared slot is never revisited.
type waitEntry struct {
	sync      *Sync
	threshold uint64
	active    bool
}

// SyncWait is a registered notification that resolves when a
// conjunction (ALL) or disjunction (ANY) of timeline thresholds is
// reached (§3 "SyncWait"). notifier becomes readable once the wait
// resolves; resolution frees the wait and drops its remaining references.
type SyncWait struct {
	notifier eventfd.Notifier
	flags    uint32
	deadline time.Time
	noExpiry bool

	remaining     []waitEntry
	signaledCount int
	syncCount     int
}

// Flags returns the wait's registration flags.
func (w *SyncWait) Flags() uint32 { return w.flags }

// FD returns the descriptor to hand to the client via SCM_RIGHTS.
func (w *SyncWait) FD() int { return w.notifier.FD() }

// expired reports whether now is past the wait's deadline. A wait with
// timeout_ms > 2^31-1 never expires (§4.5 step 2).
func (w *SyncWait) expired(now time.Time) bool {
	if w.noExpiry {
		return false
	}
	return now.After(w.deadline)
}

// ready reports whether the wait has resolved: ALL slots signaled, or at
// least one slot signaled with ANY set.
func (w *SyncWait) ready() bool {
	if w.signaledCount == w.syncCount {
		return true
	}
	return w.flags&WaitFlagAny != 0 && w.signaledCount > 0
}

// release drops every still-active slot's reference and closes the
// notifier. Called both on normal resolution and on context/sweep teardown.
func (w *SyncWait) release() {
	for i := range w.remaining {
		if w.remaining[i].active {
			w.remaining[i].active = false
			w.remaining[i].sync.unref()
		}
	}
	w.notifier.Close()
}

// maxWaitTimeoutMS is the largest timeout_ms treated as finite; above
// this the deadline is +infinity (§4.5 step 2, source uses INT32_MAX).
const maxWaitTimeoutMS = (1 << 31) - 1
