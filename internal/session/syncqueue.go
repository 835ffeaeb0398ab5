package session

// SyncQueueSubmit holds strong references to the timelines whose value
// must bump when the associated renderer fence fires (§3
// "SyncQueueSubmit"). seq is this implementation's resolution to the
// source's pointer-identity double-pop bug (§9): the fence-completion
// callback captures seq as its cookie instead of a raw pointer, so a
// stale or duplicate callback can never be mistaken for a live entry.
type SyncQueueSubmit struct {
	seq    uint64
	syncs  []*Sync
	values []uint64
}

// SyncQueue is the FIFO of pending SyncQueueSubmits for one
// (context, queue_index) pair (§3 "SyncQueue"). 64 queues exist per
// context (MaxSyncQueueCount).
type SyncQueue struct {
	entries []*SyncQueueSubmit
}

func newSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

// append adds a submit to the tail of the queue and returns the queue
// depth after the append, for metrics.
func (q *SyncQueue) append(s *SyncQueueSubmit) int {
	q.entries = append(q.entries, s)
	return len(q.entries)
}

// popThrough pops FIFO entries up to and including the entry with the
// given seq, returning the popped entries in order. If seq is not found
// (already drained by an earlier, later-positioned pop — see §4.4's
// "absorbed by the older one"), it returns nil and false.
func (q *SyncQueue) popThrough(seq uint64) ([]*SyncQueueSubmit, bool) {
	idx := -1
	for i, e := range q.entries {
		if e.seq == seq {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, false
	}
	popped := q.entries[:idx+1]
	q.entries = q.entries[idx+1:]
	return popped, true
}

// drain removes and returns every pending entry without signaling; the
// caller releases their sync references. Used by context destruction (§4.6),
// which must free queued submits without the renderer ever firing their
// fences.
func (q *SyncQueue) drain() []*SyncQueueSubmit {
	popped := q.entries
	q.entries = nil
	return popped
}

// Len reports the current queue depth.
func (q *SyncQueue) Len() int {
	return len(q.entries)
}
