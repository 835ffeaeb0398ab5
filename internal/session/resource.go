package session

import "github.com/go-vtest/vtestd/internal/shmfile"

// Resource is a per-context mapping from a client-visible handle to a
// renderer-side buffer/texture (§3 "Resource"). ServerID is assigned
// monotonically by the Manager and never recycled while the resource is
// live; ClientID equals ServerID in protocol >= 3 and is otherwise
// whatever the client supplied. IOV is present iff the resource is
// backed by a shared-memory mapping.
type Resource struct {
	ServerID uint32
	ClientID uint32
	IOV      []byte

	shm *shmfile.Mapping // non-nil iff this resource owns a shm mapping
}

// HasIOV reports whether the resource has a shared-memory-backed mapping.
func (r *Resource) HasIOV() bool {
	return r.IOV != nil
}

// resourceTable is the per-context handle -> Resource map, keyed by
// ServerID (the only handle the server ever looks things up by — the
// wire-visible ClientID is folded into ServerID at protocol >= 3, and for
// legacy clients the caller is expected to key lookups by whatever value
// it chose to assign as ServerID too).
type resourceTable map[uint32]*Resource

func newResourceTable() resourceTable {
	return make(resourceTable)
}
