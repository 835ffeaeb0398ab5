package session

import (
	"github.com/go-vtest/vtestd/internal/renderer"
	"github.com/go-vtest/vtestd/internal/shmfile"
)

// allocResource pops a freed Resource record (keeping its server id, per
// §3's lifecycle note) or mints a new one.
func (m *Manager) allocResource() *Resource {
	if n := len(m.resourceFreeList); n > 0 {
		r := m.resourceFreeList[n-1]
		m.resourceFreeList = m.resourceFreeList[:n-1]
		r.ClientID = 0
		r.IOV = nil
		r.shm = nil
		return r
	}
	m.nextResourceID++
	return &Resource{ServerID: m.nextResourceID}
}

// CreateResource handles RESOURCE_CREATE / RESOURCE_CREATE2 (§4.2).
// clientHandle is the client-supplied handle, which must be zero at
// protocol >= 3 (server-assigned) or a fresh handle below that (§4.2
// error conditions).
func (m *Manager) CreateResource(ctx *Context, clientHandle uint32, args renderer.ResourceCreateArgs) (*Resource, error) {
	m.mu.Lock()
	if ctx.ProtocolVersion >= 3 {
		if clientHandle != 0 {
			m.mu.Unlock()
			return nil, invalid("RESOURCE_CREATE", "client-supplied handle forbidden at protocol >= 3")
		}
	} else if clientHandle != 0 {
		for _, r := range ctx.Resources {
			if r.ClientID == clientHandle {
				m.mu.Unlock()
				return nil, exists("RESOURCE_CREATE", "duplicate handle")
			}
		}
	}
	m.mu.Unlock()

	handle, err := m.renderer.ResourceCreate(ctx.ID, args)
	if err != nil {
		return nil, wrap("RESOURCE_CREATE", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	res := m.allocResource()
	res.ServerID = handle
	if ctx.ProtocolVersion >= 3 {
		res.ClientID = handle
	} else if clientHandle != 0 {
		res.ClientID = clientHandle
	} else {
		res.ClientID = handle
	}
	ctx.Resources[res.ServerID] = res
	return res, nil
}

// CreateBlobResource handles RESOURCE_CREATE_BLOB (§4.8/§6): the renderer
// owns the blob's backing storage and hands back an exported fd directly.
func (m *Manager) CreateBlobResource(ctx *Context, blobType, flags uint32, size, blobID uint64) (*Resource, int, error) {
	handle, fd, err := m.renderer.ResourceCreateBlob(ctx.ID, blobType, flags, size, blobID)
	if err != nil {
		return nil, 0, wrap("RESOURCE_CREATE_BLOB", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	res := m.allocResource()
	res.ServerID = handle
	res.ClientID = handle
	ctx.Resources[res.ServerID] = res
	return res, fd, nil
}

// AttachShm creates an anonymous shared-memory object of exactly size
// bytes, maps it rw in the server, attaches it to res's renderer-side
// resource, and returns the fd for transfer to the client (§4.2).
func (m *Manager) AttachShm(ctx *Context, res *Resource, size uint64) (int, error) {
	mapping, err := shmfile.Create("vtest-resource", size)
	if err != nil {
		return 0, wrap("RESOURCE_CREATE2", err)
	}
	if err := m.renderer.ResourceAttachIOV(res.ServerID, mapping.Data); err != nil {
		mapping.Close()
		return 0, wrap("RESOURCE_CREATE2", err)
	}

	m.mu.Lock()
	res.IOV = mapping.Data
	res.shm = mapping
	m.mu.Unlock()
	return mapping.FD, nil
}

// LookupResource resolves a handle within a context's resource table.
func (m *Manager) LookupResource(ctx *Context, handle uint32) (*Resource, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := ctx.Resources[handle]
	return res, ok
}

// UnrefResource releases a resource: unmaps its shm (if any), asks the
// renderer to drop its iov attachment and release it, then returns the
// record to the free list keeping its server id (§4.2).
func (m *Manager) UnrefResource(ctx *Context, handle uint32) error {
	m.mu.Lock()
	res, ok := ctx.Resources[handle]
	if !ok {
		m.mu.Unlock()
		return exists("RESOURCE_UNREF", "unknown handle")
	}
	delete(ctx.Resources, handle)
	shm := res.shm
	hadIOV := res.HasIOV()
	m.mu.Unlock()

	if hadIOV {
		_ = m.renderer.ResourceDetachIOV(handle)
	}
	if shm != nil {
		_ = shm.Close()
	}
	if err := m.renderer.ResourceUnref(handle); err != nil {
		return wrap("RESOURCE_UNREF", err)
	}

	m.mu.Lock()
	m.resourceFreeList = append(m.resourceFreeList, res)
	m.mu.Unlock()
	return nil
}
