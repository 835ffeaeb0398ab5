// Package renderer defines the thin shim over the opaque rendering library
// that vtestd brokers access to. The rendering library itself is out of
// scope; this package models it as a collaborator with a fixed surface,
// plus a reference StubRenderer used in tests and as a fallback.
package renderer

import "errors"

// ErrUnsupported is returned by Renderer methods that a given
// implementation does not implement (e.g. a stub with no capset support).
var ErrUnsupported = errors.New("renderer: unsupported operation")

// ResourceCreateArgs carries the 3D-texture-ish arguments from
// RESOURCE_CREATE / RESOURCE_CREATE2; fields beyond Target/Format/Bind
// are opaque to vtestd and passed through verbatim.
type ResourceCreateArgs struct {
	Target, Format, Bind                      uint32
	Width, Height, Depth                      uint32
	ArraySize, LastLevel, NrSamples, Flags     uint32
}

// FenceFlags gates how a context-scoped fence is created.
type FenceFlags uint32

// FenceFlagMergeable marks a context fence as eligible to be merged with
// other pending fences on the same queue by the renderer's own scheduler.
const FenceFlagMergeable FenceFlags = 1 << 0

// ImplicitFenceCompleteFunc is invoked when a legacy (non-context) fence
// created via CreateFence completes. id is the value passed to CreateFence.
type ImplicitFenceCompleteFunc func(id uint64)

// ContextFenceCompleteFunc is invoked when a context-scoped fence created
// via ContextCreateFence completes. cookie is opaque and round-trips
// whatever the caller supplied.
type ContextFenceCompleteFunc func(ctxID uint32, queueID uint32, cookie uint64)

// OpenRenderNodeFunc is invoked by the renderer when it needs a render
// node fd from the host (used for GPU device access); vtestd provides an
// implementation that opens RenderNodePath.
type OpenRenderNodeFunc func() (int, error)

// Renderer is the opaque rendering library collaborator. vtestd's command
// dispatcher and sync subsystem drive client requests through exactly this
// surface; no other part of the renderer is visible to this module.
type Renderer interface {
	// SetCallbacks registers the three completion/open callbacks. Must be
	// called once before any context is created.
	SetCallbacks(onImplicitFence ImplicitFenceCompleteFunc, onContextFence ContextFenceCompleteFunc, onOpenRenderNode OpenRenderNodeFunc)

	// ResourceCreate allocates a server-managed resource and returns its
	// renderer-side handle.
	ResourceCreate(ctxID uint32, args ResourceCreateArgs) (handle uint32, err error)

	// ResourceCreateBlob allocates a blob resource (guest shmem or host3d
	// dmabuf) and returns its handle plus an exported fd for the backing
	// storage.
	ResourceCreateBlob(ctxID uint32, blobType uint32, flags uint32, size uint64, blobID uint64) (handle uint32, fd int, err error)

	// ResourceExportBlob returns a duplicate fd for an existing blob
	// resource's backing storage, for resources created without one.
	ResourceExportBlob(handle uint32) (fd int, err error)

	// ResourceUnref releases the renderer's reference to a resource.
	ResourceUnref(handle uint32) error

	// ResourceAttachIOV attaches a shared-memory-backed iov to a resource
	// so that subsequent submitted commands referencing it observe the
	// mapped bytes.
	ResourceAttachIOV(handle uint32, base []byte) error

	// ResourceDetachIOV reverses ResourceAttachIOV, called during unref.
	ResourceDetachIOV(handle uint32) error

	// CtxCreate creates a renderer-side context with no capset.
	CtxCreate(ctxID uint32, debugName string) error

	// CtxCreateWithFlags creates a renderer-side context scoped to a capset.
	CtxCreateWithFlags(ctxID uint32, capsetID uint32, debugName string) error

	// CtxDestroy destroys a renderer-side context.
	CtxDestroy(ctxID uint32) error

	// CtxAttachResource associates a resource with a context so the
	// context's submitted commands may reference it.
	CtxAttachResource(ctxID uint32, handle uint32) error

	// SubmitCmd forwards a raw command-word stream to the renderer for
	// execution against ctxID.
	SubmitCmd(ctxID uint32, words []uint32) error

	// TransferReadIOV reads length bytes at offset from handle's storage.
	TransferReadIOV(ctxID uint32, handle uint32, offset uint64, length uint32) ([]byte, error)

	// TransferWriteIOV writes data at offset into handle's storage.
	TransferWriteIOV(ctxID uint32, handle uint32, offset uint64, data []byte) error

	// CreateFence creates a legacy (non-context) fence tagged with id;
	// its completion is reported via ImplicitFenceCompleteFunc.
	CreateFence(ctxID uint32, id uint64) error

	// ContextCreateFence creates a context-scoped fence; its completion
	// is reported via ContextFenceCompleteFunc with the given cookie.
	ContextCreateFence(ctxID uint32, flags FenceFlags, queueID uint32, cookie uint64) error

	// Poll drives any pending completions once. vtestd's own handlers
	// do not call it.
	Poll() error

	// GetPollFD returns an fd that becomes readable when Poll has work.
	GetPollFD() (int, error)

	// GetCapSet returns (maxSize, supported) for a capset id/version pair.
	GetCapSet(capsetID uint32, capsetVersion uint32) (maxSize uint32, supported bool)

	// FillCaps writes the capset blob for capsetID into buf, which is
	// exactly maxSize bytes as reported by GetCapSet.
	FillCaps(capsetID uint32, buf []byte)
}
