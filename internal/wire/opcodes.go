package wire

// Command opcodes, carried in every frame header's CmdID word.
// Numbering is this implementation's own; the wire format only requires
// client and server to agree, which they do by construction.
const (
	CmdCreateContext uint32 = iota + 1
	CmdPingProtocolVersion
	CmdProtocolVersion
	CmdGetParam
	CmdGetCapset
	CmdContextInit
	CmdGetCaps
	CmdGetCaps2
	CmdResourceCreate
	CmdResourceCreate2
	CmdResourceCreateBlob
	CmdResourceUnref
	CmdSubmitCmd
	CmdTransferGet
	CmdTransferPut
	CmdTransferGetNop
	CmdTransferPutNop
	CmdTransferGet2
	CmdTransferPut2
	CmdTransferGet2Nop
	CmdTransferPut2Nop
	CmdResourceBusyWait
	CmdSyncCreate
	CmdSyncUnref
	CmdSyncRead
	CmdSyncWrite
	CmdSyncWait
	CmdSubmitCmd2
)

// GET_PARAM parameter identifiers.
const (
	ParamMaxSyncQueueCount uint32 = 1
)

// GET_CAPSET well-known capset ids, mirroring the original protocol's
// virgl/venus split; opaque to this spec otherwise.
const (
	CapsetVirgl uint32 = 1
	CapsetVenus uint32 = 2
)

// RESOURCE_CREATE_BLOB storage types.
const (
	BlobTypeGuest uint32 = 1 // shmem-backed
	BlobTypeHost3D uint32 = 2 // dmabuf-backed, exported via the renderer
)

// SUBMIT_CMD2 batch flags.
const (
	SyncQueueFlagQueued uint32 = 1 << 0
)

// SYNC_WAIT flags.
const (
	SyncWaitFlagAny uint32 = 1 << 0
)
