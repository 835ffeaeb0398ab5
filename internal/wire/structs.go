package wire

import "encoding/binary"

// ErrShortPayload is returned by Unmarshal methods when the supplied
// buffer is smaller than the fixed-size payload it decodes.
var ErrShortPayload = errShortPayload{}

type errShortPayload struct{}

func (errShortPayload) Error() string { return "wire: payload too short" }

// ProtocolVersionReq is the PROTOCOL_VERSION request and response payload.
type ProtocolVersionReq struct {
	Version uint32
}

func (r *ProtocolVersionReq) Marshal() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf[0:4], r.Version)
	return buf
}

func (r *ProtocolVersionReq) Unmarshal(data []byte) error {
	if len(data) < 4 {
		return ErrShortPayload
	}
	r.Version = binary.LittleEndian.Uint32(data[0:4])
	return nil
}

// GetParamReq is the GET_PARAM request payload.
type GetParamReq struct {
	Param uint32
}

func (r *GetParamReq) Unmarshal(data []byte) error {
	if len(data) < 4 {
		return ErrShortPayload
	}
	r.Param = binary.LittleEndian.Uint32(data[0:4])
	return nil
}

// GetParamResp is the GET_PARAM response payload.
type GetParamResp struct {
	Supported uint32
	Value     uint32
}

func (r *GetParamResp) Marshal() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], r.Supported)
	binary.LittleEndian.PutUint32(buf[4:8], r.Value)
	return buf
}

// GetCapsetReq is the GET_CAPSET request payload.
type GetCapsetReq struct {
	CapsetID      uint32
	CapsetVersion uint32
}

func (r *GetCapsetReq) Unmarshal(data []byte) error {
	if len(data) < 8 {
		return ErrShortPayload
	}
	r.CapsetID = binary.LittleEndian.Uint32(data[0:4])
	r.CapsetVersion = binary.LittleEndian.Uint32(data[4:8])
	return nil
}

// ContextInitReq is the CONTEXT_INIT request payload.
type ContextInitReq struct {
	CapsetID uint32
}

func (r *ContextInitReq) Unmarshal(data []byte) error {
	if len(data) < 4 {
		return ErrShortPayload
	}
	r.CapsetID = binary.LittleEndian.Uint32(data[0:4])
	return nil
}

// ResourceCreateReq is the RESOURCE_CREATE / RESOURCE_CREATE2 request payload.
// Handle is honored for protocol versions below 3; at protocol 3 and above
// it must be zero.
type ResourceCreateReq struct {
	Handle  uint32
	Target  uint32
	Format  uint32
	Bind    uint32
	Width   uint32
	Height  uint32
	Depth   uint32
	ArraySize uint32
	LastLevel uint32
	NrSamples uint32
	Flags   uint32
}

func (r *ResourceCreateReq) Unmarshal(data []byte) error {
	if len(data) < 44 {
		return ErrShortPayload
	}
	r.Handle = binary.LittleEndian.Uint32(data[0:4])
	r.Target = binary.LittleEndian.Uint32(data[4:8])
	r.Format = binary.LittleEndian.Uint32(data[8:12])
	r.Bind = binary.LittleEndian.Uint32(data[12:16])
	r.Width = binary.LittleEndian.Uint32(data[16:20])
	r.Height = binary.LittleEndian.Uint32(data[20:24])
	r.Depth = binary.LittleEndian.Uint32(data[24:28])
	r.ArraySize = binary.LittleEndian.Uint32(data[28:32])
	r.LastLevel = binary.LittleEndian.Uint32(data[32:36])
	r.NrSamples = binary.LittleEndian.Uint32(data[36:40])
	r.Flags = binary.LittleEndian.Uint32(data[40:44])
	return nil
}

// ResourceCreateResp is the RESOURCE_CREATE / RESOURCE_CREATE2 response payload.
type ResourceCreateResp struct {
	Handle uint32
}

func (r *ResourceCreateResp) Marshal() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf[0:4], r.Handle)
	return buf
}

// ResourceCreateBlobReq is the RESOURCE_CREATE_BLOB request payload.
type ResourceCreateBlobReq struct {
	Handle    uint32
	Type      uint32
	Flags     uint32
	Size      uint64
	BlobID    uint64
}

func (r *ResourceCreateBlobReq) Unmarshal(data []byte) error {
	if len(data) < 28 {
		return ErrShortPayload
	}
	r.Handle = binary.LittleEndian.Uint32(data[0:4])
	r.Type = binary.LittleEndian.Uint32(data[4:8])
	r.Flags = binary.LittleEndian.Uint32(data[8:12])
	r.Size = binary.LittleEndian.Uint64(data[12:20])
	r.BlobID = binary.LittleEndian.Uint64(data[20:28])
	return nil
}

// ResourceUnrefReq is the RESOURCE_UNREF request payload.
type ResourceUnrefReq struct {
	Handle uint32
}

func (r *ResourceUnrefReq) Unmarshal(data []byte) error {
	if len(data) < 4 {
		return ErrShortPayload
	}
	r.Handle = binary.LittleEndian.Uint32(data[0:4])
	return nil
}

// TransferReq is the TRANSFER_GET/PUT[_NOP] ("v1") request header: handle,
// level, stride, layer_stride, then the six-word box (x, y, z, w, h, d),
// then the data size in bytes. Offset is not carried on the wire for v1;
// transfers always start at byte 0 of the resource.
type TransferReq struct {
	Handle      uint32
	Level       uint32
	Stride      uint32
	LayerStride uint32
	X, Y, Z, W, H, D uint32
	Length      uint32
}

func (r *TransferReq) Unmarshal(data []byte) error {
	if len(data) < 44 {
		return ErrShortPayload
	}
	r.Handle = binary.LittleEndian.Uint32(data[0:4])
	r.Level = binary.LittleEndian.Uint32(data[4:8])
	r.Stride = binary.LittleEndian.Uint32(data[8:12])
	r.LayerStride = binary.LittleEndian.Uint32(data[12:16])
	r.X = binary.LittleEndian.Uint32(data[16:20])
	r.Y = binary.LittleEndian.Uint32(data[20:24])
	r.Z = binary.LittleEndian.Uint32(data[24:28])
	r.W = binary.LittleEndian.Uint32(data[28:32])
	r.H = binary.LittleEndian.Uint32(data[32:36])
	r.D = binary.LittleEndian.Uint32(data[36:40])
	r.Length = binary.LittleEndian.Uint32(data[40:44])
	return nil
}

// TransferReq2 is the TRANSFER_GET2/PUT2[_NOP] ("v2") request header:
// handle, level, the six-word box, then a byte offset into the resource's
// attached shm/iov. Stride and layer_stride are not carried on the wire
// for v2; the region is always tightly packed.
type TransferReq2 struct {
	Handle uint32
	Level  uint32
	X, Y, Z, W, H, D uint32
	Offset uint64
}

func (r *TransferReq2) Unmarshal(data []byte) error {
	if len(data) < 36 {
		return ErrShortPayload
	}
	r.Handle = binary.LittleEndian.Uint32(data[0:4])
	r.Level = binary.LittleEndian.Uint32(data[4:8])
	r.X = binary.LittleEndian.Uint32(data[8:12])
	r.Y = binary.LittleEndian.Uint32(data[12:16])
	r.Z = binary.LittleEndian.Uint32(data[16:20])
	r.W = binary.LittleEndian.Uint32(data[20:24])
	r.H = binary.LittleEndian.Uint32(data[24:28])
	r.D = binary.LittleEndian.Uint32(data[28:32])
	r.Offset = uint64(binary.LittleEndian.Uint32(data[32:36]))
	return nil
}

// DataSize returns the byte length of a v2 transfer's tightly-packed
// region: width * height * depth, with zero height/depth treated as one
// slice (matching a plain 1D/2D box that doesn't set them).
func (r *TransferReq2) DataSize() uint64 {
	h := uint64(r.H)
	if h == 0 {
		h = 1
	}
	d := uint64(r.D)
	if d == 0 {
		d = 1
	}
	return uint64(r.W) * h * d
}

// ResourceBusyWaitReq is the RESOURCE_BUSY_WAIT request payload.
type ResourceBusyWaitReq struct {
	Handle     uint32
	Flags      uint32
}

func (r *ResourceBusyWaitReq) Unmarshal(data []byte) error {
	if len(data) < 8 {
		return ErrShortPayload
	}
	r.Handle = binary.LittleEndian.Uint32(data[0:4])
	r.Flags = binary.LittleEndian.Uint32(data[4:8])
	return nil
}

// ResourceBusyWaitResp is the RESOURCE_BUSY_WAIT response payload.
type ResourceBusyWaitResp struct {
	Busy uint32
}

func (r *ResourceBusyWaitResp) Marshal() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf[0:4], r.Busy)
	return buf
}

// SyncCreateReq is the SYNC_CREATE request payload.
type SyncCreateReq struct {
	InitialValue uint64
}

func (r *SyncCreateReq) Unmarshal(data []byte) error {
	if len(data) < 8 {
		return ErrShortPayload
	}
	r.InitialValue = binary.LittleEndian.Uint64(data[0:8])
	return nil
}

// SyncCreateResp is the SYNC_CREATE response payload.
type SyncCreateResp struct {
	Handle uint32
}

func (r *SyncCreateResp) Marshal() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf[0:4], r.Handle)
	return buf
}

// SyncUnrefReq is the SYNC_UNREF request payload.
type SyncUnrefReq struct {
	Handle uint32
}

func (r *SyncUnrefReq) Unmarshal(data []byte) error {
	if len(data) < 4 {
		return ErrShortPayload
	}
	r.Handle = binary.LittleEndian.Uint32(data[0:4])
	return nil
}

// SyncReadReq is the SYNC_READ request payload.
type SyncReadReq struct {
	Handle uint32
}

func (r *SyncReadReq) Unmarshal(data []byte) error {
	if len(data) < 4 {
		return ErrShortPayload
	}
	r.Handle = binary.LittleEndian.Uint32(data[0:4])
	return nil
}

// SyncReadResp is the SYNC_READ response payload.
type SyncReadResp struct {
	Value uint64
}

func (r *SyncReadResp) Marshal() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf[0:8], r.Value)
	return buf
}

// SyncWriteReq is the SYNC_WRITE request payload.
type SyncWriteReq struct {
	Handle uint32
	Value  uint64
}

func (r *SyncWriteReq) Unmarshal(data []byte) error {
	if len(data) < 12 {
		return ErrShortPayload
	}
	r.Handle = binary.LittleEndian.Uint32(data[0:4])
	r.Value = binary.LittleEndian.Uint64(data[4:12])
	return nil
}

// SyncWaitEntry is one (handle, value) pair inside a SYNC_WAIT request.
type SyncWaitEntry struct {
	Handle uint32
	Value  uint64
}

// SyncWaitReq is the SYNC_WAIT request's fixed 8-byte header: flags then
// a millisecond timeout. The entry count isn't carried explicitly — it's
// derived from the remaining frame length, (len(payload)-8)/12.
type SyncWaitReq struct {
	Flags     uint32
	TimeoutMS uint32
}

func (r *SyncWaitReq) Unmarshal(data []byte) error {
	if len(data) < 8 {
		return ErrShortPayload
	}
	r.Flags = binary.LittleEndian.Uint32(data[0:4])
	r.TimeoutMS = binary.LittleEndian.Uint32(data[4:8])
	return nil
}

// UnmarshalSyncWaitEntries decodes count (sync_id, value) entries from
// data, where data is the SYNC_WAIT payload past the 8-byte header.
func UnmarshalSyncWaitEntries(data []byte, count uint32) ([]SyncWaitEntry, error) {
	entries := make([]SyncWaitEntry, count)
	for i := range entries {
		off := i * 12
		if len(data) < off+12 {
			return nil, ErrShortPayload
		}
		entries[i].Handle = binary.LittleEndian.Uint32(data[off : off+4])
		entries[i].Value = binary.LittleEndian.Uint64(data[off+4 : off+12])
	}
	return entries, nil
}

// SubmitCmd2Req is the SUBMIT_CMD2 fixed header; the variable batch
// body (cmd words plus per-entry sync arrays) is decoded by the dispatcher.
type SubmitCmd2Req struct {
	CmdOffsetDW uint32
	CmdSizeDW   uint32
	Flags       uint32
	SyncOffsetDW uint32
	SyncCount   uint32
	SyncQueueIndex uint32
}

func (r *SubmitCmd2Req) Unmarshal(data []byte) error {
	if len(data) < 24 {
		return ErrShortPayload
	}
	r.CmdOffsetDW = binary.LittleEndian.Uint32(data[0:4])
	r.CmdSizeDW = binary.LittleEndian.Uint32(data[4:8])
	r.Flags = binary.LittleEndian.Uint32(data[8:12])
	r.SyncOffsetDW = binary.LittleEndian.Uint32(data[12:16])
	r.SyncCount = binary.LittleEndian.Uint32(data[16:20])
	r.SyncQueueIndex = binary.LittleEndian.Uint32(data[20:24])
	return nil
}
