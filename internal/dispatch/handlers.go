package dispatch

import (
	"bytes"
	"encoding/binary"
	"net"

	"github.com/go-vtest/vtestd/internal/constants"
	"github.com/go-vtest/vtestd/internal/renderer"
	"github.com/go-vtest/vtestd/internal/session"
	"github.com/go-vtest/vtestd/internal/transfer"
	"github.com/go-vtest/vtestd/internal/wire"
)

// serverProtocolVersion is the newest protocol version this dispatcher
// negotiates down to (§4.6): "3+ is required in multi-client mode".
const serverProtocolVersion uint32 = 3

func (d *Dispatcher) handleProtocolVersion(conn *net.UnixConn, ctx *session.Context, payload []byte) error {
	var req wire.ProtocolVersionReq
	if err := req.Unmarshal(payload); err != nil {
		return err
	}

	negotiated := req.Version
	if negotiated > serverProtocolVersion {
		negotiated = serverProtocolVersion
	}
	if negotiated == 1 {
		negotiated = 0
	}
	if d.manager.MultiClient() && negotiated < 3 {
		return translateError(&session.Error{Op: "PROTOCOL_VERSION", Code: session.CodeInvalid, Msg: "multi-client mode requires protocol >= 3"})
	}
	ctx.ProtocolVersion = negotiated

	resp := wire.ProtocolVersionReq{Version: negotiated}
	body := resp.Marshal()
	if err := wire.WriteHeader(conn, wire.Header{LengthDW: uint32(len(body) / 4), CmdID: wire.CmdProtocolVersion}); err != nil {
		return err
	}
	return wire.WriteExact(conn, body)
}

func (d *Dispatcher) handleGetParam(conn *net.UnixConn, payload []byte) error {
	var req wire.GetParamReq
	if err := req.Unmarshal(payload); err != nil {
		return err
	}

	resp := wire.GetParamResp{Supported: 0, Value: 0}
	if req.Param == wire.ParamMaxSyncQueueCount {
		resp.Supported = 1
		resp.Value = 64
	}
	body := resp.Marshal()
	if err := d.writeConn(conn, wire.CmdGetParam, body); err != nil {
		return err
	}
	return nil
}

func (d *Dispatcher) handleGetCapset(conn *net.UnixConn, payload []byte) error {
	var req wire.GetCapsetReq
	if err := req.Unmarshal(payload); err != nil {
		return err
	}
	maxSize, supported := d.manager.Renderer().GetCapSet(req.CapsetID, req.CapsetVersion)

	buf := make([]byte, 4)
	if supported {
		binary.LittleEndian.PutUint32(buf, 1)
	}
	if !supported {
		return d.writeConn(conn, wire.CmdGetCapset, buf)
	}
	caps := make([]byte, maxSize)
	d.manager.Renderer().FillCaps(req.CapsetID, caps)
	return d.writeConn(conn, wire.CmdGetCapset, append(buf, caps...))
}

func (d *Dispatcher) handleContextInit(ctx *session.Context, payload []byte) error {
	var req wire.ContextInitReq
	if err := req.Unmarshal(payload); err != nil {
		return err
	}
	return translateError(d.manager.ContextInit(ctx, req.CapsetID))
}

// handleGetCaps implements GET_CAPS, which always queries the virgl
// capset (id 1, version 1) regardless of what CONTEXT_INIT set.
func (d *Dispatcher) handleGetCaps(conn *net.UnixConn, ctx *session.Context) error {
	return d.sendCaps(conn, ctx, wire.CapsetVirgl, wire.CmdGetCaps)
}

// handleGetCaps2 implements GET_CAPS2, which always queries the venus
// capset (id 2, version 1).
func (d *Dispatcher) handleGetCaps2(conn *net.UnixConn, ctx *session.Context) error {
	return d.sendCaps(conn, ctx, wire.CapsetVenus, wire.CmdGetCaps2)
}

func (d *Dispatcher) sendCaps(conn *net.UnixConn, ctx *session.Context, capsetID uint32, respTag uint32) error {
	if err := translateError(d.manager.EnsureInitialized(ctx)); err != nil {
		return err
	}
	size, _ := d.manager.Renderer().GetCapSet(capsetID, 1)
	buf := make([]byte, size)
	d.manager.Renderer().FillCaps(capsetID, buf)
	return d.writeConn(conn, respTag, buf)
}

func (d *Dispatcher) handleResourceCreate(conn *net.UnixConn, ctx *session.Context, payload []byte, withShm bool) error {
	var req wire.ResourceCreateReq
	if err := req.Unmarshal(payload); err != nil {
		return err
	}
	if err := translateError(d.manager.EnsureInitialized(ctx)); err != nil {
		return err
	}

	args := renderer.ResourceCreateArgs{
		Target: req.Target, Format: req.Format, Bind: req.Bind,
		Width: req.Width, Height: req.Height, Depth: req.Depth,
		ArraySize: req.ArraySize, LastLevel: req.LastLevel,
		NrSamples: req.NrSamples, Flags: req.Flags,
	}
	res, err := d.manager.CreateResource(ctx, req.Handle, args)
	if err != nil {
		return translateError(err)
	}

	var shmSize uint64
	if withShm && len(payload) >= 52 {
		shmSize = binary.LittleEndian.Uint64(payload[44:52])
	}

	resp := wire.ResourceCreateResp{Handle: res.ClientID}
	var respHandle []byte
	if ctx.ProtocolVersion >= 3 {
		respHandle = resp.Marshal()
	}
	if err := d.writeConn(conn, wire.CmdResourceCreate, respHandle); err != nil {
		return err
	}

	if withShm && shmSize > 0 {
		fd, err := d.manager.AttachShm(ctx, res, shmSize)
		if err != nil {
			return translateError(err)
		}
		return wire.SendFD(conn, fd)
	}
	return nil
}

func (d *Dispatcher) handleResourceCreateBlob(conn *net.UnixConn, ctx *session.Context, payload []byte) error {
	var req wire.ResourceCreateBlobReq
	if err := req.Unmarshal(payload); err != nil {
		return err
	}
	if err := translateError(d.manager.EnsureInitialized(ctx)); err != nil {
		return err
	}

	res, fd, err := d.manager.CreateBlobResource(ctx, req.Type, req.Flags, req.Size, req.BlobID)
	if err != nil {
		return translateError(err)
	}

	resp := wire.ResourceCreateResp{Handle: res.ClientID}
	if err := d.writeConn(conn, wire.CmdResourceCreateBlob, resp.Marshal()); err != nil {
		return err
	}
	return wire.SendFD(conn, fd)
}

func (d *Dispatcher) handleResourceUnref(ctx *session.Context, payload []byte) error {
	var req wire.ResourceUnrefReq
	if err := req.Unmarshal(payload); err != nil {
		return err
	}
	return translateError(d.manager.UnrefResource(ctx, req.Handle))
}

func (d *Dispatcher) handleSubmitCmd(ctx *session.Context, payload []byte) error {
	if err := translateError(d.manager.EnsureInitialized(ctx)); err != nil {
		return err
	}
	words := bytesToWords(payload)
	if err := d.manager.Renderer().SubmitCmd(ctx.ID, words); err != nil {
		return translateError(err)
	}
	return d.manager.SubmitLegacyFence(ctx)
}

// handleTransferGet implements TRANSFER_GET[_NOP] (inline "v1" data
// returned on the wire) and TRANSFER_GET2[_NOP] (shm-backed "v2": the
// bytes already live in the client's mapped iov, so the server only
// validates bounds and issues no response body).
func (d *Dispatcher) handleTransferGet(conn *net.UnixConn, ctx *session.Context, payload []byte, nop, v2 bool) error {
	if v2 {
		var req wire.TransferReq2
		if err := req.Unmarshal(payload); err != nil {
			return err
		}
		res, ok := d.manager.LookupResource(ctx, req.Handle)
		if !ok {
			return translateError(&session.Error{Op: "TRANSFER_GET2", Code: session.CodeExists, Msg: "unknown handle"})
		}
		var buf bytes.Buffer
		if err := transfer.Get(d.manager.Renderer(), res, ctx.ID, req.Offset, uint32(req.DataSize()), nop, &buf); err != nil {
			return translateError(err)
		}
		return nil
	}

	var req wire.TransferReq
	if err := req.Unmarshal(payload); err != nil {
		return err
	}
	res, ok := d.manager.LookupResource(ctx, req.Handle)
	if !ok {
		return translateError(&session.Error{Op: "TRANSFER_GET", Code: session.CodeExists, Msg: "unknown handle"})
	}

	var buf bytes.Buffer
	if err := transfer.Get(d.manager.Renderer(), res, ctx.ID, 0, req.Length, nop, &buf); err != nil {
		return translateError(err)
	}
	return d.writeConn(conn, wire.CmdTransferGet, buf.Bytes())
}

// handleTransferPut implements TRANSFER_PUT[_NOP] (inline "v1" data
// follows the fixed header) and TRANSFER_PUT2[_NOP] (shm-backed "v2": no
// inline data, the client already wrote into the mapped iov).
func (d *Dispatcher) handleTransferPut(conn *net.UnixConn, ctx *session.Context, payload []byte, nop, v2 bool) error {
	if v2 {
		var req wire.TransferReq2
		if err := req.Unmarshal(payload); err != nil {
			return err
		}
		if _, ok := d.manager.LookupResource(ctx, req.Handle); !ok {
			return translateError(&session.Error{Op: "TRANSFER_PUT2", Code: session.CodeExists, Msg: "unknown handle"})
		}
		return nil
	}

	var req wire.TransferReq
	if err := req.Unmarshal(payload); err != nil {
		return err
	}
	res, ok := d.manager.LookupResource(ctx, req.Handle)
	if !ok {
		return translateError(&session.Error{Op: "TRANSFER_PUT", Code: session.CodeExists, Msg: "unknown handle"})
	}

	data := payload[44:]
	return translateError(transfer.Put(d.manager.Renderer(), res, ctx.ID, 0, req.Length, nop, bytes.NewReader(data)))
}

func (d *Dispatcher) handleResourceBusyWait(conn *net.UnixConn, ctx *session.Context, payload []byte) error {
	var req wire.ResourceBusyWaitReq
	if err := req.Unmarshal(payload); err != nil {
		return err
	}
	if req.Handle != 0 && !ctx.Initialized() {
		return translateError(&session.Error{Op: "RESOURCE_BUSY_WAIT", Code: session.CodeInvalid, Msg: "non-zero handle before context init"})
	}
	busy := d.manager.ImplicitFenceBusy()
	resp := wire.ResourceBusyWaitResp{Busy: 0}
	if busy {
		resp.Busy = 1
	}
	return d.writeConn(conn, wire.CmdResourceBusyWait, resp.Marshal())
}

func (d *Dispatcher) handleSyncCreate(conn *net.UnixConn, ctx *session.Context, payload []byte) error {
	var req wire.SyncCreateReq
	if err := req.Unmarshal(payload); err != nil {
		return err
	}
	s := d.manager.CreateSync(ctx, req.InitialValue)
	resp := wire.SyncCreateResp{Handle: s.ID}
	return d.writeConn(conn, wire.CmdSyncCreate, resp.Marshal())
}

func (d *Dispatcher) handleSyncUnref(ctx *session.Context, payload []byte) error {
	var req wire.SyncUnrefReq
	if err := req.Unmarshal(payload); err != nil {
		return err
	}
	return translateError(d.manager.UnrefSync(ctx, req.Handle))
}

func (d *Dispatcher) handleSyncRead(conn *net.UnixConn, ctx *session.Context, payload []byte) error {
	var req wire.SyncReadReq
	if err := req.Unmarshal(payload); err != nil {
		return err
	}
	v, err := d.manager.ReadSync(ctx, req.Handle)
	if err != nil {
		return translateError(err)
	}
	resp := wire.SyncReadResp{Value: v}
	return d.writeConn(conn, wire.CmdSyncRead, resp.Marshal())
}

func (d *Dispatcher) handleSyncWrite(ctx *session.Context, payload []byte) error {
	var req wire.SyncWriteReq
	if err := req.Unmarshal(payload); err != nil {
		return err
	}
	return translateError(d.manager.WriteSync(ctx, req.Handle, req.Value))
}

func (d *Dispatcher) handleSyncWait(conn *net.UnixConn, ctx *session.Context, payload []byte) error {
	var req wire.SyncWaitReq
	if err := req.Unmarshal(payload); err != nil {
		return err
	}
	if (len(payload)-8)%12 != 0 {
		return translateError(&session.Error{Op: "SYNC_WAIT", Code: session.CodeInvalid, Msg: "malformed entry count"})
	}
	count := uint32((len(payload) - 8) / 12)
	entries, err := wire.UnmarshalSyncWaitEntries(payload[8:], count)
	if err != nil {
		return err
	}

	reqs := make([]session.WaitRequest, len(entries))
	for i, e := range entries {
		reqs[i] = session.WaitRequest{SyncID: e.Handle, Threshold: e.Value}
	}

	notifier, err := d.manager.RegisterWait(ctx, req.Flags, int64(req.TimeoutMS), reqs)
	if err != nil {
		return translateError(err)
	}
	if err := d.writeConn(conn, wire.CmdSyncWait, nil); err != nil {
		return err
	}
	return wire.SendFD(conn, notifier.FD())
}

func (d *Dispatcher) handleSubmitCmd2(ctx *session.Context, payload []byte) error {
	var req wire.SubmitCmd2Req
	if err := req.Unmarshal(payload); err != nil {
		return err
	}
	if req.SyncQueueIndex >= constants.MaxSyncQueueCount {
		return translateError(&session.Error{Op: "SUBMIT_CMD2", Code: session.CodeInvalid, Msg: "sync queue index out of range"})
	}

	frameLen := uint64(len(payload))
	cmdStart := uint64(req.CmdOffsetDW) * 4
	cmdEnd := cmdStart + uint64(req.CmdSizeDW)*4
	if cmdStart > cmdEnd || cmdEnd > frameLen {
		return translateError(&session.Error{Op: "SUBMIT_CMD2", Code: session.CodeInvalid, Msg: "cmd offsets overflow the frame"})
	}

	syncStart := uint64(req.SyncOffsetDW) * 4
	syncEnd := syncStart + uint64(req.SyncCount)*12
	if syncStart > syncEnd || syncEnd > frameLen {
		return translateError(&session.Error{Op: "SUBMIT_CMD2", Code: session.CodeInvalid, Msg: "sync offsets overflow the frame"})
	}

	if err := translateError(d.manager.EnsureInitialized(ctx)); err != nil {
		return err
	}

	words := bytesToWords(payload[cmdStart:cmdEnd])

	syncIDs := make([]uint32, req.SyncCount)
	values := make([]uint64, req.SyncCount)
	for i := uint32(0); i < req.SyncCount; i++ {
		off := syncStart + uint64(i)*12
		syncIDs[i] = binary.LittleEndian.Uint32(payload[off : off+4])
		values[i] = binary.LittleEndian.Uint64(payload[off+4 : off+12])
	}

	queued := req.Flags&wire.SyncQueueFlagQueued != 0
	return translateError(d.manager.SubmitBatch(ctx, req.SyncQueueIndex, queued, words, syncIDs, values))
}

func (d *Dispatcher) writeConn(conn *net.UnixConn, cmdID uint32, body []byte) error {
	if err := wire.WriteHeader(conn, wire.Header{LengthDW: uint32(len(body) / 4), CmdID: cmdID}); err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return wire.WriteExact(conn, body)
}

func bytesToWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4 : i*4+4])
	}
	return words
}
