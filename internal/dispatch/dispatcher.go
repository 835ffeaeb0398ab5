// Package dispatch implements the command dispatcher (§4.7): frame
// parsing, per-command length bounds, opcode routing, and the connection
// read loop over a single client socket.
package dispatch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/go-vtest/vtestd/internal/constants"
	"github.com/go-vtest/vtestd/internal/logging"
	"github.com/go-vtest/vtestd/internal/session"
	"github.com/go-vtest/vtestd/internal/wire"
)

// Dispatcher routes frames from one client connection to the session
// manager. One Dispatcher instance serves exactly one connection; the
// manager underneath it may be shared across many (multi-client mode).
type Dispatcher struct {
	manager *session.Manager
	logger  *logging.Logger
	saveW   io.Writer // non-nil mirrors every inbound byte (VTEST_SAVE)
}

// New constructs a Dispatcher over an already-configured Manager.
func New(manager *session.Manager, logger *logging.Logger, saveW io.Writer) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{manager: manager, logger: logger, saveW: saveW}
}

// Serve runs the read-dispatch loop for one connection until a fatal
// error (a short read, or an unknown opcode) or the peer closes. The
// connection's Context is destroyed before returning.
func (d *Dispatcher) Serve(conn *net.UnixConn) error {
	ctx := d.manager.CreateContext("")
	defer d.manager.DestroyContext(ctx)

	var r io.Reader = conn
	if d.saveW != nil {
		r = io.TeeReader(conn, d.saveW)
	}

	for {
		h, err := wire.ReadHeader(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		maxLen := d.manager.MaxLength()
		if h.CmdID == wire.CmdCreateContext {
			if uint64(h.LengthDW) > constants.MaxContextNameLength {
				return fmt.Errorf("dispatch: CREATE_CONTEXT name too long: %d bytes", h.LengthDW)
			}
		} else if uint64(h.LengthDW)*4 > uint64(maxLen) {
			return fmt.Errorf("dispatch: frame exceeds max_length: %d dwords", h.LengthDW)
		}

		// CREATE_CONTEXT's length field counts name bytes, not dwords.
		payloadLen := h.LengthDW * 4
		if h.CmdID == wire.CmdCreateContext {
			payloadLen = h.LengthDW
		}
		payload := make([]byte, payloadLen)
		if err := wire.ReadExact(r, payload); err != nil {
			return err
		}

		if err := d.dispatch(conn, ctx, h.CmdID, payload); err != nil {
			d.logger.Errorf("dispatch: cmd %d failed: %v", h.CmdID, err)
			return err
		}
	}
}

func (d *Dispatcher) dispatch(conn *net.UnixConn, ctx *session.Context, cmdID uint32, payload []byte) error {
	switch cmdID {
	case wire.CmdCreateContext:
		return d.handleCreateContext(ctx, payload)
	case wire.CmdPingProtocolVersion:
		return wire.WriteHeader(conn, wire.Header{LengthDW: 0, CmdID: cmdID})
	case wire.CmdProtocolVersion:
		return d.handleProtocolVersion(conn, ctx, payload)
	case wire.CmdGetParam:
		return d.handleGetParam(conn, payload)
	case wire.CmdGetCapset:
		return d.handleGetCapset(conn, payload)
	case wire.CmdContextInit:
		return d.handleContextInit(ctx, payload)
	case wire.CmdGetCaps:
		return d.handleGetCaps(conn, ctx)
	case wire.CmdGetCaps2:
		return d.handleGetCaps2(conn, ctx)
	case wire.CmdResourceCreate, wire.CmdResourceCreate2:
		return d.handleResourceCreate(conn, ctx, payload, cmdID == wire.CmdResourceCreate2)
	case wire.CmdResourceCreateBlob:
		return d.handleResourceCreateBlob(conn, ctx, payload)
	case wire.CmdResourceUnref:
		return d.handleResourceUnref(ctx, payload)
	case wire.CmdSubmitCmd:
		return d.handleSubmitCmd(ctx, payload)
	case wire.CmdTransferGet:
		return d.handleTransferGet(conn, ctx, payload, false, false)
	case wire.CmdTransferGet2:
		return d.handleTransferGet(conn, ctx, payload, false, true)
	case wire.CmdTransferGetNop:
		return d.handleTransferGet(conn, ctx, payload, true, false)
	case wire.CmdTransferGet2Nop:
		return d.handleTransferGet(conn, ctx, payload, true, true)
	case wire.CmdTransferPut:
		return d.handleTransferPut(conn, ctx, payload, false, false)
	case wire.CmdTransferPut2:
		return d.handleTransferPut(conn, ctx, payload, false, true)
	case wire.CmdTransferPutNop:
		return d.handleTransferPut(conn, ctx, payload, true, false)
	case wire.CmdTransferPut2Nop:
		return d.handleTransferPut(conn, ctx, payload, true, true)
	case wire.CmdResourceBusyWait:
		return d.handleResourceBusyWait(conn, ctx, payload)
	case wire.CmdSyncCreate:
		return d.handleSyncCreate(conn, ctx, payload)
	case wire.CmdSyncUnref:
		return d.handleSyncUnref(ctx, payload)
	case wire.CmdSyncRead:
		return d.handleSyncRead(conn, ctx, payload)
	case wire.CmdSyncWrite:
		return d.handleSyncWrite(ctx, payload)
	case wire.CmdSyncWait:
		return d.handleSyncWait(conn, ctx, payload)
	case wire.CmdSubmitCmd2:
		return d.handleSubmitCmd2(ctx, payload)
	default:
		return fmt.Errorf("dispatch: unknown opcode %d", cmdID)
	}
}

func (d *Dispatcher) handleCreateContext(ctx *session.Context, payload []byte) error {
	ctx.DebugName = string(bytes.TrimRight(payload, "\x00"))
	return nil
}
