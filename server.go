package vtestd

import (
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/go-vtest/vtestd/internal/constants"
	"github.com/go-vtest/vtestd/internal/dispatch"
	"github.com/go-vtest/vtestd/internal/logging"
	"github.com/go-vtest/vtestd/internal/renderer"
	"github.com/go-vtest/vtestd/internal/session"
)

// ServerParams configures a Server (grounded on the teacher's DeviceParams).
type ServerParams struct {
	// Renderer is the rendering library collaborator. If nil, a
	// StubRenderer is used (suitable for tests and hosts with no real
	// rendering library available).
	Renderer renderer.Renderer

	// MultiClient enforces protocol_version >= 3 for every connection
	// (§4.6). Single-client mode (the default) accepts any version.
	MultiClient bool

	// MaxLength bounds length_dw*4 for every command except
	// CREATE_CONTEXT (§4.7). Zero means DefaultMaxLength (unbounded).
	MaxLength uint32

	// RenderNodePath, if set, is opened and handed to the renderer via
	// OpenRenderNodeFunc for GPU device access.
	RenderNodePath string

	// SaveInputPath, if set, mirrors every inbound byte from every
	// connection into this file (VTEST_SAVE).
	SaveInputPath string

	// ExpiredWaitSweepInterval gates the background sweep that
	// garbage-collects expired SyncWaits on otherwise-idle contexts.
	// Zero selects DefaultExpiredWaitSweepInterval; a negative value
	// disables the sweep.
	ExpiredWaitSweepInterval time.Duration

	Logger   *logging.Logger
	Observer Observer
}

// Server listens on a Unix socket and serves the vtest protocol to every
// connection it accepts, all sharing one session.Manager (and therefore
// one renderer and one set of contexts/resources/syncs).
type Server struct {
	manager *session.Manager
	logger  *logging.Logger
	saveW   *os.File

	listener *net.UnixListener

	mu       sync.Mutex
	conns    map[*net.UnixConn]struct{}
	closing  bool
	wg       sync.WaitGroup
}

// NewServer constructs a Server from params but does not yet listen.
func NewServer(params ServerParams) (*Server, error) {
	logger := params.Logger
	if logger == nil {
		logger = logging.Default()
	}

	r := params.Renderer
	if r == nil {
		r = renderer.NewStubRenderer()
	}

	var saveW *os.File
	if params.SaveInputPath != "" {
		f, err := os.OpenFile(params.SaveInputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, WrapError("NewServer", err)
		}
		saveW = f
	}

	sweepInterval := params.ExpiredWaitSweepInterval
	if sweepInterval == 0 {
		sweepInterval = constants.DefaultExpiredWaitSweepInterval
	}

	var obs Observer = NoOpObserver{}
	if params.Observer != nil {
		obs = params.Observer
	}

	manager := session.NewManager(session.ManagerConfig{
		Renderer:                 r,
		MultiClient:              params.MultiClient,
		MaxLength:                params.MaxLength,
		ExpiredWaitSweepInterval: sweepInterval,
		Logger:                   logger,
		Observer:                 obs,
		RenderNodePath:           params.RenderNodePath,
	})

	return &Server{
		manager: manager,
		logger:  logger,
		saveW:   saveW,
		conns:   make(map[*net.UnixConn]struct{}),
	}, nil
}

// Listen binds a Unix socket at path and begins accepting connections.
// The socket file is removed first if it already exists (a stale socket
// from a prior crashed run).
func (s *Server) Listen(path string) error {
	_ = os.Remove(path)
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return WrapError("Listen", err)
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return WrapError("Listen", err)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.AcceptUnix()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing {
				return
			}
			s.logger.Errorf("vtestd: accept: %v", err)
			return
		}

		s.mu.Lock()
		if s.closing {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn *net.UnixConn) {
	defer s.wg.Done()
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	var saveW io.Writer
	if s.saveW != nil {
		saveW = s.saveW
	}
	d := dispatch.New(s.manager, s.logger, saveW)
	if err := d.Serve(conn); err != nil {
		s.logger.Debugf("vtestd: connection closed: %v", err)
	}
}

// Close stops accepting new connections, closes all in-flight ones, and
// stops the manager's background sweep goroutine.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closing = true
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()

	s.manager.Close()
	if s.saveW != nil {
		s.saveW.Close()
	}
	return nil
}

// Manager exposes the underlying session manager, mainly for tests that
// want to drive the protocol without a real socket round trip.
func (s *Server) Manager() *session.Manager {
	return s.manager
}
