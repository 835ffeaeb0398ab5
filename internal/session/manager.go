// Package session implements the resource registry, timeline store, and
// sync-queue/sync-wait engines (spec components B through F): everything
// that lives between the command dispatcher and the renderer adapter.
package session

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/go-vtest/vtestd/internal/constants"
	"github.com/go-vtest/vtestd/internal/eventfd"
	"github.com/go-vtest/vtestd/internal/logging"
	"github.com/go-vtest/vtestd/internal/renderer"
)

// Observer receives sync-subsystem events. Its method set matches the
// root package's Observer so a *vtestd.MetricsObserver satisfies it
// without this package importing the root package (which would cycle).
type Observer interface {
	ObserveWaitRegistered(preSignaled bool)
	ObserveWaitResolved()
	ObserveWaitExpired()
	ObserveQueueSubmit(depthAfter int)
	ObserveQueueFenceComplete()
}

type noOpObserver struct{}

func (noOpObserver) ObserveWaitRegistered(bool) {}
func (noOpObserver) ObserveWaitResolved()       {}
func (noOpObserver) ObserveWaitExpired()        {}
func (noOpObserver) ObserveQueueSubmit(int)     {}
func (noOpObserver) ObserveQueueFenceComplete() {}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Renderer                 renderer.Renderer
	MultiClient               bool
	MaxLength                 uint32 // renderer.max_length (§4.7); 0 means DefaultMaxLength
	ExpiredWaitSweepInterval time.Duration
	Logger                    *logging.Logger
	Observer                  Observer

	// RenderNodePath, if set, is opened (O_RDWR) on demand whenever the
	// renderer calls back through OpenRenderNodeFunc, rather than once at
	// startup, since nothing may ever request it.
	RenderNodePath string
}

// Manager is the process-wide renderer singleton plus the "current
// context" anchor and the monotonic id counters (§3 "Renderer
// (process-wide)"). All sync-subsystem mutations go through Manager under
// its coarse mutex, per §5's mutex-discipline requirement.
type Manager struct {
	mu sync.Mutex

	renderer    renderer.Renderer
	multiClient bool
	maxLength   uint32
	logger      *logging.Logger
	observer    Observer

	contexts map[uint32]*Context
	current  *Context

	nextContextID  uint32
	nextResourceID uint32
	nextSyncID     uint32
	nextSubmitSeq  uint64

	resourceFreeList []*Resource
	syncFreeList     []*Sync

	renderNodePath string

	implicitFenceSubmitted uint64
	implicitFenceCompleted uint64

	sweepStop chan struct{}
	sweepDone chan struct{}
}

// NewManager constructs a Manager and wires it as the renderer's callback
// sink. The caller must not use cfg.Renderer directly afterward.
func NewManager(cfg ManagerConfig) *Manager {
	maxLength := cfg.MaxLength
	if maxLength == 0 {
		maxLength = constants.DefaultMaxLength
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	obs := cfg.Observer
	if obs == nil {
		obs = noOpObserver{}
	}

	m := &Manager{
		renderer:       cfg.Renderer,
		multiClient:    cfg.MultiClient,
		maxLength:      maxLength,
		logger:         logger,
		observer:       obs,
		contexts:       make(map[uint32]*Context),
		renderNodePath: cfg.RenderNodePath,
	}

	var openRenderNode renderer.OpenRenderNodeFunc
	if m.renderNodePath != "" {
		openRenderNode = m.openRenderNode
	}
	m.renderer.SetCallbacks(m.onImplicitFenceComplete, m.onContextFenceComplete, openRenderNode)

	if cfg.ExpiredWaitSweepInterval > 0 {
		m.sweepStop = make(chan struct{})
		m.sweepDone = make(chan struct{})
		go m.sweepLoop(cfg.ExpiredWaitSweepInterval)
	}
	return m
}

// Close stops the background sweep goroutine, if running.
func (m *Manager) Close() {
	if m.sweepStop == nil {
		return
	}
	close(m.sweepStop)
	<-m.sweepDone
}

func (m *Manager) sweepLoop(interval time.Duration) {
	defer close(m.sweepDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.sweepStop:
			return
		case <-ticker.C:
			m.sweepExpiredWaits()
		}
	}
}

// sweepExpiredWaits garbage-collects waits past their deadline on
// otherwise-idle contexts (§9: "a rewrite should add a bounded periodic
// sweep", since the source only collects expired waits opportunistically
// inside signal_sync).
func (m *Manager) sweepExpiredWaits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, ctx := range m.contexts {
		kept := ctx.SyncWaits[:0]
		for _, w := range ctx.SyncWaits {
			if w.expired(now) {
				w.release()
				m.observer.ObserveWaitExpired()
				continue
			}
			kept = append(kept, w)
		}
		ctx.SyncWaits = kept
	}
}

// openRenderNode opens renderNodePath fresh on every call; the renderer
// owns the returned fd from here on.
func (m *Manager) openRenderNode() (int, error) {
	fd, err := unix.Open(m.renderNodePath, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, wrap("OPEN_RENDER_NODE", err)
	}
	return fd, nil
}

// MultiClient reports whether the manager was configured for multi-client
// protocol-version enforcement (§4.6).
func (m *Manager) MultiClient() bool { return m.multiClient }

// MaxLength returns the configured renderer.max_length bound (§4.7).
func (m *Manager) MaxLength() uint32 { return m.maxLength }

// Renderer returns the underlying renderer, for components (transfer,
// dispatch) that need to call it directly.
func (m *Manager) Renderer() renderer.Renderer { return m.renderer }
