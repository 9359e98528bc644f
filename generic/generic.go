package generic

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"code.cloudfoundry.org/clock"

	fastpath "github.com/frobware/go-fastpath"
)

// Config configures a Generic for one interface. Pipeline and Registry
// are required; everything else has a working default.
type Config struct {
	// IfIndex is the host interface index.
	IfIndex int

	// Pipeline is the host pipeline adapter for this interface.
	Pipeline Pipeline

	// Registry is the capability broker to register with.
	Registry CapabilityRegistry

	// Timeouts supplies the delay-detach grace period. Defaults to
	// StaticTimeout(DefaultDelayDetachTimeout).
	Timeouts TimeoutSource

	// Clock is the time base; defaults to the wall clock.
	Clock clock.Clock

	// Workers schedules delay-detach workers; defaults to plain
	// goroutines.
	Workers WorkerPool

	// TxHooks is notified around pipeline pause/restart; optional.
	TxHooks TxHooks

	Logger *slog.Logger
}

// bypass is the per-direction control-plane state.
type bypass struct {
	direction fastpath.Direction

	// refCount counts consumers that want this direction's fast path
	// inserted. The drop to zero is deferred to the delay-detach
	// worker.
	refCount int

	// inserted is true while the host pipeline has this direction's
	// handlers committed.
	inserted bool

	// detachPending is true while a delay-detach worker owns the
	// pending decrement. At most one worker may be in flight per
	// direction.
	detachPending bool

	// lastDereference is the time of the most recent Dereference call;
	// the worker measures its grace period from here.
	lastDereference time.Time

	// ready gates data-plane use of this direction.
	ready *gate
}

// Generic is the lifecycle manager for one interface's software fast
// path.
//
// All mutable fields are serialised by mu. The two one-shot events and
// the object reference count are safe to touch without it. The
// registration handle is owned exclusively by this object and is only
// touched from the attach and teardown paths.
type Generic struct {
	ifindex  int
	pipeline Pipeline
	registry CapabilityRegistry
	timeouts TimeoutSource
	clk      clock.Clock
	workers  WorkerPool
	txHooks  TxHooks
	logger   *slog.Logger

	// refs keeps the object alive: one baseline reference held from New
	// until Detach, plus one per direction with a nonzero refCount.
	// cleanupDone fires when it drains to zero.
	refs             atomic.Int64
	interfaceRemoved *event
	cleanupDone      *event

	mu           sync.RWMutex
	rx, tx       bypass
	registration Registration
}

// New builds the lifecycle manager for cfg.IfIndex. The object holds
// one baseline reference that Detach releases.
func New(cfg Config) (*Generic, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("generic: pipeline is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("generic: capability registry is required")
	}
	if cfg.Timeouts == nil {
		cfg.Timeouts = StaticTimeout(DefaultDelayDetachTimeout)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewClock()
	}
	if cfg.Workers == nil {
		cfg.Workers = goroutinePool{}
	}
	if cfg.TxHooks == nil {
		cfg.TxHooks = nopTxHooks{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	g := &Generic{
		ifindex:          cfg.IfIndex,
		pipeline:         cfg.Pipeline,
		registry:         cfg.Registry,
		timeouts:         cfg.Timeouts,
		clk:              cfg.Clock,
		workers:          cfg.Workers,
		txHooks:          cfg.TxHooks,
		logger:           cfg.Logger.With("component", "generic", "ifindex", cfg.IfIndex),
		interfaceRemoved: newEvent(),
		cleanupDone:      newEvent(),
		rx:               bypass{direction: fastpath.RX, ready: newGate()},
		tx:               bypass{direction: fastpath.TX, ready: newGate()},
	}
	g.refs.Store(1)
	return g, nil
}

// Attach registers the interface's fast path capabilities with the
// broker. On failure nothing is left registered; the datapath may still
// be referenced for offload support, and Detach remains safe to call.
func (g *Generic) Attach() error {
	caps := fastpath.Capabilities{
		Mode:    fastpath.ModeGeneric,
		Version: fastpath.DriverAPIVersion,
		Hooks:   fastpath.GenericHooks(),
	}

	reg, err := g.registry.Register(g.ifindex, caps, Dispatch{
		Open:           g.openInterface,
		Close:          g.closeInterface,
		RemoveComplete: g.removeInterfaceComplete,
	})
	if err != nil {
		return fmt.Errorf("register interface %d capabilities: %w", g.ifindex, err)
	}

	g.registration = reg
	g.logger.Info("attached generic datapath", "registration", reg.ID())
	return nil
}

// Detach removes the interface from the capability broker and waits for
// all datapath references to drain. It always terminates, including
// when Attach never completed registration, and must be called exactly
// once from the interface's managed teardown path.
func (g *Generic) Detach() {
	if g.registration != nil {
		g.registry.Remove(g.registration)
		<-g.interfaceRemoved.wait()
		g.registry.Deregister(g.registration)
		g.registration = nil
	} else {
		// Registration never completed, so the broker will not signal
		// removal. Set the event ourselves to release any delay-detach
		// worker still waiting out its grace period.
		g.interfaceRemoved.set()
	}

	g.deref()
	<-g.cleanupDone.wait()
	g.logger.Info("detached generic datapath")
}

// ref takes an object reference. The caller must already hold one.
func (g *Generic) ref() {
	if g.refs.Add(1) <= 1 {
		panic("generic: reference taken on drained interface object")
	}
}

func (g *Generic) deref() {
	switch n := g.refs.Add(-1); {
	case n == 0:
		g.cleanupDone.set()
	case n < 0:
		panic("generic: interface object reference count underflow")
	}
}

func (g *Generic) openInterface() error {
	g.logger.Debug("interface opened by capability broker")
	return nil
}

func (g *Generic) closeInterface() {
	g.logger.Debug("interface closed by capability broker")
}

func (g *Generic) removeInterfaceComplete() {
	g.interfaceRemoved.set()
}

func (g *Generic) bypass(dir fastpath.Direction) *bypass {
	if dir == fastpath.RX {
		return &g.rx
	}
	return &g.tx
}

// DatapathState is a consistent snapshot of one direction's
// control-plane state, for introspection.
type DatapathState struct {
	References    int
	Inserted      bool
	Ready         bool
	DetachPending bool
}

// State reports dir's current control-plane state.
func (g *Generic) State(dir fastpath.Direction) DatapathState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	dp := g.bypass(dir)
	return DatapathState{
		References:    dp.refCount,
		Inserted:      dp.inserted,
		Ready:         dp.ready.isSet(),
		DetachPending: dp.detachPending,
	}
}
