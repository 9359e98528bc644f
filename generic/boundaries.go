package generic

import (
	"time"

	fastpath "github.com/frobware/go-fastpath"
)

// DefaultDelayDetachTimeout is the grace period applied to an idle
// direction before its handlers are actually removed, when no
// TimeoutSource is configured or the configured source has no value.
const DefaultDelayDetachTimeout = 5 * time.Minute

// Pipeline is the host packet pipeline the generic datapath is layered
// on. Implementations live outside this package (see the pipeline
// package for the Linux eBPF adapter).
type Pipeline interface {
	// RequestRestart schedules an asynchronous pipeline restart. The
	// host guarantees an eventual Pause/Restart cycle against the
	// datapath, during which SetHandlers is re-driven.
	RequestRestart()

	// InstallHandlers commits which fast path handlers the pipeline
	// exposes. On error the previously committed set must remain in
	// place.
	InstallHandlers(rx, tx bool) error
}

// Registration is an opaque capability registration handle issued by a
// CapabilityRegistry.
type Registration interface {
	ID() string
}

// Dispatch carries the callbacks a registered interface hands to the
// capability broker.
type Dispatch struct {
	// Open is invoked when the broker accepts the registration.
	Open func() error
	// Close is invoked while the broker removes the interface.
	Close func()
	// RemoveComplete fires exactly once when the broker has finished
	// removing the interface.
	RemoveComplete func()
}

// CapabilityRegistry is the broker an interface's fast path
// capabilities are registered with.
type CapabilityRegistry interface {
	// Register records the interface's capabilities. It fails if the
	// offered driver API version is unsupported.
	Register(ifindex int, caps fastpath.Capabilities, disp Dispatch) (Registration, error)

	// Remove initiates asynchronous removal of a registration; the
	// dispatch's RemoveComplete callback fires when removal finishes.
	Remove(Registration)

	// Deregister releases a registration handle after removal.
	Deregister(Registration)
}

// TimeoutSource supplies the delay-detach grace period. It is consulted
// on every worker iteration so configuration changes take effect
// without re-attaching.
type TimeoutSource interface {
	DelayDetachTimeout() time.Duration
}

// StaticTimeout is a TimeoutSource with a fixed value.
type StaticTimeout time.Duration

func (t StaticTimeout) DelayDetachTimeout() time.Duration { return time.Duration(t) }

// WorkerPool schedules background tasks. Go returns an error when the
// task cannot be scheduled; callers fall back to running the work
// inline or degrade.
type WorkerPool interface {
	Go(fn func()) error
}

type goroutinePool struct{}

func (goroutinePool) Go(fn func()) error {
	go fn()
	return nil
}

// TxHooks is the transmit-side collaborator notified around pipeline
// pause and restart (queue quiesce, MTU renegotiation).
type TxHooks interface {
	Pause()
	Restart(mtu uint32)
}

type nopTxHooks struct{}

func (nopTxHooks) Pause()             {}
func (nopTxHooks) Restart(mtu uint32) {}
