// Package registry is an in-process capability broker: the component
// interfaces register their fast path capabilities with, and the
// component that drives interface removal.
//
// The broker validates the offered driver API version, tracks one
// registration per interface index, and runs removals asynchronously so
// that a detaching interface can block on the RemoveComplete callback
// without holding up the caller that initiated removal.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	fastpath "github.com/frobware/go-fastpath"
	"github.com/frobware/go-fastpath/generic"
)

// SupportedAPIMajor is the driver API major version this broker
// accepts.
const SupportedAPIMajor = 1

var (
	// ErrVersionMismatch is returned when a registration offers a
	// driver API major version the broker does not support.
	ErrVersionMismatch = errors.New("driver API version not supported")

	// ErrDuplicateInterface is returned when an interface index is
	// already registered.
	ErrDuplicateInterface = errors.New("interface already registered")
)

// Registration is a capability registration handle issued by Register.
type Registration struct {
	id       string
	ifindex  int
	caps     fastpath.Capabilities
	dispatch generic.Dispatch
	removed  sync.Once
}

func (r *Registration) ID() string { return r.id }

func (r *Registration) Ifindex() int { return r.ifindex }

func (r *Registration) Capabilities() fastpath.Capabilities { return r.caps }

// Registry tracks interface fast path capability registrations.
type Registry struct {
	logger *slog.Logger

	mu     sync.Mutex
	ifaces map[int]*Registration
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger.With("component", "registry"),
		ifaces: make(map[int]*Registration),
	}
}

// Register validates and records ifindex's capabilities, invokes the
// dispatch Open callback, and returns the registration handle. A failed
// Open rolls the registration back.
func (r *Registry) Register(ifindex int, caps fastpath.Capabilities, disp generic.Dispatch) (generic.Registration, error) {
	if caps.Version.Major != SupportedAPIMajor {
		return nil, fmt.Errorf("interface %d offers driver API %s: %w", ifindex, caps.Version, ErrVersionMismatch)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ifaces[ifindex]; ok {
		return nil, fmt.Errorf("interface %d: %w", ifindex, ErrDuplicateInterface)
	}

	reg := &Registration{
		id:       uuid.NewString(),
		ifindex:  ifindex,
		caps:     caps,
		dispatch: disp,
	}
	r.ifaces[ifindex] = reg

	if disp.Open != nil {
		if err := disp.Open(); err != nil {
			delete(r.ifaces, ifindex)
			return nil, fmt.Errorf("open interface %d: %w", ifindex, err)
		}
	}

	r.logger.Info("registered interface",
		"ifindex", ifindex, "registration", reg.id, "mode", caps.Mode, "version", caps.Version)
	return reg, nil
}

// Remove initiates asynchronous removal of a registration. The dispatch
// Close callback runs first, then RemoveComplete; RemoveComplete fires
// exactly once even if Remove is called again.
func (r *Registry) Remove(h generic.Registration) {
	reg := r.owned(h)
	reg.removed.Do(func() {
		go func() {
			if reg.dispatch.Close != nil {
				reg.dispatch.Close()
			}
			r.logger.Info("removed interface", "ifindex", reg.ifindex, "registration", reg.id)
			if reg.dispatch.RemoveComplete != nil {
				reg.dispatch.RemoveComplete()
			}
		}()
	})
}

// Deregister releases a registration handle. The interface index
// becomes available for registration again.
func (r *Registry) Deregister(h generic.Registration) {
	reg := r.owned(h)

	r.mu.Lock()
	delete(r.ifaces, reg.ifindex)
	r.mu.Unlock()

	r.logger.Debug("deregistered interface", "ifindex", reg.ifindex, "registration", reg.id)
}

// Registered reports whether ifindex currently has a registration.
func (r *Registry) Registered(ifindex int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ifaces[ifindex]
	return ok
}

// owned asserts that a handle was issued by this package. Handles are
// opaque to callers; anything else is a programming error.
func (r *Registry) owned(h generic.Registration) *Registration {
	reg, ok := h.(*Registration)
	if !ok {
		panic(fmt.Sprintf("registry: foreign registration handle %T", h))
	}
	return reg
}
