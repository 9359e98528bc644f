// Package pipeline adapts the host packet pipeline on Linux for the
// generic fast path: XDP in generic (skb) mode on receive and TCX
// egress on transmit.
//
// The generic lifecycle manager decides *whether* a direction's
// handlers should be exposed; this package owns *how* they are
// committed. Handler changes only take effect through a restart cycle:
// the pipeline pauses the bound filter, re-drives its handler commit,
// and restarts it with the current link MTU, mirroring how a hardware
// pipeline renegotiates after a configuration change.
package pipeline

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"github.com/vishvananda/netlink"
)

// ethernetHeaderLen is added to the link MTU when reporting the restart
// MTU, matching what the datapath sees at L2.
const ethernetHeaderLen = 14

const defaultMTU = 1500

// Program names the fast path object file must provide.
const (
	ProgramRx = "fastpath_rx"
	ProgramTx = "fastpath_tx"
)

// Filter receives pause/restart callbacks from the pipeline. It is
// implemented by the generic datapath bound via Bind.
type Filter interface {
	// Pause is invoked before the pipeline quiesces; it must complete
	// before the pipeline is considered paused.
	Pause()
	// SetHandlers re-commits the handler set while the pipeline is
	// paused.
	SetHandlers() error
	// Restart is invoked once the pipeline runs again. mtu includes
	// the Ethernet header.
	Restart(mtu uint32)
}

// Config configures the pipeline adapter for one interface.
type Config struct {
	// Ifindex is the host interface index to attach to.
	Ifindex int

	// ObjectPath is the compiled eBPF object providing the fast path
	// programs: an XDP program named ProgramRx and a TC egress program
	// named ProgramTx.
	ObjectPath string

	Logger *slog.Logger
}

// XDP drives the software fast path handlers for one interface.
type XDP struct {
	ifindex int
	logger  *slog.Logger
	coll    *ebpf.Collection
	rxProg  *ebpf.Program
	txProg  *ebpf.Program

	mu             sync.Mutex
	filter         Filter
	rxLink, txLink link.Link
	restartQueued  bool

	// cycleMu serializes restart cycles: the filter must observe
	// strictly alternating Pause/Restart pairs, so a cycle spawned
	// while another is mid-flight waits for it to finish.
	cycleMu sync.Mutex
}

// New loads the fast path programs from cfg.ObjectPath. Nothing is
// attached until InstallHandlers asks for it.
func New(cfg Config) (*XDP, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "pipeline", "ifindex", cfg.Ifindex)

	coll, err := ebpf.LoadCollection(cfg.ObjectPath)
	if err != nil {
		return nil, fmt.Errorf("load fast path object %s: %w", cfg.ObjectPath, err)
	}

	rxProg, ok := coll.Programs[ProgramRx]
	if !ok {
		coll.Close()
		return nil, fmt.Errorf("object %s has no %s program", cfg.ObjectPath, ProgramRx)
	}
	txProg, ok := coll.Programs[ProgramTx]
	if !ok {
		coll.Close()
		return nil, fmt.Errorf("object %s has no %s program", cfg.ObjectPath, ProgramTx)
	}

	return &XDP{
		ifindex: cfg.Ifindex,
		logger:  logger,
		coll:    coll,
		rxProg:  rxProg,
		txProg:  txProg,
	}, nil
}

// Bind attaches the filter that receives pause/restart callbacks. It
// must be called before the first restart request.
func (p *XDP) Bind(f Filter) {
	p.mu.Lock()
	p.filter = f
	p.mu.Unlock()
}

// InstallHandlers commits the requested handler exposure: attach links
// that should exist, detach links that should not. Attaches run first;
// on any failure links attached during this call are rolled back, so an
// error leaves the previously committed set in place. (A failed detach
// cannot be restored, but the failing link itself stays installed,
// which is what the caller's state continues to claim.)
func (p *XDP) InstallHandlers(rx, tx bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var rxNew, txNew bool

	undo := func() {
		if rxNew {
			p.rxLink.Close()
			p.rxLink = nil
		}
		if txNew {
			p.txLink.Close()
			p.txLink = nil
		}
	}

	if rx && p.rxLink == nil {
		l, err := link.AttachXDP(link.XDPOptions{
			Program:   p.rxProg,
			Interface: p.ifindex,
			Flags:     link.XDPGenericMode,
		})
		if err != nil {
			return fmt.Errorf("attach rx handler: %w", err)
		}
		p.rxLink, rxNew = l, true
	}
	if tx && p.txLink == nil {
		l, err := link.AttachTCX(link.TCXOptions{
			Program:   p.txProg,
			Interface: p.ifindex,
			Attach:    ebpf.AttachTCXEgress,
		})
		if err != nil {
			undo()
			return fmt.Errorf("attach tx handler: %w", err)
		}
		p.txLink, txNew = l, true
	}

	if !rx && p.rxLink != nil {
		if err := p.rxLink.Close(); err != nil {
			undo()
			return fmt.Errorf("detach rx handler: %w", err)
		}
		p.rxLink = nil
	}
	if !tx && p.txLink != nil {
		if err := p.txLink.Close(); err != nil {
			undo()
			return fmt.Errorf("detach tx handler: %w", err)
		}
		p.txLink = nil
	}

	p.logger.Debug("installed handlers", "rx", rx, "tx", tx)
	return nil
}

// RequestRestart schedules an asynchronous restart cycle. Requests that
// arrive before a pending cycle snapshots its commit are coalesced into
// it; later requests start a fresh cycle that runs only after the
// current one has restarted the filter.
func (p *XDP) RequestRestart() {
	p.mu.Lock()
	if p.restartQueued {
		p.mu.Unlock()
		return
	}
	f := p.filter
	if f == nil {
		p.mu.Unlock()
		p.logger.Error("restart requested before a filter was bound")
		return
	}
	p.restartQueued = true
	p.mu.Unlock()

	p.logger.Debug("restart requested")
	go p.restart(f)
}

func (p *XDP) restart(f Filter) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	f.Pause()

	// Requests arriving from here on need a fresh cycle: the counts
	// they reflect may change after the commit below snapshots them.
	p.mu.Lock()
	p.restartQueued = false
	p.mu.Unlock()

	if err := f.SetHandlers(); err != nil {
		// The filter keeps its previous handler state; nothing to do
		// here beyond surfacing the failure.
		p.logger.Error("handler commit failed during restart", "error", err)
	}

	f.Restart(p.mtu())
}

// mtu reports the interface MTU plus the Ethernet header. Falls back to
// the conventional default when the link cannot be read.
func (p *XDP) mtu() uint32 {
	lk, err := netlink.LinkByIndex(p.ifindex)
	if err != nil {
		p.logger.Warn("query link MTU", "error", err)
		return defaultMTU + ethernetHeaderLen
	}
	return uint32(lk.Attrs().MTU + ethernetHeaderLen)
}

// Close detaches any installed handlers and releases the eBPF
// collection.
func (p *XDP) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for _, l := range []link.Link{p.rxLink, p.txLink} {
		if l == nil {
			continue
		}
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.rxLink, p.txLink = nil, nil
	p.coll.Close()
	return firstErr
}
