package generic_test

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/stretchr/testify/require"

	fastpath "github.com/frobware/go-fastpath"
	"github.com/frobware/go-fastpath/generic"
)

// testLogger returns a logger for tests. By default it discards all output.
// Set FASTPATH_TEST_VERBOSE=1 to enable logging.
func testLogger() *slog.Logger {
	if os.Getenv("FASTPATH_TEST_VERBOSE") != "" {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// installCall records one handler commit against the fake pipeline.
type installCall struct {
	rx, tx bool
}

// restartDriver is the subset of the datapath the pipeline drives
// during a restart cycle.
type restartDriver interface {
	Pause()
	SetHandlers() error
	Restart(mtu uint32)
}

// fakePipeline stands in for the host packet pipeline. Unless manual is
// set, RequestRestart synchronously drives a Pause/SetHandlers/Restart
// cycle against the bound datapath, standing in for the host's eventual
// restart guarantee.
type fakePipeline struct {
	mu sync.Mutex

	filter restartDriver
	manual bool
	mtu    uint32

	restartRequests int
	installs        []installCall
	failInstall     error
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{mtu: 1514}
}

func (p *fakePipeline) bind(f restartDriver) {
	p.mu.Lock()
	p.filter = f
	p.mu.Unlock()
}

func (p *fakePipeline) RequestRestart() {
	p.mu.Lock()
	p.restartRequests++
	manual := p.manual
	f := p.filter
	p.mu.Unlock()

	if !manual && f != nil {
		p.runRestartCycle(f)
	}
}

func (p *fakePipeline) runRestartCycle(f restartDriver) {
	f.Pause()
	_ = f.SetHandlers()
	f.Restart(p.mtu)
}

// restartCycle drives one restart cycle by hand. Used with manual mode
// to observe intermediate states.
func (p *fakePipeline) restartCycle() error {
	p.mu.Lock()
	f := p.filter
	p.mu.Unlock()

	f.Pause()
	err := f.SetHandlers()
	f.Restart(p.mtu)
	return err
}

func (p *fakePipeline) InstallHandlers(rx, tx bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failInstall != nil {
		return p.failInstall
	}
	p.installs = append(p.installs, installCall{rx: rx, tx: tx})
	return nil
}

func (p *fakePipeline) restarts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.restartRequests
}

func (p *fakePipeline) lastInstall() (installCall, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.installs) == 0 {
		return installCall{}, false
	}
	return p.installs[len(p.installs)-1], true
}

// fakeRegistration is the handle the fake registry issues.
type fakeRegistration struct {
	id      string
	ifindex int
}

func (r *fakeRegistration) ID() string { return r.id }

// fakeRegistry is a synchronous capability broker: Remove runs the
// Close and RemoveComplete callbacks inline.
type fakeRegistry struct {
	mu           sync.Mutex
	failRegister error

	nextID       int
	lastCaps     fastpath.Capabilities
	dispatches   map[*fakeRegistration]generic.Dispatch
	removed      []int
	deregistered []int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{dispatches: make(map[*fakeRegistration]generic.Dispatch)}
}

func (r *fakeRegistry) Register(ifindex int, caps fastpath.Capabilities, disp generic.Dispatch) (generic.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failRegister != nil {
		return nil, r.failRegister
	}
	r.lastCaps = caps

	if disp.Open != nil {
		if err := disp.Open(); err != nil {
			return nil, err
		}
	}

	r.nextID++
	reg := &fakeRegistration{id: fmt.Sprintf("reg-%d", r.nextID), ifindex: ifindex}
	r.dispatches[reg] = disp
	return reg, nil
}

func (r *fakeRegistry) Remove(h generic.Registration) {
	reg := h.(*fakeRegistration)

	r.mu.Lock()
	disp := r.dispatches[reg]
	r.removed = append(r.removed, reg.ifindex)
	r.mu.Unlock()

	if disp.Close != nil {
		disp.Close()
	}
	if disp.RemoveComplete != nil {
		disp.RemoveComplete()
	}
}

func (r *fakeRegistry) Deregister(h generic.Registration) {
	reg := h.(*fakeRegistration)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.dispatches, reg)
	r.deregistered = append(r.deregistered, reg.ifindex)
}

func (r *fakeRegistry) registeredCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dispatches)
}

// fakeTxHooks counts pause and restart notifications.
type fakeTxHooks struct {
	mu       sync.Mutex
	pauses   int
	restarts []uint32
}

func (h *fakeTxHooks) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pauses++
}

func (h *fakeTxHooks) Restart(mtu uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.restarts = append(h.restarts, mtu)
}

func (h *fakeTxHooks) pauseCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pauses
}

// failingWorkers refuses to schedule anything.
type failingWorkers struct {
	err error
}

func (w failingWorkers) Go(fn func()) error { return w.err }

type testFixture struct {
	t     *testing.T
	clk   *fakeclock.FakeClock
	pipe  *fakePipeline
	reg   *fakeRegistry
	hooks *fakeTxHooks
	g     *generic.Generic
}

func newTestFixture(t *testing.T, opts ...func(*generic.Config)) *testFixture {
	t.Helper()

	clk := fakeclock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	pipe := newFakePipeline()
	reg := newFakeRegistry()
	hooks := &fakeTxHooks{}

	cfg := generic.Config{
		IfIndex:  7,
		Pipeline: pipe,
		Registry: reg,
		Timeouts: generic.StaticTimeout(5 * time.Second),
		Clock:    clk,
		TxHooks:  hooks,
		Logger:   testLogger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	g, err := generic.New(cfg)
	require.NoError(t, err)
	pipe.bind(g)

	return &testFixture{
		t:     t,
		clk:   clk,
		pipe:  pipe,
		reg:   reg,
		hooks: hooks,
		g:     g,
	}
}

func (f *testFixture) attach() {
	f.t.Helper()
	require.NoError(f.t, f.g.Attach())
}

// waitForDetachWorker blocks until the delay-detach worker is parked on
// the fake clock. A fired or stopped timer deregisters its watcher, so
// this also synchronises with re-parks after an Increment.
func (f *testFixture) waitForDetachWorker() {
	f.t.Helper()
	require.Eventually(f.t, func() bool { return f.clk.WatcherCount() > 0 },
		time.Second, time.Millisecond, "delay-detach worker never parked on the clock")
}

// eventuallyState polls until dir's state matches want.
func (f *testFixture) eventuallyState(dir fastpath.Direction, want generic.DatapathState) {
	f.t.Helper()
	require.Eventually(f.t, func() bool { return f.g.State(dir) == want },
		time.Second, time.Millisecond, "direction %s never reached %+v (last %+v)",
		dir, want, f.g.State(dir))
}
