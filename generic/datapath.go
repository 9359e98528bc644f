package generic

import (
	"context"

	fastpath "github.com/frobware/go-fastpath"
)

// Reference marks dir's fast path as wanted by one more consumer. On
// the 0 to 1 transition the pipeline handlers must be (re)installed, so
// a restart is requested from the host; any other transition is free.
func (g *Generic) Reference(dir fastpath.Direction) {
	g.mu.Lock()
	needRestart := g.referenceLocked(g.bypass(dir))
	g.mu.Unlock()

	if needRestart {
		g.requestRestart()
	}
}

func (g *Generic) referenceLocked(dp *bypass) (needRestart bool) {
	if dp.refCount < 0 {
		panic("generic: datapath reference count negative")
	}
	if dp.refCount == 0 {
		// The interface object must outlive the active direction.
		g.ref()
		needRestart = true
	}
	dp.refCount++
	return needRestart
}

// Dereference drops one consumer of dir's fast path. The last
// dereference does not detach immediately: the decrement is handed to a
// delay-detach worker, which waits out the configured grace period and
// cancels itself if the direction is re-referenced in the meantime. If
// the worker cannot be scheduled, the direction is detached on the
// spot. Either way the call itself never blocks and never fails.
func (g *Generic) Dereference(dir fastpath.Direction) {
	g.mu.Lock()
	needRestart := g.dereferenceLocked(g.bypass(dir))
	g.mu.Unlock()

	if needRestart {
		g.requestRestart()
		g.deref()
	}
}

func (g *Generic) dereferenceLocked(dp *bypass) (needRestart bool) {
	dp.lastDereference = g.clk.Now()

	if dp.refCount == 1 {
		if dp.detachPending {
			panic("generic: dereference while a detach is already pending")
		}
		if err := g.workers.Go(func() { g.delayDereference(dp) }); err == nil {
			// The worker owns the decrement now.
			dp.detachPending = true
			return false
		} else {
			g.logger.Warn("delay-detach worker unavailable, detaching immediately",
				"direction", dp.direction, "error", err)
			dp.ready.clear()
			needRestart = true
		}
	}

	if dp.refCount <= 0 {
		panic("generic: datapath reference count underflow")
	}
	dp.refCount--
	return needRestart
}

func (g *Generic) requestRestart() {
	g.logger.Debug("requesting datapath restart")
	g.pipeline.RequestRestart()
}

// WaitReady blocks until dir's fast path is safe for data-plane use or
// ctx is done. Readiness is cleared while the pipeline is paused or the
// direction's handlers are not installed.
func (g *Generic) WaitReady(ctx context.Context, dir fastpath.Direction) error {
	dp := g.bypass(dir)
	for {
		ch, ready := dp.ready.state()
		if ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}
