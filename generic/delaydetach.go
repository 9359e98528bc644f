package generic

import "time"

// delayDereference is the delay-detach worker. It performs the
// decrement deferred by Dereference after the grace period has genuinely
// elapsed, or as soon as the interface is being removed. dp.lastDereference
// may move while the worker sleeps (another consumer cycled the
// direction), so the elapsed time is re-checked under the lock each
// iteration rather than trusting the timer alone.
//
// At most one worker runs per direction, enforced by dp.detachPending.
func (g *Generic) delayDereference(dp *bypass) {
	var sinceLastDeref time.Duration

	for {
		timeout := g.timeouts.DelayDetachTimeout()
		remaining := timeout - sinceLastDeref
		if remaining < 0 {
			remaining = 0
		}

		removed := g.waitInterfaceRemoved(remaining)

		g.mu.Lock()
		now := g.clk.Now()
		if now.Before(dp.lastDereference) {
			panic("generic: dereference timestamp is in the future")
		}
		sinceLastDeref = now.Sub(dp.lastDereference)

		if removed || sinceLastDeref >= remaining {
			break // lock held
		}
		g.mu.Unlock()
	}

	dp.detachPending = false
	if dp.refCount <= 0 {
		panic("generic: datapath reference count underflow in delay-detach worker")
	}
	dp.refCount--

	needRestart := false
	if dp.refCount == 0 {
		g.logger.Debug("requesting datapath detach", "direction", dp.direction)
		dp.ready.clear()
		needRestart = true
	}
	g.mu.Unlock()

	if needRestart {
		g.requestRestart()
		g.deref()
	}
}

// waitInterfaceRemoved waits up to d for interface removal and reports
// whether the removal signal fired. A non-positive d does not wait at
// all, so a worker whose grace period has already elapsed finalises on
// its first iteration.
func (g *Generic) waitInterfaceRemoved(d time.Duration) bool {
	if d <= 0 {
		return g.interfaceRemoved.isSet()
	}

	timer := g.clk.NewTimer(d)
	defer timer.Stop()

	select {
	case <-g.interfaceRemoved.wait():
		return true
	case <-timer.C():
		return false
	}
}
