package generic

import "fmt"

// Pause quiesces both directions ahead of a host pipeline pause. No
// data-plane traffic may flow until the pipeline restarts; the host
// does not consider the pipeline paused until this returns.
func (g *Generic) Pause() {
	g.logger.Debug("datapath pausing")

	g.mu.Lock()
	g.tx.ready.clear()
	g.rx.ready.clear()
	g.txHooks.Pause()
	g.mu.Unlock()

	g.logger.Debug("datapath paused")
}

// Restart completes a host pipeline restart: directions whose handlers
// are committed become ready for data-plane use again. mtu is the new
// link MTU including the Ethernet header.
func (g *Generic) Restart(mtu uint32) {
	g.logger.Debug("datapath restarting", "mtu", mtu)

	g.mu.Lock()
	if g.tx.inserted {
		g.tx.ready.raise()
	}
	if g.rx.inserted {
		g.rx.ready.raise()
	}
	g.txHooks.Restart(mtu)
	g.mu.Unlock()

	g.logger.Debug("datapath restarted")
}

// SetHandlers commits the handler set implied by the current reference
// counts to the host pipeline: a direction's handlers are exposed if
// and only if it has at least one consumer. The inserted flags are
// updated only when the commit succeeds; on failure the previous state
// stands and the error is surfaced to the restart requester.
func (g *Generic) SetHandlers() error {
	g.mu.RLock()
	rxInserted := g.rx.refCount > 0
	txInserted := g.tx.refCount > 0
	g.mu.RUnlock()

	err := g.pipeline.InstallHandlers(rxInserted, txInserted)
	g.logger.Debug("set datapath handlers", "rx", rxInserted, "tx", txInserted, "error", err)
	if err != nil {
		return fmt.Errorf("install handlers rx=%t tx=%t: %w", rxInserted, txInserted, err)
	}

	g.mu.Lock()
	g.rx.inserted = rxInserted
	g.tx.inserted = txInserted
	g.mu.Unlock()
	return nil
}
