// Package generic manages the lifecycle of the software ("generic")
// fast path attached on top of a standard network interface.
//
// Reconfiguring the host pipeline to insert or remove fast path
// handlers is expensive: it pauses and restarts the interface's entire
// packet processing pipeline. This package decides when to pay that
// cost. Each direction (RX, TX) is reference counted; handlers are
// installed on the first reference and removed when the count drains to
// zero, but the final teardown is deferred by a configurable grace
// period so that short activate/deactivate bursts do not thrash the
// pipeline.
//
// # Concurrency
//
// One Generic exists per attached interface. Consumer calls
// (Reference, Dereference), host pause/restart notifications and the
// background delay-detach worker all run concurrently against it; every
// mutable field is serialised by a single lock. The delay-detach worker
// is the only component that blocks for a caller-visible duration and
// runs off the caller's goroutine. Detach blocks until the capability
// broker confirms removal and all outstanding references drain.
package generic
