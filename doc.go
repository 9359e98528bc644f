// Package fastpath defines the domain types shared by the generic fast
// path lifecycle manager: datapath directions, interface capabilities,
// and the hook points a software fast path exposes to the host packet
// pipeline.
//
// The lifecycle state machine itself lives in the generic package; the
// collaborators it talks to (capability broker, host pipeline adapter,
// tunable storage) live in registry, pipeline, and settings.
package fastpath
