// Package agentrt implements the in-agent side of the control protocol:
// the method dispatcher, the asynchronous pattern-scan engine, the
// progressive value-scan engine, and the polling watch engine. A single
// Runtime hosts all four, matching the way the agent side of the wire
// protocol is one event loop, not four.
//
// Runtime is transport-agnostic: it is driven by whatever owns the actual
// duplex channel to the host (in this repository, backend.SimFacade) and
// emits carf:response/carf:event messages through the Emitter it was
// constructed with. This keeps the dispatcher and engines identical
// whether they are exercised by unit tests or by a simulated backend.
package agentrt
