// Package lifecycle owns the single attachment's state machine: Idle,
// Attaching, Attached, ScriptLoading, ScriptLoaded, and Detaching. It is
// the only writer of Session/Script state, and the only component that
// holds both a backend.Facade and a broker.Broker together, since
// driving one without the other would let them drift out of sync (a
// script load the broker doesn't know about, or a broker clear with no
// corresponding session transition).
//
// At most one attachment exists at a time: Attach rejects a second call
// while anything but Idle is current. A lost session (the backend
// signalling the process died) drives the same Detaching -> Idle path as
// an explicit Detach, clearing the broker's pending requests and
// publishing session.detached so the rest of the control plane can
// invalidate any per-session cached views and route the UI back to the
// attach surface.
package lifecycle
