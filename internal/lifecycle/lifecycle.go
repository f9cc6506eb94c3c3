package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/eunhhu/carf-sub000/internal/backend"
	"github.com/eunhhu/carf-sub000/internal/broker"
	"github.com/eunhhu/carf-sub000/internal/errs"
	"github.com/eunhhu/carf-sub000/internal/event"
	"github.com/eunhhu/carf-sub000/internal/logging"
	"github.com/eunhhu/carf-sub000/pkg/types"
)

var lifecycleLog = logging.Component("lifecycle")

// State is the attachment's current phase.
type State string

const (
	Idle          State = "idle"
	Attaching     State = "attaching"
	Attached      State = "attached"
	ScriptLoading State = "script_loading"
	ScriptLoaded  State = "script_loaded"
	Detaching     State = "detaching"
)

// Owner drives the backend and the broker together as one attachment.
// Exactly one Owner exists per process.
type Owner struct {
	facade backend.Facade
	broker *broker.Broker

	mu      sync.Mutex
	state   State
	session *types.Session
	script  *types.Script

	cancelPump context.CancelFunc
}

// New creates an Owner in the Idle state, driving facade and posting
// requests through broker.
func New(facade backend.Facade, b *broker.Broker) *Owner {
	return &Owner{facade: facade, broker: b, state: Idle}
}

// State reports the current phase.
func (o *Owner) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Session returns the current session, or nil if none is attached.
func (o *Owner) Session() *types.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// Script returns the current script, or nil if none is loaded.
func (o *Owner) Script() *types.Script {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.script
}

// Attach transitions Idle -> Attaching -> Attached -> ScriptLoading ->
// ScriptLoaded, rejecting the call outright if an attachment is already
// in progress or established (the single-attachment invariant). The
// default script is loaded automatically; a session with no usable
// script still reaches Attached, with ScriptLoading reported as failed
// via the returned error while the session itself remains live.
func (o *Owner) Attach(ctx context.Context, deviceID string, pid uint32) (*types.Session, error) {
	o.mu.Lock()
	if o.state != Idle {
		o.mu.Unlock()
		return nil, fmt.Errorf("attach rejected: attachment already in state %q: %w", o.state, errs.ErrPrecondition)
	}
	o.state = Attaching
	o.mu.Unlock()

	session, err := o.facade.Attach(ctx, deviceID, pid)
	if err != nil {
		o.mu.Lock()
		o.state = Idle
		o.mu.Unlock()
		return nil, fmt.Errorf("attach: %w", err)
	}

	o.mu.Lock()
	o.state = Attached
	o.session = session
	o.mu.Unlock()

	event.PublishSync(event.Event{Type: event.SessionAttached, Data: event.SessionAttachedData{Session: session}})

	pumpCtx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	o.cancelPump = cancel
	o.mu.Unlock()
	go o.pumpEvents(pumpCtx)

	if err := o.loadScript(ctx); err != nil {
		lifecycleLog.Warn().Err(err).Uint32("session_id", session.SessionID).Msg("default script did not load")
		return session, fmt.Errorf("attach succeeded but script load failed: %w", err)
	}

	return session, nil
}

func (o *Owner) loadScript(ctx context.Context) error {
	o.mu.Lock()
	o.state = ScriptLoading
	session := o.session
	o.mu.Unlock()

	if session == nil {
		return fmt.Errorf("no active session")
	}

	script, err := o.facade.LoadDefaultScript(ctx, session.SessionID)
	if err != nil {
		o.mu.Lock()
		o.state = Attached
		o.mu.Unlock()
		return err
	}

	o.mu.Lock()
	o.state = ScriptLoaded
	o.script = script
	o.mu.Unlock()

	event.PublishSync(event.Event{Type: event.ScriptLoaded, Data: event.ScriptLoadedData{Script: script}})
	return nil
}

// pumpEvents forwards everything the backend delivers on its single
// event stream into the broker, until Detach cancels it. Only the
// lifecycle owner ever subscribes to this stream.
func (o *Owner) pumpEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-o.facade.Events():
			if !ok {
				o.handleSessionLost("backend event stream closed")
				return
			}
			o.broker.Ingest(msg.SessionID, msg.ScriptID, msg.Message)
		}
	}
}

// handleSessionLost drives the fault path: Detaching -> Idle, clearing
// the broker's pending requests and publishing session.detached so
// per-session cached views are invalidated and the UI routes back to the
// attach surface.
func (o *Owner) handleSessionLost(reason string) {
	o.mu.Lock()
	if o.state == Idle {
		o.mu.Unlock()
		return
	}
	sessionID := uint32(0)
	if o.session != nil {
		sessionID = o.session.SessionID
	}
	o.state = Detaching
	o.mu.Unlock()

	o.broker.ClearPending(reason)

	o.mu.Lock()
	o.session = nil
	o.script = nil
	o.state = Idle
	cancel := o.cancelPump
	o.cancelPump = nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	event.PublishSync(event.Event{Type: event.SessionDetached, Data: event.SessionDetachedData{SessionID: sessionID, Reason: reason}})
}

// Detach transitions to Idle unconditionally. It is idempotent: calling
// Detach while already Idle is a no-op, not an error.
func (o *Owner) Detach(ctx context.Context) error {
	o.mu.Lock()
	if o.state == Idle {
		o.mu.Unlock()
		return nil
	}
	session := o.session
	o.state = Detaching
	o.mu.Unlock()

	o.broker.ClearPending("session detached")

	var detachErr error
	if session != nil {
		detachErr = o.facade.Detach(ctx, session.SessionID)
	}

	o.mu.Lock()
	sessionID := uint32(0)
	if o.session != nil {
		sessionID = o.session.SessionID
	}
	o.session = nil
	o.script = nil
	o.state = Idle
	cancel := o.cancelPump
	o.cancelPump = nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	event.PublishSync(event.Event{Type: event.SessionDetached, Data: event.SessionDetachedData{SessionID: sessionID, Reason: "user requested"}})

	return detachErr
}
