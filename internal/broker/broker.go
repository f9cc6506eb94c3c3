package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eunhhu/carf-sub000/internal/errs"
	"github.com/eunhhu/carf-sub000/internal/event"
	"github.com/eunhhu/carf-sub000/internal/logging"
	"github.com/eunhhu/carf-sub000/internal/wire"
)

var brokerLog = logging.Component("broker")

// Poster posts a carf:request to a loaded script. It is implemented by
// whatever owns the actual connection to the backend (a SimFacade, a real
// backend binding); the broker itself is transport-agnostic.
type Poster interface {
	PostToScript(ctx context.Context, sessionID, scriptID uint32, envelope wire.RequestEnvelope) error
}

// pendingRequest is a carf:request awaiting its carf:response.
type pendingRequest struct {
	result  chan wire.ResponsePayload
	timer   *time.Timer
	scriptID uint32
}

// Broker posts requests to a script and correlates their responses,
// independent of which script or session they target. One Broker serves
// the whole process; requests for different scripts are distinguished by
// request id, never by a second broker instance.
type Broker struct {
	poster Poster
	timeout time.Duration

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*pendingRequest

	closed atomic.Bool
}

// New creates a Broker that posts requests through poster and waits up to
// timeout for each response unless the caller's context deadline is
// tighter.
func New(poster Poster, timeout time.Duration) *Broker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Broker{
		poster:  poster,
		timeout: timeout,
		pending: make(map[uint64]*pendingRequest),
	}
}

// Request posts method(params) to the given script and blocks until the
// matching carf:response arrives, the context is cancelled, or the
// request times out. On success it returns the raw "returns" payload.
func (b *Broker) Request(ctx context.Context, sessionID, scriptID uint32, method string, params any) (json.RawMessage, error) {
	if b.closed.Load() {
		return nil, fmt.Errorf("broker: request %q: %w", method, errs.ErrTransport)
	}

	var rawParams json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("broker: marshal params for %q: %w", method, err)
		}
		rawParams = encoded
	}

	id := atomic.AddUint64(&b.nextID, 1)
	resultCh := make(chan wire.ResponsePayload, 1)
	timer := time.NewTimer(b.timeout)

	b.mu.Lock()
	b.pending[id] = &pendingRequest{result: resultCh, timer: timer, scriptID: scriptID}
	b.mu.Unlock()

	cleanup := func() {
		timer.Stop()
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}

	envelope := wire.RequestEnvelope{
		Type: "carf:request",
		Payload: wire.RequestPayload{
			ID:     id,
			Method: method,
			Params: rawParams,
		},
	}

	if err := b.poster.PostToScript(ctx, sessionID, scriptID, envelope); err != nil {
		cleanup()
		return nil, fmt.Errorf("broker: post %q: %w: %v", method, errs.ErrTransport, err)
	}

	select {
	case resp := <-resultCh:
		cleanup()
		if resp.Result == wire.ResultError {
			var agentErr wire.AgentError
			if len(resp.Returns) > 0 {
				_ = json.Unmarshal(resp.Returns, &agentErr)
			}
			if agentErr.Message == "" {
				agentErr.Message = "agent returned an error result"
			}
			return nil, &agentErr
		}
		return resp.Returns, nil

	case <-timer.C:
		cleanup()
		return nil, fmt.Errorf("broker: %q: %w", method, errs.ErrTimeout)

	case <-ctx.Done():
		cleanup()
		return nil, ctx.Err()
	}
}

// Ingest classifies one raw script message and either resolves a pending
// request, fans the message out as an agent.event, or drops it silently
// as an opaque log line. It is the single entry point through which
// everything the backend delivers on its event stream reaches the broker.
func (b *Broker) Ingest(sessionID, scriptID uint32, raw json.RawMessage) {
	classified := wire.Classify(raw)

	switch classified.Kind {
	case wire.KindResponse:
		b.resolve(classified.Response)

	case wire.KindEvent:
		event.PublishSync(event.Event{
			Type: event.AgentEvent,
			Data: event.AgentEventData{
				SessionID: sessionID,
				ScriptID:  scriptID,
				Event:     classified.Event.Event,
				Data:      classified.Event.Raw,
			},
		})

	case wire.KindRaw:
		brokerLog.Debug().
			Uint32("session_id", sessionID).
			Uint32("script_id", scriptID).
			Msg("dropped unrecognized script message")
	}
}

func (b *Broker) resolve(resp *wire.ResponsePayload) {
	b.mu.Lock()
	pending, ok := b.pending[resp.ID]
	b.mu.Unlock()

	if !ok {
		brokerLog.Debug().Uint64("id", resp.ID).Msg("response for unknown or expired request")
		return
	}

	select {
	case pending.result <- *resp:
	default:
	}
}

// ClearPending fails every in-flight request: Request returns a
// *wire.AgentError whose message is reason. Called when a session is lost so that callers
// blocked in Request don't wait out the full timeout for a script that is
// never coming back.
func (b *Broker) ClearPending(reason string) {
	b.mu.Lock()
	pending := b.pending
	b.pending = make(map[uint64]*pendingRequest)
	b.mu.Unlock()

	for _, p := range pending {
		p.timer.Stop()
		select {
		case p.result <- wire.ResponsePayload{Result: wire.ResultError, Returns: mustMarshalError(reason)}:
		default:
		}
	}
}

// ClearPendingForScript fails only requests targeting scriptID, used when
// one script unloads while others on the same session remain live.
func (b *Broker) ClearPendingForScript(scriptID uint32, reason string) {
	b.mu.Lock()
	var matched []*pendingRequest
	for id, p := range b.pending {
		if p.scriptID == scriptID {
			matched = append(matched, p)
			delete(b.pending, id)
		}
	}
	b.mu.Unlock()

	for _, p := range matched {
		p.timer.Stop()
		select {
		case p.result <- wire.ResponsePayload{Result: wire.ResultError, Returns: mustMarshalError(reason)}:
		default:
		}
	}
}

func mustMarshalError(message string) json.RawMessage {
	data, _ := json.Marshal(wire.AgentError{Message: message})
	return data
}

// Close fails every pending request and prevents new ones from being
// posted. A closed Broker cannot be reused.
func (b *Broker) Close() {
	if b.closed.Swap(true) {
		return
	}
	b.ClearPending("broker closed")
}

// PendingCount reports the number of requests currently awaiting a
// response. Exposed for tests and diagnostics.
func (b *Broker) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
