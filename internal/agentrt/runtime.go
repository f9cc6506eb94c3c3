package agentrt

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/eunhhu/carf-sub000/internal/logging"
	"github.com/eunhhu/carf-sub000/internal/wire"
)

var agentrtLog = logging.Component("agentrt")

// Emitter sends one "send" script message upward, carrying either a
// carf:response or a carf:event payload. It is the only way a Runtime
// talks to the host.
type Emitter interface {
	Emit(raw json.RawMessage)
}

// HandlerFunc is an agent method handler. Returning an error produces a
// carf:response with result "error"; the error's message (and, for an
// *AgentError, its stack) is sent verbatim.
type HandlerFunc func(ctx context.Context, rt *Runtime, params json.RawMessage) (any, error)

// Runtime is the agent-side method dispatcher plus the scan, value-scan,
// and watch engines, all sharing one Memory and one Emitter.
type Runtime struct {
	emitter Emitter
	memory  Memory
	cadence int // ranges scanned between memory_scan_progress events

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	hooks    map[string]uint64 // hookId -> address, guarded by mu

	scanMu     sync.Mutex
	activeScan *scanState

	valueMu sync.Mutex
	values  map[string]*valueScanSession

	watchMu sync.Mutex
	watches map[string]*watchState
}

// New creates a Runtime backed by memory and wired to emitter, with the
// built-in method catalogue already registered. cadence is the number of
// ranges scanned between progress events (0 defaults to 10, the fixed
// cadence the async scanner uses).
func New(emitter Emitter, memory Memory, cadence int) *Runtime {
	if cadence <= 0 {
		cadence = 10
	}
	rt := &Runtime{
		emitter:  emitter,
		memory:   memory,
		cadence:  cadence,
		handlers: make(map[string]HandlerFunc),
		hooks:    make(map[string]uint64),
		values:   make(map[string]*valueScanSession),
		watches:  make(map[string]*watchState),
	}
	rt.registerBuiltins()
	return rt
}

// Register adds or replaces a method handler.
func (rt *Runtime) Register(method string, fn HandlerFunc) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.handlers[method] = fn
}

func (rt *Runtime) lookup(method string) (HandlerFunc, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	fn, ok := rt.handlers[method]
	return fn, ok
}

// HandleRequest dispatches one carf:request. It never blocks the caller:
// the handler runs on the calling goroutine for synchronous methods and
// is expected to spawn its own goroutine for anything long-running (the
// scan/watch engines do this themselves) so a slow scan never stalls
// dispatch of the next request.
func (rt *Runtime) HandleRequest(ctx context.Context, req wire.RequestPayload) {
	fn, ok := rt.lookup(req.Method)
	if !ok {
		rt.respondError(req.ID, fmt.Sprintf("Unknown method: %s", req.Method), "")
		return
	}

	result, err := rt.invoke(ctx, fn, req.Params)
	if err != nil {
		stack := ""
		if ae, ok := err.(*wire.AgentError); ok {
			stack = ae.Stack
		}
		rt.respondError(req.ID, err.Error(), stack)
		return
	}
	rt.respondOK(req.ID, result)
}

// invoke calls the handler and recovers a panic into an *AgentError
// carrying a stack trace, so a handler bug surfaces as an error response
// instead of killing the dispatch goroutine.
func (rt *Runtime) invoke(ctx context.Context, fn HandlerFunc, params json.RawMessage) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &wire.AgentError{Message: fmt.Sprintf("panic: %v", r), Stack: string(debug.Stack())}
		}
	}()
	return fn(ctx, rt, params)
}

func (rt *Runtime) respondOK(id uint64, result any) {
	returns, err := json.Marshal(result)
	if err != nil {
		rt.respondError(id, fmt.Sprintf("failed to marshal result: %v", err), "")
		return
	}
	rt.respond(wire.ResponsePayload{Type: "carf:response", ID: id, Result: wire.ResultOK, Returns: returns})
}

func (rt *Runtime) respondError(id uint64, message, stack string) {
	returns, _ := json.Marshal(wire.AgentError{Message: message, Stack: stack})
	rt.respond(wire.ResponsePayload{Type: "carf:response", ID: id, Result: wire.ResultError, Returns: returns})
}

func (rt *Runtime) respond(payload wire.ResponsePayload) {
	rt.sendEnvelope("send", payload)
}

// emitEvent sends a carf:event upward with the given event name and data.
func (rt *Runtime) emitEvent(name string, data any) {
	encoded, err := json.Marshal(data)
	if err != nil {
		agentrtLog.Debug().Err(err).Str("event", name).Msg("failed to marshal event data")
		return
	}
	rt.sendEnvelope("send", eventEnvelopeBody{Type: "carf:event", Event: name, rawData: encoded})
}

// eventEnvelopeBody flattens the event's data fields into the payload
// object, matching the wire shape {type, event, ...payload} rather than
// nesting the data under a "data" key.
type eventEnvelopeBody struct {
	Type    string
	Event   string
	rawData json.RawMessage
}

func (e eventEnvelopeBody) MarshalJSON() ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(e.rawData, &fields); err != nil {
		fields = nil
	}
	merged := map[string]json.RawMessage{}
	for k, v := range fields {
		merged[k] = v
	}
	typeJSON, _ := json.Marshal(e.Type)
	eventJSON, _ := json.Marshal(e.Event)
	merged["type"] = typeJSON
	merged["event"] = eventJSON
	return json.Marshal(merged)
}

func (rt *Runtime) sendEnvelope(outerType string, payload any) {
	env := struct {
		Type    string `json:"type"`
		Payload any    `json:"payload"`
	}{Type: outerType, Payload: payload}

	raw, err := json.Marshal(env)
	if err != nil {
		agentrtLog.Error().Err(err).Msg("failed to marshal outgoing envelope")
		return
	}
	rt.emitter.Emit(raw)
}
