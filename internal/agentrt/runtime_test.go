package agentrt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eunhhu/carf-sub000/internal/wire"
)

// fakeEmitter collects every emitted raw message and lets tests wait for
// a particular event name to show up.
type fakeEmitter struct {
	mu   sync.Mutex
	raws []json.RawMessage
}

func (e *fakeEmitter) Emit(raw json.RawMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.raws = append(e.raws, raw)
}

func (e *fakeEmitter) snapshot() []json.RawMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]json.RawMessage, len(e.raws))
	copy(out, e.raws)
	return out
}

func (e *fakeEmitter) responses() []wire.ResponsePayload {
	var out []wire.ResponsePayload
	for _, raw := range e.snapshot() {
		c := wire.Classify(raw)
		if c.Kind == wire.KindResponse {
			out = append(out, *c.Response)
		}
	}
	return out
}

func (e *fakeEmitter) eventsNamed(name string) []wire.EventPayload {
	var out []wire.EventPayload
	for _, raw := range e.snapshot() {
		c := wire.Classify(raw)
		if c.Kind == wire.KindEvent && c.Event.Event == name {
			out = append(out, *c.Event)
		}
	}
	return out
}

func TestRuntime_PingRoundTrip(t *testing.T) {
	emitter := &fakeEmitter{}
	rt := New(emitter, NewFixtureMemory(nil), 10)

	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 1, Method: "ping"})

	responses := emitter.responses()
	require.Len(t, responses, 1)
	require.Equal(t, uint64(1), responses[0].ID)
	require.Equal(t, wire.ResultOK, responses[0].Result)
}

func TestRuntime_UnknownMethod(t *testing.T) {
	emitter := &fakeEmitter{}
	rt := New(emitter, NewFixtureMemory(nil), 10)

	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 2, Method: "does_not_exist"})

	responses := emitter.responses()
	require.Len(t, responses, 1)
	require.Equal(t, wire.ResultError, responses[0].Result)
	var agentErr wire.AgentError
	require.NoError(t, json.Unmarshal(responses[0].Returns, &agentErr))
	require.Contains(t, agentErr.Message, "Unknown method: does_not_exist")
}

func TestRuntime_HandlerPanicBecomesErrorResponse(t *testing.T) {
	emitter := &fakeEmitter{}
	rt := New(emitter, NewFixtureMemory(nil), 10)
	rt.Register("boom", func(ctx context.Context, rt *Runtime, params json.RawMessage) (any, error) {
		panic("fixture panic")
	})

	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 3, Method: "boom"})

	responses := emitter.responses()
	require.Len(t, responses, 1)
	require.Equal(t, wire.ResultError, responses[0].Result)
	var agentErr wire.AgentError
	require.NoError(t, json.Unmarshal(responses[0].Returns, &agentErr))
	require.Contains(t, agentErr.Message, "fixture panic")
	require.NotEmpty(t, agentErr.Stack)
}

func TestRuntime_ReadWriteMemory(t *testing.T) {
	emitter := &fakeEmitter{}
	mem := NewFixtureMemory([]Range{{Base: 0x1000, Size: 0x100, Protection: "rw-"}})
	mem.Seed(0x1000, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	rt := New(emitter, mem, 10)

	params, _ := json.Marshal(map[string]any{"address": 0x1000, "size": 4})
	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 4, Method: "read_memory", Params: params})

	responses := emitter.responses()
	require.Len(t, responses, 1)
	require.Equal(t, wire.ResultOK, responses[0].Result)
	var out map[string]string
	require.NoError(t, json.Unmarshal(responses[0].Returns, &out))
	require.Equal(t, "deadbeef", out["bytes"])
}

func TestRuntime_WatchFirstUpdateNotChanged(t *testing.T) {
	emitter := &fakeEmitter{}
	mem := NewFixtureMemory([]Range{{Base: 0x2000, Size: 0x10, Protection: "rw-"}})
	mem.Seed(0x2000, []byte{42, 0, 0, 0})
	rt := New(emitter, mem, 10)

	params, _ := json.Marshal(map[string]any{"address": 0x2000, "valueType": "s32", "intervalMs": 10})
	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 5, Method: "memory_watch_add", Params: params})

	require.Eventually(t, func() bool {
		return len(emitter.eventsNamed("memory_watch_update")) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	events := emitter.eventsNamed("memory_watch_update")
	var first map[string]any
	require.NoError(t, json.Unmarshal(events[0].Raw, &first))
	require.Equal(t, false, first["changed"])
}
