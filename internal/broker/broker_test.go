package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eunhhu/carf-sub000/internal/errs"
	"github.com/eunhhu/carf-sub000/internal/event"
	"github.com/eunhhu/carf-sub000/internal/wire"
)

// fakePoster captures posted requests and lets the test drive responses
// back through Broker.Ingest, standing in for a real backend connection.
type fakePoster struct {
	mu    sync.Mutex
	posts []wire.RequestEnvelope
	fail  error
}

func (p *fakePoster) PostToScript(_ context.Context, _, _ uint32, env wire.RequestEnvelope) error {
	if p.fail != nil {
		return p.fail
	}
	p.mu.Lock()
	p.posts = append(p.posts, env)
	p.mu.Unlock()
	return nil
}

func (p *fakePoster) lastID() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.posts[len(p.posts)-1].Payload.ID
}

func responseMessage(id uint64, result wire.Result, returns any) json.RawMessage {
	data, _ := json.Marshal(returns)
	payload := wire.ResponsePayload{Type: "carf:response", ID: id, Result: result, Returns: data}
	env := struct {
		Type    string               `json:"type"`
		Payload wire.ResponsePayload `json:"payload"`
	}{Type: "send", Payload: payload}
	raw, _ := json.Marshal(env)
	return raw
}

func eventMessage(name string, data any) json.RawMessage {
	payload := map[string]any{"type": "carf:event", "event": name, "data": data}
	env := map[string]any{"type": "send", "payload": payload}
	raw, _ := json.Marshal(env)
	return raw
}

func TestBroker_RequestResolvesOnResponse(t *testing.T) {
	poster := &fakePoster{}
	b := New(poster, time.Second)

	done := make(chan struct{})
	var returns json.RawMessage
	var reqErr error

	go func() {
		returns, reqErr = b.Request(context.Background(), 1, 2, "memory_read", map[string]any{"address": 4096})
		close(done)
	}()

	require.Eventually(t, func() bool { return poster.lastID() != 0 || len(poster.posts) > 0 }, time.Second, time.Millisecond)
	id := poster.lastID()
	b.Ingest(1, 2, responseMessage(id, wire.ResultOK, map[string]any{"bytes": "AQID"}))

	<-done
	require.NoError(t, reqErr)
	require.Contains(t, string(returns), "bytes")
}

func TestBroker_RequestSurfacesAgentError(t *testing.T) {
	poster := &fakePoster{}
	b := New(poster, time.Second)

	done := make(chan struct{})
	var reqErr error

	go func() {
		_, reqErr = b.Request(context.Background(), 1, 2, "memory_write", nil)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(poster.posts) > 0 }, time.Second, time.Millisecond)
	id := poster.lastID()
	b.Ingest(1, 2, responseMessage(id, wire.ResultError, wire.AgentError{Message: "bad address"}))

	<-done
	require.Error(t, reqErr)
	require.Contains(t, reqErr.Error(), "bad address")
}

func TestBroker_RequestTimesOut(t *testing.T) {
	poster := &fakePoster{}
	b := New(poster, 20*time.Millisecond)

	_, err := b.Request(context.Background(), 1, 2, "memory_read", nil)
	require.ErrorIs(t, err, errs.ErrTimeout)
}

func TestBroker_PostErrorWrapsTransport(t *testing.T) {
	poster := &fakePoster{fail: errors.New("socket closed")}
	b := New(poster, time.Second)

	_, err := b.Request(context.Background(), 1, 2, "memory_read", nil)
	require.ErrorIs(t, err, errs.ErrTransport)
	require.Equal(t, 0, b.PendingCount())
}

func TestBroker_ClearPendingFailsInFlight(t *testing.T) {
	poster := &fakePoster{}
	b := New(poster, time.Second)

	done := make(chan struct{})
	var reqErr error
	go func() {
		_, reqErr = b.Request(context.Background(), 1, 2, "memory_read", nil)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(poster.posts) > 0 }, time.Second, time.Millisecond)
	b.ClearPending("session lost")

	<-done
	require.Error(t, reqErr)
	require.Equal(t, 0, b.PendingCount())
}

func TestBroker_IngestEventFansOutOnBus(t *testing.T) {
	event.Reset()
	defer event.Reset()

	poster := &fakePoster{}
	b := New(poster, time.Second)

	received := make(chan event.AgentEventData, 1)
	unsub := event.Subscribe(event.AgentEvent, func(e event.Event) {
		received <- e.Data.(event.AgentEventData)
	})
	defer unsub()

	b.Ingest(7, 9, eventMessage("hook_hit", map[string]any{"address": "0x1000"}))

	select {
	case data := <-received:
		require.Equal(t, uint32(7), data.SessionID)
		require.Equal(t, uint32(9), data.ScriptID)
		require.Equal(t, "hook_hit", data.Event)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for agent.event")
	}
}

func TestBroker_IngestRawMessageIsDropped(t *testing.T) {
	poster := &fakePoster{}
	b := New(poster, time.Second)

	// Neither a carf:response nor a carf:event: classified as raw, never
	// panics, never resolves anything.
	b.Ingest(1, 2, json.RawMessage(`{"type":"send","payload":{"type":"log","text":"hello"}}`))
	require.Equal(t, 0, b.PendingCount())
}

func TestBroker_CloseRejectsNewRequests(t *testing.T) {
	poster := &fakePoster{}
	b := New(poster, time.Second)
	b.Close()

	_, err := b.Request(context.Background(), 1, 2, "memory_read", nil)
	require.ErrorIs(t, err, errs.ErrTransport)
}
