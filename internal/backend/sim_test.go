package backend

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eunhhu/carf-sub000/internal/broker"
)

// pumpEvents forwards everything SimFacade emits into the broker until
// ctx is cancelled, standing in for the subscription a real lifecycle
// owner keeps on the backend's single event stream.
func pumpEvents(ctx context.Context, sim *SimFacade, b *broker.Broker) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sim.Events():
			b.Ingest(msg.SessionID, msg.ScriptID, msg.Message)
		}
	}
}

func TestSimFacade_PingRoundTripThroughBroker(t *testing.T) {
	sim := NewSimFacade(nil, 0)
	b := broker.New(Poster{Facade: sim}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pumpEvents(ctx, sim, b)

	session, err := sim.Attach(ctx, "sim-device", 4242)
	require.NoError(t, err)

	script, err := sim.LoadDefaultScript(ctx, session.SessionID)
	require.NoError(t, err)

	returns, err := b.Request(ctx, session.SessionID, script.ScriptID, "ping", nil)
	require.NoError(t, err)
	require.Contains(t, string(returns), "pong")
}

func TestSimFacade_AttachRetriesTransientFailures(t *testing.T) {
	sim := NewSimFacade(nil, 3)

	ctx := context.Background()
	session, err := sim.Attach(ctx, "sim-device", 1)
	require.NoError(t, err)
	require.Equal(t, "sim-device", session.DeviceID)
}

func TestSimFacade_ValueScanThroughBroker(t *testing.T) {
	sim := NewSimFacade(nil, 0)
	b := broker.New(Poster{Facade: sim}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pumpEvents(ctx, sim, b)

	session, err := sim.Attach(ctx, "sim-device", 4242)
	require.NoError(t, err)
	script, err := sim.LoadDefaultScript(ctx, session.SessionID)
	require.NoError(t, err)

	mem := sim.Memory()
	require.NotNil(t, mem)
	addrA, addrB := uint64(0x100000), uint64(0x100010)
	mem.Seed(addrA, []byte{100, 0, 0, 0})
	mem.Seed(addrB, []byte{100, 0, 0, 0})

	startReturns, err := b.Request(ctx, session.SessionID, script.ScriptID, "memory_value_scan_start",
		map[string]any{"valueType": "s32", "value": 100})
	require.NoError(t, err)
	var start map[string]any
	require.NoError(t, json.Unmarshal(startReturns, &start))
	scanID, _ := start["scanId"].(string)
	require.NotEmpty(t, scanID)

	returns, err := b.Request(ctx, session.SessionID, script.ScriptID, "memory_value_scan_get",
		map[string]any{"scanId": scanID})
	require.NoError(t, err)
	require.Contains(t, string(returns), "matches")
}
