package agentrt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eunhhu/carf-sub000/pkg/types"
)

// watchState is one periodic read-and-diff task. stop closes to cancel
// the ticker goroutine; cleanly removed watches close it exactly once.
type watchState struct {
	watch  types.Watch
	lastRaw []byte
	stop   chan struct{}
}

type watchAddParams struct {
	Address    uint64          `json:"address"`
	ValueType  types.ValueType `json:"valueType"`
	IntervalMs int             `json:"intervalMs"`
}

type watchRemoveParams struct {
	WatchID string `json:"watchId"`
}

type watchUpdateEvent struct {
	WatchID   string `json:"watchId"`
	Value     any    `json:"value"`
	Changed   bool   `json:"changed"`
}

// handleWatchAdd implements memory_watch_add: it takes a synchronous
// first reading of the address so the ack carries a real lastValue, then
// starts a ticker that re-reads it every intervalMs and emits
// memory_watch_update. The first update carries that same initial
// reading with changed:false; each tick after it reports changed against
// the previous reading.
func handleWatchAdd(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	var p watchAddParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.IntervalMs <= 0 {
		return nil, fmt.Errorf("intervalMs must be positive")
	}

	size, err := sizeOf(p.ValueType)
	if err != nil && p.ValueType != types.ValueUTF8 {
		return nil, err
	}
	if p.ValueType == types.ValueUTF8 {
		size = 64 // fixed sampling window for utf8 watches
	}

	data, ok := rt.memory.Read(p.Address, size)
	if !ok {
		return nil, fmt.Errorf("address 0x%x is not readable", p.Address)
	}

	watchID := newID()
	lastValue := decodeForDisplay(p.ValueType, data)
	state := &watchState{
		watch:   types.Watch{WatchID: watchID, Address: p.Address, ValueType: p.ValueType, IntervalMs: p.IntervalMs, LastValue: lastValue},
		lastRaw: data,
		stop:    make(chan struct{}),
	}

	rt.watchMu.Lock()
	rt.watches[watchID] = state
	rt.watchMu.Unlock()

	go rt.runWatch(state, size)

	return map[string]any{
		"watchId":    watchID,
		"lastValue":  lastValue,
		"address":    p.Address,
		"valueType":  p.ValueType,
		"intervalMs": p.IntervalMs,
	}, nil
}

func (rt *Runtime) runWatch(state *watchState, size int) {
	ticker := time.NewTicker(time.Duration(state.watch.IntervalMs) * time.Millisecond)
	defer ticker.Stop()

	rt.emitEvent("memory_watch_update", watchUpdateEvent{
		WatchID: state.watch.WatchID,
		Value:   state.watch.LastValue,
		Changed: false,
	})

	for {
		select {
		case <-state.stop:
			return
		case <-ticker.C:
			data, ok := rt.memory.Read(state.watch.Address, size)
			if !ok {
				continue
			}
			changed := !bytesEqual(data, state.lastRaw)
			state.lastRaw = data
			rt.emitEvent("memory_watch_update", watchUpdateEvent{
				WatchID: state.watch.WatchID,
				Value:   decodeForDisplay(state.watch.ValueType, data),
				Changed: changed,
			})
		}
	}
}

// handleWatchList implements memory_watch_list.
func handleWatchList(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	rt.watchMu.Lock()
	defer rt.watchMu.Unlock()

	watches := make([]types.Watch, 0, len(rt.watches))
	for _, s := range rt.watches {
		watches = append(watches, s.watch)
	}
	return map[string]any{"watches": watches}, nil
}

// handleWatchRemove implements memory_watch_remove: it stops the ticker
// goroutine and forgets the watch. Removing an unknown id is a no-op.
func handleWatchRemove(ctx context.Context, rt *Runtime, raw json.RawMessage) (any, error) {
	var p watchRemoveParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	rt.watchMu.Lock()
	state, ok := rt.watches[p.WatchID]
	if ok {
		delete(rt.watches, p.WatchID)
	}
	rt.watchMu.Unlock()

	if ok {
		close(state.stop)
	}
	return map[string]any{"removed": ok}, nil
}
