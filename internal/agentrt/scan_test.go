package agentrt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eunhhu/carf-sub000/internal/wire"
)

func TestScan_FindsPatternAcrossRanges(t *testing.T) {
	emitter := &fakeEmitter{}
	mem := NewFixtureMemory([]Range{
		{Base: 0x1000, Size: 0x20, Protection: "rw-"},
		{Base: 0x2000, Size: 0x20, Protection: "rw-"},
	})
	mem.Seed(0x1008, []byte{0xCA, 0xFE, 0xBA, 0xBE})
	mem.Seed(0x2010, []byte{0xCA, 0xFE, 0xBA, 0xBE})
	rt := New(emitter, mem, 10)

	params, _ := json.Marshal(map[string]any{"pattern": "CA FE BA BE"})
	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 1, Method: "memory_scan_async", Params: params})
	start := latestResult(t, emitter, 1)
	require.NotEmpty(t, start["scanId"])

	require.Eventually(t, func() bool {
		return len(emitter.eventsNamed("memory_scan_complete")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	matches := emitter.eventsNamed("memory_scan_match")
	require.Len(t, matches, 2)

	complete := emitter.eventsNamed("memory_scan_complete")[0]
	var body map[string]any
	require.NoError(t, json.Unmarshal(complete.Raw, &body))
	require.Equal(t, false, body["aborted"])
}

func TestScan_RejectsSecondConcurrentScan(t *testing.T) {
	emitter := &fakeEmitter{}
	ranges := make([]Range, 200)
	for i := range ranges {
		ranges[i] = Range{Base: uint64(0x10000 * (i + 1)), Size: 0x1000, Protection: "rw-"}
	}
	mem := NewFixtureMemory(ranges)
	rt := New(emitter, mem, 10)

	params, _ := json.Marshal(map[string]any{"pattern": "00 00"})
	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 1, Method: "memory_scan_async", Params: params})

	params2, _ := json.Marshal(map[string]any{"pattern": "00 00"})
	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 2, Method: "memory_scan_async", Params: params2})

	responses := emitter.responses()
	require.Len(t, responses, 2)
	require.Equal(t, wire.ResultError, responses[1].Result)
}

func TestScan_ProtectionFilterExcludesOtherRanges(t *testing.T) {
	emitter := &fakeEmitter{}
	mem := NewFixtureMemory([]Range{
		{Base: 0x1000, Size: 0x20, Protection: "rw-"},
		{Base: 0x2000, Size: 0x20, Protection: "r--"},
	})
	mem.Seed(0x1008, []byte{0xCA, 0xFE})
	mem.Seed(0x2008, []byte{0xCA, 0xFE})
	rt := New(emitter, mem, 10)

	params, _ := json.Marshal(map[string]any{"pattern": "CA FE", "protection": "r--"})
	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 1, Method: "memory_scan_async", Params: params})

	require.Eventually(t, func() bool {
		return len(emitter.eventsNamed("memory_scan_complete")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	matches := emitter.eventsNamed("memory_scan_match")
	require.Len(t, matches, 1)
	var body map[string]any
	require.NoError(t, json.Unmarshal(matches[0].Raw, &body))
	require.EqualValues(t, 0x2008, body["address"])
}

func TestScan_LimitStopsEarly(t *testing.T) {
	emitter := &fakeEmitter{}
	mem := NewFixtureMemory([]Range{{Base: 0x1000, Size: 0x40, Protection: "rw-"}})
	mem.Seed(0x1000, []byte{0xCA, 0xFE})
	mem.Seed(0x1010, []byte{0xCA, 0xFE})
	mem.Seed(0x1020, []byte{0xCA, 0xFE})
	rt := New(emitter, mem, 10)

	params, _ := json.Marshal(map[string]any{"pattern": "CA FE", "limit": 1})
	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 1, Method: "memory_scan_async", Params: params})

	require.Eventually(t, func() bool {
		return len(emitter.eventsNamed("memory_scan_complete")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Len(t, emitter.eventsNamed("memory_scan_match"), 1)
}

func TestScan_AbortStopsStreaming(t *testing.T) {
	emitter := &fakeEmitter{}
	ranges := make([]Range, 500)
	for i := range ranges {
		ranges[i] = Range{Base: uint64(0x100000 * (i + 1)), Size: 0x1000, Protection: "rw-"}
	}
	mem := NewFixtureMemory(ranges)
	rt := New(emitter, mem, 10)

	params, _ := json.Marshal(map[string]any{"pattern": "00 00"})
	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 1, Method: "memory_scan_async", Params: params})
	start := latestResult(t, emitter, 1)

	abortParams, _ := json.Marshal(map[string]any{"scanId": start["scanId"]})
	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 2, Method: "memory_scan_abort", Params: abortParams})

	require.Eventually(t, func() bool {
		return len(emitter.eventsNamed("memory_scan_complete")) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
