package agentrt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eunhhu/carf-sub000/internal/wire"
)

func s32(v int32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return buf
}

// TestValueScan_ProgressiveRefinement mirrors the canonical three-address
// walkthrough: addresses A and B start at 100, address C starts at 50.
// Seeding 100 keeps A and B; dropping A to 90 and refining on "decreased"
// narrows the set to exactly A.
func TestValueScan_ProgressiveRefinement(t *testing.T) {
	emitter := &fakeEmitter{}
	mem := NewFixtureMemory([]Range{{Base: 0x1000, Size: 0x100, Protection: "rw-"}})
	addrA, addrB, addrC := uint64(0x1000), uint64(0x1010), uint64(0x1020)
	mem.Seed(addrA, s32(100))
	mem.Seed(addrB, s32(100))
	mem.Seed(addrC, s32(50))
	rt := New(emitter, mem, 10)

	startParams, _ := json.Marshal(map[string]any{"valueType": "s32", "value": 100})
	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 1, Method: "memory_value_scan_start", Params: startParams})
	resp := latestResult(t, emitter, 1)
	require.EqualValues(t, 2, resp["totalMatches"])
	scanID := resp["scanId"].(string)
	require.NotEmpty(t, scanID)

	mem.Seed(addrA, s32(90))

	nextParams, _ := json.Marshal(map[string]any{"scanId": scanID, "condition": "decreased"})
	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 2, Method: "memory_value_scan_next", Params: nextParams})
	resp = latestResult(t, emitter, 2)
	require.EqualValues(t, 1, resp["matchCount"])

	getParams, _ := json.Marshal(map[string]any{"scanId": scanID})
	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 3, Method: "memory_value_scan_get", Params: getParams})
	resp = latestResult(t, emitter, 3)
	matches := resp["matches"].([]any)
	require.Len(t, matches, 1)
	match := matches[0].(map[string]any)
	require.EqualValues(t, addrA, match["address"])
}

func TestValueScan_StrictRefinementNeverGrows(t *testing.T) {
	emitter := &fakeEmitter{}
	mem := NewFixtureMemory([]Range{{Base: 0x1000, Size: 0x100, Protection: "rw-"}})
	mem.Seed(0x1000, s32(7))
	mem.Seed(0x1010, s32(7))
	rt := New(emitter, mem, 10)

	startParams, _ := json.Marshal(map[string]any{"valueType": "s32", "value": 7})
	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 1, Method: "memory_value_scan_start", Params: startParams})
	resp := latestResult(t, emitter, 1)
	require.EqualValues(t, 2, resp["totalMatches"])
	scanID := resp["scanId"].(string)

	// Even a no-op "unchanged" refinement cannot increase the address set.
	nextParams, _ := json.Marshal(map[string]any{"scanId": scanID, "condition": "unchanged"})
	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 2, Method: "memory_value_scan_next", Params: nextParams})
	resp = latestResult(t, emitter, 2)
	require.LessOrEqual(t, resp["matchCount"].(float64), float64(2))
}

func TestValueScan_ClearDiscardsSession(t *testing.T) {
	emitter := &fakeEmitter{}
	mem := NewFixtureMemory([]Range{{Base: 0x1000, Size: 0x10, Protection: "rw-"}})
	mem.Seed(0x1000, s32(1))
	rt := New(emitter, mem, 10)

	startParams, _ := json.Marshal(map[string]any{"valueType": "s32", "value": 1})
	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 1, Method: "memory_value_scan_start", Params: startParams})
	scanID := latestResult(t, emitter, 1)["scanId"].(string)

	clearParams, _ := json.Marshal(map[string]any{"scanId": scanID})
	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 2, Method: "memory_value_scan_clear", Params: clearParams})

	getParams, _ := json.Marshal(map[string]any{"scanId": scanID})
	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 3, Method: "memory_value_scan_get", Params: getParams})

	responses := emitter.responses()
	require.Equal(t, wire.ResultError, responses[2].Result)
}

// TestValueScan_Utf8ChangedHighlightsDiff confirms the "changed" condition
// on a utf8 scan surfaces a byte-level diff between the old and new
// value, not just the new value on its own.
func TestValueScan_Utf8ChangedHighlightsDiff(t *testing.T) {
	emitter := &fakeEmitter{}
	mem := NewFixtureMemory([]Range{{Base: 0x2000, Size: 0x10, Protection: "rw-"}})
	mem.Seed(0x2000, []byte("carf"))
	rt := New(emitter, mem, 10)

	startParams, _ := json.Marshal(map[string]any{"valueType": "utf8", "value": "carf"})
	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 1, Method: "memory_value_scan_start", Params: startParams})
	resp := latestResult(t, emitter, 1)
	require.EqualValues(t, 1, resp["totalMatches"])
	scanID := resp["scanId"].(string)

	mem.Seed(0x2000, []byte("cars"))

	nextParams, _ := json.Marshal(map[string]any{"scanId": scanID, "condition": "changed"})
	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 2, Method: "memory_value_scan_next", Params: nextParams})
	resp = latestResult(t, emitter, 2)
	require.EqualValues(t, 1, resp["matchCount"])

	getParams, _ := json.Marshal(map[string]any{"scanId": scanID})
	rt.HandleRequest(context.Background(), wire.RequestPayload{ID: 3, Method: "memory_value_scan_get", Params: getParams})
	resp = latestResult(t, emitter, 3)
	matches := resp["matches"].([]any)
	require.Len(t, matches, 1)
	match := matches[0].(map[string]any)
	require.Contains(t, match["diff"], "-[f]")
	require.Contains(t, match["diff"], "+[s]")
}

func latestResult(t *testing.T, emitter *fakeEmitter, id uint64) map[string]any {
	t.Helper()
	for _, resp := range emitter.responses() {
		if resp.ID == id {
			require.Equal(t, wire.ResultOK, resp.Result)
			var out map[string]any
			require.NoError(t, json.Unmarshal(resp.Returns, &out))
			return out
		}
	}
	t.Fatalf("no response with id %d", id)
	return nil
}
