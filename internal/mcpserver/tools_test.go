package mcpserver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/eunhhu/carf-sub000/internal/backend"
	"github.com/eunhhu/carf-sub000/internal/broker"
	"github.com/eunhhu/carf-sub000/internal/event"
	"github.com/eunhhu/carf-sub000/internal/lifecycle"
)

func newTestMCPServer(t *testing.T) (*Server, *lifecycle.Owner) {
	t.Helper()
	event.Reset()
	t.Cleanup(event.Reset)

	sim := backend.NewSimFacade(nil, 0)
	b := broker.New(backend.Poster{Facade: sim}, time.Second)
	owner := lifecycle.New(sim, b)
	return NewServer(owner, b), owner
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "result content is %T, not TextContent", result.Content[0])
	return tc.Text
}

func TestPing_WithoutAttach_ReturnsToolError(t *testing.T) {
	s, _ := newTestMCPServer(t)

	result, err := s.handlePing(context.Background(), callRequest("ping", nil))
	require.NoError(t, err)
	require.True(t, result.IsError)
	require.Contains(t, resultText(t, result), "no attached session")
}

func TestPing_AfterAttach_Succeeds(t *testing.T) {
	s, owner := newTestMCPServer(t)
	_, err := owner.Attach(context.Background(), "sim-device", 4242)
	require.NoError(t, err)

	result, err := s.handlePing(context.Background(), callRequest("ping", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &body))
	require.Equal(t, true, body["pong"])
}

func TestReadMemory_RoundTripsThroughBroker(t *testing.T) {
	s, owner := newTestMCPServer(t)
	_, err := owner.Attach(context.Background(), "sim-device", 4242)
	require.NoError(t, err)

	result, err := s.handleReadMemory(context.Background(), callRequest("read_memory", map[string]any{
		"address": float64(0x100000),
		"size":    float64(4),
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &body))
	require.Contains(t, body, "bytes")
}

func TestInterceptorAttachThenList_ReflectsHook(t *testing.T) {
	s, owner := newTestMCPServer(t)
	_, err := owner.Attach(context.Background(), "sim-device", 4242)
	require.NoError(t, err)

	attachResult, err := s.handleInterceptorAttach(context.Background(), callRequest("interceptor_attach", map[string]any{
		"address": float64(0x200000),
	}))
	require.NoError(t, err)
	require.False(t, attachResult.IsError)

	var attached map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, attachResult)), &attached))
	require.NotEmpty(t, attached["hookId"])

	listResult, err := s.handleInterceptorList(context.Background(), callRequest("interceptor_list", nil))
	require.NoError(t, err)
	require.False(t, listResult.IsError)

	var listed map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, listResult)), &listed))
	hooks, ok := listed["hooks"].([]any)
	require.True(t, ok)
	require.Len(t, hooks, 1)
}
