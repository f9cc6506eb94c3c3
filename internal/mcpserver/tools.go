package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// tools returns the fixed tool catalogue this server exposes. It mirrors
// a subset of internal/agentrt's method catalogue closely enough that a
// client can drive the same fixture agent an attached HTTP client would
// see through internal/server's generic agent method endpoint.
func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: pingTool(), Handler: s.handlePing},
		{Tool: enumerateModulesTool(), Handler: s.handleEnumerateModules},
		{Tool: enumerateRangesTool(), Handler: s.handleEnumerateRanges},
		{Tool: readMemoryTool(), Handler: s.handleReadMemory},
		{Tool: writeMemoryTool(), Handler: s.handleWriteMemory},
		{Tool: searchMemoryTool(), Handler: s.handleSearchMemory},
		{Tool: interceptorAttachTool(), Handler: s.handleInterceptorAttach},
		{Tool: interceptorDetachTool(), Handler: s.handleInterceptorDetach},
		{Tool: interceptorListTool(), Handler: s.handleInterceptorList},
	}
}

func pingTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"ping",
		"Check that the attached session's script is alive and responding.",
		json.RawMessage(`{"type": "object", "properties": {}}`),
	)
}

func enumerateModulesTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"enumerate_modules",
		"List the modules loaded in the attached process.",
		json.RawMessage(`{"type": "object", "properties": {}}`),
	)
}

func enumerateRangesTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"enumerate_ranges",
		"List the mapped memory ranges of the attached process.",
		json.RawMessage(`{"type": "object", "properties": {}}`),
	)
}

func readMemoryTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"read_memory",
		"Read a span of bytes from the attached process's memory.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"address": {
					"type": "integer",
					"description": "Address to read from"
				},
				"size": {
					"type": "integer",
					"description": "Number of bytes to read"
				}
			},
			"required": ["address", "size"]
		}`),
	)
}

func writeMemoryTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"write_memory",
		"Write hex-encoded bytes into the attached process's memory.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"address": {
					"type": "integer",
					"description": "Address to write to"
				},
				"bytes": {
					"type": "string",
					"description": "Hex-encoded bytes to write"
				}
			},
			"required": ["address", "bytes"]
		}`),
	)
}

func searchMemoryTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"search_memory",
		"Search mapped memory for a byte pattern, e.g. \"41 ?? 43\".",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"pattern": {
					"type": "string",
					"description": "Hex byte pattern with ?? wildcards"
				}
			},
			"required": ["pattern"]
		}`),
	)
}

func interceptorAttachTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"interceptor_attach",
		"Attach a hook at an address in the attached process.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"address": {
					"type": "integer",
					"description": "Address to hook"
				}
			},
			"required": ["address"]
		}`),
	)
}

func interceptorDetachTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"interceptor_detach",
		"Detach a previously attached hook by id.",
		json.RawMessage(`{
			"type": "object",
			"properties": {
				"hookId": {
					"type": "string",
					"description": "Hook id returned by interceptor_attach"
				}
			},
			"required": ["hookId"]
		}`),
	)
}

func interceptorListTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		"interceptor_list",
		"List currently attached hooks.",
		json.RawMessage(`{"type": "object", "properties": {}}`),
	)
}

// --- Handlers ---

type readMemoryArgs struct {
	Address uint64 `json:"address"`
	Size    int    `json:"size"`
}

type writeMemoryArgs struct {
	Address uint64 `json:"address"`
	Bytes   string `json:"bytes"`
}

type searchMemoryArgs struct {
	Pattern string `json:"pattern"`
}

type interceptorAttachArgs struct {
	Address uint64 `json:"address"`
}

type interceptorDetachArgs struct {
	HookID string `json:"hookId"`
}

// call proxies method(params) through the broker against the currently
// attached session and marshals the raw response into a tool result.
func (s *Server) call(ctx context.Context, method string, params any) (*mcp.CallToolResult, error) {
	sessionID, scriptID, err := s.currentTarget()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.broker.Request(ctx, sessionID, scriptID, method, params)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", method, err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

func (s *Server) handlePing(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, "ping", nil)
}

func (s *Server) handleEnumerateModules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, "enumerate_modules", nil)
}

func (s *Server) handleEnumerateRanges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, "enumerate_ranges", nil)
}

func (s *Server) handleReadMemory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args readMemoryArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	return s.call(ctx, "read_memory", args)
}

func (s *Server) handleWriteMemory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args writeMemoryArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	return s.call(ctx, "write_memory", args)
}

func (s *Server) handleSearchMemory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args searchMemoryArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	return s.call(ctx, "search_memory", args)
}

func (s *Server) handleInterceptorAttach(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args interceptorAttachArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	return s.call(ctx, "interceptor_attach", args)
}

func (s *Server) handleInterceptorDetach(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args interceptorDetachArgs
	if err := req.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	return s.call(ctx, "interceptor_detach", args)
}

func (s *Server) handleInterceptorList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, "interceptor_list", nil)
}
