// Package mcpserver exposes the agent method dispatcher as an MCP
// (Model Context Protocol) tool surface over stdio JSON-RPC, so an LLM
// client can list modules, read and search memory, and attach
// interceptors on the currently attached session without going through
// the HTTP control plane.
//
// Each tool call resolves the current session and script from an
// internal/lifecycle.Owner and proxies the call through
// internal/broker.Broker, exactly like internal/server's generic agent
// method endpoint does for HTTP clients. There is no separate dispatch
// path: the MCP surface and the HTTP surface drive the same broker.
package mcpserver
