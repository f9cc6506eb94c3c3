// Package server provides the HTTP control-plane surface: device and
// process discovery, session/script attach-detach, the agent method
// dispatcher, the library store, the console log store, the action
// router, and a server-sent event stream fed by the internal event bus.
//
// # Core Components
//
//   - HTTP Server: Chi-based router with middleware for CORS, logging,
//     and recovery
//   - Session lifecycle: attach/detach, single-attachment invariant
//   - Agent methods: any registered agent method proxied through the
//     broker (memory read/write, pattern/value scans, watches, ...)
//   - Library: bookmarked addresses, hooks, and modules with folders,
//     tags, and search
//   - Console log: bounded ring buffers for agent output and hook calls
//   - Action router: cross-component "go look at this" navigation
//   - Event streaming: Server-Sent Events fed by internal/event
//
// # API Endpoints
//
//   - /devices, /devices/{deviceID}/processes: discovery
//   - /session: attach, current session, detach
//   - /session/agent/{method}: generic agent method dispatch
//   - /library/*: entries, folders, import/export
//   - /console/*: log entries (with filters), hook entries, clear,
//     pause/resume
//   - /action: queue and consume navigation actions
//   - /event: real-time event streaming via SSE
package server
