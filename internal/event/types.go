package event

import "github.com/eunhhu/carf-sub000/pkg/types"

// SessionAttachedData is the data for session.attached events.
type SessionAttachedData struct {
	Session *types.Session `json:"session"`
}

// SessionDetachedData is the data for session.detached events.
type SessionDetachedData struct {
	SessionID uint32 `json:"sessionId"`
	Reason    string `json:"reason"`
}

// ScriptLoadedData is the data for script.loaded events.
type ScriptLoadedData struct {
	Script *types.Script `json:"script"`
}

// ScriptUnloadedData is the data for script.unloaded events.
type ScriptUnloadedData struct {
	ScriptID uint32 `json:"scriptId"`
}

// LibraryChangedData is the data for library.changed events: fired after
// any mutating library store operation so HTTP/SSE subscribers can refresh.
type LibraryChangedData struct {
	Reason string `json:"reason"`
}

// ConsoleLogAppendedData is the data for console.log events.
type ConsoleLogAppendedData struct {
	Entry *types.LogEntry `json:"entry"`
}

// AgentEventData wraps a raw carf:event received from the agent, fanned
// out to subscribers once the broker's event demultiplexer classifies it.
type AgentEventData struct {
	SessionID uint32 `json:"sessionId"`
	ScriptID  uint32 `json:"scriptId"`
	Event     string `json:"event"`
	Data      []byte `json:"data"`
}

// ActionQueuedData is the data for action.queued events. Target is
// action.Target, but declared here as `any` so this leaf package never
// imports internal/action (which itself imports internal/event).
type ActionQueuedData struct {
	Type      string `json:"type"`
	Target    any    `json:"target"`
	Timestamp int64  `json:"timestamp"`
}
