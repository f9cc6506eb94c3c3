package types

// SessionState is the lifecycle state of a Session (see internal/lifecycle).
type SessionState string

const (
	SessionAttaching SessionState = "attaching"
	SessionAttached  SessionState = "attached"
	SessionDetaching SessionState = "detaching"
	SessionDead      SessionState = "dead"
)

// Session is an attachment to a target process on a Device. At most one
// Session is active at a time.
type Session struct {
	SessionID uint32       `json:"session_id"`
	DeviceID  string       `json:"device_id"`
	PID       uint32       `json:"pid"`
	State     SessionState `json:"state"`
}

// ScriptState is the lifecycle state of a Script.
type ScriptState string

const (
	ScriptLoading   ScriptState = "loading"
	ScriptLoaded    ScriptState = "loaded"
	ScriptUnloading ScriptState = "unloading"
	ScriptDead      ScriptState = "dead"
)

// Script is a loaded unit of agent code inside a Session. It is only
// created after the owning Session reaches SessionAttached.
type Script struct {
	ScriptID  uint32      `json:"script_id"`
	SessionID uint32      `json:"session_id"`
	State     ScriptState `json:"state"`
}
