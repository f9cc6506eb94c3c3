package consolelog

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eunhhu/carf-sub000/internal/event"
	"github.com/eunhhu/carf-sub000/pkg/types"
)

const (
	defaultCapacity     = 1000
	defaultHookCapacity = 500
)

// Filter narrows Entries' output. A zero-value Filter matches everything.
type Filter struct {
	Level    types.LogLevel
	Category string
	Search   string
}

// Store is a bounded ring buffer of log entries plus a smaller,
// independent ring for hook-call traces, both fed by the same event
// subscription.
type Store struct {
	mu           sync.Mutex
	capacity     int
	hookCapacity int
	entries      []*types.LogEntry
	hookEntries  []*types.LogEntry
	nextID       atomic.Uint64

	paused        bool
	showTimestamp bool
	showJSON      bool

	cancelListener func()
}

// New creates an empty Store with the default capacities.
func New() *Store {
	return &Store{
		capacity:      defaultCapacity,
		hookCapacity:  defaultHookCapacity,
		showTimestamp: true,
	}
}

// Log appends an entry to the general ring, dropping the oldest entry if
// at capacity. A paused store silently discards new entries.
func (s *Store) Log(source types.LogSource, level types.LogLevel, category, message string, data any) *types.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.paused {
		return nil
	}

	entry := &types.LogEntry{
		ID:        s.nextID.Add(1),
		Timestamp: time.Now().UnixMilli(),
		Level:     level,
		Source:    source,
		Category:  category,
		Message:   message,
		Data:      data,
	}
	s.entries = append(s.entries, entry)
	if len(s.entries) > s.capacity {
		s.entries = s.entries[len(s.entries)-s.capacity:]
	}

	event.PublishSync(event.Event{Type: event.ConsoleLogAdded, Data: event.ConsoleLogAppendedData{Entry: entry}})
	return entry
}

// LogHook appends an entry to the separate hook-call ring, sharing the
// same id space as Log but never evicting the general ring.
func (s *Store) LogHook(message string, data any) *types.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &types.LogEntry{
		ID:        s.nextID.Add(1),
		Timestamp: time.Now().UnixMilli(),
		Level:     types.LogEvent,
		Source:    types.SourceAgent,
		Category:  "hook",
		Message:   message,
		Data:      data,
	}
	s.hookEntries = append(s.hookEntries, entry)
	if len(s.hookEntries) > s.hookCapacity {
		s.hookEntries = s.hookEntries[len(s.hookEntries)-s.hookCapacity:]
	}
	return entry
}

func (s *Store) Info(category, message string, data any) {
	s.Log(types.SourceSystem, types.LogInfo, category, message, data)
}

func (s *Store) Warn(category, message string, data any) {
	s.Log(types.SourceSystem, types.LogWarn, category, message, data)
}

func (s *Store) Error(category, message string, data any) {
	s.Log(types.SourceSystem, types.LogError, category, message, data)
}

func (s *Store) Success(category, message string, data any) {
	s.Log(types.SourceSystem, types.LogSuccess, category, message, data)
}

func (s *Store) Debug(category, message string, data any) {
	s.Log(types.SourceSystem, types.LogDebug, category, message, data)
}

// Clear empties the general ring. The hook ring is unaffected.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// Pause stops new entries from being appended to the general ring.
func (s *Store) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume re-enables appending to the general ring.
func (s *Store) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

// ToggleTimestamps flips whether Export renders a leading timestamp.
func (s *Store) ToggleTimestamps() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showTimestamp = !s.showTimestamp
	return s.showTimestamp
}

// ToggleJSON flips whether Export appends the entry's data as JSON.
func (s *Store) ToggleJSON() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showJSON = !s.showJSON
	return s.showJSON
}

// Entries returns the general ring filtered by f, oldest first.
func (s *Store) Entries(f Filter) []*types.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*types.LogEntry
	for _, e := range s.entries {
		if f.Level != "" && e.Level != f.Level {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(e.Message), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// HookEntries returns the hook-call ring, oldest first.
func (s *Store) HookEntries() []*types.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.LogEntry, len(s.hookEntries))
	copy(out, s.hookEntries)
	return out
}

// Export renders one entry as "[<iso-ts>] [<LEVEL>] [<category>]
// <message> | <json(data)>", honoring the current timestamp/json toggles.
func (s *Store) Export(e *types.LogEntry) string {
	s.mu.Lock()
	showTimestamp, showJSON := s.showTimestamp, s.showJSON
	s.mu.Unlock()

	var b strings.Builder
	if showTimestamp {
		ts := time.UnixMilli(e.Timestamp).UTC().Format(time.RFC3339)
		fmt.Fprintf(&b, "[%s] ", ts)
	}
	fmt.Fprintf(&b, "[%s] ", strings.ToUpper(string(e.Level)))
	if e.Category != "" {
		fmt.Fprintf(&b, "[%s] ", e.Category)
	}
	b.WriteString(e.Message)

	if showJSON && e.Data != nil {
		encoded, err := json.Marshal(e.Data)
		if err == nil {
			b.WriteString(" | ")
			b.Write(encoded)
		}
	}
	return b.String()
}

// StartEventListener subscribes to agent.event and appends each one as a
// log entry, the way every event subscriber in this repository acquires
// a cancel handle it is responsible for invoking. Calling it twice
// replaces the previous subscription.
func (s *Store) StartEventListener() func() {
	s.mu.Lock()
	if s.cancelListener != nil {
		s.cancelListener()
	}
	s.mu.Unlock()

	unsub := event.Subscribe(event.AgentEvent, func(e event.Event) {
		data, ok := e.Data.(event.AgentEventData)
		if !ok {
			return
		}
		s.Log(types.SourceAgent, types.LogEvent, data.Event, fmt.Sprintf("agent event: %s", data.Event), json.RawMessage(data.Data))
	})

	s.mu.Lock()
	s.cancelListener = unsub
	s.mu.Unlock()

	return unsub
}

// Close stops the event listener if one is active. Safe to call more
// than once.
func (s *Store) Close() {
	s.mu.Lock()
	cancel := s.cancelListener
	s.cancelListener = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
