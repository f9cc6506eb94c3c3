package action

import (
	"sync"
	"time"

	"github.com/eunhhu/carf-sub000/internal/event"
)

// Type is the kind of thing an action targets, which fixes which tab it
// routes to.
type Type string

const (
	TypeReadMemory   Type = "read_memory"
	TypeHookFunction Type = "hook_function"
	TypeViewModule   Type = "view_module"
	TypeViewClass    Type = "view_class"
)

// tabFor is the fixed type -> tab mapping. A type with no entry here
// routes nowhere (QueueAction still records it for recents, but no tab
// switch fires).
var tabFor = map[Type]string{
	TypeReadMemory:   "memory",
	TypeHookFunction: "interceptor",
	TypeViewModule:   "modules",
	TypeViewClass:    "modules",
}

// Target describes what an action points at. Address is the canonical
// discriminator for read_memory; Name/Module identify a symbol for
// hook_function and view_class; Type is a free-form sub-kind (e.g. a
// class name's language). Metadata carries anything else the origin tab
// wants to hand to the destination tab.
type Target struct {
	Address  string         `json:"address,omitempty"`
	Name     string         `json:"name,omitempty"`
	Type     string         `json:"type,omitempty"`
	Module   string         `json:"module,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Action is one queued navigation: go look at Target, because of a Type
// of interaction that was just requested, timestamped when it was queued.
type Action struct {
	Type      Type   `json:"type"`
	Target    Target `json:"target"`
	Timestamp int64  `json:"timestamp"`
}

const recentCapacity = 20

// Router holds at most one pending action and a bounded, deduplicated
// ring of recently-navigated-to items. It is message-passing, not a
// shared-mutable singleton: callers reach it only through the Server that
// constructed it.
type Router struct {
	mu       sync.Mutex
	pending  *Action
	recent   []Action
	onSwitch func(tab string)
}

// New creates an empty Router. onTabSwitch, if non-nil, is called
// synchronously whenever QueueAction resolves to a known tab.
func New(onTabSwitch func(tab string)) *Router {
	return &Router{onSwitch: onTabSwitch}
}

// QueueAction records action as the single pending slot (replacing
// whatever was pending and never queuing a backlog), stamps Timestamp if
// the caller left it zero, pushes it onto the recent-items ring, fires
// the tab-switch callback if its type maps to a tab, and publishes
// action.queued.
func (r *Router) QueueAction(a Action) {
	if a.Timestamp == 0 {
		a.Timestamp = time.Now().UnixMilli()
	}

	r.mu.Lock()
	r.pending = &a
	r.pushRecent(a)
	tab, ok := tabFor[a.Type]
	r.mu.Unlock()

	if ok && r.onSwitch != nil {
		r.onSwitch(tab)
	}

	event.PublishSync(event.Event{Type: event.ActionQueued, Data: event.ActionQueuedData{Type: string(a.Type), Target: a.Target, Timestamp: a.Timestamp}})
}

// pushRecent inserts a at the front of the recent ring, removing any
// existing entry with the same (Type, Target.Address) and trimming to
// recentCapacity. Caller holds r.mu.
func (r *Router) pushRecent(a Action) {
	deduped := r.recent[:0:0]
	for _, existing := range r.recent {
		if existing.Type == a.Type && existing.Target.Address == a.Target.Address {
			continue
		}
		deduped = append(deduped, existing)
	}
	r.recent = append([]Action{a}, deduped...)
	if len(r.recent) > recentCapacity {
		r.recent = r.recent[:recentCapacity]
	}
}

// ConsumePendingAction returns the pending action and clears the slot,
// or ok=false if nothing is pending.
func (r *Router) ConsumePendingAction() (Action, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return Action{}, false
	}
	a := *r.pending
	r.pending = nil
	return a, true
}

// Recent returns the recent-items ring, most recent first.
func (r *Router) Recent() []Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Action, len(r.recent))
	copy(out, r.recent)
	return out
}
