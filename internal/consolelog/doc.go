// Package consolelog implements the bounded console log ring buffer: a
// fixed-capacity history of entries with level/category/text filtering,
// pause/resume, and export formatting, fed by internal/event.Bus via
// StartEventListener the way every other subscriber in this repository
// acquires and releases its subscription.
//
// A second, smaller ring tracks hook-call logs separately (capacity 500
// against the general buffer's 1000): the same event source can produce
// entries in both, sharing the id space, since a hook firing is both an
// agent event worth the general log and a hook-specific trace a user
// filters down to independently.
package consolelog
