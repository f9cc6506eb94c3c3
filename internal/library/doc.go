// Package library implements the user-curated reference store: entries
// naming functions, addresses, classes, watches, hooks, and so on,
// organized into folders, searchable and sortable, persisted as one JSON
// document via internal/storage.Storage's write-then-rename Put — the
// same atomic-write idiom the rest of this repository's persisted state
// uses.
//
// The in-memory maps are the source of truth during a process's
// lifetime; persistence is a side effect of every mutating call, not a
// separate synchronization path. A background fsnotify watch reloads the
// document if it changes on disk from outside this process (e.g. a
// second instance, or a user editing the file directly).
package library
