// Package menu implements the context-menu engine: a hierarchical menu
// model with viewport-aware positioning. Positions are clamped into the
// viewport rather than rejected when out of range.
//
// It also owns floating-panel layout persistence (Layout, LoadLayout,
// SaveLayout): a YAML document at config.Paths.LayoutPath(), written
// through a temp-file-then-rename the same way internal/storage writes
// its JSON documents, with a missing file treated as an empty layout the
// way internal/config treats a missing config file.
package menu
