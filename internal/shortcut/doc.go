// Package shortcut implements the keyboard-shortcut engine: parsing
// chord strings like "mod+shift+k", matching a pressed chord against the
// registered set, and dispatching to the first match in registration
// order.
//
// Matching tokenizes a chord on "+" and compares the modifier set and the
// key. There are no wildcard tokens: a chord is a fixed modifier set plus
// one key, and registration order decides which of several matching
// bindings fires.
package shortcut
