package shortcut

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Platform distinguishes which physical key "mod" resolves to.
type Platform string

const (
	PlatformMac   Platform = "mac"
	PlatformOther Platform = "other"
)

// Chord is a parsed, normalized key combination: a sorted set of
// modifier tokens plus the triggering key, lowercased.
type Chord struct {
	Modifiers []string
	Key       string
}

// canonicalModifier resolves "mod" to the platform's primary modifier
// (cmd on mac, ctrl elsewhere) and lowercases everything else.
func canonicalModifier(token string, platform Platform) string {
	token = strings.ToLower(strings.TrimSpace(token))
	if token != "mod" {
		return token
	}
	if platform == PlatformMac {
		return "meta"
	}
	return "ctrl"
}

// ParseChord splits a chord string like "mod+shift+k" on "+", resolves
// "mod" for platform, and sorts the modifier tokens so two chord strings
// naming the same combination in different orders compare equal.
func ParseChord(chord string, platform Platform) (Chord, error) {
	parts := strings.Split(chord, "+")
	if len(parts) == 0 || parts[len(parts)-1] == "" {
		return Chord{}, fmt.Errorf("empty chord %q", chord)
	}

	key := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
	if key == "" {
		return Chord{}, fmt.Errorf("chord %q has no key", chord)
	}

	var mods []string
	for _, p := range parts[:len(parts)-1] {
		mods = append(mods, canonicalModifier(p, platform))
	}
	sort.Strings(mods)

	return Chord{Modifiers: mods, Key: key}, nil
}

func (c Chord) String() string {
	if len(c.Modifiers) == 0 {
		return c.Key
	}
	return strings.Join(c.Modifiers, "+") + "+" + c.Key
}

func (c Chord) equals(other Chord) bool {
	if c.Key != other.Key || len(c.Modifiers) != len(other.Modifiers) {
		return false
	}
	for i := range c.Modifiers {
		if c.Modifiers[i] != other.Modifiers[i] {
			return false
		}
	}
	return true
}

// Binding is one registered shortcut.
type Binding struct {
	Chord             Chord
	Handler           func()
	IgnoreWhenEditing bool // if true, this shortcut still fires while an editable field has focus
	PreventDefault    bool
}

// Engine holds the registered bindings in registration order and
// dispatches a pressed chord to the first one that matches.
type Engine struct {
	platform Platform

	mu       sync.Mutex
	bindings []Binding
}

// New creates an Engine resolving "mod" for platform.
func New(platform Platform) *Engine {
	return &Engine{platform: platform}
}

// Register parses chordStr and appends a binding. Later registrations
// for the same chord do not replace earlier ones: Dispatch always tries
// bindings in registration order and fires the first match, so an
// earlier registration permanently shadows a later duplicate.
func (e *Engine) Register(chordStr string, handler func(), ignoreWhenEditing bool) error {
	chord, err := ParseChord(chordStr, e.platform)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.bindings = append(e.bindings, Binding{
		Chord:             chord,
		Handler:           handler,
		IgnoreWhenEditing: ignoreWhenEditing,
		PreventDefault:    true,
	})
	return nil
}

// Unregister removes every binding for chordStr.
func (e *Engine) Unregister(chordStr string) error {
	chord, err := ParseChord(chordStr, e.platform)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	var kept []Binding
	for _, b := range e.bindings {
		if !b.Chord.equals(chord) {
			kept = append(kept, b)
		}
	}
	e.bindings = kept
	return nil
}

// Dispatch matches a pressed chord against the registered bindings in
// registration order. editing reports whether an editable field
// currently has focus; bindings with IgnoreWhenEditing=false are skipped
// while editing is true. It returns whether a binding fired and whether
// that binding wants the default browser/OS action prevented.
func (e *Engine) Dispatch(chordStr string, editing bool) (fired bool, preventDefault bool) {
	chord, err := ParseChord(chordStr, e.platform)
	if err != nil {
		return false, false
	}

	e.mu.Lock()
	bindings := make([]Binding, len(e.bindings))
	copy(bindings, e.bindings)
	e.mu.Unlock()

	for _, b := range bindings {
		if !b.Chord.equals(chord) {
			continue
		}
		if editing && !b.IgnoreWhenEditing {
			continue
		}
		b.Handler()
		return true, b.PreventDefault
	}
	return false, false
}
