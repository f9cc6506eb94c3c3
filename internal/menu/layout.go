package menu

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/eunhhu/carf-sub000/internal/storage"
)

// PanelState is the persisted geometry of one floating panel (the
// memory viewer, the hex editor, a watch list, ...). Unlike Menu and
// its submenus, panel positions are meant to survive restarts.
type PanelState struct {
	X       int  `yaml:"x"`
	Y       int  `yaml:"y"`
	Width   int  `yaml:"width"`
	Height  int  `yaml:"height"`
	Visible bool `yaml:"visible"`
}

// Layout is the full set of panel positions for one workspace.
type Layout struct {
	Panels map[string]PanelState `yaml:"panels"`
}

// NewLayout returns an empty layout with its panel map initialized.
func NewLayout() *Layout {
	return &Layout{Panels: make(map[string]PanelState)}
}

// LoadLayout reads and parses a layout document from path. A missing
// file is not an error: it returns a fresh, empty Layout, the same
// precedent internal/config's loadConfigFile sets for missing config
// files.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewLayout(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}

	layout := NewLayout()
	if err := yaml.Unmarshal(data, layout); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	if layout.Panels == nil {
		layout.Panels = make(map[string]PanelState)
	}
	return layout, nil
}

// SaveLayout writes layout to path, creating its parent directory if
// needed and writing through internal/storage's atomic temp-file-plus-
// rename helper so a crash mid-save never leaves a half-written
// layout.yaml behind.
func SaveLayout(path string, layout *Layout) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create layout directory: %w", err)
	}

	data, err := yaml.Marshal(layout)
	if err != nil {
		return fmt.Errorf("marshal layout: %w", err)
	}

	if err := storage.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("write layout: %w", err)
	}
	return nil
}

// SetPanel records or updates one panel's state.
func (l *Layout) SetPanel(id string, state PanelState) {
	l.Panels[id] = state
}

// Panel returns one panel's state and whether it has ever been set.
func (l *Layout) Panel(id string) (PanelState, bool) {
	state, ok := l.Panels[id]
	return state, ok
}
