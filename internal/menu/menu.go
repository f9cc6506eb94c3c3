package menu

// edgeMargin is the minimum distance a menu or submenu keeps from the
// viewport edge on both axes.
const edgeMargin = 10

// Item is one entry in a context menu. SubItems, if non-empty, makes
// this entry a submenu trigger rather than an action; a trigger's
// OnSelect, if any, is never invoked by Select.
type Item struct {
	ID       string
	Label    string
	Icon     string
	Shortcut string
	Disabled bool
	Danger   bool
	SubItems []Item
	OnSelect func()
}

// Position is a clamped on-screen point.
type Position struct {
	X, Y int
}

// clamp keeps v within [edgeMargin, max-edgeMargin] rather than rejecting
// an out-of-range input; a viewport narrower than 2*edgeMargin yields
// max/2.
func clamp(v, max int) int {
	if max < 2*edgeMargin {
		return max / 2
	}
	if v < edgeMargin {
		return edgeMargin
	}
	if v > max-edgeMargin {
		return max - edgeMargin
	}
	return v
}

// Menu is one open context menu (and, transitively, at most one open
// chain of submenus beneath it).
type Menu struct {
	Items          []Item
	Pos            Position
	viewportW      int
	viewportH      int
	activeSubChain []int // path of item indices for the currently open submenu chain
}

// Open positions a new top-level menu at (x, y), clamped into the
// viewport.
func Open(items []Item, x, y, viewportW, viewportH int) *Menu {
	return &Menu{
		Items:     items,
		Pos:       Position{X: clamp(x, viewportW), Y: clamp(y, viewportH)},
		viewportW: viewportW,
		viewportH: viewportH,
	}
}

// OpenSubmenu activates the submenu at path (a sequence of item
// indices), positioning it to the right of its parent unless that would
// overflow the viewport, in which case it opens to the left instead.
// Only one submenu chain is ever active; opening a new one replaces
// whatever chain was open before.
func (m *Menu) OpenSubmenu(path []int, parentX, parentY, parentWidth int) Position {
	m.activeSubChain = append([]int{}, path...)

	x := parentX + parentWidth
	if x+edgeMargin > m.viewportW {
		x = parentX - parentWidth
	}
	return Position{X: clamp(x, m.viewportW), Y: clamp(parentY, m.viewportH)}
}

// CloseSubmenu collapses any open submenu chain.
func (m *Menu) CloseSubmenu() {
	m.activeSubChain = nil
}

// ActiveSubmenuChain reports the path of the currently open submenu
// chain, or nil if none is open.
func (m *Menu) ActiveSubmenuChain() []int {
	return m.activeSubChain
}

// Select resolves path to the item it names and, if that item is a leaf
// (no SubItems), invokes its OnSelect and closes the entire open submenu
// chain, reporting true. A parent item with children is left open and
// reports false, since selecting it should open its submenu rather than
// close the menu. Selecting a disabled item, or an invalid path, is a
// no-op that reports false.
func (m *Menu) Select(path []int) bool {
	item, ok := m.ItemAt(path)
	if !ok || item.Disabled {
		return false
	}
	if len(item.SubItems) > 0 {
		return false
	}
	if item.OnSelect != nil {
		item.OnSelect()
	}
	m.CloseSubmenu()
	return true
}

// ItemAt resolves a path of indices to the Item it names, or ok=false if
// the path is invalid.
func (m *Menu) ItemAt(path []int) (Item, bool) {
	items := m.Items
	var item Item
	for i, idx := range path {
		if idx < 0 || idx >= len(items) {
			return Item{}, false
		}
		item = items[idx]
		if i < len(path)-1 {
			items = item.SubItems
		}
	}
	return item, len(path) > 0
}
