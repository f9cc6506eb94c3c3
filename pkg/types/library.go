package types

// EntryType enumerates the kinds of thing a library entry can name.
type EntryType string

const (
	EntryFunction     EntryType = "function"
	EntryAddress      EntryType = "address"
	EntryClass        EntryType = "class"
	EntrySymbol       EntryType = "symbol"
	EntryModule       EntryType = "module"
	EntryMethod       EntryType = "method"
	EntryMemoryRegion EntryType = "memory_region"
	EntryWatch        EntryType = "watch"
	EntryHook         EntryType = "hook"
)

// LibraryEntry is a user-curated reference to something in the target
// process: a function, an address, a class, a watch, a hook, and so on.
type LibraryEntry struct {
	ID        string         `json:"id"`
	Type      EntryType      `json:"type"`
	Name      string         `json:"name"`
	Address   string         `json:"address,omitempty"`
	Module    string         `json:"module,omitempty"`
	FolderID  string         `json:"folder_id,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	Notes     string         `json:"notes,omitempty"`
	Starred   bool           `json:"starred"`
	CreatedAt int64          `json:"created_at"`
	UpdatedAt int64          `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// LibraryFolder groups library entries hierarchically.
type LibraryFolder struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

// LibraryDocument is the single persisted JSON document backing the
// library store.
type LibraryDocument struct {
	Entries map[string]*LibraryEntry  `json:"entries"`
	Folders map[string]*LibraryFolder `json:"folders"`
}

// NewLibraryDocument returns an empty, initialized document.
func NewLibraryDocument() *LibraryDocument {
	return &LibraryDocument{
		Entries: make(map[string]*LibraryEntry),
		Folders: make(map[string]*LibraryFolder),
	}
}
