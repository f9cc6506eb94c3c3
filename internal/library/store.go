package library

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/oklog/ulid/v2"

	"github.com/eunhhu/carf-sub000/internal/event"
	"github.com/eunhhu/carf-sub000/internal/storage"
	"github.com/eunhhu/carf-sub000/pkg/types"
)

var docPath = []string{"library", "document"}

// Store is the sole writer of the library document. Every mutating
// method persists before returning success, and publishes
// library.changed so HTTP/SSE subscribers know to refresh.
type Store struct {
	storage *storage.Storage

	mu  sync.RWMutex
	doc *types.LibraryDocument
}

// New loads (or initializes) the library document from storage.
func New(ctx context.Context, st *storage.Storage) (*Store, error) {
	s := &Store{storage: st}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	var doc types.LibraryDocument
	err := s.storage.Get(ctx, docPath, &doc)
	if err == storage.ErrNotFound {
		s.mu.Lock()
		s.doc = types.NewLibraryDocument()
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("library: load document: %w", err)
	}
	if doc.Entries == nil {
		doc.Entries = make(map[string]*types.LibraryEntry)
	}
	if doc.Folders == nil {
		doc.Folders = make(map[string]*types.LibraryFolder)
	}
	s.mu.Lock()
	s.doc = &doc
	s.mu.Unlock()
	return nil
}

// Reload re-reads the document from disk, discarding any in-memory state
// not yet persisted. Used by the fsnotify watch when the file changes
// from outside this process.
func (s *Store) Reload(ctx context.Context) error {
	return s.load(ctx)
}

func (s *Store) persist(ctx context.Context) error {
	s.mu.RLock()
	doc := s.doc
	s.mu.RUnlock()
	if err := s.storage.Put(ctx, docPath, doc); err != nil {
		return fmt.Errorf("library: persist document: %w", err)
	}
	event.PublishSync(event.Event{Type: event.LibraryChanged, Data: event.LibraryChangedData{Reason: "store mutated"}})
	return nil
}

func newID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Now(), entropy).String()
}

// AddEntryParams is the input to Add; ID/CreatedAt/UpdatedAt are assigned
// by the store.
type AddEntryParams struct {
	Type     types.EntryType
	Name     string
	Address  string
	Module   string
	FolderID string
	Tags     []string
	Notes    string
	Metadata map[string]any
}

// Add creates a new entry and persists it.
func (s *Store) Add(ctx context.Context, p AddEntryParams) (*types.LibraryEntry, error) {
	now := time.Now().UnixMilli()
	entry := &types.LibraryEntry{
		ID:        newID(),
		Type:      p.Type,
		Name:      p.Name,
		Address:   p.Address,
		Module:    p.Module,
		FolderID:  p.FolderID,
		Tags:      p.Tags,
		Notes:     p.Notes,
		Metadata:  p.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.doc.Entries[entry.ID] = entry
	s.mu.Unlock()

	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return entry, nil
}

// Get returns one entry by id.
func (s *Store) Get(id string) (*types.LibraryEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.doc.Entries[id]
	return e, ok
}

// Update applies mutate to the entry and persists the result.
func (s *Store) Update(ctx context.Context, id string, mutate func(*types.LibraryEntry)) (*types.LibraryEntry, error) {
	s.mu.Lock()
	entry, ok := s.doc.Entries[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("library: no entry %q", id)
	}
	mutate(entry)
	entry.UpdatedAt = time.Now().UnixMilli()
	s.mu.Unlock()

	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return entry, nil
}

// Star sets an entry's starred flag.
func (s *Store) Star(ctx context.Context, id string, starred bool) (*types.LibraryEntry, error) {
	return s.Update(ctx, id, func(e *types.LibraryEntry) { e.Starred = starred })
}

// Move reassigns an entry's folder (empty string means unfiled).
func (s *Store) Move(ctx context.Context, id, folderID string) (*types.LibraryEntry, error) {
	return s.Update(ctx, id, func(e *types.LibraryEntry) { e.FolderID = folderID })
}

// Remove deletes an entry.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.doc.Entries[id]
	delete(s.doc.Entries, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("library: no entry %q", id)
	}
	return s.persist(ctx)
}

// AddFolder creates a folder, optionally nested under parentID.
func (s *Store) AddFolder(ctx context.Context, name, parentID string) (*types.LibraryFolder, error) {
	folder := &types.LibraryFolder{ID: newID(), Name: name, ParentID: parentID}
	s.mu.Lock()
	s.doc.Folders[folder.ID] = folder
	s.mu.Unlock()
	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return folder, nil
}

// RemoveFolder deletes a folder. If deleteContents is true, every entry
// filed under it is removed too; otherwise those entries are reparented
// to folderId=null (orphaned, not deleted).
func (s *Store) RemoveFolder(ctx context.Context, folderID string, deleteContents bool) error {
	s.mu.Lock()
	if _, ok := s.doc.Folders[folderID]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("library: no folder %q", folderID)
	}
	delete(s.doc.Folders, folderID)
	for _, e := range s.doc.Entries {
		if e.FolderID != folderID {
			continue
		}
		if deleteContents {
			delete(s.doc.Entries, e.ID)
		} else {
			e.FolderID = ""
		}
	}
	s.mu.Unlock()
	return s.persist(ctx)
}

// Query describes a filter -> search -> sort pipeline over the entry
// set, applied in that fixed order.
type Query struct {
	FolderID  string // if non-empty, restrict to this folder
	Type      types.EntryType // if non-empty, restrict to this type
	Search    string // substring match against name, falling back to fuzzy
	Tag       string // if non-empty, restrict to entries carrying this tag
	GlobFilter string // if non-empty, a doublestar pattern matched against "folder/name"
	SortBy    SortField
}

// SortField is a column the result can be ordered by.
type SortField string

const (
	SortByName    SortField = "name"
	SortByCreated SortField = "created_at"
	SortByUpdated SortField = "updated_at"
)

// List applies q's filter, search, and sort stages in order and returns
// the resulting entries.
func (s *Store) List(q Query) []*types.LibraryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*types.LibraryEntry
	for _, e := range s.doc.Entries {
		if q.FolderID != "" && e.FolderID != q.FolderID {
			continue
		}
		if q.Type != "" && e.Type != q.Type {
			continue
		}
		if q.Tag != "" && !hasTag(e.Tags, q.Tag) {
			continue
		}
		if q.GlobFilter != "" {
			folderName := s.folderNameLocked(e.FolderID)
			matched, _ := doublestar.Match(q.GlobFilter, folderName+"/"+e.Name)
			if !matched {
				continue
			}
		}
		out = append(out, e)
	}

	if q.Search != "" {
		out = filterBySearch(out, q.Search)
	}

	switch q.SortBy {
	case SortByCreated:
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	case SortByUpdated:
		sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt < out[j].UpdatedAt })
	default:
		sort.Slice(out, func(i, j int) bool {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		})
	}

	return out
}

func (s *Store) folderNameLocked(folderID string) string {
	if folderID == "" {
		return ""
	}
	if f, ok := s.doc.Folders[folderID]; ok {
		return f.Name
	}
	return ""
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// filterBySearch keeps entries whose name contains search as a substring
// (case-insensitive); if none match, it falls back to a Levenshtein
// fuzzy match within a small edit-distance budget, so a typo'd search
// still surfaces the entry a user meant.
func filterBySearch(entries []*types.LibraryEntry, search string) []*types.LibraryEntry {
	needle := strings.ToLower(search)
	var exact []*types.LibraryEntry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Name), needle) {
			exact = append(exact, e)
		}
	}
	if len(exact) > 0 {
		return exact
	}

	const fuzzyBudget = 3
	var fuzzy []*types.LibraryEntry
	for _, e := range entries {
		if levenshtein.ComputeDistance(strings.ToLower(e.Name), needle) <= fuzzyBudget {
			fuzzy = append(fuzzy, e)
		}
	}
	return fuzzy
}

// Export returns the full document, suitable for JSON serialization.
func (s *Store) Export() *types.LibraryDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Import merges doc into the store, assigning every incoming entry and
// folder a fresh id so importing the same export twice never collides
// with (or silently overwrites) existing entries. Every imported entry's
// CreatedAt/UpdatedAt is rewritten to the import time, not carried over
// from the source document, so an entry's timestamps always reflect when
// it entered this store.
func (s *Store) Import(ctx context.Context, doc *types.LibraryDocument) (int, error) {
	folderIDMap := make(map[string]string)
	now := time.Now().UnixMilli()

	s.mu.Lock()
	for oldID, folder := range doc.Folders {
		newFolderID := newID()
		folderIDMap[oldID] = newFolderID
		clone := *folder
		clone.ID = newFolderID
		if clone.ParentID != "" {
			if mapped, ok := folderIDMap[clone.ParentID]; ok {
				clone.ParentID = mapped
			}
		}
		s.doc.Folders[newFolderID] = &clone
	}

	imported := 0
	for _, entry := range doc.Entries {
		clone := *entry
		clone.ID = newID()
		clone.CreatedAt = now
		clone.UpdatedAt = now
		if clone.FolderID != "" {
			if mapped, ok := folderIDMap[clone.FolderID]; ok {
				clone.FolderID = mapped
			} else {
				clone.FolderID = ""
			}
		}
		s.doc.Entries[clone.ID] = &clone
		imported++
	}
	s.mu.Unlock()

	if err := s.persist(ctx); err != nil {
		return 0, err
	}
	return imported, nil
}
