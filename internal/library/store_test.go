package library

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eunhhu/carf-sub000/internal/event"
	"github.com/eunhhu/carf-sub000/internal/storage"
	"github.com/eunhhu/carf-sub000/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	event.Reset()
	t.Cleanup(event.Reset)

	st := storage.New(t.TempDir())
	store, err := New(context.Background(), st)
	require.NoError(t, err)
	return store
}

func TestStore_AddGetRemove(t *testing.T) {
	store := newTestStore(t)

	entry, err := store.Add(context.Background(), AddEntryParams{Type: types.EntryFunction, Name: "main"})
	require.NoError(t, err)
	require.NotEmpty(t, entry.ID)

	got, ok := store.Get(entry.ID)
	require.True(t, ok)
	require.Equal(t, "main", got.Name)

	require.NoError(t, store.Remove(context.Background(), entry.ID))
	_, ok = store.Get(entry.ID)
	require.False(t, ok)
}

func TestStore_RoundTripFiveEntriesTwoStarredThreeTagged(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ids := make([]string, 5)
	for i := 0; i < 5; i++ {
		e, err := store.Add(ctx, AddEntryParams{Type: types.EntryAddress, Name: string(rune('a' + i))})
		require.NoError(t, err)
		ids[i] = e.ID
	}

	for i := 0; i < 2; i++ {
		_, err := store.Star(ctx, ids[i], true)
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err := store.Update(ctx, ids[i], func(e *types.LibraryEntry) { e.Tags = append(e.Tags, "tagged") })
		require.NoError(t, err)
	}

	exported := store.Export()
	require.Len(t, exported.Entries, 5)

	beforeImport := time.Now().UnixMilli()
	fresh := newTestStore(t)
	imported, err := fresh.Import(ctx, exported)
	require.NoError(t, err)
	require.Equal(t, 5, imported)

	all := fresh.List(Query{})
	require.Len(t, all, 5)

	starred := 0
	tagged := 0
	for _, e := range all {
		if e.Starred {
			starred++
		}
		if hasTag(e.Tags, "tagged") {
			tagged++
		}
	}
	require.Equal(t, 2, starred)
	require.Equal(t, 3, tagged)

	// Import assigns fresh ids, so none of the imported entries collide
	// with the originals.
	for _, e := range all {
		require.NotContains(t, ids, e.ID)
	}

	// Import rewrites timestamps to the import time rather than carrying
	// over whatever CreatedAt/UpdatedAt the exporting store recorded.
	for _, e := range all {
		require.GreaterOrEqual(t, e.CreatedAt, beforeImport)
		require.GreaterOrEqual(t, e.UpdatedAt, beforeImport)
	}
}

func TestStore_RemoveFolderOrphansWithoutDeleteContents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	folder, err := store.AddFolder(ctx, "scripts", "")
	require.NoError(t, err)

	entry, err := store.Add(ctx, AddEntryParams{Type: types.EntryFunction, Name: "f", FolderID: folder.ID})
	require.NoError(t, err)

	require.NoError(t, store.RemoveFolder(ctx, folder.ID, false))

	got, ok := store.Get(entry.ID)
	require.True(t, ok)
	require.Empty(t, got.FolderID)
}

func TestStore_SearchFallsBackToFuzzy(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, err := store.Add(ctx, AddEntryParams{Type: types.EntryFunction, Name: "decryptPayload"})
	require.NoError(t, err)

	results := store.List(Query{Search: "decryptPaylod"}) // one missing letter
	require.Len(t, results, 1)
}

func TestStore_SortByNameIsLocaleAware(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, _ = store.Add(ctx, AddEntryParams{Type: types.EntryFunction, Name: "Banana"})
	_, _ = store.Add(ctx, AddEntryParams{Type: types.EntryFunction, Name: "apple"})

	results := store.List(Query{SortBy: SortByName})
	require.Len(t, results, 2)
	require.Equal(t, "apple", results[0].Name)
	require.Equal(t, "Banana", results[1].Name)
}
