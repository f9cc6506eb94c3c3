package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eunhhu/carf-sub000/internal/library"
	"github.com/eunhhu/carf-sub000/pkg/types"
)

// listLibraryEntries lists entries, optionally filtered/searched/sorted
// via query parameters.
func (s *Server) listLibraryEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := library.Query{
		FolderID:   q.Get("folderId"),
		Type:       types.EntryType(q.Get("type")),
		Search:     q.Get("search"),
		Tag:        q.Get("tag"),
		GlobFilter: q.Get("glob"),
		SortBy:     library.SortField(q.Get("sortBy")),
	}
	writeJSON(w, http.StatusOK, s.library.List(query))
}

type addEntryRequest struct {
	Type     types.EntryType `json:"type"`
	Name     string          `json:"name"`
	Address  string          `json:"address"`
	Module   string          `json:"module"`
	FolderID string          `json:"folderId"`
	Tags     []string        `json:"tags"`
	Notes    string          `json:"notes"`
	Metadata map[string]any  `json:"metadata"`
}

// addLibraryEntry adds a new entry.
func (s *Server) addLibraryEntry(w http.ResponseWriter, r *http.Request) {
	var req addEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid body")
		return
	}

	entry, err := s.library.Add(r.Context(), library.AddEntryParams{
		Type:     req.Type,
		Name:     req.Name,
		Address:  req.Address,
		Module:   req.Module,
		FolderID: req.FolderID,
		Tags:     req.Tags,
		Notes:    req.Notes,
		Metadata: req.Metadata,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

type updateEntryRequest struct {
	Name  *string  `json:"name"`
	Tags  []string `json:"tags"`
	Notes *string  `json:"notes"`
}

// updateLibraryEntry patches mutable fields of an entry.
func (s *Server) updateLibraryEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "entryID")

	var req updateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid body")
		return
	}

	entry, err := s.library.Update(r.Context(), id, func(e *types.LibraryEntry) {
		if req.Name != nil {
			e.Name = *req.Name
		}
		if req.Tags != nil {
			e.Tags = req.Tags
		}
		if req.Notes != nil {
			e.Notes = *req.Notes
		}
	})
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// removeLibraryEntry deletes an entry.
func (s *Server) removeLibraryEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "entryID")
	if err := s.library.Remove(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}
	writeSuccess(w)
}

type starRequest struct {
	Starred bool `json:"starred"`
}

// starLibraryEntry toggles an entry's starred flag.
func (s *Server) starLibraryEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "entryID")

	var req starRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid body")
		return
	}

	entry, err := s.library.Star(r.Context(), id, req.Starred)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type moveRequest struct {
	FolderID string `json:"folderId"`
}

// moveLibraryEntry reparents an entry to a different folder.
func (s *Server) moveLibraryEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "entryID")

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid body")
		return
	}

	entry, err := s.library.Move(r.Context(), id, req.FolderID)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type addFolderRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
}

// addLibraryFolder creates a new folder.
func (s *Server) addLibraryFolder(w http.ResponseWriter, r *http.Request) {
	var req addFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid body")
		return
	}

	folder, err := s.library.AddFolder(r.Context(), req.Name, req.ParentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

// removeLibraryFolder deletes a folder. ?deleteContents=true also deletes
// the entries under it; otherwise they are reparented to the root.
func (s *Server) removeLibraryFolder(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "folderID")
	deleteContents := r.URL.Query().Get("deleteContents") == "true"

	if err := s.library.RemoveFolder(r.Context(), folderID, deleteContents); err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}
	writeSuccess(w)
}

// exportLibrary returns the whole library document.
func (s *Server) exportLibrary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.library.Export())
}

// importLibrary merges a library document into the store, assigning
// fresh ids to every imported folder and entry.
func (s *Server) importLibrary(w http.ResponseWriter, r *http.Request) {
	var doc types.LibraryDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid body")
		return
	}

	count, err := s.library.Import(r.Context(), &doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": count})
}
