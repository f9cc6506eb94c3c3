package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eunhhu/carf-sub000/internal/menu"
)

// getLayout returns every persisted panel position.
func (s *Server) getLayout(w http.ResponseWriter, r *http.Request) {
	s.layoutMu.Lock()
	defer s.layoutMu.Unlock()
	writeJSON(w, http.StatusOK, s.layout)
}

// setPanelLayout records one panel's position and persists the whole
// layout document to disk immediately, the way the library store
// persists on every mutating call.
func (s *Server) setPanelLayout(w http.ResponseWriter, r *http.Request) {
	panelID := chi.URLParam(r, "panelID")

	var state menu.PanelState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid panel state: "+err.Error())
		return
	}

	s.layoutMu.Lock()
	s.layout.SetPanel(panelID, state)
	err := menu.SaveLayout(s.layoutPath, s.layout)
	s.layoutMu.Unlock()

	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, "save layout: "+err.Error())
		return
	}
	writeSuccess(w)
}
