package server

import (
	"encoding/json"
	"net/http"

	"github.com/eunhhu/carf-sub000/internal/action"
)

// queueAction records a new pending navigation action.
func (s *Server) queueAction(w http.ResponseWriter, r *http.Request) {
	var a action.Action
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid body")
		return
	}
	s.actions.QueueAction(a)
	writeSuccess(w)
}

// consumePendingAction returns and clears the single pending action slot.
func (s *Server) consumePendingAction(w http.ResponseWriter, r *http.Request) {
	a, ok := s.actions.ConsumePendingAction()
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// listRecentActions returns the recent-items ring, most recent first.
func (s *Server) listRecentActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.actions.Recent())
}
