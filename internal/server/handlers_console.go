package server

import (
	"net/http"

	"github.com/eunhhu/carf-sub000/internal/consolelog"
	"github.com/eunhhu/carf-sub000/pkg/types"
)

// listConsoleEntries returns the general log ring, optionally filtered.
func (s *Server) listConsoleEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := consolelog.Filter{
		Level:    types.LogLevel(q.Get("level")),
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}
	writeJSON(w, http.StatusOK, s.console.Entries(filter))
}

// listHookEntries returns the hook-call ring.
func (s *Server) listHookEntries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.console.HookEntries())
}

// clearConsole empties the general log ring; the hook ring is left as is.
func (s *Server) clearConsole(w http.ResponseWriter, r *http.Request) {
	s.console.Clear()
	writeSuccess(w)
}

// pauseConsole stops new entries from being recorded in the general log
// ring; hook entries are still recorded.
func (s *Server) pauseConsole(w http.ResponseWriter, r *http.Request) {
	s.console.Pause()
	writeSuccess(w)
}

// resumeConsole resumes recording.
func (s *Server) resumeConsole(w http.ResponseWriter, r *http.Request) {
	s.console.Resume()
	writeSuccess(w)
}
