package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	// Device and process discovery
	r.Route("/devices", func(r chi.Router) {
		r.Get("/", s.listDevices)
		r.Get("/{deviceID}/processes", s.listProcesses)
	})

	// Session lifecycle
	r.Route("/session", func(r chi.Router) {
		r.Get("/", s.getSession)
		r.Post("/attach", s.attachSession)
		r.Post("/detach", s.detachSession)
		r.Post("/spawn", s.spawnProcess)

		// Generic agent method dispatch
		r.Post("/agent/{method}", s.callAgentMethod)
	})

	// Library
	r.Route("/library", func(r chi.Router) {
		r.Get("/", s.listLibraryEntries)
		r.Post("/", s.addLibraryEntry)
		r.Get("/export", s.exportLibrary)
		r.Post("/import", s.importLibrary)

		r.Route("/{entryID}", func(r chi.Router) {
			r.Patch("/", s.updateLibraryEntry)
			r.Delete("/", s.removeLibraryEntry)
			r.Post("/star", s.starLibraryEntry)
			r.Post("/move", s.moveLibraryEntry)
		})

		r.Post("/folders", s.addLibraryFolder)
		r.Delete("/folders/{folderID}", s.removeLibraryFolder)
	})

	// Console log
	r.Route("/console", func(r chi.Router) {
		r.Get("/", s.listConsoleEntries)
		r.Get("/hooks", s.listHookEntries)
		r.Post("/clear", s.clearConsole)
		r.Post("/pause", s.pauseConsole)
		r.Post("/resume", s.resumeConsole)
	})

	// Action router
	r.Route("/action", func(r chi.Router) {
		r.Post("/", s.queueAction)
		r.Get("/pending", s.consumePendingAction)
		r.Get("/recent", s.listRecentActions)
	})

	// Event streaming (SSE)
	r.Get("/event", s.allEvents)

	// Panel layout persistence
	r.Route("/layout", func(r chi.Router) {
		r.Get("/", s.getLayout)
		r.Put("/{panelID}", s.setPanelLayout)
	})

	// Instance management
	r.Get("/path", s.getPath)
}
