package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eunhhu/carf-sub000/internal/config"
)

type attachRequest struct {
	DeviceID string `json:"deviceId"`
	PID      uint32 `json:"pid"`
}

type spawnRequest struct {
	DeviceID string   `json:"deviceId"`
	Program  string   `json:"program"`
	Argv     []string `json:"argv"`
}

// listDevices returns the devices the backend currently sees.
func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.facade.ListDevices(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// listProcesses returns the processes visible on one device.
func (s *Server) listProcesses(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	procs, err := s.facade.ListProcesses(r.Context(), deviceID)
	if err != nil {
		writeError(w, http.StatusBadGateway, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, procs)
}

// getSession returns the current session and script, if any.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"state":   s.owner.State(),
		"session": s.owner.Session(),
		"script":  s.owner.Script(),
	})
}

// attachSession attaches to a process and loads the default script.
func (s *Server) attachSession(w http.ResponseWriter, r *http.Request) {
	var req attachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid body")
		return
	}

	sess, err := s.owner.Attach(r.Context(), req.DeviceID, req.PID)
	if err != nil {
		writeError(w, http.StatusConflict, ErrCodeInvalidRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// detachSession tears down the current session, idempotently.
func (s *Server) detachSession(w http.ResponseWriter, r *http.Request) {
	if err := s.owner.Detach(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, ErrCodeInternalError, err.Error())
		return
	}
	writeSuccess(w)
}

// spawnProcess spawns a new process on a device, suspended.
func (s *Server) spawnProcess(w http.ResponseWriter, r *http.Request) {
	var req spawnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid body")
		return
	}

	pid, err := s.facade.Spawn(r.Context(), req.DeviceID, req.Program, req.Argv)
	if err != nil {
		writeError(w, http.StatusBadGateway, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint32{"pid": pid})
}

// callAgentMethod proxies an arbitrary agent method call through the
// broker to the currently loaded script. The request body is passed
// through verbatim as the method's params.
func (s *Server) callAgentMethod(w http.ResponseWriter, r *http.Request) {
	method := chi.URLParam(r, "method")

	sess := s.owner.Session()
	script := s.owner.Script()
	if sess == nil || script == nil {
		writeError(w, http.StatusPreconditionFailed, ErrCodeInvalidRequest, "no attached session")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid body")
		return
	}
	var params json.RawMessage = body
	if len(body) == 0 {
		params = json.RawMessage("{}")
	}

	result, err := s.broker.Request(r.Context(), sess.SessionID, script.ScriptID, method, params)
	if err != nil {
		writeError(w, http.StatusBadGateway, ErrCodeInternalError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(result)
}

// getPath returns the control plane's standard data/config/cache/state
// directories.
func (s *Server) getPath(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, config.GetPaths())
}
