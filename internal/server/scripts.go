package server

import (
	"encoding/json"
	"net/http"

	"github.com/nao1215/scriptorium/internal/hub"
)

// createScriptRequest is the body of POST /api/scripts.
type createScriptRequest struct {
	// Name is the script file name, extension included.
	Name string `json:"name"`
	// Code is the script source.
	Code string `json:"code"`
}

// updateScriptRequest is the body of PUT /api/scripts/{name}.
type updateScriptRequest struct {
	// Code replaces the script source.
	Code string `json:"code"`
}

// handleListScripts returns the sorted names of all known scripts.
func (s *Server) handleListScripts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.List())
}

// handleCreateScript writes a new script file and announces it.
func (s *Server) handleCreateScript(w http.ResponseWriter, r *http.Request) {
	var req createScriptRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := s.store.Create(req.Name, req.Code); err != nil {
		writeDomainError(w, err)
		return
	}

	s.logger.Info("script created", "script", req.Name)
	s.hub.Broadcast(hub.Event{Type: hub.EventScriptCreated, Script: req.Name})
	writeJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
}

// handleUpdateScript replaces the code of an existing script.
func (s *Server) handleUpdateScript(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req updateScriptRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := s.store.Update(name, req.Code); err != nil {
		writeDomainError(w, err)
		return
	}

	s.logger.Info("script updated", "script", name)
	s.hub.Broadcast(hub.Event{Type: hub.EventScriptUpdated, Script: name})
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteScript removes a script.
func (s *Server) handleDeleteScript(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if err := s.store.Delete(name); err != nil {
		writeDomainError(w, err)
		return
	}

	s.logger.Info("script deleted", "script", name)
	s.hub.Broadcast(hub.Event{Type: hub.EventScriptDeleted, Script: name})
	w.WriteHeader(http.StatusNoContent)
}
