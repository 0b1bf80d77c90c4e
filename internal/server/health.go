package server

import (
	"net/http"

	"github.com/nao1215/scriptorium/internal/hostfacts"
	"github.com/nao1215/scriptorium/internal/model"
)

// healthResponse is the body of GET /api/health.
type healthResponse struct {
	// Status is "ok" while the service answers at all.
	Status string `json:"status"`
	// Host describes the machine the service runs on.
	Host model.HostFacts `json:"host"`
	// Scripts is the number of known scripts.
	Scripts int `json:"scripts"`
}

// handleHealth reports service liveness together with host facts and
// the current script count.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Host:    hostfacts.Collect(),
		Scripts: s.store.Len(),
	})
}
