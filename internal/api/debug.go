package api

import (
	"net/http"
	"time"

	"tourney/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	solvers := []string{}
	for _, c := range s.Solvers.Capabilities() {
		solvers = append(solvers, c.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"build":   buildinfo.Info(),
		"time":    time.Now().UTC().Format(time.RFC3339),
		"config":  s.Config.Snapshot(),
		"solvers": solvers,
	})
}
