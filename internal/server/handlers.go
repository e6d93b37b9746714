package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "propertypulse",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleSystemStatus handles system status requests
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := map[string]interface{}{
		"status": "running",
		"memory": map[string]interface{}{
			"alloc_mb":       m.Alloc / 1024 / 1024,
			"total_alloc_mb": m.TotalAlloc / 1024 / 1024,
			"sys_mb":         m.Sys / 1024 / 1024,
			"num_gc":         m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}

	if snap := s.dashboard.Current(); snap != nil {
		response["snapshot"] = map[string]interface{}{
			"id":           snap.ID,
			"generated_at": snap.Report.GeneratedAt.Format(time.RFC3339),
			"total_tx":     snap.Report.TotalTx,
		}
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleDashboard returns the full report of the current snapshot.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	snap := s.dashboard.Current()
	if snap == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no dashboard snapshot available yet")
		return
	}
	s.writeJSON(w, http.StatusOK, snap.Report)
}

// handleDashboardMeta returns snapshot metadata without the full payload.
func (s *Server) handleDashboardMeta(w http.ResponseWriter, r *http.Request) {
	snap := s.dashboard.Current()
	if snap == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no dashboard snapshot available yet")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":                snap.ID,
		"generated_at":      snap.Report.GeneratedAt.Format(time.RFC3339),
		"total_tx":          snap.Report.TotalTx,
		"skipped_records":   snap.Report.SkippedRecords,
		"rentals_available": snap.Report.RentalsAvailable,
	})
}

// handleDashboardRefresh triggers a refresh immediately.
func (s *Server) handleDashboardRefresh(w http.ResponseWriter, r *http.Request) {
	s.log.Info().Msg("Manual dashboard refresh triggered")

	snap, err := s.dashboard.Refresh(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Manual refresh failed")
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"snapshot": snap.ID,
		"total_tx": snap.Report.TotalTx,
	})
}

// handleTransactions returns the recent transactions of the current snapshot.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	snap := s.dashboard.Current()
	if snap == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no dashboard snapshot available yet")
		return
	}
	s.writeJSON(w, http.StatusOK, snap.Report.TopTransactions)
}

// handleProject returns the summary for a single project by name.
func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	snap := s.dashboard.Current()
	if snap == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no dashboard snapshot available yet")
		return
	}

	name := chi.URLParam(r, "name")
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}

	summary, ok := snap.Report.Projects[name]
	if !ok {
		s.writeError(w, http.StatusNotFound, "project not found")
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
