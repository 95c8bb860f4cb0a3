package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"schemadoctor/internal/probe"
	"schemadoctor/internal/scripts"
)

type healthResponse struct {
	Status  string `json:"status"`
	DataAPI string `json:"data_api"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.pinger.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "service_unhealthy", "data api unreachable")
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", DataAPI: "ok"})
}

type probeRequest struct {
	Record map[string]any `json:"record"`
}

// handleProbe runs exactly one probe. An empty body (or one without a record
// override) uses the default fixture.
func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	var req probeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}

	var record any
	if len(req.Record) > 0 {
		record = req.Record
	}

	report := s.prober.Run(r.Context(), record)
	status := http.StatusOK
	if report.Outcome == probe.OutcomeTransportFailure {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, report)
}

func (s *Server) handleMigrations(w http.ResponseWriter, r *http.Request) {
	list, err := scripts.List(s.migrationsDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "migrations_unavailable", err.Error())
		return
	}
	if list == nil {
		list = []scripts.Script{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"migrations": list})
}
