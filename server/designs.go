package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/richinex/anko/model"
	"github.com/richinex/anko/storage"
)

// DecisionRequest is a reviewer's verdict on a design.
type DecisionRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes,omitempty"`
}

var decisions = map[string]model.DesignStatus{
	"approve": model.DesignApproved,
	"reject":  model.DesignRejected,
	"revise":  model.DesignRevise,
}

func (s *Server) handleDesignList(w http.ResponseWriter, r *http.Request) {
	if s.designs == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "design store not configured")
		return
	}
	status := model.DesignStatus(r.URL.Query().Get("status"))
	list, err := s.designs.List(r.Context(), status)
	if err != nil {
		s.logger.Error("failed to list designs", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to list designs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"designs": list}, s.logger)
}

func (s *Server) handleDesignSubmit(w http.ResponseWriter, r *http.Request) {
	if s.designs == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "design store not configured")
		return
	}
	var d model.Design
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if d.ImageURL == "" {
		s.errorResponse(w, http.StatusBadRequest, "image_url is required")
		return
	}

	stored, err := s.designs.Submit(r.Context(), d)
	if err != nil {
		s.logger.Error("failed to submit design", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to submit design")
		return
	}
	s.logger.Info("design submitted", "id", stored.ID, "designed_by", stored.DesignedBy)
	writeJSON(w, http.StatusCreated, stored, s.logger)
}

func (s *Server) handleDesignDecision(w http.ResponseWriter, r *http.Request) {
	if s.designs == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "design store not configured")
		return
	}
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	decision, ok := decisions[req.Decision]
	if !ok {
		s.errorResponse(w, http.StatusBadRequest, "decision must be approve, reject or revise")
		return
	}

	d, err := s.designs.Decide(r.Context(), r.PathValue("id"), decision, req.Notes)
	switch {
	case errors.Is(err, storage.ErrDesignNotFound):
		s.errorResponse(w, http.StatusNotFound, "design not found")
	case errors.Is(err, storage.ErrDesignClosed):
		s.errorResponse(w, http.StatusConflict, err.Error())
	case err != nil:
		s.logger.Error("failed to record decision", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "failed to record decision")
	default:
		writeJSON(w, http.StatusOK, d, s.logger)
	}
}
