package server

import (
	"encoding/json"
	"net/http"

	"github.com/hyperjump/vexus/internal/models"
)

func (s *Server) handleSVD(w http.ResponseWriter, r *http.Request) {
	var req models.SVDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	basis, err := s.analyzer.SVD(req.Vectors, req.N, req.MaxK)
	if err != nil {
		s.fail(w, "svd", err)
		return
	}
	s.respondJSON(w, http.StatusOK, basis)
}

func (s *Server) handleOrthogonal(w http.ResponseWriter, r *http.Request) {
	var req models.OrthogonalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	proj, err := s.analyzer.OrthogonalProjection(req.Query, req.Candidates, req.N)
	if err != nil {
		s.fail(w, "orthogonal projection", err)
		return
	}
	s.respondJSON(w, http.StatusOK, proj)
}

func (s *Server) handleHandshake(w http.ResponseWriter, r *http.Request) {
	var req models.HandshakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	hs, err := s.analyzer.Handshakes(req.Query, req.References, req.N)
	if err != nil {
		s.fail(w, "handshake", err)
		return
	}
	s.respondJSON(w, http.StatusOK, hs)
}

func (s *Server) handleSubspace(w http.ResponseWriter, r *http.Request) {
	var req models.SubspaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sub, err := s.analyzer.Project(req.Query, req.Basis, req.Mean, req.K)
	if err != nil {
		s.fail(w, "subspace projection", err)
		return
	}
	s.respondJSON(w, http.StatusOK, sub)
}
