package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/vexus/internal/errs"
	"github.com/hyperjump/vexus/internal/models"
	"github.com/hyperjump/vexus/internal/storage"
	"github.com/hyperjump/vexus/internal/vector"
	"go.uber.org/zap"
)

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	var input models.VectorInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := input.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.Insert(input.ID, input.Vector); err != nil {
		s.fail(w, "insert", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{"id": input.ID, "status": "inserted"})
}

func (s *Server) handleInsertBatch(w http.ResponseWriter, r *http.Request) {
	var input models.BatchInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := input.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("batch insert request", zap.Int("count", len(input.IDs)))
	if err := s.store.InsertBatch(input.IDs, input.Vectors); err != nil {
		var ee *errs.EngineError
		if errors.As(err, &ee) && ee.Index >= 0 {
			s.logger.Error("batch insert stopped", zap.Int("index", ee.Index), zap.Error(err))
			s.respondJSON(w, statusFor(err), map[string]any{"error": err.Error(), "inserted": ee.Index})
			return
		}
		s.fail(w, "batch insert", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, models.BatchResponse{Inserted: len(input.IDs)})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	s.logger.Debug("remove vector request", zap.Uint32("id", id))
	if err := s.store.Remove(id); err != nil {
		s.fail(w, "remove", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	start := time.Now()
	results, err := s.store.Search(query.Query, query.K)
	if err != nil {
		s.fail(w, "search", err)
		return
	}
	response := models.SearchResponse{
		Results:   make([]models.SearchResult, len(results)),
		QueryTime: time.Since(start).Milliseconds(),
	}
	for i, res := range results {
		response.Results[i] = models.SearchResult{ID: res.ID, Score: res.Score}
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Stats()
	if err != nil {
		s.fail(w, "stats", err)
		return
	}
	resp := models.StatsResponse{
		Count:       st.Count,
		Dimensions:  st.Dimensions,
		Capacity:    st.Capacity,
		MemoryUsage: st.MemoryUsage,
		IndexType:   s.config.Index.Type,
		IndexPath:   s.config.Index.Path,
	}
	if diskBytes, err := vector.DiskUsageBytes(s.config.Index.Path); err == nil {
		resp.DiskUsageBytes = &diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req models.SaveRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	path := req.Path
	if path == "" {
		path = s.config.Index.Path
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	if err := s.store.Save(path); err != nil {
		s.fail(w, "save", err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.SaveResponse{Path: path})
}

func (s *Server) handleRecover(w http.ResponseWriter, r *http.Request) {
	var req models.RecoverRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	q := storage.Query{Table: storage.Table(req.Table), Group: req.Group}
	if q.Table == "" {
		q.Table = storage.Table(s.config.Recovery.Table)
	}
	if q.Group == "" {
		q.Group = s.config.Recovery.Group
	}

	ctx := r.Context()
	src, err := s.open(ctx)
	if err != nil {
		s.logger.Error("recovery source unavailable", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	defer src.Close()

	res, err := s.store.RecoverFrom(ctx, src, q)
	if err != nil {
		s.fail(w, "recover", err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.RecoverResponse{
		Inserted: res.Inserted,
		Skipped:  res.Skipped,
		Failed:   res.Failed,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondJSON encodes data before writing the header. Values JSON cannot
// carry (NaN, ±Inf) yield a 500 with an error body.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		s.logger.Error("failed to encode response", zap.Int("status", status), zap.Error(err))
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(map[string]string{"error": "response not representable as JSON: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Debug("failed to write response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
