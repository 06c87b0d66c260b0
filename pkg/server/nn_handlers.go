package server

import (
	"net/http"
	"time"

	"github.com/quiverml/quiver/pkg/httputil"
	"github.com/quiverml/quiver/pkg/plugin"
)

// QueryRequest asks for the k nearest neighbors of either a raw vector or a
// data element described by a slot tree. Exactly one of Vector and Source
// must be set.
type QueryRequest struct {
	Vector []float64     `json:"vector,omitempty"`
	Source plugin.Config `json:"source,omitempty"`
	K      int           `json:"k"`
}

// NeighborResponse is one query result, closest first.
type NeighborResponse struct {
	UUID     string  `json:"uuid"`
	Distance float64 `json:"distance"`
}

// queryNeighbors handles POST /api/v1/nn
func (s *Server) queryNeighbors(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.K <= 0 {
		req.K = 10
	}
	if (req.Vector == nil) == (req.Source == nil) {
		httputil.WriteBadRequest(w, "exactly one of vector and source is required")
		return
	}

	pipe := s.pipeline.current()
	query := req.Vector
	if req.Source != nil {
		elem, err := s.resolveSource(req.Source)
		if err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		desc, err := pipe.generator.Generate(r.Context(), elem, pipe.factory)
		if err != nil {
			httputil.WriteError(w, http.StatusUnprocessableEntity, err)
			return
		}
		query, _ = desc.Vector()
	}

	start := time.Now()
	neighbors, err := pipe.index.Query(r.Context(), query, req.K)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if s.metrics != nil {
		s.metrics.IndexQueriesTotal.WithLabelValues(pipe.indexName, "ok").Inc()
		s.metrics.IndexQueryDuration.WithLabelValues(pipe.indexName).Observe(time.Since(start).Seconds())
	}

	out := make([]NeighborResponse, 0, len(neighbors))
	for _, n := range neighbors {
		out = append(out, NeighborResponse{UUID: n.Element.UUID(), Distance: n.Distance})
	}
	httputil.WriteSuccess(w, map[string]interface{}{"neighbors": out})
}

// buildIndex handles POST /api/v1/nn/build: it rebuilds the index from the
// full contents of the descriptor set.
func (s *Server) buildIndex(w http.ResponseWriter, r *http.Request) {
	pipe := s.pipeline.current()

	uuids, err := pipe.set.UUIDs(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	elems, err := pipe.set.GetMany(r.Context(), uuids)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	start := time.Now()
	if err := pipe.index.Build(r.Context(), elems); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.IndexBuildDuration.WithLabelValues(pipe.indexName).Observe(time.Since(start).Seconds())
	}

	count, err := pipe.index.Count(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"indexed": count})
}
