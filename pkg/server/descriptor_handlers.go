package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/quiverml/quiver/pkg/data"
	"github.com/quiverml/quiver/pkg/descriptor"
	"github.com/quiverml/quiver/pkg/descriptorset"
	"github.com/quiverml/quiver/pkg/generator"
	"github.com/quiverml/quiver/pkg/httputil"
	"github.com/quiverml/quiver/pkg/plugin"
)

// ComputeRequest names a data element to describe. The source is a
// pluggable-slot tree for the data-element interface. Overwrite forces
// recomputation even when the factory already holds a vector for the
// source's UUID.
type ComputeRequest struct {
	Source    plugin.Config `json:"source"`
	Overwrite bool          `json:"overwrite,omitempty"`
}

// ComputeBatchRequest carries several sources processed concurrently.
type ComputeBatchRequest struct {
	Sources []plugin.Config `json:"sources"`
}

// DescriptorResponse reports one stored descriptor.
type DescriptorResponse struct {
	UUID      string    `json:"uuid"`
	Dimension int       `json:"dimension"`
	Vector    []float64 `json:"vector,omitempty"`
}

// computeDescriptor handles POST /api/v1/descriptors
func (s *Server) computeDescriptor(w http.ResponseWriter, r *http.Request) {
	var req ComputeRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Source == nil {
		httputil.WriteBadRequest(w, "source is required")
		return
	}

	pipe := s.pipeline.current()
	elem, err := s.resolveSource(req.Source)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	start := time.Now()
	var desc descriptor.Element
	if req.Overwrite {
		desc, err = pipe.generator.Generate(r.Context(), elem, pipe.factory)
	} else {
		desc, err = generator.GenerateIfMissing(r.Context(), pipe.generator, pipe.factory, elem)
	}
	if err != nil {
		s.recordConstructError("descriptor-generator", "generate")
		httputil.WriteError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.recordCompute(pipe.generatorName, time.Since(start), 1)

	if err := s.storeDescriptors(r, pipe, desc); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, descriptorResponse(desc.UUID(), desc, false))
}

// computeDescriptorBatch handles POST /api/v1/descriptors/batch
func (s *Server) computeDescriptorBatch(w http.ResponseWriter, r *http.Request) {
	var req ComputeBatchRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if len(req.Sources) == 0 {
		httputil.WriteBadRequest(w, "sources is required")
		return
	}

	pipe := s.pipeline.current()
	sources := make([]data.Element, 0, len(req.Sources))
	for _, tree := range req.Sources {
		elem, err := s.resolveSource(tree)
		if err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		sources = append(sources, elem)
	}

	start := time.Now()
	descs, err := generator.GenerateMany(r.Context(), pipe.generator, pipe.factory, sources, s.cfg.Pipeline.Concurrency)
	if err != nil {
		s.recordConstructError("descriptor-generator", "generate")
		httputil.WriteError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.recordCompute(pipe.generatorName, time.Since(start), len(descs))

	if err := s.storeDescriptors(r, pipe, descs...); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	out := make([]DescriptorResponse, 0, len(descs))
	for _, desc := range descs {
		out = append(out, descriptorResponse(desc.UUID(), desc, false))
	}
	httputil.WriteCreated(w, map[string]interface{}{"descriptors": out})
}

// listDescriptors handles GET /api/v1/descriptors
func (s *Server) listDescriptors(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.ParseQueryInt(r, "limit", 0)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid limit")
		return
	}
	offset, err := httputil.ParseQueryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid offset")
		return
	}

	pipe := s.pipeline.current()
	start := time.Now()
	uuids, err := pipe.set.UUIDs(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	s.recordSetOp(pipe.setName, "list", time.Since(start))

	total := len(uuids)
	if offset > 0 {
		if offset > total {
			offset = total
		}
		uuids = uuids[offset:]
	}
	if limit > 0 && limit < len(uuids) {
		uuids = uuids[:limit]
	}
	httputil.WriteSuccess(w, map[string]interface{}{"uuids": uuids, "total": total})
}

// getDescriptor handles GET /api/v1/descriptors/{uuid}
func (s *Server) getDescriptor(w http.ResponseWriter, r *http.Request) {
	uuid, ok := httputil.ParsePathStringOrError(w, r, "uuid")
	if !ok {
		return
	}

	pipe := s.pipeline.current()
	start := time.Now()
	desc, err := pipe.set.Get(r.Context(), uuid)
	if err != nil {
		var notFound *descriptorset.NotFoundError
		if errors.As(err, &notFound) {
			httputil.WriteNotFound(w, err.Error())
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	s.recordSetOp(pipe.setName, "get", time.Since(start))

	httputil.WriteSuccess(w, descriptorResponse(uuid, desc, true))
}

// deleteDescriptor handles DELETE /api/v1/descriptors/{uuid}
func (s *Server) deleteDescriptor(w http.ResponseWriter, r *http.Request) {
	uuid, ok := httputil.ParsePathStringOrError(w, r, "uuid")
	if !ok {
		return
	}

	pipe := s.pipeline.current()
	start := time.Now()
	if err := pipe.set.Remove(r.Context(), uuid); err != nil {
		var notFound *descriptorset.NotFoundError
		if errors.As(err, &notFound) {
			httputil.WriteNotFound(w, err.Error())
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	s.recordSetOp(pipe.setName, "remove", time.Since(start))

	httputil.WriteNoContent(w)
}

// resolveSource constructs a data element from its slot tree.
func (s *Server) resolveSource(tree plugin.Config) (data.Element, error) {
	elem, err := plugin.Resolve[data.Element](s.registry, data.InterfaceName, tree)
	if err != nil {
		s.recordConstructError(data.InterfaceName, "resolve")
		return nil, err
	}
	return elem, nil
}

func (s *Server) storeDescriptors(r *http.Request, pipe *pipeline, descs ...descriptor.Element) error {
	start := time.Now()
	if err := pipe.set.Add(r.Context(), descs...); err != nil {
		return err
	}
	s.recordSetOp(pipe.setName, "add", time.Since(start))
	return nil
}

func descriptorResponse(uuid string, desc descriptor.Element, includeVector bool) DescriptorResponse {
	v, _ := desc.Vector()
	resp := DescriptorResponse{UUID: uuid, Dimension: len(v)}
	if includeVector {
		resp.Vector = v
	}
	return resp
}

func (s *Server) recordCompute(generatorName string, elapsed time.Duration, n int) {
	if s.metrics == nil {
		return
	}
	s.metrics.DescriptorComputeTotal.WithLabelValues(generatorName, "ok").Add(float64(n))
	s.metrics.DescriptorComputeDuration.WithLabelValues(generatorName).Observe(elapsed.Seconds())
}

func (s *Server) recordSetOp(backend, operation string, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.SetOperationsTotal.WithLabelValues(operation, backend, "ok").Inc()
	s.metrics.SetOperationDuration.WithLabelValues(operation, backend).Observe(elapsed.Seconds())
}

func (s *Server) recordConstructError(iface, reason string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ConstructErrorsTotal.WithLabelValues(iface, reason).Inc()
}
