package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	openke "github.com/lzw429/OpenKE-Embedding-Service"
	"github.com/lzw429/OpenKE-Embedding-Service/api"
	"github.com/lzw429/OpenKE-Embedding-Service/model"
)

var errBadRequest = errors.New("bad request")

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", errBadRequest, err)
}

type handlerFunc[Req any] func(ctx context.Context, req *Req, strict bool) (any, error)

func handle[Req any](s *Server, fn handlerFunc[Req]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		strict, err := strictMode(r)
		if err != nil {
			s.fail(w, r, badRequest(err))
			return
		}
		var req Req
		if err := s.decode(w, r, &req); err != nil {
			s.fail(w, r, badRequest(err))
			return
		}
		resp, err := fn(r.Context(), &req, strict)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		s.writeJSON(w, r, http.StatusOK, resp)
	}
}

func strictMode(r *http.Request) (bool, error) {
	v := r.URL.Query().Get(api.StrictParam)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.maxBodyBytes))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return errors.New("empty request body")
	}
	return s.opts.codec.Unmarshal(data, v)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	data, err := s.opts.codec.Marshal(v)
	if err != nil {
		s.opts.logger.ErrorContext(r.Context(), "encode response failed", "error", err)
		code = http.StatusInternalServerError
		data, _ = s.opts.codec.Marshal(api.ErrorResponse{Error: err.Error(), Kind: api.KindInternal})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, code int, kind string, err error) {
	s.writeJSON(w, r, code, api.ErrorResponse{Error: err.Error(), Kind: kind})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadRequest):
		s.writeError(w, r, http.StatusBadRequest, api.KindBadRequest, err)
	case errors.Is(err, openke.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, api.KindNotFound, err)
	case errors.Is(err, openke.ErrOutOfRange):
		s.writeError(w, r, http.StatusRequestedRangeNotSatisfiable, api.KindOutOfRange, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.writeError(w, r, http.StatusGatewayTimeout, api.KindTimeout, err)
	case errors.Is(err, openke.ErrClosed):
		s.writeError(w, r, http.StatusServiceUnavailable, api.KindOverloaded, err)
	default:
		s.opts.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		s.writeError(w, r, http.StatusInternalServerError, api.KindInternal, err)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, api.HealthResponse{Status: "ok", Stats: s.svc.Stats()})
}

func (s *Server) vectorByKey(ctx context.Context, kind model.Kind, key string, strict bool) ([]float32, error) {
	if strict {
		return s.svc.VectorByKey(kind, key)
	}
	return s.fb.VectorByKey(ctx, kind, key), nil
}

// vectorByID treats an invalid wire id as out of range.
func (s *Server) vectorByID(ctx context.Context, kind model.Kind, wire int64, strict bool) ([]float32, error) {
	id, _ := api.ID(wire)
	if strict {
		return s.svc.VectorByID(kind, id)
	}
	return s.fb.VectorByID(ctx, kind, id), nil
}

func (s *Server) adjacency(ctx context.Context, key string, dir model.Direction, strict bool) ([]api.Triple, error) {
	if strict {
		triples, err := s.svc.Adjacency(key, dir)
		if err != nil {
			return nil, err
		}
		return api.FromTriples(triples), nil
	}
	return api.FromTriples(s.fb.Adjacency(ctx, key, dir)), nil
}

func (s *Server) idByKey(ctx context.Context, kind model.Kind, key string, strict bool) (int64, error) {
	if strict {
		id, err := s.svc.IDByKey(kind, key)
		if err != nil {
			return 0, err
		}
		return api.WireID(id), nil
	}
	return api.WireID(s.fb.IDByKey(ctx, kind, key)), nil
}

func (s *Server) entityEmbeddingByMid(ctx context.Context, req *api.MidRequest, strict bool) (any, error) {
	vec, err := s.vectorByKey(ctx, model.Entity, req.Mid, strict)
	if err != nil {
		return nil, err
	}
	return api.EntityEmbeddingResponse{EntityEmbedding: vec}, nil
}

func (s *Server) entityEmbeddingByEid(ctx context.Context, req *api.EidRequest, strict bool) (any, error) {
	vec, err := s.vectorByID(ctx, model.Entity, req.Eid, strict)
	if err != nil {
		return nil, err
	}
	return api.EntityEmbeddingResponse{EntityEmbedding: vec}, nil
}

func (s *Server) relationEmbeddingByRelation(ctx context.Context, req *api.RelationRequest, strict bool) (any, error) {
	vec, err := s.vectorByKey(ctx, model.Relation, req.Relation, strict)
	if err != nil {
		return nil, err
	}
	return api.RelationEmbeddingResponse{RelationEmbedding: vec}, nil
}

func (s *Server) relationEmbeddingByRid(ctx context.Context, req *api.RidRequest, strict bool) (any, error) {
	vec, err := s.vectorByID(ctx, model.Relation, req.Rid, strict)
	if err != nil {
		return nil, err
	}
	return api.RelationEmbeddingResponse{RelationEmbedding: vec}, nil
}

func (s *Server) adjList(ctx context.Context, req *api.MidRequest, strict bool) (any, error) {
	triples, err := s.adjacency(ctx, req.Mid, model.Forward, strict)
	if err != nil {
		return nil, err
	}
	return api.AdjListResponse{AdjList: triples}, nil
}

func (s *Server) inverseAdjList(ctx context.Context, req *api.MidRequest, strict bool) (any, error) {
	triples, err := s.adjacency(ctx, req.Mid, model.Inverse, strict)
	if err != nil {
		return nil, err
	}
	return api.InverseAdjListResponse{InverseAdjList: triples}, nil
}

func (s *Server) entityIDByMid(ctx context.Context, req *api.MidRequest, strict bool) (any, error) {
	id, err := s.idByKey(ctx, model.Entity, req.Mid, strict)
	if err != nil {
		return nil, err
	}
	return api.EntityIDResponse{EntityID: id}, nil
}

func (s *Server) relationIDByRelation(ctx context.Context, req *api.RelationRequest, strict bool) (any, error) {
	id, err := s.idByKey(ctx, model.Relation, req.Relation, strict)
	if err != nil {
		return nil, err
	}
	return api.RelationIDResponse{RelationID: id}, nil
}

func (s *Server) entityEmbeddingsByMids(ctx context.Context, req *api.MidsRequest, strict bool) (any, error) {
	if !strict {
		return api.EntityEmbeddingsResponse{EntityEmbeddings: s.fb.VectorsByKeys(ctx, model.Entity, req.Mids)}, nil
	}
	vecs, err := s.svc.VectorsByKeys(model.Entity, req.Mids)
	if err != nil {
		return nil, err
	}
	return api.EntityEmbeddingsResponse{EntityEmbeddings: vecs}, nil
}

func (s *Server) adjListByMids(ctx context.Context, req *api.MidsRequest, strict bool) (any, error) {
	dir, err := model.ParseDirection(req.Direction)
	if err != nil {
		return nil, badRequest(err)
	}
	if !strict {
		return api.AdjListResponse{AdjList: api.FromTriples(s.fb.AdjacencyByKeys(ctx, req.Mids, dir))}, nil
	}
	triples, err := s.svc.AdjacencyByKeys(req.Mids, dir)
	if err != nil {
		return nil, err
	}
	return api.AdjListResponse{AdjList: api.FromTriples(triples)}, nil
}

func (s *Server) tripleScore(ctx context.Context, req *api.TripleRequest, strict bool) (any, error) {
	t, err := req.Triple.Model()
	if err != nil {
		return nil, badRequest(err)
	}
	if !strict {
		return api.ScoreResponse{Score: s.fb.ScoreTriple(ctx, t)}, nil
	}
	score, err := s.svc.ScoreTriple(t)
	if err != nil {
		return nil, err
	}
	return api.ScoreResponse{Score: score}, nil
}

// subgraph builds from explicit triples, or from the neighbourhood of the
// seed keys. In strict mode an unresolved answer key is an error.
func (s *Server) subgraph(ctx context.Context, req *api.SubgraphRequest, strict bool) (any, error) {
	var (
		g   *api.SubgraphResponse
		err error
	)
	if len(req.Triples) == 0 && len(req.Seeds) > 0 {
		dir, derr := model.ParseDirection(req.Direction)
		if derr != nil {
			return nil, badRequest(derr)
		}
		g, err = s.svc.BuildSubgraphFromSeeds(ctx, req.Seeds, dir, req.Answers)
	} else {
		triples, terr := api.ToTriples(req.Triples)
		if terr != nil {
			return nil, badRequest(terr)
		}
		g, err = s.svc.BuildSubgraph(ctx, triples, req.Answers)
	}
	if err != nil {
		return nil, err
	}
	if strict && g.DroppedAnswers > 0 {
		return nil, fmt.Errorf("%d answer keys did not resolve: %w", g.DroppedAnswers, openke.ErrNotFound)
	}
	return g, nil
}
