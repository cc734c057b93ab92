package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	openke "github.com/lzw429/OpenKE-Embedding-Service"
	"github.com/lzw429/OpenKE-Embedding-Service/api"
	"github.com/lzw429/OpenKE-Embedding-Service/codec"
	"github.com/lzw429/OpenKE-Embedding-Service/internal/resource"
)

// Server serves one openke.Service over HTTP.
type Server struct {
	svc     *openke.Service
	fb      *openke.Fallback
	opts    options
	rc      *resource.Controller
	handler http.Handler
}

// New builds the router for svc.
func New(svc *openke.Service, optFns ...Option) *Server {
	o := options{
		addr:           DefaultAddr,
		requestTimeout: DefaultRequestTimeout,
		maxBodyBytes:   DefaultMaxBodyBytes,
		shutdownGrace:  DefaultShutdownGrace,
		codec:          codec.Default,
		logger:         svc.Logger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = openke.NoopLogger()
	}
	if o.collector != nil && o.gatherer == nil {
		o.gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		svc:  svc,
		fb:   svc.Fallback(),
		opts: o,
		rc: resource.NewController(resource.Config{
			MaxInFlight:       o.maxInFlight,
			RequestsPerSecond: o.rps,
			Burst:             o.burst,
		}),
	}
	s.handler = gzhttp.GzipHandler(s.routes())
	return s
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get(api.PathHealth, s.health)
	if s.opts.gatherer != nil {
		r.Handle(api.PathMetrics, promhttp.HandlerFor(s.opts.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(s.admit)

		r.Post(api.PathEntityEmbeddingByMid, handle(s, s.entityEmbeddingByMid))
		r.Post(api.PathEntityEmbeddingByEid, handle(s, s.entityEmbeddingByEid))
		r.Post(api.PathRelationEmbeddingByRelation, handle(s, s.relationEmbeddingByRelation))
		r.Post(api.PathRelationEmbeddingByRid, handle(s, s.relationEmbeddingByRid))
		r.Post(api.PathAdjList, handle(s, s.adjList))
		r.Post(api.PathInverseAdjList, handle(s, s.inverseAdjList))
		r.Post(api.PathEntityIDByMid, handle(s, s.entityIDByMid))
		r.Post(api.PathRelationIDByRelation, handle(s, s.relationIDByRelation))
		r.Post(api.PathEntityEmbeddingsByMids, handle(s, s.entityEmbeddingsByMids))
		r.Post(api.PathAdjListByMids, handle(s, s.adjListByMids))
		r.Post(api.PathTripleScore, handle(s, s.tripleScore))
		r.Post(api.PathSubgraph, handle(s, s.subgraph))
	})
	return r
}

// admit applies the request timeout and the admission limits.
func (s *Server) admit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.opts.requestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.opts.requestTimeout)
			defer cancel()
		}

		if err := s.rc.Admit(ctx); err != nil {
			if s.opts.collector != nil {
				s.opts.collector.recordRejected(api.KindOverloaded)
			}
			s.writeError(w, r, http.StatusServiceUnavailable, api.KindOverloaded, resource.ErrOverloaded)
			return
		}
		defer s.rc.Release()

		if c := s.opts.collector; c != nil {
			c.inflight.Inc()
			defer c.inflight.Dec()
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := routeLabel(r)
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		d := time.Since(start)
		if c := s.opts.collector; c != nil {
			c.recordRequest(route, code, d)
		}
		s.opts.logger.DebugContext(r.Context(), "http request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"route", route,
			"status", code,
			"bytes", ww.BytesWritten(),
			"duration", d,
		)
	})
}

const unmatchedRoute = "unmatched"

// routeLabel returns the endpoint path a request was routed to. chi drops the
// trailing slash from patterns, so the registered path is restored here.
// Requests that match no route share one label.
func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	pattern := rctx.RoutePattern()
	switch {
	case pattern == "":
		return unmatchedRoute
	case r.URL.Path == pattern+"/":
		return r.URL.Path
	default:
		return pattern
	}
}

// ListenAndServe listens on the configured address and serves until ctx is
// done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	s.opts.logger.InfoContext(ctx, "server listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.opts.logger.InfoContext(ctx, "server stopped")
	return nil
}
