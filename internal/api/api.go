// Package api exposes the document service over HTTP: entities are
// registered into the catalog one by one, and the assembled document is
// fetched as CZML JSON.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/czml-forge/czml"
	"github.com/signalsfoundry/czml-forge/internal/catalog"
	"github.com/signalsfoundry/czml-forge/internal/logging"
	"github.com/signalsfoundry/czml-forge/internal/observability"
	"github.com/signalsfoundry/czml-forge/internal/scenario"
)

// Server handles the document service endpoints. It holds no state of its
// own; the catalog carries the scene between requests.
type Server struct {
	cat       *catalog.Catalog
	collector *observability.Collector
	log       logging.Logger
	tracer    trace.Tracer
	trackDir  string
}

// Option configures a Server.
type Option func(*Server)

// WithTrackDir sets the directory CSV track paths in registered entities
// are resolved against.
func WithTrackDir(dir string) Option {
	return func(s *Server) { s.trackDir = dir }
}

// New constructs the service around a catalog. The collector may be nil.
func New(cat *catalog.Catalog, collector *observability.Collector, log logging.Logger, opts ...Option) *Server {
	if log == nil {
		log = logging.Noop()
	}
	s := &Server{
		cat:       cat,
		collector: collector,
		log:       log,
		tracer:    otel.Tracer("czml-forge/api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the service handler with logging and metrics wired in.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /v1/entities", s.instrument("entities", s.handleRegister))
	mux.Handle("DELETE /v1/entities/{id}", s.instrument("entities", s.handleRemove))
	mux.Handle("GET /v1/document", s.instrument("document", s.handleDocument))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	return mux
}

func (s *Server) instrument(name string, h http.HandlerFunc) http.Handler {
	logged := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, reqLog := logging.WithRequestLogger(r.Context(), s.log)
		reqLog.Debug(ctx, "handling request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
		)
		h.ServeHTTP(w, r.WithContext(ctx))
	})
	if s.collector == nil {
		return logged
	}
	return s.collector.Middleware(name, logged)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var e scenario.Entity
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&e); err != nil {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("decode entity: %w", err))
		return
	}

	p, err := scenario.BuildEntity(e, s.trackDir)
	if err != nil {
		s.collector.IncBuildFailure(err)
		s.fail(w, r, statusFor(err), err)
		return
	}
	if err := s.cat.Register(p); err != nil {
		s.collector.IncBuildFailure(err)
		s.fail(w, r, statusFor(err), err)
		return
	}

	s.log.Info(ctx, "entity registered",
		logging.String("id", p.ID()),
		logging.Int("position_samples", p.PositionSampleCount()),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": p.ID()})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.cat.Remove(id); err != nil {
		s.fail(w, r, http.StatusNotFound, err)
		return
	}
	s.log.Info(r.Context(), "entity removed", logging.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "AssembleDocument")
	defer span.End()

	start := time.Now()
	packets := s.cat.List()
	doc, err := czml.Assemble(packets)
	if err != nil {
		s.collector.IncBuildFailure(err)
		s.fail(w, r, statusFor(err), err)
		return
	}

	var (
		data    []byte
		marshal error
	)
	if r.URL.Query().Get("pretty") != "" {
		data, marshal = json.MarshalIndent(doc, "", "  ")
	} else {
		data, marshal = json.Marshal(doc)
	}
	if marshal != nil {
		s.fail(w, r, http.StatusInternalServerError, marshal)
		return
	}

	span.SetAttributes(
		attribute.Int("document.packets", len(packets)),
		attribute.Int("document.bytes", len(data)),
	)
	s.collector.ObserveBuild(len(packets), time.Since(start))
	s.log.Info(ctx, "document assembled",
		logging.Int("packets", len(packets)),
		logging.Int("bytes", len(data)),
	)

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, code int, err error) {
	s.log.Warn(r.Context(), "request failed",
		logging.String("method", r.Method),
		logging.String("path", r.URL.Path),
		logging.Int("status", code),
		logging.String("error", err.Error()),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// statusFor maps the builder/assembler error taxonomy to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, czml.ErrDuplicateIdentifier):
		return http.StatusConflict
	case errors.Is(err, czml.ErrMalformedSample), errors.Is(err, czml.ErrInvalidInterval):
		return http.StatusBadRequest
	case errors.Is(err, czml.ErrIntervalMismatch), errors.Is(err, czml.ErrEmptyDocument):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
