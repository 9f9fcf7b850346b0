// Package httpserve exposes fitted analyzer parameters over HTTP: a serving
// process loads persisted params once and answers transform requests with the
// exact arithmetic the batch pipeline applied at training time.
package httpserve

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/featuremill/featuremill/internal/domain"
	"github.com/featuremill/featuremill/internal/domain/feature"
	"github.com/featuremill/featuremill/internal/domain/params"
	"github.com/featuremill/featuremill/internal/domain/record"
	"github.com/featuremill/featuremill/internal/metrics"
	"github.com/featuremill/featuremill/internal/usecase/transform"
)

// Server answers transform requests against one fitted parameter set.
type Server struct {
	spec   feature.Spec
	params params.Params
	logger *zap.Logger
}

// NewServer creates a transform server.
func NewServer(spec feature.Spec, p params.Params, logger *zap.Logger) *Server {
	return &Server{spec: spec, params: p, logger: logger}
}

// Handler builds the chi router with the standard middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Post("/v1/transform", s.handleTransform)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// transformRequest carries one raw record. Values are JSON numbers, strings,
// or null for explicitly missing.
type transformRequest struct {
	Record map[string]any `json:"record"`
}

type transformResponse struct {
	Record map[string]float64 `json:"record"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleTransform handles POST /v1/transform.
func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	var req transformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.Record == nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "record is required")
		return
	}

	rec, err := recordFromJSON(req.Record)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	out, err := transform.Apply(rec, s.params, s.spec)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transformResponse{Record: out.Values()})
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSchemaMismatch):
		writeError(w, http.StatusBadRequest, "schema_mismatch", err.Error())
	case errors.Is(err, domain.ErrUnknownFeature):
		writeError(w, http.StatusBadRequest, "unknown_feature", err.Error())
	default:
		s.logger.Error("transform failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// recordFromJSON converts a decoded JSON object to a domain record. Keys are
// ordered lexically; transform output order is fixed by the feature spec, so
// request key order never matters.
func recordFromJSON(m map[string]any) (record.Record, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make(map[string]record.Value, len(m))
	for _, name := range names {
		switch v := m[name].(type) {
		case nil:
			values[name] = record.Missing()
		case float64:
			values[name] = record.Number(v)
		case string:
			values[name] = record.String(v)
		default:
			return record.Record{}, errors.New("feature " + name + ": values must be numbers, strings, or null")
		}
	}
	return record.New(names, values), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
