// Package api exposes the HTTP interface that receives Pub/Sub push
// deliveries and hands decoded trigger payloads to the orchestrator.
package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/perfwatch/pagespeed-pipeline/internal/job"
)

// TriggerHandler processes one decoded trigger payload.
type TriggerHandler interface {
	Handle(ctx context.Context, payload []byte) job.Outcome
}

// Server wires HTTP routes to the trigger handler.
type Server struct {
	router  chi.Router
	handler TriggerHandler
	logger  *zap.Logger
}

// pushEnvelope is the JSON body of a Pub/Sub push delivery. Message data is
// base64-encoded.
type pushEnvelope struct {
	Message struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// Config controls server behavior.
type Config struct {
	// APIKey, when non-empty, must be presented in the X-API-Key header on
	// trigger deliveries. Health and metrics endpoints stay open.
	APIKey string
}

// NewServer constructs a Server with routes.
func NewServer(handler TriggerHandler, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{handler: handler, logger: logger}

	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Group(func(r chi.Router) {
		if cfg.APIKey != "" {
			r.Use(apiKeyMiddleware(cfg.APIKey))
		}
		r.Post("/", s.handlePush)
	})

	s.router = r
	return s
}

func apiKeyMiddleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != key {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handlePush accepts one Pub/Sub push delivery. Once the envelope decodes,
// the response is always 204: invocation failures are terminal by design and
// a non-2xx would only make Pub/Sub redeliver a trigger the pipeline has
// already accounted for.
func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	var envelope pushEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		s.logger.Warn("invalid push envelope", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid push envelope"})
		return
	}
	payload, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		s.logger.Warn("invalid message data", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid message data"})
		return
	}

	outcome := s.handler.Handle(r.Context(), payload)
	s.logger.Info("trigger handled",
		zap.String("message_id", envelope.Message.MessageID),
		zap.String("outcome", string(outcome)))
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
