// Package api exposes the development collector over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/okian/watchtower/internal/adapters/sink"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Insert stores a payload body verbatim.
	Insert(ctx context.Context, kind, sessionID string, body []byte, receivedAt time.Time) (int64, error)

	// Counts summarizes what has been stored.
	Counts(ctx context.Context) (sink.Counts, error)

	// Recent returns the newest stored payloads of a kind.
	Recent(ctx context.Context, kind string, limit int) ([]sink.Record, error)
}

// Server wires HTTP routes for the collector.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	ingestHandler   *IngestHandler
	payloadsHandler *PayloadsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		ingestHandler:   NewIngestHandler(deps, opts...),
		payloadsHandler: NewPayloadsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/payloads", MetricsMiddleware(s.payloadsHandler.HandleRecent, "payloads"))
	mux.HandleFunc("/fingerprint", MetricsMiddleware(CORS(s.ingestHandler.HandleFingerprint), "fingerprint"))
	mux.HandleFunc("/trail", MetricsMiddleware(CORS(s.ingestHandler.HandleTrail), "trail"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
