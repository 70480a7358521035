package api

import (
	"net/http"
	"strconv"

	"github.com/okian/watchtower/internal/adapters/sink"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 500
)

// StatsHandler handles stats requests.
type StatsHandler struct {
	deps Dependencies
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps Dependencies) *StatsHandler {
	return &StatsHandler{deps: deps}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	counts, err := h.deps.Counts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_failed", wrapKind("api.stats", ErrStore, nil))
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// PayloadsHandler lists stored payloads.
type PayloadsHandler struct {
	deps Dependencies
}

// NewPayloadsHandler creates a new payloads handler.
func NewPayloadsHandler(deps Dependencies) *PayloadsHandler {
	return &PayloadsHandler{deps: deps}
}

// HandleRecent handles GET /payloads?kind=trail&limit=20 requests.
func (h *PayloadsHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	const op = "api.recent"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	kind := r.URL.Query().Get("kind")
	if kind != "" && kind != sink.KindFingerprint && kind != sink.KindTrail {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, nil))
		return
	}

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
			return
		}
		limit = min(n, maxRecentLimit)
	}

	records, err := h.deps.Recent(r.Context(), kind, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_failed", wrapKind(op, ErrStore, nil))
		return
	}
	if records == nil {
		records = []sink.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}
