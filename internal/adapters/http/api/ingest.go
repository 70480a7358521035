package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/okian/watchtower/internal/adapters/sink"
	"github.com/okian/watchtower/internal/domain/model"
	"github.com/okian/watchtower/pkg/logger"
	"github.com/okian/watchtower/pkg/metrics"
)

const defaultMaxBodyBytes = 1 << 20

// Option applies a configuration option to the IngestHandler.
type Option func(*IngestHandler)

// WithMaxBodyBytes caps the decoded request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(h *IngestHandler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(h *IngestHandler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithClock sets the clock used for receive timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *IngestHandler) {
		if now != nil {
			h.now = now
		}
	}
}

// IngestHandler accepts agent payloads and stores them unprocessed.
type IngestHandler struct {
	deps    Dependencies
	maxBody int64
	now     func() time.Time
	log     logger.Logger
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(deps Dependencies, opts ...Option) *IngestHandler {
	h := &IngestHandler{
		deps:    deps,
		maxBody: defaultMaxBodyBytes,
		now:     time.Now,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleFingerprint handles POST /fingerprint requests.
func (h *IngestHandler) HandleFingerprint(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, sink.KindFingerprint, func(body []byte) (string, error) {
		var p model.Profile
		if err := json.Unmarshal(body, &p); err != nil {
			return "", err
		}
		return p.SessionID, nil
	})
}

// HandleTrail handles POST /trail requests.
func (h *IngestHandler) HandleTrail(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, sink.KindTrail, func(body []byte) (string, error) {
		var b model.TrailBatch
		if err := json.Unmarshal(body, &b); err != nil {
			return "", err
		}
		return b.SessionID, nil
	})
}

// ingest validates the body shape, then stores it verbatim.
func (h *IngestHandler) ingest(w http.ResponseWriter, r *http.Request, kind string, session func([]byte) (string, error)) {
	op := "api.post_" + kind
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	body, err := h.readBody(r)
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", wrapKind(op, ErrTooLarge, nil))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}

	sessionID, err := session(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(sessionID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, errors.New("missing session_id")))
		return
	}

	if _, err := h.deps.Insert(r.Context(), kind, sessionID, body, h.now()); err != nil {
		h.log.Error(r.Context(), "failed to store payload",
			logger.String("kind", kind), logger.String("session_id", sessionID), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "store_failed", wrapKind(op, ErrStore, nil))
		return
	}

	metrics.RecordPayloadIngested(kind)
	w.WriteHeader(http.StatusNoContent)
}

// readBody returns the decoded request body, inflating gzip bodies.
func (h *IngestHandler) readBody(r *http.Request) ([]byte, error) {
	var reader io.Reader = r.Body
	switch enc := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding"))); enc {
	case "", "identity":
	case "gzip":
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		reader = zr
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", enc)
	}

	body, err := io.ReadAll(io.LimitReader(reader, h.maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > h.maxBody {
		return nil, ErrTooLarge
	}
	return body, nil
}
