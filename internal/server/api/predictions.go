package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/store"
)

// Default and maximum rows returned by /api/predictions.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 1000
)

// Snapshotter returns the current prediction.
type Snapshotter interface {
	Snapshot() pipeline.Snapshot
}

// PredictionHandler serves GET /api/prediction.
type PredictionHandler struct {
	state Snapshotter
}

// NewPredictionHandler creates a PredictionHandler.
func NewPredictionHandler(state Snapshotter) *PredictionHandler {
	return &PredictionHandler{state: state}
}

// ServeHTTP writes the current prediction as
// {"kind": "static"|"dynamic"|null, "text": "...", "confidence": 0.0}.
func (h *PredictionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, h.state.Snapshot())
}

// HistoryHandler serves GET /api/predictions?limit=N.
type HistoryHandler struct {
	store  *store.Store
	logger *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(s *store.Store, logger *slog.Logger) *HistoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryHandler{store: s, logger: logger}
}

type historyResponse struct {
	Predictions []store.Prediction `json:"predictions"`
}

// ServeHTTP lists the most recent predictions, newest first.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxHistoryLimit)
	}

	predictions, err := h.store.Predictions().Recent(limit)
	if err != nil {
		h.logger.Error("list predictions", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list predictions")
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{Predictions: predictions})
}
