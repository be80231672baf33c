package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ayusman/mudra/internal/pipeline"
)

// ModeHandler serves GET and PUT /api/mode.
type ModeHandler struct {
	modes  Modes
	logger *slog.Logger
}

// NewModeHandler creates a ModeHandler.
func NewModeHandler(modes Modes, logger *slog.Logger) *ModeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModeHandler{modes: modes, logger: logger}
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type modeResponse struct {
	Status string `json:"status,omitempty"`
	Mode   string `json:"mode"`
}

// ServeHTTP reads or changes the recognition mode. PUT and POST take
// {"mode": "auto"|"static"|"dynamic"} or a ?mode= query parameter.
func (h *ModeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, modeResponse{Mode: h.modes.Mode().String()})
	case http.MethodPut, http.MethodPost:
		h.set(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *ModeHandler) set(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("mode")
	if value == "" {
		var req modeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		value = req.Mode
	}

	mode, err := pipeline.ParseOverride(value)
	if err != nil || value == "" {
		writeError(w, http.StatusBadRequest, "mode must be auto, static or dynamic")
		return
	}

	if err := h.modes.SetMode(mode); err != nil {
		if errors.Is(err, pipeline.ErrUnknownOverride) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("set mode", "mode", value, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to set mode")
		return
	}

	writeJSON(w, http.StatusOK, modeResponse{Status: "success", Mode: mode.String()})
}
