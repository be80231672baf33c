package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// SamplesHandler serves /api/signs/{id}/samples. Posting samples retrains the
// sign's template from every sample recorded so far.
type SamplesHandler struct {
	store     *store.Store
	trainer   *gesture.Trainer
	templates Templates
	logger    *slog.Logger
}

// NewSamplesHandler creates a SamplesHandler. templates may be nil, in which
// case samples are stored but no template is trained.
func NewSamplesHandler(s *store.Store, templates Templates, logger *slog.Logger) *SamplesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SamplesHandler{store: s, trainer: gesture.NewTrainer(), templates: templates, logger: logger}
}

// ServeHTTP handles /api/signs/{id}/samples.
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/signs/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "samples" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	signID := parts[0]
	switch r.Method {
	case http.MethodGet:
		h.list(w, r, signID)
	case http.MethodPost:
		h.create(w, r, signID)
	case http.MethodDelete:
		h.clear(w, r, signID)
	default:
		methodNotAllowed(w)
	}
}

type createSamplesRequest struct {
	Samples []json.RawMessage `json:"samples"`
}

type sampleResponse struct {
	ID          int64           `json:"id"`
	SignID      string          `json:"sign_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   string          `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

type createSamplesResponse struct {
	Status  string `json:"status"`
	Samples int    `json:"samples"`
	Trained bool   `json:"trained"`
}

func (h *SamplesHandler) list(w http.ResponseWriter, r *http.Request, signID string) {
	samples, err := h.store.Samples().GetBySignID(signID)
	if err != nil {
		h.logger.Error("list samples", "sign", signID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{Samples: make([]sampleResponse, 0, len(samples))}
	for _, s := range samples {
		response.Samples = append(response.Samples, sampleResponse{
			ID:          s.ID,
			SignID:      s.SignID,
			SampleIndex: s.SampleIndex,
			Data:        s.Data,
			CreatedAt:   s.CreatedAt.Format(timeLayout),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request, signID string) {
	sign, ok := h.lookup(w, signID)
	if !ok {
		return
	}

	var req createSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}

	existing, err := h.store.Samples().GetBySignID(signID)
	if err != nil {
		h.logger.Error("load samples", "sign", signID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load samples")
		return
	}
	all := make([]json.RawMessage, 0, len(existing)+len(req.Samples))
	for _, s := range existing {
		all = append(all, s.Data)
	}
	all = append(all, req.Samples...)

	// Train before saving so malformed samples never reach the store.
	var tmpl *gesture.Template
	if h.templates != nil {
		tmpl, err = h.trainer.Train(sign.ID, sign.Name, gesture.Type(sign.Type), sign.Tolerance, all)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid samples: "+err.Error())
			return
		}
	}

	if err := h.store.Samples().Append(signID, req.Samples); err != nil {
		h.logger.Error("save samples", "sign", signID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save samples")
		return
	}

	if tmpl != nil {
		if err := h.templates.SaveTemplate(tmpl); err != nil {
			h.logger.Error("save template", "sign", signID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to save template")
			return
		}
		if err := h.templates.ReloadTemplates(); err != nil {
			h.logger.Error("reload templates", "error", err)
		}
		h.logger.Info("sign trained", "sign", sign.Name, "samples", len(all))
	}

	writeJSON(w, http.StatusCreated, createSamplesResponse{Status: "ok", Samples: len(all), Trained: tmpl != nil})
}

func (h *SamplesHandler) clear(w http.ResponseWriter, r *http.Request, signID string) {
	if _, ok := h.lookup(w, signID); !ok {
		return
	}
	if err := h.store.Samples().DeleteBySignID(signID); err != nil {
		h.logger.Error("delete samples", "sign", signID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete samples")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SamplesHandler) lookup(w http.ResponseWriter, id string) (*store.Sign, bool) {
	sign, err := h.store.Signs().GetByID(id)
	if err == nil {
		return sign, true
	}
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Sign not found")
		return nil, false
	}
	writeError(w, http.StatusInternalServerError, "Failed to verify sign")
	return nil, false
}
