package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// SignHandler serves /api/signs and /api/signs/{id}.
type SignHandler struct {
	store     *store.Store
	templates Templates
	logger    *slog.Logger
}

// NewSignHandler creates a SignHandler. templates may be nil, in which case
// classifiers are not reloaded after changes.
func NewSignHandler(s *store.Store, templates Templates, logger *slog.Logger) *SignHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignHandler{store: s, templates: templates, logger: logger}
}

// ServeHTTP routes collection and item requests.
func (h *SignHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/signs"), "/")

	if id == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			methodNotAllowed(w)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

type signRequest struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Tolerance float64 `json:"tolerance"`
}

type signResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	Tolerance float64 `json:"tolerance"`
	Samples   int     `json:"samples"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type listSignsResponse struct {
	Signs []signResponse `json:"signs"`
}

func toResponse(sign *store.Sign) signResponse {
	return signResponse{
		ID:        sign.ID,
		Name:      sign.Name,
		Type:      string(sign.Type),
		Tolerance: sign.Tolerance,
		Samples:   sign.Samples,
		CreatedAt: sign.CreatedAt.Format(timeLayout),
		UpdatedAt: sign.UpdatedAt.Format(timeLayout),
	}
}

func (h *SignHandler) list(w http.ResponseWriter, r *http.Request) {
	signs, err := h.store.Signs().List()
	if err != nil {
		h.logger.Error("list signs", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list signs")
		return
	}

	response := listSignsResponse{Signs: make([]signResponse, 0, len(signs))}
	for _, sign := range signs {
		response.Signs = append(response.Signs, toResponse(sign))
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *SignHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sign, ok := h.lookup(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toResponse(sign))
}

func (h *SignHandler) create(w http.ResponseWriter, r *http.Request) {
	var req signRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	signType := store.SignType(req.Type)
	if signType == "" {
		signType = store.SignTypeStatic
	}
	if !signType.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid sign type")
		return
	}

	tolerance := req.Tolerance
	if tolerance == 0 {
		tolerance = gesture.DefaultTolerance
	}
	if tolerance < 0 {
		writeError(w, http.StatusBadRequest, "Tolerance must be positive")
		return
	}

	sign := &store.Sign{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Type:      signType,
		Tolerance: tolerance,
	}

	if err := h.store.Signs().Create(sign); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "A sign with that name already exists")
			return
		}
		h.logger.Error("create sign", "name", req.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create sign")
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(sign))
}

func (h *SignHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	sign, ok := h.lookup(w, id)
	if !ok {
		return
	}

	var req signRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name != "" {
		sign.Name = req.Name
	}
	if req.Type != "" && store.SignType(req.Type) != sign.Type {
		// The stored template would no longer match the type.
		writeError(w, http.StatusBadRequest, "Sign type cannot be changed")
		return
	}
	if req.Tolerance < 0 {
		writeError(w, http.StatusBadRequest, "Tolerance must be positive")
		return
	}
	if req.Tolerance != 0 {
		sign.Tolerance = req.Tolerance
	}

	if err := h.store.Signs().Update(sign); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, "A sign with that name already exists")
			return
		}
		h.logger.Error("update sign", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update sign")
		return
	}

	h.reload()
	writeJSON(w, http.StatusOK, toResponse(sign))
}

func (h *SignHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Signs().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return
		}
		h.logger.Error("delete sign", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete sign")
		return
	}

	h.reload()
	w.WriteHeader(http.StatusNoContent)
}

// lookup fetches a sign, writing the error response when it fails.
func (h *SignHandler) lookup(w http.ResponseWriter, id string) (*store.Sign, bool) {
	sign, err := h.store.Signs().GetByID(id)
	if err == nil {
		return sign, true
	}
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Sign not found")
		return nil, false
	}
	h.logger.Error("get sign", "id", id, "error", err)
	writeError(w, http.StatusInternalServerError, "Failed to get sign")
	return nil, false
}

func (h *SignHandler) reload() {
	if h.templates == nil {
		return
	}
	if err := h.templates.ReloadTemplates(); err != nil {
		h.logger.Error("reload templates", "error", err)
	}
}
