// Package api provides the JSON HTTP handlers of the mudra server.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/pipeline"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// Templates saves trained templates and pushes stored templates to the
// classifiers.
type Templates interface {
	SaveTemplate(t *gesture.Template) error
	ReloadTemplates() error
}

// Modes reads and changes the recognition mode.
type Modes interface {
	Mode() pipeline.Override
	SetMode(o pipeline.Override) error
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}
