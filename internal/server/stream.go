package server

import (
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/ayusman/mudra/internal/overlay"
)

const streamBoundary = "frame"

// StreamHandler serves the annotated frames as MJPEG.
type StreamHandler struct {
	feed *overlay.Feed
}

func NewStreamHandler(feed *overlay.Feed) *StreamHandler {
	return &StreamHandler{feed: feed}
}

// ServeHTTP writes one multipart part per new feed frame until the client
// goes away.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(streamBoundary); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	w.Header().Set("Cache-Control", "no-cache")
	rc := http.NewResponseController(w)

	var seq uint64
	for {
		jpeg, next, err := h.feed.Next(r.Context(), seq)
		if err != nil {
			return
		}
		seq = next

		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":   {"image/jpeg"},
			"Content-Length": {strconv.Itoa(len(jpeg))},
		})
		if err != nil {
			return
		}
		if _, err := part.Write(jpeg); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
