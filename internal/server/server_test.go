package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/pipeline"
)

type stubModes struct{ mode pipeline.Override }

func (s *stubModes) Mode() pipeline.Override { return s.mode }

func (s *stubModes) SetMode(o pipeline.Override) error {
	s.mode = o
	return nil
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServer_Health(t *testing.T) {
	s := New(Config{State: pipeline.NewState(), Modes: &stubModes{mode: pipeline.OverrideStatic}, Logger: logging.Discard()})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		rec := get(t, s, "/api/health")

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
		if response["mode"] != "static" {
			t.Errorf("expected mode 'static', got %v", response["mode"])
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(method, "/api/health", nil))

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_OptionalRoutes(t *testing.T) {
	s := New(Config{Logger: logging.Discard()})

	for _, path := range []string{"/api/nonexistent", "/api/prediction", "/api/mode", "/api/signs", "/api/stream", "/api/ws", "/metrics", "/"} {
		if rec := get(t, s, path); rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d without collaborators, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
	if s.Hub() != nil {
		t.Error("Hub() should be nil without a State")
	}
}

func TestServer_PredictionAndMode(t *testing.T) {
	state := pipeline.NewState()
	modes := &stubModes{}
	s := New(Config{State: state, Modes: modes, Logger: logging.Discard()})

	state.Publish(pipeline.Record{Kind: pipeline.KindStatic, Label: "C", Confidence: 0.8})
	rec := get(t, s, "/api/prediction")
	if rec.Code != http.StatusOK || rec.Body.String() != `{"kind":"static","text":"C","confidence":0.8}`+"\n" {
		t.Errorf("GET /api/prediction = %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPut, "/api/mode?mode=dynamic", nil)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || modes.mode != pipeline.OverrideDynamic {
		t.Errorf("PUT /api/mode = %d, mode %v", rec.Code, modes.mode)
	}
}

func TestServer_Metrics(t *testing.T) {
	m := metrics.New()
	m.FrameCaptured()
	s := New(Config{Metrics: m.Handler(), Logger: logging.Discard()})

	rec := get(t, s, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "mudra_frames_captured_total 1") {
		t.Errorf("metrics output missing captured counter:\n%s", rec.Body.String())
	}
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()

	testContent := "<html><body>mudra</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	cssContent := "body { color: red; }"
	if err := os.WriteFile(filepath.Join(tmpDir, "style.css"), []byte(cssContent), 0o644); err != nil {
		t.Fatalf("failed to create test CSS file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir, Logger: logging.Discard()})

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{path: "/", wantCode: http.StatusOK, wantBody: testContent},
		{path: "/style.css", wantCode: http.StatusOK, wantBody: cssContent},
		{path: "/nonexistent.html", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, s, tt.path)
			if rec.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, rec.Code)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("expected body %q, got %q", tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestServer_Run(t *testing.T) {
	// Grab a free port, then hand it to Run.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	s := New(Config{State: pipeline.NewState(), Logger: logging.Discard()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, addr) }()

	var resp *http.Response
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err = http.Get("http://" + addr + "/api/health")
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never came up: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil after cancel", err)
		}
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
