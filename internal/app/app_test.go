package app

import (
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/goleak"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/overlay"
	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource hands out empty frames. Empty frames are only safe to close, so
// tests using it keep recognition disabled.
type fakeSource struct {
	mu      sync.Mutex
	openErr error
	limit   int // frames before ErrEndOfStream; 0 is unlimited
	fail    int // failing reads before the first frame
	reads   int
	closed  bool
}

func (s *fakeSource) Open() error { return s.openErr }

func (s *fakeSource) Next() (capture.Frame, error) {
	time.Sleep(time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail > 0 {
		s.fail--
		return capture.Frame{}, errors.New("read failed")
	}
	if s.limit > 0 && s.reads >= s.limit {
		return capture.Frame{}, capture.ErrEndOfStream
	}
	s.reads++
	return capture.Frame{Timestamp: time.Now()}, nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSource) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "mudra.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testConfig(source capture.Source) Config {
	mock := classifier.NewMock()
	cfg := pipeline.DefaultConfig()
	cfg.WindowSize = 4
	return Config{
		Source:   source,
		Locator:  detector.FullFrameLocator{},
		Static:   mock,
		Dynamic:  mock,
		Pipeline: cfg,
		Metrics:  metrics.New(),
		Logger:   logging.Discard(),
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

// stageErrors returns mudra_frames_errors_total for one stage.
func stageErrors(t *testing.T, reg *prometheus.Registry, stage string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "mudra_frames_errors_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "stage" && l.GetValue() == stage {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNew(t *testing.T) {
	t.Run("requires a source", func(t *testing.T) {
		cfg := testConfig(nil)
		cfg.Source = nil
		if _, err := New(cfg); err == nil {
			t.Error("New() without a source should fail")
		}
	})

	t.Run("requires classifiers", func(t *testing.T) {
		cfg := testConfig(&fakeSource{})
		cfg.Static = nil
		if _, err := New(cfg); err == nil {
			t.Error("New() without a static classifier should fail")
		}
	})

	t.Run("starts enabled in auto mode", func(t *testing.T) {
		a, err := New(testConfig(&fakeSource{}))
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if !a.IsEnabled() {
			t.Error("new app should be enabled")
		}
		if a.Mode() != pipeline.OverrideAuto {
			t.Errorf("Mode() = %v, want auto", a.Mode())
		}
		if a.Running() {
			t.Error("new app should not be running")
		}
		if a.State().Current().Label != pipeline.NoSign {
			t.Errorf("initial label = %q", a.State().Current().Label)
		}
	})
}

func TestApp_StartCameraUnavailable(t *testing.T) {
	src := &fakeSource{openErr: errors.New("no such device")}
	a, err := New(testConfig(src))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = a.Start()
	if !errors.Is(err, capture.ErrCameraUnavailable) {
		t.Errorf("Start() error = %v, want ErrCameraUnavailable", err)
	}
	if a.Running() {
		t.Error("app should not be running after a failed Start")
	}
	if err := a.Stop(); err != nil {
		t.Errorf("Stop() on a stopped app = %v", err)
	}
}

func TestApp_StartStop(t *testing.T) {
	src := &fakeSource{}
	cfg := testConfig(src)
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	a.SetEnabled(false)

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := a.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() = %v, want ErrAlreadyRunning", err)
	}

	reg := cfg.Metrics.Registry()
	eventually(t, "skipped frames", func() bool {
		return counterValue(t, reg, "mudra_frames_skipped_total") >= 3
	})
	if got := counterValue(t, reg, "mudra_frames_processed_total"); got != 0 {
		t.Errorf("processed %v frames while disabled", got)
	}

	if err := a.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if a.Running() {
		t.Error("app still running after Stop")
	}
	if !src.closed {
		t.Error("Stop should close the source")
	}
	if a.Queue().Len() != 0 {
		t.Errorf("queue holds %d frames after Stop", a.Queue().Len())
	}
	// Every captured frame was either queued or dropped.
	q := a.Queue()
	if captured := counterValue(t, reg, "mudra_frames_captured_total"); float64(q.Pushed()+q.Dropped()) != captured {
		t.Errorf("queued %d + dropped %d, captured %v", q.Pushed(), q.Dropped(), captured)
	}
	if dropped := counterValue(t, reg, "mudra_frames_dropped_total"); float64(q.Dropped()) != dropped {
		t.Errorf("queue dropped %d, metric %v", q.Dropped(), dropped)
	}
	if err := a.Stop(); err != nil {
		t.Errorf("second Stop() = %v", err)
	}

	// The app can be started again.
	if err := a.Start(); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestApp_SourceEnds(t *testing.T) {
	src := &fakeSource{limit: 3}
	cfg := testConfig(src)
	a, _ := New(cfg)
	a.SetEnabled(false)

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Stop()

	reg := cfg.Metrics.Registry()
	eventually(t, "all frames skipped", func() bool {
		return counterValue(t, reg, "mudra_frames_skipped_total") == 3
	})
	if got := counterValue(t, reg, "mudra_frames_captured_total"); got != 3 {
		t.Errorf("captured = %v, want 3", got)
	}
	if !a.Running() {
		t.Error("processing loop should keep idling after the source ends")
	}
}

func TestApp_ReadErrorsAreCounted(t *testing.T) {
	src := &fakeSource{fail: 2, limit: 1}
	cfg := testConfig(src)
	a, _ := New(cfg)
	a.SetEnabled(false)

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Stop()

	reg := cfg.Metrics.Registry()
	eventually(t, "frame after read errors", func() bool {
		return counterValue(t, reg, "mudra_frames_captured_total") == 1
	})
	if got := counterValue(t, reg, "mudra_frames_errors_total"); got != 2 {
		t.Errorf("frame errors = %v, want 2", got)
	}
}

func TestApp_ModeIsPersisted(t *testing.T) {
	st := newTestStore(t)

	cfg := testConfig(&fakeSource{})
	cfg.Store = st
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.SetMode(pipeline.OverrideDynamic); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}

	again, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if again.Mode() != pipeline.OverrideDynamic {
		t.Errorf("reloaded Mode() = %v, want dynamic", again.Mode())
	}

	// A value the app does not understand falls back to auto.
	st.Settings().Set(store.SettingMode, "sideways")
	fallback, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if fallback.Mode() != pipeline.OverrideAuto {
		t.Errorf("Mode() with bad saved value = %v, want auto", fallback.Mode())
	}
}

func TestApp_Templates(t *testing.T) {
	st := newTestStore(t)
	signs := st.Signs()
	for _, sign := range []*store.Sign{
		{ID: "a", Name: "A", Type: store.SignTypeStatic, Tolerance: 0.2},
		{ID: "hello", Name: "HELLO", Type: store.SignTypeDynamic, Tolerance: 0.3},
		{ID: "untrained", Name: "B", Type: store.SignTypeStatic, Tolerance: 0.2},
	} {
		if err := signs.Create(sign); err != nil {
			t.Fatalf("Create(%s) error = %v", sign.ID, err)
		}
	}

	static := gesture.NewStaticMatcher()
	dynamic := gesture.NewDynamicMatcher()
	cfg := testConfig(&fakeSource{})
	cfg.Store = st
	cfg.Static = static
	cfg.Dynamic = dynamic

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if static.Len() != 0 || dynamic.Len() != 0 {
		t.Fatalf("untrained signs loaded: static %d dynamic %d", static.Len(), dynamic.Len())
	}

	hand := detector.ThumbsUpLandmarks()
	normalized := hand.Normalize()
	if err := a.SaveTemplate(&gesture.Template{
		ID: "a", Type: gesture.TypeStatic, Landmarks: normalized.Points[:],
	}); err != nil {
		t.Fatalf("SaveTemplate(static) error = %v", err)
	}
	if err := a.SaveTemplate(&gesture.Template{
		ID: "hello", Type: gesture.TypeDynamic,
		Path: []gesture.PathPoint{{X: 0.1, Y: 0.5}, {X: 0.5, Y: 0.5, Timestamp: 33}, {X: 0.9, Y: 0.5, Timestamp: 66}},
	}); err != nil {
		t.Fatalf("SaveTemplate(dynamic) error = %v", err)
	}
	if err := a.SaveTemplate(&gesture.Template{ID: "a", Type: "wave"}); err == nil {
		t.Error("SaveTemplate with unknown type should fail")
	}
	if err := a.SaveTemplate(&gesture.Template{ID: "missing", Type: gesture.TypeStatic, Landmarks: normalized.Points[:]}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("SaveTemplate for unknown sign = %v, want ErrNotFound", err)
	}

	if err := a.ReloadTemplates(); err != nil {
		t.Fatalf("ReloadTemplates() error = %v", err)
	}
	if static.Len() != 1 {
		t.Errorf("static templates = %d, want 1", static.Len())
	}
	if dynamic.Len() != 1 {
		t.Errorf("dynamic templates = %d, want 1", dynamic.Len())
	}

	matches := static.Match(&hand)
	if len(matches) == 0 || matches[0].Template.Name != "A" {
		t.Errorf("thumbs up should match A, got %+v", matches)
	}

	path, err := signs.GetPath("hello")
	if err != nil || len(path) != 3 || path[2].TimestampMs != 66 {
		t.Errorf("stored path = %+v, %v", path, err)
	}
}

func TestApp_SaveTemplateWithoutStore(t *testing.T) {
	a, _ := New(testConfig(&fakeSource{}))
	if err := a.SaveTemplate(&gesture.Template{ID: "a", Type: gesture.TypeStatic}); err == nil {
		t.Error("SaveTemplate without a store should fail")
	}
	if err := a.ReloadTemplates(); err != nil {
		t.Errorf("ReloadTemplates without a store = %v, want nil", err)
	}
}

func TestApp_RecordsHistory(t *testing.T) {
	st := newTestStore(t)
	cfg := testConfig(&fakeSource{})
	cfg.Store = st
	cfg.HistorySize = 5

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	a.SetEnabled(false)
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Stop()

	predictions := st.Predictions()
	count := func() int {
		n, err := predictions.Count()
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		return n
	}

	// Publish one at a time so no record is dropped by the subscriber buffer.
	for i := 1; i < trimEvery; i++ {
		a.State().Publish(pipeline.Record{Kind: pipeline.KindStatic, Label: "A", Confidence: 0.9, ProducedAt: time.Now()})
		eventually(t, "prediction stored", func() bool { return count() == i })
	}
	a.State().Publish(pipeline.Record{Kind: pipeline.KindDynamic, Label: "HELLO", Confidence: 0.8, ProducedAt: time.Now()})
	eventually(t, "history trimmed", func() bool { return count() == cfg.HistorySize })

	recent, err := predictions.Recent(1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 1 || recent[0].Label != "HELLO" || recent[0].Kind != "dynamic" {
		t.Errorf("newest prediction = %+v", recent)
	}
}

func TestApp_RecognizesFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	still := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer still.Close()

	src := capture.NewPlayback([]gocv.Mat{still}, true)
	src.SetInterval(5 * time.Millisecond)

	mock := classifier.NewMock()
	mock.QueueStatic(classifier.Result{Label: "A", Confidence: 0.9})

	feed := overlay.NewFeed()
	cfg := testConfig(src)
	cfg.Static = mock
	cfg.Dynamic = mock
	cfg.Feed = feed

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()
	if err := a.SetMode(pipeline.OverrideStatic); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	eventually(t, "published letter", func() bool {
		return a.State().Current().Label == "A"
	})
	snap := a.State().Snapshot()
	if snap.Kind == nil || *snap.Kind != "static" || snap.Confidence != 0.9 {
		t.Errorf("snapshot = %+v", snap)
	}

	eventually(t, "annotated frame", func() bool {
		_, seq := feed.Latest()
		return seq > 0
	})
	jpeg, _ := feed.Latest()
	if len(jpeg) < 2 || jpeg[0] != 0xFF || jpeg[1] != 0xD8 {
		t.Error("feed frame is not a JPEG")
	}

	if err := a.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestApp_FrameErrorsDoNotStopProcessing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	still := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer still.Close()

	src := capture.NewPlayback([]gocv.Mat{still}, true)
	src.SetInterval(5 * time.Millisecond)

	var calls atomic.Int32
	static := classifier.StaticFunc(func(capture.Region) (classifier.Result, error) {
		switch calls.Add(1) {
		case 1:
			panic("classifier blew up")
		case 2:
			return classifier.Result{}, errors.New("classifier failed")
		default:
			return classifier.Result{Label: "A", Confidence: 0.9}, nil
		}
	})

	cfg := testConfig(src)
	cfg.Static = static
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()
	if err := a.SetMode(pipeline.OverrideStatic); err != nil {
		t.Fatalf("SetMode() error = %v", err)
	}
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	eventually(t, "letter after failures", func() bool {
		return a.State().Current().Label == "A"
	})

	reg := cfg.Metrics.Registry()
	if got := stageErrors(t, reg, metrics.StagePanic); got != 1 {
		t.Errorf("panic errors = %v, want 1", got)
	}
	if got := stageErrors(t, reg, metrics.StageClassify); got != 1 {
		t.Errorf("classify errors = %v, want 1", got)
	}
	if got := counterValue(t, reg, "mudra_frames_errors_total"); got != 2 {
		t.Errorf("frame errors = %v, want 2", got)
	}
	if !a.Running() {
		t.Error("app stopped after frame errors")
	}

	if err := a.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
