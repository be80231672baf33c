// Package app wires the mudra recognition pipeline together: it runs the
// capture and processing loops and connects them to the store.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/overlay"
	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/store"
)

// ErrAlreadyRunning is returned by Start on a running App.
var ErrAlreadyRunning = errors.New("app already running")

// Config holds the App collaborators.
type Config struct {
	Source  capture.Source
	Locator detector.Locator
	Static  classifier.Static
	Dynamic classifier.Dynamic
	Motion  *capture.MotionDetector

	Pipeline  pipeline.Config
	QueueSize int

	// Store is optional. Without it templates, the recognition mode and
	// history are not persisted.
	Store *store.Store
	// HistorySize bounds the stored history; 0 keeps everything.
	HistorySize int

	// Feed receives the annotated frames when set.
	Feed    *overlay.Feed
	Quality int

	Metrics *metrics.Pipeline
	Logger  *slog.Logger
}

// App runs the recognition pipeline.
type App struct {
	config    Config
	source    capture.Source
	queue     *capture.FrameQueue
	processor *pipeline.Processor
	renderer  *overlay.Renderer
	metrics   *metrics.Pipeline
	logger    *slog.Logger
	throttle  *logging.Throttle
	enabled   atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

// New creates an App. Templates and the saved recognition mode are loaded
// from the store when one is configured.
func New(config Config) (*App, error) {
	if config.Source == nil {
		return nil, errors.New("app needs a frame source")
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.With("component", "app")

	processor, err := pipeline.NewProcessor(config.Pipeline, pipeline.Deps{
		Locator: config.Locator,
		Motion:  config.Motion,
		Static:  config.Static,
		Dynamic: config.Dynamic,
		Metrics: config.Metrics,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		config:    config,
		source:    config.Source,
		queue:     capture.NewFrameQueue(config.QueueSize),
		processor: processor,
		metrics:   config.Metrics,
		logger:    logger,
		throttle:  logging.NewThrottle(time.Second, 5),
	}
	a.enabled.Store(true)
	if config.Feed != nil {
		quality := config.Quality
		if quality <= 0 {
			quality = overlay.DefaultQuality
		}
		a.renderer = overlay.NewRenderer(quality)
	}

	if config.Store != nil {
		if err := a.ReloadTemplates(); err != nil {
			return nil, fmt.Errorf("load templates: %w", err)
		}
		if err := a.loadMode(); err != nil {
			return nil, fmt.Errorf("load mode: %w", err)
		}
	}
	return a, nil
}

// Start opens the source and runs the capture and processing loops. A
// source that cannot be opened is an error wrapping
// capture.ErrCameraUnavailable.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return ErrAlreadyRunning
	}

	if err := a.source.Open(); err != nil {
		if !errors.Is(err, capture.ErrCameraUnavailable) {
			err = fmt.Errorf("%w: %w", capture.ErrCameraUnavailable, err)
		}
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.captureLoop(ctx) })
	g.Go(func() error { return a.processLoop(ctx) })
	if a.config.Store != nil {
		updates, unsubscribe := a.processor.State().Subscribe(historyBuffer)
		g.Go(func() error {
			defer unsubscribe()
			return a.recordHistory(ctx, updates)
		})
	}

	a.cancel = cancel
	a.group = g
	a.logger.Info("recognition pipeline started")
	return nil
}

// Stop cancels both loops, waits for them and releases every frame. It is a
// no-op on an App that is not running.
func (a *App) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel == nil {
		return nil
	}
	a.cancel()
	err := a.group.Wait()
	a.cancel = nil
	a.group = nil

	a.queue.Drain()
	a.processor.Close()
	if closeErr := a.source.Close(); closeErr != nil {
		a.logger.Warn("close source", "error", closeErr)
	}

	a.logger.Info("recognition pipeline stopped",
		"frames_queued", a.queue.Pushed(), "frames_dropped", a.queue.Dropped())
	return err
}

// Close stops the App and releases the renderer.
func (a *App) Close() error {
	err := a.Stop()
	if a.renderer != nil {
		a.renderer.Close()
	}
	return err
}

// Running reports whether Start has been called without a matching Stop.
func (a *App) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cancel != nil
}

// SetEnabled enables or disables recognition. Frames captured while disabled
// are discarded without processing.
func (a *App) SetEnabled(enabled bool) {
	if a.enabled.Swap(enabled) != enabled {
		a.logger.Info("recognition toggled", "enabled", enabled)
	}
}

// IsEnabled returns whether recognition is currently enabled.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// Mode returns the requested recognition mode.
func (a *App) Mode() pipeline.Override {
	return a.processor.Override()
}

// SetMode changes the recognition mode and saves it for the next start.
func (a *App) SetMode(mode pipeline.Override) error {
	a.processor.SetOverride(mode)
	if a.config.Store == nil {
		return nil
	}
	return a.config.Store.Settings().Set(store.SettingMode, mode.String())
}

func (a *App) loadMode() error {
	saved, err := a.config.Store.Settings().Get(store.SettingMode)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	mode, err := pipeline.ParseOverride(saved)
	if err != nil {
		a.logger.Warn("ignoring saved recognition mode", "mode", saved, "error", err)
		return nil
	}
	a.processor.SetOverride(mode)
	return nil
}

// State returns the published prediction state.
func (a *App) State() *pipeline.State {
	return a.processor.State()
}

// Queue returns the frame queue between the two loops.
func (a *App) Queue() *capture.FrameQueue {
	return a.queue
}
