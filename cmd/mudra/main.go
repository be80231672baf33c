package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/overlay"
	"github.com/ayusman/mudra/internal/pipeline"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "mudra:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	locator, closeLocator := newLocator(cfg, logger)
	defer closeLocator()

	camera := capture.NewCamera(cfg.Source)
	camera.SetFPS(cfg.FPS)

	m := metrics.New()
	feed := overlay.NewFeed()
	static := gesture.NewStaticMatcher()
	dynamic := gesture.NewDynamicMatcher()

	a, err := app.New(app.Config{
		Source:  camera,
		Locator: locator,
		Static:  static,
		Dynamic: dynamic,
		Motion:  capture.NewMotionDetector(cfg.MotionPixelThreshold, cfg.MotionRatioThreshold, cfg.MotionBlurSize),
		Pipeline: pipeline.Config{
			WindowSize:           cfg.WindowSize,
			SmootherSize:         cfg.SmootherSize,
			CooldownFrames:       cfg.CooldownFrames,
			StaticUnsure:         cfg.StaticUnsureThreshold,
			StaticPublish:        cfg.StaticPublishThreshold,
			DynamicPublish:       cfg.DynamicPublishThreshold,
			ResetWindowOnDynamic: cfg.ResetWindowOnDynamic,
		},
		QueueSize:   cfg.QueueSize,
		Store:       st,
		HistorySize: cfg.HistorySize,
		Feed:        feed,
		Metrics:     m,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Start(); err != nil {
		return fmt.Errorf("start recognition: %w", err)
	}

	srv := server.New(server.Config{
		StaticDir: findWebDir(cfg.StaticDir),
		Store:     st,
		State:     a.State(),
		Modes:     a,
		Templates: a,
		Feed:      feed,
		Metrics:   m.Handler(),
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Run(ctx, cfg.Addr)
		stop()
	}()

	if cfg.Tray {
		runTray(ctx, a, cfg.Addr, logger)
		stop()
	} else {
		<-ctx.Done()
	}
	logger.Info("shutting down")

	if err := <-serveErr; err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return a.Stop()
}

// newLocator prefers the MediaPipe helper and falls back to treating the
// whole frame as the hand.
func newLocator(cfg *config.Config, logger *slog.Logger) (detector.Locator, func()) {
	if cfg.Locator == config.LocatorMediaPipe {
		mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig())
		if err == nil {
			logger.Info("using MediaPipe hand locator")
			locator := detector.NewLandmarkLocator(mp, detector.DefaultConfig())
			return locator, func() { locator.Close() }
		}
		logger.Warn("MediaPipe not available, using full frame locator", "error", err)
	}
	return detector.FullFrameLocator{}, func() {}
}

// runTray blocks on the tray until it quits or ctx is done.
func runTray(ctx context.Context, a *app.App, addr string, logger *slog.Logger) {
	t := tray.New(a.IsEnabled(), a.Mode())
	t.OnToggle(a.SetEnabled)
	t.OnMode(func(mode pipeline.Override) {
		if err := a.SetMode(mode); err != nil {
			logger.Warn("save recognition mode", "error", err)
		}
	})
	t.OnOpen(func() {
		if err := openBrowser(webURL(addr)); err != nil {
			logger.Warn("open browser", "error", err)
		}
	})

	go t.Watch(ctx, a.State())
	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}

func webURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir returns dir when set, otherwise the first "web" directory found
// next to the working directory. Empty when none exists.
func findWebDir(dir string) string {
	if dir != "" {
		return dir
	}
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
