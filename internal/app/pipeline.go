package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/pipeline"
)

// retryDelay paces the capture loop after a failed read.
const retryDelay = 50 * time.Millisecond

// captureLoop reads frames, renders the overlay and hands frames to the
// processing loop. It never waits on the queue: a frame that does not fit is
// dropped. It returns when the source ends or ctx is done.
func (a *App) captureLoop(ctx context.Context) error {
	for ctx.Err() == nil {
		frame, err := a.source.Next()
		if errors.Is(err, capture.ErrEndOfStream) {
			a.logger.Info("frame source ended")
			return nil
		}
		if err != nil {
			a.metrics.FrameError(metrics.StageCapture)
			a.logFrameError(metrics.StageCapture, err)
			select {
			case <-ctx.Done():
			case <-time.After(retryDelay):
			}
			continue
		}
		a.metrics.FrameCaptured()

		a.render(&frame)

		if !a.queue.Push(frame) {
			frame.Close()
			a.metrics.FrameDropped()
		}
		a.metrics.QueueDepth(a.queue.Len())
	}
	return nil
}

// render publishes the frame annotated with the current prediction. The
// bounding box lags the frame by however many frames are still queued.
func (a *App) render(frame *capture.Frame) {
	if a.renderer == nil {
		return
	}
	jpeg, err := a.renderer.Render(frame, a.processor.State().Snapshot(), a.processor.LastBox())
	if err != nil {
		a.metrics.FrameError(metrics.StageRender)
		a.logFrameError(metrics.StageRender, err)
		return
	}
	a.config.Feed.Set(jpeg)
}

// processLoop is the only goroutine that touches the processor. A failing
// frame is logged and skipped; the loop keeps going until ctx is done.
func (a *App) processLoop(ctx context.Context) error {
	for {
		frame, err := a.queue.Pop(ctx)
		if err != nil {
			return nil
		}
		a.metrics.QueueDepth(a.queue.Len())

		if !a.IsEnabled() {
			frame.Close()
			a.metrics.FrameSkipped()
			continue
		}

		a.processFrame(&frame)
		frame.Close()
	}
}

func (a *App) processFrame(frame *capture.Frame) {
	defer func() {
		if r := recover(); r != nil {
			a.metrics.FrameError(metrics.StagePanic)
			a.logFrameError(metrics.StagePanic, fmt.Errorf("%v", r))
		}
	}()

	if err := a.processor.Process(frame); err != nil {
		stage := "process"
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			stage = stageErr.Stage
		}
		a.logFrameError(stage, err)
		return
	}
	a.metrics.FrameProcessed()
}

func (a *App) logFrameError(stage string, err error) {
	ok, suppressed := a.throttle.Allow()
	if !ok {
		return
	}
	a.logger.Warn("frame failed", "stage", stage, "error", err, "suppressed", suppressed)
}
